package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/credit-ledger/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountCreated   EventType = "account_created"
	EventAccountDeleted   EventType = "account_deleted"
	EventCreditsSpent     EventType = "credits_spent"
	EventCreditsGranted   EventType = "credits_granted"
	EventCreditsRefunded  EventType = "credits_refunded"
	EventVoucherIssued    EventType = "voucher_issued"
	EventVoucherRedeemed  EventType = "voucher_redeemed"
	EventVoucherRevoked   EventType = "voucher_revoked"
	EventAccessApproved   EventType = "access_approved"
	EventGenerationResult EventType = "generation_result"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Email     string      `json:"email"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, email string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Email:     email,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// CreditsPayload carries the balance after a credit change.
type CreditsPayload struct {
	Balance int `json:"balance"`
}

// VoucherPayload describes a voucher operation. Key is masked.
type VoucherPayload struct {
	Key     string `json:"key"`
	Credits int    `json:"credits,omitempty"`
	Balance int    `json:"balance"`
}

// GenerationPayload describes one generation attempt.
type GenerationPayload struct {
	Status      domain.GenerationStatus `json:"status"`
	Language    string                  `json:"language"`
	PayloadType string                  `json:"payloadType"`
}

// MaskKey keeps the first four characters of a voucher key.
func MaskKey(key string) string {
	const visible = 4
	if len(key) <= visible {
		return "****"
	}
	return key[:visible] + "****"
}
