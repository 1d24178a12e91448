package domain

import "time"

// AccessRequestStatus tracks the approval state of an access-request questionnaire.
type AccessRequestStatus string

const (
	AccessRequestPending  AccessRequestStatus = "pending"
	AccessRequestApproved AccessRequestStatus = "approved"
)

// AccessRequest is the questionnaire a standard user submits before generation is unlocked.
type AccessRequest struct {
	Email      string              `json:"email"`
	FullName   string              `json:"fullName"`
	Occupation string              `json:"occupation"`
	Reason     string              `json:"reason"`
	Status     AccessRequestStatus `json:"status"`
	Timestamp  time.Time           `json:"timestamp"`
}

// PurchaseRequestStatus tracks manual processing of a credit purchase.
type PurchaseRequestStatus string

const (
	PurchaseRequestPending   PurchaseRequestStatus = "pending"
	PurchaseRequestProcessed PurchaseRequestStatus = "processed"
)

// PurchaseRequest records a user's intent to buy a credit plan; an administrator
// fulfils it out of band by issuing an activation key.
type PurchaseRequest struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Email     string                `json:"email"`
	Plan      string                `json:"plan"`
	Status    PurchaseRequestStatus `json:"status"`
	Timestamp time.Time             `json:"timestamp"`
}
