package auth

import "github.com/spec-kit/credit-ledger/internal/domain"

// LoginState is a step of the two-factor login state machine.
type LoginState int

const (
	StateCredentialsPending LoginState = iota
	StatePinPending
	StateAuthenticated
	StateRejected
)

func (s LoginState) String() string {
	switch s {
	case StateCredentialsPending:
		return "credentials_pending"
	case StatePinPending:
		return "pin_pending"
	case StateAuthenticated:
		return "authenticated"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// RejectReason tells the caller which factor failed, and nothing more.
type RejectReason string

const (
	RejectNone     RejectReason = ""
	RejectPassword RejectReason = "password"
	RejectPin      RejectReason = "pin"
)

// LoginFlow walks one login attempt through its states. Rejected and
// Authenticated are terminal; feeding a terminal flow is a rejection.
type LoginFlow struct {
	state    LoginState
	reason   RejectReason
	identity *domain.PublicIdentity
}

// NewLoginFlow starts at CredentialsPending.
func NewLoginFlow() *LoginFlow {
	return &LoginFlow{state: StateCredentialsPending}
}

// ResumeAtPin restores a flow whose password step passed on an earlier request.
func ResumeAtPin(email string) *LoginFlow {
	return &LoginFlow{state: StatePinPending, identity: &domain.PublicIdentity{Email: email}}
}

func (f *LoginFlow) State() LoginState                { return f.state }
func (f *LoginFlow) Reason() RejectReason             { return f.reason }
func (f *LoginFlow) Identity() *domain.PublicIdentity { return f.identity }

// Credentials applies the result of password verification; identity is nil
// when the email is unknown or the password is wrong.
func (f *LoginFlow) Credentials(identity *domain.PublicIdentity) LoginState {
	if f.state != StateCredentialsPending {
		return f.reject(RejectPassword)
	}
	if identity == nil {
		return f.reject(RejectPassword)
	}
	f.identity = identity
	if identity.TwoFactorEnabled {
		f.state = StatePinPending
		return f.state
	}
	f.state = StateAuthenticated
	return f.state
}

// Pin applies the result of PIN verification; identity is nil on mismatch.
func (f *LoginFlow) Pin(identity *domain.PublicIdentity) LoginState {
	if f.state != StatePinPending || identity == nil {
		return f.reject(RejectPin)
	}
	if f.identity != nil && f.identity.Email != identity.Email {
		return f.reject(RejectPin)
	}
	f.identity = identity
	f.state = StateAuthenticated
	return f.state
}

func (f *LoginFlow) reject(reason RejectReason) LoginState {
	f.state = StateRejected
	f.reason = reason
	f.identity = nil
	return f.state
}
