package domain

// TokenStage differentiates full sessions from half-finished two-factor logins.
type TokenStage string

const (
	TokenStageSession    TokenStage = "session"
	TokenStagePinPending TokenStage = "pin_pending"
)
