package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/credit-ledger/internal/domain"
)

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret     []byte
	sessionTTL time.Duration
	pinTTL     time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, sessionTTL, pinTTL time.Duration) *TokenManager {
	if sessionTTL <= 0 {
		sessionTTL = time.Hour
	}
	if pinTTL <= 0 {
		pinTTL = 5 * time.Minute
	}
	return &TokenManager{secret: []byte(secret), sessionTTL: sessionTTL, pinTTL: pinTTL}
}

// Claims carries the public identity snapshot. A pin_pending token names only
// the account awaiting its second factor.
type Claims struct {
	Stage    domain.TokenStage      `json:"stage"`
	Identity *domain.PublicIdentity `json:"identity,omitempty"`
	Email    string                 `json:"email"`
	jwt.RegisteredClaims
}

// IssueSession signs a full session token for the snapshot.
func (tm *TokenManager) IssueSession(identity *domain.PublicIdentity) (string, time.Time, error) {
	return tm.sign(&Claims{
		Stage:    domain.TokenStageSession,
		Identity: identity,
		Email:    identity.Email,
	}, identity.ID, tm.sessionTTL)
}

// IssuePinPending signs a short-lived token proving the password step passed.
func (tm *TokenManager) IssuePinPending(identity *domain.PublicIdentity) (string, time.Time, error) {
	return tm.sign(&Claims{
		Stage: domain.TokenStagePinPending,
		Email: identity.Email,
	}, identity.ID, tm.pinTTL)
}

func (tm *TokenManager) sign(claims *Claims, subject string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ParseStage parses the token and requires it to be at stage.
func (tm *TokenManager) ParseStage(tokenStr string, stage domain.TokenStage) (*Claims, error) {
	claims, err := tm.ParseToken(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Stage != stage {
		return nil, errors.New("token stage mismatch")
	}
	if stage == domain.TokenStageSession && claims.Identity == nil {
		return nil, errors.New("session token without identity")
	}
	return claims, nil
}
