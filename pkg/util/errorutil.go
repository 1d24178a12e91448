package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by services and the HTTP layer.
const (
	CodeValidation           = "VALIDATION_FAILED"
	CodeDuplicateAccount     = "DUPLICATE_ACCOUNT"
	CodeDuplicateKey         = "DUPLICATE_KEY"
	CodeConflict             = "CONFLICT"
	CodeNotFound             = "NOT_FOUND"
	CodeInsufficientCredits  = "INSUFFICIENT_CREDITS"
	CodeInvalidKey           = "INVALID_KEY"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeLockTimeout          = "LOCK_TIMEOUT"
	CodeGeneratorUnavailable = "GENERATOR_UNAVAILABLE"
	CodeStorage              = "STORAGE_FAILURE"
	CodeInternal             = "INTERNAL_ERROR"
)

// Sentinels for errors.Is matching. Two DomainErrors match when their codes match.
var (
	ErrValidation           = &DomainError{Code: CodeValidation}
	ErrDuplicateAccount     = &DomainError{Code: CodeDuplicateAccount}
	ErrDuplicateKey         = &DomainError{Code: CodeDuplicateKey}
	ErrConflict             = &DomainError{Code: CodeConflict}
	ErrNotFound             = &DomainError{Code: CodeNotFound}
	ErrInsufficientCredits  = &DomainError{Code: CodeInsufficientCredits}
	ErrInvalidKey           = &DomainError{Code: CodeInvalidKey}
	ErrUnauthorized         = &DomainError{Code: CodeUnauthorized}
	ErrForbidden            = &DomainError{Code: CodeForbidden}
	ErrLockTimeout          = &DomainError{Code: CodeLockTimeout}
	ErrGeneratorUnavailable = &DomainError{Code: CodeGeneratorUnavailable}
	ErrStorage              = &DomainError{Code: CodeStorage}
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Retryable reports whether the caller may retry the operation unchanged.
func (e *DomainError) Retryable() bool {
	return e.Code == CodeLockTimeout || e.Code == CodeGeneratorUnavailable
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewDuplicateAccount(email string) error {
	return NewDomainError(CodeDuplicateAccount, "an account with this email already exists", http.StatusConflict,
		map[string]any{"email": email})
}

func NewDuplicateKey(key string) error {
	return NewDomainError(CodeDuplicateKey, "this activation key is already assigned to the user", http.StatusConflict,
		map[string]any{"key": key})
}

func NewInsufficientCredits(balance int) error {
	return NewDomainError(CodeInsufficientCredits, "insufficient credits; redeem an activation key or contact an administrator",
		http.StatusPaymentRequired, map[string]any{"credits": balance})
}

func NewInvalidKey() error {
	return NewDomainError(CodeInvalidKey, "invalid activation key", http.StatusUnprocessableEntity, nil)
}

func NewLockTimeout(collection string, err error) error {
	return &DomainError{
		Code:       CodeLockTimeout,
		Message:    fmt.Sprintf("collection %s is busy, retry later", collection),
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"collection": collection},
		Err:        err,
	}
}

func NewGeneratorUnavailable(err error) error {
	return &DomainError{
		Code:       CodeGeneratorUnavailable,
		Message:    "code generation is temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewStorageError(op string, err error) error {
	return &DomainError{
		Code:       CodeStorage,
		Message:    fmt.Sprintf("storage failure during %s", op),
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		if domainErr.HTTPStatus == 0 {
			withStatus := *domainErr
			withStatus.HTTPStatus = http.StatusInternalServerError
			return &withStatus
		}
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
