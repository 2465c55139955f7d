package errors

import "fmt"

type ErrorCode string

const (
	ErrInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrInvalidRequestData ErrorCode = "INVALID_REQUEST_DATA"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrForbidden          ErrorCode = "FORBIDDEN"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrAlreadyExists      ErrorCode = "ALREADY_EXISTS"
	ErrSlotUnavailable    ErrorCode = "SLOT_UNAVAILABLE"
	ErrHoldExpired        ErrorCode = "HOLD_EXPIRED"
	ErrNdaRequired        ErrorCode = "NDA_REQUIRED"
	ErrWebhookAuth        ErrorCode = "WEBHOOK_AUTH"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrInternalServer     ErrorCode = "INTERNAL_SERVER_ERROR"
)

// AppError is the typed result every service returns on failure. The HTTP
// layer maps Code to a status; Details is optional structured context.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string, details any) *AppError {
	return &AppError{Code: code, Message: message, Details: details}
}

// Transient reports whether a retry by the caller may succeed.
func (e *AppError) Transient() bool {
	return e != nil && e.Code == ErrInternalServer
}
