package responses

import "fmt"

// ErrorCode machine readable error codes of the gateway
type ErrorCode int

const (
	// ErrorCodeUnknownRoute the requested route does not exist
	ErrorCodeUnknownRoute ErrorCode = 1
	// ErrorCodeBadRequest could not read incoming json
	ErrorCodeBadRequest ErrorCode = 2
	// ErrorCodeInternal something broke on our side
	ErrorCodeInternal ErrorCode = 3
	// ErrorCodeNotFound link target or session not found, retrying will not help
	ErrorCodeNotFound ErrorCode = 4
	// ErrorCodeBackend the help backend could not be reached or failed, can be retried
	ErrorCodeBackend ErrorCode = 5
	// ErrorCodeSuperseded a newer navigation replaced this one
	ErrorCodeSuperseded ErrorCode = 6
)

// Error describes an error for humans and machines
type Error struct {
	Status    int       `json:"status"`
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

func (e Error) Error() string {
	return fmt.Sprintf("status:%d, code:%d, message:%q", e.Status, e.Code, e.Message)
}

// NewErrorf - a brand new error using fmt.Sprintf
func NewErrorf(status int, code ErrorCode, message string, args ...interface{}) *Error {
	return &Error{
		Status:    status,
		Code:      code,
		Message:   fmt.Sprintf(message, args...),
		Retryable: code == ErrorCodeBackend,
	}
}
