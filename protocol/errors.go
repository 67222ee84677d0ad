// ABOUTME: Service error envelope shared by the client and the provider.
// ABOUTME: Errors cross the wire as a stable code plus a human-readable message.

package protocol

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a service-side failure. Codes are part of the wire
// contract and must stay stable.
type ErrorCode string

const (
	// ErrorInvalidIdentity means the identity payload failed structural validation.
	ErrorInvalidIdentity ErrorCode = "InvalidIdentity"

	// ErrorInvalidContext means the context payload failed structural validation.
	ErrorInvalidContext ErrorCode = "InvalidContext"

	// ErrorInvalidChannelID means the channel id failed structural validation.
	ErrorInvalidChannelID ErrorCode = "InvalidChannelId"

	// ErrorChannelNotFound means no channel exists with the requested id.
	ErrorChannelNotFound ErrorCode = "ChannelNotFound"

	// ErrorWindowNotFound means the target window does not exist.
	ErrorWindowNotFound ErrorCode = "WindowNotFound"

	// ErrorWindowNotSupported means the target window exists but does not
	// participate in the channel protocol.
	ErrorWindowNotSupported ErrorCode = "WindowNotSupported"
)

// ServiceError is a failure reported by the remote service. It is returned
// as-is to the caller of the operation that triggered it; nothing in the
// client retries or recovers.
type ServiceError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewServiceError builds a ServiceError with a formatted message.
func NewServiceError(code ErrorCode, format string, args ...any) *ServiceError {
	return &ServiceError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// HasCode reports whether err is (or wraps) a ServiceError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Code == code
}
