package domain

import "errors"

// Error taxonomy shared across the session manager, watcher supervisor and
// decision pipeline. HTTP handlers map these to status codes; background
// goroutines record them in the audit log instead of propagating.
var (
	ErrCredentialsMissing  = errors.New("user credentials not registered")
	ErrSessionExpired      = errors.New("transport session expired")
	ErrGroupNotFound       = errors.New("group or channel not found")
	ErrTopicNotFound       = errors.New("forum topic not found")
	ErrExtractionFailed    = errors.New("signal extraction failed")
	ErrValidationMismatch  = errors.New("validation sentiment mismatch")
	ErrTrustRejected       = errors.New("trust scoring rejected candidate")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrExecutionFailed     = errors.New("trade execution failed")
	ErrTransportDisconnect = errors.New("transport disconnected")
)
