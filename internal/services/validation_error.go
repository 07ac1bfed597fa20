package services

// ValidationError carries a storefront-safe, Spanish-language message for
// request rejections. Handlers render SafeMessage verbatim in 400 responses.
type ValidationError struct {
	code    string
	message string
}

// NewValidationError builds a ValidationError with a stable code and a
// human-readable message.
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{code: code, message: message}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Code returns the stable machine-readable error code.
func (e *ValidationError) Code() string {
	if e == nil {
		return ""
	}
	return e.code
}

// SafeMessage returns the message suitable for end users.
func (e *ValidationError) SafeMessage() string {
	if e == nil {
		return ""
	}
	return e.message
}
