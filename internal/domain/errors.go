package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeDuplicateContent = "DUPLICATE_CONTENT"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeQuotaExceeded    = "QUOTA_EXCEEDED"
	ErrCodeEncryption       = "ENCRYPTION_ERROR"
	ErrCodePersistence      = "PERSISTENCE_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyContent          = NewDomainError(ErrCodeValidation, "content is empty")
	ErrMissingActor          = NewDomainError(ErrCodeValidation, "actor ID is required")
	ErrMissingProject        = NewDomainError(ErrCodeValidation, "project ID is required")
	ErrInvalidSensitivity    = NewDomainError(ErrCodeValidation, "invalid sensitivity tier")
	ErrInvalidRetention      = NewDomainError(ErrCodeValidation, "invalid retention policy")
	ErrInvalidPermission     = NewDomainError(ErrCodeValidation, "invalid permission")
	ErrEmptyCanonicalContent = NewDomainError(ErrCodeValidation, "extracted content is empty")
)

// Not found errors
var (
	ErrProjectNotFound      = NewDomainError(ErrCodeNotFound, "project not found")
	ErrKnowledgeNotFound    = NewDomainError(ErrCodeNotFound, "knowledge item not found")
	ErrConversationNotFound = NewDomainError(ErrCodeNotFound, "conversation not found")
	ErrActorNotFound        = NewDomainError(ErrCodeNotFound, "actor not found")
	ErrAPIKeyNotFound       = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Admission errors
var (
	ErrDuplicateContent = NewDomainError(ErrCodeDuplicateContent, "content already exists in this project")
	ErrAccessDenied     = NewDomainError(ErrCodeForbidden, "insufficient permissions for project")
	ErrQuotaExceeded    = NewDomainError(ErrCodeQuotaExceeded, "project document limit exceeded")
)

// Infrastructure errors
var (
	ErrEncryptionUnavailable = NewDomainError(ErrCodeEncryption, "project encryption key unavailable")
	ErrEncryptionFailed      = NewDomainError(ErrCodeEncryption, "content protection failed")
	ErrPersistenceFailed     = NewDomainError(ErrCodePersistence, "knowledge item persistence failed")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)
