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
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeDuplicate      = "DUPLICATE"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeTransientStage = "TRANSIENT_STAGE_ERROR"
	ErrCodeTerminalStage  = "TERMINAL_STAGE_ERROR"
	ErrCodeAuditInvariant = "AUDIT_INVARIANT_ERROR"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidSourceType     = NewDomainError(ErrCodeValidation, "invalid ingestion source type")
	ErrInvalidSourceStatus   = NewDomainError(ErrCodeValidation, "invalid ingestion source status")
	ErrInvalidStatusChange   = NewDomainError(ErrCodeValidation, "invalid source status transition")
	ErrInvalidChunkKind      = NewDomainError(ErrCodeValidation, "invalid chunk kind")
	ErrInvalidUsagePolicy    = NewDomainError(ErrCodeValidation, "invalid usage policy")
	ErrInvalidEventType      = NewDomainError(ErrCodeValidation, "invalid chunk event type")
	ErrInvalidPipelineStage  = NewDomainError(ErrCodeValidation, "invalid pipeline stage")
	ErrInvalidPipelineStatus = NewDomainError(ErrCodeValidation, "invalid pipeline job status")
	ErrDeleteNotConfirmed    = NewDomainError(ErrCodeValidation, "hard delete requires explicit confirmation")
)

// Not found errors
var (
	ErrSourceNotFound       = NewDomainError(ErrCodeNotFound, "ingestion source not found")
	ErrItemNotFound         = NewDomainError(ErrCodeNotFound, "knowledge item not found")
	ErrChunkNotFound        = NewDomainError(ErrCodeNotFound, "knowledge chunk not found")
	ErrFolderNotFound       = NewDomainError(ErrCodeNotFound, "folder not found")
	ErrOrganizationNotFound = NewDomainError(ErrCodeNotFound, "organization not found")
	ErrAPIKeyNotFound       = NewDomainError(ErrCodeNotFound, "api key not found")
	ErrMembershipNotFound   = NewDomainError(ErrCodeNotFound, "organization membership not found")
)

// Duplicate conditions. Not failures: intake surfaces these as an explicit
// duplicate status carrying the existing record's id.
var (
	ErrDuplicateContent   = NewDomainError(ErrCodeDuplicate, "content already ingested")
	ErrDuplicateSourceRef = NewDomainError(ErrCodeDuplicate, "external entity already ingested")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrForbidden     = NewDomainError(ErrCodeForbidden, "insufficient permission")
)

// ErrStageRetriesExhausted marks a pipeline stage that failed past its retry
// budget. The chain stops and the source is marked failed.
var ErrStageRetriesExhausted = NewDomainError(ErrCodeTerminalStage, "stage retries exhausted")

// ErrMissingAuditEvent signals a governance mutation that did not append an
// audit event. Treated as a programming error, never a user-facing condition.
var ErrMissingAuditEvent = NewDomainError(ErrCodeAuditInvariant, "governance mutation produced no audit event")
