package domain

import (
	"errors"
	"fmt"
	"strings"
)

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
	ErrCodeDuplicate        = "DUPLICATE"
	ErrCodeCollision        = "COLLISION"
	ErrCodeCollaborator     = "COLLABORATOR_ERROR"
	ErrCodeConfiguration    = "CONFIGURATION_ERROR"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidEntryType  = NewDomainError(ErrCodeValidation, "invalid entry type")
	ErrInvalidImportance = NewDomainError(ErrCodeValidation, "invalid importance level")
	ErrEmptyContent      = NewDomainError(ErrCodeValidation, "content is empty")
)

// Not found errors
var (
	ErrEntryNotFound  = NewDomainError(ErrCodeNotFound, "entry not found")
	ErrRecordNotFound = NewDomainError(ErrCodeNotFound, "inventory record not found")
)

// Operation errors
var (
	ErrAlreadyDeprecated  = NewDomainError(ErrCodeInvalidOperation, "entry is already deprecated")
	ErrCannotDeleteRecord = NewDomainError(ErrCodeInvalidOperation, "inventory records cannot be deleted, use deprecation instead")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Violation describes a single validation failure. A validation run
// reports every violation it finds, not just the first.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + ": " + v.Message
}

// ValidationError carries the full set of violations for a rejected entry.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "[" + ErrCodeValidation + "] validation failed"
	}
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("[%s] validation failed (%d violations): %s",
		ErrCodeValidation, len(e.Violations), strings.Join(msgs, "; "))
}

// NewValidationError creates a ValidationError from violations
func NewValidationError(violations []Violation) *ValidationError {
	return &ValidationError{Violations: violations}
}

// AsValidationError unwraps err into a *ValidationError if possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// DuplicateError signals that a submitted entry already exists. A
// duplicate skip is an expected outcome, not a processing failure.
type DuplicateError struct {
	ExistingID string
	Hash       string
	Score      float64
	Exact      bool
}

func (e *DuplicateError) Error() string {
	if e.Exact {
		return fmt.Sprintf("[%s] exact duplicate of %s (hash %s)", ErrCodeDuplicate, e.ExistingID, e.Hash)
	}
	return fmt.Sprintf("[%s] near duplicate of %s (similarity %.4f)", ErrCodeDuplicate, e.ExistingID, e.Score)
}

// CollisionError signals that the unique_id already belongs to an
// active record. Callers route collisions to the update path.
type CollisionError struct {
	UniqueID        string
	ExistingVersion int
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("[%s] unique_id %s already exists (version %d)", ErrCodeCollision, e.UniqueID, e.ExistingVersion)
}

// CollaboratorError wraps a failure from an external collaborator
// (embedding provider or vector store). Transient failures are
// retried with backoff; permanent ones surface immediately.
type CollaboratorError struct {
	Collaborator string
	Transient    bool
	Err          error
}

func (e *CollaboratorError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("[%s] %s failure from %s: %v", ErrCodeCollaborator, kind, e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps a retryable collaborator failure
func NewTransientError(collaborator string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Transient: true, Err: err}
}

// NewPermanentError wraps a non-retryable collaborator failure
func NewPermanentError(collaborator string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Transient: false, Err: err}
}

// IsTransient reports whether err is a retryable collaborator failure.
func IsTransient(err error) bool {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce.Transient
	}
	return false
}

// ConfigurationError wraps a misconfiguration detected at startup.
type ConfigurationError struct {
	Setting string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ErrCodeConfiguration, e.Setting, e.Message)
}

// NewConfigurationError creates a ConfigurationError
func NewConfigurationError(setting, message string) *ConfigurationError {
	return &ConfigurationError{Setting: setting, Message: message}
}

// ErrorCode extracts the domain error code from any error in the
// taxonomy, defaulting to INTERNAL_ERROR.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var (
		de *DomainError
		ve *ValidationError
		du *DuplicateError
		co *CollisionError
		ce *CollaboratorError
		cf *ConfigurationError
	)
	switch {
	case errors.As(err, &de):
		return de.Code
	case errors.As(err, &ve):
		return ErrCodeValidation
	case errors.As(err, &du):
		return ErrCodeDuplicate
	case errors.As(err, &co):
		return ErrCodeCollision
	case errors.As(err, &ce):
		return ErrCodeCollaborator
	case errors.As(err, &cf):
		return ErrCodeConfiguration
	}
	return ErrCodeInternalError
}
