// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Intake flow
	ErrCodeStepValidationFailed ErrorCode = "STEP_VALIDATION_FAILED"
	ErrCodeSessionNotFound      ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionBusy          ErrorCode = "SESSION_BUSY"
	ErrCodeInvalidInput         ErrorCode = "INVALID_INPUT"

	// Persistence / collaborators
	ErrCodeProspectSaveFailed   ErrorCode = "PROSPECT_SAVE_FAILED"
	ErrCodeDocumentStoreFailed  ErrorCode = "DOCUMENT_STORE_FAILED"
	ErrCodeCustodyUnauthorized  ErrorCode = "CUSTODY_UNAUTHORIZED"
	ErrCodeTenantConfigFailed   ErrorCode = "TENANT_CONFIG_FAILED"
	ErrCodeInventoryQueryFailed ErrorCode = "INVENTORY_QUERY_FAILED"

	// Plan entitlement
	ErrCodePlanNotEntitled ErrorCode = "PLAN_NOT_ENTITLED"
	ErrCodePlanExpired     ErrorCode = "PLAN_EXPIRED"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewStepValidationError reports a guard failure; the session stays on its step.
func NewStepValidationError(step, details string) *StandardError {
	return newError(ErrCodeStepValidationFailed, "Step data is incomplete or invalid", details, false).
		WithMetadata("step", step)
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Intake session not found",
		fmt.Sprintf("sessionId: %s", sessionID), false)
}

// NewSessionBusyError is returned while a persistence write is in flight.
func NewSessionBusyError(sessionID string) *StandardError {
	return newError(ErrCodeSessionBusy, "Intake session has a write in flight",
		fmt.Sprintf("sessionId: %s", sessionID), true)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false)
}

// NewProspectSaveFailedError creates a retryable persistence error.
func NewProspectSaveFailedError(err error) *StandardError {
	return newError(ErrCodeProspectSaveFailed, "Prospect could not be saved", err.Error(), true)
}

// NewDocumentStoreFailedError creates a retryable custody transport error.
func NewDocumentStoreFailedError(err error) *StandardError {
	return newError(ErrCodeDocumentStoreFailed, "Document could not be stored", err.Error(), true)
}

// NewCustodyUnauthorizedError is returned after the single post-refresh retry was also rejected.
func NewCustodyUnauthorizedError(details string) *StandardError {
	return newError(ErrCodeCustodyUnauthorized, "Document custody rejected credentials", details, false)
}

func NewTenantConfigFailedError(tenantID string, err error) *StandardError {
	return newError(ErrCodeTenantConfigFailed, "Tenant configuration could not be loaded",
		fmt.Sprintf("tenantId: %s, error: %s", tenantID, err.Error()), true)
}

func NewInventoryQueryFailedError(err error) *StandardError {
	return newError(ErrCodeInventoryQueryFailed, "Inventory query failed", err.Error(), true)
}

func NewPlanNotEntitledError(plan string) *StandardError {
	return newError(ErrCodePlanNotEntitled, "Tenant plan does not include inventory matching",
		fmt.Sprintf("plan: %s", plan), false)
}

func NewPlanExpiredError(details string) *StandardError {
	return newError(ErrCodePlanExpired, "Tenant plan has expired", details, false)
}

// NewExternalServiceError wraps a transient failure of an infrastructure dependency.
func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes caught by boundary events.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeStepValidationFailed: "STEP_VALIDATION_FAILED",
	ErrCodeSessionNotFound:      "SESSION_NOT_FOUND",
	ErrCodeSessionBusy:          "SESSION_BUSY",
	ErrCodeInvalidInput:         "INVALID_INPUT",
	ErrCodeProspectSaveFailed:   "PROSPECT_SAVE_FAILED",
	ErrCodeDocumentStoreFailed:  "DOCUMENT_STORE_FAILED",
	ErrCodeCustodyUnauthorized:  "CUSTODY_UNAUTHORIZED",
	ErrCodeTenantConfigFailed:   "TENANT_CONFIG_FAILED",
	ErrCodeInventoryQueryFailed: "INVENTORY_QUERY_FAILED",
	ErrCodePlanNotEntitled:      "PLAN_NOT_ENTITLED",
	ErrCodePlanExpired:          "PLAN_EXPIRED",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeProspectSaveFailed,
		ErrCodeDocumentStoreFailed,
		ErrCodeTenantConfigFailed,
		ErrCodeInventoryQueryFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeSessionBusy:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError unwraps err looking for a StandardError.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "PLAN"):
		return "ENTITLEMENT"
	case strings.HasPrefix(codeStr, "SESSION") || strings.HasPrefix(codeStr, "STEP"):
		return "INTAKE"
	case strings.Contains(codeStr, "CUSTODY") || strings.Contains(codeStr, "DOCUMENT"):
		return "DOCUMENTS"
	case strings.Contains(codeStr, "PROSPECT") || strings.Contains(codeStr, "TENANT"):
		return "DATABASE"
	case strings.Contains(codeStr, "INVENTORY"):
		return "SEARCH"
	case strings.HasPrefix(codeStr, "EXTERNAL"):
		return "INFRASTRUCTURE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
