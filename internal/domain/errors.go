// Package domain provides the canonical types and error taxonomy shared by the
// gateway's components.
package domain

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of a gateway error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a malformed or incomplete request.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeAuth indicates a missing or unverifiable caller identity.
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypePermission indicates a verified identity lacking admin rights.
	ErrorTypePermission ErrorType = "permission"

	// ErrorTypeTenant indicates an unknown or disabled tenant.
	ErrorTypeTenant ErrorType = "tenant"

	// ErrorTypeKey indicates the requested capability has no resolvable credential.
	ErrorTypeKey ErrorType = "credential"

	// ErrorTypeIntegrity indicates a stored blob failed authenticated decryption.
	ErrorTypeIntegrity ErrorType = "integrity"

	// ErrorTypeUpstream indicates a failed call to the upstream provider.
	ErrorTypeUpstream ErrorType = "upstream"

	// ErrorTypeNormalization indicates an upstream payload with no extractable
	// reply or image.
	ErrorTypeNormalization ErrorType = "normalization"

	// ErrorTypeServer indicates an internal server error.
	ErrorTypeServer ErrorType = "server"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeUpstreamTimeout   ErrorCode = "upstream_timeout"
	ErrorCodeUpstreamBadStatus ErrorCode = "upstream_bad_status"
	ErrorCodeUpstreamTransport ErrorCode = "upstream_transport"
	ErrorCodeTenantDisabled    ErrorCode = "tenant_disabled"
	ErrorCodeTenantUnknown     ErrorCode = "tenant_unknown"
	ErrorCodeKeyMissing        ErrorCode = "credential_missing"
)

// APIError is the canonical error carried between components. Client-facing
// rendering is decided by the server layer from Type; Detail is retained only
// for server-side diagnostics and must never reach a caller.
type APIError struct {
	// Type is the category of error.
	Type ErrorType `json:"type"`

	// Code is an optional specific error code.
	Code ErrorCode `json:"code,omitempty"`

	// Message is the human-readable error message. For client-facing types it
	// must be precise but non-sensitive.
	Message string `json:"message"`

	// StatusCode is the suggested HTTP status code.
	StatusCode int `json:"-"`

	// Detail holds server-side diagnostics such as a raw upstream payload.
	// It is logged, never serialized to the caller.
	Detail string `json:"-"`

	// Cause is the wrapped underlying error, if any.
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeInvalidRequest, ErrorTypeKey:
		return http.StatusBadRequest
	case ErrorTypeAuth:
		return http.StatusUnauthorized
	case ErrorTypePermission, ErrorTypeTenant:
		return http.StatusForbidden
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	case ErrorTypeIntegrity, ErrorTypeNormalization, ErrorTypeServer:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ClientFacing reports whether Message may be surfaced to the caller verbatim.
// Server-side faults are rendered generically by the HTTP layer instead.
func (e *APIError) ClientFacing() bool {
	switch e.Type {
	case ErrorTypeInvalidRequest, ErrorTypeAuth, ErrorTypePermission,
		ErrorTypeTenant, ErrorTypeKey:
		return true
	default:
		return false
	}
}

// NewAPIError creates a new canonical error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
	}
}

// WithCode adds an error code to the error.
func (e *APIError) WithCode(code ErrorCode) *APIError {
	e.Code = code
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// WithDetail attaches server-side diagnostic detail.
func (e *APIError) WithDetail(detail string) *APIError {
	e.Detail = detail
	return e
}

// WithCause wraps an underlying error.
func (e *APIError) WithCause(cause error) *APIError {
	e.Cause = cause
	return e
}

// Convenience constructors for the error taxonomy.

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest, message)
}

// ErrAuth creates an authentication error.
func ErrAuth(message string) *APIError {
	return NewAPIError(ErrorTypeAuth, message)
}

// ErrPermission creates a permission error.
func ErrPermission(message string) *APIError {
	return NewAPIError(ErrorTypePermission, message)
}

// ErrTenantUnknown creates a tenant error for a tenant with no stored record.
func ErrTenantUnknown(tenantID string) *APIError {
	return NewAPIError(ErrorTypeTenant, fmt.Sprintf("no credentials on file for school %q", tenantID)).
		WithCode(ErrorCodeTenantUnknown)
}

// ErrTenantDisabled creates a tenant error for a disabled tenant.
func ErrTenantDisabled(tenantID string) *APIError {
	return NewAPIError(ErrorTypeTenant, fmt.Sprintf("school %q is disabled", tenantID)).
		WithCode(ErrorCodeTenantDisabled)
}

// ErrKeyMissing creates a credential resolution error for a capability.
func ErrKeyMissing(capability string) *APIError {
	return NewAPIError(ErrorTypeKey, fmt.Sprintf("no credential provisioned for %q", capability)).
		WithCode(ErrorCodeKeyMissing)
}

// ErrIntegrity creates an integrity error for a blob that failed authenticated
// decryption. The cause is retained for server-side logging only.
func ErrIntegrity(cause error) *APIError {
	return NewAPIError(ErrorTypeIntegrity, "stored credentials failed integrity check").
		WithCause(cause)
}

// ErrUpstreamTimeout creates an upstream timeout error.
func ErrUpstreamTimeout(model string) *APIError {
	return NewAPIError(ErrorTypeUpstream, fmt.Sprintf("upstream call to %s timed out", model)).
		WithCode(ErrorCodeUpstreamTimeout)
}

// ErrUpstreamStatus creates an upstream error for a non-success status. The raw
// body is kept as diagnostic detail.
func ErrUpstreamStatus(statusCode int, rawBody string) *APIError {
	return NewAPIError(ErrorTypeUpstream, fmt.Sprintf("upstream returned status %d", statusCode)).
		WithCode(ErrorCodeUpstreamBadStatus).
		WithDetail(rawBody)
}

// ErrUpstreamTransport creates an upstream transport error.
func ErrUpstreamTransport(cause error) *APIError {
	return NewAPIError(ErrorTypeUpstream, "upstream call failed").
		WithCode(ErrorCodeUpstreamTransport).
		WithCause(cause)
}

// ErrNormalization creates a normalization error preserving the raw payload for
// operator diagnostics.
func ErrNormalization(rawPayload string) *APIError {
	return NewAPIError(ErrorTypeNormalization, "upstream response had no extractable result").
		WithDetail(rawPayload)
}

// ErrServer creates a generic internal error.
func ErrServer(message string) *APIError {
	return NewAPIError(ErrorTypeServer, message)
}
