package serviceerr

import "net/http"

// Code is a machine readable error code returned in the "error" field of an error response.
type Code string

const (
	// RFC6749 Authorization errors
	CodeInvalidRequest          Code = "invalid_request"
	CodeUnauthorizedClient      Code = "unauthorized_client"
	CodeAccessDenied            Code = "access_denied"
	CodeUnsupportedResponseType Code = "unsupported_response_type"
	CodeInvalidScope            Code = "invalid_scope"
	CodeServerError             Code = "server_error"
	CodeTemporarilyUnavailable  Code = "temporarily_unavailable"

	// RFC6749 Token errors
	CodeInvalidClient        Code = "invalid_client"
	CodeInvalidGrant         Code = "invalid_grant"
	CodeUnsupportedGrantType Code = "unsupported_grant_type"

	// Custom codes
	CodeUnknown             Code = "unknown"
	CodeConflict            Code = "conflict"
	CodeNotFound            Code = "not_found"
	CodeFingerprintMismatch Code = "fingerprint_mismatch"
	CodeStateExpired        Code = "state_expired"
	CodeStateMismatch       Code = "state_mismatch"
	CodeInvalidCSRFToken    Code = "invalid_csrf_token"
	CodeCodeAlreadyUsed     Code = "code_already_used"
	CodeNotAuthenticated    Code = "not_authenticated"
	CodeMissingChatID       Code = "missing_chat_id"
	CodeUpstreamFailure     Code = "upstream_failure"
)

// Error is a service error that can be rendered in an HTTP error response.
type Error struct {
	Err         Code
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}

	return string(e.Err) + ": " + e.Description
}

// HTTPStatus maps the error code to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Err {
	case CodeInvalidRequest, CodeUnsupportedResponseType, CodeInvalidScope,
		CodeInvalidClient, CodeInvalidGrant, CodeUnsupportedGrantType,
		CodeStateMismatch, CodeMissingChatID:
		return http.StatusBadRequest
	case CodeUnauthorizedClient, CodeNotAuthenticated:
		return http.StatusUnauthorized
	case CodeAccessDenied, CodeFingerprintMismatch, CodeInvalidCSRFToken:
		return http.StatusForbidden
	case CodeTemporarilyUnavailable:
		return http.StatusServiceUnavailable
	case CodeConflict, CodeCodeAlreadyUsed:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeStateExpired:
		return http.StatusGone
	case CodeUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// New creates an error with the given code and description.
func New(code Code, description string) *Error {
	return &Error{Err: code, Description: description}
}

var (
	// RFC6749 Authorization errors
	ErrInvalidRequest          = &Error{Err: CodeInvalidRequest}
	ErrUnauthorizedClient      = &Error{Err: CodeUnauthorizedClient}
	ErrAccessDenied            = &Error{Err: CodeAccessDenied}
	ErrUnsupportedResponseType = &Error{Err: CodeUnsupportedResponseType}
	ErrInvalidScope            = &Error{Err: CodeInvalidScope}
	ErrServerError             = &Error{Err: CodeServerError}
	ErrTemporarilyUnavailable  = &Error{Err: CodeTemporarilyUnavailable}

	// RFC6749 Token errors
	ErrInvalidClient        = &Error{Err: CodeInvalidClient}
	ErrInvalidGrant         = &Error{Err: CodeInvalidGrant}
	ErrUnsupportedGrantType = &Error{Err: CodeUnsupportedGrantType}

	// Custom errors
	ErrUnknown             = &Error{Err: CodeUnknown, Description: "unknown error"}
	ErrConflict            = &Error{Err: CodeConflict, Description: "already exists"}
	ErrNotFound            = &Error{Err: CodeNotFound, Description: "not found"}
	ErrFingerprintMismatch = &Error{Err: CodeFingerprintMismatch, Description: "fingerprint mismatch"}
	ErrStateExpired        = &Error{Err: CodeStateExpired, Description: "login request expired"}
	ErrStateMismatch       = &Error{Err: CodeStateMismatch, Description: "state does not match the pending login"}
	ErrInvalidCSRFToken    = &Error{Err: CodeInvalidCSRFToken, Description: "invalid csrf token"}
	ErrCodeAlreadyUsed     = &Error{Err: CodeCodeAlreadyUsed, Description: "authorization code already exchanged"}
	ErrNotAuthenticated    = &Error{Err: CodeNotAuthenticated, Description: "no spotify account connected"}
	ErrUnauthorized        = &Error{Err: CodeUnauthorizedClient, Description: "unauthorized"}
	ErrMissingChatID       = &Error{Err: CodeMissingChatID, Description: "a telegram chat id is required"}
)
