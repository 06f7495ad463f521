package models

// Error codes returned in ErrorResponse.Code. Stable strings the UI can
// switch on.
const (
	ErrCodeInvalidTransition    = "invalid_transition"
	ErrCodeMaxRevisions         = "max_revisions_reached"
	ErrCodeLedgerInvariant      = "ledger_invariant_violation"
	ErrCodeInsufficientBudget   = "insufficient_budget"
	ErrCodeNegotiationExceeded  = "negotiation_round_exceeded"
	ErrCodeUpstreamTimeout      = "upstream_timeout"
	ErrCodeDuplicateRequest     = "duplicate_request"
	ErrCodeTerminal             = "collaboration_terminal"
	ErrCodeConflict             = "conflict"
	ErrCodeNotFound             = "not_found"
	ErrCodeValidation           = "validation_error"
	ErrCodeBadRequest           = "bad_request"
	ErrCodeUnauthorized         = "unauthorized"
	ErrCodeTokenInvalid         = "token_invalid"
	ErrCodeTokenExpired         = "token_expired"
	ErrCodeForbidden            = "forbidden"
	ErrCodeInternal             = "internal_error"
)

// ErrorResponse is the standard JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
