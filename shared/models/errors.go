package models

import "errors"

// Application-wide standard errors
var (
	// Common resource errors
	ErrNotFound              = errors.New("resource not found")
	ErrCollaborationNotFound = errors.New("collaboration not found")
	ErrBudgetNotFound        = errors.New("campaign budget not found")

	// State machine errors
	ErrInvalidTransition     = errors.New("status transition not allowed from current state")
	ErrTerminalCollaboration = errors.New("collaboration is terminal and immutable")
	ErrConflict              = errors.New("concurrent update conflict, retry the request")
	ErrAlreadyInvited        = errors.New("creator already has an active collaboration for this campaign and platform")

	// Content delivery errors
	ErrMaxRevisionsReached = errors.New("maximum number of revisions reached for this artifact")
	ErrVideoNotApproved    = errors.New("final link requires an approved video draft")

	// Ledger errors
	ErrInsufficientBudget       = errors.New("insufficient available budget for this operation")
	ErrLedgerInvariantViolation = errors.New("budget ledger conservation invariant violated")

	// Negotiation errors
	ErrNegotiationRoundExceeded = errors.New("negotiation allows at most one counter-offer round")
	ErrNoOpenNegotiation        = errors.New("no counter offer awaiting a creator response")

	// Request handling errors
	ErrDuplicateRequest = errors.New("duplicate request for idempotency key")
	ErrUpstreamTimeout  = errors.New("upstream decision call timed out")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")

	// General request/server errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)
