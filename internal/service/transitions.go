package service

import (
	"fmt"

	"collab-server/shared/models"
)

// allowedTransitions is the single source of truth for status legality.
// Every status write goes through checkTransition; there are no scattered
// status conditionals anywhere else.
var allowedTransitions = map[models.CollaborationStatus][]models.CollaborationStatus{
	models.StatusPending: {
		models.StatusCreatorAccepted,
		models.StatusBrandConfirmed,
		models.StatusRejected,
		models.StatusBrandRejected,
		models.StatusWithdrawn,
	},
	models.StatusCreatorAccepted: {
		models.StatusBrandConfirmed,
		models.StatusRejected,
		models.StatusBrandRejected,
		models.StatusWithdrawn,
	},
	models.StatusBrandConfirmed: {
		models.StatusContentSubmitted,
		models.StatusRejected,
		models.StatusBrandRejected,
		models.StatusWithdrawn,
	},
	models.StatusContentSubmitted: {
		models.StatusContentSubmitted, // revision loops stay in place
		models.StatusContentApproved,
		models.StatusRejected,
		models.StatusBrandRejected,
		models.StatusWithdrawn,
	},
	models.StatusContentApproved: {
		models.StatusFinalLinkSubmitted,
		models.StatusCompleted,
		models.StatusRejected,
		models.StatusBrandRejected,
		models.StatusWithdrawn,
	},
	models.StatusFinalLinkSubmitted: {
		models.StatusCompleted,
	},
	// Terminal statuses have no outgoing transitions.
	models.StatusCompleted:     {},
	models.StatusRejected:      {},
	models.StatusBrandRejected: {},
	models.StatusWithdrawn:     {},
}

// checkTransition validates a status move against the table. Terminal states
// report ErrTerminalCollaboration so callers can distinguish "immutable" from
// "wrong order".
func checkTransition(from, to models.CollaborationStatus) error {
	if from.IsTerminal() {
		return fmt.Errorf("%s -> %s: %w", from, to, models.ErrTerminalCollaboration)
	}
	targets, ok := allowedTransitions[from]
	if !ok {
		return fmt.Errorf("unknown status %q: %w", from, models.ErrInvalidTransition)
	}
	for _, t := range targets {
		if t == to {
			return nil
		}
	}
	return fmt.Errorf("%s -> %s: %w", from, to, models.ErrInvalidTransition)
}
