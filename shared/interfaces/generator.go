package interfaces

import "context"

// TextGenerator is the opaque AI text producer. Used for negotiation
// reasoning strings and script assistance; never consulted for the decision
// itself and never called while a DB transaction is open.
//
//go:generate mockery --name TextGenerator --output ./mocks --outpkg mocks --case=underscore
type TextGenerator interface {
	// Generate returns a short text for the given prompt. Implementations
	// must respect ctx deadlines and surface timeouts as
	// models.ErrUpstreamTimeout.
	Generate(ctx context.Context, prompt string) (string, error)
}
