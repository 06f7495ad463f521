package interfaces

import (
	"context"
	"time"
)

// IdempotencyStore deduplicates non-idempotent requests (script and video
// submissions) under network retries. Begin claims a key; when the key was
// already claimed the stored prior result is returned instead.
//
//go:generate mockery --name IdempotencyStore --output ./mocks --outpkg mocks --case=underscore
type IdempotencyStore interface {
	// Begin atomically claims the key. Returns claimed=false and the prior
	// stored result (may be empty while the first request is still in
	// flight) when the key exists already.
	Begin(ctx context.Context, key string, ttl time.Duration) (claimed bool, prior []byte, err error)

	// Complete stores the serialized result under an already-claimed key so
	// replays can return it.
	Complete(ctx context.Context, key string, result []byte, ttl time.Duration) error

	// Release drops a claimed key after a failed request so the client can
	// retry with the same key.
	Release(ctx context.Context, key string) error
}
