package sensor

import "context"

// Store is the contract every persistence backend satisfies.
//
// Put merges a single reading into the stored document at [date][clock];
// everything else in the document is left unchanged.
type Store interface {
	Load(ctx context.Context) (Document, error)
	Put(ctx context.Context, date, clock string, r Reading) error
}
