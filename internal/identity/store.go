package identity

import "context"

// Reader is the lookup surface the auth core depends on. The core never
// mutates identities; their lifecycle belongs to the admin layer.
type Reader interface {
	FindByID(ctx context.Context, id string) (*Identity, error)
	FindByUsername(ctx context.Context, username string) (*Identity, error)
}

// Store adds the mutations performed by the admin layer. Implementations
// that also persist audit entries atomically live in the admin package;
// these methods exist for bootstrap and tests.
type Store interface {
	Reader
	List(ctx context.Context) ([]*Identity, error)
	Create(ctx context.Context, id *Identity) error
}
