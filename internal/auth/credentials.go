package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"gatehouse.org/internal/identity"
)

// CredentialStore verifies presented secrets against stored hashes. It only
// reads identities; their lifecycle is owned elsewhere. Raw secrets are
// never logged or stored.
type CredentialStore struct {
	store identity.Reader
	cost  int

	// dummyHash is compared when the username is unknown so both failure
	// paths take comparable time.
	dummyHash string
}

// CredentialOption configures a CredentialStore.
type CredentialOption func(*CredentialStore)

// WithBcryptCost overrides the hash cost factor. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) CredentialOption {
	return func(c *CredentialStore) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			c.cost = cost
		}
	}
}

func NewCredentialStore(store identity.Reader, opts ...CredentialOption) (*CredentialStore, error) {
	if store == nil {
		return nil, errors.New("identity reader is required")
	}
	c := &CredentialStore{store: store, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(c)
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	dummy, err := HashPassword(base64.RawStdEncoding.EncodeToString(buf), c.cost)
	if err != nil {
		return nil, err
	}
	c.dummyHash = dummy
	return c, nil
}

// Hash produces a fresh salted hash for account creation or rotation.
func (c *CredentialStore) Hash(secret string) (string, error) {
	return HashPassword(secret, c.cost)
}

// Verify checks a candidate secret for the named account. Unknown usernames
// and wrong secrets return the identical ErrInvalidCredentials.
func (c *CredentialStore) Verify(ctx context.Context, username, secret string) (*identity.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || secret == "" {
		return nil, ErrInvalidCredentials
	}

	id, err := c.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			// Burn a comparison so unknown usernames are not
			// distinguishable by response time.
			_ = CheckPassword(c.dummyHash, secret)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := CheckPassword(id.PasswordHash, secret); err != nil {
		return nil, ErrInvalidCredentials
	}
	return id, nil
}
