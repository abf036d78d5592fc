package custody

import (
	"context"
	"fmt"
	"sync"

	"escrow-auction/internal/domain"
)

// Registry is an in-process asset custody adapter: a map of asset to owning
// account. Transfer is all-or-nothing and fails when the sender does not
// own the asset.
type Registry struct {
	mu     sync.Mutex
	owners map[domain.Asset]string
}

func NewRegistry() *Registry {
	return &Registry{owners: make(map[domain.Asset]string)}
}

// Mint records an asset as owned by an account. Assets must exist in the
// registry before they can be deposited.
func (r *Registry) Mint(asset domain.Asset, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[asset] = owner
}

func (r *Registry) Owner(asset domain.Asset) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[asset]
	return owner, ok
}

func (r *Registry) Transfer(ctx context.Context, asset domain.Asset, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[asset]
	if !ok {
		return fmt.Errorf("asset %s not in registry", asset)
	}
	if owner != from {
		return fmt.Errorf("asset %s not owned by %s", asset, from)
	}

	r.owners[asset] = to
	return nil
}
