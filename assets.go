package ledgerline

import (
	"fmt"
	"strings"
	"sync"
)

// AssetID is the stable identity of an asset within a session. Two symbol
// strings that normalize to the same form always resolve to the same AssetID.
type AssetID string

// AssetResolver resolves a raw symbol string into an asset identity.
//
// Implementations must be idempotent and normalize case and whitespace:
// "spy", " SPY " and "SPY" are the same asset. Callers inject the resolver
// explicitly; there is no ambient global registry.
type AssetResolver interface {
	Resolve(symbol string) (AssetID, error)
}

// AssetRegistry is an in-memory AssetResolver, safe for concurrent use by
// independent sessions.
type AssetRegistry struct {
	mu  sync.Mutex
	ids map[string]AssetID
}

// NewAssetRegistry creates an empty registry.
func NewAssetRegistry() *AssetRegistry {
	return &AssetRegistry{ids: make(map[string]AssetID)}
}

// Resolve implements AssetResolver.
func (r *AssetRegistry) Resolve(symbol string) (AssetID, error) {
	norm := strings.ToUpper(strings.Join(strings.Fields(symbol), " "))
	if norm == "" {
		return "", fmt.Errorf("cannot resolve empty symbol")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[norm]; ok {
		return id, nil
	}
	id := AssetID(norm)
	r.ids[norm] = id
	return id, nil
}

var _ AssetResolver = (*AssetRegistry)(nil)
