// Package secretns translates an addon's logical secret key into a
// globally unique storage key and delegates to an external secret
// store. No other transformation, no caching, no cross-addon read-through.
package secretns

import "fmt"

// Store is the external secret store contract (set/get/delete by
// opaque key) the Namespace delegates to.
type Store interface {
	Set(key, value string) error
	Get(key string) (value string, ok bool, err error)
	Delete(key string) error
}

// Namespace scopes every operation to a single addon id.
type Namespace struct {
	addonID string
	store   Store
}

// New returns a Namespace that prefixes every key with
// "addon_<addonID>_" before delegating to store.
func New(addonID string, store Store) *Namespace {
	return &Namespace{addonID: addonID, store: store}
}

// Set stores value under the scoped key.
func (n *Namespace) Set(key, value string) error {
	return n.store.Set(n.scope(key), value)
}

// Get retrieves the value under the scoped key. ok is false when the
// key has never been set (or was deleted).
func (n *Namespace) Get(key string) (string, bool, error) {
	return n.store.Get(n.scope(key))
}

// Delete removes the scoped key.
func (n *Namespace) Delete(key string) error {
	return n.store.Delete(n.scope(key))
}

func (n *Namespace) scope(key string) string {
	return fmt.Sprintf("addon_%s_%s", n.addonID, key)
}
