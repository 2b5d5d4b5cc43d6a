package propagate

import (
	"sync"

	"github.com/wippyai/script-aot/types"
)

// AttachedUses records which attached types each scope has loaded members
// from. One instance is shared by the functions of a document; it is safe
// for concurrent use.
type AttachedUses struct {
	mu   sync.Mutex
	used map[*types.Type]map[*types.Type]bool
}

// NewAttachedUses creates an empty registry.
func NewAttachedUses() *AttachedUses {
	return &AttachedUses{used: make(map[*types.Type]map[*types.Type]bool)}
}

// Record notes that scope used attached.
func (a *AttachedUses) Record(scope, attached *types.Type) {
	a.mu.Lock()
	defer a.mu.Unlock()
	set, ok := a.used[scope]
	if !ok {
		set = make(map[*types.Type]bool)
		a.used[scope] = set
	}
	set[attached.Original()] = true
}

// Used reports whether scope used attached.
func (a *AttachedUses) Used(scope, attached *types.Type) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used[scope][attached.Original()]
}
