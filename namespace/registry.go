// Package namespace holds the named entries programs refer to: builtin
// words, words defined from source and words loaded from namespace files.
//
// A Registry serves both passes over a program. The checker asks it for
// signatures and the interpreter asks it for actions.
package namespace

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"

	"github.com/google/btree"
	"github.com/tliron/commonlog"

	"github.com/chazu/stackfx/compiler"
	"github.com/chazu/stackfx/effect"
	"github.com/chazu/stackfx/vm"
)

var log = commonlog.GetLogger("stackfx.namespace")

// Entry is one named word.
type Entry struct {
	Name      string
	Doc       string
	Body      string // normalized source text; empty for builtins
	Signature effect.Signature
	Action    vm.Action
}

// Registry is an ordered, concurrency-safe set of entries.
type Registry struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[*Entry]
}

func lessEntry(a, b *Entry) bool {
	return a.Name < b.Name
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{tree: btree.NewG[*Entry](8, lessEntry)}
}

// ValidName reports whether name can be referenced from program text: it
// must read back as exactly one bare word.
func ValidName(name string) bool {
	toks := compiler.Tokenize(name)
	return len(toks) == 2 &&
		toks[0].Type == compiler.TokenWord &&
		toks[0].Literal == name &&
		toks[1].Type == compiler.TokenEOF
}

// Register adds e, replacing any entry with the same name.
func (r *Registry) Register(e *Entry) error {
	if !ValidName(e.Name) {
		return fmt.Errorf("namespace: invalid name %q", e.Name)
	}
	if e.Action == nil {
		return fmt.Errorf("namespace: %s: missing action", e.Name)
	}
	if err := e.Signature.Validate(); err != nil {
		return fmt.Errorf("namespace: %s: %w", e.Name, err)
	}

	stored := *e
	r.mu.Lock()
	_, replaced := r.tree.ReplaceOrInsert(&stored)
	r.mu.Unlock()

	if replaced {
		log.Debugf("redefined %s", e.Name)
	}
	return nil
}

// Remove deletes the entry called name and reports whether it existed.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tree.Delete(&Entry{Name: name})
	return ok
}

// Lookup returns the entry called name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tree.Get(&Entry{Name: name})
	if !ok {
		return nil, false
	}
	out := *e
	return &out, true
}

// Signature implements compiler.Signatures.
func (r *Registry) Signature(name string) (effect.Signature, bool) {
	e, ok := r.Lookup(name)
	if !ok {
		return effect.Signature{}, false
	}
	// a copy, so callers cannot reach the stored table
	return e.Signature.Shift(0), true
}

// Action implements vm.Bindings.
func (r *Registry) Action(name string) (vm.Action, bool) {
	e, ok := r.Lookup(name)
	if !ok {
		return nil, false
	}
	return e.Action, true
}

// Prefix returns the entries whose names start with prefix, in name order.
func (r *Registry) Prefix(prefix string) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Entry
	r.tree.AscendGreaterOrEqual(&Entry{Name: prefix}, func(e *Entry) bool {
		if !strings.HasPrefix(e.Name, prefix) {
			return false
		}
		cp := *e
		out = append(out, &cp)
		return true
	})
	return out
}

// All returns every entry in name order.
func (r *Registry) All() []*Entry {
	return r.Prefix("")
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree.Len()
}

// Clone returns an independent copy of r. Later changes to either
// registry do not affect the other.
func (r *Registry) Clone() *Registry {
	// btree's Clone updates copy-on-write state on the receiver.
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Registry{tree: r.tree.Clone()}
}

// replace swaps in the contents of other.
func (r *Registry) replace(other *Registry) {
	tree := other.Clone().tree
	r.mu.Lock()
	r.tree = tree
	r.mu.Unlock()
}

type fingerprintEntry struct {
	Name      string           `cbor:"1,keyasint"`
	Signature effect.Signature `cbor:"2,keyasint"`
}

// Fingerprint returns a SHA-256 digest of every name and signature in r.
// Registries that would type every program identically share a
// fingerprint.
func (r *Registry) Fingerprint() [32]byte {
	entries := r.All()
	list := make([]fingerprintEntry, len(entries))
	for i, e := range entries {
		list[i] = fingerprintEntry{Name: e.Name, Signature: e.Signature}
	}
	data, err := effect.Marshal(list)
	if err != nil {
		panic(fmt.Sprintf("namespace: fingerprint: %v", err))
	}
	return sha256.Sum256(data)
}
