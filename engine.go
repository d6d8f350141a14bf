package stackfx

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"

	"github.com/chazu/stackfx/cache"
	"github.com/chazu/stackfx/compiler"
	"github.com/chazu/stackfx/compiler/hash"
	"github.com/chazu/stackfx/effect"
	"github.com/chazu/stackfx/namespace"
	"github.com/chazu/stackfx/vm"
)

// Engine checks and runs programs against a namespace that can be swapped
// while in use, optionally caching inferred signatures.
type Engine struct {
	current atomic.Pointer[snapshot]
	writeMu sync.Mutex // serializes namespace replacement

	cache   *cache.Store
	log     commonlog.Logger
}

// snapshot pairs a registry with its fingerprint.
type snapshot struct {
	reg         *namespace.Registry
	fingerprint [32]byte
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache makes the engine consult and fill store.
func WithCache(store *cache.Store) Option {
	return func(e *Engine) { e.cache = store }
}

// WithLogger replaces the engine's logger.
func WithLogger(log commonlog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates an engine over reg.
func NewEngine(reg *namespace.Registry, opts ...Option) *Engine {
	e := &Engine{log: commonlog.GetLogger("stackfx.engine")}
	for _, opt := range opts {
		opt(e)
	}
	e.SetNamespace(reg)
	return e
}

// Namespace returns the registry currently in use.
func (e *Engine) Namespace() *namespace.Registry {
	return e.current.Load().reg
}

// SetNamespace atomically replaces the registry. Calls already in progress
// finish against the old one.
func (e *Engine) SetNamespace(reg *namespace.Registry) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	e.setNamespace(reg)
}

func (e *Engine) setNamespace(reg *namespace.Registry) {
	e.current.Store(&snapshot{reg: reg, fingerprint: reg.Fingerprint()})
	e.log.Infof("namespace set: %d entries", reg.Len())
}

// Define adds a word to a copy of the current registry and swaps it in.
func (e *Engine) Define(name, body, doc string) (*namespace.Entry, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	next := e.Namespace().Clone()
	entry, err := next.Define(name, body, doc)
	if err != nil {
		return nil, err
	}
	e.setNamespace(next)
	return entry, nil
}

// TypeOf returns the stack effect of program.
func (e *Engine) TypeOf(program string) (effect.Signature, error) {
	nodes, err := compiler.Parse(program)
	if err != nil {
		return effect.Signature{}, err
	}
	return e.typeOf(e.current.Load(), nodes)
}

func (e *Engine) typeOf(snap *snapshot, nodes []compiler.Node) (effect.Signature, error) {
	if e.cache == nil {
		return compiler.NewChecker(snap.reg).TypeOf(nodes)
	}

	key := cache.Key{Program: hash.HashProgram(nodes), Namespace: snap.fingerprint}
	sig, err := e.cache.Get(key)
	if err == nil {
		e.log.Debugf("cache hit %s", hash.String(key.Program)[:12])
		return sig, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		e.log.Warningf("cache read failed: %s", err)
	}

	sig, err = compiler.NewChecker(snap.reg).TypeOf(nodes)
	if err != nil {
		return effect.Signature{}, err
	}
	if err := e.cache.Put(key, sig); err != nil {
		e.log.Warningf("cache write failed: %s", err)
	}
	return sig, nil
}

// Run type checks program and, if it needs no inputs, executes it. A
// program with inputs cannot run on an empty stack and fails with an
// arity mismatch before anything executes.
func (e *Engine) Run(program string) ([]vm.Value, error) {
	_, vals, err := e.Eval(program)
	return vals, err
}

// Eval type checks and runs program, returning both results.
func (e *Engine) Eval(program string) (effect.Signature, []vm.Value, error) {
	nodes, err := compiler.Parse(program)
	if err != nil {
		return effect.Signature{}, nil, err
	}
	snap := e.current.Load()
	sig, err := e.typeOf(snap, nodes)
	if err != nil {
		return effect.Signature{}, nil, err
	}
	if len(sig.Input) > 0 {
		return sig, nil, &compiler.Error{
			Kind:   compiler.ErrArityMismatch,
			Pos:    nodes[0].Span().Start,
			Detail: fmt.Sprintf("program needs %d input(s) but the stack is empty: %s", len(sig.Input), sig),
		}
	}

	vals, err := vm.NewInterpreter(snap.reg).Run(nodes)
	if err != nil {
		return sig, nil, err
	}
	e.log.Debugf("ran %d nodes, %d values", len(nodes), len(vals))
	return sig, vals, nil
}
