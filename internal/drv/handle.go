package drv

import (
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/opencontainers/go-digest"
)

// A shared reference to a possibly not yet evaluated derivation.
//
// Copies of a handle share the same underlying node, so the description is
// evaluated at most once no matter how many consumers force it. The zero
// Handle refers to nothing; see [Handle.IsZero].
type Handle struct {
	n *node
}

// Memoized evaluation state shared by all copies of a handle.
type node struct {
	once   sync.Once
	thunk  func() *Derivation
	drv    *Derivation
	digest digest.Digest
	fault  any
}

// Creates a handle for an already constructed derivation.
//
// The derivation must not be modified afterwards.
func New(d *Derivation) Handle {
	if d == nil {
		Violation("handle for nil derivation")
	}
	return Lazy(func() *Derivation { return d })
}

// Creates a handle whose derivation is produced by f on first use.
//
// f is called at most once, even when the handle is forced concurrently. A
// panic raised by f is replayed to every caller that forces the handle.
func Lazy(f func() *Derivation) Handle {
	return Handle{n: &node{thunk: f}}
}

// Whether the handle refers to nothing.
func (h Handle) IsZero() bool {
	return h.n == nil
}

// Evaluates the handle and returns its derivation.
//
// The returned derivation is shared and must be treated as read-only.
func (h Handle) Force() *Derivation {
	if h.n == nil {
		Violation("forcing an empty handle")
	}
	h.n.once.Do(h.n.eval)
	if h.n.fault != nil {
		panic(h.n.fault)
	}
	return h.n.drv
}

// Runs the thunk and computes the content digest.
func (n *node) eval() {
	defer func() {
		if r := recover(); r != nil {
			n.fault = r
		}
		n.thunk = nil
	}()

	d := n.thunk()
	if d == nil {
		n.fault = fmt.Errorf("%w: lazy derivation evaluated to nil", ErrContractViolation)
		return
	}

	b, err := json.Marshal(d)
	if err != nil {
		n.fault = fmt.Errorf("%w: encoding %s: %w", ErrContractViolation, d.DisplayName(), err)
		return
	}

	n.drv = d
	n.digest = digest.FromBytes(b)
}

// Returns the content digest of the handle's derivation, forcing it.
func (h Handle) Digest() digest.Digest {
	h.Force()
	return h.n.digest
}

// Whether two handles describe the same derivation.
//
// Identity is structural: handles created independently from identical
// descriptions are equal.
func (h Handle) Equal(o Handle) bool {
	if h.n == o.n {
		return true
	}
	if h.n == nil || o.n == nil {
		return false
	}
	return h.Digest() == o.Digest()
}

// Returns the display name of the handle's derivation, forcing it.
func (h Handle) Name() string {
	return h.Force().DisplayName()
}

// Returns a reference to the default output.
func (h Handle) Out() Ref {
	return Ref{Handle: h}
}

// Returns a reference to a named output.
func (h Handle) Output(name string) Ref {
	return Ref{Handle: h, Output: name}
}

// Returns a reference to a path inside the default output.
func (h Handle) Path(sub string) Ref {
	return Ref{Handle: h, Sub: sub}
}

// Returns a reference to a path inside a named output.
func (h Handle) OutputPath(name, sub string) Ref {
	return Ref{Handle: h, Output: name, Sub: sub}
}
