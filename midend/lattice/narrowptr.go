package lattice

import "fmt"

// NarrowPtr is a 32 bit compressed encoding of a heap or klass pointer.
// It delegates everything to the wrapped pointer type; only the kind
// keeps oop and klass encodings from meeting each other.
type NarrowPtr struct {
	typeBase
	wrapped Type
}

// MakeNarrowOop wraps an oop pointer type in its compressed encoding.
func (c *TypeCtx) MakeNarrowOop(t Type) Type {
	return c.makeNarrowOf(KindNarrowOop, t)
}

// MakeNarrowKlass wraps a klass pointer type in its compressed encoding.
func (c *TypeCtx) MakeNarrowKlass(t Type) Type {
	return c.makeNarrowOf(KindNarrowKlass, t)
}

// makeNarrowOf wraps t unless t already fell out of the pointer lattice,
// in which case it passes through unchanged.
func (c *TypeCtx) makeNarrowOf(kind Kind, t Type) Type {
	if _, ok := t.(ptrLike); !ok {
		return t
	}
	return c.intern(&NarrowPtr{
		typeBase: typeBase{kind: kind},
		wrapped:  t,
	})
}

// Wrapped returns the uncompressed pointer type.
func (n *NarrowPtr) Wrapped() Type { return n.wrapped }

func (n *NarrowPtr) Singleton() bool { return n.wrapped.Singleton() }

func (n *NarrowPtr) Empty() bool { return n.wrapped.Empty() }

func (n *NarrowPtr) Hash() uint64 { return n.wrapped.Hash() + 7 }

func (n *NarrowPtr) equals(t Type) bool {
	o, ok := t.(*NarrowPtr)
	return ok && n.kind == o.kind && n.wrapped == o.wrapped
}

func (n *NarrowPtr) xdual() Type {
	return &NarrowPtr{
		typeBase: typeBase{kind: n.kind},
		wrapped:  n.wrapped.Dual(),
	}
}

func (n *NarrowPtr) removeSpec(c *TypeCtx) Type {
	if sc, ok := n.wrapped.(specCarrier); ok {
		inner := sc.removeSpec(c)
		if inner != n.wrapped {
			return c.makeNarrowOf(n.kind, inner)
		}
	}
	return n
}

func (n *NarrowPtr) xmeet(c *TypeCtx, t Type) Type {
	if Type(n) == t {
		return n
	}
	if t.Kind() == n.kind {
		o := t.(*NarrowPtr)
		return c.makeNarrowOf(n.kind, c.meetRaw(n.wrapped, o.wrapped, true))
	}
	if t.Kind() == KindTop {
		return n
	}
	// a compressed pointer shares no values with anything uncompressed
	return Bottom
}

func (n *NarrowPtr) String() string {
	return fmt.Sprintf("%s:%s", n.kind, n.wrapped)
}
