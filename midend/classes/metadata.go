package classes

import "fmt"

// Metadata is a handle to non-class compiler metadata (methods, profiles)
// that metadata pointers in the lattice can be constant over.
type Metadata interface {
	MetaName() string
	MetaHash() uint64
}

// Method is the only metadata kind the midend needs so far.
type Method struct {
	Holder *Class
	Name   string
}

func (m *Method) MetaName() string { return m.Holder.Name() + "." + m.Name }

func (m *Method) MetaHash() uint64 {
	return hashName(m.MetaName())
}

// Ref is a handle to a constant heap object. Identity is equality, like
// any other constant the compiler embeds.
type Ref struct {
	Class *Class
	Label string
}

func (r *Ref) Hash() uint64 { return hashName(r.Label) ^ r.Class.Hash() }

func (r *Ref) String() string { return fmt.Sprintf("%s@%s", r.Class.Name(), r.Label) }
