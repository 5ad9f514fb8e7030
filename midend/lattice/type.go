// Package lattice implements the value lattice the midend runs its dataflow
// analyses over: hash-consed canonical types with meet, join and dual,
// integer ranges that carry unsigned bounds and known bits, and a pointer
// family tracking nullability, class exactness, allocation identity and
// speculative profile types.
//
// Types are canonical within a TypeCtx: constructing the same type twice
// yields the same pointer, so == is structural equality. The dual of every
// canonical type is computed and linked when the type is first interned.
package lattice

import (
	"hash/fnv"

	"github.com/opal-lang/opal/internal/log"
	"github.com/pkg/errors"
)

var logger = log.DefaultLogger.With("section", "lattice")

// Kind discriminates the type variants. The order matters for meet
// dispatch: xmeet on the lower-ranked operand defers to the higher one so
// every pair is handled exactly once.
type Kind uint8

const (
	KindBad Kind = iota
	KindControl
	KindTop
	KindInt
	KindLong
	KindHalfFloatTop
	KindHalfFloatCon
	KindHalfFloatBot
	KindFloatTop
	KindFloatCon
	KindFloatBot
	KindDoubleTop
	KindDoubleCon
	KindDoubleBot
	KindAbio
	KindReturnAddress
	KindMemory
	KindHalf
	KindNarrowOop
	KindNarrowKlass
	KindTuple
	KindAry
	KindVect
	KindAnyPtr
	KindRawPtr
	KindOopPtr
	KindInstPtr
	KindAryPtr
	KindMetadataPtr
	KindInstKlassPtr
	KindAryKlassPtr
	KindFunc
	KindInterfaces
	KindBottom
)

var kindNames = map[Kind]string{
	KindBad:           "bad",
	KindControl:       "control",
	KindTop:           "top",
	KindInt:           "int",
	KindLong:          "long",
	KindHalfFloatTop:  "hftop",
	KindHalfFloatCon:  "hfcon",
	KindHalfFloatBot:  "hfbot",
	KindFloatTop:      "ftop",
	KindFloatCon:      "fcon",
	KindFloatBot:      "fbot",
	KindDoubleTop:     "dtop",
	KindDoubleCon:     "dcon",
	KindDoubleBot:     "dbot",
	KindAbio:          "abio",
	KindReturnAddress: "retaddr",
	KindMemory:        "memory",
	KindHalf:          "half",
	KindNarrowOop:     "narrowoop",
	KindNarrowKlass:   "narrowklass",
	KindTuple:         "tuple",
	KindAry:           "ary",
	KindVect:          "vect",
	KindAnyPtr:        "anyptr",
	KindRawPtr:        "rawptr",
	KindOopPtr:        "oopptr",
	KindInstPtr:       "instptr",
	KindAryPtr:        "aryptr",
	KindMetadataPtr:   "metadataptr",
	KindInstKlassPtr:  "instklassptr",
	KindAryKlassPtr:   "aryklassptr",
	KindFunc:          "func",
	KindInterfaces:    "interfaces",
	KindBottom:        "bottom",
}

func (k Kind) String() string { return kindNames[k] }

// Type is one point of the lattice. All implementations are immutable and
// canonical: two structurally equal types built through the same TypeCtx
// are the same pointer.
type Type interface {
	Kind() Kind
	Hash() uint64
	String() string

	// Dual returns the lattice dual, linked when the type was interned.
	Dual() Type
	// Singleton reports whether the type denotes exactly one runtime value.
	Singleton() bool
	// Empty reports whether the type denotes no value at all.
	Empty() bool

	// equals is structural equality against a possibly not yet interned type.
	equals(t Type) bool
	// xmeet computes the meet against t. Callers go through TypeCtx.Meet,
	// which adds speculative handling and the symmetry verifier.
	xmeet(c *TypeCtx, t Type) Type
	// xdual builds a fresh, not yet interned dual.
	xdual() Type

	base() *typeBase
}

type typeBase struct {
	kind Kind
	dual Type
}

func (b *typeBase) Kind() Kind { return b.kind }

func (b *typeBase) Dual() Type {
	if b.dual == nil {
		panic(errors.Errorf("%v type was never interned, no dual is linked", b.kind))
	}
	return b.dual
}

func (b *typeBase) base() *typeBase { return b }

// typerr reports a meet of types whose lattices never cross. It always
// indicates a bug in the caller, never bad user input.
func typerr(a, b Type) {
	panic(errors.Errorf("illegal meet of %s and %s", a, b))
}

func hashString(s string) uint64 {
	f := fnv.New64a()
	_, _ = f.Write([]byte(s))
	return f.Sum64()
}

// hashMix folds x into h, FNV style.
func hashMix(h, x uint64) uint64 {
	return (h ^ x) * 1099511628211
}

// simpleType covers the payload-free kinds: top and bottom, control,
// memory, abio, return addresses, the second half of a double word, and
// the top and bottom of the three float families.
type simpleType struct {
	typeBase
	name string
}

var dualSimpleKind = map[Kind]Kind{
	KindControl:       KindControl,
	KindTop:           KindBottom,
	KindBottom:        KindTop,
	KindAbio:          KindAbio,
	KindMemory:        KindMemory,
	KindReturnAddress: KindReturnAddress,
	KindHalf:          KindHalf,
	KindFloatTop:      KindFloatBot,
	KindFloatBot:      KindFloatTop,
	KindDoubleTop:     KindDoubleBot,
	KindDoubleBot:     KindDoubleTop,
	KindHalfFloatTop:  KindHalfFloatBot,
	KindHalfFloatBot:  KindHalfFloatTop,
}

var simpleNames = map[Kind]string{
	KindControl:       "control",
	KindTop:           "top",
	KindBottom:        "bottom",
	KindAbio:          "abio",
	KindMemory:        "memory",
	KindReturnAddress: "retaddr",
	KindHalf:          "half",
	KindFloatTop:      "ftop",
	KindFloatBot:      "float",
	KindDoubleTop:     "dtop",
	KindDoubleBot:     "double",
	KindHalfFloatTop:  "hftop",
	KindHalfFloatBot:  "hfloat",
}

func newSimple(k Kind) *simpleType {
	return &simpleType{typeBase: typeBase{kind: k}, name: simpleNames[k]}
}

func (s *simpleType) String() string { return s.name }

func (s *simpleType) Hash() uint64 { return hashString(s.name) }

func (s *simpleType) equals(t Type) bool { return t.Kind() == s.kind }

func (s *simpleType) Singleton() bool { return s.kind == KindTop || s.kind == KindHalf }

func (s *simpleType) Empty() bool {
	switch s.kind {
	case KindTop, KindFloatTop, KindDoubleTop, KindHalfFloatTop:
		return true
	}
	return false
}

func (s *simpleType) xdual() Type { return newSimple(dualSimpleKind[s.kind]) }

func (s *simpleType) xmeet(c *TypeCtx, t Type) Type {
	if Type(s) == t {
		return s
	}
	if s.kind == KindTop {
		return t
	}
	if s.kind == KindBottom {
		return Bottom
	}
	switch s.kind {
	case KindControl, KindAbio, KindMemory, KindHalf, KindReturnAddress:
		if t.Kind() == s.kind {
			return s
		}
		switch t.Kind() {
		case KindTop:
			return s
		case KindInt, KindLong,
			KindHalfFloatTop, KindHalfFloatCon, KindHalfFloatBot,
			KindFloatTop, KindFloatCon, KindFloatBot,
			KindDoubleTop, KindDoubleCon, KindDoubleBot,
			KindAnyPtr, KindRawPtr, KindOopPtr, KindInstPtr, KindAryPtr,
			KindMetadataPtr, KindInstKlassPtr, KindAryKlassPtr,
			KindNarrowOop, KindNarrowKlass, KindBottom:
			// a word mixed with a value only comes up in dead code
			return Bottom
		}
		// the word kinds must match exactly, anything else is a compiler bug
		typerr(s, t)
	}
	switch t.Kind() {
	case KindHalfFloatCon, KindFloatCon, KindDoubleCon, KindInt, KindLong,
		KindAnyPtr, KindRawPtr, KindOopPtr, KindInstPtr, KindAryPtr,
		KindMetadataPtr, KindInstKlassPtr, KindAryKlassPtr,
		KindNarrowOop, KindNarrowKlass,
		KindTuple, KindAry, KindVect, KindFunc, KindInterfaces,
		KindBottom:
		// these kinds carry payload and know how to meet a simple type
		return t.xmeet(c, s)

	case KindHalfFloatTop, KindHalfFloatBot:
		switch s.kind {
		case KindHalfFloatTop, KindHalfFloatBot:
			return HalfFloatBot
		case KindFloatTop, KindFloatBot, KindDoubleTop, KindDoubleBot:
			return Bottom
		}
		typerr(s, t)

	case KindFloatTop, KindFloatBot:
		switch s.kind {
		case KindFloatTop, KindFloatBot:
			return FloatBot
		case KindHalfFloatTop, KindHalfFloatBot, KindDoubleTop, KindDoubleBot:
			return Bottom
		}
		typerr(s, t)

	case KindDoubleTop, KindDoubleBot:
		switch s.kind {
		case KindDoubleTop, KindDoubleBot:
			return DoubleBot
		case KindHalfFloatTop, KindHalfFloatBot, KindFloatTop, KindFloatBot:
			return Bottom
		}
		typerr(s, t)

	// only the float families reach here; a word against one of them is
	// dead code like above
	case KindControl, KindAbio, KindMemory, KindHalf, KindReturnAddress:
		return Bottom

	case KindTop:
		return s
	}
	typerr(s, t)
	return nil
}
