package lattice

import (
	"fmt"
	"strings"
)

// RawPtr is a pointer outside the managed heap: stack slots, runtime
// structures, code. Raw pointers carry no offset of their own; address
// arithmetic folds straight into the constant bits when they are known.
type RawPtr struct {
	ptrBase
	bits uint64
}

// MakeRawPtr builds a raw pointer with only nullability known. Constant
// raw pointers go through RawCon.
func (c *TypeCtx) MakeRawPtr(ptr PTR) *RawPtr {
	return c.intern(&RawPtr{ptrBase: ptrBase{
		typeBase: typeBase{kind: KindRawPtr},
		ptr:      ptr, off: 0, depth: InlineDepthBottom,
	}}).(*RawPtr)
}

// RawCon builds the raw pointer constant with the given address bits.
func (c *TypeCtx) RawCon(bits uint64) *RawPtr {
	return c.intern(&RawPtr{
		ptrBase: ptrBase{
			typeBase: typeBase{kind: KindRawPtr},
			ptr:      Constant, off: 0, depth: InlineDepthBottom,
		},
		bits: bits,
	}).(*RawPtr)
}

// Bits returns the address of a constant raw pointer.
func (r *RawPtr) Bits() uint64 { return r.bits }

func (r *RawPtr) Hash() uint64 {
	return hashMix(hashMix(hashString("rawptr"), r.hashPtr()), r.bits)
}

func (r *RawPtr) equals(t Type) bool {
	o, ok := t.(*RawPtr)
	return ok && r.eqPtr(&o.ptrBase) && r.bits == o.bits
}

func (r *RawPtr) xdual() Type {
	return &RawPtr{
		ptrBase: ptrBase{
			typeBase: typeBase{kind: KindRawPtr},
			ptr:      dualPTR(r.ptr), off: 0, depth: r.depth,
		},
		bits: r.bits,
	}
}

func (r *RawPtr) removeSpec(c *TypeCtx) Type { return r }

func (r *RawPtr) xmeet(c *TypeCtx, t Type) Type {
	if Type(r) == t {
		return r
	}
	switch t.Kind() {
	case KindInt, KindLong,
		KindHalfFloatTop, KindHalfFloatCon, KindHalfFloatBot,
		KindFloatTop, KindFloatCon, KindFloatBot,
		KindDoubleTop, KindDoubleCon, KindDoubleBot,
		KindControl, KindAbio, KindMemory, KindHalf, KindReturnAddress:
		return Bottom
	case KindOopPtr, KindInstPtr, KindAryPtr,
		KindMetadataPtr, KindInstKlassPtr, KindAryKlassPtr:
		// heap and raw pointers only share the bare pointer above them
		return PtrBottom
	case KindAnyPtr:
		o := t.(*Ptr)
		switch o.ptr {
		case TopPTR:
			return r
		case BotPTR:
			return o
		case Null:
			if r.ptr == TopPTR {
				return o
			}
			return RawPtrBottom
		case NotNull:
			return c.makePtrFull(meetPTR(r.ptr, NotNull), o.off, o.spec, o.depth)
		case AnyNull:
			if r.ptr == Constant {
				return r
			}
			return c.MakeRawPtr(meetPTR(r.ptr, o.ptr))
		}
		typerr(r, t)
	case KindRawPtr:
		o := t.(*RawPtr)
		pm := meetPTR(r.ptr, o.ptr)
		if pm == Constant {
			// two different constants cannot stay constant
			if r.ptr != Constant {
				return o
			}
			if o.ptr != Constant {
				return r
			}
			if r.bits == o.bits {
				return r
			}
			return c.MakeRawPtr(NotNull)
		}
		return c.MakeRawPtr(pm)
	case KindBottom:
		return Bottom
	case KindTop:
		return r
	}
	typerr(r, t)
	return nil
}

// AddOffset folds delta into a constant address, and is the identity on
// anything less precise.
func (r *RawPtr) AddOffset(c *TypeCtx, delta int64) *RawPtr {
	if r.ptr == Constant {
		return c.RawCon(r.bits + uint64(delta))
	}
	return r
}

func (r *RawPtr) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rawptr:%s", r.ptr)
	if r.ptr == Constant {
		fmt.Fprintf(&b, ":%#x", r.bits)
	}
	return b.String()
}
