package lattice

import (
	"fmt"
	"strings"

	"github.com/opal-lang/opal/midend/classes"
)

// InstKlassPtr is a pointer to the class word of an instance. Exactness
// is not a separate flag here: a Constant klass pointer is exact, any
// other nullability state is not.
type InstKlassPtr struct {
	ptrBase
	klass *classes.Class
	itfs  *Interfaces
}

func (c *TypeCtx) makeInstKlassPtr(ptr PTR, klass *classes.Class, itfs *Interfaces, off Offset) *InstKlassPtr {
	return c.intern(&InstKlassPtr{
		ptrBase: ptrBase{
			typeBase: typeBase{kind: KindInstKlassPtr},
			ptr:      ptr, off: off, depth: InlineDepthBottom,
		},
		klass: klass, itfs: itfs,
	}).(*InstKlassPtr)
}

// MakeInstKlassPtr builds the type of k's class word. Interface bounds
// move into the interface set, like instance pointers.
func (c *TypeCtx) MakeInstKlassPtr(ptr PTR, k *classes.Class) *InstKlassPtr {
	itfs := c.interfacesOf(k)
	if k.IsInterface() {
		k = c.hier.Object
	}
	return c.makeInstKlassPtr(ptr, k, itfs, 0)
}

func (k *InstKlassPtr) Klass() *classes.Class { return k.klass }

func (k *InstKlassPtr) Itfs() *Interfaces { return k.itfs }

func (k *InstKlassPtr) Exact() bool { return k.ptr == Constant }

func (k *InstKlassPtr) Singleton() bool {
	return k.off == 0 && !belowCenterline(k.ptr)
}

func (k *InstKlassPtr) Hash() uint64 {
	h := hashMix(hashString("instklassptr"), k.hashPtr())
	return hashMix(hashMix(h, k.klass.Hash()), k.itfs.Hash())
}

func (k *InstKlassPtr) equals(t Type) bool {
	o, ok := t.(*InstKlassPtr)
	return ok && k.eqPtr(&o.ptrBase) && k.klass == o.klass && k.itfs == o.itfs
}

func (k *InstKlassPtr) xdual() Type {
	return &InstKlassPtr{
		ptrBase: ptrBase{
			typeBase: typeBase{kind: KindInstKlassPtr},
			ptr:      dualPTR(k.ptr), off: dualOffset(k.off), depth: k.depth,
		},
		klass: k.klass, itfs: k.itfs,
	}
}

func (k *InstKlassPtr) removeSpec(c *TypeCtx) Type { return k }

func (k *InstKlassPtr) xmeet(c *TypeCtx, t Type) Type {
	if Type(k) == t {
		return k
	}
	switch t.Kind() {
	case KindInt, KindLong,
		KindHalfFloatTop, KindHalfFloatCon, KindHalfFloatBot,
		KindFloatTop, KindFloatCon, KindFloatBot,
		KindDoubleTop, KindDoubleCon, KindDoubleBot,
		KindNarrowOop, KindNarrowKlass,
		KindControl, KindAbio, KindMemory, KindHalf, KindReturnAddress:
		return Bottom

	case KindRawPtr, KindMetadataPtr, KindOopPtr, KindInstPtr, KindAryPtr:
		return PtrBottom

	case KindAnyPtr:
		tp := t.(*Ptr)
		off := meetOffset(k.off, tp.off)
		pm := meetPTR(k.ptr, tp.ptr)
		switch tp.ptr {
		case TopPTR:
			return k
		case Null:
			if pm == Null {
				return c.makePtrFull(pm, off, tp.spec, tp.depth)
			}
			fallthrough
		case AnyNull:
			return c.makeInstKlassPtr(pm, k.klass, k.itfs, off)
		case BotPTR, NotNull:
			return c.makePtrFull(pm, off, tp.spec, tp.depth)
		}
		typerr(k, t)

	case KindInstKlassPtr:
		tkls := t.(*InstKlassPtr)
		off := meetOffset(k.off, tkls.off)
		pm := meetPTR(k.ptr, tkls.ptr)
		itfs := meetInterfaces(c, k.ptr, tkls.ptr, k.itfs, tkls.itfs)

		r := meetInstParts(c, pm, itfs,
			meetSide{ptr: k.ptr, klass: k.klass, itfs: k.itfs, xk: k.Exact()},
			meetSide{ptr: tkls.ptr, klass: tkls.klass, itfs: tkls.itfs, xk: tkls.Exact()})
		if r.kind == meetUnloaded {
			// an unloaded class word answers no subtype question; fall to
			// the root class at the met nullability
			if pm != BotPTR {
				pm = NotNull
			}
			return c.makeInstKlassPtr(pm, c.hier.Object, r.itfs, off)
		}
		pm = r.ptr
		if r.xk {
			pm = Constant
		}
		return c.makeInstKlassPtr(pm, r.klass, r.itfs, off)

	case KindAryKlassPtr:
		tp := t.(*AryKlassPtr)
		off := meetOffset(k.off, tp.off)
		pm := meetPTR(k.ptr, tp.ptr)
		switch pm {
		case TopPTR, AnyNull:
			// an array class can only subclass the root class
			if k.klass == c.hier.Object && tp.itfs.containsAll(k.itfs) && !k.Exact() {
				return c.makeAryKlassPtr(pm, tp.elem, tp.klass, off)
			}
			itfs := k.itfs.intersection(c, tp.itfs)
			return c.makeInstKlassPtr(NotNull, c.hier.Object, itfs, off)
		case Constant, NotNull, BotPTR:
			if aboveCenterline(k.ptr) &&
				k.klass == c.hier.Object && tp.itfs.containsAll(k.itfs) && !k.Exact() {
				return c.makeAryKlassPtr(pm, tp.elem, tp.klass, off)
			}
			if pm == Constant {
				pm = NotNull
			}
			itfs := k.itfs.intersection(c, tp.itfs)
			return c.makeInstKlassPtr(pm, c.hier.Object, itfs, off)
		}
		typerr(k, t)

	case KindBottom:
		return Bottom
	case KindTop:
		return k
	}
	typerr(k, t)
	return nil
}

// AsInstanceType is the instance pointer type whose class word this is.
func (k *InstKlassPtr) AsInstanceType(c *TypeCtx) *InstPtr {
	return c.makeInstPtr(BotPTR, k.klass, k.itfs, k.Exact(), nil, 0, InstanceBot, nil, InlineDepthBottom)
}

// CastToPtrType replaces the nullability state.
func (k *InstKlassPtr) CastToPtrType(c *TypeCtx, ptr PTR) *InstKlassPtr {
	if ptr == k.ptr {
		return k
	}
	return c.makeInstKlassPtr(ptr, k.klass, k.itfs, k.off)
}

// WithOffset replaces the offset.
func (k *InstKlassPtr) WithOffset(c *TypeCtx, off Offset) *InstKlassPtr {
	return c.makeInstKlassPtr(k.ptr, k.klass, k.itfs, off)
}

// AddOffset shifts the offset by delta.
func (k *InstKlassPtr) AddOffset(c *TypeCtx, delta int64) *InstKlassPtr {
	return k.WithOffset(c, addOffset(k.off, delta))
}

func (k *InstKlassPtr) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "klass:%s", k.klass.Name())
	if !k.itfs.isEmpty() {
		b.WriteString(k.itfs.String())
	}
	fmt.Fprintf(&b, ":%s%s", k.ptr, k.off)
	return b.String()
}

// AryKlassPtr is a pointer to the class word of an array. The element is
// itself a type: a klass pointer for object arrays, a scalar type for
// primitive ones.
type AryKlassPtr struct {
	ptrBase
	elem  Type
	klass *classes.Class
	itfs  *Interfaces
}

func (c *TypeCtx) makeAryKlassPtr(ptr PTR, elem Type, klass *classes.Class, off Offset) *AryKlassPtr {
	if klass == nil {
		klass = c.computeAryKlass(elem)
	}
	return c.intern(&AryKlassPtr{
		ptrBase: ptrBase{
			typeBase: typeBase{kind: KindAryKlassPtr},
			ptr:      ptr, off: off, depth: InlineDepthBottom,
		},
		elem: elem, klass: klass, itfs: c.ArrayItfs,
	}).(*AryKlassPtr)
}

// MakeAryKlassPtr builds the type of an array class word with the given
// element type.
func (c *TypeCtx) MakeAryKlassPtr(ptr PTR, elem Type, klass *classes.Class) *AryKlassPtr {
	return c.makeAryKlassPtr(ptr, elem, klass, 0)
}

func (k *AryKlassPtr) Klass() *classes.Class { return k.klass }

func (k *AryKlassPtr) Elem() Type { return k.elem }

func (k *AryKlassPtr) Exact() bool { return k.ptr == Constant }

func (k *AryKlassPtr) Singleton() bool {
	return k.off == 0 && !belowCenterline(k.ptr)
}

// the klass is a cache derived from the element, so identity leaves it out
func (k *AryKlassPtr) Hash() uint64 {
	h := hashMix(hashString("aryklassptr"), k.hashPtr())
	return hashMix(h, k.elem.Hash())
}

func (k *AryKlassPtr) equals(t Type) bool {
	o, ok := t.(*AryKlassPtr)
	return ok && k.eqPtr(&o.ptrBase) && k.elem == o.elem
}

func (k *AryKlassPtr) xdual() Type {
	return &AryKlassPtr{
		ptrBase: ptrBase{
			typeBase: typeBase{kind: KindAryKlassPtr},
			ptr:      dualPTR(k.ptr), off: dualOffset(k.off), depth: k.depth,
		},
		elem: k.elem.Dual(), klass: k.klass, itfs: k.itfs,
	}
}

func (k *AryKlassPtr) removeSpec(c *TypeCtx) Type { return k }

func (k *AryKlassPtr) xmeet(c *TypeCtx, t Type) Type {
	if Type(k) == t {
		return k
	}
	switch t.Kind() {
	case KindInt, KindLong,
		KindHalfFloatTop, KindHalfFloatCon, KindHalfFloatBot,
		KindFloatTop, KindFloatCon, KindFloatBot,
		KindDoubleTop, KindDoubleCon, KindDoubleBot,
		KindNarrowOop, KindNarrowKlass,
		KindControl, KindAbio, KindMemory, KindHalf, KindReturnAddress:
		return Bottom

	case KindRawPtr, KindMetadataPtr, KindOopPtr, KindInstPtr, KindAryPtr:
		return PtrBottom

	case KindAnyPtr:
		tp := t.(*Ptr)
		off := meetOffset(k.off, tp.off)
		pm := meetPTR(k.ptr, tp.ptr)
		switch tp.ptr {
		case TopPTR:
			return k
		case Null:
			if pm == Null {
				return c.makePtrFull(pm, off, tp.spec, tp.depth)
			}
			fallthrough
		case AnyNull:
			return c.makeAryKlassPtr(pm, k.elem, k.klass, off)
		case BotPTR, NotNull:
			return c.makePtrFull(pm, off, tp.spec, tp.depth)
		}
		typerr(k, t)

	case KindAryKlassPtr:
		tap := t.(*AryKlassPtr)
		off := meetOffset(k.off, tap.off)
		elem := c.Meet(k.elem, tap.elem)
		pm := meetPTR(k.ptr, tap.ptr)

		r := meetAryParts(c, pm, elem,
			meetSide{isAry: true, ptr: k.ptr, klass: k.klass, itfs: k.itfs, xk: k.Exact(), elem: k.elem},
			meetSide{isAry: true, ptr: tap.ptr, klass: tap.klass, itfs: tap.itfs, xk: tap.Exact(), elem: tap.elem})
		return c.makeAryKlassPtr(r.ptr, r.elem, r.klass, off)

	case KindInstKlassPtr:
		tp := t.(*InstKlassPtr)
		off := meetOffset(k.off, tp.off)
		pm := meetPTR(k.ptr, tp.ptr)
		switch pm {
		case TopPTR, AnyNull:
			if tp.klass == c.hier.Object && k.itfs.containsAll(tp.itfs) && !tp.Exact() {
				return c.makeAryKlassPtr(pm, k.elem, k.klass, off)
			}
			itfs := k.itfs.intersection(c, tp.itfs)
			return c.makeInstKlassPtr(NotNull, c.hier.Object, itfs, off)
		case Constant, NotNull, BotPTR:
			if aboveCenterline(tp.ptr) &&
				tp.klass == c.hier.Object && k.itfs.containsAll(tp.itfs) && !tp.Exact() {
				return c.makeAryKlassPtr(pm, k.elem, k.klass, off)
			}
			if pm == Constant {
				pm = NotNull
			}
			itfs := k.itfs.intersection(c, tp.itfs)
			return c.makeInstKlassPtr(pm, c.hier.Object, itfs, off)
		}
		typerr(k, t)

	case KindBottom:
		return Bottom
	case KindTop:
		return k
	}
	typerr(k, t)
	return nil
}

// AsInstanceType is the array pointer type whose class word this is.
func (k *AryKlassPtr) AsInstanceType(c *TypeCtx) *AryPtr {
	elem := k.elem
	switch e := elem.(type) {
	case *InstKlassPtr:
		elem = e.AsInstanceType(c)
	case *AryKlassPtr:
		elem = e.AsInstanceType(c)
	}
	ary := c.MakeAry(elem, IntPos, false)
	return c.makeAryFull(BotPTR, nil, ary, k.klass, k.Exact(), 0, InstanceBot, nil, InlineDepthBottom)
}

// CastToPtrType replaces the nullability state.
func (k *AryKlassPtr) CastToPtrType(c *TypeCtx, ptr PTR) *AryKlassPtr {
	if ptr == k.ptr {
		return k
	}
	return c.makeAryKlassPtr(ptr, k.elem, k.klass, k.off)
}

// WithOffset replaces the offset.
func (k *AryKlassPtr) WithOffset(c *TypeCtx, off Offset) *AryKlassPtr {
	return c.makeAryKlassPtr(k.ptr, k.elem, k.klass, off)
}

// AddOffset shifts the offset by delta.
func (k *AryKlassPtr) AddOffset(c *TypeCtx, delta int64) *AryKlassPtr {
	return k.WithOffset(c, addOffset(k.off, delta))
}

func (k *AryKlassPtr) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "aryklass:%s[]:%s%s", k.elem, k.ptr, k.off)
	return b.String()
}
