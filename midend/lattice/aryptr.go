package lattice

import (
	"fmt"
	"strings"

	"github.com/opal-lang/opal/midend/classes"
)

// Ary is the element-and-size shape of an array, without the pointer part.
// It only ever occurs inside an AryPtr.
type Ary struct {
	typeBase
	elem   Type
	size   *Int
	stable bool
}

// MakeAry builds an array shape.
func (c *TypeCtx) MakeAry(elem Type, size *Int, stable bool) *Ary {
	return c.intern(&Ary{
		typeBase: typeBase{kind: KindAry},
		elem:     elem, size: c.normalizeArySize(size), stable: stable,
	}).(*Ary)
}

// normalizeArySize pins the size to minimum wideness, so two arrays never
// differ only by how far their length range has been widened.
func (c *TypeCtx) normalizeArySize(size *Int) *Int {
	if size.widen == WidenMin {
		return size
	}
	r := *size
	r.typeBase = typeBase{kind: KindInt}
	r.widen = WidenMin
	return c.intern(&r).(*Int)
}

func (a *Ary) Elem() Type { return a.elem }

func (a *Ary) Size() *Int { return a.size }

func (a *Ary) Stable() bool { return a.stable }

func (a *Ary) Singleton() bool { return false }

func (a *Ary) Empty() bool { return a.elem.Empty() || a.size.Empty() }

func (a *Ary) Hash() uint64 {
	h := hashMix(hashMix(hashString("ary"), a.elem.Hash()), a.size.Hash())
	if a.stable {
		h = hashMix(h, 1)
	}
	return h
}

func (a *Ary) equals(t Type) bool {
	o, ok := t.(*Ary)
	return ok && a.elem == o.elem && a.size == o.size && a.stable == o.stable
}

func (a *Ary) xdual() Type {
	return &Ary{
		typeBase: typeBase{kind: KindAry},
		elem:     a.elem.Dual(), size: a.size.Dual().(*Int), stable: a.stable,
	}
}

func (a *Ary) xmeet(c *TypeCtx, t Type) Type {
	if Type(a) == t {
		return a
	}
	switch t.Kind() {
	case KindTop:
		return a
	case KindBottom:
		return Bottom
	case KindAry:
		o := t.(*Ary)
		sz := a.size.xmeet(c, o.size)
		szInt, ok := sz.(*Int)
		if !ok {
			// disjoint dual sizes admit no array at all
			return sz
		}
		return c.MakeAry(c.MeetSpeculative(a.elem, o.elem), szInt, a.stable && o.stable)
	}
	typerr(a, t)
	return nil
}

// mustBeExact reports whether arrays of this shape can only ever be of
// one runtime class: primitive elements and final instance classes leave
// no room for a subclass array.
func (a *Ary) mustBeExact() bool {
	elem := a.elem
	if n, ok := elem.(*NarrowPtr); ok {
		elem = n.wrapped
	}
	switch e := elem.(type) {
	case *InstPtr:
		return e.xk && e.klass.Loaded() && e.klass.IsFinal()
	case *AryPtr:
		return e.ary.mustBeExact()
	case *OopPtr:
		return false
	}
	switch elem.Kind() {
	case KindTop, KindBottom:
		return false
	}
	return true
}

func (a *Ary) String() string {
	s := fmt.Sprintf("%s[%s]", a.elem, a.size)
	if a.stable {
		s += ":stable"
	}
	return s
}

// AryPtr is a pointer to an array object: the array shape plus the usual
// oop pointer state. klass is the array class when the element pins one
// down, nil otherwise.
type AryPtr struct {
	oopBase
	ary  *Ary
	itfs *Interfaces
}

func (c *TypeCtx) makeAryFull(ptr PTR, oop *classes.Ref, ary *Ary, klass *classes.Class,
	xk bool, off Offset, iid int32, spec Type, depth int32) *AryPtr {
	if klass == nil {
		klass = c.computeAryKlass(ary.elem)
	}
	if !xk {
		xk = ary.mustBeExact()
	}
	return c.intern(&AryPtr{
		oopBase: oopBase{
			ptrBase: ptrBase{
				typeBase: typeBase{kind: KindAryPtr},
				ptr:      ptr, off: off, spec: spec, depth: depth,
			},
			klass: klass, xk: xk, oop: oop, iid: iid,
		},
		ary:  ary,
		itfs: c.ArrayItfs,
	}).(*AryPtr)
}

// MakeAryPtr builds the type of a possibly-null pointer to arrays of the
// given shape.
func (c *TypeCtx) MakeAryPtr(ptr PTR, ary *Ary, klass *classes.Class) *AryPtr {
	return c.makeAryFull(ptr, nil, ary, klass, false, 0, InstanceBot, nil, InlineDepthBottom)
}

// computeAryKlass derives the array class an element type determines, nil
// when the element leaves the layout open.
func (c *TypeCtx) computeAryKlass(elem Type) *classes.Class {
	if n, ok := elem.(*NarrowPtr); ok {
		elem = n.wrapped
	}
	switch elem {
	case IntBool:
		return c.hier.PrimArray("boolean")
	case IntByte:
		return c.hier.PrimArray("byte")
	case IntChar:
		return c.hier.PrimArray("char")
	case IntShort:
		return c.hier.PrimArray("short")
	case IntAll:
		return c.hier.PrimArray("int")
	case LongAll:
		return c.hier.PrimArray("long")
	case FloatBot:
		return c.hier.PrimArray("float")
	case DoubleBot:
		return c.hier.PrimArray("double")
	}
	switch e := elem.(type) {
	case *InstPtr:
		if e.klass != nil && e.klass.Loaded() {
			return c.hier.ArrayOf(e.klass)
		}
	case *AryPtr:
		if e.klass != nil && e.klass.Loaded() {
			return c.hier.ArrayOf(e.klass)
		}
	case *InstKlassPtr:
		if e.klass != nil && e.klass.Loaded() {
			return c.hier.ArrayOf(e.klass)
		}
	case *AryKlassPtr:
		if e.klass != nil && e.klass.Loaded() {
			return c.hier.ArrayOf(e.klass)
		}
	}
	return nil
}

func (a *AryPtr) Ary() *Ary { return a.ary }

func (a *AryPtr) Elem() Type { return a.ary.elem }

func (a *AryPtr) Size() *Int { return a.ary.size }

func (a *AryPtr) Hash() uint64 {
	return hashMix(hashMix(hashString("aryptr"), a.hashOop()), a.ary.Hash())
}

func (a *AryPtr) equals(t Type) bool {
	o, ok := t.(*AryPtr)
	return ok && a.eqOop(&o.oopBase) && a.ary == o.ary
}

func (a *AryPtr) xdual() Type {
	spec, depth := a.dualSpecDepth()
	return &AryPtr{
		oopBase: oopBase{
			ptrBase: ptrBase{
				typeBase: typeBase{kind: KindAryPtr},
				ptr:      dualPTR(a.ptr), off: dualOffset(a.off), spec: spec, depth: depth,
			},
			klass: a.klass, xk: a.xk, oop: a.oop, iid: dualInstanceID(a.iid),
		},
		ary:  a.ary.Dual().(*Ary),
		itfs: a.itfs,
	}
}

func (a *AryPtr) removeSpec(c *TypeCtx) Type {
	if a.spec == nil {
		return a
	}
	return c.makeAryFull(a.ptr, a.oop, a.ary, a.klass, a.xk, a.off, a.iid, nil, a.depth)
}

func (a *AryPtr) xmeet(c *TypeCtx, t Type) Type {
	if Type(a) == t {
		return a
	}
	switch t.Kind() {
	case KindInt, KindLong,
		KindHalfFloatTop, KindHalfFloatCon, KindHalfFloatBot,
		KindFloatTop, KindFloatCon, KindFloatBot,
		KindDoubleTop, KindDoubleCon, KindDoubleBot,
		KindNarrowOop, KindNarrowKlass,
		KindControl, KindAbio, KindMemory, KindHalf, KindReturnAddress:
		return Bottom

	case KindMetadataPtr, KindInstKlassPtr, KindAryKlassPtr, KindRawPtr:
		return PtrBottom

	case KindOopPtr:
		tp := t.(*OopPtr)
		off := meetOffset(a.off, tp.off)
		pm := meetPTR(a.ptr, tp.ptr)
		spec := xmeetSpeculative(c, a, tp)
		depth := meetInlineDepth(a.depth, tp.depth)
		switch tp.ptr {
		case TopPTR, AnyNull:
			var o *classes.Ref
			if pm == Constant {
				o = a.oop
			}
			iid := meetInstanceID(a.iid, InstanceTop)
			return c.makeAryFull(pm, o, a.ary, a.klass, a.xk, off, iid, spec, depth)
		case BotPTR, NotNull:
			iid := meetInstanceID(a.iid, tp.iid)
			return c.makeOopPtr(pm, off, iid, spec, depth)
		}
		typerr(a, t)

	case KindAnyPtr:
		tp := t.(*Ptr)
		off := meetOffset(a.off, tp.off)
		pm := meetPTR(a.ptr, tp.ptr)
		spec := xmeetSpeculative(c, a, tp)
		depth := meetInlineDepth(a.depth, tp.depth)
		switch tp.ptr {
		case TopPTR:
			return a
		case BotPTR, NotNull:
			return c.makePtrFull(pm, off, spec, depth)
		case Null:
			if pm == Null {
				return c.makePtrFull(pm, off, spec, depth)
			}
			fallthrough
		case AnyNull:
			var o *classes.Ref
			if pm == Constant {
				o = a.oop
			}
			iid := meetInstanceID(a.iid, InstanceTop)
			return c.makeAryFull(pm, o, a.ary, a.klass, a.xk, off, iid, spec, depth)
		}
		typerr(a, t)

	case KindInstPtr:
		tp := t.(*InstPtr)
		off := meetOffset(a.off, tp.off)
		pm := meetPTR(a.ptr, tp.ptr)
		iid := meetInstanceID(a.iid, tp.iid)
		spec := xmeetSpeculative(c, a, tp)
		depth := meetInlineDepth(a.depth, tp.depth)

		switch pm {
		case TopPTR, AnyNull:
			// an array type can subclass Object, nothing else
			if tp.klass == c.hier.Object && a.itfs.containsAll(tp.itfs) && !tp.xk {
				return c.makeAryFull(pm, nil, a.ary, a.klass, a.xk, off, iid, spec, depth)
			}
			itfs := a.itfs.intersection(c, tp.itfs)
			return c.makeInstPtr(NotNull, c.hier.Object, itfs, false, nil, off, InstanceBot, spec, depth)
		case Constant, NotNull, BotPTR:
			if aboveCenterline(tp.ptr) &&
				tp.klass == c.hier.Object && a.itfs.containsAll(tp.itfs) && !tp.xk {
				var o *classes.Ref
				if pm == Constant {
					o = a.oop
				}
				return c.makeAryFull(pm, o, a.ary, a.klass, a.xk, off, iid, spec, depth)
			}
			if pm == Constant {
				pm = NotNull
			}
			if iid > 0 {
				iid = InstanceBot
			}
			itfs := a.itfs.intersection(c, tp.itfs)
			return c.makeInstPtr(pm, c.hier.Object, itfs, false, nil, off, iid, spec, depth)
		}
		typerr(a, t)

	case KindAryPtr:
		tap := t.(*AryPtr)
		off := meetOffset(a.off, tap.off)
		tm := c.MeetSpeculative(a.ary, tap.ary)
		tary, ok := tm.(*Ary)
		if !ok {
			return tm
		}
		pm := meetPTR(a.ptr, tap.ptr)
		iid := meetInstanceID(a.iid, tap.iid)
		spec := xmeetSpeculative(c, a, tap)
		depth := meetInlineDepth(a.depth, tap.depth)

		r := meetAryParts(c, pm, tary.elem,
			meetSide{isAry: true, ptr: a.ptr, klass: a.klass, itfs: a.itfs, xk: a.xk, elem: a.ary.elem},
			meetSide{isAry: true, ptr: tap.ptr, klass: tap.klass, itfs: tap.itfs, xk: tap.xk, elem: tap.ary.elem})
		pm = r.ptr
		if r.kind == meetNotSubtype {
			iid = InstanceBot
		}

		var o *classes.Ref
		if pm == Constant {
			switch {
			case a.oop != nil && tap.oop != nil && a.oop == tap.oop:
				o = tap.oop
			case aboveCenterline(a.ptr):
				o = tap.oop
			case aboveCenterline(tap.ptr):
				o = a.oop
			default:
				pm = NotNull
			}
		}
		return c.makeAryFull(pm, o, c.MakeAry(r.elem, tary.size, tary.stable),
			r.klass, r.xk, off, iid, spec, depth)

	case KindBottom:
		return Bottom
	case KindTop:
		return a
	}
	typerr(a, t)
	return nil
}

// narrowSizeType clamps an array length range to what a length can be.
func (c *TypeCtx) narrowSizeType(size *Int) *Int {
	lo, hi := size.Lo, size.Hi
	chg := false
	if lo < 0 {
		lo = 0
		if size.IsCon() {
			hi = lo
		}
		chg = true
	}
	if hi < lo {
		hi = lo
		chg = true
	}
	if !chg {
		return size
	}
	return c.MakeInt(lo, hi, size.widen).(*Int)
}

// CastToSize replaces the length range.
func (a *AryPtr) CastToSize(c *TypeCtx, size *Int) *AryPtr {
	size = c.narrowSizeType(size)
	if size == a.ary.size {
		return a
	}
	ary := c.MakeAry(a.ary.elem, size, a.ary.stable)
	return c.makeAryFull(a.ptr, a.oop, ary, a.klass, a.xk, a.off, a.iid, a.spec, a.depth)
}

// CastToPtrType replaces the nullability state. Leaving Constant drops
// the constant object.
func (a *AryPtr) CastToPtrType(c *TypeCtx, ptr PTR) *AryPtr {
	if ptr == a.ptr {
		return a
	}
	oop := a.oop
	if ptr != Constant {
		oop = nil
	}
	return c.makeAryFull(ptr, oop, a.ary, a.klass, a.xk, a.off, a.iid, a.spec, a.depth)
}

// CastToExactness pins or releases the array class bound.
func (a *AryPtr) CastToExactness(c *TypeCtx, exact bool) *AryPtr {
	if exact == a.xk {
		return a
	}
	if !exact && a.ary.mustBeExact() {
		return a
	}
	return c.makeAryFull(a.ptr, a.oop, a.ary, a.klass, exact, a.off, a.iid, a.spec, a.depth)
}

// CastToInstanceID pins the type to one allocation site.
func (a *AryPtr) CastToInstanceID(c *TypeCtx, iid int32) *AryPtr {
	if iid == a.iid {
		return a
	}
	return c.makeAryFull(a.ptr, a.oop, a.ary, a.klass, a.xk, a.off, iid, a.spec, a.depth)
}

// CastToStable marks or unmarks the array as never written again.
func (a *AryPtr) CastToStable(c *TypeCtx, stable bool) *AryPtr {
	if stable == a.ary.stable {
		return a
	}
	ary := c.MakeAry(a.ary.elem, a.ary.size, stable)
	return c.makeAryFull(a.ptr, a.oop, ary, a.klass, a.xk, a.off, a.iid, a.spec, a.depth)
}

// WithOffset replaces the offset.
func (a *AryPtr) WithOffset(c *TypeCtx, off Offset) *AryPtr {
	return c.makeAryFull(a.ptr, a.oop, a.ary, a.klass, a.xk, off, a.iid, a.spec, a.depth)
}

// AddOffset shifts the offset by delta.
func (a *AryPtr) AddOffset(c *TypeCtx, delta int64) *AryPtr {
	return a.WithOffset(c, addOffset(a.off, delta))
}

// WithSpeculative replaces the speculative part.
func (a *AryPtr) WithSpeculative(c *TypeCtx, spec Type) *AryPtr {
	if spec == a.spec {
		return a
	}
	return c.makeAryFull(a.ptr, a.oop, a.ary, a.klass, a.xk, a.off, a.iid, spec, a.depth)
}

// AsKlassType is the type of this array's class word.
func (a *AryPtr) AsKlassType(c *TypeCtx, tryForExact bool) *AryKlassPtr {
	elem := a.ary.elem
	if n, ok := elem.(*NarrowPtr); ok {
		elem = n.wrapped
	}
	switch e := elem.(type) {
	case *InstPtr:
		elem = e.AsKlassType(c, tryForExact)
	case *AryPtr:
		elem = e.AsKlassType(c, tryForExact)
	}
	ptr := NotNull
	if a.xk {
		ptr = Constant
	}
	return c.makeAryKlassPtr(ptr, elem, a.klass, 0)
}

func (a *AryPtr) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ary:%s:%s", a.ary, a.ptr)
	if a.ptr == Constant && a.oop != nil {
		fmt.Fprintf(&b, "=%s", a.oop.Label)
	}
	if a.xk {
		b.WriteString(":exact")
	}
	a.oopSuffix(&b)
	return b.String()
}
