package lattice

import (
	"fmt"
	"strings"

	"github.com/opal-lang/opal/midend/classes"
)

// oopBase carries the fields shared by every managed heap pointer type:
// the class bound, whether the bound is exact, an optional constant
// object, and the allocation identity.
type oopBase struct {
	ptrBase
	klass *classes.Class
	xk    bool
	oop   *classes.Ref
	iid   int32
}

func (o *oopBase) Klass() *classes.Class { return o.klass }

func (o *oopBase) Exact() bool { return o.xk }

func (o *oopBase) ConstOop() *classes.Ref { return o.oop }

func (o *oopBase) InstanceID() int32 { return o.iid }

// KnownInstance reports whether the type is pinned to one allocation site.
func (o *oopBase) KnownInstance() bool { return o.iid > InstanceBot }

func (o *oopBase) hashOop() uint64 {
	h := o.hashPtr()
	if o.klass != nil {
		h = hashMix(h, o.klass.Hash())
	}
	if o.xk {
		h = hashMix(h, 1)
	}
	if o.oop != nil {
		h = hashMix(h, o.oop.Hash())
	}
	return hashMix(h, uint64(uint32(o.iid)))
}

func (o *oopBase) eqOop(p *oopBase) bool {
	return o.eqPtr(&p.ptrBase) && o.klass == p.klass && o.xk == p.xk &&
		o.oop == p.oop && o.iid == p.iid
}

// constant oop plus constant offset must not fold to a compile time
// constant, so offsets other than zero are not singletons
func (o *oopBase) Singleton() bool {
	return o.off == 0 && !belowCenterline(o.ptr)
}

func (o *oopBase) oopSuffix(b *strings.Builder) {
	b.WriteString(o.off.String())
	if o.iid != InstanceBot {
		if o.iid == InstanceTop {
			b.WriteString(":id=top")
		} else {
			fmt.Fprintf(b, ":id=%d", o.iid)
		}
	}
	specString(b, o.spec, o.depth)
}

// OopPtr is a heap pointer about which only nullability, offset and
// allocation identity are known; the class bound is the root class.
type OopPtr struct {
	oopBase
}

func (c *TypeCtx) makeOopPtr(ptr PTR, off Offset, iid int32, spec Type, depth int32) *OopPtr {
	return c.intern(&OopPtr{oopBase{
		ptrBase: ptrBase{
			typeBase: typeBase{kind: KindOopPtr},
			ptr:      ptr, off: off, spec: spec, depth: depth,
		},
		klass: c.hier.Object,
		iid:   iid,
	}}).(*OopPtr)
}

func (o *OopPtr) Hash() uint64 {
	return hashMix(hashString("oopptr"), o.hashOop())
}

func (o *OopPtr) equals(t Type) bool {
	p, ok := t.(*OopPtr)
	return ok && o.eqOop(&p.oopBase)
}

func (o *OopPtr) xdual() Type {
	spec, depth := o.dualSpecDepth()
	return &OopPtr{oopBase{
		ptrBase: ptrBase{
			typeBase: typeBase{kind: KindOopPtr},
			ptr:      dualPTR(o.ptr), off: dualOffset(o.off), spec: spec, depth: depth,
		},
		klass: o.klass,
		xk:    o.xk,
		oop:   o.oop,
		iid:   dualInstanceID(o.iid),
	}}
}

func (o *OopPtr) removeSpec(c *TypeCtx) Type {
	if o.spec == nil {
		return o
	}
	return c.makeOopPtr(o.ptr, o.off, o.iid, nil, o.depth)
}

func (o *OopPtr) xmeet(c *TypeCtx, t Type) Type {
	if Type(o) == t {
		return o
	}
	switch t.Kind() {
	case KindInt, KindLong,
		KindHalfFloatTop, KindHalfFloatCon, KindHalfFloatBot,
		KindFloatTop, KindFloatCon, KindFloatBot,
		KindDoubleTop, KindDoubleCon, KindDoubleBot,
		KindNarrowOop, KindNarrowKlass,
		KindControl, KindAbio, KindMemory, KindHalf, KindReturnAddress:
		return Bottom
	case KindRawPtr, KindMetadataPtr, KindInstKlassPtr, KindAryKlassPtr:
		return PtrBottom
	case KindInstPtr, KindAryPtr:
		return t.xmeet(c, o)
	case KindOopPtr:
		tp := t.(*OopPtr)
		return c.makeOopPtr(
			meetPTR(o.ptr, tp.ptr),
			meetOffset(o.off, tp.off),
			meetInstanceID(o.iid, tp.iid),
			xmeetSpeculative(c, o, tp),
			meetInlineDepth(o.depth, tp.depth),
		)
	case KindAnyPtr:
		tp := t.(*Ptr)
		off := meetOffset(o.off, tp.off)
		pm := meetPTR(o.ptr, tp.ptr)
		spec := xmeetSpeculative(c, o, tp)
		depth := meetInlineDepth(o.depth, tp.depth)
		switch tp.ptr {
		case Null:
			if pm == Null {
				return c.makePtrFull(pm, off, spec, depth)
			}
			fallthrough
		case TopPTR, AnyNull:
			return c.makeOopPtr(pm, off, meetInstanceID(o.iid, InstanceTop), spec, depth)
		case BotPTR, NotNull:
			return c.makePtrFull(pm, off, spec, depth)
		}
		typerr(o, t)
	case KindBottom:
		return Bottom
	case KindTop:
		return o
	}
	typerr(o, t)
	return nil
}

// CastToPtrType replaces the nullability state.
func (o *OopPtr) CastToPtrType(c *TypeCtx, ptr PTR) *OopPtr {
	if ptr == o.ptr {
		return o
	}
	return c.makeOopPtr(ptr, o.off, o.iid, o.spec, o.depth)
}

// WithOffset replaces the offset.
func (o *OopPtr) WithOffset(c *TypeCtx, off Offset) *OopPtr {
	return c.makeOopPtr(o.ptr, off, o.iid, o.spec, o.depth)
}

// AddOffset shifts the offset by delta.
func (o *OopPtr) AddOffset(c *TypeCtx, delta int64) *OopPtr {
	return c.makeOopPtr(o.ptr, addOffset(o.off, delta), o.iid, o.spec, o.depth)
}

func (o *OopPtr) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "oopptr:%s", o.ptr)
	o.oopSuffix(&b)
	return b.String()
}

// meetKind classifies what an instance or array meet discovered about the
// two class bounds.
type meetKind uint8

const (
	meetQuick meetKind = iota
	meetUnloaded
	meetSubtype
	meetNotSubtype
	meetLCA
)

// meetSide is one operand of the shared class-bound meet, abstracted over
// the oop and klass pointer variants.
type meetSide struct {
	isAry bool
	ptr   PTR
	klass *classes.Class
	itfs  *Interfaces
	xk    bool
	elem  Type // array sides only
}

// sideOf views an array element type as a meet operand, inheriting the
// exactness flag of the enclosing array.
func sideOf(t Type, xk bool) (meetSide, bool) {
	if n, ok := t.(*NarrowPtr); ok {
		t = n.wrapped
	}
	switch e := t.(type) {
	case *InstPtr:
		return meetSide{ptr: e.ptr, klass: e.klass, itfs: e.itfs, xk: xk}, true
	case *AryPtr:
		return meetSide{isAry: true, ptr: e.ptr, klass: e.klass, itfs: e.itfs, xk: xk, elem: e.ary.elem}, true
	case *InstKlassPtr:
		return meetSide{ptr: e.ptr, klass: e.klass, itfs: e.itfs, xk: xk}, true
	case *AryKlassPtr:
		return meetSide{isAry: true, ptr: e.ptr, klass: e.klass, itfs: e.itfs, xk: xk, elem: e.elem}, true
	}
	return meetSide{}, false
}

// baseElement digs through nested array types to the scalar or instance
// element at the bottom.
func baseElement(t Type) Type {
	for {
		switch e := t.(type) {
		case *NarrowPtr:
			t = e.wrapped
		case *AryPtr:
			t = e.ary.elem
		case *AryKlassPtr:
			t = e.elem
		default:
			return t
		}
	}
}

func (s meetSide) baseElemTopOrBottom() bool {
	if !s.isAry {
		return false
	}
	k := baseElement(s.elem).Kind()
	return k == KindTop || k == KindBottom
}

// sameJavaType reports whether both sides denote the same runtime class,
// interfaces included; array sides compare element-wise.
func sameJavaType(a, b meetSide) bool {
	if a.isAry != b.isAry {
		return false
	}
	if !a.isAry {
		return a.klass == b.klass && a.itfs == b.itfs
	}
	if a.baseElemTopOrBottom() || b.baseElemTopOrBottom() {
		return false
	}
	ae, aok := sideOf(a.elem, a.xk)
	be, bok := sideOf(b.elem, b.xk)
	if aok && bok {
		return sameJavaType(ae, be)
	}
	if !aok && !bok {
		return a.elem == b.elem
	}
	return false
}

// meetSubtypeOf reports whether every value of s is a value of o once both
// sides sit on the same side of the centerline.
func meetSubtypeOf(c *TypeCtx, s, o meetSide) bool {
	if s.klass == nil || o.klass == nil {
		return false
	}
	if !s.isAry {
		if o.isAry {
			return false
		}
		if o.klass == c.hier.Object && o.itfs.isEmpty() {
			return true
		}
		return s.klass.SubtypeOf(o.klass) && (!s.xk || s.itfs.containsAll(o.itfs))
	}
	if o.klass == c.hier.Object && o.itfs.isEmpty() {
		return true
	}
	if !o.isAry {
		return o.klass == c.hier.Object && s.itfs.containsAll(o.itfs)
	}
	if s.baseElemTopOrBottom() || o.baseElemTopOrBottom() {
		return false
	}
	se, sok := sideOf(s.elem, s.xk)
	oe, ook := sideOf(o.elem, o.xk)
	if sok && ook {
		return meetSubtypeOf(c, se, oe)
	}
	if !sok && !ook {
		return s.klass.SubtypeOf(o.klass)
	}
	return false
}

// instMeetResult is what meetInstParts decided about two instance bounds.
type instMeetResult struct {
	kind  meetKind
	ptr   PTR
	itfs  *Interfaces
	klass *classes.Class
	xk    bool
}

// meetInstParts meets two instance class bounds. ptr is the already met
// nullability and itfs the already met interface set; both may be revised
// when the classes force a fall to their least common ancestor.
func meetInstParts(c *TypeCtx, ptr PTR, itfs *Interfaces, this, other meetSide) instMeetResult {
	res := instMeetResult{ptr: ptr, itfs: itfs}

	if ptr != Constant && this.klass == other.klass && this.xk == other.xk {
		res.kind, res.klass, res.xk = meetQuick, this.klass, this.xk
		return res
	}
	if !this.klass.Loaded() || !other.klass.Loaded() {
		res.kind = meetUnloaded
		return res
	}

	origThis, origOther := this, other

	// when one side bounds the other, that side decides the result; the
	// surviving exactness depends on which side of the centerline we are on
	var sub meetSide
	haveSub, subXK := false, false
	switch {
	case sameJavaType(this, other):
		sub, haveSub = this, true
		if belowCenterline(ptr) {
			subXK = this.xk && other.xk
		} else {
			subXK = this.xk || other.xk
		}
	case !other.xk && meetSubtypeOf(c, this, other):
		sub, haveSub, subXK = this, true, this.xk
	case !this.xk && meetSubtypeOf(c, other, this):
		sub, haveSub, subXK = other, true, other.xk
	}
	if haveSub {
		switch {
		case aboveCenterline(ptr):
			this, other = sub, sub
			this.xk, other.xk = subXK, subXK
		case aboveCenterline(this.ptr) && !aboveCenterline(other.ptr):
			this = other
		case aboveCenterline(other.ptr) && !aboveCenterline(this.ptr):
			other = this
		default:
			this.xk = subXK
		}
	}
	if sameJavaType(this, other) {
		res.kind, res.klass, res.xk = meetSubtype, this.klass, this.xk
		return res
	}

	// unrelated classes fall to their least common ancestor, which is
	// never exact and never provably non-null-free
	switch ptr {
	case TopPTR, AnyNull, Constant:
		res.ptr = NotNull
	}
	res.itfs = origThis.itfs.intersection(c, origOther.itfs)
	res.klass = origThis.klass.LeastCommonAncestor(origOther.klass)
	res.xk = false
	res.kind = meetLCA
	return res
}

// aryMeetResult is what meetAryParts decided about two array bounds.
type aryMeetResult struct {
	kind  meetKind
	ptr   PTR
	elem  Type
	klass *classes.Class
	xk    bool
}

// meetAryParts meets two array class bounds. elem is the already met
// element type; it falls to Bottom when the arrays are layout-incompatible.
func meetAryParts(c *TypeCtx, ptr PTR, elem Type, this, other meetSide) aryMeetResult {
	res := aryMeetResult{kind: meetSubtype, ptr: ptr, elem: elem}
	thisTB := this.baseElemTopOrBottom()
	otherTB := other.baseElemTopOrBottom()

	if _, isInt := elem.(*Int); isInt {
		// the klass decides integral array layout, not the element range
		switch {
		case thisTB:
			res.klass = other.klass
		case otherTB || other.klass == this.klass:
			res.klass = this.klass
		default:
			// byte[] meeting char[] must fall to an untyped array, not to
			// an array of the fused integer range
			res.elem = Bottom
			res.kind = meetNotSubtype
			if aboveCenterline(ptr) || ptr == Constant {
				res.ptr = NotNull
				return res
			}
		}
	} else if (aboveCenterline(ptr) || ptr == Constant) && !sameJavaType(this, other) &&
		!thisTB && !otherTB &&
		((other.xk && this.xk) ||
			(other.xk && !meetSubtypeOf(c, other, this)) ||
			(this.xk && !meetSubtypeOf(c, this, other))) {
		// exact bounds that do not nest cannot stay exact
		if aboveCenterline(ptr) || elemAboveCenterline(elem) {
			res.elem = Bottom
		}
		res.ptr = NotNull
		res.kind = meetNotSubtype
		return res
	}

	switch other.ptr {
	case AnyNull, TopPTR:
		if belowCenterline(this.ptr) {
			res.xk = this.xk
		} else {
			res.xk = other.xk || this.xk
		}
	case Constant:
		if this.ptr == Constant || aboveCenterline(this.ptr) {
			res.xk = true
		} else {
			// only precise for identical arrays
			res.xk = this.xk && (sameJavaType(this, other) || (thisTB && otherTB))
		}
	case NotNull, BotPTR:
		if aboveCenterline(this.ptr) {
			res.xk = other.xk
		} else {
			res.xk = other.xk && this.xk && (sameJavaType(this, other) || (thisTB && otherTB))
		}
	}
	return res
}

func elemAboveCenterline(elem Type) bool {
	if n, ok := elem.(*NarrowPtr); ok {
		elem = n.wrapped
	}
	if p, ok := elem.(ptrLike); ok {
		return aboveCenterline(p.Ptr())
	}
	return false
}
