package lattice

import (
	"github.com/opal-lang/opal/midend/classes"
)

// TypeCtx owns every canonical type of one compilation. It is not safe for
// concurrent use; a compilation builds types from a single goroutine.
//
// Types that do not mention a class live in a process-wide shared table
// seeded at startup, so the simple constants (Top, IntZero, PtrNull, ...)
// are the same pointers across contexts. Everything that touches the class
// hierarchy is interned per context.
type TypeCtx struct {
	hier  *classes.Hierarchy
	table map[uint64][]Type
	vrfy  *verifier

	// canonical types that depend on the class hierarchy
	EmptyItfs   *Interfaces
	ArrayItfs   *Interfaces
	OopBottom   *OopPtr
	InstBottom  *InstPtr
	InstNotNull *InstPtr
	KlassObject *InstKlassPtr
	// KlassObjectOrNull admits the null klass word as well.
	KlassObjectOrNull *InstKlassPtr
	MetaBottom        *MetadataPtr

	AryBottom  *AryPtr
	AryOops    *AryPtr
	AryBytes   *AryPtr
	AryChars   *AryPtr
	AryShorts  *AryPtr
	AryInts    *AryPtr
	AryLongs   *AryPtr
	AryFloats  *AryPtr
	AryDoubles *AryPtr

	NarrowOopBottom Type

	// TupleStartI2C is the shape of an interpreter-to-compiled adapter
	// entry: the standard call prefix plus the callee and argument base.
	TupleStartI2C *Tuple
}

// NewTypeCtx builds a context over h and interns the hierarchy-dependent
// canonical constants.
func NewTypeCtx(h *classes.Hierarchy) *TypeCtx {
	c := &TypeCtx{hier: h, table: make(map[uint64][]Type, 256)}

	c.EmptyItfs = c.MakeInterfaces()
	c.ArrayItfs = c.MakeInterfaces(h.Cloneable, h.Serializable)

	c.OopBottom = c.makeOopPtr(BotPTR, OffsetBot, InstanceBot, nil, InlineDepthBottom)
	c.InstBottom = c.makeInstPtr(BotPTR, h.Object, c.EmptyItfs, false, nil, 0, InstanceBot, nil, InlineDepthBottom)
	c.InstNotNull = c.makeInstPtr(NotNull, h.Object, c.EmptyItfs, false, nil, 0, InstanceBot, nil, InlineDepthBottom)
	c.KlassObject = c.makeInstKlassPtr(NotNull, h.Object, c.EmptyItfs, 0)
	c.KlassObjectOrNull = c.makeInstKlassPtr(BotPTR, h.Object, c.EmptyItfs, 0)
	c.MetaBottom = c.makeMetadataPtr(BotPTR, nil, OffsetBot)

	c.AryBottom = c.makeAryPrim(Bottom, nil)
	c.AryOops = c.makeAryFull(BotPTR, nil, c.MakeAry(c.InstBottom, IntPos, false),
		h.ArrayOf(h.Object), false, OffsetBot, InstanceBot, nil, InlineDepthBottom)
	c.AryBytes = c.makeAryPrim(IntByte, h.PrimArray("byte"))
	c.AryChars = c.makeAryPrim(IntChar, h.PrimArray("char"))
	c.AryShorts = c.makeAryPrim(IntShort, h.PrimArray("short"))
	c.AryInts = c.makeAryPrim(IntAll, h.PrimArray("int"))
	c.AryLongs = c.makeAryPrim(LongAll, h.PrimArray("long"))
	c.AryFloats = c.makeAryPrim(FloatBot, h.PrimArray("float"))
	c.AryDoubles = c.makeAryPrim(DoubleBot, h.PrimArray("double"))

	c.NarrowOopBottom = c.MakeNarrowOop(c.OopBottom)
	c.TupleStartI2C = c.MakeTuple(Control, Abio, Memory, RawPtrBottom, ReturnAddress,
		c.InstBottom, RawPtrBottom)
	return c
}

func (c *TypeCtx) makeAryPrim(elem Type, klass *classes.Class) *AryPtr {
	xk := klass != nil
	return c.makeAryFull(BotPTR, nil, c.MakeAry(elem, IntPos, false),
		klass, xk, OffsetBot, InstanceBot, nil, InlineDepthBottom)
}

// Hierarchy returns the class model this context types against.
func (c *TypeCtx) Hierarchy() *classes.Hierarchy { return c.hier }

// SetVerify toggles the debug meet verifier. When on, every meet is
// re-checked for commutativity and lattice symmetry and the engine panics
// on the first violation.
func (c *TypeCtx) SetVerify(on bool) {
	if on {
		if c.vrfy == nil {
			c.vrfy = newVerifier()
		}
	} else {
		c.vrfy = nil
	}
}

func (c *TypeCtx) find(t Type) Type {
	h := t.Hash()
	for _, e := range c.table[h] {
		if e.equals(t) {
			return e
		}
	}
	if sharedTable != nil {
		if bucket, ok := sharedTable.Get(h); ok {
			for _, e := range bucket {
				if e.equals(t) {
					return e
				}
			}
		}
	}
	return nil
}

func (c *TypeCtx) insert(t Type) {
	h := t.Hash()
	c.table[h] = append(c.table[h], t)
}

// intern hash-conses t. The canonical copy of t is returned; its dual is
// computed, interned and cross-linked the first time t is seen.
func (c *TypeCtx) intern(t Type) Type {
	if f := c.find(t); f != nil {
		return f
	}
	c.insert(t)
	d := t.xdual()
	if f := c.find(d); f != nil {
		// either t is self-dual (f == t) or the dual was interned earlier
		t.base().dual = f
		if f.base().dual == nil {
			f.base().dual = t
		}
		return t
	}
	c.insert(d)
	t.base().dual = d
	d.base().dual = t
	return t
}

// Meet computes the least upper bound of t and u, dropping speculative
// pointer info from the result.
func (c *TypeCtx) Meet(t, u Type) Type {
	return c.meetHelper(t, u, false)
}

// MeetSpeculative is Meet but carries speculative info through, trimming
// it afterwards when it no longer says anything useful.
func (c *TypeCtx) MeetSpeculative(t, u Type) Type {
	return c.cleanupSpeculative(c.meetHelper(t, u, true))
}

// Join computes the greatest lower bound as the dual of the meet of duals.
func (c *TypeCtx) Join(t, u Type) Type {
	return c.joinHelper(t, u, false)
}

// JoinSpeculative is Join carrying speculative info through.
func (c *TypeCtx) JoinSpeculative(t, u Type) Type {
	return c.cleanupSpeculative(c.joinHelper(t, u, true))
}

// Filter intersects t with kills, collapsing an empty intersection to Top.
func (c *TypeCtx) Filter(t, kills Type) Type {
	return c.filterHelper(t, kills, false)
}

// FilterSpeculative is Filter carrying speculative info through.
func (c *TypeCtx) FilterSpeculative(t, kills Type) Type {
	return c.cleanupSpeculative(c.filterHelper(t, kills, true))
}

func (c *TypeCtx) joinHelper(t, u Type, includeSpec bool) Type {
	return c.meetHelper(t.Dual(), u.Dual(), includeSpec).Dual()
}

func (c *TypeCtx) meetHelper(t, u Type, includeSpec bool) Type {
	mt := c.meetRaw(t, u, includeSpec)
	if c.vrfy == nil || isNarrowKind(t.Kind()) || isNarrowKind(u.Kind()) {
		return mt
	}
	tt := maybeRemoveSpeculative(c, t, includeSpec)
	uu := maybeRemoveSpeculative(c, u, includeSpec)
	c.vrfy.record(tt, uu, mt)
	c.vrfy.check(c, tt, uu, mt)
	// the same laws must hold above the centerline
	mtDual := c.vrfy.meet(c, tt.Dual(), uu.Dual())
	c.vrfy.check(c, tt.Dual(), uu.Dual(), mtDual)
	return mt
}

// meetRaw is the meet without verification. Matching narrow wrappers meet
// on the wrapped pointers and re-wrap.
func (c *TypeCtx) meetRaw(t, u Type, includeSpec bool) Type {
	if nt, ok := t.(*NarrowPtr); ok {
		if nu, ok := u.(*NarrowPtr); ok && nt.kind == nu.kind {
			return c.makeNarrowOf(nt.kind, c.meetRaw(nt.wrapped, nu.wrapped, includeSpec))
		}
	}
	tt := maybeRemoveSpeculative(c, t, includeSpec)
	uu := maybeRemoveSpeculative(c, u, includeSpec)
	return c.normalizeSpec(tt.xmeet(c, uu))
}

// normalizeSpec drops a speculative part that carries no more information
// than the type it hangs off.
func (c *TypeCtx) normalizeSpec(t Type) Type {
	p, ok := t.(ptrLike)
	if !ok || p.Speculative() == nil {
		return t
	}
	noSpec := p.removeSpec(c)
	if noSpec == p.Speculative() {
		return noSpec
	}
	return t
}

// specCarrier is implemented by every type that can hold a speculative
// pointer, including the narrow wrappers.
type specCarrier interface {
	removeSpec(c *TypeCtx) Type
}

func maybeRemoveSpeculative(c *TypeCtx, t Type, includeSpec bool) Type {
	if includeSpec {
		return t
	}
	return removeSpeculative(c, t)
}

func removeSpeculative(c *TypeCtx, t Type) Type {
	if sc, ok := t.(specCarrier); ok {
		return sc.removeSpec(c)
	}
	return t
}

// cleanupSpeculative trims a speculative part that can never pay off: a
// null pointer needs none, a speculative type above the centerline says
// nothing, and an inexact maybe-null speculation cannot be checked cheaply.
func (c *TypeCtx) cleanupSpeculative(t Type) Type {
	if n, ok := t.(*NarrowPtr); ok {
		inner := c.cleanupSpeculative(n.wrapped)
		if inner == n.wrapped {
			return t
		}
		return c.makeNarrowOf(n.kind, inner)
	}
	p, ok := t.(ptrLike)
	if !ok || p.Speculative() == nil {
		return t
	}
	noSpec := p.removeSpec(c)
	if noSpec == c.makePtrFull(Null, 0, nil, p.InlineDepth()) {
		return noSpec
	}
	spec := p.Speculative().(ptrLike)
	if aboveCenterline(spec.Ptr()) {
		return noSpec
	}
	specOop, isOop := p.Speculative().(oopLike)
	if spec.Ptr() != Null && spec.MaybeNull() && (!isOop || !specOop.Exact()) {
		return noSpec
	}
	return t
}

func (c *TypeCtx) filterHelper(t, kills Type, includeSpec bool) Type {
	if nt, ok := t.(*NarrowPtr); ok {
		if nk, ok := kills.(*NarrowPtr); ok && nt.kind == nk.kind {
			inner := c.filterHelper(nt.wrapped, nk.wrapped, includeSpec)
			if inner == Top {
				return Top
			}
			return c.makeNarrowOf(nt.kind, inner)
		}
	}
	ft := c.joinHelper(t, kills, includeSpec)
	if ft.Empty() {
		return Top
	}
	// a filter narrows the value range but must not discard widening
	// progress, or the surrounding fixpoint can cycle forever
	switch f := ft.(type) {
	case *Int:
		if ti, ok := t.(*Int); ok && f.widen < ti.widen {
			r := *f
			r.typeBase = typeBase{kind: KindInt}
			r.widen = ti.widen
			return c.intern(&r)
		}
	case *Long:
		if tl, ok := t.(*Long); ok && f.widen < tl.widen {
			r := *f
			r.typeBase = typeBase{kind: KindLong}
			r.widen = tl.widen
			return c.intern(&r)
		}
	}
	return ft
}
