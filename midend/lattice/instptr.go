package lattice

import (
	"fmt"
	"strings"

	"github.com/opal-lang/opal/midend/classes"
)

// InstPtr is a pointer to a (non-array) object instance: a class bound
// with an interface set, optional exactness, an optional constant object
// and an optional allocation identity.
type InstPtr struct {
	oopBase
	itfs *Interfaces
}

func (c *TypeCtx) makeInstPtr(ptr PTR, klass *classes.Class, itfs *Interfaces, xk bool,
	oop *classes.Ref, off Offset, iid int32, spec Type, depth int32) *InstPtr {
	return c.intern(&InstPtr{
		oopBase: oopBase{
			ptrBase: ptrBase{
				typeBase: typeBase{kind: KindInstPtr},
				ptr:      ptr, off: off, spec: spec, depth: depth,
			},
			klass: klass, xk: xk, oop: oop, iid: iid,
		},
		itfs: itfs,
	}).(*InstPtr)
}

// MakeInstPtr builds the type of a possibly-null pointer to k. An
// interface bound lives in the interface set; its instance class is the
// root class.
func (c *TypeCtx) MakeInstPtr(ptr PTR, k *classes.Class) *InstPtr {
	itfs := c.interfacesOf(k)
	if k.IsInterface() {
		k = c.hier.Object
	}
	return c.makeInstPtr(ptr, k, itfs, false, nil, 0, InstanceBot, nil, InlineDepthBottom)
}

// MakeInstCon builds the type of the constant object ref. A constant's
// class is exact.
func (c *TypeCtx) MakeInstCon(ref *classes.Ref) *InstPtr {
	return c.makeInstPtr(Constant, ref.Class, c.interfacesOf(ref.Class), true,
		ref, 0, InstanceBot, nil, InlineDepthBottom)
}

// Itfs returns the interface set of the bound.
func (i *InstPtr) Itfs() *Interfaces { return i.itfs }

func (i *InstPtr) Hash() uint64 {
	return hashMix(hashMix(hashString("instptr"), i.hashOop()), i.itfs.Hash())
}

func (i *InstPtr) equals(t Type) bool {
	o, ok := t.(*InstPtr)
	return ok && i.eqOop(&o.oopBase) && i.itfs == o.itfs
}

// the class bound does not dual; only nullability, offset, identity and
// speculation flip around the centerline
func (i *InstPtr) xdual() Type {
	spec, depth := i.dualSpecDepth()
	return &InstPtr{
		oopBase: oopBase{
			ptrBase: ptrBase{
				typeBase: typeBase{kind: KindInstPtr},
				ptr:      dualPTR(i.ptr), off: dualOffset(i.off), spec: spec, depth: depth,
			},
			klass: i.klass, xk: i.xk, oop: i.oop, iid: dualInstanceID(i.iid),
		},
		itfs: i.itfs,
	}
}

func (i *InstPtr) removeSpec(c *TypeCtx) Type {
	if i.spec == nil {
		return i
	}
	return c.makeInstPtr(i.ptr, i.klass, i.itfs, i.xk, i.oop, i.off, i.iid, nil, i.depth)
}

func (i *InstPtr) xmeet(c *TypeCtx, t Type) Type {
	if Type(i) == t {
		return i
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

	case KindAryPtr:
		return t.xmeet(c, i)

	case KindOopPtr:
		tp := t.(*OopPtr)
		off := meetOffset(i.off, tp.off)
		pm := meetPTR(i.ptr, tp.ptr)
		spec := xmeetSpeculative(c, i, tp)
		depth := meetInlineDepth(i.depth, tp.depth)
		switch tp.ptr {
		case TopPTR, AnyNull:
			var o *classes.Ref
			if pm == Constant {
				o = i.oop
			}
			iid := meetInstanceID(i.iid, InstanceTop)
			return c.makeInstPtr(pm, i.klass, i.itfs, i.xk, o, off, iid, spec, depth)
		case NotNull, BotPTR:
			iid := meetInstanceID(i.iid, tp.iid)
			return c.makeOopPtr(pm, off, iid, spec, depth)
		}
		typerr(i, t)

	case KindAnyPtr:
		tp := t.(*Ptr)
		off := meetOffset(i.off, tp.off)
		pm := meetPTR(i.ptr, tp.ptr)
		iid := meetInstanceID(i.iid, InstanceTop)
		spec := xmeetSpeculative(c, i, tp)
		depth := meetInlineDepth(i.depth, tp.depth)
		switch tp.ptr {
		case Null:
			if pm == Null {
				return c.makePtrFull(pm, off, spec, depth)
			}
			fallthrough
		case TopPTR, AnyNull:
			var o *classes.Ref
			if pm == Constant {
				o = i.oop
			}
			return c.makeInstPtr(pm, i.klass, i.itfs, i.xk, o, off, iid, spec, depth)
		case NotNull, BotPTR:
			return c.makePtrFull(pm, off, spec, depth)
		}
		typerr(i, t)

	case KindInstPtr:
		tinst := t.(*InstPtr)
		itfs := meetInterfaces(c, i.ptr, tinst.ptr, i.itfs, tinst.itfs)
		off := meetOffset(i.off, tinst.off)
		pm := meetPTR(i.ptr, tinst.ptr)
		iid := meetInstanceID(i.iid, tinst.iid)
		spec := xmeetSpeculative(c, i, tinst)
		depth := meetInlineDepth(i.depth, tinst.depth)

		r := meetInstParts(c, pm, itfs,
			meetSide{ptr: i.ptr, klass: i.klass, itfs: i.itfs, xk: i.xk},
			meetSide{ptr: tinst.ptr, klass: tinst.klass, itfs: tinst.itfs, xk: tinst.xk})
		if r.kind == meetUnloaded {
			return i.xmeetUnloaded(c, tinst, spec)
		}
		pm, itfs = r.ptr, r.itfs
		if (r.kind == meetNotSubtype && iid > 0) || r.kind == meetLCA {
			iid = InstanceBot
		}

		var o *classes.Ref
		if pm == Constant {
			switch {
			case i.oop != nil && tinst.oop != nil && i.oop == tinst.oop:
				o = i.oop
			case aboveCenterline(i.ptr):
				o = tinst.oop
			case aboveCenterline(tinst.ptr):
				o = i.oop
			default:
				pm = NotNull
			}
		}
		return c.makeInstPtr(pm, r.klass, itfs, r.xk, o, off, iid, spec, depth)

	case KindBottom:
		return Bottom
	case KindTop:
		return i
	}
	typerr(i, t)
	return nil
}

// xmeetUnloaded handles meets where at least one class bound has not been
// loaded. Subtype questions cannot be answered, so the result falls to
// the most conservative instance type the nullabilities allow.
func (i *InstPtr) xmeetUnloaded(c *TypeCtx, o *InstPtr, spec Type) Type {
	off := meetOffset(i.off, o.off)
	pm := meetPTR(i.ptr, o.ptr)
	iid := meetInstanceID(i.iid, o.iid)
	depth := meetInlineDepth(i.depth, o.depth)
	itfs := meetInterfaces(c, i.ptr, o.ptr, i.itfs, o.itfs)

	loaded, unloaded := i, o
	if !loaded.klass.Loaded() {
		loaded, unloaded = o, i
	}
	if loaded.klass.Loaded() && !unloaded.klass.Loaded() && loaded.klass == c.hier.Object {
		// only the root class keeps the unloaded side alive
		switch loaded.ptr {
		case TopPTR:
			return unloaded.WithSpeculative(c, spec)
		case AnyNull:
			return c.makeInstPtr(pm, unloaded.klass, itfs, false, nil, off, iid, spec, depth)
		case BotPTR:
			return c.InstBottom.WithSpeculative(c, spec)
		case Constant, NotNull:
			if unloaded.ptr == BotPTR {
				return c.InstBottom.WithSpeculative(c, spec)
			}
			return c.InstNotNull.WithSpeculative(c, spec)
		}
		if unloaded.ptr == TopPTR {
			return unloaded.WithSpeculative(c, spec)
		}
		return unloaded.CastToPtrType(c, AnyNull).WithSpeculative(c, spec)
	}

	// both sides unloaded, or the loaded side is a real class; only the
	// nullability survives
	if pm != BotPTR {
		return c.InstNotNull.WithSpeculative(c, spec)
	}
	return c.InstBottom.WithSpeculative(c, spec)
}

// WithSpeculative replaces the speculative part.
func (i *InstPtr) WithSpeculative(c *TypeCtx, spec Type) *InstPtr {
	if spec == i.spec {
		return i
	}
	return c.makeInstPtr(i.ptr, i.klass, i.itfs, i.xk, i.oop, i.off, i.iid, spec, i.depth)
}

// WithInlineDepth records how deep in the inlining chain the speculation
// was observed.
func (i *InstPtr) WithInlineDepth(c *TypeCtx, depth int32) *InstPtr {
	if i.spec == nil || depth == i.depth {
		return i
	}
	return c.makeInstPtr(i.ptr, i.klass, i.itfs, i.xk, i.oop, i.off, i.iid, i.spec, depth)
}

// CastToPtrType replaces the nullability state. Leaving Constant drops
// the constant object.
func (i *InstPtr) CastToPtrType(c *TypeCtx, ptr PTR) *InstPtr {
	if ptr == i.ptr {
		return i
	}
	oop := i.oop
	if ptr != Constant {
		oop = nil
	}
	return c.makeInstPtr(ptr, i.klass, i.itfs, i.xk, oop, i.off, i.iid, i.spec, i.depth)
}

// CastToExactness pins or releases the class bound.
func (i *InstPtr) CastToExactness(c *TypeCtx, exact bool) *InstPtr {
	if exact == i.xk {
		return i
	}
	return c.makeInstPtr(i.ptr, i.klass, i.itfs, exact, i.oop, i.off, i.iid, i.spec, i.depth)
}

// CastToInstanceID pins the type to one allocation site.
func (i *InstPtr) CastToInstanceID(c *TypeCtx, iid int32) *InstPtr {
	if iid == i.iid {
		return i
	}
	return c.makeInstPtr(i.ptr, i.klass, i.itfs, i.xk, i.oop, i.off, iid, i.spec, i.depth)
}

// WithOffset replaces the offset.
func (i *InstPtr) WithOffset(c *TypeCtx, off Offset) *InstPtr {
	return c.makeInstPtr(i.ptr, i.klass, i.itfs, i.xk, i.oop, off, i.iid, i.spec, i.depth)
}

// AddOffset shifts the offset by delta.
func (i *InstPtr) AddOffset(c *TypeCtx, delta int64) *InstPtr {
	return i.WithOffset(c, addOffset(i.off, delta))
}

// AsKlassType is the type of this instance's class word. When tryForExact
// is set and the hierarchy shows no subclass, the bound is promoted to
// exact.
func (i *InstPtr) AsKlassType(c *TypeCtx, tryForExact bool) *InstKlassPtr {
	xk := i.xk
	if !xk && tryForExact && i.klass.Loaded() && !i.klass.IsInterface() && !i.klass.HasSubclasses() {
		xk = true
	}
	ptr := NotNull
	if xk {
		ptr = Constant
	}
	return c.makeInstKlassPtr(ptr, i.klass, i.itfs, 0)
}

func (i *InstPtr) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "inst:%s", i.klass.Name())
	if !i.itfs.isEmpty() {
		b.WriteString(i.itfs.String())
	}
	fmt.Fprintf(&b, ":%s", i.ptr)
	if i.ptr == Constant && i.oop != nil {
		fmt.Fprintf(&b, "=%s", i.oop.Label)
	}
	if i.xk {
		b.WriteString(":exact")
	}
	i.oopSuffix(&b)
	return b.String()
}
