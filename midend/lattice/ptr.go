package lattice

import (
	"fmt"
	"math"
	"strings"

	"github.com/opal-lang/opal/midend/classes"
)

// PTR is the nullability and centerline state of a pointer type. TopPTR
// and AnyNull sit above the centerline, NotNull and BotPTR below;
// Constant and Null are the singletons on it.
type PTR uint8

const (
	TopPTR PTR = iota
	AnyNull
	Constant
	Null
	NotNull
	BotPTR
	ptrLimit
)

var ptrNames = [ptrLimit]string{"top", "anynull", "con", "null", "notnull", "bot"}

func (p PTR) String() string { return ptrNames[p] }

// ptrMeetTable encodes the six point nullability lattice.
var ptrMeetTable = [ptrLimit][ptrLimit]PTR{
	TopPTR:   {TopPTR, AnyNull, Constant, Null, NotNull, BotPTR},
	AnyNull:  {AnyNull, AnyNull, Constant, BotPTR, NotNull, BotPTR},
	Constant: {Constant, Constant, Constant, BotPTR, NotNull, BotPTR},
	Null:     {Null, BotPTR, BotPTR, Null, BotPTR, BotPTR},
	NotNull:  {NotNull, NotNull, NotNull, BotPTR, NotNull, BotPTR},
	BotPTR:   {BotPTR, BotPTR, BotPTR, BotPTR, BotPTR, BotPTR},
}

var ptrDualTable = [ptrLimit]PTR{BotPTR, NotNull, Constant, Null, AnyNull, TopPTR}

func meetPTR(a, b PTR) PTR { return ptrMeetTable[a][b] }

func dualPTR(p PTR) PTR { return ptrDualTable[p] }

func aboveCenterline(p PTR) bool { return p == TopPTR || p == AnyNull }

func belowCenterline(p PTR) bool { return p == NotNull || p == BotPTR }

// Offset is a byte offset into the pointed-at object, with a top and a
// bottom so offsets form their own small lattice.
type Offset int32

const (
	OffsetTop Offset = math.MinInt32 + 1
	OffsetBot Offset = math.MinInt32
)

func meetOffset(a, b Offset) Offset {
	if a == OffsetTop {
		return b
	}
	if b == OffsetTop {
		return a
	}
	if a == b {
		return a
	}
	return OffsetBot
}

func dualOffset(o Offset) Offset {
	switch o {
	case OffsetTop:
		return OffsetBot
	case OffsetBot:
		return OffsetTop
	}
	return o
}

// addOffset shifts a known offset by delta, falling to OffsetBot when the
// sum leaves the representable range.
func addOffset(o Offset, delta int64) Offset {
	switch o {
	case OffsetTop:
		return OffsetTop
	case OffsetBot:
		return OffsetBot
	}
	s := int64(o) + delta
	if s <= int64(OffsetTop) || s > math.MaxInt32 {
		return OffsetBot
	}
	return Offset(s)
}

func (o Offset) String() string {
	switch o {
	case OffsetTop:
		return "+top"
	case OffsetBot:
		return "+bot"
	}
	return fmt.Sprintf("+%d", int32(o))
}

// Instance ids tie an oop type to one allocation site. InstanceTop is
// "any single allocation, unknown which", InstanceBot is "possibly many".
const (
	InstanceTop int32 = -1
	InstanceBot int32 = 0
)

func meetInstanceID(a, b int32) int32 {
	if a == InstanceBot || b == InstanceBot {
		return InstanceBot
	}
	if a == InstanceTop {
		return b
	}
	if b == InstanceTop {
		return a
	}
	if a == b {
		return a
	}
	return InstanceBot
}

func dualInstanceID(id int32) int32 {
	switch id {
	case InstanceTop:
		return InstanceBot
	case InstanceBot:
		return InstanceTop
	}
	return id
}

// Inline depth records how deep in an inlining chain a speculative type
// was observed. Deeper is weaker, so meet takes the maximum.
const (
	InlineDepthBottom int32 = math.MaxInt32
	InlineDepthTop    int32 = -InlineDepthBottom
)

func meetInlineDepth(a, b int32) int32 { return max(a, b) }

func dualInlineDepth(d int32) int32 { return -d }

// ptrLike is the surface common to the whole pointer family, narrow
// wrappers excluded.
type ptrLike interface {
	Type
	Ptr() PTR
	Offset() Offset
	Speculative() Type
	InlineDepth() int32
	MaybeNull() bool
	removeSpec(c *TypeCtx) Type
}

// oopLike adds what the heap pointer types know beyond ptrLike.
type oopLike interface {
	ptrLike
	Klass() *classes.Class
	Exact() bool
	InstanceID() int32
	ConstOop() *classes.Ref
}

// ptrBase carries the fields every pointer type shares.
type ptrBase struct {
	typeBase
	ptr   PTR
	off   Offset
	spec  Type
	depth int32
}

func (p *ptrBase) Ptr() PTR { return p.ptr }

func (p *ptrBase) Offset() Offset { return p.off }

func (p *ptrBase) Speculative() Type { return p.spec }

func (p *ptrBase) InlineDepth() int32 { return p.depth }

// MaybeNull reports whether null is in the set. Constant pointers are
// never the null constant; that one is PTR Null itself.
func (p *ptrBase) MaybeNull() bool { return p.ptr != Constant && p.ptr != NotNull }

func (p *ptrBase) Singleton() bool {
	return p.off != OffsetBot && !belowCenterline(p.ptr)
}

func (p *ptrBase) Empty() bool {
	return p.off == OffsetTop || aboveCenterline(p.ptr)
}

func (p *ptrBase) hashPtr() uint64 {
	h := hashMix(uint64(p.ptr), uint64(uint32(p.off)))
	if p.spec != nil {
		h = hashMix(h, p.spec.Hash())
	}
	return hashMix(h, uint64(uint32(p.depth)))
}

func (p *ptrBase) eqPtr(o *ptrBase) bool {
	return p.ptr == o.ptr && p.off == o.off && p.spec == o.spec && p.depth == o.depth
}

func (p *ptrBase) dualSpecDepth() (Type, int32) {
	return dualSpeculative(p.spec), dualInlineDepth(p.depth)
}

func dualSpeculative(spec Type) Type {
	if spec == nil {
		return nil
	}
	return spec.Dual()
}

// xmeetSpeculative meets the speculative parts of two pointers. A side
// without one contributes its full type, so a speculation survives only
// while it refines whatever it is attached to.
func xmeetSpeculative(c *TypeCtx, a, b ptrLike) Type {
	sa, sb := a.Speculative(), b.Speculative()
	if sa == nil && sb == nil {
		return nil
	}
	if sa == nil {
		sa = a.removeSpec(c)
	}
	if sb == nil {
		sb = b.removeSpec(c)
	}
	return c.MeetSpeculative(sa, sb)
}

func specString(b *strings.Builder, spec Type, depth int32) {
	if spec != nil {
		fmt.Fprintf(b, " (spec=%s", spec)
		if depth != InlineDepthBottom {
			fmt.Fprintf(b, " depth=%d", depth)
		}
		b.WriteByte(')')
	}
}

func isNarrowKind(k Kind) bool { return k == KindNarrowOop || k == KindNarrowKlass }

// Ptr is a pointer about which nothing but nullability and offset is
// known. It is the top of the pointer sub-lattice below Type top.
type Ptr struct {
	ptrBase
}

// MakePtr builds a bare pointer type.
func (c *TypeCtx) MakePtr(ptr PTR, off Offset) *Ptr {
	return c.makePtrFull(ptr, off, nil, InlineDepthBottom)
}

func (c *TypeCtx) makePtrFull(ptr PTR, off Offset, spec Type, depth int32) *Ptr {
	return c.intern(&Ptr{ptrBase{
		typeBase: typeBase{kind: KindAnyPtr},
		ptr:      ptr, off: off, spec: spec, depth: depth,
	}}).(*Ptr)
}

func (p *Ptr) Hash() uint64 {
	return hashMix(hashString("anyptr"), p.hashPtr())
}

func (p *Ptr) equals(t Type) bool {
	o, ok := t.(*Ptr)
	return ok && p.eqPtr(&o.ptrBase)
}

func (p *Ptr) xdual() Type {
	spec, depth := p.dualSpecDepth()
	return &Ptr{ptrBase{
		typeBase: typeBase{kind: KindAnyPtr},
		ptr:      dualPTR(p.ptr), off: dualOffset(p.off), spec: spec, depth: depth,
	}}
}

func (p *Ptr) removeSpec(c *TypeCtx) Type {
	if p.spec == nil {
		return p
	}
	return c.makePtrFull(p.ptr, p.off, nil, p.depth)
}

func (p *Ptr) xmeet(c *TypeCtx, t Type) Type {
	if Type(p) == t {
		return p
	}
	switch t.Kind() {
	case KindInt, KindLong,
		KindHalfFloatTop, KindHalfFloatCon, KindHalfFloatBot,
		KindFloatTop, KindFloatCon, KindFloatBot,
		KindDoubleTop, KindDoubleCon, KindDoubleBot,
		KindControl, KindAbio, KindMemory, KindHalf, KindReturnAddress:
		return Bottom
	case KindRawPtr, KindOopPtr, KindInstPtr, KindAryPtr,
		KindMetadataPtr, KindInstKlassPtr, KindAryKlassPtr,
		KindNarrowOop, KindNarrowKlass, KindBottom:
		return t.xmeet(c, p)
	case KindAnyPtr:
		o := t.(*Ptr)
		return c.makePtrFull(
			meetPTR(p.ptr, o.ptr),
			meetOffset(p.off, o.off),
			xmeetSpeculative(c, p, o),
			meetInlineDepth(p.depth, o.depth),
		)
	case KindTop:
		return p
	}
	typerr(p, t)
	return nil
}

// WithOffset replaces the offset.
func (p *Ptr) WithOffset(c *TypeCtx, off Offset) *Ptr {
	return c.makePtrFull(p.ptr, off, p.spec, p.depth)
}

// AddOffset shifts the offset by delta.
func (p *Ptr) AddOffset(c *TypeCtx, delta int64) *Ptr {
	return c.makePtrFull(p.ptr, addOffset(p.off, delta), p.spec, p.depth)
}

// CastToPtrType replaces the nullability state.
func (p *Ptr) CastToPtrType(c *TypeCtx, ptr PTR) *Ptr {
	if ptr == p.ptr {
		return p
	}
	return c.makePtrFull(ptr, p.off, p.spec, p.depth)
}

// WithSpeculative attaches a speculative type observed by profiling.
func (p *Ptr) WithSpeculative(c *TypeCtx, spec Type) *Ptr {
	return c.makePtrFull(p.ptr, p.off, spec, p.depth)
}

// WithInlineDepth records the inlining depth of the speculation.
func (p *Ptr) WithInlineDepth(c *TypeCtx, depth int32) *Ptr {
	if p.spec == nil {
		return p
	}
	return c.makePtrFull(p.ptr, p.off, p.spec, depth)
}

func (p *Ptr) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ptr:%s%s", p.ptr, p.off)
	specString(&b, p.spec, p.depth)
	return b.String()
}
