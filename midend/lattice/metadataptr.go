package lattice

import (
	"fmt"
	"strings"

	"github.com/opal-lang/opal/midend/classes"
)

// MetadataPtr is a pointer to compiler metadata such as a method. md is
// the constant metadata when the pointer is Constant, nil otherwise.
type MetadataPtr struct {
	ptrBase
	md classes.Metadata
}

func (c *TypeCtx) makeMetadataPtr(ptr PTR, md classes.Metadata, off Offset) *MetadataPtr {
	return c.intern(&MetadataPtr{
		ptrBase: ptrBase{
			typeBase: typeBase{kind: KindMetadataPtr},
			ptr:      ptr, off: off, depth: InlineDepthBottom,
		},
		md: md,
	}).(*MetadataPtr)
}

// MakeMetadataCon builds the type of the metadata constant md.
func (c *TypeCtx) MakeMetadataCon(md classes.Metadata) *MetadataPtr {
	return c.makeMetadataPtr(Constant, md, 0)
}

func (m *MetadataPtr) Metadata() classes.Metadata { return m.md }

func (m *MetadataPtr) Singleton() bool {
	return m.off == 0 && !belowCenterline(m.ptr)
}

func (m *MetadataPtr) Hash() uint64 {
	h := hashMix(hashString("metadataptr"), m.hashPtr())
	if m.md != nil {
		h = hashMix(h, m.md.MetaHash())
	}
	return h
}

func (m *MetadataPtr) equals(t Type) bool {
	o, ok := t.(*MetadataPtr)
	return ok && m.eqPtr(&o.ptrBase) && m.md == o.md
}

func (m *MetadataPtr) xdual() Type {
	return &MetadataPtr{
		ptrBase: ptrBase{
			typeBase: typeBase{kind: KindMetadataPtr},
			ptr:      dualPTR(m.ptr), off: dualOffset(m.off), depth: m.depth,
		},
		md: m.md,
	}
}

func (m *MetadataPtr) removeSpec(c *TypeCtx) Type { return m }

func (m *MetadataPtr) xmeet(c *TypeCtx, t Type) Type {
	if Type(m) == t {
		return m
	}
	switch t.Kind() {
	case KindInt, KindLong,
		KindHalfFloatTop, KindHalfFloatCon, KindHalfFloatBot,
		KindFloatTop, KindFloatCon, KindFloatBot,
		KindDoubleTop, KindDoubleCon, KindDoubleBot,
		KindNarrowOop, KindNarrowKlass,
		KindControl, KindAbio, KindMemory, KindHalf, KindReturnAddress:
		return Bottom

	case KindRawPtr, KindOopPtr, KindInstPtr, KindAryPtr,
		KindInstKlassPtr, KindAryKlassPtr:
		return PtrBottom

	case KindAnyPtr:
		tp := t.(*Ptr)
		off := meetOffset(m.off, tp.off)
		pm := meetPTR(m.ptr, tp.ptr)
		switch tp.ptr {
		case TopPTR:
			return m
		case Null:
			if pm == Null {
				return c.makePtrFull(pm, off, tp.spec, tp.depth)
			}
			fallthrough
		case AnyNull:
			return c.makeMetadataPtr(pm, m.md, off)
		case BotPTR, NotNull:
			return c.makePtrFull(pm, off, tp.spec, tp.depth)
		}
		typerr(m, t)

	case KindMetadataPtr:
		tp := t.(*MetadataPtr)
		off := meetOffset(m.off, tp.off)
		pm := meetPTR(m.ptr, tp.ptr)
		md := tp.md
		if tp.ptr == TopPTR {
			md = m.md
		}
		if m.ptr == TopPTR || tp.ptr == TopPTR || m.md == tp.md || md == nil {
			return c.makeMetadataPtr(pm, md, off)
		}
		if pm == Constant {
			// two different metadata constants cannot stay constant
			if tp.ptr == Constant && m.ptr != Constant {
				return tp
			}
			if m.ptr == Constant && tp.ptr != Constant {
				return m
			}
			pm = NotNull
		}
		return c.makeMetadataPtr(pm, nil, off)

	case KindBottom:
		return Bottom
	case KindTop:
		return m
	}
	typerr(m, t)
	return nil
}

// WithOffset replaces the offset.
func (m *MetadataPtr) WithOffset(c *TypeCtx, off Offset) *MetadataPtr {
	return c.makeMetadataPtr(m.ptr, m.md, off)
}

// AddOffset shifts the offset by delta.
func (m *MetadataPtr) AddOffset(c *TypeCtx, delta int64) *MetadataPtr {
	return m.WithOffset(c, addOffset(m.off, delta))
}

func (m *MetadataPtr) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "metadata:%s", m.ptr)
	if m.md != nil {
		fmt.Fprintf(&b, "=%s", m.md.MetaName())
	}
	b.WriteString(m.off.String())
	return b.String()
}
