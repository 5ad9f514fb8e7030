package lattice

import (
	"fmt"
	"math"
)

// FloatCon is a single 32 bit float constant. Constants are compared by
// bit pattern, so +0.0 and -0.0 are distinct types and a NaN constant is
// equal to itself.
type FloatCon struct {
	typeBase
	bits uint32
}

// MakeFloatCon builds the constant f.
func (c *TypeCtx) MakeFloatCon(f float32) *FloatCon {
	return c.intern(&FloatCon{
		typeBase: typeBase{kind: KindFloatCon},
		bits:     math.Float32bits(f),
	}).(*FloatCon)
}

func (f *FloatCon) GetCon() float32 { return math.Float32frombits(f.bits) }

func (f *FloatCon) Bits() uint32 { return f.bits }

func (f *FloatCon) IsNaN() bool {
	v := f.GetCon()
	return v != v
}

func (f *FloatCon) Singleton() bool { return true }

func (f *FloatCon) Empty() bool { return false }

func (f *FloatCon) Hash() uint64 {
	return hashMix(hashString("fcon"), uint64(f.bits))
}

func (f *FloatCon) equals(t Type) bool {
	o, ok := t.(*FloatCon)
	return ok && f.bits == o.bits
}

// constants are self-dual
func (f *FloatCon) xdual() Type {
	d := *f
	d.typeBase = typeBase{kind: KindFloatCon}
	return &d
}

func (f *FloatCon) xmeet(c *TypeCtx, t Type) Type {
	if Type(f) == t {
		return f
	}
	switch t.Kind() {
	case KindAnyPtr, KindRawPtr, KindOopPtr, KindInstPtr, KindAryPtr,
		KindMetadataPtr, KindInstKlassPtr, KindAryKlassPtr,
		KindNarrowOop, KindNarrowKlass,
		KindControl, KindAbio, KindMemory, KindHalf, KindReturnAddress,
		KindInt, KindLong,
		KindHalfFloatTop, KindHalfFloatCon, KindHalfFloatBot,
		KindDoubleTop, KindDoubleCon, KindDoubleBot,
		KindBottom:
		return Bottom
	case KindFloatBot:
		return FloatBot
	case KindFloatCon:
		// two distinct constants fall to the family bottom
		return FloatBot
	case KindFloatTop, KindTop:
		return f
	}
	typerr(f, t)
	return nil
}

func (f *FloatCon) String() string {
	return fmt.Sprintf("float:%v", f.GetCon())
}

// DoubleCon is a single 64 bit float constant.
type DoubleCon struct {
	typeBase
	bits uint64
}

// MakeDoubleCon builds the constant d.
func (c *TypeCtx) MakeDoubleCon(d float64) *DoubleCon {
	return c.intern(&DoubleCon{
		typeBase: typeBase{kind: KindDoubleCon},
		bits:     math.Float64bits(d),
	}).(*DoubleCon)
}

func (d *DoubleCon) GetCon() float64 { return math.Float64frombits(d.bits) }

func (d *DoubleCon) Bits() uint64 { return d.bits }

func (d *DoubleCon) IsNaN() bool {
	v := d.GetCon()
	return v != v
}

func (d *DoubleCon) Singleton() bool { return true }

func (d *DoubleCon) Empty() bool { return false }

func (d *DoubleCon) Hash() uint64 {
	return hashMix(hashString("dcon"), d.bits)
}

func (d *DoubleCon) equals(t Type) bool {
	o, ok := t.(*DoubleCon)
	return ok && d.bits == o.bits
}

func (d *DoubleCon) xdual() Type {
	dd := *d
	dd.typeBase = typeBase{kind: KindDoubleCon}
	return &dd
}

func (d *DoubleCon) xmeet(c *TypeCtx, t Type) Type {
	if Type(d) == t {
		return d
	}
	switch t.Kind() {
	case KindAnyPtr, KindRawPtr, KindOopPtr, KindInstPtr, KindAryPtr,
		KindMetadataPtr, KindInstKlassPtr, KindAryKlassPtr,
		KindNarrowOop, KindNarrowKlass,
		KindControl, KindAbio, KindMemory, KindHalf, KindReturnAddress,
		KindInt, KindLong,
		KindHalfFloatTop, KindHalfFloatCon, KindHalfFloatBot,
		KindFloatTop, KindFloatCon, KindFloatBot,
		KindBottom:
		return Bottom
	case KindDoubleBot, KindDoubleCon:
		return DoubleBot
	case KindDoubleTop, KindTop:
		return d
	}
	typerr(d, t)
	return nil
}

func (d *DoubleCon) String() string {
	return fmt.Sprintf("double:%v", d.GetCon())
}

// HalfCon is a single 16 bit float constant, stored as its raw encoding.
type HalfCon struct {
	typeBase
	bits uint16
}

// MakeHalfCon builds the half float constant with the given encoding.
func (c *TypeCtx) MakeHalfCon(bits uint16) *HalfCon {
	return c.intern(&HalfCon{
		typeBase: typeBase{kind: KindHalfFloatCon},
		bits:     bits,
	}).(*HalfCon)
}

func (h *HalfCon) Bits() uint16 { return h.bits }

// GetCon widens the half constant to float32.
func (h *HalfCon) GetCon() float32 { return halfToFloat(h.bits) }

func (h *HalfCon) IsNaN() bool {
	v := h.GetCon()
	return v != v
}

func (h *HalfCon) Singleton() bool { return true }

func (h *HalfCon) Empty() bool { return false }

func (h *HalfCon) Hash() uint64 {
	return hashMix(hashString("hfcon"), uint64(h.bits))
}

func (h *HalfCon) equals(t Type) bool {
	o, ok := t.(*HalfCon)
	return ok && h.bits == o.bits
}

func (h *HalfCon) xdual() Type {
	d := *h
	d.typeBase = typeBase{kind: KindHalfFloatCon}
	return &d
}

func (h *HalfCon) xmeet(c *TypeCtx, t Type) Type {
	if Type(h) == t {
		return h
	}
	switch t.Kind() {
	case KindAnyPtr, KindRawPtr, KindOopPtr, KindInstPtr, KindAryPtr,
		KindMetadataPtr, KindInstKlassPtr, KindAryKlassPtr,
		KindNarrowOop, KindNarrowKlass,
		KindControl, KindAbio, KindMemory, KindHalf, KindReturnAddress,
		KindInt, KindLong,
		KindFloatTop, KindFloatCon, KindFloatBot,
		KindDoubleTop, KindDoubleCon, KindDoubleBot,
		KindBottom:
		return Bottom
	case KindHalfFloatBot, KindHalfFloatCon:
		return HalfFloatBot
	case KindHalfFloatTop, KindTop:
		return h
	}
	typerr(h, t)
	return nil
}

func (h *HalfCon) String() string {
	return fmt.Sprintf("hfloat:%v", h.GetCon())
}

// halfToFloat decodes an IEEE 754 binary16 value.
func halfToFloat(bits uint16) float32 {
	sign := uint32(bits>>15) << 31
	exp := uint32(bits>>10) & 0x1f
	frac := uint32(bits) & 0x3ff
	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// subnormal: normalize into the float32 exponent range
		e := uint32(127 - 15 + 1)
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		return math.Float32frombits(sign | e<<23 | (frac&0x3ff)<<13)
	case 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | frac<<13)
	}
	return math.Float32frombits(sign | (exp+127-15)<<23 | frac<<13)
}
