package lattice

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Widening counter bounds. A type at WidenMax stops creeping and jumps
// straight to a saturated range, which caps how long an optimistic
// fixpoint can keep producing new integer types.
const (
	WidenMin uint8 = 0
	WidenMax uint8 = 3
)

// smallIntRange is the slop allowed before a narrowing is considered a
// death march and rejected.
const smallIntRange = 3

// Int is a set of 32 bit integers: a signed range, an unsigned range and
// known bits, all tight against each other. Above the centerline the same
// fields describe the dual set and IsDual reports true; meets of duals
// intersect where ordinary meets unite.
type Int struct {
	typeBase
	Lo, Hi      int32
	ULo, UHi    uint32
	Zeros, Ones uint32
	widen       uint8
	isDual      bool
}

// makeIntOr canonicalizes and interns, collapsing an empty set to Top (or
// to Bottom above the centerline).
func (c *TypeCtx) makeIntOr(p intProto[int32, uint32], widen uint8, dual bool) Type {
	q, ok := canonicalize(p)
	if !ok {
		if dual {
			return Bottom
		}
		return Top
	}
	if q.lo == q.hi {
		widen = WidenMin
	}
	return c.intern(&Int{
		typeBase: typeBase{kind: KindInt},
		Lo:       q.lo, Hi: q.hi,
		ULo: q.ulo, UHi: q.uhi,
		Zeros: q.zeros, Ones: q.ones,
		widen:  widen,
		isDual: dual,
	})
}

// MakeInt builds the type of all ints in [lo, hi]. An inverted range is
// empty and yields Top.
func (c *TypeCtx) MakeInt(lo, hi int32, widen uint8) Type {
	return c.makeIntOr(intProto[int32, uint32]{lo: lo, hi: hi, ulo: 0, uhi: math.MaxUint32}, widen, false)
}

// MakeIntFull builds an int type from all three constraint views at once.
func (c *TypeCtx) MakeIntFull(lo, hi int32, ulo, uhi, zeros, ones uint32, widen uint8) Type {
	return c.makeIntOr(intProto[int32, uint32]{lo: lo, hi: hi, ulo: ulo, uhi: uhi, zeros: zeros, ones: ones}, widen, false)
}

// IntCon builds the constant v.
func (c *TypeCtx) IntCon(v int32) *Int {
	return c.MakeInt(v, v, WidenMin).(*Int)
}

func (i *Int) IsDual() bool { return i.isDual }

func (i *Int) Widen8() uint8 { return i.widen }

// IsCon reports whether the type is a single constant.
func (i *Int) IsCon() bool { return i.Lo == i.Hi }

// GetCon returns the constant value; the type must be a constant.
func (i *Int) GetCon() int32 {
	if !i.IsCon() {
		panic(errors.Errorf("%s is not a constant", i))
	}
	return i.Lo
}

// Contains reports whether v satisfies every constraint of the set.
func (i *Int) Contains(v int32) bool {
	u := uint32(v)
	return i.Lo <= v && v <= i.Hi &&
		i.ULo <= u && u <= i.UHi &&
		u&i.Zeros == 0 && u&i.Ones == i.Ones
}

func (i *Int) Singleton() bool { return i.Lo == i.Hi }

func (i *Int) Empty() bool { return false }

func (i *Int) Hash() uint64 {
	h := hashString("int")
	h = hashMix(h, uint64(uint32(i.Lo)))
	h = hashMix(h, uint64(uint32(i.Hi)))
	h = hashMix(h, uint64(i.ULo))
	h = hashMix(h, uint64(i.UHi))
	h = hashMix(h, uint64(i.Zeros))
	h = hashMix(h, uint64(i.Ones))
	h = hashMix(h, uint64(i.widen))
	if i.isDual {
		h = hashMix(h, 1)
	}
	return h
}

func (i *Int) equals(t Type) bool {
	o, ok := t.(*Int)
	return ok && i.Lo == o.Lo && i.Hi == o.Hi &&
		i.ULo == o.ULo && i.UHi == o.UHi &&
		i.Zeros == o.Zeros && i.Ones == o.Ones &&
		i.widen == o.widen && i.isDual == o.isDual
}

func (i *Int) xdual() Type {
	d := *i
	d.typeBase = typeBase{kind: KindInt}
	d.isDual = !i.isDual
	return &d
}

func (i *Int) xmeet(c *TypeCtx, t Type) Type {
	if Type(i) == t {
		return i
	}
	switch t.Kind() {
	case KindAnyPtr, KindRawPtr, KindOopPtr, KindInstPtr, KindAryPtr,
		KindMetadataPtr, KindInstKlassPtr, KindAryKlassPtr,
		KindNarrowOop, KindNarrowKlass,
		KindControl, KindAbio, KindMemory, KindHalf, KindReturnAddress,
		KindLong,
		KindHalfFloatTop, KindHalfFloatCon, KindHalfFloatBot,
		KindFloatTop, KindFloatCon, KindFloatBot,
		KindDoubleTop, KindDoubleCon, KindDoubleBot,
		KindBottom:
		return Bottom
	case KindTop:
		return i
	case KindInt:
	default:
		typerr(i, t)
	}
	o := t.(*Int)
	if i.isDual != o.isDual {
		panic(errors.Errorf("meet of dual and non-dual int types %s and %s", i, o))
	}
	if !i.isDual {
		return c.makeIntOr(intProto[int32, uint32]{
			lo: min(i.Lo, o.Lo), hi: max(i.Hi, o.Hi),
			ulo: min(i.ULo, o.ULo), uhi: max(i.UHi, o.UHi),
			zeros: i.Zeros & o.Zeros, ones: i.Ones & o.Ones,
		}, max(i.widen, o.widen), false)
	}
	// above the centerline the meet intersects
	return c.makeIntOr(intProto[int32, uint32]{
		lo: max(i.Lo, o.Lo), hi: min(i.Hi, o.Hi),
		ulo: max(i.ULo, o.ULo), uhi: min(i.UHi, o.UHi),
		zeros: i.Zeros | o.Zeros, ones: i.Ones | o.Ones,
	}, min(i.widen, o.widen), true)
}

// Widen grows this type towards old, bumping the widen counter so an
// optimistic fixpoint converges instead of creeping one value at a time.
// limit, when an int type, bounds how far the final jump saturates.
func (i *Int) Widen(c *TypeCtx, old, limit Type) Type {
	ot, ok := old.(*Int)
	if !ok {
		return i
	}
	if i.Lo == ot.Lo && i.Hi == ot.Hi {
		return old
	}
	if i.Lo <= ot.Lo && i.Hi >= ot.Hi {
		// growing range
		if i.widen > ot.widen {
			return i
		}
		if i.widen < WidenMax {
			return c.MakeInt(i.Lo, i.Hi, i.widen+1)
		}
		lo, hi := int32(math.MinInt32), int32(math.MaxInt32)
		if lim, ok := limit.(*Int); ok {
			lo, hi = lim.Lo, lim.Hi
		}
		if lo < i.Lo && i.Hi < hi {
			// saturate the endpoint closer to its bound
			if i.Lo >= 0 || uint32(i.Lo)-uint32(lo) >= uint32(hi)-uint32(i.Hi) {
				return c.MakeInt(i.Lo, math.MaxInt32, WidenMax)
			}
			return c.MakeInt(math.MinInt32, i.Hi, WidenMax)
		}
		return IntAll
	}
	if ot.Lo <= i.Lo && ot.Hi >= i.Hi {
		return old
	}
	panic(errors.Errorf("widening from %s to non-superset %s", old, i))
}

// Narrow shrinks towards this type during the pessimistic pass, but keeps
// old when the shrink is so small it smells like an endless march.
func (i *Int) Narrow(c *TypeCtx, old Type) Type {
	if i.Lo >= i.Hi {
		return i
	}
	ot, ok := old.(*Int)
	if !ok {
		return i
	}
	if i.Lo == ot.Lo && i.Hi == ot.Hi {
		return old
	}
	if ot.Lo == math.MinInt32 && ot.Hi == math.MaxInt32 {
		return i
	}
	if i.Lo < ot.Lo || i.Hi > ot.Hi {
		return i
	}
	nrange := uint32(i.Hi) - uint32(i.Lo)
	orange := uint32(ot.Hi) - uint32(ot.Lo)
	if nrange < math.MaxUint32-1 && nrange > orange/2+2*smallIntRange {
		return old
	}
	return i
}

func (i *Int) String() string {
	var b strings.Builder
	if i.isDual {
		b.WriteByte('~')
	}
	switch {
	case i.IsCon():
		fmt.Fprintf(&b, "int:%d", i.Lo)
	case i.Lo == math.MinInt32 && i.Hi == math.MaxInt32:
		b.WriteString("int")
	default:
		fmt.Fprintf(&b, "int[%d,%d]", i.Lo, i.Hi)
	}
	if !i.IsCon() && (i.Zeros != 0 || i.Ones != 0) {
		fmt.Fprintf(&b, ":bits(zeros=%#x,ones=%#x)", i.Zeros, i.Ones)
	}
	if i.widen > WidenMin {
		fmt.Fprintf(&b, ":w%d", i.widen)
	}
	return b.String()
}

// Long is Int over 64 bit values.
type Long struct {
	typeBase
	Lo, Hi      int64
	ULo, UHi    uint64
	Zeros, Ones uint64
	widen       uint8
	isDual      bool
}

func (c *TypeCtx) makeLongOr(p intProto[int64, uint64], widen uint8, dual bool) Type {
	q, ok := canonicalize(p)
	if !ok {
		if dual {
			return Bottom
		}
		return Top
	}
	if q.lo == q.hi {
		widen = WidenMin
	}
	return c.intern(&Long{
		typeBase: typeBase{kind: KindLong},
		Lo:       q.lo, Hi: q.hi,
		ULo: q.ulo, UHi: q.uhi,
		Zeros: q.zeros, Ones: q.ones,
		widen:  widen,
		isDual: dual,
	})
}

// MakeLong builds the type of all longs in [lo, hi].
func (c *TypeCtx) MakeLong(lo, hi int64, widen uint8) Type {
	return c.makeLongOr(intProto[int64, uint64]{lo: lo, hi: hi, ulo: 0, uhi: math.MaxUint64}, widen, false)
}

// MakeLongFull builds a long type from all three constraint views at once.
func (c *TypeCtx) MakeLongFull(lo, hi int64, ulo, uhi, zeros, ones uint64, widen uint8) Type {
	return c.makeLongOr(intProto[int64, uint64]{lo: lo, hi: hi, ulo: ulo, uhi: uhi, zeros: zeros, ones: ones}, widen, false)
}

// LongCon builds the constant v.
func (c *TypeCtx) LongCon(v int64) *Long {
	return c.MakeLong(v, v, WidenMin).(*Long)
}

func (l *Long) IsDual() bool { return l.isDual }

func (l *Long) Widen8() uint8 { return l.widen }

func (l *Long) IsCon() bool { return l.Lo == l.Hi }

func (l *Long) GetCon() int64 {
	if !l.IsCon() {
		panic(errors.Errorf("%s is not a constant", l))
	}
	return l.Lo
}

func (l *Long) Contains(v int64) bool {
	u := uint64(v)
	return l.Lo <= v && v <= l.Hi &&
		l.ULo <= u && u <= l.UHi &&
		u&l.Zeros == 0 && u&l.Ones == l.Ones
}

func (l *Long) Singleton() bool { return l.Lo == l.Hi }

func (l *Long) Empty() bool { return false }

func (l *Long) Hash() uint64 {
	h := hashString("long")
	h = hashMix(h, uint64(l.Lo))
	h = hashMix(h, uint64(l.Hi))
	h = hashMix(h, l.ULo)
	h = hashMix(h, l.UHi)
	h = hashMix(h, l.Zeros)
	h = hashMix(h, l.Ones)
	h = hashMix(h, uint64(l.widen))
	if l.isDual {
		h = hashMix(h, 1)
	}
	return h
}

func (l *Long) equals(t Type) bool {
	o, ok := t.(*Long)
	return ok && l.Lo == o.Lo && l.Hi == o.Hi &&
		l.ULo == o.ULo && l.UHi == o.UHi &&
		l.Zeros == o.Zeros && l.Ones == o.Ones &&
		l.widen == o.widen && l.isDual == o.isDual
}

func (l *Long) xdual() Type {
	d := *l
	d.typeBase = typeBase{kind: KindLong}
	d.isDual = !l.isDual
	return &d
}

func (l *Long) xmeet(c *TypeCtx, t Type) Type {
	if Type(l) == t {
		return l
	}
	switch t.Kind() {
	case KindAnyPtr, KindRawPtr, KindOopPtr, KindInstPtr, KindAryPtr,
		KindMetadataPtr, KindInstKlassPtr, KindAryKlassPtr,
		KindNarrowOop, KindNarrowKlass,
		KindControl, KindAbio, KindMemory, KindHalf, KindReturnAddress,
		KindInt,
		KindHalfFloatTop, KindHalfFloatCon, KindHalfFloatBot,
		KindFloatTop, KindFloatCon, KindFloatBot,
		KindDoubleTop, KindDoubleCon, KindDoubleBot,
		KindBottom:
		return Bottom
	case KindTop:
		return l
	case KindLong:
	default:
		typerr(l, t)
	}
	o := t.(*Long)
	if l.isDual != o.isDual {
		panic(errors.Errorf("meet of dual and non-dual long types %s and %s", l, o))
	}
	if !l.isDual {
		return c.makeLongOr(intProto[int64, uint64]{
			lo: min(l.Lo, o.Lo), hi: max(l.Hi, o.Hi),
			ulo: min(l.ULo, o.ULo), uhi: max(l.UHi, o.UHi),
			zeros: l.Zeros & o.Zeros, ones: l.Ones & o.Ones,
		}, max(l.widen, o.widen), false)
	}
	return c.makeLongOr(intProto[int64, uint64]{
		lo: max(l.Lo, o.Lo), hi: min(l.Hi, o.Hi),
		ulo: max(l.ULo, o.ULo), uhi: min(l.UHi, o.UHi),
		zeros: l.Zeros | o.Zeros, ones: l.Ones | o.Ones,
	}, min(l.widen, o.widen), true)
}

func (l *Long) Widen(c *TypeCtx, old, limit Type) Type {
	ot, ok := old.(*Long)
	if !ok {
		return l
	}
	if l.Lo == ot.Lo && l.Hi == ot.Hi {
		return old
	}
	if l.Lo <= ot.Lo && l.Hi >= ot.Hi {
		if l.widen > ot.widen {
			return l
		}
		if l.widen < WidenMax {
			return c.MakeLong(l.Lo, l.Hi, l.widen+1)
		}
		lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
		if lim, ok := limit.(*Long); ok {
			lo, hi = lim.Lo, lim.Hi
		}
		if lo < l.Lo && l.Hi < hi {
			if l.Lo >= 0 || uint64(l.Lo)-uint64(lo) >= uint64(hi)-uint64(l.Hi) {
				return c.MakeLong(l.Lo, math.MaxInt64, WidenMax)
			}
			return c.MakeLong(math.MinInt64, l.Hi, WidenMax)
		}
		return LongAll
	}
	if ot.Lo <= l.Lo && ot.Hi >= l.Hi {
		return old
	}
	panic(errors.Errorf("widening from %s to non-superset %s", old, l))
}

func (l *Long) Narrow(c *TypeCtx, old Type) Type {
	if l.Lo >= l.Hi {
		return l
	}
	ot, ok := old.(*Long)
	if !ok {
		return l
	}
	if l.Lo == ot.Lo && l.Hi == ot.Hi {
		return old
	}
	if ot.Lo == math.MinInt64 && ot.Hi == math.MaxInt64 {
		return l
	}
	if l.Lo < ot.Lo || l.Hi > ot.Hi {
		return l
	}
	nrange := uint64(l.Hi) - uint64(l.Lo)
	orange := uint64(ot.Hi) - uint64(ot.Lo)
	if nrange < math.MaxUint64-1 && nrange > orange/2+2*smallIntRange {
		return old
	}
	return l
}

func (l *Long) String() string {
	var b strings.Builder
	if l.isDual {
		b.WriteByte('~')
	}
	switch {
	case l.IsCon():
		fmt.Fprintf(&b, "long:%d", l.Lo)
	case l.Lo == math.MinInt64 && l.Hi == math.MaxInt64:
		b.WriteString("long")
	default:
		fmt.Fprintf(&b, "long[%d,%d]", l.Lo, l.Hi)
	}
	if !l.IsCon() && (l.Zeros != 0 || l.Ones != 0) {
		fmt.Fprintf(&b, ":bits(zeros=%#x,ones=%#x)", l.Zeros, l.Ones)
	}
	if l.widen > WidenMin {
		fmt.Fprintf(&b, ":w%d", l.widen)
	}
	return b.String()
}
