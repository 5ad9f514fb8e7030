package lattice_test

import (
	"math"
	"testing"

	"github.com/opal-lang/opal/midend/classes"
	"github.com/opal-lang/opal/midend/lattice"
	"github.com/stretchr/testify/assert"
)

func TestMeetIdentities(t *testing.T) {
	c := newCtx()
	samples := []lattice.Type{
		lattice.Control, lattice.Memory, lattice.Abio, lattice.ReturnAddress,
		lattice.IntAll, lattice.IntByte, c.IntCon(42), lattice.LongAll,
		lattice.FloatBot, lattice.DoubleBot, lattice.FloatZero,
		lattice.PtrNull, lattice.PtrBottom, lattice.RawPtrBottom,
	}
	for _, s := range samples {
		assert.Same(t, s, c.Meet(s, lattice.Top), "%s meet top", s)
		assert.Same(t, s, c.Meet(lattice.Top, s), "top meet %s", s)
		assert.Same(t, lattice.Bottom, c.Meet(s, lattice.Bottom), "%s meet bottom", s)
		assert.Same(t, s, c.Meet(s, s), "%s meet itself", s)
	}
}

func TestDualIsInvolutive(t *testing.T) {
	c := newCtx()
	h := c.Hierarchy()
	k := h.MustDefineClass("K", nil)
	samples := []lattice.Type{
		lattice.Top, lattice.Bottom, lattice.Control,
		lattice.IntAll, c.MakeInt(3, 9, lattice.WidenMin), lattice.LongPos,
		lattice.FloatBot, c.MakeFloatCon(2.5), c.MakeDoubleCon(-1),
		lattice.PtrNull, lattice.PtrBottom, lattice.RawPtrNotNull,
		c.OopBottom, c.InstBottom, c.MakeInstPtr(lattice.NotNull, k),
		c.AryBytes, c.AryOops, c.KlassObject, c.MetaBottom,
		c.NarrowOopBottom, lattice.TupleMemBar,
	}
	for _, s := range samples {
		assert.Same(t, s, s.Dual().Dual(), "dual of dual of %s", s)
	}
	assert.Same(t, lattice.Bottom, lattice.Top.Dual())
	assert.Same(t, lattice.Top, lattice.Bottom.Dual())
	assert.Same(t, lattice.Control, lattice.Control.Dual(), "control is self-dual")
}

func TestSimpleTypeMeets(t *testing.T) {
	c := newCtx()
	assert.Panics(t, func() { c.Meet(lattice.Control, lattice.Memory) },
		"mismatched machine words only show up in broken graphs")
	assert.Same(t, lattice.Control, c.Meet(lattice.Control, lattice.Control))
	assert.Same(t, lattice.Bottom, c.Meet(lattice.Control, lattice.IntAll))
	assert.Same(t, lattice.Bottom, c.Meet(lattice.IntAll, lattice.Control))
}

func TestFloatConstants(t *testing.T) {
	c := newCtx()

	assert.Same(t, lattice.Type(lattice.FloatZero), lattice.Type(c.MakeFloatCon(0)))

	// +0.0 and -0.0 are distinct constants, so their meet loses the value
	negZero := c.MakeFloatCon(float32(math.Copysign(0, -1)))
	assert.NotSame(t, lattice.Type(lattice.FloatZero), lattice.Type(negZero))
	assert.Same(t, lattice.FloatBot, c.Meet(lattice.FloatZero, negZero))

	// NaN compares by bit pattern, so it meets itself without widening
	nan := c.MakeFloatCon(float32(math.NaN()))
	assert.True(t, nan.IsNaN())
	assert.Same(t, lattice.Type(nan), c.Meet(nan, nan))

	assert.Same(t, lattice.Type(lattice.FloatOne), c.Meet(lattice.FloatTop, lattice.FloatOne))
	assert.Same(t, lattice.FloatBot, c.Meet(lattice.FloatOne, c.MakeFloatCon(2)))
	assert.Same(t, lattice.Bottom, c.Meet(lattice.FloatOne, lattice.DoubleOne),
		"float and double never mix")

	d := c.MakeDoubleCon(2.5)
	assert.InDelta(t, 2.5, d.GetCon(), 0)
	assert.Same(t, lattice.Type(d), d.Dual(), "constants are self-dual")
}

func TestHalfFloat(t *testing.T) {
	c := newCtx()

	one := c.MakeHalfCon(0x3C00)
	assert.InDelta(t, 1.0, one.GetCon(), 0)
	// smallest subnormal
	tiny := c.MakeHalfCon(0x0001)
	assert.InDelta(t, math.Ldexp(1, -24), float64(tiny.GetCon()), 0)
	inf := c.MakeHalfCon(0x7C00)
	assert.True(t, math.IsInf(float64(inf.GetCon()), 1))

	assert.Same(t, lattice.HalfFloatBot, c.Meet(one, c.MakeHalfCon(0x4000)))
	assert.Same(t, lattice.Type(one), c.Meet(lattice.HalfFloatTop, one))
}

func TestJoinIsDualOfMeet(t *testing.T) {
	c := newCtx()
	h := c.Hierarchy()
	animal := h.MustDefineClass("Animal", nil)
	dog := h.MustDefineClass("Dog", animal)

	ta := c.MakeInstPtr(lattice.BotPTR, animal)
	td := c.MakeInstPtr(lattice.BotPTR, dog)

	// joining with a supertype keeps the subtype
	assert.Same(t, lattice.Type(td), c.Join(ta, td))
	// meeting with a supertype keeps the supertype
	assert.Same(t, lattice.Type(ta), c.Meet(ta, td))
}

func TestVerifierAcceptsTheLattice(t *testing.T) {
	h := classes.NewHierarchy()
	animal := h.MustDefineClass("Animal", nil)
	dog := h.MustDefineClass("Dog", animal)
	cat := h.MustDefineClass("Cat", animal)
	walks, _ := h.DefineInterface("Walks")
	horse := h.MustDefineClass("Horse", nil, walks)

	c := lattice.NewTypeCtx(h)
	c.SetVerify(true)

	samples := []lattice.Type{
		lattice.Top, lattice.Bottom, lattice.Control,
		lattice.IntAll, lattice.IntByte, lattice.IntChar, c.IntCon(17),
		lattice.LongAll, c.LongCon(-3),
		lattice.FloatBot, lattice.FloatZero, lattice.DoubleBot,
		lattice.PtrNull, lattice.PtrNotNull, lattice.PtrBottom,
		c.MakePtr(lattice.NotNull, 8), c.MakePtr(lattice.AnyNull, 8),
		lattice.RawPtrBottom, lattice.RawPtrNotNull, c.RawCon(0x1000),
		c.OopBottom, c.InstBottom, c.InstNotNull,
		c.MakeInstPtr(lattice.BotPTR, animal),
		c.MakeInstPtr(lattice.NotNull, dog),
		c.MakeInstPtr(lattice.NotNull, cat).CastToExactness(c, true),
		c.MakeInstPtr(lattice.BotPTR, horse),
		c.MakeInstPtr(lattice.BotPTR, walks),
		c.AryBytes, c.AryChars, c.AryInts, c.AryOops,
		c.MakeAryPtr(lattice.NotNull, c.MakeAry(c.MakeInstPtr(lattice.BotPTR, dog), lattice.IntPos, false), nil),
		c.KlassObject, c.KlassObjectOrNull,
		c.MakeInstKlassPtr(lattice.NotNull, dog),
		c.MakeInstKlassPtr(lattice.Constant, cat),
		c.AryBytes.AsKlassType(c, false),
		c.MetaBottom,
		c.MakeMetadataCon(&classes.Method{Holder: dog, Name: "bark"}),
	}

	assert.NotPanics(t, func() {
		for _, a := range samples {
			for _, b := range samples {
				c.Meet(a, b)
				c.Join(a, b)
			}
		}
	})
}

func TestVerifierAcceptsSpeculativeMeets(t *testing.T) {
	h := classes.NewHierarchy()
	dog := h.MustDefineClass("Dog", nil)

	c := lattice.NewTypeCtx(h)
	c.SetVerify(true)

	spec := c.MakeInstPtr(lattice.NotNull, dog).CastToExactness(c, true)
	samples := []lattice.Type{
		lattice.Top, lattice.Bottom,
		c.InstBottom,
		c.InstNotNull.WithSpeculative(c, spec),
		c.MakeInstPtr(lattice.BotPTR, dog).WithSpeculative(c, spec),
	}

	assert.NotPanics(t, func() {
		for _, a := range samples {
			for _, b := range samples {
				c.MeetSpeculative(a, b)
				c.JoinSpeculative(a, b)
				c.Meet(a, b)
			}
		}
	})
}
