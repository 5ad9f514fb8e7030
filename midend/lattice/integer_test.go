package lattice_test

import (
	"math"
	"testing"

	"github.com/opal-lang/opal/midend/classes"
	"github.com/opal-lang/opal/midend/lattice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCtx() *lattice.TypeCtx {
	return lattice.NewTypeCtx(classes.NewHierarchy())
}

func TestIntInterning(t *testing.T) {
	c := newCtx()

	assert.Same(t, c.MakeInt(3, 7, lattice.WidenMin), c.MakeInt(3, 7, lattice.WidenMin))
	assert.NotSame(t, c.MakeInt(3, 7, lattice.WidenMin), c.MakeInt(3, 8, lattice.WidenMin))

	// types interned at startup are shared across contexts
	assert.Same(t, lattice.Type(lattice.IntZero), lattice.Type(c.IntCon(0)))
	assert.Same(t, lattice.Type(lattice.IntAll), c.MakeInt(math.MinInt32, math.MaxInt32, lattice.WidenMax))
	assert.Same(t, lattice.Type(lattice.IntByte), c.MakeInt(-128, 127, lattice.WidenMin))
}

func TestIntEmptyRangeIsTop(t *testing.T) {
	c := newCtx()
	assert.Same(t, lattice.Top, c.MakeInt(10, 5, lattice.WidenMin))
	assert.Same(t, lattice.Top, c.MakeIntFull(1, 1, 0, math.MaxUint32, 1, 1, lattice.WidenMin),
		"a bit cannot be both known zero and known one")
}

func TestIntCanonicalization(t *testing.T) {
	c := newCtx()

	// a range that known bits shrink to one value collapses to a constant
	con := c.MakeIntFull(6, 7, 0, math.MaxUint32, 1, 0, lattice.WidenMin).(*lattice.Int)
	assert.True(t, con.IsCon())
	assert.EqualValues(t, 6, con.GetCon())

	even := c.MakeIntFull(0, 10, 0, math.MaxUint32, 1, 0, lattice.WidenMin).(*lattice.Int)
	assert.EqualValues(t, 0, even.Lo)
	assert.EqualValues(t, 10, even.Hi)
	assert.True(t, even.Contains(4))
	assert.False(t, even.Contains(5))
	assert.False(t, even.Contains(12))

	// an unsigned bound tightens the signed range
	pos := c.MakeIntFull(math.MinInt32, math.MaxInt32, 0, 100, 0, 0, lattice.WidenMin).(*lattice.Int)
	assert.EqualValues(t, 0, pos.Lo)
	assert.EqualValues(t, 100, pos.Hi)
}

func TestIntMeetIsUnion(t *testing.T) {
	c := newCtx()

	m := c.Meet(c.MakeInt(-10, 10, lattice.WidenMin), c.MakeInt(5, 100, lattice.WidenMin)).(*lattice.Int)
	assert.EqualValues(t, -10, m.Lo)
	assert.EqualValues(t, 100, m.Hi)

	assert.Same(t, lattice.Type(lattice.IntAll), c.Meet(lattice.IntAll, lattice.IntByte))
	assert.Same(t, lattice.Type(lattice.IntCC), c.Meet(lattice.IntCCLE, lattice.IntCCGE))

	// disjoint families fall to the bottom of the whole lattice
	assert.Same(t, lattice.Bottom, c.Meet(lattice.IntAll, lattice.LongAll))
	assert.Same(t, lattice.Bottom, c.Meet(lattice.IntAll, lattice.FloatBot))
}

func TestIntJoinIsIntersection(t *testing.T) {
	c := newCtx()

	j := c.Join(c.MakeInt(-10, 10, lattice.WidenMin), c.MakeInt(5, 100, lattice.WidenMin)).(*lattice.Int)
	assert.EqualValues(t, 5, j.Lo)
	assert.EqualValues(t, 10, j.Hi)
	assert.False(t, j.IsDual())

	// a disjoint join has no values left
	assert.Same(t, lattice.Top, c.Join(c.IntCon(1), c.IntCon(2)))
}

func TestIntDual(t *testing.T) {
	c := newCtx()

	r := c.MakeInt(0, 10, lattice.WidenMin).(*lattice.Int)
	d := r.Dual().(*lattice.Int)
	assert.True(t, d.IsDual())
	assert.EqualValues(t, 0, d.Lo)
	assert.EqualValues(t, 10, d.Hi)
	assert.Same(t, lattice.Type(r), d.Dual())

	// above the centerline the meet intersects
	da := c.MakeInt(0, 10, lattice.WidenMin).Dual()
	db := c.MakeInt(5, 100, lattice.WidenMin).Dual()
	m := c.Meet(da, db).(*lattice.Int)
	assert.True(t, m.IsDual())
	assert.EqualValues(t, 5, m.Lo)
	assert.EqualValues(t, 10, m.Hi)
}

func TestIntCCNEKnownBits(t *testing.T) {
	require.NotNil(t, lattice.IntCCNE)
	assert.True(t, lattice.IntCCNE.Contains(-1))
	assert.True(t, lattice.IntCCNE.Contains(1))
	assert.False(t, lattice.IntCCNE.Contains(0), "the not-equal condition code is never zero")
}

func TestIntWiden(t *testing.T) {
	c := newCtx()

	old := c.MakeInt(0, 5, lattice.WidenMin)
	grown := c.MakeInt(0, 10, lattice.WidenMin).(*lattice.Int)

	w := grown.Widen(c, old, lattice.IntAll).(*lattice.Int)
	assert.EqualValues(t, 0, w.Lo)
	assert.EqualValues(t, 10, w.Hi)
	assert.Equal(t, lattice.WidenMin+1, w.Widen8(), "a growing range bumps the widen counter")

	// at the limit the range saturates instead of creeping further
	tired := c.MakeInt(0, 20, lattice.WidenMax).(*lattice.Int)
	sat := tired.Widen(c, c.MakeInt(0, 10, lattice.WidenMax), lattice.IntAll).(*lattice.Int)
	assert.EqualValues(t, 0, sat.Lo)
	assert.EqualValues(t, math.MaxInt32, sat.Hi)

	// shrinking during widening keeps the old type
	assert.Same(t, old, c.MakeInt(1, 4, lattice.WidenMin).(*lattice.Int).Widen(c, old, lattice.IntAll))
}

func TestIntNarrow(t *testing.T) {
	c := newCtx()

	old := c.MakeInt(0, 100, lattice.WidenMin)

	// a token shrink is rejected as an endless march
	barely := c.MakeInt(0, 99, lattice.WidenMin).(*lattice.Int)
	assert.Same(t, old, barely.Narrow(c, old))

	// a real shrink is accepted
	strong := c.MakeInt(0, 40, lattice.WidenMin).(*lattice.Int)
	assert.Same(t, lattice.Type(strong), strong.Narrow(c, old))

	// any shrink beats the full range
	assert.Same(t, lattice.Type(barely), barely.Narrow(c, lattice.IntAll))
}

func TestLong(t *testing.T) {
	c := newCtx()

	m := c.Meet(c.MakeLong(-10, 10, lattice.WidenMin), c.MakeLong(5, 1<<40, lattice.WidenMin)).(*lattice.Long)
	assert.EqualValues(t, -10, m.Lo)
	assert.EqualValues(t, 1<<40, m.Hi)

	assert.Same(t, lattice.Type(lattice.LongZero), lattice.Type(c.LongCon(0)))
	assert.Same(t, lattice.Top, c.MakeLong(1, 0, lattice.WidenMin))

	con := c.LongCon(1 << 33)
	assert.True(t, con.IsCon())
	assert.EqualValues(t, 1<<33, con.GetCon())
	assert.True(t, lattice.LongPos.Contains(1<<62))
	assert.False(t, lattice.LongPos.Contains(-1))
}

func TestFilterPreservesWidening(t *testing.T) {
	c := newCtx()

	f := c.Filter(lattice.IntAll, c.MakeInt(0, 10, lattice.WidenMin)).(*lattice.Int)
	assert.EqualValues(t, 0, f.Lo)
	assert.EqualValues(t, 10, f.Hi)
	assert.Equal(t, lattice.WidenMax, f.Widen8(), "filtering must not roll back widening progress")

	// an empty intersection filters to Top
	assert.Same(t, lattice.Top, c.Filter(c.IntCon(1), c.IntCon(2)))
}
