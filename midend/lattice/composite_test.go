package lattice_test

import (
	"testing"

	"github.com/opal-lang/opal/midend/lattice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTupleMeet(t *testing.T) {
	c := newCtx()

	// the two arms of a branch fuse field by field
	m := c.Meet(lattice.TupleIfTrue, lattice.TupleIfFalse)
	assert.Same(t, lattice.Type(lattice.TupleIfBoth), m)

	tu := c.Meet(
		c.MakeTuple(c.MakeInt(0, 10, lattice.WidenMin), lattice.FloatZero),
		c.MakeTuple(c.MakeInt(5, 20, lattice.WidenMin), lattice.FloatOne),
	).(*lattice.Tuple)
	require.Equal(t, 2, tu.Cnt())
	assert.Same(t, c.MakeInt(0, 20, lattice.WidenMin), tu.Field(0))
	assert.Same(t, lattice.FloatBot, tu.Field(1))

	assert.Same(t, lattice.Type(lattice.TupleIfBoth), c.Meet(lattice.TupleIfBoth, lattice.Top))
	assert.Same(t, lattice.Bottom, c.Meet(lattice.TupleIfBoth, lattice.Bottom))
}

func TestTupleShape(t *testing.T) {
	c := newCtx()

	assert.False(t, lattice.TupleIntPair.Singleton())
	assert.False(t, lattice.TupleIfBoth.Empty())
	// a tuple with an unreachable field is unreachable
	assert.True(t, c.MakeTuple(lattice.Control, lattice.Top).Empty())

	back := lattice.TupleIfTrue.Dual().Dual()
	assert.Same(t, lattice.Type(lattice.TupleIfTrue), back)

	// tuples of different arity never describe the same value
	assert.Panics(t, func() {
		c.Meet(lattice.TupleIntPair, lattice.TupleMemBar)
	})
	assert.Panics(t, func() {
		c.Meet(lattice.TupleIntPair, lattice.IntAll)
	})
}

func TestFunc(t *testing.T) {
	c := newCtx()

	sig := c.MakeFunc(
		c.MakeTuple(lattice.IntAll, lattice.LongAll),
		c.MakeTuple(lattice.IntAll),
	)
	same := c.MakeFunc(
		c.MakeTuple(lattice.IntAll, lattice.LongAll),
		c.MakeTuple(lattice.IntAll),
	)
	assert.Same(t, sig, same)
	assert.Equal(t, 2, sig.Domain().Cnt())

	assert.Same(t, lattice.Type(sig), c.Meet(sig, lattice.Top))
	assert.Same(t, lattice.Type(sig), c.Meet(sig, sig))
	assert.Same(t, lattice.Type(sig), sig.Dual())

	// unrelated signatures share nothing
	other := c.MakeFunc(c.MakeTuple(lattice.FloatBot), c.MakeTuple())
	assert.Same(t, lattice.Bottom, c.Meet(sig, other))

	assert.Panics(t, func() { c.Meet(sig, lattice.IntAll) })
}

func TestVect(t *testing.T) {
	c := newCtx()

	v8 := c.MakeVect(lattice.FloatBot, 8)
	assert.Same(t, v8, c.MakeVect(lattice.FloatBot, 8))
	assert.EqualValues(t, 8, v8.Length())

	// lanes meet element-wise
	m := c.Meet(c.MakeVect(c.MakeInt(0, 10, lattice.WidenMin), 4), c.MakeVect(lattice.IntAll, 4)).(*lattice.Vect)
	assert.Same(t, lattice.Type(lattice.IntAll), m.Elem())

	assert.Same(t, lattice.Type(v8), v8.Dual().Dual())
	assert.Same(t, lattice.Type(v8), c.Meet(v8, lattice.Top))

	// lane counts never mix
	assert.Panics(t, func() { c.Meet(v8, c.MakeVect(lattice.FloatBot, 4)) })
}
