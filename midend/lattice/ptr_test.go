package lattice_test

import (
	"testing"

	"github.com/opal-lang/opal/midend/classes"
	"github.com/opal-lang/opal/midend/lattice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPtrNullability(t *testing.T) {
	c := newCtx()

	null := lattice.PtrNull
	notNull := c.MakePtr(lattice.NotNull, 0)
	anyNull := c.MakePtr(lattice.AnyNull, 0)

	// null against not-null admits everything
	m := c.Meet(null, notNull).(*lattice.Ptr)
	assert.Equal(t, lattice.BotPTR, m.Ptr())

	// anynull cannot decide between the null and not-null halves
	assert.Equal(t, lattice.BotPTR, c.Meet(anyNull, null).(*lattice.Ptr).Ptr())
	assert.Equal(t, lattice.NotNull, c.Meet(anyNull, notNull).(*lattice.Ptr).Ptr())

	// two pointers that are both provably not null stay not null
	con := c.MakePtr(lattice.Constant, 0)
	assert.Equal(t, lattice.NotNull, c.Meet(con, notNull).(*lattice.Ptr).Ptr())

	assert.True(t, null.MaybeNull())
	assert.False(t, notNull.MaybeNull())
	assert.True(t, anyNull.MaybeNull())
}

func TestPtrOffsets(t *testing.T) {
	c := newCtx()

	a := c.MakePtr(lattice.NotNull, 16)
	assert.Equal(t, lattice.Offset(24), a.AddOffset(c, 8).Offset())

	// differing known offsets fall to the unknown offset
	b := c.MakePtr(lattice.NotNull, 24)
	assert.Equal(t, lattice.OffsetBot, c.Meet(a, b).(*lattice.Ptr).Offset())
	assert.Equal(t, lattice.Offset(16), c.Meet(a, a.CastToPtrType(c, lattice.BotPTR)).(*lattice.Ptr).Offset())

	// an unknown offset swallows any shift
	assert.Equal(t, lattice.OffsetBot, lattice.PtrBottom.AddOffset(c, 8).Offset())

	assert.Same(t, lattice.Type(lattice.PtrBottom), c.Meet(lattice.PtrNull, lattice.PtrNotNull))
}

func TestPtrSingletonAndEmpty(t *testing.T) {
	c := newCtx()

	assert.True(t, lattice.PtrNull.Singleton())
	assert.False(t, lattice.PtrBottom.Singleton())
	assert.False(t, lattice.PtrNull.Empty())
	assert.True(t, c.MakePtr(lattice.TopPTR, 0).Empty())
	assert.True(t, lattice.PtrBottom.Dual().Empty())
}

func TestRawPtr(t *testing.T) {
	c := newCtx()

	p, q := c.RawCon(0x1000), c.RawCon(0x2000)
	assert.Same(t, lattice.Type(p), c.Meet(p, p))
	assert.EqualValues(t, 0x1000, p.Bits())
	assert.True(t, p.Singleton())

	// two different raw constants still exclude null
	assert.Same(t, lattice.Type(lattice.RawPtrNotNull), c.Meet(p, q))
	assert.Same(t, lattice.Type(lattice.RawPtrBottom), c.Meet(p, lattice.RawPtrBottom))

	// a raw constant shifted is still a constant
	assert.EqualValues(t, 0x1008, p.AddOffset(c, 8).Bits())

	// raw memory and the heap never mix
	assert.Same(t, lattice.Type(lattice.PtrBottom), c.Meet(lattice.RawPtrBottom, c.OopBottom))
	assert.Same(t, lattice.Type(lattice.PtrBottom), c.Meet(lattice.RawPtrBottom, c.KlassObject))

	// no raw pointer is ever the null oop
	assert.Same(t, lattice.Type(lattice.RawPtrBottom), c.Meet(lattice.RawPtrBottom, lattice.PtrNull))
	assert.Same(t, lattice.Type(p), c.Meet(p, c.MakePtr(lattice.TopPTR, 0)))

	// a not-null bare pointer keeps its offset against raw memory
	m := c.Meet(c.MakePtr(lattice.NotNull, 8), lattice.RawPtrNotNull).(*lattice.Ptr)
	assert.Equal(t, lattice.NotNull, m.Ptr())
	assert.Equal(t, lattice.Offset(8), m.Offset())
}

func TestMetadataPtr(t *testing.T) {
	c := newCtx()
	h := c.Hierarchy()
	k := h.MustDefineClass("K", nil)

	m1 := c.MakeMetadataCon(&classes.Method{Holder: k, Name: "frobnicate"})
	m2 := c.MakeMetadataCon(&classes.Method{Holder: k, Name: "mangle"})

	assert.Same(t, lattice.Type(m1), c.Meet(m1, m1))
	assert.True(t, m1.Singleton())

	// different methods keep the family but lose the constant
	mm := c.Meet(m1, m2).(*lattice.MetadataPtr)
	assert.Equal(t, lattice.NotNull, mm.Ptr())
	assert.Nil(t, mm.Metadata())

	assert.Same(t, lattice.Type(c.MetaBottom), c.Meet(m1, c.MetaBottom))
	assert.Same(t, lattice.Type(lattice.PtrBottom), c.Meet(m1, c.InstBottom))
}

func TestSpeculativeMeet(t *testing.T) {
	c := newCtx()
	h := c.Hierarchy()
	dog := h.MustDefineClass("Dog", nil)

	spec := c.MakeInstPtr(lattice.NotNull, dog).CastToExactness(c, true)
	withSpec := c.InstNotNull.WithSpeculative(c, spec)
	require.Same(t, lattice.Type(spec), withSpec.Speculative())

	// the plain meet drops speculation from the result
	plain := c.Meet(withSpec, c.InstNotNull).(*lattice.InstPtr)
	assert.Nil(t, plain.Speculative())
	assert.Same(t, lattice.Type(c.InstNotNull), lattice.Type(plain))

	// the speculative meet carries it through
	kept := c.MeetSpeculative(withSpec, c.InstBottom.WithSpeculative(c, spec)).(*lattice.InstPtr)
	assert.Same(t, lattice.Type(spec), kept.Speculative())
	assert.Equal(t, lattice.BotPTR, kept.Ptr())

	// a speculation that says nothing beyond the type itself is dropped
	useless := c.MeetSpeculative(withSpec, c.InstNotNull).(*lattice.InstPtr)
	assert.Nil(t, useless.Speculative())

	// the dual duals the speculative part too, and stays involutive
	d := withSpec.Dual().(*lattice.InstPtr)
	assert.Same(t, spec.Dual(), d.Speculative())
	assert.Same(t, lattice.Type(withSpec), d.Dual())
}

func TestSpeculativeCleanup(t *testing.T) {
	c := newCtx()
	h := c.Hierarchy()
	dog := h.MustDefineClass("Dog", nil)

	// an inexact maybe-null speculation cannot be checked cheaply, so a
	// speculative meet never keeps one
	weak := c.MakeInstPtr(lattice.BotPTR, dog)
	in := c.InstBottom.WithSpeculative(c, weak)
	out := c.MeetSpeculative(in, in).(*lattice.InstPtr)
	assert.Nil(t, out.Speculative())

	// an exact not-null speculation survives
	strong := c.MakeInstPtr(lattice.NotNull, dog).CastToExactness(c, true)
	in = c.InstBottom.WithSpeculative(c, strong)
	out = c.MeetSpeculative(in, in).(*lattice.InstPtr)
	assert.Same(t, lattice.Type(strong), out.Speculative())
}

func TestNarrowPtr(t *testing.T) {
	c := newCtx()

	assert.Same(t, lattice.NarrowOopNull, c.MakeNarrowOop(lattice.PtrNull))

	n := c.MakeNarrowOop(c.OopBottom)
	assert.Same(t, c.NarrowOopBottom, n)
	assert.Same(t, c.NarrowOopBottom, c.Meet(lattice.NarrowOopNull, c.NarrowOopBottom))

	// narrow wrappers only meet their own kind
	assert.Same(t, lattice.Bottom, c.Meet(c.NarrowOopBottom, c.MakeNarrowKlass(c.KlassObject)))
	assert.Same(t, lattice.Bottom, c.Meet(c.NarrowOopBottom, lattice.PtrBottom))

	// the wrapper follows its pointer through duals
	back := c.NarrowOopBottom.Dual().Dual()
	assert.Same(t, c.NarrowOopBottom, back)
	wrapped := c.NarrowOopBottom.(*lattice.NarrowPtr).Wrapped()
	assert.Same(t, lattice.Type(c.OopBottom), wrapped)
}
