package classes_test

import (
	"testing"

	"github.com/opal-lang/opal/midend/classes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubtypeOf(t *testing.T) {
	h := classes.NewHierarchy()
	animal := h.MustDefineClass("Animal", nil)
	dog := h.MustDefineClass("Dog", animal)
	cat := h.MustDefineClass("Cat", animal)
	pup, err := h.DefineClass("Puppy", dog)
	require.NoError(t, err)

	assert.True(t, dog.SubtypeOf(animal))
	assert.True(t, pup.SubtypeOf(animal))
	assert.True(t, pup.SubtypeOf(dog))
	assert.True(t, dog.SubtypeOf(dog))
	assert.False(t, animal.SubtypeOf(dog))
	assert.False(t, cat.SubtypeOf(dog))

	// everything is an Object
	assert.True(t, cat.SubtypeOf(h.Object))
	assert.True(t, h.Cloneable.SubtypeOf(h.Object))
}

func TestSubtypeOfInterfaces(t *testing.T) {
	h := classes.NewHierarchy()
	walks, err := h.DefineInterface("Walks")
	require.NoError(t, err)
	runs, err := h.DefineInterface("Runs", walks)
	require.NoError(t, err)
	horse := h.MustDefineClass("Horse", nil, runs)
	foal := h.MustDefineClass("Foal", horse)

	assert.True(t, horse.SubtypeOf(runs))
	assert.True(t, horse.SubtypeOf(walks), "interface closure includes inherited interfaces")
	assert.True(t, foal.SubtypeOf(walks), "closure is inherited through the superclass")
	assert.True(t, runs.SubtypeOf(walks))
	assert.False(t, walks.SubtypeOf(runs))
}

func TestInterfaceClosure(t *testing.T) {
	h := classes.NewHierarchy()
	a, err := h.DefineInterface("A")
	require.NoError(t, err)
	b, err := h.DefineInterface("B", a)
	require.NoError(t, err)
	k := h.MustDefineClass("K", nil, b)

	closure := k.InterfaceClosure()
	assert.True(t, closure.Contains(a))
	assert.True(t, closure.Contains(b))
	assert.Equal(t, 2, closure.Size())

	// an interface's closure contains itself
	assert.True(t, b.InterfaceClosure().Contains(b))
}

func TestLeastCommonAncestor(t *testing.T) {
	h := classes.NewHierarchy()
	animal := h.MustDefineClass("Animal", nil)
	dog := h.MustDefineClass("Dog", animal)
	cat := h.MustDefineClass("Cat", animal)
	pup := h.MustDefineClass("Puppy", dog)
	rock := h.MustDefineClass("Rock", nil)

	assert.Same(t, animal, dog.LeastCommonAncestor(cat))
	assert.Same(t, animal, pup.LeastCommonAncestor(cat))
	assert.Same(t, dog, pup.LeastCommonAncestor(dog))
	assert.Same(t, h.Object, dog.LeastCommonAncestor(rock))
}

func TestLeastCommonAncestorArrays(t *testing.T) {
	h := classes.NewHierarchy()
	animal := h.MustDefineClass("Animal", nil)
	dog := h.MustDefineClass("Dog", animal)
	cat := h.MustDefineClass("Cat", animal)

	dogs, cats := h.ArrayOf(dog), h.ArrayOf(cat)
	lca := dogs.LeastCommonAncestor(cats)
	require.True(t, lca.IsArray())
	assert.Same(t, animal, lca.Elem(), "object arrays are covariant")

	// covariance holds for subtyping too
	assert.True(t, h.ArrayOf(dog).SubtypeOf(h.ArrayOf(animal)))
	assert.False(t, h.ArrayOf(animal).SubtypeOf(h.ArrayOf(dog)))

	// primitive arrays only relate to themselves
	bytes := h.PrimArray("byte")
	assert.False(t, bytes.SubtypeOf(h.PrimArray("char")))
	assert.Same(t, h.Object, bytes.LeastCommonAncestor(h.PrimArray("char")))
	assert.True(t, bytes.SubtypeOf(h.Object))
}

func TestArrayClassesAreInterned(t *testing.T) {
	h := classes.NewHierarchy()
	k := h.MustDefineClass("K", nil)

	assert.Same(t, h.ArrayOf(k), h.ArrayOf(k))
	assert.Same(t, h.PrimArray("int"), h.PrimArray("int"))
	assert.Equal(t, "int", h.PrimArray("int").PrimElem())
	assert.Same(t, k, h.ArrayOf(k).Elem())
}

func TestUnloaded(t *testing.T) {
	h := classes.NewHierarchy()
	u, err := h.DefineUnloaded("Mystery")
	require.NoError(t, err)
	k := h.MustDefineClass("K", nil)

	assert.False(t, u.Loaded())
	assert.True(t, u.SubtypeOf(u))
	assert.False(t, u.SubtypeOf(h.Object), "unloaded classes admit nothing beyond identity")
	assert.Same(t, h.Object, u.LeastCommonAncestor(k))
}

func TestDuplicateDefinition(t *testing.T) {
	h := classes.NewHierarchy()
	_, err := h.DefineClass("K", nil)
	require.NoError(t, err)
	_, err = h.DefineClass("K", nil)
	assert.Error(t, err)
}

func TestUniqueConcreteSubclass(t *testing.T) {
	h := classes.NewHierarchy()
	base := h.MustDefineClass("Base", nil)
	only := h.MustDefineClass("Only", base)

	assert.Same(t, only, base.UniqueConcreteSubclass())
	assert.True(t, base.HasSubclasses())
	assert.False(t, only.HasSubclasses())

	// a second subclass spoils the uniqueness
	h.MustDefineClass("Other", base)
	assert.Nil(t, base.UniqueConcreteSubclass())

	final, err := h.DefineFinalClass("Leaf", nil)
	require.NoError(t, err)
	assert.True(t, final.IsFinal())
	assert.Nil(t, final.UniqueConcreteSubclass())
}
