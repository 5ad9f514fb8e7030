package texpr_test

import (
	"testing"

	"github.com/opal-lang/opal/frontend/diag"
	"github.com/opal-lang/opal/frontend/texpr"
	"github.com/opal-lang/opal/midend/lattice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eval(t *testing.T, e *texpr.Env, src string) lattice.Type {
	t.Helper()
	typ, errs := e.EvalLine(src)
	require.False(t, errs.HasError(), "eval %q: %v", src, errs.Errors())
	return typ
}

func evalErr(t *testing.T, e *texpr.Env, src string) []diag.Diagnostic {
	t.Helper()
	typ, errs := e.EvalLine(src)
	require.True(t, errs.HasError(), "eval %q unexpectedly produced %v", src, typ)
	return errs.Errors()
}

func TestSimpleTypes(t *testing.T) {
	e := texpr.NewEnv()

	assert.Same(t, lattice.Top, eval(t, e, "top"))
	assert.Same(t, lattice.Bottom, eval(t, e, "bottom"))
	assert.Same(t, lattice.Control, eval(t, e, "control"))
	assert.Same(t, lattice.Type(lattice.IntAll), eval(t, e, "int"))
	assert.Same(t, e.Ctx.MakeInt(-10, 100, lattice.WidenMin), eval(t, e, "int[-10,100]"))
	assert.Equal(t, "int:5", eval(t, e, "int:5").String())
	assert.Same(t, lattice.Type(lattice.LongAll), eval(t, e, "long"))
	assert.Same(t, lattice.FloatBot, eval(t, e, "float"))
	assert.Same(t, lattice.Type(lattice.FloatOne), eval(t, e, "float:1"))
	assert.Same(t, lattice.Type(lattice.DoubleZero), eval(t, e, "double:0"))
}

func TestMeetJoinFilter(t *testing.T) {
	e := texpr.NewEnv()

	m := eval(t, e, "meet(int[-10,10], int[5,100])")
	assert.Same(t, e.Ctx.MakeInt(-10, 100, lattice.WidenMin), m)
	assert.Equal(t, "int[-10,100]", m.String())

	j := eval(t, e, "join(int[0,10], int[5,20])")
	assert.Same(t, e.Ctx.MakeInt(5, 10, lattice.WidenMin), j)

	assert.Same(t, lattice.Top, eval(t, e, "filter(int[0,5], int[50,60])"))

	d := eval(t, e, "dual(int[0,10])").(*lattice.Int)
	assert.True(t, d.IsDual())
}

func TestClassDeclarations(t *testing.T) {
	e := texpr.NewEnv()
	for _, decl := range []string{
		"class Animal",
		"class Dog extends Animal",
		"final class Leaf extends Dog",
		"interface Walks",
		"class Horse implements Walks",
		"unloaded class Mystery",
	} {
		typ, errs := e.EvalLine(decl)
		require.False(t, errs.HasError(), "decl %q: %v", decl, errs.Errors())
		assert.Nil(t, typ)
	}

	dog := e.Hier.ByName("Dog")
	require.NotNil(t, dog)

	ip := eval(t, e, "inst:Dog").(*lattice.InstPtr)
	assert.Same(t, dog, ip.Klass())
	assert.Equal(t, lattice.BotPTR, ip.Ptr())
	assert.False(t, ip.Exact())

	ex := eval(t, e, "inst:Dog:notnull:exact").(*lattice.InstPtr)
	assert.Equal(t, lattice.NotNull, ex.Ptr())
	assert.True(t, ex.Exact())

	kp := eval(t, e, "klass:Dog").(*lattice.InstKlassPtr)
	assert.Equal(t, lattice.NotNull, kp.Ptr())
	assert.False(t, kp.Exact())
	assert.True(t, eval(t, e, "klass:Leaf:exact").(*lattice.InstKlassPtr).Exact())

	// the hierarchy built by declarations drives the meets
	m := eval(t, e, "meet(inst:Leaf:notnull, inst:Dog:notnull)").(*lattice.InstPtr)
	assert.Same(t, dog, m.Klass())
	lca := eval(t, e, "meet(inst:Dog, inst:Horse)").(*lattice.InstPtr)
	assert.Same(t, e.Hier.Object, lca.Klass())

	u := eval(t, e, "inst:Mystery").(*lattice.InstPtr)
	assert.False(t, u.Klass().Loaded())
}

func TestConstAndArrays(t *testing.T) {
	e := texpr.NewEnv()
	eval(t, e, "class Dog")

	rex := eval(t, e, "const(Dog, rex)").(*lattice.InstPtr)
	assert.True(t, rex.Singleton())
	assert.Equal(t, "rex", rex.ConstOop().Label)
	assert.Same(t, lattice.Type(rex), eval(t, e, "const(Dog, rex)"))

	ap := eval(t, e, "ary(int[0,255], 0, 7)").(*lattice.AryPtr)
	assert.Same(t, e.Ctx.MakeInt(0, 255, lattice.WidenMin), ap.Elem())
	assert.EqualValues(t, 7, ap.Size().Hi)

	// no explicit bounds means any non-negative length
	assert.Same(t, lattice.Type(lattice.IntPos), lattice.Type(eval(t, e, "ary(inst:Dog)").(*lattice.AryPtr).Size()))

	v := eval(t, e, "vect(float, 8)").(*lattice.Vect)
	assert.EqualValues(t, 8, v.Length())

	tu := eval(t, e, "tuple(control, int)").(*lattice.Tuple)
	assert.Equal(t, 2, tu.Cnt())
}

func TestPtrForms(t *testing.T) {
	e := texpr.NewEnv()

	assert.Same(t, lattice.Type(lattice.PtrNull), eval(t, e, "ptr:null"))
	assert.Same(t, lattice.Type(lattice.PtrBottom), eval(t, e, "ptr:bot"))
	assert.Same(t, lattice.Type(lattice.RawPtrBottom), eval(t, e, "rawptr:bot"))

	n := eval(t, e, "narrowoop(ptr:null)")
	assert.Same(t, lattice.NarrowOopNull, n)
	eval(t, e, "class K")
	nk := eval(t, e, "narrowklass(klass:K)").(*lattice.NarrowPtr)
	assert.Equal(t, lattice.KindNarrowKlass, nk.Kind())
}

func TestDiagnostics(t *testing.T) {
	e := texpr.NewEnv()

	errs := evalErr(t, e, "inst:Nope")
	require.Len(t, errs, 1)
	assert.Equal(t, diag.UnknownClass, errs[0].Code())

	errs = evalErr(t, e, "int[10,5]")
	assert.Equal(t, diag.BadRange, errs[0].Code())

	errs = evalErr(t, e, "int[0,5] junk")
	assert.Equal(t, diag.Parse, errs[0].Code())

	errs = evalErr(t, e, "vect(float, 99999999999)")
	assert.Equal(t, diag.BadConstant, errs[0].Code())

	errs = evalErr(t, e, "rawptr:null")
	assert.Equal(t, diag.Parse, errs[0].Code())

	errs = evalErr(t, e, "class Dog extends Nope")
	assert.Equal(t, diag.UnknownClass, errs[0].Code())

	assert.Contains(t, diag.FormatWithCode(errs[0]), "(E002)")
}
