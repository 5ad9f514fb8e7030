package lattice

import (
	"github.com/opal-lang/opal/util"
	"github.com/pkg/errors"
)

// verifier re-checks every meet for commutativity and for symmetry of the
// lattice: meeting the dual of a meet result with the dual of either
// operand must give that dual back. The memo table keeps the re-checks
// from recomputing the same meets over and over, and from recursing into
// the meet currently being verified.
type verifier struct {
	cache map[util.Pair[Type, Type]]Type
}

func newVerifier() *verifier {
	return &verifier{cache: make(map[util.Pair[Type, Type]]Type, 128)}
}

// record seeds the memo table with a meet computed by the engine proper.
// Only the queried order goes in, so the commutativity check below still
// computes the swapped meet for real.
func (v *verifier) record(a, b, mt Type) {
	v.cache[util.NewPair(a, b)] = mt
}

// meet is a memoized meet that skips verification, so the checks below
// cannot recurse endlessly. It leaves speculative parts intact: the
// checks must see meet results exactly as the engine computes them.
func (v *verifier) meet(c *TypeCtx, a, b Type) Type {
	k := util.NewPair(a, b)
	if r, ok := v.cache[k]; ok {
		return r
	}
	r := c.normalizeSpec(a.xmeet(c, b))
	v.cache[k] = r
	return r
}

// check verifies mt = meet(this, t): the meet must commute, and the dual
// of mt met with the dual of either operand must reproduce that
// operand's dual.
func (v *verifier) check(c *TypeCtx, this, t, mt Type) {
	if mt2 := v.meet(c, t, this); mt != mt2 {
		v.failCommutative(this, t, mt, mt2)
	}
	dual := mt.Dual()
	t2t := v.meet(c, dual, t.Dual())
	t2this := v.meet(c, dual, this.Dual())
	if t2t == t.Dual() && t2this == this.Dual() {
		return
	}
	logger.Error("meet is not symmetric",
		"t", t.String(),
		"this", this.String(),
		"mt", mt.String(),
		"t_dual", t.Dual().String(),
		"this_dual", this.Dual().String(),
		"mt_dual", dual.String(),
		"mt_dual^t_dual", t2t.String(),
		"mt_dual^this_dual", t2this.String(),
	)
	panic(errors.Errorf("meet of %s and %s is not symmetric", this, t))
}

func (v *verifier) failCommutative(a, b, mt, mt2 Type) {
	logger.Error("meet is not commutative",
		"a", a.String(),
		"b", b.String(),
		"a^b", mt.String(),
		"b^a", mt2.String(),
	)
	panic(errors.Errorf("meet of %s and %s is not commutative", a, b))
}
