package diag_test

import (
	"testing"

	"github.com/opal-lang/opal/frontend/diag"
	"github.com/stretchr/testify/assert"
)

func TestNilErrors(t *testing.T) {
	var r *diag.Errors

	// a nil accumulator reads as empty everywhere
	assert.Nil(t, r.Errors())
	assert.False(t, r.HasError())
	assert.Nil(t, r.Merge(nil).Errors())

	// appending to nil allocates
	r = r.With(diag.ParseError{Message: "unexpected ')'", From: 3, To: 4})
	assert.True(t, r.HasError())
	assert.Len(t, r.Errors(), 1)
}

func TestErrorsMerge(t *testing.T) {
	a := (&diag.Errors{}).With(diag.ParseError{Message: "a", From: 0, To: 1})
	b := (&diag.Errors{}).With(
		diag.UnknownClassError{Name: "Ghost", From: 2, To: 7},
		diag.BadRangeError{Lo: 9, Hi: 3, From: 8, To: 12},
	)

	m := a.Merge(b)
	assert.Len(t, m.Errors(), 3)
	assert.Equal(t, diag.Parse, m.Errors()[0].Code())
	assert.Equal(t, diag.UnknownClass, m.Errors()[1].Code())

	// merging an empty side is the identity
	assert.Same(t, m, m.Merge(&diag.Errors{}))
	assert.Same(t, m, m.Merge(nil))
}

func TestFormatWithCode(t *testing.T) {
	s := diag.FormatWithCode(diag.BadConstantError{Literal: "1e99", From: 4, To: 8})
	assert.Equal(t, `(E004) at 4..8: constant "1e99" does not fit its type`, s)
}
