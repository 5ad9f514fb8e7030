package lattice

import "strings"

// Tuple is a fixed shape of parallel values, used for multi-output
// operations and for function signatures. Tuples of different length
// never meet.
type Tuple struct {
	typeBase
	fields []Type
}

// MakeTuple builds a tuple over the given field types.
func (c *TypeCtx) MakeTuple(fields ...Type) *Tuple {
	fs := make([]Type, len(fields))
	copy(fs, fields)
	return c.intern(&Tuple{
		typeBase: typeBase{kind: KindTuple},
		fields:   fs,
	}).(*Tuple)
}

// Cnt returns the number of fields.
func (t *Tuple) Cnt() int { return len(t.fields) }

// Field returns the i-th field type.
func (t *Tuple) Field(i int) Type { return t.fields[i] }

func (t *Tuple) Singleton() bool { return false }

func (t *Tuple) Empty() bool {
	for _, f := range t.fields {
		if f.Empty() {
			return true
		}
	}
	return false
}

func (t *Tuple) Hash() uint64 {
	h := hashString("tuple")
	for _, f := range t.fields {
		h = hashMix(h, f.Hash())
	}
	return h
}

func (t *Tuple) equals(o Type) bool {
	x, ok := o.(*Tuple)
	if !ok || len(t.fields) != len(x.fields) {
		return false
	}
	for i, f := range t.fields {
		if x.fields[i] != f {
			return false
		}
	}
	return true
}

func (t *Tuple) xdual() Type {
	fs := make([]Type, len(t.fields))
	for i, f := range t.fields {
		fs[i] = f.Dual()
	}
	return &Tuple{typeBase: typeBase{kind: KindTuple}, fields: fs}
}

func (t *Tuple) xmeet(c *TypeCtx, o Type) Type {
	if Type(t) == o {
		return t
	}
	switch o.Kind() {
	case KindTop:
		return t
	case KindBottom:
		return Bottom
	case KindTuple:
		x := o.(*Tuple)
		if len(t.fields) != len(x.fields) {
			typerr(t, o)
		}
		fs := make([]Type, len(t.fields))
		for i, f := range t.fields {
			fs[i] = c.Meet(f, x.fields[i])
		}
		return c.MakeTuple(fs...)
	}
	typerr(t, o)
	return nil
}

func (t *Tuple) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, f := range t.fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Func is a function signature: a domain tuple of parameters and a range
// tuple of results. Signatures are compared by identity; two different
// signatures share nothing.
type Func struct {
	typeBase
	dom *Tuple
	rng *Tuple
}

// MakeFunc builds a function signature type.
func (c *TypeCtx) MakeFunc(dom, rng *Tuple) *Func {
	return c.intern(&Func{
		typeBase: typeBase{kind: KindFunc},
		dom:      dom, rng: rng,
	}).(*Func)
}

func (f *Func) Domain() *Tuple { return f.dom }

func (f *Func) Range() *Tuple { return f.rng }

func (f *Func) Singleton() bool { return false }

func (f *Func) Empty() bool { return false }

func (f *Func) Hash() uint64 {
	return hashMix(hashMix(hashString("func"), f.dom.Hash()), f.rng.Hash())
}

func (f *Func) equals(t Type) bool {
	o, ok := t.(*Func)
	return ok && f.dom == o.dom && f.rng == o.rng
}

// signatures are self-dual
func (f *Func) xdual() Type {
	return &Func{typeBase: typeBase{kind: KindFunc}, dom: f.dom, rng: f.rng}
}

func (f *Func) xmeet(c *TypeCtx, t Type) Type {
	if Type(f) == t {
		return f
	}
	switch t.Kind() {
	case KindTop:
		return f
	case KindFunc, KindBottom:
		return Bottom
	}
	typerr(f, t)
	return nil
}

func (f *Func) String() string {
	return f.dom.String() + "->" + f.rng.String()
}
