package lattice

import "fmt"

// Vect is a SIMD value: a fixed number of lanes of one element type.
// Vectors of different lane counts never meet.
type Vect struct {
	typeBase
	elem   Type
	length uint32
}

// MakeVect builds a vector type.
func (c *TypeCtx) MakeVect(elem Type, length uint32) *Vect {
	return c.intern(&Vect{
		typeBase: typeBase{kind: KindVect},
		elem:     elem, length: length,
	}).(*Vect)
}

func (v *Vect) Elem() Type { return v.elem }

func (v *Vect) Length() uint32 { return v.length }

func (v *Vect) Singleton() bool { return false }

func (v *Vect) Empty() bool { return v.elem.Empty() }

func (v *Vect) Hash() uint64 {
	return hashMix(hashMix(hashString("vect"), v.elem.Hash()), uint64(v.length))
}

func (v *Vect) equals(t Type) bool {
	o, ok := t.(*Vect)
	return ok && v.elem == o.elem && v.length == o.length
}

func (v *Vect) xdual() Type {
	return &Vect{typeBase: typeBase{kind: KindVect}, elem: v.elem.Dual(), length: v.length}
}

func (v *Vect) xmeet(c *TypeCtx, t Type) Type {
	if Type(v) == t {
		return v
	}
	switch t.Kind() {
	case KindTop:
		return v
	case KindBottom:
		return Bottom
	case KindVect:
		o := t.(*Vect)
		if v.length != o.length {
			typerr(v, t)
		}
		return c.MakeVect(c.Meet(v.elem, o.elem), v.length)
	}
	typerr(v, t)
	return nil
}

func (v *Vect) String() string {
	return fmt.Sprintf("vect<%s,%d>", v.elem, v.length)
}
