// Package classes is the class model the optimizer's type lattice reasons
// against: class identity, loadedness, subtyping, interface closures and
// least common ancestors. It says nothing about field layout or bytecode;
// the lattice only ever asks the questions below.
package classes

import (
	"github.com/hashicorp/go-set/v3"
)

// Class is a class, interface or array class known to the compilation.
// Instances are unique within a Hierarchy, so identity is equality.
type Class struct {
	name     string
	owner    *Hierarchy
	super    *Class
	ifaces   []*Class
	elem     *Class // element class, object arrays only
	primElem string // element tag, primitive arrays only

	isInterface bool
	isFinal     bool
	isArray     bool
	loaded      bool

	depth      int
	hash       uint64
	subclasses []*Class

	closure *set.Set[*Class]
}

func (c *Class) Name() string         { return c.name }
func (c *Class) Super() *Class        { return c.super }
func (c *Class) Interfaces() []*Class { return c.ifaces }
func (c *Class) IsInterface() bool    { return c.isInterface }
func (c *Class) IsFinal() bool        { return c.isFinal }
func (c *Class) IsArray() bool        { return c.isArray }
func (c *Class) Loaded() bool         { return c.loaded }

// Elem returns the element class for object arrays, nil otherwise
func (c *Class) Elem() *Class { return c.elem }

// PrimElem returns the element tag for primitive arrays, "" otherwise
func (c *Class) PrimElem() string { return c.primElem }

func (c *Class) Equals(other *Class) bool { return c == other }

func (c *Class) Hash() uint64 { return c.hash }

func (c *Class) String() string { return c.name }

// InterfaceClosure is the set of every interface c implements, directly or
// through supertypes. For an interface it includes the interface itself.
func (c *Class) InterfaceClosure() *set.Set[*Class] {
	if c.closure != nil {
		return c.closure
	}
	closure := set.New[*Class](len(c.ifaces))
	if c.isInterface {
		closure.Insert(c)
	}
	for _, itf := range c.ifaces {
		closure.InsertSet(itf.InterfaceClosure())
	}
	if c.super != nil {
		closure.InsertSet(c.super.InterfaceClosure())
	}
	c.closure = closure
	return closure
}

// SubtypeOf reports whether every instance of c is an instance of other.
// Unloaded classes admit nothing beyond identity.
func (c *Class) SubtypeOf(other *Class) bool {
	if c == other {
		return true
	}
	if !c.loaded || !other.loaded {
		return false
	}
	if other == c.owner.Object {
		return true
	}
	if other.isInterface {
		return c.InterfaceClosure().Contains(other)
	}
	if c.isArray {
		if !other.isArray {
			return false
		}
		if c.primElem != "" || other.primElem != "" {
			return c.primElem == other.primElem
		}
		// object arrays are covariant
		return c.elem.SubtypeOf(other.elem)
	}
	if other.isArray {
		return false
	}
	for s := c.super; s != nil; s = s.super {
		if s == other {
			return true
		}
	}
	return false
}

// LeastCommonAncestor walks both superclass chains to the closest class
// both sides are a subtype of. Interfaces do not participate: the LCA of
// anything with an unrelated interface is the root class.
func (c *Class) LeastCommonAncestor(other *Class) *Class {
	if c.SubtypeOf(other) {
		return other
	}
	if other.SubtypeOf(c) {
		return c
	}
	if !c.loaded || !other.loaded {
		return c.owner.Object
	}
	if c.isInterface || other.isInterface {
		return c.owner.Object
	}
	if c.isArray && other.isArray && c.elem != nil && other.elem != nil {
		// covariant element walk keeps the result an array class
		return c.owner.ArrayOf(c.elem.LeastCommonAncestor(other.elem))
	}
	if c.isArray || other.isArray {
		return c.owner.Object
	}
	a, b := c, other
	for a.depth > b.depth {
		a = a.super
	}
	for b.depth > a.depth {
		b = b.super
	}
	for a != b {
		a = a.super
		b = b.super
	}
	return a
}

// HasSubclasses reports whether any registered class extends c.
func (c *Class) HasSubclasses() bool { return len(c.subclasses) > 0 }

// UniqueConcreteSubclass returns the only concrete subclass when the
// hierarchy pins it down to exactly one, nil otherwise.
func (c *Class) UniqueConcreteSubclass() *Class {
	if c.isFinal || !c.loaded || c.isArray {
		return nil
	}
	if len(c.subclasses) != 1 {
		return nil
	}
	sub := c.subclasses[0]
	if len(sub.subclasses) != 0 {
		return nil
	}
	return sub
}
