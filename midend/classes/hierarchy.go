package classes

import (
	"hash/fnv"

	"github.com/pkg/errors"
)

// Hierarchy owns every Class of a compilation. Not safe for concurrent
// mutation; a compilation builds it up front and then only queries it.
type Hierarchy struct {
	byName map[string]*Class

	Object       *Class
	Cloneable    *Class
	Serializable *Class
}

// NewHierarchy seeds the root class and the two interfaces every array
// class implements.
func NewHierarchy() *Hierarchy {
	h := &Hierarchy{byName: make(map[string]*Class, 32)}
	h.Object = h.mustAdd(&Class{name: "Object", loaded: true})
	h.Cloneable = h.mustAdd(&Class{name: "Cloneable", isInterface: true, loaded: true})
	h.Serializable = h.mustAdd(&Class{name: "Serializable", isInterface: true, loaded: true})
	return h
}

func (h *Hierarchy) mustAdd(c *Class) *Class {
	added, err := h.add(c)
	if err != nil {
		panic(err)
	}
	return added
}

func (h *Hierarchy) add(c *Class) (*Class, error) {
	if _, taken := h.byName[c.name]; taken {
		return nil, errors.Errorf("class %q already defined", c.name)
	}
	c.owner = h
	c.hash = hashName(c.name)
	if c.super != nil {
		c.depth = c.super.depth + 1
		c.super.subclasses = append(c.super.subclasses, c)
	}
	h.byName[c.name] = c
	return c, nil
}

// DefineClass registers a loaded, non-final class. A nil super means the
// root class.
func (h *Hierarchy) DefineClass(name string, super *Class, ifaces ...*Class) (*Class, error) {
	if super == nil {
		super = h.Object
	}
	for _, itf := range ifaces {
		if !itf.isInterface {
			return nil, errors.Errorf("class %q declares non-interface %q", name, itf.name)
		}
	}
	return h.add(&Class{name: name, super: super, ifaces: ifaces, loaded: true})
}

// DefineFinalClass registers a loaded class no subclass may extend.
func (h *Hierarchy) DefineFinalClass(name string, super *Class, ifaces ...*Class) (*Class, error) {
	c, err := h.DefineClass(name, super, ifaces...)
	if err != nil {
		return nil, err
	}
	c.isFinal = true
	return c, nil
}

// DefineInterface registers an interface, optionally extending others.
func (h *Hierarchy) DefineInterface(name string, extends ...*Class) (*Class, error) {
	for _, itf := range extends {
		if !itf.isInterface {
			return nil, errors.Errorf("interface %q extends non-interface %q", name, itf.name)
		}
	}
	return h.add(&Class{name: name, isInterface: true, ifaces: extends, loaded: true})
}

// DefineUnloaded registers a class the compilation has only seen by name.
// Subtype queries against it answer conservatively.
func (h *Hierarchy) DefineUnloaded(name string) (*Class, error) {
	return h.add(&Class{name: name, super: h.Object})
}

// MustDefineClass is DefineClass for hierarchies built in tests and demos.
func (h *Hierarchy) MustDefineClass(name string, super *Class, ifaces ...*Class) *Class {
	c, err := h.DefineClass(name, super, ifaces...)
	if err != nil {
		panic(err)
	}
	return c
}

// ByName looks a class up, nil when absent.
func (h *Hierarchy) ByName(name string) *Class {
	return h.byName[name]
}

// PrimArray interns the array class of a primitive element tag, e.g.
// PrimArray("byte") is byte[].
func (h *Hierarchy) PrimArray(elem string) *Class {
	name := elem + "[]"
	if c, ok := h.byName[name]; ok {
		return c
	}
	return h.mustAdd(&Class{
		name:     name,
		super:    h.Object,
		ifaces:   []*Class{h.Cloneable, h.Serializable},
		primElem: elem,
		isArray:  true,
		isFinal:  true,
		loaded:   true,
	})
}

// ArrayOf interns the array class of an object element class.
func (h *Hierarchy) ArrayOf(elem *Class) *Class {
	name := elem.name + "[]"
	if c, ok := h.byName[name]; ok {
		return c
	}
	return h.mustAdd(&Class{
		name:    name,
		super:   h.Object,
		ifaces:  []*Class{h.Cloneable, h.Serializable},
		elem:    elem,
		isArray: true,
		isFinal: elem.isFinal,
		loaded:  elem.loaded,
	})
}

func hashName(name string) uint64 {
	f := fnv.New64a()
	_, _ = f.Write([]byte(name))
	return f.Sum64()
}
