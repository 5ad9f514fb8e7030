package lattice

import (
	"sort"
	"strings"

	"github.com/opal-lang/opal/midend/classes"
	"github.com/xtgo/set"
)

// Interfaces is a sorted, deduplicated set of interface classes. Sets are
// interned like every other type, so equality is pointer comparison and
// union and intersection can reuse canonical results.
type Interfaces struct {
	typeBase
	list []*classes.Class
}

type byClassName []*classes.Class

func (s byClassName) Len() int           { return len(s) }
func (s byClassName) Less(i, j int) bool { return s[i].Name() < s[j].Name() }
func (s byClassName) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// MakeInterfaces interns the set of the given interfaces.
func (c *TypeCtx) MakeInterfaces(itfs ...*classes.Class) *Interfaces {
	list := make([]*classes.Class, len(itfs))
	copy(list, itfs)
	sort.Sort(byClassName(list))
	list = list[:set.Uniq(byClassName(list))]
	return c.intern(&Interfaces{
		typeBase: typeBase{kind: KindInterfaces},
		list:     list,
	}).(*Interfaces)
}

// interfacesOf interns the full interface closure of k.
func (c *TypeCtx) interfacesOf(k *classes.Class) *Interfaces {
	return c.MakeInterfaces(k.InterfaceClosure().Slice()...)
}

func (i *Interfaces) List() []*classes.Class { return i.list }

func (i *Interfaces) isEmpty() bool { return len(i.list) == 0 }

// ExactClass returns the sole member when the set pins down a single
// interface, nil otherwise.
func (i *Interfaces) ExactClass() *classes.Class {
	if len(i.list) == 1 {
		return i.list[0]
	}
	return nil
}

// union interns the set union of i and o.
func (i *Interfaces) union(c *TypeCtx, o *Interfaces) *Interfaces {
	if i == o {
		return i
	}
	merged := make([]*classes.Class, 0, len(i.list)+len(o.list))
	merged = append(merged, i.list...)
	merged = append(merged, o.list...)
	n := set.Union(byClassName(merged), len(i.list))
	return c.intern(&Interfaces{
		typeBase: typeBase{kind: KindInterfaces},
		list:     merged[:n],
	}).(*Interfaces)
}

// intersection interns the set intersection of i and o.
func (i *Interfaces) intersection(c *TypeCtx, o *Interfaces) *Interfaces {
	if i == o {
		return i
	}
	merged := make([]*classes.Class, 0, len(i.list)+len(o.list))
	merged = append(merged, i.list...)
	merged = append(merged, o.list...)
	n := set.Inter(byClassName(merged), len(i.list))
	return c.intern(&Interfaces{
		typeBase: typeBase{kind: KindInterfaces},
		list:     merged[:n],
	}).(*Interfaces)
}

// containsAll reports whether every member of o is in i.
func (i *Interfaces) containsAll(o *Interfaces) bool {
	if i == o {
		return true
	}
	j := 0
	for _, want := range o.list {
		for j < len(i.list) && i.list[j].Name() < want.Name() {
			j++
		}
		if j >= len(i.list) || i.list[j] != want {
			return false
		}
		j++
	}
	return true
}

func (i *Interfaces) Singleton() bool { return false }

func (i *Interfaces) Empty() bool { return false }

func (i *Interfaces) Hash() uint64 {
	h := hashString("interfaces")
	for _, k := range i.list {
		h = hashMix(h, k.Hash())
	}
	return h
}

func (i *Interfaces) equals(t Type) bool {
	o, ok := t.(*Interfaces)
	if !ok || len(i.list) != len(o.list) {
		return false
	}
	for n, k := range i.list {
		if o.list[n] != k {
			return false
		}
	}
	return true
}

// interface sets are self-dual
func (i *Interfaces) xdual() Type {
	return &Interfaces{typeBase: typeBase{kind: KindInterfaces}, list: i.list}
}

func (i *Interfaces) xmeet(c *TypeCtx, t Type) Type {
	if Type(i) == t || t.Kind() == KindTop {
		return i
	}
	typerr(i, t)
	return nil
}

func (i *Interfaces) String() string {
	if len(i.list) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for n, k := range i.list {
		if n > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k.Name())
	}
	b.WriteByte('}')
	return b.String()
}

// meetInterfaces follows the centerline rule the oop meets use: two types
// above the line pool their interfaces, two below keep only the shared
// ones, and a mixed pair takes the below side's set.
func meetInterfaces(c *TypeCtx, thisPtr, otherPtr PTR, this, other *Interfaces) *Interfaces {
	thisUp := aboveCenterline(thisPtr)
	otherUp := aboveCenterline(otherPtr)
	switch {
	case thisUp && otherUp:
		return this.union(c, other)
	case thisUp:
		return other
	case otherUp:
		return this
	}
	return this.intersection(c, other)
}
