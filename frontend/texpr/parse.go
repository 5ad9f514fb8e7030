package texpr

import (
	"fmt"
	"strconv"

	"fortio.org/safecast"
	"github.com/opal-lang/opal/frontend/diag"
	"github.com/opal-lang/opal/midend/classes"
	"github.com/opal-lang/opal/midend/lattice"
)

// Env is one evaluation session: a class hierarchy that declarations
// extend and the type context interning against it.
type Env struct {
	Hier *classes.Hierarchy
	Ctx  *lattice.TypeCtx

	// refs gives each constant label one identity across the session, so
	// const(K, x) means the same object every time it is written.
	refs map[string]*classes.Ref
}

// NewEnv builds a session over a fresh hierarchy.
func NewEnv() *Env {
	h := classes.NewHierarchy()
	return &Env{Hier: h, Ctx: lattice.NewTypeCtx(h), refs: map[string]*classes.Ref{}}
}

func (e *Env) ref(k *classes.Class, label string) *classes.Ref {
	key := k.Name() + "@" + label
	if r, ok := e.refs[key]; ok {
		return r
	}
	r := &classes.Ref{Class: k, Label: label}
	e.refs[key] = r
	return r
}

// EvalLine evaluates one input line. Class declarations extend the
// hierarchy and return a nil type; everything else parses as a type
// expression.
func (e *Env) EvalLine(src string) (lattice.Type, *diag.Errors) {
	p := &parser{env: e, src: src, toks: scan(src)}
	if t := p.peek(); t.kind == tokIdent {
		switch t.text {
		case "class", "final", "interface", "unloaded":
			p.classDecl()
			if !p.errs.HasError() {
				logger.Debug("hierarchy extended", "decl", src)
			}
			return nil, p.errs
		}
	}
	typ := p.expr()
	if tok := p.peek(); tok.kind != tokEOF && !p.errs.HasError() {
		p.errorf(tok, "unexpected %q after expression", tok.text)
	}
	if p.errs.HasError() {
		return nil, p.errs
	}
	return typ, nil
}

type parser struct {
	env  *Env
	src  string
	toks []token
	pos  int
	errs *diag.Errors
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(at token, format string, args ...any) {
	p.errs = p.errs.With(diag.ParseError{Message: fmt.Sprintf(format, args...), From: at.from, To: at.to})
}

func (p *parser) expectPunct(text string) (token, bool) {
	t := p.peek()
	if t.kind != tokPunct || t.text != text {
		p.errorf(t, "expected %q, found %q", text, t.text)
		return t, false
	}
	return p.next(), true
}

func (p *parser) expectIdent() (token, bool) {
	t := p.peek()
	if t.kind != tokIdent {
		p.errorf(t, "expected a name, found %q", t.text)
		return t, false
	}
	return p.next(), true
}

// classDecl handles the four declaration forms:
//
//	class Name [extends Name] [implements A, B]
//	final class Name [extends Name] [implements A, B]
//	interface Name [extends A, B]
//	unloaded class Name
func (p *parser) classDecl() {
	h := p.env.Hier
	kw := p.next()
	final := false
	if kw.text == "final" {
		final = true
		var ok bool
		if kw, ok = p.expectIdent(); !ok || kw.text != "class" {
			p.errorf(kw, "expected \"class\" after \"final\"")
			return
		}
	}
	if kw.text == "unloaded" {
		var ok bool
		if kw, ok = p.expectIdent(); !ok || kw.text != "class" {
			p.errorf(kw, "expected \"class\" after \"unloaded\"")
			return
		}
		name, ok := p.expectIdent()
		if !ok {
			return
		}
		if _, err := h.DefineUnloaded(name.text); err != nil {
			p.errorf(name, "%s", err.Error())
		}
		return
	}

	name, ok := p.expectIdent()
	if !ok {
		return
	}

	if kw.text == "interface" {
		extends, ok := p.classList("extends")
		if !ok {
			return
		}
		if _, err := h.DefineInterface(name.text, extends...); err != nil {
			p.errorf(name, "%s", err.Error())
		}
		return
	}

	var super *classes.Class
	if t := p.peek(); t.kind == tokIdent && t.text == "extends" {
		p.next()
		st, ok := p.expectIdent()
		if !ok {
			return
		}
		if super = h.ByName(st.text); super == nil {
			p.errs = p.errs.With(diag.UnknownClassError{Name: st.text, From: st.from, To: st.to})
			return
		}
	}
	ifaces, ok := p.classList("implements")
	if !ok {
		return
	}
	var err error
	if final {
		_, err = h.DefineFinalClass(name.text, super, ifaces...)
	} else {
		_, err = h.DefineClass(name.text, super, ifaces...)
	}
	if err != nil {
		p.errorf(name, "%s", err.Error())
	}
}

func (p *parser) classList(keyword string) ([]*classes.Class, bool) {
	if t := p.peek(); t.kind != tokIdent || t.text != keyword {
		return nil, true
	}
	p.next()
	var list []*classes.Class
	for {
		nt, ok := p.expectIdent()
		if !ok {
			return nil, false
		}
		k := p.env.Hier.ByName(nt.text)
		if k == nil {
			p.errs = p.errs.With(diag.UnknownClassError{Name: nt.text, From: nt.from, To: nt.to})
			return nil, false
		}
		list = append(list, k)
		if t := p.peek(); t.kind == tokPunct && t.text == "," {
			p.next()
			continue
		}
		return list, true
	}
}

var simpleTypes = map[string]func() lattice.Type{
	"top":     func() lattice.Type { return lattice.Top },
	"bottom":  func() lattice.Type { return lattice.Bottom },
	"control": func() lattice.Type { return lattice.Control },
	"memory":  func() lattice.Type { return lattice.Memory },
	"abio":    func() lattice.Type { return lattice.Abio },
	"retaddr": func() lattice.Type { return lattice.ReturnAddress },
	"half":    func() lattice.Type { return lattice.Half },
	"ftop":    func() lattice.Type { return lattice.FloatTop },
	"dtop":    func() lattice.Type { return lattice.DoubleTop },
	"hftop":   func() lattice.Type { return lattice.HalfFloatTop },
	"hfloat":  func() lattice.Type { return lattice.HalfFloatBot },
}

var ptrStates = map[string]lattice.PTR{
	"top":     lattice.TopPTR,
	"anynull": lattice.AnyNull,
	"null":    lattice.Null,
	"notnull": lattice.NotNull,
	"bot":     lattice.BotPTR,
}

func (p *parser) expr() lattice.Type {
	c := p.env.Ctx
	t, ok := p.expectIdent()
	if !ok {
		return nil
	}
	switch t.text {
	case "meet":
		a, b, ok := p.twoArgs()
		if !ok {
			return nil
		}
		return c.Meet(a, b)
	case "join":
		a, b, ok := p.twoArgs()
		if !ok {
			return nil
		}
		return c.Join(a, b)
	case "filter":
		a, b, ok := p.twoArgs()
		if !ok {
			return nil
		}
		return c.Filter(a, b)
	case "dual":
		a, ok := p.oneArg()
		if !ok {
			return nil
		}
		return a.Dual()
	case "narrowoop":
		a, ok := p.oneArg()
		if !ok {
			return nil
		}
		return c.MakeNarrowOop(a)
	case "narrowklass":
		a, ok := p.oneArg()
		if !ok {
			return nil
		}
		return c.MakeNarrowKlass(a)
	case "tuple":
		return p.tupleExpr()
	case "vect":
		return p.vectExpr()
	case "ary":
		return p.aryExpr()
	case "const":
		return p.constExpr()
	case "int":
		return p.intExpr(t)
	case "long":
		return p.longExpr(t)
	case "float":
		return p.floatExpr(t, false)
	case "double":
		return p.floatExpr(t, true)
	case "ptr":
		return p.ptrExpr(t, false)
	case "rawptr":
		return p.ptrExpr(t, true)
	case "inst":
		return p.instExpr(t)
	case "klass":
		return p.klassExpr(t)
	}
	if mk, ok := simpleTypes[t.text]; ok {
		return mk()
	}
	p.errorf(t, "unknown type %q", t.text)
	return nil
}

func (p *parser) oneArg() (lattice.Type, bool) {
	if _, ok := p.expectPunct("("); !ok {
		return nil, false
	}
	a := p.expr()
	if a == nil {
		return nil, false
	}
	if _, ok := p.expectPunct(")"); !ok {
		return nil, false
	}
	return a, true
}

func (p *parser) twoArgs() (lattice.Type, lattice.Type, bool) {
	if _, ok := p.expectPunct("("); !ok {
		return nil, nil, false
	}
	a := p.expr()
	if a == nil {
		return nil, nil, false
	}
	if _, ok := p.expectPunct(","); !ok {
		return nil, nil, false
	}
	b := p.expr()
	if b == nil {
		return nil, nil, false
	}
	if _, ok := p.expectPunct(")"); !ok {
		return nil, nil, false
	}
	return a, b, true
}

func (p *parser) tupleExpr() lattice.Type {
	if _, ok := p.expectPunct("("); !ok {
		return nil
	}
	var fields []lattice.Type
	for {
		f := p.expr()
		if f == nil {
			return nil
		}
		fields = append(fields, f)
		if t := p.peek(); t.kind == tokPunct && t.text == "," {
			p.next()
			continue
		}
		break
	}
	if _, ok := p.expectPunct(")"); !ok {
		return nil
	}
	return p.env.Ctx.MakeTuple(fields...)
}

func (p *parser) vectExpr() lattice.Type {
	if _, ok := p.expectPunct("("); !ok {
		return nil
	}
	elem := p.expr()
	if elem == nil {
		return nil
	}
	if _, ok := p.expectPunct(","); !ok {
		return nil
	}
	nt := p.peek()
	n, ok := p.number(64)
	if !ok {
		return nil
	}
	length, err := safecast.Convert[uint32](n)
	if err != nil {
		p.errs = p.errs.With(diag.BadConstantError{Literal: nt.text, From: nt.from, To: nt.to})
		return nil
	}
	if _, ok := p.expectPunct(")"); !ok {
		return nil
	}
	return p.env.Ctx.MakeVect(elem, length)
}

// aryExpr parses ary(elem) or ary(elem, lo, hi), with the usual pointer
// qualifiers after the closing parenthesis.
func (p *parser) aryExpr() lattice.Type {
	c := p.env.Ctx
	if _, ok := p.expectPunct("("); !ok {
		return nil
	}
	elem := p.expr()
	if elem == nil {
		return nil
	}
	size := lattice.IntPos
	if t := p.peek(); t.kind == tokPunct && t.text == "," {
		p.next()
		lot := p.peek()
		lo, ok := p.int32Lit()
		if !ok {
			return nil
		}
		if _, ok := p.expectPunct(","); !ok {
			return nil
		}
		hi, ok := p.int32Lit()
		if !ok {
			return nil
		}
		if lo > hi {
			p.errs = p.errs.With(diag.BadRangeError{Lo: int64(lo), Hi: int64(hi), From: lot.from, To: p.peek().from})
			return nil
		}
		size = c.MakeInt(lo, hi, lattice.WidenMin).(*lattice.Int)
	}
	if _, ok := p.expectPunct(")"); !ok {
		return nil
	}
	ptr, exact, ok := p.ptrQuals(lattice.BotPTR)
	if !ok {
		return nil
	}
	ap := c.MakeAryPtr(ptr, c.MakeAry(elem, size, false), nil)
	if exact {
		ap = ap.CastToExactness(c, true)
	}
	return ap
}

// constExpr parses const(Class, label): the constant object labelled
// label of the given class.
func (p *parser) constExpr() lattice.Type {
	if _, ok := p.expectPunct("("); !ok {
		return nil
	}
	nt, ok := p.expectIdent()
	if !ok {
		return nil
	}
	k := p.env.Hier.ByName(nt.text)
	if k == nil {
		p.errs = p.errs.With(diag.UnknownClassError{Name: nt.text, From: nt.from, To: nt.to})
		return nil
	}
	if _, ok := p.expectPunct(","); !ok {
		return nil
	}
	label, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if _, ok := p.expectPunct(")"); !ok {
		return nil
	}
	return p.env.Ctx.MakeInstCon(p.env.ref(k, label.text))
}

func (p *parser) intExpr(at token) lattice.Type {
	c := p.env.Ctx
	switch t := p.peek(); {
	case t.kind == tokPunct && t.text == ":":
		p.next()
		v, ok := p.int32Lit()
		if !ok {
			return nil
		}
		return c.IntCon(v)
	case t.kind == tokPunct && t.text == "[":
		p.next()
		lot := p.peek()
		lo, ok := p.int32Lit()
		if !ok {
			return nil
		}
		if _, ok := p.expectPunct(","); !ok {
			return nil
		}
		hi, ok := p.int32Lit()
		if !ok {
			return nil
		}
		if _, ok := p.expectPunct("]"); !ok {
			return nil
		}
		if lo > hi {
			p.errs = p.errs.With(diag.BadRangeError{Lo: int64(lo), Hi: int64(hi), From: lot.from, To: p.peek().from})
			return nil
		}
		return c.MakeInt(lo, hi, lattice.WidenMin)
	}
	return lattice.IntAll
}

func (p *parser) longExpr(at token) lattice.Type {
	c := p.env.Ctx
	switch t := p.peek(); {
	case t.kind == tokPunct && t.text == ":":
		p.next()
		v, ok := p.number(64)
		if !ok {
			return nil
		}
		return c.LongCon(v)
	case t.kind == tokPunct && t.text == "[":
		p.next()
		lot := p.peek()
		lo, ok := p.number(64)
		if !ok {
			return nil
		}
		if _, ok := p.expectPunct(","); !ok {
			return nil
		}
		hi, ok := p.number(64)
		if !ok {
			return nil
		}
		if _, ok := p.expectPunct("]"); !ok {
			return nil
		}
		if lo > hi {
			p.errs = p.errs.With(diag.BadRangeError{Lo: lo, Hi: hi, From: lot.from, To: p.peek().from})
			return nil
		}
		return c.MakeLong(lo, hi, lattice.WidenMin)
	}
	return lattice.LongAll
}

func (p *parser) floatExpr(at token, double bool) lattice.Type {
	c := p.env.Ctx
	if t := p.peek(); t.kind == tokPunct && t.text == ":" {
		p.next()
		nt := p.peek()
		if nt.kind != tokNumber {
			p.errorf(nt, "expected a number, found %q", nt.text)
			return nil
		}
		p.next()
		v, err := strconv.ParseFloat(nt.text, 64)
		if err != nil {
			p.errs = p.errs.With(diag.BadConstantError{Literal: nt.text, From: nt.from, To: nt.to})
			return nil
		}
		if double {
			return c.MakeDoubleCon(v)
		}
		return c.MakeFloatCon(float32(v))
	}
	if double {
		return lattice.DoubleBot
	}
	return lattice.FloatBot
}

func (p *parser) ptrExpr(at token, raw bool) lattice.Type {
	c := p.env.Ctx
	if _, ok := p.expectPunct(":"); !ok {
		return nil
	}
	st, ok := p.expectIdent()
	if !ok {
		return nil
	}
	ptr, ok := ptrStates[st.text]
	if !ok {
		p.errorf(st, "unknown pointer state %q", st.text)
		return nil
	}
	if raw {
		if ptr == lattice.Null {
			p.errorf(st, "raw pointers cannot be null")
			return nil
		}
		return c.MakeRawPtr(ptr)
	}
	off := lattice.Offset(0)
	if ptr == lattice.NotNull || ptr == lattice.BotPTR {
		off = lattice.OffsetBot
	}
	return c.MakePtr(ptr, off)
}

func (p *parser) instExpr(at token) lattice.Type {
	c := p.env.Ctx
	k, ok := p.className()
	if !ok {
		return nil
	}
	ptr, exact, ok := p.ptrQuals(lattice.BotPTR)
	if !ok {
		return nil
	}
	ip := c.MakeInstPtr(ptr, k)
	if exact {
		ip = ip.CastToExactness(c, true)
	}
	return ip
}

func (p *parser) klassExpr(at token) lattice.Type {
	k, ok := p.className()
	if !ok {
		return nil
	}
	ptr, exact, ok := p.ptrQuals(lattice.NotNull)
	if !ok {
		return nil
	}
	if exact {
		ptr = lattice.Constant
	}
	return p.env.Ctx.MakeInstKlassPtr(ptr, k)
}

func (p *parser) className() (*classes.Class, bool) {
	if _, ok := p.expectPunct(":"); !ok {
		return nil, false
	}
	nt, ok := p.expectIdent()
	if !ok {
		return nil, false
	}
	k := p.env.Hier.ByName(nt.text)
	if k == nil {
		p.errs = p.errs.With(diag.UnknownClassError{Name: nt.text, From: nt.from, To: nt.to})
		return nil, false
	}
	return k, true
}

// ptrQuals consumes trailing :state and :exact qualifiers.
func (p *parser) ptrQuals(dflt lattice.PTR) (lattice.PTR, bool, bool) {
	ptr, exact := dflt, false
	for {
		t := p.peek()
		if t.kind != tokPunct || t.text != ":" {
			return ptr, exact, true
		}
		qt := p.toks[p.pos+1]
		if qt.kind != tokIdent {
			return ptr, exact, true
		}
		if qt.text == "exact" {
			p.next()
			p.next()
			exact = true
			continue
		}
		if st, ok := ptrStates[qt.text]; ok {
			p.next()
			p.next()
			ptr = st
			continue
		}
		return ptr, exact, true
	}
}

func (p *parser) int32Lit() (int32, bool) {
	nt := p.peek()
	v, ok := p.number(64)
	if !ok {
		return 0, false
	}
	r, err := safecast.Convert[int32](v)
	if err != nil {
		p.errs = p.errs.With(diag.BadConstantError{Literal: nt.text, From: nt.from, To: nt.to})
		return 0, false
	}
	return r, true
}

func (p *parser) number(bits int) (int64, bool) {
	t := p.peek()
	if t.kind != tokNumber {
		p.errorf(t, "expected a number, found %q", t.text)
		return 0, false
	}
	p.next()
	v, err := strconv.ParseInt(t.text, 10, bits)
	if err != nil {
		p.errs = p.errs.With(diag.BadConstantError{Literal: t.text, From: t.from, To: t.to})
		return 0, false
	}
	return v, true
}
