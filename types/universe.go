package types

import (
	"sort"
)

// Resolver is the type-resolution authority the compiler consults. It
// answers convertibility, merge and member lookup questions and never
// mutates the types it is asked about.
type Resolver interface {
	// Builtins returns the primitive and special types.
	Builtins() *Builtins

	// CanConvert reports whether a value of from may be passed where to is
	// expected.
	CanConvert(from, to *Type) bool

	// Merge returns the type a register holding either a or b must have.
	Merge(a, b *Type) *Type

	// Member looks name up on owner, walking the base chain.
	Member(owner *Type, name string) (*Member, bool)

	// Scoped resolves a bare identifier used inside scope: members of
	// the scope object, ids of the enclosing elements, then globals.
	Scoped(scope *Type, name string) (*Member, bool)

	// ScopeNames lists the identifiers Scoped can resolve from scope.
	ScopeNames(scope *Type) []string
}

// Builtins holds the types every Resolver provides.
type Builtins struct {
	Void        *Type
	Null        *Type
	Bool        *Type
	Int         *Type
	Real        *Type
	String      *Type
	JSPrimitive *Type
	Var         *Type
	Function    *Type
	Object      *Type // root of the object hierarchy
	Array       *Type // list<var>, constructed by the Array global
}

// Universe is the reference Resolver: builtin types, a global object and
// the conversion rules of the scripting language.
type Universe struct {
	b       Builtins
	globals map[string]*Member
}

// NewUniverse creates a Universe with the builtin globals installed.
func NewUniverse() *Universe {
	u := &Universe{globals: make(map[string]*Member)}
	u.b = Builtins{
		Void:        &Type{Name: "void", Kind: KindVoid},
		Null:        &Type{Name: "null", Kind: KindNull},
		Bool:        &Type{Name: "bool", Kind: KindPrimitive, Primitive: PrimBool},
		Int:         &Type{Name: "int", Kind: KindPrimitive, Primitive: PrimInt},
		Real:        &Type{Name: "real", Kind: KindPrimitive, Primitive: PrimReal},
		String:      &Type{Name: "string", Kind: KindPrimitive, Primitive: PrimString},
		JSPrimitive: &Type{Name: "jsprimitive", Kind: KindPrimitive, Primitive: PrimJS},
		Var:         &Type{Name: "var", Kind: KindVariant},
		Function:    &Type{Name: "function", Kind: KindFunction},
	}
	u.b.Object = NewObject("Object", nil)
	u.b.Array = ListOf(u.b.Var)

	u.b.String.AddProperty("length", u.b.Int, false)
	u.b.String.AddMethod(NewMethod("charAt", u.b.String, u.b.Int))
	u.b.String.AddMethod(NewMethod("indexOf", u.b.Int, u.b.String))

	math := NewObject("Math", u.b.Object)
	math.AddMethod(NewMethod("abs", u.b.Int, u.b.Int))
	math.AddMethod(NewMethod("abs", u.b.Real, u.b.Real))
	math.AddMethod(NewMethod("max", u.b.Real, u.b.Real, u.b.Real))
	math.AddMethod(NewMethod("min", u.b.Real, u.b.Real, u.b.Real))
	math.AddMethod(NewMethod("floor", u.b.Int, u.b.Real))
	math.AddProperty("PI", u.b.Real, false)

	u.Define(&Member{Name: "Math", Kind: MemberObject, Type: math})
	u.Define(&Member{Name: "Array", Kind: MemberType, Type: MetatypeOf(u.b.Array)})
	u.Define(&Member{Name: "Object", Kind: MemberType, Type: MetatypeOf(u.b.Object)})
	u.Define(&Member{Name: "undefined", Kind: MemberProperty,
		Property: &Property{Name: "undefined", Type: u.b.Void, TypeName: "void"}})
	u.Define(&Member{Name: "isNaN", Kind: MemberMethod,
		Methods: []*Method{NewMethod("isNaN", u.b.Bool, u.b.Real)}})
	u.Define(&Member{Name: "parseInt", Kind: MemberMethod,
		Methods: []*Method{NewMethod("parseInt", u.b.Int, u.b.String)}})
	return u
}

// Builtins implements Resolver.
func (u *Universe) Builtins() *Builtins {
	return &u.b
}

// Define installs a global.
func (u *Universe) Define(m *Member) {
	u.globals[m.Name] = m
}

// Member implements Resolver.
func (u *Universe) Member(owner *Type, name string) (*Member, bool) {
	if owner == nil {
		return nil, false
	}
	switch owner.Kind {
	case KindSequence:
		return u.sequenceMember(owner, name)
	case KindMetatype:
		return u.Member(owner.Instance, name)
	case KindEnum:
		if !owner.HasKey(name) {
			return nil, false
		}
		return &Member{Name: name, Kind: MemberProperty,
			Property: &Property{Name: name, Type: owner, TypeName: owner.String()}}, true
	}
	for c := owner; c != nil; c = c.Base {
		if m, ok := c.members[name]; ok {
			return m, true
		}
	}
	return nil, false
}

func (u *Universe) sequenceMember(seq *Type, name string) (*Member, bool) {
	switch name {
	case "length":
		return &Member{Name: name, Kind: MemberProperty,
			Property: &Property{Name: name, Type: u.b.Int, TypeName: "int", Writable: true}}, true
	case "push":
		return &Member{Name: name, Kind: MemberMethod,
			Methods: []*Method{NewMethod(name, u.b.Int, seq.Element)}}, true
	case "indexOf":
		return &Member{Name: name, Kind: MemberMethod,
			Methods: []*Method{NewMethod(name, u.b.Int, seq.Element)}}, true
	case "join":
		return &Member{Name: name, Kind: MemberMethod,
			Methods: []*Method{NewMethod(name, u.b.String, u.b.String)}}, true
	}
	return nil, false
}

// Scoped implements Resolver.
func (u *Universe) Scoped(scope *Type, name string) (*Member, bool) {
	if scope != nil {
		if m, ok := u.Member(scope, name); ok {
			return m, true
		}
		for c := scope; c != nil; c = c.Parent {
			if c.ID == name {
				return &Member{Name: name, Kind: MemberObject, Type: c}, true
			}
		}
	}
	m, ok := u.globals[name]
	return m, ok
}

// ScopeNames implements Resolver.
func (u *Universe) ScopeNames(scope *Type) []string {
	var names []string
	if scope != nil {
		names = append(names, scope.MemberNames()...)
		for c := scope; c != nil; c = c.Parent {
			if c.ID != "" {
				names = append(names, c.ID)
			}
		}
	}
	for n := range u.globals {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CanConvert implements Resolver.
func (u *Universe) CanConvert(from, to *Type) bool {
	if from == nil || to == nil {
		return false
	}
	if Equal(from, to) {
		return true
	}
	switch {
	case to.IsVariant(), from.IsVariant():
		return true
	case to.Kind == KindPrimitive && to.Primitive == PrimBool:
		return true
	case to.Kind == KindPrimitive && to.Primitive == PrimJS:
		return from.IsPrimitive()
	case to.IsString():
		return from.IsPrimitive()
	case to.IsNumeric():
		return from.IsNumeric() || from.IsEnum() || (from.Kind == KindPrimitive && from.Primitive == PrimJS)
	case to.IsObject():
		return from.Kind == KindNull || (from.IsObject() && from.InheritsFrom(to))
	case to.IsSequence():
		if from.Kind == KindNull {
			return true
		}
		return from.IsSequence() && u.CanConvert(from.Element, to.Element)
	}
	return false
}

// Merge implements Resolver.
func (u *Universe) Merge(a, b *Type) *Type {
	switch {
	case a == nil:
		return b
	case b == nil, Equal(a, b):
		return a
	case a.IsNumeric() && b.IsNumeric():
		if a.Primitive > b.Primitive {
			return a
		}
		return b
	case a.IsPrimitive() && b.IsPrimitive():
		return u.b.JSPrimitive
	case a.IsObject() && b.IsObject():
		for c := a; c != nil; c = c.Base {
			if b.InheritsFrom(c) {
				return c
			}
		}
	case a.IsSequence() && b.IsSequence():
		return ListOf(u.Merge(a.Element, b.Element))
	}
	return u.b.Var
}
