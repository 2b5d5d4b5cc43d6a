package types

import (
	"sort"
	"strings"
)

// Kind classifies a Type.
type Kind uint8

const (
	KindVoid Kind = iota
	KindNull
	KindPrimitive
	KindVariant
	KindFunction
	KindSequence
	KindObject
	KindMetatype
	KindEnum
)

var kindNames = [...]string{
	KindVoid:      "void",
	KindNull:      "null",
	KindPrimitive: "primitive",
	KindVariant:   "variant",
	KindFunction:  "function",
	KindSequence:  "sequence",
	KindObject:    "object",
	KindMetatype:  "metatype",
	KindEnum:      "enum",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Primitive identifies the builtin primitive types. Order matters: the
// numeric ladder is Bool < Int < Real.
type Primitive uint8

const (
	NotPrimitive Primitive = iota
	PrimBool
	PrimInt
	PrimReal
	PrimString
	PrimJS // generic primitive wrapper
)

// Type is a semantic type.
//
// Types are compared by identity except where Equal says otherwise.
// Tracked types are mutable placeholders whose shape may be adjusted after
// the fact; every holder of the pointer observes the adjustment.
type Type struct {
	Name      string
	ID        string // element id, used to qualify accesses from child scopes
	Element   *Type  // KindSequence
	Base      *Type  // KindObject inheritance
	Parent    *Type  // enclosing element in the document scope chain
	Instance  *Type  // KindMetatype: the type constructed by the metatype
	members   map[string]*Member
	order     []string
	keys      []string // KindEnum
	original  *Type
	Kind      Kind
	Primitive Primitive
	tracked   bool
}

// NewObject creates an object type named name inheriting from base.
func NewObject(name string, base *Type) *Type {
	return &Type{Name: name, Kind: KindObject, Base: base}
}

// NewEnum creates an enumeration with the given keys. Its keys load as
// values of the enumeration itself.
func NewEnum(name string, keys ...string) *Type {
	return &Type{Name: name, Kind: KindEnum, keys: keys}
}

// HasKey reports whether the enumeration t declares key.
func (t *Type) HasKey(key string) bool {
	if t == nil || t.Kind != KindEnum {
		return false
	}
	for _, k := range t.keys {
		if k == key {
			return true
		}
	}
	return false
}

// ListOf returns a sequence type holding elem.
func ListOf(elem *Type) *Type {
	return &Type{Kind: KindSequence, Element: elem}
}

// MetatypeOf returns the metatype through which t is constructed.
func MetatypeOf(t *Type) *Type {
	return &Type{Kind: KindMetatype, Instance: t}
}

// String returns a descriptive name.
func (t *Type) String() string {
	if t == nil {
		return "<unknown>"
	}
	switch t.Kind {
	case KindSequence:
		return "list<" + t.Element.String() + ">"
	case KindMetatype:
		return "type " + t.Instance.String()
	case KindObject:
		if t.Name == "" {
			return "object{" + strings.Join(t.order, ", ") + "}"
		}
	}
	return t.Name
}

// SetParent places t under parent in the document scope chain.
func (t *Type) SetParent(parent *Type, id string) *Type {
	t.Parent = parent
	t.ID = id
	return t
}

// AddProperty declares a property on t.
func (t *Type) AddProperty(name string, typ *Type, writable bool) *Type {
	t.addMember(&Member{
		Name:     name,
		Kind:     MemberProperty,
		Property: &Property{Name: name, Type: typ, TypeName: typ.String(), Writable: writable},
	})
	return t
}

// DeclareProperty declares a fully described property on t.
func (t *Type) DeclareProperty(p *Property) *Type {
	t.addMember(&Member{Name: p.Name, Kind: MemberProperty, Property: p})
	return t
}

// AddMethod declares an overload of name on t.
func (t *Type) AddMethod(m *Method) *Type {
	if existing, ok := t.members[m.Name]; ok && existing.Kind == MemberMethod {
		existing.Methods = append(existing.Methods, m)
		return t
	}
	t.addMember(&Member{Name: m.Name, Kind: MemberMethod, Methods: []*Method{m}})
	return t
}

func (t *Type) addMember(m *Member) {
	if t.members == nil {
		t.members = make(map[string]*Member)
	}
	if _, ok := t.members[m.Name]; !ok {
		t.order = append(t.order, m.Name)
	}
	t.members[m.Name] = m
}

// OwnMember returns a member declared directly on t.
func (t *Type) OwnMember(name string) (*Member, bool) {
	m, ok := t.members[name]
	return m, ok
}

// HasMember reports whether t or one of its bases declares name.
func (t *Type) HasMember(name string) bool {
	for c := t; c != nil; c = c.Base {
		if _, ok := c.members[name]; ok {
			return true
		}
	}
	return false
}

// MemberNames returns the names declared on t and its bases, sorted.
func (t *Type) MemberNames() []string {
	seen := make(map[string]bool)
	var names []string
	for c := t; c != nil; c = c.Base {
		for _, n := range c.order {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Properties returns the properties declared directly on t in declaration order.
func (t *Type) Properties() []*Property {
	var out []*Property
	for _, n := range t.order {
		if m := t.members[n]; m.Kind == MemberProperty {
			out = append(out, m.Property)
		}
	}
	return out
}

func (t *Type) IsVoid() bool      { return t != nil && t.Kind == KindVoid }
func (t *Type) IsVariant() bool   { return t != nil && t.Kind == KindVariant }
func (t *Type) IsSequence() bool  { return t != nil && t.Kind == KindSequence }
func (t *Type) IsObject() bool    { return t != nil && t.Kind == KindObject }
func (t *Type) IsMetatype() bool  { return t != nil && t.Kind == KindMetatype }
func (t *Type) IsEnum() bool      { return t != nil && t.Kind == KindEnum }
func (t *Type) IsPrimitive() bool { return t != nil && (t.Kind == KindPrimitive || t.Kind == KindNull || t.Kind == KindVoid) }

// IsNumeric reports whether t is bool, int or real.
func (t *Type) IsNumeric() bool {
	return t != nil && t.Kind == KindPrimitive && t.Primitive >= PrimBool && t.Primitive <= PrimReal
}

// IsIntegral reports whether t is bool or int.
func (t *Type) IsIntegral() bool {
	return t != nil && t.Kind == KindPrimitive && (t.Primitive == PrimBool || t.Primitive == PrimInt)
}

// IsString reports whether t is the string type.
func (t *Type) IsString() bool {
	return t != nil && t.Kind == KindPrimitive && t.Primitive == PrimString
}

// InheritsFrom reports whether t equals base or has it among its bases.
func (t *Type) InheritsFrom(base *Type) bool {
	for c := t; c != nil; c = c.Base {
		if Equal(c, base) {
			return true
		}
	}
	return false
}

// Equal reports whether a and b denote the same type. Sequences compare by
// element; tracked types compare by their current shape.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindVoid, KindNull, KindVariant, KindFunction:
		return true
	case KindPrimitive:
		return a.Primitive == b.Primitive
	case KindSequence:
		return Equal(a.Element, b.Element)
	case KindMetatype:
		return Equal(a.Instance, b.Instance)
	case KindObject:
		return a.origin() == b.origin() && a.Name != ""
	case KindEnum:
		return a.origin() == b.origin()
	}
	return false
}

func (t *Type) origin() *Type {
	if t.original != nil {
		return t.original
	}
	return t
}
