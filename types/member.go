package types

import "strings"

// MemberKind tells what a name resolves to.
type MemberKind uint8

const (
	MemberProperty MemberKind = iota
	MemberMethod
	MemberType     // a constructible type, Type is its metatype
	MemberObject   // a singleton or an addressable element, Type is the object
	MemberAttached // an attached type, Type is the attached object
)

// Member is the result of a name lookup.
type Member struct {
	Property *Property
	Type     *Type
	Name     string
	Methods  []*Method
	Kind     MemberKind
}

// Deprecation marks a member that should no longer be used.
type Deprecation struct {
	Reason string
}

// Property is a typed, possibly writable, member. A nil Type with a
// TypeName means the declared type could not be resolved.
type Property struct {
	Type        *Type
	Deprecation *Deprecation
	Name        string
	TypeName    string
	Writable    bool
}

// MethodKind tells how a method was declared.
type MethodKind uint8

const (
	MethodPlain MethodKind = iota
	MethodSignal
	MethodSlot
)

func (k MethodKind) String() string {
	switch k {
	case MethodSignal:
		return "Signal"
	case MethodSlot:
		return "Slot"
	}
	return "Method"
}

// Method is one overload of a method set.
type Method struct {
	Return      *Type
	Deprecation *Deprecation
	Name        string
	ReturnName  string
	Params      []*Type
	ParamNames  []string
	Kind        MethodKind

	// IsScript marks a generic script function. It accepts any call and
	// returns var; resolution uses it only when no typed overload matches.
	IsScript bool
}

// NewMethod builds a typed overload.
func NewMethod(name string, ret *Type, params ...*Type) *Method {
	m := &Method{Name: name, Return: ret, Params: params}
	if ret != nil {
		m.ReturnName = ret.String()
	}
	for _, p := range params {
		m.ParamNames = append(m.ParamNames, p.String())
	}
	return m
}

// NewScriptMethod builds a generic script function overload.
func NewScriptMethod(name string, params int) *Method {
	m := &Method{Name: name, IsScript: true}
	for i := 0; i < params; i++ {
		m.Params = append(m.Params, nil)
		m.ParamNames = append(m.ParamNames, "var")
	}
	return m
}

// Signature renders the overload for diagnostics.
func (m *Method) Signature() string {
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteByte('(')
	b.WriteString(strings.Join(m.ParamNames, ", "))
	b.WriteByte(')')
	if m.ReturnName != "" {
		b.WriteString(": ")
		b.WriteString(m.ReturnName)
	}
	return b.String()
}
