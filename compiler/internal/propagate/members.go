package propagate

import (
	"fmt"
	"strings"

	"github.com/wippyai/script-aot/compiler/internal/ir"
	"github.com/wippyai/script-aot/diag"
	"github.com/wippyai/script-aot/types"
)

// deprecated warns when m is declared deprecated.
func (p *propagator) deprecated(m *types.Member, name string) {
	var dep *types.Deprecation
	what, descriptor := "Property", name
	switch m.Kind {
	case types.MemberProperty:
		dep = m.Property.Deprecation
	case types.MemberMethod:
		if len(m.Methods) == 0 {
			return
		}
		first := m.Methods[0]
		dep = first.Deprecation
		what = "Method"
		descriptor = name + "(" + strings.Join(first.ParamNames, ", ") + ")"
	}
	if dep == nil {
		return
	}
	msg := fmt.Sprintf("%s \"%s\" is deprecated", what, descriptor)
	if dep.Reason != "" {
		msg += " (Reason: " + dep.Reason + ")"
	}
	p.warn(diag.CategoryDeprecation, nil, msg)
}

// restricted warns when name cannot be looked up on base because of what
// base is. It reports whether it warned.
func (p *propagator) restricted(base ir.Content, name string) bool {
	var kind string
	switch {
	case base.Type.IsSequence() && name != "length":
		kind = "a list"
	case base.Type.IsEnum() && !base.Type.HasKey(name):
		kind = "an enum"
	case base.IsMethod():
		kind = "a method"
	default:
		return false
	}
	p.warn(diag.CategoryType, nil, fmt.Sprintf("Type is %s. You cannot access \"%s\" from here.", kind, name))
	return true
}

func (p *propagator) missingType(prop *types.Property) {
	p.warn(diag.CategoryType, nil, fmt.Sprintf(
		"Type \"%s\" of property \"%s\" not found. This is likely due to a missing dependency entry or a type not being exposed declaratively.",
		prop.TypeName, prop.Name))
}

// callingProperty explains a call of name, which owner declares as prop.
func (p *propagator) callingProperty(owner *types.Type, prop *types.Property, name string) {
	kind, what := "Property", "not a method"
	if methods := shadowedMethods(owner, name); len(methods) > 0 {
		kind, what = methods[0].Kind.String(), "shadowed by a property."
	} else if prop.Type.IsVariant() {
		what = "a variant property. It may or may not be a method. Use a regular function instead."
	}
	p.warn(diag.CategoryType, nil, fmt.Sprintf("%s \"%s\" is %s", kind, name, what))
}

// shadowedMethods returns the methods named name further down owner's base
// chain.
func shadowedMethods(owner *types.Type, name string) []*types.Method {
	for c := owner; c != nil; c = c.Base {
		if m, ok := c.OwnMember(name); ok && m.Kind == types.MemberMethod {
			return m.Methods
		}
	}
	return nil
}

func (p *propagator) notFound(base ir.Content, name string) {
	p.warn(diag.CategoryType, nil, fmt.Sprintf("Property \"%s\" not found on type \"%s\"", name, base.Type))
}

// attachedUse records that the function's scope loads from the attached
// type in base, and warns for every enclosing scope that already did.
// Enum lookups do not instantiate the attached object and are not reported.
func (p *propagator) attachedUse(base ir.Content, m *types.Member) {
	scope := p.fn.Scope
	if base.Variant != ir.VariantScopeAttached || scope == nil {
		return
	}
	enum := m != nil && m.Kind == types.MemberProperty && m.Property.Type.IsEnum()
	for parent := scope.Parent; parent != nil && !enum; parent = parent.Parent {
		if !p.attached.Used(parent, base.Type) {
			continue
		}
		loc := p.fn.LocationAt(p.in.Offset)
		loc.Length = 0
		fix := diag.Fix{Message: "Reference it by id instead:", Location: loc, Replacement: parent.ID + "."}
		suggestion := &diag.FixSuggestion{}
		if parent.ID == "" {
			fix.Replacement = "<id>."
			suggestion.Fixes = append(suggestion.Fixes, fix,
				diag.Fix{Message: "You first have to give the element an id"})
		} else {
			suggestion.Fixes = append(suggestion.Fixes, fix)
		}
		p.warn(diag.CategoryAttachedReuse, suggestion,
			fmt.Sprintf("Using attached type %s already initialized in a parent scope.", base.Type))
	}
	p.attached.Record(scope, base.Type)
}

// describe names what base holds for diagnostics.
func describe(base ir.Content) string {
	if base.IsMethod() {
		return "a method"
	}
	return base.Type.String()
}
