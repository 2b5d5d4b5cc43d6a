package ir

import (
	"sort"
	"strconv"
	"strings"

	"github.com/wippyai/script-aot/bytecode"
	"github.com/wippyai/script-aot/types"
)

const (
	// PrologOffset keys the synthetic block that holds the function's
	// incoming arguments.
	PrologOffset = -1
	// InvalidRegister marks annotations that write nothing.
	InvalidRegister = -1

	Accumulator   = bytecode.Accumulator
	FirstArgument = bytecode.FirstArgument
)

// Variant says how a register's value came to be.
type Variant uint8

const (
	VariantBuiltin Variant = iota
	VariantLiteral
	VariantProperty
	VariantMethod
	VariantMethodReturn
	VariantScriptReturn
	VariantMetatype
	VariantScopeObject
	VariantConversion
	VariantScopeAttached
)

var variantNames = [...]string{
	VariantBuiltin:       "builtin",
	VariantLiteral:       "literal",
	VariantProperty:      "property",
	VariantMethod:        "method",
	VariantMethodReturn:  "method-return",
	VariantScriptReturn:  "script-return",
	VariantMetatype:      "metatype",
	VariantScopeObject:   "scope-object",
	VariantConversion:    "conversion",
	VariantScopeAttached: "scope-attached",
}

func (v Variant) String() string {
	if int(v) < len(variantNames) {
		return variantNames[v]
	}
	return "unknown"
}

// Origin is one incoming value of a conversion: the write that produced it
// and the type it had on that path.
type Origin struct {
	Type  *types.Type
	Write int
}

// Content is the semantic type tag of a register at one point.
type Content struct {
	Type     *types.Type
	Property *types.Property
	Methods  []*types.Method
	Origins  []Origin // VariantConversion only
	Source   int      // offset of the write that produced the value
	Variant  Variant
}

// IsValid reports whether c holds a type.
func (c Content) IsValid() bool {
	return c.Type != nil
}

// IsConversion reports whether c was created by merging differently typed
// values at a join.
func (c Content) IsConversion() bool {
	return c.Variant == VariantConversion
}

// IsMethod reports whether c names a method set rather than a value.
func (c Content) IsMethod() bool {
	return c.Variant == VariantMethod
}

// HasOrigin reports whether write is one of c's conversion origins.
func (c Content) HasOrigin(write int) bool {
	for _, o := range c.Origins {
		if o.Write == write {
			return true
		}
	}
	return false
}

// OriginTypes returns the distinct origin types of a conversion.
func (c Content) OriginTypes() []*types.Type {
	var out []*types.Type
	for _, o := range c.Origins {
		dup := false
		for _, t := range out {
			if types.Equal(t, o.Type) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, o.Type)
		}
	}
	return out
}

func (c Content) String() string {
	if !c.IsValid() {
		return "<invalid>"
	}
	if !c.IsConversion() {
		return c.Type.String()
	}
	var b strings.Builder
	b.WriteString(c.Type.String())
	b.WriteString(" <- (")
	for i, o := range c.Origins {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(o.Type.String())
		b.WriteByte('@')
		b.WriteString(strconv.Itoa(o.Write))
	}
	b.WriteByte(')')
	return b.String()
}

// NewContent creates a plain content produced at source.
func NewContent(t *types.Type, v Variant, source int) Content {
	return Content{Type: t, Variant: v, Source: source}
}

// Conversion creates the content of a merge at offset at. Origins are
// deduplicated by write and sorted.
func Conversion(at int, merged *types.Type, origins []Origin) Content {
	seen := make(map[int]bool, len(origins))
	var uniq []Origin
	for _, o := range origins {
		if !seen[o.Write] {
			seen[o.Write] = true
			uniq = append(uniq, o)
		}
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].Write < uniq[j].Write })
	return Content{Type: merged, Variant: VariantConversion, Origins: uniq, Source: at}
}

// Origins returns the incoming (write, type) pairs c stands for: its own
// origins if c is a conversion, the pair of its source otherwise.
func Origins(c Content) []Origin {
	if c.IsConversion() {
		return c.Origins
	}
	return []Origin{{Write: c.Source, Type: c.Type}}
}

// Registers is the register state at one point.
type Registers map[int]Content

// Clone copies the state. Contents are values; types are shared.
func (r Registers) Clone() Registers {
	out := make(Registers, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// EqualTypes reports whether both states hold the same registers with
// equal types.
func (r Registers) EqualTypes(other Registers) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		o, ok := other[k]
		if !ok || !types.Equal(v.Type, o.Type) {
			return false
		}
	}
	return true
}

// Sorted returns the register numbers in ascending order.
func (r Registers) Sorted() []int {
	regs := make([]int, 0, len(r))
	for k := range r {
		regs = append(regs, k)
	}
	sort.Ints(regs)
	return regs
}
