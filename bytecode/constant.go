package bytecode

import (
	"strconv"
)

// ConstKind is the primitive kind of a constant table entry.
type ConstKind uint8

const (
	ConstUndefined ConstKind = iota
	ConstNull
	ConstBool
	ConstInt
	ConstReal
	ConstString
)

// Constant is an entry of a function's constant table.
type Constant struct {
	Str  string
	Real float64
	Int  int64
	Kind ConstKind
	Bool bool
}

// IntConst returns an integer constant.
func IntConst(v int64) Constant { return Constant{Kind: ConstInt, Int: v} }

// RealConst returns a floating point constant.
func RealConst(v float64) Constant { return Constant{Kind: ConstReal, Real: v} }

// BoolConst returns a boolean constant.
func BoolConst(v bool) Constant { return Constant{Kind: ConstBool, Bool: v} }

// StringConst returns a string constant.
func StringConst(v string) Constant { return Constant{Kind: ConstString, Str: v} }

func (c Constant) String() string {
	switch c.Kind {
	case ConstNull:
		return "null"
	case ConstBool:
		return strconv.FormatBool(c.Bool)
	case ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ConstReal:
		return strconv.FormatFloat(c.Real, 'g', -1, 64)
	case ConstString:
		return strconv.Quote(c.Str)
	default:
		return "undefined"
	}
}
