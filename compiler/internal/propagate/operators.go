package propagate

import (
	"github.com/wippyai/script-aot/bytecode"
	"github.com/wippyai/script-aot/types"
)

func isComparison(op bytecode.Opcode) bool {
	switch op {
	case bytecode.OpCmpEq, bytecode.OpCmpNe, bytecode.OpCmpGt, bytecode.OpCmpGe,
		bytecode.OpCmpLt, bytecode.OpCmpLe, bytecode.OpCmpStrictEqual,
		bytecode.OpCmpStrictNotEqual, bytecode.OpCmpIn, bytecode.OpCmpInstanceOf,
		bytecode.OpCmpEqInt, bytecode.OpCmpNeInt, bytecode.OpCmpEqNull,
		bytecode.OpCmpNeNull:
		return true
	}
	return false
}

// binaryResult returns the type of lhs op rhs.
func binaryResult(b *types.Builtins, op bytecode.Opcode, lhs, rhs *types.Type) *types.Type {
	if isComparison(op) {
		return b.Bool
	}
	switch op {
	case bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor,
		bytecode.OpShl, bytecode.OpShr, bytecode.OpUShr:
		return b.Int
	case bytecode.OpDiv, bytecode.OpExp:
		return b.Real
	case bytecode.OpAdd:
		if lhs.IsString() || rhs.IsString() {
			return b.String
		}
	}
	switch {
	case lhs.IsIntegral() && rhs.IsIntegral():
		return b.Int
	case lhs.IsNumeric() && rhs.IsNumeric():
		return b.Real
	}
	return b.JSPrimitive
}

// unaryResult returns the type of op applied to operand, for the unary
// operators and the operators with a constant right-hand side.
func unaryResult(b *types.Builtins, op bytecode.Opcode, operand *types.Type) *types.Type {
	if isComparison(op) {
		return b.Bool
	}
	switch op {
	case bytecode.OpUNot:
		return b.Bool
	case bytecode.OpUCompl, bytecode.OpBitAndConst, bytecode.OpBitOrConst,
		bytecode.OpShlConst, bytecode.OpShrConst:
		return b.Int
	case bytecode.OpTypeofValue:
		return b.String
	}
	// Plus, minus, increment and decrement.
	switch {
	case operand.IsIntegral():
		return b.Int
	case operand.IsPrimitive():
		return b.Real
	}
	return b.JSPrimitive
}

// operandType is the type an operand is converted to before op computes a
// value of type result.
func operandType(op bytecode.Opcode, operand, result *types.Type) *types.Type {
	if isComparison(op) || op == bytecode.OpTypeofValue || op == bytecode.OpUNot {
		return operand
	}
	if operand.IsNumeric() && result.IsNumeric() {
		return result
	}
	return operand
}
