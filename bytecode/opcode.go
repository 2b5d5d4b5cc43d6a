package bytecode

// Opcode identifies an instruction. Zero is never a valid opcode.
type Opcode byte

// Register operands are virtual register indices. The accumulator is the
// implicit operand of most instructions; arguments follow it and
// temporaries follow the arguments.
const (
	Accumulator   = 0
	FirstArgument = 1
)

// Category groups opcodes that a Visitor handles with one method.
type Category uint8

const (
	CategoryInvalid Category = iota
	CategoryConstant
	CategoryRegister
	CategoryName
	CategoryMember
	CategoryCall
	CategoryLiteral
	CategoryJump
	CategoryTerminal
	CategoryContext
	CategoryOperator
)

var categoryNames = [...]string{
	CategoryInvalid:  "invalid",
	CategoryConstant: "constant",
	CategoryRegister: "register",
	CategoryName:     "name",
	CategoryMember:   "member",
	CategoryCall:     "call",
	CategoryLiteral:  "literal",
	CategoryJump:     "jump",
	CategoryTerminal: "terminal",
	CategoryContext:  "context",
	CategoryOperator: "operator",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "invalid"
}

// Constant loads.
const (
	OpLoadConst     Opcode = iota + 1 // const
	OpLoadZero                        //
	OpLoadTrue                        //
	OpLoadFalse                       //
	OpLoadNull                        //
	OpLoadUndefined                   //
	OpLoadInt                         // value
	OpMoveConst                       // const, dest
	OpLoadString                      // string

	// Register moves.
	OpLoadReg  // reg
	OpStoreReg // reg
	OpMoveReg  // src, dest

	// Bare identifiers.
	OpLoadName   // name
	OpStoreName  // name
	OpTypeofName // name

	// Members.
	OpLoadProperty  // name
	OpStoreProperty // name, base
	OpLoadElement   // base
	OpStoreElement  // base, index

	// Calls.
	OpCallProperty // name, base, argc, argv
	OpCallName     // name, argc, argv
	OpCallValue    // func, argc, argv
	OpConstruct    // func, argc, argv

	// Literals.
	OpDefineArray         // argc, argv
	OpDefineObjectLiteral // class, argc, argv

	// Jumps. The operand is relative to the next instruction.
	OpJump
	OpJumpTrue
	OpJumpFalse
	OpJumpNoException

	// Terminals.
	OpRet
	OpThrowException

	// Contexts and exception state.
	OpCreateCallContext
	OpPushBlockContext // index
	OpPushCatchContext // index, name
	OpPushWithContext
	OpPopContext
	OpCheckException

	// Binary operators; the operand is the left-hand register, the
	// accumulator is the right-hand side.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpExp
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpUShr
	OpCmpEq
	OpCmpNe
	OpCmpGt
	OpCmpGe
	OpCmpLt
	OpCmpLe
	OpCmpStrictEqual
	OpCmpStrictNotEqual
	OpCmpIn
	OpCmpInstanceOf

	// Operators with a constant right-hand side.
	OpBitAndConst
	OpBitOrConst
	OpShlConst
	OpShrConst
	OpCmpEqInt
	OpCmpNeInt

	// Unary operators on the accumulator.
	OpUNot
	OpUPlus
	OpUMinus
	OpUCompl
	OpIncrement
	OpDecrement
	OpCmpEqNull
	OpCmpNeNull
	OpTypeofValue

	opCount
)

type opInfo struct {
	name     string
	operands int
	category Category
}

var opTable = [opCount]opInfo{
	OpLoadConst:     {"LoadConst", 1, CategoryConstant},
	OpLoadZero:      {"LoadZero", 0, CategoryConstant},
	OpLoadTrue:      {"LoadTrue", 0, CategoryConstant},
	OpLoadFalse:     {"LoadFalse", 0, CategoryConstant},
	OpLoadNull:      {"LoadNull", 0, CategoryConstant},
	OpLoadUndefined: {"LoadUndefined", 0, CategoryConstant},
	OpLoadInt:       {"LoadInt", 1, CategoryConstant},
	OpMoveConst:     {"MoveConst", 2, CategoryConstant},
	OpLoadString:    {"LoadString", 1, CategoryConstant},

	OpLoadReg:  {"LoadReg", 1, CategoryRegister},
	OpStoreReg: {"StoreReg", 1, CategoryRegister},
	OpMoveReg:  {"MoveReg", 2, CategoryRegister},

	OpLoadName:   {"LoadName", 1, CategoryName},
	OpStoreName:  {"StoreName", 1, CategoryName},
	OpTypeofName: {"TypeofName", 1, CategoryName},

	OpLoadProperty:  {"LoadProperty", 1, CategoryMember},
	OpStoreProperty: {"StoreProperty", 2, CategoryMember},
	OpLoadElement:   {"LoadElement", 1, CategoryMember},
	OpStoreElement:  {"StoreElement", 2, CategoryMember},

	OpCallProperty: {"CallProperty", 4, CategoryCall},
	OpCallName:     {"CallName", 3, CategoryCall},
	OpCallValue:    {"CallValue", 3, CategoryCall},
	OpConstruct:    {"Construct", 3, CategoryCall},

	OpDefineArray:         {"DefineArray", 2, CategoryLiteral},
	OpDefineObjectLiteral: {"DefineObjectLiteral", 3, CategoryLiteral},

	OpJump:            {"Jump", 1, CategoryJump},
	OpJumpTrue:        {"JumpTrue", 1, CategoryJump},
	OpJumpFalse:       {"JumpFalse", 1, CategoryJump},
	OpJumpNoException: {"JumpNoException", 1, CategoryJump},

	OpRet:            {"Ret", 0, CategoryTerminal},
	OpThrowException: {"ThrowException", 0, CategoryTerminal},

	OpCreateCallContext: {"CreateCallContext", 0, CategoryContext},
	OpPushBlockContext:  {"PushBlockContext", 1, CategoryContext},
	OpPushCatchContext:  {"PushCatchContext", 2, CategoryContext},
	OpPushWithContext:   {"PushWithContext", 0, CategoryContext},
	OpPopContext:        {"PopContext", 0, CategoryContext},
	OpCheckException:    {"CheckException", 0, CategoryContext},

	OpAdd:               {"Add", 1, CategoryOperator},
	OpSub:               {"Sub", 1, CategoryOperator},
	OpMul:               {"Mul", 1, CategoryOperator},
	OpDiv:               {"Div", 1, CategoryOperator},
	OpMod:               {"Mod", 1, CategoryOperator},
	OpExp:               {"Exp", 1, CategoryOperator},
	OpBitAnd:            {"BitAnd", 1, CategoryOperator},
	OpBitOr:             {"BitOr", 1, CategoryOperator},
	OpBitXor:            {"BitXor", 1, CategoryOperator},
	OpShl:               {"Shl", 1, CategoryOperator},
	OpShr:               {"Shr", 1, CategoryOperator},
	OpUShr:              {"UShr", 1, CategoryOperator},
	OpCmpEq:             {"CmpEq", 1, CategoryOperator},
	OpCmpNe:             {"CmpNe", 1, CategoryOperator},
	OpCmpGt:             {"CmpGt", 1, CategoryOperator},
	OpCmpGe:             {"CmpGe", 1, CategoryOperator},
	OpCmpLt:             {"CmpLt", 1, CategoryOperator},
	OpCmpLe:             {"CmpLe", 1, CategoryOperator},
	OpCmpStrictEqual:    {"CmpStrictEqual", 1, CategoryOperator},
	OpCmpStrictNotEqual: {"CmpStrictNotEqual", 1, CategoryOperator},
	OpCmpIn:             {"CmpIn", 1, CategoryOperator},
	OpCmpInstanceOf:     {"CmpInstanceOf", 1, CategoryOperator},

	OpBitAndConst: {"BitAndConst", 1, CategoryOperator},
	OpBitOrConst:  {"BitOrConst", 1, CategoryOperator},
	OpShlConst:    {"ShlConst", 1, CategoryOperator},
	OpShrConst:    {"ShrConst", 1, CategoryOperator},
	OpCmpEqInt:    {"CmpEqInt", 1, CategoryOperator},
	OpCmpNeInt:    {"CmpNeInt", 1, CategoryOperator},

	OpUNot:        {"UNot", 0, CategoryOperator},
	OpUPlus:       {"UPlus", 0, CategoryOperator},
	OpUMinus:      {"UMinus", 0, CategoryOperator},
	OpUCompl:      {"UCompl", 0, CategoryOperator},
	OpIncrement:   {"Increment", 0, CategoryOperator},
	OpDecrement:   {"Decrement", 0, CategoryOperator},
	OpCmpEqNull:   {"CmpEqNull", 0, CategoryOperator},
	OpCmpNeNull:   {"CmpNeNull", 0, CategoryOperator},
	OpTypeofValue: {"TypeofValue", 0, CategoryOperator},
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	return op > 0 && op < opCount
}

func (op Opcode) String() string {
	if !op.Valid() {
		return "Invalid"
	}
	return opTable[op].name
}

// Operands returns the number of 32-bit operands following the opcode byte.
func (op Opcode) Operands() int {
	if !op.Valid() {
		return 0
	}
	return opTable[op].operands
}

// Category returns the visitor category of op.
func (op Opcode) Category() Category {
	if !op.Valid() {
		return CategoryInvalid
	}
	return opTable[op].category
}

// IsJump reports whether op transfers control to a relative offset.
func (op Opcode) IsJump() bool {
	return op.Category() == CategoryJump
}

// IsUnconditionalJump reports whether control never falls through op.
func (op Opcode) IsUnconditionalJump() bool {
	return op == OpJump
}

// IsBinary reports whether op reads a left-hand register and the accumulator.
func (op Opcode) IsBinary() bool {
	return op >= OpAdd && op <= OpCmpInstanceOf
}

// WritesAccumulatorWithoutReading reports whether op overwrites the
// accumulator regardless of its previous content.
func (op Opcode) WritesAccumulatorWithoutReading() bool {
	switch op {
	case OpLoadConst, OpLoadZero, OpLoadTrue, OpLoadFalse, OpLoadNull,
		OpLoadUndefined, OpLoadInt, OpLoadString, OpLoadReg, OpLoadName,
		OpTypeofName, OpCallName, OpCallProperty, OpCallValue, OpConstruct,
		OpDefineArray, OpDefineObjectLiteral:
		return true
	}
	return false
}

// ManipulatesContext reports whether op changes the context chain. Such
// instructions are observed even in unreachable regions so that nested
// context state stays balanced.
func ManipulatesContext(op Opcode) bool {
	switch op {
	case OpCreateCallContext, OpPushBlockContext, OpPushCatchContext,
		OpPushWithContext, OpPopContext:
		return true
	}
	return false
}
