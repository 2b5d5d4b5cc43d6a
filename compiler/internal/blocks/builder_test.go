package blocks

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/script-aot/bytecode"
	"github.com/wippyai/script-aot/compiler/internal/ir"
	"github.com/wippyai/script-aot/errors"
)

func function(t *testing.T, a *bytecode.Assembler) *ir.Function {
	t.Helper()
	code, err := a.Bytes()
	require.NoError(t, err)
	return &ir.Function{Name: t.Name(), Code: code}
}

func lengthSum(m *ir.BlockMap) int {
	n := 0
	for _, b := range m.Blocks() {
		n += b.Length
	}
	return n
}

func instructionCount(t *testing.T, code []byte) int {
	t.Helper()
	instrs, err := bytecode.Decode(code)
	require.NoError(t, err)
	return len(instrs)
}

// ternary assembles `x > 10 ? 10 : x`.
func ternary() *bytecode.Assembler {
	a := bytecode.NewAssembler()
	a.Emit(bytecode.OpLoadInt, 10)
	a.Emit(bytecode.OpCmpGt, bytecode.FirstArgument)
	a.Jump(bytecode.OpJumpFalse, "else")
	a.Emit(bytecode.OpLoadInt, 10)
	a.Jump(bytecode.OpJump, "end")
	a.Label("else")
	a.Emit(bytecode.OpLoadReg, bytecode.FirstArgument)
	a.Label("end")
	a.Emit(bytecode.OpRet)
	return a
}

// breakLoop assembles `x = 0; for (;;) { if (cond) break; x = x + 1 } return x`
// with cond in argument 1 and x in register 2.
func breakLoop() *bytecode.Assembler {
	a := bytecode.NewAssembler()
	a.Emit(bytecode.OpLoadZero)
	a.Emit(bytecode.OpStoreReg, 2)
	a.Label("top")
	a.Emit(bytecode.OpLoadReg, bytecode.FirstArgument)
	a.Jump(bytecode.OpJumpTrue, "out")
	a.Emit(bytecode.OpLoadInt, 1)
	a.Emit(bytecode.OpAdd, 2)
	a.Emit(bytecode.OpStoreReg, 2)
	a.Jump(bytecode.OpJump, "top")
	a.Label("out")
	a.Emit(bytecode.OpLoadReg, 2)
	a.Emit(bytecode.OpRet)
	return a
}

func TestBuildStraightLine(t *testing.T) {
	a := bytecode.NewAssembler()
	a.Emit(bytecode.OpLoadInt, 1)
	a.Emit(bytecode.OpRet)
	fn := function(t, a)

	res, err := Build(fn, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Passes)
	require.Equal(t, []int{ir.PrologOffset, 0}, res.Blocks.Starts())

	b0, ok := res.Blocks.Get(0)
	require.True(t, ok)
	require.Equal(t, []int{ir.PrologOffset}, b0.JumpOrigins)
	require.Equal(t, 2, b0.Length)
	require.True(t, b0.IsReturnBlock)
	require.Equal(t, []int{bytecode.Accumulator}, b0.ReadRegisters)

	require.NoError(t, Validate(res.Blocks, len(fn.Code)))
}

func TestBuildConditional(t *testing.T) {
	a := ternary()
	fn := function(t, a)
	elseOff, _ := a.LabelOffset("else")
	endOff, _ := a.LabelOffset("end")

	res, err := Build(fn, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Passes)
	require.Equal(t, []int{ir.PrologOffset, 0, 15, elseOff, endOff}, res.Blocks.Starts())

	tests := []struct {
		start   int
		origins []int
		target  int
		uncond  bool
		length  int
		ret     bool
	}{
		{0, []int{ir.PrologOffset}, elseOff, false, 3, false},
		{15, []int{0}, endOff, true, 2, false},
		{elseOff, []int{10}, ir.NoJumpTarget, false, 1, false},
		{endOff, []int{20, elseOff}, ir.NoJumpTarget, false, 1, true},
	}
	for _, tt := range tests {
		blk, ok := res.Blocks.Get(tt.start)
		require.True(t, ok, "block %d", tt.start)
		require.Equal(t, tt.origins, blk.JumpOrigins, "origins of %d", tt.start)
		require.Equal(t, tt.target, blk.JumpTarget, "target of %d", tt.start)
		require.Equal(t, tt.uncond, blk.JumpIsUnconditional, "uncond of %d", tt.start)
		require.Equal(t, tt.length, blk.Length, "length of %d", tt.start)
		require.Equal(t, tt.ret, blk.IsReturnBlock, "ret of %d", tt.start)
	}

	require.Equal(t, instructionCount(t, fn.Code), lengthSum(res.Blocks))
	require.Equal(t, res.Instructions, lengthSum(res.Blocks))
	require.NoError(t, Validate(res.Blocks, len(fn.Code)))
}

func TestBuildLoop(t *testing.T) {
	a := breakLoop()
	fn := function(t, a)
	top, _ := a.LabelOffset("top")
	out, _ := a.LabelOffset("out")

	res, err := Build(fn, nil)
	require.NoError(t, err)
	require.Equal(t, 2, res.Passes)
	require.Equal(t, []int{ir.PrologOffset, 0, top, top + 10, out}, res.Blocks.Starts())

	header, _ := res.Blocks.Get(top)
	require.Equal(t, []int{0, out - 5}, header.JumpOrigins)
	require.Equal(t, out, header.JumpTarget)

	body, _ := res.Blocks.Get(top + 10)
	require.Equal(t, top, body.JumpTarget)
	require.True(t, body.JumpIsUnconditional)
	require.Equal(t, 4, body.Length)

	entry, _ := res.Blocks.Get(0)
	require.Equal(t, 2, entry.Length)

	require.Equal(t, instructionCount(t, fn.Code), lengthSum(res.Blocks))
	require.NoError(t, Validate(res.Blocks, len(fn.Code)))
}

// A single pass over already known block starts must reproduce the graph
// the two-pass build found.
func TestBuildTwoPassIdempotence(t *testing.T) {
	fn := function(t, breakLoop())

	res, err := Build(fn, nil)
	require.NoError(t, err)
	require.Equal(t, 2, res.Passes)

	b := &builder{blocks: ir.NewBlockMap()}
	for _, s := range res.Blocks.Starts() {
		b.blocks.Insert(s)
	}
	require.NoError(t, b.pass(fn.Code))
	for _, blk := range b.blocks.Blocks() {
		blk.DedupOrigins()
	}

	require.Equal(t, res.Blocks.Starts(), b.blocks.Starts())
	for _, want := range res.Blocks.Blocks() {
		got, ok := b.blocks.Get(want.Start)
		require.True(t, ok)
		require.Equal(t, want.JumpOrigins, got.JumpOrigins, "origins of %d", want.Start)
		require.Equal(t, want.JumpTarget, got.JumpTarget, "target of %d", want.Start)
		require.Equal(t, want.Length, got.Length, "length of %d", want.Start)
		require.Equal(t, want.JumpIsUnconditional, got.JumpIsUnconditional)
		require.Equal(t, want.IsReturnBlock, got.IsReturnBlock)
	}

	// A loop whose header is the function entry needs no re-split, and
	// still yields the same graph from either pass.
	a := bytecode.NewAssembler()
	a.Label("top")
	a.Emit(bytecode.OpLoadReg, bytecode.FirstArgument)
	a.Jump(bytecode.OpJumpTrue, "out")
	a.Jump(bytecode.OpJump, "top")
	a.Label("out")
	a.Emit(bytecode.OpRet)
	fn = function(t, a)

	first := &builder{blocks: ir.NewBlockMap()}
	require.NoError(t, first.pass(fn.Code))
	firstStarts := first.blocks.Starts()

	res, err = Build(fn, nil)
	require.NoError(t, err)
	require.Equal(t, firstStarts, res.Blocks.Starts())
}

func TestBuildDeadCode(t *testing.T) {
	a := bytecode.NewAssembler()
	a.Emit(bytecode.OpLoadInt, 1)
	a.Emit(bytecode.OpRet)
	a.Emit(bytecode.OpLoadInt, 2)
	a.Emit(bytecode.OpDefineArray, 1, 3)
	a.Emit(bytecode.OpRet)
	fn := function(t, a)

	res, err := Build(fn, nil)
	require.NoError(t, err)
	require.Equal(t, []int{ir.PrologOffset, 0}, res.Blocks.Starts())
	require.Equal(t, 2, res.Instructions)
	require.Empty(t, res.Literals)
}

func TestBuildContextInDeadRegion(t *testing.T) {
	t.Run("balanced", func(t *testing.T) {
		a := bytecode.NewAssembler()
		a.Emit(bytecode.OpPushBlockContext, 0)
		a.Jump(bytecode.OpJump, "out")
		a.Emit(bytecode.OpPushWithContext)
		a.Emit(bytecode.OpPopContext)
		a.Label("out")
		a.Emit(bytecode.OpPopContext)
		a.Emit(bytecode.OpLoadUndefined)
		a.Emit(bytecode.OpRet)
		fn := function(t, a)

		res, err := Build(fn, nil)
		require.NoError(t, err)
		require.Equal(t, 5, res.Instructions)
	})

	t.Run("push observed while skipping", func(t *testing.T) {
		a := bytecode.NewAssembler()
		a.Jump(bytecode.OpJump, "out")
		a.Emit(bytecode.OpPushBlockContext, 0)
		a.Label("out")
		a.Emit(bytecode.OpLoadUndefined)
		a.Emit(bytecode.OpRet)
		fn := function(t, a)

		res, err := Build(fn, nil)
		require.NotNil(t, res)
		require.Error(t, err)
		require.True(t, errors.IsStructural(err))
		require.Contains(t, err.Error(), "unbalanced")
	})

	t.Run("underflow", func(t *testing.T) {
		a := bytecode.NewAssembler()
		a.Emit(bytecode.OpPopContext)
		a.Emit(bytecode.OpCreateCallContext)
		a.Emit(bytecode.OpRet)
		fn := function(t, a)

		res, err := Build(fn, nil)
		require.NotNil(t, res)
		require.True(t, errors.IsStructural(err))
		require.Contains(t, err.Error(), "popped below")
	})
}

func TestBuildLiterals(t *testing.T) {
	a := bytecode.NewAssembler()
	a.Emit(bytecode.OpDefineArray, 3, 2)
	a.Emit(bytecode.OpDefineArray, 0, 0)
	a.Emit(bytecode.OpConstruct, 5, 1, 6)
	a.Emit(bytecode.OpConstruct, 5, 2, 6)
	a.Emit(bytecode.OpConstruct, 5, 0, 0)
	a.Emit(bytecode.OpDefineObjectLiteral, 1, 2, 8)
	a.Emit(bytecode.OpDefineObjectLiteral, 0, 0, 0)
	a.Emit(bytecode.OpRet)
	fn := function(t, a)

	res, err := Build(fn, nil)
	require.NoError(t, err)
	require.Len(t, res.Literals, 4)

	require.Equal(t, ir.LiteralSite{Offset: 0, Kind: ir.LiteralArray, ClassID: -1, Argc: 3, Argv: 2}, res.Literals[0])
	require.Equal(t, ir.LiteralArrayLength, res.Literals[1].Kind)
	require.True(t, res.Literals[1].IsConstruct)
	require.Equal(t, 6, res.Literals[1].Argv)
	require.Equal(t, ir.LiteralArray, res.Literals[2].Kind)
	require.True(t, res.Literals[2].IsConstruct)
	require.Equal(t, ir.LiteralObject, res.Literals[3].Kind)
	require.Equal(t, 1, res.Literals[3].ClassID)
	require.Equal(t, 2, res.Literals[3].Argc)
}

func TestBuildInvalidBytecode(t *testing.T) {
	fn := &ir.Function{Name: "broken", Code: []byte{byte(bytecode.OpLoadInt), 1}}

	res, err := Build(fn, nil)
	require.Nil(t, res)
	require.Error(t, err)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseDecode, Kind: errors.KindInvalidBytecode})
}
