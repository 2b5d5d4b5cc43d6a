package propagate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/script-aot/bytecode"
	"github.com/wippyai/script-aot/compiler/internal/ir"
	"github.com/wippyai/script-aot/diag"
	"github.com/wippyai/script-aot/errors"
	"github.com/wippyai/script-aot/types"
)

type fixture struct {
	u    *types.Universe
	b    *types.Builtins
	sink *diag.Collector
}

func newFixture() *fixture {
	u := types.NewUniverse()
	return &fixture{u: u, b: u.Builtins(), sink: &diag.Collector{}}
}

func (f *fixture) function(t *testing.T, a *bytecode.Assembler) *ir.Function {
	t.Helper()
	code, err := a.Bytes()
	require.NoError(t, err)
	return &ir.Function{Name: t.Name(), Code: code}
}

func (f *fixture) run(fn *ir.Function) (*Result, error) {
	return Run(fn, Config{Resolver: f.u, Sink: f.sink})
}

func TestTernaryMergesWithoutConversion(t *testing.T) {
	f := newFixture()
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
	fn := f.function(t, a)
	fn.Arguments = []*types.Type{f.b.Int}
	fn.ReturnType = f.b.Int
	end, _ := a.LabelOffset("end")

	res, err := f.run(fn)
	require.NoError(t, err)
	require.Equal(t, 1, res.Attempts)

	ret := res.Annotations[end]
	require.NotNil(t, ret)
	require.Empty(t, ret.Conversions)
	require.True(t, types.Equal(f.b.Int, ret.Reads[ir.Accumulator].Content.Type))

	cmp := res.Annotations[5]
	require.Equal(t, ir.Accumulator, cmp.ChangedRegister)
	require.True(t, types.Equal(f.b.Bool, cmp.Changed.Type))

	load := res.Annotations[end-5]
	require.True(t, load.IsRename)
	require.Equal(t, ir.PrologOffset, load.Changed.Source)
}

// loop assembles `x = 0; while (!cond) x = x + 0.5; return x` with cond in
// argument 1 and x in register reg. Labels are prefixed with name.
func loop(a *bytecode.Assembler, name string, reg int) {
	a.Label(name + "top")
	a.Emit(bytecode.OpLoadReg, bytecode.FirstArgument)
	a.Jump(bytecode.OpJumpTrue, name+"out")
	a.Emit(bytecode.OpLoadConst, 0)
	a.Emit(bytecode.OpAdd, reg)
	a.Emit(bytecode.OpStoreReg, reg)
	a.Jump(bytecode.OpJump, name+"top")
	a.Label(name + "out")
}

func TestLoopHeaderConversion(t *testing.T) {
	f := newFixture()
	a := bytecode.NewAssembler()
	a.Emit(bytecode.OpLoadZero)
	a.Emit(bytecode.OpStoreReg, 2)
	loop(a, "", 2)
	a.Emit(bytecode.OpLoadReg, 2)
	a.Emit(bytecode.OpRet)
	fn := f.function(t, a)
	fn.Arguments = []*types.Type{f.b.Bool}
	fn.ReturnType = f.b.Real
	fn.Constants = []bytecode.Constant{bytecode.RealConst(0.5)}
	top, _ := a.LabelOffset("top")

	res, err := f.run(fn)
	require.NoError(t, err)
	require.Equal(t, 2, res.Attempts)

	header := res.Annotations[top]
	require.NotNil(t, header)
	conv, ok := header.Conversions[2]
	require.True(t, ok)
	require.True(t, conv.IsConversion())
	require.True(t, types.Equal(f.b.Real, conv.Type))
	require.Equal(t, top, conv.Source)

	origins := conv.OriginTypes()
	require.Len(t, origins, 2)
	require.True(t, types.Equal(f.b.Int, origins[0]))
	require.True(t, types.Equal(f.b.Real, origins[1]))
	require.Equal(t, []int{0, top + 15}, []int{conv.Origins[0].Write, conv.Origins[1].Write})

	// The accumulator is overwritten by the header instruction and is not
	// merged there.
	_, ok = header.Conversions[ir.Accumulator]
	require.False(t, ok)
}

func TestRestartsBoundedByBackEdges(t *testing.T) {
	f := newFixture()
	a := bytecode.NewAssembler()
	a.Emit(bytecode.OpLoadZero)
	a.Emit(bytecode.OpStoreReg, 2)
	a.Emit(bytecode.OpStoreReg, 3)
	loop(a, "first", 2)
	loop(a, "second", 3)
	a.Emit(bytecode.OpLoadReg, 3)
	a.Emit(bytecode.OpRet)
	fn := f.function(t, a)
	fn.Arguments = []*types.Type{f.b.Bool}
	fn.ReturnType = f.b.Real
	fn.Constants = []bytecode.Constant{bytecode.RealConst(0.5)}

	res, err := f.run(fn)
	require.NoError(t, err)
	require.Equal(t, 3, res.Attempts)

	second, _ := a.LabelOffset("secondtop")
	conv, ok := res.Annotations[second].Conversions[3]
	require.True(t, ok)
	require.Len(t, conv.OriginTypes(), 2)

	_, err = Run(fn, Config{Resolver: f.u, MaxAttempts: 2})
	require.Error(t, err)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhasePropagate, Kind: errors.KindUnsupported})
}

func TestStableLoopNeedsOneRestart(t *testing.T) {
	f := newFixture()
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
	fn := f.function(t, a)
	fn.Arguments = []*types.Type{f.b.Bool}
	fn.ReturnType = f.b.Int
	top, _ := a.LabelOffset("top")

	res, err := f.run(fn)
	require.NoError(t, err)
	require.Equal(t, 2, res.Attempts)
	require.Empty(t, res.Annotations[top].Conversions)
}

func TestTypeErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(f *fixture, a *bytecode.Assembler, fn *ir.Function)
		kind  errors.Kind
		want  string
	}{
		{
			name: "unknown name",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				a.Emit(bytecode.OpLoadName, 0)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"foo"}
			},
			kind: errors.KindUnresolvedName,
			want: "Cannot find name foo",
		},
		{
			name: "unknown function",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				a.Emit(bytecode.OpCallName, 0, 0, 0)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"frobnicate"}
			},
			kind: errors.KindUnresolvedName,
			want: "Cannot find function 'frobnicate'",
		},
		{
			name: "arity",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				a.Emit(bytecode.OpCallName, 0, 0, 0)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"isNaN"}
				fn.ReturnType = f.b.Bool
			},
			kind: errors.KindArity,
			want: "Function expects 1 arguments, but 0 were provided",
		},
		{
			name: "argument conversion",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				a.Emit(bytecode.OpDefineArray, 0, 0)
				a.Emit(bytecode.OpStoreReg, 2)
				a.Emit(bytecode.OpCallName, 0, 1, 2)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"parseInt"}
				fn.ReturnType = f.b.Int
			},
			kind: errors.KindConversion,
			want: "argument 0 contains list<var> but is expected to contain the type string",
		},
		{
			name: "no matching overload",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				a.Emit(bytecode.OpLoadString, 0)
				a.Emit(bytecode.OpStoreReg, 3)
				a.Emit(bytecode.OpLoadName, 1)
				a.Emit(bytecode.OpStoreReg, 2)
				a.Emit(bytecode.OpCallProperty, 2, 2, 1, 3)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"s", "Math", "abs"}
				fn.ReturnType = f.b.Real
			},
			kind: errors.KindAmbiguousOverload,
			want: "No matching override found. Candidates:\n" +
				"argument 0 contains string but is expected to contain the type int\n" +
				"argument 0 contains string but is expected to contain the type real",
		},
		{
			name: "untyped return",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				a.Emit(bytecode.OpLoadInt, 1)
				a.Emit(bytecode.OpRet)
			},
			kind: errors.KindConversion,
			want: "function without type annotation returns int",
		},
		{
			name: "return conversion",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				a.Emit(bytecode.OpLoadString, 0)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"s"}
				fn.ReturnType = f.b.Int
			},
			kind: errors.KindConversion,
			want: "cannot convert from string to int",
		},
		{
			name: "read-only store",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				a.Emit(bytecode.OpLoadInt, 1)
				a.Emit(bytecode.OpStoreName, 0)
				a.Emit(bytecode.OpLoadUndefined)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"undefined"}
			},
			kind: errors.KindReadOnly,
			want: "Cannot assign to read-only property undefined",
		},
		{
			name: "unknown register",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				a.Emit(bytecode.OpLoadReg, 7)
				a.Emit(bytecode.OpRet)
			},
			kind: errors.KindConversion,
			want: "Type error: could not infer the type of an expression",
		},
		{
			name: "with statement",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				a.Emit(bytecode.OpLoadNull)
				a.Emit(bytecode.OpPushWithContext)
				a.Emit(bytecode.OpPopContext)
				a.Emit(bytecode.OpRet)
			},
			kind: errors.KindUnsupported,
			want: "with statements are not supported",
		},
		{
			name: "missing string",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				a.Emit(bytecode.OpLoadString, 3)
				a.Emit(bytecode.OpRet)
			},
			kind: errors.KindInvalidBytecode,
			want: "string 3 is out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			a := bytecode.NewAssembler()
			fn := &ir.Function{Name: tt.name}
			tt.build(f, a, fn)
			code, err := a.Bytes()
			require.NoError(t, err)
			fn.Code = code

			res, err := f.run(fn)
			require.Nil(t, res)
			require.Error(t, err)
			require.ErrorIs(t, err, &errors.Error{Phase: errors.PhasePropagate, Kind: tt.kind})
			require.Contains(t, err.Error(), tt.want)
			require.Contains(t, err.Error(), tt.name)
		})
	}
}

func TestOverloadResolution(t *testing.T) {
	f := newFixture()
	a := bytecode.NewAssembler()
	a.Emit(bytecode.OpLoadName, 0)
	a.Emit(bytecode.OpStoreReg, 2)
	a.Emit(bytecode.OpCallProperty, 1, 2, 1, bytecode.FirstArgument)
	a.Emit(bytecode.OpRet)
	fn := f.function(t, a)
	fn.Strings = []string{"Math", "abs"}
	fn.ReturnType = f.b.Real

	tests := []struct {
		arg  *types.Type
		want *types.Type
	}{
		{f.b.Int, f.b.Int},
		{f.b.Bool, f.b.Int},
		// The first convertible overload wins, even when a later one
		// matches exactly.
		{f.b.Real, f.b.Int},
	}
	for _, tt := range tests {
		t.Run(tt.arg.String(), func(t *testing.T) {
			fn.Arguments = []*types.Type{tt.arg}
			res, err := f.run(fn)
			require.NoError(t, err)

			call := res.Annotations[10]
			require.True(t, call.SideEffects)
			require.Equal(t, ir.VariantMethodReturn, call.Changed.Variant)
			require.True(t, types.Equal(tt.want, call.Changed.Type))
			require.True(t, types.Equal(tt.want, call.Reads[bytecode.FirstArgument].Required))
		})
	}
}

func TestScriptFallback(t *testing.T) {
	f := newFixture()
	f.u.Define(&types.Member{Name: "helper", Kind: types.MemberMethod, Methods: []*types.Method{
		types.NewMethod("helper", f.b.Int, f.b.Int),
		types.NewScriptMethod("helper", 1),
	}})

	a := bytecode.NewAssembler()
	a.Emit(bytecode.OpCallName, 0, 1, bytecode.FirstArgument)
	a.Emit(bytecode.OpRet)
	fn := f.function(t, a)
	fn.Strings = []string{"helper"}
	fn.ReturnType = f.b.Var

	fn.Arguments = []*types.Type{f.b.Int}
	res, err := f.run(fn)
	require.NoError(t, err)
	require.Equal(t, ir.VariantMethodReturn, res.Annotations[0].Changed.Variant)

	fn.Arguments = []*types.Type{f.b.String}
	res, err = f.run(fn)
	require.NoError(t, err)
	require.Equal(t, ir.VariantScriptReturn, res.Annotations[0].Changed.Variant)
	require.True(t, res.Annotations[0].Changed.Type.IsVariant())
}

func TestUnqualifiedAccess(t *testing.T) {
	tests := []struct {
		name        string
		parentID    string
		replacement string
		fixes       int
	}{
		{"with id", "root", "root.", 1},
		{"without id", "", "<id>.", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			root := types.NewObject("Root", f.b.Object).SetParent(nil, tt.parentID)
			root.AddProperty("width", f.b.Int, true)
			item := types.NewObject("Item", f.b.Object).SetParent(root, "")

			a := bytecode.NewAssembler()
			a.Emit(bytecode.OpLoadName, 0)
			a.Emit(bytecode.OpRet)
			fn := f.function(t, a)
			fn.Strings = []string{"width"}
			fn.Scope = item
			fn.ReturnType = f.b.Int
			fn.Locations = []ir.SourceEntry{{Offset: 0, Location: diag.Location{Line: 3, Column: 9}}}

			_, err := f.run(fn)
			require.Error(t, err)

			warnings := f.sink.Filter(diag.SeverityWarning)
			require.Len(t, warnings, 1)
			w := warnings[0]
			require.Equal(t, "Unqualified access", w.Message)
			require.Equal(t, diag.CategoryUnqualifiedAccess, w.Category)
			require.Equal(t, 3, w.Location.Line)
			require.NotNil(t, w.Fix)
			require.Len(t, w.Fix.Fixes, tt.fixes)
			require.Equal(t, tt.replacement, w.Fix.Fixes[0].Replacement)
			require.Contains(t, w.Fix.Fixes[0].Message, "width is a member of a parent element")

			var e *errors.Error
			require.ErrorAs(t, err, &e)
			require.Same(t, w.Fix, e.Fix)
		})
	}
}

func TestSpellingSuggestion(t *testing.T) {
	f := newFixture()
	a := bytecode.NewAssembler()
	a.Emit(bytecode.OpLoadName, 0)
	a.Emit(bytecode.OpRet)
	fn := f.function(t, a)
	fn.Strings = []string{"Mth"}

	_, err := f.run(fn)
	require.Error(t, err)

	warnings := f.sink.Filter(diag.SeverityWarning)
	require.Len(t, warnings, 1)
	require.NotNil(t, warnings[0].Fix)
	require.Equal(t, "Math", warnings[0].Fix.Fixes[0].Replacement)
}

func TestClosestName(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       string
		ok         bool
	}{
		{"widht", []string{"width", "height"}, "", false},
		{"widt", []string{"width", "height"}, "width", true},
		{"colour", []string{"color"}, "color", true},
		{"x", []string{"y", "z"}, "y", true},
		{"x", []string{"x"}, "", false},
		{"foo", nil, "", false},
	}
	for _, tt := range tests {
		got, ok := closestName(tt.name, tt.candidates)
		require.Equal(t, tt.ok, ok, tt.name)
		require.Equal(t, tt.want, got, tt.name)
	}
}

func TestLiterals(t *testing.T) {
	f := newFixture()

	t.Run("array", func(t *testing.T) {
		a := bytecode.NewAssembler()
		for i := 0; i < 3; i++ {
			a.Emit(bytecode.OpLoadInt, i+1)
			a.Emit(bytecode.OpStoreReg, 2+i)
		}
		a.Emit(bytecode.OpDefineArray, 3, 2)
		a.Emit(bytecode.OpRet)
		fn := f.function(t, a)
		fn.ReturnType = f.b.Var
		lit := a.Offset() - 1 - 9

		res, err := f.run(fn)
		require.NoError(t, err)
		ann := res.Annotations[lit]
		list := ann.Changed.Type
		require.True(t, list.IsTracked())
		require.True(t, list.IsSequence())
		require.True(t, list.Element.IsTracked())
		require.Equal(t, ir.VariantLiteral, ann.Changed.Variant)
		for _, reg := range []int{2, 3, 4} {
			require.Same(t, list.Element, ann.Reads[reg].Required)
			require.True(t, types.Equal(f.b.Int, ann.Reads[reg].Content.Type))
		}
	})

	t.Run("array length", func(t *testing.T) {
		a := bytecode.NewAssembler()
		a.Emit(bytecode.OpLoadName, 0)
		a.Emit(bytecode.OpStoreReg, 2)
		a.Emit(bytecode.OpLoadInt, 5)
		a.Emit(bytecode.OpStoreReg, 3)
		a.Emit(bytecode.OpConstruct, 2, 1, 3)
		a.Emit(bytecode.OpRet)
		fn := f.function(t, a)
		fn.Strings = []string{"Array"}
		fn.ReturnType = f.b.Var

		res, err := f.run(fn)
		require.NoError(t, err)
		ann := res.Annotations[20]
		require.True(t, ann.Changed.Type.IsSequence())
		require.True(t, ann.SideEffects)
		require.True(t, types.Equal(f.b.Int, ann.Reads[3].Required))
	})

	t.Run("object", func(t *testing.T) {
		a := bytecode.NewAssembler()
		a.Emit(bytecode.OpLoadInt, 1)
		a.Emit(bytecode.OpStoreReg, 2)
		a.Emit(bytecode.OpLoadString, 0)
		a.Emit(bytecode.OpStoreReg, 3)
		a.Emit(bytecode.OpDefineObjectLiteral, 0, 2, 2)
		a.Emit(bytecode.OpLoadProperty, 1)
		a.Emit(bytecode.OpRet)
		fn := f.function(t, a)
		fn.Strings = []string{"s", "a"}
		fn.Classes = [][]string{{"a", "b"}}
		fn.ReturnType = f.b.Var

		res, err := f.run(fn)
		require.NoError(t, err)
		ann := res.Annotations[20]
		obj := ann.Changed.Type
		require.True(t, obj.IsTracked())
		require.Equal(t, "object{a, b}", obj.String())

		props := obj.Properties()
		require.Len(t, props, 2)
		require.Same(t, props[0].Type, ann.Reads[2].Required)
		require.Same(t, props[1].Type, ann.Reads[3].Required)

		load := res.Annotations[33]
		require.Same(t, props[0].Type, load.Changed.Type)
		require.Equal(t, ir.VariantProperty, load.Changed.Variant)
	})
}

func TestRenamesAndSideEffects(t *testing.T) {
	f := newFixture()
	a := bytecode.NewAssembler()
	a.Emit(bytecode.OpLoadReg, bytecode.FirstArgument)
	a.Emit(bytecode.OpStoreReg, 2)
	a.Emit(bytecode.OpMoveReg, 2, 3)
	a.Emit(bytecode.OpCreateCallContext)
	a.Emit(bytecode.OpPopContext)
	a.Emit(bytecode.OpLoadReg, 3)
	a.Emit(bytecode.OpRet)
	fn := f.function(t, a)
	fn.Arguments = []*types.Type{f.b.String}
	fn.ReturnType = f.b.String

	res, err := f.run(fn)
	require.NoError(t, err)

	for _, off := range []int{0, 5, 10, 19, 20, 21} {
		ann := res.Annotations[off]
		require.NotNil(t, ann, "offset %d", off)
		require.True(t, ann.IsRename, "offset %d", off)
		require.Equal(t, ir.PrologOffset, ann.Changed.Source, "offset %d", off)
	}
	require.False(t, res.Annotations[0].SideEffects)
	require.True(t, res.Annotations[19].SideEffects)
	require.Equal(t, 3, res.Annotations[10].ChangedRegister)
}

func TestSignalHandlerReturn(t *testing.T) {
	f := newFixture()
	a := bytecode.NewAssembler()
	a.Emit(bytecode.OpLoadInt, 1)
	a.Emit(bytecode.OpRet)
	fn := f.function(t, a)
	fn.IsSignalHandler = true

	res, err := f.run(fn)
	require.NoError(t, err)
	require.Empty(t, res.Annotations[5].Reads)
}

func TestOperatorTypes(t *testing.T) {
	u := types.NewUniverse()
	b := u.Builtins()
	tests := []struct {
		op       bytecode.Opcode
		lhs, rhs *types.Type
		want     *types.Type
	}{
		{bytecode.OpAdd, b.Int, b.Int, b.Int},
		{bytecode.OpAdd, b.Int, b.Bool, b.Int},
		{bytecode.OpAdd, b.Int, b.Real, b.Real},
		{bytecode.OpAdd, b.String, b.Int, b.String},
		{bytecode.OpAdd, b.Int, b.Var, b.JSPrimitive},
		{bytecode.OpSub, b.Real, b.Int, b.Real},
		{bytecode.OpMul, b.Int, b.Int, b.Int},
		{bytecode.OpDiv, b.Int, b.Int, b.Real},
		{bytecode.OpExp, b.Int, b.Int, b.Real},
		{bytecode.OpBitAnd, b.Real, b.Real, b.Int},
		{bytecode.OpUShr, b.Int, b.Int, b.Int},
		{bytecode.OpCmpLt, b.Int, b.Real, b.Bool},
		{bytecode.OpCmpStrictEqual, b.String, b.Null, b.Bool},
		{bytecode.OpCmpInstanceOf, b.Var, b.Var, b.Bool},
	}
	for _, tt := range tests {
		got := binaryResult(b, tt.op, tt.lhs, tt.rhs)
		require.True(t, types.Equal(tt.want, got), "%s(%s, %s) = %s", tt.op, tt.lhs, tt.rhs, got)
	}

	unary := []struct {
		op      bytecode.Opcode
		operand *types.Type
		want    *types.Type
	}{
		{bytecode.OpUNot, b.Int, b.Bool},
		{bytecode.OpUMinus, b.Int, b.Int},
		{bytecode.OpUMinus, b.Real, b.Real},
		{bytecode.OpUPlus, b.String, b.Real},
		{bytecode.OpIncrement, b.Bool, b.Int},
		{bytecode.OpDecrement, b.Var, b.JSPrimitive},
		{bytecode.OpUCompl, b.Real, b.Int},
		{bytecode.OpShlConst, b.Real, b.Int},
		{bytecode.OpCmpEqInt, b.Int, b.Bool},
		{bytecode.OpCmpNeNull, b.Var, b.Bool},
		{bytecode.OpTypeofValue, b.Int, b.String},
	}
	for _, tt := range unary {
		got := unaryResult(b, tt.op, tt.operand)
		require.True(t, types.Equal(tt.want, got), "%s(%s) = %s", tt.op, tt.operand, got)
	}

	require.Same(t, b.Real, operandType(bytecode.OpAdd, b.Int, b.Real))
	require.Same(t, b.Int, operandType(bytecode.OpCmpLt, b.Int, b.Bool))
}

func TestInvalidBytecode(t *testing.T) {
	f := newFixture()
	fn := &ir.Function{Name: "broken", Code: []byte{byte(bytecode.OpLoadInt)}}
	res, err := f.run(fn)
	require.Nil(t, res)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseDecode, Kind: errors.KindInvalidBytecode})
}

func TestRequiresResolver(t *testing.T) {
	_, err := Run(&ir.Function{}, Config{})
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhasePropagate, Kind: errors.KindInvalidInput})
}

// A rotated loop enters through its condition, so the body's first state
// arrives over the back edge and needs one more walk to settle.
func TestRotatedLoopBody(t *testing.T) {
	f := newFixture()
	a := bytecode.NewAssembler()
	a.Emit(bytecode.OpLoadZero)
	a.Emit(bytecode.OpStoreReg, 2)
	a.Jump(bytecode.OpJump, "cond")
	a.Label("body")
	a.Emit(bytecode.OpLoadConst, 0)
	a.Emit(bytecode.OpAdd, 2)
	a.Emit(bytecode.OpStoreReg, 2)
	a.Label("cond")
	a.Emit(bytecode.OpLoadReg, bytecode.FirstArgument)
	a.Jump(bytecode.OpJumpFalse, "body")
	a.Emit(bytecode.OpLoadReg, 2)
	a.Emit(bytecode.OpRet)
	fn := f.function(t, a)
	fn.Arguments = []*types.Type{f.b.Bool}
	fn.ReturnType = f.b.Real
	fn.Constants = []bytecode.Constant{bytecode.RealConst(0.5)}
	body, _ := a.LabelOffset("body")
	cond, _ := a.LabelOffset("cond")

	res, err := f.run(fn)
	require.NoError(t, err)
	require.Equal(t, 3, res.Attempts)

	conv, ok := res.Annotations[body].Conversions[2]
	require.True(t, ok)
	require.True(t, types.Equal(f.b.Real, conv.Type))
	origins := conv.OriginTypes()
	require.Len(t, origins, 2)
	require.True(t, types.Equal(f.b.Int, origins[0]))
	require.True(t, types.Equal(f.b.Real, origins[1]))

	add := res.Annotations[body+5]
	require.True(t, types.Equal(f.b.Real, add.Reads[2].Content.Type))
	require.True(t, types.Equal(f.b.Real, add.Changed.Type))

	conv, ok = res.Annotations[cond].Conversions[2]
	require.True(t, ok)
	require.True(t, types.Equal(f.b.Real, conv.Type))

	_, err = Run(fn, Config{Resolver: f.u, MaxAttempts: 2})
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhasePropagate, Kind: errors.KindUnsupported})
	require.Contains(t, err.Error(), "did not stabilize after 2 attempts")
}

func TestUndefinedAtJoin(t *testing.T) {
	f := newFixture()
	a := bytecode.NewAssembler()
	a.Emit(bytecode.OpLoadReg, bytecode.FirstArgument)
	a.Jump(bytecode.OpJumpFalse, "skip")
	a.Emit(bytecode.OpLoadInt, 1)
	a.Emit(bytecode.OpStoreReg, 3)
	a.Label("skip")
	a.Emit(bytecode.OpLoadReg, 3)
	a.Emit(bytecode.OpRet)
	fn := f.function(t, a)
	fn.Arguments = []*types.Type{f.b.Bool}
	fn.ReturnType = f.b.Int

	res, err := f.run(fn)
	require.Nil(t, res)
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhasePropagate, Kind: errors.KindConversion})
	require.Contains(t, err.Error(), "When reached from offset 5, temporary register 1 is undefined")
}

func TestElementAccess(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name       string
		base, idx  *types.Type
		want       *types.Type
		requireInt bool
	}{
		{"list by int", types.ListOf(f.b.Int), f.b.Int, f.b.Int, true},
		{"list by real", types.ListOf(f.b.Int), f.b.Real, f.b.Var, false},
		{"object by int", f.b.Object, f.b.Int, f.b.Var, false},
		{"string by int", f.b.String, f.b.Int, f.b.Var, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := bytecode.NewAssembler()
			a.Emit(bytecode.OpLoadReg, bytecode.FirstArgument+1)
			a.Emit(bytecode.OpLoadElement, bytecode.FirstArgument)
			a.Emit(bytecode.OpRet)
			fn := f.function(t, a)
			fn.Arguments = []*types.Type{tt.base, tt.idx}
			fn.ReturnType = f.b.Var

			res, err := f.run(fn)
			require.NoError(t, err)
			load := res.Annotations[5]
			require.True(t, types.Equal(tt.want, load.Changed.Type))
			if tt.requireInt {
				require.Same(t, f.b.Int, load.Reads[ir.Accumulator].Required)
			} else {
				require.Nil(t, load.Reads[ir.Accumulator].Required)
			}
		})
	}
}

func TestMemberDiagnostics(t *testing.T) {
	tests := []struct {
		name  string
		build func(f *fixture, a *bytecode.Assembler, fn *ir.Function)
		want  string
		fails bool
	}{
		{
			name: "deprecated property",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				fn.Scope = types.NewObject("Item", f.b.Object).DeclareProperty(&types.Property{
					Name: "old", Type: f.b.Int, TypeName: "int",
					Deprecation: &types.Deprecation{Reason: "use size"},
				})
				a.Emit(bytecode.OpLoadName, 0)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"old"}
				fn.ReturnType = f.b.Int
			},
			want: `Property "old" is deprecated (Reason: use size)`,
		},
		{
			name: "deprecated method",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				legacy := types.NewMethod("legacy", f.b.Int, f.b.Int)
				legacy.Deprecation = &types.Deprecation{}
				fn.Scope = types.NewObject("Item", f.b.Object).AddMethod(legacy)
				a.Emit(bytecode.OpCallName, 0, 1, bytecode.FirstArgument)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"legacy"}
				fn.Arguments = []*types.Type{f.b.Int}
				fn.ReturnType = f.b.Int
			},
			want: `Method "legacy(int)" is deprecated`,
		},
		{
			name: "list member",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				a.Emit(bytecode.OpLoadReg, bytecode.FirstArgument)
				a.Emit(bytecode.OpLoadProperty, 0)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"size"}
				fn.Arguments = []*types.Type{types.ListOf(f.b.Int)}
				fn.ReturnType = f.b.Int
			},
			want:  `Type is a list. You cannot access "size" from here.`,
			fails: true,
		},
		{
			name: "enum key",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				f.u.Define(&types.Member{Name: "Align", Kind: types.MemberObject, Type: types.NewEnum("Align", "Left", "Right")})
				a.Emit(bytecode.OpLoadName, 0)
				a.Emit(bytecode.OpLoadProperty, 1)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"Align", "Left"}
				fn.ReturnType = f.b.Int
			},
		},
		{
			name: "missing enum key",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				f.u.Define(&types.Member{Name: "Align", Kind: types.MemberObject, Type: types.NewEnum("Align", "Left", "Right")})
				a.Emit(bytecode.OpLoadName, 0)
				a.Emit(bytecode.OpLoadProperty, 1)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"Align", "Center"}
				fn.ReturnType = f.b.Int
			},
			want:  `Type is an enum. You cannot access "Center" from here.`,
			fails: true,
		},
		{
			name: "method member",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				a.Emit(bytecode.OpLoadName, 0)
				a.Emit(bytecode.OpLoadProperty, 1)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"isNaN", "x"}
				fn.ReturnType = f.b.Var
			},
			want:  `Type is a method. You cannot access "x" from here.`,
			fails: true,
		},
		{
			name: "missing property type",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				fn.Scope = types.NewObject("View", f.b.Object).DeclareProperty(&types.Property{
					Name: "model", TypeName: "ListModel",
				})
				a.Emit(bytecode.OpLoadName, 0)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"model"}
				fn.ReturnType = f.b.Var
			},
			want: `Type "ListModel" of property "model" not found. This is likely due to a missing dependency entry ` +
				`or a type not being exposed declaratively.`,
			fails: true,
		},
		{
			name: "unknown property",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				a.Emit(bytecode.OpLoadReg, bytecode.FirstArgument)
				a.Emit(bytecode.OpLoadProperty, 0)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"width"}
				fn.Arguments = []*types.Type{f.b.Object}
				fn.ReturnType = f.b.Var
			},
			want:  `Property "width" not found on type "Object"`,
			fails: true,
		},
		{
			name: "unknown method",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				a.Emit(bytecode.OpCallProperty, 0, bytecode.FirstArgument, 0, 0)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"frob"}
				fn.Arguments = []*types.Type{f.b.Object}
				fn.ReturnType = f.b.Var
			},
			want:  `Property "frob" not found on type "Object"`,
			fails: true,
		},
		{
			name: "calling a property",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				fn.Scope = types.NewObject("Item", f.b.Object).AddProperty("width", f.b.Int, true)
				a.Emit(bytecode.OpCallName, 0, 0, 0)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"width"}
				fn.ReturnType = f.b.Var
			},
			want:  `Property "width" is not a method`,
			fails: true,
		},
		{
			name: "calling a variant property",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				fn.Scope = types.NewObject("Item", f.b.Object).AddProperty("handler", f.b.Var, true)
				a.Emit(bytecode.OpCallName, 0, 0, 0)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"handler"}
				fn.ReturnType = f.b.Var
			},
			want:  `Property "handler" is a variant property. It may or may not be a method. Use a regular function instead.`,
			fails: true,
		},
		{
			name: "calling a shadowed signal",
			build: func(f *fixture, a *bytecode.Assembler, fn *ir.Function) {
				clicked := types.NewMethod("clicked", f.b.Void)
				clicked.Kind = types.MethodSignal
				button := types.NewObject("Button", f.b.Object).AddMethod(clicked)
				fn.Scope = types.NewObject("Toggle", button).AddProperty("clicked", f.b.Bool, true)
				a.Emit(bytecode.OpCallName, 0, 0, 0)
				a.Emit(bytecode.OpRet)
				fn.Strings = []string{"clicked"}
				fn.ReturnType = f.b.Var
			},
			want:  `Signal "clicked" is shadowed by a property.`,
			fails: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			a := bytecode.NewAssembler()
			fn := &ir.Function{Name: tt.name}
			tt.build(f, a, fn)
			code, err := a.Bytes()
			require.NoError(t, err)
			fn.Code = code

			_, err = f.run(fn)
			if tt.fails {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			warnings := f.sink.Filter(diag.SeverityWarning)
			if tt.want == "" {
				require.Empty(t, warnings)
				return
			}
			require.Len(t, warnings, 1)
			require.Equal(t, tt.want, warnings[0].Message)
			require.Equal(t, tt.name, warnings[0].Function)
		})
	}
}

func TestAttachedReuse(t *testing.T) {
	tests := []struct {
		name        string
		parentID    string
		replacement string
		fixes       int
	}{
		{"with id", "root", "root.", 1},
		{"without id", "", "<id>.", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			keys := types.NewObject("Keys", f.b.Object).
				AddProperty("enabled", f.b.Bool, true).
				AddProperty("priority", types.NewEnum("Priority", "Before", "After"), false)
			f.u.Define(&types.Member{Name: "Keys", Kind: types.MemberAttached, Type: keys})
			root := types.NewObject("Root", f.b.Object).SetParent(nil, tt.parentID)
			item := types.NewObject("Item", f.b.Object).SetParent(root, "")
			uses := NewAttachedUses()

			load := func(scope *types.Type, prop string) {
				a := bytecode.NewAssembler()
				a.Emit(bytecode.OpLoadName, 0)
				a.Emit(bytecode.OpLoadProperty, 1)
				a.Emit(bytecode.OpRet)
				fn := f.function(t, a)
				fn.Scope = scope
				fn.Strings = []string{"Keys", prop}
				fn.ReturnType = f.b.Var
				_, err := Run(fn, Config{Resolver: f.u, Sink: f.sink, Attached: uses})
				require.NoError(t, err)
			}

			load(root, "enabled")
			require.True(t, uses.Used(root, keys))
			require.Empty(t, f.sink.Diagnostics())

			load(item, "priority")
			require.Empty(t, f.sink.Diagnostics())

			load(item, "enabled")
			warnings := f.sink.Filter(diag.SeverityWarning)
			require.Len(t, warnings, 1)
			w := warnings[0]
			require.Equal(t, diag.CategoryAttachedReuse, w.Category)
			require.Equal(t, "Using attached type Keys already initialized in a parent scope.", w.Message)
			require.NotNil(t, w.Fix)
			require.Len(t, w.Fix.Fixes, tt.fixes)
			require.Equal(t, tt.replacement, w.Fix.Fixes[0].Replacement)
			require.Equal(t, "Reference it by id instead:", w.Fix.Fixes[0].Message)
			require.True(t, uses.Used(item, keys))
		})
	}
}

func TestWarningsReportedOncePerRun(t *testing.T) {
	f := newFixture()
	a := bytecode.NewAssembler()
	a.Emit(bytecode.OpLoadZero)
	a.Emit(bytecode.OpStoreReg, 2)
	a.Label("top")
	a.Emit(bytecode.OpLoadReg, bytecode.FirstArgument)
	a.Jump(bytecode.OpJumpTrue, "out")
	a.Emit(bytecode.OpLoadName, 0)
	a.Emit(bytecode.OpAdd, 2)
	a.Emit(bytecode.OpStoreReg, 2)
	a.Jump(bytecode.OpJump, "top")
	a.Label("out")
	a.Emit(bytecode.OpLoadReg, 2)
	a.Emit(bytecode.OpRet)
	fn := f.function(t, a)
	fn.Arguments = []*types.Type{f.b.Bool}
	fn.ReturnType = f.b.Real
	fn.Strings = []string{"step"}
	fn.Scope = types.NewObject("Item", f.b.Object).DeclareProperty(&types.Property{
		Name: "step", Type: f.b.Real, TypeName: "real", Deprecation: &types.Deprecation{},
	})

	res, err := f.run(fn)
	require.NoError(t, err)
	require.Equal(t, 2, res.Attempts)

	warnings := f.sink.Filter(diag.SeverityWarning)
	require.Len(t, warnings, 1)
	require.Equal(t, diag.CategoryDeprecation, warnings[0].Category)
	require.Equal(t, `Property "step" is deprecated`, warnings[0].Message)
}
