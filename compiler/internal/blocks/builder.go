package blocks

import (
	"go.uber.org/zap"

	"github.com/wippyai/script-aot/bytecode"
	"github.com/wippyai/script-aot/compiler/internal/ir"
	"github.com/wippyai/script-aot/errors"
)

// Result is the control-flow graph of one function.
type Result struct {
	Blocks       *ir.BlockMap
	Literals     []ir.LiteralSite
	Instructions int // live instructions of the final pass
	Passes       int // 1, or 2 when a back jump was found
}

// Build partitions fn's code into basic blocks and collects its literal
// construction sites.
//
// A decode error is returned as an invalid-bytecode error with a nil
// result. An unbalanced context chain is a structural error returned
// alongside the result.
func Build(fn *ir.Function, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &builder{blocks: ir.NewBlockMap()}

	if err := b.pass(fn.Code); err != nil {
		return nil, errors.InvalidBytecode(err)
	}
	passes := 1
	if b.hadBackJump {
		logger.Debug("back jump found, rebuilding blocks",
			zap.String("function", fn.Name),
			zap.Int("blocks", b.blocks.Len()))
		b.resetForSecondPass()
		if err := b.pass(fn.Code); err != nil {
			return nil, errors.InvalidBytecode(err)
		}
		passes = 2
	}

	for _, blk := range b.blocks.Blocks() {
		blk.DedupOrigins()
		if set, ok := b.reads[blk.Start]; ok {
			blk.ReadRegisters = set.Slice()
		}
	}

	res := &Result{
		Blocks:       b.blocks,
		Literals:     b.literals,
		Instructions: b.instructions,
		Passes:       passes,
	}
	logger.Debug("blocks built",
		zap.String("function", fn.Name),
		zap.Int("blocks", res.Blocks.Len()),
		zap.Int("literals", len(res.Literals)),
		zap.Int("passes", passes))

	if b.contextDepth != 0 {
		return res, errors.New(errors.PhaseBlocks, errors.KindStructural).
			Function(fn.Name).
			Detail("context chain is unbalanced at function end (depth %d)", b.contextDepth).
			Build()
	}
	if b.underflow >= 0 {
		return res, errors.New(errors.PhaseBlocks, errors.KindStructural).
			Function(fn.Name).
			At(b.underflow, fn.LocationAt(b.underflow)).
			Detail("context popped below function level").
			Build()
	}
	return res, nil
}

// builder is the bytecode.Visitor that records block boundaries.
type builder struct {
	bytecode.NopVisitor

	blocks   *ir.BlockMap
	current  *ir.BasicBlock
	reads    map[int]*ir.RegisterSet
	literals []ir.LiteralSite

	instructions int
	contextDepth int
	underflow    int
	skip         bool
	hadBackJump  bool
}

func (b *builder) pass(code []byte) error {
	first, _ := b.blocks.Insert(0)
	if len(first.JumpOrigins) == 0 {
		first.AddOrigin(ir.PrologOffset)
	}
	prolog, _ := b.blocks.Get(ir.PrologOffset)
	b.current = prolog
	b.skip = false
	b.reads = make(map[int]*ir.RegisterSet)
	b.literals = nil
	b.instructions = 0
	b.contextDepth = 0
	b.underflow = -1
	return bytecode.Walk(code, b)
}

// resetForSecondPass keeps the discovered block starts but forgets
// everything derived from the first pass's boundaries. Fallthrough origins
// recorded before a back-jump target was known may name the wrong
// predecessor, so origins are rebuilt too.
func (b *builder) resetForSecondPass() {
	for _, blk := range b.blocks.Blocks() {
		blk.JumpOrigins = nil
		blk.JumpTarget = ir.NoJumpTarget
		blk.JumpIsUnconditional = false
		blk.Length = 0
		blk.IsReturnBlock = false
		blk.IsThrowBlock = false
		blk.ReadRegisters = nil
	}
	b.hadBackJump = false
}

func (b *builder) StartInstruction(in *bytecode.Instruction) bytecode.Verdict {
	if blk, ok := b.blocks.Get(in.Offset); ok {
		if !b.skip && blk != b.current && b.current.Start != ir.PrologOffset {
			blk.AddOrigin(b.current.Start)
		}
		b.current = blk
		b.skip = false
	} else if b.skip {
		if bytecode.ManipulatesContext(in.Op) {
			b.trackContext(in)
		}
		return bytecode.Skip
	}
	return bytecode.Process
}

func (b *builder) EndInstruction(in *bytecode.Instruction) {
	b.current.Length++
	b.instructions++
	regs := in.ReadRegisters()
	if len(regs) == 0 {
		return
	}
	set, ok := b.reads[b.current.Start]
	if !ok {
		set = ir.NewRegisterSet(regs[len(regs)-1])
		b.reads[b.current.Start] = set
	}
	for _, r := range regs {
		set.Add(r)
	}
}

func (b *builder) VisitJump(in *bytecode.Instruction) {
	target := in.Target()
	blk, _ := b.blocks.Insert(target)
	blk.AddOrigin(in.Offset)
	b.current.JumpTarget = target
	if in.IsBackJump() {
		b.hadBackJump = true
	}
	if in.Op.IsUnconditionalJump() {
		b.current.JumpIsUnconditional = true
		b.skip = true
		return
	}
	b.blocks.Insert(in.Next)
}

func (b *builder) VisitTerminal(in *bytecode.Instruction) {
	switch in.Op {
	case bytecode.OpRet:
		b.current.IsReturnBlock = true
	case bytecode.OpThrowException:
		b.current.IsThrowBlock = true
	}
	b.skip = true
}

func (b *builder) VisitContext(in *bytecode.Instruction) {
	if bytecode.ManipulatesContext(in.Op) {
		b.trackContext(in)
	}
}

func (b *builder) trackContext(in *bytecode.Instruction) {
	if in.Op == bytecode.OpPopContext {
		b.contextDepth--
		if b.contextDepth < 0 && b.underflow < 0 {
			b.underflow = in.Offset
		}
		return
	}
	b.contextDepth++
}

func (b *builder) VisitLiteral(in *bytecode.Instruction) {
	switch in.Op {
	case bytecode.OpDefineArray:
		if argc := in.Arg(0); argc > 0 {
			b.literals = append(b.literals, ir.LiteralSite{
				Offset: in.Offset, Kind: ir.LiteralArray, ClassID: -1, Argc: argc, Argv: in.Arg(1),
			})
		}
	case bytecode.OpDefineObjectLiteral:
		if argc := in.Arg(1); argc > 0 {
			b.literals = append(b.literals, ir.LiteralSite{
				Offset: in.Offset, Kind: ir.LiteralObject, ClassID: in.Arg(0), Argc: argc, Argv: in.Arg(2),
			})
		}
	}
}

func (b *builder) VisitCall(in *bytecode.Instruction) {
	if in.Op != bytecode.OpConstruct {
		return
	}
	argc := in.Arg(1)
	if argc == 0 {
		return
	}
	kind := ir.LiteralArray
	if argc == 1 {
		kind = ir.LiteralArrayLength
	}
	b.literals = append(b.literals, ir.LiteralSite{
		Offset: in.Offset, Kind: kind, ClassID: -1, Argc: argc, Argv: in.Arg(2), IsConstruct: true,
	})
}
