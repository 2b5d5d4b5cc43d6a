// Package propagate infers the content of every virtual register at every
// instruction of a function by walking its bytecode forward.
//
// Join points merge the states recorded by the jumps that reach them. A back
// jump keeps every distinct state it carries to its target, and one that
// differs from all states recorded there restarts the walk with the
// recorded states kept, so the loop is revisited with the loop body's
// contribution. Merged types only widen, so the walk settles; a
// function that has not settled after the attempt cap fails with a type
// error.
package propagate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/script-aot/bytecode"
	"github.com/wippyai/script-aot/compiler/internal/ir"
	"github.com/wippyai/script-aot/diag"
	"github.com/wippyai/script-aot/errors"
	"github.com/wippyai/script-aot/types"
)

// Config holds the collaborators of a run.
type Config struct {
	Resolver types.Resolver
	Sink     diag.Sink
	Logger   *zap.Logger

	// Attached is shared by the functions of one document so that reusing
	// an attached type of an enclosing scope can be reported. Nil gives the
	// run a registry of its own.
	Attached *AttachedUses

	// MaxAttempts caps the number of walks. Zero means DefaultMaxAttempts.
	MaxAttempts int
}

// DefaultMaxAttempts caps the walks of a run without an explicit cap.
const DefaultMaxAttempts = 32

// Result is the annotated function.
type Result struct {
	Annotations ir.Annotations
	Attempts    int
}

// snapshot is a register state recorded by one jump. Its registers are
// never modified after recording. A jump may record several.
type snapshot struct {
	regs   ir.Registers
	origin int
}

// propagator is the bytecode.Visitor of one function. The snapshot table
// survives attempts; everything else is reset.
type propagator struct {
	bytecode.NopVisitor

	fn       *ir.Function
	resolver types.Resolver
	b        *types.Builtins
	sink     diag.Sink
	logger   *zap.Logger

	snapshots map[int][]snapshot
	attached  *AttachedUses

	regs        ir.Registers
	undefined   map[int]int // register dropped at a join -> origin lacking it
	annotations ir.Annotations
	jumpTargets map[int]bool
	warnings    []diag.Diagnostic // reported when the walk is final
	skip        bool
	restart     bool
	err         *errors.Error

	in  *bytecode.Instruction
	cur *ir.Annotation
}

// Run propagates types through fn. The first type error aborts the run and
// is returned with a nil result.
func Run(fn *ir.Function, cfg Config) (*Result, error) {
	if cfg.Resolver == nil {
		return nil, errors.InvalidInput(errors.PhasePropagate, "no type resolver")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sink := cfg.Sink
	if sink == nil {
		sink = diag.Discard
	}

	p := &propagator{
		fn:        fn,
		resolver:  cfg.Resolver,
		b:         cfg.Resolver.Builtins(),
		sink:      sink,
		logger:    logger,
		snapshots: make(map[int][]snapshot),
		attached:  cfg.Attached,
	}
	if p.attached == nil {
		p.attached = NewAttachedUses()
	}
	limit := cfg.MaxAttempts
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}

	for attempt := 1; ; attempt++ {
		p.reset()
		if err := bytecode.Walk(fn.Code, p); err != nil {
			e := errors.InvalidBytecode(err)
			e.Function = fn.Name
			return nil, e
		}
		if p.err != nil {
			p.flush()
			return nil, p.err
		}
		if !p.restart {
			p.flush()
			logger.Debug("types propagated",
				zap.String("function", fn.Name),
				zap.Int("attempts", attempt),
				zap.Int("annotations", len(p.annotations)))
			return &Result{Annotations: p.annotations, Attempts: attempt}, nil
		}
		if attempt >= limit {
			e := errors.Unsupported(errors.PhasePropagate,
				fmt.Sprintf("register types did not stabilize after %d attempts", attempt))
			e.Function = fn.Name
			return nil, e
		}
		logger.Debug("restarting propagation",
			zap.String("function", fn.Name),
			zap.Int("attempt", attempt))
	}
}

func (p *propagator) reset() {
	p.regs = make(ir.Registers, len(p.fn.Arguments)+1)
	for i, t := range p.fn.Arguments {
		if t == nil {
			t = p.b.Var
		}
		p.regs[ir.ArgumentRegister(i)] = ir.NewContent(t, ir.VariantBuiltin, ir.PrologOffset)
	}
	p.annotations = make(ir.Annotations)
	p.undefined = make(map[int]int)
	p.warnings = nil
	p.jumpTargets = make(map[int]bool)
	p.skip = false
	p.restart = false
	p.err = nil
	p.in = nil
	p.cur = nil
}

func (p *propagator) StartInstruction(in *bytecode.Instruction) bytecode.Verdict {
	if p.err != nil || p.restart {
		return bytecode.Stop
	}
	snaps := p.snapshots[in.Offset]
	switch {
	case p.jumpTargets[in.Offset] || len(snaps) > 0:
		dead := p.skip
		p.skip = false
		p.begin(in)
		p.merge(in, snaps, dead)
	case p.skip:
		return bytecode.Skip
	default:
		p.begin(in)
	}
	return bytecode.Process
}

func (p *propagator) begin(in *bytecode.Instruction) {
	p.in = in
	p.cur = ir.NewAnnotation()
	p.annotations[in.Offset] = p.cur
}

// merge joins the recorded states for in's offset into the live state.
// When the live path is dead the first recorded state stands in for it.
func (p *propagator) merge(in *bytecode.Instruction, snaps []snapshot, dead bool) {
	if len(snaps) == 0 {
		return
	}
	if dead {
		p.regs = snaps[0].regs.Clone()
		p.undefined = make(map[int]int)
		snaps = snaps[1:]
		if len(snaps) == 0 {
			return
		}
	}

	overwritesAcc := in.Op.WritesAccumulatorWithoutReading()
	for _, reg := range p.regs.Sorted() {
		if reg == ir.Accumulator && overwritesAcc {
			continue
		}
		live := p.regs[reg]
		incoming := []ir.Content{live}
		for _, s := range snaps {
			c, ok := s.regs[reg]
			if !ok || !c.IsValid() {
				incoming = nil
				p.undefined[reg] = s.origin
				break
			}
			incoming = append(incoming, c)
		}
		if incoming == nil {
			delete(p.regs, reg)
			continue
		}

		same := true
		merged := live.Type
		for _, c := range incoming[1:] {
			if !types.Equal(c.Type, live.Type) {
				same = false
			}
			merged = p.resolver.Merge(merged, c.Type)
		}
		if same {
			continue
		}

		var origins []ir.Origin
		for _, c := range incoming {
			origins = append(origins, ir.Origins(c)...)
		}
		conv := ir.Conversion(in.Offset, merged, origins)
		if p.cur.Conversions == nil {
			p.cur.Conversions = make(map[int]ir.Content)
		}
		p.cur.Conversions[reg] = conv
		p.regs[reg] = conv
	}
}

// saveSnapshot records the live state for the target of jump in. A forward
// jump replaces the state it recorded in an earlier walk. A back jump keeps
// every distinct state it carries, and one not yet recorded for its target
// asks for another walk.
func (p *propagator) saveSnapshot(in *bytecode.Instruction) {
	target := in.Target()
	p.jumpTargets[target] = true
	regs := p.regs.Clone()
	existing := p.snapshots[target]

	if !in.IsBackJump() {
		for i, s := range existing {
			if s.origin == in.Offset {
				existing[i] = snapshot{regs: regs, origin: in.Offset}
				return
			}
		}
		p.snapshots[target] = append(existing, snapshot{regs: regs, origin: in.Offset})
		return
	}

	for _, s := range existing {
		if s.regs.EqualTypes(regs) {
			return
		}
	}
	p.restart = true
	p.logger.Debug("back edge changed loop state",
		zap.String("function", p.fn.Name),
		zap.Int("from", in.Offset),
		zap.Int("to", target),
		zap.Int("states", len(existing)+1))
	p.snapshots[target] = append(existing, snapshot{regs: regs, origin: in.Offset})
}

// content returns what reg holds, failing the run if nothing is known.
func (p *propagator) content(reg int) (ir.Content, bool) {
	c, ok := p.regs[reg]
	if ok && c.IsValid() {
		return c, true
	}
	if origin, dropped := p.undefined[reg]; dropped && !ok {
		p.fail(errors.KindConversion, "When reached from offset %d, %s is undefined", origin, p.registerName(reg))
	} else {
		p.fail(errors.KindConversion, "Type error: could not infer the type of an expression")
	}
	return ir.Content{}, false
}

func (p *propagator) registerName(reg int) string {
	switch {
	case reg == ir.Accumulator:
		return "accumulator"
	case reg >= ir.FirstArgument && reg < ir.FirstArgument+len(p.fn.Arguments):
		return fmt.Sprintf("argument %d", reg-ir.FirstArgument)
	}
	return fmt.Sprintf("temporary register %d", reg-ir.FirstArgument-len(p.fn.Arguments))
}

// input reads reg as required and records the read.
func (p *propagator) input(reg int, required *types.Type) (ir.Content, bool) {
	c, ok := p.content(reg)
	if ok {
		p.cur.AddRead(reg, c, required)
	}
	return c, ok
}

func (p *propagator) write(reg int, c ir.Content) {
	delete(p.undefined, reg)
	p.cur.ChangedRegister = reg
	p.cur.Changed = c
	p.regs[reg] = c
}

// result writes a fresh value of type t to the accumulator.
func (p *propagator) result(t *types.Type, v ir.Variant) {
	p.write(ir.Accumulator, ir.NewContent(t, v, p.in.Offset))
}

// rename copies from into to. The copy keeps the source of the value.
func (p *propagator) rename(from, to int) {
	c, ok := p.input(from, nil)
	if !ok {
		return
	}
	p.cur.IsRename = true
	p.write(to, c)
}

func (p *propagator) fail(kind errors.Kind, format string, args ...any) {
	p.failWith(kind, nil, format, args...)
}

func (p *propagator) failWith(kind errors.Kind, fix *diag.FixSuggestion, format string, args ...any) {
	if p.err != nil {
		return
	}
	b := errors.New(errors.PhasePropagate, kind).Function(p.fn.Name).Fix(fix)
	if p.in != nil {
		b.At(p.in.Offset, p.fn.LocationAt(p.in.Offset))
	}
	p.err = b.Detail(format, args...).Build()
}

func (p *propagator) warn(category diag.Category, fix *diag.FixSuggestion, msg string) {
	d := diag.Diagnostic{
		Severity: diag.SeverityWarning,
		Category: category,
		Message:  msg,
		Function: p.fn.Name,
		Fix:      fix,
	}
	if p.in != nil {
		d.Location = p.fn.LocationAt(p.in.Offset)
	}
	p.warnings = append(p.warnings, d)
}

// flush reports the warnings of the final walk.
func (p *propagator) flush() {
	for _, d := range p.warnings {
		p.sink.Report(d)
	}
	p.warnings = nil
}

func (p *propagator) name(index int) (string, bool) {
	s, ok := p.fn.String(index)
	if !ok {
		p.fail(errors.KindInvalidBytecode, "string %d is out of range", index)
	}
	return s, ok
}
