package compiler

import (
	"go.uber.org/zap"

	"github.com/wippyai/script-aot/compiler/internal/blocks"
	"github.com/wippyai/script-aot/compiler/internal/dump"
	"github.com/wippyai/script-aot/compiler/internal/ir"
	"github.com/wippyai/script-aot/compiler/internal/optimize"
	"github.com/wippyai/script-aot/compiler/internal/propagate"
	"github.com/wippyai/script-aot/diag"
	"github.com/wippyai/script-aot/errors"
	"github.com/wippyai/script-aot/types"
)

// Types of the analysis model.
type (
	Function    = ir.Function
	SourceEntry = ir.SourceEntry
	BasicBlock  = ir.BasicBlock
	BlockMap    = ir.BlockMap
	Annotation  = ir.Annotation
	Annotations = ir.Annotations
	Content     = ir.Content
	Origin      = ir.Origin
	Read        = ir.Read
	Variant     = ir.Variant
	LiteralSite = ir.LiteralSite
)

// Config configures a Compiler.
type Config struct {
	Options

	// Resolver answers type questions. It is required.
	Resolver types.Resolver
	// Sink receives diagnostics. Nil discards them.
	Sink diag.Sink
}

// Result is the analysis of one function.
type Result struct {
	Blocks      *BlockMap
	Annotations Annotations
	Literals    []LiteralSite

	Passes   int // block construction passes
	Attempts int // propagation walks
	Removed  []int
	Voided   []int
	Narrowed []int
}

// Compiler runs the analysis pipeline and is safe for concurrent use. The
// functions it compiles are taken to belong to one document: attached types
// loaded by one function are remembered for the reuse warnings of the
// functions nested in it.
type Compiler struct {
	resolver types.Resolver
	sink     diag.Sink
	dumper   *dump.Dumper
	attached *propagate.AttachedUses
	opts     Options
}

// New creates a compiler.
func New(cfg Config) (*Compiler, error) {
	if cfg.Resolver == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, "no type resolver configured")
	}
	if err := cfg.Options.check(); err != nil {
		return nil, err
	}
	c := &Compiler{
		resolver: cfg.Resolver,
		sink:     cfg.Sink,
		attached: propagate.NewAttachedUses(),
		opts:     cfg.Options,
	}
	if c.sink == nil {
		c.sink = diag.Discard
	}
	if cfg.Dump != "" {
		d, err := dump.New(cfg.Dump, dump.Format(cfg.DumpFormat))
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "cannot set up dumping")
		}
		c.dumper = d
	}
	return c, nil
}

// Compile analyzes fn.
//
// A structural error in the block graph is returned together with the
// result, which is complete otherwise. Undecodable code and type or
// assertion errors return a nil result. Every returned error is also
// reported to the sink.
func (c *Compiler) Compile(fn *Function) (*Result, error) {
	if fn == nil {
		return nil, errors.InvalidInput(errors.PhaseBlocks, "nil function")
	}
	log := Logger().With(zap.String("function", fn.Name))

	br, structural := blocks.Build(fn, log.Named("blocks"))
	if br == nil {
		// Undecodable code has no graph to report on.
		return nil, c.report(fn, structural)
	}
	if structural == nil && c.opts.Validate {
		structural = blocks.Validate(br.Blocks, len(fn.Code))
	}
	if structural != nil {
		c.report(fn, structural)
	}

	pr, err := propagate.Run(fn, propagate.Config{
		Resolver:    c.resolver,
		Sink:        c.sink,
		Logger:      log.Named("propagate"),
		Attached:    c.attached,
		MaxAttempts: c.opts.MaxAttempts,
	})
	if err != nil {
		return nil, c.report(fn, err)
	}

	or, err := optimize.Run(optimize.Input{
		Name:        fn.Name,
		CodeLen:     len(fn.Code),
		Blocks:      br.Blocks,
		Literals:    br.Literals,
		Annotations: pr.Annotations,
	}, optimize.Config{Resolver: c.resolver, Logger: log.Named("optimize")})
	if err != nil {
		return nil, c.report(fn, err)
	}

	if c.dumper != nil {
		g := dump.Graph{Name: fn.Name, Code: fn.Code, Blocks: br.Blocks, Annotations: pr.Annotations}
		if err := c.dumper.Dump(g); err != nil {
			log.Warn("dump failed", zap.Error(err))
		}
	}

	return &Result{
		Blocks:      br.Blocks,
		Annotations: pr.Annotations,
		Literals:    br.Literals,
		Passes:      br.Passes,
		Attempts:    pr.Attempts,
		Removed:     or.Removed,
		Voided:      or.Voided,
		Narrowed:    or.Narrowed,
	}, structural
}

func (c *Compiler) report(fn *Function, err error) error {
	if e, ok := err.(*errors.Error); ok {
		if e.Function == "" {
			e.Function = fn.Name
		}
		c.sink.Report(e.Diagnostic())
		return e
	}
	c.sink.Report(diag.Diagnostic{
		Message:  err.Error(),
		Function: fn.Name,
		Severity: diag.SeverityError,
		Category: diag.CategoryCompiler,
	})
	return err
}
