// Package optimize prunes and refines the annotations of a propagated
// function.
//
// Writes nobody reads are dropped or voided until no more become dead.
// Literal placeholders are narrowed to the element and property types their
// uses demand. Reads that are the only consumer of a value defined in the
// same block are marked movable. Finally every block's read summary is
// rebuilt from what survived.
package optimize

import (
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/script-aot/compiler/internal/ir"
	"github.com/wippyai/script-aot/errors"
	"github.com/wippyai/script-aot/types"
)

// Input is the output of block construction and propagation for one
// function. Blocks and Annotations are modified in place.
type Input struct {
	Blocks      *ir.BlockMap
	Annotations ir.Annotations
	Name        string
	Literals    []ir.LiteralSite
	CodeLen     int
}

// Config holds the collaborators of a run.
type Config struct {
	Resolver types.Resolver
	Logger   *zap.Logger
}

// Result reports what the optimizer changed.
type Result struct {
	// Access is the reader summary of every surviving write.
	Access map[int]*RegisterAccess
	// Removed lists the offsets whose annotations were deleted.
	Removed []int
	// Voided lists the writes whose type was forced to void but whose
	// annotation was kept.
	Voided []int
	// Narrowed lists the literal sites whose placeholders were adjusted.
	Narrowed []int
	// Rounds is the number of dead-store rounds until nothing changed.
	Rounds int
}

type optimizer struct {
	blocks      *ir.BlockMap
	annotations ir.Annotations
	resolver    types.Resolver
	logger      *zap.Logger
	name        string
	codeLen     int
}

// Run optimizes in. Any inconsistency between the blocks and the
// annotations is an assertion error.
func Run(in Input, cfg Config) (*Result, error) {
	if cfg.Resolver == nil {
		return nil, errors.InvalidInput(errors.PhaseOptimize, "no type resolver configured")
	}
	if in.Blocks == nil || in.Annotations == nil {
		return nil, errors.InvalidInput(errors.PhaseOptimize, "missing blocks or annotations")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &optimizer{
		blocks:      in.Blocks,
		annotations: in.Annotations,
		resolver:    cfg.Resolver,
		logger:      logger,
		name:        in.Name,
		codeLen:     in.CodeLen,
	}

	res := &Result{}
	if err := o.removeDeadStores(res); err != nil {
		return nil, o.named(err)
	}
	access, err := o.readerLocations()
	if err != nil {
		return nil, o.named(err)
	}
	if err := o.narrowLiterals(in.Literals, access, res); err != nil {
		return nil, o.named(err)
	}
	o.markMovable(access)
	o.summarizeReads()
	res.Access = access

	logger.Debug("function optimized",
		zap.String("function", in.Name),
		zap.Int("rounds", res.Rounds),
		zap.Int("removed", len(res.Removed)),
		zap.Int("voided", len(res.Voided)),
		zap.Int("narrowed", len(res.Narrowed)))
	return res, nil
}

func (o *optimizer) named(err error) error {
	if e, ok := err.(*errors.Error); ok && e.Function == "" {
		e.Function = o.name
	}
	return err
}

// removeDeadStores repeats until a round changes nothing: deleting an
// annotation drops its reads, which may leave an earlier write unread.
func (o *optimizer) removeDeadStores(res *Result) error {
	dropped := make(map[int]bool)
	voided := make(map[int]bool)
	for {
		res.Rounds++
		access, err := o.readerLocations()
		if err != nil {
			return err
		}

		changed := false
		for _, w := range sortedKeys(access) {
			if !access[w].IsDead() {
				continue
			}
			ann := o.annotations[w]
			if ann.IsRename {
				ann.ChangedRegister = ir.InvalidRegister
				ann.Changed = ir.Content{}
			} else if !ann.Changed.Type.IsVoid() {
				ann.Changed = ir.Content{
					Type:    o.resolver.Builtins().Void,
					Variant: ann.Changed.Variant,
					Source:  ann.Changed.Source,
				}
				voided[w] = true
			} else {
				continue
			}
			dropped[w] = true
			o.pruneOrigin(w)
			changed = true
			o.logger.Debug("dead store",
				zap.String("function", o.name),
				zap.Int("offset", w),
				zap.Int("register", access[w].Register))
		}

		for _, off := range sortedKeys(dropped) {
			ann, ok := o.annotations[off]
			if !ok || ann.SideEffects || len(ann.Conversions) > 0 {
				continue
			}
			delete(o.annotations, off)
			delete(voided, off)
			res.Removed = append(res.Removed, off)
			changed = true
		}

		if !changed {
			break
		}
	}
	sort.Ints(res.Removed)
	res.Voided = sortedKeys(voided)
	return nil
}

// pruneOrigin removes write w from every conversion that lists it.
// Conversion contents share their origin slices, so each is replaced.
func (o *optimizer) pruneOrigin(w int) {
	for _, ann := range o.annotations {
		for reg, c := range ann.Conversions {
			if !c.HasOrigin(w) {
				continue
			}
			c.Origins = withoutWrite(c.Origins, w)
			if len(c.Origins) == 0 {
				delete(ann.Conversions, reg)
				continue
			}
			ann.Conversions[reg] = c
		}
		for reg, r := range ann.Reads {
			if r.Content.HasOrigin(w) {
				r.Content.Origins = withoutWrite(r.Content.Origins, w)
				ann.Reads[reg] = r
			}
		}
		if ann.Changed.HasOrigin(w) {
			ann.Changed.Origins = withoutWrite(ann.Changed.Origins, w)
		}
	}
}

func withoutWrite(origins []ir.Origin, w int) []ir.Origin {
	out := make([]ir.Origin, 0, len(origins))
	for _, og := range origins {
		if og.Write != w {
			out = append(out, og)
		}
	}
	return out
}

// markMovable flags the read of a value that has exactly one consumer in
// the block that defined it.
func (o *optimizer) markMovable(access map[int]*RegisterAccess) {
	for w, a := range access {
		if len(a.Readers) != 1 || len(a.TypeReaders) != 0 {
			continue
		}
		for r, conversions := range a.Readers {
			if r <= w || len(conversions) > 0 {
				continue
			}
			if o.blocks.Containing(r) != o.blocks.Containing(w) {
				continue
			}
			ann := o.annotations[r]
			read, ok := ann.Reads[a.Register]
			if !ok {
				continue
			}
			read.CanMove = true
			ann.Reads[a.Register] = read
		}
	}
}

// summarizeReads rebuilds each block's read registers and their types from
// the annotations left in it. A register's type is the content of its first
// read in the block.
func (o *optimizer) summarizeReads() {
	for _, blk := range o.blocks.Blocks() {
		if blk.Start == ir.PrologOffset {
			continue
		}
		seen := make(map[int]*types.Type)
		for _, off := range o.annotations.Between(blk.Start, o.blocks.End(blk, o.codeLen)) {
			for reg, r := range o.annotations[off].Reads {
				if _, ok := seen[reg]; !ok {
					seen[reg] = r.Content.Type
				}
			}
		}
		blk.ReadRegisters = sortedKeys(seen)
		blk.ReadTypes = make([]*types.Type, len(blk.ReadRegisters))
		for i, reg := range blk.ReadRegisters {
			blk.ReadTypes[i] = seen[reg]
		}
	}
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
