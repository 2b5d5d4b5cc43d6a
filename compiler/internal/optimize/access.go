package optimize

import (
	"github.com/wippyai/script-aot/compiler/internal/ir"
	"github.com/wippyai/script-aot/errors"
	"github.com/wippyai/script-aot/types"
)

// RegisterAccess summarizes who consumes the value of one write.
type RegisterAccess struct {
	// Readers maps each instruction reading the register while the write
	// is live to the joins whose conversions the value passed through.
	Readers map[int][]int
	// TypeReaders maps each non-rename instruction reading a conversion
	// fed by the write to the conversion's result type.
	TypeReaders map[int]*types.Type
	// Sources are the writes whose types the value stands for. Renames
	// have none.
	Sources  []int
	Register int
}

// IsDead reports whether nothing consumes the value or its type.
func (a *RegisterAccess) IsDead() bool {
	return len(a.Readers) == 0 && len(a.TypeReaders) == 0
}

type pendingBlock struct {
	conversions []int
	start       int
	active      bool
}

// readerLocations computes the access summary of every write.
func (o *optimizer) readerLocations() (map[int]*RegisterAccess, error) {
	out := make(map[int]*RegisterAccess)
	for _, w := range o.annotations.Offsets() {
		ann := o.annotations[w]
		if !ann.Writes() {
			continue
		}
		access := &RegisterAccess{
			Register:    ann.ChangedRegister,
			Readers:     make(map[int][]int),
			TypeReaders: make(map[int]*types.Type),
		}
		if !ann.IsRename {
			for _, origin := range ir.Origins(ann.Changed) {
				access.Sources = append(access.Sources, origin.Write)
			}
		}
		if err := o.trace(w, access); err != nil {
			return nil, err
		}
		out[w] = access
	}
	return out, nil
}

// trace walks the blocks reachable from write w and records the readers
// of its register. A block is revisited only when it is reached with the
// register newly live or with conversions it has not seen.
func (o *optimizer) trace(w int, access *RegisterAccess) error {
	first := o.blocks.Containing(w)
	if first == nil || first.Start == ir.PrologOffset {
		return errors.Assertion(errors.PhaseOptimize, "write at %d lies outside every block", w)
	}

	work := []pendingBlock{{start: first.Start, active: true}}
	processed := make(map[int]pendingBlock)
	isFirst := true
	for len(work) > 0 {
		pb := work[len(work)-1]
		work = work[:len(work)-1]
		// The first block may be re-entered from its start; reads before
		// the write then see the value of a previous iteration.
		if !isFirst {
			processed[pb.start] = pb
		}

		blk, ok := o.blocks.Get(pb.start)
		if !ok {
			return errors.Assertion(errors.PhaseOptimize, "no block starts at %d", pb.start)
		}
		active := pb.active
		conversions := append([]int(nil), pb.conversions...)

		from := blk.Start
		if isFirst {
			from = w + 1
		}
		for _, off := range o.annotations.Between(from, o.blocks.End(blk, o.codeLen)) {
			ann := o.annotations[off]
			if _, ok := ann.Conversions[access.Register]; ok && active {
				conversions = append(conversions, off)
			}
			for reg, r := range ann.Reads {
				if !ann.IsRename && r.Content.IsConversion() && hasAnyOrigin(r.Content, access.Sources) {
					access.TypeReaders[off] = r.Content.Type
				}
				if active && reg == access.Register {
					access.Readers[off] = append([]int(nil), conversions...)
				}
			}
			if ann.ChangedRegister == access.Register {
				conversions = nil
				active = false
			}
		}

		for _, next := range o.blocks.Successors(blk) {
			prev, seen := processed[next]
			switch {
			case !seen:
			case active && !prev.active:
			case len(conversions) > 0 && !subset(conversions, prev.conversions):
			default:
				continue
			}
			work = append(work, pendingBlock{conversions: conversions, start: next, active: active})
		}
		isFirst = false
	}
	return nil
}

func hasAnyOrigin(c ir.Content, writes []int) bool {
	for _, w := range writes {
		if c.HasOrigin(w) {
			return true
		}
	}
	return false
}

func subset(a, b []int) bool {
	for _, x := range a {
		found := false
		for _, y := range b {
			if x == y {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
