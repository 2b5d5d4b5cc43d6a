package blocks

import (
	"github.com/wippyai/script-aot/compiler/internal/ir"
	"github.com/wippyai/script-aot/errors"
)

// Validate checks the block graph invariants and reports the first
// violation as a structural error. It never modifies the graph.
func Validate(blocks *ir.BlockMap, codeLen int) error {
	var terminals []*ir.BasicBlock
	for _, blk := range blocks.Blocks() {
		if blk.Start == ir.PrologOffset {
			continue
		}
		if blk.Start < 0 || blk.Start >= codeLen {
			return errors.Structural("block %d starts outside the function (length %d)", blk.Start, codeLen)
		}
		if len(blk.JumpOrigins) == 0 {
			return errors.Structural("block %d has no jump origin", blk.Start)
		}
		if blk.IsTerminal() && blk.JumpTarget != ir.NoJumpTarget {
			return errors.Structural("terminal block %d jumps to %d", blk.Start, blk.JumpTarget)
		}
		if blk.JumpTarget != ir.NoJumpTarget && !blocks.Has(blk.JumpTarget) {
			return errors.Structural("block %d jumps to %d, which is not a block start", blk.Start, blk.JumpTarget)
		}
		if blk.IsTerminal() {
			terminals = append(terminals, blk)
		}
	}

	// Walk backward from the terminal blocks; every block must be reached.
	seen := make(map[int]bool, blocks.Len())
	work := terminals
	for _, t := range terminals {
		seen[t.Start] = true
	}
	for len(work) > 0 {
		blk := work[len(work)-1]
		work = work[:len(work)-1]
		for _, origin := range blk.JumpOrigins {
			pred := blocks.Containing(origin)
			if pred == nil {
				return errors.Structural("block %d has origin %d outside any block", blk.Start, origin)
			}
			if !seen[pred.Start] {
				seen[pred.Start] = true
				work = append(work, pred)
			}
		}
	}
	for _, blk := range blocks.Blocks() {
		if !seen[blk.Start] {
			return errors.Structural("block %d cannot reach a return or throw", blk.Start)
		}
	}
	return nil
}
