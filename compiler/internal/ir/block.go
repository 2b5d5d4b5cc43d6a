package ir

import (
	"sort"

	"github.com/wippyai/script-aot/types"
)

// NoJumpTarget marks a block that falls through or terminates.
const NoJumpTarget = -1

// BasicBlock is a maximal straight-line instruction run. Its start offset
// is its key in the BlockMap.
type BasicBlock struct {
	JumpOrigins         []int
	ReadRegisters       []int
	ReadTypes           []*types.Type
	Start               int
	JumpTarget          int
	Length              int
	JumpIsUnconditional bool
	IsReturnBlock       bool
	IsThrowBlock        bool
}

// IsTerminal reports whether control leaves the function at the block's end.
func (b *BasicBlock) IsTerminal() bool {
	return b.IsReturnBlock || b.IsThrowBlock
}

// AddOrigin records a predecessor.
func (b *BasicBlock) AddOrigin(origin int) {
	b.JumpOrigins = append(b.JumpOrigins, origin)
}

// DedupOrigins sorts the jump origins and drops duplicates.
func (b *BasicBlock) DedupOrigins() {
	sort.Ints(b.JumpOrigins)
	out := b.JumpOrigins[:0]
	for i, o := range b.JumpOrigins {
		if i == 0 || o != b.JumpOrigins[i-1] {
			out = append(out, o)
		}
	}
	b.JumpOrigins = out
}

// BlockMap holds blocks ordered by start offset.
type BlockMap struct {
	blocks map[int]*BasicBlock
	starts []int
}

// NewBlockMap creates a map holding only the prolog block.
func NewBlockMap() *BlockMap {
	m := &BlockMap{blocks: make(map[int]*BasicBlock)}
	m.Insert(PrologOffset)
	return m
}

// Insert returns the block at start, creating it if needed. The boolean is
// true when the block was created.
func (m *BlockMap) Insert(start int) (*BasicBlock, bool) {
	if b, ok := m.blocks[start]; ok {
		return b, false
	}
	b := &BasicBlock{Start: start, JumpTarget: NoJumpTarget}
	m.blocks[start] = b
	i := sort.SearchInts(m.starts, start)
	m.starts = append(m.starts, 0)
	copy(m.starts[i+1:], m.starts[i:])
	m.starts[i] = start
	return b, true
}

// Get returns the block starting at start.
func (m *BlockMap) Get(start int) (*BasicBlock, bool) {
	b, ok := m.blocks[start]
	return b, ok
}

// Has reports whether a block starts at start.
func (m *BlockMap) Has(start int) bool {
	_, ok := m.blocks[start]
	return ok
}

// Containing returns the block whose range holds offset: the block with the
// greatest start not after offset.
func (m *BlockMap) Containing(offset int) *BasicBlock {
	i := sort.SearchInts(m.starts, offset+1)
	if i == 0 {
		return nil
	}
	return m.blocks[m.starts[i-1]]
}

// Next returns the block following b in offset order, or nil.
func (m *BlockMap) Next(b *BasicBlock) *BasicBlock {
	i := sort.SearchInts(m.starts, b.Start+1)
	if i >= len(m.starts) {
		return nil
	}
	return m.blocks[m.starts[i]]
}

// End returns the offset at which b's range ends: the next block's start,
// or codeLen for the last block.
func (m *BlockMap) End(b *BasicBlock, codeLen int) int {
	if n := m.Next(b); n != nil {
		return n.Start
	}
	return codeLen
}

// Starts returns the block starts in ascending order, prolog first.
func (m *BlockMap) Starts() []int {
	out := make([]int, len(m.starts))
	copy(out, m.starts)
	return out
}

// Blocks returns the blocks in ascending start order.
func (m *BlockMap) Blocks() []*BasicBlock {
	out := make([]*BasicBlock, len(m.starts))
	for i, s := range m.starts {
		out[i] = m.blocks[s]
	}
	return out
}

// Len returns the number of blocks including the prolog.
func (m *BlockMap) Len() int {
	return len(m.starts)
}

// Successors returns the starts of the blocks control may reach from b:
// its jump target and, unless the block ends unconditionally, the next block.
func (m *BlockMap) Successors(b *BasicBlock) []int {
	var out []int
	if b.JumpTarget != NoJumpTarget {
		out = append(out, b.JumpTarget)
	}
	if !b.JumpIsUnconditional && !b.IsTerminal() {
		if n := m.Next(b); n != nil && (len(out) == 0 || out[0] != n.Start) {
			out = append(out, n.Start)
		}
	}
	return out
}
