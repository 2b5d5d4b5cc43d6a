package ir

import "math/bits"

// RegisterSet is a compact set of register indices.
// Optimized for small dense sets (typical register files).
type RegisterSet struct {
	bits []uint64
}

// NewRegisterSet creates a set that can hold registers up to maxReg without
// growing.
func NewRegisterSet(maxReg int) *RegisterSet {
	return &RegisterSet{bits: make([]uint64, (maxReg+64)/64)}
}

// Add inserts reg. Negative registers are ignored.
func (s *RegisterSet) Add(reg int) {
	if reg < 0 {
		return
	}
	word := reg / 64
	if word >= len(s.bits) {
		s.grow(word + 1)
	}
	s.bits[word] |= 1 << (reg % 64)
}

// Remove deletes reg.
func (s *RegisterSet) Remove(reg int) {
	if reg < 0 {
		return
	}
	if word := reg / 64; word < len(s.bits) {
		s.bits[word] &^= 1 << (reg % 64)
	}
}

// Has reports whether reg is in the set.
func (s *RegisterSet) Has(reg int) bool {
	if reg < 0 {
		return false
	}
	word := reg / 64
	if word >= len(s.bits) {
		return false
	}
	return s.bits[word]&(1<<(reg%64)) != 0
}

// Union adds every register of other. It reports whether s grew.
func (s *RegisterSet) Union(other *RegisterSet) bool {
	if len(other.bits) > len(s.bits) {
		s.grow(len(other.bits))
	}
	grew := false
	for i, w := range other.bits {
		if w&^s.bits[i] != 0 {
			grew = true
		}
		s.bits[i] |= w
	}
	return grew
}

// Reset removes every register.
func (s *RegisterSet) Reset() {
	for i := range s.bits {
		s.bits[i] = 0
	}
}

// Slice returns the registers in ascending order.
func (s *RegisterSet) Slice() []int {
	var out []int
	for i, word := range s.bits {
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			out = append(out, i*64+bit)
			word &= word - 1
		}
	}
	return out
}

// Len returns the number of registers in the set.
func (s *RegisterSet) Len() int {
	n := 0
	for _, w := range s.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

func (s *RegisterSet) grow(n int) {
	grown := make([]uint64, n)
	copy(grown, s.bits)
	s.bits = grown
}
