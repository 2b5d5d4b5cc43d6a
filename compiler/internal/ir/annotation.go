package ir

import (
	"sort"

	"github.com/wippyai/script-aot/types"
)

// Read is one register consumed by an instruction.
type Read struct {
	Content  Content     // what the register holds
	Required *types.Type // what the instruction needs, after conversion
	CanMove  bool        // the value may be moved out instead of copied
}

// Annotation describes what one instruction reads and writes.
type Annotation struct {
	Reads           map[int]Read
	Conversions     map[int]Content // created by the merge at this instruction
	Changed         Content
	ChangedRegister int
	SideEffects     bool
	IsRename        bool
}

// NewAnnotation creates an annotation that writes nothing.
func NewAnnotation() *Annotation {
	return &Annotation{ChangedRegister: InvalidRegister}
}

// Writes reports whether the instruction writes a register.
func (a *Annotation) Writes() bool {
	return a.ChangedRegister != InvalidRegister
}

// AddRead records that reg is read as content and converted to required.
func (a *Annotation) AddRead(reg int, content Content, required *types.Type) {
	if a.Reads == nil {
		a.Reads = make(map[int]Read)
	}
	if required == nil {
		required = content.Type
	}
	a.Reads[reg] = Read{Content: content, Required: required}
}

// ReadRegisters returns the read registers in ascending order.
func (a *Annotation) ReadRegisters() []int {
	regs := make([]int, 0, len(a.Reads))
	for r := range a.Reads {
		regs = append(regs, r)
	}
	sort.Ints(regs)
	return regs
}

// Annotations maps instruction offsets to their annotations.
type Annotations map[int]*Annotation

// Offsets returns the annotated offsets in ascending order.
func (m Annotations) Offsets() []int {
	offs := make([]int, 0, len(m))
	for o := range m {
		offs = append(offs, o)
	}
	sort.Ints(offs)
	return offs
}

// Between returns the annotated offsets in [from, to) in ascending order.
func (m Annotations) Between(from, to int) []int {
	var offs []int
	for o := range m {
		if o >= from && o < to {
			offs = append(offs, o)
		}
	}
	sort.Ints(offs)
	return offs
}

// ReferencesWrite reports whether any annotation still reads or converts a
// value produced at write.
func (m Annotations) ReferencesWrite(write int) bool {
	for off, a := range m {
		if off == write {
			continue
		}
		for _, r := range a.Reads {
			if r.Content.Source == write && !r.Content.IsConversion() {
				return true
			}
			if r.Content.HasOrigin(write) {
				return true
			}
		}
		for _, c := range a.Conversions {
			if c.HasOrigin(write) {
				return true
			}
		}
	}
	return false
}
