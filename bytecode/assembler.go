package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Assembler builds instruction streams with symbolic jump labels.
//
// Example:
//
//	a := bytecode.NewAssembler()
//	a.Emit(bytecode.OpLoadInt, 10)
//	a.Emit(bytecode.OpCmpGt, bytecode.FirstArgument)
//	a.Jump(bytecode.OpJumpFalse, "else")
//	a.Emit(bytecode.OpLoadInt, 10)
//	a.Jump(bytecode.OpJump, "end")
//	a.Label("else")
//	a.Emit(bytecode.OpLoadReg, bytecode.FirstArgument)
//	a.Label("end")
//	a.Emit(bytecode.OpRet)
//	code, err := a.Bytes()
type Assembler struct {
	err    error
	labels map[string]int
	buf    []byte
	fixups []fixup
}

type fixup struct {
	label string
	pos   int // position of the operand
	next  int // offset of the following instruction
}

// NewAssembler creates an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{labels: make(map[string]int)}
}

// Offset returns the offset the next emitted instruction will have.
func (a *Assembler) Offset() int {
	return len(a.buf)
}

// Emit appends a non-jump instruction.
func (a *Assembler) Emit(op Opcode, args ...int) *Assembler {
	if a.err != nil {
		return a
	}
	if op.IsJump() {
		a.err = fmt.Errorf("offset %d: use Jump for %s", len(a.buf), op)
		return a
	}
	a.buf, a.err = AppendInstruction(a.buf, op, args...)
	return a
}

// Jump appends a jump to label. The label may be defined before or after.
func (a *Assembler) Jump(op Opcode, label string) *Assembler {
	if a.err != nil {
		return a
	}
	if !op.IsJump() {
		a.err = fmt.Errorf("offset %d: %s is not a jump", len(a.buf), op)
		return a
	}
	start := len(a.buf)
	a.buf, a.err = AppendInstruction(a.buf, op, 0)
	a.fixups = append(a.fixups, fixup{label: label, pos: start + 1, next: len(a.buf)})
	return a
}

// Label binds name to the current offset.
func (a *Assembler) Label(name string) *Assembler {
	if a.err != nil {
		return a
	}
	if _, dup := a.labels[name]; dup {
		a.err = fmt.Errorf("label %q defined twice", name)
		return a
	}
	a.labels[name] = len(a.buf)
	return a
}

// LabelOffset returns the offset bound to name.
func (a *Assembler) LabelOffset(name string) (int, bool) {
	off, ok := a.labels[name]
	return off, ok
}

// Bytes resolves labels and returns the encoded stream.
func (a *Assembler) Bytes() ([]byte, error) {
	if a.err != nil {
		return nil, a.err
	}
	out := make([]byte, len(a.buf))
	copy(out, a.buf)
	for _, f := range a.fixups {
		target, ok := a.labels[f.label]
		if !ok {
			return nil, fmt.Errorf("undefined label %q", f.label)
		}
		binary.LittleEndian.PutUint32(out[f.pos:], uint32(int32(target-f.next)))
	}
	return out, nil
}

// MustBytes is like Bytes but panics on error. Intended for tests and
// static tables.
func (a *Assembler) MustBytes() []byte {
	code, err := a.Bytes()
	if err != nil {
		panic(err)
	}
	return code
}
