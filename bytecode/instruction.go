package bytecode

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// operandSize is the encoded width of every operand.
const operandSize = 4

// Instruction is a decoded instruction with its position in the stream.
type Instruction struct {
	Args   []int
	Offset int
	Next   int
	Op     Opcode
}

// Arg returns operand i, or 0 if the instruction has fewer operands.
func (in Instruction) Arg(i int) int {
	if i < len(in.Args) {
		return in.Args[i]
	}
	return 0
}

// Target returns the absolute offset a jump transfers to.
func (in Instruction) Target() int {
	return in.Next + in.Arg(0)
}

// IsBackJump reports whether in jumps to an offset that precedes it.
func (in Instruction) IsBackJump() bool {
	return in.Op.IsJump() && in.Arg(0) < 0
}

// ReadRegisters returns the registers in reads, including the accumulator.
func (in Instruction) ReadRegisters() []int {
	var regs []int
	switch in.Op {
	case OpLoadReg:
		regs = append(regs, in.Arg(0))
	case OpStoreReg, OpStoreName, OpLoadProperty, OpUNot, OpUPlus, OpUMinus,
		OpUCompl, OpIncrement, OpDecrement, OpCmpEqNull, OpCmpNeNull,
		OpTypeofValue, OpJumpTrue, OpJumpFalse, OpRet, OpThrowException,
		OpBitAndConst, OpBitOrConst, OpShlConst, OpShrConst, OpCmpEqInt,
		OpCmpNeInt, OpCreateCallContext, OpPopContext, OpCheckException:
		regs = append(regs, Accumulator)
	case OpMoveReg:
		regs = append(regs, in.Arg(0))
	case OpStoreProperty:
		regs = append(regs, Accumulator, in.Arg(1))
	case OpLoadElement:
		regs = append(regs, Accumulator, in.Arg(0))
	case OpStoreElement:
		regs = append(regs, Accumulator, in.Arg(0), in.Arg(1))
	case OpCallProperty:
		regs = append(regs, in.Arg(1))
		regs = appendRange(regs, in.Arg(3), in.Arg(2))
	case OpCallName:
		regs = appendRange(regs, in.Arg(2), in.Arg(1))
	case OpCallValue, OpConstruct:
		regs = append(regs, in.Arg(0))
		regs = appendRange(regs, in.Arg(2), in.Arg(1))
	case OpDefineArray:
		regs = appendRange(regs, in.Arg(1), in.Arg(0))
	case OpDefineObjectLiteral:
		regs = appendRange(regs, in.Arg(2), in.Arg(1))
	default:
		if in.Op.IsBinary() {
			regs = append(regs, in.Arg(0), Accumulator)
		}
	}
	return regs
}

func appendRange(regs []int, first, count int) []int {
	for i := 0; i < count; i++ {
		regs = append(regs, first+i)
	}
	return regs
}

func (in Instruction) String() string {
	var b strings.Builder
	b.WriteString(in.Op.String())
	if in.Op.IsJump() {
		b.WriteString(" -> ")
		b.WriteString(strconv.Itoa(in.Target()))
		return b.String()
	}
	for i, a := range in.Args {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(a))
	}
	return b.String()
}

// DecodeError reports malformed bytecode.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bytecode offset %d: %s", e.Offset, e.Reason)
}

// Decoder reads instructions sequentially from a byte stream.
type Decoder struct {
	code []byte
	pos  int
}

// NewDecoder creates a Decoder positioned at the start of code.
func NewDecoder(code []byte) *Decoder {
	return &Decoder{code: code}
}

// More reports whether instructions remain.
func (d *Decoder) More() bool {
	return d.pos < len(d.code)
}

// Offset returns the offset of the next instruction to decode.
func (d *Decoder) Offset() int {
	return d.pos
}

// Next decodes one instruction.
func (d *Decoder) Next() (Instruction, error) {
	start := d.pos
	if start >= len(d.code) {
		return Instruction{}, &DecodeError{Offset: start, Reason: "unexpected end of code"}
	}
	op := Opcode(d.code[start])
	if !op.Valid() {
		return Instruction{}, &DecodeError{Offset: start, Reason: fmt.Sprintf("unknown opcode 0x%02x", byte(op))}
	}
	n := op.Operands()
	end := start + EncodedSize(op)
	if end > len(d.code) {
		return Instruction{}, &DecodeError{Offset: start, Reason: fmt.Sprintf("truncated operands for %s", op)}
	}
	var args []int
	if n > 0 {
		args = make([]int, n)
		for i := range args {
			p := start + 1 + i*operandSize
			args[i] = int(int32(binary.LittleEndian.Uint32(d.code[p:])))
		}
	}
	d.pos = end
	return Instruction{Op: op, Args: args, Offset: start, Next: end}, nil
}

// Decode decodes a complete instruction stream.
func Decode(code []byte) ([]Instruction, error) {
	var out []Instruction
	d := NewDecoder(code)
	for d.More() {
		in, err := d.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// EncodedSize returns the number of bytes op occupies.
func EncodedSize(op Opcode) int {
	return 1 + op.Operands()*operandSize
}

// AppendInstruction encodes op and args onto buf.
func AppendInstruction(buf []byte, op Opcode, args ...int) ([]byte, error) {
	if !op.Valid() {
		return buf, fmt.Errorf("invalid opcode %d", byte(op))
	}
	if len(args) != op.Operands() {
		return buf, fmt.Errorf("%s takes %d operands, got %d", op, op.Operands(), len(args))
	}
	buf = append(buf, byte(op))
	for _, a := range args {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(a)))
	}
	return buf, nil
}
