// Package bytecode defines the register-based instruction set analyzed by the
// compiler and the decode loop shared by all analysis passes.
//
// Encoding: one opcode byte followed by Opcode.Operands() little-endian
// 32-bit signed operands. Jump operands are relative to the offset of the
// following instruction.
//
// Register model:
//
//	0                  accumulator
//	1 .. n             arguments
//	n+1 ..             temporaries
//
// Passes implement Visitor and hand it to Walk; Walk decodes the stream once
// per call and dispatches each instruction to the method of its Category.
package bytecode
