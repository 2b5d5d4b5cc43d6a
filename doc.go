// Package scriptaot provides ahead-of-time type inference for the register
// bytecode of a dynamically typed scripting language.
//
// A compiled function is partitioned into basic blocks, the type of every
// virtual register is propagated forward through them, and the resulting
// annotations are optimized so a code generator can emit typed native code
// for the function or fall back to interpreting it.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	scriptaot/           Root package with documentation
//	├── bytecode/        Opcode table, instruction encoding, Walk and Visitor
//	├── types/           Type universe, Resolver interface, tracked placeholders
//	├── diag/            Diagnostics, fix suggestions and sinks
//	├── errors/          Structured error types for debugging
//	└── compiler/        Compile API, options, batch compilation
//	    └── internal/
//	        ├── ir/        Annotations, register contents, basic blocks
//	        ├── blocks/    Basic block construction and graph validation
//	        ├── propagate/ Forward type propagation with back-edge restarts
//	        ├── optimize/  Dead stores, literal narrowing, movable reads
//	        └── dump/      Text and Graphviz listings for debugging
//
// # Quick Start
//
// Assemble a function and compile it:
//
//	u := types.NewUniverse()
//	a := bytecode.NewAssembler()
//	a.Emit(bytecode.OpLoadInt, 1)
//	a.Emit(bytecode.OpAdd, bytecode.FirstArgument)
//	a.Emit(bytecode.OpRet)
//
//	c, err := compiler.New(compiler.Config{Resolver: u, Sink: &diag.Collector{}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := c.Compile(&compiler.Function{
//	    Name:       "inc",
//	    Code:       a.MustBytes(),
//	    Arguments:  []*types.Type{u.Builtins().Int},
//	    ReturnType: u.Builtins().Int,
//	})
//
// # Error Classes
//
// Structural errors mean the block graph is malformed; the result is still
// returned for diagnostics. Type errors mean the function cannot be
// compiled and must be interpreted. Assertion errors are compiler defects.
//
// # Thread Safety
//
// A Compiler is safe for concurrent use. Each Compile call owns its state
// apart from the record of attached types used per scope, which is guarded
// by a mutex. Diagnostics sinks must tolerate concurrent reports when
// CompileAll is used.
package scriptaot
