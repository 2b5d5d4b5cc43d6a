// Package compiler infers the types of the virtual registers of bytecode
// functions ahead of time.
//
// Each function goes through three passes:
//
//	blocks      partition the code into basic blocks, record literal sites
//	propagate   walk forward, typing every register at every instruction
//	optimize    drop dead stores, narrow literals, mark movable reads
//
// The result annotates every live instruction with what it reads and
// writes. A function whose types cannot be inferred fails with a type
// error; callers fall back to interpreting it.
//
// # Usage
//
//	c, err := compiler.New(compiler.Config{Resolver: types.NewUniverse()})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := c.Compile(fn)
//	if errors.IsTypeError(err) {
//	    // interpret fn instead
//	}
//
// # Configuration
//
// Options can be loaded from TOML with LoadOptions and overridden from the
// SCRIPTAOT_* environment variables with Options.FromEnv. Setting
// SCRIPTAOT_DUMP to "stderr" or a directory writes a listing of every
// compiled function.
package compiler
