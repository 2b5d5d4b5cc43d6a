package ir

import (
	"sort"

	"github.com/wippyai/script-aot/bytecode"
	"github.com/wippyai/script-aot/diag"
	"github.com/wippyai/script-aot/types"
)

// SourceEntry maps an instruction offset to the source it was generated
// from.
type SourceEntry struct {
	Location diag.Location
	Offset   int
}

// Function is a decoded function ready for analysis.
type Function struct {
	Name       string
	Code       []byte
	Constants  []bytecode.Constant
	Strings    []string
	Classes    [][]string // property names of each internal class
	Arguments  []*types.Type
	ReturnType *types.Type // nil when undeclared
	Scope      *types.Type // object the function's bare names resolve against
	Locations  []SourceEntry

	// IsSignalHandler functions may not return a value.
	IsSignalHandler bool
}

// String returns entry i of the string table.
func (f *Function) String(i int) (string, bool) {
	if i < 0 || i >= len(f.Strings) {
		return "", false
	}
	return f.Strings[i], true
}

// Constant returns entry i of the constant table.
func (f *Function) Constant(i int) (bytecode.Constant, bool) {
	if i < 0 || i >= len(f.Constants) {
		return bytecode.Constant{}, false
	}
	return f.Constants[i], true
}

// Class returns the property names of internal class id.
func (f *Function) Class(id int) ([]string, bool) {
	if id < 0 || id >= len(f.Classes) {
		return nil, false
	}
	return f.Classes[id], true
}

// LocationAt returns the source location of the first entry at or after
// offset. Locations must be sorted by offset.
func (f *Function) LocationAt(offset int) diag.Location {
	i := sort.Search(len(f.Locations), func(i int) bool {
		return f.Locations[i].Offset >= offset
	})
	if i == len(f.Locations) {
		return diag.Location{}
	}
	return f.Locations[i].Location
}

// ArgumentRegister returns the register holding argument i.
func ArgumentRegister(i int) int {
	return FirstArgument + i
}
