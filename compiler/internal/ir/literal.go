package ir

// LiteralKind distinguishes literal-construction sites.
type LiteralKind uint8

const (
	// LiteralArray is an array literal or a multi-argument Array constructor.
	LiteralArray LiteralKind = iota
	// LiteralArrayLength is a single-argument Array constructor. A numeric
	// argument preallocates slots instead of becoming an element.
	LiteralArrayLength
	// LiteralObject is an object literal built from an internal class.
	LiteralObject
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralArray:
		return "array"
	case LiteralArrayLength:
		return "array-constructor"
	case LiteralObject:
		return "object"
	}
	return "unknown"
}

// LiteralSite is an instruction constructing a literal with at least one
// argument. Arguments occupy registers Argv .. Argv+Argc-1.
type LiteralSite struct {
	Offset      int
	Kind        LiteralKind
	ClassID     int
	Argc        int
	Argv        int
	IsConstruct bool
}
