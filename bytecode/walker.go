package bytecode

// Verdict tells Walk what to do with the instruction about to be visited.
type Verdict uint8

const (
	// Process dispatches the instruction and calls EndInstruction.
	Process Verdict = iota
	// Skip moves on to the next instruction without dispatching.
	Skip
	// Stop ends the walk.
	Stop
)

// Visitor receives decoded instructions from Walk.
//
// Each analysis pass implements Visitor once; behavior is chosen by the
// visitor handed to the shared decode loop, not by subclassing.
// Category methods switch on in.Op for the opcodes of their category.
type Visitor interface {
	StartInstruction(in *Instruction) Verdict
	EndInstruction(in *Instruction)

	VisitConstant(in *Instruction)
	VisitRegister(in *Instruction)
	VisitName(in *Instruction)
	VisitMember(in *Instruction)
	VisitCall(in *Instruction)
	VisitLiteral(in *Instruction)
	VisitJump(in *Instruction)
	VisitTerminal(in *Instruction)
	VisitContext(in *Instruction)
	VisitOperator(in *Instruction)
}

// Walk decodes code and feeds every instruction to v in stream order.
// It returns the first decode error; visitors report their own failures.
func Walk(code []byte, v Visitor) error {
	d := NewDecoder(code)
	for d.More() {
		in, err := d.Next()
		if err != nil {
			return err
		}
		switch v.StartInstruction(&in) {
		case Skip:
			continue
		case Stop:
			return nil
		}
		dispatch(v, &in)
		v.EndInstruction(&in)
	}
	return nil
}

func dispatch(v Visitor, in *Instruction) {
	switch in.Op.Category() {
	case CategoryConstant:
		v.VisitConstant(in)
	case CategoryRegister:
		v.VisitRegister(in)
	case CategoryName:
		v.VisitName(in)
	case CategoryMember:
		v.VisitMember(in)
	case CategoryCall:
		v.VisitCall(in)
	case CategoryLiteral:
		v.VisitLiteral(in)
	case CategoryJump:
		v.VisitJump(in)
	case CategoryTerminal:
		v.VisitTerminal(in)
	case CategoryContext:
		v.VisitContext(in)
	case CategoryOperator:
		v.VisitOperator(in)
	}
}

// NopVisitor processes every instruction and ignores it. Embed it to
// implement only the categories a pass cares about.
type NopVisitor struct{}

func (NopVisitor) StartInstruction(*Instruction) Verdict { return Process }
func (NopVisitor) EndInstruction(*Instruction)           {}
func (NopVisitor) VisitConstant(*Instruction)            {}
func (NopVisitor) VisitRegister(*Instruction)            {}
func (NopVisitor) VisitName(*Instruction)                {}
func (NopVisitor) VisitMember(*Instruction)              {}
func (NopVisitor) VisitCall(*Instruction)                {}
func (NopVisitor) VisitLiteral(*Instruction)             {}
func (NopVisitor) VisitJump(*Instruction)                {}
func (NopVisitor) VisitTerminal(*Instruction)            {}
func (NopVisitor) VisitContext(*Instruction)             {}
func (NopVisitor) VisitOperator(*Instruction)            {}
