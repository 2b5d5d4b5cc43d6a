package propagate

import (
	"github.com/wippyai/script-aot/bytecode"
	"github.com/wippyai/script-aot/compiler/internal/ir"
	"github.com/wippyai/script-aot/diag"
	"github.com/wippyai/script-aot/errors"
	"github.com/wippyai/script-aot/types"
)

func (p *propagator) VisitConstant(in *bytecode.Instruction) {
	switch in.Op {
	case bytecode.OpLoadConst:
		if t, ok := p.constantType(in.Arg(0)); ok {
			p.result(t, ir.VariantBuiltin)
		}
	case bytecode.OpLoadZero, bytecode.OpLoadInt:
		p.result(p.b.Int, ir.VariantBuiltin)
	case bytecode.OpLoadTrue, bytecode.OpLoadFalse:
		p.result(p.b.Bool, ir.VariantBuiltin)
	case bytecode.OpLoadNull:
		p.result(p.b.Null, ir.VariantBuiltin)
	case bytecode.OpLoadUndefined:
		p.result(p.b.Void, ir.VariantBuiltin)
	case bytecode.OpLoadString:
		if _, ok := p.name(in.Arg(0)); ok {
			p.result(p.b.String, ir.VariantBuiltin)
		}
	case bytecode.OpMoveConst:
		if t, ok := p.constantType(in.Arg(0)); ok {
			p.write(in.Arg(1), ir.NewContent(t, ir.VariantBuiltin, in.Offset))
		}
	}
}

func (p *propagator) constantType(index int) (*types.Type, bool) {
	c, ok := p.fn.Constant(index)
	if !ok {
		p.fail(errors.KindInvalidBytecode, "constant %d is out of range", index)
		return nil, false
	}
	switch c.Kind {
	case bytecode.ConstNull:
		return p.b.Null, true
	case bytecode.ConstBool:
		return p.b.Bool, true
	case bytecode.ConstInt:
		return p.b.Int, true
	case bytecode.ConstReal:
		return p.b.Real, true
	case bytecode.ConstString:
		return p.b.String, true
	}
	return p.b.Void, true
}

func (p *propagator) VisitRegister(in *bytecode.Instruction) {
	switch in.Op {
	case bytecode.OpLoadReg:
		p.rename(in.Arg(0), ir.Accumulator)
	case bytecode.OpStoreReg:
		p.rename(ir.Accumulator, in.Arg(0))
	case bytecode.OpMoveReg:
		p.rename(in.Arg(0), in.Arg(1))
	}
}

func (p *propagator) VisitName(in *bytecode.Instruction) {
	name, ok := p.name(in.Arg(0))
	if !ok {
		return
	}
	switch in.Op {
	case bytecode.OpLoadName:
		m, found := p.resolver.Scoped(p.fn.Scope, name)
		if !found {
			p.failWith(errors.KindUnresolvedName, p.unqualified(name), "Cannot find name %s", name)
			return
		}
		p.deprecated(m, name)
		p.loadMember(m, name)
	case bytecode.OpStoreName:
		m, found := p.resolver.Scoped(p.fn.Scope, name)
		if !found {
			p.failWith(errors.KindUnresolvedName, p.unqualified(name), "Cannot find name %s", name)
			return
		}
		if m.Kind != types.MemberProperty {
			p.fail(errors.KindReadOnly, "Cannot assign to non-property %s", name)
			return
		}
		p.storeProperty(m.Property, name)
	case bytecode.OpTypeofName:
		p.result(p.b.String, ir.VariantBuiltin)
	}
}

// loadMember puts what m names into the accumulator.
func (p *propagator) loadMember(m *types.Member, name string) {
	var c ir.Content
	switch m.Kind {
	case types.MemberProperty:
		if m.Property.Type == nil {
			p.fail(errors.KindUnresolvedMember, "Cannot access value for name %s", name)
			p.missingType(m.Property)
			return
		}
		c = ir.NewContent(m.Property.Type, ir.VariantProperty, p.in.Offset)
		c.Property = m.Property
	case types.MemberMethod:
		c = ir.NewContent(p.b.Function, ir.VariantMethod, p.in.Offset)
		c.Methods = m.Methods
	case types.MemberType:
		c = ir.NewContent(m.Type, ir.VariantMetatype, p.in.Offset)
	case types.MemberObject:
		c = ir.NewContent(m.Type, ir.VariantScopeObject, p.in.Offset)
	case types.MemberAttached:
		c = ir.NewContent(m.Type, ir.VariantScopeAttached, p.in.Offset)
	}
	p.write(ir.Accumulator, c)
}

// storeProperty checks that the accumulator may be written to prop.
func (p *propagator) storeProperty(prop *types.Property, name string) {
	if !prop.Writable {
		p.fail(errors.KindReadOnly, "Cannot assign to read-only property %s", name)
		return
	}
	acc, ok := p.input(ir.Accumulator, prop.Type)
	if !ok {
		return
	}
	if !p.resolver.CanConvert(acc.Type, prop.Type) {
		p.fail(errors.KindConversion, "cannot convert from %s to %s", acc.Type, prop.Type)
		return
	}
	p.cur.SideEffects = true
}

func (p *propagator) VisitMember(in *bytecode.Instruction) {
	switch in.Op {
	case bytecode.OpLoadProperty:
		name, ok := p.name(in.Arg(0))
		if !ok {
			return
		}
		base, ok := p.input(ir.Accumulator, nil)
		if !ok {
			return
		}
		p.loadProperty(base, name)

	case bytecode.OpStoreProperty:
		name, ok := p.name(in.Arg(0))
		if !ok {
			return
		}
		base, ok := p.input(in.Arg(1), nil)
		if !ok {
			return
		}
		if base.Type.IsVariant() {
			if _, ok := p.input(ir.Accumulator, nil); ok {
				p.cur.SideEffects = true
			}
			return
		}
		m, found := p.resolver.Member(base.Type, name)
		if !found {
			p.fail(errors.KindUnresolvedMember, "Cannot find property %s on %s", name, base.Type)
			return
		}
		if m.Kind != types.MemberProperty {
			p.fail(errors.KindReadOnly, "Cannot assign to non-property %s", name)
			return
		}
		p.storeProperty(m.Property, name)

	case bytecode.OpLoadElement:
		base, ok := p.input(in.Arg(0), nil)
		if !ok {
			return
		}
		idx, ok := p.content(ir.Accumulator)
		if !ok {
			return
		}
		if base.Type.IsSequence() && types.Equal(idx.Type, p.b.Int) {
			p.cur.AddRead(ir.Accumulator, idx, p.b.Int)
			p.result(base.Type.Element, ir.VariantBuiltin)
			return
		}
		p.cur.AddRead(ir.Accumulator, idx, nil)
		p.result(p.b.Var, ir.VariantBuiltin)

	case bytecode.OpStoreElement:
		base, ok := p.input(in.Arg(0), nil)
		if !ok {
			return
		}
		idx, ok := p.content(in.Arg(1))
		if !ok {
			return
		}
		if base.Type.IsSequence() && types.Equal(idx.Type, p.b.Int) {
			p.cur.AddRead(in.Arg(1), idx, p.b.Int)
			elem := base.Type.Element
			acc, ok := p.input(ir.Accumulator, elem)
			if !ok {
				return
			}
			if !p.resolver.CanConvert(acc.Type, elem) {
				p.fail(errors.KindConversion, "cannot convert from %s to %s", acc.Type, elem)
				return
			}
		} else {
			p.cur.AddRead(in.Arg(1), idx, nil)
			if _, ok := p.input(ir.Accumulator, nil); !ok {
				return
			}
		}
		p.cur.SideEffects = true
	}
}

func (p *propagator) loadProperty(base ir.Content, name string) {
	if base.Type.IsVariant() {
		p.result(p.b.Var, ir.VariantProperty)
		return
	}
	var m *types.Member
	found := false
	if !base.IsMethod() {
		m, found = p.resolver.Member(base.Type, name)
	}
	p.attachedUse(base, m)
	if !found {
		p.fail(errors.KindUnresolvedMember, "Cannot load property %s from %s.", name, describe(base))
		if !p.restricted(base, name) {
			p.notFound(base, name)
		}
		return
	}
	p.deprecated(m, name)
	p.loadMember(m, name)
}

func (p *propagator) VisitCall(in *bytecode.Instruction) {
	p.cur.SideEffects = true
	switch in.Op {
	case bytecode.OpCallProperty:
		name, ok := p.name(in.Arg(0))
		if !ok {
			return
		}
		base, ok := p.input(in.Arg(1), nil)
		if !ok {
			return
		}
		argc, argv := in.Arg(2), in.Arg(3)
		if base.Type.IsVariant() {
			p.scriptCall(argc, argv)
			return
		}
		var m *types.Member
		found := false
		if !base.IsMethod() {
			m, found = p.resolver.Member(base.Type, name)
		}
		if !found || m.Kind != types.MemberMethod {
			p.fail(errors.KindUnresolvedMember, "Type %s does not have a method %s", describe(base), name)
			switch {
			case found:
				if m.Kind == types.MemberProperty {
					p.callingProperty(base.Type, m.Property, name)
				}
			case !p.restricted(base, name):
				p.notFound(base, name)
			}
			return
		}
		p.deprecated(m, name)
		p.call(name, m.Methods, argc, argv)

	case bytecode.OpCallName:
		name, ok := p.name(in.Arg(0))
		if !ok {
			return
		}
		argc, argv := in.Arg(1), in.Arg(2)
		m, found := p.resolver.Scoped(p.fn.Scope, name)
		if !found {
			p.failWith(errors.KindUnresolvedName, p.unqualified(name), "Cannot find function '%s'", name)
			return
		}
		if m.Kind != types.MemberMethod {
			p.fail(errors.KindUnresolvedMember, "method %s cannot be resolved.", name)
			if m.Kind == types.MemberProperty {
				p.callingProperty(p.fn.Scope, m.Property, name)
			}
			return
		}
		p.deprecated(m, name)
		p.call(name, m.Methods, argc, argv)

	case bytecode.OpCallValue:
		callee, ok := p.input(in.Arg(0), nil)
		if !ok {
			return
		}
		argc, argv := in.Arg(1), in.Arg(2)
		switch {
		case callee.IsMethod():
			name := "<value>"
			if len(callee.Methods) > 0 {
				name = callee.Methods[0].Name
			}
			p.call(name, callee.Methods, argc, argv)
		case callee.Type.IsVariant(), callee.Type.Kind == types.KindFunction:
			p.scriptCall(argc, argv)
		default:
			p.fail(errors.KindUnsupported, "%s is not callable", callee.Type)
		}

	case bytecode.OpConstruct:
		p.construct(in)
	}
}

func (p *propagator) VisitLiteral(in *bytecode.Instruction) {
	switch in.Op {
	case bytecode.OpDefineArray:
		list := types.TrackedList(p.b.Var)
		if !p.literalArgs(list.Element, in.Arg(0), in.Arg(1)) {
			return
		}
		p.result(list, ir.VariantLiteral)

	case bytecode.OpDefineObjectLiteral:
		names, ok := p.fn.Class(in.Arg(0))
		if !ok {
			p.fail(errors.KindInvalidBytecode, "internal class %d is out of range", in.Arg(0))
			return
		}
		argc, argv := in.Arg(1), in.Arg(2)
		if argc > len(names) {
			p.fail(errors.KindInvalidBytecode, "object literal sets %d properties of a %d-property class", argc, len(names))
			return
		}
		obj := types.TrackedObject(p.b.Object, names, p.b.Var)
		props := obj.Properties()
		for i := 0; i < argc; i++ {
			if _, ok := p.input(argv+i, props[i].Type); !ok {
				return
			}
		}
		p.result(obj, ir.VariantLiteral)
	}
}

// literalArgs reads the argc registers from argv as elements of type elem.
func (p *propagator) literalArgs(elem *types.Type, argc, argv int) bool {
	for i := 0; i < argc; i++ {
		if _, ok := p.input(argv+i, elem); !ok {
			return false
		}
	}
	return true
}

func (p *propagator) VisitJump(in *bytecode.Instruction) {
	switch in.Op {
	case bytecode.OpJump:
		p.saveSnapshot(in)
		p.skip = true
	case bytecode.OpJumpTrue, bytecode.OpJumpFalse:
		acc, ok := p.input(ir.Accumulator, p.b.Bool)
		if !ok {
			return
		}
		if !p.resolver.CanConvert(acc.Type, p.b.Bool) {
			p.fail(errors.KindConversion, "cannot convert from %s to boolean", acc.Type)
			return
		}
		p.saveSnapshot(in)
	case bytecode.OpJumpNoException:
		p.saveSnapshot(in)
	}
}

func (p *propagator) VisitTerminal(in *bytecode.Instruction) {
	switch in.Op {
	case bytecode.OpRet:
		p.ret()
	case bytecode.OpThrowException:
		if _, ok := p.input(ir.Accumulator, nil); ok {
			p.cur.SideEffects = true
		}
	}
	p.skip = true
}

func (p *propagator) ret() {
	// Signal handlers cannot return anything.
	if p.fn.IsSignalHandler {
		return
	}
	want := p.fn.ReturnType
	acc, ok := p.regs[ir.Accumulator]
	if !ok {
		if want != nil && !want.IsVoid() {
			p.fail(errors.KindConversion, "cannot convert from %s to %s", p.b.Void, want)
		}
		return
	}
	if want == nil {
		if !acc.Type.IsVoid() {
			p.fail(errors.KindConversion, "function without type annotation returns %s", acc.Type)
			return
		}
		p.cur.AddRead(ir.Accumulator, acc, nil)
		return
	}
	if !types.Equal(acc.Type, want) && !p.resolver.CanConvert(acc.Type, want) {
		p.warn(diag.CategoryType, nil, "Cannot assign binding of type "+acc.Type.String()+" to "+want.String())
		p.fail(errors.KindConversion, "cannot convert from %s to %s", acc.Type, want)
		return
	}
	p.cur.AddRead(ir.Accumulator, acc, want)
}

func (p *propagator) VisitContext(in *bytecode.Instruction) {
	switch in.Op {
	case bytecode.OpCreateCallContext, bytecode.OpPopContext, bytecode.OpCheckException:
		p.cur.SideEffects = true
		if _, ok := p.regs[ir.Accumulator]; ok {
			p.rename(ir.Accumulator, ir.Accumulator)
		}
	case bytecode.OpPushBlockContext, bytecode.OpPushCatchContext:
		p.cur.SideEffects = true
	case bytecode.OpPushWithContext:
		p.fail(errors.KindUnsupported, "with statements are not supported")
	}
}

func (p *propagator) VisitOperator(in *bytecode.Instruction) {
	op := in.Op
	switch {
	case op.IsBinary():
		lhs, ok := p.content(in.Arg(0))
		if !ok {
			return
		}
		rhs, ok := p.content(ir.Accumulator)
		if !ok {
			return
		}
		t := binaryResult(p.b, op, lhs.Type, rhs.Type)
		p.cur.AddRead(in.Arg(0), lhs, operandType(op, lhs.Type, t))
		p.cur.AddRead(ir.Accumulator, rhs, operandType(op, rhs.Type, t))
		p.result(t, ir.VariantBuiltin)
	default:
		acc, ok := p.content(ir.Accumulator)
		if !ok {
			return
		}
		t := unaryResult(p.b, op, acc.Type)
		p.cur.AddRead(ir.Accumulator, acc, operandType(op, acc.Type, t))
		p.result(t, ir.VariantBuiltin)
	}
}
