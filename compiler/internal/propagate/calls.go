package propagate

import (
	"fmt"
	"strings"

	"github.com/wippyai/script-aot/bytecode"
	"github.com/wippyai/script-aot/compiler/internal/ir"
	"github.com/wippyai/script-aot/errors"
	"github.com/wippyai/script-aot/types"
)

// mismatch explains why one overload does not accept a call.
type mismatch struct {
	kind errors.Kind
	msg  string
}

// call resolves name against methods and types the call's result.
func (p *propagator) call(name string, methods []*types.Method, argc, argv int) {
	m, mismatches := p.bestMatch(methods, argc, argv)
	if m == nil {
		switch len(mismatches) {
		case 0:
			p.fail(errors.KindUnresolvedMember, "method %s cannot be resolved.", name)
		case 1:
			p.fail(mismatches[0].kind, "%s", mismatches[0].msg)
		default:
			msgs := make([]string, len(mismatches))
			for i, mm := range mismatches {
				msgs[i] = mm.msg
			}
			p.fail(errors.KindAmbiguousOverload, "No matching override found. Candidates:\n%s", strings.Join(msgs, "\n"))
		}
		return
	}

	if m.IsScript {
		p.scriptCall(argc, argv)
		return
	}
	for i := 0; i < argc; i++ {
		if _, ok := p.input(argv+i, m.Params[i]); !ok {
			return
		}
	}
	ret := m.Return
	if ret == nil {
		ret = p.b.Void
	}
	p.result(ret, ir.VariantMethodReturn)
}

// bestMatch returns the first typed overload accepting the arguments, or
// the first script overload if none does. Otherwise it returns why each
// typed overload was rejected.
func (p *propagator) bestMatch(methods []*types.Method, argc, argv int) (*types.Method, []mismatch) {
	var script *types.Method
	var mismatches []mismatch
	for _, m := range methods {
		if m.IsScript {
			if script == nil {
				script = m
			}
			continue
		}
		if mm, ok := p.accepts(m, argc, argv); !ok {
			mismatches = append(mismatches, mm)
			continue
		}
		return m, nil
	}
	if script != nil {
		return script, nil
	}
	return nil, mismatches
}

func (p *propagator) accepts(m *types.Method, argc, argv int) (mismatch, bool) {
	if m.Return == nil && m.ReturnName != "" {
		return mismatch{errors.KindUnsupported,
			fmt.Sprintf("return type %s cannot be resolved", m.ReturnName)}, false
	}
	if len(m.Params) != argc {
		return mismatch{errors.KindArity,
			fmt.Sprintf("Function expects %d arguments, but %d were provided", len(m.Params), argc)}, false
	}
	for i, param := range m.Params {
		if param == nil {
			return mismatch{errors.KindUnsupported,
				fmt.Sprintf("type %s for argument %d cannot be resolved", m.ParamNames[i], i)}, false
		}
		c, ok := p.regs[argv+i]
		if !ok {
			return mismatch{errors.KindConversion,
				fmt.Sprintf("argument %d cannot be inferred", i)}, false
		}
		if !p.resolver.CanConvert(c.Type, param) {
			return mismatch{errors.KindConversion,
				fmt.Sprintf("argument %d contains %s but is expected to contain the type %s", i, c.Type, param)}, false
		}
	}
	return mismatch{}, true
}

// scriptCall types a call into untyped script code.
func (p *propagator) scriptCall(argc, argv int) {
	for i := 0; i < argc; i++ {
		if _, ok := p.input(argv+i, p.b.Var); !ok {
			return
		}
	}
	p.result(p.b.Var, ir.VariantScriptReturn)
}

func (p *propagator) construct(in *bytecode.Instruction) {
	callee, ok := p.input(in.Arg(0), nil)
	if !ok {
		return
	}
	argc, argv := in.Arg(1), in.Arg(2)

	if callee.Variant == ir.VariantMetatype && callee.Type.IsMetatype() {
		switch inst := callee.Type.Instance; {
		case inst.IsSequence():
			p.constructArray(argc, argv)
			return
		case inst.IsObject():
			for i := 0; i < argc; i++ {
				if _, ok := p.input(argv+i, p.b.Var); !ok {
					return
				}
			}
			p.result(inst, ir.VariantBuiltin)
			return
		}
	}
	if callee.Type.IsVariant() || callee.Type.Kind == types.KindFunction {
		p.scriptCall(argc, argv)
		return
	}
	p.fail(errors.KindUnsupported, "%s cannot be constructed", callee.Type)
}

// constructArray types new Array(...). A single numeric argument is the
// length, not an element.
func (p *propagator) constructArray(argc, argv int) {
	list := types.TrackedList(p.b.Var)
	if argc == 1 {
		if c, ok := p.regs[argv]; ok && c.Type.IsNumeric() {
			p.cur.AddRead(argv, c, p.b.Int)
			p.result(list, ir.VariantLiteral)
			return
		}
	}
	if !p.literalArgs(list.Element, argc, argv) {
		return
	}
	p.result(list, ir.VariantLiteral)
}
