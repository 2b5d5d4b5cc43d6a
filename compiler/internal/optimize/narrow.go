package optimize

import (
	"go.uber.org/zap"

	"github.com/wippyai/script-aot/compiler/internal/ir"
	"github.com/wippyai/script-aot/errors"
	"github.com/wippyai/script-aot/types"
)

// narrowLiterals adjusts the placeholder types of literal sites in reverse
// record order. A container is recorded after the literals nested in it, so
// its demand reaches them before they are narrowed.
func (o *optimizer) narrowLiterals(sites []ir.LiteralSite, access map[int]*RegisterAccess, res *Result) error {
	for i := len(sites) - 1; i >= 0; i-- {
		site := sites[i]
		ann, ok := o.annotations[site.Offset]
		if !ok || !ann.Writes() {
			continue
		}
		t := ann.Changed.Type
		if site.IsConstruct && !t.IsSequence() {
			o.logger.Debug("constructed something else",
				zap.String("function", o.name),
				zap.Int("offset", site.Offset),
				zap.Stringer("type", t))
			continue
		}
		if !t.IsTracked() {
			continue
		}

		narrowed := true
		var err error
		switch site.Kind {
		case ir.LiteralArray, ir.LiteralArrayLength:
			narrowed, err = o.narrowArray(site, ann, t, access)
		case ir.LiteralObject:
			err = o.narrowObject(site, ann, t)
		}
		if err != nil {
			return err
		}
		if !narrowed {
			continue
		}
		res.Narrowed = append(res.Narrowed, site.Offset)
		o.logger.Debug("literal narrowed",
			zap.String("function", o.name),
			zap.Int("offset", site.Offset),
			zap.Stringer("kind", site.Kind),
			zap.Stringer("type", t))
	}
	return nil
}

func (o *optimizer) narrowArray(site ir.LiteralSite, ann *ir.Annotation, t *types.Type, access map[int]*RegisterAccess) (bool, error) {
	if !t.IsSequence() {
		return false, errors.Assertion(errors.PhaseOptimize, "array literal at %d has type %s", site.Offset, t)
	}

	target := o.demandedElement(site.Offset, t, access)
	if target == nil {
		reads, err := o.literalReads(site, ann)
		if err != nil {
			return false, err
		}
		for _, r := range reads {
			if site.Kind == ir.LiteralArrayLength && r.Required != t.Element {
				// new Array(n) preallocates; n is not an element.
				return false, nil
			}
			target = o.resolver.Merge(target, r.Content.Type)
		}
	}
	if err := t.Element.Adjust(target); err != nil {
		return false, errors.New(errors.PhaseOptimize, errors.KindAssertion).
			Cause(err).
			Detail("cannot narrow array literal at %d", site.Offset).
			Build()
	}
	return true, nil
}

// demandedElement returns the most specific element type among the
// concrete sequences the literal's consumers require, following renames.
func (o *optimizer) demandedElement(w int, t *types.Type, access map[int]*RegisterAccess) *types.Type {
	var best *types.Type
	visited := map[int]bool{w: true}
	queue := []int{w}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		a, ok := access[cur]
		if !ok {
			continue
		}
		for _, r := range sortedKeys(a.Readers) {
			ann, ok := o.annotations[r]
			if !ok {
				continue
			}
			if ann.IsRename {
				if ann.Writes() && !visited[r] {
					visited[r] = true
					queue = append(queue, r)
				}
				continue
			}
			read, ok := ann.Reads[a.Register]
			if !ok {
				continue
			}
			req := read.Required
			if req == t || !req.IsSequence() || req.Element.IsVariant() {
				continue
			}
			if best == nil || (o.resolver.CanConvert(req, best) && !types.Equal(req, best)) {
				best = req
			}
		}
	}
	if best == nil {
		return nil
	}
	return best.Element
}

func (o *optimizer) narrowObject(site ir.LiteralSite, ann *ir.Annotation, t *types.Type) error {
	if !t.IsObject() {
		return errors.Assertion(errors.PhaseOptimize, "object literal at %d has type %s", site.Offset, t)
	}
	reads, err := o.literalReads(site, ann)
	if err != nil {
		return err
	}
	props := t.Properties()
	if len(reads) > len(props) {
		return errors.Assertion(errors.PhaseOptimize,
			"object literal at %d sets %d of %d properties", site.Offset, len(reads), len(props))
	}
	for i, r := range reads {
		if err := props[i].Type.Adjust(r.Content.Type); err != nil {
			return errors.New(errors.PhaseOptimize, errors.KindAssertion).
				Cause(err).
				Detail("cannot narrow property %s of object literal at %d", props[i].Name, site.Offset).
				Build()
		}
		props[i].TypeName = props[i].Type.String()
	}
	return nil
}

// literalReads returns the reads of the site's argument registers in order.
func (o *optimizer) literalReads(site ir.LiteralSite, ann *ir.Annotation) ([]ir.Read, error) {
	reads := make([]ir.Read, site.Argc)
	for i := range reads {
		r, ok := ann.Reads[site.Argv+i]
		if !ok {
			return nil, errors.Assertion(errors.PhaseOptimize,
				"literal at %d does not read argument register %d", site.Offset, site.Argv+i)
		}
		reads[i] = r
	}
	return reads, nil
}
