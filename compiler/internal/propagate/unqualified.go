package propagate

import (
	"fmt"

	"github.com/agnivade/levenshtein"

	"github.com/wippyai/script-aot/diag"
)

// unqualified reports a bare name the scope cannot resolve. If an
// enclosing element owns the name, the fix qualifies the access with that
// element's id; otherwise a close spelling among the names in scope is
// offered.
func (p *propagator) unqualified(name string) *diag.FixSuggestion {
	loc := p.fn.LocationAt(p.in.Offset)
	loc.Length = 0

	var suggestion *diag.FixSuggestion
	if scope := p.fn.Scope; scope != nil {
		for parent := scope.Parent; parent != nil; parent = parent.Parent {
			if _, ok := p.resolver.Member(parent, name); !ok {
				continue
			}
			fix := diag.Fix{
				Message: name + " is a member of a parent element\n" +
					"      You can qualify the access with its id to avoid this warning:\n",
				Location:    loc,
				Replacement: parent.ID + ".",
			}
			suggestion = &diag.FixSuggestion{}
			if parent.ID == "" {
				fix.Replacement = "<id>."
				suggestion.Fixes = append(suggestion.Fixes, fix,
					diag.Fix{Message: "You first have to give the element an id"})
			} else {
				suggestion.Fixes = append(suggestion.Fixes, fix)
			}
			break
		}
	}

	if suggestion == nil {
		if guess, ok := closestName(name, p.resolver.ScopeNames(p.fn.Scope)); ok {
			suggestion = &diag.FixSuggestion{Fixes: []diag.Fix{{
				Message:     fmt.Sprintf("Did you mean %q?", guess),
				Location:    p.fn.LocationAt(p.in.Offset),
				Replacement: guess,
			}}}
		}
	}

	p.warn(diag.CategoryUnqualifiedAccess, suggestion, "Unqualified access")
	return suggestion
}

// closestName returns the candidate with the smallest edit distance to
// name, if it is close enough to be a plausible typo.
func closestName(name string, candidates []string) (string, bool) {
	limit := len([]rune(name)) / 3
	if limit < 1 {
		limit = 1
	}
	best, bestDist := "", limit+1
	for _, c := range candidates {
		if c == name {
			continue
		}
		if d := levenshtein.ComputeDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}
