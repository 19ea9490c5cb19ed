package css

import (
	"fmt"

	"go.uber.org/zap"
)

// Rewriter walks parsed selector trees and rewrites class/id leaves and
// custom-property idents through the shared conversion tables. It never
// mutates its input: every rewrite builds a new tree bottom-up, so callers
// can keep the original around and subtrees can be tested in isolation.
type Rewriter struct {
	log        *zap.Logger
	tables     *Tables
	selNamer   *Namer
	identNamer *Namer
	selIgnore  Patterns
	idIgnore   Patterns
}

// NewRewriter wires a namer pair, ignore sets and conversion tables into a
// rewriter. The two namers may share mode and seed but carry independent
// affixes.
func NewRewriter(log *zap.Logger, tables *Tables, selNamer, identNamer *Namer, selIgnore, idIgnore Patterns) *Rewriter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rewriter{
		log:        log.Named("css-rewriter"),
		tables:     tables,
		selNamer:   selNamer,
		identNamer: identNamer,
		selIgnore:  selIgnore,
		idIgnore:   idIgnore,
	}
}

// RewriteSelectorList rewrites every selector alternative in the list and
// returns a new list. A single original alternative may expand into several
// when a preserved table mapping replaces one name with a compound fragment.
func (rw *Rewriter) RewriteSelectorList(list SelectorList) (SelectorList, error) {
	var out SelectorList
	for _, sel := range list {
		res, err := rw.rewriteSelector(sel)
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

// rewriteSelector rewrites one selector. The result is usually a single
// selector; it fans out into alternatives only when a component's
// replacement fragment itself contains comma-separated alternatives.
func (rw *Rewriter) rewriteSelector(sel Selector) (SelectorList, error) {
	alts := SelectorList{{}}
	for _, c := range sel {
		frag, err := rw.rewriteComponent(c)
		if err != nil {
			return nil, err
		}
		switch len(frag) {
		case 1:
			for i := range alts {
				alts[i] = append(alts[i], frag[0]...)
			}
		default:
			// cross alternatives: every accumulated prefix continues into
			// every replacement alternative
			crossed := make(SelectorList, 0, len(alts)*len(frag))
			for _, a := range alts {
				for _, f := range frag {
					na := make(Selector, 0, len(a)+len(f))
					na = append(na, a.Clone()...)
					na = append(na, f...)
					crossed = append(crossed, na)
				}
			}
			alts = crossed
		}
	}
	return alts, nil
}

// rewriteComponent dispatches on the component kind. The returned fragment
// is a selector list whose alternatives each hold the component sequence
// that replaces this single component - zero, one or many siblings.
func (rw *Rewriter) rewriteComponent(c Component) (SelectorList, error) {
	switch c.Kind {
	case KindUniversal, KindAttribute, KindCombinator, KindNamespace, KindNesting, KindType, KindPseudoElement:
		// structurally significant, never renamed
		return SelectorList{{c}}, nil

	case KindID, KindClass:
		return rw.rewriteNamed(c)

	case KindPseudoClass:
		return rw.rewritePseudoClass(c)

	default:
		rw.log.Debug("Passing through unrecognized selector component", zap.Stringer("kind", c.Kind))
		return SelectorList{{c}}, nil
	}
}

// rewriteNamed handles class and id components: ignore-policy check, then
// conversion through the shared selector table with sigil-preserving hooks.
func (rw *Rewriter) rewriteNamed(c Component) (SelectorList, error) {
	sigil, ok := sigilOf(c.Kind)
	if !ok || c.Name == "" {
		// id/class component without a renderable sigil+name form signals a
		// grammar shape the walker was not built for
		return nil, fmt.Errorf("cannot stringify %s selector component", c.Kind)
	}
	if rw.selIgnore.Match(c.Name) {
		return SelectorList{{c}}, nil
	}

	display := string(sigil) + c.Name
	hooks := &namerHooks{
		// stored selector values are sigil-correct, hand them back as-is so
		// the splice logic below can reparse them
		onExistenceFound: func(stored string) string { return stored },
		// prefix freshly generated names with the original sigil so the
		// persisted mapping itself is a valid selector fragment
		onNewValueBeforeAdd: func(generated string) string { return string(sigil) + generated },
	}
	out, err := rw.selNamer.Rename(display, rw.tables.Selectors, hooks)
	if err != nil {
		return nil, err
	}

	if len(out) > 0 && isSigil(out[0]) {
		// stored value: a fresh (possibly compound, possibly multi-
		// alternative) selector fragment replacing this one component
		frag, err := ParseSelectorList(out)
		if err != nil {
			return nil, fmt.Errorf("stored replacement for '%s' is not a valid selector fragment: %w", display, err)
		}
		return frag, nil
	}

	// bare generated ident: keep the component kind, swap the name
	nc := c
	nc.Name = out
	return SelectorList{{nc}}, nil
}

// rewritePseudoClass recurses into the nested selector lists owned by
// structural pseudo-classes. Simple and unrecognized pseudo-classes pass
// through untouched.
func (rw *Rewriter) rewritePseudoClass(c Component) (SelectorList, error) {
	ps := c.Pseudo
	if ps == nil {
		return SelectorList{{c}}, nil
	}
	switch ps.Kind {
	case PseudoSimple:
		return SelectorList{{c}}, nil

	case PseudoOther:
		rw.log.Debug("Passing through unrecognized pseudo-class", zap.String("name", ps.Name))
		return SelectorList{{c}}, nil

	case PseudoNot, PseudoWhere, PseudoIs, PseudoAny, PseudoHas:
		return rw.rewriteStructural(c, ps)

	case PseudoHost, PseudoNthChild, PseudoNthLastChild:
		return rw.rewriteAnchored(c, ps)

	default:
		rw.log.Debug("Passing through unrecognized pseudo-class kind", zap.String("name", ps.Name))
		return SelectorList{{c}}, nil
	}
}

// rewriteStructural handles not/where/is/any/has. Each nested alternative
// is rewritten independently; as long as every alternative stays a single
// selector the node survives with updated lists. If any alternative expands
// into several selectors the node degrades to the flattened union of the
// recursion outputs, because a preserved compound mapping can turn one
// original selector into more than one compound form.
func (rw *Rewriter) rewriteStructural(c Component, ps *PseudoClass) (SelectorList, error) {
	newLists := make(SelectorList, 0, len(ps.Selectors))
	var union SelectorList
	degraded := false
	for _, nested := range ps.Selectors {
		res, err := rw.rewriteSelector(nested)
		if err != nil {
			return nil, err
		}
		if len(res) != 1 {
			degraded = true
		}
		union = append(union, res...)
		if len(res) == 1 {
			newLists = append(newLists, res[0])
		}
	}
	if degraded {
		rw.log.Debug("Structural pseudo-class degraded to union of rewritten alternatives",
			zap.String("name", ps.Name), zap.Int("alternatives", len(union)))
		return union, nil
	}
	np := ps.Clone()
	np.Selectors = newLists
	nc := c
	nc.Pseudo = np
	return SelectorList{{nc}}, nil
}

// rewriteAnchored handles host and the nth-child "of" clause. Nested lists
// are rewritten for their conversion-table side effects and single-selector
// results land back in the node; an alternative that expands into several
// selectors keeps its original form there, since neither position can hold a
// union. The node itself always passes through as a single component.
func (rw *Rewriter) rewriteAnchored(c Component, ps *PseudoClass) (SelectorList, error) {
	if len(ps.Selectors) == 0 {
		return SelectorList{{c}}, nil
	}
	newLists := make(SelectorList, 0, len(ps.Selectors))
	for _, nested := range ps.Selectors {
		res, err := rw.rewriteSelector(nested)
		if err != nil {
			return nil, err
		}
		if len(res) == 1 {
			newLists = append(newLists, res[0])
			continue
		}
		rw.log.Debug("Discarding compound expansion inside anchored pseudo-class",
			zap.String("name", ps.Name), zap.String("selector", nested.String()))
		newLists = append(newLists, nested.Clone())
	}
	np := ps.Clone()
	np.Selectors = newLists
	nc := c
	nc.Pseudo = np
	return SelectorList{{nc}}, nil
}

// identMarker is the fixed two-character prefix of CSS custom properties.
const identMarker = "--"

// RewriteIdent rewrites a single dashed identifier (a custom-property name
// with its marker). Tokens without the marker and ignored names come back
// unchanged; everything else goes through the ident conversion table.
func (rw *Rewriter) RewriteIdent(token string) (string, error) {
	name, ok := cutMarker(token)
	if !ok {
		return token, nil
	}
	if rw.idIgnore.Match(name) {
		return token, nil
	}
	out, err := rw.identNamer.Rename(name, rw.tables.Idents, nil)
	if err != nil {
		return "", err
	}
	return identMarker + out, nil
}

// cutMarker strips the custom-property marker from a dashed ident.
func cutMarker(token string) (string, bool) {
	if len(token) <= len(identMarker) || token[:2] != identMarker {
		return token, false
	}
	return token[2:], true
}
