// Package css implements deterministic renaming of CSS class/id selectors
// and custom-property identifiers. Tokenizing and grammar parsing of the
// stylesheet is delegated to github.com/tdewolff/parse - this package owns
// the selector component model, the naming strategies and the conversion
// tables that make renaming stable across runs.
package css

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ComponentKind identifies a single selector component.
type ComponentKind int

const (
	KindType          ComponentKind = iota // element name, e.g. "div"
	KindUniversal                          // *
	KindAttribute                          // [disabled], [href^="x"]
	KindCombinator                         // descendant, >, +, ~, ||
	KindNamespace                          // "svg|" prefix
	KindNesting                            // &
	KindPseudoElement                      // ::before, ::part(x)
	KindID                                 // #name
	KindClass                              // .name
	KindPseudoClass                        // :hover, :not(...), ...
)

func (k ComponentKind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindUniversal:
		return "universal"
	case KindAttribute:
		return "attribute"
	case KindCombinator:
		return "combinator"
	case KindNamespace:
		return "namespace"
	case KindNesting:
		return "nesting"
	case KindPseudoElement:
		return "pseudo-element"
	case KindID:
		return "id"
	case KindClass:
		return "class"
	case KindPseudoClass:
		return "pseudo-class"
	default:
		return "unknown"
	}
}

// PseudoKind classifies a pseudo-class component. Simple kinds carry no
// nested selectors; structural kinds own one or more selector lists the
// rewriter recurses into.
type PseudoKind int

const (
	PseudoSimple       PseudoKind = iota // :hover, :root, ... nothing nested
	PseudoNot                            // :not(<list>)
	PseudoWhere                          // :where(<list>)
	PseudoIs                             // :is(<list>)
	PseudoAny                            // :any(<list>) and vendor-prefixed forms
	PseudoHas                            // :has(<list>)
	PseudoHost                           // :host, :host(<selector>)
	PseudoNthChild                       // :nth-child(An+B [of <list>])
	PseudoNthLastChild                   // :nth-last-child(An+B [of <list>])
	PseudoOther                          // functional pseudo-class we do not descend into
)

// PseudoClass is the payload of a KindPseudoClass component.
type PseudoClass struct {
	Kind PseudoKind
	Name string // as written, without the leading colon
	Nth  string // An+B text for the nth kinds
	Raw  string // verbatim argument for PseudoOther
	// Selectors holds nested selector alternatives: the argument list for
	// not/where/is/any/has, at most one entry for host, the "of" list for
	// the nth kinds.
	Selectors SelectorList
}

// Component is one node of a parsed selector. The set of kinds is closed;
// dispatch over it must be total.
type Component struct {
	Kind   ComponentKind
	Name   string       // class/id name without sigil, type name, combinator text
	Raw    string       // verbatim source text for attribute and namespace kinds
	Pseudo *PseudoClass // set only for KindPseudoClass
}

// Selector is an ordered component sequence, e.g. ".item > a:hover".
type Selector []Component

// SelectorList is a group of comma-separated selector alternatives.
type SelectorList []Selector

// Clone returns a deep copy of the pseudo-class payload.
func (p *PseudoClass) Clone() *PseudoClass {
	if p == nil {
		return nil
	}
	c := *p
	c.Selectors = p.Selectors.Clone()
	return &c
}

// Clone returns a deep copy of the selector.
func (s Selector) Clone() Selector {
	out := make(Selector, len(s))
	for i, c := range s {
		out[i] = c
		out[i].Pseudo = c.Pseudo.Clone()
	}
	return out
}

// Clone returns a deep copy of the selector list.
func (l SelectorList) Clone() SelectorList {
	out := make(SelectorList, len(l))
	for i, s := range l {
		out[i] = s.Clone()
	}
	return out
}

// String renders the component back to selector text.
func (c Component) String() string {
	switch c.Kind {
	case KindType:
		return c.Name
	case KindUniversal:
		return "*"
	case KindAttribute, KindNamespace:
		return c.Raw
	case KindCombinator:
		return c.Name
	case KindNesting:
		return "&"
	case KindPseudoElement:
		return "::" + c.Name + c.Raw
	case KindID:
		return "#" + c.Name
	case KindClass:
		return "." + c.Name
	case KindPseudoClass:
		return ":" + c.Pseudo.String()
	default:
		return c.Raw
	}
}

func (p *PseudoClass) String() string {
	if p == nil {
		return ""
	}
	switch p.Kind {
	case PseudoSimple:
		return p.Name
	case PseudoOther:
		return p.Name + "(" + p.Raw + ")"
	case PseudoHost:
		if len(p.Selectors) == 0 {
			return p.Name
		}
		return p.Name + "(" + p.Selectors.String() + ")"
	case PseudoNthChild, PseudoNthLastChild:
		if len(p.Selectors) == 0 {
			return p.Name + "(" + p.Nth + ")"
		}
		return p.Name + "(" + p.Nth + " of " + p.Selectors.String() + ")"
	default: // not, where, is, any, has
		return p.Name + "(" + p.Selectors.String() + ")"
	}
}

// String renders the selector back to CSS text.
func (s Selector) String() string {
	var sb strings.Builder
	for _, c := range s {
		sb.WriteString(c.String())
	}
	return sb.String()
}

// String renders the selector list with comma separators.
func (l SelectorList) String() string {
	parts := make([]string, len(l))
	for i, s := range l {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}

// escapeIdent escapes characters that cannot appear verbatim in a CSS
// identifier so the result survives round-tripping through a persisted
// conversion table. Text that came from the tokenizer already carries its
// source escapes - existing backslash sequences are copied through as-is.
func escapeIdent(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '\\':
			// keep an existing escape sequence intact
			b.WriteByte('\\')
			i += size
			if i < len(s) {
				nr, nsize := utf8.DecodeRuneInString(s[i:])
				b.WriteRune(nr)
				i += nsize
			}
			continue
		case r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || r >= 0x80:
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

// sigilOf returns the leading sigil for a class or id component.
func sigilOf(k ComponentKind) (byte, bool) {
	switch k {
	case KindClass:
		return '.', true
	case KindID:
		return '#', true
	default:
		return 0, false
	}
}

// isSigil reports whether b starts a class or id selector.
func isSigil(b byte) bool {
	return b == '.' || b == '#'
}
