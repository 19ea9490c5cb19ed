package css

import (
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// tok is one lexed selector token.
type tok struct {
	tt   css.TokenType
	data string
}

// ParseSelectorList parses selector text (one or more comma-separated
// selectors) into an owned component tree. The text is expected in its
// source-escaped form; escapes are carried through verbatim.
func ParseSelectorList(text string) (SelectorList, error) {
	toks, err := lexSelector(text)
	if err != nil {
		return nil, err
	}
	list, err := parseSelectorTokens(toks)
	if err != nil {
		return nil, fmt.Errorf("selector '%s': %w", text, err)
	}
	return list, nil
}

// lexSelector tokenizes selector text.
func lexSelector(text string) ([]tok, error) {
	l := css.NewLexer(parse.NewInputString(text))
	var toks []tok
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			// the lexer reports io.EOF as an error token at end of input
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("selector '%s': %w", text, err)
			}
			return toks, nil
		}
		toks = append(toks, tok{tt: tt, data: string(data)})
	}
}

type selParser struct {
	toks []tok
	pos  int
}

func (p *selParser) peek() (tok, bool) {
	if p.pos >= len(p.toks) {
		return tok{}, false
	}
	return p.toks[p.pos], true
}

func (p *selParser) next() (tok, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

// parseSelectorTokens parses a full token slice into a selector list.
func parseSelectorTokens(toks []tok) (SelectorList, error) {
	p := &selParser{toks: toks}
	var list SelectorList
	cur := Selector{}
	pendingWS := false

	flush := func() error {
		cur = trimTrailingCombinator(cur)
		if len(cur) == 0 {
			return fmt.Errorf("empty selector in list")
		}
		list = append(list, cur)
		cur = Selector{}
		return nil
	}

	for {
		t, ok := p.peek()
		if !ok {
			break
		}
		switch t.tt {
		case css.WhitespaceToken:
			pendingWS = true
			p.pos++
		case css.CommentToken:
			p.pos++
		case css.CommaToken:
			p.pos++
			pendingWS = false
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			if explicit, name := combinatorToken(t); explicit {
				p.pos++
				pendingWS = false
				if len(cur) == 0 {
					return nil, fmt.Errorf("selector starts with combinator '%s'", name)
				}
				cur = append(cur, Component{Kind: KindCombinator, Name: name})
				continue
			}
			if pendingWS && len(cur) > 0 && cur[len(cur)-1].Kind != KindCombinator {
				cur = append(cur, Component{Kind: KindCombinator, Name: " "})
			}
			pendingWS = false
			comps, err := p.parseCompoundPart()
			if err != nil {
				return nil, err
			}
			cur = append(cur, comps...)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return list, nil
}

// combinatorToken reports whether t is an explicit combinator.
func combinatorToken(t tok) (bool, string) {
	switch t.tt {
	case css.DelimToken:
		switch t.data {
		case ">", "+", "~":
			return true, t.data
		}
	case css.ColumnToken:
		return true, "||"
	}
	return false, ""
}

// trimTrailingCombinator drops a dangling descendant combinator left by
// trailing whitespace before a comma or end of input.
func trimTrailingCombinator(s Selector) Selector {
	for len(s) > 0 && s[len(s)-1].Kind == KindCombinator && s[len(s)-1].Name == " " {
		s = s[:len(s)-1]
	}
	return s
}

// parseCompoundPart consumes one simple-selector unit: a type, class, id,
// attribute, pseudo or namespace prefix. It may emit more than one
// component (a namespace prefix plus its element).
func (p *selParser) parseCompoundPart() ([]Component, error) {
	t, _ := p.next()
	switch t.tt {
	case css.IdentToken:
		if ns, ok := p.takeNamespaceSep(t.data); ok {
			return []Component{ns}, nil
		}
		return []Component{{Kind: KindType, Name: t.data}}, nil

	case css.HashToken:
		if len(t.data) < 2 {
			return nil, fmt.Errorf("malformed id selector '%s'", t.data)
		}
		return []Component{{Kind: KindID, Name: t.data[1:]}}, nil

	case css.DelimToken:
		switch t.data {
		case ".":
			nt, ok := p.next()
			if !ok || nt.tt != css.IdentToken {
				return nil, fmt.Errorf("malformed class selector near '.%s'", nt.data)
			}
			return []Component{{Kind: KindClass, Name: nt.data}}, nil
		case "*":
			if ns, ok := p.takeNamespaceSep("*"); ok {
				return []Component{ns}, nil
			}
			return []Component{{Kind: KindUniversal}}, nil
		case "&":
			return []Component{{Kind: KindNesting}}, nil
		case "|":
			// explicit no-namespace prefix, e.g. "|a"
			return []Component{{Kind: KindNamespace, Raw: "|"}}, nil
		default:
			return nil, fmt.Errorf("unexpected '%s' in selector", t.data)
		}

	case css.LeftBracketToken:
		return p.parseAttribute()

	case css.ColonToken:
		return p.parsePseudo()

	default:
		return nil, fmt.Errorf("unexpected token '%s' in selector", t.data)
	}
}

// takeNamespaceSep consumes a following '|' separator, turning the already
// read prefix into a namespace component.
func (p *selParser) takeNamespaceSep(prefix string) (Component, bool) {
	if t, ok := p.peek(); ok && t.tt == css.DelimToken && t.data == "|" {
		p.pos++
		return Component{Kind: KindNamespace, Raw: prefix + "|"}, true
	}
	return Component{}, false
}

// parseAttribute captures an attribute selector verbatim up to the closing
// bracket. The opening bracket has already been consumed.
func (p *selParser) parseAttribute() ([]Component, error) {
	var sb strings.Builder
	sb.WriteByte('[')
	for {
		t, ok := p.next()
		if !ok {
			return nil, fmt.Errorf("unterminated attribute selector")
		}
		sb.WriteString(t.data)
		if t.tt == css.RightBracketToken {
			return []Component{{Kind: KindAttribute, Raw: sb.String()}}, nil
		}
	}
}

// parsePseudo parses a pseudo-class or pseudo-element; the leading colon has
// already been consumed.
func (p *selParser) parsePseudo() ([]Component, error) {
	t, ok := p.next()
	if !ok {
		return nil, fmt.Errorf("dangling ':' in selector")
	}

	// second colon means pseudo-element
	if t.tt == css.ColonToken {
		et, ok := p.next()
		if !ok {
			return nil, fmt.Errorf("dangling '::' in selector")
		}
		switch et.tt {
		case css.IdentToken:
			return []Component{{Kind: KindPseudoElement, Name: et.data}}, nil
		case css.FunctionToken:
			name := strings.TrimSuffix(et.data, "(")
			arg, err := p.rawUntilCloseParen()
			if err != nil {
				return nil, err
			}
			return []Component{{Kind: KindPseudoElement, Name: name, Raw: "(" + arg + ")"}}, nil
		default:
			return nil, fmt.Errorf("malformed pseudo-element near '::%s'", et.data)
		}
	}

	switch t.tt {
	case css.IdentToken:
		kind := PseudoSimple
		if strings.EqualFold(t.data, "host") {
			kind = PseudoHost
		}
		return []Component{{Kind: KindPseudoClass, Pseudo: &PseudoClass{Kind: kind, Name: t.data}}}, nil

	case css.FunctionToken:
		name := strings.TrimSuffix(t.data, "(")
		return p.parseFunctionalPseudo(name)

	default:
		return nil, fmt.Errorf("malformed pseudo-class near ':%s'", t.data)
	}
}

// parseFunctionalPseudo dispatches on the pseudo-class name and parses the
// argument tokens up to the matching close paren.
func (p *selParser) parseFunctionalPseudo(name string) ([]Component, error) {
	args, err := p.argTokens()
	if err != nil {
		return nil, fmt.Errorf("pseudo-class ':%s(': %w", name, err)
	}

	ps := &PseudoClass{Name: name}
	switch canonicalPseudoName(name) {
	case "not":
		ps.Kind = PseudoNot
	case "where":
		ps.Kind = PseudoWhere
	case "is":
		ps.Kind = PseudoIs
	case "any":
		ps.Kind = PseudoAny
	case "has":
		ps.Kind = PseudoHas
	case "host":
		ps.Kind = PseudoHost
	case "nth-child":
		ps.Kind = PseudoNthChild
	case "nth-last-child":
		ps.Kind = PseudoNthLastChild
	default:
		ps.Kind = PseudoOther
		ps.Raw = rawText(args)
		return []Component{{Kind: KindPseudoClass, Pseudo: ps}}, nil
	}

	switch ps.Kind {
	case PseudoNthChild, PseudoNthLastChild:
		nth, of := splitNthOf(args)
		ps.Nth = strings.TrimSpace(rawText(nth))
		if of != nil {
			list, err := parseSelectorTokens(of)
			if err != nil {
				return nil, fmt.Errorf("pseudo-class ':%s(... of ...)': %w", name, err)
			}
			ps.Selectors = list
		}
	default:
		list, err := parseSelectorTokens(args)
		if err != nil {
			return nil, fmt.Errorf("pseudo-class ':%s(...)': %w", name, err)
		}
		ps.Selectors = list
	}
	return []Component{{Kind: KindPseudoClass, Pseudo: ps}}, nil
}

// canonicalPseudoName lower-cases the pseudo-class name and strips vendor
// prefixes so ":-webkit-any" dispatches like ":any".
func canonicalPseudoName(name string) string {
	n := strings.ToLower(name)
	for _, vp := range []string{"-webkit-", "-moz-", "-ms-", "-o-"} {
		if rest, ok := strings.CutPrefix(n, vp); ok {
			return rest
		}
	}
	return n
}

// argTokens collects the argument tokens of a functional pseudo up to (and
// consuming) the matching close paren.
func (p *selParser) argTokens() ([]tok, error) {
	var args []tok
	depth := 0
	for {
		t, ok := p.next()
		if !ok {
			return nil, fmt.Errorf("unterminated argument list")
		}
		switch t.tt {
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			if depth == 0 {
				return args, nil
			}
			depth--
		}
		args = append(args, t)
	}
}

// rawUntilCloseParen captures functional-pseudo-element arguments verbatim.
func (p *selParser) rawUntilCloseParen() (string, error) {
	args, err := p.argTokens()
	if err != nil {
		return "", err
	}
	return rawText(args), nil
}

// splitNthOf splits nth-child arguments at the top-level "of" keyword into
// the An+B part and the optional selector list part (nil when absent).
func splitNthOf(args []tok) (nth, of []tok) {
	for i, t := range args {
		if t.tt == css.IdentToken && strings.EqualFold(t.data, "of") {
			return args[:i], args[i+1:]
		}
	}
	return args, nil
}

// rawText joins token source text, collapsing whitespace runs to a single
// space.
func rawText(toks []tok) string {
	var sb strings.Builder
	for _, t := range toks {
		if t.tt == css.WhitespaceToken {
			sb.WriteByte(' ')
			continue
		}
		sb.WriteString(t.data)
	}
	return sb.String()
}
