package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// AffixOption configures a prefix or suffix: either one value applied
// uniformly or independent per-target overrides.
type AffixOption struct {
	All       string // applied to both targets unless overridden
	Selectors string
	Idents    string
}

// resolve normalizes the option into the (selectors, idents) pair used for
// the rest of the invocation.
func (a AffixOption) resolve() (sel, id string) {
	sel, id = a.All, a.All
	if a.Selectors != "" {
		sel = a.Selectors
	}
	if a.Idents != "" {
		id = a.Idents
	}
	return sel, id
}

// IgnoreOption carries ignore patterns: one flat set applied to both
// targets, per-target sets, or both combined.
type IgnoreOption struct {
	All       []string
	Selectors []string
	Idents    []string
}

func (o IgnoreOption) forSelectors() []string {
	return append(append([]string(nil), o.All...), o.Selectors...)
}

func (o IgnoreOption) forIdents() []string {
	return append(append([]string(nil), o.All...), o.Idents...)
}

// Options configures one Transform invocation.
type Options struct {
	CSS         []byte
	Mode        Mode
	DebugSymbol string // marker for debug-mode names, default "_"
	Prefix      AffixOption
	Suffix      AffixOption
	// Seed feeds hash-mode naming. A decimal string is used as-is, any
	// other text is deterministically reduced to a number, empty means the
	// fixed default.
	Seed string
	// Tables optionally seeds the conversion tables with prior decisions;
	// the supplied instance is never modified.
	Tables *Tables
	Ignore IgnoreOption
	Minify bool // run the result through the CSS minifier
	Log    *zap.Logger
}

// Result is the outcome of one Transform invocation.
type Result struct {
	CSS    []byte
	Tables *Tables
}

// Transform rewrites class/id selectors and custom-property idents in one
// parse-transform-serialize pass. Two calls with identical input and
// identical (or accumulated) conversion tables produce byte-identical
// output; in minimal mode the sequential counter restarts at zero each
// invocation unless seeded tables already cover the names.
func Transform(opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("css-transform")

	switch opts.Mode {
	case ModeHash, ModeMinimal, ModeDebug:
	default:
		return nil, fmt.Errorf("unknown naming mode %d", int(opts.Mode))
	}

	symbol := opts.DebugSymbol
	if symbol == "" {
		symbol = "_"
	}
	seed := resolveSeed(opts.Seed)
	selPrefix, idPrefix := opts.Prefix.resolve()
	selSuffix, idSuffix := opts.Suffix.resolve()

	selIgnore, err := CompilePatterns(opts.Ignore.forSelectors())
	if err != nil {
		return nil, err
	}
	idIgnore, err := CompilePatterns(opts.Ignore.forIdents())
	if err != nil {
		return nil, err
	}

	tables := NewTables()
	tables.Seed(opts.Tables)

	rw := NewRewriter(log, tables,
		NewNamer(opts.Mode, symbol, selPrefix, selSuffix, seed),
		NewNamer(opts.Mode, symbol, idPrefix, idSuffix, seed),
		selIgnore, idIgnore)

	out, err := rewriteStylesheet(rw, opts.CSS, log)
	if err != nil {
		return nil, err
	}
	if opts.Minify {
		m := minify.New()
		m.AddFunc("text/css", mincss.Minify)
		if out, err = m.Bytes("text/css", out); err != nil {
			return nil, fmt.Errorf("unable to minify result: %w", err)
		}
	}

	log.Debug("Transform finished",
		zap.Int("bytes", len(out)),
		zap.Int("selectors", len(tables.Selectors)),
		zap.Int("idents", len(tables.Idents)))
	return &Result{CSS: out, Tables: tables}, nil
}

// resolveSeed reduces the textual seed to its numeric form.
func resolveSeed(s string) uint64 {
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v
	}
	return SeedFromString(s)
}

// rewriteStylesheet runs the input through the grammar parser once,
// re-emitting every construct and rewriting selectors, custom-property
// declarations and var() references along the way.
func rewriteStylesheet(rw *Rewriter, data []byte, log *zap.Logger) ([]byte, error) {
	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	var out bytes.Buffer
	var groups []string // rewritten selector alternatives of the pending ruleset

	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("unable to parse stylesheet: %w", err)
			}
			return out.Bytes(), nil

		case css.CommentGrammar:
			out.Write(data)

		case css.AtRuleGrammar:
			out.Write(data)
			if err := rw.writePrelude(&out, parser.Values()); err != nil {
				return nil, err
			}
			out.WriteByte(';')

		case css.BeginAtRuleGrammar:
			out.Write(data)
			if err := rw.writePrelude(&out, parser.Values()); err != nil {
				return nil, err
			}
			out.WriteByte('{')

		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			out.WriteByte('}')

		case css.QualifiedRuleGrammar:
			sel, err := rw.rewriteSelectorText(data, parser.Values())
			if err != nil {
				return nil, err
			}
			groups = append(groups, sel)

		case css.BeginRulesetGrammar:
			sel, err := rw.rewriteSelectorText(data, parser.Values())
			if err != nil {
				return nil, err
			}
			groups = append(groups, sel)
			out.WriteString(strings.Join(groups, ","))
			out.WriteByte('{')
			groups = nil

		case css.CustomPropertyGrammar:
			name, err := rw.RewriteIdent(string(data))
			if err != nil {
				return nil, err
			}
			out.WriteString(name)
			out.WriteByte(':')
			var val bytes.Buffer
			for _, v := range parser.Values() {
				val.Write(v.Data)
			}
			out.Write(bytes.TrimSpace(val.Bytes()))
			out.WriteByte(';')

		case css.DeclarationGrammar:
			out.Write(data)
			out.WriteByte(':')
			if err := rw.writeDeclarationValue(&out, parser.Values()); err != nil {
				return nil, err
			}
			out.WriteByte(';')

		case css.TokenGrammar:
			out.Write(data)

		default:
			log.Debug("Passing through unrecognized grammar item", zap.String("item", gt.String()))
			out.Write(data)
		}
	}
}

// rewriteSelectorText rebuilds the selector text of one ruleset alternative
// and runs it through the walker.
func (rw *Rewriter) rewriteSelectorText(data []byte, values []css.Token) (string, error) {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}
	text := strings.TrimSpace(sb.String())

	list, err := ParseSelectorList(text)
	if err != nil {
		return "", err
	}
	res, err := rw.RewriteSelectorList(list)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// writeDeclarationValue emits declaration value tokens, rewriting dashed
// idents (var() references) through the ident table. Whitespace around the
// value is dropped so output does not depend on source formatting.
func (rw *Rewriter) writeDeclarationValue(out *bytes.Buffer, values []css.Token) error {
	for len(values) > 0 && values[0].TokenType == css.WhitespaceToken {
		values = values[1:]
	}
	for len(values) > 0 && values[len(values)-1].TokenType == css.WhitespaceToken {
		values = values[:len(values)-1]
	}
	for _, v := range values {
		if (v.TokenType == css.IdentToken || v.TokenType == css.CustomPropertyNameToken) &&
			bytes.HasPrefix(v.Data, []byte(identMarker)) {
			name, err := rw.RewriteIdent(string(v.Data))
			if err != nil {
				return err
			}
			out.WriteString(name)
			continue
		}
		out.Write(v.Data)
	}
	return nil
}

// writePrelude emits at-rule prelude tokens, separating them from the
// at-keyword when the tokenizer dropped the whitespace. Dashed idents go
// through the ident table so @property registrations and @supports queries
// keep pointing at the renamed custom properties.
func (rw *Rewriter) writePrelude(out *bytes.Buffer, values []css.Token) error {
	for i, v := range values {
		if i == 0 && v.TokenType != css.WhitespaceToken {
			out.WriteByte(' ')
		}
		if (v.TokenType == css.IdentToken || v.TokenType == css.CustomPropertyNameToken) &&
			bytes.HasPrefix(v.Data, []byte(identMarker)) {
			name, err := rw.RewriteIdent(string(v.Data))
			if err != nil {
				return err
			}
			out.WriteString(name)
			continue
		}
		out.Write(v.Data)
	}
	return nil
}
