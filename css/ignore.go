package css

import (
	"fmt"
	"regexp"
)

// Patterns is a compiled set of ignore patterns. A name matching any pattern
// is exempt from renaming and passes through the transform untouched.
type Patterns []*regexp.Regexp

// CompilePatterns compiles textual patterns into a Patterns set. Each string
// is regular-expression source, not a literal - anchors written by the
// caller (e.g. "^btn-") are honored. Empty input compiles to an empty set.
func CompilePatterns(exprs []string) (Patterns, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make(Patterns, 0, len(exprs))
	for _, e := range exprs {
		re, err := regexp.Compile(e)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern '%s': %w", e, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Match reports whether name matches any pattern in the set with search
// semantics. Callers must pass the sigil-stripped selector name or the
// marker-stripped ident name so patterns are written against the names a
// human sees in the source.
func (p Patterns) Match(name string) bool {
	for _, re := range p {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
