package css

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"
)

// Mode selects the naming strategy for rewritten selectors and idents.
type Mode int

const (
	ModeHash    Mode = iota // content-derived deterministic hash
	ModeMinimal             // shortest sequential letters: a, b, ... z, aa, ab
	ModeDebug               // human-traceable: symbol + prefix + original + suffix
)

func (m Mode) String() string {
	switch m {
	case ModeHash:
		return "hash"
	case ModeMinimal:
		return "minimal"
	case ModeDebug:
		return "debug"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts textual mode specification to Mode. Unknown values are
// a caller contract violation and fail immediately.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "hash", "":
		return ModeHash, nil
	case "minimal":
		return ModeMinimal, nil
	case "debug":
		return ModeDebug, nil
	default:
		return 0, fmt.Errorf("unknown naming mode '%s' (supported: hash, minimal, debug)", s)
	}
}

// namerHooks let the selector rewriter adjust what is stored in and read
// from a conversion table without the namer knowing about sigils.
type namerHooks struct {
	// onExistenceFound post-processes a stored value on a lookup hit.
	onExistenceFound func(stored string) string
	// onNewValueBeforeAdd transforms a freshly generated name before it is
	// recorded in the table.
	onNewValueBeforeAdd func(generated string) string
}

// Namer produces replacement names for original identifiers and memoizes
// every decision in a caller-supplied conversion table. A Namer is scoped to
// a single transform invocation and is not safe for concurrent use.
type Namer struct {
	mode    Mode
	symbol  string
	prefix  string
	suffix  string
	seedKey [32]byte
	counter int // minimal mode: next sequential name, counts newly seen names only
}

// NewNamer creates a namer for the given strategy. The seed participates in
// hash-mode naming only; the same (name, seed) pair always produces the same
// hash, within and across processes.
func NewNamer(mode Mode, symbol, prefix, suffix string, seed uint64) *Namer {
	n := &Namer{
		mode:   mode,
		symbol: symbol,
		prefix: prefix,
		suffix: suffix,
	}
	copy(n.seedKey[:], "cssren/deterministic-naming/v1")
	binary.LittleEndian.PutUint64(n.seedKey[24:], seed)
	return n
}

// SeedFromString deterministically reduces a textual seed to its numeric
// form so that the same text always selects the same hash-mode naming.
func SeedFromString(s string) uint64 {
	sum := blake3.Sum256([]byte(s))
	return binary.LittleEndian.Uint64(sum[:8])
}

// Rename returns the replacement for name, consulting and extending table.
// The name must carry its leading sigil for selectors and be marker-stripped
// for idents; table keys are stored in CSS-escaped form. At most one table
// entry is added per previously unseen name.
func (n *Namer) Rename(name string, table map[string]string, hooks *namerHooks) (string, error) {
	key := escapeKey(name)
	if stored, ok := table[key]; ok {
		if hooks != nil && hooks.onExistenceFound != nil {
			return hooks.onExistenceFound(stored), nil
		}
		return stored, nil
	}

	newName, err := n.generate(name)
	if err != nil {
		return "", err
	}

	value := escapeIdent(newName)
	if hooks != nil && hooks.onNewValueBeforeAdd != nil {
		value = hooks.onNewValueBeforeAdd(value)
	}
	table[key] = value
	return newName, nil
}

// generate computes a fresh replacement name according to the mode. The
// sigil, when present, feeds the hash (so ".x" and "#x" obfuscate
// independently) but never leaks into the generated text.
func (n *Namer) generate(name string) (string, error) {
	bare := name
	if len(bare) > 0 && isSigil(bare[0]) {
		bare = bare[1:]
	}
	switch n.mode {
	case ModeHash:
		return n.prefix + n.hash(name) + n.suffix, nil
	case ModeMinimal:
		s := n.prefix + base26(n.counter) + n.suffix
		n.counter++
		return s, nil
	case ModeDebug:
		return n.symbol + n.prefix + bare + n.suffix, nil
	default:
		return "", fmt.Errorf("unknown naming mode %d", int(n.mode))
	}
}

// hash renders a short keyed-blake3 digest of name as a valid CSS ident:
// the first character is always a letter, the rest letters or digits.
func (n *Namer) hash(name string) string {
	h, err := blake3.NewKeyed(n.seedKey[:])
	if err != nil {
		// key size is fixed at 32 bytes, this cannot happen
		panic(err)
	}
	h.Write([]byte(name))
	sum := h.Sum(nil)
	v := binary.LittleEndian.Uint64(sum[:8])

	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	out := make([]byte, 0, 7)
	out = append(out, byte('a'+v%26))
	v /= 26
	for i := 0; i < 6; i++ {
		out = append(out, alphabet[v%36])
		v /= 36
	}
	return string(out)
}

// base26 maps a counter to bijective base-26 letters: 0 -> "a", 25 -> "z",
// 26 -> "aa", 27 -> "ab". No leading-zero collisions by construction.
func base26(n int) string {
	var buf [8]byte
	i := len(buf)
	n++
	for n > 0 {
		n--
		i--
		buf[i] = byte('a' + n%26)
		n /= 26
	}
	return string(buf[i:])
}

// escapeKey escapes a display name for use as a table key, keeping the
// leading sigil verbatim so persisted selector keys read naturally.
func escapeKey(name string) string {
	if len(name) > 0 && isSigil(name[0]) {
		return name[:1] + escapeIdent(name[1:])
	}
	return escapeIdent(name)
}
