package css

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Tables are the conversion tables: two independent flat mappings from
// escaped original names to their escaped replacements, one for selectors
// (keys and values carry the leading sigil) and one for custom-property
// idents (marker-stripped). A table is the single source of truth for
// idempotence - once a key is present its value never changes within a run.
//
// A Tables instance is exclusively owned by the transform invocation (or
// sequence of invocations) it was handed to; concurrent transforms must use
// separate instances.
type Tables struct {
	Selectors map[string]string `json:"selectors"`
	Idents    map[string]string `json:"idents"`
}

// NewTables creates empty conversion tables.
func NewTables() *Tables {
	return &Tables{
		Selectors: make(map[string]string),
		Idents:    make(map[string]string),
	}
}

// Seed copies entries from a caller-supplied prior table into t. Either
// part of prior may be nil. The prior instance itself is left untouched.
func (t *Tables) Seed(prior *Tables) {
	if prior == nil {
		return
	}
	if prior.Selectors != nil {
		maps.Copy(t.Selectors, prior.Selectors)
	}
	if prior.Idents != nil {
		maps.Copy(t.Idents, prior.Idents)
	}
}

// UnmarshalTables parses the persisted conversion-table format: a JSON
// object with top-level "selectors" and "idents" keys, each a flat
// string-to-string object. Either key may be absent.
func UnmarshalTables(data []byte) (*Tables, error) {
	t := NewTables()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(t); err != nil {
		return nil, fmt.Errorf("malformed conversion table: %w", err)
	}
	if t.Selectors == nil {
		t.Selectors = make(map[string]string)
	}
	if t.Idents == nil {
		t.Idents = make(map[string]string)
	}
	return t, nil
}

// Marshal renders the tables in the persisted format. Keys are sorted by
// encoding/json, making output stable for byte-level comparison.
func (t *Tables) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("unable to marshal conversion table: %w", err)
	}
	return data, nil
}
