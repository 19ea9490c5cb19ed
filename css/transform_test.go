package css_test

import (
	"bytes"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"cssren/css"
)

func mustTransform(t *testing.T, opts css.Options) *css.Result {
	t.Helper()
	opts.Log = zap.NewNop()
	res, err := css.Transform(opts)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	return res
}

func TestTransform_MinimalEnumerationOrder(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:  []byte(".one{color:red}.two{color:blue}"),
		Mode: css.ModeMinimal,
	})

	want := ".a{color:red;}.b{color:blue;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
	if res.Tables.Selectors[".one"] != ".a" || res.Tables.Selectors[".two"] != ".b" {
		t.Errorf("selector table = %+v", res.Tables.Selectors)
	}
	if len(res.Tables.Idents) != 0 {
		t.Errorf("expected empty ident table, got %+v", res.Tables.Idents)
	}
}

func TestTransform_GroupedSelectors(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:  []byte(".first,.second{color:red}"),
		Mode: css.ModeMinimal,
	})
	want := ".a,.b{color:red;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
}

func TestTransform_StructuralPassthrough(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:  []byte("[disabled]{opacity:0.5}"),
		Mode: css.ModeMinimal,
	})
	want := "[disabled]{opacity:0.5;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
	if len(res.Tables.Selectors) != 0 {
		t.Errorf("attribute selectors must not be renamed, table = %+v", res.Tables.Selectors)
	}
}

func TestTransform_NestedRecursion(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:  []byte(".item:not(.active){opacity:.5}"),
		Mode: css.ModeMinimal,
	})
	want := ".a:not(.b){opacity:.5;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
	wantTable := map[string]string{".item": ".a", ".active": ".b"}
	if !reflect.DeepEqual(res.Tables.Selectors, wantTable) {
		t.Errorf("selector table = %+v, want %+v", res.Tables.Selectors, wantTable)
	}
}

func TestTransform_CustomPropertyRoundTrip(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:  []byte(":root{--main-color:purple;}"),
		Mode: css.ModeMinimal,
	})
	want := ":root{--a:purple;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
	if res.Tables.Idents["main-color"] != "a" {
		t.Errorf("ident table = %+v", res.Tables.Idents)
	}
}

func TestTransform_VarReferenceFollowsDeclaration(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:  []byte(":root{--main-color:purple;}.box{color:var(--main-color)}"),
		Mode: css.ModeMinimal,
	})
	want := ":root{--a:purple;}.a{color:var(--a);}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
	if len(res.Tables.Idents) != 1 {
		t.Errorf("var() reference must reuse the declaration entry, table = %+v", res.Tables.Idents)
	}
}

func TestTransform_IgnoreExemption(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:    []byte(".btn-primary{color:red}.other{color:blue}"),
		Mode:   css.ModeMinimal,
		Ignore: css.IgnoreOption{Selectors: []string{"^btn-"}},
	})
	want := ".btn-primary{color:red;}.a{color:blue;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
	if _, ok := res.Tables.Selectors[".btn-primary"]; ok {
		t.Error("ignored name must not appear in the selector table")
	}
}

func TestTransform_IgnoreIdents(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:    []byte(":root{--keep:1px;--obsc:2px;}"),
		Mode:   css.ModeMinimal,
		Ignore: css.IgnoreOption{Idents: []string{"^keep$"}},
	})
	want := ":root{--keep:1px;--a:2px;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
	if _, ok := res.Tables.Idents["keep"]; ok {
		t.Error("ignored ident must not appear in the ident table")
	}
}

func TestTransform_CompoundRemapFromSeededTable(t *testing.T) {
	prior := css.NewTables()
	prior.Selectors[".existing-2"] = ".preserved-class-2 #preserved-id"

	res := mustTransform(t, css.Options{
		CSS:    []byte(".existing-2{color:red}"),
		Mode:   css.ModeMinimal,
		Tables: prior,
	})
	want := ".preserved-class-2 #preserved-id{color:red;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
}

func TestTransform_CompoundRemapInsideNot(t *testing.T) {
	prior := css.NewTables()
	prior.Selectors[".existing-2"] = ".preserved-class-2 #preserved-id"

	res := mustTransform(t, css.Options{
		CSS:    []byte(".item:not(.existing-2){color:red}"),
		Mode:   css.ModeMinimal,
		Tables: prior,
	})
	// the compound replacement stays a single selector, so the :not node
	// survives with its argument rewritten
	want := ".a:not(.preserved-class-2 #preserved-id){color:red;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
}

func TestTransform_AlternativeExpansionDegradesNot(t *testing.T) {
	prior := css.NewTables()
	prior.Selectors[".legacy"] = ".x,.y"

	res := mustTransform(t, css.Options{
		CSS:    []byte(".item:not(.legacy){color:red}"),
		Mode:   css.ModeMinimal,
		Tables: prior,
	})
	// a multi-alternative replacement cannot stay inside :not - the node
	// degrades to the union of the rewritten alternatives
	want := ".a.x,.a.y{color:red;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
}

func TestTransform_NthOfClauseRewritesInPlace(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:  []byte("li:nth-child(2n+1 of .row){color:red}"),
		Mode: css.ModeMinimal,
	})
	want := "li:nth-child(2n+1 of .a){color:red;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
	if res.Tables.Selectors[".row"] != ".a" {
		t.Errorf("'of' clause recursion must record table entries, table = %+v", res.Tables.Selectors)
	}
}

func TestTransform_HostArgument(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:  []byte(":host(.themed){color:red}:host{color:blue}"),
		Mode: css.ModeMinimal,
	})
	want := ":host(.a){color:red;}:host{color:blue;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
}

func TestTransform_DebugMode(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:         []byte(".sidebar{color:red}:root{--main:1px;}"),
		Mode:        css.ModeDebug,
		DebugSymbol: "_",
	})
	want := "._sidebar{color:red;}:root{--_main:1px;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
}

func TestTransform_PerTargetAffixes(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:    []byte(".box{color:red}:root{--gap:0;}"),
		Mode:   css.ModeMinimal,
		Prefix: css.AffixOption{Selectors: "s-", Idents: "i-"},
	})
	want := ".s-a{color:red;}:root{--i-a:0;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
}

func TestTransform_UniformAffix(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:    []byte(".box{color:red}"),
		Mode:   css.ModeMinimal,
		Prefix: css.AffixOption{All: "u-"},
		Suffix: css.AffixOption{All: "-v"},
	})
	want := ".u-a-v{color:red;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
}

func TestTransform_MediaBlock(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:  []byte("@media screen{.inner{color:red}}"),
		Mode: css.ModeMinimal,
	})
	want := "@media screen{.a{color:red;}}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
}

func TestTransform_PropertyAtRuleFollowsIdentTable(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:  []byte(`@property --main-color{syntax:"<color>";inherits:false}:root{--main-color:purple}.box{color:var(--main-color)}`),
		Mode: css.ModeMinimal,
	})

	// the registration, the declaration and the var() reference must all
	// land on the same renamed ident
	want := `@property --a{syntax:"<color>";inherits:false;}:root{--a:purple;}.a{color:var(--a);}`
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
	if res.Tables.Idents["main-color"] != "a" {
		t.Errorf("ident table = %+v", res.Tables.Idents)
	}
	if len(res.Tables.Idents) != 1 {
		t.Errorf("expected single ident entry, got %+v", res.Tables.Idents)
	}
}

func TestTransform_SupportsPreludeFollowsIdentTable(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:  []byte("@supports (--accent:1){.inner{color:var(--accent)}}"),
		Mode: css.ModeMinimal,
	})

	want := "@supports (--a:1){.a{color:var(--a);}}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
	if res.Tables.Idents["accent"] != "a" {
		t.Errorf("ident table = %+v", res.Tables.Idents)
	}
}

func TestTransform_PartPseudoElement(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:  []byte(".box::part(label){color:red}"),
		Mode: css.ModeMinimal,
	})

	want := ".a::part(label){color:red;}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
	if res.Tables.Selectors[".box"] != ".a" {
		t.Errorf("selector table = %+v", res.Tables.Selectors)
	}
}

func TestTransform_Determinism(t *testing.T) {
	input := []byte(".nav{color:red}.nav a:hover{color:blue}:root{--gap:4px;}")
	opts := css.Options{CSS: input, Mode: css.ModeHash, Seed: "project"}

	first := mustTransform(t, opts)
	second := mustTransform(t, opts)

	if !bytes.Equal(first.CSS, second.CSS) {
		t.Errorf("independent runs diverged:\n%s\n%s", first.CSS, second.CSS)
	}
	if !reflect.DeepEqual(first.Tables, second.Tables) {
		t.Errorf("conversion tables diverged: %+v vs %+v", first.Tables, second.Tables)
	}
}

func TestTransform_IdempotentMemoReuse(t *testing.T) {
	input := []byte(".alpha{color:red}.beta{color:blue}")

	first := mustTransform(t, css.Options{CSS: input, Mode: css.ModeMinimal})
	second := mustTransform(t, css.Options{
		CSS:    append(input, []byte(".gamma{color:green}")...),
		Mode:   css.ModeMinimal,
		Tables: first.Tables,
	})

	for key, val := range first.Tables.Selectors {
		if second.Tables.Selectors[key] != val {
			t.Errorf("seeded mapping %q changed: %q -> %q", key, val, second.Tables.Selectors[key])
		}
	}
	if _, ok := second.Tables.Selectors[".gamma"]; !ok {
		t.Error("new name missing from extended table")
	}
}

func TestTransform_TextualSeedStable(t *testing.T) {
	input := []byte(".widget{color:red}")
	a := mustTransform(t, css.Options{CSS: input, Mode: css.ModeHash, Seed: "team-seed"})
	b := mustTransform(t, css.Options{CSS: input, Mode: css.ModeHash, Seed: "team-seed"})
	c := mustTransform(t, css.Options{CSS: input, Mode: css.ModeHash, Seed: "other-seed"})

	if !bytes.Equal(a.CSS, b.CSS) {
		t.Error("same textual seed must produce identical output")
	}
	if bytes.Equal(a.CSS, c.CSS) {
		t.Error("different textual seeds must produce different hash names")
	}
}

func TestTransform_Minify(t *testing.T) {
	res := mustTransform(t, css.Options{
		CSS:    []byte(".card{color:red}"),
		Mode:   css.ModeMinimal,
		Minify: true,
	})
	want := ".a{color:red}"
	if string(res.CSS) != want {
		t.Errorf("CSS = %q, want %q", res.CSS, want)
	}
}

func TestTransform_UnknownModeFailsFast(t *testing.T) {
	_, err := css.Transform(css.Options{CSS: []byte(".a{}"), Mode: css.Mode(9)})
	if err == nil {
		t.Fatal("expected configuration error for unknown mode")
	}
}

func TestTransform_BadIgnorePattern(t *testing.T) {
	_, err := css.Transform(css.Options{
		CSS:    []byte(".a{}"),
		Ignore: css.IgnoreOption{All: []string{"["}},
	})
	if err == nil {
		t.Fatal("expected error for invalid ignore pattern")
	}
}

func TestTransform_BadStoredFragment(t *testing.T) {
	prior := css.NewTables()
	prior.Selectors[".bad"] = ".##"

	_, err := css.Transform(css.Options{
		CSS:    []byte(".bad{color:red}"),
		Mode:   css.ModeMinimal,
		Tables: prior,
	})
	if err == nil {
		t.Fatal("expected fatal error for unparseable stored replacement")
	}
}

func TestTransform_SeedTablesNotMutated(t *testing.T) {
	prior := css.NewTables()
	prior.Selectors[".keep"] = ".k"

	mustTransform(t, css.Options{
		CSS:    []byte(".keep{color:red}.fresh{color:blue}"),
		Mode:   css.ModeMinimal,
		Tables: prior,
	})
	if len(prior.Selectors) != 1 {
		t.Errorf("caller-supplied tables were mutated: %+v", prior.Selectors)
	}
}
