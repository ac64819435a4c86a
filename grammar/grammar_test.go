package grammar

import (
	"strings"
	"testing"

	"github.com/openvoice/nlucore/ast"
)

func TestParseIntentAndSentence(t *testing.T) {
	src := "[LightOn]\nturn on [the] (living room lamp | kitchen light){name}\n"
	g, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(g.IntentNames()) != 1 || g.IntentNames()[0] != "LightOn" {
		t.Fatalf("intents = %v, want [LightOn]", g.IntentNames())
	}
	in := g.Intents["LightOn"]
	if len(in.Sentences) != 1 {
		t.Fatalf("got %d sentences, want 1", len(in.Sentences))
	}
}

func TestParseRuleDefinition(t *testing.T) {
	src := "[Intent1]\nrule = a test\n"
	g, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	in := g.Intents["Intent1"]
	if _, ok := in.Rules["rule"]; !ok {
		t.Fatalf("rule %q not found", "rule")
	}
}

func TestParseSentenceBeforeSectionIsError(t *testing.T) {
	src := "turn on the light\n"
	if _, err := Parse(strings.NewReader(src)); err == nil {
		t.Fatalf("expected a parse error for content before any [Intent] section")
	}
}

func TestParseWeightedAlternative(t *testing.T) {
	src := "[SetColor]\nset (2 red | 1 blue)\n"
	g, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sentence := g.Intents["SetColor"].Sentences[0]
	seq, ok := sentence.(*ast.Sequence)
	if !ok {
		t.Fatalf("sentence is %T, want *ast.Sequence", sentence)
	}
	var alt *ast.Sequence
	for _, item := range seq.Items {
		if s, ok := item.(*ast.Sequence); ok && s.Mode == ast.ALTERNATIVE {
			alt = s
		}
	}
	if alt == nil {
		t.Fatalf("no ALTERNATIVE node found in %v", seq.Items)
	}
	if len(alt.Weights) != 2 {
		t.Fatalf("got %d weights, want 2", len(alt.Weights))
	}
	if alt.Weights[0] <= alt.Weights[1] {
		t.Fatalf("weights = %v, want first > second (2:1 ratio)", alt.Weights)
	}
}

func TestParseOptionalGroupWithAlternatives(t *testing.T) {
	src := "[LightOn]\nturn on [red | blue] light\n"
	g, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sentence := g.Intents["LightOn"].Sentences[0]
	seq, ok := sentence.(*ast.Sequence)
	if !ok {
		t.Fatalf("sentence is %T, want *ast.Sequence", sentence)
	}
	var opt *ast.Sequence
	for _, item := range seq.Items {
		if s, ok := item.(*ast.Sequence); ok && s.Mode == ast.OPTIONAL {
			opt = s
		}
	}
	if opt == nil {
		t.Fatalf("no OPTIONAL node found in %v", seq.Items)
	}
	alt, ok := opt.Items[0].(*ast.Sequence)
	if !ok || alt.Mode != ast.ALTERNATIVE || len(alt.Items) != 2 {
		t.Fatalf("optional body = %v, want a 2-branch ALTERNATIVE", opt.Items[0])
	}
}

func TestParseBareNumberIsLiteralWord(t *testing.T) {
	src := "[SetVolume]\nset volume to 2\n"
	g, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sentence := g.Intents["SetVolume"].Sentences[0]
	seq, ok := sentence.(*ast.Sequence)
	if !ok {
		t.Fatalf("sentence is %T, want *ast.Sequence", sentence)
	}
	last := seq.Items[len(seq.Items)-1]
	w, ok := last.(*ast.Word)
	if !ok || w.Input != "2" {
		t.Fatalf("last item = %v, want literal word \"2\"", last)
	}
}

func TestParseSubstitutionAndConverter(t *testing.T) {
	src := "[SetBrightness]\nset brightness to (one:1 | two:2){value!int}\n"
	g, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sentence := g.Intents["SetBrightness"].Sentences[0]
	seq := sentence.(*ast.Sequence)
	var tag *ast.Tag
	for _, item := range seq.Items {
		if tg, ok := item.(*ast.Tag); ok {
			tag = tg
		}
	}
	if tag == nil {
		t.Fatalf("no tag found in %v", seq.Items)
	}
	if len(tag.Converters) != 1 || tag.Converters[0] != "int" {
		t.Fatalf("converters = %v, want [int]", tag.Converters)
	}
	alt, ok := tag.Inner.(*ast.Sequence)
	if !ok || alt.Mode != ast.ALTERNATIVE {
		t.Fatalf("tag.Inner = %T, want ALTERNATIVE sequence", tag.Inner)
	}
	for _, branch := range alt.Items {
		w, ok := branch.(*ast.Word)
		if !ok || !w.Substitution {
			t.Fatalf("branch %v is not a substitution word", branch)
		}
	}
}

func TestLintReportsUnreferencedRule(t *testing.T) {
	src := "[Intent1]\nused = a test\nunused = never reached\n<used>\n"
	g, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	issues := Lint(g)
	if len(issues) != 1 || issues[0].Rule != "unused" || issues[0].Intent != "Intent1" {
		t.Fatalf("Lint = %v, want one issue for Intent1.unused", issues)
	}
}

func TestLintFindsNoIssuesWhenEveryRuleIsReachable(t *testing.T) {
	src := "[Intent2]\nrule = this is\n<rule> <Intent1.rule>\n[Intent1]\nrule = a test\n"
	g, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if issues := Lint(g); len(issues) != 0 {
		t.Fatalf("Lint = %v, want no issues", issues)
	}
}

func TestExpandRuleRef(t *testing.T) {
	src := "[Intent2]\nrule = this is\n<rule> <Intent1.rule>\n[Intent1]\nrule = a test\n"
	g, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	expanded, err := g.Expand(nil)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	sentence := expanded.Intents["Intent2"].Sentences[0]
	var words []string
	ast.Walk(sentence, func(n ast.Node) {
		if w, ok := n.(*ast.Word); ok {
			words = append(words, w.Input)
		}
	})
	want := []string{"this", "is", "a", "test"}
	if len(words) != len(want) {
		t.Fatalf("words = %v, want %v", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Fatalf("words = %v, want %v", words, want)
		}
	}
}

func TestExpandMissingSlotIsLenientByDefault(t *testing.T) {
	src := "[Intent1]\nplay $artist\n"
	g, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := g.Expand(nil); err != nil {
		t.Fatalf("Expand without StrictSlots: %v", err)
	}
}

func TestExpandMissingSlotIsErrorUnderStrictSlots(t *testing.T) {
	src := "[Intent1]\nplay $artist\n"
	g, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := g.Expand(nil, StrictSlots()); err == nil {
		t.Fatalf("expected an ExpansionError for a missing slot under StrictSlots")
	}
}

func TestExpandCyclicRuleIsError(t *testing.T) {
	src := "[Intent1]\na = <b>\nb = <a>\n"
	g, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := g.Expand(nil); err == nil {
		t.Fatalf("expected a cyclic-reference error")
	}
}

// TestExpandIsIdempotent checks that expanding an already-expanded
// grammar again yields the same sentence structure.
func TestExpandIsIdempotent(t *testing.T) {
	src := "[Intent2]\nrule = this is\n<rule> <Intent1.rule>\n[Intent1]\nrule = a test\n"
	g, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	once, err := g.Expand(nil)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	twice, err := once.Expand(nil)
	if err != nil {
		t.Fatalf("second Expand: %v", err)
	}

	wordsOf := func(gr *Grammar) []string {
		var words []string
		ast.Walk(gr.Intents["Intent2"].Sentences[0], func(n ast.Node) {
			if w, ok := n.(*ast.Word); ok {
				words = append(words, w.Input)
			}
		})
		return words
	}
	first, second := wordsOf(once), wordsOf(twice)
	if len(first) != len(second) {
		t.Fatalf("words = %v, second pass = %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("words = %v, second pass = %v", first, second)
		}
	}
}

func TestExpandSlotRef(t *testing.T) {
	src := "[Intent1]\nplay $artist\n"
	g, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	replacements := map[string][]ast.Node{
		"artist": {&ast.Word{Input: "miles"}, &ast.Word{Input: "davis"}},
	}
	expanded, err := g.Expand(replacements)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	sentence := expanded.Intents["Intent1"].Sentences[0]
	seq := sentence.(*ast.Sequence)
	last := seq.Items[len(seq.Items)-1]
	alt, ok := last.(*ast.Sequence)
	if !ok || alt.Mode != ast.ALTERNATIVE || len(alt.Items) != 2 {
		t.Fatalf("resolved slot = %v, want a 2-branch ALTERNATIVE", last)
	}
}
