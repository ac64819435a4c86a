package fst

import (
	"strings"
	"testing"

	"github.com/openvoice/nlucore/grammar"
	"github.com/openvoice/nlucore/graph"
)

func mustGraph(t *testing.T, src string) *graph.Graph {
	t.Helper()
	g, err := grammar.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	expanded, err := g.Expand(nil)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	gr, err := graph.Compile(expanded)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return gr
}

func TestWriteEmitsOneArcLinePerEdge(t *testing.T) {
	gr := mustGraph(t, "[SetColor]\nset light to red\n")

	var buf strings.Builder
	if err := Write(&buf, gr); err != nil {
		t.Fatalf("Write: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) < len(gr.Edges) {
		t.Fatalf("got %d lines, want at least %d arc lines", len(lines), len(gr.Edges))
	}
	for _, l := range lines[:len(gr.Edges)] {
		fields := strings.Split(l, "\t")
		if len(fields) != 5 {
			t.Fatalf("arc line %q has %d fields, want 5", l, len(fields))
		}
	}
}

func TestWriteCertainWeightSerializesAsZero(t *testing.T) {
	gr := mustGraph(t, "[SetColor]\nset light to red\n")

	var buf strings.Builder
	if err := Write(&buf, gr); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "\t0\n") && !strings.Contains(buf.String(), "\t0") {
		t.Fatalf("expected at least one zero-cost (certain) arc in:\n%s", buf.String())
	}
}

func TestWriteEpsilonLabelIsEps(t *testing.T) {
	gr := mustGraph(t, "[SetColor]\nset light to (red | green)\n")

	var buf strings.Builder
	if err := Write(&buf, gr); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "<eps>") {
		t.Fatalf("expected at least one <eps> label (intent-selection or ε edge) in:\n%s", buf.String())
	}
}

func TestSymbolsBindsEpsToZeroAndIsUnique(t *testing.T) {
	gr := mustGraph(t, "[SetColor]\nset light to (red | green)\n")

	isyms, osyms := Symbols(gr)
	if !strings.HasPrefix(isyms, "<eps>\t0\n") {
		t.Fatalf("isymbols does not bind <eps> to 0:\n%s", isyms)
	}
	if !strings.HasPrefix(osyms, "<eps>\t0\n") {
		t.Fatalf("osymbols does not bind <eps> to 0:\n%s", osyms)
	}

	seen := map[string]bool{}
	for _, line := range strings.Split(strings.TrimRight(osyms, "\n"), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			t.Fatalf("osymbols line %q does not have 2 fields", line)
		}
		if seen[fields[0]] {
			t.Fatalf("osymbols has duplicate entry for %q", fields[0])
		}
		seen[fields[0]] = true
	}
	if !seen["red"] || !seen["green"] || !seen["set"] {
		t.Fatalf("osymbols missing expected terminals: %v", osyms)
	}
}
