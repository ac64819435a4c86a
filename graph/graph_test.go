package graph

import (
	"strings"
	"testing"

	"github.com/openvoice/nlucore/grammar"
)

func mustCompile(t *testing.T, src string) *Graph {
	t.Helper()
	g, err := grammar.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	expanded, err := g.Expand(nil)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	gr, err := Compile(expanded)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return gr
}

// TestWeightInvariant checks that every node's outgoing edge weights
// sum to 1.0 within 1e-9.
func TestWeightInvariant(t *testing.T) {
	gr := mustCompile(t, "[SetColor]\nset light to (red | green | blue)\n[LightOn]\nturn on [the] (living room lamp | kitchen light){name}\n")

	byNode := map[int][]Edge{}
	for _, e := range gr.Edges {
		byNode[e.From] = append(byNode[e.From], e)
	}
	for node, edges := range byNode {
		sum := 0.0
		for _, e := range edges {
			sum += e.Weight
		}
		if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("node %d outgoing weights sum to %v, want 1.0", node, sum)
		}
	}
}

func TestIntentStartEdgeCarriesIntentName(t *testing.T) {
	gr := mustCompile(t, "[SetColor]\nset light to red\n")
	found := false
	for _, e := range gr.Outgoing(gr.StartID) {
		if e.OLabel == "SetColor" && e.ILabel == Epsilon {
			found = true
		}
	}
	if !found {
		t.Fatalf("no start->intent_start edge labeled SetColor")
	}
}

func TestTagBoundaryEdgesPresent(t *testing.T) {
	gr := mustCompile(t, "[LightOn]\nturn on (living room lamp | kitchen light){name}\n")
	var begins, ends int
	for _, e := range gr.Edges {
		if e.OLabel == "__begin__name" {
			begins++
		}
		if e.OLabel == "__end__name" {
			ends++
		}
	}
	if begins == 0 || begins != ends {
		t.Fatalf("begins=%d ends=%d, want equal and nonzero", begins, ends)
	}
}
