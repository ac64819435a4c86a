// Package fst serializes a compiled graph in OpenFST's plain-text
// transducer format, one line per arc ("src dst ilabel olabel weight")
// followed by one line per final state ("state weight"). It is a thin
// export adapter, not part of the recognition core.
package fst

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/openvoice/nlucore/graph"
)

// Write serializes g to w. Weights are written as negative log
// probabilities (the OpenFST tropical-semiring convention), so a
// weight of 1.0 (certain) serializes as 0.
func Write(w io.Writer, g *graph.Graph) error {
	bw := bufio.NewWriter(w)

	for _, n := range g.Nodes {
		for _, e := range g.Outgoing(n.ID) {
			ilabel := arcLabel(e.ILabel)
			olabel := arcLabel(e.OLabel)
			if _, err := fmt.Fprintf(bw, "%d\t%d\t%s\t%s\t%g\n", e.From, e.To, ilabel, olabel, negLog(e.Weight)); err != nil {
				return err
			}
		}
	}

	for _, n := range g.Nodes {
		if n.Kind != graph.EndOfSentence {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%d\t%g\n", n.ID, 0.0); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func arcLabel(s string) string {
	if s == graph.Epsilon || s == "" {
		return "<eps>"
	}
	return s
}

// Symbols builds the integer-indexed input and output symbol tables for
// g, in OpenFST's plain-text symbols-file format ("symbol\tid", one per
// line, <eps> always bound to 0), suitable for fstcompile's
// --isymbols/--osymbols flags against the arc spec Write produces.
// Write's arc lines already carry symbolic labels directly (a form
// fstcompile accepts without a separate table); Symbols is offered
// alongside for callers whose downstream tooling expects the
// integer-indexed tables explicitly.
func Symbols(g *graph.Graph) (isyms, osyms string) {
	ib := newSymbolTable()
	ob := newSymbolTable()
	for _, e := range g.Edges {
		ib.add(arcLabel(e.ILabel))
		ob.add(arcLabel(e.OLabel))
	}
	return ib.render(), ob.render()
}

type symbolTable struct {
	ids   map[string]int
	order []string
}

func newSymbolTable() *symbolTable {
	t := &symbolTable{ids: map[string]int{"<eps>": 0}, order: []string{"<eps>"}}
	return t
}

func (t *symbolTable) add(sym string) {
	if _, ok := t.ids[sym]; ok {
		return
	}
	t.ids[sym] = len(t.order)
	t.order = append(t.order, sym)
}

func (t *symbolTable) render() string {
	var b strings.Builder
	for _, sym := range t.order {
		fmt.Fprintf(&b, "%s\t%d\n", sym, t.ids[sym])
	}
	return b.String()
}

// negLog converts an edge's linear-scale probability weight into the
// tropical semiring's additive cost, clamping non-positive input
// (shouldn't occur post-normalization) to a large finite cost instead
// of emitting +Inf, which OpenFST's text reader rejects.
func negLog(weight float64) float64 {
	if weight <= 0 {
		return 1e6
	}
	if weight >= 1 {
		return 0
	}
	return -math.Log(weight)
}
