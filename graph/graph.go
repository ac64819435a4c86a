// Package graph compiles an expanded grammar into the single labeled
// directed graph the recognizer matches utterances against.
package graph

import (
	"fmt"

	"github.com/openvoice/nlucore/ast"
	"github.com/openvoice/nlucore/errs"
	"github.com/openvoice/nlucore/grammar"
)

// Epsilon is the empty-symbol label.
const Epsilon = "ε"

// NodeKind classifies a Node's role in the graph.
type NodeKind int

const (
	Internal NodeKind = iota
	Start
	IntentStart
	EndOfSentence
)

// Node is one arena-indexed graph vertex. IntentName is set only for
// IntentStart and EndOfSentence nodes.
type Node struct {
	ID         int
	Kind       NodeKind
	IntentName string
}

// Edge is one arena-indexed directed, labeled, weighted connection.
// Converters is non-empty only on a "__begin__<tag>" edge, carrying the
// tag's converter chain for the recognition builder to apply once the
// entity's token span is known.
type Edge struct {
	ID         int
	From, To   int
	ILabel     string
	OLabel     string
	Weight     float64
	Converters []string
}

// Graph is the compiled, immutable recognition graph. Nodes and edges
// are owned exclusively by the Graph (no aliasing), stored in flat
// arenas rather than as a pointer-linked structure so traversal and
// serialization (see package fst) stay allocation-light.
type Graph struct {
	Nodes []Node
	Edges []Edge

	StartID int
	out     map[int][]int // node ID -> indices into Edges
}

// Outgoing returns the edges leaving node id, in insertion order.
func (g *Graph) Outgoing(id int) []Edge {
	idxs := g.out[id]
	es := make([]Edge, len(idxs))
	for i, idx := range idxs {
		es[i] = g.Edges[idx]
	}
	return es
}

func (g *Graph) newNode(kind NodeKind, intent string) int {
	id := len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{ID: id, Kind: kind, IntentName: intent})
	return id
}

func (g *Graph) addEdge(from, to int, ilabel, olabel string, weight float64) int {
	id := len(g.Edges)
	g.Edges = append(g.Edges, Edge{ID: id, From: from, To: to, ILabel: ilabel, OLabel: olabel, Weight: weight})
	g.out[from] = append(g.out[from], id)
	return id
}

// Compile builds the recognition graph for every intent and sentence in
// g. g must already be expanded (no RuleRef/SlotRef remaining); Compile
// returns a CompileError if one is found, since that indicates a caller
// skipped Grammar.Expand rather than bad input.
func Compile(gr *grammar.Grammar) (*Graph, error) {
	out := &Graph{out: map[int][]int{}}
	out.StartID = out.newNode(Start, "")

	for _, name := range gr.IntentNames() {
		in := gr.Intents[name]
		intentStart := out.newNode(IntentStart, name)
		out.addEdge(out.StartID, intentStart, Epsilon, name, 1)

		if len(in.Sentences) == 0 {
			continue
		}
		end := out.newNode(EndOfSentence, name)
		for _, sentence := range in.Sentences {
			sentFrom := out.newNode(Internal, "")
			out.addEdge(intentStart, sentFrom, Epsilon, Epsilon, 1)
			sentTo := out.newNode(Internal, "")
			if err := compileAST(out, sentence, sentFrom, sentTo); err != nil {
				return nil, err
			}
			out.addEdge(sentTo, end, Epsilon, Epsilon, 1)
		}
	}

	normalizeWeights(out)
	return out, nil
}

// compileAST recursively compiles n into edges between from and to.
func compileAST(g *Graph, n ast.Node, from, to int) error {
	switch v := n.(type) {
	case *ast.Word:
		olabel := v.Output
		if olabel == "" {
			if v.Substitution {
				olabel = Epsilon
			} else {
				olabel = v.Input
			}
		}
		g.addEdge(from, to, v.Input, olabel, 1)
		return nil

	case *ast.Sequence:
		return compileSequence(g, v, from, to)

	case *ast.Tag:
		return compileTag(g, v, from, to)

	case *ast.RuleRef, *ast.SlotRef:
		return &errs.CompileError{Reason: fmt.Sprintf("unexpanded %T reached the graph compiler", n)}

	default:
		return &errs.CompileError{Reason: fmt.Sprintf("unknown AST node type %T", n)}
	}
}

func compileSequence(g *Graph, s *ast.Sequence, from, to int) error {
	switch s.Mode {
	case ast.SEQUENCE:
		return compileSequenceChain(g, s, from, to)

	case ast.ALTERNATIVE, ast.OPTIONAL:
		return compileAlternative(g, s, from, to)

	default:
		return &errs.CompileError{Reason: fmt.Sprintf("unknown sequence mode %v", s.Mode)}
	}
}

func compileSequenceChain(g *Graph, s *ast.Sequence, from, to int) error {
	if len(s.Items) == 0 {
		g.addEdge(from, to, Epsilon, Epsilon, 1)
		return substituteIfNeeded(g, from, to, s)
	}
	cur := from
	for i, item := range s.Items {
		var next int
		if i == len(s.Items)-1 {
			next = to
		} else {
			next = g.newNode(Internal, "")
		}
		if err := compileAST(g, item, cur, next); err != nil {
			return err
		}
		cur = next
	}
	return substituteIfNeeded(g, from, to, s)
}

// compileAlternative handles both ALTERNATIVE and OPTIONAL (OPTIONAL is
// an ALTERNATIVE of [item, empty-branch] with weights [p, 1-p]).
func compileAlternative(g *Graph, s *ast.Sequence, from, to int) error {
	if len(s.Items) == 0 {
		// An expander-produced empty alternative (unresolved slot):
		// no edges connect from to to, so this branch matches nothing.
		return nil
	}

	// OPTIONAL stores only its one real branch in Items, with the
	// empty counterpart's weight trailing in Weights[1]; ALTERNATIVE
	// stores one weight per item. Derive the real-branch weights
	// accordingly rather than comparing lengths uniformly.
	var weights []float64
	switch {
	case s.Mode == ast.OPTIONAL && len(s.Weights) >= 1:
		weights = []float64{s.Weights[0]}
	case len(s.Weights) == len(s.Items):
		weights = s.Weights
	default:
		weights = make([]float64, len(s.Items))
		for i := range weights {
			weights[i] = 1.0
		}
		weights = ast.NormalizeWeights(weights)
	}

	for i, item := range s.Items {
		branchFrom := g.newNode(Internal, "")
		g.addEdge(from, branchFrom, Epsilon, Epsilon, weights[i])
		branchTo := g.newNode(Internal, "")
		if err := compileAST(g, item, branchFrom, branchTo); err != nil {
			return err
		}
		g.addEdge(branchTo, to, Epsilon, Epsilon, 1)
	}

	if s.Mode == ast.OPTIONAL {
		// The OPTIONAL constructor supplies a single real item; its
		// empty counterpart's weight is the second entry of s.Weights,
		// represented here directly as an edge since
		// ast.Sequence{Mode: OPTIONAL} stores only the one real
		// branch in Items (see ast.Sequence doc comment).
		emptyWeight := 0.5
		if len(s.Weights) == 2 {
			emptyWeight = s.Weights[1]
		}
		g.addEdge(from, to, Epsilon, Epsilon, emptyWeight)
	}

	return substituteIfNeeded(g, from, to, s)
}

// substituteIfNeeded applies a Sequence-level SubstitutionOutput, when
// present, the same way compileTag applies a tag's.
func substituteIfNeeded(g *Graph, from, to int, s *ast.Sequence) error {
	if len(s.SubstitutionOutput) == 0 {
		return nil
	}
	applyConsumingSubstitution(g, from, s.SubstitutionOutput)
	return nil
}

func compileTag(g *Graph, t *ast.Tag, from, to int) error {
	mid1 := g.newNode(Internal, "")
	beginIdx := g.addEdge(from, mid1, Epsilon, "__begin__"+t.Name, 1)
	g.Edges[beginIdx].Converters = t.Converters

	mid2 := g.newNode(Internal, "")
	if err := compileAST(g, t.Inner, mid1, mid2); err != nil {
		return err
	}
	if len(t.SubstitutionOutput) > 0 {
		applyConsumingSubstitution(g, mid1, t.SubstitutionOutput)
	}

	g.addEdge(mid2, to, Epsilon, "__end__"+t.Name, 1)
	return nil
}

// applyConsumingSubstitution walks every edge reachable forward from
// start that consumes an input token (ILabel != Epsilon) and overwrites
// its OLabel with the substitution words, positionally along each path:
// the i-th consuming edge on a path from start gets words[i]'s output,
// or Epsilon once words is exhausted, so every alternative branch
// starts again at words[0]. A node shared by several paths is visited
// once, with the position of the first path that reaches it. Extra
// words beyond the number of consuming edges are dropped; this is the
// simplified policy this implementation uses for substitutions whose
// token count doesn't match the inner expression's.
func applyConsumingSubstitution(g *Graph, start int, words []*ast.Word) {
	visited := map[int]bool{}
	var walk func(node, idx int)
	walk = func(node, idx int) {
		if visited[node] {
			return
		}
		visited[node] = true
		for _, eidx := range g.out[node] {
			e := &g.Edges[eidx]
			next := idx
			if e.ILabel != Epsilon {
				if idx < len(words) {
					e.OLabel = words[idx].Output
				} else {
					e.OLabel = Epsilon
				}
				next++
			}
			walk(e.To, next)
		}
	}
	walk(start, 0)
}

// normalizeWeights scales every node's outgoing edge weights to sum to
// 1.0. Nodes with a single outgoing edge are normalized to exactly 1.0
// regardless of the weight recorded during compilation.
func normalizeWeights(g *Graph) {
	for _, idxs := range g.out {
		if len(idxs) == 0 {
			continue
		}
		sum := 0.0
		for _, idx := range idxs {
			w := g.Edges[idx].Weight
			if w <= 0 {
				w = 1.0
			}
			sum += w
		}
		if sum <= 0 {
			sum = float64(len(idxs))
		}
		for _, idx := range idxs {
			w := g.Edges[idx].Weight
			if w <= 0 {
				w = 1.0
			}
			g.Edges[idx].Weight = w / sum
		}
	}
}
