// Package ngram counts n-gram frequencies over the sentences a
// compiled graph accepts. It is a thin adapter over the core, used by
// external language-model tooling and not by the recognizer itself.
package ngram

import (
	"fmt"
	"strings"

	"github.com/openvoice/nlucore/graph"
)

// maxSentences bounds the number of distinct sentences enumerated from
// an intent's sub-graph before counting; grammars with many weighted
// alternatives can otherwise enumerate combinatorially. Counting stops
// once this many sentences have been walked for that intent, rather
// than silently running forever on a large grammar.
const maxSentences = 20000

// maxTrail bounds a single sentence's length during enumeration, as a
// backstop against runaway recursion if the graph contains a cycle
// that never reaches an end_of_sentence node.
const maxTrail = 500

// Counts walks every sentence g accepts, grouped by intent, and returns
// for each intent a map from the space-joined order-token tuple to its
// occurrence count. padStart/padEnd insert "<s>"/"</s>" boundary tokens
// the way a conventional n-gram language model does. Tag boundary
// markers (__begin__/__end__) never appear in a counted tuple: they
// are graph bookkeeping, not tokens a sentence consumes or emits.
func Counts(g *graph.Graph, order int, padStart, padEnd bool) (map[string]map[string]int, error) {
	if order < 1 {
		return nil, fmt.Errorf("ngram: order must be >= 1, got %d", order)
	}

	result := map[string]map[string]int{}

	for _, startEdge := range g.Outgoing(g.StartID) {
		intentName := startEdge.OLabel
		counts := map[string]int{}
		result[intentName] = counts

		n := 0
		var walk func(node int, trail []string) bool // false once maxSentences reached
		walk = func(node int, trail []string) bool {
			if n >= maxSentences {
				return false
			}
			if len(trail) > maxTrail {
				return true
			}
			if g.Nodes[node].Kind == graph.EndOfSentence {
				tokens := append([]string{}, trail...)
				if padStart {
					tokens = append(prefix(order-1, "<s>"), tokens...)
				}
				if padEnd {
					tokens = append(tokens, "</s>")
				}
				recordNgrams(counts, tokens, order)
				n++
				if n >= maxSentences {
					return false
				}
			}
			for _, e := range g.Outgoing(node) {
				next := trail
				if e.OLabel != graph.Epsilon && !isTagBoundary(e.OLabel) {
					next = append(append([]string{}, trail...), e.OLabel)
				}
				if !walk(e.To, next) {
					return false
				}
			}
			return true
		}

		walk(startEdge.To, nil)
	}

	return result, nil
}

func isTagBoundary(olabel string) bool {
	return hasPrefix(olabel, "__begin__") || hasPrefix(olabel, "__end__")
}

func hasPrefix(s, p string) bool {
	return len(s) >= len(p) && s[:len(p)] == p
}

func prefix(n int, tok string) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = tok
	}
	return out
}

// recordNgrams slides a window of size order over tokens, recording
// one occurrence of each window (joined with a single space) per step.
// Sentences shorter than order contribute nothing, matching the
// conventional n-gram counting rule of never emitting a partial tuple.
func recordNgrams(counts map[string]int, tokens []string, order int) {
	for i := 0; i+order <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+order], " ")]++
	}
}
