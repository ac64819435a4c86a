package match

import (
	"strings"

	"github.com/openvoice/nlucore/graph"
	"github.com/openvoice/nlucore/lex"
)

// Strict matches words against g using exact BFS: a frontier of
// (node, position) items advances only along edges whose ilabel equals
// the current token, with stop words (if configured) skippable without
// consuming an edge. It returns every accepting path, de-duplicated.
func Strict(g *graph.Graph, words []lex.Term, opts ...Option) ([]Candidate, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	tokens := tokenTexts(words)

	frontier := []pathState{{node: g.StartID, prob: 1}}
	var candidates []Candidate
	order := 0

	for pos := 0; pos <= len(tokens); pos++ {
		var closed []pathState
		for _, s := range frontier {
			epsilonExpand(g, s.node, s.trace, s.prob, s.intent, map[int]bool{}, func(ps pathState) {
				ps.skips = s.skips
				closed = append(closed, ps)
			})
		}

		if pos == len(tokens) {
			for _, s := range closed {
				if !isAccept(g, s.node) {
					continue
				}
				if !cfg.allowsIntent(s.intent) {
					continue
				}
				candidates = append(candidates, Candidate{
					Intent:     s.intent,
					Trace:      s.trace,
					PathProb:   s.prob,
					Confidence: 1, // an exact strict match always carries full confidence
					Order:      order,
				})
				order++
			}
			break
		}

		token := tokens[pos]
		var next []pathState
		for _, s := range closed {
			for _, e := range g.Outgoing(s.node) {
				if e.ILabel == graph.Epsilon {
					continue
				}
				if !strings.EqualFold(e.ILabel, token) {
					continue
				}
				ns := pathState{
					node:   e.To,
					trace:  appendEdge(s.trace, e),
					prob:   s.prob * edgeWeight(e),
					intent: s.intent,
					skips:  s.skips,
				}
				next = append(next, ns)
			}
			if cfg.isStopWord(token) {
				next = append(next, pathState{
					node:   s.node,
					trace:  s.trace,
					prob:   s.prob,
					intent: s.intent,
					skips:  s.skips + 1,
				})
			}
		}

		if len(next) == 0 {
			break
		}
		frontier = next
	}

	candidates = dedupeCandidates(candidates)
	if cfg.maxResults > 0 && len(candidates) > cfg.maxResults {
		candidates = candidates[:cfg.maxResults]
	}
	return candidates, nil
}
