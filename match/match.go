// Package match implements the two recognizers: a strict breadth-first
// matcher requiring an exact (modulo stop words) token sequence, and a
// fuzzy best-first matcher that additionally tolerates missing tokens
// under a cost schedule.
package match

import (
	"strings"
	"time"

	"github.com/openvoice/nlucore/graph"
	"github.com/openvoice/nlucore/lex"
)

// Candidate is one accepted path through the graph, carrying enough of
// the traversal to let package recognize materialize text, entities,
// and converters without re-walking the graph.
type Candidate struct {
	Intent     string
	Trace      []graph.Edge
	PathProb   float64 // product of traversed edge weights
	Cost       float64 // 0 for strict matches
	Confidence float64 // 1 for strict matches; exp(-cost) normalized to the best candidate for fuzzy
	Order      int     // insertion order, for deterministic tie-breaking
}

// Option configures both Strict and Fuzzy.
type Option func(*config)

type config struct {
	stopWords    map[string]bool
	intentFilter map[string]bool
	deadline     time.Duration
	maxResults   int
	cStop        float64
	cMissing     float64
	cWeight      float64
}

func newConfig() *config {
	return &config{
		cStop:    1,
		cMissing: 10,
		cWeight:  0.5,
	}
}

// StopWords marks tokens that may be skipped without matching an edge.
func StopWords(words ...string) Option {
	return func(c *config) {
		c.stopWords = make(map[string]bool, len(words))
		for _, w := range words {
			c.stopWords[strings.ToLower(w)] = true
		}
	}
}

// IntentFilter restricts matching to the named intents.
func IntentFilter(names ...string) Option {
	return func(c *config) {
		c.intentFilter = make(map[string]bool, len(names))
		for _, n := range names {
			c.intentFilter[n] = true
		}
	}
}

// Deadline bounds wall-clock search time; the matcher returns its
// best-so-far candidates once exceeded. Zero (the default) means
// unbounded. Ignored by Strict.
func Deadline(d time.Duration) Option {
	return func(c *config) { c.deadline = d }
}

// MaxCandidates bounds how many accepted candidates are returned. Zero
// (the default) means unbounded.
func MaxCandidates(n int) Option {
	return func(c *config) { c.maxResults = n }
}

// CostSchedule overrides the fuzzy matcher's default cost weights
// (C_stop=1, C_missing=10, C_weight=0.5). Ignored by Strict.
func CostSchedule(cStop, cMissing, cWeight float64) Option {
	return func(c *config) {
		c.cStop = cStop
		c.cMissing = cMissing
		c.cWeight = cWeight
	}
}

func (c *config) allowsIntent(name string) bool {
	return c.intentFilter == nil || c.intentFilter[name]
}

func (c *config) isStopWord(token string) bool {
	return c.stopWords != nil && c.stopWords[strings.ToLower(token)]
}

// Tokens converts an utterance to match's token representation via the
// shared lexer, so the strict/fuzzy matchers and the recognition
// builder agree on word boundaries and rune offsets.
func Tokens(utterance string) ([]lex.Term, error) {
	return lex.TokenizeWords(utterance)
}

func tokenTexts(words []lex.Term) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Text
	}
	return out
}

// pathState is one frontier item: a graph position, the trace that
// reached it, the accumulated path probability, and the intent chosen
// by the Start->IntentStart selection edge crossed on the way.
type pathState struct {
	node   int
	trace  []graph.Edge
	prob   float64
	intent string
	skips  int
}

// epsilonExpand calls yield once for from itself and once for every
// node reachable from it by following only ε-input edges (ILabel ==
// graph.Epsilon), accumulating the traversed edges into trace and the
// intent name once a Start->IntentStart selection edge is crossed.
// visited guards against infinite recursion through an ε-cycle within
// this single DFS branch; it is unmarked on return so a diamond-shaped
// ε structure can still be revisited along a sibling branch.
func epsilonExpand(g *graph.Graph, from int, trace []graph.Edge, prob float64, intent string, visited map[int]bool, yield func(pathState)) {
	yield(pathState{node: from, trace: trace, prob: prob, intent: intent})
	if visited[from] {
		return
	}
	visited[from] = true
	defer delete(visited, from)

	for _, e := range g.Outgoing(from) {
		if e.ILabel != graph.Epsilon {
			continue
		}
		nextIntent := intent
		nextTrace := trace
		if g.Nodes[e.From].Kind == graph.Start {
			nextIntent = e.OLabel
		} else {
			nextTrace = appendEdge(trace, e)
		}
		epsilonExpand(g, e.To, nextTrace, prob*edgeWeight(e), nextIntent, visited, yield)
	}
}

func edgeWeight(e graph.Edge) float64 {
	if e.Weight <= 0 {
		return 1
	}
	return e.Weight
}

func appendEdge(trace []graph.Edge, e graph.Edge) []graph.Edge {
	out := make([]graph.Edge, len(trace)+1)
	copy(out, trace)
	out[len(trace)] = e
	return out
}

func isAccept(g *graph.Graph, node int) bool {
	return g.Nodes[node].Kind == graph.EndOfSentence
}

// dedupeCandidates drops candidates whose (intent, trace olabel/ilabel
// sequence) exactly repeats an earlier one.
func dedupeCandidates(cands []Candidate) []Candidate {
	seen := make(map[string]bool, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		var b strings.Builder
		b.WriteString(c.Intent)
		for _, e := range c.Trace {
			b.WriteByte('\x1f')
			b.WriteString(e.ILabel)
			b.WriteByte('\x1e')
			b.WriteString(e.OLabel)
		}
		key := b.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
