package match

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emirpasic/gods/trees/binaryheap"
	"github.com/emirpasic/gods/utils"

	"github.com/openvoice/nlucore/graph"
	"github.com/openvoice/nlucore/lex"
)

// fuzzyItem is one entry in the fuzzy matcher's priority queue.
type fuzzyItem struct {
	state pathState
	pos   int
	cost  float64
	order int
}

// fuzzyComparator orders the priority queue by (cost ascending, path
// probability descending, insertion order ascending) for stable
// tie-breaking. gods' binaryheap is a min-heap, so "smaller" here means
// "searched first".
func fuzzyComparator(a, b interface{}) int {
	ia, ib := a.(fuzzyItem), b.(fuzzyItem)
	if c := utils.Float64Comparator(ia.cost, ib.cost); c != 0 {
		return c
	}
	if c := utils.Float64Comparator(ib.state.prob, ia.state.prob); c != 0 {
		return c
	}
	return utils.IntComparator(ia.order, ib.order)
}

// Fuzzy matches words against g using best-first search, tolerating
// stop-word skips and missing graph-required tokens under the
// configured cost schedule (defaults C_stop=1, C_missing=10,
// C_weight=0.5). Recognitions are sorted by (cost ascending, confidence
// descending); confidence is exp(-cost) normalized by the best
// candidate's value.
func Fuzzy(g *graph.Graph, words []lex.Term, opts ...Option) ([]Candidate, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	tokens := tokenTexts(words)

	deadline := time.Time{}
	if cfg.deadline > 0 {
		deadline = time.Now().Add(cfg.deadline)
	}

	pq := binaryheap.NewWith(fuzzyComparator)
	order := 0
	push := func(it fuzzyItem) {
		it.order = order
		order++
		pq.Push(it)
	}

	push(fuzzyItem{state: pathState{node: g.StartID, prob: 1}, pos: 0, cost: 0})

	var candidates []Candidate
	seenStates := map[string]bool{}

	for {
		v, ok := pq.Pop()
		if !ok {
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
		item := v.(fuzzyItem)

		// The heap pops in ascending cost order, so the first pop of a
		// (node, position, intent) key is its minimum-cost expansion;
		// later pops of the same key can only be worse and are skipped.
		popKey := fuzzyKey(item.state.node, item.pos, item.state.intent)
		if seenStates[popKey] {
			continue
		}
		seenStates[popKey] = true

		epsilonExpand(g, item.state.node, item.state.trace, item.state.prob, item.state.intent, map[int]bool{}, func(ps pathState) {
			ps.skips = item.state.skips
			if item.pos == len(tokens) {
				if isAccept(g, ps.node) && cfg.allowsIntent(ps.intent) {
					// The weight term depends on the final path
					// probability, not on anything accumulated along the
					// way, so it is added exactly once here rather than
					// at every consuming edge.
					candidates = append(candidates, Candidate{
						Intent:   ps.intent,
						Trace:    ps.trace,
						PathProb: ps.prob,
						Cost:     item.cost + weightCost(ps.prob, cfg.cWeight),
						Order:    item.order,
					})
				}
				return
			}

			token := tokens[item.pos]
			for _, e := range g.Outgoing(ps.node) {
				if e.ILabel == graph.Epsilon {
					continue
				}
				var matchCost float64
				nextPos := item.pos
				if strings.EqualFold(e.ILabel, token) {
					nextPos = item.pos + 1
				} else {
					// The graph required e.ILabel but the utterance
					// didn't supply it at this position; still take
					// the edge, charged as a missing token, rather
					// than dropping the branch outright.
					matchCost = cfg.cMissing
				}
				newState := pathState{
					node:   e.To,
					trace:  appendEdge(ps.trace, e),
					prob:   ps.prob * edgeWeight(e),
					intent: ps.intent,
					skips:  ps.skips,
				}
				key := fuzzyKey(newState.node, nextPos, ps.intent)
				if seenStates[key] {
					continue
				}
				// Only the stop-skip and missing-token terms accumulate
				// incrementally; the weight term is added once, from
				// the final path probability, at acceptance (the
				// item.pos == len(tokens) case above).
				newCost := item.cost + matchCost
				push(fuzzyItem{state: newState, pos: nextPos, cost: newCost})
			}

			if cfg.isStopWord(token) {
				skipState := pathState{
					node:   ps.node,
					trace:  ps.trace,
					prob:   ps.prob,
					intent: ps.intent,
					skips:  ps.skips + 1,
				}
				key := fuzzyKey(skipState.node, item.pos+1, ps.intent)
				if !seenStates[key] {
					push(fuzzyItem{state: skipState, pos: item.pos + 1, cost: item.cost + cfg.cStop})
				}
			}
		})

		if cfg.maxResults > 0 && len(candidates) >= cfg.maxResults {
			break
		}
	}

	candidates = dedupeCandidates(candidates)
	rankCandidates(candidates)
	return bestPerIntent(candidates), nil
}

// bestPerIntent keeps only each intent's lowest-cost candidate from an
// already-ranked list. Worse-cost paths to the same intent (e.g. a
// variant charging an optional word as missing when the cheaper path
// simply never required it) describe the same user action and would
// only duplicate it in the result set.
func bestPerIntent(cands []Candidate) []Candidate {
	seen := make(map[string]bool, len(cands))
	out := cands[:0]
	for _, c := range cands {
		if seen[c.Intent] {
			continue
		}
		seen[c.Intent] = true
		out = append(out, c)
	}
	return out
}

func fuzzyKey(node, pos int, intent string) string {
	return intent + "\x1f" + strconv.Itoa(node) + "\x1f" + strconv.Itoa(pos)
}

func weightCost(pathProb, cWeight float64) float64 {
	return (1 - pathProb) * cWeight
}

// rankCandidates sorts by (cost ascending, confidence descending) and
// fills in Confidence as exp(-cost) normalized against the best
// candidate.
func rankCandidates(cands []Candidate) {
	for i := range cands {
		cands[i].Confidence = math.Exp(-cands[i].Cost)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Cost != b.Cost {
			return a.Cost < b.Cost
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Order < b.Order
	})
	if len(cands) == 0 {
		return
	}
	best := cands[0].Confidence
	if best <= 0 {
		return
	}
	for i := range cands {
		cands[i].Confidence /= best
	}
}
