// Package recognize builds Recognition records from a matcher's
// accepted candidates.
package recognize

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/openvoice/nlucore/convert"
	"github.com/openvoice/nlucore/errs"
	"github.com/openvoice/nlucore/graph"
	"github.com/openvoice/nlucore/match"
)

// Entity is one recognized tagged span.
type Entity struct {
	Name      string   `json:"name"`
	Value     string   `json:"value"`
	RawValue  string   `json:"raw_value"`
	Start     int      `json:"start"`
	End       int      `json:"end"`
	RawStart  int      `json:"raw_start"`
	RawEnd    int      `json:"raw_end"`
	Tokens    []string `json:"tokens"`
	RawTokens []string `json:"raw_tokens"`
}

// IntentResult names the recognized intent and the matcher's
// confidence in it.
type IntentResult struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Recognition is one ranked match of an utterance against a compiled
// graph.
type Recognition struct {
	Intent           IntentResult `json:"intent"`
	Text             string       `json:"text"`
	RawText          string       `json:"raw_text"`
	Tokens           []string     `json:"tokens"`
	RawTokens        []string     `json:"raw_tokens"`
	Entities         []Entity     `json:"entities"`
	RecognizeSeconds float64      `json:"recognize_seconds"`
}

// Mode selects which matcher(s) Recognize runs.
type Mode int

const (
	// StrictThenFuzzy runs the strict matcher first and only falls
	// back to the fuzzy matcher if it finds nothing; this is the
	// default.
	StrictThenFuzzy Mode = iota
	StrictOnly
	FuzzyOnly
)

// Option configures Recognize.
type Option func(*config)

type config struct {
	mode       Mode
	matchOpts  []match.Option
	converters *convert.Table
}

// WithMode selects the matching strategy.
func WithMode(m Mode) Option {
	return func(c *config) { c.mode = m }
}

// WithMatchOptions passes options through to the underlying
// match.Strict/match.Fuzzy calls (stop words, intent filter, deadline,
// max candidates, cost schedule).
func WithMatchOptions(opts ...match.Option) Option {
	return func(c *config) { c.matchOpts = opts }
}

// WithConverters overrides the default converter table.
func WithConverters(t *convert.Table) Option {
	return func(c *config) { c.converters = t }
}

// Recognize tokenizes utterance, matches it against g, and builds a
// Recognition for every accepted candidate.
func Recognize(g *graph.Graph, utterance string, opts ...Option) ([]*Recognition, error) {
	cfg := &config{converters: convert.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	start := time.Now()

	words, err := match.Tokens(utterance)
	if err != nil {
		return nil, err
	}

	var candidates []match.Candidate
	switch cfg.mode {
	case StrictOnly:
		candidates, err = match.Strict(g, words, cfg.matchOpts...)
	case FuzzyOnly:
		candidates, err = match.Fuzzy(g, words, cfg.matchOpts...)
	default:
		candidates, err = match.Strict(g, words, cfg.matchOpts...)
		if err == nil && len(candidates) == 0 {
			candidates, err = match.Fuzzy(g, words, cfg.matchOpts...)
		}
	}
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start).Seconds()

	out := make([]*Recognition, 0, len(candidates))
	for _, c := range candidates {
		r, err := build(c, cfg.converters)
		if err != nil {
			// A RecognitionError (unknown converter, malformed
			// converter output) aborts only the candidate that
			// triggered it; the rest of the result set still returns.
			continue
		}
		r.RecognizeSeconds = elapsed
		out = append(out, r)
	}
	return out, nil
}

type openEntity struct {
	name          string
	textStart     int // -1 until the entity's first text token is appended
	rawStart      int // -1 until the entity's first raw token is appended
	tokenStart    int
	rawTokenStart int
	converters    []string
}

// build walks c's trace to materialize text, raw_text, tokens,
// raw_tokens, and entity spans. Start offsets are captured lazily, on
// the first token appended after a tag opens, since the separating
// space before that token is written at append time, not at the moment
// the tag boundary edge is traversed.
func build(c match.Candidate, table *convert.Table) (*Recognition, error) {
	var textBuf, rawBuf strings.Builder
	var textRunes, rawRunes int // rune (code-point) lengths, tracked alongside the byte buffers
	var tokens, rawTokens []string
	var stack []*openEntity
	var entities []Entity

	for _, e := range c.Trace {
		switch {
		case e.ILabel == graph.Epsilon && strings.HasPrefix(e.OLabel, "__begin__"):
			stack = append(stack, &openEntity{
				name:          strings.TrimPrefix(e.OLabel, "__begin__"),
				textStart:     -1,
				rawStart:      -1,
				tokenStart:    len(tokens),
				rawTokenStart: len(rawTokens),
				converters:    e.Converters,
			})

		case e.ILabel == graph.Epsilon && strings.HasPrefix(e.OLabel, "__end__"):
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.textStart == -1 {
				top.textStart = textRunes
			}
			if top.rawStart == -1 {
				top.rawStart = rawRunes
			}

			entTokens := append([]string{}, tokens[top.tokenStart:]...)
			entRawTokens := append([]string{}, rawTokens[top.rawTokenStart:]...)

			convTokens, err := table.Apply(top.converters, entTokens)
			if err != nil {
				return nil, &errs.RecognitionError{Entity: top.name, Reason: err.Error()}
			}

			entities = append(entities, Entity{
				Name:      top.name,
				Value:     strings.Join(convTokens, " "),
				RawValue:  strings.Join(entRawTokens, " "),
				Start:     top.textStart,
				End:       textRunes,
				RawStart:  top.rawStart,
				RawEnd:    rawRunes,
				Tokens:    convTokens,
				RawTokens: entRawTokens,
			})

		case e.ILabel == graph.Epsilon:
			continue

		default:
			rawPos := rawRunes
			if rawBuf.Len() > 0 {
				rawPos++
				rawBuf.WriteByte(' ')
				rawRunes++
			}
			rawBuf.WriteString(e.ILabel)
			rawRunes += utf8.RuneCountInString(e.ILabel)
			rawTokens = append(rawTokens, e.ILabel)
			for _, oe := range stack {
				if oe.rawStart == -1 {
					oe.rawStart = rawPos
				}
			}

			if e.OLabel != graph.Epsilon {
				textPos := textRunes
				if textBuf.Len() > 0 {
					textPos++
					textBuf.WriteByte(' ')
					textRunes++
				}
				textBuf.WriteString(e.OLabel)
				textRunes += utf8.RuneCountInString(e.OLabel)
				tokens = append(tokens, e.OLabel)
				for _, oe := range stack {
					if oe.textStart == -1 {
						oe.textStart = textPos
					}
				}
			}
		}
	}

	return &Recognition{
		Intent:    IntentResult{Name: c.Intent, Confidence: confidenceOf(c)},
		Text:      textBuf.String(),
		RawText:   rawBuf.String(),
		Tokens:    tokens,
		RawTokens: rawTokens,
		Entities:  entities,
	}, nil
}

// confidenceOf returns the candidate's confidence: Strict sets this to
// 1 for every exact match, and Fuzzy sets it to exp(-cost) normalized
// against the best candidate in the result set.
func confidenceOf(c match.Candidate) float64 {
	return c.Confidence
}
