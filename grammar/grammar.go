// Package grammar parses the JSGF-derived template format into a
// Grammar (an Intent → sentences/rules mapping), and expands rule and
// slot references into self-contained sentence ASTs.
//
// Parsing is deliberately line-oriented, classifying each logical line
// with a small set of anchored regular expressions instead
// of a persistent cross-line token stream: a section header, a rule
// definition, or a sentence are each confined to one logical line (after
// "\" continuation joining), so there is nothing for a shared token
// stream to buy here that a per-line classify-then-tokenize split
// doesn't already give more simply.
package grammar

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/openvoice/nlucore/ast"
	"github.com/openvoice/nlucore/errs"
)

// Intent is one named bucket of sentence templates and the rules they
// reference.
type Intent struct {
	Name      string
	Sentences []ast.Node
	Rules     map[string]ast.Node
	ruleOrder []string
}

// RuleNames returns the intent's rule names in declaration order.
func (in *Intent) RuleNames() []string {
	out := make([]string, len(in.ruleOrder))
	copy(out, in.ruleOrder)
	return out
}

// Grammar is the parsed, not-yet-expanded form of a template source:
// Intent → (sentences, rules).
type Grammar struct {
	Intents map[string]*Intent
	order   []string
}

// IntentNames returns the grammar's intent names in declaration order.
func (g *Grammar) IntentNames() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

func newGrammar() *Grammar {
	return &Grammar{Intents: map[string]*Intent{}}
}

func (g *Grammar) intent(name string) *Intent {
	if in, ok := g.Intents[name]; ok {
		return in
	}
	in := &Intent{Name: name, Rules: map[string]ast.Node{}}
	g.Intents[name] = in
	g.order = append(g.order, name)
	return in
}

// ParseOption configures Parse, following the package's
// functional-options convention.
type ParseOption func(*parseConfig)

type parseConfig struct {
	path      string
	filter    map[string]bool
	transform func(string) string
}

// Path attaches a source path to any ParseError produced, for callers
// that parse from a named file.
func Path(p string) ParseOption {
	return func(c *parseConfig) { c.path = p }
}

// IntentFilter restricts parsing to the named intents; sections outside
// the filter are skipped entirely, including their rule tables, so a
// cross-intent rule reference into a filtered-out intent fails at
// Expand time with an ExpansionError.
func IntentFilter(names ...string) ParseOption {
	return func(c *parseConfig) {
		c.filter = make(map[string]bool, len(names))
		for _, n := range names {
			c.filter[n] = true
		}
	}
}

// SentenceTransform applies fn to each sentence line's raw text before
// it is tokenized, e.g. to lowercase training sentences. It is not
// applied to rule bodies, which are grammar structure rather than
// recognizable input.
func SentenceTransform(fn func(string) string) ParseOption {
	return func(c *parseConfig) { c.transform = fn }
}

var (
	sectionHeaderRe = regexp.MustCompile(`^\[([A-Za-z_][A-Za-z0-9_]*)\]$`)
	ruleDefRe       = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.+)$`)
)

// Parse reads a template source stream and produces a Grammar. Lines
// beginning with "[name]" open an intent section; "name = body" lines
// declare a rule within the current section; every other non-empty,
// non-comment line is a sentence.
func Parse(r io.Reader, opts ...ParseOption) (*Grammar, error) {
	cfg := &parseConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(joinContinuations(string(raw)), "\n")

	g := newGrammar()
	var cur *Intent
	var inAnySection bool
	var perrs errs.ParseErrors

	addErr := func(row int, col int, cause error) {
		perrs = append(perrs, &errs.ParseError{Path: cfg.path, Row: row, Col: col, Cause: cause})
	}

	for i, raw := range lines {
		row := i + 1
		line := stripComment(raw)
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := sectionHeaderRe.FindStringSubmatch(trimmed); m != nil {
			name := m[1]
			inAnySection = true
			if cfg.filter == nil || cfg.filter[name] {
				cur = g.intent(name)
			} else {
				cur = nil
			}
			continue
		}

		if cur == nil {
			if !inAnySection {
				addErr(row, 1, fmt.Errorf("sentence or rule definition before any [Intent] section"))
			}
			continue
		}

		if m := ruleDefRe.FindStringSubmatch(trimmed); m != nil {
			name, body := m[1], m[2]
			if _, exists := cur.Rules[name]; exists {
				addErr(row, 1, fmt.Errorf("duplicate rule %q in intent %q", name, cur.Name))
				continue
			}
			node, err := parseBody(body, row, cfg.path)
			if err != nil {
				perrs = append(perrs, toParseErrors(err)...)
				continue
			}
			cur.Rules[name] = node
			cur.ruleOrder = append(cur.ruleOrder, name)
			continue
		}

		body := trimmed
		if cfg.transform != nil {
			body = cfg.transform(body)
		}
		node, err := parseBody(body, row, cfg.path)
		if err != nil {
			perrs = append(perrs, toParseErrors(err)...)
			continue
		}
		cur.Sentences = append(cur.Sentences, node)
	}

	if len(perrs) > 0 {
		return nil, perrs
	}
	return g, nil
}

func toParseErrors(err error) errs.ParseErrors {
	if pe, ok := err.(*errs.ParseError); ok {
		return errs.ParseErrors{pe}
	}
	if pes, ok := err.(errs.ParseErrors); ok {
		return pes
	}
	return errs.ParseErrors{&errs.ParseError{Cause: err}}
}

// joinContinuations splices a physical line ending in "\" onto the next
// physical line, the same rule the shared lexer applies to whole-file
// input (lex.JoinContinuations); duplicated here at the string level so
// line numbers reported in errors stay 1:1 with the source the caller
// wrote, rather than with a continuation-collapsed stream the caller
// never sees: each physical line absorbed into a join is replaced by an
// empty line after the joined one.
func joinContinuations(src string) string {
	lines := strings.Split(src, "\n")
	var out []string
	buf := ""
	joined := 0
	for _, line := range lines {
		t := strings.TrimRight(line, "\r")
		if strings.HasSuffix(t, `\`) {
			buf += strings.TrimSuffix(t, `\`)
			joined++
			continue
		}
		out = append(out, buf+t)
		for ; joined > 0; joined-- {
			out = append(out, "")
		}
		buf = ""
	}
	if buf != "" {
		out = append(out, buf)
	}
	return strings.Join(out, "\n")
}

// stripComment truncates line at the first "#" or ";" that begins at
// column 0 or is preceded by whitespace.
func stripComment(line string) string {
	prevSpace := true
	for i, r := range line {
		if (r == '#' || r == ';') && prevSpace {
			return line[:i]
		}
		prevSpace = r == ' ' || r == '\t'
	}
	return line
}
