package grammar

import (
	"fmt"
	"strings"

	"github.com/openvoice/nlucore/ast"
	"github.com/openvoice/nlucore/errs"
)

// ExpandOption configures Expand.
type ExpandOption func(*expandConfig)

type expandConfig struct {
	maxSlotDepth int
	strictSlots  bool
}

// MaxSlotDepth overrides the default maximum slot-expansion recursion
// depth (8), after which Expand reports a cycle error rather than
// recursing forever on a slot replacement that itself references the
// same slot.
func MaxSlotDepth(n int) ExpandOption {
	return func(c *expandConfig) { c.maxSlotDepth = n }
}

// StrictSlots makes Expand fail with an ExpansionError on any SlotRef
// whose name has no entry in the replacements map, instead of the
// default lenient behavior of replacing it with an empty alternative
// that matches nothing.
func StrictSlots() ExpandOption {
	return func(c *expandConfig) { c.strictSlots = true }
}

// Expand resolves every RuleRef and SlotRef in g's sentences, returning
// a new Grammar whose sentence ASTs are self-contained:
//  1. Check each intent's rule-reference graph for cycles, failing on
//     one.
//  2. Substitute rule bodies in place; a dotted "Intent.rule" reference
//     resolves against the other intent's rule table.
//  3. Replace each SlotRef with an ALTERNATIVE node over the caller's
//     replacements for that slot name; a missing slot becomes an empty
//     alternative that matches nothing, unless StrictSlots is set, in
//     which case it is an ExpansionError.
func (g *Grammar) Expand(replacements map[string][]ast.Node, opts ...ExpandOption) (*Grammar, error) {
	cfg := &expandConfig{maxSlotDepth: 8}
	for _, opt := range opts {
		opt(cfg)
	}

	for name, in := range g.Intents {
		if err := topoCheckRules(name, in); err != nil {
			return nil, err
		}
	}

	out := newGrammar()
	out.order = append(out.order, g.order...)

	for _, name := range g.order {
		in := g.Intents[name]
		nout := &Intent{Name: name, Rules: map[string]ast.Node{}}
		nout.ruleOrder = append(nout.ruleOrder, in.ruleOrder...)
		out.Intents[name] = nout

		for rname, body := range in.Rules {
			resolved, err := resolveRefs(g, in, body, replacements, cfg.maxSlotDepth, cfg.strictSlots, map[string]bool{in.Name + "." + rname: true})
			if err != nil {
				return nil, err
			}
			nout.Rules[rname] = resolved
		}

		for _, s := range in.Sentences {
			resolved, err := resolveRefs(g, in, s, replacements, cfg.maxSlotDepth, cfg.strictSlots, map[string]bool{})
			if err != nil {
				return nil, err
			}
			nout.Sentences = append(nout.Sentences, resolved)
		}
	}

	return out, nil
}

// topoCheckRules verifies the rule-reference graph within one intent is
// acyclic, using the same mark-array DFS (white/gray/black coloring)
// shape as a symbol-resolution pass would for detecting unused and
// circularly-defined symbols, but used here purely as a cycle check:
// expansion itself does the actual substitution via resolveRefs.
func topoCheckRules(intentName string, in *Intent) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(in.Rules))

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return &errs.ExpansionError{Rule: name, Intent: intentName, Reason: "cyclic rule reference"}
		}
		body, ok := in.Rules[name]
		if !ok {
			return nil // cross-intent or undefined; checked during resolution
		}
		color[name] = gray
		var innerErr error
		ast.Walk(body, func(n ast.Node) {
			if innerErr != nil {
				return
			}
			ref, ok := n.(*ast.RuleRef)
			if !ok {
				return
			}
			target := ref.Name
			if owner, rule, ok := splitDotted(target); ok && owner != intentName {
				return // cross-intent refs can't cycle back here
			} else if ok {
				target = rule
			}
			innerErr = visit(target)
		})
		if innerErr != nil {
			return innerErr
		}
		color[name] = black
		return nil
	}

	for _, name := range in.ruleOrder {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

func splitDotted(name string) (owner, rule string, dotted bool) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:], true
		}
	}
	return "", name, false
}

// resolveRefs returns a copy of n with every RuleRef and SlotRef
// replaced. seen tracks "Intent.rule" keys currently being expanded on
// the active path, catching cross-intent cycles that topoCheckRules
// (which only checks within one intent) cannot.
func resolveRefs(g *Grammar, owner *Intent, n ast.Node, replacements map[string][]ast.Node, maxDepth int, strictSlots bool, seen map[string]bool) (ast.Node, error) {
	slotDepth := 0
	for k := range seen {
		if strings.HasPrefix(k, "$") {
			slotDepth++
		}
	}
	if slotDepth > maxDepth {
		return nil, &errs.ExpansionError{Intent: owner.Name, Reason: "slot expansion exceeded max depth"}
	}

	switch v := n.(type) {
	case *ast.Word:
		cp := *v
		return &cp, nil

	case *ast.Sequence:
		items := make([]ast.Node, len(v.Items))
		for i, item := range v.Items {
			r, err := resolveRefs(g, owner, item, replacements, maxDepth, strictSlots, seen)
			if err != nil {
				return nil, err
			}
			items[i] = r
		}
		cp := *v
		cp.Items = items
		return &cp, nil

	case *ast.Tag:
		inner, err := resolveRefs(g, owner, v.Inner, replacements, maxDepth, strictSlots, seen)
		if err != nil {
			return nil, err
		}
		cp := *v
		cp.Inner = inner
		return &cp, nil

	case *ast.RuleRef:
		targetIntent := owner
		ruleName := v.Name
		if intentName, rule, dotted := splitDotted(v.Name); dotted {
			in, ok := g.Intents[intentName]
			if !ok {
				return nil, &errs.ExpansionError{Rule: v.Name, Intent: owner.Name, Reason: fmt.Sprintf("unknown intent %q", intentName)}
			}
			targetIntent = in
			ruleName = rule
		}
		body, ok := targetIntent.Rules[ruleName]
		if !ok {
			return nil, &errs.ExpansionError{Rule: v.Name, Intent: owner.Name, Reason: "undefined rule"}
		}
		key := targetIntent.Name + "." + ruleName
		if seen[key] {
			return nil, &errs.ExpansionError{Rule: v.Name, Intent: owner.Name, Reason: "cyclic rule reference"}
		}
		next := make(map[string]bool, len(seen)+1)
		for k := range seen {
			next[k] = true
		}
		next[key] = true
		return resolveRefs(g, targetIntent, body, replacements, maxDepth, strictSlots, next)

	case *ast.SlotRef:
		branches, ok := replacements[v.Name]
		if !ok || len(branches) == 0 {
			if strictSlots && !ok {
				return nil, &errs.ExpansionError{Rule: v.Name, Intent: owner.Name, Reason: "missing slot replacement"}
			}
			return &ast.Sequence{Mode: ast.ALTERNATIVE, Items: nil}, nil
		}
		items := make([]ast.Node, len(branches))
		weights := make([]float64, len(branches))
		key := "$" + v.Name
		if seen[key] {
			return nil, &errs.ExpansionError{Rule: v.Name, Intent: owner.Name, Reason: "cyclic slot reference"}
		}
		next := make(map[string]bool, len(seen)+1)
		for k := range seen {
			next[k] = true
		}
		next[key] = true
		for i, b := range branches {
			r, err := resolveRefs(g, owner, b, replacements, maxDepth, strictSlots, next)
			if err != nil {
				return nil, err
			}
			items[i] = r
			weights[i] = 1.0
		}
		return &ast.Sequence{Mode: ast.ALTERNATIVE, Items: items, Weights: ast.NormalizeWeights(weights)}, nil

	default:
		return nil, fmt.Errorf("resolveRefs: unknown node type %T", n)
	}
}
