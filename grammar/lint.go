package grammar

import "github.com/openvoice/nlucore/ast"

// UnreferencedRule names one rule that no sentence, directly or
// transitively through other rules, ever reaches.
type UnreferencedRule struct {
	Intent string
	Rule   string
}

// Lint reports every rule in g that is unreachable from any sentence:
// starting from each intent's sentences, it marks every rule reached
// by walking RuleRefs transitively, then reports whichever rules in
// the rule tables were never marked. Lint runs on a not-yet-expanded
// Grammar, since Expand already inlines every reachable rule and so
// erases the information Lint reports on.
func Lint(g *Grammar) []UnreferencedRule {
	used := map[string]bool{}

	var markBody func(owner *Intent, n ast.Node)
	markBody = func(owner *Intent, n ast.Node) {
		ast.Walk(n, func(node ast.Node) {
			ref, ok := node.(*ast.RuleRef)
			if !ok {
				return
			}
			targetIntent := owner
			ruleName := ref.Name
			if intentName, rule, dotted := splitDotted(ref.Name); dotted {
				in, ok := g.Intents[intentName]
				if !ok {
					return
				}
				targetIntent = in
				ruleName = rule
			}
			key := targetIntent.Name + "." + ruleName
			if used[key] {
				return
			}
			used[key] = true
			if body, ok := targetIntent.Rules[ruleName]; ok {
				markBody(targetIntent, body)
			}
		})
	}

	for _, name := range g.IntentNames() {
		in := g.Intents[name]
		for _, s := range in.Sentences {
			markBody(in, s)
		}
	}

	var out []UnreferencedRule
	for _, name := range g.IntentNames() {
		in := g.Intents[name]
		for _, rname := range in.ruleOrder {
			key := in.Name + "." + rname
			if !used[key] {
				out = append(out, UnreferencedRule{Intent: in.Name, Rule: rname})
			}
		}
	}
	return out
}
