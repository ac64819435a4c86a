package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openvoice/nlucore/ast"
	"github.com/openvoice/nlucore/grammar"
)

func init() {
	cmd := &cobra.Command{
		Use:     "expand <template-file>",
		Short:   "Expand a template grammar's rule and slot references and print the result",
		Example: `  nlugrammar expand commands.tmpl`,
		Args:    cobra.ExactArgs(1),
		RunE:    runExpand,
	}
	rootCmd.AddCommand(cmd)
}

func runExpand(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return compileStageError{err}
	}
	defer f.Close()

	g, err := grammar.Parse(f, grammar.Path(args[0]))
	if err != nil {
		return compileStageError{err}
	}
	expanded, err := g.Expand(nil)
	if err != nil {
		return compileStageError{err}
	}

	summary := map[string][]string{}
	for _, name := range expanded.IntentNames() {
		in := expanded.Intents[name]
		var sentences []string
		for _, s := range in.Sentences {
			var words []string
			ast.Walk(s, func(n ast.Node) {
				if w, ok := n.(*ast.Word); ok {
					words = append(words, w.String())
				}
			})
			sentences = append(sentences, strings.Join(words, " "))
		}
		summary[name] = sentences
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
