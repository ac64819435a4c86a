package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openvoice/nlucore/grammar"
)

func init() {
	cmd := &cobra.Command{
		Use:     "parse <template-file>",
		Short:   "Parse a template grammar and print its intent/rule structure",
		Example: `  nlugrammar parse commands.tmpl`,
		Args:    cobra.ExactArgs(1),
		RunE:    runParse,
	}
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return compileStageError{err}
	}
	defer f.Close()

	g, err := grammar.Parse(f, grammar.Path(args[0]))
	if err != nil {
		return compileStageError{err}
	}

	summary := map[string]interface{}{}
	for _, name := range g.IntentNames() {
		in := g.Intents[name]
		summary[name] = map[string]interface{}{
			"sentences": len(in.Sentences),
			"rules":     in.RuleNames(),
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
