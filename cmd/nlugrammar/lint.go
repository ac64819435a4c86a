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
		Use:     "lint <template-file>",
		Short:   "Report rules a template grammar defines but never reaches from a sentence",
		Example: `  nlugrammar lint commands.tmpl`,
		Args:    cobra.ExactArgs(1),
		RunE:    runLint,
	}
	rootCmd.AddCommand(cmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return compileStageError{err}
	}
	defer f.Close()

	g, err := grammar.Parse(f, grammar.Path(args[0]))
	if err != nil {
		return compileStageError{err}
	}

	issues := grammar.Lint(g)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(issues); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
