package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openvoice/nlucore/grammar"
	"github.com/openvoice/nlucore/graph"
)

func init() {
	cmd := &cobra.Command{
		Use:     "compile <template-file>",
		Short:   "Parse, expand, and compile a template grammar into a recognition graph",
		Example: `  nlugrammar compile commands.tmpl`,
		Args:    cobra.ExactArgs(1),
		RunE:    runCompile,
	}
	rootCmd.AddCommand(cmd)
}

// compileFile runs the parse -> expand -> compile pipeline shared by
// the compile, recognize, ngram, and fst subcommands.
func compileFile(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, compileStageError{err}
	}
	defer f.Close()

	gram, err := grammar.Parse(f, grammar.Path(path))
	if err != nil {
		return nil, compileStageError{err}
	}

	expanded, err := gram.Expand(nil)
	if err != nil {
		return nil, compileStageError{err}
	}

	gr, err := graph.Compile(expanded)
	if err != nil {
		return nil, compileStageError{err}
	}
	return gr, nil
}

func runCompile(cmd *cobra.Command, args []string) error {
	gr, err := compileFile(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "nodes=%d edges=%d\n", len(gr.Nodes), len(gr.Edges))
	return nil
}
