package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// compileStageError marks a failure in parse/expand/compile (exit code
// 1, "parse error").
type compileStageError struct{ err error }

func (e compileStageError) Error() string { return e.err.Error() }

// noCandidatesError marks a recognize call that returned zero
// candidates (exit code 2); this is not a library-level error (an
// empty result is a valid recognition outcome) but the CLI surfaces it
// as a distinct exit code for scripting.
type noCandidatesError struct{}

func (noCandidatesError) Error() string { return "no recognition candidates" }

var rootCmd = &cobra.Command{
	Use:   "nlugrammar",
	Short: "Parse, compile, and recognize against JSGF-derived voice command templates",
	Long: `nlugrammar provides the command-line surface over the NLU core:
- Parses a template grammar into intents and rules.
- Expands rule and slot references into self-contained sentences.
- Compiles a grammar into a labeled recognition graph.
- Recognizes utterances against a compiled graph.
- Exports n-gram counts and an OpenFST text transducer from a graph.
- Lints a template grammar for rules no sentence ever reaches.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command, returning any error for main to map
// to an exit code.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}
