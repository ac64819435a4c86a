package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openvoice/nlucore/match"
	"github.com/openvoice/nlucore/recognize"
)

var (
	recognizeFuzzy     bool
	recognizeStopWords string
)

func init() {
	cmd := &cobra.Command{
		Use:     "recognize <template-file> <utterance>",
		Short:   "Compile a template grammar and recognize one utterance against it",
		Example: `  nlugrammar recognize commands.tmpl "turn on the kitchen light"`,
		Args:    cobra.ExactArgs(2),
		RunE:    runRecognize,
	}
	cmd.Flags().BoolVar(&recognizeFuzzy, "fuzzy", true, "fall back to the fuzzy matcher when the strict matcher finds nothing")
	cmd.Flags().StringVar(&recognizeStopWords, "stop-words", "", "comma-separated list of stop words the strict and fuzzy matchers may skip")
	rootCmd.AddCommand(cmd)
}

func runRecognize(cmd *cobra.Command, args []string) error {
	gr, err := compileFile(args[0])
	if err != nil {
		return err
	}

	var matchOpts []match.Option
	if recognizeStopWords != "" {
		matchOpts = append(matchOpts, match.StopWords(strings.Split(recognizeStopWords, ",")...))
	}

	mode := recognize.StrictOnly
	if recognizeFuzzy {
		mode = recognize.StrictThenFuzzy
	}

	results, err := recognize.Recognize(gr, args[1], recognize.WithMode(mode), recognize.WithMatchOptions(matchOpts...))
	if err != nil {
		return fmt.Errorf("recognize: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	if len(results) == 0 {
		return noCandidatesError{}
	}
	return nil
}
