package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openvoice/nlucore/ngram"
)

var (
	ngramOrder    int
	ngramPadStart bool
	ngramPadEnd   bool
)

func init() {
	cmd := &cobra.Command{
		Use:     "ngram <template-file>",
		Short:   "Print n-gram counts over every sentence a compiled graph accepts",
		Example: `  nlugrammar ngram commands.tmpl --order 2`,
		Args:    cobra.ExactArgs(1),
		RunE:    runNgram,
	}
	cmd.Flags().IntVar(&ngramOrder, "order", 2, "n-gram order")
	cmd.Flags().BoolVar(&ngramPadStart, "pad-start", true, "pad each sentence with leading <s> tokens")
	cmd.Flags().BoolVar(&ngramPadEnd, "pad-end", true, "pad each sentence with a trailing </s> token")
	rootCmd.AddCommand(cmd)
}

func runNgram(cmd *cobra.Command, args []string) error {
	gr, err := compileFile(args[0])
	if err != nil {
		return err
	}

	counts, err := ngram.Counts(gr, ngramOrder, ngramPadStart, ngramPadEnd)
	if err != nil {
		return fmt.Errorf("ngram: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(counts)
}
