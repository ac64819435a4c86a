package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openvoice/nlucore/fst"
)

var (
	fstISymbolsPath string
	fstOSymbolsPath string
)

func init() {
	cmd := &cobra.Command{
		Use:     "fst <template-file>",
		Short:   "Export a compiled graph as an OpenFST text transducer",
		Example: `  nlugrammar fst commands.tmpl > commands.fst.txt`,
		Args:    cobra.ExactArgs(1),
		RunE:    runFst,
	}
	cmd.Flags().StringVar(&fstISymbolsPath, "isymbols", "", "also write the integer-indexed input symbol table to this path")
	cmd.Flags().StringVar(&fstOSymbolsPath, "osymbols", "", "also write the integer-indexed output symbol table to this path")
	rootCmd.AddCommand(cmd)
}

func runFst(cmd *cobra.Command, args []string) error {
	gr, err := compileFile(args[0])
	if err != nil {
		return err
	}
	if err := fst.Write(os.Stdout, gr); err != nil {
		return fmt.Errorf("fst: %w", err)
	}

	if fstISymbolsPath == "" && fstOSymbolsPath == "" {
		return nil
	}
	isyms, osyms := fst.Symbols(gr)
	if fstISymbolsPath != "" {
		if err := os.WriteFile(fstISymbolsPath, []byte(isyms), 0644); err != nil {
			return fmt.Errorf("fst: writing isymbols: %w", err)
		}
	}
	if fstOSymbolsPath != "" {
		if err := os.WriteFile(fstOSymbolsPath, []byte(osyms), 0644); err != nil {
			return fmt.Errorf("fst: writing osymbols: %w", err)
		}
	}
	return nil
}
