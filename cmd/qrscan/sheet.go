package main

import (
	"fmt"
	"io"
	"os"

	"go-qrscan-webapp/internal/services"

	"github.com/spf13/cobra"
)

type sheetOptions struct {
	out      string
	title    string
	barcodes bool
}

func newSheetCmd(a *app) *cobra.Command {
	opts := sheetOptions{}

	cmd := &cobra.Command{
		Use:   "sheet PAYLOAD...",
		Short: "Render a printable PDF of QR codes to test the scanner with",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.sheet(cmd.OutOrStdout(), opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.out, "out", "o", "", "PDF file to write (required)")
	f.StringVar(&opts.title, "title", "", "sheet title")
	f.BoolVar(&opts.barcodes, "barcodes", false, "add a Code 128 strip under short payloads")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func (a *app) sheet(out io.Writer, opts sheetOptions, payloads []string) error {
	sheets := services.NewSheetService(services.NewBarcodeService())

	pdf, err := sheets.GenerateTestSheetPDF(payloads, services.SheetOptions{
		Title:             opts.title,
		IncludeBarcodes:   opts.barcodes,
		BareHostnameMatch: a.cfg.Scanner.BareHostnameMatch,
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(opts.out, pdf, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}

	a.log.Info("Test sheet written", map[string]interface{}{
		"path":     opts.out,
		"payloads": len(payloads),
		"bytes":    len(pdf),
	})
	fmt.Fprintf(out, "wrote %s (%s)\n", opts.out, plural(len(payloads), "code"))
	return nil
}
