package main

import (
	"errors"
	"fmt"
	"io"

	"go-qrscan-webapp/internal/camera"
	"go-qrscan-webapp/internal/decoder"
	"go-qrscan-webapp/internal/scan"

	"github.com/spf13/cobra"
)

func newDecodeCmd(a *app) *cobra.Command {
	var priority string

	cmd := &cobra.Command{
		Use:   "decode FILE...",
		Short: "Decode QR codes and barcodes from image files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePriority(priority)
			if err != nil {
				return err
			}
			return a.decode(cmd.OutOrStdout(), p, args)
		},
	}
	cmd.Flags().StringVar(&priority, "priority", "auto", "reader set: auto, qr or barcode")
	return cmd
}

func parsePriority(s string) (decoder.ScanPriority, error) {
	switch s {
	case "", "auto":
		return decoder.PriorityAuto, nil
	case "qr":
		return decoder.Priority2D, nil
	case "barcode":
		return decoder.Priority1D, nil
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// decode prints one line per file. Files without a readable code are
// reported and counted; the command fails if any file failed.
func (a *app) decode(out io.Writer, priority decoder.ScanPriority, files []string) error {
	zx := decoder.NewZXingDecoder(priority)
	failed := 0

	for _, file := range files {
		img, err := camera.LoadImage(file)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s: error: %v\n", file, err)
			continue
		}

		result, err := zx.DecodeImage(img)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s: no code found\n", file)
			a.log.Debug("Decode failed", map[string]interface{}{"file": file, "error": err.Error()})
			continue
		}

		isURL := scan.LooksLikeURL(result.Text, a.cfg.Scanner.BareHostnameMatch)
		fmt.Fprintf(out, "%s: %s [%s] url=%t\n", file, result.Text, result.Format, isURL)
	}

	if failed > 0 {
		return errors.New(plural(failed, "file") + " could not be decoded")
	}
	return nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
