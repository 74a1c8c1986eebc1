package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/dgallion1/archindex/internal/attributes"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newExtractCmd(opts *options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract attributes from a text file or stdin",
		Example: `  archindex extract scan.txt
  cat scan.txt | archindex extract --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "json", "html":
			default:
				return fmt.Errorf("unknown format %q (text, json, html)", format)
			}
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			bank, err := opts.bank()
			if err != nil {
				return err
			}
			res := attributes.New(bank).Analyze(text)

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(attributes.Record{Result: res, TextLength: utf8.RuneCountInString(text)})
			case "html":
				_, err := fmt.Fprintln(out, res.Highlighted)
				return err
			default:
				return printText(out, res)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or html")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printText(w io.Writer, res attributes.Result) error {
	label := color.New(color.FgCyan, color.Bold)
	ok := color.New(color.FgGreen).Sprint("✓")
	bad := color.New(color.FgRed).Sprint("✗")
	dim := color.New(color.Faint)

	for _, k := range attributes.Kinds() {
		v := res.Attributes[k]
		mark := ok
		if !res.Validation[k] {
			mark = bad
		}
		if v == "" {
			fmt.Fprintf(w, "%s %s: %s\n", mark, label.Sprint(k.Info().Name), dim.Sprint("-"))
			continue
		}
		fmt.Fprintf(w, "%s %s: %s\n", mark, label.Sprint(k.Info().Name), v)
	}
	_, err := fmt.Fprintf(w, "\n%d of %d attributes found\n", res.Summary.Filled, res.Summary.Total)
	return err
}
