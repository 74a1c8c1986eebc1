// Package cli implements the archindex command line.
package cli

import (
	"fmt"
	"os"

	"github.com/dgallion1/archindex/internal/attributes"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

type options struct {
	patterns string
	noColor  bool
}

// NewRootCmd builds the archindex command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "archindex",
		Short: "Extract archival attributes from recognized document text",
		Long: `archindex finds person names, dates, addresses, archive codes,
document numbers and organizations in the text of scanned archival
documents, validates them and renders the result.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.patterns, "patterns", "", "YAML pattern bank overriding the built-in rules")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(newExtractCmd(opts), newPatternsCmd(opts), newVersionCmd())
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		return 1
	}
	return 0
}

// bank loads the pattern bank named by --patterns, or the default one.
func (o *options) bank() (*attributes.Bank, error) {
	if o.patterns == "" {
		return attributes.DefaultBank(), nil
	}
	f, err := os.Open(o.patterns)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return attributes.LoadBank(f)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "archindex %s\n", Version)
		},
	}
}
