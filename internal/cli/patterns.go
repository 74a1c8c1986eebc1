package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPatternsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "Print the active pattern bank as YAML",
		Long: `Print the rules used for extraction in the layout --patterns accepts.
Redirect the output to a file to start a custom bank.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bank, err := opts.bank()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(bank); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
