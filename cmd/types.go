package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/pagetypes/internal/presentation"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the registered page types",
	Long: `List the registered page types with their capabilities, the infos they
can be about and the number of builtin pages.

Examples:
  pagetypes types
  pagetypes types -o json | jq '.[].name'`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cfg, appOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		f := presentation.NewFormatter(cmd.OutOrStdout(), outputFormat)
		return f.FormatTypes(presentation.FromTypes(a.regs.Elements.All()))
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}
