package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/pagetypes/internal/presentation"
	"github.com/zjrosen/pagetypes/internal/selector"
)

var selectorInfos []string

var selectorsCmd = &cobra.Command{
	Use:   "selectors",
	Short: "List the selectors grouped by topic",
	Long: `List the registered selectors grouped by topic. Use --info to show only
the selectors of some infos (repeatable).

Examples:
  pagetypes selectors
  pagetypes selectors --info host --info service`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cfg, appOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		infos := selectorInfos
		if len(infos) == 0 {
			for _, info := range a.regs.Infos.All() {
				infos = append(infos, info.Name)
			}
		}
		c, err := selector.FromValues(infos, nil, nil)
		if err != nil {
			return err
		}
		f := presentation.NewFormatter(cmd.OutOrStdout(), outputFormat)
		return f.FormatSelectors(presentation.FromSelectorGroups(a.regs.Selectors.SelectorsByTopic(c)))
	},
}

func init() {
	selectorsCmd.Flags().StringArrayVar(&selectorInfos, "info", nil, "only selectors of this info (repeatable)")
	rootCmd.AddCommand(selectorsCmd)
}
