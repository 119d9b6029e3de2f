package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zjrosen/pagetypes/internal/presentation"
	"github.com/zjrosen/pagetypes/internal/webapi"
)

var (
	pageType    string
	pageOwner   string
	pageNewName string
	pageTitle   string
)

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List and manage page instances",
}

var pagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the pages of a type visible to the user",
	Long: `List the pages of one type as the listing page shows them: own pages,
pages of other users and builtin pages.

Examples:
  pagetypes pages list --type view
  pagetypes pages list -t dashboard --user alice -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cfg, appOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		e, err := a.session().Engine(cmd.Context(), pageType)
		if err != nil {
			return err
		}
		list, err := e.PageList()
		if err != nil {
			return err
		}
		f := presentation.NewFormatter(cmd.OutOrStdout(), outputFormat)
		return f.FormatPages(presentation.FromPageList(list))
	},
}

var pagesShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show the page a name resolves to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAction(cmd, "get_page", map[string]string{"type": pageType, "name": args[0]})
	},
}

var pagesCloneCmd = &cobra.Command{
	Use:   "clone NAME",
	Short: "Copy a page into the user's own pages",
	Long: `Copy a builtin, own or public page into the pages of the user.

Examples:
  pagetypes pages clone allhosts -t view --new-name myhosts --title "My hosts"
  pagetypes pages clone shared -t view --owner bob`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAction(cmd, "clone_page", map[string]string{
			"type": pageType, "owner": pageOwner, "name": args[0],
			"new_name": pageNewName, "title": pageTitle,
		})
	},
}

var pagesDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a page of the user, or of --owner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAction(cmd, "delete_page", map[string]string{
			"type": pageType, "owner": pageOwner, "name": args[0],
		})
	},
}

var pagesMoveElementCmd = &cobra.Command{
	Use:   "move-element NAME FROM TO",
	Short: "Move an element of a container page",
	Long: `Move the element at position FROM of a container page to position TO.
A page that is not the user's own is copied into the user's pages first.

Examples:
  pagetypes pages move-element main 0 2 -t dashboard --user alice`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid FROM %q: %w", args[1], err)
		}
		to, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid TO %q: %w", args[2], err)
		}
		return callAction(cmd, "move_element", map[string]any{
			"type": pageType, "name": args[0], "from": from, "to": to,
		})
	},
}

var pagesRemoveElementCmd = &cobra.Command{
	Use:   "remove-element NAME INDEX",
	Short: "Remove an element of a container page",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid INDEX %q: %w", args[1], err)
		}
		return callAction(cmd, "remove_element", map[string]any{
			"type": pageType, "name": args[0], "index": index,
		})
	},
}

// callAction runs an automation API action as the acting user and prints
// its result as JSON.
func callAction(cmd *cobra.Command, action string, args any) error {
	a, err := openApp(cfg, appOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	resp := a.api.Call(cmd.Context(), actingUser, action, raw)
	if resp.ResultCode != webapi.ResultOK {
		return errors.New(fmt.Sprint(resp.Result))
	}
	return presentation.NewFormatter(cmd.OutOrStdout(), presentation.FormatJSON).FormatValue(resp.Result)
}

func init() {
	pagesCmd.PersistentFlags().StringVarP(&pageType, "type", "t", "view", "page type")
	pagesCloneCmd.Flags().StringVar(&pageOwner, "owner", "", "owner of the page to clone (default: builtin or own)")
	pagesCloneCmd.Flags().StringVar(&pageNewName, "new-name", "", "name of the copy (default: next free name)")
	pagesCloneCmd.Flags().StringVar(&pageTitle, "title", "", "title of the copy")
	pagesDeleteCmd.Flags().StringVar(&pageOwner, "owner", "", "owner of the page (default: the acting user)")

	pagesCmd.AddCommand(pagesListCmd, pagesShowCmd, pagesCloneCmd, pagesDeleteCmd, pagesMoveElementCmd, pagesRemoveElementCmd)
	rootCmd.AddCommand(pagesCmd)
}
