package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/pagetypes/internal/config"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Show and assign user roles",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured users and their roles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ids := make([]string, 0, len(cfg.Users))
		for id := range cfg.Users {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out := cmd.OutOrStdout()
		for _, id := range ids {
			if _, err := fmt.Fprintf(out, "%s\t%s\n", id, strings.Join(cfg.Users[id].Roles, ",")); err != nil {
				return err
			}
		}
		return nil
	},
}

var usersSetRolesCmd = &cobra.Command{
	Use:   "set-roles USER ROLE...",
	Short: "Assign roles to a user in the config file",
	Long: `Assign roles to a user and write the users section back to the config
file. Other sections and comments of the file are kept.

Example:
  pagetypes users set-roles alice user`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := viper.ConfigFileUsed()
		if path == "" {
			return fmt.Errorf("no config file in use")
		}
		users := make(map[string]config.UserConfig, len(cfg.Users)+1)
		for id, u := range cfg.Users {
			users[id] = u
		}
		users[args[0]] = config.UserConfig{Roles: args[1:]}
		if err := config.ValidateUsers(users); err != nil {
			return err
		}
		if err := config.SaveUsers(path, users); err != nil {
			return err
		}
		cfg.Users = users
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], strings.Join(args[1:], ","))
		return err
	},
}

func init() {
	usersCmd.AddCommand(usersListCmd, usersSetRolesCmd)
	rootCmd.AddCommand(usersCmd)
}
