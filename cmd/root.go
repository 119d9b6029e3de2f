package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/pagetypes/internal/config"
	"github.com/zjrosen/pagetypes/internal/presentation"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
	// cfgErr is reported by commands that need a valid config.
	cfgErr error

	actingUser   string
	outputFormat string
)

// defaultConfigPath is used when no config file is found anywhere.
const defaultConfigPath = ".pagetypes/config.yaml"

var rootCmd = &cobra.Command{
	Use:   "pagetypes",
	Short: "Page types, instances and selectors of the monitoring web layer",
	Long: `pagetypes manages the user customizable pages of the monitoring web
layer: views, dashboards and graph collections, their builtin and user
instances, and the selectors that filter what a page shows.

Run "pagetypes serve" to start the web server. The other commands work on
the same storage from the command line as the user given by --user.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cfgErr != nil {
			return fmt.Errorf("invalid configuration: %w", cfgErr)
		}
		return presentation.ValidateFormat(outputFormat)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/pagetypes/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&actingUser, "user", "u", "admin",
		"user the command acts as")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", presentation.FormatTable,
		"output format: table or json")
}

func initConfig() {
	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .pagetypes/config.yaml (current directory)
		// 2. ~/.config/pagetypes/config.yaml (user config)
		if _, err := os.Stat(defaultConfigPath); err == nil {
			v.SetConfigFile(defaultConfigPath)
		} else {
			if base := config.DefaultBaseDir(); base != "" {
				v.AddConfigPath(base)
			}
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			cfgErr = err
			return
		}
		// No config file found anywhere - create the default one
		path := defaultConfigPath
		if base := config.DefaultBaseDir(); base != "" {
			path = filepath.Join(base, "config.yaml")
		}
		if writeErr := config.WriteDefaultConfig(path); writeErr == nil {
			v.SetConfigFile(path)
			_ = v.ReadInConfig()
		}
		// If write fails, just continue with defaults (no config file)
	}

	cfg, cfgErr = config.Load(v)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
