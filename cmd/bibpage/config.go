package main

import (
	"errors"
	"fmt"

	"github.com/matsen/bibpage/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
	Long: `Show or change configuration stored in ~/.config/bibpage/config.yml
(or $XDG_CONFIG_HOME/bibpage/config.yml).

Keys:
  template    Custom page template path
  js_file     Custom script path (implies embedding)
  embed_js    Inline the script into pages (true/false)
  title       Page title
  pdf_root    Folder that relative file fields are resolved against
  pdf_reader  PDF reader (system, skim, preview, zathura, evince, okular)
  db_path     Search cache path
  workers     Normalization goroutines (0: sequential)
  link_rate   Link checks per second
  log_level   debug, info, warn, error

With no subcommand the effective configuration is shown, including
BIBPAGE_* environment overrides.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		values := cfg.Map()
		if humanOutput {
			for _, k := range config.Keys {
				fmt.Printf("%-11s %s\n", k+":", values[k])
			}
		} else {
			outputJSON(values)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		value, err := cfg.Get(args[0])
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{args[0]: value})
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change one configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		path := config.Path()

		// Edit the file itself so environment overrides are not persisted
		cfg, err := config.ReadFile(path)
		if err != nil {
			exitWithError(ExitConfigError, "loading config: %v", err)
		}
		if err := cfg.Set(key, value); err != nil {
			if errors.Is(err, config.ErrUnknownKey) {
				exitWithError(ExitError, "%v", err)
			}
			exitWithError(ExitConfigError, "%v", err)
		}
		if err := cfg.Save(path); err != nil {
			exitWithError(ExitError, "saving config: %v", err)
		}
		config.ResetGlobalConfigCache()

		stored, _ := cfg.Get(key)
		if humanOutput {
			fmt.Printf("Set %s = %s\n", key, stored)
		} else {
			outputJSON(UpdateResponse{Status: "updated", Key: key, Value: stored})
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.Path()
		if humanOutput {
			fmt.Println(path)
		} else {
			outputJSON(StatusResponse{Status: "ok", Path: path})
		}
		return nil
	},
}
