/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Command-line host for the Akaylee Templater. Turns selections of captured
HTTP traffic into scan templates, keeps the open template sessions in a workspace file
and manages the user settings.
*/

package main

import (
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/kleascm/akaylee-templater/cmd/templater/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Configuration
	configFile string
	envFile    string
	workspace  string

	// Settings overrides
	author        string
	defaultAttack string

	// Logging configuration
	logLevel  string
	logFormat string
	logDir    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "akaylee-templater",
		Short: "Akaylee Templater - Build scan templates from captured HTTP traffic",
		Long: heredoc.Doc(`
			Akaylee Templater turns selections of captured HTTP requests and responses
			into scan templates. A selection of several requests becomes a multi-request
			template, a highlighted request range becomes a payload position and a
			highlighted response range becomes a matcher. Fragments can be merged into
			templates already open in the workspace.
		`),
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Settings file path (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading settings")
	rootCmd.PersistentFlags().StringVar(&workspace, "workspace", "templater-workspace.yaml", "Workspace file holding open sessions")
	rootCmd.PersistentFlags().StringVar(&author, "author", "", "Template author (overrides settings)")
	rootCmd.PersistentFlags().StringVar(&defaultAttack, "default-attack", "", "Attack type for a single payload position (overrides settings)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "custom", "Log format (text, json, custom)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Log output directory (empty disables log files)")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("env_file", rootCmd.PersistentFlags().Lookup("env-file"))
	viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("log_dir", rootCmd.PersistentFlags().Lookup("log-dir"))

	// Selection commands
	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "List the actions available for a selection",
		Long: heredoc.Doc(`
			Read a selection file and print the numbered actions it offers. Merge actions
			are listed for every workspace session that holds a template.

			Example selection file:

			  targets:
			    - request: "GET /x?id=5 HTTP/1.1\r\nHost: example.com\r\n\r\n"
			  range: {start: 10, end: 11}
			  view: request
		`),
		Args: cobra.NoArgs,
		RunE: commands.RunResolve,
	}
	resolveCmd.Flags().String("selection", "", "Selection file (required)")
	resolveCmd.MarkFlagRequired("selection")
	rootCmd.AddCommand(resolveCmd)

	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Invoke one action of a selection",
		Long: heredoc.Doc(`
			Resolve a selection, invoke the action with the given number and save the
			workspace. Generate actions open a new session; merge actions update the
			session they name and warn when the template has several request groups.
		`),
		Args: cobra.NoArgs,
		RunE: commands.RunApply,
	}
	applyCmd.Flags().String("selection", "", "Selection file (required)")
	applyCmd.Flags().Int("action", 1, "Number of the action to invoke, as printed by resolve")
	applyCmd.MarkFlagRequired("selection")
	rootCmd.AddCommand(applyCmd)

	// Session commands
	rootCmd.AddCommand(&cobra.Command{
		Use:   "sessions",
		Short: "List open sessions",
		Args:  cobra.NoArgs,
		RunE:  commands.RunSessions,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "show NAME",
		Short: "Summarize the template of a session",
		Args:  cobra.ExactArgs(1),
		RunE:  commands.RunShow,
	})
	exportCmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Write a JSON snapshot of a session's template",
		Args:  cobra.ExactArgs(1),
		RunE:  commands.RunExport,
	}
	exportCmd.Flags().String("dir", "", "Output directory (default: template_path setting)")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "new NAME",
		Short: "Open a session with an empty template",
		Args:  cobra.ExactArgs(1),
		RunE:  commands.RunNew,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "close NAME",
		Short: "Close a session",
		Args:  cobra.ExactArgs(1),
		RunE:  commands.RunClose,
	})

	// Settings commands
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings",
	}
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show effective settings",
		Args:  cobra.NoArgs,
		RunE:  commands.RunSettingsShow,
	})
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store a setting (nuclei_path, template_path, author, default_attack)",
		Args:  cobra.ExactArgs(2),
		RunE:  commands.RunSettingsSet,
	})
	rootCmd.AddCommand(settingsCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list-attacks",
		Short: "List attack types and their behavior",
		Args:  cobra.NoArgs,
		Run:   commands.ListAttacks,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
