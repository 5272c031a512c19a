// Package commands implements the CLI commands for zenimport.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/zenimport/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "zenimport",
	Short: "Convert static HTML sections into Zen block markup",
	Long: `Zenimport finds known sections in static HTML pages and converts them
into block-comment markup that a block editor can load.

Each recognised section becomes one block; everything else on the page
is ignored. Built-in rules cover product benefit grids and custom cards,
and more rules can be loaded from YAML or JSON files.

Examples:
  # Print the markup for a page
  zenimport convert landing.html

  # Convert a live page and show what was found
  zenimport convert --url "https://example.com/" --stats

  # Store a page in the local page database
  zenimport import landing.html --slug solutions --title "Solutions"

  # Run the upload form
  zenimport serve --listen :8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			Level: viper.GetString("log_level"),
			JSON:  viper.GetBool("log_json"),
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.zenimport.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "suppress progress output")
	flags.String("log-level", "", "log level: debug, info, warn, error (overrides --debug and --quiet)")
	flags.Bool("log-json", false, "write logs as JSON")
	flags.StringSlice("rules", nil, "extra rule files (YAML or JSON) run after the built-in rules")
	flags.String("max-size", "5MB", "largest accepted HTML input (e.g. 500KB, 5MB)")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log_json", flags.Lookup("log-json"))
	_ = viper.BindPFlag("rules", flags.Lookup("rules"))
	_ = viper.BindPFlag("max_size", flags.Lookup("max-size"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".zenimport")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("ZENIMPORT")
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
