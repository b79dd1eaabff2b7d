// Package cmd provides the CLI commands for freight-rating.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"freight-rating/core/quoting"
	"freight-rating/core/rating"
	"freight-rating/internal/config"
	"freight-rating/internal/logging"
)

// Version is the CLI release, set at build time with -ldflags.
var Version = "1.0.0"

var (
	cfgFile      string
	rateCardFile string
	verbose      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rating",
	Short: "Price freight shipments against a rate card",
	Long: `rating quotes air and sea freight shipments.

It selects the pricing rule for the transport mode, bills sea freight on
volume and air freight on declared weight (volumetric weight is not
applied), applies modifiers and destination zones, and estimates the
delivery window.

Examples:
  rating quote --mode AERIAL --weight 12.5 --destination "Niamey, Niger"
  rating quote --mode MARITIME --weight 800 --length 120 --width 100 --height 90
  rating cbm 120 100 90
  rating rules list --mode MARITIME`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $RATING_CONFIG or $HOME/.freight-rating.json)")
	rootCmd.PersistentFlags().StringVar(&rateCardFile, "ratecard", "", "HCL rate card (overrides the config file; default is the built-in card)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	cfg, err := config.Load(config.ResolvePath(cfgFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if rateCardFile != "" {
		cfg.RateCard.Path = rateCardFile
	}
	config.Set(cfg)

	// Initialize logging
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// openService loads the configured rate card.
func openService() (*quoting.Service, error) {
	cfg := config.Get()
	source := cfg.RateCard.Path
	if source == "" {
		source = "built-in"
	}
	logging.Debug("Opening rate card", zap.String("source", source))
	return quoting.Open(
		quoting.WithRateCardPath(cfg.RateCard.Path),
		quoting.WithCurrency(cfg.Output.Currency),
		quoting.WithLogger(logging.Named("quoting")),
	)
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rating version %s (engine %s)\n", Version, rating.Version)
	},
}

// configCmd manages configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var configInitForce bool

// configInitCmd writes the default configuration
var configInitCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Write a default config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ResolvePath(cfgFile)
		if len(args) > 0 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}
