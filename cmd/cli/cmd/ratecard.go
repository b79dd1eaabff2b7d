// Package cmd - rate card commands
package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"freight-rating/core/ratecard"
	"freight-rating/core/rating"
	"freight-rating/internal/config"
	"freight-rating/internal/errors"
	"freight-rating/internal/logging"
)

var ratecardOut string

var ratecardCmd = &cobra.Command{
	Use:   "ratecard",
	Short: "Validate and export HCL rate cards",
	Long: `A rate card is an HCL file of rule, zone and modifier blocks.

Edit an exported card, check it with validate, then point the server or the
CLI at it with rate_card.path in the config file or --ratecard.`,
}

var ratecardValidateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Parse and validate a rate card",
	Args:  cobra.ExactArgs(1),
	RunE:  runRatecardValidate,
}

var ratecardExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the configured rate card as HCL",
	Long: `Write the configured rate card, or the built-in one when none is configured,
to stdout or to --out.

Examples:
  rating ratecard export --out rates.hcl
  rating ratecard export --ratecard old.hcl > normalized.hcl`,
	Args: cobra.NoArgs,
	RunE: runRatecardExport,
}

func init() {
	ratecardExportCmd.Flags().StringVarP(&ratecardOut, "out", "o", "", "write to this file instead of stdout")

	ratecardCmd.AddCommand(ratecardValidateCmd)
	ratecardCmd.AddCommand(ratecardExportCmd)
	rootCmd.AddCommand(ratecardCmd)
}

func runRatecardValidate(cmd *cobra.Command, args []string) error {
	cfg, err := ratecard.Load(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d rules, %d zones, %d modifiers\n",
		args[0], len(cfg.Rules), len(cfg.Zones), len(cfg.Modifiers))
	for _, m := range cfg.UnsupportedModifiers() {
		fmt.Fprintf(out, "warning: modifier %q uses condition %s, which is never applied\n", m.ID, m.Condition)
	}
	for _, mode := range rating.TransportModes {
		if !hasActiveRule(cfg.Rules, mode) {
			fmt.Fprintf(out, "warning: no active rule for %s\n", mode)
		}
	}
	return nil
}

func hasActiveRule(rules []rating.PricingRule, mode rating.TransportMode) bool {
	for _, r := range rules {
		if r.IsActive && r.TransportMode == mode {
			return true
		}
	}
	return false
}

func runRatecardExport(cmd *cobra.Command, args []string) error {
	path := config.Get().RateCard.Path
	cfg, err := ratecard.Load(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := ratecard.Write(&buf, cfg); err != nil {
		return errors.Internal("failed to render rate card", err)
	}

	if ratecardOut == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(ratecardOut, buf.Bytes(), 0644); err != nil {
		return errors.Internal("failed to write rate card", err)
	}
	logging.Sugar.Infof("Wrote %d rules, %d zones, %d modifiers to %s",
		len(cfg.Rules), len(cfg.Zones), len(cfg.Modifiers), ratecardOut)
	return nil
}
