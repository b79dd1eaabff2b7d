// Package cmd - rule inspection commands
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"freight-rating/core/output"
	"freight-rating/core/rating"
	"freight-rating/internal/config"
	"freight-rating/internal/errors"
)

var (
	rulesMode       string
	rulesActiveOnly bool
	rulesFormat     string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect pricing rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the pricing rules of the rate card",
	Long: `List the pricing rules of the rate card in evaluation order.

Examples:
  rating rules list
  rating rules list --mode MARITIME --active
  rating rules list --ratecard ./rates.hcl --format json`,
	Args: cobra.NoArgs,
	RunE: runRulesList,
}

func init() {
	rulesListCmd.Flags().StringVarP(&rulesMode, "mode", "m", "", "only rules for this transport mode")
	rulesListCmd.Flags().BoolVar(&rulesActiveOnly, "active", false, "only rules flagged active")
	rulesListCmd.Flags().StringVarP(&rulesFormat, "format", "f", "", "output format (cli, json, markdown; default from config)")

	rulesCmd.AddCommand(rulesListCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	format := rulesFormat
	if format == "" {
		format = config.Get().Output.DefaultFormat
	}
	f, err := output.ParseFormat(format)
	if err != nil {
		return err
	}
	formatter, ok := output.NewRegistry().GetFormatter(f)
	if !ok {
		return errors.NotSupported("format " + string(f))
	}

	svc, err := openService()
	if err != nil {
		return err
	}

	var rules []rating.PricingRule
	switch {
	case rulesMode != "":
		mode := rating.TransportMode(rulesMode)
		if !mode.Valid() {
			return errors.Input(fmt.Sprintf("unknown transport mode %q", rulesMode))
		}
		rules = svc.RulesByTransportMode(mode)
	case rulesActiveOnly:
		rules = svc.ActiveRules()
	default:
		rules = svc.Rules()
	}

	if rulesMode != "" && rulesActiveOnly {
		active := rules[:0]
		for _, r := range rules {
			if r.IsActive {
				active = append(active, r)
			}
		}
		rules = active
	}
	return formatter.RenderRules(cmd.OutOrStdout(), rules)
}
