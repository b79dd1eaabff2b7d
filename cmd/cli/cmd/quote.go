// Package cmd - quote and measurement commands
package cmd

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"freight-rating/core/output"
	"freight-rating/core/rating"
	"freight-rating/internal/config"
	"freight-rating/internal/errors"
)

var (
	quoteMode        string
	quoteWeight      string
	quoteDestination string
	quoteDeparture   string
	outputFormat     string

	dimLength string
	dimWidth  string
	dimHeight string
)

// quoteCmd prices one shipment
var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a shipment",
	Long: `Price a shipment against the active rate card.

Maritime modes bill on volume and require --length, --width and --height
in centimeters. Aerial modes bill on declared weight in kilograms
(volumetric weight is not applied; see "rating weight").

Examples:
  rating quote --mode AERIAL --weight 12.5
  rating quote --mode AERIAL_EXPRESS --weight 3 --destination "Lyon, France" --format markdown
  rating quote --mode MARITIME --weight 800 --length 120 --width 100 --height 90 --departure 2026-01-02`,
	Args: cobra.NoArgs,
	RunE: runQuote,
}

// cbmCmd computes cubic meters
var cbmCmd = &cobra.Command{
	Use:   "cbm LENGTH WIDTH HEIGHT",
	Short: "Compute the volume in m³ of a package measured in cm",
	Args:  cobra.ExactArgs(3),
	RunE:  runCBM,
}

// weightCmd computes chargeable weight
var weightCmd = &cobra.Command{
	Use:   "weight ACTUAL",
	Short: "Compare actual and volumetric weight",
	Long: `Print the chargeable weight of a package: the greater of its actual weight
in kilograms and its volumetric weight (L x W x H / 6000, cm).`,
	Args: cobra.ExactArgs(1),
	RunE: runWeight,
}

func init() {
	quoteCmd.Flags().StringVarP(&quoteMode, "mode", "m", "", "transport mode (AERIAL, AERIAL_EXPRESS, MARITIME, MARITIME_EXPRESS)")
	quoteCmd.Flags().StringVarP(&quoteWeight, "weight", "w", "", "actual weight in kg")
	quoteCmd.Flags().StringVarP(&quoteDestination, "destination", "d", "", "destination, matched against zone countries")
	quoteCmd.Flags().StringVar(&quoteDeparture, "departure", "", "departure date (YYYY-MM-DD, default today)")
	quoteCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "output format (cli, json, markdown; default from config)")
	_ = quoteCmd.MarkFlagRequired("mode")
	_ = quoteCmd.MarkFlagRequired("weight")

	for _, c := range []*cobra.Command{quoteCmd, weightCmd} {
		c.Flags().StringVar(&dimLength, "length", "", "length in cm")
		c.Flags().StringVar(&dimWidth, "width", "", "width in cm")
		c.Flags().StringVar(&dimHeight, "height", "", "height in cm")
	}

	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(cbmCmd)
	rootCmd.AddCommand(weightCmd)
}

func runQuote(cmd *cobra.Command, args []string) error {
	start := time.Now()

	format := outputFormat
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

	req, err := quoteRequestFromFlags()
	if err != nil {
		return err
	}

	svc, err := openService()
	if err != nil {
		return err
	}
	quote, err := svc.Quote(cmd.Context(), req)
	if err != nil {
		return err
	}

	result, err := output.NewQuoteResult(quote, time.Since(start))
	if err != nil {
		return err
	}
	return formatter.RenderQuote(cmd.OutOrStdout(), result)
}

func quoteRequestFromFlags() (rating.QuoteRequest, error) {
	mode := rating.TransportMode(quoteMode)
	if !mode.Valid() {
		return rating.QuoteRequest{}, errors.Input(fmt.Sprintf("unknown transport mode %q", quoteMode))
	}
	weight, err := parseDecimal("weight", quoteWeight)
	if err != nil {
		return rating.QuoteRequest{}, err
	}
	if !weight.IsPositive() {
		return rating.QuoteRequest{}, errors.Input("weight must be greater than zero")
	}
	dims, err := dimensionsFromFlags()
	if err != nil {
		return rating.QuoteRequest{}, err
	}

	req := rating.QuoteRequest{
		TransportMode: mode,
		Weight:        weight,
		Dimensions:    dims,
		Destination:   quoteDestination,
	}
	if quoteDeparture != "" {
		d, err := time.Parse(time.DateOnly, quoteDeparture)
		if err != nil {
			return rating.QuoteRequest{}, errors.Parsing("invalid --departure", err)
		}
		req.DepartureDate = &d
	}
	return req, nil
}

// dimensionsFromFlags returns nil when no dimension flag is set. Setting some
// but not all of them is an error.
func dimensionsFromFlags() (*rating.Dimensions, error) {
	if dimLength == "" && dimWidth == "" && dimHeight == "" {
		return nil, nil
	}
	if dimLength == "" || dimWidth == "" || dimHeight == "" {
		return nil, errors.Input("--length, --width and --height must be given together")
	}

	var dims rating.Dimensions
	var err error
	if dims.Length, err = parseDecimal("length", dimLength); err != nil {
		return nil, err
	}
	if dims.Width, err = parseDecimal("width", dimWidth); err != nil {
		return nil, err
	}
	if dims.Height, err = parseDecimal("height", dimHeight); err != nil {
		return nil, err
	}
	return &dims, nil
}

func parseDecimal(name, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Parsing(fmt.Sprintf("invalid %s %q", name, raw), err)
	}
	return d, nil
}

func runCBM(cmd *cobra.Command, args []string) error {
	var values [3]decimal.Decimal
	for i, name := range []string{"length", "width", "height"} {
		d, err := parseDecimal(name, args[i])
		if err != nil {
			return err
		}
		values[i] = d
	}

	calc, err := rating.CalculateCBM(values[0], values[1], values[2])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s x %s x %s cm = %s m³\n",
		calc.Length, calc.Width, calc.Height, calc.CBM)
	return nil
}

func runWeight(cmd *cobra.Command, args []string) error {
	actual, err := parseDecimal("actual weight", args[0])
	if err != nil {
		return err
	}
	if actual.IsNegative() {
		return errors.Input("actual weight must not be negative")
	}
	dims, err := dimensionsFromFlags()
	if err != nil {
		return err
	}

	calc := rating.CalculateChargeableWeight(actual, dims)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Actual weight:     %s kg\n", calc.ActualWeight)
	if calc.VolumetricWeight != nil {
		fmt.Fprintf(out, "Volumetric weight: %s kg\n", calc.VolumetricWeight.Round(3))
	}
	fmt.Fprintf(out, "Chargeable weight: %s kg\n", calc.ChargeableWeight.Round(3))
	return nil
}
