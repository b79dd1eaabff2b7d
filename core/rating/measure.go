package rating

import (
	"github.com/shopspring/decimal"

	"freight-rating/internal/errors"
)

// VolumetricDivisor converts cm³ to volumetric kilograms (air freight convention).
var VolumetricDivisor = decimal.NewFromInt(6000)

// CalculateCBM returns the volume in cubic meters of a package measured in
// centimeters: (L/100)·(W/100)·(H/100).
func CalculateCBM(length, width, height decimal.Decimal) (CBMCalculation, error) {
	for _, d := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"length", length},
		{"width", width},
		{"height", height},
	} {
		if !d.value.IsPositive() {
			return CBMCalculation{}, errors.InvalidDimension(d.name, d.value.String())
		}
	}

	return CBMCalculation{
		Length: length,
		Width:  width,
		Height: height,
		// cm³ -> m³ is an exact shift of six decimal places
		CBM: length.Mul(width).Mul(height).Shift(-6),
	}, nil
}

// CalculateChargeableWeight returns the greater of the actual weight and the
// volumetric weight (L·W·H / 6000). Without dimensions the actual weight is
// chargeable and no volumetric weight is reported.
func CalculateChargeableWeight(actualWeight decimal.Decimal, dims *Dimensions) WeightCalculation {
	result := WeightCalculation{
		ActualWeight:     actualWeight,
		ChargeableWeight: actualWeight,
	}
	if dims == nil {
		return result
	}

	volumetric := dims.Length.Mul(dims.Width).Mul(dims.Height).Div(VolumetricDivisor)
	result.VolumetricWeight = &volumetric
	result.ChargeableWeight = decimal.Max(actualWeight, volumetric)
	return result
}
