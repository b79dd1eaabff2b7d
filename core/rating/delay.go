package rating

import (
	"fmt"
	"time"
)

// fallbackDelayDays is used for modes absent from the delay table.
const fallbackDelayDays = 7

// deliveryDateLayout renders estimated delivery dates as dd/mm/yyyy.
const deliveryDateLayout = "02/01/2006"

var deliveryDelays = map[TransportMode]DeliveryDelay{
	Aerial:          newDeliveryDelay(4, 7),
	AerialExpress:   newDeliveryDelay(1, 3),
	Maritime:        newDeliveryDelay(45, 60),
	MaritimeExpress: newDeliveryDelay(30, 45),
}

func newDeliveryDelay(min, max int) DeliveryDelay {
	text := fmt.Sprintf("%d-%d days", min, max)
	if min == max {
		text = fmt.Sprintf("%d days", min)
	}
	return DeliveryDelay{Min: min, Max: max, Text: text}
}

// DelayFor returns the transit bracket of mode, or a flat 7 days if the mode
// has no entry.
func DelayFor(mode TransportMode) DeliveryDelay {
	if d, ok := deliveryDelays[mode]; ok {
		return d
	}
	return newDeliveryDelay(fallbackDelayDays, fallbackDelayDays)
}

// EstimateDelivery offsets departure by the delay bracket.
func EstimateDelivery(delay DeliveryDelay, departure time.Time) EstimatedDelivery {
	minDate := departure.AddDate(0, 0, delay.Min)
	maxDate := departure.AddDate(0, 0, delay.Max)
	return EstimatedDelivery{
		MinDate: minDate,
		MaxDate: maxDate,
		Range:   minDate.Format(deliveryDateLayout) + " - " + maxDate.Format(deliveryDateLayout),
	}
}
