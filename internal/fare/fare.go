// Package fare computes deterministic ride fares from round-trip routing figures.
package fare

import "math"

// Pricing constants (Rs).
const (
	BaseFare              = 80.0
	DistanceFarePerKm     = 40.0
	TimeFarePerMinute     = 6.0
	AssistanceFeeStandard = 150.0
	AssistanceFeeEnhanced = 300.0
)

// Options tunes the fare computation.
type Options struct {
	EnhancedSupport bool
}

// Breakdown is the itemized fare for a ride.
type Breakdown struct {
	BaseFare      float64 `json:"base_fare"`
	DistanceFare  float64 `json:"distance_fare"`
	TimeFare      float64 `json:"time_fare"`
	AssistanceFee float64 `json:"assistance_fee"`
	WaitingFare   float64 `json:"waiting_fare"`
	Total         float64 `json:"total"`
}

// Compute returns the fare for a round trip. Negative inputs are treated as zero.
func Compute(distanceKmRoundTrip, durationMinutesRoundTrip float64, opts Options) Breakdown {
	distanceKm := math.Max(distanceKmRoundTrip, 0)
	minutes := math.Max(durationMinutesRoundTrip, 0)

	assistance := AssistanceFeeStandard
	if opts.EnhancedSupport {
		assistance = AssistanceFeeEnhanced
	}

	b := Breakdown{
		BaseFare:      BaseFare,
		DistanceFare:  Round2(DistanceFarePerKm * distanceKm),
		TimeFare:      Round2(TimeFarePerMinute * minutes),
		AssistanceFee: assistance,
	}
	b.Total = Round2(BaseFare + DistanceFarePerKm*distanceKm + TimeFarePerMinute*minutes + assistance)
	return b
}

// WaitingCharge is the amount billed for the given waiting minutes.
func WaitingCharge(minutes int) float64 {
	if minutes <= 0 {
		return 0
	}
	return Round2(TimeFarePerMinute * float64(minutes))
}

// AddWaiting tops up an existing breakdown with a waiting charge.
// The distance and time components are left untouched.
func AddWaiting(b Breakdown, minutes int) Breakdown {
	charge := WaitingCharge(minutes)
	if charge == 0 {
		return b
	}
	b.WaitingFare = Round2(b.WaitingFare + charge)
	b.Total = Round2(b.Total + charge)
	return b
}

// RoundTrip doubles one-way routing figures: distance to 2 decimals, duration to whole minutes.
func RoundTrip(oneWayKm, oneWayMinutes float64) (distanceKm float64, durationMinutes int) {
	return Round2(oneWayKm * 2), int(math.Round(oneWayMinutes * 2))
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
