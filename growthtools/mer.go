// Package growthtools implements the free marketing calculators published on
// the growth lab site.
package growthtools

import (
	"errors"
	"math"
)

var (
	ErrInvalidSpend  = errors.New("marketing spend must be greater than zero")
	ErrInvalidMargin = errors.New("gross margin must be between 0 and 100 percent")
)

// Input is the blended performance of a store over a period
type Input struct {
	Revenue         float64 `json:"revenue"`
	Spend           float64 `json:"spend"`
	PlatformRevenue float64 `json:"platformRevenue"`
	GrossMarginPct  float64 `json:"grossMarginPct"`
}

// Report compares blended efficiency with what ad platforms claim
type Report struct {
	MER              float64 `json:"mer"`
	PlatformROAS     float64 `json:"platformRoas"`
	BreakEvenROAS    float64 `json:"breakEvenRoas"`
	AttributionGapPc float64 `json:"attributionGapPct"`
	Profitable       bool    `json:"profitable"`
	Verdict          string  `json:"verdict"`
}

// MER is total revenue divided by total marketing spend
func MER(revenue, spend float64) (float64, error) {
	if spend <= 0 {
		return 0, ErrInvalidSpend
	}
	return round2(revenue / spend), nil
}

// BreakEvenROAS is the return on ad spend needed to cover product costs at
// the given gross margin.
func BreakEvenROAS(marginPct float64) (float64, error) {
	if marginPct <= 0 || marginPct > 100 {
		return 0, ErrInvalidMargin
	}
	return round2(100 / marginPct), nil
}

// Evaluate builds the full report shown by the MER calculator
func Evaluate(in Input) (Report, error) {
	mer, err := MER(in.Revenue, in.Spend)
	if err != nil {
		return Report{}, err
	}
	breakEven, err := BreakEvenROAS(in.GrossMarginPct)
	if err != nil {
		return Report{}, err
	}

	r := Report{
		MER:           mer,
		PlatformROAS:  round2(in.PlatformRevenue / in.Spend),
		BreakEvenROAS: breakEven,
		Profitable:    mer >= breakEven,
	}

	// Platforms tend to over-credit themselves; the gap is how much of their
	// reported revenue the store's own numbers cannot account for.
	if in.PlatformRevenue > 0 && in.PlatformRevenue > in.Revenue {
		r.AttributionGapPc = round2((in.PlatformRevenue - in.Revenue) / in.PlatformRevenue * 100)
	}

	switch {
	case mer >= breakEven*1.5:
		r.Verdict = "scale"
	case mer >= breakEven:
		r.Verdict = "hold"
	default:
		r.Verdict = "cut"
	}

	return r, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
