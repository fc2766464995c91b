package smallclaims

import "math"

// feeBand charges Fee for claims up to and including UpTo
type feeBand struct {
	UpTo float64
	Fee  float64
}

type jurisdiction struct {
	CurrencySymbol string
	AnnualRate     float64
	Bands          []feeBand

	// Claims above the last band pay AboveTopPct of the claim capped at
	// AboveTopCap, or AboveTopFlat when no percentage applies.
	AboveTopPct  float64
	AboveTopCap  float64
	AboveTopFlat float64

	LimitationYears int
	SmallClaimsCap  float64
	FilingRoute     string
}

var jurisdictions = map[string]jurisdiction{
	// England & Wales, Money Claim Online fees; 8% statutory interest (County Courts Act 1984 s.69)
	"uk": {
		CurrencySymbol: "£",
		AnnualRate:     0.08,
		Bands: []feeBand{
			{UpTo: 300, Fee: 35},
			{UpTo: 500, Fee: 50},
			{UpTo: 1000, Fee: 70},
			{UpTo: 1500, Fee: 80},
			{UpTo: 3000, Fee: 115},
			{UpTo: 5000, Fee: 205},
			{UpTo: 10000, Fee: 455},
		},
		AboveTopPct:     0.05,
		AboveTopCap:     10000,
		LimitationYears: 6,
		SmallClaimsCap:  10000,
		FilingRoute:     "Money Claim Online",
	},
	"us": {
		CurrencySymbol: "$",
		AnnualRate:     0.05,
		Bands: []feeBand{
			{UpTo: 1500, Fee: 30},
			{UpTo: 5000, Fee: 50},
			{UpTo: 10000, Fee: 75},
		},
		AboveTopFlat:    100,
		LimitationYears: 4,
		SmallClaimsCap:  10000,
		FilingRoute:     "your county small claims court",
	},
	// European Small Claims Procedure, cross-border claims up to €5,000
	"eu": {
		CurrencySymbol: "€",
		AnnualRate:     0.05,
		Bands: []feeBand{
			{UpTo: 2000, Fee: 35},
			{UpTo: 5000, Fee: 60},
		},
		AboveTopFlat:    100,
		LimitationYears: 3,
		SmallClaimsCap:  EUSmallClaimsLimit,
		FilingRoute:     "the European Small Claims Procedure (Form A)",
	},
	"au": {
		CurrencySymbol: "A$",
		AnnualRate:     0.06,
		Bands: []feeBand{
			{UpTo: 10000, Fee: 130},
			{UpTo: 20000, Fee: 260},
			{UpTo: 100000, Fee: 400},
		},
		AboveTopFlat:    400,
		LimitationYears: 6,
		SmallClaimsCap:  20000,
		FilingRoute:     "your state civil and administrative tribunal",
	},
	"ca": {
		CurrencySymbol: "C$",
		AnnualRate:     0.05,
		Bands: []feeBand{
			{UpTo: 5000, Fee: 75},
			{UpTo: 35000, Fee: 145},
		},
		AboveTopFlat:    145,
		LimitationYears: 2,
		SmallClaimsCap:  35000,
		FilingRoute:     "your provincial Small Claims Court",
	},
	"other": {
		CurrencySymbol:  "$",
		AnnualRate:      0.05,
		Bands:           []feeBand{{UpTo: 5000, Fee: 50}},
		AboveTopFlat:    100,
		LimitationYears: 3,
		FilingRoute:     "your local small claims court",
	},
}

func jurisdictionFor(country string) jurisdiction {
	if j, ok := jurisdictions[country]; ok {
		return j
	}
	return jurisdictions["other"]
}

// CourtFee looks up the issue fee for a claim amount
func CourtFee(country string, amount float64) float64 {
	j := jurisdictionFor(country)
	for _, b := range j.Bands {
		if amount <= b.UpTo {
			return b.Fee
		}
	}
	if j.AboveTopPct > 0 {
		return roundTo2Decimals(math.Min(amount*j.AboveTopPct, j.AboveTopCap))
	}
	return j.AboveTopFlat
}

// AnnualInterestRate returns the simple interest rate applied to claims
func AnnualInterestRate(country string) float64 {
	return jurisdictionFor(country).AnnualRate
}

func roundTo2Decimals(value float64) float64 {
	return math.Round(value*100) / 100
}
