// Package smallclaims estimates the court fee, statutory interest and
// readiness of a consumer money claim.
package smallclaims

import (
	"fmt"
	"time"

	"github.com/heyimjames/penang-growth-lab-sub002/internal/dates"
)

// Calculate estimates a claim as of now. Incident dates in the future accrue
// no interest.
func Calculate(in Input, now time.Time) Result {
	j := jurisdictionFor(in.Country)
	days := dates.DaysSince(in.IncidentDate, now)

	fee := CourtFee(in.Country, in.ClaimAmount)
	interest := roundTo2Decimals(in.ClaimAmount * (j.AnnualRate / 365) * float64(days))

	withinEULimit := in.Country != "eu" || in.ClaimAmount <= EUSmallClaimsLimit

	res := Result{
		CurrencySymbol:      j.CurrencySymbol,
		CourtFee:            fee,
		InterestRate:        j.AnnualRate,
		InterestAmount:      interest,
		TotalPotentialClaim: in.ClaimAmount + interest + fee,
		DaysSinceIncident:   days,
		Checklist:           checklistFor(in, withinEULimit),
		MissingSteps:        []string{},
		Tips:                []string{},
		Warnings:            []string{},
		Timeline:            timelineFor(in.Country),
		ReadyToClaim:        in.SentDemandLetter && withinEULimit,
	}

	if !in.SentDemandLetter {
		res.MissingSteps = append(res.MissingSteps, "Send a formal letter before claim giving the company 14 days to pay.")
	}
	if !withinEULimit {
		res.MissingSteps = append(res.MissingSteps, fmt.Sprintf(
			"Your claim of €%.2f exceeds the €%.0f European Small Claims limit; reduce the claim or use national procedures.",
			in.ClaimAmount, EUSmallClaimsLimit))
	}

	res.Tips = append(res.Tips, tipsFor(in, j)...)

	if j.LimitationYears > 0 && days > j.LimitationYears*365 {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"The incident was over %d years ago and the claim may be time-barred.", j.LimitationYears))
	}
	if j.SmallClaimsCap > 0 && in.ClaimAmount > j.SmallClaimsCap {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"Claims above %s%.0f usually fall outside the small claims track, so legal costs may be recoverable against you.",
			j.CurrencySymbol, j.SmallClaimsCap))
	}

	return res
}

func checklistFor(in Input, withinEULimit bool) []ChecklistItem {
	switch in.Country {
	case "uk":
		return []ChecklistItem{
			{Item: "Send a letter before claim under the Pre-Action Protocol", Completed: in.SentDemandLetter},
			{Item: "Allow at least 14 days for a response", Completed: in.SentDemandLetter},
			{Item: "Consider mediation or an ombudsman", Completed: in.CompanyResponded},
			{Item: "Gather receipts, photos and correspondence", Completed: false},
			{Item: "File the claim on Money Claim Online", Completed: false},
		}
	case "eu":
		return []ChecklistItem{
			{Item: "Send a formal demand to the trader", Completed: in.SentDemandLetter},
			{Item: "Claim is within the €5,000 limit", Completed: withinEULimit},
			{Item: "Confirm the trader is based in another EU member state", Completed: false},
			{Item: "Complete Form A of the European Small Claims Procedure", Completed: false},
			{Item: "Ask your European Consumer Centre for free help", Completed: false},
		}
	case "us":
		return []ChecklistItem{
			{Item: "Send a written demand letter", Completed: in.SentDemandLetter},
			{Item: "Check the small claims limit for your state", Completed: false},
			{Item: "Identify the business's registered agent for service", Completed: false},
			{Item: "File the claim with the county clerk", Completed: false},
		}
	default:
		return []ChecklistItem{
			{Item: "Send a written demand letter", Completed: in.SentDemandLetter},
			{Item: "Gather evidence of the purchase and the problem", Completed: false},
			{Item: "Check the small claims procedure for your region", Completed: false},
			{Item: "File the claim", Completed: false},
		}
	}
}

func tipsFor(in Input, j jurisdiction) []string {
	tips := []string{}
	switch {
	case in.SentDemandLetter && in.CompanyResponded:
		tips = append(tips, "Review their response carefully: courts expect you to consider any reasonable settlement offer.")
	case in.SentDemandLetter:
		tips = append(tips, "No response yet: once the deadline in your letter passes you can issue the claim.")
	default:
		tips = append(tips, "A clear demand letter often settles the dispute without going to court.")
	}
	tips = append(tips,
		fmt.Sprintf("File through %s.", j.FilingRoute),
		fmt.Sprintf("You can usually claim simple interest at %.0f%% a year from the date of loss.", j.AnnualRate*100),
		"The court fee is normally added to what the company owes if you win.",
	)
	return tips
}

func timelineFor(country string) []TimelineStep {
	switch country {
	case "uk":
		return []TimelineStep{
			{Step: "Letter before claim response period", Duration: "14-30 days"},
			{Step: "Defendant responds to the claim", Duration: "14-28 days"},
			{Step: "Mediation appointment", Duration: "4-8 weeks"},
			{Step: "Small claims hearing", Duration: "6-9 months"},
		}
	case "eu":
		return []TimelineStep{
			{Step: "Court serves Form A on the trader", Duration: "14 days"},
			{Step: "Trader replies", Duration: "30 days"},
			{Step: "Judgment", Duration: "30 days after the reply"},
		}
	default:
		return []TimelineStep{
			{Step: "Demand letter response period", Duration: "14 days"},
			{Step: "Claim served on the business", Duration: "2-4 weeks"},
			{Step: "Hearing", Duration: "1-3 months"},
		}
	}
}
