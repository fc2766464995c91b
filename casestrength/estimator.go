// Package casestrength estimates how strong a consumer complaint is from the
// answers to a short questionnaire.
package casestrength

import (
	"strconv"
	"strings"
)

var companyPoints = map[string]int{
	"airline":      15,
	"financial":    15,
	"retailer":     10,
	"utility":      10,
	"telecom":      10,
	"subscription": 5,
}

var issuePoints = map[string]int{
	"faulty":         20,
	"not-delivered":  20,
	"flight-delay":   20,
	"refund-refused": 15,
	"billing-error":  15,
	"cancellation":   10,
	"poor-service":   5,
}

var timeFramePoints = map[string]int{
	"under-30-days": 20,
	"1-6-months":    10,
	"6-12-months":   0,
	"1-6-years":     -5,
	"over-6-years":  -10,
}

// Analyze scores a questionnaire and collects the laws and next steps that
// apply to it. Unknown option keys contribute nothing to the score.
func Analyze(state QuizState) Result {
	score := BaseScore
	score += companyPoints[state.CompanyType]
	score += issuePoints[state.IssueType]
	score += timeFramePoints[state.TimeFrame]

	amount := ParseAmount(state.Amount)
	switch {
	case amount > 1000:
		score += 15
	case amount > 100:
		score += 10
	}

	score = clamp(score, MinScore, MaxScore)

	return Result{
		Strength:        StrengthFor(score),
		Score:           score,
		Laws:            applicableLaws(state, amount),
		Recommendations: recommendations(state, amount),
		TimeWarning:     timeWarning(state.TimeFrame),
	}
}

// StrengthFor maps a clamped score onto its label
func StrengthFor(score int) Strength {
	switch {
	case score >= StrongAtLeast:
		return StrengthStrong
	case score < WeakBelow:
		return StrengthWeak
	default:
		return StrengthModerate
	}
}

// ParseAmount reads a user-typed money amount such as "£1,250.50".
// Anything that does not parse as a number yields 0.
func ParseAmount(raw string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, raw)
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

func applicableLaws(state QuizState, amount float64) []Law {
	laws := []Law{}

	switch state.IssueType {
	case "faulty", "refund-refused":
		laws = append(laws, Law{
			Name:        "Consumer Rights Act 2015",
			Description: "Goods must be of satisfactory quality, fit for purpose and as described.",
			Relevance:   "You can ask for a refund within 30 days, or a repair or replacement after that.",
		})
	case "not-delivered":
		laws = append(laws, Law{
			Name:        "Consumer Rights Act 2015, section 28",
			Description: "Goods must be delivered within the agreed time, or within 30 days if none was agreed.",
			Relevance:   "If delivery was essential by a date and missed, you can treat the contract as ended.",
		}, Law{
			Name:        "Consumer Contracts Regulations 2013",
			Description: "Online and distance purchases carry a 14-day cancellation right.",
			Relevance:   "You may be able to cancel and receive a full refund including standard delivery.",
		})
	case "poor-service":
		laws = append(laws, Law{
			Name:        "Consumer Rights Act 2015, section 49",
			Description: "Services must be performed with reasonable care and skill.",
			Relevance:   "You can ask for the service to be repeated or for a price reduction.",
		})
	case "flight-delay":
		laws = append(laws, Law{
			Name:        "UK261 (retained Regulation EC 261/2004)",
			Description: "Fixed compensation for delays over 3 hours, cancellations and denied boarding.",
			Relevance:   "Compensation of up to £520 per passenger depending on flight distance.",
		})
	case "billing-error":
		laws = append(laws, Law{
			Name:        "Consumer Protection from Unfair Trading Regulations 2008",
			Description: "Traders must not mislead consumers about prices or charges.",
			Relevance:   "Incorrect charges can be challenged and refunded.",
		})
	}

	switch state.CompanyType {
	case "financial":
		laws = append(laws, Law{
			Name:        "Financial Ombudsman Service",
			Description: "Free independent dispute resolution for financial services complaints.",
			Relevance:   "After 8 weeks, or a final response, you can refer the complaint.",
		})
	case "telecom":
		laws = append(laws, Law{
			Name:        "Ofcom ADR schemes",
			Description: "Communications providers must belong to an approved ADR scheme.",
			Relevance:   "After 8 weeks you can escalate to the Communications Ombudsman or CISAS.",
		})
	case "utility":
		laws = append(laws, Law{
			Name:        "Energy Ombudsman",
			Description: "Energy suppliers must resolve complaints within 8 weeks.",
			Relevance:   "Unresolved complaints can be escalated free of charge.",
		})
	case "airline":
		if state.IssueType != "flight-delay" {
			laws = append(laws, Law{
				Name:        "UK261 (retained Regulation EC 261/2004)",
				Description: "Passenger rights for disrupted flights including care and rerouting.",
				Relevance:   "Airlines must offer refunds or rerouting for cancelled flights.",
			})
		}
	}

	if amount > 100 && amount <= 30000 {
		laws = append(laws, Law{
			Name:        "Section 75, Consumer Credit Act 1974",
			Description: "Your credit card provider is jointly liable for purchases between £100 and £30,000.",
			Relevance:   "If you paid any part by credit card you can claim from the card provider.",
		})
	}

	return laws
}

func recommendations(state QuizState, amount float64) []string {
	recs := []string{}

	switch state.AlreadyComplained {
	case "no", "":
		recs = append(recs, "Send a formal written complaint to the company and keep a copy.")
	case "yes-ignored":
		recs = append(recs, "Send a final letter before action giving 14 days to respond.")
	case "yes-rejected":
		recs = append(recs, "Ask for a deadlock letter so you can escalate to an ombudsman or ADR scheme.")
	}

	switch state.CompanyType {
	case "financial", "telecom", "utility":
		recs = append(recs, "If the complaint is unresolved after 8 weeks, escalate to the relevant ombudsman.")
	}

	if amount > 100 {
		recs = append(recs, "Check whether you paid by credit card; a Section 75 claim may be faster than the company.")
	} else if amount > 0 {
		recs = append(recs, "If you paid by card, ask your bank about a chargeback.")
	}

	switch state.TimeFrame {
	case "under-30-days":
		recs = append(recs, "Act now: the 30-day short-term right to reject is still available.")
	case "1-6-years":
		recs = append(recs, "Gather receipts and correspondence before records are lost.")
	}

	if amount > 1000 {
		recs = append(recs, "Consider the small claims court if the company does not settle.")
	}

	recs = append(recs, "Keep photos, receipts and a timeline of every contact.")
	return recs
}

func timeWarning(timeFrame string) string {
	switch timeFrame {
	case "over-6-years":
		return "Claims older than 6 years are usually time-barred under the Limitation Act 1980."
	case "1-6-years":
		return "You are within the 6-year limitation period, but act soon."
	default:
		return ""
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
