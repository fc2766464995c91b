package smallclaims

import "time"

// EUSmallClaimsLimit is the ceiling of the European Small Claims Procedure
const EUSmallClaimsLimit = 5000.0

// Input describes a money claim the consumer is considering
type Input struct {
	Country          string    `json:"country"`
	ClaimAmount      float64   `json:"claimAmount"`
	IncidentDate     time.Time `json:"incidentDate"`
	SentDemandLetter bool      `json:"sentDemandLetter"`
	CompanyResponded bool      `json:"companyResponded"`
}

// ChecklistItem is one pre-claim step and whether it is done
type ChecklistItem struct {
	Item      string `json:"item"`
	Completed bool   `json:"completed"`
}

// TimelineStep is an expected stage of the claim and its typical duration
type TimelineStep struct {
	Step     string `json:"step"`
	Duration string `json:"duration"`
}

// Result is the cost and readiness estimate for a claim
type Result struct {
	CurrencySymbol      string          `json:"currencySymbol"`
	CourtFee            float64         `json:"courtFee"`
	InterestRate        float64         `json:"interestRate"`
	InterestAmount      float64         `json:"interestAmount"`
	TotalPotentialClaim float64         `json:"totalPotentialClaim"`
	DaysSinceIncident   int             `json:"daysSinceIncident"`
	Checklist           []ChecklistItem `json:"checklist"`
	MissingSteps        []string        `json:"missingSteps"`
	Tips                []string        `json:"tips"`
	Warnings            []string        `json:"warnings"`
	Timeline            []TimelineStep  `json:"timeline"`
	ReadyToClaim        bool            `json:"readyToClaim"`
}
