package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/heyimjames/penang-growth-lab-sub002/spam"
	"github.com/heyimjames/penang-growth-lab-sub002/userdata"
)

// dateLayouts are the accepted forms for purchase and incident dates
var dateLayouts = []string{"2006-01-02", time.RFC3339}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC3339", raw)
}

// PaymentProtectionRequest is the body of POST /tools/payment-protection
type PaymentProtectionRequest struct {
	Country       string  `json:"country" example:"uk"`
	PaymentMethod string  `json:"paymentMethod" example:"credit-card"`
	Amount        float64 `json:"amount" example:"450"`
	PurchaseDate  string  `json:"purchaseDate" example:"2024-03-01"`
	IssueType     string  `json:"issueType" example:"faulty"`
}

// SmallClaimsRequest is the body of POST /tools/small-claims
type SmallClaimsRequest struct {
	Country          string  `json:"country" example:"uk"`
	ClaimAmount      float64 `json:"claimAmount" example:"2000"`
	IncidentDate     string  `json:"incidentDate" example:"2023-03-01"`
	SentDemandLetter bool    `json:"sentDemandLetter"`
	CompanyResponded bool    `json:"companyResponded"`
}

// HeuristicRequest is the body for creating or replacing a heuristic
type HeuristicRequest struct {
	ID          string `json:"id,omitempty" example:"disposable-email"`
	Flag        string `json:"flag" example:"disposable_email"`
	Description string `json:"description" example:"Disposable email domain"`
	Expression  string `json:"expression" example:"signals.disposable_email"`
	Points      int    `json:"points" example:"40"`
	Active      *bool  `json:"active,omitempty" example:"true"`
}

// SpamAnalysisResponse wraps an analysis with the success marker the admin
// dashboard expects
type SpamAnalysisResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	*spam.Analysis
}

// FlaggedResponse lists profiles at or above a score
type FlaggedResponse struct {
	MinScore int                `json:"minScore"`
	Users    []userdata.Flagged `json:"users"`
}

// ErrorResponse is returned on failures
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid request body"`
	Details string `json:"details,omitempty"`
}
