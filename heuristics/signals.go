package heuristics

// Signals are the account features heuristics are written against. They are
// exposed to expressions as the `signals` map using the json names below, e.g.
// `signals.case_count >= 3 && signals.distinct_companies == 1`.
type Signals struct {
	EmailDomain     string `json:"email_domain"`
	DisposableEmail bool   `json:"disposable_email"`
	RandomLocalPart bool   `json:"random_local_part"`

	AccountAgeHours  float64 `json:"account_age_hours"`
	AccountAgeDays   float64 `json:"account_age_days"`
	SigninGapMinutes float64 `json:"signin_gap_minutes"`

	HasFullName bool `json:"has_full_name"`
	HasPhone    bool `json:"has_phone"`

	CaseCount            int64   `json:"case_count"`
	CasesPerDay          float64 `json:"cases_per_day"`
	AvgDescriptionLength float64 `json:"avg_description_length"`
	WordCount            int64   `json:"word_count"`
	TopWordShare         float64 `json:"top_word_share"`
	EvidenceCount        int64   `json:"evidence_count"`
	DistinctCompanies    int64   `json:"distinct_companies"`

	OAuthProvider   string `json:"oauth_provider"`
	TrustedProvider bool   `json:"trusted_provider"`
}

// Facts converts the signals into the activation map used by CEL programs.
// Integer signals stay int64 and ratios stay float64 so expressions compare
// like-typed numbers.
func (s Signals) Facts() map[string]any {
	return map[string]any{
		"signals": map[string]any{
			"email_domain":           s.EmailDomain,
			"disposable_email":       s.DisposableEmail,
			"random_local_part":      s.RandomLocalPart,
			"account_age_hours":      s.AccountAgeHours,
			"account_age_days":       s.AccountAgeDays,
			"signin_gap_minutes":     s.SigninGapMinutes,
			"has_full_name":          s.HasFullName,
			"has_phone":              s.HasPhone,
			"case_count":             s.CaseCount,
			"cases_per_day":          s.CasesPerDay,
			"avg_description_length": s.AvgDescriptionLength,
			"word_count":             s.WordCount,
			"top_word_share":         s.TopWordShare,
			"evidence_count":         s.EvidenceCount,
			"distinct_companies":     s.DistinctCompanies,
			"oauth_provider":         s.OAuthProvider,
			"trusted_provider":       s.TrustedProvider,
		},
	}
}
