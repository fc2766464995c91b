package heuristics

import "errors"

// Defaults is the built-in heuristic table used to seed a store
func Defaults() []*Heuristic {
	return []*Heuristic{
		{
			ID:          "default-disposable-email",
			Flag:        "disposable_email",
			Description: "Email address uses a disposable or temporary mail domain",
			Expression:  `signals.disposable_email`,
			Points:      30,
			Active:      true,
		},
		{
			ID:          "default-random-email",
			Flag:        "random_email",
			Description: "Email local part looks randomly generated",
			Expression:  `signals.random_local_part`,
			Points:      15,
			Active:      true,
		},
		{
			ID:          "default-rapid-case-creation",
			Flag:        "rapid_case_creation",
			Description: "Several cases were created very soon after signing up",
			Expression:  `signals.case_count >= 3 && (signals.account_age_hours < 24.0 || signals.cases_per_day > 5.0)`,
			Points:      20,
			Active:      true,
		},
		{
			ID:          "default-never-returned",
			Flag:        "never_returned",
			Description: "Account has not signed in again since the day it was created",
			Expression:  `signals.account_age_days > 7.0 && signals.signin_gap_minutes < 10.0`,
			Points:      10,
			Active:      true,
		},
		{
			ID:          "default-empty-profile",
			Flag:        "empty_profile",
			Description: "Profile has no name and no phone number",
			Expression:  `!signals.has_full_name && !signals.has_phone`,
			Points:      10,
			Active:      true,
		},
		{
			ID:          "default-minimal-complaint-text",
			Flag:        "minimal_complaint_text",
			Description: "Complaint descriptions are very short for the number of cases",
			Expression:  `signals.case_count > 0 && signals.avg_description_length < 50.0`,
			Points:      15,
			Active:      true,
		},
		{
			ID:          "default-repetitive-text",
			Flag:        "repetitive_text",
			Description: "A single word dominates the complaint text",
			Expression:  `signals.word_count >= 10 && signals.top_word_share > 0.3`,
			Points:      15,
			Active:      true,
		},
		{
			ID:          "default-no-evidence",
			Flag:        "no_evidence",
			Description: "Multiple cases but no evidence uploaded",
			Expression:  `signals.case_count >= 2 && signals.evidence_count == 0`,
			Points:      10,
			Active:      true,
		},
		{
			ID:          "default-single-company",
			Flag:        "single_company_targeting",
			Description: "All cases target the same company",
			Expression:  `signals.case_count >= 3 && signals.distinct_companies == 1`,
			Points:      10,
			Active:      true,
		},
		{
			ID:          "default-trusted-oauth",
			Flag:        "trusted_oauth",
			Description: "Signed up through a trusted OAuth provider",
			Expression:  `signals.trusted_provider`,
			Points:      -20,
			Active:      true,
		},
	}
}

// Seed adds the default heuristics that are not already present in the store
func Seed(store Store) error {
	for _, h := range Defaults() {
		_, err := store.Get(h.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := store.Add(h); err != nil {
			return err
		}
	}
	return nil
}
