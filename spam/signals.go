package spam

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/heyimjames/penang-growth-lab-sub002/heuristics"
	"github.com/heyimjames/penang-growth-lab-sub002/userdata"
)

// trustedProviders are OAuth providers that verify the account owner
var trustedProviders = map[string]bool{
	"google":    true,
	"apple":     true,
	"microsoft": true,
	"azure":     true,
	"github":    true,
}

var (
	wordPattern   = regexp.MustCompile(`[\p{L}\p{N}']+`)
	nonAlnum      = regexp.MustCompile(`[^a-z0-9]+`)
	companySuffix = regexp.MustCompile(`\b(ltd|limited|plc|inc|llc|co|corp|uk|group)\b`)
)

const minCountedWord = 3

// stopWords are ignored when measuring word repetition
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "was": true, "with": true,
	"that": true, "this": true, "have": true, "they": true, "not": true,
	"but": true, "are": true, "from": true, "you": true, "had": true,
}

// Record is everything read about one user
type Record struct {
	Account  userdata.Account
	Profile  *userdata.Profile // nil when the user never saved a profile
	Cases    []userdata.Case
	Evidence []userdata.Evidence
}

// ExtractSignals derives the heuristic signals for a user as of now
func ExtractSignals(rec Record, now time.Time) heuristics.Signals {
	local, domain := SplitEmail(rec.Account.Email)

	s := heuristics.Signals{
		EmailDomain:     domain,
		DisposableEmail: IsDisposableDomain(domain),
		RandomLocalPart: LooksRandom(local),
		CaseCount:       int64(len(rec.Cases)),
		EvidenceCount:   int64(len(rec.Evidence)),
	}

	age := now.Sub(rec.Account.CreatedAt)
	if age < 0 {
		age = 0
	}
	s.AccountAgeHours = age.Hours()
	s.AccountAgeDays = age.Hours() / 24

	if !rec.Account.LastSignInAt.IsZero() {
		if gap := rec.Account.LastSignInAt.Sub(rec.Account.CreatedAt); gap > 0 {
			s.SigninGapMinutes = gap.Minutes()
		}
	}

	if rec.Profile != nil {
		s.HasFullName = strings.TrimSpace(rec.Profile.FullName) != ""
		s.HasPhone = strings.TrimSpace(rec.Profile.Phone) != ""
	}

	// a brand new account counts as one day old so the rate stays finite
	s.CasesPerDay = float64(len(rec.Cases)) / math.Max(s.AccountAgeDays, 1)

	descriptions := make([]string, 0, len(rec.Cases))
	companies := make([]string, 0, len(rec.Cases))
	for _, c := range rec.Cases {
		descriptions = append(descriptions, c.Description)
		companies = append(companies, c.CompanyName)
	}
	s.AvgDescriptionLength = averageLength(descriptions)
	s.WordCount, s.TopWordShare = wordRepetition(descriptions)
	s.DistinctCompanies = int64(DistinctCompanies(companies))

	s.OAuthProvider = strings.ToLower(strings.TrimSpace(rec.Account.Provider))
	s.TrustedProvider = trustedProviders[s.OAuthProvider]

	return s
}

// averageLength is the mean trimmed length in characters
func averageLength(texts []string) float64 {
	if len(texts) == 0 {
		return 0
	}
	total := 0
	for _, t := range texts {
		total += utf8.RuneCountInString(strings.TrimSpace(t))
	}
	return float64(total) / float64(len(texts))
}

// wordRepetition counts words of at least three letters that are not stop
// words, and returns that count with the share taken by the most frequent one
func wordRepetition(texts []string) (int64, float64) {
	counts := make(map[string]int)
	total := 0
	for _, t := range texts {
		for _, w := range wordPattern.FindAllString(strings.ToLower(t), -1) {
			if utf8.RuneCountInString(w) < minCountedWord || stopWords[w] {
				continue
			}
			counts[w]++
			total++
		}
	}
	if total == 0 {
		return 0, 0
	}

	top := 0
	for _, n := range counts {
		if n > top {
			top = n
		}
	}
	return int64(total), float64(top) / float64(total)
}

// DistinctCompanies counts company names after grouping spelling variants
// ("Acme Ltd", "ACME", "Acmee") together. Blank names are ignored.
func DistinctCompanies(names []string) int {
	var groups []string
	for _, name := range names {
		key := normalizeCompany(name)
		if key == "" {
			continue
		}

		matched := false
		for _, g := range groups {
			if sameCompany(key, g) {
				matched = true
				break
			}
		}
		if !matched {
			groups = append(groups, key)
		}
	}
	return len(groups)
}

func normalizeCompany(name string) string {
	name = strings.ToLower(name)
	name = companySuffix.ReplaceAllString(name, " ")
	return nonAlnum.ReplaceAllString(name, "")
}

// sameCompany allows a small edit distance that grows with name length
func sameCompany(a, b string) bool {
	if a == b {
		return true
	}

	var thresh int
	l := len(a)
	if len(b) > l {
		l = len(b)
	}
	switch {
	case l <= 4:
		thresh = 0
	case l <= 11:
		thresh = 1
	case l <= 15:
		thresh = 2
	default:
		thresh = int(math.Ceil(float64(l) * 0.15))
	}
	return fuzzy.LevenshteinDistance(a, b) <= thresh
}
