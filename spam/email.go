package spam

import (
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

// disposableDomains are throwaway mail providers. Subdomains match too.
var disposableDomains = map[string]bool{
	"10minutemail.com":   true,
	"20minutemail.com":   true,
	"discard.email":      true,
	"dispostable.com":    true,
	"emailondeck.com":    true,
	"fakeinbox.com":      true,
	"getairmail.com":     true,
	"getnada.com":        true,
	"guerrillamail.com":  true,
	"guerrillamail.info": true,
	"guerrillamail.net":  true,
	"mail.tm":            true,
	"maildrop.cc":        true,
	"mailinator.com":     true,
	"mailnesia.com":      true,
	"mintemail.com":      true,
	"mohmal.com":         true,
	"mytemp.email":       true,
	"sharklasers.com":    true,
	"spamgourmet.com":    true,
	"temp-mail.org":      true,
	"tempmail.com":       true,
	"tempmail.net":       true,
	"tempmailo.com":      true,
	"throwawaymail.com":  true,
	"trashmail.com":      true,
	"yopmail.com":        true,
	"yopmail.net":        true,
}

var (
	hexLocalPart    = regexp.MustCompile(`^[a-f0-9]{12,}$`)
	digitsLocalPart = regexp.MustCompile(`^[a-z]{0,3}[0-9]{5,}$`)
	separators      = regexp.MustCompile(`[._+\-]`)
)

// SplitEmail lower-cases an address and returns its local part and its
// ASCII (punycode) domain. Plus-addressing tags are dropped from the local part.
func SplitEmail(email string) (local, domain string) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email, ""
	}
	local, domain = email[:at], email[at+1:]

	if plus := strings.Index(local, "+"); plus >= 0 {
		local = local[:plus]
	}

	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		ascii = domain
	}
	return local, strings.TrimSuffix(ascii, ".")
}

// IsDisposableDomain reports whether domain or any parent of it is a known
// throwaway provider
func IsDisposableDomain(domain string) bool {
	domain = strings.ToLower(domain)
	for domain != "" {
		if disposableDomains[domain] {
			return true
		}
		dot := strings.Index(domain, ".")
		if dot < 0 {
			break
		}
		domain = domain[dot+1:]
	}
	return false
}

// LooksRandom reports whether an email local part looks machine generated:
// long hex strings, a short prefix followed by many digits, or a long
// alphanumeric run with several digits and almost no vowels.
func LooksRandom(local string) bool {
	local = strings.ToLower(local)
	if hexLocalPart.MatchString(local) || digitsLocalPart.MatchString(local) {
		return true
	}

	compact := separators.ReplaceAllString(local, "")
	if len(compact) < 8 {
		return false
	}

	var letters, vowels, digits int
	for _, r := range compact {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r >= 'a' && r <= 'z':
			letters++
			if strings.ContainsRune("aeiouy", r) {
				vowels++
			}
		}
	}
	if digits < 3 || letters == 0 {
		return false
	}
	return float64(vowels)/float64(letters) < 0.25
}
