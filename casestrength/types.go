package casestrength

// Strength is the label derived from a case score
type Strength string

const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
)

// Score bounds and strength thresholds
const (
	BaseScore     = 50
	MinScore      = 15
	MaxScore      = 95
	StrongAtLeast = 70
	WeakBelow     = 40
)

// QuizState holds the answers from the guided case strength questionnaire.
// Values are the option keys submitted by the form (e.g. "airline", "faulty").
type QuizState struct {
	CompanyType       string `json:"companyType"`
	IssueType         string `json:"issueType"`
	TimeFrame         string `json:"timeFrame"`
	Amount            string `json:"amount"`
	AlreadyComplained string `json:"alreadyComplained"`
}

// Law is a legal citation that may support the consumer's case
type Law struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Relevance   string `json:"relevance"`
}

// Result is the outcome of analysing a questionnaire
type Result struct {
	Strength        Strength `json:"strength"`
	Score           int      `json:"score"`
	Laws            []Law    `json:"laws"`
	Recommendations []string `json:"recommendations"`
	TimeWarning     string   `json:"timeWarning,omitempty"`
}
