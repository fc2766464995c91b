// Package letters drafts complaint letters. A configured LLM writes the
// first draft; without one, or when the call fails, a fixed template is used.
package letters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/heyimjames/penang-growth-lab-sub002/internal/logger"
)

// ErrInvalidRequest is returned for missing or malformed request fields
var ErrInvalidRequest = errors.New("invalid letter request")

// GeneratedByTemplate marks letters produced without an LLM
const GeneratedByTemplate = "template"

// responseDays is the deadline given to the company in every letter
const responseDays = 14

// Request describes the complaint to write
type Request struct {
	CustomerName   string   `json:"customerName"`
	CompanyName    string   `json:"companyName"`
	IssueType      string   `json:"issueType"`
	Description    string   `json:"description"`
	Amount         float64  `json:"amount"`
	CurrencySymbol string   `json:"currencySymbol"`
	DesiredOutcome string   `json:"desiredOutcome"`
	Laws           []string `json:"laws"`
}

// Letter is a drafted complaint
type Letter struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Markdown    string    `json:"markdown"`
	HTML        string    `json:"html"`
	GeneratedBy string    `json:"generatedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

var issueLabels = map[string]string{
	"faulty":         "a faulty product",
	"not-delivered":  "an order that was never delivered",
	"flight-delay":   "a delayed flight",
	"refund-refused": "a refused refund",
	"billing-error":  "a billing error",
	"cancellation":   "a cancellation",
	"poor-service":   "poor service",
}

// IssueLabel turns an issue key into prose
func IssueLabel(issue string) string {
	if label, ok := issueLabels[issue]; ok {
		return label
	}
	return strings.ReplaceAll(strings.TrimSpace(issue), "-", " ")
}

// Drafter writes letters
type Drafter struct {
	caller  LLMCaller
	timeout time.Duration
	md      goldmark.Markdown
	now     func() time.Time
}

// NewDrafter creates a drafter. caller may be nil to always use the template.
func NewDrafter(caller LLMCaller, timeout time.Duration) *Drafter {
	return &Drafter{
		caller:  caller,
		timeout: timeout,
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
		now:     time.Now,
	}
}

// Validate checks the required fields
func (r Request) Validate() error {
	var missing []string
	if strings.TrimSpace(r.CustomerName) == "" {
		missing = append(missing, "customerName")
	}
	if strings.TrimSpace(r.CompanyName) == "" {
		missing = append(missing, "companyName")
	}
	if strings.TrimSpace(r.IssueType) == "" {
		missing = append(missing, "issueType")
	}
	if strings.TrimSpace(r.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if r.Amount < 0 {
		return fmt.Errorf("%w: amount cannot be negative", ErrInvalidRequest)
	}
	return nil
}

// Draft writes a letter for req
func (d *Drafter) Draft(ctx context.Context, req Request) (*Letter, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("Formal complaint: %s", IssueLabel(req.IssueType))
	markdown, generatedBy := d.generate(ctx, req, subject)

	var html bytes.Buffer
	if err := d.md.Convert([]byte(markdown), &html); err != nil {
		return nil, fmt.Errorf("markdown convert: %w", err)
	}

	return &Letter{
		ID:          uuid.NewString(),
		Subject:     subject,
		Markdown:    markdown,
		HTML:        html.String(),
		GeneratedBy: generatedBy,
		CreatedAt:   d.now(),
	}, nil
}

func (d *Drafter) generate(ctx context.Context, req Request, subject string) (string, string) {
	if d.caller == nil {
		return renderTemplate(req, subject), GeneratedByTemplate
	}

	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	out, err := d.caller.Generate(callCtx, buildPrompt(req))
	if err != nil {
		logger.WarnContext(ctx, "letter generation failed, using template", "model", d.caller.ModelName(), "error", err)
		return renderTemplate(req, subject), GeneratedByTemplate
	}

	out = stripFence(out)
	if out == "" {
		logger.WarnContext(ctx, "letter generation returned nothing, using template", "model", d.caller.ModelName())
		return renderTemplate(req, subject), GeneratedByTemplate
	}
	return out, d.caller.ModelName()
}

// stripFence removes a ```markdown wrapper some models add
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	} else {
		return ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func formatAmount(symbol string, amount float64) string {
	if symbol == "" {
		symbol = "£"
	}
	return fmt.Sprintf("%s%.2f", symbol, amount)
}

func desiredOutcome(req Request) string {
	if o := strings.TrimSpace(req.DesiredOutcome); o != "" {
		return o
	}
	if req.Amount > 0 {
		return "A full refund of " + formatAmount(req.CurrencySymbol, req.Amount)
	}
	return "A full resolution of this complaint"
}

func buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a formal complaint letter from %s to %s about %s.\n\n", req.CustomerName, req.CompanyName, IssueLabel(req.IssueType))
	fmt.Fprintf(&b, "What happened:\n%s\n\n", strings.TrimSpace(req.Description))
	if req.Amount > 0 {
		fmt.Fprintf(&b, "Amount involved: %s\n", formatAmount(req.CurrencySymbol, req.Amount))
	}
	fmt.Fprintf(&b, "Outcome wanted: %s\n", desiredOutcome(req))
	if len(req.Laws) > 0 {
		b.WriteString("Relevant law to cite:\n")
		for _, law := range req.Laws {
			fmt.Fprintf(&b, "- %s\n", law)
		}
	}
	fmt.Fprintf(&b, "\nAsk for a response within %d days and say the customer will escalate if there is none.", responseDays)
	return b.String()
}

func renderTemplate(req Request, subject string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", subject)
	fmt.Fprintf(&b, "Dear %s Customer Services,\n\n", strings.TrimSpace(req.CompanyName))
	fmt.Fprintf(&b, "I am writing to make a formal complaint about %s.\n\n", IssueLabel(req.IssueType))

	b.WriteString("## What happened\n\n")
	b.WriteString(strings.TrimSpace(req.Description))
	b.WriteString("\n\n")

	if len(req.Laws) > 0 {
		b.WriteString("## My rights\n\n")
		for _, law := range req.Laws {
			fmt.Fprintf(&b, "- %s\n", law)
		}
		b.WriteString("\n")
	}

	b.WriteString("## What I am asking for\n\n")
	fmt.Fprintf(&b, "%s.\n\n", strings.TrimSuffix(desiredOutcome(req), "."))
	fmt.Fprintf(&b, "Please respond within %d days. If I do not receive a satisfactory response, I will escalate this complaint without further notice.\n\n", responseDays)

	fmt.Fprintf(&b, "Yours faithfully,\n\n%s\n", strings.TrimSpace(req.CustomerName))
	return b.String()
}
