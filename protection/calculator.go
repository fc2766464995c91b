// Package protection works out which payment protections a buyer can use to
// recover money from a seller: statutory card protections, card scheme
// chargebacks, or weaker provider-specific routes.
package protection

import (
	"fmt"
	"time"

	"github.com/heyimjames/penang-growth-lab-sub002/internal/dates"
)

var currencySymbols = map[string]string{
	"uk": "£",
	"us": "$",
	"eu": "€",
	"au": "A$",
	"ca": "C$",
}

// CurrencySymbol returns the display symbol for a country code, defaulting to "$"
func CurrencySymbol(country string) string {
	if s, ok := currencySymbols[country]; ok {
		return s
	}
	return "$"
}

// IsCard reports whether the payment method goes through a card scheme
func IsCard(method string) bool {
	return method == MethodCreditCard || method == MethodDebitCard
}

type primaryProtection struct {
	name        string
	legalBasis  string
	explanation string
	steps       []string
}

// Calculate assesses the protections available for a purchase as of now
func Calculate(in Input, now time.Time) Result {
	days := dates.DaysSince(in.PurchaseDate, now)
	symbol := CurrencySymbol(in.Country)

	res := Result{
		Amount:            in.Amount,
		CurrencySymbol:    symbol,
		DaysSincePurchase: days,
		Steps:             []string{},
		Warnings:          []string{},
	}

	res.ChargebackEligible = IsCard(in.PaymentMethod) && days < ChargebackWindowDays
	if res.ChargebackEligible {
		remaining := ChargebackWindowDays - days
		res.TimeLimitDays = &remaining
	}

	if p := primaryFor(in, days); p != nil {
		res.PrimaryProtection = p.name
		res.Protection = TierStrong
		res.LegalBasis = p.legalBasis
		res.Explanation = p.explanation
		res.Steps = append(res.Steps, p.steps...)
		if res.ChargebackEligible {
			res.Steps = append(res.Steps, fmt.Sprintf("As a backup, a chargeback can be requested for another %d days.", *res.TimeLimitDays))
		}
	} else if res.ChargebackEligible {
		res.Protection = TierChargeback
		res.Explanation = fmt.Sprintf(
			"You paid by card %d days ago, so you can ask your card issuer for a chargeback under the card scheme rules. You have about %d days left.",
			days, *res.TimeLimitDays)
		res.Steps = append(res.Steps,
			"Contact the seller first and ask for a refund in writing.",
			"Call your card issuer and ask to raise a chargeback for the transaction.",
			"Send the issuer your receipt, the seller's response and any photos.",
			"Note the dispute reference and follow up if you hear nothing within 10 working days.",
		)
	} else {
		res.Protection = TierLimited
		res.Explanation, res.Steps = limitedGuidance(in, days, symbol)
	}

	res.Warnings = append(res.Warnings, warningsFor(in, res)...)
	return res
}

func primaryFor(in Input, days int) *primaryProtection {
	switch in.Country {
	case "uk":
		if in.PaymentMethod == MethodCreditCard && in.Amount >= Section75Min && in.Amount <= Section75Max {
			return &primaryProtection{
				name:       "Section 75",
				legalBasis: "Consumer Credit Act 1974, section 75",
				explanation: fmt.Sprintf(
					"Your credit card provider is equally liable with the seller for purchases between £100.01 and £30,000. Your £%.2f purchase qualifies.",
					in.Amount),
				steps: []string{
					"Write to your credit card provider stating you are making a Section 75 claim.",
					"Include the receipt, card statement and evidence of the problem.",
					"If the provider refuses or takes over 8 weeks, refer it to the Financial Ombudsman Service.",
				},
			}
		}
	case "us":
		if in.PaymentMethod == MethodCreditCard && days <= FCBAWindowDays {
			return &primaryProtection{
				name:        "Fair Credit Billing Act",
				legalBasis:  "Fair Credit Billing Act, 15 U.S.C. § 1666",
				explanation: "Billing errors and goods not accepted or not delivered as agreed can be disputed with your credit card issuer within 60 days of the statement.",
				steps: []string{
					"Send a written billing error notice to the issuer's billing-inquiries address.",
					"Describe the error and include the amount and date of the charge.",
					"You may withhold payment of the disputed amount while the issuer investigates.",
				},
			}
		}
	case "eu":
		if IsCard(in.PaymentMethod) && in.IssueType == IssueUnauthorised {
			return &primaryProtection{
				name:        "PSD2 unauthorised payment refund",
				legalBasis:  "Directive (EU) 2015/2366, Article 73",
				explanation: "Your bank must refund an unauthorised card payment by the end of the next business day after you report it, unless it suspects fraud.",
				steps: []string{
					"Report the unauthorised payment to your bank immediately.",
					"Block the card and request a replacement.",
					"Ask for written confirmation of the refund.",
				},
			}
		}
	case "ca":
		if in.PaymentMethod == MethodCreditCard && in.IssueType == IssueNotReceived {
			return &primaryProtection{
				name:        "Consumer Protection Act chargeback request",
				legalBasis:  "Consumer Protection Act, 2002 (Ontario), section 99",
				explanation: "If goods bought on credit are not delivered, you can ask the card issuer to cancel or reverse the charge.",
				steps: []string{
					"Cancel the agreement with the seller in writing.",
					"Send a written chargeback request to your card issuer within 60 days of the delivery date.",
					"The issuer must acknowledge within 30 days and resolve within 90 days.",
				},
			}
		}
	}
	return nil
}

func limitedGuidance(in Input, days int, symbol string) (string, []string) {
	switch in.PaymentMethod {
	case MethodPayPal:
		steps := []string{
			"Open a dispute in the PayPal Resolution Centre.",
			"Escalate the dispute to a claim if the seller does not resolve it within 20 days.",
		}
		if days > 180 {
			return "PayPal Buyer Protection only covers disputes opened within 180 days of payment, so the window has likely closed.",
				[]string{"Complain to the seller directly and consider small claims court."}
		}
		return "PayPal Buyer Protection may refund you if the item did not arrive or was significantly not as described.", steps
	case MethodBankTransfer:
		return "Bank transfers have no chargeback rights. Your bank can try to recall the payment, and scam payments may be reimbursable.",
			[]string{
				"Contact your bank immediately and ask for a payment recall.",
				"If you were tricked into paying, report it as an authorised push payment scam.",
				"Send the seller a formal letter before action.",
			}
	case MethodBNPL:
		return "Buy now pay later providers run their own dispute process, which usually pauses repayments while it is open.",
			[]string{
				"Raise a dispute in the provider's app.",
				"Upload evidence of the problem and your contact with the seller.",
				"Keep paying any undisputed instalments to avoid fees.",
			}
	case MethodCreditCard, MethodDebitCard:
		explanation := fmt.Sprintf(
			"The %d-day chargeback window has closed (%d days since purchase). You can still complain to your card issuer, but recovery of %s%.2f is not guaranteed.",
			ChargebackWindowDays, days, symbol, in.Amount)
		return explanation,
			[]string{
				"Ask your card issuer whether a late dispute can be considered.",
				"Send the seller a formal letter before action.",
				"Consider small claims court for the amount owed.",
			}
	default:
		return "Your payment method has no built-in buyer protection. Your main route is a formal complaint and, if needed, court action.",
			[]string{
				"Send the seller a formal complaint in writing.",
				"Report the seller to your local consumer protection body.",
				"Consider small claims court.",
			}
	}
}

func warningsFor(in Input, res Result) []string {
	var warnings []string

	if in.IssueType == IssueCompanyInsolvency {
		warnings = append(warnings, "The company may be insolvent: payment protection could be your only route to a refund, so claim quickly and register as a creditor with the administrator.")
	}

	if res.ChargebackEligible && *res.TimeLimitDays <= ClosingSoonDays {
		warnings = append(warnings, fmt.Sprintf("Only %d days remain to raise a chargeback.", *res.TimeLimitDays))
	}

	if in.Country == "uk" && in.PaymentMethod == MethodCreditCard && res.PrimaryProtection == "" {
		if in.Amount < Section75Min {
			warnings = append(warnings, "Section 75 does not cover purchases of £100 or less.")
		} else if in.Amount > Section75Max {
			warnings = append(warnings, "Section 75 does not cover purchases over £30,000.")
		}
	}

	return warnings
}
