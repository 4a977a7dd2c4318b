package gate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// minBodyLength rejects almost-certainly-malformed composer output.
const minBodyLength = 100

// dollarAmount matches dollar-amount-shaped tokens: $45, $1,250.50, $96.00,
// $1500. Plain digit runs are accepted so unseparated amounts are never
// truncated at the first three digits.
var dollarAmount = regexp.MustCompile(`\$\s?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{1,2})?`)

// checkMonetaryMatch extracts every dollar amount from the body; each one must
// normalize to exactly the expected negotiated rate. Zero tolerance: a single
// wrong number in a sent offer is worse than blocking the send.
func checkMonetaryMatch(body string, expected decimal.Decimal) []Failure {
	var failures []Failure
	for _, match := range dollarAmount.FindAllString(body, -1) {
		normalized := strings.NewReplacer("$", "", ",", "", " ", "").Replace(match)
		amount, err := decimal.NewFromString(normalized)
		if err != nil || !amount.Equal(expected) {
			failures = append(failures, Failure{
				Check:    CheckMonetaryMatch,
				Severity: SeverityError,
				Message:  fmt.Sprintf("email quotes %s but the negotiated rate is $%s", match, expected.StringFixed(2)),
				Evidence: match,
			})
		}
	}
	return failures
}

// checkDeliverableCoverage flags deliverables whose keywords are absent from
// the body. Paraphrasing is expected, so a miss is a warning, not an error.
func checkDeliverableCoverage(body string, deliverables []string) []Failure {
	var failures []Failure
	lower := strings.ToLower(body)

	for _, deliverable := range deliverables {
		if deliverableMentioned(lower, deliverable) {
			continue
		}
		failures = append(failures, Failure{
			Check:    CheckDeliverableCoverage,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("expected deliverable %q is not mentioned in the email", deliverable),
			Evidence: deliverable,
		})
	}
	return failures
}

// deliverableMentioned checks whether any significant keyword of the
// deliverable appears in the lowercased body.
func deliverableMentioned(lowerBody, deliverable string) bool {
	for _, token := range strings.Fields(strings.ToLower(deliverable)) {
		token = strings.Trim(token, ".,;:!?")
		if len(token) < 3 {
			continue
		}
		if strings.Contains(lowerBody, token) {
			return true
		}
	}
	return false
}

// hallucinationPatterns match commitments the negotiation context never
// authorized: extra free work, guarantees, exclusivity.
var hallucinationPatterns = []string{
	"free of charge",
	"at no cost",
	"at no extra cost",
	"complimentary",
	"we guarantee",
	"guaranteed results",
	"guaranteed views",
	"exclusive partnership",
	"exclusivity",
	"throw in",
	"as a bonus",
	"additional free",
	"extra deliverable",
}

func checkHallucination(body string) []Failure {
	return scanPhrases(body, hallucinationPatterns, CheckHallucination,
		"email promises a commitment the negotiation never authorized")
}

// forbiddenPhrases is the fixed deny-list of off-brand or legally risky language.
var forbiddenPhrases = []string{
	"legally binding",
	"this constitutes a contract",
	"act now",
	"limited time offer",
	"last chance",
	"take it or leave it",
	"final offer",
	"best and final",
	"off the record",
	"between us",
}

func checkForbiddenPhrases(body string) []Failure {
	return scanPhrases(body, forbiddenPhrases, CheckForbiddenPhrase,
		"email contains off-brand or legally risky language")
}

// scanPhrases finds every phrase from the list in the body, case-insensitive,
// and reports each match with the literal matched text.
func scanPhrases(body string, phrases []string, check, message string) []Failure {
	var failures []Failure
	lower := strings.ToLower(body)

	for _, phrase := range phrases {
		idx := strings.Index(lower, phrase)
		if idx < 0 {
			continue
		}
		failures = append(failures, Failure{
			Check:    check,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s: %q", message, phrase),
			Evidence: body[idx : idx+len(phrase)],
		})
	}
	return failures
}

func checkMinimumLength(body string) []Failure {
	trimmed := strings.TrimSpace(body)
	if len(trimmed) >= minBodyLength {
		return nil
	}
	return []Failure{{
		Check:    CheckMinimumLength,
		Severity: SeverityError,
		Message:  fmt.Sprintf("email body is %d characters, below the %d character minimum", len(trimmed), minBodyLength),
		Evidence: trimmed,
	}}
}
