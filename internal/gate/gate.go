// Package gate deterministically audits a composed outbound email before it
// may leave the system. It is the single quality gate: pure functions, no
// calls to any text-generation service, so the same input always produces
// the same verdict.
package gate

import (
	"github.com/shopspring/decimal"
)

// Severity ranks a failed check.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Check names identify which audit produced a failure.
const (
	CheckMonetaryMatch       = "monetary_match"
	CheckDeliverableCoverage = "deliverable_coverage"
	CheckHallucination       = "hallucinated_commitment"
	CheckForbiddenPhrase     = "forbidden_phrase"
	CheckMinimumLength       = "minimum_length"
)

// Failure is one failed check with the literal matched text as evidence,
// suitable for direct inclusion in an escalation message.
type Failure struct {
	Check    string   `json:"check"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Evidence string   `json:"evidence"`
}

// Result is the outcome of running all five checks. It is never partially
// constructed: every check runs and failures are concatenated, so a caller
// sees every problem at once.
type Result struct {
	Passed   bool      `json:"passed"`
	Failures []Failure `json:"failures"`
}

// Errors returns only the error-severity failures.
func (r Result) Errors() []Failure {
	var errs []Failure
	for _, f := range r.Failures {
		if f.Severity == SeverityError {
			errs = append(errs, f)
		}
	}
	return errs
}

// Input is the composed email plus the negotiated facts it must agree with.
type Input struct {
	Body         string
	ExpectedCPM  decimal.Decimal
	Deliverables []string
}

// Validate runs all five checks against the email. Warnings never block
// sending; Passed is true iff there are zero error-severity failures.
func Validate(in Input) Result {
	var failures []Failure

	failures = append(failures, checkMonetaryMatch(in.Body, in.ExpectedCPM)...)
	failures = append(failures, checkDeliverableCoverage(in.Body, in.Deliverables)...)
	failures = append(failures, checkHallucination(in.Body)...)
	failures = append(failures, checkForbiddenPhrases(in.Body)...)
	failures = append(failures, checkMinimumLength(in.Body)...)

	passed := true
	for _, f := range failures {
		if f.Severity == SeverityError {
			passed = false
			break
		}
	}

	return Result{Passed: passed, Failures: failures}
}
