package gate

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

const cleanBody = `Hi Jordan,

Thanks so much for getting back to us! We'd love to move forward at $45 per video
for one sponsored video on your channel. Let us know if that works and we'll get
the brief over to you right away.

Best,
The DealForge Team`

func TestValidateCleanEmailPasses(t *testing.T) {
	res := Validate(Input{
		Body:         cleanBody,
		ExpectedCPM:  d("45"),
		Deliverables: []string{"1 video"},
	})

	if !res.Passed {
		t.Fatalf("expected pass, got failures: %+v", res.Failures)
	}
	if len(res.Failures) != 0 {
		t.Errorf("expected zero failures, got %+v", res.Failures)
	}
}

func TestMonetaryMismatchIsAlwaysError(t *testing.T) {
	body := strings.Replace(cleanBody, "$45", "$500", 1)

	res := Validate(Input{Body: body, ExpectedCPM: d("450"), Deliverables: []string{"1 video"}})

	if res.Passed {
		t.Fatal("expected failure for wrong dollar amount")
	}
	errs := res.Errors()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %+v", errs)
	}
	if errs[0].Check != CheckMonetaryMatch {
		t.Errorf("check = %q, want monetary_match", errs[0].Check)
	}
	if errs[0].Evidence != "$500" {
		t.Errorf("evidence = %q, want $500", errs[0].Evidence)
	}
}

func TestMonetaryMatchNormalizesFormatting(t *testing.T) {
	body := `Hello! We can offer $1,250.00 for the three sponsored posts we discussed.
That is $1,250.00 total, paid on delivery. Looking forward to working together on this campaign.`

	res := Validate(Input{Body: body, ExpectedCPM: d("1250"), Deliverables: []string{"3 posts"}})

	for _, f := range res.Errors() {
		if f.Check == CheckMonetaryMatch {
			t.Errorf("unexpected monetary failure: %+v", f)
		}
	}
}

func TestMonetaryMatchAcceptsUnseparatedAmounts(t *testing.T) {
	// "$1500" must be read as fifteen hundred, not truncated at "$150".
	body := `Hello! We can offer $1500 for the three sponsored posts we discussed.
That covers everything, paid on delivery. Looking forward to working together on this campaign.`

	res := Validate(Input{Body: body, ExpectedCPM: d("1500"), Deliverables: []string{"3 posts"}})

	for _, f := range res.Errors() {
		if f.Check == CheckMonetaryMatch {
			t.Errorf("unexpected monetary failure: %+v", f)
		}
	}
}

func TestEveryExtraAmountReported(t *testing.T) {
	body := `We can do $45 per video, plus $10 for boosting and a $5 handling fee.
All payments will be made within thirty days of the content going live on your channel.`

	res := Validate(Input{Body: body, ExpectedCPM: d("45"), Deliverables: []string{"1 video"}})

	monetary := 0
	for _, f := range res.Errors() {
		if f.Check == CheckMonetaryMatch {
			monetary++
		}
	}
	if monetary != 2 {
		t.Errorf("expected 2 monetary errors ($10, $5), got %d: %+v", monetary, res.Failures)
	}
}

func TestDeliverableMissIsWarningOnly(t *testing.T) {
	body := `Hi! We'd be thrilled to collaborate at $45 for the content we discussed.
Let us know if that rate works for you and we'll send the creative brief right over.`

	res := Validate(Input{Body: body, ExpectedCPM: d("45"), Deliverables: []string{"2 reels"}})

	if !res.Passed {
		t.Fatalf("warnings must not block sending, got errors: %+v", res.Errors())
	}
	if len(res.Failures) != 1 {
		t.Fatalf("expected 1 warning, got %+v", res.Failures)
	}
	f := res.Failures[0]
	if f.Check != CheckDeliverableCoverage || f.Severity != SeverityWarning {
		t.Errorf("unexpected failure: %+v", f)
	}
}

func TestHallucinatedCommitmentDetected(t *testing.T) {
	body := cleanBody + "\nWe'll also include an extra post free of charge as a bonus."

	res := Validate(Input{Body: body, ExpectedCPM: d("45"), Deliverables: []string{"1 video"}})

	if res.Passed {
		t.Fatal("expected failure for hallucinated commitment")
	}
	var checks []string
	for _, f := range res.Errors() {
		checks = append(checks, f.Check)
		if f.Evidence == "" {
			t.Errorf("failure %q has no evidence", f.Check)
		}
	}
	found := false
	for _, c := range checks {
		if c == CheckHallucination {
			found = true
		}
	}
	if !found {
		t.Errorf("expected hallucinated_commitment among %v", checks)
	}
}

func TestForbiddenPhraseDetected(t *testing.T) {
	body := cleanBody + "\nThis is our final offer, so act now."

	res := Validate(Input{Body: body, ExpectedCPM: d("45"), Deliverables: []string{"1 video"}})

	if res.Passed {
		t.Fatal("expected failure for forbidden phrase")
	}
	forbidden := 0
	for _, f := range res.Errors() {
		if f.Check == CheckForbiddenPhrase {
			forbidden++
		}
	}
	if forbidden != 2 {
		t.Errorf("expected 2 forbidden-phrase errors, got %d", forbidden)
	}
}

func TestShortBodyRejected(t *testing.T) {
	res := Validate(Input{Body: "ok $45", ExpectedCPM: d("45"), Deliverables: nil})

	if res.Passed {
		t.Fatal("expected failure for short body")
	}
	found := false
	for _, f := range res.Errors() {
		if f.Check == CheckMinimumLength {
			found = true
		}
	}
	if !found {
		t.Errorf("expected minimum_length failure, got %+v", res.Failures)
	}
}

func TestAllChecksRunFailuresConcatenated(t *testing.T) {
	// Wrong amount AND forbidden phrase in one short-ish email: every problem
	// must surface at once, not just the first.
	body := `Hi! We can pay $99 for the collab. This is our final offer. We would love
to see the content live by the end of the month, thanks so much for considering us.`

	res := Validate(Input{Body: body, ExpectedCPM: d("45"), Deliverables: []string{"1 video"}})

	var checks []string
	for _, f := range res.Failures {
		checks = append(checks, f.Check)
	}
	for _, want := range []string{CheckMonetaryMatch, CheckForbiddenPhrase, CheckDeliverableCoverage} {
		found := false
		for _, c := range checks {
			if c == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %q among failures %v", want, checks)
		}
	}
}

func TestValidateIsPure(t *testing.T) {
	in := Input{
		Body:         cleanBody + "\nWe guarantee this will be our final offer.",
		ExpectedCPM:  d("45"),
		Deliverables: []string{"1 video"},
	}

	first := Validate(in)
	second := Validate(in)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Validate is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
