package pricing

import (
	"errors"
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

func TestNewPayRangeRejectsInvertedRange(t *testing.T) {
	_, err := NewPayRange(d("50"), d("40"))
	if err == nil {
		t.Fatal("expected error for floor > ceiling")
	}
	var ie *InputError
	if !errors.As(err, &ie) {
		t.Fatalf("error %T, want *InputError", err)
	}
}

func TestInitialOfferDeterministic(t *testing.T) {
	card := DefaultRateCard()

	cases := []struct {
		audience int64
		want     string
	}{
		{500, "20"},
		{9_999, "20"},
		{10_000, "25"},
		{50_000, "30"},
		{999_999, "35"},
		{1_000_000, "45"},
		{25_000_000, "45"},
	}
	for _, tc := range cases {
		got, err := card.InitialOffer(tc.audience)
		if err != nil {
			t.Fatalf("InitialOffer(%d): %v", tc.audience, err)
		}
		if !got.Equal(d(tc.want)) {
			t.Errorf("InitialOffer(%d) = %s, want %s", tc.audience, got, tc.want)
		}
		// Same input, same output.
		again, _ := card.InitialOffer(tc.audience)
		if !again.Equal(got) {
			t.Errorf("InitialOffer(%d) not deterministic", tc.audience)
		}
	}
}

func TestInitialOfferRejectsNonPositiveAudience(t *testing.T) {
	card := DefaultRateCard()
	for _, audience := range []int64{0, -1, -100000} {
		if _, err := card.InitialOffer(audience); err == nil {
			t.Errorf("InitialOffer(%d): expected error", audience)
		}
	}
}

func TestEvaluateBoundaries(t *testing.T) {
	r, err := NewPayRange(d("30.00"), d("80.00"))
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		rate string
		want Verdict
	}{
		{"29.99", VerdictBelowFloor},
		{"30.00", VerdictWithinRange},
		{"55.10", VerdictWithinRange},
		{"80.00", VerdictWithinRange},
		{"80.01", VerdictExceedsCeiling},
		{"200", VerdictExceedsCeiling},
	}
	for _, tc := range cases {
		if got := Evaluate(d(tc.rate), r); got != tc.want {
			t.Errorf("Evaluate(%s) = %q, want %q", tc.rate, got, tc.want)
		}
	}
}

func TestCounterRateStaysWithinBounds(t *testing.T) {
	r, _ := NewPayRange(d("30"), d("80"))
	flexCap := d("96")

	offer := d("40")
	for round := 1; round <= 5; round++ {
		next, err := CounterRate(offer, round, r, flexCap)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if next.LessThan(r.Floor) {
			t.Errorf("round %d: counter %s below floor", round, next)
		}
		if next.GreaterThan(r.Ceiling) {
			t.Errorf("round %d: counter %s above ceiling", round, next)
		}
		offer = next
	}
}

func TestCounterRateRespectsFlexibilityCap(t *testing.T) {
	// Flexibility cap below the pay ceiling wins.
	r, _ := NewPayRange(d("30"), d("80"))
	next, err := CounterRate(d("70"), 4, r, d("75"))
	if err != nil {
		t.Fatal(err)
	}
	if next.GreaterThan(d("75")) {
		t.Errorf("counter %s exceeds flexibility cap 75", next)
	}
}

func TestCounterRateClampsOfferAboveCeiling(t *testing.T) {
	r, _ := NewPayRange(d("30"), d("80"))
	next, err := CounterRate(d("90"), 1, r, d("96"))
	if err != nil {
		t.Fatal(err)
	}
	if !next.Equal(d("80")) {
		t.Errorf("counter = %s, want clamp to 80", next)
	}
}

func TestCounterRateRejectsNonPositiveRound(t *testing.T) {
	r, _ := NewPayRange(d("30"), d("80"))
	if _, err := CounterRate(d("40"), 0, r, d("96")); err == nil {
		t.Error("expected error for round 0")
	}
}
