// Package classifier defines the intent classification port (interface).
package classifier

import (
	"context"

	"github.com/Strob0t/DealForge/internal/domain/negotiation"
)

// Intent is the classified meaning of an inbound reply.
type Intent string

const (
	IntentAccept   Intent = "accept"
	IntentReject   Intent = "reject"
	IntentCounter  Intent = "counter"
	IntentQuestion Intent = "question"
	IntentUnclear  Intent = "unclear"
)

// Classification is the result of classifying one reply.
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"` // in [0, 1]
	// ProposedCPM is the rate extracted from the reply, empty when the reply
	// names no number.
	ProposedCPM string `json:"proposed_cpm,omitempty"`
}

// Classifier is the port interface for the text-generation collaborator's
// intent classification.
type Classifier interface {
	Classify(ctx context.Context, replyText string, nctx negotiation.Context) (Classification, error)
}
