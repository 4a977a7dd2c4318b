// Package composer defines the email composition port (interface).
package composer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/DealForge/internal/domain/negotiation"
)

// Composer is the port interface for the text-generation collaborator's
// counter-offer drafting. Implementations may reuse cached brand reference
// content across calls for the same campaign.
type Composer interface {
	Compose(ctx context.Context, nctx negotiation.Context, targetCPM decimal.Decimal, brandReference string) (string, error)
}
