// Package escalation defines the escalation dispatch port (interface).
package escalation

import (
	"context"
	"errors"

	"github.com/Strob0t/DealForge/internal/domain/decision"
)

// ErrNotConfigured is returned when a dispatcher is not properly configured.
var ErrNotConfigured = errors.New("escalation: not configured")

// Dispatcher hands an escalation to the human notification channel.
// Fire-and-forget from the core's perspective: the decision stands whether
// or not delivery succeeds.
type Dispatcher interface {
	// Name returns the unique identifier for this dispatcher (e.g. "slack").
	Name() string

	// Dispatch delivers the escalation evidence bundle.
	Dispatch(ctx context.Context, e decision.Escalation) error
}
