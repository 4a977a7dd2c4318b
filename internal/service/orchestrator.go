// Package service contains application services.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Strob0t/DealForge/internal/config"
	"github.com/Strob0t/DealForge/internal/domain"
	"github.com/Strob0t/DealForge/internal/domain/decision"
	"github.com/Strob0t/DealForge/internal/domain/negotiation"
	"github.com/Strob0t/DealForge/internal/domain/pricing"
	"github.com/Strob0t/DealForge/internal/gate"
	"github.com/Strob0t/DealForge/internal/port/cache"
	"github.com/Strob0t/DealForge/internal/port/classifier"
	"github.com/Strob0t/DealForge/internal/port/composer"
	"github.com/Strob0t/DealForge/internal/port/database"
)

// Orchestrator processes one inbound reply end-to-end and returns exactly one
// action. It is the only component that talks to the external collaborators:
// intent classification, email composition and state persistence.
type Orchestrator struct {
	store     database.Store
	classify  classifier.Classifier
	compose   composer.Composer
	campaigns *CampaignService
	cache     cache.Cache
	cfg       config.Negotiation
}

// NewOrchestrator creates an Orchestrator with all dependencies.
func NewOrchestrator(
	store database.Store,
	classify classifier.Classifier,
	compose composer.Composer,
	campaigns *CampaignService,
	c cache.Cache,
	cfg config.Negotiation,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		classify:  classify,
		compose:   compose,
		campaigns: campaigns,
		cache:     c,
		cfg:       cfg,
	}
}

// ProcessReply decides what to do about one inbound reply on a negotiation
// thread. Business outcomes that look like failure (rejection, ambiguity,
// validation errors) come back as normal actions; only collaborator failures
// and caller bugs return an error.
func (o *Orchestrator) ProcessReply(ctx context.Context, threadID, replyText string) (decision.Action, error) {
	snap, err := o.store.GetNegotiationByThread(ctx, threadID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return decision.Action{}, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
		}
		return decision.Action{}, domain.External("load negotiation", err)
	}

	machine := negotiation.FromSnapshot(snap.State, snap.History)
	if machine.IsTerminal() {
		return decision.Action{}, fmt.Errorf("negotiation %s already closed in state %q", snap.Context.ID, snap.State)
	}

	nctx := snap.Context
	tracker, err := o.campaigns.Tracker(ctx, nctx.CampaignID)
	if err != nil {
		return decision.Action{}, err
	}

	// Step 1: round cap, before any external call. No text-generation spend
	// on dead negotiations.
	if nctx.RoundsExhausted() {
		return o.escalate(ctx, machine, &nctx, decision.Escalation{
			Reason:        decision.ReasonMaxRounds,
			Summary:       fmt.Sprintf("negotiation used all %d rounds without closing", nctx.MaxRounds),
			Evidence:      replyText,
			SuggestedNext: "review the thread and close manually",
		}, negotiation.EvExceedRounds)
	}

	// Step 2: intent classification.
	verdict, err := o.classify.Classify(ctx, replyText, nctx)
	if err != nil {
		return decision.Action{}, domain.External("classify intent", err)
	}

	// Step 3: low confidence means a human reads it, not the machine.
	if verdict.Confidence < o.cfg.ConfidenceThreshold {
		return o.escalate(ctx, machine, &nctx, decision.Escalation{
			Reason: decision.ReasonAmbiguousIntent,
			Summary: fmt.Sprintf("intent %q classified at confidence %.2f, below threshold %.2f",
				verdict.Intent, verdict.Confidence, o.cfg.ConfidenceThreshold),
			Evidence:      replyText,
			SuggestedNext: "read the reply and respond manually",
		}, negotiation.EvEscalate)
	}

	// Step 4: accept/reject close without composing anything.
	switch verdict.Intent {
	case classifier.IntentAccept:
		if _, err := machine.Trigger(negotiation.EvAccept); err != nil {
			return decision.Action{}, err
		}
		if err := o.save(ctx, machine, &nctx); err != nil {
			return decision.Action{}, err
		}
		// Only after the terminal state is durable. A failed save retries from
		// the old snapshot and would otherwise count the same deal twice.
		tracker.RecordAgreement(nctx.NextCPM)
		return decision.NewAccept(decision.Accept{
			NegotiationID: nctx.ID,
			AgreedCPM:     nctx.NextCPM,
		}), nil

	case classifier.IntentReject:
		if _, err := machine.Trigger(negotiation.EvReject); err != nil {
			return decision.Action{}, err
		}
		if err := o.save(ctx, machine, &nctx); err != nil {
			return decision.Action{}, err
		}
		return decision.NewReject(decision.Reject{
			NegotiationID: nctx.ID,
			Quote:         replyText,
		}), nil
	}

	// Step 5: commit the receive-reply transition before composing, so the
	// persisted state reflects "we got input" even if a later call fails.
	// A retry of the same reply finds the transition already taken.
	if machine.Current() != negotiation.StateCounterReceived {
		if _, err := machine.Trigger(negotiation.EvReceiveReply); err != nil {
			return decision.Action{}, err
		}
		if err := o.save(ctx, machine, &nctx); err != nil {
			return decision.Action{}, err
		}
	}

	flex := tracker.Flexibility(nctx.EngagementRate)
	payRange, err := pricing.NewPayRange(tracker.Range().TargetMin, flex.TargetCPM)
	if err != nil {
		return decision.Action{}, err
	}

	// Step 6: a proposed rate above the flexibility ceiling is a human call.
	if verdict.ProposedCPM != "" {
		proposed, perr := decimal.NewFromString(verdict.ProposedCPM)
		if perr != nil {
			slog.Warn("unparseable proposed rate from classifier",
				"negotiation_id", nctx.ID, "proposed", verdict.ProposedCPM)
		} else if pricing.Evaluate(proposed, payRange) == pricing.VerdictExceedsCeiling {
			return o.escalate(ctx, machine, &nctx, decision.Escalation{
				Reason: decision.ReasonCPMCeilingExceeded,
				Summary: fmt.Sprintf("influencer proposed $%s CPM against a $%s ceiling",
					proposed.StringFixed(2), flex.TargetCPM.StringFixed(2)),
				Evidence:      replyText,
				ProposedCPM:   proposed,
				TargetCPM:     flex.TargetCPM,
				SuggestedNext: "approve the premium or decline",
			}, negotiation.EvEscalate)
		}
	}

	// Step 7: next offer.
	counter, err := pricing.CounterRate(nctx.NextCPM, nctx.Round+1, payRange, flex.TargetCPM)
	if err != nil {
		return decision.Action{}, err
	}

	// Step 8: draft the counter-offer with cached brand context.
	brandRef, err := o.brandReference(ctx, nctx.CampaignID)
	if err != nil {
		return decision.Action{}, err
	}
	body, err := o.compose.Compose(ctx, nctx, counter, brandRef)
	if err != nil {
		return decision.Action{}, domain.External("compose email", err)
	}

	// Steps 9-10: the validation gate is the last word before anything leaves.
	result := gate.Validate(gate.Input{
		Body:         body,
		ExpectedCPM:  counter,
		Deliverables: nctx.Deliverables,
	})
	for _, w := range result.Failures {
		if w.Severity == gate.SeverityWarning {
			slog.Warn("validation warning on composed email",
				"negotiation_id", nctx.ID, "check", w.Check, "evidence", w.Evidence)
		}
	}
	if !result.Passed {
		first := result.Errors()[0]
		return o.escalate(ctx, machine, &nctx, decision.Escalation{
			Reason:        reasonForCheck(first.Check),
			Summary:       first.Message,
			Evidence:      first.Evidence,
			ProposedCPM:   counter,
			TargetCPM:     flex.TargetCPM,
			SuggestedNext: "review the drafted email and send manually",
		}, negotiation.EvEscalate)
	}

	// Step 11: hand the validated draft back. The caller transmits it and,
	// only on confirmed transmission, increments the round counter.
	nctx.NextCPM = counter
	if _, err := machine.Trigger(negotiation.EvSendCounter); err != nil {
		return decision.Action{}, err
	}
	if err := o.save(ctx, machine, &nctx); err != nil {
		return decision.Action{}, err
	}

	return decision.NewSend(decision.Send{
		NegotiationID: nctx.ID,
		ThreadID:      nctx.ThreadID,
		Body:          body,
		OfferCPM:      counter,
	}), nil
}

// ConfirmSent increments the round counter after the caller confirms
// transmission of a Send action.
func (o *Orchestrator) ConfirmSent(ctx context.Context, negotiationID string) error {
	snap, err := o.store.GetNegotiation(ctx, negotiationID)
	if err != nil {
		return domain.External("load negotiation", err)
	}
	snap.Context.Round++
	snap.Context.UpdatedAt = time.Now().UTC()
	if err := o.store.SaveNegotiation(ctx, snap); err != nil {
		return domain.External("save negotiation", err)
	}
	return nil
}

// escalate transitions the machine, persists, and returns the Escalate action
// with a fully populated evidence bundle.
func (o *Orchestrator) escalate(ctx context.Context, machine *negotiation.Machine, nctx *negotiation.Context, e decision.Escalation, ev negotiation.Event) (decision.Action, error) {
	if _, err := machine.Trigger(ev); err != nil {
		return decision.Action{}, err
	}

	e.ID = uuid.NewString()
	e.NegotiationID = nctx.ID
	e.CampaignID = nctx.CampaignID
	e.CreatedAt = time.Now().UTC()

	if err := o.save(ctx, machine, nctx); err != nil {
		return decision.Action{}, err
	}
	return decision.NewEscalate(e), nil
}

func (o *Orchestrator) save(ctx context.Context, machine *negotiation.Machine, nctx *negotiation.Context) error {
	nctx.UpdatedAt = time.Now().UTC()
	snap := &negotiation.Snapshot{
		Context: *nctx,
		State:   machine.Current(),
		History: machine.History(),
	}
	if err := o.store.SaveNegotiation(ctx, snap); err != nil {
		return domain.External("save negotiation", err)
	}
	return nil
}

// brandReference returns the campaign's reusable composition context, cached
// in-process so repeated compositions for one campaign skip the store.
func (o *Orchestrator) brandReference(ctx context.Context, campaignID string) (string, error) {
	key := "brandref:" + campaignID

	if o.cache != nil {
		if val, ok, err := o.cache.Get(ctx, key); err == nil && ok {
			return string(val), nil
		}
	}

	c, err := o.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return "", domain.External("load campaign", err)
	}

	if o.cache != nil {
		_ = o.cache.Set(ctx, key, []byte(c.BrandReference), o.cfg.BrandReferenceTTL)
	}
	return c.BrandReference, nil
}

// reasonForCheck maps an error-severity gate check to its escalation reason.
func reasonForCheck(check string) decision.Reason {
	switch check {
	case gate.CheckMonetaryMatch:
		return decision.ReasonMonetaryMismatch
	case gate.CheckHallucination:
		return decision.ReasonHallucination
	case gate.CheckForbiddenPhrase:
		return decision.ReasonForbiddenPhrase
	default:
		return decision.ReasonBodyTooShort
	}
}
