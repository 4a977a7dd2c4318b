package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Strob0t/DealForge/internal/adapter/otel"
	"github.com/Strob0t/DealForge/internal/config"
	"github.com/Strob0t/DealForge/internal/domain"
	"github.com/Strob0t/DealForge/internal/domain/decision"
	"github.com/Strob0t/DealForge/internal/domain/negotiation"
	"github.com/Strob0t/DealForge/internal/domain/pricing"
	"github.com/Strob0t/DealForge/internal/gate"
	"github.com/Strob0t/DealForge/internal/logger"
	"github.com/Strob0t/DealForge/internal/port/composer"
	"github.com/Strob0t/DealForge/internal/port/database"
	"github.com/Strob0t/DealForge/internal/port/escalation"
	"github.com/Strob0t/DealForge/internal/port/mailer"
	"github.com/Strob0t/DealForge/internal/port/messagequeue"
)

// NegotiationService consumes inbound replies from the queue, runs each one
// through the orchestrator, and carries out the resulting action: sending
// email, dispatching escalations, and announcing outcomes on the queue.
type NegotiationService struct {
	orch        *Orchestrator
	store       database.Store
	campaigns   *CampaignService
	compose     composer.Composer
	mail        mailer.Mailer
	dispatchers []escalation.Dispatcher
	queue       messagequeue.Queue
	metrics     *otel.Metrics
	rateCard    *pricing.RateCard
	cfg         config.Negotiation

	mu      sync.Mutex
	threads map[string]*sync.Mutex // serializes replies per thread
	seen    map[string]time.Time   // message-ID dedupe window
}

// NewNegotiationService creates a NegotiationService.
func NewNegotiationService(
	orch *Orchestrator,
	store database.Store,
	campaigns *CampaignService,
	compose composer.Composer,
	mail mailer.Mailer,
	dispatchers []escalation.Dispatcher,
	queue messagequeue.Queue,
	metrics *otel.Metrics,
	rateCard *pricing.RateCard,
	cfg config.Negotiation,
) *NegotiationService {
	return &NegotiationService{
		orch:        orch,
		store:       store,
		campaigns:   campaigns,
		compose:     compose,
		mail:        mail,
		dispatchers: dispatchers,
		queue:       queue,
		metrics:     metrics,
		rateCard:    rateCard,
		cfg:         cfg,
		threads:     make(map[string]*sync.Mutex),
		seen:        make(map[string]time.Time),
	}
}

// Start subscribes to inbound replies. The returned cancel function stops
// the subscription.
func (s *NegotiationService) Start(ctx context.Context) (func(), error) {
	return s.queue.Subscribe(ctx, messagequeue.SubjectReplyInbound, s.handleInbound)
}

const seenWindow = 24 * time.Hour

// handleInbound is the queue handler for replies.inbound. A returned error
// makes the queue redeliver, so only transient failures propagate; a
// malformed payload is logged and dropped.
func (s *NegotiationService) handleInbound(ctx context.Context, _ string, data []byte) error {
	var payload messagequeue.InboundReplyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Error("dropping malformed inbound reply", "error", err)
		return nil
	}

	if s.markSeen(payload.MessageID) {
		slog.Info("skipping duplicate inbound reply",
			"message_id", payload.MessageID, "thread_id", payload.ThreadID)
		return nil
	}

	ctx = logger.WithThreadID(ctx, payload.ThreadID)

	lock := s.threadLock(payload.ThreadID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.HandleReply(ctx, payload.ThreadID, payload.Body); err != nil {
		if !errors.Is(err, domain.ErrExternalService) {
			// Unknown thread, closed negotiation, bad transition: redelivery
			// can never succeed, so the message is consumed here.
			slog.Error("dropping undeliverable reply",
				"message_id", payload.MessageID, "thread_id", payload.ThreadID, "error", err)
			return nil
		}
		// Release the dedupe slot so a redelivery is not mistaken for a
		// duplicate.
		s.forget(payload.MessageID)
		return err
	}
	return nil
}

// HandleReply runs one reply through the decision sequence and executes the
// resulting action.
func (s *NegotiationService) HandleReply(ctx context.Context, threadID, body string) error {
	snap, err := s.store.GetNegotiationByThread(ctx, threadID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
		}
		return domain.External("load negotiation", err)
	}

	ctx, span := otel.StartDecisionSpan(ctx, snap.Context.ID, snap.Context.CampaignID)
	defer span.End()
	start := time.Now()

	action, err := s.orch.ProcessReply(ctx, threadID, body)
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.DecisionDuration.Record(ctx, time.Since(start).Seconds())
		s.metrics.RepliesProcessed.Add(ctx, 1,
			metric.WithAttributes(attribute.String("action", string(action.Kind))))
	}

	return s.apply(ctx, snap.Context, action)
}

// apply carries out the side effects of an action. The decision itself is
// already persisted; effect failures here are retried by queue redelivery
// where safe and logged where not.
func (s *NegotiationService) apply(ctx context.Context, nctx negotiation.Context, action decision.Action) error {
	switch action.Kind {
	case decision.KindSend:
		msg := mailer.Message{
			ThreadID: action.Send.ThreadID,
			To:       nctx.InfluencerEmail,
			Subject:  s.replySubject(ctx, nctx.CampaignID),
			Body:     action.Send.Body,
		}
		if err := s.mail.Send(ctx, msg); err != nil {
			return domain.External("send counter email", err)
		}
		// Round counts only confirmed transmissions.
		if err := s.orch.ConfirmSent(ctx, action.Send.NegotiationID); err != nil {
			return err
		}
		s.announce(ctx, nctx, action, negotiation.StateAwaitingReply)

	case decision.KindAccept:
		if s.metrics != nil {
			s.metrics.DealsAgreed.Add(ctx, 1)
			s.metrics.AgreedCPM.Record(ctx, action.Accept.AgreedCPM.InexactFloat64())
		}
		s.publish(ctx, messagequeue.SubjectDealAgreed, messagequeue.DealAgreedPayload{
			NegotiationID: action.Accept.NegotiationID,
			CampaignID:    nctx.CampaignID,
			AgreedCPM:     action.Accept.AgreedCPM.String(),
		})
		s.announce(ctx, nctx, action, negotiation.StateAgreed)
		slog.Info("deal agreed",
			"negotiation_id", action.Accept.NegotiationID,
			"agreed_cpm", action.Accept.AgreedCPM.StringFixed(2))

	case decision.KindReject:
		if s.metrics != nil {
			s.metrics.DealsRejected.Add(ctx, 1)
		}
		s.announce(ctx, nctx, action, negotiation.StateRejected)
		slog.Info("deal rejected", "negotiation_id", action.Reject.NegotiationID)

	case decision.KindEscalate:
		e := *action.Escalate
		if s.metrics != nil {
			s.metrics.Escalations.Add(ctx, 1,
				metric.WithAttributes(attribute.String("reason", string(e.Reason))))
		}
		s.dispatch(ctx, e)
		s.publish(ctx, messagequeue.SubjectEscalationRaised, messagequeue.EscalationRaisedPayload{
			EscalationID:  e.ID,
			NegotiationID: e.NegotiationID,
			CampaignID:    e.CampaignID,
			Reason:        string(e.Reason),
			Summary:       e.Summary,
		})
		state := negotiation.StateEscalated
		if e.Reason == decision.ReasonMaxRounds {
			state = negotiation.StateMaxRoundsExceeded
		}
		s.announce(ctx, nctx, action, state)

	default:
		return fmt.Errorf("unknown action kind %q", action.Kind)
	}
	return nil
}

// replySubject keeps the outbound subject on the same thread as the
// original outreach. The adapter's threading headers do the real work; the
// subject is for humans.
func (s *NegotiationService) replySubject(ctx context.Context, campaignID string) string {
	c, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return "Re: Partnership"
	}
	return fmt.Sprintf("Re: Partnership with %s", c.Brand)
}

// dispatch fans the escalation out to every configured channel. Delivery
// failure never blocks the decision; it is logged and the next channel
// still runs.
func (s *NegotiationService) dispatch(ctx context.Context, e decision.Escalation) {
	for _, d := range s.dispatchers {
		dctx, span := otel.StartDispatchSpan(ctx, e.NegotiationID, d.Name())
		if err := d.Dispatch(dctx, e); err != nil {
			slog.Warn("escalation dispatch failed",
				"dispatcher", d.Name(), "escalation_id", e.ID, "error", err)
		}
		span.End()
	}
}

// OutreachParams carries the caller-supplied fields for a new negotiation.
type OutreachParams struct {
	CampaignID      string
	InfluencerName  string
	InfluencerEmail string
	Platform        negotiation.Platform
	AudienceSize    int64
	EngagementRate  string // percent as exact decimal, e.g. "4.2"
	Deliverables    []string
}

// StartOutreach opens a new negotiation: computes the opening offer from the
// rate card, drafts and sends the first email, and persists the thread in
// awaiting_reply.
func (s *NegotiationService) StartOutreach(ctx context.Context, p OutreachParams) (*negotiation.Snapshot, error) {
	c, err := s.campaigns.Get(ctx, p.CampaignID)
	if err != nil {
		return nil, domain.External("load campaign", err)
	}

	engagement, err := decimal.NewFromString(p.EngagementRate)
	if err != nil {
		return nil, &pricing.InputError{Reason: fmt.Sprintf("engagement_rate: %v", err)}
	}

	offer, err := s.rateCard.InitialOffer(p.AudienceSize)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	nctx := negotiation.Context{
		ID:              uuid.NewString(),
		CampaignID:      p.CampaignID,
		ThreadID:        uuid.NewString(),
		InfluencerName:  p.InfluencerName,
		InfluencerEmail: p.InfluencerEmail,
		Platform:        p.Platform,
		AudienceSize:    p.AudienceSize,
		EngagementRate:  engagement,
		Deliverables:    p.Deliverables,
		NextCPM:         offer,
		Round:           0,
		MaxRounds:       s.cfg.MaxRounds,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	body, err := s.compose.Compose(ctx, nctx, offer, c.BrandReference)
	if err != nil {
		return nil, domain.External("compose outreach", err)
	}

	// The opening email goes through the same validation gate as every
	// counter-offer before anything is transmitted.
	result := gate.Validate(gate.Input{
		Body:         body,
		ExpectedCPM:  offer,
		Deliverables: p.Deliverables,
	})
	for _, w := range result.Failures {
		if w.Severity == gate.SeverityWarning {
			slog.Warn("validation warning on outreach draft",
				"campaign_id", p.CampaignID, "check", w.Check, "evidence", w.Evidence)
		}
	}
	if !result.Passed {
		first := result.Errors()[0]
		return nil, domain.External("outreach draft rejected",
			fmt.Errorf("%s: %s", first.Check, first.Message))
	}

	machine := negotiation.NewMachine()
	if _, err := machine.Trigger(negotiation.EvSendOutreach); err != nil {
		return nil, err
	}

	msg := mailer.Message{
		ThreadID: nctx.ThreadID,
		To:       p.InfluencerEmail,
		Subject:  fmt.Sprintf("Partnership with %s", c.Brand),
		Body:     body,
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return nil, domain.External("send outreach email", err)
	}

	if _, err := machine.Trigger(negotiation.EvAwaitReply); err != nil {
		return nil, err
	}
	nctx.Round = 1

	snap := &negotiation.Snapshot{
		Context: nctx,
		State:   machine.Current(),
		History: machine.History(),
	}
	if err := s.store.SaveNegotiation(ctx, snap); err != nil {
		return nil, domain.External("save negotiation", err)
	}

	slog.Info("outreach sent",
		"negotiation_id", nctx.ID,
		"campaign_id", nctx.CampaignID,
		"opening_cpm", offer.StringFixed(2))
	return snap, nil
}

// announce publishes the decided event for one processed reply. Announce
// failures are log-only: the decision is already durable.
func (s *NegotiationService) announce(ctx context.Context, nctx negotiation.Context, action decision.Action, state negotiation.State) {
	s.publish(ctx, messagequeue.SubjectReplyDecided, messagequeue.ReplyDecidedPayload{
		NegotiationID: nctx.ID,
		ThreadID:      nctx.ThreadID,
		Action:        string(action.Kind),
		State:         string(state),
		Round:         nctx.Round,
	})
}

func (s *NegotiationService) publish(ctx context.Context, subject string, payload any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event payload", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Warn("publish event", "subject", subject, "error", err)
	}
}

// markSeen records a message ID and reports whether it was already present.
// Entries older than the dedupe window are pruned opportunistically.
func (s *NegotiationService) markSeen(messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, at := range s.seen {
		if now.Sub(at) > seenWindow {
			delete(s.seen, id)
		}
	}
	if _, dup := s.seen[messageID]; dup {
		return true
	}
	s.seen[messageID] = now
	return false
}

func (s *NegotiationService) forget(messageID string) {
	s.mu.Lock()
	delete(s.seen, messageID)
	s.mu.Unlock()
}

func (s *NegotiationService) threadLock(threadID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.threads[threadID]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.threads[threadID] = l
	return l
}
