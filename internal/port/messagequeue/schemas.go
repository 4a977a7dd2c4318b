package messagequeue

import "time"

// InboundReplyPayload is the schema for replies.inbound messages.
type InboundReplyPayload struct {
	MessageID  string    `json:"message_id"`
	ThreadID   string    `json:"thread_id"`
	From       string    `json:"from"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// ReplyDecidedPayload is the schema for replies.decided messages.
type ReplyDecidedPayload struct {
	NegotiationID string `json:"negotiation_id"`
	ThreadID      string `json:"thread_id"`
	Action        string `json:"action"`
	State         string `json:"state"`
	Round         int    `json:"round"`
}

// EscalationRaisedPayload is the schema for escalations.raised messages.
type EscalationRaisedPayload struct {
	EscalationID  string `json:"escalation_id"`
	NegotiationID string `json:"negotiation_id"`
	CampaignID    string `json:"campaign_id"`
	Reason        string `json:"reason"`
	Summary       string `json:"summary"`
}

// DealAgreedPayload is the schema for deals.agreed messages.
type DealAgreedPayload struct {
	NegotiationID string `json:"negotiation_id"`
	CampaignID    string `json:"campaign_id"`
	AgreedCPM     string `json:"agreed_cpm"` // exact decimal as string
}
