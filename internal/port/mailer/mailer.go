// Package mailer defines the outbound email dispatch port (interface).
package mailer

import "context"

// Message is a validated email body bound to an existing thread. The core
// only ever produces a Message; transmission belongs to the adapter.
type Message struct {
	ThreadID string `json:"thread_id"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

// Mailer is the port interface for transmitting outbound negotiation email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
