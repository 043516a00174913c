// Package webhookdispatch delivers subscription.renewed events to
// user-configured endpoints with signed, canonical JSON bodies.
package webhookdispatch

import (
	"bytes"
	"encoding/json"
	"time"
)

const EventTypeSubscriptionRenewed = "subscription.renewed"

// SubscriptionSnapshot carries the renewal facts captured before the
// billing date advanced, so later edits never leak into the event.
type SubscriptionSnapshot struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	NextBillingDate string `json:"next_billing_date"`
}

// BillingSnapshot describes the billing-history record the renewal wrote.
type BillingSnapshot struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// RenewalSnapshot is the webhook-delivery job payload.
type RenewalSnapshot struct {
	UserID       string               `json:"user_id"`
	Subscription SubscriptionSnapshot `json:"subscription"`
	Billing      BillingSnapshot      `json:"billing"`
	OccurredAt   time.Time            `json:"occurred_at"`
}

type eventData struct {
	Subscription SubscriptionSnapshot `json:"subscription"`
	Billing      BillingSnapshot      `json:"billing"`
	UserID       string               `json:"user_id"`
}

type eventMetadata struct {
	OccurredAt time.Time `json:"occurred_at"`
	Attempt    int       `json:"attempt"`
}

// RenewalEvent is the wire body POSTed to the endpoint.
type RenewalEvent struct {
	Event     string        `json:"event"`
	Timestamp time.Time     `json:"timestamp"`
	Data      eventData     `json:"data"`
	Metadata  eventMetadata `json:"metadata"`
}

// BuildEvent assembles the outbound body for one delivery attempt.
func BuildEvent(snapshot RenewalSnapshot, now time.Time, attempt int) RenewalEvent {
	return RenewalEvent{
		Event:     EventTypeSubscriptionRenewed,
		Timestamp: now.UTC(),
		Data: eventData{
			Subscription: snapshot.Subscription,
			Billing:      snapshot.Billing,
			UserID:       snapshot.UserID,
		},
		Metadata: eventMetadata{
			OccurredAt: snapshot.OccurredAt.UTC(),
			Attempt:    attempt,
		},
	}
}

// EncodeEvent serializes an event to the canonical form the signature is
// computed over. Slashes and unicode stay unescaped, and the encoder's
// trailing newline is stripped so the hashed bytes equal the transmitted
// bytes exactly.
func EncodeEvent(event RenewalEvent) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(event); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
