package webhookdispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/smallbiznis/subtrack/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	headerEventType      = "X-Event-Type"
	headerSubscriptionID = "X-Subscription-Id"
	headerRequestID      = "X-Request-Id"
	headerSignature      = "X-Hub-Signature"
)

// Outcome classifies one delivery attempt.
type Outcome int

const (
	// OutcomeDelivered is any 2xx response.
	OutcomeDelivered Outcome = iota
	// OutcomeRetryable covers 5xx, 429 and connection failures.
	OutcomeRetryable
	// OutcomeClientError covers the remaining 4xx responses; the caller
	// decides when those stop being worth retrying.
	OutcomeClientError
)

// Deliverer POSTs renewal events to webhook endpoints.
type Deliverer struct {
	client *http.Client
	log    *zap.Logger
	holder *config.PipelineConfigHolder
}

type DelivererParam struct {
	fx.In

	Log    *zap.Logger
	Holder *config.PipelineConfigHolder
}

func NewDeliverer(p DelivererParam) *Deliverer {
	return &Deliverer{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log:    p.Log.Named("webhook.deliverer"),
		holder: p.Holder,
	}
}

// Deliver sends one attempt. A fresh request id is generated per attempt,
// and the signature header is set only when a secret is configured. The
// timeout is read from the holder per attempt, not frozen at startup.
func (d *Deliverer) Deliver(ctx context.Context, endpoint, secret, subscriptionID string, body []byte) (Outcome, error) {
	if timeout := d.holder.Get().WebhookTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return OutcomeClientError, fmt.Errorf("build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerEventType, EventTypeSubscriptionRenewed)
	req.Header.Set(headerSubscriptionID, subscriptionID)
	req.Header.Set(headerRequestID, requestID)
	if signature, ok := Sign(body, secret); ok {
		req.Header.Set(headerSignature, "sha256="+signature)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Warn("webhook request failed",
			zap.String("subscription_id", subscriptionID),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return OutcomeRetryable, fmt.Errorf("webhook request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		d.log.Info("webhook delivered",
			zap.String("subscription_id", subscriptionID),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
		)
		return OutcomeDelivered, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		d.log.Warn("webhook endpoint unavailable",
			zap.String("subscription_id", subscriptionID),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
		)
		return OutcomeRetryable, fmt.Errorf("webhook responded %d", resp.StatusCode)
	default:
		d.log.Warn("webhook endpoint rejected event",
			zap.String("subscription_id", subscriptionID),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
		)
		return OutcomeClientError, fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
}
