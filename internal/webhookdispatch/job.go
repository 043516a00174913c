package webhookdispatch

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/subtrack/internal/clock"
	"github.com/smallbiznis/subtrack/internal/config"
	"github.com/smallbiznis/subtrack/internal/jobqueue"
	"github.com/smallbiznis/subtrack/internal/observability/metrics"
	webhookdomain "github.com/smallbiznis/subtrack/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const QueueName = "webhooks"

// DeliveryHandler executes webhook_delivery jobs. Each attempt looks up
// the user's active webhook config, rebuilds the body for the current
// attempt and sends it.
type DeliveryHandler struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	repo      webhookdomain.Repository
	deliverer *Deliverer
	metrics   *metrics.Metrics
	holder    *config.PipelineConfigHolder
}

type DeliveryHandlerParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Repo      webhookdomain.Repository
	Deliverer *Deliverer
	Metrics   *metrics.Metrics
	Holder    *config.PipelineConfigHolder
}

func NewDeliveryHandler(p DeliveryHandlerParam) *DeliveryHandler {
	return &DeliveryHandler{
		db:        p.DB,
		log:       p.Log.Named("webhook.delivery"),
		clock:     p.Clock,
		repo:      p.Repo,
		deliverer: p.Deliverer,
		metrics:   p.Metrics,
		holder:    p.Holder,
	}
}

// Handle implements jobqueue.Handler.
func (h *DeliveryHandler) Handle(ctx context.Context, job *jobqueue.Job) error {
	var snapshot RenewalSnapshot
	if err := job.DecodePayload(&snapshot); err != nil {
		return jobqueue.Permanent(fmt.Errorf("decode payload: %w", err))
	}

	userID, err := snowflake.ParseString(snapshot.UserID)
	if err != nil {
		return jobqueue.Permanent(fmt.Errorf("parse user id %q: %w", snapshot.UserID, err))
	}

	webhookConfig, err := h.repo.FindActiveByUserID(ctx, h.db, userID)
	if err != nil {
		return fmt.Errorf("load webhook config: %w", err)
	}
	if webhookConfig == nil {
		// Nothing to deliver to; the job succeeds without an HTTP call.
		h.metrics.IncDelivery("skipped")
		h.log.Info("no active webhook config, skipping delivery",
			zap.String("job_id", job.ID),
			zap.String("user_id", snapshot.UserID),
			zap.String("subscription_id", snapshot.Subscription.ID),
		)
		return nil
	}

	body, err := EncodeEvent(BuildEvent(snapshot, h.clock.Now(), job.Attempt))
	if err != nil {
		return jobqueue.Permanent(fmt.Errorf("encode event: %w", err))
	}

	outcome, err := h.deliverer.Deliver(ctx, webhookConfig.URL, webhookConfig.Secret, snapshot.Subscription.ID, body)
	switch outcome {
	case OutcomeDelivered:
		h.metrics.IncDelivery("delivered")
		return nil
	case OutcomeClientError:
		h.metrics.IncDelivery("client_error")
		// Non-429 4xx responses get a shorter budget than transient
		// failures before they are declared permanent.
		if job.Attempt >= h.holder.Get().WebhookClientErrorAttempts {
			return jobqueue.Permanent(err)
		}
		return jobqueue.Retryable(err)
	default:
		h.metrics.IncDelivery("transient_error")
		return jobqueue.Retryable(err)
	}
}

// OnPermanentFailure implements jobqueue.TerminalHandler.
func (h *DeliveryHandler) OnPermanentFailure(ctx context.Context, job *jobqueue.Job, cause error) {
	h.metrics.IncDelivery("permanently_failed")

	var snapshot RenewalSnapshot
	_ = job.DecodePayload(&snapshot)
	h.log.Error("webhook delivery permanently failed",
		zap.String("job_id", job.ID),
		zap.String("user_id", snapshot.UserID),
		zap.String("subscription_id", snapshot.Subscription.ID),
		zap.String("billing_id", snapshot.Billing.ID),
		zap.Int("attempts", job.Attempt),
		zap.Error(cause),
	)
}

// Register binds the handler to the webhooks queue. The policy reads the
// holder on every execution so reloaded tuning applies without a restart.
func Register(queue *jobqueue.Queue, handler *DeliveryHandler, holder *config.PipelineConfigHolder) {
	queue.Register(jobqueue.JobTypeWebhookDelivery, QueueName, func() jobqueue.RetryPolicy {
		cfg := holder.Get()
		return jobqueue.RetryPolicy{
			MaxAttempts: cfg.WebhookMaxAttempts,
			Backoff:     cfg.WebhookBackoff,
			Timeout:     cfg.WebhookTimeout,
		}
	}, handler)
}

var Module = fx.Module("webhookdispatch",
	fx.Provide(NewDeliverer),
	fx.Provide(NewDeliveryHandler),
	fx.Invoke(Register),
)
