// Package billingrun orchestrates the daily renewal sweep: find due
// subscriptions, record their payments, advance their billing dates and
// enqueue webhook deliveries.
package billingrun

import (
	"context"
	"fmt"
	"time"

	billingdomain "github.com/smallbiznis/subtrack/internal/billing/domain"
	"github.com/smallbiznis/subtrack/internal/clock"
	"github.com/smallbiznis/subtrack/internal/config"
	"github.com/smallbiznis/subtrack/internal/jobqueue"
	"github.com/smallbiznis/subtrack/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/subtrack/internal/subscription/domain"
	"github.com/smallbiznis/subtrack/internal/webhookdispatch"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	QueueName  = "billing"
	dateLayout = "2006-01-02"
)

// CheckPayload is the billing_check job payload. ScheduledFor is
// informational; the handler always bills against the current day so a
// delayed retry cannot re-bill a past window.
type CheckPayload struct {
	ScheduledFor string `json:"scheduled_for"`
}

// CheckHandler executes billing_check jobs.
type CheckHandler struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     subscriptiondomain.Repository
	recorder billingdomain.Recorder
	advancer billingdomain.Advancer
	queue    *jobqueue.Queue
	metrics  *metrics.Metrics
}

type CheckHandlerParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     subscriptiondomain.Repository
	Recorder billingdomain.Recorder
	Advancer billingdomain.Advancer
	Queue    *jobqueue.Queue
	Metrics  *metrics.Metrics
}

func NewCheckHandler(p CheckHandlerParam) *CheckHandler {
	return &CheckHandler{
		db:       p.DB,
		log:      p.Log.Named("billing.check"),
		clock:    p.Clock,
		repo:     p.Repo,
		recorder: p.Recorder,
		advancer: p.Advancer,
		queue:    p.Queue,
		metrics:  p.Metrics,
	}
}

// Handle implements jobqueue.Handler. A failure loading the due set
// propagates so the queue retries the whole sweep; per-subscription
// failures are isolated so one bad row never blocks the rest. Re-running
// the sweep is safe because advancing a subscription's billing date
// removes it from the due-today set.
func (h *CheckHandler) Handle(ctx context.Context, job *jobqueue.Job) error {
	today := h.clock.Now()
	due, err := h.repo.FindDueForBilling(ctx, h.db, today)
	if err != nil {
		return fmt.Errorf("find due subscriptions: %w", err)
	}

	h.log.Info("billing check started",
		zap.String("job_id", job.ID),
		zap.String("date", subscriptiondomain.TruncateToDay(today).Format(dateLayout)),
		zap.Int("due", len(due)),
	)

	var renewed int
	for i := range due {
		subscription := due[i]
		if err := h.renew(ctx, &subscription); err != nil {
			h.metrics.IncRenewalFailure()
			h.log.Error("subscription renewal failed",
				zap.String("subscription_id", subscription.ID.String()),
				zap.String("user_id", subscription.UserID.String()),
				zap.Error(err),
			)
			continue
		}
		renewed++
	}

	h.log.Info("billing check finished",
		zap.String("job_id", job.ID),
		zap.Int("renewed", renewed),
		zap.Int("failed", len(due)-renewed),
	)
	return nil
}

// renew processes one due subscription: record the payment, advance the
// billing date, then enqueue the webhook delivery. The snapshot keeps
// the pre-advancement billing date.
func (h *CheckHandler) renew(ctx context.Context, subscription *subscriptiondomain.Subscription) error {
	now := h.clock.Now()
	billedDate := subscriptiondomain.TruncateToDay(subscription.NextBillingDate)

	history, err := h.recorder.Record(ctx, subscription.ID, subscription.Price, now)
	if err != nil {
		return fmt.Errorf("record billing history: %w", err)
	}

	if err := h.advancer.Advance(ctx, subscription); err != nil {
		return fmt.Errorf("advance billing date: %w", err)
	}

	snapshot := webhookdispatch.RenewalSnapshot{
		UserID: subscription.UserID.String(),
		Subscription: webhookdispatch.SubscriptionSnapshot{
			ID:              subscription.ID.String(),
			Name:            subscription.Name,
			Amount:          subscription.Price,
			Currency:        subscription.Currency,
			NextBillingDate: billedDate.Format(dateLayout),
		},
		Billing: webhookdispatch.BillingSnapshot{
			ID:       history.ID.String(),
			Date:     subscriptiondomain.TruncateToDay(history.PaidAt).Format(dateLayout),
			Amount:   history.AmountPaid,
			Currency: subscription.Currency,
		},
		OccurredAt: now,
	}
	if _, err := h.queue.Enqueue(ctx, jobqueue.JobTypeWebhookDelivery, snapshot); err != nil {
		return fmt.Errorf("enqueue webhook delivery: %w", err)
	}

	h.metrics.IncRenewal()
	h.log.Info("subscription renewed",
		zap.String("subscription_id", subscription.ID.String()),
		zap.String("user_id", subscription.UserID.String()),
		zap.Int64("amount", history.AmountPaid),
		zap.String("next_billing_date", subscription.NextBillingDate.Format(dateLayout)),
	)
	return nil
}

// Register binds the handler to the billing queue. The policy reads the
// holder on every execution so reloaded tuning applies without a restart.
func Register(queue *jobqueue.Queue, handler *CheckHandler, holder *config.PipelineConfigHolder) {
	queue.Register(jobqueue.JobTypeBillingCheck, QueueName, func() jobqueue.RetryPolicy {
		cfg := holder.Get()
		return jobqueue.RetryPolicy{
			MaxAttempts: cfg.BillingCheckMaxAttempts,
			Backoff:     []time.Duration{time.Minute},
			Timeout:     cfg.BillingCheckTimeout,
		}
	}, handler)
}
