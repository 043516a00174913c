package billingrun

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/subtrack/internal/clock"
	"github.com/smallbiznis/subtrack/internal/config"
	"github.com/smallbiznis/subtrack/internal/jobqueue"
	subscriptiondomain "github.com/smallbiznis/subtrack/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scheduler enqueues one billing_check job per day. The queue does the
// actual work, so a scheduler restart never re-runs a sweep mid-flight.
type Scheduler struct {
	cron  *cron.Cron
	queue *jobqueue.Queue
	clock clock.Clock
	log   *zap.Logger
	spec  string
}

type SchedulerParam struct {
	fx.In

	Config config.Config
	Queue  *jobqueue.Queue
	Clock  clock.Clock
	Log    *zap.Logger
}

func NewScheduler(p SchedulerParam) *Scheduler {
	return &Scheduler{
		// Billing dates are stored as UTC days, so the sweep fires on UTC time.
		cron:  cron.New(cron.WithLocation(time.UTC)),
		queue: p.Queue,
		clock: p.Clock,
		log:   p.Log.Named("billing.scheduler"),
		spec:  p.Config.BillingCheckCron,
	}
}

func (s *Scheduler) enqueueCheck() {
	payload := CheckPayload{
		ScheduledFor: subscriptiondomain.TruncateToDay(s.clock.Now()).Format(dateLayout),
	}
	job, err := s.queue.Enqueue(context.Background(), jobqueue.JobTypeBillingCheck, payload)
	if err != nil {
		s.log.Error("enqueue billing check failed", zap.Error(err))
		return
	}
	s.log.Info("billing check scheduled",
		zap.String("job_id", job.ID),
		zap.String("scheduled_for", payload.ScheduledFor),
	)
}

// RunScheduler wires the cron into the fx lifecycle.
func RunScheduler(lc fx.Lifecycle, s *Scheduler) error {
	if _, err := s.cron.AddFunc(s.spec, s.enqueueCheck); err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.cron.Start()
			s.log.Info("billing scheduler started", zap.String("spec", s.spec))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx := s.cron.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}
