package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/subtrack/internal/billing/domain"
	"github.com/smallbiznis/subtrack/internal/clock"
	subscriptiondomain "github.com/smallbiznis/subtrack/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultHistoryLimit = 50

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	genID            *snowflake.Node
	clock            clock.Clock
	repo             billingdomain.Repository
	subscriptionRepo subscriptiondomain.Repository
}

type ServiceParam struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Clock            clock.Clock
	Repo             billingdomain.Repository
	SubscriptionRepo subscriptiondomain.Repository
}

func NewService(p ServiceParam) *Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("billing.service"),
		genID:            p.GenID,
		clock:            p.Clock,
		repo:             p.Repo,
		subscriptionRepo: p.SubscriptionRepo,
	}
}

func NewRecorder(s *Service) billingdomain.Recorder { return s }

func NewAdvancer(s *Service) billingdomain.Advancer { return s }

func NewHistoryService(s *Service) billingdomain.HistoryService { return s }

// Record implements domain.Recorder.
func (s *Service) Record(ctx context.Context, subscriptionID snowflake.ID, amount int64, paidAt time.Time) (billingdomain.BillingHistory, error) {
	if amount < 0 {
		return billingdomain.BillingHistory{}, billingdomain.ErrInvalidAmount
	}

	history := billingdomain.BillingHistory{
		ID:             s.genID.Generate(),
		SubscriptionID: subscriptionID,
		AmountPaid:     amount,
		PaidAt:         paidAt,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &history); err != nil {
		return billingdomain.BillingHistory{}, err
	}

	s.log.Info("billing history recorded",
		zap.String("billing_history_id", history.ID.String()),
		zap.String("subscription_id", subscriptionID.String()),
		zap.Int64("amount_paid", amount),
	)
	return history, nil
}

// Advance implements domain.Advancer.
func (s *Service) Advance(ctx context.Context, subscription *subscriptiondomain.Subscription) error {
	next := billingdomain.NextBillingDate(subscription.NextBillingDate, subscription.BillingCycle)
	subscription.AdvanceBillingDate(next, s.clock.Now())

	affected, err := s.subscriptionRepo.Update(ctx, s.db, subscription)
	if err != nil {
		return err
	}
	if affected == 0 {
		return subscriptiondomain.ErrSubscriptionNotFound
	}
	return nil
}

// List implements domain.HistoryService.
func (s *Service) List(ctx context.Context, req billingdomain.ListHistoryRequest) (billingdomain.ListHistoryResponse, error) {
	userID, err := parseID(req.UserID, subscriptiondomain.ErrInvalidUser)
	if err != nil {
		return billingdomain.ListHistoryResponse{}, err
	}
	subscriptionID, err := parseID(req.SubscriptionID, subscriptiondomain.ErrSubscriptionNotFound)
	if err != nil {
		return billingdomain.ListHistoryResponse{}, err
	}

	// History is scoped through the subscription so one user cannot read
	// another user's renewals.
	subscription, err := s.subscriptionRepo.FindByID(ctx, s.db, userID, subscriptionID)
	if err != nil {
		return billingdomain.ListHistoryResponse{}, err
	}
	if subscription == nil {
		return billingdomain.ListHistoryResponse{}, subscriptiondomain.ErrSubscriptionNotFound
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	histories, err := s.repo.ListBySubscriptionID(ctx, s.db, subscriptionID, limit)
	if err != nil {
		return billingdomain.ListHistoryResponse{}, err
	}
	return billingdomain.ListHistoryResponse{Histories: histories}, nil
}

func parseID(raw string, invalidErr error) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalidErr
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, invalidErr
	}
	return id, nil
}
