package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/subtrack/internal/clock"
	subscriptiondomain "github.com/smallbiznis/subtrack/internal/subscription/domain"
	"github.com/smallbiznis/subtrack/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  subscriptiondomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  subscriptiondomain.Repository
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscription.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Create implements domain.Service.
func (s *Service) Create(ctx context.Context, req subscriptiondomain.CreateSubscriptionRequest) (subscriptiondomain.SubscriptionResponse, error) {
	userID, err := s.parseID(req.UserID, subscriptiondomain.ErrInvalidUser)
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}

	nextBillingDate, err := parseDate(req.NextBillingDate)
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, subscriptiondomain.ErrInvalidBillingDate
	}

	now := s.clock.Now()
	subscription, err := subscriptiondomain.NewSubscription(
		s.genID.Generate(),
		userID,
		req.Name,
		req.Price,
		req.Currency,
		subscriptiondomain.BillingCycle(strings.ToLower(strings.TrimSpace(req.BillingCycle))),
		nextBillingDate,
		req.Category,
		now,
	)
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}

	if err := s.repo.Insert(ctx, s.db, subscription); err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}

	s.log.Info("subscription created",
		zap.String("subscription_id", subscription.ID.String()),
		zap.String("user_id", subscription.UserID.String()),
	)
	return toResponse(*subscription), nil
}

// Update implements domain.Service.
func (s *Service) Update(ctx context.Context, req subscriptiondomain.UpdateSubscriptionRequest) (subscriptiondomain.SubscriptionResponse, error) {
	subscription, err := s.load(ctx, req.UserID, req.SubscriptionID)
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}

	now := s.clock.Now()
	if req.Name != nil {
		if err := subscription.ChangeName(*req.Name, now); err != nil {
			return subscriptiondomain.SubscriptionResponse{}, err
		}
	}
	if req.Price != nil {
		if err := subscription.ChangePrice(*req.Price, now); err != nil {
			return subscriptiondomain.SubscriptionResponse{}, err
		}
	}
	if req.BillingCycle != nil {
		cycle := subscriptiondomain.BillingCycle(strings.ToLower(strings.TrimSpace(*req.BillingCycle)))
		if err := subscription.ChangeBillingCycle(cycle, now); err != nil {
			return subscriptiondomain.SubscriptionResponse{}, err
		}
	}
	if req.NextBillingDate != nil {
		date, err := parseDate(*req.NextBillingDate)
		if err != nil {
			return subscriptiondomain.SubscriptionResponse{}, subscriptiondomain.ErrInvalidBillingDate
		}
		if err := subscription.ChangeNextBillingDate(date, now); err != nil {
			return subscriptiondomain.SubscriptionResponse{}, err
		}
	}
	if req.Category != nil {
		subscription.ChangeCategory(*req.Category, now)
	}

	if err := s.persist(ctx, subscription); err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}
	return toResponse(*subscription), nil
}

// GetByID implements domain.Service.
func (s *Service) GetByID(ctx context.Context, userID, id string) (subscriptiondomain.SubscriptionResponse, error) {
	subscription, err := s.load(ctx, userID, id)
	if err != nil {
		return subscriptiondomain.SubscriptionResponse{}, err
	}
	return toResponse(*subscription), nil
}

// List implements domain.Service.
func (s *Service) List(ctx context.Context, req subscriptiondomain.ListSubscriptionRequest) (subscriptiondomain.ListSubscriptionResponse, error) {
	userID, err := s.parseID(req.UserID, subscriptiondomain.ErrInvalidUser)
	if err != nil {
		return subscriptiondomain.ListSubscriptionResponse{}, err
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 10
	}

	filter := subscriptiondomain.ListFilter{
		UserID:   userID,
		Category: strings.TrimSpace(req.Category),
		Limit:    limit + 1,
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		parsed := subscriptiondomain.SubscriptionStatus(strings.ToLower(status))
		if !parsed.Valid() {
			return subscriptiondomain.ListSubscriptionResponse{}, subscriptiondomain.ErrInvalidStatus
		}
		filter.Status = parsed
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return subscriptiondomain.ListSubscriptionResponse{}, err
		}
		afterID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return subscriptiondomain.ListSubscriptionResponse{}, err
		}
		filter.AfterID = afterID
	}

	subscriptions, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return subscriptiondomain.ListSubscriptionResponse{}, err
	}

	subscriptions, pageInfo := pagination.BuildCursorPageInfo(subscriptions, limit, func(sub subscriptiondomain.Subscription) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: sub.ID.String()})
		return token
	})
	if !pageInfo.HasMore {
		pageInfo.NextPageToken = ""
	}

	return subscriptiondomain.ListSubscriptionResponse{
		PageInfo:      *pageInfo,
		Subscriptions: subscriptions,
	}, nil
}

// Pause implements domain.Service.
func (s *Service) Pause(ctx context.Context, userID, id string) error {
	subscription, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := subscription.Pause(s.clock.Now()); err != nil {
		return err
	}
	return s.persist(ctx, subscription)
}

// Resume implements domain.Service.
func (s *Service) Resume(ctx context.Context, userID, id string) error {
	subscription, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := subscription.Resume(s.clock.Now()); err != nil {
		return err
	}
	return s.persist(ctx, subscription)
}

// Cancel implements domain.Service.
func (s *Service) Cancel(ctx context.Context, userID, id string) error {
	subscription, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}
	subscription.Cancel(s.clock.Now())
	return s.persist(ctx, subscription)
}

func (s *Service) load(ctx context.Context, rawUserID, rawID string) (*subscriptiondomain.Subscription, error) {
	userID, err := s.parseID(rawUserID, subscriptiondomain.ErrInvalidUser)
	if err != nil {
		return nil, err
	}
	id, err := s.parseID(rawID, subscriptiondomain.ErrSubscriptionNotFound)
	if err != nil {
		return nil, err
	}

	subscription, err := s.repo.FindByID(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, subscriptiondomain.ErrSubscriptionNotFound
	}
	return subscription, nil
}

func (s *Service) persist(ctx context.Context, subscription *subscriptiondomain.Subscription) error {
	affected, err := s.repo.Update(ctx, s.db, subscription)
	if err != nil {
		return err
	}
	if affected == 0 {
		return subscriptiondomain.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Service) parseID(raw string, invalidErr error) (snowflake.ID, error) {
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

func parseDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(raw))
}

func toResponse(subscription subscriptiondomain.Subscription) subscriptiondomain.SubscriptionResponse {
	return subscriptiondomain.SubscriptionResponse{
		ID:              subscription.ID.String(),
		UserID:          subscription.UserID.String(),
		Name:            subscription.Name,
		Price:           subscription.Price,
		Currency:        subscription.Currency,
		BillingCycle:    subscription.BillingCycle,
		NextBillingDate: subscription.NextBillingDate.Format(dateLayout),
		Category:        subscription.Category,
		Status:          subscription.Status,
		CreatedAt:       subscription.CreatedAt,
		UpdatedAt:       subscription.UpdatedAt,
	}
}
