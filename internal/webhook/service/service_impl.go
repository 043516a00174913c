package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/subtrack/internal/clock"
	webhookdomain "github.com/smallbiznis/subtrack/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  webhookdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  webhookdomain.Repository
}

func NewService(p ServiceParam) webhookdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("webhook.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Create implements domain.Service.
func (s *Service) Create(ctx context.Context, req webhookdomain.CreateWebhookConfigRequest) (webhookdomain.WebhookConfigResponse, error) {
	userID, err := parseID(req.UserID, webhookdomain.ErrInvalidUser)
	if err != nil {
		return webhookdomain.WebhookConfigResponse{}, err
	}

	config, err := webhookdomain.NewWebhookConfig(s.genID.Generate(), userID, req.URL, req.Secret, s.clock.Now())
	if err != nil {
		return webhookdomain.WebhookConfigResponse{}, err
	}

	if err := s.repo.Insert(ctx, s.db, config); err != nil {
		return webhookdomain.WebhookConfigResponse{}, err
	}

	s.log.Info("webhook config created",
		zap.String("webhook_config_id", config.ID.String()),
		zap.String("user_id", config.UserID.String()),
	)
	return toResponse(*config), nil
}

// Update implements domain.Service.
func (s *Service) Update(ctx context.Context, req webhookdomain.UpdateWebhookConfigRequest) (webhookdomain.WebhookConfigResponse, error) {
	config, err := s.load(ctx, req.UserID, req.ConfigID)
	if err != nil {
		return webhookdomain.WebhookConfigResponse{}, err
	}

	now := s.clock.Now()
	if req.URL != nil {
		if err := config.ChangeURL(*req.URL, now); err != nil {
			return webhookdomain.WebhookConfigResponse{}, err
		}
	}
	if req.Secret != nil {
		config.ChangeSecret(*req.Secret, now)
	}
	if req.Active != nil {
		if *req.Active {
			config.Activate(now)
		} else {
			config.Deactivate(now)
		}
	}

	affected, err := s.repo.Update(ctx, s.db, config)
	if err != nil {
		return webhookdomain.WebhookConfigResponse{}, err
	}
	if affected == 0 {
		return webhookdomain.WebhookConfigResponse{}, webhookdomain.ErrWebhookConfigNotFound
	}
	return toResponse(*config), nil
}

// GetByID implements domain.Service.
func (s *Service) GetByID(ctx context.Context, userID, id string) (webhookdomain.WebhookConfigResponse, error) {
	config, err := s.load(ctx, userID, id)
	if err != nil {
		return webhookdomain.WebhookConfigResponse{}, err
	}
	return toResponse(*config), nil
}

// List implements domain.Service.
func (s *Service) List(ctx context.Context, rawUserID string) (webhookdomain.ListWebhookConfigResponse, error) {
	userID, err := parseID(rawUserID, webhookdomain.ErrInvalidUser)
	if err != nil {
		return webhookdomain.ListWebhookConfigResponse{}, err
	}

	configs, err := s.repo.ListByUserID(ctx, s.db, userID)
	if err != nil {
		return webhookdomain.ListWebhookConfigResponse{}, err
	}

	resp := webhookdomain.ListWebhookConfigResponse{
		Configs: make([]webhookdomain.WebhookConfigResponse, 0, len(configs)),
	}
	for _, config := range configs {
		resp.Configs = append(resp.Configs, toResponse(config))
	}
	return resp, nil
}

// Delete implements domain.Service.
func (s *Service) Delete(ctx context.Context, rawUserID, rawID string) error {
	userID, err := parseID(rawUserID, webhookdomain.ErrInvalidUser)
	if err != nil {
		return err
	}
	id, err := parseID(rawID, webhookdomain.ErrWebhookConfigNotFound)
	if err != nil {
		return err
	}

	affected, err := s.repo.Delete(ctx, s.db, userID, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return webhookdomain.ErrWebhookConfigNotFound
	}
	return nil
}

func (s *Service) load(ctx context.Context, rawUserID, rawID string) (*webhookdomain.WebhookConfig, error) {
	userID, err := parseID(rawUserID, webhookdomain.ErrInvalidUser)
	if err != nil {
		return nil, err
	}
	id, err := parseID(rawID, webhookdomain.ErrWebhookConfigNotFound)
	if err != nil {
		return nil, err
	}

	config, err := s.repo.FindByID(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, webhookdomain.ErrWebhookConfigNotFound
	}
	return config, nil
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

func toResponse(config webhookdomain.WebhookConfig) webhookdomain.WebhookConfigResponse {
	return webhookdomain.WebhookConfigResponse{
		ID:        config.ID.String(),
		UserID:    config.UserID.String(),
		URL:       config.URL,
		HasSecret: config.Secret != "",
		Active:    config.Active,
		CreatedAt: config.CreatedAt,
		UpdatedAt: config.UpdatedAt,
	}
}
