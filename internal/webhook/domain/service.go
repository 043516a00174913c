package domain

import (
	"context"
	"time"
)

type CreateWebhookConfigRequest struct {
	UserID string `json:"-"`
	URL    string `json:"url" binding:"required"`
	Secret string `json:"secret"`
}

type UpdateWebhookConfigRequest struct {
	UserID   string  `json:"-"`
	ConfigID string  `json:"-"`
	URL      *string `json:"url"`
	Secret   *string `json:"secret"`
	Active   *bool   `json:"active"`
}

// WebhookConfigResponse omits the secret; callers only learn whether one is set.
type WebhookConfigResponse struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	URL       string     `json:"url"`
	HasSecret bool       `json:"has_secret"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type ListWebhookConfigResponse struct {
	Configs []WebhookConfigResponse `json:"webhook_configs"`
}

type Service interface {
	Create(context.Context, CreateWebhookConfigRequest) (WebhookConfigResponse, error)
	Update(context.Context, UpdateWebhookConfigRequest) (WebhookConfigResponse, error)
	GetByID(ctx context.Context, userID, id string) (WebhookConfigResponse, error)
	List(ctx context.Context, userID string) (ListWebhookConfigResponse, error)
	Delete(ctx context.Context, userID, id string) error
}
