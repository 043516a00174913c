// Package domain contains webhook endpoint configuration for renewal events.
package domain

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// WebhookConfig is a user-registered endpoint for renewal notifications.
// Secret is optional; an empty secret means deliveries go unsigned.
type WebhookConfig struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    snowflake.ID `gorm:"not null;index"`
	URL       string       `gorm:"type:text;not null"`
	Secret    string       `gorm:"type:text"`
	Active    bool         `gorm:"not null;default:true"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt *time.Time   `gorm:""`
}

// TableName sets the database table name.
func (WebhookConfig) TableName() string { return "webhook_configs" }

var (
	ErrInvalidURL            = errors.New("invalid_url")
	ErrInvalidUser           = errors.New("invalid_user")
	ErrWebhookConfigNotFound = errors.New("webhook_config_not_found")
)

// NewWebhookConfig validates and builds a webhook config aggregate.
func NewWebhookConfig(id, userID snowflake.ID, rawURL, secret string, now time.Time) (*WebhookConfig, error) {
	endpoint, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &WebhookConfig{
		ID:        id,
		UserID:    userID,
		URL:       endpoint,
		Secret:    strings.TrimSpace(secret),
		Active:    true,
		CreatedAt: now,
	}, nil
}

// ChangeURL points the config at a new endpoint.
func (c *WebhookConfig) ChangeURL(rawURL string, now time.Time) error {
	endpoint, err := validateURL(rawURL)
	if err != nil {
		return err
	}
	c.URL = endpoint
	c.touch(now)
	return nil
}

// ChangeSecret rotates or clears the signing secret.
func (c *WebhookConfig) ChangeSecret(secret string, now time.Time) {
	c.Secret = strings.TrimSpace(secret)
	c.touch(now)
}

// Activate resumes deliveries to this endpoint.
func (c *WebhookConfig) Activate(now time.Time) {
	c.Active = true
	c.touch(now)
}

// Deactivate stops deliveries without deleting the config.
func (c *WebhookConfig) Deactivate(now time.Time) {
	c.Active = false
	c.touch(now)
}

func (c *WebhookConfig) touch(now time.Time) {
	t := now
	c.UpdatedAt = &t
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if parsed.Host == "" {
		return "", ErrInvalidURL
	}
	return parsed.String(), nil
}
