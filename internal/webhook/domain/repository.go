package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, config *WebhookConfig) error
	Update(ctx context.Context, db *gorm.DB, config *WebhookConfig) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*WebhookConfig, error)
	ListByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]WebhookConfig, error)

	// FindActiveByUserID returns the config renewal events are delivered
	// to, or nil when the user has none. When several rows are active the
	// most recently updated one wins.
	FindActiveByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*WebhookConfig, error)
}
