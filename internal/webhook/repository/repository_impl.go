package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	webhookdomain "github.com/smallbiznis/subtrack/internal/webhook/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() webhookdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, config *webhookdomain.WebhookConfig) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO webhook_configs (id, user_id, url, secret, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		config.ID,
		config.UserID,
		config.URL,
		config.Secret,
		config.Active,
		config.CreatedAt,
		config.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, config *webhookdomain.WebhookConfig) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE webhook_configs
		 SET url = ?, secret = ?, active = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		config.URL,
		config.Secret,
		config.Active,
		config.UpdatedAt,
		config.ID,
		config.UserID,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM webhook_configs WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*webhookdomain.WebhookConfig, error) {
	var config webhookdomain.WebhookConfig
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, url, secret, active, created_at, updated_at
		 FROM webhook_configs
		 WHERE id = ? AND user_id = ?`,
		id,
		userID,
	).Scan(&config).Error
	if err != nil {
		return nil, err
	}
	if config.ID == 0 {
		return nil, nil
	}
	return &config, nil
}

func (r *repo) ListByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]webhookdomain.WebhookConfig, error) {
	var configs []webhookdomain.WebhookConfig
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, url, secret, active, created_at, updated_at
		 FROM webhook_configs
		 WHERE user_id = ?
		 ORDER BY id`,
		userID,
	).Scan(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *repo) FindActiveByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*webhookdomain.WebhookConfig, error) {
	var config webhookdomain.WebhookConfig
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, url, secret, active, created_at, updated_at
		 FROM webhook_configs
		 WHERE user_id = ? AND active = ?
		 ORDER BY COALESCE(updated_at, created_at) DESC, id DESC
		 LIMIT 1`,
		userID,
		true,
	).Scan(&config).Error
	if err != nil {
		return nil, err
	}
	if config.ID == 0 {
		return nil, nil
	}
	return &config, nil
}
