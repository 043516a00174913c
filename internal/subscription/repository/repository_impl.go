package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/smallbiznis/subtrack/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, user_id, name, price, currency, billing_cycle, next_billing_date,
			category, status, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		subscription.ID,
		subscription.UserID,
		subscription.Name,
		subscription.Price,
		subscription.Currency,
		subscription.BillingCycle,
		subscription.NextBillingDate,
		subscription.Category,
		subscription.Status,
		subscription.Metadata,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET name = ?, price = ?, currency = ?, billing_cycle = ?, next_billing_date = ?,
		     category = ?, status = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		subscription.Name,
		subscription.Price,
		subscription.Currency,
		subscription.BillingCycle,
		subscription.NextBillingDate,
		subscription.Category,
		subscription.Status,
		subscription.UpdatedAt,
		subscription.ID,
		subscription.UserID,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, name, price, currency, billing_cycle, next_billing_date,
		        category, status, metadata, created_at, updated_at
		 FROM subscriptions
		 WHERE id = ? AND user_id = ?`,
		id,
		userID,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter subscriptiondomain.ListFilter) ([]subscriptiondomain.Subscription, error) {
	query := `SELECT id, user_id, name, price, currency, billing_cycle, next_billing_date,
	                 category, status, metadata, created_at, updated_at
	          FROM subscriptions
	          WHERE user_id = ?`
	args := []any{filter.UserID}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.AfterID != 0 {
		query += ` AND id > ?`
		args = append(args, filter.AfterID)
	}

	query += ` ORDER BY id LIMIT ?`
	args = append(args, filter.Limit)

	var subscriptions []subscriptiondomain.Subscription
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&subscriptions).Error; err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repo) FindDueForBilling(ctx context.Context, db *gorm.DB, day time.Time) ([]subscriptiondomain.Subscription, error) {
	var subscriptions []subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, name, price, currency, billing_cycle, next_billing_date,
		        category, status, metadata, created_at, updated_at
		 FROM subscriptions
		 WHERE status = ? AND next_billing_date = ?
		 ORDER BY id`,
		subscriptiondomain.SubscriptionStatusActive,
		subscriptiondomain.TruncateToDay(day),
	).Scan(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}
