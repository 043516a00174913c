package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/subtrack/internal/billing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() billingdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, history *billingdomain.BillingHistory) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO billing_histories (id, subscription_id, amount_paid, paid_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		history.ID,
		history.SubscriptionID,
		history.AmountPaid,
		history.PaidAt,
		history.CreatedAt,
	).Error
}

func (r *repo) ListBySubscriptionID(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID, limit int) ([]billingdomain.BillingHistory, error) {
	var histories []billingdomain.BillingHistory
	err := db.WithContext(ctx).Raw(
		`SELECT id, subscription_id, amount_paid, paid_at, created_at
		 FROM billing_histories
		 WHERE subscription_id = ?
		 ORDER BY paid_at DESC, id DESC
		 LIMIT ?`,
		subscriptionID,
		limit,
	).Scan(&histories).Error
	if err != nil {
		return nil, err
	}
	return histories, nil
}
