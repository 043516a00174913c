package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, history *BillingHistory) error
	ListBySubscriptionID(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID, limit int) ([]BillingHistory, error)
}
