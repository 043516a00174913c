package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	UserID   snowflake.ID
	Status   SubscriptionStatus
	Category string
	AfterID  snowflake.ID
	Limit    int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	Update(ctx context.Context, db *gorm.DB, subscription *Subscription) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*Subscription, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Subscription, error)
	// FindDueForBilling returns active subscriptions whose next billing
	// date equals the given day. The equality predicate is what makes a
	// repeated billing run idempotent: an advanced subscription no longer
	// matches and is skipped.
	FindDueForBilling(ctx context.Context, db *gorm.DB, day time.Time) ([]Subscription, error)
}
