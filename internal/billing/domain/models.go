// Package domain contains the billing history model and cycle arithmetic.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BillingHistory is an immutable record of one completed renewal.
// AmountPaid is an integer amount in minor currency units.
type BillingHistory struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	SubscriptionID snowflake.ID `gorm:"not null;index"`
	AmountPaid     int64        `gorm:"not null"`
	PaidAt         time.Time    `gorm:"not null"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingHistory) TableName() string { return "billing_histories" }
