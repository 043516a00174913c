// Package domain contains persistence models for tracked subscriptions.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusPaused, SubscriptionStatusCancelled:
		return true
	}
	return false
}

// BillingCycle is the recurrence unit governing how often a subscription renews.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

func (c BillingCycle) Valid() bool {
	return c == BillingCycleMonthly || c == BillingCycleYearly
}

// Subscription captures a recurring payment a user tracks.
// Price is an integer amount in minor currency units.
type Subscription struct {
	ID              snowflake.ID       `gorm:"primaryKey"`
	UserID          snowflake.ID       `gorm:"not null;index"`
	Name            string             `gorm:"type:text;not null"`
	Price           int64              `gorm:"not null"`
	Currency        string             `gorm:"type:text;not null"`
	BillingCycle    BillingCycle       `gorm:"type:text;not null"`
	NextBillingDate time.Time          `gorm:"type:date;not null;index"`
	Category        string             `gorm:"type:text"`
	Status          SubscriptionStatus `gorm:"type:text;not null;default:'active'"`
	Metadata        datatypes.JSONMap  `gorm:"type:jsonb"`
	CreatedAt       time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       *time.Time         `gorm:""`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// NewSubscription validates and builds a subscription aggregate.
func NewSubscription(id, userID snowflake.ID, name string, price int64, currency string, cycle BillingCycle, nextBillingDate time.Time, category string, now time.Time) (*Subscription, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if price < 0 {
		return nil, ErrInvalidPrice
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return nil, ErrInvalidCurrency
	}
	if !cycle.Valid() {
		return nil, ErrInvalidBillingCycle
	}
	nextBillingDate = TruncateToDay(nextBillingDate)
	if nextBillingDate.Before(TruncateToDay(now)) {
		return nil, ErrPastBillingDate
	}

	return &Subscription{
		ID:              id,
		UserID:          userID,
		Name:            name,
		Price:           price,
		Currency:        currency,
		BillingCycle:    cycle,
		NextBillingDate: nextBillingDate,
		Category:        strings.TrimSpace(category),
		Status:          SubscriptionStatusActive,
		CreatedAt:       now,
	}, nil
}

// ChangeName renames the subscription.
func (s *Subscription) ChangeName(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	s.Name = name
	s.touch(now)
	return nil
}

// ChangePrice updates the renewal amount in minor units.
func (s *Subscription) ChangePrice(price int64, now time.Time) error {
	if price < 0 {
		return ErrInvalidPrice
	}
	s.Price = price
	s.touch(now)
	return nil
}

// ChangeNextBillingDate moves the next renewal through the user-facing
// update path. Past dates are rejected here; billing advancement moves
// the date forward through AdvanceBillingDate instead.
func (s *Subscription) ChangeNextBillingDate(date time.Time, now time.Time) error {
	date = TruncateToDay(date)
	if date.Before(TruncateToDay(now)) {
		return ErrPastBillingDate
	}
	s.NextBillingDate = date
	s.touch(now)
	return nil
}

// ChangeBillingCycle switches between monthly and yearly renewal.
func (s *Subscription) ChangeBillingCycle(cycle BillingCycle, now time.Time) error {
	if !cycle.Valid() {
		return ErrInvalidBillingCycle
	}
	s.BillingCycle = cycle
	s.touch(now)
	return nil
}

// ChangeCategory reassigns the subscription's category label.
func (s *Subscription) ChangeCategory(category string, now time.Time) {
	s.Category = strings.TrimSpace(category)
	s.touch(now)
}

// Pause suspends renewals without losing the subscription.
func (s *Subscription) Pause(now time.Time) error {
	if s.Status == SubscriptionStatusCancelled {
		return ErrInvalidTransition
	}
	s.Status = SubscriptionStatusPaused
	s.touch(now)
	return nil
}

// Resume reactivates a paused subscription.
func (s *Subscription) Resume(now time.Time) error {
	if s.Status == SubscriptionStatusCancelled {
		return ErrInvalidTransition
	}
	s.Status = SubscriptionStatusActive
	s.touch(now)
	return nil
}

// Cancel terminates the subscription; renewals stop matching the due query.
func (s *Subscription) Cancel(now time.Time) {
	s.Status = SubscriptionStatusCancelled
	s.touch(now)
}

// AdvanceBillingDate assigns the post-renewal billing date. The billing
// pipeline owns this path, so the past-date guard does not apply.
func (s *Subscription) AdvanceBillingDate(date time.Time, now time.Time) {
	s.NextBillingDate = TruncateToDay(date)
	s.touch(now)
}

func (s *Subscription) touch(now time.Time) {
	t := now
	s.UpdatedAt = &t
}

// TruncateToDay normalizes a timestamp to UTC midnight. Billing dates are
// compared as calendar days, never as instants.
func TruncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
