package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/subtrack/pkg/db/pagination"
)

type ListSubscriptionRequest struct {
	UserID    string
	Status    string
	Category  string
	PageToken string
	PageSize  int
}

type ListSubscriptionResponse struct {
	pagination.PageInfo
	Subscriptions []Subscription `json:"subscriptions"`
}

type CreateSubscriptionRequest struct {
	UserID          string `json:"-"`
	Name            string `json:"name"`
	Price           int64  `json:"price"`
	Currency        string `json:"currency"`
	BillingCycle    string `json:"billing_cycle"`
	NextBillingDate string `json:"next_billing_date"`
	Category        string `json:"category,omitempty"`
}

type UpdateSubscriptionRequest struct {
	UserID          string  `json:"-"`
	SubscriptionID  string  `json:"-"`
	Name            *string `json:"name,omitempty"`
	Price           *int64  `json:"price,omitempty"`
	BillingCycle    *string `json:"billing_cycle,omitempty"`
	NextBillingDate *string `json:"next_billing_date,omitempty"`
	Category        *string `json:"category,omitempty"`
}

type SubscriptionResponse struct {
	ID              string             `json:"id"`
	UserID          string             `json:"user_id"`
	Name            string             `json:"name"`
	Price           int64              `json:"price"`
	Currency        string             `json:"currency"`
	BillingCycle    BillingCycle       `json:"billing_cycle"`
	NextBillingDate string             `json:"next_billing_date"`
	Category        string             `json:"category,omitempty"`
	Status          SubscriptionStatus `json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       *time.Time         `json:"updated_at,omitempty"`
}

type Service interface {
	Create(context.Context, CreateSubscriptionRequest) (SubscriptionResponse, error)
	Update(context.Context, UpdateSubscriptionRequest) (SubscriptionResponse, error)
	GetByID(ctx context.Context, userID, id string) (SubscriptionResponse, error)
	List(context.Context, ListSubscriptionRequest) (ListSubscriptionResponse, error)
	Pause(ctx context.Context, userID, id string) error
	Resume(ctx context.Context, userID, id string) error
	Cancel(ctx context.Context, userID, id string) error
}

var (
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidPrice         = errors.New("invalid_price")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidBillingCycle  = errors.New("invalid_billing_cycle")
	ErrInvalidBillingDate   = errors.New("invalid_billing_date")
	ErrPastBillingDate      = errors.New("past_billing_date")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidTransition    = errors.New("invalid_transition")
	ErrInvalidUser          = errors.New("invalid_user")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
)
