package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/smallbiznis/subtrack/internal/subscription/domain"
)

// Recorder persists immutable billing facts. Storage errors propagate
// un-recovered; retry policy belongs to the enclosing job.
type Recorder interface {
	Record(ctx context.Context, subscriptionID snowflake.ID, amount int64, paidAt time.Time) (BillingHistory, error)
}

// Advancer moves a subscription's next billing date forward one cycle
// and persists the change.
type Advancer interface {
	Advance(ctx context.Context, subscription *subscriptiondomain.Subscription) error
}

type ListHistoryRequest struct {
	UserID         string
	SubscriptionID string
	Limit          int
}

type ListHistoryResponse struct {
	Histories []BillingHistory `json:"billing_histories"`
}

// HistoryService exposes read access to recorded renewals.
type HistoryService interface {
	List(context.Context, ListHistoryRequest) (ListHistoryResponse, error)
}

var (
	ErrInvalidAmount = errors.New("invalid_amount")
)
