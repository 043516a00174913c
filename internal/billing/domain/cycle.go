package domain

import (
	"time"

	subscriptiondomain "github.com/smallbiznis/subtrack/internal/subscription/domain"
)

// NextBillingDate advances a billing date by one cycle using calendar
// months, not fixed day offsets. AddDate follows Go's month-overflow
// normalization, so Jan 31 + 1 month lands on Mar 2/3 rather than a
// clamped Feb date.
func NextBillingDate(current time.Time, cycle subscriptiondomain.BillingCycle) time.Time {
	current = subscriptiondomain.TruncateToDay(current)
	switch cycle {
	case subscriptiondomain.BillingCycleYearly:
		return current.AddDate(0, 12, 0)
	default:
		return current.AddDate(0, 1, 0)
	}
}
