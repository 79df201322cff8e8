// Package billing provides the subscription collaborator consumed by the
// organization engine: paid-plan lookup and subscription cancellation.
package billing

import (
	"context"
	"time"
)

// SubscriptionStatus represents the lifecycle state of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Plan represents a billing plan
type Plan string

const (
	PlanFree Plan = "free"
	PlanPaid Plan = "paid"
)

// Subscription represents a billing subscription for an organization
type Subscription struct {
	ID                 int64              `json:"id"`
	OrgID              string             `json:"org_id"`
	Plan               Plan               `json:"plan"`
	Status             SubscriptionStatus `json:"status"`
	CurrentPeriodStart *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Service defines the billing operations the organization engine depends on.
type Service interface {
	// FindUncancelledSubscription returns the organization's live
	// subscription, or nil when the organization is on the free plan.
	FindUncancelledSubscription(ctx context.Context, orgID string) (*Subscription, error)

	// CancelSubscriptions cancels every live subscription of the organization.
	CancelSubscriptions(ctx context.Context, orgID string) error
}
