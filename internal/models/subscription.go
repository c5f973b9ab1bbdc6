package models

import "time"

// PlanType тарифный план подписки.
type PlanType string

const (
	PlanMonthly PlanType = "monthly"
	PlanYearly  PlanType = "yearly"
)

// Статусы подписки.
const (
	SubscriptionActive  = "active"
	SubscriptionExpired = "expired"
	SubscriptionNone    = "none"
)

// Subscription единственная подписка пользователя.
type Subscription struct {
	UserID    string    `json:"user_id"`
	Plan      PlanType  `json:"plan"`
	Tier      Tier      `json:"tier"`
	Status    string    `json:"status"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExpiringSubscription подписка вместе с контактами владельца
// для писем-напоминаний.
type ExpiringSubscription struct {
	UserID  string    `json:"user_id"`
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Plan    PlanType  `json:"plan"`
	EndDate time.Time `json:"end_date"`
}
