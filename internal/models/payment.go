package models

import "time"

// PaymentStatus состояние платежа.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment попытка оплаты через одного из платежных провайдеров.
// Amount хранится в минорных единицах (центы, фэни).
type Payment struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	Provider        string            `json:"provider"`
	ProviderOrderID string            `json:"provider_order_id"`
	TransactionID   string            `json:"transaction_id,omitempty"`
	Plan            PlanType          `json:"plan"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	Status          PaymentStatus     `json:"status"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

// RecentPaymentQuery параметры поиска дубликата оплаты.
type RecentPaymentQuery struct {
	UserID   string
	Provider string
	Plan     PlanType
	Amount   int64
	Since    time.Time
}
