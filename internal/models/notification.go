package models

import "time"

// EmailKind определяет шаблон исходящего письма.
type EmailKind string

const (
	EmailPaymentReceipt EmailKind = "payment_receipt"
	EmailExpiryReminder EmailKind = "expiry_reminder"
)

// EmailMessage ставится в очередь API и планировщиком, доставляется воркером.
type EmailMessage struct {
	Kind     EmailKind `json:"kind"`
	To       string    `json:"to"`
	Name     string    `json:"name,omitempty"`
	Locale   string    `json:"locale"`
	Plan     PlanType  `json:"plan"`
	Amount   int64     `json:"amount,omitempty"`
	Currency string    `json:"currency,omitempty"`
	EndDate  time.Time `json:"end_date"`
}
