package models

import "time"

// Feedback оценка с комментарием от пользователя или анонима.
type Feedback struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Category  string    `json:"category,omitempty"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Page окно limit/offset.
type Page struct {
	Limit  int
	Offset int
}

// SourceStats сводка админки по одному региональному бэкенду.
type SourceStats struct {
	Users              int              `json:"users"`
	ProUsers           int              `json:"pro_users"`
	CompletedPayments  int              `json:"completed_payments"`
	RevenueByCurrency  map[string]int64 `json:"revenue_by_currency"`
	Recommendations    int              `json:"recommendations"`
	ClickedRecommended int              `json:"clicked_recommendations"`
}
