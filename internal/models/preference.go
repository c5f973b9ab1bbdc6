package models

import "time"

// UserPreference взвешенные теги пользователя по категории. Weights это
// Counts, нормированные так, чтобы сумма была равна единице.
type UserPreference struct {
	UserID    string             `json:"user_id"`
	Category  Category           `json:"category"`
	Counts    map[string]int     `json:"counts"`
	Weights   map[string]float64 `json:"weights"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// PreferenceEvent отправляется, когда пользователь взаимодействует с рекомендацией.
type PreferenceEvent struct {
	UserID   string   `json:"user_id"`
	Category Category `json:"category"`
	Tags     []string `json:"tags"`
}
