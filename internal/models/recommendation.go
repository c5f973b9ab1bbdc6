package models

import "time"

// Category одна из пяти категорий рекомендаций.
type Category string

const (
	CategoryEntertainment Category = "entertainment"
	CategoryShopping      Category = "shopping"
	CategoryFood          Category = "food"
	CategoryTravel        Category = "travel"
	CategoryFitness       Category = "fitness"
)

// Categories все поддерживаемые категории в порядке отображения.
var Categories = []Category{
	CategoryEntertainment,
	CategoryShopping,
	CategoryFood,
	CategoryTravel,
	CategoryFitness,
}

// Valid проверяет, что c поддерживаемая категория.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Recommendation одна сгенерированная рекомендация до сохранения.
type Recommendation struct {
	ID          string   `json:"id,omitempty"`
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Reason      string   `json:"reason,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Platform    string   `json:"platform"`
	SearchQuery string   `json:"search_query"`
	Link        string   `json:"link"`
}

// RecommendationHistory запись истории, только добавляется, статусы мягкие.
type RecommendationHistory struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Category    Category          `json:"category"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Link        string            `json:"link"`
	Platform    string            `json:"platform"`
	SearchQuery string            `json:"search_query"`
	Tags        []string          `json:"tags"`
	Clicked     bool              `json:"clicked"`
	Saved       bool              `json:"saved"`
	ClickedAt   *time.Time        `json:"clicked_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// HistoryFilter сужает выборку истории. Пустая Category значит все категории.
type HistoryFilter struct {
	Category  Category
	SavedOnly bool
	Limit     int
	Offset    int
}
