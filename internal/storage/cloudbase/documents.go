package cloudbase

import (
	"time"

	"github.com/magabrotheeeer/randomlife/internal/models"
)

// Имена коллекций.
const (
	collUsers         = "users"
	collSubscriptions = "subscriptions"
	collPayments      = "payments"
	collHistory       = "recommendation_history"
	collPreferences   = "user_preferences"
	collFeedback      = "feedback"
)

// Время хранится в unix-миллисекундах, чтобы фильтры по диапазону
// и сортировка работали по обычным числам.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func fromMillisPtr(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := fromMillis(ms)
	return &t
}

type userDoc struct {
	ID                  string `json:"_id"`
	Email               string `json:"email"`
	Name                string `json:"name"`
	AvatarURL           string `json:"avatar_url"`
	Region              string `json:"region"`
	Tier                string `json:"tier"`
	SubscriptionStatus  string `json:"subscription_status"`
	Role                string `json:"role"`
	Provider            string `json:"provider"`
	WechatOpenID        string `json:"wechat_openid"`
	PasswordHash        string `json:"password_hash"`
	OnboardingCompleted bool   `json:"onboarding_completed"`
	CreatedAt           int64  `json:"created_at"`
	UpdatedAt           int64  `json:"updated_at"`
}

func (d userDoc) model() *models.User {
	return &models.User{
		ID:                  d.ID,
		Email:               d.Email,
		Name:                d.Name,
		AvatarURL:           d.AvatarURL,
		Region:              d.Region,
		Tier:                models.Tier(d.Tier),
		SubscriptionStatus:  d.SubscriptionStatus,
		Role:                d.Role,
		Provider:            d.Provider,
		WechatOpenID:        d.WechatOpenID,
		PasswordHash:        d.PasswordHash,
		OnboardingCompleted: d.OnboardingCompleted,
		CreatedAt:           fromMillis(d.CreatedAt),
		UpdatedAt:           fromMillis(d.UpdatedAt),
	}
}

type subscriptionDoc struct {
	ID        string `json:"_id"` // id пользователя
	UserID    string `json:"user_id"`
	Plan      string `json:"plan"`
	Tier      string `json:"tier"`
	Status    string `json:"status"`
	StartDate int64  `json:"start_date"`
	EndDate   int64  `json:"end_date"`
	UpdatedAt int64  `json:"updated_at"`
}

func (d subscriptionDoc) model() *models.Subscription {
	return &models.Subscription{
		UserID:    d.UserID,
		Plan:      models.PlanType(d.Plan),
		Tier:      models.Tier(d.Tier),
		Status:    d.Status,
		StartDate: fromMillis(d.StartDate),
		EndDate:   fromMillis(d.EndDate),
		UpdatedAt: fromMillis(d.UpdatedAt),
	}
}

type paymentDoc struct {
	ID              string            `json:"_id"`
	UserID          string            `json:"user_id"`
	Provider        string            `json:"provider"`
	ProviderOrderID string            `json:"provider_order_id"`
	TransactionID   string            `json:"transaction_id"`
	Plan            string            `json:"plan"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	Status          string            `json:"status"`
	Metadata        map[string]string `json:"metadata"`
	CreatedAt       int64             `json:"created_at"`
	UpdatedAt       int64             `json:"updated_at"`
	CompletedAt     int64             `json:"completed_at"`
}

func (d paymentDoc) model() *models.Payment {
	return &models.Payment{
		ID:              d.ID,
		UserID:          d.UserID,
		Provider:        d.Provider,
		ProviderOrderID: d.ProviderOrderID,
		TransactionID:   d.TransactionID,
		Plan:            models.PlanType(d.Plan),
		Amount:          d.Amount,
		Currency:        d.Currency,
		Status:          models.PaymentStatus(d.Status),
		Metadata:        d.Metadata,
		CreatedAt:       fromMillis(d.CreatedAt),
		UpdatedAt:       fromMillis(d.UpdatedAt),
		CompletedAt:     fromMillisPtr(d.CompletedAt),
	}
}

type historyDoc struct {
	ID          string            `json:"_id"`
	UserID      string            `json:"user_id"`
	Category    string            `json:"category"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Link        string            `json:"link"`
	Platform    string            `json:"platform"`
	SearchQuery string            `json:"search_query"`
	Tags        []string          `json:"tags"`
	Clicked     bool              `json:"clicked"`
	Saved       bool              `json:"saved"`
	ClickedAt   int64             `json:"clicked_at"`
	Metadata    map[string]string `json:"metadata"`
	CreatedAt   int64             `json:"created_at"`
}

func (d historyDoc) model() *models.RecommendationHistory {
	return &models.RecommendationHistory{
		ID:          d.ID,
		UserID:      d.UserID,
		Category:    models.Category(d.Category),
		Title:       d.Title,
		Description: d.Description,
		Link:        d.Link,
		Platform:    d.Platform,
		SearchQuery: d.SearchQuery,
		Tags:        d.Tags,
		Clicked:     d.Clicked,
		Saved:       d.Saved,
		ClickedAt:   fromMillisPtr(d.ClickedAt),
		Metadata:    d.Metadata,
		CreatedAt:   fromMillis(d.CreatedAt),
	}
}

type preferenceDoc struct {
	ID        string             `json:"_id"` // user_id:category
	UserID    string             `json:"user_id"`
	Category  string             `json:"category"`
	Counts    map[string]int     `json:"counts"`
	Weights   map[string]float64 `json:"weights"`
	UpdatedAt int64              `json:"updated_at"`
}

type feedbackDoc struct {
	ID        string `json:"_id"`
	UserID    string `json:"user_id"`
	Category  string `json:"category"`
	Rating    int    `json:"rating"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}
