// Package models содержит доменные записи, общие для региональных адаптеров
// хранилища, сервисов и HTTP-хендлеров.
package models

import "time"

// Tier коммерческий уровень пользователя.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Роли.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User аккаунт в одном из региональных бэкендов.
type User struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	Name                string    `json:"name"`
	AvatarURL           string    `json:"avatar_url,omitempty"`
	Region              string    `json:"region"`
	Tier                Tier      `json:"tier"`
	SubscriptionStatus  string    `json:"subscription_status"`
	Role                string    `json:"role"`
	Provider            string    `json:"provider"`                // email, wechat, google, ...
	WechatOpenID        string    `json:"wechat_openid,omitempty"` // только CN
	PasswordHash        string    `json:"-"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ProfileUpdate редактируемые пользователем поля. Nil-поля не меняются.
type ProfileUpdate struct {
	Name                *string
	AvatarURL           *string
	OnboardingCompleted *bool
}
