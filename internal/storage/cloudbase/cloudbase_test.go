package cloudbase

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

// newTestStorage returns a Storage whose clock advances one second per call.
func newTestStorage(t *testing.T) *Storage {
	_, srv := newFakeGateway(t)
	s := New(NewClient(srv.URL, "randomlife-test", testToken, 5*time.Second))
	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestClient_APIError(t *testing.T) {
	_, srv := newFakeGateway(t)
	c := NewClient(srv.URL, "env", "wrong", time.Second)

	_, err := c.Count(context.Background(), collUsers, map[string]any{})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "INVALID_ACCESS_TOKEN", apiErr.Code)
}

func TestStorage_Users(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	id, err := s.CreateUser(ctx, models.User{
		Name:         "微信用户",
		Region:       "CN",
		Provider:     "wechat",
		WechatOpenID: "openid-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = s.CreateUser(ctx, models.User{WechatOpenID: "openid-1"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = s.CreateUser(ctx, models.User{Email: "Li@Example.cn", Provider: "email", PasswordHash: "hash"})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, models.User{Email: "li@example.cn"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists, "emails are compared case-insensitively")

	u, err := s.GetUserByWechatOpenID(ctx, "openid-1")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, models.TierFree, u.Tier)
	assert.False(t, u.CreatedAt.IsZero())

	byEmail, err := s.GetUserByEmail(ctx, "LI@example.cn")
	require.NoError(t, err)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	avatar := "https://thirdwx.qlogo.cn/a.png"
	require.NoError(t, s.UpdateUserProfile(ctx, id, models.ProfileUpdate{AvatarURL: &avatar}))
	require.NoError(t, s.UpdateUserTier(ctx, id, models.TierPro, models.SubscriptionActive))

	u, err = s.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, avatar, u.AvatarURL)
	assert.Equal(t, models.TierPro, u.Tier)
	assert.Equal(t, "微信用户", u.Name)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.UpdateUserTier(ctx, "missing", models.TierPro, ""), storage.ErrNotFound)

	users, err := s.ListUsers(ctx, models.Page{})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "li@example.cn", users[0].Email, "newest first")
}

func TestStorage_RecommendationHistory(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"火锅", "烧烤", "寿司"} {
		id, err := s.SaveRecommendation(ctx, models.RecommendationHistory{
			UserID:   "u1",
			Category: models.CategoryFood,
			Title:    title,
			Tags:     []string{"spicy"},
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err := s.SaveRecommendation(ctx, models.RecommendationHistory{UserID: "u1", Category: models.CategoryTravel, Title: "西湖"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		filter    models.HistoryFilter
		wantCount int
		wantFirst string
	}{
		{name: "all", filter: models.HistoryFilter{}, wantCount: 4, wantFirst: "西湖"},
		{name: "category", filter: models.HistoryFilter{Category: models.CategoryFood}, wantCount: 3, wantFirst: "寿司"},
		{name: "paged", filter: models.HistoryFilter{Category: models.CategoryFood, Limit: 1, Offset: 1}, wantCount: 1, wantFirst: "烧烤"},
		{name: "offset past end", filter: models.HistoryFilter{Offset: 10}, wantCount: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetRecommendationHistory(ctx, "u1", tt.filter)
			require.NoError(t, err)
			require.Len(t, got, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, tt.wantFirst, got[0].Title)
			}
		})
	}

	require.NoError(t, s.RecordClick(ctx, "u1", ids[0]))
	first, err := s.GetRecommendation(ctx, "u1", ids[0])
	require.NoError(t, err)
	require.NotNil(t, first.ClickedAt)
	clickedAt := *first.ClickedAt

	require.NoError(t, s.RecordClick(ctx, "u1", ids[0]))
	again, err := s.GetRecommendation(ctx, "u1", ids[0])
	require.NoError(t, err)
	assert.True(t, clickedAt.Equal(*again.ClickedAt), "first click time is kept")

	assert.ErrorIs(t, s.RecordClick(ctx, "u2", ids[0]), storage.ErrNotFound)

	require.NoError(t, s.SetRecommendationSaved(ctx, "u1", ids[1], true))
	saved, err := s.GetRecommendationHistory(ctx, "u1", models.HistoryFilter{SavedOnly: true})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, ids[1], saved[0].ID)

	require.NoError(t, s.DeleteRecommendation(ctx, "u1", ids[2]))
	assert.ErrorIs(t, s.DeleteRecommendation(ctx, "u1", ids[2]), storage.ErrNotFound)
}

func TestStorage_PreferencesAndSubscriptions(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetUserPreference(ctx, "u1", models.CategoryFitness)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	pref := models.UserPreference{
		UserID:   "u1",
		Category: models.CategoryFitness,
		Counts:   map[string]int{"yoga": 2},
		Weights:  map[string]float64{"yoga": 1},
	}
	require.NoError(t, s.UpsertUserPreference(ctx, pref))
	pref.Counts["running"] = 2
	pref.Weights = map[string]float64{"yoga": 0.5, "running": 0.5}
	require.NoError(t, s.UpsertUserPreference(ctx, pref))

	got, err := s.GetUserPreference(ctx, "u1", models.CategoryFitness)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Counts["running"])
	assert.InDelta(t, 0.5, got.Weights["yoga"], 1e-9)

	id, err := s.CreateUser(ctx, models.User{Email: "sub@example.cn", Name: "Sub"})
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertSubscription(ctx, models.Subscription{
		UserID: id, Plan: models.PlanMonthly, Tier: models.TierPro, Status: models.SubscriptionActive,
		StartDate: now.AddDate(0, 0, -30), EndDate: now.Add(6 * time.Hour),
	}))

	sub, err := s.GetSubscription(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PlanMonthly, sub.Plan)
	assert.True(t, sub.EndDate.Equal(now.Add(6*time.Hour)))

	expiring, err := s.FindExpiringSubscriptions(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "sub@example.cn", expiring[0].Email)

	expiring, err = s.FindExpiringSubscriptions(ctx, now.Add(24*time.Hour), now.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, expiring)
}

func TestStorage_PaymentsAndStats(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	userID, err := s.CreateUser(ctx, models.User{Email: "pay@example.cn"})
	require.NoError(t, err)

	since := s.now()
	id, err := s.CreatePayment(ctx, models.Payment{
		UserID:          userID,
		Provider:        "wechat",
		ProviderOrderID: "RL20250301",
		Plan:            models.PlanYearly,
		Amount:          9900,
		Currency:        "CNY",
		Metadata:        map[string]string{"code_url": "weixin://wxpay/bizpayurl?pr=abc"},
	})
	require.NoError(t, err)

	_, err = s.CreatePayment(ctx, models.Payment{Provider: "wechat", ProviderOrderID: "RL20250301"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	recent, err := s.FindRecentPayment(ctx, models.RecentPaymentQuery{
		UserID: userID, Provider: "wechat", Plan: models.PlanYearly, Amount: 9900, Since: since,
	})
	require.NoError(t, err)
	assert.Equal(t, id, recent.ID)
	assert.Equal(t, models.PaymentPending, recent.Status)

	_, err = s.FindRecentPayment(ctx, models.RecentPaymentQuery{
		UserID: userID, Provider: "alipay", Plan: models.PlanYearly, Amount: 9900, Since: since,
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	moved, err := s.UpdatePaymentStatus(ctx, id, models.PaymentPending, models.PaymentCompleted, "4200001234")
	require.NoError(t, err)
	require.True(t, moved)
	moved, err = s.UpdatePaymentStatus(ctx, id, models.PaymentPending, models.PaymentCompleted, "4200009999")
	require.NoError(t, err)
	assert.False(t, moved, "only the first completion matches")
	p, err := s.GetPaymentByProviderOrder(ctx, "wechat", "RL20250301")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, p.Status)
	assert.Equal(t, "4200001234", p.TransactionID)
	require.NotNil(t, p.CompletedAt)
	assert.Equal(t, "weixin://wxpay/bizpayurl?pr=abc", p.Metadata["code_url"])

	_, err = s.FindRecentPayment(ctx, models.RecentPaymentQuery{
		UserID: userID, Provider: "wechat", Plan: models.PlanYearly, Amount: 9900, Since: since,
	})
	assert.ErrorIs(t, err, storage.ErrNotFound, "completed payments are not reused")

	require.NoError(t, s.UpdateUserTier(ctx, userID, models.TierPro, models.SubscriptionActive))
	_, err = s.SaveRecommendation(ctx, models.RecommendationHistory{UserID: userID, Category: models.CategoryShopping, Title: "耳机"})
	require.NoError(t, err)
	_, err = s.SaveFeedback(ctx, models.Feedback{UserID: userID, Rating: 4, Content: "不错"})
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Users)
	assert.Equal(t, 1, stats.ProUsers)
	assert.Equal(t, 1, stats.CompletedPayments)
	assert.Equal(t, 1, stats.Recommendations)
	assert.Equal(t, int64(9900), stats.RevenueByCurrency["CNY"])

	all, err := s.ListAllPayments(ctx, models.Page{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
