package cloudbase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/region"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

// Storage адаптер CloudBase.
type Storage struct {
	client *Client
	now    func() time.Time
}

var _ storage.Adapter = (*Storage)(nil)

// New оборачивает client.
func New(client *Client) *Storage {
	return &Storage{client: client, now: time.Now}
}

func (s *Storage) Name() string { return "cloudbase" }

func (s *Storage) Region() region.Region { return region.CN }

// Ping делает дешевый count по коллекции users.
func (s *Storage) Ping(ctx context.Context) error {
	_, err := s.client.Count(ctx, collUsers, map[string]any{"_id": "__ping__"})
	return err
}

func (s *Storage) Close() error {
	s.client.http.CloseIdleConnections()
	return nil
}

func mapErr(err error) error {
	switch {
	case isCode(err, codeDuplicate):
		return storage.ErrAlreadyExists
	case isCode(err, codeNotFound):
		return storage.ErrNotFound
	}
	return err
}

func desc(field string) []SortField {
	return []SortField{{Field: field, Direction: "desc"}}
}

func (s *Storage) findOne(ctx context.Context, collection string, filter map[string]any, out any) error {
	return s.client.Find(ctx, collection, Query{Filter: filter, Limit: 1}, out)
}

// CreateUser добавляет пользователя, предварительно проверив email и openid:
// уникальных ограничений в документной базе здесь нет.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.cloudbase.CreateUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if user.Email != "" {
		if _, err := s.GetUserByEmail(ctx, user.Email); err == nil {
			return "", fmt.Errorf("%s: email: %w", op, storage.ErrAlreadyExists)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}
	if user.WechatOpenID != "" {
		if _, err := s.GetUserByWechatOpenID(ctx, user.WechatOpenID); err == nil {
			return "", fmt.Errorf("%s: openid: %w", op, storage.ErrAlreadyExists)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Tier == "" {
		user.Tier = models.TierFree
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = models.SubscriptionNone
	}
	now := toMillis(s.now())
	doc := userDoc{
		ID:                  user.ID,
		Email:               strings.ToLower(user.Email),
		Name:                user.Name,
		AvatarURL:           user.AvatarURL,
		Region:              user.Region,
		Tier:                string(user.Tier),
		SubscriptionStatus:  user.SubscriptionStatus,
		Role:                user.Role,
		Provider:            user.Provider,
		WechatOpenID:        user.WechatOpenID,
		PasswordHash:        user.PasswordHash,
		OnboardingCompleted: user.OnboardingCompleted,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.client.Insert(ctx, collUsers, doc); err != nil {
		return "", fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return user.ID, nil
}

func (s *Storage) getUserBy(ctx context.Context, op string, filter map[string]any) (*models.User, error) {
	var docs []userDoc
	if err := s.findOne(ctx, collUsers, filter, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return docs[0].model(), nil
}

func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUserBy(ctx, "storage.cloudbase.GetUser", map[string]any{"_id": id})
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserBy(ctx, "storage.cloudbase.GetUserByEmail", map[string]any{"email": strings.ToLower(email)})
}

func (s *Storage) GetUserByWechatOpenID(ctx context.Context, openID string) (*models.User, error) {
	return s.getUserBy(ctx, "storage.cloudbase.GetUserByWechatOpenID", map[string]any{"wechat_openid": openID})
}

func (s *Storage) updateOne(ctx context.Context, op, collection string, filter, set map[string]any) error {
	n, err := s.client.Update(ctx, collection, filter, set, false)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

func (s *Storage) UpdateUserProfile(ctx context.Context, id string, upd models.ProfileUpdate) error {
	const op = "storage.cloudbase.UpdateUserProfile"

	set := map[string]any{"updated_at": toMillis(s.now())}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.AvatarURL != nil {
		set["avatar_url"] = *upd.AvatarURL
	}
	if upd.OnboardingCompleted != nil {
		set["onboarding_completed"] = *upd.OnboardingCompleted
	}
	return s.updateOne(ctx, op, collUsers, map[string]any{"_id": id}, set)
}

func (s *Storage) UpdateUserTier(ctx context.Context, id string, tier models.Tier, subscriptionStatus string) error {
	const op = "storage.cloudbase.UpdateUserTier"

	return s.updateOne(ctx, op, collUsers, map[string]any{"_id": id}, map[string]any{
		"tier":                string(tier),
		"subscription_status": subscriptionStatus,
		"updated_at":          toMillis(s.now()),
	})
}

func (s *Storage) SaveRecommendation(ctx context.Context, rec models.RecommendationHistory) (string, error) {
	const op = "storage.cloudbase.SaveRecommendation"

	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	doc := historyDoc{
		ID:          uuid.NewString(),
		UserID:      rec.UserID,
		Category:    string(rec.Category),
		Title:       rec.Title,
		Description: rec.Description,
		Link:        rec.Link,
		Platform:    rec.Platform,
		SearchQuery: rec.SearchQuery,
		Tags:        rec.Tags,
		Metadata:    rec.Metadata,
		CreatedAt:   toMillis(s.now()),
	}
	if err := s.client.Insert(ctx, collHistory, doc); err != nil {
		return "", fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return doc.ID, nil
}

func (s *Storage) GetRecommendation(ctx context.Context, userID, id string) (*models.RecommendationHistory, error) {
	const op = "storage.cloudbase.GetRecommendation"

	var docs []historyDoc
	if err := s.findOne(ctx, collHistory, map[string]any{"_id": id, "user_id": userID}, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return docs[0].model(), nil
}

func (s *Storage) GetRecommendationHistory(ctx context.Context, userID string, filter models.HistoryFilter) ([]*models.RecommendationHistory, error) {
	const op = "storage.cloudbase.GetRecommendationHistory"

	limit, offset := storage.ClampPage(filter.Limit, filter.Offset)
	q := map[string]any{"user_id": userID}
	if filter.Category != "" {
		q["category"] = string(filter.Category)
	}
	if filter.SavedOnly {
		q["saved"] = true
	}
	return s.findHistory(ctx, op, Query{Filter: q, Sort: desc("created_at"), Limit: limit, Offset: offset})
}

func (s *Storage) findHistory(ctx context.Context, op string, q Query) ([]*models.RecommendationHistory, error) {
	var docs []historyDoc
	if err := s.client.Find(ctx, collHistory, q, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	result := make([]*models.RecommendationHistory, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.model())
	}
	return result, nil
}

// RecordClick отмечает клик. Время первого клика сохраняется.
func (s *Storage) RecordClick(ctx context.Context, userID, id string) error {
	const op = "storage.cloudbase.RecordClick"

	rec, err := s.GetRecommendation(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rec.Clicked && rec.ClickedAt != nil {
		return nil
	}
	set := map[string]any{"clicked": true}
	if rec.ClickedAt == nil {
		set["clicked_at"] = toMillis(s.now())
	}
	if _, err := s.client.Update(ctx, collHistory, map[string]any{"_id": id, "user_id": userID}, set, false); err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return nil
}

func (s *Storage) SetRecommendationSaved(ctx context.Context, userID, id string, saved bool) error {
	const op = "storage.cloudbase.SetRecommendationSaved"

	return s.updateOne(ctx, op, collHistory, map[string]any{"_id": id, "user_id": userID}, map[string]any{"saved": saved})
}

func (s *Storage) DeleteRecommendation(ctx context.Context, userID, id string) error {
	const op = "storage.cloudbase.DeleteRecommendation"

	n, err := s.client.Delete(ctx, collHistory, map[string]any{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

func preferenceID(userID string, category models.Category) string {
	return userID + ":" + string(category)
}

func (s *Storage) GetUserPreference(ctx context.Context, userID string, category models.Category) (*models.UserPreference, error) {
	const op = "storage.cloudbase.GetUserPreference"

	var docs []preferenceDoc
	if err := s.findOne(ctx, collPreferences, map[string]any{"_id": preferenceID(userID, category)}, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	d := docs[0]
	return &models.UserPreference{
		UserID:    d.UserID,
		Category:  models.Category(d.Category),
		Counts:    d.Counts,
		Weights:   d.Weights,
		UpdatedAt: fromMillis(d.UpdatedAt),
	}, nil
}

func (s *Storage) UpsertUserPreference(ctx context.Context, pref models.UserPreference) error {
	const op = "storage.cloudbase.UpsertUserPreference"

	_, err := s.client.Update(ctx, collPreferences,
		map[string]any{"_id": preferenceID(pref.UserID, pref.Category)},
		map[string]any{
			"user_id":    pref.UserID,
			"category":   string(pref.Category),
			"counts":     pref.Counts,
			"weights":    pref.Weights,
			"updated_at": toMillis(s.now()),
		}, true)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return nil
}

func (s *Storage) CreatePayment(ctx context.Context, p models.Payment) (string, error) {
	const op = "storage.cloudbase.CreatePayment"

	if p.ProviderOrderID != "" {
		_, err := s.GetPaymentByProviderOrder(ctx, p.Provider, p.ProviderOrderID)
		if err == nil {
			return "", fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}
	if p.Status == "" {
		p.Status = models.PaymentPending
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := toMillis(s.now())
	doc := paymentDoc{
		ID:              p.ID,
		UserID:          p.UserID,
		Provider:        p.Provider,
		ProviderOrderID: p.ProviderOrderID,
		TransactionID:   p.TransactionID,
		Plan:            string(p.Plan),
		Amount:          p.Amount,
		Currency:        p.Currency,
		Status:          string(p.Status),
		Metadata:        p.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.client.Insert(ctx, collPayments, doc); err != nil {
		return "", fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return doc.ID, nil
}

func (s *Storage) getPaymentBy(ctx context.Context, op string, q Query) (*models.Payment, error) {
	var docs []paymentDoc
	if err := s.client.Find(ctx, collPayments, q, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return docs[0].model(), nil
}

func (s *Storage) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	return s.getPaymentBy(ctx, "storage.cloudbase.GetPayment",
		Query{Filter: map[string]any{"_id": id}, Limit: 1})
}

func (s *Storage) GetPaymentByProviderOrder(ctx context.Context, provider, providerOrderID string) (*models.Payment, error) {
	return s.getPaymentBy(ctx, "storage.cloudbase.GetPaymentByProviderOrder",
		Query{Filter: map[string]any{"provider": provider, "provider_order_id": providerOrderID}, Limit: 1})
}

func (s *Storage) FindRecentPayment(ctx context.Context, q models.RecentPaymentQuery) (*models.Payment, error) {
	return s.getPaymentBy(ctx, "storage.cloudbase.FindRecentPayment", Query{
		Filter: map[string]any{
			"user_id":    q.UserID,
			"provider":   q.Provider,
			"plan":       string(q.Plan),
			"amount":     q.Amount,
			"status":     string(models.PaymentPending),
			"created_at": map[string]any{"$gte": toMillis(q.Since)},
		},
		Sort:  desc("created_at"),
		Limit: 1,
	})
}

func (s *Storage) UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus, transactionID string) (bool, error) {
	const op = "storage.cloudbase.UpdatePaymentStatus"

	now := toMillis(s.now())
	set := map[string]any{"status": string(to), "updated_at": now}
	if transactionID != "" {
		set["transaction_id"] = transactionID
	}
	if to == models.PaymentCompleted {
		set["completed_at"] = now
	}
	// статус в фильтре превращает запись в compare-and-set
	n, err := s.client.Update(ctx, collPayments, map[string]any{"_id": id, "status": string(from)}, set, false)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return n > 0, nil
}

func (s *Storage) ListPayments(ctx context.Context, userID string, page models.Page) ([]*models.Payment, error) {
	limit, offset := storage.ClampPage(page.Limit, page.Offset)
	return s.findPayments(ctx, "storage.cloudbase.ListPayments", Query{
		Filter: map[string]any{"user_id": userID},
		Sort:   desc("created_at"),
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Storage) findPayments(ctx context.Context, op string, q Query) ([]*models.Payment, error) {
	var docs []paymentDoc
	if err := s.client.Find(ctx, collPayments, q, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	result := make([]*models.Payment, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.model())
	}
	return result, nil
}

func (s *Storage) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.cloudbase.GetSubscription"

	var docs []subscriptionDoc
	if err := s.findOne(ctx, collSubscriptions, map[string]any{"_id": userID}, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return docs[0].model(), nil
}

func (s *Storage) UpsertSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.cloudbase.UpsertSubscription"

	_, err := s.client.Update(ctx, collSubscriptions, map[string]any{"_id": sub.UserID}, map[string]any{
		"user_id":    sub.UserID,
		"plan":       string(sub.Plan),
		"tier":       string(sub.Tier),
		"status":     sub.Status,
		"start_date": toMillis(sub.StartDate),
		"end_date":   toMillis(sub.EndDate),
		"updated_at": toMillis(s.now()),
	}, true)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return nil
}

// FindExpiringSubscriptions подтягивает контакты владельцев по одному:
// join'ов в документном API нет.
func (s *Storage) FindExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]*models.ExpiringSubscription, error) {
	const op = "storage.cloudbase.FindExpiringSubscriptions"

	var docs []subscriptionDoc
	err := s.client.Find(ctx, collSubscriptions, Query{
		Filter: map[string]any{
			"status":   models.SubscriptionActive,
			"end_date": map[string]any{"$gte": toMillis(from), "$lt": toMillis(to)},
		},
		Sort:  []SortField{{Field: "end_date", Direction: "asc"}},
		Limit: 1000,
	}, &docs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}

	var result []*models.ExpiringSubscription
	for _, d := range docs {
		u, err := s.GetUser(ctx, d.UserID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &models.ExpiringSubscription{
			UserID:  d.UserID,
			Email:   u.Email,
			Name:    u.Name,
			Plan:    models.PlanType(d.Plan),
			EndDate: fromMillis(d.EndDate),
		})
	}
	return result, nil
}

func (s *Storage) SaveFeedback(ctx context.Context, fb models.Feedback) (string, error) {
	const op = "storage.cloudbase.SaveFeedback"

	doc := feedbackDoc{
		ID:        uuid.NewString(),
		UserID:    fb.UserID,
		Category:  fb.Category,
		Rating:    fb.Rating,
		Content:   fb.Content,
		CreatedAt: toMillis(s.now()),
	}
	if err := s.client.Insert(ctx, collFeedback, doc); err != nil {
		return "", fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return doc.ID, nil
}

func (s *Storage) ListUsers(ctx context.Context, page models.Page) ([]*models.User, error) {
	const op = "storage.cloudbase.ListUsers"

	limit, offset := storage.ClampPage(page.Limit, page.Offset)
	var docs []userDoc
	err := s.client.Find(ctx, collUsers, Query{Filter: map[string]any{}, Sort: desc("created_at"), Limit: limit, Offset: offset}, &docs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	result := make([]*models.User, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.model())
	}
	return result, nil
}

func (s *Storage) ListAllPayments(ctx context.Context, page models.Page) ([]*models.Payment, error) {
	limit, offset := storage.ClampPage(page.Limit, page.Offset)
	return s.findPayments(ctx, "storage.cloudbase.ListAllPayments",
		Query{Filter: map[string]any{}, Sort: desc("created_at"), Limit: limit, Offset: offset})
}

func (s *Storage) ListAllRecommendations(ctx context.Context, page models.Page) ([]*models.RecommendationHistory, error) {
	limit, offset := storage.ClampPage(page.Limit, page.Offset)
	return s.findHistory(ctx, "storage.cloudbase.ListAllRecommendations",
		Query{Filter: map[string]any{}, Sort: desc("created_at"), Limit: limit, Offset: offset})
}

// revenuePageSize ограничивает каждый find при подсчете выручки.
const revenuePageSize = 1000

func (s *Storage) Stats(ctx context.Context) (*models.SourceStats, error) {
	const op = "storage.cloudbase.Stats"

	stats := &models.SourceStats{RevenueByCurrency: map[string]int64{}}
	counts := []struct {
		collection string
		filter     map[string]any
		dst        *int
	}{
		{collUsers, map[string]any{}, &stats.Users},
		{collUsers, map[string]any{"tier": string(models.TierPro)}, &stats.ProUsers},
		{collPayments, map[string]any{"status": string(models.PaymentCompleted)}, &stats.CompletedPayments},
		{collHistory, map[string]any{}, &stats.Recommendations},
		{collHistory, map[string]any{"clicked": true}, &stats.ClickedRecommended},
	}
	for _, c := range counts {
		n, err := s.client.Count(ctx, c.collection, c.filter)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, mapErr(err))
		}
		*c.dst = n
	}

	for offset := 0; ; offset += revenuePageSize {
		var docs []paymentDoc
		err := s.client.Find(ctx, collPayments, Query{
			Filter: map[string]any{"status": string(models.PaymentCompleted)},
			Limit:  revenuePageSize,
			Offset: offset,
		}, &docs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, mapErr(err))
		}
		for _, d := range docs {
			stats.RevenueByCurrency[d.Currency] += d.Amount
		}
		if len(docs) < revenuePageSize {
			break
		}
	}
	return stats, nil
}
