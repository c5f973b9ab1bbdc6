package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

const historyColumns = `id, user_id, category, title, description, link, platform, search_query,
	tags, clicked, saved, clicked_at, metadata, created_at`

func scanHistory(row rowScanner) (*models.RecommendationHistory, error) {
	var (
		h         models.RecommendationHistory
		category  string
		tags      []byte
		meta      []byte
		clickedAt sql.NullTime
	)
	err := row.Scan(&h.ID, &h.UserID, &category, &h.Title, &h.Description, &h.Link, &h.Platform,
		&h.SearchQuery, &tags, &h.Clicked, &h.Saved, &clickedAt, &meta, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	h.Category = models.Category(category)
	h.ClickedAt = nullTime(clickedAt)
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &h.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &h.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &h, nil
}

func (s *Storage) SaveRecommendation(ctx context.Context, rec models.RecommendationHistory) (string, error) {
	const op = "storage.postgresql.SaveRecommendation"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	if rec.Metadata == nil {
		rec.Metadata = map[string]string{}
	}
	tags, err := jsonParam(rec.Tags)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	meta, err := jsonParam(rec.Metadata)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO recommendation_history
			(user_id, category, title, description, link, platform, search_query, tags, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb)
		RETURNING id`
	var id string
	err = s.DB.QueryRowContext(ctx, query,
		rec.UserID, string(rec.Category), rec.Title, rec.Description, rec.Link, rec.Platform,
		rec.SearchQuery, tags, meta,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return id, nil
}

func (s *Storage) GetRecommendation(ctx context.Context, userID, id string) (*models.RecommendationHistory, error) {
	const op = "storage.postgresql.GetRecommendation"

	h, err := scanHistory(s.DB.QueryRowContext(ctx,
		`SELECT `+historyColumns+` FROM recommendation_history WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return h, nil
}

// GetRecommendationHistory отдает записи от новых к старым.
func (s *Storage) GetRecommendationHistory(ctx context.Context, userID string, filter models.HistoryFilter) ([]*models.RecommendationHistory, error) {
	const op = "storage.postgresql.GetRecommendationHistory"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	limit, offset := storage.ClampPage(filter.Limit, filter.Offset)

	var sb strings.Builder
	sb.WriteString(`SELECT ` + historyColumns + ` FROM recommendation_history WHERE user_id = $1`)
	args := []any{userID}
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		fmt.Fprintf(&sb, " AND category = $%d", len(args))
	}
	if filter.SavedOnly {
		sb.WriteString(" AND saved = TRUE")
	}
	args = append(args, limit, offset)
	fmt.Fprintf(&sb, " ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return s.queryHistory(ctx, op, sb.String(), args...)
}

func (s *Storage) queryHistory(ctx context.Context, op, query string, args ...any) ([]*models.RecommendationHistory, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.RecommendationHistory, 0)
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RecordClick отмечает клик. Время первого клика сохраняется.
func (s *Storage) RecordClick(ctx context.Context, userID, id string) error {
	const op = "storage.postgresql.RecordClick"

	res, err := s.DB.ExecContext(ctx, `
		UPDATE recommendation_history
		SET clicked = TRUE, clicked_at = COALESCE(clicked_at, NOW())
		WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return checkAffected(op, res)
}

func (s *Storage) SetRecommendationSaved(ctx context.Context, userID, id string, saved bool) error {
	const op = "storage.postgresql.SetRecommendationSaved"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE recommendation_history SET saved = $3 WHERE id = $1 AND user_id = $2`, id, userID, saved)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return checkAffected(op, res)
}

func (s *Storage) DeleteRecommendation(ctx context.Context, userID, id string) error {
	const op = "storage.postgresql.DeleteRecommendation"

	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM recommendation_history WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return checkAffected(op, res)
}
