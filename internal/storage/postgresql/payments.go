package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

const paymentColumns = `id, user_id, provider, provider_order_id, transaction_id, plan, amount, currency,
	status, metadata, created_at, updated_at, completed_at`

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		p           models.Payment
		plan        string
		status      string
		meta        []byte
		completedAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Provider, &p.ProviderOrderID, &p.TransactionID, &plan, &p.Amount,
		&p.Currency, &status, &meta, &p.CreatedAt, &p.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	p.Plan = models.PlanType(plan)
	p.Status = models.PaymentStatus(status)
	p.CompletedAt = nullTime(completedAt)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &p.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &p, nil
}

func (s *Storage) CreatePayment(ctx context.Context, p models.Payment) (string, error) {
	const op = "storage.postgresql.CreatePayment"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if p.Status == "" {
		p.Status = models.PaymentPending
	}
	if p.Metadata == nil {
		p.Metadata = map[string]string{}
	}
	meta, err := jsonParam(p.Metadata)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO payments
			(id, user_id, provider, provider_order_id, transaction_id, plan, amount, currency, status, metadata)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)
		RETURNING id`
	var id string
	err = s.DB.QueryRowContext(ctx, query,
		p.ID, p.UserID, p.Provider, p.ProviderOrderID, p.TransactionID, string(p.Plan), p.Amount,
		p.Currency, string(p.Status), meta,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return id, nil
}

func (s *Storage) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	const op = "storage.postgresql.GetPayment"

	p, err := scanPayment(s.DB.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return p, nil
}

func (s *Storage) GetPaymentByProviderOrder(ctx context.Context, provider, providerOrderID string) (*models.Payment, error) {
	const op = "storage.postgresql.GetPaymentByProviderOrder"

	p, err := scanPayment(s.DB.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE provider = $1 AND provider_order_id = $2`,
		provider, providerOrderID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return p, nil
}

// FindRecentPayment возвращает самый новый pending-платеж по q, созданный
// после q.Since, иначе storage.ErrNotFound.
func (s *Storage) FindRecentPayment(ctx context.Context, q models.RecentPaymentQuery) (*models.Payment, error) {
	const op = "storage.postgresql.FindRecentPayment"

	p, err := scanPayment(s.DB.QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE user_id = $1 AND provider = $2 AND plan = $3 AND amount = $4
			AND status = 'pending' AND created_at >= $5
		ORDER BY created_at DESC
		LIMIT 1`,
		q.UserID, q.Provider, string(q.Plan), q.Amount, q.Since))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return p, nil
}

// UpdatePaymentStatus переводит платеж в новый статус, только если он все еще
// в статусе from. completed_at ставится при переходе в completed.
// Пустой transactionID сохраняет прежнее значение.
func (s *Storage) UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus, transactionID string) (bool, error) {
	const op = "storage.postgresql.UpdatePaymentStatus"

	res, err := s.DB.ExecContext(ctx, `
		UPDATE payments SET
			status = $2,
			transaction_id = COALESCE(NULLIF($3, ''), transaction_id),
			completed_at = CASE WHEN $2 = 'completed' THEN COALESCE(completed_at, NOW()) ELSE completed_at END,
			updated_at = NOW()
		WHERE id = $1 AND status = $4`, id, string(to), transactionID, string(from))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

func (s *Storage) ListPayments(ctx context.Context, userID string, page models.Page) ([]*models.Payment, error) {
	const op = "storage.postgresql.ListPayments"

	limit, offset := storage.ClampPage(page.Limit, page.Offset)
	return s.queryPayments(ctx, op, `
		SELECT `+paymentColumns+` FROM payments WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
}

func (s *Storage) queryPayments(ctx context.Context, op, query string, args ...any) ([]*models.Payment, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
