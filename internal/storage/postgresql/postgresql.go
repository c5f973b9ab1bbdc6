// Package postgresql реализует адаптер хранилища для INTL.
// Supabase это managed PostgreSQL, поэтому адаптер работает через
// database/sql с драйвером pgx, а схему накатывает golang-migrate.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	// Регистрирует драйвер pgx для database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/randomlife/internal/region"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

const (
	uniqueViolation = "23505"
	// некорректный uuid, считаем неизвестным id
	invalidTextRepresentation = "22P02"
)

// Storage адаптер Supabase.
type Storage struct {
	DB *sql.DB
}

var _ storage.Adapter = (*Storage)(nil)

// New открывает пул соединений и пингует базу.
func New(ctx context.Context, connectionString string) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := sql.Open("pgx", connectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

// CheckDatabaseReady проверяет, что миграции применены.
func CheckDatabaseReady(ctx context.Context, s *Storage) error {
	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'recommendation_history'
    )`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check schema: %w", err)
	}
	if !exists {
		return errors.New("required table recommendation_history missing")
	}
	return nil
}

func (s *Storage) Name() string { return "supabase" }

func (s *Storage) Region() region.Region { return region.INTL }

func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

// mapErr переводит ошибки драйвера в sentinel-ошибки storage.
func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return storage.ErrAlreadyExists
		case invalidTextRepresentation:
			return storage.ErrNotFound
		}
	}
	return err
}

func jsonParam(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func checkAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}
