package postgresql

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/randomlife/internal/migrations"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

// setupTestDatabase starts a disposable Postgres, applies the migrations and
// returns a connected Storage.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var s *Storage
	for range 10 {
		s, err = New(ctx, dsn)
		if err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = s.Close() })

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(s.DB, filepath.Join(root, "migrations")))
	require.NoError(t, CheckDatabaseReady(ctx, s))

	return s
}

func createTestUser(t *testing.T, s *Storage, email string) string {
	t.Helper()
	id, err := s.CreateUser(context.Background(), models.User{
		Email:    email,
		Name:     "Test User",
		Region:   "INTL",
		Provider: "email",
	})
	require.NoError(t, err)
	return id
}
