package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/magabrotheeeer/randomlife/internal/grpc/server"
)

type flakyStore struct {
	down atomic.Bool
}

func (s *flakyStore) Ping(context.Context) error {
	if s.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHealthClient_Serving(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	store := &flakyStore{}
	srv := server.NewHealthServer(store, 0, newNoopLogger())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := NewHealthClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok, err := c.Serving(ctx, server.ServiceName)
	require.NoError(t, err)
	assert.False(t, ok, "not serving before the first check")

	srv.Check(ctx)
	ok, err = c.Serving(ctx, server.ServiceName)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.Serving(ctx, "")
	require.NoError(t, err)
	assert.True(t, ok)

	store.down.Store(true)
	srv.Check(ctx)
	ok, err = c.Serving(ctx, server.ServiceName)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.Serving(ctx, "unknown.Service")
	assert.Error(t, err, "unknown services answer NotFound")
}
