package smtp

import (
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/randomlife/internal/config"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTransport_From(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SMTP
		want string
	}{
		{name: "explicit from", cfg: config.SMTP{From: "RandomLife <noreply@randomlife.app>", Username: "mailer"}, want: "RandomLife <noreply@randomlife.app>"},
		{name: "falls back to username", cfg: config.SMTP{Username: "mailer@randomlife.app"}, want: "mailer@randomlife.app"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewTransport(tt.cfg, newNoopLogger()).From())
		})
	}
}

func TestTransport_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	tr := NewTransport(config.SMTP{Host: "127.0.0.1", Port: port}, newNoopLogger())
	_, err = tr.Connect()
	assert.Error(t, err)
}
