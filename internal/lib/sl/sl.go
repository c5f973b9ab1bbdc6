// Package sl содержит общие хелперы для slog.
package sl

import (
	"io"
	"log/slog"
)

// Err оборачивает err в атрибут "error".
//
//	log.Error("failed to save recommendation", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// New создает логгер процесса: текст для local, JSON для остальных.
// Неизвестное окружение логирует как prod.
func New(env string, w io.Writer) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
