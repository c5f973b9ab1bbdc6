// Package query читает общие query-параметры списочных эндпоинтов.
package query

import (
	"net/http"
	"strconv"

	"github.com/magabrotheeeer/randomlife/internal/models"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

// Int возвращает целый параметр name или def, если он пуст или некорректен.
func Int(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// Bool возвращает true для "1", "true" и других вариантов strconv.ParseBool.
func Bool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// Page читает limit и offset в пределах границ страницы хранилища.
func Page(r *http.Request) models.Page {
	limit, offset := storage.ClampPage(Int(r, "limit", 0), Int(r, "offset", 0))
	return models.Page{Limit: limit, Offset: offset}
}
