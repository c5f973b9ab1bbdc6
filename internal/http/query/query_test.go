package query

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/randomlife/internal/models"
)

func TestPage(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		want  models.Page
		saved bool
	}{
		{name: "defaults", url: "/x", want: models.Page{Limit: 20}},
		{name: "explicit", url: "/x?limit=5&offset=10&saved=true", want: models.Page{Limit: 5, Offset: 10}, saved: true},
		{name: "clamped", url: "/x?limit=1000&offset=-3", want: models.Page{Limit: 100}},
		{name: "malformed", url: "/x?limit=abc&saved=maybe", want: models.Page{Limit: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			assert.Equal(t, tt.want, Page(r))
			assert.Equal(t, tt.saved, Bool(r, "saved"))
		})
	}
}
