package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/randomlife/internal/config"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

func chatServer(t *testing.T, status int, content string) (*httptest.Server, *string) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "deepseek-chat", body.Model)
		if len(body.Messages) == 2 {
			prompt = body.Messages[1].Content
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "deepseek-chat",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &prompt
}

func newTestClient(url string) *Client {
	return New(config.AI{BaseURL: url + "/v1/", APIKey: "sk-test", Model: "deepseek-chat", Timeout: 2 * time.Second})
}

func TestRecommend(t *testing.T) {
	content := "```json\n" + `{"items":[
		{"title":"Spicy ramen","description":"Tonkotsu with chili oil","tags":["spicy","noodles"],"search_query":"tonkotsu ramen"},
		{"title":"  ","description":"dropped"},
		{"title":"Tacos al pastor","search_query":"al pastor tacos"},
		{"title":"Pho","search_query":"beef pho"}
	]}` + "\n```"
	srv, prompt := chatServer(t, http.StatusOK, content)

	recs, err := newTestClient(srv.URL).Recommend(context.Background(), Request{
		Category:      models.CategoryFood,
		Locale:        "en",
		Count:         2,
		PreferredTags: []string{"spicy"},
		RecentTitles:  []string{"Sushi"},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Spicy ramen", recs[0].Title)
	assert.Equal(t, models.CategoryFood, recs[0].Category)
	assert.Equal(t, []string{"spicy", "noodles"}, recs[0].Tags)
	assert.Equal(t, "Tacos al pastor", recs[1].Title)

	assert.Contains(t, *prompt, "Suggest 2 distinct food ideas")
	assert.Contains(t, *prompt, "spicy")
	assert.Contains(t, *prompt, "Sushi")
}

func TestRecommend_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
	}{
		{name: "upstream error", status: http.StatusServiceUnavailable},
		{name: "not json", status: http.StatusOK, content: "Sure! Here are some ideas"},
		{name: "no items", status: http.StatusOK, content: `{"items":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := chatServer(t, tt.status, tt.content)
			_, err := newTestClient(srv.URL).Recommend(context.Background(), Request{Category: models.CategoryTravel, Locale: "zh"})
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), "ai.Recommend"))
		})
	}
}
