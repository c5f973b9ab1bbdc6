// Package ai запрашивает рекомендации у OpenAI-совместимой чат-модели.
// CN направляет клиент на DeepSeek, INTL на OpenAI.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/magabrotheeeer/randomlife/internal/config"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

// ErrEmptyResponse возвращается, если модель ответила без годных элементов.
var ErrEmptyResponse = errors.New("model returned no recommendations")

// Request описывает одну генерацию.
type Request struct {
	Category      models.Category
	Locale        string
	Count         int
	PreferredTags []string
	RecentTitles  []string
}

type item struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Reason      string   `json:"reason"`
	Tags        []string `json:"tags"`
	SearchQuery string   `json:"search_query"`
}

type reply struct {
	Items []item `json:"items"`
}

// Client обертка над chat completion API.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// New создает Client из cfg. Пустой BaseURL оставляет адрес OpenAI по умолчанию.
func New(cfg config.AI) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &Client{
		api:         openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

// Recommend возвращает до req.Count рекомендаций без платформы и ссылки.
func (c *Client) Recommend(ctx context.Context, req Request) ([]models.Recommendation, error) {
	const op = "ai.Recommend"

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(req.Locale)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}

	recs, err := parseReply(resp.Choices[0].Message.Content, req.Category)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if req.Count > 0 && len(recs) > req.Count {
		recs = recs[:req.Count]
	}
	return recs, nil
}

func systemPrompt(locale string) string {
	if locale == "zh" {
		return "你是 RandomLife 的生活灵感助手。只返回 JSON 对象 {\"items\":[{\"title\",\"description\",\"reason\",\"tags\",\"search_query\"}]}，所有文字使用简体中文。"
	}
	return `You are the RandomLife daily inspiration assistant. Reply only with a JSON object ` +
		`{"items":[{"title","description","reason","tags","search_query"}]} written in English.`
}

func userPrompt(req Request) string {
	count := req.Count
	if count <= 0 {
		count = 3
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest %d distinct %s ideas for today.", count, req.Category)
	if len(req.PreferredTags) > 0 {
		fmt.Fprintf(&b, " The user tends to like: %s.", strings.Join(req.PreferredTags, ", "))
	}
	if len(req.RecentTitles) > 0 {
		fmt.Fprintf(&b, " Do not repeat any of: %s.", strings.Join(req.RecentTitles, "; "))
	}
	b.WriteString(" Each search_query must name a concrete product, dish, place or title, never a generic phrase.")
	return b.String()
}

// parseReply терпит markdown-ограждения вокруг JSON.
func parseReply(content string, category models.Category) ([]models.Recommendation, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var r reply
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &r); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}

	recs := make([]models.Recommendation, 0, len(r.Items))
	for _, it := range r.Items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		recs = append(recs, models.Recommendation{
			Category:    category,
			Title:       title,
			Description: strings.TrimSpace(it.Description),
			Reason:      strings.TrimSpace(it.Reason),
			Tags:        it.Tags,
			SearchQuery: strings.TrimSpace(it.SearchQuery),
		})
	}
	if len(recs) == 0 {
		return nil, ErrEmptyResponse
	}
	return recs, nil
}
