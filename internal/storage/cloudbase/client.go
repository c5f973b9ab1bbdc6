// Package cloudbase реализует адаптер хранилища для CN поверх
// HTTP API документной базы Tencent CloudBase.
package cloudbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Коды ошибок шлюза, которые соответствуют sentinel-ошибкам storage.
const (
	codeDuplicate = "DATABASE_DUPLICATE_WRITE"
	codeNotFound  = "DATABASE_DOCUMENT_NOT_EXIST"
)

// APIError ответ шлюза с кодом не 2xx.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cloudbase: %d %s: %s", e.Status, e.Code, e.Message)
}

// SortField задает сортировку выборки.
type SortField struct {
	Field     string `json:"field"`
	Direction string `json:"direction"` // asc или desc
}

// Query тело запроса find. Фильтры используют операторы
// документной базы ($gte, $lt, $in, ...).
type Query struct {
	Filter map[string]any `json:"query"`
	Sort   []SortField    `json:"sort,omitempty"`
	Limit  int            `json:"limit,omitempty"`
	Offset int            `json:"offset,omitempty"`
}

type updateRequest struct {
	Filter map[string]any `json:"query"`
	Data   map[string]any `json:"data"`
	Multi  bool           `json:"multi"`
	Upsert bool           `json:"upsert"`
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// Client работает с одним окружением CloudBase.
type Client struct {
	baseURL     string
	envID       string
	accessToken string
	http        *http.Client
}

// NewClient создает Client. timeout действует на каждый запрос.
func NewClient(baseURL, envID, accessToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		envID:       envID,
		accessToken: accessToken,
		http:        &http.Client{Timeout: timeout},
	}
}

func (c *Client) documentsURL(collection, action string) string {
	return fmt.Sprintf("%s/api/v2/envs/%s/databases/%s/documents%s",
		c.baseURL, url.PathEscape(c.envID), url.PathEscape(collection), action)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(raw, apiErr); jsonErr != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Message = string(raw)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// Insert сохраняет doc, у документа должен быть свой _id.
func (c *Client) Insert(ctx context.Context, collection string, doc any) error {
	return c.do(ctx, http.MethodPost, c.documentsURL(collection, ""), map[string]any{"data": doc}, nil)
}

// Find декодирует найденные документы в out, out должен быть указателем на слайс.
func (c *Client) Find(ctx context.Context, collection string, q Query, out any) error {
	var res struct {
		List json.RawMessage `json:"list"`
	}
	if err := c.do(ctx, http.MethodPost, c.documentsURL(collection, ":find"), q, &res); err != nil {
		return err
	}
	if len(res.List) == 0 {
		return nil
	}
	return json.Unmarshal(res.List, out)
}

// Update применяет $set к документам по filter и возвращает число
// совпавших документов, включая созданный через upsert.
func (c *Client) Update(ctx context.Context, collection string, filter, set map[string]any, upsert bool) (int, error) {
	var res struct {
		Updated    int    `json:"updated"`
		UpsertedID string `json:"upserted_id"`
	}
	body := updateRequest{Filter: filter, Data: map[string]any{"$set": set}, Upsert: upsert}
	if err := c.do(ctx, http.MethodPatch, c.documentsURL(collection, ":update"), body, &res); err != nil {
		return 0, err
	}
	if res.UpsertedID != "" {
		return res.Updated + 1, nil
	}
	return res.Updated, nil
}

// Delete удаляет документы по filter.
func (c *Client) Delete(ctx context.Context, collection string, filter map[string]any) (int, error) {
	var res struct {
		Deleted int `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodPost, c.documentsURL(collection, ":delete"), map[string]any{"query": filter}, &res); err != nil {
		return 0, err
	}
	return res.Deleted, nil
}

// Count возвращает число документов по filter.
func (c *Client) Count(ctx context.Context, collection string, filter map[string]any) (int, error) {
	var res struct {
		Total int `json:"total"`
	}
	if err := c.do(ctx, http.MethodPost, c.documentsURL(collection, ":count"), map[string]any{"query": filter}, &res); err != nil {
		return 0, err
	}
	return res.Total, nil
}

func isCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
