// newsapi — клиент эндпоинта /v2/everything сервиса newsapi.org.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pribylovaa/go-news-sentiment/internal/config"
	"github.com/pribylovaa/go-news-sentiment/internal/htmltext"
	"github.com/pribylovaa/go-news-sentiment/internal/models"
	"github.com/pribylovaa/go-news-sentiment/pkg/redact"
)

const everythingPath = "/v2/everything"

// NewsAPI подменяет удалённые статьи заглушкой с таким URL.
const removedURL = "https://removed.com"

// Хвост усечённого content: "... [+1234 chars]".
var truncatedTail = regexp.MustCompile(`\s*\[\+\d+ chars\]\s*$`)

// Client — источник статей NewsAPI.
type Client struct {
	baseURL    string
	apiKey     string
	sources    []string
	pageSize   int
	httpClient *http.Client
	now        func() time.Time
}

// New создаёт клиент. httpClient == nil -> клиент с таймаутом 30s.
func New(cfg config.NewsAPIConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		sources:    cfg.Sources,
		pageSize:   cfg.PageSize,
		httpClient: httpClient,
		now:        time.Now,
	}
}

func (c *Client) Name() string { return "newsapi" }

// Fetch возвращает статьи по запросу query за окно lookback.
// Не-200 ответ или status != "ok" — ошибка.
func (c *Client) Fetch(ctx context.Context, query string, lookback time.Duration) ([]models.RawArticle, error) {
	const op = "newsapi.Fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(query, lookback), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error содержит полный URL вместе с apiKey.
		return nil, fmt.Errorf("%s: %w", op, redact.Error(err, c.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}

	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s: status %d", op, resp.StatusCode)
		}
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK || payload.Status != "ok" {
		return nil, fmt.Errorf("%s: status %d: %s: %s", op, resp.StatusCode, payload.Code, payload.Message)
	}

	out := make([]models.RawArticle, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		if a.URL == removedURL {
			continue
		}

		out = append(out, a.toRaw())
	}

	return out, nil
}

func (c *Client) requestURL(query string, lookback time.Duration) string {
	from := c.now().UTC().Add(-lookback).Format(time.DateOnly)

	params := url.Values{}
	params.Set("q", query)
	params.Set("from", from)
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	params.Set("apiKey", c.apiKey)
	if len(c.sources) > 0 {
		params.Set("sources", strings.Join(c.sources, ","))
	}

	return c.baseURL + everythingPath + "?" + params.Encode()
}

type response struct {
	Status   string    `json:"status"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Articles []article `json:"articles"`
}

type article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

func (a article) toRaw() models.RawArticle {
	raw := models.RawArticle{
		Title:       htmltext.Clean(a.Title),
		Description: htmltext.Clean(a.Description),
		Content:     truncatedTail.ReplaceAllString(htmltext.Clean(a.Content), ""),
		URL:         strings.TrimSpace(a.URL),
		SourceName:  strings.TrimSpace(a.Source.Name),
	}

	if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
		raw.PublishedAt = t.UTC()
	}

	return raw
}
