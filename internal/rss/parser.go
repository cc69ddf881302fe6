// rss — источник статей из RSS/Atom/JSON-лент на базе gofeed.
package rss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pribylovaa/go-news-sentiment/internal/htmltext"
	"github.com/pribylovaa/go-news-sentiment/internal/models"
	"github.com/pribylovaa/go-news-sentiment/internal/textnorm"
	"github.com/pribylovaa/go-news-sentiment/pkg/log"
)

// Parser опрашивает набор лент и отдаёт статьи в виде models.RawArticle.
//
// Параллелизм ограничен семафором maxConc. HTTP-клиент настраивается извне
// (таймауты, прокси и т.д.).
type Parser struct {
	client  *http.Client
	feeds   []string
	maxConc int
	now     func() time.Time
}

// New создаёт новый парсер лент.
func New(client *http.Client, feeds []string, maxConcurrent int) *Parser {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	if maxConcurrent <= 0 {
		maxConcurrent = 6
	}

	return &Parser{client: client, feeds: feeds, maxConc: maxConcurrent, now: time.Now}
}

func (p *Parser) Name() string { return "rss" }

type feedResult struct {
	url   string
	items []models.RawArticle
	err   error
}

// Fetch читает все ленты конкурентно и оставляет статьи, попавшие в окно
// lookback и подходящие под query (термы через " OR ", пустой query —
// всё). Статьи без даты публикации остаются.
//
// Сбой отдельной ленты логируется. Ошибка возвращается, только если
// не удалось прочитать ни одной ленты.
func (p *Parser) Fetch(ctx context.Context, query string, lookback time.Duration) ([]models.RawArticle, error) {
	const op = "rss.Fetch"

	if len(p.feeds) == 0 {
		return nil, nil
	}

	lg := log.From(ctx)
	results := p.parseMany(ctx)

	since := p.now().UTC().Add(-lookback)
	terms := queryTerms(query)

	var out []models.RawArticle
	var errs []error

	for i, res := range results {
		if res.err != nil {
			lg.Warn("feed_failed",
				slog.String("op", op),
				slog.String("url", res.url),
				slog.String("err", res.err.Error()),
			)
			errs = append(errs, res.err)
			continue
		}

		kept := 0
		for _, a := range res.items {
			if !a.PublishedAt.IsZero() && a.PublishedAt.Before(since) {
				continue
			}
			if !matches(a, terms) {
				continue
			}
			out = append(out, a)
			kept++
		}

		lg.Debug("feed_parsed",
			slog.String("op", op),
			slog.Int("feed", i),
			slog.String("url", res.url),
			slog.Int("items", len(res.items)),
			slog.Int("kept", kept),
		)
	}

	if len(errs) == len(results) {
		return nil, fmt.Errorf("%s: all feeds failed: %w", op, errors.Join(errs...))
	}

	return out, nil
}

// parseMany парсит ленты конкурентно. Порядок результатов совпадает
// с порядком p.feeds.
func (p *Parser) parseMany(ctx context.Context) []feedResult {
	results := make([]feedResult, len(p.feeds))
	sem := make(chan struct{}, p.maxConc)

	var wg sync.WaitGroup
	for i, u := range p.feeds {
		results[i].url = u

		select {
		case <-ctx.Done():
			results[i].err = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			results[i].items, results[i].err = p.fetchOne(ctx, u)
		}()
	}

	wg.Wait()
	return results
}

// fetchOne загружает и парсит одну ленту.
func (p *Parser) fetchOne(ctx context.Context, src string) ([]models.RawArticle, error) {
	const op = "rss.fetchOne"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: new_request: %w", op, err)
	}
	req.Header.Set("User-Agent", "go-news-sentiment/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: do: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%s: status=%d", op, resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: parse: %w", op, err)
	}

	sourceName := strings.TrimSpace(feed.Title)
	if sourceName == "" {
		sourceName = hostOf(src)
	}

	output := make([]models.RawArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		output = append(output, models.RawArticle{
			Title:       htmltext.Clean(item.Title),
			Description: htmltext.Clean(item.Description),
			Content:     htmltext.Clean(item.Content),
			URL:         canonicalLink(item.Link, item.GUID),
			SourceName:  sourceName,
			PublishedAt: publishedAt(item),
		})
	}

	return output, nil
}

func publishedAt(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	default:
		return time.Time{}
	}
}

// canonicalLink нормализует ссылку: убирает фрагмент и трекинг.
// Пустая ссылка заменяется guid, если тот — полноценный URL.
func canonicalLink(raw, guid string) string {
	str := strings.TrimSpace(raw)

	if str == "" {
		if g := strings.TrimSpace(guid); strings.HasPrefix(g, "http://") || strings.HasPrefix(g, "https://") {
			str = g
		}
	}

	u, err := url.Parse(str)
	if err != nil {
		return str
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return str
	}

	u.Fragment = ""
	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || strings.HasSuffix(lk, "clid") || strings.HasPrefix(lk, "mc_") || lk == "igshid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func hostOf(src string) string {
	u, err := url.Parse(src)
	if err != nil || u.Host == "" {
		return src
	}

	return strings.TrimPrefix(u.Host, "www.")
}

// queryTerms разбивает "a OR b c" на нормализованные термы ["a", "b c"].
func queryTerms(query string) []string {
	var terms []string
	for _, part := range strings.Split(query, " OR ") {
		if t := textnorm.Render(textnorm.Normalize(part)); t != "" {
			terms = append(terms, t)
		}
	}

	return terms
}

// matches — статья содержит хотя бы один терм как целые слова.
func matches(a models.RawArticle, terms []string) bool {
	if len(terms) == 0 {
		return true
	}

	text := " " + textnorm.Render(textnorm.Normalize(a.Title+" "+a.Description+" "+a.Content)) + " "
	for _, t := range terms {
		if strings.Contains(text, " "+t+" ") {
			return true
		}
	}

	return false
}
