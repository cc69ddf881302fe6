package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-news-sentiment/internal/lexicon"
	"github.com/pribylovaa/go-news-sentiment/internal/models"
	"github.com/pribylovaa/go-news-sentiment/internal/sentiment"
	"github.com/pribylovaa/go-news-sentiment/pkg/log"
)

// Ingest превращает пачку сырых статей в новые записи.
//
// Правила (в порядке входа):
//   - URL уже есть в existing или встречался раньше в этой пачке -> пропуск;
//   - пустой заголовок или URL -> пропуск с предупреждением;
//   - заголовок обрезается до models.MaxTitleLen рун, оценивается обрезанный;
//   - summary := description || content || "" (строки как есть, пробелы
//     считаются значением);
//   - имя источника обрезается до models.MaxSourceLen рун;
//   - Date := now (UTC), ID — новый UUID.
//
// existing не изменяется. Ввода-вывода нет, логгер берётся из ctx.
// Возвращает записи в порядке входа и их количество.
func Ingest(ctx context.Context, raw []models.RawArticle, existing map[string]struct{}, lex *lexicon.Lexicon, now time.Time) ([]models.ArticleRecord, int) {
	const op = "service.Ingest"

	lg := log.From(ctx)
	now = now.UTC()

	seen := make(map[string]struct{}, len(existing)+len(raw))
	for url := range existing {
		seen[url] = struct{}{}
	}

	var records []models.ArticleRecord
	for i, article := range raw {
		// Дубликат отсекается до анализа.
		if _, dup := seen[article.URL]; dup {
			continue
		}

		record, err := buildRecord(article, lex, now)
		if err != nil {
			lg.Warn("article_skipped",
				slog.String("op", op),
				slog.Int("index", i),
				slog.String("source", article.SourceName),
				slog.String("err", err.Error()),
			)
			continue
		}
		seen[record.URL] = struct{}{}

		records = append(records, record)
	}

	return records, len(records)
}

// buildRecord проверяет статью и собирает запись.
func buildRecord(article models.RawArticle, lex *lexicon.Lexicon, now time.Time) (models.ArticleRecord, error) {
	title := article.Title
	url := article.URL

	switch {
	case url == "":
		return models.ArticleRecord{}, fmt.Errorf("%w: empty url", ErrMalformedArticle)
	case title == "":
		return models.ArticleRecord{}, fmt.Errorf("%w: empty title (url %s)", ErrMalformedArticle, url)
	}

	title = truncateRunes(title, models.MaxTitleLen)
	summary := pickSummary(article)

	rec := models.ArticleRecord{
		ID:               uuid.New(),
		Title:            title,
		Summary:          summary,
		Source:           truncateRunes(strings.TrimSpace(article.SourceName), models.MaxSourceLen),
		URL:              url,
		ArticleSentiment: sentiment.Analyze(title, summary, lex),
		Date:             now,
	}

	if !article.PublishedAt.IsZero() {
		rec.PublishedAt = article.PublishedAt.UTC()
	}

	return rec, nil
}

// pickSummary — description, если не пуст, иначе content, иначе "".
func pickSummary(article models.RawArticle) string {
	if article.Description != "" {
		return article.Description
	}

	return article.Content
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}

	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}

	return s
}
