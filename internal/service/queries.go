package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-news-sentiment/internal/models"
	"github.com/pribylovaa/go-news-sentiment/internal/sentiment"
	"github.com/pribylovaa/go-news-sentiment/internal/storage"
	"github.com/pribylovaa/go-news-sentiment/pkg/log"
)

// DailySentiment возвращает средние оценки по дням за последние days дней.
//
// Правила нормализации:
//   - days <= 0 -> cfg.LimitsConfig.DefaultDays;
//   - days > max -> cfg.LimitsConfig.MaxDays.
//
// Пустой результат — не ошибка.
func (s *Service) DailySentiment(ctx context.Context, days int) ([]models.DailySentiment, error) {
	const op = "service.queries.DailySentiment"

	if days <= 0 {
		days = s.cfg.LimitsConfig.DefaultDays
	}
	if s.cfg.LimitsConfig.MaxDays > 0 && days > s.cfg.LimitsConfig.MaxDays {
		days = s.cfg.LimitsConfig.MaxDays
	}

	since := s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	lg := log.From(ctx)
	lg.Debug("daily_sentiment_request",
		slog.String("op", op),
		slog.Int("days", days),
	)

	out, err := s.storage.DailySentiment(ctx, since)
	if err != nil {
		lg.Error("daily_sentiment_storage_error",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Stats возвращает сводку по всем записям.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	const op = "service.queries.Stats"

	st, err := s.storage.Stats(ctx)
	if err != nil {
		log.From(ctx).Error("stats_storage_error",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return st, nil
}

// ListArticles возвращает страницу записей с нормализацией лимита по конфигу.
//
// Правила нормализации:
//   - limit <= 0 -> cfg.LimitsConfig.Default;
//   - limit > max -> cfg.LimitsConfig.Max;
//   - пустой pageToken -> первая страница.
//
// Ошибки:
//   - ErrInvalidCursor — битый/чужой page_token (маппинг storage.ErrInvalidCursor);
//   - прочие ошибки стораджа — обёрнутые и прокинуты наверх.
func (s *Service) ListArticles(ctx context.Context, opts models.ListOptions) (*models.Page, error) {
	const op = "service.queries.ListArticles"

	lg := log.From(ctx)

	if opts.Limit <= 0 {
		opts.Limit = s.cfg.LimitsConfig.Default
	}

	if s.cfg.LimitsConfig.Max > 0 && opts.Limit > s.cfg.LimitsConfig.Max {
		opts.Limit = s.cfg.LimitsConfig.Max
	}

	page, err := s.storage.ListArticles(ctx, opts)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidCursor) {
			lg.Warn("list_articles_invalid_cursor", slog.String("op", op))

			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCursor)
		}

		lg.Error("list_articles_storage_error",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Debug("list_articles_ok",
		slog.String("op", op),
		slog.Int("items", len(page.Items)),
		slog.Bool("has_next_page", page.NextPageToken != ""),
	)

	return page, nil
}

// ArticleByID возвращает запись по идентификатору.
//
// Ошибки:
//   - ErrNotFound — если запись отсутствует (маппинг storage.ErrNotFound);
//   - прочие ошибки стораджа — обёрнутые и прокинуты наверх.
func (s *Service) ArticleByID(ctx context.Context, id string) (*models.ArticleRecord, error) {
	const op = "service.queries.ArticleByID"

	lg := log.From(ctx)

	rec, err := s.storage.ArticleByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Debug("article_by_id_not_found",
				slog.String("op", op),
				slog.String("id", id),
			)

			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("article_by_id_storage_error",
			slog.String("op", op),
			slog.String("id", id),
			slog.String("err", err.Error()),
		)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

// Score оценивает произвольные заголовок и аннотацию без сохранения.
func (s *Service) Score(ctx context.Context, title, summary string) (models.ArticleSentiment, error) {
	const op = "service.queries.Score"

	lex, err := s.lexicon.Load(ctx)
	if err != nil {
		return models.ArticleSentiment{}, fmt.Errorf("%s: %w", op, err)
	}

	return sentiment.Analyze(title, summary, lex), nil
}
