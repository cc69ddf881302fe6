package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/go-news-sentiment/internal/config"
	"github.com/pribylovaa/go-news-sentiment/internal/lexicon"
	"github.com/pribylovaa/go-news-sentiment/internal/lock"
	"github.com/pribylovaa/go-news-sentiment/internal/metrics"
	"github.com/pribylovaa/go-news-sentiment/internal/newsapi"
	"github.com/pribylovaa/go-news-sentiment/internal/rss"
	"github.com/pribylovaa/go-news-sentiment/internal/service"
	"github.com/pribylovaa/go-news-sentiment/internal/storage/postgres"
	logctx "github.com/pribylovaa/go-news-sentiment/pkg/log"
	"github.com/pribylovaa/go-news-sentiment/pkg/redact"
)

// app — собранные зависимости сервиса, общие для serve и ingest.
type app struct {
	store   *postgres.Storage
	guard   lock.Guard
	metrics *metrics.Metrics
	svc     *service.Service
}

// newApp подключается к БД и Redis, загружает словарь и собирает сервис.
// Ошибка загрузки словаря фатальна: без него скоринг невозможен.
func newApp(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*app, error) {
	lex := lexicon.NewStore(cfg.Lexicon.Path)
	if _, err := lex.Load(logctx.Into(ctx, log)); err != nil {
		return nil, err
	}

	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := postgres.New(dbCtx, cfg.DB.URL)
	dbCancel()
	if err != nil {
		return nil, err
	}
	log.Info("postgres_connected", slog.String("db", redact.URL(cfg.DB.URL)))

	guard, err := newGuard(ctx, cfg.Redis)
	if err != nil {
		store.Close()
		return nil, err
	}

	m := metrics.New(reg)

	svc := service.New(store, lex, *cfg, service.Options{
		Sources: buildSources(cfg.Fetcher, cfg.Timeouts.Fetch),
		Guard:   guard,
		Metrics: m,
	})
	log.Info("service_initialized")

	return &app{store: store, guard: guard, metrics: m, svc: svc}, nil
}

// close дожидается фоновых циклов и освобождает соединения.
func (a *app) close() {
	a.svc.Wait()

	if err := a.guard.Close(); err != nil {
		log.Warn("lock_close_failed", slog.String("err", err.Error()))
	}
	a.store.Close()
}

// newGuard — Redis-блокировка при заданном redis.url, иначе локальная.
func newGuard(ctx context.Context, cfg config.RedisConfig) (lock.Guard, error) {
	if cfg.URL == "" {
		log.Info("ingest_lock_local")
		return lock.NewLocal(), nil
	}

	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	guard, err := lock.NewRedis(rctx, cfg.URL, cfg.LockKey, cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", redact.URL(cfg.URL), err)
	}
	log.Info("ingest_lock_redis",
		slog.String("redis", redact.URL(cfg.URL)),
		slog.String("key", cfg.LockKey),
	)

	return guard, nil
}

// buildSources собирает источники по конфигу: NewsAPI при заданном ключе,
// RSS при непустом списке лент.
func buildSources(cfg config.FetcherConfig, timeout time.Duration) []service.Source {
	client := &http.Client{Timeout: timeout}

	var sources []service.Source
	if cfg.NewsAPI.APIKey != "" {
		sources = append(sources, newsapi.New(cfg.NewsAPI, client))
	}
	if len(cfg.RSS.Feeds) > 0 {
		sources = append(sources, rss.New(client, cfg.RSS.Feeds, cfg.RSS.Concurrency))
	}

	return sources
}
