package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pribylovaa/go-news-sentiment/internal/metrics"
	"github.com/pribylovaa/go-news-sentiment/internal/models"
	"github.com/pribylovaa/go-news-sentiment/pkg/log"
)

// StartIngest запускает периодический ингест: первый цикл сразу,
// далее каждые s.cfg.Fetcher.Interval. Останавливается по ctx.
func (s *Service) StartIngest(ctx context.Context) error {
	const op = "service.fetcher.StartIngest"

	if len(s.sources) == 0 {
		return fmt.Errorf("%s: no sources configured", op)
	}

	interval := s.cfg.Fetcher.Interval

	lg := log.From(ctx)
	lg.Info("ingest_start",
		slog.String("op", op),
		slog.Int("sources", len(s.sources)),
		slog.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			lg.Info("ingest_stop", slog.String("op", op))
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	const op = "service.fetcher.tick"

	_, err := s.IngestOnce(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrIngestInProgress):
		log.From(ctx).Info("ingest_tick_skipped", slog.String("op", op))
	default:
		log.From(ctx).Warn("ingest_tick_error",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}
}

// IngestOnce выполняет один цикл ингеста синхронно и возвращает число
// сохранённых записей.
//
// Ошибки:
//   - ErrIngestInProgress — цикл уже идёт (здесь или на другой реплике);
//   - lexicon.ErrLexiconLoad — словарь недоступен, ничего не записано;
//   - ErrStoreWrite — хранилище не приняло пачку.
func (s *Service) IngestOnce(ctx context.Context) (int, error) {
	const op = "service.fetcher.IngestOnce"

	release, err := s.acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer release()

	return s.runCycle(ctx)
}

// TriggerIngest запускает цикл в фоне и сразу возвращается.
// Если цикл уже идёт — ErrIngestInProgress, фоновой работы нет.
func (s *Service) TriggerIngest(ctx context.Context) error {
	const op = "service.fetcher.TriggerIngest"

	release, err := s.acquire(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// Цикл переживает запрос, но сохраняет его логгер.
	bgCtx := context.WithoutCancel(ctx)

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		defer release()

		if _, err := s.runCycle(bgCtx); err != nil {
			log.From(bgCtx).Warn("ingest_background_error",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
	}()

	return nil
}

// acquire берёт блокировку цикла.
func (s *Service) acquire(ctx context.Context) (func(), error) {
	release, ok, err := s.guard.TryAcquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire ingest lock: %w", err)
	}
	if !ok {
		s.metrics.CycleRejected()
		return nil, ErrIngestInProgress
	}

	return release, nil
}

// runCycle — один проход под взятой блокировкой:
// словарь -> источники -> FindURLs -> Ingest -> InsertBatch.
func (s *Service) runCycle(ctx context.Context) (int, error) {
	const op = "service.fetcher.runCycle"

	lg := log.From(ctx)
	started := s.now()

	lex, err := s.lexicon.Load(ctx)
	if err != nil {
		s.metrics.ObserveCycle(metrics.ResultError, started)
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	raw, sourcesOK, sourcesErr := s.fetchAll(ctx)
	if len(raw) == 0 {
		lg.Info("ingest_empty",
			slog.String("op", op),
			slog.Int("sources_ok", sourcesOK),
			slog.Int("sources_err", sourcesErr),
		)
		s.metrics.ObserveCycle(metrics.ResultEmpty, started)
		return 0, nil
	}

	existing, err := s.storage.FindURLs(ctx, candidateURLs(raw))
	if err != nil {
		s.metrics.ObserveCycle(metrics.ResultError, started)
		return 0, fmt.Errorf("%s: find_urls: %w", op, err)
	}

	records, n := Ingest(ctx, raw, existing, lex, s.now())
	dups := countDuplicates(raw, existing)
	s.metrics.Skipped("duplicate", dups)
	s.metrics.Skipped("malformed", len(raw)-n-dups)

	if n == 0 {
		lg.Info("ingest_nothing_new",
			slog.String("op", op),
			slog.Int("fetched", len(raw)),
			slog.Int("existing", len(existing)),
		)
		s.metrics.ObserveCycle(metrics.ResultEmpty, started)
		return 0, nil
	}

	if err := s.storage.InsertBatch(ctx, records); err != nil {
		s.metrics.ObserveCycle(metrics.ResultError, started)
		return 0, fmt.Errorf("%s: %w: %w", op, ErrStoreWrite, err)
	}

	s.metrics.Stored(n)
	s.metrics.ObserveCycle(metrics.ResultOK, started)

	lg.Info("ingest_saved",
		slog.String("op", op),
		slog.Int("fetched", len(raw)),
		slog.Int("saved", n),
		slog.Int("sources_ok", sourcesOK),
		slog.Int("sources_err", sourcesErr),
		slog.Duration("took", s.now().Sub(started)),
	)

	return n, nil
}

// fetchAll опрашивает источники параллельно. Сбой источника логируется
// как ErrFetchFailure и даёт пустой набор. Порядок статей — порядок
// источников в конфигурации.
func (s *Service) fetchAll(ctx context.Context) (raw []models.RawArticle, ok, failed int) {
	const op = "service.fetcher.fetchAll"

	lg := log.From(ctx)
	query := s.cfg.Fetcher.Query
	lookback := s.cfg.Fetcher.Lookback

	results := make([][]models.RawArticle, len(s.sources))
	errs := make([]error, len(s.sources))

	var g errgroup.Group
	for i, src := range s.sources {
		g.Go(func() error {
			items, err := src.Fetch(ctx, query, lookback)
			if err != nil {
				errs[i] = fmt.Errorf("%w: %s: %w", ErrFetchFailure, src.Name(), err)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	for i, src := range s.sources {
		if errs[i] != nil {
			failed++
			lg.Warn("fetch_failed",
				slog.String("op", op),
				slog.String("source", src.Name()),
				slog.String("err", errs[i].Error()),
			)
			continue
		}

		ok++
		s.metrics.Fetched(src.Name(), len(results[i]))
		raw = append(raw, results[i]...)
	}

	return raw, ok, failed
}

// candidateURLs — уникальные непустые URL пачки.
func candidateURLs(raw []models.RawArticle) []string {
	seen := make(map[string]struct{}, len(raw))
	urls := make([]string, 0, len(raw))

	for _, a := range raw {
		url := a.URL
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}

	return urls
}

// countDuplicates — статьи, отсечённые по existing или внутри пачки.
func countDuplicates(raw []models.RawArticle, existing map[string]struct{}) int {
	seen := make(map[string]struct{}, len(raw))
	dups := 0

	for _, a := range raw {
		url := a.URL
		if url == "" {
			continue
		}
		if _, ok := existing[url]; ok {
			dups++
			continue
		}
		if _, ok := seen[url]; ok {
			dups++
			continue
		}
		if a.Title != "" {
			seen[url] = struct{}{}
		}
	}

	return dups
}
