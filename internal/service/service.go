// service содержит бизнес-логику сервиса тональности новостей:
// цикл ингеста (источники -> дедупликация -> скоринг -> запись)
// и запросы аналитики поверх хранилища.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pribylovaa/go-news-sentiment/internal/config"
	"github.com/pribylovaa/go-news-sentiment/internal/lexicon"
	"github.com/pribylovaa/go-news-sentiment/internal/lock"
	"github.com/pribylovaa/go-news-sentiment/internal/metrics"
	"github.com/pribylovaa/go-news-sentiment/internal/models"
	"github.com/pribylovaa/go-news-sentiment/internal/storage"
)

var (
	// ErrMalformedArticle — у статьи пустой заголовок или URL.
	// Статья пропускается, цикл продолжается.
	ErrMalformedArticle = errors.New("malformed article")
	// ErrFetchFailure — источник не ответил или ответ не разобран.
	// Цикл продолжается с пустым набором от этого источника.
	ErrFetchFailure = errors.New("fetch failure")
	// ErrStoreWrite — хранилище не приняло пачку записей.
	// Повторов нет, следующий цикл начнёт заново.
	ErrStoreWrite = errors.New("store write failure")
	// ErrIngestInProgress — другой цикл ингеста уже выполняется.
	// Транспорт: 409 Conflict.
	ErrIngestInProgress = errors.New("ingest already in progress")
	// ErrNotFound — сущность отсутствует.
	// Транспорт: 404.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCursor — битый/чужой page_token.
	// Транспорт: 400.
	ErrInvalidCursor = errors.New("invalid cursor")
)

// Source — источник сырых статей (NewsAPI, RSS и т.п.).
//
// Требования к реализации:
//  1. уважать ctx (отмена/таймауты);
//  2. возвращать ошибку, только если источник не дал ничего;
//     частичные сбои (одна лента из нескольких) логируются внутри;
//  3. PublishedAt — в UTC, допускается нулевое значение.
type Source interface {
	Name() string
	Fetch(ctx context.Context, query string, lookback time.Duration) ([]models.RawArticle, error)
}

// LexiconLoader отдаёт загруженный словарь. Реализуется *lexicon.Store.
type LexiconLoader interface {
	Load(ctx context.Context) (*lexicon.Lexicon, error)
}

// Options — зависимости сервиса помимо хранилища и словаря.
type Options struct {
	Sources []Source
	// Guard сериализует циклы ингеста. nil -> lock.NewLocal().
	Guard   lock.Guard
	Metrics *metrics.Metrics
}

// Service — описывает бизнес-логику сервиса.
type Service struct {
	storage storage.Storage
	lexicon LexiconLoader
	sources []Source
	guard   lock.Guard
	metrics *metrics.Metrics
	cfg     config.Config

	now func() time.Time
	bg  sync.WaitGroup
}

// New создает новый экземпляр Service.
func New(storage storage.Storage, lex LexiconLoader, cfg config.Config, opts Options) *Service {
	guard := opts.Guard
	if guard == nil {
		guard = lock.NewLocal()
	}

	return &Service{
		storage: storage,
		lexicon: lex,
		sources: opts.Sources,
		guard:   guard,
		metrics: opts.Metrics,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Wait ждёт завершения фоновых циклов, запущенных через TriggerIngest.
func (s *Service) Wait() {
	s.bg.Wait()
}
