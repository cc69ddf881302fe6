// storage определяет контракты доступа к БД для сервиса тональности.
package storage

//go:generate mockgen -source=storage.go -destination=../../mocks/mock_storage.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/go-news-sentiment/internal/models"
)

var (
	// ErrNotFound — сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCursor - битый/чужой page_token (курсор пагинации).
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrConflict — запись с таким url уже есть (нарушение уникальности).
	ErrConflict = errors.New("conflict")
)

// ArticleStorage описывает операции над models.ArticleRecord.
type ArticleStorage interface {
	// FindURLs возвращает подмножество urls, уже присутствующих в хранилище.
	FindURLs(ctx context.Context, urls []string) (map[string]struct{}, error)
	// InsertBatch сохраняет пачку новых записей атомарно.
	// Записи не обновляются: url — ключ уникальности.
	InsertBatch(ctx context.Context, records []models.ArticleRecord) error
	// ListArticles возвращает страницу записей, отсортированных по date DESC.
	// При некорректном page_token должна вернуться ошибка ErrInvalidCursor.
	ListArticles(ctx context.Context, opts models.ListOptions) (*models.Page, error)
	// ArticleByID возвращает запись по строковому идентификатору.
	// Если запись не найдена — ErrNotFound.
	ArticleByID(ctx context.Context, id string) (*models.ArticleRecord, error)
}

// AnalyticsStorage описывает агрегаты по сохранённым оценкам.
type AnalyticsStorage interface {
	// DailySentiment возвращает средние оценки и число записей по дням (UTC)
	// для записей с date >= since, по возрастанию дня.
	DailySentiment(ctx context.Context, since time.Time) ([]models.DailySentiment, error)
	// Stats возвращает сводку по всем записям.
	Stats(ctx context.Context) (*models.Stats, error)
}

// Storage задаёт контракт доступа к хранилищу для сервиса.
type Storage interface {
	ArticleStorage
	AnalyticsStorage
	Close()
}
