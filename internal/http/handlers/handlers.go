// handlers — REST-эндпойнты сервиса тональности поверх service.Service.
package handlers

//go:generate mockgen -source=handlers.go -destination=../../../mocks/mock_handlers.go -package=mocks

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/go-news-sentiment/internal/models"
)

// Service — операции бизнес-слоя, нужные хендлерам. Реализуется *service.Service.
type Service interface {
	TriggerIngest(ctx context.Context) error
	DailySentiment(ctx context.Context, days int) ([]models.DailySentiment, error)
	Stats(ctx context.Context) (*models.Stats, error)
	ListArticles(ctx context.Context, opts models.ListOptions) (*models.Page, error)
	ArticleByID(ctx context.Context, id string) (*models.ArticleRecord, error)
	Score(ctx context.Context, title, summary string) (models.ArticleSentiment, error)
}

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	svc Service
}

func New(svc Service) *Handlers {
	return &Handlers{svc: svc}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля,
// тело ограничено 1 MiB.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
