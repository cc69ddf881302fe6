package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/go-news-sentiment/internal/errors"
	"github.com/pribylovaa/go-news-sentiment/internal/models"
)

// FetchNews запускает цикл ингеста в фоне: 202 сразу, 409 если цикл уже идёт.
func (h *Handlers) FetchNews(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.TriggerIngest(r.Context()); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, messageResponse{Message: "News fetch started in background"})
}

// SentimentData — дневные средние за ?days=N (по умолчанию — серверный default).
func (h *Handlers) SentimentData(w http.ResponseWriter, r *http.Request) {
	var days int
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			apierrors.WriteError(w, r, fmt.Errorf("days=%q: %w", v, apierrors.ErrInvalidArgument))
			return
		}

		days = n
	}

	daily, err := h.svc.DailySentiment(r.Context(), days)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if len(daily) == 0 {
		writeJSON(w, http.StatusOK, noDataResponse{Error: "No data available"})
		return
	}

	writeJSON(w, http.StatusOK, dailyFromModel(daily))
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statsFromModel(st))
}

func (h *Handlers) ListArticles(w http.ResponseWriter, r *http.Request) {
	var opts models.ListOptions
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			apierrors.WriteError(w, r, fmt.Errorf("limit=%q: %w", v, apierrors.ErrInvalidArgument))
			return
		}

		opts.Limit = int32(n)
	}

	opts.PageToken = r.URL.Query().Get("page_token")

	page, err := h.svc.ListArticles(r.Context(), opts)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pageFromModel(page))
}

func (h *Handlers) ArticleByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	rec, err := h.svc.ArticleByID(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, articleFromModel(*rec))
}

// Score оценивает заголовок и аннотацию из тела запроса без сохранения.
func (h *Handlers) Score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeStrict(w, r, &req); err != nil {
		apierrors.WriteError(w, r, fmt.Errorf("decode: %w", apierrors.ErrInvalidArgument))
		return
	}

	res, err := h.svc.Score(r.Context(), req.Title, req.Summary)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
