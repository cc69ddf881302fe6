package handlers

import (
	"math"
	"time"

	"github.com/pribylovaa/go-news-sentiment/internal/models"
)

// messageResponse — ответ на запуск фонового ингеста.
type messageResponse struct {
	Message string `json:"message"`
}

// noDataResponse — пустая выборка sentiment-data (сохраняет формат дашборда).
type noDataResponse struct {
	Error string `json:"error"`
}

type dailyResponse struct {
	Date            string  `json:"date_only"`
	AvgTitleScore   float64 `json:"title_score"`
	AvgSummaryScore float64 `json:"summary_score"`
	ArticleCount    int     `json:"article_count"`
}

type statsResponse struct {
	TotalArticles       int64    `json:"total_articles"`
	LatestUpdate        *string  `json:"latest_update"`
	AverageTitleScore   *float64 `json:"average_title_score"`
	AverageSummaryScore *float64 `json:"average_summary_score"`
}

type articleResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Summary     string  `json:"summary"`
	Source      string  `json:"source"`
	URL         string  `json:"url"`
	PublishedAt *string `json:"published_at"`
	Date        string  `json:"date"`
	models.ArticleSentiment
}

type articlesListResponse struct {
	Items         []articleResponse `json:"items"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

type scoreRequest struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

func dailyFromModel(in []models.DailySentiment) []dailyResponse {
	out := make([]dailyResponse, 0, len(in))
	for _, d := range in {
		out = append(out, dailyResponse{
			Date:            d.Day.UTC().Format(time.DateOnly),
			AvgTitleScore:   d.AvgTitleScore,
			AvgSummaryScore: d.AvgSummaryScore,
			ArticleCount:    d.ArticleCount,
		})
	}

	return out
}

func statsFromModel(st *models.Stats) statsResponse {
	resp := statsResponse{TotalArticles: st.TotalArticles}

	if st.LatestUpdate != nil {
		s := st.LatestUpdate.UTC().Format(time.RFC3339)
		resp.LatestUpdate = &s
	}
	resp.AverageTitleScore = round3(st.AvgTitleScore)
	resp.AverageSummaryScore = round3(st.AvgSummaryScore)

	return resp
}

func articleFromModel(rec models.ArticleRecord) articleResponse {
	resp := articleResponse{
		ID:               rec.ID.String(),
		Title:            rec.Title,
		Summary:          rec.Summary,
		Source:           rec.Source,
		URL:              rec.URL,
		Date:             rec.Date.UTC().Format(time.RFC3339),
		ArticleSentiment: rec.ArticleSentiment,
	}

	if !rec.PublishedAt.IsZero() {
		s := rec.PublishedAt.UTC().Format(time.RFC3339)
		resp.PublishedAt = &s
	}

	return resp
}

func pageFromModel(p *models.Page) articlesListResponse {
	items := make([]articleResponse, 0, len(p.Items))
	for _, rec := range p.Items {
		items = append(items, articleFromModel(rec))
	}

	return articlesListResponse{Items: items, NextPageToken: p.NextPageToken}
}

func round3(v *float64) *float64 {
	if v == nil {
		return nil
	}

	r := math.Round(*v*1000) / 1000
	return &r
}
