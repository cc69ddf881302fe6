// models содержит доменные сущности сервиса оценки тональности новостей.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxTitleLen — максимальная длина заголовка записи в символах (рунах).
const MaxTitleLen = 500

// MaxSourceLen — максимальная длина имени источника в рунах.
const MaxSourceLen = 100

// RawArticle — статья в том виде, в котором её отдал источник.
// Отсутствующие необязательные поля — пустые строки.
type RawArticle struct {
	Title       string
	Description string
	Content     string
	URL         string
	// SourceName — имя издателя (source.name у NewsAPI, название ленты у RSS).
	SourceName string
	// PublishedAt — время публикации у источника, допускается нулевое значение.
	PublishedAt time.Time
}

// SentimentResult — оценка одной последовательности токенов.
//
// Особенности:
//   - NetScore = (Positive - Negative) / число токенов;
//   - для пустой последовательности все поля нулевые.
type SentimentResult struct {
	Positive int
	Negative int
	NetScore float64
}

// ArticleSentiment — оценка заголовка и аннотации статьи.
type ArticleSentiment struct {
	TitleScore      float64 `json:"title_score"`
	TitlePositive   int     `json:"title_positive"`
	TitleNegative   int     `json:"title_negative"`
	SummaryScore    float64 `json:"summary_score"`
	SummaryPositive int     `json:"summary_positive"`
	SummaryNegative int     `json:"summary_negative"`
}

// ArticleRecord — сохранённая оценка статьи.
//
// Особенности:
//   - URL — естественный ключ дедупликации, в хранилище не более одной записи на URL;
//   - запись не изменяется после создания;
//   - поля оценки согласованы с Title/Summary по формуле скорера;
//   - Date — время ингеста (UTC).
type ArticleRecord struct {
	ID      uuid.UUID
	Title   string
	Summary string
	Source  string
	URL     string
	ArticleSentiment
	PublishedAt time.Time
	Date        time.Time
}

// DailySentiment — агрегат по одному календарному дню (UTC).
type DailySentiment struct {
	Day             time.Time
	AvgTitleScore   float64
	AvgSummaryScore float64
	ArticleCount    int
}

// Stats — сводка по всем записям. Указатели nil, если данных нет.
type Stats struct {
	TotalArticles   int64
	LatestUpdate    *time.Time
	AvgTitleScore   *float64
	AvgSummaryScore *float64
}

// ListOptions — параметры выборки списка записей.
//
// Особенности:
//   - при Limit == 0 применяется серверный default (из config.LimitsConfig.Default);
//   - PageToken == "" -> первая страница.
type ListOptions struct {
	Limit     int32
	PageToken string
}

// Page — страница результатов со ссылкой на продолжение.
type Page struct {
	Items         []ArticleRecord
	NextPageToken string
}
