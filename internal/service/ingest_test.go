package service

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-news-sentiment/internal/lexicon"
	"github.com/pribylovaa/go-news-sentiment/internal/models"
	"github.com/pribylovaa/go-news-sentiment/internal/sentiment"
	"github.com/pribylovaa/go-news-sentiment/pkg/log"
)

// testLexicon — {good, strong, growth} / {loss, weak, decline}.
func testLexicon(t *testing.T) *lexicon.Lexicon {
	t.Helper()
	lex, err := lexicon.New(
		[]string{"good", "strong", "growth"},
		[]string{"loss", "weak", "decline"},
	)
	require.NoError(t, err)
	return lex
}

func raw(url, title, description string) models.RawArticle {
	return models.RawArticle{
		Title:       title,
		Description: description,
		URL:         url,
		SourceName:  "Reuters",
	}
}

func urlsOf(records []models.ArticleRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.URL)
	}
	return out
}

func TestIngest_HeadlineExample(t *testing.T) {
	t.Parallel()

	lex := testLexicon(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("MSK", 3*3600))

	records, n := Ingest(context.Background(), []models.RawArticle{
		raw("https://example.org/a", "Strong Growth Amid Market Decline", ""),
	}, nil, lex, now)

	require.Equal(t, 1, n)
	require.Len(t, records, 1)

	r := records[0]
	require.Equal(t, 2, r.TitlePositive)
	require.Equal(t, 1, r.TitleNegative)
	require.InDelta(t, 0.2, r.TitleScore, 1e-12)

	// Пустая аннотация -> нули.
	require.Equal(t, "", r.Summary)
	require.Zero(t, r.SummaryPositive)
	require.Zero(t, r.SummaryNegative)
	require.Zero(t, r.SummaryScore)

	require.Equal(t, "Reuters", r.Source)
	require.NotEqual(t, uuid.Nil, r.ID)
	require.True(t, r.Date.Equal(now))
	require.Equal(t, time.UTC, r.Date.Location())
}

func TestIngest_SkipsExistingKeepsOrder(t *testing.T) {
	t.Parallel()

	lex := testLexicon(t)
	existing := map[string]struct{}{"https://example.org/2": {}}

	records, n := Ingest(context.Background(), []models.RawArticle{
		raw("https://example.org/1", "one", ""),
		raw("https://example.org/2", "two", ""),
		raw("https://example.org/3", "three", ""),
	}, existing, lex, time.Now())

	require.Equal(t, 2, n)
	require.Equal(t, []string{"https://example.org/1", "https://example.org/3"}, urlsOf(records))
	require.Len(t, existing, 1, "caller set must not be mutated")
}

func TestIngest_WithinBatchDuplicates_FirstWins(t *testing.T) {
	t.Parallel()

	lex := testLexicon(t)

	records, n := Ingest(context.Background(), []models.RawArticle{
		raw("https://example.org/x", "first", ""),
		raw("https://example.org/y", "other", ""),
		raw("https://example.org/x", "second", ""),
	}, map[string]struct{}{}, lex, time.Now())

	require.Equal(t, 2, n)
	require.Equal(t, "first", records[0].Title)
	require.Equal(t, []string{"https://example.org/x", "https://example.org/y"}, urlsOf(records))
}

func TestIngest_Idempotent(t *testing.T) {
	t.Parallel()

	lex := testLexicon(t)
	batch := []models.RawArticle{
		raw("https://example.org/1", "good news", ""),
		raw("https://example.org/2", "weak outlook", "loss"),
	}

	first, n := Ingest(context.Background(), batch, nil, lex, time.Now())
	require.Equal(t, 2, n)

	existing := make(map[string]struct{})
	for _, r := range first {
		existing[r.URL] = struct{}{}
	}

	second, n := Ingest(context.Background(), batch, existing, lex, time.Now())
	require.Zero(t, n)
	require.Empty(t, second)
}

func TestIngest_MalformedSkippedAndLogged(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := log.Into(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	records, n := Ingest(ctx, []models.RawArticle{
		raw("", "no url", ""),
		raw("https://example.org/blank", "", ""),
		raw("https://example.org/ok", "ok", ""),
	}, nil, testLexicon(t), time.Now())

	require.Equal(t, 1, n)
	require.Equal(t, "https://example.org/ok", records[0].URL)

	out := buf.String()
	require.Equal(t, 2, strings.Count(out, "article_skipped"))
	require.Contains(t, out, ErrMalformedArticle.Error())
}

func TestIngest_MalformedDoesNotReserveURL(t *testing.T) {
	t.Parallel()

	records, n := Ingest(context.Background(), []models.RawArticle{
		raw("https://example.org/a", "", ""),
		raw("https://example.org/a", "now with title", ""),
	}, nil, testLexicon(t), time.Now())

	require.Equal(t, 1, n)
	require.Equal(t, "now with title", records[0].Title)
}

func TestIngest_SummaryFallback(t *testing.T) {
	t.Parallel()

	lex := testLexicon(t)
	withContent := raw("https://example.org/c", "t", "")
	withContent.Content = "Weak demand, loss widens."

	both := raw("https://example.org/d", "t", "strong quarter")
	both.Content = "ignored decline"

	records, _ := Ingest(context.Background(), []models.RawArticle{withContent, both}, nil, lex, time.Now())
	require.Len(t, records, 2)

	require.Equal(t, "Weak demand, loss widens.", records[0].Summary)
	require.Equal(t, 2, records[0].SummaryNegative)
	require.InDelta(t, -0.5, records[0].SummaryScore, 1e-12)

	require.Equal(t, "strong quarter", records[1].Summary)
	require.Equal(t, 1, records[1].SummaryPositive)
	require.Zero(t, records[1].SummaryNegative)
}

func TestIngest_BlankDescriptionKept(t *testing.T) {
	t.Parallel()

	blank := raw("https://example.org/blank-desc", "t", "   ")
	blank.Content = "loss loss"

	records, n := Ingest(context.Background(), []models.RawArticle{blank}, nil, testLexicon(t), time.Now())
	require.Equal(t, 1, n)

	r := records[0]
	require.Equal(t, "   ", r.Summary)
	require.Zero(t, r.SummaryPositive)
	require.Zero(t, r.SummaryNegative)
	require.Zero(t, r.SummaryScore)
}

func TestIngest_BlankTitleKept(t *testing.T) {
	t.Parallel()

	records, n := Ingest(context.Background(), []models.RawArticle{
		raw("https://example.org/blank-title", "   ", "strong quarter"),
	}, nil, testLexicon(t), time.Now())
	require.Equal(t, 1, n)

	r := records[0]
	require.Equal(t, "   ", r.Title)
	require.Zero(t, r.TitleScore)
	require.Equal(t, 1, r.SummaryPositive)
}

func TestIngest_SourceNameTruncated(t *testing.T) {
	t.Parallel()

	a := raw("https://example.org/long-source", "t", "")
	a.SourceName = strings.Repeat("Финансовые новости ", 10)

	records, n := Ingest(context.Background(), []models.RawArticle{a}, nil, testLexicon(t), time.Now())
	require.Equal(t, 1, n)
	require.Equal(t, models.MaxSourceLen, utf8.RuneCountInString(records[0].Source))
	require.True(t, utf8.ValidString(records[0].Source))
}

func TestIngest_TitleTruncatedByRunes(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ж", models.MaxTitleLen+20)
	records, n := Ingest(context.Background(), []models.RawArticle{
		raw("https://example.org/long", long, ""),
	}, nil, testLexicon(t), time.Now())

	require.Equal(t, 1, n)
	require.Equal(t, models.MaxTitleLen, utf8.RuneCountInString(records[0].Title))
	require.True(t, utf8.ValidString(records[0].Title))
}

func TestIngest_ScoresMatchAnalyze(t *testing.T) {
	t.Parallel()

	lex := testLexicon(t)
	title := strings.Repeat("good ", 120) + "decline"
	records, _ := Ingest(context.Background(), []models.RawArticle{
		raw("https://example.org/rt", title, "strong growth, weak loss"),
	}, nil, lex, time.Now())
	require.Len(t, records, 1)

	r := records[0]
	require.Equal(t, sentiment.Analyze(r.Title, r.Summary, lex), r.ArticleSentiment)
}

func TestIngest_PublishedAtNormalized(t *testing.T) {
	t.Parallel()

	a := raw("https://example.org/p", "t", "")
	a.PublishedAt = time.Date(2024, 12, 31, 23, 59, 0, 0, time.FixedZone("MSK", 3*3600))

	records, _ := Ingest(context.Background(), []models.RawArticle{a, raw("https://example.org/z", "t", "")}, nil, testLexicon(t), time.Now())
	require.Equal(t, time.UTC, records[0].PublishedAt.Location())
	require.True(t, a.PublishedAt.Equal(records[0].PublishedAt))
	require.True(t, records[1].PublishedAt.IsZero())
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc", truncateRunes("abc", 5))
	require.Equal(t, "ab", truncateRunes("abc", 2))
	require.Equal(t, "жё", truncateRunes("жёлтый", 2))
	require.Equal(t, "", truncateRunes("abc", 0))
}
