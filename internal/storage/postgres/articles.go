package postgres

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/go-news-sentiment/internal/models"
	"github.com/pribylovaa/go-news-sentiment/internal/storage"
)

const selectColumns = `id, title, summary, source, url,
	title_score, summary_score, title_positive, title_negative,
	summary_positive, summary_negative, published_at, date`

// FindURLs возвращает те из urls, что уже сохранены.
func (s *Storage) FindURLs(ctx context.Context, urls []string) (map[string]struct{}, error) {
	const op = "storage.postgres.FindURLs"

	found := make(map[string]struct{})
	if len(urls) == 0 {
		return found, nil
	}

	rows, err := s.db.Query(ctx, `
	SELECT url FROM sentiment_records WHERE url = ANY($1)
	`, urls)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		found[url] = struct{}{}
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, rows.Err())
	}

	return found, nil
}

// InsertBatch сохраняет пачку записей в одной транзакции.
//
// Политика:
//   - записи только вставляются, существующие не обновляются;
//   - нарушение уникальности url (гонка двух ингестов) откатывает всю
//     пачку и возвращается как storage.ErrConflict;
//   - нулевой PublishedAt сохраняется как NULL.
func (s *Storage) InsertBatch(ctx context.Context, records []models.ArticleRecord) error {
	const op = "storage.postgres.InsertBatch"

	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
		INSERT INTO sentiment_records (id, title, summary, source, url,
			title_score, summary_score, title_positive, title_negative,
			summary_positive, summary_negative, published_at, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, r.ID, r.Title, r.Summary, r.Source, r.URL,
			r.TitleScore, r.SummaryScore, r.TitlePositive, r.TitleNegative,
			r.SummaryPositive, r.SummaryNegative, nullTime(r.PublishedAt), r.Date.UTC())
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()

			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return fmt.Errorf("%s: batch item %d: %w", op, i, storage.ErrConflict)
			}

			return fmt.Errorf("%s: batch item %d: %w", op, i, err)
		}
	}

	if err := br.Close(); err != nil {
		return fmt.Errorf("%s: batch close: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

// ListArticles возвращает страницу записей с курсорной пагинацией.
// Сортировка фиксирована: date DESC, id DESC.
// page_token — непрозрачная строка (base64url).
// При некорректном токене возвращает storage.ErrInvalidCursor.
func (s *Storage) ListArticles(ctx context.Context, opts models.ListOptions) (*models.Page, error) {
	const op = "storage.postgres.ListArticles"

	limit := opts.Limit
	if limit <= 0 {
		limit = 1
	}

	var rows pgx.Rows
	var err error

	if opts.PageToken == "" {
		rows, err = s.db.Query(ctx, `
		SELECT `+selectColumns+`
		FROM sentiment_records
		ORDER BY date DESC, id DESC
		LIMIT $1
		`, limit)
	} else {
		dateCur, idCur, decErr := decodePageToken(opts.PageToken)
		if decErr != nil {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidCursor)
		}

		rows, err = s.db.Query(ctx, `
		SELECT `+selectColumns+`
		FROM sentiment_records
		WHERE (date, id) < ($1, $2)
		ORDER BY date DESC, id DESC
		LIMIT $3
		`, dateCur, idCur, limit)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var page models.Page
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, scanErr)
		}

		page.Items = append(page.Items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, rows.Err())
	}

	// Курсор следующей страницы — по последнему элементу.
	if l := len(page.Items); l > 0 && int32(l) == limit {
		last := page.Items[l-1]
		page.NextPageToken = encodePageToken(last.Date, last.ID)
	}

	return &page, nil
}

// ArticleByID возвращает запись по идентификатору.
// Некорректный формат id трактуется как «нет такой записи».
func (s *Storage) ArticleByID(ctx context.Context, id string) (*models.ArticleRecord, error) {
	const op = "storage.postgres.ArticleByID"

	correctID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	row := s.db.QueryRow(ctx, `
	SELECT `+selectColumns+`
	FROM sentiment_records
	WHERE id = $1
	`, correctID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &rec, nil
}

// DailySentiment агрегирует оценки по календарным дням UTC.
func (s *Storage) DailySentiment(ctx context.Context, since time.Time) ([]models.DailySentiment, error) {
	const op = "storage.postgres.DailySentiment"

	rows, err := s.db.Query(ctx, `
	SELECT date_trunc('day', date AT TIME ZONE 'UTC') AS day,
		avg(title_score), avg(summary_score), count(*)
	FROM sentiment_records
	WHERE date >= $1
	GROUP BY day
	ORDER BY day
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.DailySentiment
	for rows.Next() {
		var d models.DailySentiment
		if err := rows.Scan(&d.Day, &d.AvgTitleScore, &d.AvgSummaryScore, &d.ArticleCount); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}

		d.Day = time.Date(d.Day.Year(), d.Day.Month(), d.Day.Day(), 0, 0, 0, 0, time.UTC)
		out = append(out, d)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, rows.Err())
	}

	return out, nil
}

// Stats возвращает сводку по всем записям.
func (s *Storage) Stats(ctx context.Context) (*models.Stats, error) {
	const op = "storage.postgres.Stats"

	var st models.Stats
	err := s.db.QueryRow(ctx, `
	SELECT count(*), max(date), avg(title_score), avg(summary_score)
	FROM sentiment_records
	`).Scan(&st.TotalArticles, &st.LatestUpdate, &st.AvgTitleScore, &st.AvgSummaryScore)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if st.LatestUpdate != nil {
		latest := st.LatestUpdate.UTC()
		st.LatestUpdate = &latest
	}

	return &st, nil
}

// scanRecord читает одну строку selectColumns.
func scanRecord(row pgx.Row) (models.ArticleRecord, error) {
	var rec models.ArticleRecord
	var published *time.Time

	err := row.Scan(
		&rec.ID,
		&rec.Title,
		&rec.Summary,
		&rec.Source,
		&rec.URL,
		&rec.TitleScore,
		&rec.SummaryScore,
		&rec.TitlePositive,
		&rec.TitleNegative,
		&rec.SummaryPositive,
		&rec.SummaryNegative,
		&published,
		&rec.Date,
	)
	if err != nil {
		return models.ArticleRecord{}, err
	}

	if published != nil {
		rec.PublishedAt = published.UTC()
	}
	rec.Date = rec.Date.UTC()

	return rec, nil
}

// nullTime переводит нулевое время в NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	utc := t.UTC()
	return &utc
}

// encodePageToken кодирует пару ключей страницы в непрозрачный токен для клиента.
func encodePageToken(date time.Time, id uuid.UUID) string {
	raw := fmt.Sprintf("%d|%s", date.UTC().UnixNano(), id.String())

	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodePageToken декодирует токен обратно в пару ключей.
func decodePageToken(token string) (time.Time, uuid.UUID, error) {
	res, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}

	parts := strings.SplitN(string(res), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, fmt.Errorf("bad parts")
	}

	t, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}

	id, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}

	return time.Unix(0, t).UTC(), id, nil
}
