package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-news-sentiment/internal/config"
	"github.com/pribylovaa/go-news-sentiment/internal/lexicon"
	"github.com/pribylovaa/go-news-sentiment/internal/lock"
	"github.com/pribylovaa/go-news-sentiment/internal/models"
	"github.com/pribylovaa/go-news-sentiment/internal/storage"
	"github.com/pribylovaa/go-news-sentiment/mocks"
)

// stubSource — минимальный Source для тестов fetcher.go.
type stubSource struct {
	name  string
	items []models.RawArticle
	err   error
	calls atomic.Int32

	// block, если задан, держит Fetch до закрытия.
	block chan struct{}

	mu       sync.Mutex
	query    string
	lookback time.Duration
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context, query string, lookback time.Duration) ([]models.RawArticle, error) {
	s.calls.Add(1)

	s.mu.Lock()
	s.query, s.lookback = query, lookback
	s.mu.Unlock()

	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return s.items, s.err
}

// staticLexicon — LexiconLoader с заранее заданным результатом.
type staticLexicon struct {
	lex *lexicon.Lexicon
	err error
}

func (s staticLexicon) Load(context.Context) (*lexicon.Lexicon, error) { return s.lex, s.err }

func fetcherConfig() config.Config {
	return config.Config{
		Fetcher: config.FetcherConfig{
			Query:    "finance OR economy",
			Lookback: 24 * time.Hour,
			Interval: time.Hour,
		},
	}
}

func newIngestService(t *testing.T, st storage.Storage, sources ...Source) *Service {
	t.Helper()
	return New(st, staticLexicon{lex: testLexicon(t)}, fetcherConfig(), Options{Sources: sources})
}

func TestIngestOnce_SavesNewRecords(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := mocks.NewMockStorage(ctrl)

	src := &stubSource{name: "newsapi", items: []models.RawArticle{
		raw("https://example.org/1", "Strong Growth Amid Market Decline", ""),
		raw("https://example.org/2", "seen before", ""),
		raw("https://example.org/3", "weak loss", "good"),
	}}

	st.EXPECT().
		FindURLs(gomock.Any(), []string{"https://example.org/1", "https://example.org/2", "https://example.org/3"}).
		Return(map[string]struct{}{"https://example.org/2": {}}, nil)

	var saved []models.ArticleRecord
	st.EXPECT().
		InsertBatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, records []models.ArticleRecord) error {
			saved = append([]models.ArticleRecord(nil), records...)
			return nil
		})

	svc := newIngestService(t, st, src)

	n, err := svc.IngestOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"https://example.org/1", "https://example.org/3"}, urlsOf(saved))
	require.InDelta(t, 0.2, saved[0].TitleScore, 1e-12)

	src.mu.Lock()
	require.Equal(t, "finance OR economy", src.query)
	require.Equal(t, 24*time.Hour, src.lookback)
	src.mu.Unlock()
}

func TestIngestOnce_NothingNew_SkipsInsert(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := mocks.NewMockStorage(ctrl)

	src := &stubSource{name: "rss", items: []models.RawArticle{raw("https://example.org/1", "t", "")}}

	st.EXPECT().FindURLs(gomock.Any(), gomock.Any()).
		Return(map[string]struct{}{"https://example.org/1": {}}, nil)

	n, err := newIngestService(t, st, src).IngestOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestIngestOnce_FetchFailure_Degrades(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := mocks.NewMockStorage(ctrl)

	bad := &stubSource{name: "newsapi", err: errors.New("status 500")}
	good := &stubSource{name: "rss", items: []models.RawArticle{raw("https://ok", "T", "")}}

	st.EXPECT().FindURLs(gomock.Any(), []string{"https://ok"}).Return(map[string]struct{}{}, nil)
	st.EXPECT().
		InsertBatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, records []models.ArticleRecord) error {
			require.Len(t, records, 1)
			require.Equal(t, "https://ok", records[0].URL)
			return nil
		})

	n, err := newIngestService(t, st, bad, good).IngestOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestIngestOnce_AllSourcesFail_NoStoreCalls(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := mocks.NewMockStorage(ctrl)

	src := &stubSource{name: "newsapi", err: errors.New("dial tcp: timeout")}

	n, err := newIngestService(t, st, src).IngestOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestIngestOnce_StoreWriteError_Propagates(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := mocks.NewMockStorage(ctrl)

	src := &stubSource{name: "rss", items: []models.RawArticle{raw("https://a", "t", "")}}

	st.EXPECT().FindURLs(gomock.Any(), gomock.Any()).Return(nil, nil)
	st.EXPECT().InsertBatch(gomock.Any(), gomock.Any()).Return(storage.ErrConflict)

	_, err := newIngestService(t, st, src).IngestOnce(context.Background())
	require.ErrorIs(t, err, ErrStoreWrite)
	require.ErrorIs(t, err, storage.ErrConflict)
}

func TestIngestOnce_FindURLsError_Propagates(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := mocks.NewMockStorage(ctrl)

	boom := errors.New("connection reset")
	src := &stubSource{name: "rss", items: []models.RawArticle{raw("https://a", "t", "")}}

	st.EXPECT().FindURLs(gomock.Any(), gomock.Any()).Return(nil, boom)

	_, err := newIngestService(t, st, src).IngestOnce(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestIngestOnce_LexiconFailure_NoWork(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := mocks.NewMockStorage(ctrl)

	src := &stubSource{name: "rss", items: []models.RawArticle{raw("https://a", "t", "")}}
	svc := New(st, staticLexicon{err: lexicon.ErrLexiconLoad}, fetcherConfig(), Options{Sources: []Source{src}})

	_, err := svc.IngestOnce(context.Background())
	require.ErrorIs(t, err, lexicon.ErrLexiconLoad)
	require.Zero(t, src.calls.Load(), "sources must not be polled without a lexicon")
}

func TestIngestOnce_ConcurrentCallRejected(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := mocks.NewMockStorage(ctrl)

	src := &stubSource{name: "rss", block: make(chan struct{})}
	svc := newIngestService(t, st, src)

	done := make(chan error, 1)
	go func() {
		_, err := svc.IngestOnce(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := svc.IngestOnce(context.Background())
	require.ErrorIs(t, err, ErrIngestInProgress)

	close(src.block)
	require.NoError(t, <-done)

	// Блокировка освобождена.
	_, err = svc.IngestOnce(context.Background())
	require.NoError(t, err)
}

func TestTriggerIngest_RunsInBackground(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := mocks.NewMockStorage(ctrl)

	src := &stubSource{
		name:  "rss",
		block: make(chan struct{}),
		items: []models.RawArticle{raw("https://a", "t", "")},
	}

	st.EXPECT().FindURLs(gomock.Any(), gomock.Any()).Return(nil, nil)
	st.EXPECT().InsertBatch(gomock.Any(), gomock.Any()).Return(nil)

	svc := newIngestService(t, st, src)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, svc.TriggerIngest(ctx))
	// Отмена запроса не прерывает фоновый цикл.
	cancel()

	require.ErrorIs(t, svc.TriggerIngest(context.Background()), ErrIngestInProgress)

	close(src.block)
	svc.Wait()
}

func TestIngestOnce_SharedGuard(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := mocks.NewMockStorage(ctrl)

	guard := lock.NewLocal()
	release, ok, err := guard.TryAcquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	src := &stubSource{name: "rss"}
	svc := New(st, staticLexicon{lex: testLexicon(t)}, fetcherConfig(), Options{
		Sources: []Source{src},
		Guard:   guard,
	})

	_, err = svc.IngestOnce(context.Background())
	require.ErrorIs(t, err, ErrIngestInProgress)
	require.Zero(t, src.calls.Load())
}

func TestStartIngest_NoSources(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := newIngestService(t, mocks.NewMockStorage(ctrl))
	require.Error(t, svc.StartIngest(context.Background()))
}

func TestStartIngest_RunsImmediatelyAndStops(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := mocks.NewMockStorage(ctrl)

	// Пустые источники -> хранилище не трогается.
	src := &stubSource{name: "rss"}
	svc := newIngestService(t, st, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.StartIngest(ctx) }()

	require.Eventually(t, func() bool { return src.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("StartIngest did not stop on ctx cancel")
	}
}

func TestCandidateURLs(t *testing.T) {
	t.Parallel()

	got := candidateURLs([]models.RawArticle{
		{URL: "https://a"}, {URL: ""}, {URL: "https://b"}, {URL: "https://a"},
	})
	require.Equal(t, []string{"https://a", "https://b"}, got)
}

func TestCountDuplicates(t *testing.T) {
	t.Parallel()

	got := countDuplicates([]models.RawArticle{
		{URL: "https://a", Title: "t"},
		{URL: "https://a", Title: "t"},
		{URL: "https://old", Title: "t"},
		{URL: "", Title: "t"},
	}, map[string]struct{}{"https://old": {}})
	require.Equal(t, 2, got)
}
