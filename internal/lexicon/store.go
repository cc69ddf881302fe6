package lexicon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pribylovaa/go-news-sentiment/pkg/log"
)

// Store лениво загружает словарь из файла ровно один раз.
//
// Особенности:
//   - повторный Load возвращает уже загруженный экземпляр (no-op);
//   - конкурентные вызовы не приводят к двойной загрузке;
//   - после ошибки Store остаётся пустым, следующий Load повторит попытку.
//
// Глобального экземпляра нет: процесс создаёт один Store при старте,
// тесты — столько изолированных, сколько нужно.
type Store struct {
	path string

	mu  sync.Mutex
	lex *Lexicon
}

// NewStore создаёт хранилище словаря для файла path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load возвращает словарь, загружая его при первом вызове.
func (s *Store) Load(ctx context.Context) (*Lexicon, error) {
	const op = "lexicon.Store.Load"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lex != nil {
		return s.lex, nil
	}

	lex, err := LoadFile(ctx, s.path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pos, neg := lex.Len()
	log.From(ctx).Info("lexicon_loaded",
		slog.String("op", op),
		slog.String("path", s.path),
		slog.Int("positive", pos),
		slog.Int("negative", neg),
	)

	s.lex = lex
	return lex, nil
}

// Loaded возвращает словарь, если он уже загружен.
func (s *Store) Loaded() (*Lexicon, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lex, s.lex != nil
}
