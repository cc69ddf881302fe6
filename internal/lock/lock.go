// lock содержит блокировки, не дающие двум циклам ингеста работать
// одновременно с одного снимка хранилища.
package lock

import (
	"context"
	"sync"
)

// Guard — неблокирующая блокировка цикла ингеста.
type Guard interface {
	// TryAcquire пытается взять блокировку. При ok=false блокировка занята
	// другим владельцем, release == nil. release идемпотентен.
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
	// Close освобождает ресурсы блокировки.
	Close() error
}

// Local — блокировка внутри процесса.
type Local struct {
	mu sync.Mutex
}

// NewLocal создаёт блокировку внутри процесса.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) TryAcquire(_ context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}

	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, true, nil
}

func (l *Local) Close() error { return nil }

var (
	_ Guard = (*Local)(nil)
	_ Guard = (*Redis)(nil)
)
