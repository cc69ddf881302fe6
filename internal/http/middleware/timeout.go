package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrRequestTimeout — причина отмены контекста запроса по Timeout.
// Доступна через context.Cause; сам ctx.Err() остаётся DeadlineExceeded.
var ErrRequestTimeout = errors.New("request timeout")

// Timeout ограничивает время обработки запроса значением d.
// Уже заданный deadline (например, от вышестоящего прокси) не трогается;
// d <= 0 отключает ограничение.
func Timeout(d time.Duration) Middleware {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, has := ctx.Deadline(); !has {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeoutCause(ctx, d, ErrRequestTimeout)
				defer cancel()
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}
