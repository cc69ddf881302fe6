package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	apierrors "github.com/pribylovaa/go-news-sentiment/internal/errors"
	logctx "github.com/pribylovaa/go-news-sentiment/pkg/log"
)

var errPanic = errors.New("handler panic")

// Recover превращает panic обработчика в 500/internal.
// Причина и стек уходят только в лог (http_panic).
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				ctx := r.Context()
				logctx.From(ctx).LogAttrs(ctx, slog.LevelError, "http_panic",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", r.Header.Get("X-Request-Id")),
					slog.Any("reason", rec),
					slog.String("stack", string(debug.Stack())),
				)
				apierrors.WriteError(w, r, errPanic)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
