package redact

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestURL_Table — табличные тесты на редактирование URL/DSN.
func TestURL_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		keys []string
		want string
	}{
		{name: "dsn_password", raw: "postgres://user:secret@db:5432/app?sslmode=disable", want: "postgres://user:xxxxx@db:5432/app?sslmode=disable"},
		{name: "redis_password_only", raw: "redis://:secret@cache:6379/0", want: "redis://:xxxxx@cache:6379/0"},
		{name: "no_userinfo", raw: "https://newsapi.org/v2/everything", want: "https://newsapi.org/v2/everything"},
		{name: "query_key_case_insensitive", raw: "https://newsapi.org/v2/everything?apiKey=abc&q=x", keys: []string{"apikey"}, want: "https://newsapi.org/v2/everything?apiKey=REDACTED&q=x"},
		{name: "query_key_absent", raw: "https://h/p?q=x", keys: []string{"apikey"}, want: "https://h/p?q=x"},
		{name: "not_absolute", raw: "just-a-host", want: "***"},
		{name: "empty", raw: "", want: "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, URL(tt.raw, tt.keys...))
		})
	}
}

func TestError_ReplacesSecrets(t *testing.T) {
	t.Parallel()

	base := fmt.Errorf(`Get "https://newsapi.org/v2/everything?apiKey=k123&q=x": %w`, context.DeadlineExceeded)

	err := Error(base, "k123", "")
	require.Equal(t, `Get "https://newsapi.org/v2/everything?apiKey=REDACTED&q=x": context deadline exceeded`, err.Error())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestError_Untouched(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")
	require.Same(t, base, Error(base, "k123"))
	require.Same(t, base, Error(base))
	require.NoError(t, Error(nil, "k123"))
}
