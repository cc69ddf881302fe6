package interceptors

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-news-sentiment/pkg/log"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// capHandler — минимальный slog.Handler для захвата последней записи.
type capHandler struct {
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})
	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.base = append(h.base, attrs...)
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

func TestUnaryLoggingInterceptor_Success_WithRequestID(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	logger := slog.New(h)

	md := metadata.New(map[string]string{"x-request-id": "rid-123"})
	ctx := metadata.NewIncomingContext(context.Background(), md)
	ctx = peer.NewContext(ctx, &peer.Peer{
		Addr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50053},
	})

	info := &grpc.UnaryServerInfo{FullMethod: "/sentiment.Admin/Ingest"}

	var inner *slog.Logger
	resp, err := UnaryLoggingInterceptor(logger)(ctx, "req", info, func(ctx context.Context, req any) (any, error) {
		inner = log.From(ctx)
		time.Sleep(2 * time.Millisecond)
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", resp)
	require.NotNil(t, inner)

	require.Equal(t, "grpc", h.lastMsg)
	require.Equal(t, slog.LevelInfo, h.lastLvl)
	require.Equal(t, "rid-123", h.attrs["request_id"])
	require.Equal(t, info.FullMethod, h.attrs["method"])
	require.Equal(t, "127.0.0.1:50053", h.attrs["peer"])
	require.Equal(t, "OK", h.attrs["code"])
}

func TestUnaryLoggingInterceptor_GeneratesUUID_And_LogsErrorCode(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	info := &grpc.UnaryServerInfo{FullMethod: "/sentiment.Admin/Foo"}

	_, err := UnaryLoggingInterceptor(slog.New(h))(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.InvalidArgument, "bad input")
	})
	require.Error(t, err)
	require.Equal(t, "InvalidArgument", h.attrs["code"])

	rid, _ := h.attrs["request_id"].(string)
	_, parseErr := uuid.Parse(rid)
	require.NoError(t, parseErr)
	require.Equal(t, "-", h.attrs["peer"])
}

func TestUnaryLoggingInterceptor_HealthCheckIsDebug(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, err := UnaryLoggingInterceptor(slog.New(h))(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, h.lastLvl)
}

func TestRecover_ConvertsPanicToInternal(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	info := &grpc.UnaryServerInfo{FullMethod: "/sentiment.Admin/Boom"}

	resp, err := Recover(slog.New(h))(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		panic("boom")
	})
	require.Nil(t, resp)
	require.Equal(t, codes.Internal, status.Code(err))
	require.Equal(t, "panic_recovered", h.lastMsg)
	require.Equal(t, slog.LevelError, h.lastLvl)
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()

	info := &grpc.UnaryServerInfo{FullMethod: "/x"}

	t.Run("adds deadline", func(t *testing.T) {
		_, err := WithTimeout(50*time.Millisecond)(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
			_, ok := ctx.Deadline()
			require.True(t, ok)
			return nil, nil
		})
		require.NoError(t, err)
	})

	t.Run("keeps existing deadline", func(t *testing.T) {
		parent, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		want, _ := parent.Deadline()

		_, err := WithTimeout(time.Millisecond)(parent, nil, info, func(ctx context.Context, req any) (any, error) {
			got, ok := ctx.Deadline()
			require.True(t, ok)
			require.Equal(t, want, got)
			return nil, nil
		})
		require.NoError(t, err)
	})

	t.Run("zero is noop", func(t *testing.T) {
		_, err := WithTimeout(0)(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
			_, ok := ctx.Deadline()
			require.False(t, ok)
			return nil, nil
		})
		require.NoError(t, err)
	})
}
