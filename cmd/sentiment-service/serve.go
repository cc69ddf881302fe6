package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	apihttp "github.com/pribylovaa/go-news-sentiment/internal/http"
	"github.com/pribylovaa/go-news-sentiment/pkg/interceptors"
	logctx "github.com/pribylovaa/go-news-sentiment/pkg/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP API, gRPC health and periodic ingest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	log.Info("starting sentiment-service", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	a, err := newApp(rootCtx, cfg, prometheus.DefaultRegisterer)
	if err != nil {
		log.Error("app_init_failed", slog.String("err", err.Error()))
		return err
	}
	defer a.close()

	var ready atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := a.store.Ping(ctx); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/api/", apihttp.NewRouter(a.svc, apihttp.Options{
		Logger:   log,
		Timeout:  cfg.Timeouts.Service,
		Metrics:  a.metrics,
		BasePath: "/api",
	}))

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	httpLn, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		return err
	}
	log.Info("http_listen_start", slog.String("addr", httpAddr))

	grpcServer := grpc.NewServer(interceptors.Chain(log, cfg.Timeouts.Service))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	if cfg.Env == envLocal || cfg.Env == envDev {
		reflection.Register(grpcServer)
	}

	grpcAddr := cfg.GRPC.Addr()
	grpcLn, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Error("grpc_listen_failed", slog.String("addr", grpcAddr), slog.String("err", err.Error()))
		_ = httpLn.Close()
		return err
	}
	log.Info("grpc_listen_start", slog.String("addr", grpcAddr))

	g, gctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		if err := httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := grpcServer.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("grpc_serve_failed", slog.String("err", err.Error()))
			return err
		}
		return nil
	})

	g.Go(func() error {
		ingestCtx := logctx.Into(gctx, log.With(slog.String("component", "ingest")))
		if err := a.svc.StartIngest(ingestCtx); err != nil {
			// Без источников сервис остаётся read-only API.
			log.Warn("ingest_disabled", slog.String("err", err.Error()))
		}
		return nil
	})

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	ready.Store(true)
	log.Info("service_ready")

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown_requested")

		ready.Store(false)
		hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
		} else {
			log.Info("http_stopped")
		}

		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
			log.Info("grpc_stopped")
		case <-shutdownCtx.Done():
			log.Warn("grpc_force_stop")
			grpcServer.Stop()
		}

		return nil
	})

	err = g.Wait()
	log.Info("service_stopped")

	return err
}
