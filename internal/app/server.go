// Package server hosts the quizroom coordinator runtime: the sqlite-backed
// game service, a websocket gateway that fans session events out to
// subscribed clients, and a gRPC endpoint exposing health checks.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/websocket"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/quizroom/internal/platform/config"
	"github.com/louisbranch/quizroom/internal/platform/timeouts"
	"github.com/louisbranch/quizroom/internal/quiz/invite"
	"github.com/louisbranch/quizroom/internal/quiz/service"
	"github.com/louisbranch/quizroom/internal/quiz/storage"
	storagesqlite "github.com/louisbranch/quizroom/internal/quiz/storage/sqlite"
)

// Config holds server configuration.
type Config struct {
	HTTPPort int    `env:"QUIZROOM_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"QUIZROOM_GRPC_PORT" envDefault:"8081"`
	DBPath   string `env:"QUIZROOM_DB_PATH"`
}

// ParseConfig loads server configuration from the environment.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Server hosts the quizroom coordinator.
type Server struct {
	httpListener net.Listener
	grpcListener net.Listener
	httpServer   *http.Server
	grpcServer   *grpc.Server
	health       *health.Server
	store        *storagesqlite.Store
	service      *service.Service
	hub          *eventHub
}

// New creates a configured server listening on the ports in cfg.
func New(cfg Config) (*Server, error) {
	httpListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HTTPPort))
	if err != nil {
		return nil, fmt.Errorf("listen on http port %d: %w", cfg.HTTPPort, err)
	}
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = httpListener.Close()
		return nil, fmt.Errorf("listen on grpc port %d: %w", cfg.GRPCPort, err)
	}

	store, err := openGameStore(cfg.DBPath)
	if err != nil {
		_ = httpListener.Close()
		_ = grpcListener.Close()
		return nil, err
	}

	hub := newEventHub(time.Now)
	opts := []service.Option{}
	grants, err := invite.LoadJoinGrantConfigFromEnv(time.Now)
	if err != nil {
		_ = httpListener.Close()
		_ = grpcListener.Close()
		_ = store.Close()
		return nil, err
	}
	if grants.Enabled() {
		opts = append(opts, service.WithJoinGrants(grants))
	}
	svc := service.New(storage.Stores{
		Games:     store,
		Players:   store,
		Questions: store,
		Answers:   store,
	}, hub, opts...)

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, hub, svc)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return &Server{
		httpListener: httpListener,
		grpcListener: grpcListener,
		httpServer: &http.Server{
			Handler:           requestLog(mux),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
		service:    svc,
		hub:        hub,
	}, nil
}

// Service exposes the coordinator surface, mainly for embedding and tests.
func (s *Server) Service() *service.Service {
	return s.service
}

// HTTPAddr returns the http listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the grpc listener address.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Run creates and serves a server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	srv, err := New(cfg)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// Serve starts the server and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStores()

	log.Printf("quizroom http listening at %v", s.httpListener.Addr())
	log.Printf("quizroom grpc listening at %v", s.grpcListener.Addr())

	serveErr := make(chan error, 2)
	go func() {
		err := s.httpServer.Serve(s.httpListener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()
	go func() {
		err := s.grpcServer.Serve(s.grpcListener)
		if errors.Is(err, grpc.ErrServerStopped) {
			err = nil
		}
		serveErr <- err
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
		err := <-serveErr
		<-serveErr
		return err
	case err := <-serveErr:
		return err
	}
}

func (s *Server) closeStores() {
	if s == nil {
		return
	}
	if s.service != nil {
		s.service.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close game store: %v", err)
		}
	}
}

func openGameStore(path string) (*storagesqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join("data", "quizroom.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := storagesqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, nil
}

// requestLog logs each http request with its outcome and, when a span is
// recording, the trace ID for correlation.
func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		traceID := ""
		if sc := trace.SpanFromContext(r.Context()).SpanContext(); sc.IsValid() {
			traceID = sc.TraceID().String()
		}
		log.Printf("http method=%s path=%s status=%d duration=%s trace_id=%s",
			r.Method, r.URL.Path, recorder.status, time.Since(start), traceID)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack forwards to the wrapped writer so the websocket upgrade still
// works behind the logging middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hijacker.Hijack()
}
