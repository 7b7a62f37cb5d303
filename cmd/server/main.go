package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"clinic-scheduler/internal/appointment"
	"clinic-scheduler/internal/blob"
	"clinic-scheduler/internal/config"
	gweb "clinic-scheduler/internal/grpcweb"
	"clinic-scheduler/internal/handler"
	"clinic-scheduler/internal/jobs"
	"clinic-scheduler/internal/live"
	"clinic-scheduler/internal/middleware"
	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/notification"
	"clinic-scheduler/internal/stats"
	"clinic-scheduler/internal/store"
	"clinic-scheduler/internal/user"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBlobStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("blob store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeBackend()

	st := store.New(backend, log.Named("store"),
		store.WithNamespace(cfg.StoreNamespace),
		store.WithTimeout(cfg.StoreTimeout))

	transitions := model.StrictTransitions
	if cfg.AllowTerminalTransitions {
		transitions = model.LenientTransitions
	}

	hub := live.NewHub(cfg.JWTSecret, cfg.AllowedOrigins, log.Named("live"))
	users := user.NewDirectory(st, log.Named("users"))
	engine := notification.New(st, log.Named("notifications"), notification.WithPublisher(hub))
	repo := appointment.New(st, engine, log.Named("appointments"), appointment.Config{
		WindowMonths:        cfg.BookingWindowMonths,
		Location:            cfg.Location,
		Transitions:         transitions,
		RejectDoubleBooking: cfg.RejectDoubleBooking,
	})
	agg := stats.NewAggregator(st, log.Named("stats"))
	h := handler.New(repo, engine, agg, users, cfg.JWTSecret, log.Named("handler"))

	// grpc server
	rl := middleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst,
		handler.FullMethod("Register"), handler.FullMethod("Login"))
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.RequestLog(log.Named("rpc")),
			middleware.RateLimit(rl),
			middleware.Auth(cfg.JWTSecret),
		),
	)
	handler.RegisterClinicServer(srv, h)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal("listen", zap.Error(err))
	}
	go func() {
		log.Info("grpc listening", zap.String("port", cfg.GRPCPort))
		if err := srv.Serve(lis); err != nil {
			log.Error("grpc serve", zap.Error(err))
		}
	}()

	// grpc-web bridge -> forwards browser requests to grpc on localhost
	bridge, err := gweb.New("localhost:"+cfg.GRPCPort, log.Named("grpcweb"))
	if err != nil {
		log.Fatal("bridge", zap.Error(err))
	}
	defer bridge.Close()

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Grpc-Web", "X-User-Agent", "X-Request-Id"},
		ExposedHeaders:   []string{"Grpc-Status", "Grpc-Message", "Grpc-Status-Details-Bin"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/ws", hub)
	r.Handle("/"+handler.ServiceName+"/*", bridge.Handler())

	httpSrv := &http.Server{
		Addr:              ":" + cfg.WebPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http listening", zap.String("port", cfg.WebPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http serve", zap.Error(err))
		}
	}()

	reminder := jobs.NewReminder(repo, engine, log.Named("reminder"), cfg.Location, cfg.ReminderInterval)
	go reminder.Run(ctx)

	// graceful shutdown
	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	srv.GracefulStop()
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	if err := zcfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return zcfg.Build()
}

// openBlobStore connects the configured backend. The returned func releases
// it.
func openBlobStore(ctx context.Context, cfg config.Config, log *zap.Logger) (blob.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverRedis:
		r, err := blob.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		return r, func() { r.Close() }, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		log.Info("connected to postgres")

		// run migrations
		if migration, err := os.ReadFile("db/migrations/001_init.sql"); err != nil {
			log.Warn("migration file not found, skipping", zap.Error(err))
		} else if _, err := pool.Exec(ctx, string(migration)); err != nil {
			log.Warn("migration failed", zap.Error(err))
		} else {
			log.Info("migration applied")
		}
		return blob.NewPostgres(pool), pool.Close, nil
	}

	log.Warn("using in-memory store, data is lost on exit")
	return blob.NewMemory(), func() {}, nil
}
