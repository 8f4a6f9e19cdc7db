package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/danielvegam/citaflow/libs/config"
	"github.com/danielvegam/citaflow/libs/db"
	"github.com/danielvegam/citaflow/libs/httpx"
	"github.com/danielvegam/citaflow/libs/kafkax"
	otelx "github.com/danielvegam/citaflow/libs/otel"
	"github.com/danielvegam/citaflow/libs/runtime"
	"github.com/danielvegam/citaflow/services/booking-service/internal/booking"
	"github.com/danielvegam/citaflow/services/booking-service/internal/consumer"
	"github.com/danielvegam/citaflow/services/booking-service/internal/directory"
	"github.com/danielvegam/citaflow/services/booking-service/internal/handlers"
	"github.com/danielvegam/citaflow/services/booking-service/internal/inbox"
	"github.com/danielvegam/citaflow/services/booking-service/internal/model"
	"github.com/danielvegam/citaflow/services/booking-service/internal/outbox"
	"github.com/danielvegam/citaflow/services/booking-service/internal/storage"
	"github.com/danielvegam/citaflow/services/booking-service/migrations"
)

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.OpenWithOptions(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	windowRepo := storage.NewWindowRepository(pool)
	catalogRepo := storage.NewCatalogRepository(pool)
	apptRepo := storage.NewAppointmentRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	directoryProvider, err := directory.NewProvider(config.String("DIRECTORY_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("directory provider init failed; customer checks use local replica only", "err", err)
		directoryProvider = nil
	}

	svc := booking.NewService(windowRepo, catalogRepo, apptRepo, outboxRepo, logger,
		booking.WithDirectory(directoryProvider),
	)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Seconds("OUTBOX_POLL_SECONDS", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	startCatalogConsumers(ctx, logger, pool, catalogRepo)

	bookingHandler := handlers.NewBookingHandler(svc, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/availability", bookingHandler.Availability)
	mux.HandleFunc("/api/v1/alternatives", bookingHandler.Alternatives)
	mux.HandleFunc("/api/v1/appointments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			bookingHandler.Create(w, r)
			return
		}
		bookingHandler.List(w, r)
	})
	mux.HandleFunc("/api/v1/appointments/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/api/v1/appointments/status", bookingHandler.Status)

	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var rateLimitMW httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer func() { _ = rdb.Close() }()
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, true)
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS")),
			AllowedHeaders: parseList(config.String("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id,X-Tenant-Id,Idempotency-Key")),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		rateLimitMW,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// startCatalogConsumers subscribes to catalog change topics and mirrors the
// payloads into the local replica tables the booking path reads from.
func startCatalogConsumers(ctx context.Context, logger *slog.Logger, pool *db.Pool, catalogRepo *storage.CatalogRepository) {
	brokers := config.String("KAFKA_BROKERS", "")
	if strings.TrimSpace(brokers) == "" {
		logger.Warn("kafka brokers not configured; catalog sync disabled")
		return
	}
	inboxRepo := inbox.NewRepository(pool)
	groupID := config.String("KAFKA_GROUP_ID", "booking-service")

	start := func(topic string, handler consumer.Handler) {
		c := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, handler)
		go c.Run(ctx)
	}

	start("catalog.service.upserted.v1", func(ctx context.Context, msg kafka.Message) error {
		var p struct {
			ServiceID       string `json:"service_id"`
			TenantID        string `json:"tenant_id"`
			Name            string `json:"name"`
			Active          bool   `json:"active"`
			DurationMinutes int    `json:"duration_minutes"`
			PriceCents      int64  `json:"price_cents"`
		}
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			logger.Error("invalid service event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		// A zero duration is a service without a base duration; only reject
		// negatives.
		if p.ServiceID == "" || p.TenantID == "" || p.DurationMinutes < 0 {
			logger.Error("missing required service event fields", "topic", msg.Topic)
			return nil
		}
		return catalogRepo.UpsertService(ctx, model.Service{
			ID:              p.ServiceID,
			TenantID:        p.TenantID,
			Name:            p.Name,
			Active:          p.Active,
			DurationMinutes: p.DurationMinutes,
			PriceCents:      p.PriceCents,
		})
	})

	start("catalog.variant.upserted.v1", func(ctx context.Context, msg kafka.Message) error {
		var p struct {
			VariantID       string `json:"variant_id"`
			ServiceID       string `json:"service_id"`
			Name            string `json:"name"`
			DurationMinutes int    `json:"duration_minutes"`
			PriceCents      int64  `json:"price_cents"`
		}
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			logger.Error("invalid variant event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if p.VariantID == "" || p.ServiceID == "" || p.DurationMinutes <= 0 {
			logger.Error("missing required variant event fields", "topic", msg.Topic)
			return nil
		}
		return catalogRepo.UpsertVariant(ctx, model.ServiceVariant{
			ID:              p.VariantID,
			ServiceID:       p.ServiceID,
			Name:            p.Name,
			DurationMinutes: p.DurationMinutes,
			PriceCents:      p.PriceCents,
		})
	})

	start("catalog.customer.upserted.v1", func(ctx context.Context, msg kafka.Message) error {
		var p struct {
			CustomerID string `json:"customer_id"`
			TenantID   string `json:"tenant_id"`
			Name       string `json:"name"`
			Phone      string `json:"phone"`
		}
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			logger.Error("invalid customer event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if p.CustomerID == "" || p.TenantID == "" {
			logger.Error("missing required customer event fields", "topic", msg.Topic)
			return nil
		}
		return catalogRepo.UpsertCustomer(ctx, model.Customer{
			ID:       p.CustomerID,
			TenantID: p.TenantID,
			Name:     p.Name,
			Phone:    p.Phone,
		})
	})

	start("catalog.window.upserted.v1", func(ctx context.Context, msg kafka.Message) error {
		var p struct {
			WindowID    string `json:"window_id"`
			TenantID    string `json:"tenant_id"`
			ServiceID   string `json:"service_id"`
			Weekday     *int   `json:"weekday"`
			Date        string `json:"date"`
			StartMinute int    `json:"start_minute"`
			EndMinute   int    `json:"end_minute"`
			Capacity    int    `json:"capacity"`
			Timezone    string `json:"timezone"`
		}
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			logger.Error("invalid window event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if p.WindowID == "" || p.TenantID == "" || p.ServiceID == "" {
			logger.Error("missing required window event fields", "topic", msg.Topic)
			return nil
		}
		w := model.AvailabilityWindow{
			ID:          p.WindowID,
			TenantID:    p.TenantID,
			ServiceID:   p.ServiceID,
			Weekday:     p.Weekday,
			StartMinute: p.StartMinute,
			EndMinute:   p.EndMinute,
			Capacity:    p.Capacity,
			Timezone:    p.Timezone,
		}
		if p.Date != "" {
			d, err := time.Parse("2006-01-02", p.Date)
			if err != nil {
				logger.Error("invalid window event date", "err", err, "topic", msg.Topic)
				return nil
			}
			w.Date = &d
		}
		if err := catalogRepo.UpsertWindow(ctx, w); err != nil {
			logger.Error("window upsert rejected", "err", err, "window_id", p.WindowID)
			return nil
		}
		return nil
	})

	start("catalog.window.deleted.v1", func(ctx context.Context, msg kafka.Message) error {
		var p struct {
			WindowID string `json:"window_id"`
			TenantID string `json:"tenant_id"`
		}
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			logger.Error("invalid window event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if p.WindowID == "" || p.TenantID == "" {
			logger.Error("missing required window event fields", "topic", msg.Topic)
			return nil
		}
		return catalogRepo.DeleteWindow(ctx, p.TenantID, p.WindowID)
	})
}
