package container

import (
	"context"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"

	"github.com/shortbox/shortbox/internal/handlers"
	"github.com/shortbox/shortbox/internal/logbuf"
	"github.com/shortbox/shortbox/internal/messaging"
	"github.com/shortbox/shortbox/internal/metrics"
	"github.com/shortbox/shortbox/internal/middleware"
	"github.com/shortbox/shortbox/internal/ratelimit"
	"github.com/shortbox/shortbox/internal/registry"
	"github.com/shortbox/shortbox/internal/store"
)

// Options configures the server binary. Fields are settable as flags or
// SERVICE_* environment variables through humacli.
type Options struct {
	Port              int    `default:"8888"           help:"Port to listen on"                                          short:"p"`
	BaseURL           string `default:""               help:"Public base URL for short links, empty derives from port"`
	Storage           string `default:"sqlite"         help:"Storage backend: memory, sqlite, redis, or postgres"        short:"s"`
	DBPath            string `default:"shortbox.db"    help:"SQLite database file path"`
	RedisAddr         string `default:"localhost:6379" help:"Redis server address"                                       short:"r"`
	PostgresURL       string `default:""               help:"Postgres connection string"`
	Collector         string `default:""               help:"Log collector endpoint, empty disables delivery"            short:"c"`
	PrimaryLogCap     int    `default:"1000"           help:"Primary log buffer capacity"`
	SecondaryLogCap   int    `default:"50"             help:"Secondary log buffer capacity"`
	RateLimit         int    `default:"100"            help:"Requests allowed per client per rate window"`
	RateWindowSeconds int    `default:"60"             help:"Rate limit window in seconds"`
	LogFormat         string `default:"console"        help:"Log format: console or json"`
}

// Slots share the store.Slot interface, so they are registered under
// explicit service names.
const (
	RecordSlotName = "slot.records"
	MirrorSlotName = "slot.mirror"
)

// brokerBuffer sizes the in-process pubsub channel between the log buffer
// and the relay.
const brokerBuffer = 256

// LoggerPackage provides the process logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		options := do.MustInvoke[*Options](i)

		if options.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// StoragePackage provides the record slot and the log-mirror slot for the
// configured backend. The Redis client and Postgres pool are lazy: they are
// only dialed when the matching backend is selected.
func StoragePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		options := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{
			Addr: options.RedisAddr,
		}), nil
	})

	do.Provide(injector, func(i *do.Injector) (*pgxpool.Pool, error) {
		options := do.MustInvoke[*Options](i)

		return pgxpool.New(context.Background(), options.PostgresURL)
	})

	do.ProvideNamed(injector, RecordSlotName, slotProvider("records"))
	do.ProvideNamed(injector, MirrorSlotName, slotProvider("logs"))
}

func slotProvider(name string) func(*do.Injector) (store.Slot, error) {
	return func(i *do.Injector) (store.Slot, error) {
		options := do.MustInvoke[*Options](i)

		switch options.Storage {
		case "memory":
			return store.NewMemorySlot(), nil
		case "sqlite":
			return store.NewSQLiteSlot(context.Background(), options.DBPath, name)
		case "redis":
			client := do.MustInvoke[*redis.Client](i)

			return store.NewRedisSlot(client, name), nil
		case "postgres":
			pool := do.MustInvoke[*pgxpool.Pool](i)

			return store.NewPostgresSlot(context.Background(), pool, name)
		default:
			return nil, fmt.Errorf("unknown storage backend %q", options.Storage)
		}
	}
}

// RegistryPackage provides the shortened-URL registry over the record slot.
func RegistryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*registry.Registry, error) {
		slot := do.MustInvokeNamed[store.Slot](i, RecordSlotName)
		logger := do.MustInvoke[*zap.Logger](i)

		return registry.New(context.Background(), registry.Config{
			Store:  store.NewRecordStore(slot),
			Logger: logger,
		})
	})
}

// MetricsPackage provides the Prometheus counters and their handler.
func MetricsPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*metrics.Metrics, error) {
		return metrics.New(), nil
	})
}

// LogBufferPackage provides the broker, the application log buffer, and the
// relay that ships entries to the collector.
func LogBufferPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.Broker, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		return messaging.NewBroker(brokerBuffer, logger), nil
	})

	do.Provide(injector, func(i *do.Injector) (*logbuf.Buffer, error) {
		options := do.MustInvoke[*Options](i)
		broker := do.MustInvoke[*messaging.Broker](i)
		mirror := do.MustInvokeNamed[store.Slot](i, MirrorSlotName)
		logger := do.MustInvoke[*zap.Logger](i)

		return logbuf.New(logbuf.Config{
			PrimaryMax:   options.PrimaryLogCap,
			SecondaryMax: options.SecondaryLogCap,
			Mirror:       mirror,
			Publish:      messaging.NewPublishFunc[logbuf.Entry](broker.Publisher(), logbuf.TopicEntry),
			Logger:       logger,
		}), nil
	})

	do.Provide(injector, func(i *do.Injector) (*logbuf.Relay, error) {
		options := do.MustInvoke[*Options](i)
		broker := do.MustInvoke[*messaging.Broker](i)
		buffer := do.MustInvoke[*logbuf.Buffer](i)
		meters := do.MustInvoke[*metrics.Metrics](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return logbuf.NewRelay(logbuf.RelayConfig{
			Subscriber: broker.Subscriber(),
			Endpoint:   options.Collector,
			Sink:       buffer,
			OnDelivery: meters.Delivery,
			Logger:     logger,
		}), nil
	})
}

// RateLimitPackage provides the sliding-window limiter for the API.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (ratelimit.Limiter, error) {
		options := do.MustInvoke[*Options](i)

		window := time.Duration(options.RateWindowSeconds) * time.Second

		return ratelimit.NewSlidingWindowLimiter(
			store.NewRateLimitMemoryStore(), int64(options.RateLimit), window,
		), nil
	})
}

// HTTPPackage provides the router and the fully wired API. Invoking the
// API registers every route, the middlewares, and the metrics endpoint.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		options := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		reg := do.MustInvoke[*registry.Registry](i)
		buffer := do.MustInvoke[*logbuf.Buffer](i)
		meters := do.MustInvoke[*metrics.Metrics](i)
		limiter := do.MustInvoke[ratelimit.Limiter](i)

		api := humachi.New(router, huma.DefaultConfig("Shortbox", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api))
		api.UseMiddleware(middleware.RateLimiter(api, limiter))

		baseURL := options.BaseURL
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost:%d", options.Port)
		}

		urlHandler := handlers.NewURLHandler(reg, buffer, meters, baseURL)
		logsHandler := handlers.NewLogsHandler(buffer)

		var checker handlers.HealthChecker
		if pinger, ok := do.MustInvokeNamed[store.Slot](i, RecordSlotName).(store.Pinger); ok {
			checker = pinger
		}

		handlers.RegisterRoutes(api, urlHandler, logsHandler, handlers.NewHealthHandler(checker))

		router.Handle("/metrics", meters.Handler())

		return api, nil
	})
}
