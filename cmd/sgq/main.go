// sgq est le CLI du moteur de requêtes : il câble la config vers un backend,
// exécute UNE opération et imprime le résultat en JSON. C'est un outil de
// debug/ops, pas une surface d'API (le moteur s'invoque in-process).
//
// Usage :
//
//	sgq feed <viewerID> <limit> <offset>
//	sgq counts <userID>
//	sgq mutuals <userIDA> <userIDB> <relType>
//	sgq recommend <viewerID> <relType> <maxResults>
//	sgq listen            (consumer d'invalidation NATS, bloquant)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	// Drivers
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	// Instrumentation
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	// Interne
	"github.com/jupiterclapton/socialgraph/config"
	"github.com/jupiterclapton/socialgraph/internal/adapters/primary/events"
	"github.com/jupiterclapton/socialgraph/internal/adapters/secondary/cache"
	"github.com/jupiterclapton/socialgraph/internal/adapters/secondary/repository"
	"github.com/jupiterclapton/socialgraph/internal/core/ports"
	"github.com/jupiterclapton/socialgraph/internal/core/services"
)

func main() {
	cfg := config.Load()
	initLogger(cfg)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Télémétrie (optionnelle : endpoint vide => pas d'export)
	if cfg.OtelEndpoint != "" {
		tp, err := initTracer(ctx, cfg)
		if err != nil {
			slog.Error("Failed to init tracer", "error", err)
		} else {
			defer func() { _ = tp.Shutdown(context.Background()) }()
		}
	}

	repo, err := buildRepository(ctx, cfg)
	if err != nil {
		slog.Error("❌ Backend connection failed", "driver", cfg.Driver, "error", err)
		os.Exit(1)
	}
	defer func() { _ = repo.Close(context.Background()) }()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("❌ Backend unreachable", "driver", cfg.Driver, "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Connected to backend", "driver", cfg.Driver)

	feedCache := buildCache(ctx, cfg)
	engine := services.NewQueryEngine(repo, feedCache, cfg.MaxPageSize, cfg.DefaultTimeout)

	if os.Args[1] == "listen" {
		runListener(ctx, cfg, repo, feedCache)
		return
	}

	result, err := runQuery(ctx, engine, os.Args[1:])
	if err != nil {
		slog.Error("Query failed", "op", os.Args[1], "error", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func runQuery(ctx context.Context, engine ports.QueryEngine, args []string) (any, error) {
	switch args[0] {
	case "feed":
		if len(args) != 4 {
			usage()
			os.Exit(2)
		}
		limit, offset := mustInt(args[2]), mustInt(args[3])
		return engine.GetFeed(ctx, args[1], limit, offset)
	case "counts":
		if len(args) != 2 {
			usage()
			os.Exit(2)
		}
		return engine.GetPostsWithCommentCounts(ctx, args[1])
	case "mutuals":
		if len(args) != 4 {
			usage()
			os.Exit(2)
		}
		return engine.GetMutualConnections(ctx, args[1], args[2], args[3])
	case "recommend":
		if len(args) != 4 {
			usage()
			os.Exit(2)
		}
		return engine.GetRecommendations(ctx, args[1], args[2], mustInt(args[3]))
	default:
		usage()
		os.Exit(2)
		return nil, nil
	}
}

func buildRepository(ctx context.Context, cfg config.Config) (ports.SocialRepository, error) {
	switch cfg.Driver {
	case "postgres":
		poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		poolCfg.MaxConns = int32(cfg.PoolSize)
		poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresRepo(pool), nil

	case "mongo":
		opts := mongooptions.Client().
			ApplyURI(cfg.MongoURI).
			SetMaxPoolSize(uint64(cfg.PoolSize)).
			SetTimeout(cfg.DefaultTimeout)
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, err
		}
		return repository.NewMongoRepo(client, cfg.MongoDatabase), nil

	case "neo4j":
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return nil, err
		}
		return repository.NewNeo4jRepo(driver), nil

	case "memory":
		return seedDemo(), nil

	default:
		return nil, fmt.Errorf("unknown driver %q (postgres|mongo|neo4j|memory)", cfg.Driver)
	}
}

func buildCache(ctx context.Context, cfg config.Config) ports.FeedCache {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		slog.Warn("Redis tracing instrumentation failed", "error", err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Le cache est un confort : on continue sans plutôt que d'échouer
		slog.Warn("⚠️ Redis unreachable, running without feed cache", "error", err)
		return nil
	}
	slog.Info("✅ Connected to Redis")
	return cache.NewRedisFeedCache(rdb, cfg.FeedCacheTTL)
}

// runListener branche le consumer NATS d'invalidation et bloque jusqu'au signal.
func runListener(ctx context.Context, cfg config.Config, repo ports.SocialRepository, feedCache ports.FeedCache) {
	if cfg.NatsURL == "" || feedCache == nil {
		slog.Error("listen requires NATS_URL and REDIS_ADDR to be set")
		os.Exit(1)
	}

	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		slog.Error("❌ Unable to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	slog.Info("✅ Connected to NATS")

	handler := events.NewInvalidationHandler(repo, feedCache)
	if err := handler.Subscribe(nc); err != nil {
		slog.Error("❌ Failed to subscribe", "error", err)
		os.Exit(1)
	}
	slog.Info("👂 Listening for write-path events")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("🛑 Shutting down listener")
}

// --- Helpers ---

func initLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Env == "local" {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Env == "local" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func initTracer(ctx context.Context, cfg config.Config) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, _ := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("socialgraph-query-engine"),
			semconv.DeploymentEnvironmentKey.String(cfg.Env),
		),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp, nil
}

func mustInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		slog.Error("Expected an integer", "got", s)
		os.Exit(2)
	}
	return n
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  sgq feed <viewerID> <limit> <offset>
  sgq counts <userID>
  sgq mutuals <userIDA> <userIDB> <relType>
  sgq recommend <viewerID> <relType> <maxResults>
  sgq listen`)
}
