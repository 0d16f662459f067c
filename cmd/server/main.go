package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/srishtiii28/alphascan/internal/aggregator"
	"github.com/srishtiii28/alphascan/internal/api"
	"github.com/srishtiii28/alphascan/internal/api/handler"
	"github.com/srishtiii28/alphascan/internal/config"
	"github.com/srishtiii28/alphascan/internal/domain"
	"github.com/srishtiii28/alphascan/internal/ledger"
	"github.com/srishtiii28/alphascan/internal/llm"
	"github.com/srishtiii28/alphascan/internal/llm/gemini"
	"github.com/srishtiii28/alphascan/internal/llm/groq"
	"github.com/srishtiii28/alphascan/internal/market"
	"github.com/srishtiii28/alphascan/internal/pipeline"
	repomongo "github.com/srishtiii28/alphascan/internal/repository/mongo"
	repopostgres "github.com/srishtiii28/alphascan/internal/repository/postgres"
	"github.com/srishtiii28/alphascan/internal/repository/redis"
	"github.com/srishtiii28/alphascan/internal/security"
	"github.com/srishtiii28/alphascan/internal/service"
	"github.com/srishtiii28/alphascan/internal/session"
	"github.com/srishtiii28/alphascan/internal/transport"
	transportmemory "github.com/srishtiii28/alphascan/internal/transport/memory"
	"github.com/srishtiii28/alphascan/internal/watcher"
	"go.mongodb.org/mongo-driver/mongo"
)

// stores bundles one backend's repository set.
type stores struct {
	users  domain.UserRepository
	watch  domain.WatchRepository
	audit  domain.AuditRepository
	tokens domain.TokenHistoryRepository
	ping   handler.Pinger
	close  func()
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogger(cfg.Logging)

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("store", cfg.Store.Backend).
		Msg("starting alphascan")

	ctx := context.Background()

	// Durable stores
	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.close()

	// Redis (rate limiting)
	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.Auth.RateLimit.RequestsPerMinute,
		cfg.Auth.RateLimit.Burst,
	)

	// Security
	encryptor, err := security.NewEncryptorFromSecret(cfg.Auth.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize encryptor")
	}
	jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// LLM providers
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)
	if cfg.LLM.Groq.APIKey != "" {
		llmRouter.RegisterProvider(groq.NewProvider(cfg.LLM.Groq.APIKey, cfg.LLM.Groq.Model))
	}
	if cfg.LLM.Gemini.APIKey != "" {
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini))
	} else if cfg.LLM.Groq.APIKey == "" {
		log.Warn().Msg("no LLM provider configured, pipeline runs will fail at extraction")
	}
	llmClient := llm.NewClient(llmRouter, cfg.LLM.MaxRetries)

	// Chat transport. The MTProto binding is injected here; the memory
	// transport keeps local development self-contained.
	var chatClient transport.Client = transportmemory.NewClient(cfg.Telegram.APIID, cfg.Telegram.APIHash)
	log.Warn().Msg("using in-process chat transport")

	// Core
	sessions := session.NewManager(chatClient, st.users, encryptor)
	ledgerSvc := ledger.NewPaperLedger()
	marketProvider := market.NewSyntheticProvider(rand.NewSource(time.Now().UnixNano()))

	pipe := pipeline.New(llmClient, ledgerSvc, marketProvider, st.audit, st.tokens, pipeline.Config{
		BuyFraction:  cfg.Trading.BuyFraction,
		MinPnL:       cfg.Trading.MinPnL,
		BaseCurrency: cfg.Trading.BaseCurrency,
	})
	agg := aggregator.New(pipe)
	supervisor := watcher.New(sessions, st.watch, agg, cfg.Watcher.ReplaceGrace, cfg.Watcher.ShutdownGrace)

	// Restore watchers for stored watch entries before serving traffic.
	if err := supervisor.Rehydrate(ctx); err != nil {
		log.Error().Err(err).Msg("rehydration failed, continuing with empty registry")
	}

	// Services and HTTP surface
	authService := service.NewAuthService(st.users, chatClient, encryptor, jwtManager, supervisor)
	watchService := service.NewWatchService(sessions, st.watch, supervisor)

	router := api.NewRouter(api.Deps{
		Config:      cfg,
		JWTManager:  jwtManager,
		AuthService: authService,
		WatchSvc:    watchService,
		Aggregator:  agg,
		Supervisor:  supervisor,
		Audit:       st.audit,
		Tokens:      st.tokens,
		Ledger:      ledgerSvc,
		Store:       st.ping,
		RateLimiter: rateLimiter,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Msgf("server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Stop taking messages, then drop every chat session.
	supervisor.Shutdown()

	log.Info().Msg("stopped")
}

func setupLogger(cfg config.LoggingConfig) {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	if cfg.File != "" {
		rotated, err := rotatelogs.New(
			cfg.File+".%Y%m%d",
			rotatelogs.WithLinkName(cfg.File),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithMaxAge(cfg.MaxAge),
		)
		if err != nil {
			log.Error().Err(err).Str("file", cfg.File).Msg("failed to open log file, logging to stderr only")
		} else {
			out = zerolog.MultiLevelWriter(out, rotated)
		}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Store.Backend {
	case "postgres":
		db, err := repopostgres.NewDB(ctx, cfg.Store.Postgres)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:  repopostgres.NewUserRepository(db.Pool),
			watch:  repopostgres.NewWatchRepository(db.Pool),
			audit:  repopostgres.NewAuditRepository(db.Pool),
			tokens: repopostgres.NewTokenHistoryRepository(db.Pool),
			ping:   db,
			close:  db.Close,
		}, nil

	case "mongo":
		db, err := repomongo.Connect(ctx, cfg.Store.Mongo.URI, cfg.Store.Mongo.Database)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:  repomongo.NewUserRepository(db),
			watch:  repomongo.NewWatchRepository(db),
			audit:  repomongo.NewAuditRepository(db),
			tokens: repomongo.NewTokenHistoryRepository(db),
			ping:   mongoPinger{db},
			close: func() {
				if err := repomongo.Close(context.Background(), db); err != nil {
					log.Error().Err(err).Msg("failed to disconnect mongo")
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

type mongoPinger struct {
	db *mongo.Database
}

func (p mongoPinger) Ping(ctx context.Context) error {
	return p.db.Client().Ping(ctx, nil)
}
