// Command server runs the alert relay: the Telegram registration bot and
// the HTTP alert ingestion API in one process.
//
// Bootstrap order: env → config → logging → tracing → database → ENS
// resolver → Telegram transport → router. Shutdown drains HTTP first, then
// stops the polling transport, then flushes traces.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-alert-relay/internal/bot"
	"github.com/tbourn/go-alert-relay/internal/config"
	"github.com/tbourn/go-alert-relay/internal/eth"
	httpapi "github.com/tbourn/go-alert-relay/internal/http"
	"github.com/tbourn/go-alert-relay/internal/observability"
	"github.com/tbourn/go-alert-relay/internal/repo"
	"github.com/tbourn/go-alert-relay/internal/sysutil"
)

// version is stamped by the build (-ldflags "-X main.version=…").
var version = "dev"

func main() {
	// .env is a dev convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		sysutil.UsePrettyConsole()
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			log.Warn().Err(err).Msg("gorm tracing disabled")
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	var resolver eth.Resolver
	if cfg.Ethereum.RPCURL != "" {
		r, err := eth.NewENSResolver(cfg.Ethereum.RPCURL, cfg.Ethereum.ResolveTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("ens resolver")
		}
		resolver = r
	} else {
		// Address-only deployments are allowed; ENS names just won't resolve.
		log.Warn().Msg("ETH_RPC_URL not set; ENS names will not resolve")
		resolver = eth.ResolverFunc(func(context.Context, string) (string, error) {
			return "", eth.ErrResolutionFailed
		})
	}

	var tg *bot.Client
	if cfg.Telegram.BotToken != "" {
		tg, err = bot.NewClient(cfg.Telegram.BotToken)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram client")
		}
		log.Info().Str("bot", tg.Username()).Str("mode", cfg.Telegram.Mode).Msg("telegram ready")
	} else {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set; alerts cannot be delivered")
	}

	r := gin.New()
	dispatcher := httpapi.RegisterRoutes(r, db, resolver, tg, cfg)

	// In webhook mode the webhook URL is registered out-of-band (TLS and
	// public exposure are the proxy's concern); we only serve the intake
	// route. Polling needs no public URL at all.
	if tg != nil && cfg.Telegram.Mode == "polling" {
		go tg.Run(ctx, dispatcher)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
