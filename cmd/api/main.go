package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"address-risk-api/internal/client"
	"address-risk-api/internal/config"
	"address-risk-api/internal/handler"
	"address-risk-api/internal/metrics"
	"address-risk-api/internal/repository"
	"address-risk-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

//	@title			Address Risk API
//	@version		1.0
//	@description	Resolves French addresses through the BAN and relays their Géorisques risk report.
//	@BasePath		/
func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	if err := config.SetupLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("cannot set up logger")
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := repository.MigrateUp(cfg.DBSource, cfg.MigrationsURL); err != nil {
			log.Fatal().Err(err).Msg("cannot run migrations")
		}
		log.Info().Str("source", cfg.MigrationsURL).Msg("migrations applied")
	}

	// Database connection
	conn, err := pgxpool.New(ctx, cfg.DBSource)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot connect to db")
	}
	defer conn.Close()

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot register metrics")
	}

	// Initialize layers
	repo := repository.NewRepository(conn)

	geocoder := client.NewBANClient(cfg.GeocoderBaseURL, cfg.GeocoderTimeout, client.WithObserver(collector))
	risks := client.NewGeorisquesClient(cfg.RiskBaseURL, cfg.RiskTimeout, client.WithObserver(collector))

	addressService := service.NewAddressService(geocoder, repo)
	riskService := service.NewRiskService(repo, risks)

	r := handler.NewRouter(handler.RouterConfig{
		Addresses:  handler.NewAddressHandler(addressService),
		Risks:      handler.NewRiskHandler(riskService),
		DB:         repo,
		Middleware: []gin.HandlerFunc{collector.Middleware()},
		Metrics:    collector.Handler(),
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: r,
	}

	go func() {
		log.Info().Str("address", cfg.ServerAddress).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
