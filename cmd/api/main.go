package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"glowstudio/internal/bootstrap"
	"glowstudio/internal/http/handlers"
	httpapi "glowstudio/internal/http/httpapi"
	"glowstudio/internal/infra"
	"glowstudio/internal/middleware"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build components")
	}
	defer components.Close()

	go components.Sessions.Run(ctx, cfg.SessionSweep)

	var country middleware.CountryLookup
	if components.Geo != nil {
		country = components.Geo.Lookup
	}
	app := &handlers.App{
		Config:   cfg,
		Logger:   logger,
		Sessions: components.Sessions,
		Filters:  components.Filters,
		Enhancer: components.Enhancer,
		History:  components.History,
		Store:    components.Store,
		Country:  country,
	}

	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app), logger)
	logger.Info().Str("env", cfg.AppEnv).Msgf("API listening on %s", server.Addr())
	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("server stopped")
}
