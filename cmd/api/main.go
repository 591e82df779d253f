package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"caricagen/internal/generate"
	"caricagen/internal/http/handlers"
	httpapi "caricagen/internal/http/httpapi"
	"caricagen/internal/imageproc"
	"caricagen/internal/infra"
	"caricagen/internal/infra/geoip"
	"caricagen/internal/prompt"
	provider "caricagen/internal/providers/image"
	"caricagen/internal/wizard"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}

	var sinks []io.Writer
	logFile := infra.NewRotatingFile(infra.LogFileOptions{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if logFile != nil {
		defer logFile.Close()
		sinks = append(sinks, logFile)
	}
	logger := infra.NewLogger(cfg.AppEnv, sinks...)

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	var countryLookup func(string) (string, error)
	if resolver != nil {
		defer resolver.Close()
		countryLookup = geoip.Lookup(geoip.NewCached(resolver, 0))
	}

	templates, err := prompt.LoadTemplates(cfg.StyleTemplatesPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load style templates")
	}

	transformer, err := provider.NewFromConfig(provider.Deps{Config: cfg, Logger: &logger})
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.ImageProvider).Msg("failed to configure image provider")
	}

	svc := generate.NewService(generate.Options{
		Transformer: transformer,
		Templates:   templates,
		Logger:      &logger,
	})
	crop := imageproc.CropOptions{Base: cfg.CropBaseSize, Multiple: cfg.CropMultiple}
	engine := wizard.NewEngine(wizard.EngineOptions{Generator: svc, Crop: crop, Logger: &logger})

	app := &handlers.App{
		Config:    cfg,
		Logger:    logger,
		Generator: svc,
		Sessions:  wizard.NewStore(engine, cfg.SessionTTL),
		Templates: templates,
		Crop:      crop,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   countryLookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("provider", provider.NameOf(transformer)).
			Str("fallback", cfg.FallbackProvider).
			Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
