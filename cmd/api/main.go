package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/generation"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/providers/kling"
	"server/internal/providers/prompts"
	"server/internal/providers/webhook"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	httpClient := &http.Client{Timeout: 60 * time.Second}
	transport := webhook.NewFallbackTransport(httpClient, logger)

	baseURL := "http://localhost:" + cfg.Port
	promptGateway := webhook.NewGateway(webhook.FeatureConfig{
		Name:            "prompt",
		Endpoint:        cfg.PromptWebhookURL,
		ProxyURL:        baseURL + cfg.ProxyBasePath + "/prompt",
		ExpectArtifacts: true,
	}, transport, logger)

	// The analysis workflow labels its text "analysis" rather than the
	// default "analysis_text".
	analysisStrategy := prompts.DefaultStrategy()
	analysisStrategy.AnalysisField = "analysis"
	analysisGateway := webhook.NewGateway(webhook.FeatureConfig{
		Name:            "analysis",
		Endpoint:        cfg.AnalysisWebhookURL,
		ProxyURL:        baseURL + cfg.ProxyBasePath + "/analysis",
		ExpectArtifacts: true,
		Strategy:        analysisStrategy,
	}, transport, logger)

	klingClient, err := kling.NewClient(kling.Options{
		APIKey:        cfg.KlingAPIKey,
		BaseURL:       cfg.KlingBaseURL,
		HTTPClient:    httpClient,
		Logger:        &logger,
		CreateTimeout: cfg.KlingCreateTimeout,
		StatusTimeout: cfg.KlingStatusTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure video provider client")
	}
	if !klingClient.HasCredentials() {
		logger.Warn().Msg("KLING_API_KEY missing, video generation will be rejected")
	}

	poller := generation.NewPoller(klingClient, cfg.PollInterval, logger)
	sessions := generation.NewManager(klingClient, poller, logger)

	app := &handlers.App{
		Logger:          logger,
		PromptGateway:   promptGateway,
		AnalysisGateway: analysisGateway,
		Sessions:        sessions,
		ProxyUpstreams: map[string]string{
			"prompt":   cfg.PromptWebhookURL,
			"analysis": cfg.AnalysisWebhookURL,
		},
		ProxyClient: httpClient,
	}

	router := httpapi.NewRouter(cfg, logger, app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

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
