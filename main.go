package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"diploma_generator/config"
	"diploma_generator/generator"
	"diploma_generator/logging"
	"diploma_generator/publisher"
	"diploma_generator/server"
)

func main() {
	configPath := flag.String("config", "config/config.json", "path to config.json")
	topic := flag.String("topic", "", "thesis topic")
	specialty := flag.String("specialty", "", "academic specialty")
	pages := flag.Int("pages", 60, "desired length in pages (10-200)")
	serve := flag.Bool("serve", false, "start web server")
	addr := flag.String("addr", "", "http listen address when --serve (overrides server.addr)")
	mock := flag.Bool("mock", false, "use the offline mock provider instead of a remote model")
	verbose := flag.Bool("v", false, "enable debug logs")
	flag.Parse()

	if *mock {
		os.Setenv(config.EnvPrefix+"_LLM_PROVIDER", "mock")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	logger := logging.New(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve {
		err = runServer(ctx, cfg, logger)
	} else {
		err = runOnce(ctx, cfg, logger, generator.GenerationRequest{
			Topic:     *topic,
			Specialty: *specialty,
			Pages:     *pages,
		})
	}
	if err != nil {
		logger.Error("exiting", "error", err)
		stop()
		os.Exit(1)
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pipeline, pub, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	srv, err := server.New(pipeline, pub, cfg.Server, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting web server", "addr", cfg.Server.Addr, "provider", cfg.LLM.Provider)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("web server stopped")
	return nil
}

func runOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger, req generator.GenerationRequest) error {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return fmt.Errorf("--topic, --specialty and --pages (10-200) are required: %w", err)
	}

	pipeline, pub, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	genCtx, cancel := context.WithTimeout(ctx, cfg.Server.GenerateTimeout)
	defer cancel()

	run, err := pipeline.Generate(genCtx, req)
	if err != nil {
		return err
	}
	location, err := pub.Publish(ctx, run)
	if err != nil {
		return err
	}

	logger.Info("document ready", "run_id", run.ID.String(), "location", location)
	fmt.Println(location)
	return nil
}

func buildPipeline(cfg *config.Config, logger *slog.Logger) (*generator.Pipeline, publisher.Publisher, error) {
	llm, err := buildLLM(cfg.LLM, logger)
	if err != nil {
		return nil, nil, err
	}

	var opts []generator.PipelineOption
	if len(cfg.Prompt.Sections) > 0 {
		opts = append(opts, generator.WithSections(cfg.Prompt.Sections))
	}
	if cfg.Prompt.System != "" {
		opts = append(opts, generator.WithSystemPrompt(cfg.Prompt.System))
	}
	pipeline, err := generator.NewPipeline(llm, logger, opts...)
	if err != nil {
		return nil, nil, err
	}

	pub, err := publisher.New(cfg.Storage, logger)
	if err != nil {
		return nil, nil, err
	}
	return pipeline, pub, nil
}

func buildLLM(cfg config.LLMConfig, logger *slog.Logger) (generator.LLMClient, error) {
	settings := &generator.LLMSettings{
		Provider:       cfg.Provider,
		Model:          cfg.Model,
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Temperature:    cfg.Temperature,
		RequestTimeout: cfg.RequestTimeout,
		Retry:          cfg.RetryPolicy(),
	}
	switch cfg.Provider {
	case "openai":
		return generator.NewOpenAILLMFromConfig(settings, logger)
	case "deepseek":
		// DeepSeek exposes an OpenAI-compatible API; base_url must point at it.
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(settings, logger)
	case "mock":
		return generator.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.Provider)
	}
}
