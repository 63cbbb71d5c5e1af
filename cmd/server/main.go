package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"invoiceflow/internal/action"
	"invoiceflow/internal/classifier"
	"invoiceflow/internal/config"
	"invoiceflow/internal/email/noop"
	"invoiceflow/internal/email/ses"
	"invoiceflow/internal/evaluator"
	"invoiceflow/internal/evaluator/anthropic"
	"invoiceflow/internal/extraction"
	"invoiceflow/internal/extraction/claude"
	"invoiceflow/internal/extraction/gemini"
	"invoiceflow/internal/extraction/openai"
	"invoiceflow/internal/handler"
	"invoiceflow/internal/orchestrator"
	"invoiceflow/internal/port"
	"invoiceflow/internal/repository/sqlstore"
	"invoiceflow/internal/router"
	"invoiceflow/internal/scoring"
	"invoiceflow/internal/service"
	s3storage "invoiceflow/internal/storage/s3"
	"invoiceflow/internal/validator"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := sqlstore.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	recordRepo := sqlstore.NewExtractionRecordRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	notifier, err := newNotifier(&cfg.Notify)
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}

	// Extraction backends
	extraction.RegisterProvider("gemini", gemini.Factory)
	extraction.RegisterProvider("claude", claude.Factory)
	extraction.RegisterProvider("openai", openai.Factory)
	backend, err := extraction.NewBackendChain(&cfg.Extraction)
	if err != nil {
		return fmt.Errorf("failed to initialize extraction backend: %w", err)
	}
	adapter := extraction.NewAdapter(
		s3Client, backend, recordRepo, cfg.S3.Bucket,
		time.Duration(cfg.Extraction.PersistTimeoutMs)*time.Millisecond,
	)
	adapter.SetTraceLogging(cfg.Log.Debug())

	// Evaluators
	catalog, err := evaluator.LoadCatalog(cfg.Evaluator.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load evaluator catalog: %w", err)
	}
	invoker := evaluator.NewInvoker(anthropic.NewBackend(&cfg.Evaluator.Backend), catalog, cfg.Evaluator.CallTimeout())
	invoker.SetTraceLogging(cfg.Log.Debug())
	orch := orchestrator.New(invoker, cfg.Evaluator.CallTimeout(), cfg.Evaluator.MaxConcurrency)

	// Initialize services
	docClassifier := classifier.New(cfg.Validation.LargeDocumentBytes)
	pipelineSvc := service.NewPipelineService(
		s3Client,
		recordRepo,
		notifier,
		docClassifier,
		adapter,
		validator.New(validator.Options{
			ConfidenceThreshold: cfg.Validation.ConfidenceThreshold,
			MatchTolerance:      cfg.Validation.MatchTolerance,
		}),
		scoring.New(cfg.Validation.ConfidenceThreshold),
		invoker,
		orch,
		service.PipelineConfig{
			DefaultBucket:     cfg.S3.Bucket,
			DefaultEvaluators: cfg.Evaluator.Default,
			EvaluatorTimeout:  cfg.Evaluator.CallTimeout(),
		},
	)
	uploadSvc := service.NewUploadService(s3Client, docClassifier, cfg.S3.Bucket, cfg.S3.MaxFileSizeMB)

	var tokenSvc service.TokenService
	if cfg.JWT.Secret != "" {
		tokenSvc = service.NewTokenService(cfg.JWT)
	} else {
		log.Printf("JWT secret not set, /api/v1 is unauthenticated")
	}

	// Setup router
	r := router.Setup(tokenSvc, router.Handlers{
		Action:     handler.NewActionHandler(action.NewPipelineDispatcher(pipelineSvc)),
		Document:   handler.NewDocumentHandler(uploadSvc),
		Pipeline:   handler.NewPipelineHandler(pipelineSvc),
		Extraction: handler.NewExtractionHandler(pipelineSvc),
		Health:     handler.NewHealthHandler(db),
	}, cfg.Server.CORSOrigins...)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Printf("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	// drain detached record saves before closing the database
	adapter.Wait()
	return nil
}

func newNotifier(cfg *config.NotifyConfig) (port.ReportNotifier, error) {
	switch cfg.Provider {
	case "ses":
		return ses.NewSESNotifier(cfg)
	case "", "noop":
		return noop.NewNoopNotifier(), nil
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", cfg.Provider)
	}
}
