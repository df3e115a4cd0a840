package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mirrorfield/dust-machines/backend/internal/config"
	"github.com/mirrorfield/dust-machines/backend/internal/handler"
	"github.com/mirrorfield/dust-machines/backend/internal/service/generate"
	"github.com/mirrorfield/dust-machines/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	genService, err := generate.NewService(ctx, cfg.AI, cfg.Generation)
	if err != nil {
		log.Fatalf("failed to initialize generation service: %v", err)
	}
	if genService.Enabled() {
		log.Println("generation service initialized with upstream model")
	} else {
		log.Println("model credentials missing, serving the offline deck")
	}

	sessionService := session.NewService(genService, session.Config{
		StepDelayMin: cfg.Generation.StepDelayMin,
		StepDelayMax: cfg.Generation.StepDelayMax,
	})

	router := handler.NewRouter(genService, sessionService)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Dust Machines backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
