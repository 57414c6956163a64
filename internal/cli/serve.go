package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vakinola/Studyassist-MVP/internal/config"
	"github.com/vakinola/Studyassist-MVP/internal/database"
	"github.com/vakinola/Studyassist-MVP/internal/handlers"
	"github.com/vakinola/Studyassist-MVP/internal/repository"
	"github.com/vakinola/Studyassist-MVP/internal/router"
	"github.com/vakinola/Studyassist-MVP/internal/services"
	"github.com/vakinola/Studyassist-MVP/internal/store"
	"github.com/vakinola/Studyassist-MVP/internal/websocket"
	"github.com/vakinola/Studyassist-MVP/internal/worker"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the studyassist server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	log.Println("Starting studyassist server...")

	cfg := config.Load()

	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres connection failed: %w", err)
	}
	defer pool.Close()
	log.Println("postgres connected")

	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	defer redisClients.Close()
	log.Println("redis connected")

	if err := database.RunMigrations(pool); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("migrations applied")

	docRepo := repository.NewDocumentRepo(pool)
	resultRepo := repository.NewResultRepo(pool)
	progress := store.NewProgressStore(redisClients.Queue)

	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		return fmt.Errorf("gemini client initialization failed: %w", err)
	}
	defer geminiService.Close()
	log.Println("gemini client initialized")

	fileExtract := services.NewFileExtractService()

	if err := os.MkdirAll(cfg.StoragePath, 0o755); err != nil {
		return fmt.Errorf("storage path: %w", err)
	}

	uploadHandler := handlers.NewUploadHandler(progress, docRepo, cfg.StoragePath)
	quizHandler := handlers.NewQuizHandler(docRepo, resultRepo, geminiService, fileExtract)
	docsHandler := handlers.NewDocsHandler(docRepo)

	workerPool := worker.NewPool(redisClients.Queue, progress, geminiService, fileExtract, docRepo, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("worker pool started (%d goroutines)", cfg.WorkerCount)

	wsHub := websocket.NewHub(redisClients.PubSub)
	wsHub.Start()
	log.Println("websocket hub started")

	r := router.New(uploadHandler, quizHandler, docsHandler, wsHub, cfg.FrontendURL)

	// Uploads and LLM calls need far more than typical API timeouts.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("shutting down...")
		workerPool.Stop()
		wsHub.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("studyassist ready on http://localhost:%s", cfg.Port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
