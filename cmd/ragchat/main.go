package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/veltrane/ragchat/internal/ai"
	"github.com/veltrane/ragchat/internal/config"
	"github.com/veltrane/ragchat/internal/db"
	"github.com/veltrane/ragchat/internal/embedcache"
	"github.com/veltrane/ragchat/internal/filestore"
	"github.com/veltrane/ragchat/internal/handler"
	"github.com/veltrane/ragchat/internal/job"
	"github.com/veltrane/ragchat/internal/middleware"
	"github.com/veltrane/ragchat/internal/rag"
	"github.com/veltrane/ragchat/internal/repo"
	"github.com/veltrane/ragchat/internal/schedule"
	"github.com/veltrane/ragchat/internal/service"
	"github.com/veltrane/ragchat/internal/vectorstore"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "ragchat",
		Short: "ragchat backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run ragchat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			dbConn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(dbConn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, dbConn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildGenerator(cfg config.AIConfig) (ai.IGenerator, error) {
	entries := make([]ai.GeneratorEntry, 0, len(cfg.Generators))
	for _, item := range cfg.Generators {
		provider, err := ai.NewProvider(item.Provider, item.Data)
		if err != nil {
			return nil, fmt.Errorf("init generator %s: %w", item.Provider, err)
		}
		entries = append(entries, ai.GeneratorEntry{
			Name:      item.Provider,
			Generator: ai.NewGenerator(provider, item.Model),
		})
	}
	gen := ai.NewGroupGenerator(entries)
	if gen == nil {
		return nil, fmt.Errorf("at least one generator is required")
	}
	return gen, nil
}

func buildEmbedder(cfg config.AIConfig) (ai.IEmbedder, error) {
	entries := make([]ai.EmbedderEntry, 0, len(cfg.Embedders))
	for _, item := range cfg.Embedders {
		provider, err := ai.NewEmbedProvider(item.Provider, item.Data)
		if err != nil {
			return nil, fmt.Errorf("init embedder %s: %w", item.Provider, err)
		}
		entries = append(entries, ai.EmbedderEntry{
			Name:     item.Provider,
			Embedder: ai.NewEmbedder(provider, item.Model),
		})
	}
	emb := ai.NewGroupEmbedder(entries)
	if emb == nil {
		return nil, fmt.Errorf("at least one embedder is required")
	}
	if cfg.EmbedCacheSize > 0 {
		ttl := time.Duration(cfg.EmbedCacheTTLMinutes) * time.Minute
		emb = embedcache.WrapLRUCacheToEmbedder(emb, cfg.EmbedCacheSize, ttl)
	}
	return emb, nil
}

func runServer(cfg *config.Config, dbConn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("file_store", cfg.FileStore.Type),
	)

	userRepo := repo.NewUserRepo(dbConn)
	convRepo := repo.NewConversationRepo(dbConn)
	msgRepo := repo.NewMessageRepo(dbConn)
	docRepo := repo.NewDocumentRepo(dbConn)
	feedbackRepo := repo.NewFeedbackRepo(dbConn)

	generator, err := buildGenerator(cfg.AI)
	if err != nil {
		return err
	}
	embedder, err := buildEmbedder(cfg.AI)
	if err != nil {
		return err
	}
	vectors, err := vectorstore.New(cfg.VectorStore, dbConn)
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	chunker, err := rag.New(cfg.RAG.Chunker, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("init chunker: %w", err)
	}

	var ragOpts []service.RagOption
	if cfg.RAG.MaxContextChars > 0 {
		ragOpts = append(ragOpts, service.WithPromptBudget(service.NewCharBudget(cfg.RAG.MaxContextChars)))
	}
	ragService := service.NewRagService(
		chunker,
		embedder,
		generator,
		vectors,
		cfg.RAG.TopK,
		time.Duration(cfg.AI.Timeout)*time.Second,
		ragOpts...,
	)

	jwtSecret := []byte(cfg.JWTSecret)
	jwtTTL := time.Hour * time.Duration(cfg.JWTTTLHours)
	authService := service.NewAuthService(userRepo, jwtSecret, jwtTTL)
	convService := service.NewConversationService(convRepo, msgRepo)
	chatService := service.NewChatService(convRepo, msgRepo, ragService, cfg.AI.MaxInputChars)
	docService := service.NewDocumentService(docRepo, files, ragService)
	feedbackService := service.NewFeedbackService(feedbackRepo, msgRepo, convRepo)

	deps := handler.RouterDeps{
		Auth:          handler.NewAuthHandler(authService),
		Conversations: handler.NewConversationHandler(convService, chatService),
		Rag:           handler.NewRagHandler(docService),
		Feedback:      handler.NewFeedbackHandler(feedbackService),
		JWTSecret:     jwtSecret,
		AuthRateLimit: time.Duration(cfg.AuthRateLimitSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	reindex := job.NewReindexJob(docService, time.Duration(cfg.Reindex.DelaySeconds)*time.Second, cfg.Reindex.Batch)
	if err := scheduler.AddJob(reindex, cfg.Reindex.Cron); err != nil {
		return fmt.Errorf("schedule reindex: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
