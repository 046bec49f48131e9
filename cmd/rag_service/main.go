package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"bookrag/internal/config"
	"bookrag/internal/database/milvus"
	"bookrag/internal/database/mongo"
	"bookrag/internal/database/redis"
	"bookrag/internal/embedding"
	"bookrag/internal/llm"
	"bookrag/internal/rag_service/api"
	"bookrag/internal/rag_service/rag/chunker"
	"bookrag/internal/rag_service/rag/interfaces"
	"bookrag/internal/rag_service/rag/pipeline"
	"bookrag/internal/rag_service/rag/storages/docstore"
	"bookrag/internal/rag_service/rag/storages/vectorstore"
	"bookrag/internal/rag_service/service"
	"bookrag/internal/usage"
	"bookrag/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. Load configuration. A missing file starts the service with defaults
	// so local development needs no setup at all.
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		cfg = config.Default()
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.OpenAI.APIKey = key
		cfg.Embedding.OpenAI.APIKey = key
	}

	// 2. Initialize the logger.
	logger.Init(cfg.Logger.Level)
	log := logger.New("BookRAGService")
	log.Info("Starting the book catalog RAG service...")

	ctx := context.Background()

	// 3. Connect the storage backends. Every backend is optional: a missing
	// address falls back to the in-memory implementation so the service
	// degrades instead of refusing to start.
	var usageStore usage.Store
	var documents interfaces.DocumentStore
	mongoConnected := false
	if cfg.Databases.MongoDB.Address != "" {
		mongoClient, err := mongo.GetClient(&cfg.Databases.MongoDB)
		if err != nil {
			log.Warn(fmt.Sprintf("MongoDB unavailable, using in-memory stores: %v", err))
		} else {
			mongoConnected = true
			documents = docstore.NewMongoStore(mongoClient, cfg.Databases.MongoDB.Database, cfg.Databases.MongoDB.DocumentsCollection)
			usageStore = usage.NewMongoStore(mongoClient, cfg.Databases.MongoDB.Database, cfg.Databases.MongoDB.UsageCollection)
			defer mongo.Close(ctx)
		}
	}
	if documents == nil {
		documents = docstore.NewMemoryStore()
	}

	var summaryCache service.SummaryInvalidator
	if cfg.Databases.Redis.Address != "" {
		redisClient, err := redis.GetClient(&cfg.Databases.Redis)
		if err != nil {
			log.Warn(fmt.Sprintf("Redis unavailable, summary cache disabled: %v", err))
		} else {
			cached := docstore.NewCachedStore(documents, redisClient, cfg.Databases.Redis.SummaryTTL, log)
			documents = cached
			summaryCache = cached
			defer redis.Close()
		}
	}

	var vectors interfaces.VectorStore
	if cfg.Databases.Milvus.Address != "" {
		milvusClient, err := milvus.GetClient(ctx, &cfg.Databases.Milvus)
		if err != nil {
			log.Warn(fmt.Sprintf("Milvus unavailable, using the in-memory vector store: %v", err))
		} else if err := milvusClient.EnsureChunkCollection(ctx); err != nil {
			log.Warn(fmt.Sprintf("Milvus collection setup failed, using the in-memory vector store: %v", err))
		} else {
			store, err := vectorstore.NewMilvusStore(milvusClient, log)
			if err != nil {
				log.Warn(fmt.Sprintf("Milvus store setup failed, using the in-memory vector store: %v", err))
			} else {
				vectors = store
				defer milvusClient.Close()
			}
		}
	}
	if vectors == nil {
		vectors = vectorstore.NewMemoryStore()
		log.Info("Vector search runs on the in-memory store; the index is lost on restart.")
	}
	if !mongoConnected {
		log.Info("Catalog runs on the in-memory document store.")
	}

	// 4. Usage metering and the model clients.
	tracker := usage.NewTracker(cfg.Rag.UsageHistorySize, usageStore, log)

	embedder, err := embedding.New(cfg.Embedding, tracker)
	if err != nil {
		log.Fatal(fmt.Sprintf("Failed to create the embedding client: %v", err))
	}
	chatClient, err := llm.New(cfg.LLM, tracker)
	if err != nil {
		log.Fatal(fmt.Sprintf("Failed to create the chat client: %v", err))
	}

	// 5. Assemble the pipelines and the service facade.
	indexing := pipeline.NewIndexingPipeline(
		log, chunker.New(cfg.Rag.ChunkSize, cfg.Rag.ChunkOverlap),
		embedder, vectors, documents,
		cfg.Rag.EmbedBatchSize, cfg.Rag.ReindexWorkers,
	)
	retrieval := pipeline.NewRetrievalPipeline(
		log, embedder, vectors, documents,
		cfg.Rag.RetrievalLimit, cfg.Rag.MinSimilarity,
	)
	chat := pipeline.NewChatPipeline(log, retrieval, pipeline.NewPromptBuilder(), chatClient, documents)
	svc := service.New(log, indexing, chat, tracker, summaryCache)

	// 6. Start the HTTP server.
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(api.NewHandler(log, svc, cfg.Rag.RequestTimeout))
	srv := &http.Server{Addr: cfg.Server.Address, Handler: router}

	go func() {
		log.Info(fmt.Sprintf("HTTP server listening at %s", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(fmt.Sprintf("HTTP server failed: %v", err))
		}
	}()

	// 7. Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(fmt.Sprintf("HTTP server shutdown failed: %v", err))
	}
	log.Info("Server stopped.")
}
