package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/archive"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/config"
	kafkadb "github.com/Susan2025lee/brandloyaltyupdater/internal/database/kafka"
	milvusdb "github.com/Susan2025lee/brandloyaltyupdater/internal/database/milvus"
	miniodb "github.com/Susan2025lee/brandloyaltyupdater/internal/database/minio"
	mongodb "github.com/Susan2025lee/brandloyaltyupdater/internal/database/mongo"
	redisdb "github.com/Susan2025lee/brandloyaltyupdater/internal/database/redis"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/embedding"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/events"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/gate"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/index"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/llm"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/pipeline"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/report"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/review"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/updates"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	flag.Parse()

	// 1. Load configuration.
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize logging.
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	serviceLog := logger.New("updater", "")

	ctx := context.Background()

	// 3. Build the vector index. Without a Milvus address the service runs
	// on the in-process index, which does not survive restarts.
	var idx index.Index
	var milvusClient *milvusdb.Client
	if cfg.Databases.Milvus.Address != "" {
		milvusClient, err = milvusdb.GetClient(ctx, &cfg.Databases.Milvus)
		if err != nil {
			serviceLog.WithError(err).Fatal("Failed to connect to Milvus")
		}
		if err := milvusClient.EnsureCollection(ctx); err != nil {
			serviceLog.WithError(err).Fatal("Failed to prepare Milvus collection")
		}
		idx, err = index.NewMilvusIndex(milvusClient, serviceLog)
		if err != nil {
			serviceLog.WithError(err).Fatal("Failed to create Milvus index")
		}
	} else {
		serviceLog.Warn("No Milvus address configured, using the in-memory index")
		idx = index.NewMemoryIndex()
	}

	// 4. Build the embedding backend, with the Redis cache when enabled.
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		serviceLog.WithError(err).Fatal("Failed to create embedding backend")
	}
	if cfg.Embedding.Cache && cfg.Databases.Redis.Address != "" {
		redisClient, err := redisdb.GetClient(&cfg.Databases.Redis)
		if err != nil {
			serviceLog.WithError(err).Fatal("Failed to connect to Redis")
		}
		embedder = embedding.NewCachedEmbedding(embedder, redisClient, cfg.Embedding.Provider)
	}

	// 5. Build the significance gate.
	model, err := llm.New(cfg.LLM)
	if err != nil {
		serviceLog.WithError(err).Fatal("Failed to create llm backend")
	}
	significanceGate := gate.New(model, serviceLog)

	// 6. Build the update store and the resolved-update archive.
	store := updates.NewMemoryStore()
	var archiver updates.Archiver
	if cfg.Databases.MongoDB.Address != "" {
		mongoClient, err := mongodb.GetClient(&cfg.Databases.MongoDB)
		if err != nil {
			serviceLog.WithError(err).Fatal("Failed to connect to MongoDB")
		}
		archiver = updates.NewMongoArchiver(mongoClient, cfg.Databases.MongoDB.Database, cfg.Databases.MongoDB.Collection)
	}

	// 7. Assemble the pipeline.
	runPipeline, err := pipeline.New(cfg, embedder, idx, significanceGate, store, serviceLog)
	if err != nil {
		serviceLog.WithError(err).Fatal("Failed to assemble pipeline")
	}
	if cfg.Databases.MinIO.Endpoint != "" {
		minioClient, err := miniodb.GetClient(&cfg.Databases.MinIO)
		if err != nil {
			serviceLog.WithError(err).Fatal("Failed to connect to MinIO")
		}
		runPipeline.Archive = archive.NewDocumentArchive(minioClient, cfg.Databases.MinIO.Bucket, serviceLog)
	}

	// 8. Build the event publisher.
	var publisher events.Publisher = events.NopPublisher{}
	var kafkaClient *kafkadb.Client
	if len(cfg.Databases.Kafka.Brokers) > 0 {
		kafkaClient, err = kafkadb.GetClient(&cfg.Databases.Kafka)
		if err != nil {
			serviceLog.WithError(err).Fatal("Failed to connect to Kafka")
		}
		publisher = events.NewKafkaPublisher(kafkaClient)
	}

	// 9. Wire the review API.
	merger := pipeline.NewMerger(report.NewFile(cfg.Report.Path), store, archiver, serviceLog)
	apiHandler := review.NewAPI(runPipeline, merger, store, publisher, serviceLog)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	review.RegisterRoutes(router, apiHandler)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		serviceLog.Info("Starting review API on " + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serviceLog.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// 10. Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	serviceLog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		serviceLog.WithError(err).Error("Server forced to shut down")
	}

	if kafkaClient != nil {
		if err := kafkaClient.Close(); err != nil {
			serviceLog.WithError(err).Error("Error closing Kafka client")
		}
	}
	if milvusClient != nil {
		milvusClient.Close()
	}
	if cfg.Databases.MongoDB.Address != "" {
		if err := mongodb.Close(context.Background()); err != nil {
			serviceLog.WithError(err).Error("Error disconnecting from MongoDB")
		}
	}
	if cfg.Embedding.Cache && cfg.Databases.Redis.Address != "" {
		if err := redisdb.Close(); err != nil {
			serviceLog.WithError(err).Error("Error closing Redis client")
		}
	}

	serviceLog.Info("Stopped")
}
