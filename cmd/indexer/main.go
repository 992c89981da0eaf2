// Command indexer backfills the vector index from the input directory
// without running assessments. Useful after wiping the collection or when
// bootstrapping a new deployment from an existing document corpus.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/backend"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/config"
	milvusdb "github.com/Susan2025lee/brandloyaltyupdater/internal/database/milvus"
	redisdb "github.com/Susan2025lee/brandloyaltyupdater/internal/database/redis"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/embedding"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/index"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/ingest"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/logger"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/retry"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	serviceLog := logger.New("indexer", "")
	ctx := context.Background()

	if cfg.Databases.Milvus.Address == "" {
		serviceLog.Fatal("The indexer requires a Milvus address, an in-memory index would be lost on exit")
	}
	milvusClient, err := milvusdb.GetClient(ctx, &cfg.Databases.Milvus)
	if err != nil {
		serviceLog.WithError(err).Fatal("Failed to connect to Milvus")
	}
	defer milvusClient.Close()
	if err := milvusClient.EnsureCollection(ctx); err != nil {
		serviceLog.WithError(err).Fatal("Failed to prepare Milvus collection")
	}
	idx, err := index.NewMilvusIndex(milvusClient, serviceLog)
	if err != nil {
		serviceLog.WithError(err).Fatal("Failed to create Milvus index")
	}

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

	tokenizer, err := ingest.NewTiktokenTokenizer()
	if err != nil {
		serviceLog.WithError(err).Fatal("Failed to create tokenizer")
	}
	chunker, err := ingest.NewChunker(cfg.Pipeline.ChunkTokens, cfg.Pipeline.ChunkOverlap, tokenizer)
	if err != nil {
		serviceLog.WithError(err).Fatal("Failed to create chunker")
	}
	scanner := ingest.NewScanner(cfg.Ingest.InputDir, serviceLog)

	docs, skipped, err := scanner.Scan(ctx)
	if err != nil {
		serviceLog.WithError(err).Fatal("Failed to scan input directory")
	}

	policy := retry.DefaultPolicy(backend.IsTransient)
	policy.Attempts = cfg.Pipeline.RetryAttempts

	indexed := 0
	for _, doc := range docs {
		chunks, err := chunker.Chunk(doc)
		if err != nil {
			serviceLog.WithSource(doc.SourceName).WithError(err).Warn("Failed to chunk document")
			continue
		}
		if len(chunks) == 0 {
			continue
		}

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		var vectors [][]float32
		err = retry.Do(ctx, policy, func(ctx context.Context) error {
			var embedErr error
			vectors, embedErr = embedder.EmbedBatch(ctx, texts)
			return embedErr
		})
		if err != nil {
			serviceLog.WithSource(doc.SourceName).WithError(err).Warn("Failed to embed document")
			continue
		}
		for i := range chunks {
			chunks[i].Vector = vectors[i]
		}

		err = retry.Do(ctx, policy, func(ctx context.Context) error {
			return idx.Upsert(ctx, chunks)
		})
		if err != nil {
			serviceLog.WithSource(doc.SourceName).WithError(err).Warn("Failed to upsert document")
			continue
		}
		indexed += len(chunks)
	}

	if indexed > 0 {
		if err := idx.Flush(ctx); err != nil {
			serviceLog.WithError(err).Fatal("Failed to flush index")
		}
	}

	total, err := idx.Count(ctx)
	if err != nil {
		serviceLog.WithError(err).Fatal("Failed to count collection rows")
	}
	fmt.Printf("Indexed %d chunks from %d documents (%d files skipped), collection now holds %d rows.\n",
		indexed, len(docs), skipped, total)
}
