package updates

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
)

// Archiver persists resolved updates for audit. Archiving is best-effort
// from the reviewer's point of view: a failed archive write is logged by the
// caller but never undoes the review decision.
type Archiver interface {
	Archive(ctx context.Context, update models.ProposedUpdate) error
}

// MongoArchiver writes resolved updates to a MongoDB collection, keyed by
// the update ID so re-archiving is an overwrite, not a duplicate.
type MongoArchiver struct {
	collection *mongo.Collection
}

// NewMongoArchiver creates a MongoArchiver over the given database handle.
func NewMongoArchiver(client *mongo.Client, database, collection string) *MongoArchiver {
	return &MongoArchiver{collection: client.Database(database).Collection(collection)}
}

// Archive upserts the update document.
func (a *MongoArchiver) Archive(ctx context.Context, update models.ProposedUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := a.collection.ReplaceOne(
		ctx,
		bson.M{"_id": update.ID},
		update,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to archive update %s: %w", update.ID, err)
	}
	return nil
}

// History returns the archived updates for one metric, newest first.
func (a *MongoArchiver) History(ctx context.Context, metricName string, limit int64) ([]models.ProposedUpdate, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"resolved_at": -1})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := a.collection.Find(ctx, bson.M{"metric_name": metricName}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query update history for '%s': %w", metricName, err)
	}
	defer cursor.Close(ctx)

	var history []models.ProposedUpdate
	if err := cursor.All(ctx, &history); err != nil {
		return nil, fmt.Errorf("failed to decode update history for '%s': %w", metricName, err)
	}
	return history, nil
}

var _ Archiver = (*MongoArchiver)(nil)
