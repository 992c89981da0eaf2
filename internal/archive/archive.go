// Package archive keeps a copy of every ingested source document in object
// storage, so the evidence behind a report revision can be pulled up later
// even after the input directory is cleaned out.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/logger"
)

// DocumentArchive uploads raw source files to a MinIO bucket. Archiving is
// best-effort: the pipeline logs failures and carries on, the run never
// depends on object storage being up.
type DocumentArchive struct {
	client *minio.Client
	bucket string
	log    *logger.Logger
}

// NewDocumentArchive creates a DocumentArchive over the shared MinIO client.
func NewDocumentArchive(client *minio.Client, bucket string, log *logger.Logger) *DocumentArchive {
	return &DocumentArchive{client: client, bucket: bucket, log: log}
}

// Store uploads the file behind doc, keyed by run and document ID so every
// run's inputs stay separable in the bucket.
func (a *DocumentArchive) Store(ctx context.Context, runID string, doc models.Document, path string) error {
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for archiving: %w", path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	contentType := "application/octet-stream"
	if mtype, err := mimetype.DetectFile(path); err == nil {
		contentType = mtype.String()
	}

	objectName := fmt.Sprintf("%s/%s%s", runID, doc.ID, filepath.Ext(path))
	_, err = a.client.PutObject(ctx, a.bucket, objectName, file, stat.Size(), minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"source-name": doc.SourceName,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", doc.SourceName, err)
	}

	a.log.WithSource(doc.SourceName).WithPayload(map[string]interface{}{"object": objectName}).
		Debug("archived source document")
	return nil
}

func (a *DocumentArchive) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket '%s': %w", a.bucket, err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket '%s': %w", a.bucket, err)
		}
	}
	return nil
}
