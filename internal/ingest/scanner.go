package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/djherbis/times"
	"github.com/google/uuid"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/logger"
)

// Scanner discovers newly arrived source documents in the input directory
// and extracts their text. Files that cannot be read or have no supported
// loader are skipped and logged, never fatal.
type Scanner struct {
	dir string
	log *logger.Logger
}

// NewScanner creates a Scanner over the given input directory.
func NewScanner(dir string, log *logger.Logger) *Scanner {
	return &Scanner{dir: dir, log: log}
}

// Scan loads every readable document in the input directory, in name order.
// The second return value counts files skipped due to ingestion errors.
func (s *Scanner) Scan(ctx context.Context) ([]models.Document, int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Warn("input directory does not exist, nothing to ingest")
			return nil, 0, nil
		}
		return nil, 0, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var docs []models.Document
	skipped := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return docs, skipped, err
		}

		path := filepath.Join(s.dir, name)
		doc, err := s.load(ctx, path, name)
		if err != nil {
			skipped++
			s.log.WithSource(name).WithError(err).Warn("skipping unreadable source document")
			continue
		}
		if strings.TrimSpace(doc.RawText) == "" {
			skipped++
			s.log.WithSource(name).Warn("skipping source document with no extractable text")
			continue
		}
		docs = append(docs, doc)
	}

	s.log.WithPayload(map[string]interface{}{"found": len(docs), "skipped": skipped}).
		Info("finished scanning input directory")
	return docs, skipped, nil
}

func (s *Scanner) load(ctx context.Context, path, name string) (models.Document, error) {
	loader, err := loaderFor(path)
	if err != nil {
		return models.Document{}, err
	}

	text, err := loader.Load(ctx, path)
	if err != nil {
		return models.Document{}, err
	}

	return models.Document{
		ID:          uuid.New().String(),
		SourceName:  name,
		RawText:     text,
		ExtractedAt: extractedAt(path),
	}, nil
}

// extractedAt prefers the file's modification time over the scan time, so
// re-runs attribute a document to when it actually arrived.
func extractedAt(path string) time.Time {
	if ts, err := times.Stat(path); err == nil {
		return ts.ModTime()
	}
	return time.Now()
}
