package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Susan2025lee/brandloyaltyupdater/pkg/logger"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestScan_LoadsTextDocumentsInNameOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_article.md", "# Second\n\nsome analysis")
	writeFile(t, dir, "a_report.txt", "quarterly numbers")

	scanner := NewScanner(dir, logger.New("ingest", "run-test"))
	docs, skipped, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	assert.Zero(t, skipped)
	require.Len(t, docs, 2)
	assert.Equal(t, "a_report.txt", docs[0].SourceName)
	assert.Equal(t, "b_article.md", docs[1].SourceName)
	assert.Equal(t, "quarterly numbers", docs[0].RawText)
	assert.NotEmpty(t, docs[0].ID)
	assert.False(t, docs[0].ExtractedAt.IsZero())
}

func TestScan_SkipsDotfilesAndSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".hidden.md", "should be ignored")
	writeFile(t, dir, "visible.md", "kept")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	scanner := NewScanner(dir, logger.New("ingest", "run-test"))
	docs, skipped, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	assert.Zero(t, skipped)
	require.Len(t, docs, 1)
	assert.Equal(t, "visible.md", docs[0].SourceName)
}

func TestScan_CountsUnreadableAndEmptyFilesAsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.md", "   \n")
	writeFile(t, dir, "broken.pdf", "not actually a pdf")
	writeFile(t, dir, "good.md", "real content")

	scanner := NewScanner(dir, logger.New("ingest", "run-test"))
	docs, skipped, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, skipped)
	require.Len(t, docs, 1)
	assert.Equal(t, "good.md", docs[0].SourceName)
}

func TestScan_MissingDirectoryIsNotFatal(t *testing.T) {
	scanner := NewScanner(filepath.Join(t.TempDir(), "does-not-exist"), logger.New("ingest", "run-test"))
	docs, skipped, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Zero(t, skipped)
}

func TestScan_HonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.md", "content")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scanner := NewScanner(dir, logger.New("ingest", "run-test"))
	_, _, err := scanner.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
