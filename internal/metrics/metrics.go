// Package metrics loads the definitions of the tracked report metrics. The
// canonical source is an Excel workbook; a Markdown table is accepted as a
// lighter-weight alternative. The loader is chosen by file extension.
package metrics

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
)

// ErrNoMetrics is returned when the definition source parses cleanly but
// contains no metric rows. A run without metrics has nothing to do.
var ErrNoMetrics = errors.New("no metric definitions found")

// Load reads metric definitions from path, using the workbook loader for
// .xlsx files and the Markdown table loader for everything else.
func Load(path string) ([]models.Metric, error) {
	var (
		metrics []models.Metric
		err     error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		metrics, err = loadWorkbook(path)
	} else {
		metrics, err = loadMarkdown(path)
	}
	if err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoMetrics, filepath.Base(path))
	}
	return dedupe(metrics), nil
}

// dedupe drops repeated metric names, keeping the first occurrence.
func dedupe(metrics []models.Metric) []models.Metric {
	seen := make(map[string]struct{}, len(metrics))
	out := metrics[:0]
	for _, m := range metrics {
		key := strings.ToLower(m.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}
