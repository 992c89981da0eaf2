package metrics

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
)

// metricRow matches a Markdown table row whose first cell is a bolded metric
// name. Plain header cells and separator rows do not match, so only real
// metric rows are picked up.
var metricRow = regexp.MustCompile(`^\s*\|\s*\*\*(.+?)\*\*\s*\|`)

// loadMarkdown reads metric definitions from a Markdown file containing a
// definition table. The first column carries the bolded metric name.
func loadMarkdown(path string) ([]models.Metric, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer f.Close()

	var metrics []models.Metric
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := metricRow.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		name := cleanName(m[1])
		if name == "" {
			continue
		}
		metrics = append(metrics, models.Metric{Name: name})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read metrics file: %w", err)
	}
	return metrics, nil
}

// cleanName strips residual Markdown emphasis and surrounding whitespace.
func cleanName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.Trim(name, "*_`")
	return strings.TrimSpace(name)
}
