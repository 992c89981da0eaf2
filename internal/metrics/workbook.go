package metrics

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
)

// loadWorkbook reads metric definitions from the first sheet of an Excel
// workbook. Column A holds the metric name, column B an optional heading
// pattern override. The first row is treated as a header and skipped.
func loadWorkbook(path string) ([]models.Metric, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet '%s': %w", sheets[0], err)
	}

	var metrics []models.Metric
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		name := cleanName(row[0])
		if name == "" {
			continue
		}
		metric := models.Metric{Name: name}
		if len(row) > 1 {
			metric.HeadingPattern = strings.TrimSpace(row[1])
		}
		metrics = append(metrics, metric)
	}
	return metrics, nil
}
