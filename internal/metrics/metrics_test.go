package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeMarkdownMetrics(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MarkdownTable(t *testing.T) {
	path := writeMarkdownMetrics(t, `# Tracked Metrics

| Metric | Definition |
| --- | --- |
| **Repeat Purchase Rate** | Share of customers buying again within 90 days. |
| **Net Promoter Score** | Standard NPS survey result. |
| **Churn Rate** | Monthly subscription cancellations. |
`)

	metrics, err := Load(path)
	require.NoError(t, err)
	require.Len(t, metrics, 3)
	assert.Equal(t, "Repeat Purchase Rate", metrics[0].Name)
	assert.Equal(t, "Net Promoter Score", metrics[1].Name)
	assert.Equal(t, "Churn Rate", metrics[2].Name)
}

func TestLoad_MarkdownIgnoresHeaderAndProse(t *testing.T) {
	path := writeMarkdownMetrics(t, `Some introduction mentioning **bold text** outside a table.

| Metric | Definition |
|--------|------------|
| **Churn Rate** | Cancellations per month. |
`)

	metrics, err := Load(path)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, "Churn Rate", metrics[0].Name)
}

func TestLoad_MarkdownDeduplicatesNames(t *testing.T) {
	path := writeMarkdownMetrics(t, `| Metric | Definition |
| --- | --- |
| **Churn Rate** | First definition. |
| **churn rate** | Restated later in the file. |
`)

	metrics, err := Load(path)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, "Churn Rate", metrics[0].Name)
}

func TestLoad_MarkdownWithoutTableFails(t *testing.T) {
	path := writeMarkdownMetrics(t, "just prose, no table\n")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNoMetrics)
}

func TestLoad_Workbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Metric", "Heading Pattern"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Repeat Purchase Rate", ""}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"Share of Wallet", `^####\s+Share of Wallet\s*$`}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"", ""}))

	path := filepath.Join(t.TempDir(), "metrics.xlsx")
	require.NoError(t, f.SaveAs(path))

	metrics, err := Load(path)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "Repeat Purchase Rate", metrics[0].Name)
	assert.Empty(t, metrics[0].HeadingPattern)
	assert.Equal(t, "Share of Wallet", metrics[1].Name)
	assert.NotEmpty(t, metrics[1].HeadingPattern)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.md"))
	assert.Error(t, err)
}
