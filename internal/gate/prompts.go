package gate

import (
	"fmt"
	"strings"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
)

// NoUpdateMarker is the exact phrase the model must return when the new
// evidence does not warrant a rewrite. Anything else is treated as the
// revised section body.
const NoUpdateMarker = "NO_UPDATE_NEEDED"

const assessmentTemplate = `You are an AI assistant analyzing updates for a Brand Loyalty Monitoring Report.
Your task is to determine if new information warrants an update to a specific metric section in the report.

**Metric Name:** %s

**Current Report Section Content:**
` + "```text\n%s\n```" + `

**Newly Retrieved Context:**
Here are relevant excerpts retrieved from new documents. Each includes its source filename.
` + "```text\n%s\n```" + `

**Instructions:**
1.  **Compare:** Analyze the new context against the current report section content for the metric **%s**.
2.  **Assess Significance:** Determine if the new information provides a *significant* update (e.g., new data points, trends, substantial changes, contradicting information) compared to the current content. Minor wording changes or information already captured are NOT significant.
3.  **Output:**
    *   **If a significant update IS warranted:** Synthesize the key information from the new context and integrate it with the current content (if appropriate) to generate a *revised* paragraph for the report section. Ensure the revised paragraph is concise, informative, and accurately reflects the *latest* significant information. Cite the source filename(s) from the retrieved context (e.g., "According to report1.pdf...", "Source: report2.md").
    *   **If NO significant update is warranted:** Respond ONLY with the exact phrase: ` + "`" + NoUpdateMarker + "`" + `

**Response:**`

// buildPrompt assembles the significance-assessment prompt for one metric.
func buildPrompt(metric models.Metric, currentBody string, chunks []models.Chunk) string {
	current := strings.TrimSpace(currentBody)
	if current == "" {
		current = "(no existing text for this metric)"
	}
	return fmt.Sprintf(assessmentTemplate, metric.Name, current, formatContext(chunks), metric.Name)
}

// formatContext renders the retrieved chunks as numbered excerpts, each
// labeled with its source filename so the model can cite it.
func formatContext(chunks []models.Chunk) string {
	var b strings.Builder
	for i, chunk := range chunks {
		source := chunk.SourceName
		if source == "" {
			source = "Unknown Source"
		}
		fmt.Fprintf(&b, "--- Excerpt %d (Source: %s) ---\n", i+1, source)
		b.WriteString(chunk.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
