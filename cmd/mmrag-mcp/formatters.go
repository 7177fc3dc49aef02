package main

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/services/chat"
	"github.com/senpaisaul/multimodal-rag/internal/services/documents"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// chartFileName derives a file name from the chart title
func chartFileName(title string) string {
	slug := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		slug = "chart"
	}
	if len(slug) > 60 {
		slug = slug[:60]
	}
	return fmt.Sprintf("%s-%d.pdf", slug, time.Now().UnixMilli())
}

// formatLoadResult formats a successful load as markdown
func formatLoadResult(result *documents.LoadResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Loaded %s\n\n", result.Document.Name))
	sb.WriteString(fmt.Sprintf("**Session:** %s\n", result.SessionID))
	sb.WriteString(fmt.Sprintf("**Pages:** %d\n", result.Document.Pages))
	sb.WriteString(fmt.Sprintf("**Records:** %d text, %d vision\n",
		result.Records[models.ModalityText], result.Records[models.ModalityVision]))
	sb.WriteString(fmt.Sprintf("**Images:** %d seen, %d skipped, %d dropped\n",
		result.ImagesSeen, result.ImagesSkipped, result.ImagesDropped))
	sb.WriteString(fmt.Sprintf("**Embedding model:** %s\n", result.Model))
	sb.WriteString(fmt.Sprintf("**Processing time:** %dms\n", result.ProcessingTime))
	return sb.String()
}

// formatAnswer formats an answer, or the location of a rendered chart
func formatAnswer(answer *chat.Answer, chartPath string) string {
	var sb strings.Builder

	if answer.Chart != nil {
		spec := answer.Chart.Spec
		title := spec.Title
		if title == "" {
			title = "Untitled chart"
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n", title))
		sb.WriteString(fmt.Sprintf("**Kind:** %s (%d points)\n", answer.Chart.Kind, len(spec.DataPoints)))
		sb.WriteString(fmt.Sprintf("**File:** %s\n", chartPath))
	} else {
		sb.WriteString(answer.Text)
		sb.WriteString("\n")
		if !answer.Grounded {
			sb.WriteString("\n_Not found in the document._\n")
		}
	}

	if len(answer.Sources) > 0 {
		pages := make([]string, 0, len(answer.Sources))
		seen := make(map[int]bool)
		for _, src := range answer.Sources {
			if !seen[src.Page] {
				seen[src.Page] = true
				pages = append(pages, fmt.Sprintf("%d", src.Page))
			}
		}
		sb.WriteString(fmt.Sprintf("\n**Pages:** %s\n", strings.Join(pages, ", ")))
	}

	return sb.String()
}

// formatRecords formats up to limit records as markdown
func formatRecords(records []models.ContentRecord, limit int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Records (%d)\n\n", len(records)))

	if len(records) == 0 {
		sb.WriteString("No records.\n")
		return sb.String()
	}

	for i, r := range records {
		if i >= limit {
			sb.WriteString(fmt.Sprintf("... %d more\n", len(records)-limit))
			break
		}
		label := string(r.Modality)
		if r.Modality == models.ModalityVision {
			label = fmt.Sprintf("%s/%s/%s", r.Modality, r.ImageType, r.Confidence)
		}
		text := r.Text
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		sb.WriteString(fmt.Sprintf("%d. [p%d %s] %s\n", i+1, r.Page, label, text))
	}

	return sb.String()
}

// formatSummary formats the current session as markdown
func formatSummary(summary *documents.Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", summary.Document.Name))
	sb.WriteString(fmt.Sprintf("**Session:** %s\n", summary.SessionID))
	sb.WriteString(fmt.Sprintf("**SHA-256:** %s\n", summary.Document.SHA256))
	sb.WriteString(fmt.Sprintf("**Pages:** %d\n", summary.Document.Pages))
	sb.WriteString(fmt.Sprintf("**Records:** %d text, %d vision\n",
		summary.Records[models.ModalityText], summary.Records[models.ModalityVision]))
	sb.WriteString(fmt.Sprintf("**Questions asked:** %d\n", summary.Turns))
	sb.WriteString(fmt.Sprintf("**Loaded:** %s\n", summary.CreatedAt.Format(time.RFC3339)))
	return sb.String()
}
