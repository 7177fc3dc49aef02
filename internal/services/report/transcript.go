package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/senpaisaul/multimodal-rag/internal/models"
)

// TranscriptMarkdown renders a session's questions and answers as markdown
func TranscriptMarkdown(doc models.DocumentInfo, sessionID string, created time.Time, turns []models.Turn) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Transcript: %s\n\n", escape(doc.Name))
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Session | %s |\n", sessionID)
	fmt.Fprintf(&b, "| Pages | %d |\n", doc.Pages)
	fmt.Fprintf(&b, "| SHA-256 | %s |\n", shortHash(doc.SHA256))
	fmt.Fprintf(&b, "| Started | %s |\n\n", created.UTC().Format(time.RFC3339))

	if len(turns) == 0 {
		b.WriteString("*No questions asked yet.*\n")
		return b.String()
	}

	for i, turn := range turns {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, escape(turn.Question))
		switch {
		case turn.Error != "":
			fmt.Fprintf(&b, "**Error:** %s\n\n", escape(turn.Error))
		case turn.Chart != "":
			fmt.Fprintf(&b, "**Chart:** %s\n\n", escape(turn.Chart))
		default:
			b.WriteString(turn.Answer)
			b.WriteString("\n\n")
		}
		if !turn.Grounded && turn.Error == "" {
			b.WriteString("*Not grounded in the document.*\n\n")
		}
		fmt.Fprintf(&b, "`%s`\n\n", turn.Timestamp.UTC().Format(time.RFC3339))
	}

	return b.String()
}

func shortHash(sha string) string {
	if len(sha) > 16 {
		return sha[:16]
	}
	return sha
}

var markdownEscaper = strings.NewReplacer("|", "\\|", "*", "\\*", "_", "\\_", "`", "\\`", "#", "\\#")

func escape(s string) string {
	return markdownEscaper.Replace(strings.TrimSpace(s))
}
