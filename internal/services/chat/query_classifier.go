package chat

import (
	"regexp"
	"strings"

	"github.com/senpaisaul/multimodal-rag/internal/models"
)

// QueryType represents how a question is answered
type QueryType string

const (
	QueryTypeGraph  QueryType = "graph"  // "plot", "graph", "chart"
	QueryTypeAnswer QueryType = "answer" // grounded text answer
)

// QueryClassification holds the classification result
type QueryClassification struct {
	Type QueryType

	// Modality is the inferred retrieval filter; nil searches every record
	Modality *models.Modality
}

var (
	graphPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bplot(s|ted|ting)?\b`),
		regexp.MustCompile(`(?i)\bgraph(s|ed|ing)?\b`),
		regexp.MustCompile(`(?i)\bchart(s|ed|ing)?\b`),
	}

	visionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bimages?\b`),
		regexp.MustCompile(`(?i)\bcharts?\b`),
		regexp.MustCompile(`(?i)\bfigures?\b`),
	}
)

// ClassifyQuery decides between the graph and answer paths and infers a modality filter.
// Keywords match whole words, so "paragraph" is not a graph request.
func ClassifyQuery(query string) *QueryClassification {
	q := strings.TrimSpace(query)

	classification := &QueryClassification{Type: QueryTypeAnswer}
	if matchAny(graphPatterns, q) {
		classification.Type = QueryTypeGraph
	}
	if matchAny(visionPatterns, q) {
		vision := models.ModalityVision
		classification.Modality = &vision
	}
	return classification
}

// IsGraphRequest reports whether the question asks for a chart
func IsGraphRequest(query string) bool {
	return ClassifyQuery(query).Type == QueryTypeGraph
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
