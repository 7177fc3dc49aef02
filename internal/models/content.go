package models

import (
	"fmt"
	"strings"
)

// Modality tags where a record's text came from
type Modality string

const (
	ModalityText   Modality = "text"
	ModalityVision Modality = "vision"
)

// ParseModality accepts "text" or "vision" (case-insensitive); empty input is an error
func ParseModality(s string) (Modality, error) {
	switch Modality(strings.ToLower(strings.TrimSpace(s))) {
	case ModalityText:
		return ModalityText, nil
	case ModalityVision:
		return ModalityVision, nil
	}
	return "", fmt.Errorf("unknown modality %q (want text or vision)", s)
}

// ContentRecord is the unit of indexing: one text chunk or one verbalised image fact
type ContentRecord struct {
	Text       string     `json:"text"`
	Page       int        `json:"page"` // 1-based
	Modality   Modality   `json:"modality"`
	ImageType  ImageType  `json:"image_type,omitempty"` // vision records only
	Confidence Confidence `json:"confidence,omitempty"` // vision records only
}

// NewTextRecord creates a text-modality record for a page chunk
func NewTextRecord(text string, page int) ContentRecord {
	return ContentRecord{Text: text, Page: page, Modality: ModalityText}
}

// NewVisionRecord creates a vision-modality record carrying the fact's type and confidence
func NewVisionRecord(text string, fact VisionFact) ContentRecord {
	return ContentRecord{
		Text:       text,
		Page:       fact.Page,
		Modality:   ModalityVision,
		ImageType:  fact.ImageType,
		Confidence: fact.Confidence,
	}
}

// Validate checks the record invariants that indexing relies on
func (r ContentRecord) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("record text is empty")
	}
	if r.Page < 1 {
		return fmt.Errorf("record page must be >= 1, got %d", r.Page)
	}
	switch r.Modality {
	case ModalityText:
		if r.ImageType != "" || r.Confidence != "" {
			return fmt.Errorf("text record on page %d carries vision metadata", r.Page)
		}
	case ModalityVision:
		if r.Confidence == ConfidenceLow {
			return fmt.Errorf("low-confidence vision record on page %d", r.Page)
		}
	default:
		return fmt.Errorf("record has unknown modality %q", r.Modality)
	}
	return nil
}

// CountByModality tallies records per modality
func CountByModality(records []ContentRecord) map[Modality]int {
	counts := map[Modality]int{ModalityText: 0, ModalityVision: 0}
	for _, r := range records {
		counts[r.Modality]++
	}
	return counts
}

// FilterByModality keeps records of the given modality, preserving order
func FilterByModality(records []ContentRecord, modality Modality) []ContentRecord {
	out := make([]ContentRecord, 0, len(records))
	for _, r := range records {
		if r.Modality == modality {
			out = append(out, r)
		}
	}
	return out
}
