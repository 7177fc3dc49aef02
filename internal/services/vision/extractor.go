// -----------------------------------------------------------------------
// Vision Extractor - one embedded image in, one typed fact out
// -----------------------------------------------------------------------

package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/common"
	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/schemas"
)

// Extractor implements interfaces.VisionExtractor over a vision completion
type Extractor struct {
	llm       interfaces.LLMService
	minPixels int
	maxPixels int
	prompt    string
	schema    map[string]interface{}
	logger    arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.VisionExtractor = (*Extractor)(nil)

// NewExtractor creates an extractor using the pixel bounds from config
func NewExtractor(llm interfaces.LLMService, config *common.IngestConfig, logger arbor.ILogger) *Extractor {
	minPixels, maxPixels := DefaultMinPixels, DefaultMaxPixels
	if config != nil {
		if config.MinPixels > 0 {
			minPixels = config.MinPixels
		}
		if config.MaxPixels > 0 {
			maxPixels = config.MaxPixels
		}
	}

	return &Extractor{
		llm:       llm,
		minPixels: minPixels,
		maxPixels: maxPixels,
		prompt:    DefaultPrompt,
		schema:    schemas.MustSchemaMap(schemas.VisionFactSchema),
		logger:    logger,
	}
}

// SetPrompt replaces the instruction sent with each image. Empty keeps the current prompt.
func (e *Extractor) SetPrompt(prompt string) {
	if prompt != "" {
		e.prompt = prompt
	}
}

// Analyze reads one image from the given page.
// ok is false for images below the minimum pixel count. Every other failure,
// including the model call itself, yields a low-confidence fallback with the reason.
func (e *Extractor) Analyze(ctx context.Context, image []byte, page int) (models.FactResult, bool) {
	prepared, ok, err := PrepareImage(image, e.minPixels, e.maxPixels)
	if err != nil {
		e.logger.Warn().Err(err).Int("page", page).Msg("Image could not be decoded")
		return models.FallbackFact(page, err.Error()), true
	}
	if !ok {
		e.logger.Debug().Int("page", page).Int("bytes", len(image)).Msg("Skipping image below minimum size")
		return models.FactResult{}, false
	}
	if prepared.Resized {
		e.logger.Debug().
			Int("page", page).
			Int("width", prepared.Width).
			Int("height", prepared.Height).
			Msg("Downscaled oversized image")
	}

	messages := []interfaces.Message{{
		Role:    "user",
		Content: e.prompt,
		Images:  []interfaces.ImagePart{{Data: prepared.Data, MIMEType: prepared.MIMEType}},
	}}

	start := time.Now()
	raw, err := e.llm.CompleteJSON(ctx, messages, e.schema)
	if err != nil {
		e.logger.Warn().Err(err).Int("page", page).Str("model", e.llm.Model()).Msg("Vision call failed")
		return models.FallbackFact(page, fmt.Sprintf("vision call failed: %v", err)), true
	}

	parsed := schemas.Parse[schemas.VisionFactPayload](raw)
	if !parsed.OK() {
		e.logger.Warn().
			Err(parsed.Err).
			Int("page", page).
			Str("status", string(parsed.Status)).
			Msg("Vision reply rejected")
		return models.FallbackFact(page, fmt.Sprintf("%s: %v", parsed.Status, parsed.Err)), true
	}

	fact := parsed.Value.ToFact(page)
	e.logger.Debug().
		Int("page", page).
		Str("image_type", string(fact.ImageType)).
		Str("confidence", string(fact.Confidence)).
		Int("data_points", len(fact.DataPoints)).
		Dur("duration", time.Since(start)).
		Msg("Image analysed")

	return models.ValidFact(fact), true
}
