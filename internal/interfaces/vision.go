package interfaces

import (
	"context"

	"github.com/senpaisaul/multimodal-rag/internal/models"
)

// VisionExtractor reads one image into a typed fact.
// ok is false when the image is too small to carry information.
type VisionExtractor interface {
	Analyze(ctx context.Context, image []byte, page int) (result models.FactResult, ok bool)
}
