// -----------------------------------------------------------------------
// Document Ingestor - PDF bytes to an ordered stream of content records
// -----------------------------------------------------------------------

package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/senpaisaul/multimodal-rag/internal/common"
	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/models"
)

// Result is the output of one ingestion run
type Result struct {
	Records        []models.ContentRecord
	Pages          int
	ImagesSeen     int
	ImagesSkipped  int // below the minimum size
	ImagesDropped  int // fallback or low confidence
	ImagesIndexed  int
	ProcessingTime time.Duration
}

// Ingestor walks a PDF and emits text and vision records
type Ingestor struct {
	reader      interfaces.PDFReader
	vision      interfaces.VisionExtractor
	splitter    *Splitter
	concurrency int
	events      interfaces.EventService
	logger      arbor.ILogger
}

// NewIngestor creates an ingestor. events may be nil.
func NewIngestor(reader interfaces.PDFReader, vision interfaces.VisionExtractor, config *common.IngestConfig, events interfaces.EventService, logger arbor.ILogger) (*Ingestor, error) {
	size, overlap, concurrency := DefaultChunkSize, DefaultChunkOverlap, 1
	if config != nil {
		size, overlap = config.ChunkSize, config.ChunkOverlap
		if config.VisionConcurrency > 1 {
			concurrency = config.VisionConcurrency
		}
	}

	splitter, err := NewSplitter(size, overlap)
	if err != nil {
		return nil, err
	}

	return &Ingestor{
		reader:      reader,
		vision:      vision,
		splitter:    splitter,
		concurrency: concurrency,
		events:      events,
		logger:      logger,
	}, nil
}

// Process returns the content records of a PDF in page order, text before images within a page
func (i *Ingestor) Process(ctx context.Context, pdf []byte) ([]models.ContentRecord, error) {
	result, err := i.Ingest(ctx, pdf, "")
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

type imageJob struct {
	page  int
	data  []byte
	fact  models.FactResult
	found bool
}

// Ingest is Process with counters. sessionID only tags published events.
func (i *Ingestor) Ingest(ctx context.Context, pdf []byte, sessionID string) (*Result, error) {
	start := time.Now()

	pages, err := i.reader.Read(ctx, pdf)
	if err != nil {
		return nil, err
	}

	i.publish(ctx, interfaces.EventIngestStarted, map[string]interface{}{
		"session_id": sessionID,
		"pages":      len(pages),
	})

	var jobs []*imageJob
	jobsByPage := make(map[int][]*imageJob)
	for _, page := range pages {
		for _, data := range page.Images {
			job := &imageJob{page: page.Number, data: data}
			jobs = append(jobs, job)
			jobsByPage[page.Number] = append(jobsByPage[page.Number], job)
		}
	}

	if err := i.analyzeImages(ctx, jobs, sessionID); err != nil {
		return nil, err
	}

	result := &Result{Pages: len(pages), ImagesSeen: len(jobs)}
	for _, page := range pages {
		textChunks := 0
		if text := strings.TrimSpace(page.Text); text != "" {
			for _, chunk := range i.splitter.Split(text) {
				result.Records = append(result.Records, models.NewTextRecord(chunk, page.Number))
				textChunks++
			}
		}

		visionRecords := 0
		for _, job := range jobsByPage[page.Number] {
			switch {
			case !job.found:
				result.ImagesSkipped++
			case !job.fact.Indexable():
				result.ImagesDropped++
			default:
				result.Records = append(result.Records, models.NewVisionRecord(Verbalize(job.fact.Fact), job.fact.Fact))
				result.ImagesIndexed++
				visionRecords++
			}
		}

		i.publish(ctx, interfaces.EventPageProcessed, map[string]interface{}{
			"session_id":     sessionID,
			"page":           page.Number,
			"total_pages":    len(pages),
			"text_records":   textChunks,
			"vision_records": visionRecords,
		})
	}

	result.ProcessingTime = time.Since(start)

	i.logger.Info().
		Int("pages", result.Pages).
		Int("records", len(result.Records)).
		Int("images_seen", result.ImagesSeen).
		Int("images_indexed", result.ImagesIndexed).
		Int("images_dropped", result.ImagesDropped).
		Int("images_skipped", result.ImagesSkipped).
		Dur("duration", result.ProcessingTime).
		Msg("Document ingested")

	i.publish(ctx, interfaces.EventIngestCompleted, map[string]interface{}{
		"session_id": sessionID,
		"pages":      result.Pages,
		"records":    len(result.Records),
	})

	return result, nil
}

// analyzeImages runs the vision extractor over every job, at most i.concurrency at a time.
// Results land on the job, so output order never depends on completion order.
func (i *Ingestor) analyzeImages(ctx context.Context, jobs []*imageJob, sessionID string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)

	for n, job := range jobs {
		n, job := n, job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			job.fact, job.found = i.vision.Analyze(gctx, job.data, job.page)
			job.data = nil

			status := "indexed"
			switch {
			case !job.found:
				status = "skipped"
			case job.fact.Fallback:
				status = "fallback"
			case !job.fact.Indexable():
				status = "low_confidence"
			}
			i.publish(gctx, interfaces.EventImageAnalyzed, map[string]interface{}{
				"session_id": sessionID,
				"page":       job.page,
				"image":      n + 1,
				"images":     len(jobs),
				"status":     status,
				"reason":     job.fact.Reason,
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (i *Ingestor) publish(ctx context.Context, eventType interfaces.EventType, payload map[string]interface{}) {
	if i.events == nil {
		return
	}
	if err := i.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		i.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish event")
	}
}
