package ocr

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/simjak/docling/internal/logger"
	"github.com/simjak/docling/pkg/models"
)

// DocumentAIConfig holds configuration for the Google Document AI engine.
type DocumentAIConfig struct {
	// ProjectID is the Google Cloud project ID where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g., "us", "eu"). Should match
	// where the processor is created.
	Location string

	// ProcessorID is the Document AI OCR processor ID.
	ProcessorID string

	// ProcessorVersion pins a particular processor version. Empty uses the
	// processor's default version.
	ProcessorVersion string

	// Timeout bounds a single recognition run. Zero means no limit.
	Timeout time.Duration
}

// mimeTypes maps input file extensions to the MIME type Document AI expects.
var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

// DocumentAI recognizes text with a Google Document AI OCR processor and
// reports token-level bounding boxes. Geometry arrives in the pixel space of
// the submitted image, matching the CLI engine's output space, so downstream
// mapping is engine-agnostic.
type DocumentAI struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger

	probeOnce sync.Once
	probeErr  error
}

// NewDocumentAI creates the engine with credentials and processor settings
// from the environment.
// Expects: GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
// Requires: GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID
// Optional: GOOGLE_CLOUD_LOCATION (defaults to "us")
func NewDocumentAI(ctx context.Context) (*DocumentAI, error) {
	const op = "NewDocumentAI"

	config := DocumentAIConfig{
		ProjectID:   getEnvVar("GOOGLE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"),
		Location:    getEnvVar("GOOGLE_LOCATION", "GOOGLE_CLOUD_LOCATION"),
		ProcessorID: getEnvVar("GOOGLE_PROCESSOR_ID", "DOCUMENT_AI_PROCESSOR_ID"),
		Timeout:     60 * time.Second,
	}

	if config.ProjectID == "" {
		return nil, WrapOcrError(op, ErrInvalidConfiguration, "GOOGLE_PROJECT_ID or GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, WrapOcrError(op, ErrInvalidConfiguration, "GOOGLE_PROCESSOR_ID or DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	var clientOptions []option.ClientOption

	// Non-default locations live behind regional endpoints.
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapOcrError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOcrError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return NewDocumentAIWithConfig(config, client), nil
}

// NewDocumentAIWithConfig creates the engine with an explicit config and
// client (for testing).
func NewDocumentAIWithConfig(config DocumentAIConfig, client *documentai.DocumentProcessorClient) *DocumentAI {
	return &DocumentAI{
		client: client,
		config: config,
		log:    logger.WithComponent("ocr-documentai"),
	}
}

// Name returns the engine's fixed identity.
func (d *DocumentAI) Name() string { return "document-ai" }

// Version returns the Document AI API revision the client speaks. The API is
// versioned by endpoint, not by a queryable binary version.
func (d *DocumentAI) Version() string { return "v1" }

// Probe verifies the engine holds a usable client and a complete processor
// configuration. Credentials were already resolved at construction; the check
// is cached and runs at most once.
func (d *DocumentAI) Probe(ctx context.Context) error {
	d.probeOnce.Do(func() {
		const op = "Probe"
		if d.client == nil {
			d.probeErr = WrapOcrError(op, ErrEngineNotFound, "Document AI client is not configured")
			return
		}
		if d.config.ProjectID == "" || d.config.ProcessorID == "" {
			d.probeErr = WrapOcrError(op, ErrInvalidConfiguration,
				"Document AI needs a project ID and a processor ID")
		}
	})
	return d.probeErr
}

// Recognize submits the image to the OCR processor and returns the
// recognized tokens with pixel geometry, in reading order.
func (d *DocumentAI) Recognize(ctx context.Context, imagePath string, opts RecognizeOptions) ([]models.RawCell, error) {
	const op = "Recognize"

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, WrapOcrError(op, err, fmt.Sprintf("reading %s", imagePath))
	}
	if len(data) > MaxImageSizeBytes {
		return nil, WrapOcrError(op, ErrImageTooLarge, fmt.Sprintf("image size: %d bytes", len(data)))
	}

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	req := &documentaipb.ProcessRequest{
		Name: d.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeTypeFor(imagePath),
			},
		},
	}
	if len(opts.Languages) > 0 {
		req.ProcessOptions = &documentaipb.ProcessOptions{
			OcrConfig: &documentaipb.OcrConfig{
				Hints: &documentaipb.OcrConfig_Hints{LanguageHints: opts.Languages},
			},
		}
	}

	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, d.handleProcessingError(op, err)
	}
	if resp.Document == nil {
		return nil, WrapOcrError(op, ErrEngineExecution, "no document in response")
	}

	cells := d.documentTokens(resp.Document)
	d.log.Debug().
		Str("image", imagePath).
		Int("tokens", len(cells)).
		Msg("Document AI recognition completed")
	return cells, nil
}

// processorName constructs the full processor resource name for the API.
func (d *DocumentAI) processorName() string {
	if d.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			d.config.ProjectID, d.config.Location, d.config.ProcessorID, d.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		d.config.ProjectID, d.config.Location, d.config.ProcessorID)
}

// handleProcessingError converts Document AI errors to engine errors.
func (d *DocumentAI) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return WrapOcrError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "NOT_FOUND"):
		return WrapOcrError(op, ErrEngineNotFound, fmt.Sprintf("processor not found: %s", d.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return WrapOcrError(op, ErrEngineExecution, "document format not supported or corrupted")
	case strings.Contains(errStr, "DeadlineExceeded") || strings.Contains(errStr, "context deadline exceeded"):
		return WrapOcrError(op, ErrEngineExecution, fmt.Sprintf("processing timed out after %s", d.config.Timeout))
	default:
		return WrapOcrError(op, ErrEngineExecution, fmt.Sprintf("Document AI error: %v", err))
	}
}

// documentTokens flattens a processed document into token-level raw cells.
// Tokens without text or geometry are structural artifacts and are dropped.
func (d *DocumentAI) documentTokens(doc *documentaipb.Document) []models.RawCell {
	var cells []models.RawCell
	for _, page := range doc.Pages {
		for _, token := range page.Tokens {
			layout := token.Layout
			if layout == nil {
				continue
			}

			text := strings.TrimSpace(anchorText(doc.Text, layout.TextAnchor))
			if text == "" {
				continue
			}

			left, top, width, height, ok := layoutBounds(layout.BoundingPoly, page.Dimension)
			if !ok {
				d.log.Warn().Str("text", text).Msg("Skipping token without geometry")
				continue
			}
			cells = append(cells, models.RawCell{
				Left:       left,
				Top:        top,
				Width:      width,
				Height:     height,
				Confidence: float64(layout.Confidence) * 100,
				Text:       text,
			})
		}
	}
	return cells
}

// anchorText resolves a text anchor against the document's full text. Token
// anchors reference byte ranges of the text; out-of-range segments are
// ignored.
func anchorText(text string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil {
		return ""
	}
	if len(anchor.TextSegments) == 0 {
		return anchor.Content
	}

	var sb strings.Builder
	for _, seg := range anchor.TextSegments {
		start, end := int(seg.StartIndex), int(seg.EndIndex)
		if start < 0 || end > len(text) || start >= end {
			continue
		}
		sb.WriteString(text[start:end])
	}
	return sb.String()
}

// layoutBounds reduces a layout's bounding polygon to its axis-aligned
// extent in image pixels. Polygons with absolute vertices are used directly;
// normalized vertices are scaled by the page dimension.
func layoutBounds(poly *documentaipb.BoundingPoly, dim *documentaipb.Document_Page_Dimension) (left, top, width, height float64, ok bool) {
	if poly == nil {
		return 0, 0, 0, 0, false
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)

	switch {
	case len(poly.Vertices) > 0:
		for _, v := range poly.Vertices {
			minX = math.Min(minX, float64(v.X))
			minY = math.Min(minY, float64(v.Y))
			maxX = math.Max(maxX, float64(v.X))
			maxY = math.Max(maxY, float64(v.Y))
		}
	case len(poly.NormalizedVertices) > 0 && dim != nil:
		w, h := float64(dim.Width), float64(dim.Height)
		for _, v := range poly.NormalizedVertices {
			minX = math.Min(minX, float64(v.X)*w)
			minY = math.Min(minY, float64(v.Y)*h)
			maxX = math.Max(maxX, float64(v.X)*w)
			maxY = math.Max(maxY, float64(v.Y)*h)
		}
	default:
		return 0, 0, 0, 0, false
	}

	return minX, minY, maxX - minX, maxY - minY, true
}

// mimeTypeFor maps an input path to the MIME type reported to the API. Paths
// without a known extension default to PNG, the format the OCR stage writes
// its temporary crops in.
func mimeTypeFor(path string) string {
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return "image/png"
}

// getEnvVar tries multiple environment variable names and returns the first
// non-empty value.
func getEnvVar(names ...string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

// Close closes the underlying Document AI client.
func (d *DocumentAI) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
