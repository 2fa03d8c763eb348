package ocr

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/simjak/docling/internal/logger"
	"github.com/simjak/docling/pkg/models"
)

// MaxImageSizeBytes is the maximum image size for synchronous cloud
// processing (20MB).
const MaxImageSizeBytes = 20 * 1024 * 1024

// GoogleVision recognizes text with the Google Cloud Vision API and reports
// word-level bounding boxes from DOCUMENT_TEXT_DETECTION. Geometry arrives
// in the pixel space of the submitted image, matching the CLI engine's
// output space, so downstream mapping is engine-agnostic.
type GoogleVision struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger

	probeOnce sync.Once
	probeErr  error
}

// NewGoogleVision creates the engine with credentials from the environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS
// JSON in env.
func NewGoogleVision(ctx context.Context) (*GoogleVision, error) {
	const op = "NewGoogleVision"

	var client *vision.ImageAnnotatorClient
	var err error

	// Check for inline credentials first
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOcrError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		// Use credentials file
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOcrError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Try default credentials as fallback
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOcrError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return NewGoogleVisionWithClient(client), nil
}

// NewGoogleVisionWithClient creates the engine with an explicit client
// (for testing).
func NewGoogleVisionWithClient(client *vision.ImageAnnotatorClient) *GoogleVision {
	return &GoogleVision{
		client: client,
		log:    logger.WithComponent("ocr-vision"),
	}
}

// Name returns the engine's fixed identity.
func (g *GoogleVision) Name() string { return "google-vision" }

// Version returns the Vision API revision the client speaks. The API is
// versioned by endpoint, not by a queryable binary version.
func (g *GoogleVision) Version() string { return "v1" }

// Probe verifies the engine holds a usable client. Credentials were already
// resolved at construction; the check is cached and runs at most once.
func (g *GoogleVision) Probe(ctx context.Context) error {
	g.probeOnce.Do(func() {
		if g.client == nil {
			g.probeErr = WrapOcrError("Probe", ErrEngineNotFound, "Vision client is not configured")
		}
	})
	return g.probeErr
}

// Recognize submits the image to the Vision API and returns the recognized
// words with pixel geometry, in reading order.
func (g *GoogleVision) Recognize(ctx context.Context, imagePath string, opts RecognizeOptions) ([]models.RawCell, error) {
	const op = "Recognize"

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, WrapOcrError(op, err, fmt.Sprintf("reading %s", imagePath))
	}
	if len(data) > MaxImageSizeBytes {
		return nil, WrapOcrError(op, ErrImageTooLarge, fmt.Sprintf("image size: %d bytes", len(data)))
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{
					LanguageHints: opts.Languages,
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, WrapOcrError(op, ErrEngineExecution, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapOcrError(op, ErrEngineExecution, "no response from Vision API")
	}
	annotated := resp.Responses[0]
	if annotated.Error != nil {
		return nil, WrapOcrError(op, ErrEngineExecution, fmt.Sprintf("Vision API error: %s", annotated.Error.Message))
	}

	cells := g.visionWords(annotated.FullTextAnnotation)
	g.log.Debug().
		Str("image", imagePath).
		Int("words", len(cells)).
		Msg("Vision recognition completed")
	return cells, nil
}

// visionWords flattens a full-text annotation into word-level raw cells.
// Words without text or geometry are structural artifacts and are dropped.
func (g *GoogleVision) visionWords(annotation *visionpb.TextAnnotation) []models.RawCell {
	if annotation == nil {
		return nil
	}

	var cells []models.RawCell
	for _, page := range annotation.Pages {
		for _, block := range page.Blocks {
			for _, paragraph := range block.Paragraphs {
				for _, word := range paragraph.Words {
					var sb strings.Builder
					for _, symbol := range word.Symbols {
						sb.WriteString(symbol.Text)
					}
					text := sb.String()
					if strings.TrimSpace(text) == "" {
						continue
					}

					left, top, width, height, ok := polyBounds(word.BoundingBox)
					if !ok {
						g.log.Warn().Str("text", text).Msg("Skipping word without geometry")
						continue
					}
					cells = append(cells, models.RawCell{
						Left:       left,
						Top:        top,
						Width:      width,
						Height:     height,
						Confidence: float64(word.Confidence) * 100,
						Text:       text,
					})
				}
			}
		}
	}
	return cells
}

// polyBounds reduces a bounding polygon to its axis-aligned extent.
func polyBounds(poly *visionpb.BoundingPoly) (left, top, width, height float64, ok bool) {
	if poly == nil || len(poly.Vertices) == 0 {
		return 0, 0, 0, 0, false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, v := range poly.Vertices {
		minX = math.Min(minX, float64(v.X))
		minY = math.Min(minY, float64(v.Y))
		maxX = math.Max(maxX, float64(v.X))
		maxY = math.Max(maxY, float64(v.Y))
	}
	return minX, minY, maxX - minX, maxY - minY, true
}

// Close closes the underlying Vision client.
func (g *GoogleVision) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
