// Package ocr integrates external optical-character-recognition engines into
// the document-conversion pipeline and reconciles their output against text
// extracted by other means.
//
// The package covers four concerns:
//   - engine handles: discovery, version probing, and invocation of an OCR
//     engine (the Tesseract CLI by default; Google Cloud Vision and Google
//     Document AI as alternatives)
//   - result parsing: turning an engine's tabular output into typed rows
//   - coordinate reconciliation: mapping row geometry from the scaled crop
//     space back into page space (see models.RawCell.PageBox)
//   - cell reconciliation: merging new OCR cells with a page's existing
//     programmatic cells without geometric duplication
//
// The Stage type orchestrates these per page: select regions, render each
// region as a supersampled crop, hand the crop to the engine, map the rows
// to page-space cells, and commit the reconciled cell set back to the page.
//
// Engine availability is checked once per handle. Constructing an enabled
// Stage forces the probe and fails fast when the engine is unusable; a
// disabled Stage never probes and passes pages through untouched.
//
// Required Environment Variables (cloud engines only):
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//   - GOOGLE_CLOUD_PROJECT: Google Cloud project ID (Document AI)
//   - DOCUMENT_AI_PROCESSOR_ID: OCR processor ID (Document AI)
package ocr

import (
	"context"

	"github.com/simjak/docling/pkg/models"
)

// Engine is the contract every OCR engine handle implements. Implementations
// report recognized spans in the pixel space of the image they were given;
// callers own the mapping back into page space.
type Engine interface {
	// Name returns the engine's reported name. Before a successful Probe the
	// value is the engine family's default (e.g. "tesseract").
	Name() string

	// Version returns the version string cached by Probe, or the engine's
	// sentinel value when the probe could not determine one.
	Version() string

	// Probe verifies the engine is usable and caches its identity. It runs
	// the underlying check at most once per handle; concurrent and repeated
	// calls return the cached outcome.
	Probe(ctx context.Context) error

	// Recognize runs the engine on the image at imagePath and returns the
	// recognized spans in image-pixel coordinates, in engine output order.
	// A failed invocation returns an error matching ErrEngineExecution.
	Recognize(ctx context.Context, imagePath string, opts RecognizeOptions) ([]models.RawCell, error)
}

// RecognizeOptions carries per-invocation recognition settings.
type RecognizeOptions struct {
	// Languages lists engine language codes (e.g. "eng", "deu") to load.
	// Empty means the engine's default.
	Languages []string
}
