package ocr

import (
	"context"
	"fmt"
	"image/png"
	"os"

	"github.com/rs/zerolog"

	"github.com/simjak/docling/internal/logger"
	"github.com/simjak/docling/pkg/models"
)

// DefaultScale is the supersampling multiplier applied when rendering a
// region for recognition: 72 dpi page space becomes 216 dpi engine input.
const DefaultScale = 3

// DebugHook receives the selected regions and the cells an OCR pass produced
// for a page, after the page has been updated. Hooks are informational and
// must not mutate their arguments.
type DebugHook func(page *models.Page, regions []models.BoundingBox, cells []models.Cell)

// StageConfig configures an OCR stage.
type StageConfig struct {
	// Enabled fixes the stage's mode at construction. A disabled stage is an
	// identity transform: pages pass through untouched and the engine is
	// never probed.
	Enabled bool

	// Scale is the supersampling multiplier for region rendering.
	// Defaults to DefaultScale.
	Scale float64

	// Languages is passed to the engine on every invocation.
	Languages []string

	// ForceFullPage makes the default region selector recognize every page
	// in full, even pages that already carry programmatic text.
	ForceFullPage bool

	// Selector overrides the default CoverageSelector when set.
	Selector RegionSelector
}

// Stage runs OCR over the pages of a conversion. For every page it selects
// the regions that need recognition, renders each region as a supersampled
// crop, hands the crop to the engine, maps the recognized rows back into
// page space, and reconciles the produced cells with the page's existing
// ones.
//
// A single region's engine failure aborts the whole page and propagates:
// no partial cell set is ever committed, since silently incomplete OCR is a
// data-quality risk.
type Stage struct {
	cfg      StageConfig
	engine   Engine
	selector RegionSelector
	debug    DebugHook
	log      zerolog.Logger
}

// NewStage creates the OCR stage. When cfg.Enabled is set the engine is
// probed immediately and a probe failure is returned here, before any page
// is processed; the stage never exists in a usable but broken state.
// A disabled stage never touches the engine, which may be nil.
func NewStage(ctx context.Context, cfg StageConfig, engine Engine) (*Stage, error) {
	const op = "NewStage"

	if cfg.Enabled && engine == nil {
		return nil, WrapOcrError(op, ErrInvalidConfiguration, "an enabled OCR stage needs an engine")
	}
	if cfg.Scale <= 0 {
		cfg.Scale = DefaultScale
	}
	selector := cfg.Selector
	if selector == nil {
		selector = CoverageSelector{ForceFullPage: cfg.ForceFullPage}
	}

	s := &Stage{
		cfg:      cfg,
		engine:   engine,
		selector: selector,
		log:      logger.WithComponent("ocr-stage"),
	}

	if cfg.Enabled {
		if err := engine.Probe(ctx); err != nil {
			return nil, WrapOcrError(op, err,
				"OCR engine is unavailable; install it or select another engine")
		}
		s.log.Info().
			Str("engine", engine.Name()).
			Str("version", engine.Version()).
			Float64("scale", cfg.Scale).
			Msg("OCR stage ready")
	}

	return s, nil
}

// Name identifies the stage in pipeline timings and logs.
func (s *Stage) Name() string { return "ocr" }

// Enabled reports the mode fixed at construction.
func (s *Stage) Enabled() bool { return s.cfg.Enabled }

// SetDebugHook installs a visualization hook called after each processed
// page. A nil hook (the default) disables the callback.
func (s *Stage) SetDebugHook(hook DebugHook) { s.debug = hook }

// ProcessPage runs the OCR pass over one page. Disabled stages and pages
// without a usable rendering backend pass through unchanged. Otherwise the
// page's cell set is replaced with the reconciled result of its existing
// cells and the cells recognized in this pass.
func (s *Stage) ProcessPage(ctx context.Context, page *models.Page) error {
	const op = "ProcessPage"

	if !s.cfg.Enabled {
		return nil
	}
	if !page.HasValidBackend() {
		s.log.Warn().Int("page", page.Number).Msg("Page has no usable backend, skipping OCR")
		return nil
	}

	regions := s.selector.RegionsForPage(page)

	var produced []models.Cell
	for _, region := range regions {
		if region.IsEmpty() {
			s.log.Debug().Int("page", page.Number).Msg("Skipping empty OCR region")
			continue
		}

		rows, err := s.recognizeRegion(ctx, page, region)
		if err != nil {
			return WrapOcrError(op, err, fmt.Sprintf("page %d", page.Number))
		}
		for _, row := range rows {
			produced = append(produced, models.NewOcrCell(len(produced), row, region, s.cfg.Scale))
		}
	}

	page.Cells = ReconcileCells(page.Cells, produced)

	s.log.Info().
		Int("page", page.Number).
		Int("regions", len(regions)).
		Int("recognized", len(produced)).
		Int("cells", len(page.Cells)).
		Msg("OCR pass completed")

	if s.debug != nil {
		s.debug(page, regions, produced)
	}
	return nil
}

// recognizeRegion renders one region, hands it to the engine through a
// scoped temporary image file, and returns the recognized rows. The file is
// removed on every exit path, including engine failure.
func (s *Stage) recognizeRegion(ctx context.Context, page *models.Page, region models.BoundingBox) ([]models.RawCell, error) {
	img, err := page.Backend.RenderCrop(region, s.cfg.Scale)
	if err != nil {
		return nil, WrapOcrError("RenderCrop", err,
			fmt.Sprintf("region (%.1f, %.1f, %.1f, %.1f)", region.L, region.T, region.R, region.B))
	}

	tmp, err := os.CreateTemp("", "docling-ocr-*.png")
	if err != nil {
		return nil, WrapOcrError("RenderCrop", err, "creating temporary image")
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return nil, WrapOcrError("RenderCrop", err, "encoding temporary image")
	}
	if err := tmp.Close(); err != nil {
		return nil, WrapOcrError("RenderCrop", err, "writing temporary image")
	}

	return s.engine.Recognize(ctx, tmp.Name(), RecognizeOptions{Languages: s.cfg.Languages})
}
