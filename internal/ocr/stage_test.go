package ocr

import (
	"context"
	"errors"
	"image"
	"math"
	"os"
	"testing"

	"github.com/simjak/docling/pkg/models"
)

// fakeEngine records probe and recognize calls and plays back canned rows,
// one row batch per invocation.
type fakeEngine struct {
	probeCount int
	probeErr   error

	batches    [][]models.RawCell
	imagePaths []string
	failOn     int // 1-based invocation index that fails, 0 = never
}

func (f *fakeEngine) Name() string    { return "fake" }
func (f *fakeEngine) Version() string { return "0.0" }

func (f *fakeEngine) Probe(ctx context.Context) error {
	f.probeCount++
	return f.probeErr
}

func (f *fakeEngine) Recognize(ctx context.Context, imagePath string, opts RecognizeOptions) ([]models.RawCell, error) {
	f.imagePaths = append(f.imagePaths, imagePath)
	n := len(f.imagePaths)
	if f.failOn != 0 && n == f.failOn {
		return nil, WrapOcrError("Recognize", ErrEngineExecution, "fake engine failure")
	}
	if n <= len(f.batches) {
		return f.batches[n-1], nil
	}
	return nil, nil
}

// fakeBackend renders blank crops of the requested dimensions.
type fakeBackend struct {
	w, h    float64
	invalid bool
	renders int
}

func (b *fakeBackend) IsValid() bool               { return !b.invalid }
func (b *fakeBackend) Size() (float64, float64)    { return b.w, b.h }
func (b *fakeBackend) RenderCrop(region models.BoundingBox, scale float64) (image.Image, error) {
	b.renders++
	w := int(math.Round(region.Width() * scale))
	h := int(math.Round(region.Height() * scale))
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

// regionList is a fixed-output region selector.
type regionList []models.BoundingBox

func (r regionList) RegionsForPage(page *models.Page) []models.BoundingBox { return r }

func testPage(cells ...models.Cell) *models.Page {
	return &models.Page{
		Number:  1,
		Width:   612,
		Height:  792,
		Cells:   cells,
		Backend: &fakeBackend{w: 612, h: 792},
	}
}

func TestNewStageDisabledNeverProbes(t *testing.T) {
	engine := &fakeEngine{probeErr: WrapOcrError("Probe", ErrEngineNotFound, "must not be called")}

	stage, err := NewStage(context.Background(), StageConfig{Enabled: false}, engine)
	if err != nil {
		t.Fatalf("NewStage() error = %v", err)
	}
	if engine.probeCount != 0 {
		t.Errorf("probe ran %d times for disabled stage, want 0", engine.probeCount)
	}

	pages := []*models.Page{
		testPage(models.NewTextCell(0, "a", models.NewBoundingBox(0, 0, 10, 10))),
		testPage(),
	}
	for _, page := range pages {
		before := len(page.Cells)
		if err := stage.ProcessPage(context.Background(), page); err != nil {
			t.Fatalf("ProcessPage() error = %v", err)
		}
		if len(page.Cells) != before {
			t.Errorf("disabled stage changed page %d cells: %d -> %d", page.Number, before, len(page.Cells))
		}
	}
	if len(engine.imagePaths) != 0 {
		t.Errorf("disabled stage invoked the engine %d times", len(engine.imagePaths))
	}
}

func TestNewStageEnabledProbeFailure(t *testing.T) {
	engine := &fakeEngine{probeErr: WrapOcrError("Probe", ErrEngineNotFound, "binary missing")}

	_, err := NewStage(context.Background(), StageConfig{Enabled: true}, engine)
	if err == nil {
		t.Fatal("NewStage() error = nil, want probe failure")
	}
	if !errors.Is(err, ErrEngineNotFound) {
		t.Errorf("NewStage() error = %v, want ErrEngineNotFound", err)
	}
}

func TestNewStageDisabledAllowsNilEngine(t *testing.T) {
	stage, err := NewStage(context.Background(), StageConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("NewStage() error = %v", err)
	}
	if stage.Enabled() {
		t.Error("Enabled() = true for disabled stage")
	}
	if err := stage.ProcessPage(context.Background(), testPage()); err != nil {
		t.Fatalf("ProcessPage() error = %v", err)
	}
}

func TestNewStageEnabledRequiresEngine(t *testing.T) {
	_, err := NewStage(context.Background(), StageConfig{Enabled: true}, nil)
	if err == nil {
		t.Fatal("NewStage() error = nil, want error for enabled stage without engine")
	}
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("NewStage() error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestStageSkipsDegenerateRegions(t *testing.T) {
	engine := &fakeEngine{}
	stage, err := NewStage(context.Background(), StageConfig{
		Enabled: true,
		Selector: regionList{
			models.NewBoundingBox(0, 0, 0, 0),     // zero area
			models.NewBoundingBox(40, 10, 10, 20), // inverted
			models.NewBoundingBox(0, 0, 50, 50),
		},
	}, engine)
	if err != nil {
		t.Fatalf("NewStage() error = %v", err)
	}

	if err := stage.ProcessPage(context.Background(), testPage()); err != nil {
		t.Fatalf("ProcessPage() error = %v", err)
	}
	if got := len(engine.imagePaths); got != 1 {
		t.Errorf("engine invoked %d times, want 1 (degenerate regions must be skipped)", got)
	}
}

func TestStagePassesThroughInvalidBackend(t *testing.T) {
	engine := &fakeEngine{}
	stage, err := NewStage(context.Background(), StageConfig{Enabled: true}, engine)
	if err != nil {
		t.Fatalf("NewStage() error = %v", err)
	}

	page := &models.Page{Number: 3, Width: 612, Height: 792, Backend: &fakeBackend{invalid: true}}
	if err := stage.ProcessPage(context.Background(), page); err != nil {
		t.Fatalf("ProcessPage() error = %v", err)
	}
	if len(page.Cells) != 0 || len(engine.imagePaths) != 0 {
		t.Error("page with invalid backend must pass through without engine invocations")
	}
}

func TestStageEndToEnd(t *testing.T) {
	engine := &fakeEngine{
		batches: [][]models.RawCell{{
			{Left: 30, Top: 30, Width: 60, Height: 15, Confidence: 87, Text: "Hello"},
		}},
	}
	stage, err := NewStage(context.Background(), StageConfig{
		Enabled:  true,
		Scale:    3,
		Selector: regionList{models.NewBoundingBox(0, 0, 100, 100)},
	}, engine)
	if err != nil {
		t.Fatalf("NewStage() error = %v", err)
	}

	existing := models.NewTextCell(0, "keep", models.NewBoundingBox(50, 50, 80, 60))
	page := testPage(existing)
	if err := stage.ProcessPage(context.Background(), page); err != nil {
		t.Fatalf("ProcessPage() error = %v", err)
	}

	if len(page.Cells) != 2 {
		t.Fatalf("page has %d cells, want 2", len(page.Cells))
	}
	if page.Cells[0] != existing {
		t.Errorf("existing cell was modified: %+v", page.Cells[0])
	}
	got := page.Cells[1]
	if got.Text != "Hello" || !got.FromOCR || got.ID != 0 {
		t.Errorf("OCR cell = %+v, want text Hello, FromOCR, ID 0", got)
	}
	if want := models.NewBoundingBox(10, 10, 30, 15); got.BBox != want {
		t.Errorf("OCR cell box = %+v, want %+v", got.BBox, want)
	}
	if got.Confidence != 0.87 {
		t.Errorf("OCR cell confidence = %v, want 0.87", got.Confidence)
	}
}

func TestStageAssignsIDsAcrossRegions(t *testing.T) {
	engine := &fakeEngine{
		batches: [][]models.RawCell{
			{
				{Left: 1, Top: 1, Width: 2, Height: 2, Confidence: 90, Text: "a"},
				{Left: 10, Top: 1, Width: 2, Height: 2, Confidence: 90, Text: "b"},
			},
			{
				{Left: 1, Top: 1, Width: 2, Height: 2, Confidence: 90, Text: "c"},
			},
		},
	}
	stage, err := NewStage(context.Background(), StageConfig{
		Enabled: true,
		Selector: regionList{
			models.NewBoundingBox(0, 0, 100, 100),
			models.NewBoundingBox(0, 200, 100, 300),
		},
	}, engine)
	if err != nil {
		t.Fatalf("NewStage() error = %v", err)
	}

	page := testPage()
	if err := stage.ProcessPage(context.Background(), page); err != nil {
		t.Fatalf("ProcessPage() error = %v", err)
	}
	if len(page.Cells) != 3 {
		t.Fatalf("page has %d cells, want 3", len(page.Cells))
	}
	for i, cell := range page.Cells {
		if cell.ID != i {
			t.Errorf("cell %d has ID %d, want page-scoped sequential IDs", i, cell.ID)
		}
	}
}

func TestStageAbortsPageOnEngineFailure(t *testing.T) {
	engine := &fakeEngine{
		batches: [][]models.RawCell{{
			{Left: 1, Top: 1, Width: 2, Height: 2, Confidence: 90, Text: "partial"},
		}},
		failOn: 2,
	}
	stage, err := NewStage(context.Background(), StageConfig{
		Enabled: true,
		Selector: regionList{
			models.NewBoundingBox(0, 0, 50, 50),
			models.NewBoundingBox(0, 60, 50, 100),
		},
	}, engine)
	if err != nil {
		t.Fatalf("NewStage() error = %v", err)
	}

	existing := models.NewTextCell(0, "keep", models.NewBoundingBox(400, 400, 500, 420))
	page := testPage(existing)
	err = stage.ProcessPage(context.Background(), page)
	if err == nil {
		t.Fatal("ProcessPage() error = nil, want engine failure to propagate")
	}
	if !errors.Is(err, ErrEngineExecution) {
		t.Errorf("ProcessPage() error = %v, want ErrEngineExecution", err)
	}
	// No partial commit: the first region's cells must not have landed.
	if len(page.Cells) != 1 || page.Cells[0] != existing {
		t.Errorf("page cells = %+v, want the original single cell", page.Cells)
	}
}

func TestStageRemovesTemporaryImages(t *testing.T) {
	tests := []struct {
		name   string
		failOn int
	}{
		{"after success", 0},
		{"after engine failure", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{failOn: tt.failOn}
			stage, err := NewStage(context.Background(), StageConfig{
				Enabled:  true,
				Selector: regionList{models.NewBoundingBox(0, 0, 50, 50)},
			}, engine)
			if err != nil {
				t.Fatalf("NewStage() error = %v", err)
			}

			_ = stage.ProcessPage(context.Background(), testPage())
			if len(engine.imagePaths) != 1 {
				t.Fatalf("engine invoked %d times, want 1", len(engine.imagePaths))
			}
			if _, err := os.Stat(engine.imagePaths[0]); !os.IsNotExist(err) {
				t.Errorf("temporary image %s still exists", engine.imagePaths[0])
			}
		})
	}
}

func TestStageDebugHook(t *testing.T) {
	engine := &fakeEngine{
		batches: [][]models.RawCell{{
			{Left: 3, Top: 3, Width: 9, Height: 3, Confidence: 75, Text: "dbg"},
		}},
	}
	stage, err := NewStage(context.Background(), StageConfig{
		Enabled:  true,
		Selector: regionList{models.NewBoundingBox(0, 0, 100, 100)},
	}, engine)
	if err != nil {
		t.Fatalf("NewStage() error = %v", err)
	}

	var hookRegions []models.BoundingBox
	var hookCells []models.Cell
	stage.SetDebugHook(func(page *models.Page, regions []models.BoundingBox, cells []models.Cell) {
		hookRegions = regions
		hookCells = cells
	})

	if err := stage.ProcessPage(context.Background(), testPage()); err != nil {
		t.Fatalf("ProcessPage() error = %v", err)
	}
	if len(hookRegions) != 1 || len(hookCells) != 1 {
		t.Errorf("debug hook saw %d regions and %d cells, want 1 and 1", len(hookRegions), len(hookCells))
	}
}

func TestStageDefaultSelectorSkipsPagesWithText(t *testing.T) {
	engine := &fakeEngine{}
	stage, err := NewStage(context.Background(), StageConfig{Enabled: true}, engine)
	if err != nil {
		t.Fatalf("NewStage() error = %v", err)
	}

	page := testPage(models.NewTextCell(0, "programmatic", models.NewBoundingBox(10, 10, 60, 22)))
	if err := stage.ProcessPage(context.Background(), page); err != nil {
		t.Fatalf("ProcessPage() error = %v", err)
	}
	if len(engine.imagePaths) != 0 {
		t.Errorf("engine invoked %d times for a page with text, want 0", len(engine.imagePaths))
	}
}
