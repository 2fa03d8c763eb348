package ocr

import (
	"testing"

	"github.com/simjak/docling/pkg/models"
)

func TestCoverageSelector(t *testing.T) {
	withText := &models.Page{
		Number: 1,
		Width:  612,
		Height: 792,
		Cells: []models.Cell{
			models.NewTextCell(0, "hello", models.NewBoundingBox(10, 10, 60, 22)),
		},
	}
	blank := &models.Page{Number: 2, Width: 612, Height: 792}

	tests := []struct {
		name     string
		selector CoverageSelector
		page     *models.Page
		want     int
	}{
		{"page with text yields nothing", CoverageSelector{}, withText, 0},
		{"blank page yields full page", CoverageSelector{}, blank, 1},
		{"force overrides text heuristic", CoverageSelector{ForceFullPage: true}, withText, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regions := tt.selector.RegionsForPage(tt.page)
			if len(regions) != tt.want {
				t.Fatalf("RegionsForPage() returned %d regions, want %d", len(regions), tt.want)
			}
			if tt.want == 1 && regions[0] != tt.page.Bounds() {
				t.Errorf("RegionsForPage() = %+v, want page bounds %+v", regions[0], tt.page.Bounds())
			}
		})
	}
}
