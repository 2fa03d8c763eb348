package ocr

import (
	"testing"

	"github.com/simjak/docling/pkg/models"
)

func TestReconcileCells(t *testing.T) {
	existing := []models.Cell{
		models.NewTextCell(0, "programmatic", models.NewBoundingBox(0, 0, 50, 20)),
	}
	produced := []models.Cell{
		{ID: 1, Text: "outside", BBox: models.NewBoundingBox(60, 0, 100, 20), Confidence: 0.9, FromOCR: true},
		{ID: 2, Text: "inside", BBox: models.NewBoundingBox(10, 5, 30, 15), Confidence: 0.8, FromOCR: true},
	}

	merged := ReconcileCells(existing, produced)
	if len(merged) != 2 {
		t.Fatalf("ReconcileCells() returned %d cells, want 2", len(merged))
	}
	if merged[0].Text != "programmatic" {
		t.Errorf("merged[0].Text = %q, want existing cell first", merged[0].Text)
	}
	if merged[1].Text != "outside" {
		t.Errorf("merged[1].Text = %q, want %q", merged[1].Text, "outside")
	}
}

func TestReconcileCellsPreservesOrder(t *testing.T) {
	existing := []models.Cell{
		models.NewTextCell(0, "a", models.NewBoundingBox(0, 0, 10, 10)),
		models.NewTextCell(1, "b", models.NewBoundingBox(20, 0, 30, 10)),
	}
	produced := []models.Cell{
		{ID: 2, Text: "c", BBox: models.NewBoundingBox(40, 0, 50, 10), FromOCR: true},
		{ID: 3, Text: "d", BBox: models.NewBoundingBox(5, 5, 25, 8), FromOCR: true}, // overlaps a and b
		{ID: 4, Text: "e", BBox: models.NewBoundingBox(60, 0, 70, 10), FromOCR: true},
	}

	merged := ReconcileCells(existing, produced)
	want := []string{"a", "b", "c", "e"}
	if len(merged) != len(want) {
		t.Fatalf("ReconcileCells() returned %d cells, want %d", len(merged), len(want))
	}
	for i, text := range want {
		if merged[i].Text != text {
			t.Errorf("merged[%d].Text = %q, want %q", i, merged[i].Text, text)
		}
	}
}

func TestReconcileCellsTouchingEdgesKept(t *testing.T) {
	existing := []models.Cell{
		models.NewTextCell(0, "left", models.NewBoundingBox(0, 0, 50, 20)),
	}
	produced := []models.Cell{
		{ID: 1, Text: "adjacent", BBox: models.NewBoundingBox(50, 0, 80, 20), FromOCR: true},
	}

	merged := ReconcileCells(existing, produced)
	if len(merged) != 2 {
		t.Fatalf("ReconcileCells() returned %d cells, want 2 (touching edges do not overlap)", len(merged))
	}
}

func TestReconcileCellsEmptyExisting(t *testing.T) {
	produced := []models.Cell{
		{ID: 0, Text: "x", BBox: models.NewBoundingBox(0, 0, 10, 10), FromOCR: true},
		{ID: 1, Text: "y", BBox: models.NewBoundingBox(0, 0, 10, 10), FromOCR: true},
	}

	merged := ReconcileCells(nil, produced)
	if len(merged) != 2 {
		t.Fatalf("ReconcileCells() returned %d cells, want 2 (produced cells are not filtered against each other)", len(merged))
	}
}
