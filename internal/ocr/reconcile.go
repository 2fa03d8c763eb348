package ocr

import "github.com/simjak/docling/pkg/models"

// ReconcileCells merges OCR-produced cells into a page's existing cell set
// using a filter-then-append policy: a produced cell whose bounding box
// overlaps any existing cell (non-zero intersection area) is dropped, the
// survivors are appended after the existing cells. Order within each group
// is preserved; existing cells are never modified or reordered.
func ReconcileCells(existing, produced []models.Cell) []models.Cell {
	merged := make([]models.Cell, 0, len(existing)+len(produced))
	merged = append(merged, existing...)
	for _, cell := range produced {
		if overlapsAny(cell.BBox, existing) {
			continue
		}
		merged = append(merged, cell)
	}
	return merged
}

func overlapsAny(box models.BoundingBox, cells []models.Cell) bool {
	for _, cell := range cells {
		if box.Overlaps(cell.BBox) {
			return true
		}
	}
	return false
}
