package ocr

import "github.com/simjak/docling/pkg/models"

// RegionSelector decides which parts of a page are handed to the OCR engine.
// Regions use page-space coordinates with the origin at the top-left.
type RegionSelector interface {
	RegionsForPage(page *models.Page) []models.BoundingBox
}

// CoverageSelector is the default selection policy: pages that already carry
// text cells are left alone, pages without any (typical for scanned
// documents) are recognized in full. ForceFullPage skips the heuristic and
// always selects the whole page.
type CoverageSelector struct {
	ForceFullPage bool
}

// RegionsForPage returns the full page rectangle for pages that need OCR and
// nothing for pages that do not.
func (s CoverageSelector) RegionsForPage(page *models.Page) []models.BoundingBox {
	if !s.ForceFullPage && len(page.Cells) > 0 {
		return nil
	}
	return []models.BoundingBox{page.Bounds()}
}
