package models

import "image"

// PageBackend renders page content for OCR. Implementations wrap whatever
// produced the page (a rasterized scan, a PDF renderer) and must be able to
// render an arbitrary page-space region at a supersampling scale.
type PageBackend interface {
	// IsValid reports whether the backend can render. Pages with an invalid
	// backend pass through the pipeline untouched.
	IsValid() bool

	// Size returns the page extent in page-space units.
	Size() (width, height float64)

	// RenderCrop renders the page-space region at scale times the page's
	// native resolution. The returned image has the region's dimensions
	// multiplied by scale (rounded to whole pixels).
	RenderCrop(region BoundingBox, scale float64) (image.Image, error)
}

// Page is a single page moving through the conversion pipeline. Cells is an
// ordered collection: programmatic text-layer cells first (in extraction
// order), OCR cells appended by the OCR stage per its reconciliation policy.
type Page struct {
	// Number is the 1-based page number within the source document.
	Number int `json:"number"`

	// Width and Height are the page dimensions in page-space units.
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Cells []Cell `json:"cells"`

	// Backend renders the page for OCR; nil means no renderer is attached.
	Backend PageBackend `json:"-"`
}

// Bounds returns the page's full extent as a page-space bounding box.
func (p *Page) Bounds() BoundingBox {
	return BoundingBox{L: 0, T: 0, R: p.Width, B: p.Height}
}

// HasValidBackend reports whether the page can be rendered.
func (p *Page) HasValidBackend() bool {
	return p.Backend != nil && p.Backend.IsValid()
}
