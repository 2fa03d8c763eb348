package models

// RawCell is a single recognized span exactly as an OCR engine reported it:
// pixel geometry in the coordinate space of the scaled crop image that was
// handed to the engine, and a confidence on the engine's native 0-100 scale.
type RawCell struct {
	// Left and Top are the upper-left corner of the span in crop pixels.
	Left float64
	Top  float64

	// Width and Height are the span extents in crop pixels.
	Width  float64
	Height float64

	// Confidence is the engine-reported recognition confidence, 0-100.
	Confidence float64

	// Text is the recognized content. Parsers drop spans whose text is empty
	// or whitespace-only before they reach this type's consumers.
	Text string
}

// PageBox maps the raw crop-pixel geometry back into page space. The crop was
// rendered at scale times the page's native resolution from the page-space
// region, so each coordinate is divided by scale and offset by the region
// origin. The transform is exact under float64; no rounding is applied.
func (r RawCell) PageBox(region BoundingBox, scale float64) BoundingBox {
	right := r.Left + r.Width
	bottom := r.Top + r.Height
	return BoundingBox{
		L: r.Left/scale + region.L,
		T: r.Top/scale + region.T,
		R: right/scale + region.L,
		B: bottom/scale + region.T,
	}
}

// Cell is a text span on a page with a page-space bounding box. Cells come
// from two sources: the document's programmatic text layer, or OCR. Cells are
// never mutated after creation.
type Cell struct {
	// ID is unique within its producing pass (text extraction or one page's
	// OCR run); IDs from different sources may collide.
	ID int `json:"id"`

	Text string      `json:"text"`
	BBox BoundingBox `json:"bbox"`

	// Confidence is normalized to [0,1]. Programmatic cells carry 1.
	Confidence float64 `json:"confidence"`

	// FromOCR marks cells produced by an OCR pass.
	FromOCR bool `json:"from_ocr,omitempty"`
}

// NewTextCell creates a programmatic (text-layer) cell with full confidence.
func NewTextCell(id int, text string, bbox BoundingBox) Cell {
	return Cell{ID: id, Text: text, BBox: bbox, Confidence: 1}
}

// NewOcrCell builds a page-space OCR cell from an engine row. The raw 0-100
// confidence is normalized to [0,1] and the geometry is mapped out of the
// scaled crop space of region.
func NewOcrCell(id int, raw RawCell, region BoundingBox, scale float64) Cell {
	return Cell{
		ID:         id,
		Text:       raw.Text,
		BBox:       raw.PageBox(region, scale),
		Confidence: raw.Confidence / 100.0,
		FromOCR:    true,
	}
}
