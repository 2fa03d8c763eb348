package backend

import (
	"fmt"
	"image"
	"math"
	"os"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/simjak/docling/internal/logger"
	"github.com/simjak/docling/pkg/models"

	// Register decoders for scan formats beyond the stdlib's PNG/JPEG.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Raster renders crops from a decoded page image. One raster image is one
// page; page-space units are the image's native pixels, so a region maps
// onto the image directly and supersampling is a resize.
type Raster struct {
	img    image.Image
	width  float64
	height float64
	log    zerolog.Logger
}

// NewRaster loads the image file at path as a page backend.
func NewRaster(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendInvalid, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrBackendInvalid, path, err)
	}

	r := NewRasterFromImage(img)
	r.log.Debug().
		Str("file", path).
		Str("format", format).
		Float64("width", r.width).
		Float64("height", r.height).
		Msg("Loaded raster page")
	return r, nil
}

// NewRasterFromImage wraps an already decoded image as a page backend.
func NewRasterFromImage(img image.Image) *Raster {
	bounds := img.Bounds()
	return &Raster{
		img:    img,
		width:  float64(bounds.Dx()),
		height: float64(bounds.Dy()),
		log:    logger.WithComponent("backend-raster"),
	}
}

// IsValid reports whether the backend holds a renderable page.
func (r *Raster) IsValid() bool {
	return r != nil && r.img != nil && r.width > 0 && r.height > 0
}

// Size returns the page extent in page-space units (native pixels).
func (r *Raster) Size() (float64, float64) {
	return r.width, r.height
}

// RenderCrop cuts the page-space region out of the page image and resizes it
// by scale. The result has round(width*scale) x round(height*scale) pixels;
// Lanczos resampling keeps glyph edges sharp for the recognizer.
func (r *Raster) RenderCrop(region models.BoundingBox, scale float64) (image.Image, error) {
	targetW := int(math.Round(region.Width() * scale))
	targetH := int(math.Round(region.Height() * scale))
	if targetW < 1 || targetH < 1 {
		return nil, fmt.Errorf("render crop: region (%.1f, %.1f, %.1f, %.1f) at scale %g is empty",
			region.L, region.T, region.R, region.B, scale)
	}

	rect := image.Rect(
		int(math.Round(region.L)),
		int(math.Round(region.T)),
		int(math.Round(region.R)),
		int(math.Round(region.B)),
	)
	cropped := imaging.Crop(r.img, rect)
	if scale == 1 {
		return cropped, nil
	}
	return imaging.Resize(cropped, targetW, targetH, imaging.Lanczos), nil
}
