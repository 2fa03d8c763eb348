// Package backend provides page-rendering backends for the conversion
// pipeline. A backend wraps a loaded source document and renders arbitrary
// page-space regions as supersampled images for OCR (see models.PageBackend).
package backend

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/simjak/docling/pkg/models"
)

// ErrBackendInvalid is returned when a backend cannot be constructed from
// the given input or has nothing to render.
var ErrBackendInvalid = errors.New("page rendering backend is invalid")

// rasterExtensions are the input formats the raster backend decodes.
var rasterExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

// Open constructs a backend for the file at path, chosen by extension.
// Scanned page images open as a raster backend.
func Open(path string) (models.PageBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !rasterExtensions[ext] {
		return nil, fmt.Errorf("%w: unsupported input format %q", ErrBackendInvalid, ext)
	}
	return NewRaster(path)
}
