package models

import "math"

// BoundingBox is an axis-aligned rectangle in page-space coordinates with the
// origin in the top-left corner: L grows rightwards, T grows downwards.
// A valid box has L < R and T < B; zero-area boxes are legal but inert.
type BoundingBox struct {
	L float64 `json:"l"`
	T float64 `json:"t"`
	R float64 `json:"r"`
	B float64 `json:"b"`
}

// NewBoundingBox creates a bounding box from left/top/right/bottom coordinates.
func NewBoundingBox(l, t, r, b float64) BoundingBox {
	return BoundingBox{L: l, T: t, R: r, B: b}
}

// Width returns the horizontal extent of the box.
func (b BoundingBox) Width() float64 {
	return b.R - b.L
}

// Height returns the vertical extent of the box.
func (b BoundingBox) Height() float64 {
	return b.B - b.T
}

// Area returns the area of the box. Degenerate boxes yield zero or less.
func (b BoundingBox) Area() float64 {
	return b.Width() * b.Height()
}

// IsEmpty reports whether the box covers no area.
func (b BoundingBox) IsEmpty() bool {
	return b.Area() <= 0
}

// Intersection returns the overlapping rectangle of two boxes. When the boxes
// do not overlap the result is a degenerate box with non-positive area.
func (b BoundingBox) Intersection(other BoundingBox) BoundingBox {
	return BoundingBox{
		L: math.Max(b.L, other.L),
		T: math.Max(b.T, other.T),
		R: math.Min(b.R, other.R),
		B: math.Min(b.B, other.B),
	}
}

// IntersectionArea returns the area shared by two boxes, zero if disjoint.
func (b BoundingBox) IntersectionArea(other BoundingBox) float64 {
	i := b.Intersection(other)
	if i.Width() <= 0 || i.Height() <= 0 {
		return 0
	}
	return i.Area()
}

// Overlaps reports whether two boxes share a non-zero intersection area.
// Boxes that merely touch along an edge or corner do not overlap.
func (b BoundingBox) Overlaps(other BoundingBox) bool {
	return b.IntersectionArea(other) > 0
}

// Union returns the smallest box containing both boxes.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	return BoundingBox{
		L: math.Min(b.L, other.L),
		T: math.Min(b.T, other.T),
		R: math.Max(b.R, other.R),
		B: math.Max(b.B, other.B),
	}
}

// Scaled returns the box with every coordinate multiplied by factor.
func (b BoundingBox) Scaled(factor float64) BoundingBox {
	return BoundingBox{L: b.L * factor, T: b.T * factor, R: b.R * factor, B: b.B * factor}
}

// Translated returns the box shifted by (dx, dy).
func (b BoundingBox) Translated(dx, dy float64) BoundingBox {
	return BoundingBox{L: b.L + dx, T: b.T + dy, R: b.R + dx, B: b.B + dy}
}
