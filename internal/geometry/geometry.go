// Package geometry provides the shape primitives for image annotations: the
// coordinate-space mapper between device and native image pixels, rectangle
// normalization, and the discard rules for degenerate shapes.
package geometry

import "math"

// Shapes below these bounds are dropped on finalize rather than persisted.
const (
	// minRectSide is the largest side length (in image-space pixels) at which
	// a finalized rectangle is still considered accidental.
	minRectSide = 5

	// minStrokeSamples is the minimum flat-sequence length (x/y numbers) for
	// a freehand stroke to survive finalization: 3 points.
	minStrokeSamples = 6
)

// Point is a position in either device or image space; the mapper converts
// between the two.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle. Width and height may be negative while a
// drag is in progress; Normalized removes the sign before persistence.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// RectFrom builds the live rectangle spanned by a drag anchor and the current
// pointer position, both in image space. Width/height carry the drag direction
// as sign.
func RectFrom(anchor, current Point) Rect {
	return Rect{
		X:      anchor.X,
		Y:      anchor.Y,
		Width:  current.X - anchor.X,
		Height: current.Y - anchor.Y,
	}
}

// Normalized returns the canonical form of the rectangle with non-negative
// width and height. Applying it to an already-normalized rectangle is a no-op.
func (r Rect) Normalized() Rect {
	n := r
	if n.Width < 0 {
		n.X += n.Width
		n.Width = math.Abs(n.Width)
	}
	if n.Height < 0 {
		n.Y += n.Height
		n.Height = math.Abs(n.Height)
	}
	return n
}

// TooSmall reports whether a normalized rectangle falls under the discard
// threshold. Shapes at exactly the threshold are discarded; the boundary for
// keeping is strictly greater than minRectSide on both sides.
func (r Rect) TooSmall() bool {
	return r.Width <= minRectSide || r.Height <= minRectSide
}

// Stroke is a freehand sample sequence in image space, stored as alternating
// x/y numbers. Every pointer-move sample is kept; no decimation is applied.
type Stroke struct {
	Points []float64
}

// Append adds a sample to the end of the stroke.
func (s *Stroke) Append(p Point) {
	s.Points = append(s.Points, p.X, p.Y)
}

// Len returns the number of complete points recorded.
func (s *Stroke) Len() int {
	return len(s.Points) / 2
}

// TooShort reports whether the stroke has fewer than three recorded points
// and should be discarded on finalize.
func (s *Stroke) TooShort() bool {
	return len(s.Points) < minStrokeSamples
}
