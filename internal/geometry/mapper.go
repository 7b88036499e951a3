package geometry

// Mapper converts between device space (the rendered, possibly scaled-down
// surface) and image space (the source image's native pixel dimensions). All
// geometry is stored in image space; only rendering and pointer-event reading
// operate in device space.
type Mapper struct {
	scale   float64
	nativeW float64
	nativeH float64
}

// NewMapper returns a mapper with identity scale, used until the image loads.
func NewMapper() *Mapper {
	return &Mapper{scale: 1}
}

// FitScale computes the display scale that fits both image dimensions inside
// the container without upscaling beyond native resolution.
func FitScale(nativeW, nativeH, containerW, maxH float64) float64 {
	if nativeW <= 0 || nativeH <= 0 {
		return 1
	}
	scale := containerW / nativeW
	if s := maxH / nativeH; s < scale {
		scale = s
	}
	if scale > 1 {
		scale = 1
	}
	return scale
}

// Fit recomputes the cached scale for the given image and container
// dimensions. Called when the image loads or the viewport resizes.
func (m *Mapper) Fit(nativeW, nativeH, containerW, maxH float64) {
	m.nativeW = nativeW
	m.nativeH = nativeH
	m.scale = FitScale(nativeW, nativeH, containerW, maxH)
}

// Scale returns the current display scale.
func (m *Mapper) Scale() float64 {
	return m.scale
}

// DisplaySize returns the on-screen size of the image at the current scale.
func (m *Mapper) DisplaySize() (width, height float64) {
	return m.nativeW * m.scale, m.nativeH * m.scale
}

// ToImage converts a device-space point to image space.
func (m *Mapper) ToImage(p Point) Point {
	return Point{X: p.X / m.scale, Y: p.Y / m.scale}
}

// ToDevice converts an image-space point to device space.
func (m *Mapper) ToDevice(p Point) Point {
	return Point{X: p.X * m.scale, Y: p.Y * m.scale}
}
