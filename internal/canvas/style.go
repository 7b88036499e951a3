package canvas

import "github.com/artifact-annotator/backend/internal/models"

// Tool identifies the active drawing tool.
type Tool string

const (
	ToolNone      Tool = ""
	ToolRectangle Tool = "rectangle"
	ToolFreehand  Tool = "freehand"
)

// Style holds the stroke configuration shared between the drawing tool and
// the rendering of the shape under construction. All setters are no-ops while
// the style is disabled (read-only editor).
type Style struct {
	strokeColor string
	strokeStyle models.StrokeStyle
	strokeWidth int
	disabled    bool
}

// NewStyle returns a style with the editor defaults.
func NewStyle() *Style {
	return &Style{
		strokeColor: "#ef4444",
		strokeStyle: models.StrokeSolid,
		strokeWidth: 3,
	}
}

// SetDisabled toggles read-only mode for the style controls.
func (s *Style) SetDisabled(disabled bool) {
	s.disabled = disabled
}

// Disabled reports whether the style controls are read-only.
func (s *Style) Disabled() bool {
	return s.disabled
}

// SetStrokeColor sets the stroke color. Any color string is accepted.
func (s *Style) SetStrokeColor(color string) {
	if s.disabled {
		return
	}
	s.strokeColor = color
}

// SetStrokeStyle sets solid or dashed rendering; other values are ignored.
func (s *Style) SetStrokeStyle(style models.StrokeStyle) {
	if s.disabled {
		return
	}
	if style != models.StrokeSolid && style != models.StrokeDashed {
		return
	}
	s.strokeStyle = style
}

// SetStrokeWidth sets the stroke width, clamped to the allowed range.
func (s *Style) SetStrokeWidth(width int) {
	if s.disabled {
		return
	}
	if width < models.MinStrokeWidth {
		width = models.MinStrokeWidth
	}
	if width > models.MaxStrokeWidth {
		width = models.MaxStrokeWidth
	}
	s.strokeWidth = width
}

func (s *Style) StrokeColor() string             { return s.strokeColor }
func (s *Style) StrokeStyle() models.StrokeStyle { return s.strokeStyle }
func (s *Style) StrokeWidth() int                { return s.strokeWidth }

// DashPattern returns the dash segments for a stroke style, nil for solid.
func DashPattern(style models.StrokeStyle) []float64 {
	if style == models.StrokeDashed {
		return []float64{10, 5}
	}
	return nil
}
