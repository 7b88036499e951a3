// Package canvas owns the annotation drawing interaction: tool selection, the
// in-progress shape, finalization with the discard rules, and selection of
// existing shapes. Pointer events arrive in device space and are converted to
// image space through the mapper; finalized shapes are emitted as create
// requests through a typed callback, never persisted here.
package canvas

import (
	"go.uber.org/zap"

	"github.com/artifact-annotator/backend/internal/geometry"
	"github.com/artifact-annotator/backend/internal/models"
)

type phase int

const (
	phaseIdle phase = iota
	phaseDrawingRectangle
	phaseDrawingFreehand
)

// Draft is the shape currently under construction, rendered with the live
// style values rather than persisted ones.
type Draft struct {
	Type        models.AnnotationType
	Rect        geometry.Rect
	Stroke      geometry.Stroke
	StrokeColor string
	StrokeStyle models.StrokeStyle
	StrokeWidth int
}

// Canvas is the drawing state machine. All state changes flow through its
// transition methods; the rendering layer observes via the OnChange callback.
type Canvas struct {
	mapper   *geometry.Mapper
	style    *Style
	logger   *zap.Logger
	editable bool

	tool          Tool
	createPending bool

	phase  phase
	anchor geometry.Point
	rect   geometry.Rect
	stroke geometry.Stroke

	annotations []models.Annotation
	selectedID  string

	onCreate func(models.CreateAnnotationRequest)
	onSelect func(*models.Annotation)
	onChange func()

	mediaID string
}

// New creates a canvas for the given media image. A non-editable canvas still
// renders and selects shapes but fires no drawing transitions.
func New(mediaID string, mapper *geometry.Mapper, style *Style, logger *zap.Logger, editable bool) *Canvas {
	style.SetDisabled(!editable)
	return &Canvas{
		mapper:   mapper,
		style:    style,
		logger:   logger,
		editable: editable,
		mediaID:  mediaID,
	}
}

// OnCreate registers the callback receiving finalized shapes as create requests.
func (c *Canvas) OnCreate(fn func(models.CreateAnnotationRequest)) {
	c.onCreate = fn
}

// OnSelect registers the callback fired when the selection changes.
func (c *Canvas) OnSelect(fn func(*models.Annotation)) {
	c.onSelect = fn
}

// OnChange registers the render observer, fired after any state transition.
func (c *Canvas) OnChange(fn func()) {
	c.onChange = fn
}

func (c *Canvas) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

// SetAnnotations replaces the rendered shape list, normally from a repository
// observer. A selection pointing at a shape no longer in the list is cleared.
func (c *Canvas) SetAnnotations(annotations []models.Annotation) {
	c.annotations = annotations
	if c.selectedID != "" && c.find(c.selectedID) == nil {
		c.setSelected(nil)
	}
	c.notify()
}

// Annotations returns the current shape list.
func (c *Canvas) Annotations() []models.Annotation {
	return c.annotations
}

func (c *Canvas) find(id string) *models.Annotation {
	for i := range c.annotations {
		if c.annotations[i].ID == id {
			return &c.annotations[i]
		}
	}
	return nil
}

// SelectTool activates a drawing tool and clears any current selection.
// Ignored while the canvas is read-only or a create is still in flight.
func (c *Canvas) SelectTool(tool Tool) {
	if !c.editable || c.createPending {
		return
	}
	if tool != ToolNone && tool != ToolRectangle && tool != ToolFreehand {
		return
	}
	c.tool = tool
	c.setSelected(nil)
	c.notify()
}

// Tool returns the active drawing tool.
func (c *Canvas) Tool() Tool {
	return c.tool
}

// SetCreatePending marks a create request as in flight, locking tool
// selection until it settles. A drag already in progress is unaffected.
func (c *Canvas) SetCreatePending(pending bool) {
	c.createPending = pending
}

// CreatePending reports whether a create request is in flight.
func (c *Canvas) CreatePending() bool {
	return c.createPending
}

// PointerDown begins a drag at the given device-space position.
func (c *Canvas) PointerDown(device geometry.Point) {
	if !c.editable || c.tool == ToolNone || c.phase != phaseIdle {
		return
	}

	p := c.mapper.ToImage(device)
	c.setSelected(nil)

	switch c.tool {
	case ToolRectangle:
		c.phase = phaseDrawingRectangle
		c.anchor = p
		c.rect = geometry.Rect{X: p.X, Y: p.Y}
	case ToolFreehand:
		c.phase = phaseDrawingFreehand
		c.stroke = geometry.Stroke{}
		c.stroke.Append(p)
	}
	c.notify()
}

// PointerMove extends the in-progress shape with the current device-space
// position. Every move event contributes a freehand sample.
func (c *Canvas) PointerMove(device geometry.Point) {
	if c.phase == phaseIdle {
		return
	}

	p := c.mapper.ToImage(device)
	switch c.phase {
	case phaseDrawingRectangle:
		c.rect = geometry.RectFrom(c.anchor, p)
	case phaseDrawingFreehand:
		c.stroke.Append(p)
	}
	c.notify()
}

// PointerUp finalizes the in-progress shape. Degenerate shapes are dropped
// silently; surviving ones are emitted as create requests carrying the live
// style values. The canvas returns to idle either way.
func (c *Canvas) PointerUp() {
	if c.phase == phaseIdle {
		return
	}

	switch c.phase {
	case phaseDrawingRectangle:
		normalized := c.rect.Normalized()
		if normalized.TooSmall() {
			c.logger.Debug("Discarding undersized rectangle",
				zap.Float64("width", normalized.Width),
				zap.Float64("height", normalized.Height),
			)
			break
		}
		c.emit(models.TypeRectangle, models.RectGeometry(models.RectangleGeometry{
			X:      normalized.X,
			Y:      normalized.Y,
			Width:  normalized.Width,
			Height: normalized.Height,
		}))
	case phaseDrawingFreehand:
		if c.stroke.TooShort() {
			c.logger.Debug("Discarding short freehand stroke",
				zap.Int("points", c.stroke.Len()),
			)
			break
		}
		c.emit(models.TypeFreehand, models.StrokeGeometry(c.stroke.Points))
	}

	c.phase = phaseIdle
	c.rect = geometry.Rect{}
	c.stroke = geometry.Stroke{}
	c.notify()
}

// PointerLeave finalizes like a pointer-up; leaving the surface mid-drag ends
// the drag.
func (c *Canvas) PointerLeave() {
	c.PointerUp()
}

func (c *Canvas) emit(t models.AnnotationType, g models.Geometry) {
	if c.onCreate == nil {
		return
	}
	c.onCreate(models.CreateAnnotationRequest{
		MediaID:        c.mediaID,
		AnnotationType: t,
		Geometry:       g,
		StrokeColor:    c.style.StrokeColor(),
		StrokeStyle:    c.style.StrokeStyle(),
		StrokeWidth:    c.style.StrokeWidth(),
	})
}

// ClickShape selects an existing shape. Ignored while a tool is active so a
// drag over an existing shape does not steal the gesture. Works in read-only
// mode; selection is view state, not a mutation.
func (c *Canvas) ClickShape(id string) {
	if c.tool != ToolNone || c.phase != phaseIdle {
		return
	}
	ann := c.find(id)
	if ann == nil {
		return
	}
	c.setSelected(ann)
	c.notify()
}

// ClickEmpty clears the selection when the empty canvas area is clicked.
func (c *Canvas) ClickEmpty() {
	if c.tool != ToolNone || c.phase != phaseIdle {
		return
	}
	if c.selectedID == "" {
		return
	}
	c.setSelected(nil)
	c.notify()
}

func (c *Canvas) setSelected(ann *models.Annotation) {
	if ann == nil {
		c.selectedID = ""
	} else {
		c.selectedID = ann.ID
	}
	if c.onSelect != nil {
		c.onSelect(ann)
	}
}

// Selected returns the currently selected annotation, nil when none.
func (c *Canvas) Selected() *models.Annotation {
	if c.selectedID == "" {
		return nil
	}
	return c.find(c.selectedID)
}

// SelectedID returns the id of the selected annotation, empty when none.
func (c *Canvas) SelectedID() string {
	return c.selectedID
}

// Draft returns the shape under construction styled with the live style
// values, or nil when no drag is in progress.
func (c *Canvas) Draft() *Draft {
	switch c.phase {
	case phaseDrawingRectangle:
		return &Draft{
			Type:        models.TypeRectangle,
			Rect:        c.rect,
			StrokeColor: c.style.StrokeColor(),
			StrokeStyle: c.style.StrokeStyle(),
			StrokeWidth: c.style.StrokeWidth(),
		}
	case phaseDrawingFreehand:
		return &Draft{
			Type:        models.TypeFreehand,
			Stroke:      c.stroke,
			StrokeColor: c.style.StrokeColor(),
			StrokeStyle: c.style.StrokeStyle(),
			StrokeWidth: c.style.StrokeWidth(),
		}
	default:
		return nil
	}
}
