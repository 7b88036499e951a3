package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/artifact-annotator/backend/internal/geometry"
	"github.com/artifact-annotator/backend/internal/models"
)

func newTestCanvas(t *testing.T, editable bool) (*Canvas, *[]models.CreateAnnotationRequest) {
	t.Helper()

	mapper := geometry.NewMapper()
	mapper.Fit(1000, 800, 500, 700) // scale 0.5

	c := New("media-1", mapper, NewStyle(), zap.NewNop(), editable)

	var created []models.CreateAnnotationRequest
	c.OnCreate(func(req models.CreateAnnotationRequest) {
		created = append(created, req)
	})

	return c, &created
}

func TestCanvas_RectangleDrag(t *testing.T) {
	c, created := newTestCanvas(t, true)
	c.SelectTool(ToolRectangle)

	c.PointerDown(geometry.Point{X: 100, Y: 100})
	c.PointerMove(geometry.Point{X: 200, Y: 180})
	c.PointerMove(geometry.Point{X: 300, Y: 250})
	c.PointerUp()

	assert.Len(t, *created, 1)
	req := (*created)[0]
	assert.Equal(t, "media-1", req.MediaID)
	assert.Equal(t, models.TypeRectangle, req.AnnotationType)
	assert.Equal(t, &models.RectangleGeometry{X: 200, Y: 200, Width: 400, Height: 300}, req.Geometry.Rectangle)
}

func TestCanvas_RectangleDrag_ReverseDirection(t *testing.T) {
	c, created := newTestCanvas(t, true)
	c.SelectTool(ToolRectangle)

	// Bottom-right to top-left produces the same rectangle.
	c.PointerDown(geometry.Point{X: 300, Y: 250})
	c.PointerMove(geometry.Point{X: 100, Y: 100})
	c.PointerUp()

	assert.Len(t, *created, 1)
	assert.Equal(t, &models.RectangleGeometry{X: 200, Y: 200, Width: 400, Height: 300}, (*created)[0].Geometry.Rectangle)
}

func TestCanvas_RectangleDiscardedWhenTooSmall(t *testing.T) {
	c, created := newTestCanvas(t, true)
	c.SelectTool(ToolRectangle)

	// 4x20 image-space pixels: under the threshold on one side.
	c.PointerDown(geometry.Point{X: 100, Y: 100})
	c.PointerMove(geometry.Point{X: 102, Y: 110})
	c.PointerUp()

	assert.Empty(t, *created)
	assert.Nil(t, c.Draft(), "canvas must return to idle after a discard")
}

func TestCanvas_FreehandStroke(t *testing.T) {
	c, created := newTestCanvas(t, true)
	c.SelectTool(ToolFreehand)

	c.PointerDown(geometry.Point{X: 10, Y: 10})
	c.PointerMove(geometry.Point{X: 20, Y: 20})
	c.PointerMove(geometry.Point{X: 30, Y: 25})
	c.PointerUp()

	assert.Len(t, *created, 1)
	req := (*created)[0]
	assert.Equal(t, models.TypeFreehand, req.AnnotationType)
	// Device points divided by scale 0.5
	assert.Equal(t, []float64{20, 20, 40, 40, 60, 50}, req.Geometry.Freehand.Points)
}

func TestCanvas_FreehandDiscardedWithTwoPoints(t *testing.T) {
	c, created := newTestCanvas(t, true)
	c.SelectTool(ToolFreehand)

	c.PointerDown(geometry.Point{X: 10, Y: 10})
	c.PointerMove(geometry.Point{X: 20, Y: 20})
	c.PointerUp()

	assert.Empty(t, *created)
}

func TestCanvas_PointerLeaveFinalizes(t *testing.T) {
	c, created := newTestCanvas(t, true)
	c.SelectTool(ToolRectangle)

	c.PointerDown(geometry.Point{X: 0, Y: 0})
	c.PointerMove(geometry.Point{X: 100, Y: 100})
	c.PointerLeave()

	assert.Len(t, *created, 1)
}

func TestCanvas_DraftCarriesLiveStyle(t *testing.T) {
	c, _ := newTestCanvas(t, true)
	style := c.style
	style.SetStrokeColor("#00ff00")
	style.SetStrokeStyle(models.StrokeDashed)
	style.SetStrokeWidth(7)

	c.SelectTool(ToolRectangle)
	c.PointerDown(geometry.Point{X: 0, Y: 0})
	c.PointerMove(geometry.Point{X: 50, Y: 50})

	draft := c.Draft()
	assert.NotNil(t, draft)
	assert.Equal(t, "#00ff00", draft.StrokeColor)
	assert.Equal(t, models.StrokeDashed, draft.StrokeStyle)
	assert.Equal(t, 7, draft.StrokeWidth)
}

func TestCanvas_CreatedShapeCarriesStyle(t *testing.T) {
	c, created := newTestCanvas(t, true)
	c.style.SetStrokeColor("#123456")
	c.style.SetStrokeWidth(5)

	c.SelectTool(ToolRectangle)
	c.PointerDown(geometry.Point{X: 0, Y: 0})
	c.PointerMove(geometry.Point{X: 100, Y: 100})
	c.PointerUp()

	assert.Len(t, *created, 1)
	assert.Equal(t, "#123456", (*created)[0].StrokeColor)
	assert.Equal(t, 5, (*created)[0].StrokeWidth)
}

func TestCanvas_ReadOnlyFiresNoTransitions(t *testing.T) {
	c, created := newTestCanvas(t, false)

	c.SelectTool(ToolRectangle)
	assert.Equal(t, ToolNone, c.Tool())

	c.PointerDown(geometry.Point{X: 0, Y: 0})
	c.PointerMove(geometry.Point{X: 100, Y: 100})
	c.PointerUp()

	assert.Empty(t, *created)
	assert.Nil(t, c.Draft())
}

func TestCanvas_ReadOnlyStillSelects(t *testing.T) {
	c, _ := newTestCanvas(t, false)
	c.SetAnnotations([]models.Annotation{{ID: "a1", AnnotationType: models.TypeRectangle}})

	c.ClickShape("a1")
	assert.Equal(t, "a1", c.SelectedID())
}

func TestCanvas_SelectionExclusivity(t *testing.T) {
	c, _ := newTestCanvas(t, true)
	c.SetAnnotations([]models.Annotation{
		{ID: "x", AnnotationType: models.TypeRectangle},
		{ID: "y", AnnotationType: models.TypeRectangle},
	})

	c.ClickShape("y")
	assert.Equal(t, "y", c.SelectedID())

	c.ClickShape("x")
	assert.Equal(t, "x", c.SelectedID())
	assert.NotNil(t, c.Selected())
	assert.Equal(t, "x", c.Selected().ID)
}

func TestCanvas_ClickEmptyClearsSelection(t *testing.T) {
	c, _ := newTestCanvas(t, true)
	c.SetAnnotations([]models.Annotation{{ID: "a1", AnnotationType: models.TypeRectangle}})

	c.ClickShape("a1")
	assert.Equal(t, "a1", c.SelectedID())

	c.ClickEmpty()
	assert.Empty(t, c.SelectedID())
	assert.Nil(t, c.Selected())
}

func TestCanvas_ToolSelectionClearsSelection(t *testing.T) {
	c, _ := newTestCanvas(t, true)
	c.SetAnnotations([]models.Annotation{{ID: "a1", AnnotationType: models.TypeRectangle}})

	c.ClickShape("a1")
	c.SelectTool(ToolFreehand)

	assert.Empty(t, c.SelectedID())
}

func TestCanvas_ClickShapeIgnoredWhileToolActive(t *testing.T) {
	c, _ := newTestCanvas(t, true)
	c.SetAnnotations([]models.Annotation{{ID: "a1", AnnotationType: models.TypeRectangle}})

	c.SelectTool(ToolRectangle)
	c.ClickShape("a1")

	assert.Empty(t, c.SelectedID())
}

func TestCanvas_PendingCreateLocksToolSelection(t *testing.T) {
	c, _ := newTestCanvas(t, true)

	c.SetCreatePending(true)
	c.SelectTool(ToolRectangle)
	assert.Equal(t, ToolNone, c.Tool())

	c.SetCreatePending(false)
	c.SelectTool(ToolRectangle)
	assert.Equal(t, ToolRectangle, c.Tool())
}

func TestCanvas_SetAnnotationsDropsStaleSelection(t *testing.T) {
	c, _ := newTestCanvas(t, true)
	c.SetAnnotations([]models.Annotation{{ID: "a1", AnnotationType: models.TypeRectangle}})
	c.ClickShape("a1")

	c.SetAnnotations([]models.Annotation{{ID: "a2", AnnotationType: models.TypeRectangle}})

	assert.Empty(t, c.SelectedID())
}

func TestCanvas_OnSelectCallback(t *testing.T) {
	c, _ := newTestCanvas(t, true)
	c.SetAnnotations([]models.Annotation{{ID: "a1", AnnotationType: models.TypeRectangle}})

	var selected []*models.Annotation
	c.OnSelect(func(a *models.Annotation) {
		selected = append(selected, a)
	})

	c.ClickShape("a1")
	c.ClickEmpty()

	assert.Len(t, selected, 2)
	assert.Equal(t, "a1", selected[0].ID)
	assert.Nil(t, selected[1])
}

func TestCanvas_OnChangeFiredOnTransitions(t *testing.T) {
	c, _ := newTestCanvas(t, true)

	var changes int
	c.OnChange(func() { changes++ })

	c.SelectTool(ToolRectangle)
	c.PointerDown(geometry.Point{X: 0, Y: 0})
	c.PointerMove(geometry.Point{X: 100, Y: 100})
	c.PointerUp()

	assert.Equal(t, 4, changes)
}

func TestStyle_StrokeWidthClamped(t *testing.T) {
	s := NewStyle()

	s.SetStrokeWidth(0)
	assert.Equal(t, models.MinStrokeWidth, s.StrokeWidth())

	s.SetStrokeWidth(25)
	assert.Equal(t, models.MaxStrokeWidth, s.StrokeWidth())

	s.SetStrokeWidth(4)
	assert.Equal(t, 4, s.StrokeWidth())
}

func TestStyle_DisabledIgnoresSetters(t *testing.T) {
	s := NewStyle()
	s.SetDisabled(true)

	s.SetStrokeColor("#000000")
	s.SetStrokeStyle(models.StrokeDashed)
	s.SetStrokeWidth(9)

	assert.Equal(t, "#ef4444", s.StrokeColor())
	assert.Equal(t, models.StrokeSolid, s.StrokeStyle())
	assert.Equal(t, 3, s.StrokeWidth())
}

func TestStyle_InvalidStrokeStyleIgnored(t *testing.T) {
	s := NewStyle()
	s.SetStrokeStyle("dotted")
	assert.Equal(t, models.StrokeSolid, s.StrokeStyle())
}

func TestDashPattern(t *testing.T) {
	assert.Nil(t, DashPattern(models.StrokeSolid))
	assert.Equal(t, []float64{10, 5}, DashPattern(models.StrokeDashed))
}
