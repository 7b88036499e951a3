// Package models contains the data models for the application.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// AnnotationType discriminates the geometry payload of an annotation.
type AnnotationType string

const (
	TypeRectangle AnnotationType = "rectangle"
	TypeFreehand  AnnotationType = "freehand"
)

// StrokeStyle is the line style used when rendering an annotation.
type StrokeStyle string

const (
	StrokeSolid  StrokeStyle = "solid"
	StrokeDashed StrokeStyle = "dashed"
)

// Stroke width bounds enforced on create and update.
const (
	MinStrokeWidth = 1
	MaxStrokeWidth = 10
)

// RectangleGeometry is an axis-aligned box in the image's native pixel space.
// Width and height are never negative once persisted.
type RectangleGeometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Validate checks the persisted-form invariants of a rectangle.
func (g *RectangleGeometry) Validate() error {
	if g.Width < 0 || g.Height < 0 {
		return fmt.Errorf("rectangle width and height must be non-negative")
	}
	return nil
}

// FreehandGeometry is an ordered flat sequence of alternating x/y samples in
// the image's native pixel space.
type FreehandGeometry struct {
	Points []float64 `json:"points"`
}

// Validate checks that the stroke has at least two complete points.
func (g *FreehandGeometry) Validate() error {
	if len(g.Points)%2 != 0 {
		return fmt.Errorf("freehand points must contain complete x/y pairs")
	}
	if len(g.Points) < 4 {
		return fmt.Errorf("freehand stroke requires at least 2 points")
	}
	return nil
}

// Geometry is the tagged union of the shape payloads. Exactly one member is
// set; the discriminator lives in the surrounding annotation_type field.
type Geometry struct {
	Rectangle *RectangleGeometry
	Freehand  *FreehandGeometry
}

// RectGeometry wraps a rectangle payload in a Geometry.
func RectGeometry(g RectangleGeometry) Geometry {
	return Geometry{Rectangle: &g}
}

// StrokeGeometry wraps a freehand payload in a Geometry.
func StrokeGeometry(points []float64) Geometry {
	return Geometry{Freehand: &FreehandGeometry{Points: points}}
}

// Validate checks that the geometry matches the declared type and holds its
// shape invariants.
func (g Geometry) Validate(t AnnotationType) error {
	switch t {
	case TypeRectangle:
		if g.Rectangle == nil {
			return fmt.Errorf("rectangle annotation requires rectangle geometry")
		}
		return g.Rectangle.Validate()
	case TypeFreehand:
		if g.Freehand == nil {
			return fmt.Errorf("freehand annotation requires freehand geometry")
		}
		return g.Freehand.Validate()
	default:
		return fmt.Errorf("invalid annotation type %q", t)
	}
}

// marshalGeometry encodes whichever member of the union matches the type.
func marshalGeometry(t AnnotationType, g Geometry) (json.RawMessage, error) {
	switch t {
	case TypeRectangle:
		if g.Rectangle == nil {
			return nil, fmt.Errorf("missing rectangle geometry")
		}
		return json.Marshal(g.Rectangle)
	case TypeFreehand:
		if g.Freehand == nil {
			return nil, fmt.Errorf("missing freehand geometry")
		}
		return json.Marshal(g.Freehand)
	default:
		return nil, fmt.Errorf("invalid annotation type %q", t)
	}
}

// unmarshalGeometry decodes the payload into the union member named by the type.
func unmarshalGeometry(t AnnotationType, raw json.RawMessage) (Geometry, error) {
	switch t {
	case TypeRectangle:
		var rect RectangleGeometry
		if err := json.Unmarshal(raw, &rect); err != nil {
			return Geometry{}, fmt.Errorf("failed to decode rectangle geometry: %w", err)
		}
		return Geometry{Rectangle: &rect}, nil
	case TypeFreehand:
		var fh FreehandGeometry
		if err := json.Unmarshal(raw, &fh); err != nil {
			return Geometry{}, fmt.Errorf("failed to decode freehand geometry: %w", err)
		}
		return Geometry{Freehand: &fh}, nil
	default:
		return Geometry{}, fmt.Errorf("invalid annotation type %q", t)
	}
}

// Annotation represents a labeled geometric region attached to one media image.
// Geometry is stored in the image's native pixel space and is immutable after
// creation; only label, description, metadata and style fields may change.
type Annotation struct {
	ID             string
	MediaID        string
	AnnotationType AnnotationType
	Geometry       Geometry
	StrokeColor    string
	StrokeWidth    int
	StrokeStyle    StrokeStyle
	FillColor      string
	FillOpacity    float64
	Label          string
	Description    string
	Metadata       map[string]string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// annotationJSON is the wire form of Annotation with raw geometry.
type annotationJSON struct {
	ID             string            `json:"id"`
	MediaID        string            `json:"media_id"`
	AnnotationType AnnotationType    `json:"annotation_type"`
	Geometry       json.RawMessage   `json:"geometry"`
	StrokeColor    string            `json:"stroke_color"`
	StrokeWidth    int               `json:"stroke_width"`
	StrokeStyle    StrokeStyle       `json:"stroke_style"`
	FillColor      string            `json:"fill_color,omitempty"`
	FillOpacity    float64           `json:"fill_opacity"`
	Label          string            `json:"label,omitempty"`
	Description    string            `json:"description,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedBy      string            `json:"created_by,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// MarshalJSON encodes the annotation with the geometry payload matching its type.
func (a Annotation) MarshalJSON() ([]byte, error) {
	raw, err := marshalGeometry(a.AnnotationType, a.Geometry)
	if err != nil {
		return nil, err
	}
	return json.Marshal(annotationJSON{
		ID:             a.ID,
		MediaID:        a.MediaID,
		AnnotationType: a.AnnotationType,
		Geometry:       raw,
		StrokeColor:    a.StrokeColor,
		StrokeWidth:    a.StrokeWidth,
		StrokeStyle:    a.StrokeStyle,
		FillColor:      a.FillColor,
		FillOpacity:    a.FillOpacity,
		Label:          a.Label,
		Description:    a.Description,
		Metadata:       a.Metadata,
		CreatedBy:      a.CreatedBy,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	})
}

// UnmarshalJSON decodes the annotation, dispatching the geometry payload on
// the annotation_type discriminator.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	var wire annotationJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	geom, err := unmarshalGeometry(wire.AnnotationType, wire.Geometry)
	if err != nil {
		return err
	}

	*a = Annotation{
		ID:             wire.ID,
		MediaID:        wire.MediaID,
		AnnotationType: wire.AnnotationType,
		Geometry:       geom,
		StrokeColor:    wire.StrokeColor,
		StrokeWidth:    wire.StrokeWidth,
		StrokeStyle:    wire.StrokeStyle,
		FillColor:      wire.FillColor,
		FillOpacity:    wire.FillOpacity,
		Label:          wire.Label,
		Description:    wire.Description,
		Metadata:       wire.Metadata,
		CreatedBy:      wire.CreatedBy,
		CreatedAt:      wire.CreatedAt,
		UpdatedAt:      wire.UpdatedAt,
	}
	return nil
}

// CreateAnnotationRequest represents the request body for creating an annotation.
type CreateAnnotationRequest struct {
	MediaID        string
	AnnotationType AnnotationType
	Geometry       Geometry
	StrokeColor    string
	StrokeWidth    int
	StrokeStyle    StrokeStyle
	FillColor      string
	FillOpacity    *float64
	Label          string
	Description    string
	Metadata       map[string]string
}

type createAnnotationJSON struct {
	MediaID        string            `json:"media_id"`
	AnnotationType AnnotationType    `json:"annotation_type"`
	Geometry       json.RawMessage   `json:"geometry"`
	StrokeColor    string            `json:"stroke_color,omitempty"`
	StrokeWidth    int               `json:"stroke_width,omitempty"`
	StrokeStyle    StrokeStyle       `json:"stroke_style,omitempty"`
	FillColor      string            `json:"fill_color,omitempty"`
	FillOpacity    *float64          `json:"fill_opacity,omitempty"`
	Label          string            `json:"label,omitempty"`
	Description    string            `json:"description,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// MarshalJSON encodes the create request with the typed geometry payload.
func (r CreateAnnotationRequest) MarshalJSON() ([]byte, error) {
	raw, err := marshalGeometry(r.AnnotationType, r.Geometry)
	if err != nil {
		return nil, err
	}
	return json.Marshal(createAnnotationJSON{
		MediaID:        r.MediaID,
		AnnotationType: r.AnnotationType,
		Geometry:       raw,
		StrokeColor:    r.StrokeColor,
		StrokeWidth:    r.StrokeWidth,
		StrokeStyle:    r.StrokeStyle,
		FillColor:      r.FillColor,
		FillOpacity:    r.FillOpacity,
		Label:          r.Label,
		Description:    r.Description,
		Metadata:       r.Metadata,
	})
}

// UnmarshalJSON decodes the create request, dispatching geometry on annotation_type.
func (r *CreateAnnotationRequest) UnmarshalJSON(data []byte) error {
	var wire createAnnotationJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	geom, err := unmarshalGeometry(wire.AnnotationType, wire.Geometry)
	if err != nil {
		return err
	}

	*r = CreateAnnotationRequest{
		MediaID:        wire.MediaID,
		AnnotationType: wire.AnnotationType,
		Geometry:       geom,
		StrokeColor:    wire.StrokeColor,
		StrokeWidth:    wire.StrokeWidth,
		StrokeStyle:    wire.StrokeStyle,
		FillColor:      wire.FillColor,
		FillOpacity:    wire.FillOpacity,
		Label:          wire.Label,
		Description:    wire.Description,
		Metadata:       wire.Metadata,
	}
	return nil
}

// Validate checks the create request invariants.
func (r *CreateAnnotationRequest) Validate() error {
	if r.MediaID == "" {
		return fmt.Errorf("media_id is required")
	}
	if err := r.Geometry.Validate(r.AnnotationType); err != nil {
		return err
	}
	if r.StrokeWidth != 0 && (r.StrokeWidth < MinStrokeWidth || r.StrokeWidth > MaxStrokeWidth) {
		return fmt.Errorf("stroke_width must be between %d and %d", MinStrokeWidth, MaxStrokeWidth)
	}
	if r.StrokeStyle != "" && r.StrokeStyle != StrokeSolid && r.StrokeStyle != StrokeDashed {
		return fmt.Errorf("invalid stroke_style %q", r.StrokeStyle)
	}
	return nil
}

// ApplyDefaults fills unset style fields with the persistence-layer defaults.
func (r *CreateAnnotationRequest) ApplyDefaults() {
	if r.StrokeColor == "" {
		r.StrokeColor = "#ff0000"
	}
	if r.StrokeWidth == 0 {
		r.StrokeWidth = 2
	}
	if r.StrokeStyle == "" {
		r.StrokeStyle = StrokeSolid
	}
	if r.FillOpacity == nil {
		opacity := 0.2
		r.FillOpacity = &opacity
	}
}

// UpdateAnnotationRequest represents the request body for updating an
// annotation. Geometry and type are immutable once created; a wrongly drawn
// shape is fixed by delete and redraw.
type UpdateAnnotationRequest struct {
	StrokeColor *string            `json:"stroke_color,omitempty"`
	StrokeWidth *int               `json:"stroke_width,omitempty"`
	StrokeStyle *StrokeStyle       `json:"stroke_style,omitempty"`
	FillColor   *string            `json:"fill_color,omitempty"`
	FillOpacity *float64           `json:"fill_opacity,omitempty"`
	Label       *string            `json:"label,omitempty"`
	Description *string            `json:"description,omitempty"`
	Metadata    *map[string]string `json:"metadata,omitempty"`
}

// Validate checks the bounds of any style fields present in the update.
func (r *UpdateAnnotationRequest) Validate() error {
	if r.StrokeWidth != nil && (*r.StrokeWidth < MinStrokeWidth || *r.StrokeWidth > MaxStrokeWidth) {
		return fmt.Errorf("stroke_width must be between %d and %d", MinStrokeWidth, MaxStrokeWidth)
	}
	if r.StrokeStyle != nil && *r.StrokeStyle != StrokeSolid && *r.StrokeStyle != StrokeDashed {
		return fmt.Errorf("invalid stroke_style %q", *r.StrokeStyle)
	}
	return nil
}

// AnnotationsResponse wraps the annotation list for a media item.
type AnnotationsResponse struct {
	Annotations []Annotation `json:"annotations"`
}

// ErrorResponse represents an error response from the API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
