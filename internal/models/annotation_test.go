package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAnnotation_JSONRoundTrip_Rectangle(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)

	annotation := Annotation{
		ID:             "test-uuid",
		MediaID:        "media-uuid",
		AnnotationType: TypeRectangle,
		Geometry:       RectGeometry(RectangleGeometry{X: 10, Y: 20, Width: 100, Height: 50}),
		StrokeColor:    "#ff0000",
		StrokeWidth:    2,
		StrokeStyle:    StrokeSolid,
		FillOpacity:    0.2,
		Label:          "Handle",
		Metadata:       map[string]string{"material": "clay"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	data, err := json.Marshal(annotation)
	assert.NoError(t, err)

	var unmarshaled Annotation
	err = json.Unmarshal(data, &unmarshaled)
	assert.NoError(t, err)

	assert.Equal(t, annotation.ID, unmarshaled.ID)
	assert.Equal(t, annotation.MediaID, unmarshaled.MediaID)
	assert.Equal(t, TypeRectangle, unmarshaled.AnnotationType)
	assert.NotNil(t, unmarshaled.Geometry.Rectangle)
	assert.Nil(t, unmarshaled.Geometry.Freehand)
	assert.Equal(t, *annotation.Geometry.Rectangle, *unmarshaled.Geometry.Rectangle)
	assert.Equal(t, annotation.Metadata, unmarshaled.Metadata)
}

func TestAnnotation_JSONRoundTrip_Freehand(t *testing.T) {
	annotation := Annotation{
		ID:             "test-uuid",
		MediaID:        "media-uuid",
		AnnotationType: TypeFreehand,
		Geometry:       StrokeGeometry([]float64{0, 0, 10, 10, 20, 15}),
		StrokeColor:    "#ef4444",
		StrokeWidth:    3,
		StrokeStyle:    StrokeDashed,
	}

	data, err := json.Marshal(annotation)
	assert.NoError(t, err)

	var unmarshaled Annotation
	err = json.Unmarshal(data, &unmarshaled)
	assert.NoError(t, err)

	assert.Equal(t, TypeFreehand, unmarshaled.AnnotationType)
	assert.Nil(t, unmarshaled.Geometry.Rectangle)
	assert.NotNil(t, unmarshaled.Geometry.Freehand)
	assert.Equal(t, annotation.Geometry.Freehand.Points, unmarshaled.Geometry.Freehand.Points)
}

func TestAnnotation_GeometryDecodedByDiscriminator(t *testing.T) {
	// The geometry payload alone is ambiguous; annotation_type picks the arm.
	payload := `{
		"id": "a1",
		"media_id": "m1",
		"annotation_type": "freehand",
		"geometry": {"points": [1, 2, 3, 4, 5, 6]},
		"stroke_color": "#ff0000",
		"stroke_width": 2,
		"stroke_style": "solid",
		"fill_opacity": 0.2,
		"created_at": "2026-01-01T00:00:00Z",
		"updated_at": "2026-01-01T00:00:00Z"
	}`

	var ann Annotation
	assert.NoError(t, json.Unmarshal([]byte(payload), &ann))
	assert.Nil(t, ann.Geometry.Rectangle)
	assert.NotNil(t, ann.Geometry.Freehand)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, ann.Geometry.Freehand.Points)
}

func TestAnnotation_UnmarshalUnknownType(t *testing.T) {
	payload := `{
		"id": "a1",
		"media_id": "m1",
		"annotation_type": "polygon",
		"geometry": {"points": [1, 2]},
		"stroke_color": "#ff0000",
		"stroke_width": 2,
		"stroke_style": "solid"
	}`

	var ann Annotation
	assert.Error(t, json.Unmarshal([]byte(payload), &ann))
}

func TestCreateAnnotationRequest_Validation(t *testing.T) {
	validRect := func() CreateAnnotationRequest {
		return CreateAnnotationRequest{
			MediaID:        "m1",
			AnnotationType: TypeRectangle,
			Geometry:       RectGeometry(RectangleGeometry{X: 0, Y: 0, Width: 10, Height: 10}),
			StrokeColor:    "#ff0000",
			StrokeWidth:    2,
			StrokeStyle:    StrokeSolid,
		}
	}

	tests := []struct {
		name   string
		mutate func(*CreateAnnotationRequest)
		valid  bool
	}{
		{
			name:   "valid rectangle",
			mutate: func(*CreateAnnotationRequest) {},
			valid:  true,
		},
		{
			name: "valid freehand",
			mutate: func(r *CreateAnnotationRequest) {
				r.AnnotationType = TypeFreehand
				r.Geometry = StrokeGeometry([]float64{0, 0, 5, 5, 10, 8})
			},
			valid: true,
		},
		{
			name:   "missing media id",
			mutate: func(r *CreateAnnotationRequest) { r.MediaID = "" },
			valid:  false,
		},
		{
			name:   "unknown annotation type",
			mutate: func(r *CreateAnnotationRequest) { r.AnnotationType = "polygon" },
			valid:  false,
		},
		{
			name: "geometry arm mismatch",
			mutate: func(r *CreateAnnotationRequest) {
				r.Geometry = StrokeGeometry([]float64{0, 0, 1, 1})
			},
			valid: false,
		},
		{
			name: "negative rectangle dimensions",
			mutate: func(r *CreateAnnotationRequest) {
				r.Geometry = RectGeometry(RectangleGeometry{Width: -5, Height: 10})
			},
			valid: false,
		},
		{
			name: "odd freehand point count",
			mutate: func(r *CreateAnnotationRequest) {
				r.AnnotationType = TypeFreehand
				r.Geometry = StrokeGeometry([]float64{0, 0, 5})
			},
			valid: false,
		},
		{
			name:   "stroke width below minimum",
			mutate: func(r *CreateAnnotationRequest) { r.StrokeWidth = -1 },
			valid:  false,
		},
		{
			name:   "stroke width above maximum",
			mutate: func(r *CreateAnnotationRequest) { r.StrokeWidth = 11 },
			valid:  false,
		},
		{
			name: "unset stroke fields take defaults later",
			mutate: func(r *CreateAnnotationRequest) {
				r.StrokeColor = ""
				r.StrokeWidth = 0
				r.StrokeStyle = ""
			},
			valid: true,
		},
		{
			name:   "invalid stroke style",
			mutate: func(r *CreateAnnotationRequest) { r.StrokeStyle = "dotted" },
			valid:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRect()
			tt.mutate(&req)

			err := req.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCreateAnnotationRequest_ApplyDefaults(t *testing.T) {
	req := CreateAnnotationRequest{
		MediaID:        "m1",
		AnnotationType: TypeRectangle,
		Geometry:       RectGeometry(RectangleGeometry{Width: 10, Height: 10}),
	}
	req.ApplyDefaults()

	assert.Equal(t, "#ff0000", req.StrokeColor)
	assert.Equal(t, 2, req.StrokeWidth)
	assert.Equal(t, StrokeSolid, req.StrokeStyle)
	assert.NotNil(t, req.FillOpacity)
	assert.Equal(t, 0.2, *req.FillOpacity)
}

func TestCreateAnnotationRequest_ApplyDefaults_KeepsExplicit(t *testing.T) {
	opacity := 0.5
	req := CreateAnnotationRequest{
		MediaID:        "m1",
		AnnotationType: TypeRectangle,
		Geometry:       RectGeometry(RectangleGeometry{Width: 10, Height: 10}),
		StrokeColor:    "#00ff00",
		StrokeWidth:    5,
		StrokeStyle:    StrokeDashed,
		FillOpacity:    &opacity,
	}
	req.ApplyDefaults()

	assert.Equal(t, "#00ff00", req.StrokeColor)
	assert.Equal(t, 5, req.StrokeWidth)
	assert.Equal(t, StrokeDashed, req.StrokeStyle)
	assert.Equal(t, 0.5, *req.FillOpacity)
}

func TestUpdateAnnotationRequest_Validation(t *testing.T) {
	label := "Inscription"
	goodWidth := 4
	badWidth := 20
	badStyle := StrokeStyle("dotted")

	assert.NoError(t, (&UpdateAnnotationRequest{}).Validate())
	assert.NoError(t, (&UpdateAnnotationRequest{Label: &label, StrokeWidth: &goodWidth}).Validate())
	assert.Error(t, (&UpdateAnnotationRequest{StrokeWidth: &badWidth}).Validate())
	assert.Error(t, (&UpdateAnnotationRequest{StrokeStyle: &badStyle}).Validate())
}

func TestUpdateAnnotationRequest_OmitsUnsetFields(t *testing.T) {
	label := "Inscription"
	data, err := json.Marshal(UpdateAnnotationRequest{Label: &label})
	assert.NoError(t, err)

	var raw map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "label")
	assert.NotContains(t, raw, "description")
	assert.NotContains(t, raw, "metadata")
	assert.NotContains(t, raw, "stroke_color")
}

func TestGeometry_Validate(t *testing.T) {
	assert.Error(t, Geometry{}.Validate(TypeRectangle))
	assert.Error(t, RectGeometry(RectangleGeometry{Width: 1, Height: 1}).Validate(TypeFreehand))
	assert.NoError(t, RectGeometry(RectangleGeometry{Width: 1, Height: 1}).Validate(TypeRectangle))
	assert.Error(t, StrokeGeometry([]float64{1, 2}).Validate(TypeFreehand))
	assert.NoError(t, StrokeGeometry([]float64{1, 2, 3, 4}).Validate(TypeFreehand))
}
