// Package database provides PostgreSQL database operations for annotations
// and their owning media items.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/artifact-annotator/backend/internal/config"
	"github.com/artifact-annotator/backend/internal/models"
)

// ErrNotFound is returned when the requested annotation or media row does not
// exist.
var ErrNotFound = errors.New("not found")

// Repository defines the interface for annotation data operations.
type Repository interface {
	// CreateAnnotation persists a new annotation and returns it with the
	// server-assigned id and provenance fields.
	CreateAnnotation(ctx context.Context, req *models.CreateAnnotationRequest, createdBy string) (*models.Annotation, error)

	// GetAnnotation retrieves an annotation by its ID; nil when missing.
	GetAnnotation(ctx context.Context, id string) (*models.Annotation, error)

	// ListByMedia retrieves all annotations for a media item in creation order.
	ListByMedia(ctx context.Context, mediaID string) ([]models.Annotation, error)

	// UpdateAnnotation applies a partial update to the mutable fields; nil
	// when the annotation is missing. Geometry is never touched.
	UpdateAnnotation(ctx context.Context, id string, req *models.UpdateAnnotationRequest) (*models.Annotation, error)

	// DeleteAnnotation removes an annotation; ErrNotFound when already gone.
	DeleteAnnotation(ctx context.Context, id string) error

	// MediaExists reports whether a media item exists.
	MediaExists(ctx context.Context, id string) (bool, error)

	// GetMediaImage returns the raw image bytes and content type for a media
	// item; ErrNotFound when missing.
	GetMediaImage(ctx context.Context, id string) ([]byte, string, error)

	// Close closes the database connection.
	Close()
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(cfg *config.Config, logger *zap.Logger) (Repository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &PostgresRepository{
		pool:   pool,
		logger: logger,
	}

	if err := repo.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Connected to PostgreSQL database")
	return repo, nil
}

// migrate creates the necessary database tables if they don't exist. Media
// rows are written by the upload pipeline; this service only reads them.
func (r *PostgresRepository) migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS media (
			id UUID PRIMARY KEY,
			original_filename VARCHAR(255) NOT NULL DEFAULT '',
			content_type VARCHAR(100) NOT NULL DEFAULT 'image/jpeg',
			width INTEGER NOT NULL DEFAULT 0,
			height INTEGER NOT NULL DEFAULT 0,
			data BYTEA,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS annotations (
			id UUID PRIMARY KEY,
			media_id UUID NOT NULL REFERENCES media(id) ON DELETE CASCADE,
			annotation_type VARCHAR(20) NOT NULL,
			geometry JSONB NOT NULL,
			stroke_color VARCHAR(20) NOT NULL DEFAULT '#ff0000',
			stroke_width INTEGER NOT NULL DEFAULT 2,
			stroke_style VARCHAR(20) NOT NULL DEFAULT 'solid',
			fill_color VARCHAR(20) NOT NULL DEFAULT '',
			fill_opacity DOUBLE PRECISION NOT NULL DEFAULT 0.2,
			label VARCHAR(255) NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			metadata JSONB,
			created_by VARCHAR(36) NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_annotations_media_id ON annotations(media_id);
		CREATE INDEX IF NOT EXISTS idx_annotations_created_at ON annotations(created_at);
	`

	_, err := r.pool.Exec(ctx, query)
	return err
}

const annotationColumns = `
	id, media_id, annotation_type, geometry,
	stroke_color, stroke_width, stroke_style, fill_color, fill_opacity,
	label, description, metadata, created_by, created_at, updated_at
`

// CreateAnnotation persists a new annotation.
func (r *PostgresRepository) CreateAnnotation(ctx context.Context, req *models.CreateAnnotationRequest, createdBy string) (*models.Annotation, error) {
	now := time.Now().UTC()

	annotation := &models.Annotation{
		ID:             uuid.New().String(),
		MediaID:        req.MediaID,
		AnnotationType: req.AnnotationType,
		Geometry:       req.Geometry,
		StrokeColor:    req.StrokeColor,
		StrokeWidth:    req.StrokeWidth,
		StrokeStyle:    req.StrokeStyle,
		FillColor:      req.FillColor,
		Label:          req.Label,
		Description:    req.Description,
		Metadata:       req.Metadata,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.FillOpacity != nil {
		annotation.FillOpacity = *req.FillOpacity
	}

	geometryJSON, err := json.Marshal(geometryPayload(annotation))
	if err != nil {
		return nil, fmt.Errorf("failed to encode geometry: %w", err)
	}
	metadataJSON, err := marshalMetadata(annotation.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	query := `
		INSERT INTO annotations (
			id, media_id, annotation_type, geometry,
			stroke_color, stroke_width, stroke_style, fill_color, fill_opacity,
			label, description, metadata, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.pool.Exec(ctx, query,
		annotation.ID,
		annotation.MediaID,
		annotation.AnnotationType,
		geometryJSON,
		annotation.StrokeColor,
		annotation.StrokeWidth,
		annotation.StrokeStyle,
		annotation.FillColor,
		annotation.FillOpacity,
		annotation.Label,
		annotation.Description,
		metadataJSON,
		annotation.CreatedBy,
		annotation.CreatedAt,
		annotation.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create annotation", zap.Error(err))
		return nil, fmt.Errorf("failed to create annotation: %w", err)
	}

	r.logger.Info("Created annotation",
		zap.String("id", annotation.ID),
		zap.String("media_id", annotation.MediaID),
	)
	return annotation, nil
}

// GetAnnotation retrieves an annotation by its ID.
func (r *PostgresRepository) GetAnnotation(ctx context.Context, id string) (*models.Annotation, error) {
	query := `SELECT ` + annotationColumns + ` FROM annotations WHERE id = $1`

	annotation, err := scanAnnotation(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get annotation", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get annotation: %w", err)
	}

	return annotation, nil
}

// ListByMedia retrieves all annotations for a media item in creation order.
func (r *PostgresRepository) ListByMedia(ctx context.Context, mediaID string) ([]models.Annotation, error) {
	query := `SELECT ` + annotationColumns + ` FROM annotations WHERE media_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, mediaID)
	if err != nil {
		r.logger.Error("Failed to list annotations", zap.String("media_id", mediaID), zap.Error(err))
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}
	defer rows.Close()

	var annotations []models.Annotation
	for rows.Next() {
		annotation, err := scanAnnotation(rows)
		if err != nil {
			r.logger.Error("Failed to scan annotation row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		annotations = append(annotations, *annotation)
	}

	if annotations == nil {
		annotations = []models.Annotation{}
	}

	return annotations, nil
}

// UpdateAnnotation applies a partial update to the mutable fields.
func (r *PostgresRepository) UpdateAnnotation(ctx context.Context, id string, req *models.UpdateAnnotationRequest) (*models.Annotation, error) {
	existing, err := r.GetAnnotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if req.StrokeColor != nil {
		existing.StrokeColor = *req.StrokeColor
	}
	if req.StrokeWidth != nil {
		existing.StrokeWidth = *req.StrokeWidth
	}
	if req.StrokeStyle != nil {
		existing.StrokeStyle = *req.StrokeStyle
	}
	if req.FillColor != nil {
		existing.FillColor = *req.FillColor
	}
	if req.FillOpacity != nil {
		existing.FillOpacity = *req.FillOpacity
	}
	if req.Label != nil {
		existing.Label = *req.Label
	}
	if req.Description != nil {
		existing.Description = *req.Description
	}
	if req.Metadata != nil {
		existing.Metadata = *req.Metadata
	}
	existing.UpdatedAt = time.Now().UTC()

	metadataJSON, err := marshalMetadata(existing.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	query := `
		UPDATE annotations
		SET stroke_color = $2, stroke_width = $3, stroke_style = $4,
			fill_color = $5, fill_opacity = $6,
			label = $7, description = $8, metadata = $9, updated_at = $10
		WHERE id = $1
	`

	_, err = r.pool.Exec(ctx, query,
		existing.ID,
		existing.StrokeColor,
		existing.StrokeWidth,
		existing.StrokeStyle,
		existing.FillColor,
		existing.FillOpacity,
		existing.Label,
		existing.Description,
		metadataJSON,
		existing.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to update annotation", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update annotation: %w", err)
	}

	r.logger.Info("Updated annotation", zap.String("id", id))
	return existing, nil
}

// DeleteAnnotation removes an annotation by its ID.
func (r *PostgresRepository) DeleteAnnotation(ctx context.Context, id string) error {
	query := `DELETE FROM annotations WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete annotation", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete annotation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	r.logger.Info("Deleted annotation", zap.String("id", id))
	return nil
}

// MediaExists reports whether a media item exists.
func (r *PostgresRepository) MediaExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM media WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check media", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to check media: %w", err)
	}
	return exists, nil
}

// GetMediaImage returns the raw image bytes and content type for a media item.
func (r *PostgresRepository) GetMediaImage(ctx context.Context, id string) ([]byte, string, error) {
	var data []byte
	var contentType string
	err := r.pool.QueryRow(ctx, `SELECT data, content_type FROM media WHERE id = $1`, id).Scan(&data, &contentType)
	if err == pgx.ErrNoRows {
		return nil, "", ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get media image", zap.String("id", id), zap.Error(err))
		return nil, "", fmt.Errorf("failed to get media image: %w", err)
	}
	return data, contentType, nil
}

// Close closes the database connection pool.
func (r *PostgresRepository) Close() {
	r.pool.Close()
	r.logger.Info("Closed database connection")
}

// geometryPayload returns the union member matching the annotation type for
// JSONB storage.
func geometryPayload(a *models.Annotation) any {
	if a.AnnotationType == models.TypeFreehand {
		return a.Geometry.Freehand
	}
	return a.Geometry.Rectangle
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	return json.Marshal(metadata)
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnnotation(row rowScanner) (*models.Annotation, error) {
	var (
		annotation   models.Annotation
		geometryJSON []byte
		metadataJSON []byte
	)

	err := row.Scan(
		&annotation.ID,
		&annotation.MediaID,
		&annotation.AnnotationType,
		&geometryJSON,
		&annotation.StrokeColor,
		&annotation.StrokeWidth,
		&annotation.StrokeStyle,
		&annotation.FillColor,
		&annotation.FillOpacity,
		&annotation.Label,
		&annotation.Description,
		&metadataJSON,
		&annotation.CreatedBy,
		&annotation.CreatedAt,
		&annotation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	switch annotation.AnnotationType {
	case models.TypeFreehand:
		var fh models.FreehandGeometry
		if err := json.Unmarshal(geometryJSON, &fh); err != nil {
			return nil, fmt.Errorf("failed to decode freehand geometry: %w", err)
		}
		annotation.Geometry = models.Geometry{Freehand: &fh}
	default:
		var rect models.RectangleGeometry
		if err := json.Unmarshal(geometryJSON, &rect); err != nil {
			return nil, fmt.Errorf("failed to decode rectangle geometry: %w", err)
		}
		annotation.Geometry = models.Geometry{Rectangle: &rect}
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &annotation.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}

	return &annotation, nil
}
