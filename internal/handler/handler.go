// Package handler provides the business logic handlers for annotation operations.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/artifact-annotator/backend/internal/cache"
	"github.com/artifact-annotator/backend/internal/database"
	"github.com/artifact-annotator/backend/internal/models"
)

// Handler provides HTTP handlers for annotation operations.
type Handler struct {
	repo   database.Repository
	cache  cache.Cache
	logger *zap.Logger
}

// NewHandler creates a new annotation handler.
func NewHandler(repo database.Repository, cache cache.Cache, logger *zap.Logger) *Handler {
	return &Handler{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// RegisterRoutes registers the handler routes on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/annotations/media/:mediaID", h.ListForMedia)
	rg.POST("/annotations", h.Create)
	rg.GET("/annotations/:id", h.GetByID)
	rg.PUT("/annotations/:id", h.Update)
	rg.PATCH("/annotations/:id", h.Update)
	rg.DELETE("/annotations/:id", h.Delete)
	rg.GET("/media/:id/image", h.MediaImage)
}

// ListForMedia handles retrieving all annotations for a media item.
// @Summary List annotations for a media item
// @Description Retrieve all annotations attached to a media image, in creation order
// @Tags annotations
// @Produce json
// @Param mediaID path string true "Media ID"
// @Success 200 {object} models.AnnotationsResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/annotations/media/{mediaID} [get]
func (h *Handler) ListForMedia(c *gin.Context) {
	mediaID := c.Param("mediaID")
	ctx := c.Request.Context()

	exists, err := h.repo.MediaExists(ctx, mediaID)
	if err != nil {
		h.logger.Error("Failed to check media", zap.String("media_id", mediaID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "failed to retrieve annotations",
		})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "media not found",
		})
		return
	}

	// Try cache first
	annotations, found, err := h.cache.GetMediaList(ctx, mediaID)
	if err == nil && found {
		h.logger.Debug("Returning cached annotations", zap.String("media_id", mediaID))
		c.JSON(http.StatusOK, models.AnnotationsResponse{Annotations: annotations})
		return
	}

	// Cache miss, get from database
	annotations, err = h.repo.ListByMedia(ctx, mediaID)
	if err != nil {
		h.logger.Error("Failed to list annotations", zap.String("media_id", mediaID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "failed to retrieve annotations",
		})
		return
	}

	// Update cache
	_ = h.cache.SetMediaList(ctx, mediaID, annotations)

	c.JSON(http.StatusOK, models.AnnotationsResponse{Annotations: annotations})
}

// Create handles the creation of a new annotation.
// @Summary Create annotation
// @Description Create a new annotation on a media image
// @Tags annotations
// @Accept json
// @Produce json
// @Param annotation body models.CreateAnnotationRequest true "Annotation data"
// @Success 201 {object} models.Annotation
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/annotations [post]
func (h *Handler) Create(c *gin.Context) {
	var req models.CreateAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid create request", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	exists, err := h.repo.MediaExists(ctx, req.MediaID)
	if err != nil {
		h.logger.Error("Failed to check media", zap.String("media_id", req.MediaID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "failed to create annotation",
		})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "media not found",
		})
		return
	}

	req.ApplyDefaults()

	// Identity comes from the auth layer upstream of this service.
	createdBy := c.GetHeader("X-User-ID")

	annotation, err := h.repo.CreateAnnotation(ctx, &req, createdBy)
	if err != nil {
		h.logger.Error("Failed to create annotation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "failed to create annotation",
		})
		return
	}

	// Cache the new annotation
	_ = h.cache.Set(ctx, annotation)

	c.JSON(http.StatusCreated, annotation)
}

// GetByID handles retrieving a single annotation by ID.
// @Summary Get annotation by ID
// @Description Retrieve a specific annotation by its ID
// @Tags annotations
// @Produce json
// @Param id path string true "Annotation ID"
// @Success 200 {object} models.Annotation
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/annotations/{id} [get]
func (h *Handler) GetByID(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	// Try cache first
	annotation, err := h.cache.Get(ctx, id)
	if err == nil && annotation != nil {
		h.logger.Debug("Returning cached annotation", zap.String("id", id))
		c.JSON(http.StatusOK, annotation)
		return
	}

	// Cache miss, get from database
	annotation, err = h.repo.GetAnnotation(ctx, id)
	if err != nil {
		h.logger.Error("Failed to get annotation", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "failed to retrieve annotation",
		})
		return
	}

	if annotation == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "annotation not found",
		})
		return
	}

	// Update cache
	_ = h.cache.Set(ctx, annotation)

	c.JSON(http.StatusOK, annotation)
}

// Update handles updating the mutable fields of an existing annotation.
// Geometry is immutable once created and is never part of the update body.
// @Summary Update annotation
// @Description Update label, description, metadata or style of an annotation
// @Tags annotations
// @Accept json
// @Produce json
// @Param id path string true "Annotation ID"
// @Param annotation body models.UpdateAnnotationRequest true "Updated annotation fields"
// @Success 200 {object} models.Annotation
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/annotations/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	id := c.Param("id")

	var req models.UpdateAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid update request", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	annotation, err := h.repo.UpdateAnnotation(ctx, id, &req)
	if err != nil {
		h.logger.Error("Failed to update annotation", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "failed to update annotation",
		})
		return
	}

	if annotation == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "annotation not found",
		})
		return
	}

	// Update cache
	_ = h.cache.Set(ctx, annotation)

	c.JSON(http.StatusOK, annotation)
}

// Delete handles deleting an annotation.
// @Summary Delete annotation
// @Description Delete an annotation by ID
// @Tags annotations
// @Produce json
// @Param id path string true "Annotation ID"
// @Success 204 "No Content"
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/annotations/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	// The annotation is fetched first so the cache invalidation below knows
	// which media list to drop.
	existing, err := h.repo.GetAnnotation(ctx, id)
	if err != nil {
		h.logger.Error("Failed to get annotation", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "failed to delete annotation",
		})
		return
	}

	err = h.repo.DeleteAnnotation(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "not_found",
				Message: "annotation not found",
			})
			return
		}

		h.logger.Error("Failed to delete annotation", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "failed to delete annotation",
		})
		return
	}

	// Remove from cache
	mediaID := ""
	if existing != nil {
		mediaID = existing.MediaID
	}
	_ = h.cache.Delete(ctx, id, mediaID)

	c.Status(http.StatusNoContent)
}

// MediaImage serves the raw image bytes for a media item.
// @Summary Get media image
// @Description Retrieve the raw image bytes of a media item
// @Tags media
// @Produce octet-stream
// @Param id path string true "Media ID"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/media/{id}/image [get]
func (h *Handler) MediaImage(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	data, contentType, err := h.repo.GetMediaImage(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "not_found",
				Message: "media not found",
			})
			return
		}

		h.logger.Error("Failed to get media image", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "failed to retrieve media image",
		})
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, data)
}
