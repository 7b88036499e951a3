// Package client provides the client-side synchronization layer for
// annotations: REST calls against the annotation service, the authoritative
// per-media shape list, and observer notification after successful mutations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/artifact-annotator/backend/internal/geometry"
	"github.com/artifact-annotator/backend/internal/models"
)

// ErrNotFound is returned when the media item or annotation does not exist
// upstream.
var ErrNotFound = errors.New("not found")

// TransportError wraps a network-level failure. Callers may retry; the cached
// list is left untouched.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Observer receives the authoritative annotation list for a media item after
// any successful refresh.
type Observer func(mediaID string, annotations []models.Annotation)

// Store is the client-side annotation repository. It owns the authoritative
// shape list per media item; the canvas and editor hold only transient
// references into it.
type Store struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	mu        sync.Mutex
	lists     map[string][]models.Annotation
	observers map[int]Observer
	nextObs   int
}

// NewStore creates a store talking to the annotation service at baseURL.
func NewStore(baseURL string, logger *zap.Logger) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    logger,
		lists:     make(map[string][]models.Annotation),
		observers: make(map[int]Observer),
	}
}

// Subscribe registers an observer and returns its unsubscribe function.
func (s *Store) Subscribe(obs Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObs
	s.nextObs++
	s.observers[id] = obs

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Annotations returns the cached authoritative list for a media item, which
// reflects the last successfully completed call.
func (s *Store) Annotations(mediaID string) []models.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists[mediaID]
}

func (s *Store) publish(mediaID string, annotations []models.Annotation) {
	s.mu.Lock()
	s.lists[mediaID] = annotations
	observers := make([]Observer, 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	s.mu.Unlock()

	for _, obs := range observers {
		obs(mediaID, annotations)
	}
}

// ListForMedia fetches the annotation list for a media item, updates the
// cached list and notifies observers. A missing media item yields ErrNotFound.
func (s *Store) ListForMedia(ctx context.Context, mediaID string) ([]models.Annotation, error) {
	var resp models.AnnotationsResponse
	if err := s.do(ctx, http.MethodGet, "/annotations/media/"+mediaID, nil, &resp); err != nil {
		return nil, err
	}

	annotations := resp.Annotations
	if annotations == nil {
		annotations = []models.Annotation{}
	}
	s.publish(mediaID, annotations)
	return annotations, nil
}

// Create persists a finalized shape. On success the media list is refreshed
// so the new shape renders; on failure the cached list is unchanged.
func (s *Store) Create(ctx context.Context, req models.CreateAnnotationRequest) (*models.Annotation, error) {
	var created models.Annotation
	if err := s.do(ctx, http.MethodPost, "/annotations", req, &created); err != nil {
		return nil, err
	}

	s.refresh(ctx, created.MediaID)
	return &created, nil
}

// Get fetches a single annotation by id.
func (s *Store) Get(ctx context.Context, id string) (*models.Annotation, error) {
	var ann models.Annotation
	if err := s.do(ctx, http.MethodGet, "/annotations/"+id, nil, &ann); err != nil {
		return nil, err
	}
	return &ann, nil
}

// Update applies a partial update to the mutable fields of an annotation and
// refreshes the media list on success. Fields left nil are untouched.
func (s *Store) Update(ctx context.Context, id string, req models.UpdateAnnotationRequest) (*models.Annotation, error) {
	var updated models.Annotation
	if err := s.do(ctx, http.MethodPut, "/annotations/"+id, req, &updated); err != nil {
		return nil, err
	}

	s.refresh(ctx, updated.MediaID)
	return &updated, nil
}

// Delete removes an annotation. Deleting an id the service no longer knows is
// treated as already satisfied, so a double delete is not an error. A delete
// racing a still-pending create is not resolved here; the outcome is
// last-write-wins.
func (s *Store) Delete(ctx context.Context, id string) error {
	mediaID := s.mediaForAnnotation(id)

	err := s.do(ctx, http.MethodDelete, "/annotations/"+id, nil, nil)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if mediaID != "" {
		s.refresh(ctx, mediaID)
	}
	return nil
}

// FetchImage retrieves the raw media image bytes and content type, used to
// determine native pixel dimensions and render the background.
func (s *Store) FetchImage(ctx context.Context, mediaID string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/media/"+mediaID+"/image", nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", &TransportError{Op: "fetch image", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d fetching image", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &TransportError{Op: "read image body", Err: err}
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// ImageSize fetches the media image and reports its native pixel dimensions.
func (s *Store) ImageSize(ctx context.Context, mediaID string) (width, height int, err error) {
	data, _, err := s.FetchImage(ctx, mediaID)
	if err != nil {
		return 0, 0, err
	}
	return geometry.NativeSize(bytes.NewReader(data))
}

// refresh refetches the list after a successful mutation. A failed refresh is
// logged but does not fail the mutation; the next list call converges.
func (s *Store) refresh(ctx context.Context, mediaID string) {
	if _, err := s.ListForMedia(ctx, mediaID); err != nil {
		s.logger.Warn("Failed to refresh annotation list",
			zap.String("media_id", mediaID),
			zap.Error(err),
		)
	}
}

func (s *Store) mediaForAnnotation(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for mediaID, list := range s.lists {
		for i := range list {
			if list[i].ID == id {
				return mediaID
			}
		}
	}
	return ""
}

// do executes a JSON round trip against the annotation service.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr models.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("annotation service error: %s (%s)", apiErr.Error, apiErr.Message)
		}
		return fmt.Errorf("unexpected status %d from annotation service", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
