// Resource HTTP handlers.
//
// This file exposes the REST endpoints shared by every resource kind R:
//   - GET    /R        (list; optional page/page_size; ETag support)
//   - GET    /R/{id}   (point lookup)
//   - POST   /R        (create; Idempotency-Key support)
//
// Handlers are transport-thin: they parse input, call the generic resource
// service, and translate results into HTTP responses (including conditional
// responses). One ResourceHandlers value is instantiated per mounted kind.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/ruser/internal/http/middleware"
	"github.com/tbourn/ruser/internal/services"
	"github.com/tbourn/ruser/internal/utils"
	"github.com/tbourn/ruser/internal/validation"
)

// HeaderReplayed is set to "true" on responses served from a stored
// idempotent result.
const HeaderReplayed = "Idempotency-Replayed"

// ResourceService defines the operations of one resource kind consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ResourceService[E any, P any] interface {
	// List returns every record.
	List(ctx context.Context) ([]E, error)
	// ListPage returns a page of records and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]E, int64, error)
	// Get returns the record with id or services.ErrNotFound.
	Get(ctx context.Context, id int64) (*E, error)
	// Create validates and stores p; replayed is true when idemKey matched a
	// previous create.
	Create(ctx context.Context, idemKey string, p P) (e *E, replayed bool, err error)
	// Stats returns the record count and greatest id.
	Stats(ctx context.Context) (count, maxID int64, err error)
}

// ResourceHandlers groups the HTTP endpoints of one resource kind.
type ResourceHandlers[E any, P any] struct {
	kind string
	svc  ResourceService[E, P]
}

// NewResource constructs handlers for the kind named kind.
func NewResource[E any, P any](kind string, svc ResourceService[E, P]) *ResourceHandlers[E, P] {
	return &ResourceHandlers[E, P]{kind: kind, svc: svc}
}

// wantsPage reports whether the client asked for pagination.
func wantsPage(c *gin.Context) bool {
	_, hasPage := c.GetQuery("page")
	_, hasSize := c.GetQuery("page_size")
	return hasPage || hasSize
}

// List godoc
// @Summary     List records of a resource kind
// @Description Returns every record wrapped in {"data": [...]}. With page/page_size a pagination block is added. Supports weak ETag via If-None-Match and may return 304.
// @Produce     json
// @Success     200  {object} handlers.Envelope
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
func (h *ResourceHandlers[E, P]) List(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if count, maxID, err := h.svc.Stats(ctx); err == nil {
		etag := fmt.Sprintf(`W/"%s:%d:%d"`, h.kind, count, maxID)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	if !wantsPage(c) {
		items, err := h.svc.List(ctx)
		if err != nil {
			h.failFrom(c, err)
			return
		}
		data(c, http.StatusOK, items)
		return
	}

	page := utils.ParsePage(c.Query("page"), c.Query("page_size"))
	items, total, err := h.svc.ListPage(ctx, page.Number, page.Size)
	if err != nil {
		h.failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, Envelope{
		Data: items,
		Pagination: &Pagination{
			Page:       page.Number,
			PageSize:   page.Size,
			Total:      total,
			TotalPages: page.TotalPages(total),
			HasNext:    page.HasNext(total),
		},
	})
}

// Get godoc
// @Summary     Get one record by id
// @Produce     json
// @Param       id   path     int  true  "Record id"  minimum(1)
// @Success     200  {object} handlers.Envelope
// @Failure     400  {object} handlers.ErrorResponse "Malformed id"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
func (h *ResourceHandlers[E, P]) Get(c *gin.Context) {
	raw := c.Param("id")
	id, ok := parseID(raw)
	if !ok {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("id must be a positive integer, got %q", raw))
		return
	}

	e, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("%s %d not found", h.kind, id))
			return
		}
		h.failFrom(c, err)
		return
	}
	data(c, http.StatusOK, e)
}

// Create godoc
// @Summary     Create a record
// @Description Validates the payload and stores it; the server assigns the id. Supports idempotency via the Idempotency-Key header (same key, same result).
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"
// @Success     201  {object} handlers.Envelope
// @Success     200  {object} handlers.Envelope "Replayed result"
// @Failure     400  {object} handlers.ErrorResponse "Malformed body"
// @Failure     413  {object} handlers.ErrorResponse "Body too large"
// @Failure     422  {object} handlers.ErrorResponse "Validation failed"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
func (h *ResourceHandlers[E, P]) Create(c *gin.Context) {
	var p P
	if err := c.ShouldBindJSON(&p); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request body is required")
		default:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		}
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)
	e, replayed, err := h.svc.Create(c.Request.Context(), idemKey, p)
	if err != nil {
		h.failFrom(c, err)
		return
	}
	if replayed {
		c.Header(HeaderReplayed, "true")
		data(c, http.StatusOK, e)
		return
	}
	data(c, http.StatusCreated, e)
}

// failFrom maps service errors to HTTP responses.
func (h *ResourceHandlers[E, P]) failFrom(c *gin.Context, err error) {
	if verr, isValidation := validation.As(err); isValidation {
		failWithDetails(c, http.StatusUnprocessableEntity, ErrCodeValidation, verr.Error(), verr.Fields)
		return
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	case errors.Is(err, services.ErrIdempotencyConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, "idempotency key cannot be replayed")
	default:
		middleware.LoggerFrom(c).Error().Err(err).Str("kind", h.kind).Msg("resource operation failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}

// parseID accepts unsigned decimal ids >= 1. ParseInt alone would also take
// a leading '+' or '-'.
func parseID(raw string) (int64, bool) {
	if raw == "" || raw[0] < '0' || raw[0] > '9' {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
