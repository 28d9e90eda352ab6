package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chaniweb/backend/internal/domain"
	"github.com/chaniweb/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	producer *usecase.Producer
	listing  *usecase.ListingService
	cache    domain.CacheRepository
	products domain.ProductRepository
}

// NewHandler creates a new HTTP handler
func NewHandler(
	producer *usecase.Producer,
	listing *usecase.ListingService,
	cache domain.CacheRepository,
	products domain.ProductRepository,
) *Handler {
	return &Handler{
		producer: producer,
		listing:  listing,
		cache:    cache,
		products: products,
	}
}

// HealthCheck reports reachability of the cache and persistence backends.
func (h *Handler) HealthCheck(c *gin.Context) {
	services := gin.H{}
	healthy := true

	if err := h.cache.Ping(c.Request.Context()); err != nil {
		services["cache"] = "ERROR: " + err.Error()
		healthy = false
	} else {
		services["cache"] = "ok"
	}

	if err := h.products.Ping(c.Request.Context()); err != nil {
		services["db"] = "ERROR: " + err.Error()
		healthy = false
	} else {
		services["db"] = "ok"
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":   status,
		"service":  "chaniweb-backend",
		"services": services,
	})
}

// IngestObservation accepts a price observation and enqueues it for the
// consumer. It returns as soon as the payload is on the queue; persistence
// happens asynchronously.
func (h *Handler) IngestObservation(c *gin.Context) {
	var obs domain.Observation
	if err := c.ShouldBindJSON(&obs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed observation payload"})
		return
	}

	if err := h.producer.Publish(c.Request.Context(), &obs); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidObservation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrQueueUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ingest queue unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue observation"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"queued":     true,
		"request_id": c.GetString(RequestIDKey),
	})
}

// ListProducts returns the current listing of canonical records, each with
// its standard price. Served from the aggregate read cache when warm.
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.listing.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}
	c.JSON(http.StatusOK, products)
}
