package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/veripass/veripass/backend/reader-services/internal/events"
	"github.com/veripass/veripass/backend/reader-services/internal/mrz"
	"github.com/veripass/veripass/backend/reader-services/internal/readings"
	"github.com/veripass/veripass/backend/reader-services/internal/readings/service"
	"github.com/veripass/veripass/backend/reader-services/internal/storage"
	"github.com/veripass/veripass/backend/reader-services/pkg/logger"
)

// RecordReadingRequest is what a device posts after a read attempt. The raw
// document number, when present, is masked before persistence.
type RecordReadingRequest struct {
	DeviceID        string `json:"deviceId" binding:"required"`
	DocumentNumber  string `json:"documentNumber"`
	DocumentMasked  string `json:"documentMasked"`
	Format          string `json:"format"`
	Protocol        string `json:"protocol"`
	Outcome         string `json:"outcome" binding:"required"`
	FailureCategory string `json:"failureCategory"`
	DurationMs      int64  `json:"durationMs"`
}

// ReadingsHandler records and lists read attempts and manages their traces.
type ReadingsHandler struct {
	svc   service.Service
	hub   *events.Hub
	store *storage.TraceStore // nil when MinIO is not configured
}

func NewReadingsHandler(svc service.Service, hub *events.Hub, store *storage.TraceStore) *ReadingsHandler {
	return &ReadingsHandler{svc: svc, hub: hub, store: store}
}

func (h *ReadingsHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/readings")
	g.POST("", h.Record)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/trace", h.UploadTrace)
	g.GET("/:id/trace/url", h.TraceURL)
}

func (h *ReadingsHandler) Record(c *gin.Context) {
	var req RecordReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	outcome := readings.Outcome(req.Outcome)
	switch outcome {
	case readings.OutcomeSuccess, readings.OutcomeFailure, readings.OutcomeAborted:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "outcome must be success, failure or aborted"})
		return
	}
	masked := req.DocumentMasked
	if masked == "" && req.DocumentNumber != "" {
		masked = mrz.MaskDocumentNumber(req.DocumentNumber)
	}
	rec := &readings.Reading{
		DeviceID:        req.DeviceID,
		DocumentMasked:  masked,
		Format:          req.Format,
		Protocol:        req.Protocol,
		Outcome:         outcome,
		FailureCategory: req.FailureCategory,
		DurationMs:      req.DurationMs,
	}
	id, err := h.svc.Record(rec)
	if err != nil {
		logger.Errorf("record reading: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record reading"})
		return
	}

	evType := events.ReadSucceeded
	if outcome != readings.OutcomeSuccess {
		evType = events.ReadFailed
	}
	h.hub.Publish(events.Event{
		Type:      evType,
		DeviceID:  req.DeviceID,
		ReadingID: id,
		Category:  req.FailureCategory,
	})
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *ReadingsHandler) List(c *gin.Context) {
	f := readings.Filter{
		DeviceID:        c.Query("device"),
		Outcome:         readings.Outcome(c.Query("outcome")),
		FailureCategory: c.Query("category"),
		Protocol:        c.Query("protocol"),
	}
	if since := c.Query("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		f.Since = ts
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.ParseInt(limit, 10, 64)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		f.Limit = n
	}
	list, err := h.svc.List(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list readings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"readings": list, "count": len(list)})
}

func (h *ReadingsHandler) Get(c *gin.Context) {
	r, err := h.svc.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, r)
}

// UploadTrace stores the raw APDU trace a device captured for a failed read
// and links it to the reading.
func (h *ReadingsHandler) UploadTrace(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trace storage not configured"})
		return
	}
	id := c.Param("id")
	r, err := h.svc.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	key := storage.TraceKey(r.DeviceID, r.ID)
	if err := h.store.Upload(c.Request.Context(), key, c.Request.Body, c.Request.ContentLength, "application/octet-stream"); err != nil {
		logger.Errorf("trace upload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	if err := h.svc.AttachArtifact(id, key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to attach trace"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key})
}

// TraceURL returns a short-lived presigned download URL for a trace.
func (h *ReadingsHandler) TraceURL(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trace storage not configured"})
		return
	}
	r, err := h.svc.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if r.ArtifactKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no trace attached"})
		return
	}
	u, err := h.store.PresignedURL(c.Request.Context(), r.ArtifactKey, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "presign failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u, "expiresIn": 900})
}
