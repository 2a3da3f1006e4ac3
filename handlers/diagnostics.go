package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/veripass/veripass/backend/reader-services/internal/diagnostics"
	"github.com/veripass/veripass/backend/reader-services/internal/readings"
	"github.com/veripass/veripass/backend/reader-services/internal/readings/service"
)

// DiagnosticsHandler serves troubleshooting advice and success-rate stats.
type DiagnosticsHandler struct {
	catalog *diagnostics.Catalog
	svc     service.Service
}

func NewDiagnosticsHandler(catalog *diagnostics.Catalog, svc service.Service) *DiagnosticsHandler {
	return &DiagnosticsHandler{catalog: catalog, svc: svc}
}

func (h *DiagnosticsHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/diagnostics", h.ListAdvice)
	rg.GET("/diagnostics/:category", h.Advice)
	rg.GET("/stats", h.Stats)
}

func (h *DiagnosticsHandler) ListAdvice(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"advice": h.catalog.All()})
}

func (h *DiagnosticsHandler) Advice(c *gin.Context) {
	a, err := h.catalog.Lookup(diagnostics.Category(c.Param("category")))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":      err.Error(),
			"categories": diagnostics.Categories(),
		})
		return
	}
	c.JSON(http.StatusOK, a)
}

// Stats aggregates recorded readings. Filters: device, protocol, since.
func (h *DiagnosticsHandler) Stats(c *gin.Context) {
	f := readings.Filter{
		DeviceID: c.Query("device"),
		Protocol: c.Query("protocol"),
	}
	if since := c.Query("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		f.Since = ts
	}
	s, err := h.svc.Stats(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, s)
}
