package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/veripass/veripass/backend/reader-services/internal/mrz"
	"github.com/veripass/veripass/backend/reader-services/pkg/logger"
)

// MRZRequest carries the raw machine readable zone lines as scanned.
type MRZRequest struct {
	Lines []string `json:"lines" binding:"required"`
}

// MRZHandler parses and validates machine readable zones for devices whose
// on-board OCR produced the raw lines.
type MRZHandler struct{}

func NewMRZHandler() *MRZHandler { return &MRZHandler{} }

func (h *MRZHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/mrz")
	g.POST("/parse", h.Parse)
	g.POST("/validate", h.Validate)
}

// Parse returns the decoded zone. Check digit failures still return the
// parsed fields so the client can show what was read; the response flags
// which checks failed.
func (h *MRZHandler) Parse(c *gin.Context) {
	var req MRZRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	zone, err := mrz.Parse(req.Lines)
	if err != nil {
		var verr *mrz.ValidationError
		if errors.As(err, &verr) && zone != nil {
			logger.Debugf("MRZ parse: document=%q checks failed: %v",
				mrz.MaskDocumentNumber(zone.DocumentNumber), verr.Fields)
			c.JSON(http.StatusOK, gin.H{
				"zone":         zone,
				"valid":        false,
				"failedChecks": verr.Fields,
			})
			return
		}
		status := http.StatusBadRequest
		if errors.Is(err, mrz.ErrFormat) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	logger.Debugf("MRZ parse: document=%q format=%s",
		mrz.MaskDocumentNumber(zone.DocumentNumber), zone.Format)
	c.JSON(http.StatusOK, gin.H{"zone": zone, "valid": true, "failedChecks": []string{}})
}

// Validate reports only whether the zone verifies, without echoing fields.
func (h *MRZHandler) Validate(c *gin.Context) {
	var req MRZRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	zone, err := mrz.Parse(req.Lines)
	if err != nil {
		var verr *mrz.ValidationError
		if errors.As(err, &verr) && zone != nil {
			c.JSON(http.StatusOK, gin.H{"valid": false, "failedChecks": verr.Fields, "format": zone.Format})
			return
		}
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "failedChecks": []string{}, "format": zone.Format})
}
