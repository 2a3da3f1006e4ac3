package handlers

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/veripass/veripass/backend/reader-services/internal/bac"
	"github.com/veripass/veripass/backend/reader-services/internal/mrz"
	"github.com/veripass/veripass/backend/reader-services/internal/pace"
	"github.com/veripass/veripass/backend/reader-services/internal/smartcard"
	"github.com/veripass/veripass/backend/reader-services/pkg/logger"
)

// AccessRequest derives chip access keys either from scanned MRZ lines or
// from manually entered fields (dates as YYMMDD).
type AccessRequest struct {
	Lines          []string `json:"lines"`
	DocumentNumber string   `json:"documentNumber"`
	BirthDate      string   `json:"birthDate"`
	ExpiryDate     string   `json:"expiryDate"`
	SuiteOID       string   `json:"suiteOid"` // PACE only
}

// ReadinessRequest carries the MRZ lines plus the chip probe flags a device
// reports before attempting authentication.
type ReadinessRequest struct {
	Lines             []string `json:"lines" binding:"required"`
	ChipDetected      bool     `json:"chipDetected"`
	CardAccessPresent bool     `json:"cardAccessPresent"`
}

// AccessHandler exposes BAC/PACE key derivation and the readiness report.
type AccessHandler struct{}

func NewAccessHandler() *AccessHandler { return &AccessHandler{} }

func (h *AccessHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/access")
	a.POST("/bac", h.BAC)
	a.POST("/pace", h.PACE)
	rg.POST("/readiness", h.Readiness)
}

// keyInput resolves the MRZ-derived key material string from the request.
func keyInput(req *AccessRequest) (string, error) {
	if len(req.Lines) > 0 {
		zone, err := mrz.Parse(req.Lines)
		if err != nil {
			return "", fmt.Errorf("mrz: %w", err)
		}
		return zone.AccessKeyInput(), nil
	}
	if req.DocumentNumber == "" || len(req.BirthDate) != 6 || len(req.ExpiryDate) != 6 {
		return "", errors.New("either lines or documentNumber/birthDate/expiryDate required")
	}
	doc := req.DocumentNumber
	for len(doc) < 9 {
		doc += "<"
	}
	for _, f := range []string{doc, req.BirthDate, req.ExpiryDate} {
		if mrz.CheckDigit(f) < 0 {
			return "", fmt.Errorf("field %q contains invalid characters", f)
		}
	}
	return fmt.Sprintf("%s%d%s%d%s%d",
		doc, mrz.CheckDigit(doc),
		req.BirthDate, mrz.CheckDigit(req.BirthDate),
		req.ExpiryDate, mrz.CheckDigit(req.ExpiryDate)), nil
}

// BAC derives the basic access control key pair the device needs to open
// the chip's secure channel.
func (h *AccessHandler) BAC(c *gin.Context) {
	var req AccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	info, err := keyInput(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	seed := bac.SeedFromMRZ(info)
	keys, err := bac.DeriveKeys(seed)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Debugf("BAC key derivation requested")
	c.JSON(http.StatusOK, gin.H{
		"seed": hex.EncodeToString(seed),
		"kEnc": hex.EncodeToString(keys.Enc),
		"kMac": hex.EncodeToString(keys.Mac),
	})
}

// PACE derives the password for the requested cipher suite and lists what
// this service supports when no suite is given.
func (h *AccessHandler) PACE(c *gin.Context) {
	var req AccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	info, err := keyInput(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	password := pace.Password(info)
	resp := gin.H{
		"password": hex.EncodeToString(password),
		"suites":   pace.Suites(),
	}
	if req.SuiteOID != "" {
		suite, err := pace.SuiteByOID(req.SuiteOID)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		resp["suite"] = suite
		resp["nonceKey"] = hex.EncodeToString(pace.NonceKey(password, suite))
	}
	c.JSON(http.StatusOK, resp)
}

// Readiness builds the pre-read report from the scanned zone and the chip
// flags the device observed.
func (h *AccessHandler) Readiness(c *gin.Context) {
	var req ReadinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r := &smartcard.Readiness{Protocol: smartcard.ProtocolNone}

	zone, err := mrz.Parse(req.Lines)
	var verr *mrz.ValidationError
	switch {
	case err == nil:
		r.MRZComplete = true
	case errors.As(err, &verr) && zone != nil:
		r.Detail = "MRZ check digits failed; re-scan the document"
	default:
		r.Detail = "MRZ unreadable: " + err.Error()
	}

	if req.ChipDetected {
		r.ChipReachable = true
		if req.CardAccessPresent {
			r.Protocol = smartcard.ProtocolPACE
		} else {
			r.Protocol = smartcard.ProtocolBAC
		}
	} else if r.Detail == "" {
		r.Detail = "chip not detected; hold the card steady on the reader"
	}

	logger.Debugf("readiness report:\n%s", r)
	c.JSON(http.StatusOK, gin.H{"readiness": r, "ready": r.Ready(), "report": r.String()})
}
