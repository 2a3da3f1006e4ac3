package handlers

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/veripass/veripass/backend/reader-services/internal/config"
	"github.com/veripass/veripass/backend/reader-services/internal/devices"
	"github.com/veripass/veripass/backend/reader-services/internal/sessions"
	"github.com/veripass/veripass/backend/reader-services/internal/tokens"
	"github.com/veripass/veripass/backend/reader-services/pkg/logger"
)

// EnrollRequest registers a reader device using the shared enrollment key.
type EnrollRequest struct {
	DeviceID  string `json:"deviceId" binding:"required"`
	EnrollKey string `json:"enrollKey" binding:"required"`
	Label     string `json:"label"`
	Location  string `json:"location"`
	Model     string `json:"model"`
}

// AuthHandler holds the device authentication dependencies.
type AuthHandler struct {
	cfg         *config.Config
	devicesSvc  *devices.Service
	sessionsSvc *sessions.Service
}

func NewAuthHandler(cfg *config.Config, d *devices.Service, s *sessions.Service) *AuthHandler {
	return &AuthHandler{cfg: cfg, devicesSvc: d, sessionsSvc: s}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/enroll", h.Enroll)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

// Enroll authenticates a device with the enrollment key and issues its
// first access/refresh token pair.
func (h *AuthHandler) Enroll(c *gin.Context) {
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.cfg.Enrollment.Key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enrollment not configured"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.EnrollKey), []byte(h.cfg.Enrollment.Key)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid enrollment key"})
		return
	}

	d, err := h.devicesSvc.Enroll(c.Request.Context(), req.DeviceID, req.Label, req.Location, req.Model)
	if err != nil {
		logger.Errorf("device enroll error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "device enrollment failed"})
		return
	}
	if d == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deviceId required"})
		return
	}

	refresh, err := h.sessionsSvc.CreateSession(c.Request.Context(), d.DeviceID, h.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, d, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  access,
		"refreshToken": refresh,
		"device":       d,
		"expiresIn":    int(h.cfg.JWT.AccessTokenTTL.Seconds()),
	})
}

// Refresh rotates the refresh token and returns a fresh access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	next, sess, err := h.sessionsSvc.RotateRefresh(c.Request.Context(), req.RefreshToken, h.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	d, err := h.devicesSvc.Get(c.Request.Context(), sess.DeviceID)
	if err != nil || d == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "device lookup failed"})
		return
	}
	_ = h.devicesSvc.Heartbeat(c.Request.Context(), d.DeviceID)
	access, err := tokens.GenerateAccessToken(h.cfg, d, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  access,
		"refreshToken": next,
		"expiresIn":    int(h.cfg.JWT.AccessTokenTTL.Seconds()),
	})
}

// Logout invalidates the refresh token and blacklists the presented access
// token for its remaining lifetime.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	auth := c.GetHeader("Authorization")
	if auth != "" {
		var at string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &at); n == 1 {
			if exp, err := parseExpFromJWT(at); err == nil {
				if ttl := time.Until(exp); ttl > 0 {
					if err := sessions.BlacklistAccessToken(c.Request.Context(), at, ttl); err != nil {
						c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
						return
					}
				}
			}
		}
	}
	if err := h.sessionsSvc.DeleteRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// parseExpFromJWT decodes the JWT payload and returns the `exp` claim.
// Payload-only parsing, no signature verification; only used to compute the
// remaining TTL for blacklisting.
func parseExpFromJWT(tok string) (time.Time, error) {
	parts := strings.Split(tok, ".")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid token")
	}
	b, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		b, err = base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			return time.Time{}, err
		}
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(b, &claims); err != nil {
		return time.Time{}, err
	}
	v, ok := claims["exp"]
	if !ok {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	switch vv := v.(type) {
	case float64:
		return time.Unix(int64(vv), 0), nil
	case json.Number:
		i64, err := vv.Int64()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(i64, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported exp type %T", v)
	}
}
