package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/veripass/veripass/backend/reader-services/internal/config"
	"github.com/veripass/veripass/backend/reader-services/internal/models"
)

// GenerateAccessToken creates a signed JWT access token for an enrolled
// reader device.
func GenerateAccessToken(cfg *config.Config, d *models.Device, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":      d.DeviceID,
		"label":    d.Label,
		"location": d.Location,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}
