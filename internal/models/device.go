package models

import "time"

// Device represents an enrolled reader device (kiosk, gate or handheld).
type Device struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	DeviceID  string    `bson:"deviceId" json:"deviceId"`
	Label     string    `bson:"label" json:"label"`
	Location  string    `bson:"location,omitempty" json:"location,omitempty"`
	Model     string    `bson:"model,omitempty" json:"model,omitempty"`
	LastSeen  time.Time `bson:"lastSeen" json:"lastSeen"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
