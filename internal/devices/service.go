package devices

import (
	"context"

	"github.com/veripass/veripass/backend/reader-services/internal/models"
)

// Service encapsulates reader-device enrollment logic.
type Service struct {
	repo DeviceRepository
}

func NewService(r DeviceRepository) *Service {
	return &Service{repo: r}
}

// Enroll registers a device or refreshes its metadata. A device identifier
// is mandatory; everything else is optional.
func (s *Service) Enroll(ctx context.Context, deviceID, label, location, model string) (*models.Device, error) {
	if deviceID == "" {
		return nil, nil
	}
	d := &models.Device{
		DeviceID: deviceID,
		Label:    label,
		Location: location,
		Model:    model,
	}
	return s.repo.UpsertByDeviceID(ctx, d)
}

func (s *Service) Get(ctx context.Context, deviceID string) (*models.Device, error) {
	return s.repo.GetByDeviceID(ctx, deviceID)
}

// Heartbeat records that a device checked in.
func (s *Service) Heartbeat(ctx context.Context, deviceID string) error {
	return s.repo.TouchLastSeen(ctx, deviceID)
}

func (s *Service) List(ctx context.Context) ([]*models.Device, error) {
	return s.repo.List(ctx)
}
