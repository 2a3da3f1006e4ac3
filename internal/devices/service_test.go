package devices

import (
	"context"
	"testing"
	"time"

	"github.com/veripass/veripass/backend/reader-services/internal/models"
)

type fakeRepo struct {
	lastUpsert *models.Device
	touched    []string
	upsertErr  error
}

func (f *fakeRepo) UpsertByDeviceID(ctx context.Context, d *models.Device) (*models.Device, error) {
	f.lastUpsert = d
	now := time.Now().UTC()
	if f.lastUpsert.CreatedAt.IsZero() {
		f.lastUpsert.CreatedAt = now
	}
	f.lastUpsert.UpdatedAt = now
	ret := *f.lastUpsert
	ret.ID = "abcd1234"
	return &ret, f.upsertErr
}

func (f *fakeRepo) GetByDeviceID(ctx context.Context, deviceID string) (*models.Device, error) {
	return nil, nil
}

func (f *fakeRepo) TouchLastSeen(ctx context.Context, deviceID string) error {
	f.touched = append(f.touched, deviceID)
	return nil
}

func (f *fakeRepo) List(ctx context.Context) ([]*models.Device, error) {
	return nil, nil
}

func TestEnroll(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	d, err := svc.Enroll(ctx, "kiosk-7", "Terminal 2 kiosk", "IST T2 arrivals", "ACR1252U")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d == nil {
		t.Fatal("expected device, got nil")
	}
	if d.DeviceID != "kiosk-7" {
		t.Fatalf("unexpected deviceId: %s", d.DeviceID)
	}
	if d.Location != "IST T2 arrivals" {
		t.Fatalf("unexpected location: %s", d.Location)
	}
	if repo.lastUpsert == nil {
		t.Fatal("expected repository UpsertByDeviceID to be called")
	}
	if repo.lastUpsert.CreatedAt.IsZero() || repo.lastUpsert.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}
	if d.ID == "" {
		t.Fatalf("expected returned device to have an ID set by repo")
	}

	// missing device id => nil, no error
	d2, err := svc.Enroll(ctx, "", "x", "", "")
	if err != nil {
		t.Fatalf("unexpected error on missing deviceId: %v", err)
	}
	if d2 != nil {
		t.Fatalf("expected nil when deviceId missing, got: %v", d2)
	}
}

func TestHeartbeat(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	if err := svc.Heartbeat(context.Background(), "kiosk-7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.touched) != 1 || repo.touched[0] != "kiosk-7" {
		t.Fatalf("expected TouchLastSeen(kiosk-7), got %v", repo.touched)
	}
}
