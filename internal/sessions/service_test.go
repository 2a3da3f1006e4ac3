package sessions

import (
	"context"
	"testing"
	"time"
)

// fake repo for testing
type fakeRepo struct {
	store map[string]*Session
}

func (f *fakeRepo) Create(ctx context.Context, s *Session) error {
	if f.store == nil {
		f.store = map[string]*Session{}
	}
	f.store[s.RefreshToken] = s
	return nil
}
func (f *fakeRepo) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	if f.store == nil {
		return nil, nil
	}
	s, ok := f.store[refresh]
	if !ok {
		return nil, nil
	}
	return s, nil
}
func (f *fakeRepo) DeleteByRefresh(ctx context.Context, refresh string) error {
	if f.store == nil {
		return nil
	}
	delete(f.store, refresh)
	return nil
}
func (f *fakeRepo) DeleteByDevice(ctx context.Context, deviceID string) error {
	for k, s := range f.store {
		if s.DeviceID == deviceID {
			delete(f.store, k)
		}
	}
	return nil
}

func TestCreateAndValidateSession(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()
	r, err := svc.CreateSession(ctx, "kiosk-1", time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if r == "" {
		t.Fatalf("expected refresh token")
	}
	sess, err := svc.ValidateRefresh(ctx, r)
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if sess == nil || sess.DeviceID != "kiosk-1" {
		t.Fatalf("unexpected session: %v", sess)
	}
	if err := svc.DeleteRefresh(ctx, r); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	sess2, _ := svc.ValidateRefresh(ctx, r)
	if sess2 != nil {
		t.Fatalf("expected session removed")
	}
}

func TestRotateRefresh(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()
	old, err := svc.CreateSession(ctx, "kiosk-2", time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	next, sess, err := svc.RotateRefresh(ctx, old, time.Hour)
	if err != nil {
		t.Fatalf("rotate error: %v", err)
	}
	if next == "" || next == old {
		t.Fatalf("expected a fresh token, got %q", next)
	}
	if sess == nil || sess.DeviceID != "kiosk-2" {
		t.Fatalf("unexpected session: %v", sess)
	}
	// old token must be dead
	if got, _ := svc.ValidateRefresh(ctx, old); got != nil {
		t.Fatalf("old token still valid")
	}
	if got, _ := svc.ValidateRefresh(ctx, next); got == nil {
		t.Fatalf("new token invalid")
	}
	// rotating garbage yields no token and no error
	n2, s2, err := svc.RotateRefresh(ctx, "bogus", time.Hour)
	if err != nil || n2 != "" || s2 != nil {
		t.Fatalf("expected empty rotation, got %q %v %v", n2, s2, err)
	}
}

func TestRevokeDevice(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()
	r1, _ := svc.CreateSession(ctx, "kiosk-3", time.Hour)
	r2, _ := svc.CreateSession(ctx, "kiosk-3", time.Hour)
	other, _ := svc.CreateSession(ctx, "kiosk-4", time.Hour)

	if err := svc.RevokeDevice(ctx, "kiosk-3"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if got, _ := svc.ValidateRefresh(ctx, r1); got != nil {
		t.Fatalf("kiosk-3 session survived revoke")
	}
	if got, _ := svc.ValidateRefresh(ctx, r2); got != nil {
		t.Fatalf("kiosk-3 session survived revoke")
	}
	if got, _ := svc.ValidateRefresh(ctx, other); got == nil {
		t.Fatalf("kiosk-4 session should survive")
	}
}
