package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
	"github.com/ehevelone/vitalink-app/internal/repository"
)

type memDeviceRepo struct {
	byToken map[string]*domain.Device
}

func newMemDeviceRepo() *memDeviceRepo {
	return &memDeviceRepo{byToken: make(map[string]*domain.Device)}
}

func (r *memDeviceRepo) GetByToken(_ context.Context, deviceToken string) (*domain.Device, error) {
	device, ok := r.byToken[deviceToken]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *device
	return &copy, nil
}

func (r *memDeviceRepo) Upsert(_ context.Context, device domain.Device) (*domain.Device, error) {
	if existing, ok := r.byToken[device.DeviceToken]; ok {
		existing.UserID = device.UserID
		existing.AgentID = device.AgentID
		existing.Platform = device.Platform
		existing.UpdatedAt = device.UpdatedAt
		copy := *existing
		return &copy, nil
	}
	copy := device
	r.byToken[device.DeviceToken] = &copy
	out := copy
	return &out, nil
}

type memClientDirectory struct {
	users map[string]struct {
		id      string
		agentID *string
	}
}

func newMemClientDirectory() *memClientDirectory {
	return &memClientDirectory{users: make(map[string]struct {
		id      string
		agentID *string
	})}
}

func (d *memClientDirectory) add(email, id string, agentID *string) {
	d.users[email] = struct {
		id      string
		agentID *string
	}{id: id, agentID: agentID}
}

func (d *memClientDirectory) ResolveUser(_ context.Context, email string) (string, *string, error) {
	user, ok := d.users[email]
	if !ok {
		return "", nil, repository.ErrNotFound
	}
	return user.id, user.agentID, nil
}

func TestDeviceRegisterBindsTokenToUser(t *testing.T) {
	devices := newMemDeviceRepo()
	directory := newMemClientDirectory()
	agentID := "agent-7"
	directory.add("pat@example.com", "user-1", &agentID)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewDeviceService(devices, directory, nil).WithClock(func() time.Time { return now })

	device, err := svc.Register(context.Background(), RegisterDeviceInput{
		Email:       "  Pat@Example.com ",
		DeviceToken: "apns-token-1",
		Platform:    "iOS",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if device.UserID != "user-1" || device.AgentID != "agent-7" {
		t.Fatalf("unexpected ownership: user=%s agent=%s", device.UserID, device.AgentID)
	}
	if device.Platform != "ios" {
		t.Fatalf("expected normalized platform, got %q", device.Platform)
	}
	if !device.CreatedAt.Equal(now) {
		t.Fatalf("expected created at %v, got %v", now, device.CreatedAt)
	}
}

func TestDeviceRegisterMovesExistingToken(t *testing.T) {
	devices := newMemDeviceRepo()
	directory := newMemClientDirectory()
	firstAgent := "agent-1"
	secondAgent := "agent-2"
	directory.add("first@example.com", "user-1", &firstAgent)
	directory.add("second@example.com", "user-2", &secondAgent)

	svc := NewDeviceService(devices, directory, nil)

	if _, err := svc.Register(context.Background(), RegisterDeviceInput{
		Email:       "first@example.com",
		DeviceToken: "fcm-token",
		Platform:    "android",
	}); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	moved, err := svc.Register(context.Background(), RegisterDeviceInput{
		Email:       "second@example.com",
		DeviceToken: "fcm-token",
		Platform:    "android",
	})
	if err != nil {
		t.Fatalf("second Register returned error: %v", err)
	}
	if moved.UserID != "user-2" || moved.AgentID != "agent-2" {
		t.Fatalf("expected token moved to user-2, got user=%s agent=%s", moved.UserID, moved.AgentID)
	}
}

func TestDeviceRegisterRejectsUnassignedUser(t *testing.T) {
	devices := newMemDeviceRepo()
	directory := newMemClientDirectory()
	directory.add("orphan@example.com", "user-9", nil)
	empty := "  "
	directory.add("blank@example.com", "user-10", &empty)

	svc := NewDeviceService(devices, directory, nil)

	for _, email := range []string{"orphan@example.com", "blank@example.com"} {
		_, err := svc.Register(context.Background(), RegisterDeviceInput{
			Email:       email,
			DeviceToken: "token-x",
			Platform:    "ios",
		})
		if !errors.Is(err, ErrNoServicingAgent) {
			t.Fatalf("expected ErrNoServicingAgent for %s, got %v", email, err)
		}
	}
}

func TestDeviceRegisterUnknownUser(t *testing.T) {
	svc := NewDeviceService(newMemDeviceRepo(), newMemClientDirectory(), nil)

	_, err := svc.Register(context.Background(), RegisterDeviceInput{
		Email:       "missing@example.com",
		DeviceToken: "token-y",
		Platform:    "ios",
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
