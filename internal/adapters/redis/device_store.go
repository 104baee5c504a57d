package redis

// Package redis provides Redis-based adapters for device-scoped storage.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
	"github.com/purumi/purumi/internal/ports"
)

var (
	_ ports.SessionStore = (*DeviceStore)(nil)
	_ ports.DraftStore   = (*DeviceStore)(nil)
)

// Keys under a device namespace.
const (
	KeyGuestID          = "guest_id"
	KeyReservationDraft = "reservation_draft"
	KeyUserSession      = "user_session"
)

const defaultPrefix = "purumi:device:"

// DeviceStore keeps the guest marker, the persisted backend session and the
// reservation draft of one device in Redis.
type DeviceStore struct {
	client redis.UniversalClient
	prefix string
}

// NewDeviceStore creates a store for deviceID using the default key prefix.
func NewDeviceStore(client redis.UniversalClient, deviceID string) *DeviceStore {
	return NewDeviceStoreWithPrefix(client, defaultPrefix, deviceID)
}

// NewDeviceStoreWithPrefix creates a store whose keys are prefix+deviceID+":"+name.
func NewDeviceStoreWithPrefix(client redis.UniversalClient, prefix, deviceID string) *DeviceStore {
	if deviceID == "" {
		deviceID = "default"
	}
	return &DeviceStore{
		client: client,
		prefix: prefix + deviceID + ":",
	}
}

func (s *DeviceStore) key(name string) string { return s.prefix + name }

func (s *DeviceStore) GetGuestMarker(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, s.key(KeyGuestID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get guest id: %w", err)
	}
	return id, nil
}

func (s *DeviceStore) SetGuestMarker(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("guest id cannot be empty")
	}
	if err := s.client.Set(ctx, s.key(KeyGuestID), id, 0).Err(); err != nil {
		return fmt.Errorf("redis set guest id: %w", err)
	}
	return nil
}

func (s *DeviceStore) ClearGuestMarker(ctx context.Context) error {
	return s.del(ctx, KeyGuestID)
}

func (s *DeviceStore) SaveSession(ctx context.Context, session domainauth.SessionToken) error {
	return s.setJSON(ctx, KeyUserSession, session)
}

func (s *DeviceStore) LoadSession(ctx context.Context) (*domainauth.SessionToken, error) {
	var session domainauth.SessionToken
	ok, err := s.getJSON(ctx, KeyUserSession, &session)
	if err != nil || !ok {
		return nil, err
	}
	return &session, nil
}

func (s *DeviceStore) ClearSession(ctx context.Context) error {
	return s.del(ctx, KeyUserSession)
}

func (s *DeviceStore) SaveDraft(ctx context.Context, draft domainauth.ReservationDraft) error {
	return s.setJSON(ctx, KeyReservationDraft, draft)
}

func (s *DeviceStore) GetDraft(ctx context.Context) (*domainauth.ReservationDraft, error) {
	var draft domainauth.ReservationDraft
	ok, err := s.getJSON(ctx, KeyReservationDraft, &draft)
	if err != nil || !ok {
		return nil, err
	}
	return &draft, nil
}

func (s *DeviceStore) ClearDraft(ctx context.Context) error {
	return s.del(ctx, KeyReservationDraft)
}

func (s *DeviceStore) HasDraft(ctx context.Context) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(KeyReservationDraft)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists draft: %w", err)
	}
	return n > 0, nil
}

// ClearAll removes every key of the device.
func (s *DeviceStore) ClearAll(ctx context.Context) error {
	keys := []string{s.key(KeyGuestID), s.key(KeyReservationDraft), s.key(KeyUserSession)}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis clear device: %w", err)
	}
	return nil
}

func (s *DeviceStore) setJSON(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := s.client.Set(ctx, s.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", name, err)
	}
	return nil
}

func (s *DeviceStore) getJSON(ctx context.Context, name string, v any) (bool, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return true, nil
}

func (s *DeviceStore) del(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, s.key(name)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", name, err)
	}
	return nil
}
