package device

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Persistence is the storage surface the Store needs.
// Satisfied by *Repository; narrowed for testing.
type Persistence interface {
	Create(ctx context.Context, d *Device) error
	List(ctx context.Context) ([]*Device, error)
	Update(ctx context.Context, d *Device) error
	SetStatus(ctx context.Context, id string, status Status) error
	SetOnline(ctx context.Context, id string, online bool, lastSeen time.Time) error
	MarkStaleBefore(ctx context.Context, cutoff time.Time) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// Logger is the minimal logging surface the Store needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Store is the in-memory device state store backed by persistence.
//
// All reads are served from the cache; a read never touches the database
// on the hot path. Writes persist first and update the cache only on
// success, so the cache never reports state the database rejected and a
// restart reloads exactly what callers were shown.
//
// Status updates come in two flavours:
//   - optimistic: applied when a command is sent, before the device confirms
//   - confirmed: applied when the device reports its actual state
//
// Both merge key-by-key. A confirmed update also refreshes liveness, and its
// values overwrite any optimistic value for the same key, so the device's
// own report always wins.
type Store struct {
	repo   Persistence
	logger Logger

	mu         sync.RWMutex
	cache      map[string]*Device // keyed by device ID
	byHardware map[string]string  // hardware ID → device ID
}

// NewStore creates a device store and warms the cache from persistence.
func NewStore(ctx context.Context, repo Persistence, logger Logger) (*Store, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	s := &Store{
		repo:       repo,
		logger:     logger,
		cache:      make(map[string]*Device),
		byHardware: make(map[string]string),
	}

	devices, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load devices: %w", err)
	}
	for _, d := range devices {
		s.cache[d.ID] = d
		if d.HardwareID != "" {
			s.byHardware[d.HardwareID] = d.ID
		}
	}

	logger.Info("device store loaded", "devices", len(devices))
	return s, nil
}

// Register adds a new device to the store.
//
// Missing fields are defaulted: a generated ID, an empty status map, and
// current timestamps. The device starts offline until its first message.
func (s *Store) Register(ctx context.Context, d *Device) (*Device, error) {
	if d.Name == "" || d.Type == "" {
		return nil, fmt.Errorf("%w: name and type are required", ErrInvalidDevice)
	}

	clone := d.DeepCopy()
	if clone.ID == "" {
		clone.ID = GenerateID()
	}
	if clone.Status == nil {
		clone.Status = Status{}
	}
	now := time.Now().UTC()
	clone.CreatedAt = now
	clone.UpdatedAt = now
	clone.Online = false
	clone.LastSeen = now

	if err := s.repo.Create(ctx, clone); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[clone.ID] = clone
	if clone.HardwareID != "" {
		s.byHardware[clone.HardwareID] = clone.ID
	}
	s.mu.Unlock()

	return clone.DeepCopy(), nil
}

// Get returns the device with the given ID.
func (s *Store) Get(id string) (*Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.cache[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d.DeepCopy(), nil
}

// GetByHardwareID returns the device registered under the hardware ID.
func (s *Store) GetByHardwareID(hardwareID string) (*Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHardware[hardwareID]
	if !ok {
		return nil, fmt.Errorf("%w: hardware %s", ErrNotFound, hardwareID)
	}
	return s.cache[id].DeepCopy(), nil
}

// List returns all devices.
func (s *Store) List() []*Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := make([]*Device, 0, len(s.cache))
	for _, d := range s.cache {
		devices = append(devices, d.DeepCopy())
	}
	return devices
}

// ApplyOptimistic merges a status patch for a command that was just sent.
//
// The device has not confirmed yet; liveness fields are left alone. If the
// device never confirms, the next confirmed update overwrites these keys
// with reality.
func (s *Store) ApplyOptimistic(ctx context.Context, id string, patch Status) (*Device, error) {
	return s.applyPatch(ctx, id, patch, false)
}

// ApplyConfirmed merges a status patch reported by the device itself.
// The device is marked online and its last-seen time refreshed.
func (s *Store) ApplyConfirmed(ctx context.Context, id string, patch Status) (*Device, error) {
	return s.applyPatch(ctx, id, patch, true)
}

func (s *Store) applyPatch(ctx context.Context, id string, patch Status, confirmed bool) (*Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.cache[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	now := time.Now().UTC()
	merged := d.Status.Merge(patch)

	// Persist first; on failure the cache keeps its last durable state.
	if len(patch) > 0 {
		if err := s.repo.SetStatus(ctx, id, merged); err != nil {
			return nil, err
		}
	}
	if confirmed {
		if err := s.repo.SetOnline(ctx, id, true, now); err != nil {
			return nil, err
		}
	}

	d.Status = merged
	d.UpdatedAt = now
	if confirmed {
		d.Online = true
		d.LastSeen = now
	}

	return d.DeepCopy(), nil
}

// Heartbeat records a liveness beacon from the device.
//
// Auxiliary attributes carried by the beacon (battery, signal strength)
// are merged into status when present.
func (s *Store) Heartbeat(ctx context.Context, id string, attrs Status) error {
	_, err := s.ApplyConfirmed(ctx, id, attrs)
	return err
}

// SweepStale marks devices not seen within the timeout as offline.
// Returns the IDs of devices that transitioned to offline.
func (s *Store) SweepStale(ctx context.Context, timeout time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-timeout)

	ids, err := s.repo.MarkStaleBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	for _, id := range ids {
		if d, ok := s.cache[id]; ok {
			d.Online = false
		}
	}
	s.mu.Unlock()

	s.logger.Info("devices marked offline", "count", len(ids), "timeout", timeout)
	return ids, nil
}

// Update persists metadata changes (name, type, room) for a device.
func (s *Store) Update(ctx context.Context, id string, name, deviceType, roomID string) (*Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.cache[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	clone := d.DeepCopy()
	if name != "" {
		clone.Name = name
	}
	if deviceType != "" {
		clone.Type = deviceType
	}
	if roomID != "" {
		clone.RoomID = roomID
	}
	clone.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, clone); err != nil {
		return nil, err
	}

	s.cache[id] = clone
	return clone.DeepCopy(), nil
}

// Remove deletes a device from the store and persistence.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	if d, ok := s.cache[id]; ok {
		delete(s.byHardware, d.HardwareID)
		delete(s.cache, id)
	}
	s.mu.Unlock()

	return nil
}

// Count returns the number of devices in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}
