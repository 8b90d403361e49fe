// Package service bridges the relational store to the entity stores, one
// orchestrator per entity family. Every operation talks to the database
// first and mutates the cache only after the database confirmed success, so
// a failed or canceled operation always leaves the cache exactly as it was.
package service

import (
	"context"
	"errors"

	"github.com/perimetra/sentinel/internal/model"
	"github.com/perimetra/sentinel/internal/model/convert"
	"github.com/perimetra/sentinel/internal/model/core"
	"github.com/perimetra/sentinel/internal/store"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// DeviceService is the database orchestrator for the device family.
type DeviceService struct {
	lifecycle
	db    *gorm.DB
	store *store.Store[core.Device]
	log   zerolog.Logger
}

// NewDeviceService creates a device orchestrator over db feeding st.
func NewDeviceService(db *gorm.DB, st *store.Store[core.Device], log zerolog.Logger) *DeviceService {
	return &DeviceService{
		db:    db,
		store: st,
		log:   log.With().Str("service", "devices").Logger(),
	}
}

// Store returns the canonical device store.
func (s *DeviceService) Store() *store.Store[core.Device] { return s.store }

// Connect verifies database reachability and moves the service to the
// connected state.
func (s *DeviceService) Connect(ctx context.Context) error {
	s.setState(StateConnecting)
	if err := s.db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		s.setState(StateDisconnected)
		return &StoreError{Op: "connecting device service", Err: err}
	}
	s.setState(StateConnected)
	return nil
}

// Disconnect moves the service back to the disconnected state.
func (s *DeviceService) Disconnect() {
	s.setState(StateDisconnected)
}

// Insert persists a new device, lets the database assign its id, adds the
// persisted entity to the store and returns it. On failure the cache is left
// untouched.
func (s *DeviceService) Insert(ctx context.Context, d core.Device) (core.Device, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	row, err := convert.DeviceToModel(d)
	if err != nil {
		return nil, err
	}
	row.ID = 0

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, &StoreError{Op: "inserting device", Err: err}
	}

	out, err := convert.DeviceToCore(row)
	if err != nil {
		return nil, err
	}
	out.Base().Status = d.Base().Status

	s.store.Add(out)
	return out, nil
}

// Fetch reads one device straight from the database, bypassing the cache to
// avoid staleness on point lookups. Returns (nil, nil) when absent.
func (s *DeviceService) Fetch(ctx context.Context, id uint) (core.Device, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	var row model.Device
	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "fetching device", Err: err}
	}
	return convert.DeviceToCore(row)
}

// FetchAll reads every device from the database. Does not mutate the cache.
// Rows that fail to convert are logged and skipped.
func (s *DeviceService) FetchAll(ctx context.Context) ([]core.Device, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	var rows []model.Device
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, &StoreError{Op: "fetching devices", Err: err}
	}

	devices := make([]core.Device, 0, len(rows))
	for _, row := range rows {
		d, err := convert.DeviceToCore(row)
		if err != nil {
			s.log.Warn().Err(err).Uint("id", row.ID).Msg("Skipping unconvertible device row")
			continue
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// Update persists changes to an existing device, then replaces the matching
// store entry so views observe it as a replace. If the id is no longer
// cached (raced with a delete) the cache is deliberately left unchanged.
func (s *DeviceService) Update(ctx context.Context, d core.Device) (core.Device, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	row, err := convert.DeviceToModel(d)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Omit("created_at").Save(&row).Error; err != nil {
		return nil, &StoreError{Op: "updating device", Err: err}
	}

	out, err := convert.DeviceToCore(row)
	if err != nil {
		return nil, err
	}
	out.Base().Status = d.Base().Status

	if !s.store.Replace(out) {
		s.log.Debug().Uint("id", out.EntityID()).Msg("Updated device not cached, cache unchanged")
	}
	return out, nil
}

// Delete removes a device. Deleting a controller cascades to every sensor
// referencing it: the database side runs in one transaction, and the cache is
// mutated only after the transaction committed, children first. A failed
// cascade leaves both database and cache consistent with each other.
func (s *DeviceService) Delete(ctx context.Context, d core.Device) error {
	if err := s.ensureConnected(); err != nil {
		return err
	}

	if d.Kind() == core.KindController {
		return s.deleteControllerCascade(ctx, d)
	}

	if err := s.db.WithContext(ctx).Delete(&model.Device{}, d.EntityID()).Error; err != nil {
		return &StoreError{Op: "deleting device", Err: err}
	}
	s.store.Remove(d)
	return nil
}

func (s *DeviceService) deleteControllerCascade(ctx context.Context, d core.Device) error {
	var children []model.Device

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("controller_id = ?", d.EntityID()).Find(&children).Error; err != nil {
			return &CascadeError{Step: "fetching dependent sensors", Err: err}
		}
		if len(children) > 0 {
			if err := tx.Where("controller_id = ?", d.EntityID()).Delete(&model.Device{}).Error; err != nil {
				return &CascadeError{Step: "deleting dependent sensors", Err: err}
			}
		}
		if err := tx.Delete(&model.Device{}, d.EntityID()).Error; err != nil {
			return &CascadeError{Step: "deleting controller", Err: err}
		}
		return nil
	})
	if err != nil {
		var ce *CascadeError
		if errors.As(err, &ce) {
			return ce
		}
		return &CascadeError{Step: "committing", Err: err}
	}

	// store side succeeded as a whole; now the cache, children first
	for _, row := range children {
		child, cerr := convert.DeviceToCore(row)
		if cerr != nil {
			s.log.Warn().Err(cerr).Uint("id", row.ID).Msg("Skipping unconvertible sensor row during cascade removal")
			continue
		}
		s.store.Remove(child)
	}
	s.store.Remove(d)
	return nil
}

// Rehydrate discards the cached device family and repopulates it from a
// fresh bulk read, as one atomic-appearing step.
func (s *DeviceService) Rehydrate(ctx context.Context) error {
	devices, err := s.FetchAll(ctx)
	if err != nil {
		return err
	}
	s.store.ResetTo(devices)
	s.markHydrated()
	s.log.Info().Int("count", len(devices)).Msg("Device cache rehydrated")
	return nil
}

// SetStatus updates a cached device's runtime status. Status is never
// persisted, so this is a pure cache operation: the cached entry is replaced
// by a copy carrying the new status. Returns false when the id is not cached.
func (s *DeviceService) SetStatus(id uint, status core.DeviceStatus) bool {
	d, ok := s.store.Get(id)
	if !ok {
		return false
	}
	clone := cloneDevice(d)
	clone.Base().Status = status
	return s.store.Replace(clone)
}

// cloneDevice shallow-copies a device so runtime-only mutations never touch
// instances other holders may be reading.
func cloneDevice(d core.Device) core.Device {
	switch v := d.(type) {
	case *core.Controller:
		c := *v
		return &c
	case *core.Sensor:
		c := *v
		return &c
	case *core.Camera:
		c := *v
		return &c
	default:
		return d
	}
}
