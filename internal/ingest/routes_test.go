package ingest

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/perimetra/sentinel/internal/model"
	"github.com/perimetra/sentinel/internal/model/core"
	"github.com/perimetra/sentinel/internal/service"
	"github.com/perimetra/sentinel/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServices(t *testing.T) Services {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ingest_test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.DatabaseModels...))

	ctx := context.Background()
	devices := service.NewDeviceService(db, store.New[core.Device]("devices", zerolog.Nop()), zerolog.Nop())
	events := service.NewEventService(db, store.New[core.Event]("events", zerolog.Nop()), zerolog.Nop())
	require.NoError(t, devices.Connect(ctx))
	require.NoError(t, events.Connect(ctx))
	return Services{Devices: devices, Events: events}
}

func TestRoutes_GPSPlacement(t *testing.T) {
	r := newTestRouter(t)
	svc := newTestServices(t)
	RegisterRoutes(r, svc, zerolog.Nop())

	ctx := context.Background()
	dev, err := svc.Devices.Insert(ctx, &core.Controller{
		DeviceBase: core.DeviceBase{Name: "Gate Panel", Group: "site-a"},
	})
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]any{
		"id": dev.EntityID(), "lon": 0.001, "lat": 0.0, "elev": 12.5,
	})
	require.NoError(t, err)

	_, err = r.Dispatch(Record{Route: "device.place.gps", Payload: payload, ReceivedAt: time.Now()})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		fresh, ferr := svc.Devices.Fetch(ctx, dev.EntityID())
		return ferr == nil && fresh != nil && fresh.Base().Placement != nil
	}, time.Second, 5*time.Millisecond)

	fresh, err := svc.Devices.Fetch(ctx, dev.EntityID())
	require.NoError(t, err)
	p := fresh.Base().Placement

	// 0.001 degrees of longitude on the equator is ~111.32 planar meters
	assert.InDelta(t, 111.3195, p.X, 0.01)
	assert.InDelta(t, 0, p.Y, 1e-6)
	assert.InDelta(t, 12.5, p.Z, 1e-6)
}

func TestRoutes_GPSPlacementRejectsOutOfRange(t *testing.T) {
	svc := newTestServices(t)

	handler := deviceGPSPlace(svc.Devices)
	payload, err := json.Marshal(map[string]any{"id": 1, "lon": 200.0, "lat": 0.0})
	require.NoError(t, err)

	_, err = handler(Record{Route: "device.place.gps", Payload: payload})
	assert.Error(t, err)
}
