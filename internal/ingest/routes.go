package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/perimetra/sentinel/internal/geo"
	"github.com/perimetra/sentinel/internal/model/convert"
	"github.com/perimetra/sentinel/internal/model/core"
	"github.com/perimetra/sentinel/internal/service"
	"github.com/rs/zerolog"
)

// Services groups the orchestrators the ingest routes write through.
type Services struct {
	Devices *service.DeviceService
	Events  *service.EventService
}

// RegisterRoutes binds the controller record streams to their handlers.
// Device and event writes are buffered so a slow database never stalls the
// receive path; status flips are cache-only and stay synchronous.
func RegisterRoutes(r *Router, svc Services, log zerolog.Logger) {
	r.Register("device.upsert", deviceUpsert(svc.Devices), Buffered(256), Logged())
	r.Register("device.batch", deviceBatch(svc.Devices, log), Buffered(16), Blocking(), Logged())
	r.Register("device.status", deviceStatus(svc.Devices))
	r.Register("device.place", devicePlace(svc.Devices), Buffered(64))
	r.Register("device.place.gps", deviceGPSPlace(svc.Devices), Buffered(64))
	r.Register("event.record", eventRecord(svc.Events), Buffered(1024), Logged())
	r.Register("event.close", eventClose(svc.Events), Buffered(256))
}

func deviceUpsert(devices *service.DeviceService) HandlerFunc {
	return func(rec Record) (any, error) {
		dev, err := convert.DecodeDevice(rec.Payload)
		if err != nil {
			return nil, err
		}
		if dev == nil {
			// reserved kind, nothing to do
			return nil, nil
		}

		ctx := context.Background()
		if dev.EntityID() == 0 {
			return devices.Insert(ctx, dev)
		}
		return devices.Update(ctx, dev)
	}
}

func deviceBatch(devices *service.DeviceService, log zerolog.Logger) HandlerFunc {
	return func(rec Record) (any, error) {
		batch, err := convert.DecodeDeviceList(rec.Payload)
		if err != nil {
			// partial decode: keep what parsed, report what did not
			log.Warn().Err(err).Int("decoded", len(batch)).Msg("Device batch decoded partially")
		}

		ctx := context.Background()
		inserted := 0
		for _, dev := range batch {
			if _, insErr := devices.Insert(ctx, dev); insErr != nil {
				log.Error().Err(insErr).Msg("Device batch insert failed")
				continue
			}
			inserted++
		}
		return inserted, nil
	}
}

func deviceStatus(devices *service.DeviceService) HandlerFunc {
	return func(rec Record) (any, error) {
		var body struct {
			ID     uint   `json:"id"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(rec.Payload, &body); err != nil {
			return nil, fmt.Errorf("decoding status record: %w", err)
		}

		var status core.DeviceStatus
		switch body.Status {
		case "online":
			status = core.StatusOnline
		case "offline":
			status = core.StatusOffline
		case "fault":
			status = core.StatusFault
		default:
			status = core.StatusUnknown
		}

		devices.SetStatus(body.ID, status)
		return nil, nil
	}
}

func devicePlace(devices *service.DeviceService) HandlerFunc {
	return func(rec Record) (any, error) {
		var body struct {
			ID     uint   `json:"id"`
			Coords string `json:"coords"`
		}
		if err := json.Unmarshal(rec.Payload, &body); err != nil {
			return nil, fmt.Errorf("decoding placement record: %w", err)
		}

		placement, err := geo.PlacementFromString(body.Coords)
		if err != nil {
			return nil, err
		}
		return placeDevice(devices, body.ID, placement)
	}
}

// deviceGPSPlace handles devices commissioned from survey coordinates: the
// record carries WGS84 longitude/latitude, projected to the planar frame
// before storing.
func deviceGPSPlace(devices *service.DeviceService) HandlerFunc {
	return func(rec Record) (any, error) {
		var body struct {
			ID        uint    `json:"id"`
			Longitude float64 `json:"lon"`
			Latitude  float64 `json:"lat"`
			Elevation float64 `json:"elev"`
		}
		if err := json.Unmarshal(rec.Payload, &body); err != nil {
			return nil, fmt.Errorf("decoding gps placement record: %w", err)
		}

		placement, err := geo.PlacementFrom4326(body.Longitude, body.Latitude, body.Elevation)
		if err != nil {
			return nil, err
		}
		return placeDevice(devices, body.ID, placement)
	}
}

func placeDevice(devices *service.DeviceService, id uint, placement core.Placement) (any, error) {
	ctx := context.Background()
	dev, err := devices.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, nil
	}
	dev.Base().Placement = &placement
	return devices.Update(ctx, dev)
}

func eventRecord(events *service.EventService) HandlerFunc {
	return func(rec Record) (any, error) {
		ev, err := convert.DecodeEvent(rec.Payload)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			return nil, nil
		}
		return events.Insert(context.Background(), ev)
	}
}

func eventClose(events *service.EventService) HandlerFunc {
	return func(rec Record) (any, error) {
		var body struct {
			ID uint `json:"id"`
		}
		if err := json.Unmarshal(rec.Payload, &body); err != nil {
			return nil, fmt.Errorf("decoding close record: %w", err)
		}

		ctx := context.Background()
		ev, err := events.Fetch(ctx, body.ID)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			return nil, nil
		}
		return events.Close(ctx, ev)
	}
}
