// Package core holds the plain domain entities shared by the cache, the
// orchestrator services and the record codec. No GIS or GORM dependencies.
package core

// Entity is anything with a store-assigned identity. An ID of 0 means the
// entity has not been persisted yet.
type Entity interface {
	EntityID() uint
}

// Placement is a device position on the site map, stored as EPSG:3857
// (WebMercator) easting/northing plus elevation in meters.
type Placement struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DeviceStatus is the runtime state of a device. It is never persisted.
type DeviceStatus uint8

const (
	StatusUnknown DeviceStatus = iota
	StatusOnline
	StatusOffline
	StatusFault
)

func (s DeviceStatus) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	case StatusFault:
		return "fault"
	default:
		return "unknown"
	}
}
