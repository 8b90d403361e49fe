// Package convert provides functions to convert GORM models to core entities
// and back, plus the polymorphic record codec for the wire contract.
package convert

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/perimetra/sentinel/internal/model"
	"github.com/perimetra/sentinel/internal/model/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// pointToPlacement converts a geom.Point to a core.Placement.
// Returns nil for an empty point (device has no map placement).
func pointToPlacement(p geom.Point) *core.Placement {
	coord, ok := p.Coordinates()
	if !ok {
		return nil
	}
	return &core.Placement{X: coord.XY.X, Y: coord.XY.Y, Z: coord.Z}
}

// placementToPoint converts a core.Placement to a geom.Point.
func placementToPoint(p *core.Placement) geom.Point {
	if p == nil {
		return geom.NewEmptyPoint(geom.DimXYZ)
	}
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.X, Y: p.Y},
		Z:    p.Z,
		Type: geom.CoordinatesType(geom.DimXYZ),
	})
}

// DeviceToCore converts a GORM Device row to the concrete core entity
// selected by its Kind column. Both base and subtype fields are populated in
// one pass.
func DeviceToCore(d model.Device) (core.Device, error) {
	base := core.DeviceBase{
		ID:              d.ID,
		Group:           d.DeviceGroup,
		Number:          d.Number,
		Name:            d.Name,
		FirmwareVersion: d.FirmwareVersion,
		Placement:       pointToPlacement(d.Placement),
	}

	switch core.DeviceKind(d.Kind) {
	case core.KindController:
		return &core.Controller{
			DeviceBase: base,
			Address:    d.Address,
			Port:       d.Port,
		}, nil
	case core.KindSensor:
		var controllerID uint
		if d.ControllerID.Valid {
			controllerID = uint(d.ControllerID.Int32)
		}
		return &core.Sensor{
			DeviceBase:   base,
			ControllerID: controllerID,
			Input:        d.Input,
		}, nil
	case core.KindCamera:
		cam := &core.Camera{
			DeviceBase: base,
			Address:    d.Address,
			Port:       d.Port,
			User:       d.User,
			Password:   d.Password,
		}
		if len(d.Presets) > 0 {
			if err := json.Unmarshal(d.Presets, &cam.Presets); err != nil {
				return nil, &DecodeError{Kind: d.Kind, Err: fmt.Errorf("presets: %w", err)}
			}
		}
		if len(d.Profiles) > 0 {
			if err := json.Unmarshal(d.Profiles, &cam.Profiles); err != nil {
				return nil, &DecodeError{Kind: d.Kind, Err: fmt.Errorf("profiles: %w", err)}
			}
		}
		if len(d.PTZ) > 0 {
			if err := json.Unmarshal(d.PTZ, &cam.PTZ); err != nil {
				return nil, &DecodeError{Kind: d.Kind, Err: fmt.Errorf("ptz: %w", err)}
			}
		}
		return cam, nil
	default:
		return nil, &DecodeError{Kind: d.Kind, Err: ErrUnknownKind}
	}
}

// DeviceToModel converts a core device entity to its GORM row.
func DeviceToModel(d core.Device) (model.Device, error) {
	b := d.Base()
	row := model.Device{
		ID:              b.ID,
		Kind:            string(d.Kind()),
		DeviceGroup:     b.Group,
		Number:          b.Number,
		Name:            b.Name,
		FirmwareVersion: b.FirmwareVersion,
		Placement:       placementToPoint(b.Placement),
	}

	switch v := d.(type) {
	case *core.Controller:
		row.Address = v.Address
		row.Port = v.Port
	case *core.Sensor:
		row.ControllerID = sql.NullInt32{Int32: int32(v.ControllerID), Valid: v.ControllerID != 0}
		row.Input = v.Input
	case *core.Camera:
		row.Address = v.Address
		row.Port = v.Port
		row.User = v.User
		row.Password = v.Password
		if len(v.Presets) > 0 {
			data, err := json.Marshal(v.Presets)
			if err != nil {
				return model.Device{}, fmt.Errorf("marshaling presets: %w", err)
			}
			row.Presets = datatypes.JSON(data)
		}
		if len(v.Profiles) > 0 {
			data, err := json.Marshal(v.Profiles)
			if err != nil {
				return model.Device{}, fmt.Errorf("marshaling profiles: %w", err)
			}
			row.Profiles = datatypes.JSON(data)
		}
		if v.PTZ != nil {
			data, err := json.Marshal(v.PTZ)
			if err != nil {
				return model.Device{}, fmt.Errorf("marshaling ptz: %w", err)
			}
			row.PTZ = datatypes.JSON(data)
		}
	default:
		return model.Device{}, &DecodeError{Kind: string(d.Kind()), Err: ErrUnknownKind}
	}

	return row, nil
}

// EventToCore converts a GORM Event row to the concrete core entity selected
// by its Kind column.
func EventToCore(e model.Event) (core.Event, error) {
	base := core.EventBase{
		ID:         e.ID,
		Group:      e.EventGroup,
		OccurredAt: e.OccurredAt,
		Open:       e.Open,
		DeviceID:   e.DeviceID,
	}

	switch core.EventKind(e.Kind) {
	case core.KindIntrusion:
		return &core.IntrusionEvent{EventBase: base, DetectionCode: e.DetectionCode}, nil
	case core.KindFault:
		return &core.FaultEvent{EventBase: base, ReasonCode: e.ReasonCode}, nil
	case core.KindConnection:
		return &core.ConnectionEvent{EventBase: base, Online: e.Online}, nil
	case core.KindAction:
		var origin uint
		if e.OriginEventID.Valid {
			origin = uint(e.OriginEventID.Int32)
		}
		return &core.ActionEvent{EventBase: base, OriginEventID: origin, Note: e.Note}, nil
	default:
		return nil, &DecodeError{Kind: e.Kind, Err: ErrUnknownKind}
	}
}

// EventToModel converts a core event entity to its GORM row.
func EventToModel(e core.Event) (model.Event, error) {
	b := e.Base()
	row := model.Event{
		ID:         b.ID,
		Kind:       string(e.Kind()),
		EventGroup: b.Group,
		OccurredAt: b.OccurredAt,
		Open:       b.Open,
		DeviceID:   b.DeviceID,
	}

	switch v := e.(type) {
	case *core.IntrusionEvent:
		row.DetectionCode = v.DetectionCode
	case *core.FaultEvent:
		row.ReasonCode = v.ReasonCode
	case *core.ConnectionEvent:
		row.Online = v.Online
	case *core.ActionEvent:
		row.OriginEventID = sql.NullInt32{Int32: int32(v.OriginEventID), Valid: v.OriginEventID != 0}
		row.Note = v.Note
	default:
		return model.Event{}, &DecodeError{Kind: string(e.Kind()), Err: ErrUnknownKind}
	}

	return row, nil
}

// AccountToCore converts a GORM Account row to a core.Account.
func AccountToCore(a model.Account) *core.Account {
	return &core.Account{
		ID:           a.ID,
		Name:         a.Name,
		Login:        a.Login,
		PasswordHash: a.PasswordHash,
		Role:         a.Role,
	}
}

// AccountToModel converts a core.Account to its GORM row.
func AccountToModel(a *core.Account) model.Account {
	return model.Account{
		ID:           a.ID,
		Name:         a.Name,
		Login:        a.Login,
		PasswordHash: a.PasswordHash,
		Role:         a.Role,
	}
}

// LoginRecordToCore converts a GORM LoginRecord row to a core.LoginRecord.
func LoginRecordToCore(l model.LoginRecord) *core.LoginRecord {
	var accountID uint
	if l.AccountID.Valid {
		accountID = uint(l.AccountID.Int32)
	}
	return &core.LoginRecord{
		ID:         l.ID,
		AccountID:  accountID,
		Login:      l.Login,
		Time:       l.Time,
		Success:    l.Success,
		RemoteAddr: l.RemoteAddr,
	}
}

// LoginRecordToModel converts a core.LoginRecord to its GORM row.
func LoginRecordToModel(l *core.LoginRecord) model.LoginRecord {
	return model.LoginRecord{
		ID:         l.ID,
		AccountID:  sql.NullInt32{Int32: int32(l.AccountID), Valid: l.AccountID != 0},
		Login:      l.Login,
		Time:       l.Time,
		Success:    l.Success,
		RemoteAddr: l.RemoteAddr,
	}
}
