package convert

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/perimetra/sentinel/internal/model/core"
)

// ErrUnknownKind is returned wrapped in a DecodeError when a record's
// discriminator value is not part of the wire contract.
var ErrUnknownKind = errors.New("unrecognized discriminator value")

// DecodeError reports a record that could not be decoded into a concrete
// entity.
type DecodeError struct {
	Kind string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("decoding record: %v", e.Err)
	}
	return fmt.Sprintf("decoding %q record: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// deviceHead peeks the discriminator without touching the rest of the record.
type deviceHead struct {
	Kind core.DeviceKind `json:"deviceKind"`
}

type eventHead struct {
	Kind core.EventKind `json:"eventKind"`
}

// DecodeDevice decodes a generic device record into its concrete subtype.
// The full record is materialized in one pass; there is no base-then-derived
// hydration. A recognized discriminator with no concrete mapping (keypad)
// returns (nil, nil): callers must skip the record, not treat it as an error.
// An unrecognized discriminator returns a DecodeError.
func DecodeDevice(data []byte) (core.Device, error) {
	var head deviceHead
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, &DecodeError{Err: err}
	}

	switch head.Kind {
	case core.KindController:
		var d core.Controller
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, &DecodeError{Kind: string(head.Kind), Err: err}
		}
		return &d, nil
	case core.KindSensor:
		var d core.Sensor
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, &DecodeError{Kind: string(head.Kind), Err: err}
		}
		return &d, nil
	case core.KindCamera:
		var d core.Camera
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, &DecodeError{Kind: string(head.Kind), Err: err}
		}
		return &d, nil
	case core.KindKeypad:
		// known on the wire, not modeled in the cache
		return nil, nil
	default:
		return nil, &DecodeError{Kind: string(head.Kind), Err: ErrUnknownKind}
	}
}

// EncodeDevice encodes a concrete device entity as a generic record carrying
// its discriminator. Symmetric with DecodeDevice.
func EncodeDevice(d core.Device) ([]byte, error) {
	switch v := d.(type) {
	case *core.Controller:
		return json.Marshal(struct {
			Kind core.DeviceKind `json:"deviceKind"`
			*core.Controller
		}{core.KindController, v})
	case *core.Sensor:
		return json.Marshal(struct {
			Kind core.DeviceKind `json:"deviceKind"`
			*core.Sensor
		}{core.KindSensor, v})
	case *core.Camera:
		return json.Marshal(struct {
			Kind core.DeviceKind `json:"deviceKind"`
			*core.Camera
		}{core.KindCamera, v})
	default:
		return nil, &DecodeError{Kind: string(d.Kind()), Err: ErrUnknownKind}
	}
}

// DecodeEvent decodes a generic event record into its concrete subtype.
// Same contract as DecodeDevice; heartbeat records return (nil, nil).
func DecodeEvent(data []byte) (core.Event, error) {
	var head eventHead
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, &DecodeError{Err: err}
	}

	switch head.Kind {
	case core.KindIntrusion:
		var e core.IntrusionEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, &DecodeError{Kind: string(head.Kind), Err: err}
		}
		return &e, nil
	case core.KindFault:
		var e core.FaultEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, &DecodeError{Kind: string(head.Kind), Err: err}
		}
		return &e, nil
	case core.KindConnection:
		var e core.ConnectionEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, &DecodeError{Kind: string(head.Kind), Err: err}
		}
		return &e, nil
	case core.KindAction:
		var e core.ActionEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, &DecodeError{Kind: string(head.Kind), Err: err}
		}
		return &e, nil
	case core.KindHeartbeat:
		return nil, nil
	default:
		return nil, &DecodeError{Kind: string(head.Kind), Err: ErrUnknownKind}
	}
}

// EncodeEvent encodes a concrete event entity as a generic record carrying
// its discriminator. Symmetric with DecodeEvent.
func EncodeEvent(e core.Event) ([]byte, error) {
	switch v := e.(type) {
	case *core.IntrusionEvent:
		return json.Marshal(struct {
			Kind core.EventKind `json:"eventKind"`
			*core.IntrusionEvent
		}{core.KindIntrusion, v})
	case *core.FaultEvent:
		return json.Marshal(struct {
			Kind core.EventKind `json:"eventKind"`
			*core.FaultEvent
		}{core.KindFault, v})
	case *core.ConnectionEvent:
		return json.Marshal(struct {
			Kind core.EventKind `json:"eventKind"`
			*core.ConnectionEvent
		}{core.KindConnection, v})
	case *core.ActionEvent:
		return json.Marshal(struct {
			Kind core.EventKind `json:"eventKind"`
			*core.ActionEvent
		}{core.KindAction, v})
	default:
		return nil, &DecodeError{Kind: string(e.Kind()), Err: ErrUnknownKind}
	}
}

// DecodeDeviceList applies DecodeDevice element-wise over a JSON array,
// preserving input order. Malformed elements do not abort the batch: every
// successfully decoded entity is returned, together with the joined element
// errors (nil when the whole batch decoded).
func DecodeDeviceList(data []byte) ([]core.Device, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Err: err}
	}

	devices := make([]core.Device, 0, len(raw))
	var errs []error
	for i, elem := range raw {
		d, err := DecodeDevice(elem)
		if err != nil {
			errs = append(errs, fmt.Errorf("element %d: %w", i, err))
			continue
		}
		if d == nil {
			continue
		}
		devices = append(devices, d)
	}
	return devices, errors.Join(errs...)
}

// DecodeEventList applies DecodeEvent element-wise over a JSON array with the
// same partial-result contract as DecodeDeviceList.
func DecodeEventList(data []byte) ([]core.Event, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Err: err}
	}

	events := make([]core.Event, 0, len(raw))
	var errs []error
	for i, elem := range raw {
		e, err := DecodeEvent(elem)
		if err != nil {
			errs = append(errs, fmt.Errorf("element %d: %w", i, err))
			continue
		}
		if e == nil {
			continue
		}
		events = append(events, e)
	}
	return events, errors.Join(errs...)
}
