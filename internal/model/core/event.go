package core

import "time"

// EventKind discriminates the concrete event subtype in generic records and
// database rows.
type EventKind string

const (
	KindIntrusion  EventKind = "intrusion"
	KindFault      EventKind = "fault"
	KindConnection EventKind = "connection"
	KindAction     EventKind = "action"

	// KindHeartbeat is a gateway keep-alive on the wire. It carries no entity
	// payload and decodes to "no entity".
	KindHeartbeat EventKind = "heartbeat"
)

// EventKinds lists every discriminator value accepted on the wire.
var EventKinds = []EventKind{KindIntrusion, KindFault, KindConnection, KindAction, KindHeartbeat}

// Event is the event-family entity interface. Concrete types are
// *IntrusionEvent, *FaultEvent, *ConnectionEvent and *ActionEvent.
type Event interface {
	Entity
	Kind() EventKind
	Base() *EventBase
}

// EventBase carries the fields shared by every event subtype. DeviceID is a
// lookup-only back-reference to the originating device.
type EventBase struct {
	ID         uint      `json:"id"`
	Group      string    `json:"group"`
	OccurredAt time.Time `json:"occurredAt"`
	Open       bool      `json:"open"`
	DeviceID   uint      `json:"deviceId"`
}

func (b *EventBase) EntityID() uint   { return b.ID }
func (b *EventBase) Base() *EventBase { return b }

// IntrusionEvent is a zone alarm with the detector's result code.
type IntrusionEvent struct {
	EventBase
	DetectionCode int `json:"detectionCode"`
}

func (*IntrusionEvent) Kind() EventKind { return KindIntrusion }

// FaultEvent is a hardware or line fault with the device's reason code.
type FaultEvent struct {
	EventBase
	ReasonCode int `json:"reasonCode"`
}

func (*FaultEvent) Kind() EventKind { return KindFault }

// ConnectionEvent records a device going online or offline.
type ConnectionEvent struct {
	EventBase
	Online bool `json:"online"`
}

func (*ConnectionEvent) Kind() EventKind { return KindConnection }

// ActionEvent is an operator response to another event. OriginEventID is a
// lookup-only back-reference to the event being acted on.
type ActionEvent struct {
	EventBase
	OriginEventID uint   `json:"originEventId"`
	Note          string `json:"note"`
}

func (*ActionEvent) Kind() EventKind { return KindAction }
