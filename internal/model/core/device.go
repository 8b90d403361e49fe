package core

// DeviceKind discriminates the concrete device subtype in generic records and
// database rows.
type DeviceKind string

const (
	KindController DeviceKind = "controller"
	KindSensor     DeviceKind = "sensor"
	KindCamera     DeviceKind = "camera"

	// KindKeypad is reserved in the wire contract for wall keypads, which the
	// cache does not model. Records carrying it decode to "no entity".
	KindKeypad DeviceKind = "keypad"
)

// DeviceKinds lists every discriminator value accepted on the wire.
var DeviceKinds = []DeviceKind{KindController, KindSensor, KindCamera, KindKeypad}

// Device is the device-family entity interface. Concrete types are
// *Controller, *Sensor and *Camera.
type Device interface {
	Entity
	Kind() DeviceKind
	Base() *DeviceBase
}

// DeviceBase carries the fields shared by every device subtype.
// Status is runtime-only and never persisted.
type DeviceBase struct {
	ID              uint         `json:"id"`
	Group           string       `json:"group"`
	Number          int          `json:"number"`
	Name            string       `json:"name"`
	FirmwareVersion string       `json:"firmwareVersion"`
	Status          DeviceStatus `json:"-"`
	Placement       *Placement   `json:"placement,omitempty"`
}

func (b *DeviceBase) EntityID() uint    { return b.ID }
func (b *DeviceBase) Base() *DeviceBase { return b }

// Controller is an alarm panel owning zero or more sensors. Deleting a
// controller cascades to every sensor referencing it.
type Controller struct {
	DeviceBase
	Address string `json:"address"`
	Port    int    `json:"port"`
}

func (*Controller) Kind() DeviceKind { return KindController }

// Sensor is a detection zone wired to a controller. ControllerID is a
// lookup-only back-reference; deleting a sensor never affects its controller.
type Sensor struct {
	DeviceBase
	ControllerID uint `json:"controllerId"`
	Input        int  `json:"input"`
}

func (*Sensor) Kind() DeviceKind { return KindSensor }

// Camera is an IP camera with its stream profiles, presets and optional PTZ
// capabilities. All value objects, no back-references.
type Camera struct {
	DeviceBase
	Address  string          `json:"address"`
	Port     int             `json:"port"`
	User     string          `json:"user"`
	Password string          `json:"password"`
	Presets  []CameraPreset  `json:"presets,omitempty"`
	Profiles []StreamProfile `json:"profiles,omitempty"`
	PTZ      *PTZCapability  `json:"ptz,omitempty"`
}

func (*Camera) Kind() DeviceKind { return KindCamera }

// CameraPreset is a stored camera position.
type CameraPreset struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

// StreamProfile describes one media stream offered by a camera.
type StreamProfile struct {
	Token     string `json:"token"`
	Name      string `json:"name"`
	StreamURI string `json:"streamUri"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// PTZCapability describes the movement axes a camera supports.
type PTZCapability struct {
	Pan  bool `json:"pan"`
	Tilt bool `json:"tilt"`
	Zoom bool `json:"zoom"`
}
