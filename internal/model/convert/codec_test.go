package convert

import (
	"errors"
	"testing"

	"github.com/perimetra/sentinel/internal/model/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDevice_Controller(t *testing.T) {
	data := []byte(`{"deviceKind":"controller","id":5,"name":"Panel A","address":"10.0.0.5","port":3001}`)

	d, err := DecodeDevice(data)
	require.NoError(t, err)
	require.IsType(t, &core.Controller{}, d)

	c := d.(*core.Controller)
	assert.Equal(t, uint(5), c.ID)
	assert.Equal(t, "Panel A", c.Name)
	assert.Equal(t, "10.0.0.5", c.Address)
	assert.Equal(t, 3001, c.Port)
}

func TestDecodeDevice_CameraNestedObjects(t *testing.T) {
	data := []byte(`{
		"deviceKind":"camera","id":7,"name":"Lobby Cam",
		"presets":[{"token":"p1","name":"Entrance"}],
		"profiles":[{"token":"s1","name":"main","streamUri":"rtsp://cam/main","width":1920,"height":1080}],
		"ptz":{"pan":true,"tilt":true,"zoom":false}
	}`)

	d, err := DecodeDevice(data)
	require.NoError(t, err)
	require.IsType(t, &core.Camera{}, d)

	cam := d.(*core.Camera)
	require.Len(t, cam.Presets, 1)
	assert.Equal(t, "Entrance", cam.Presets[0].Name)
	require.Len(t, cam.Profiles, 1)
	assert.Equal(t, 1920, cam.Profiles[0].Width)
	require.NotNil(t, cam.PTZ)
	assert.True(t, cam.PTZ.Pan)
	assert.False(t, cam.PTZ.Zoom)
}

func TestDecodeDevice_ReservedKindIsSkipped(t *testing.T) {
	d, err := DecodeDevice([]byte(`{"deviceKind":"keypad","id":3}`))

	assert.NoError(t, err)
	assert.Nil(t, d, "a reserved kind decodes to no entity, not an error")
}

func TestDecodeDevice_UnknownKind(t *testing.T) {
	d, err := DecodeDevice([]byte(`{"deviceKind":"toaster","id":3}`))

	assert.Nil(t, d)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "toaster", de.Kind)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDecodeDevice_MalformedJSON(t *testing.T) {
	_, err := DecodeDevice([]byte(`{not json`))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.NotErrorIs(t, err, ErrUnknownKind)
}

func TestEncodeDecodeDevice_RoundTrip(t *testing.T) {
	in := &core.Sensor{
		DeviceBase: core.DeviceBase{
			ID:        12,
			Name:      "Zone 4",
			Group:     "warehouse",
			Placement: &core.Placement{X: 100.5, Y: 200.25, Z: 3},
		},
		ControllerID: 5,
		Input:        4,
	}

	data, err := EncodeDevice(in)
	require.NoError(t, err)

	out, err := DecodeDevice(data)
	require.NoError(t, err)
	require.IsType(t, &core.Sensor{}, out)
	assert.Equal(t, in, out.(*core.Sensor))
}

func TestDecodeEvent_Subtypes(t *testing.T) {
	e, err := DecodeEvent([]byte(`{"eventKind":"intrusion","id":1,"open":true,"deviceId":12,"detectionCode":4}`))
	require.NoError(t, err)
	require.IsType(t, &core.IntrusionEvent{}, e)
	assert.Equal(t, 4, e.(*core.IntrusionEvent).DetectionCode)
	assert.True(t, e.Base().Open)

	e, err = DecodeEvent([]byte(`{"eventKind":"action","id":2,"originEventId":1,"note":"dispatched patrol"}`))
	require.NoError(t, err)
	require.IsType(t, &core.ActionEvent{}, e)
	assert.Equal(t, uint(1), e.(*core.ActionEvent).OriginEventID)
}

func TestDecodeEvent_HeartbeatIsSkipped(t *testing.T) {
	e, err := DecodeEvent([]byte(`{"eventKind":"heartbeat"}`))

	assert.NoError(t, err)
	assert.Nil(t, e)
}

func TestDecodeDeviceList_PartialResults(t *testing.T) {
	data := []byte(`[
		{"deviceKind":"controller","id":1,"name":"ok"},
		{"deviceKind":"toaster","id":2},
		{"deviceKind":"keypad","id":3},
		{"deviceKind":"sensor","id":4,"controllerId":1}
	]`)

	devices, err := DecodeDeviceList(data)

	// the good elements come back even though one element failed
	require.Len(t, devices, 2)
	assert.Equal(t, uint(1), devices[0].EntityID())
	assert.Equal(t, uint(4), devices[1].EntityID())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Contains(t, err.Error(), "element 1")
}

func TestDecodeDeviceList_NotAnArray(t *testing.T) {
	devices, err := DecodeDeviceList([]byte(`{"deviceKind":"controller"}`))

	assert.Nil(t, devices)
	var de *DecodeError
	assert.True(t, errors.As(err, &de))
}

func TestDecodeEventList_AllGood(t *testing.T) {
	data := []byte(`[
		{"eventKind":"fault","id":1,"reasonCode":9},
		{"eventKind":"connection","id":2,"online":false}
	]`)

	events, err := DecodeEventList(data)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 9, events[0].(*core.FaultEvent).ReasonCode)
	assert.False(t, events[1].(*core.ConnectionEvent).Online)
}
