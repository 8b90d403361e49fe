package convert

import (
	"testing"

	"github.com/perimetra/sentinel/internal/model"
	"github.com/perimetra/sentinel/internal/model/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceToModelToCore_Sensor(t *testing.T) {
	in := &core.Sensor{
		DeviceBase: core.DeviceBase{
			ID:              4,
			Group:           "warehouse",
			Number:          12,
			Name:            "Dock Door",
			FirmwareVersion: "2.1.0",
			Placement:       &core.Placement{X: 1500.5, Y: -300.25, Z: 2},
		},
		ControllerID: 2,
		Input:        7,
	}

	row, err := DeviceToModel(in)
	require.NoError(t, err)
	assert.Equal(t, "sensor", row.Kind)
	require.True(t, row.ControllerID.Valid)
	assert.Equal(t, int32(2), row.ControllerID.Int32)

	out, err := DeviceToCore(row)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDeviceToModelToCore_CameraJSONColumns(t *testing.T) {
	in := &core.Camera{
		DeviceBase: core.DeviceBase{ID: 9, Name: "Lobby Cam"},
		Address:    "10.0.0.9",
		Port:       554,
		User:       "viewer",
		Password:   "secret",
		Presets:    []core.CameraPreset{{Token: "p1", Name: "Entrance"}},
		Profiles: []core.StreamProfile{
			{Token: "s1", Name: "main", StreamURI: "rtsp://cam/main", Width: 1920, Height: 1080},
		},
		PTZ: &core.PTZCapability{Pan: true, Tilt: true},
	}

	row, err := DeviceToModel(in)
	require.NoError(t, err)
	assert.NotEmpty(t, row.Presets)
	assert.NotEmpty(t, row.Profiles)
	assert.NotEmpty(t, row.PTZ)

	out, err := DeviceToCore(row)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDeviceToCore_NoPlacement(t *testing.T) {
	in := &core.Controller{
		DeviceBase: core.DeviceBase{ID: 1, Name: "Panel"},
		Address:    "10.0.0.1",
		Port:       3001,
	}

	row, err := DeviceToModel(in)
	require.NoError(t, err)

	out, err := DeviceToCore(row)
	require.NoError(t, err)
	assert.Nil(t, out.Base().Placement)
}

func TestDeviceToCore_UnknownKindColumn(t *testing.T) {
	_, err := DeviceToCore(model.Device{ID: 1, Kind: "bogus"})

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestEventToModelToCore_Action(t *testing.T) {
	in := &core.ActionEvent{
		EventBase:     core.EventBase{ID: 3, Group: "warehouse", Open: true, DeviceID: 4},
		OriginEventID: 2,
		Note:          "dispatched patrol",
	}

	row, err := EventToModel(in)
	require.NoError(t, err)
	require.True(t, row.OriginEventID.Valid)

	out, err := EventToCore(row)
	require.NoError(t, err)
	// OccurredAt round-trips as-is; compare whole values
	assert.Equal(t, in, out)
}

func TestEventToModel_ZeroOriginIsNull(t *testing.T) {
	row, err := EventToModel(&core.ActionEvent{EventBase: core.EventBase{ID: 1}})
	require.NoError(t, err)
	assert.False(t, row.OriginEventID.Valid)
}

func TestLoginRecordRoundTrip_UnknownAccount(t *testing.T) {
	row := LoginRecordToModel(&core.LoginRecord{ID: 1, Login: "ghost", Success: false})
	assert.False(t, row.AccountID.Valid)

	out := LoginRecordToCore(row)
	assert.Equal(t, uint(0), out.AccountID)
}
