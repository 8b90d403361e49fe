package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Device{},
	&Event{},
	&Account{},
	&LoginRecord{},
}

// Device is a row in the single device-family table. Kind selects the
// subtype; subtype-specific columns are nullable or zero for other kinds.
//
// Status is deliberately absent: it is runtime-only state.
type Device struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"deletedAt" gorm:"index"`

	Kind            string `json:"deviceKind" gorm:"size:16;index:idx_device_kind"`
	DeviceGroup     string `json:"group" gorm:"size:64;index:idx_device_group"`
	Number          int    `json:"number"`                      // position within the group
	Name            string `json:"name" gorm:"size:127"`
	FirmwareVersion string `json:"firmwareVersion" gorm:"size:64"`

	// Map overlay placement, EPSG:3857. Stored as WKB so SQLite can round-trip
	// it through the inherent Scan function.
	Placement geom.Point `json:"placement"`

	// Controller and camera columns
	Address string `json:"address" gorm:"size:64"`
	Port    int    `json:"port"`

	// Sensor columns
	ControllerID sql.NullInt32 `json:"controllerId" gorm:"index:idx_device_controller_id;default:NULL"` // back-reference to owning controller
	Input        int           `json:"input"`

	// Camera columns
	User     string         `json:"user" gorm:"size:64"`
	Password string         `json:"password" gorm:"size:127"`
	Presets  datatypes.JSON `json:"presets"`
	Profiles datatypes.JSON `json:"profiles"`
	PTZ      datatypes.JSON `json:"ptz"`
}

func (*Device) TableName() string {
	return "devices"
}

// Event is a row in the single event-family table. Kind selects the subtype.
type Event struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement"`
	CreatedAt time.Time `json:"createdAt"`

	Kind       string    `json:"eventKind" gorm:"size:16;index:idx_event_kind"`
	EventGroup string    `json:"group" gorm:"size:64"`
	OccurredAt time.Time `json:"occurredAt" gorm:"type:timestamptz;index:idx_event_occurred_at"`
	Open       bool      `json:"open" gorm:"default:true;index:idx_event_open"`
	DeviceID   uint      `json:"deviceId" gorm:"index:idx_event_device_id"` // back-reference, no FK constraint: events outlive devices

	DetectionCode int  `json:"detectionCode"` // intrusion
	ReasonCode    int  `json:"reasonCode"`    // fault
	Online        bool `json:"online"`        // connection

	// Action columns
	OriginEventID sql.NullInt32 `json:"originEventId" gorm:"index:idx_event_origin_event_id;default:NULL"`
	Note          string        `json:"note" gorm:"size:512"`
}

func (*Event) TableName() string {
	return "events"
}

// Account is an operator account row.
type Account struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"deletedAt" gorm:"index"`

	Name         string `json:"name" gorm:"size:127"`
	Login        string `json:"login" gorm:"size:64;uniqueIndex:idx_account_login"`
	PasswordHash string `json:"-" gorm:"size:127"`
	Role         string `json:"role" gorm:"size:32"`
}

func (*Account) TableName() string {
	return "accounts"
}

// LoginRecord is one credential-check outcome kept for audit.
type LoginRecord struct {
	ID   uint      `json:"id" gorm:"primarykey;autoIncrement"`
	Time time.Time `json:"time" gorm:"type:timestamptz;index:idx_loginrecord_time"`

	AccountID  sql.NullInt32 `json:"accountId" gorm:"index:idx_loginrecord_account_id;default:NULL"`
	Login      string        `json:"login" gorm:"size:64"`
	Success    bool          `json:"success"`
	RemoteAddr string        `json:"remoteAddr" gorm:"size:64"`
}

func (*LoginRecord) TableName() string {
	return "login_records"
}
