package domain

import "time"

type DeviceType string

const (
	DeviceCamera       DeviceType = "camera"
	DeviceMotionSensor DeviceType = "motion_sensor"
	DeviceDoorSensor   DeviceType = "door_sensor"
	DeviceWindowSensor DeviceType = "window_sensor"
	DeviceRadar        DeviceType = "radar"
)

type DeviceStatus string

const (
	DeviceOnline  DeviceStatus = "online"
	DeviceOffline DeviceStatus = "offline"
)

// LowBatteryThreshold is the battery percentage below which a device counts as low.
const LowBatteryThreshold = 20

type Device struct {
	DeviceID   string       `json:"id" dynamodbav:"device_id"`
	Name       string       `json:"name" dynamodbav:"name"`
	Type       DeviceType   `json:"type" dynamodbav:"type"`
	Location   string       `json:"location" dynamodbav:"location"`
	Status     DeviceStatus `json:"status" dynamodbav:"status"`
	Battery    *int         `json:"battery,omitempty" dynamodbav:"battery,omitempty"`
	LastUpdate time.Time    `json:"lastUpdate" dynamodbav:"last_update"`
}

type CreateDeviceRequest struct {
	Name     string     `json:"name" validate:"required"`
	Type     DeviceType `json:"type" validate:"required,oneof=camera motion_sensor door_sensor window_sensor radar"`
	Location string     `json:"location" validate:"required"`
	Battery  *int       `json:"battery" validate:"omitempty,min=0,max=100"`
}

type UpdateDeviceRequest struct {
	Name     *string     `json:"name"`
	Type     *DeviceType `json:"type" validate:"omitempty,oneof=camera motion_sensor door_sensor window_sensor radar"`
	Location *string     `json:"location"`
	Battery  *int        `json:"battery" validate:"omitempty,min=0,max=100"`
}

type DeviceFilter struct {
	Type     DeviceType
	Location string
	Status   DeviceStatus
}

type DeviceStats struct {
	Total      int                `json:"total"`
	Online     int                `json:"online"`
	ByType     map[DeviceType]int `json:"byType"`
	ByLocation map[string]int     `json:"byLocation"`
	LowBattery int                `json:"lowBattery"`
}

// DeviceStatusUpdate is the payload of a deviceUpdate event.
type DeviceStatusUpdate struct {
	DeviceID  string       `json:"deviceId" validate:"required"`
	Status    DeviceStatus `json:"status" validate:"required,oneof=online offline"`
	Battery   *int         `json:"battery,omitempty" validate:"omitempty,min=0,max=100"`
	Timestamp time.Time    `json:"timestamp"`
}
