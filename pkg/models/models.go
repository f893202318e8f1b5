package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMalformedRow = errors.New("malformed row")
	ErrAuthRequired = errors.New("authentication required")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
)

type Status string

const (
	StatusComfortable Status = "comfortable"
	StatusWarning     Status = "warning"
	StatusCritical    Status = "critical"
	StatusUnknown     Status = "unknown"
)

type AlertType string

const (
	AlertTypeTemperatureHigh AlertType = "temperature_high"
	AlertTypeTemperatureLow  AlertType = "temperature_low"
	AlertTypeHumidityHigh    AlertType = "humidity_high"
	AlertTypeHumidityLow     AlertType = "humidity_low"
	AlertTypeAirQuality      AlertType = "air_quality_alert"
	AlertTypeRoomAdded       AlertType = "room_added"
	AlertTypeRoomDeleted     AlertType = "room_deleted"
)

func (t AlertType) Valid() bool {
	switch t {
	case AlertTypeTemperatureHigh, AlertTypeTemperatureLow,
		AlertTypeHumidityHigh, AlertTypeHumidityLow,
		AlertTypeAirQuality, AlertTypeRoomAdded, AlertTypeRoomDeleted:
		return true
	}
	return false
}

// Structural alerts describe room lifecycle, not a threshold crossing.
func (t AlertType) Structural() bool {
	return t == AlertTypeRoomAdded || t == AlertTypeRoomDeleted
}

const (
	SensorTypeDHT22  string = "DHT22"
	SensorTypeBME280 string = "BME280"

	ConnectionTypeWiFi string = "WiFi"
	ConnectionTypeBLE  string = "BLE"
)

// Snapshot is the set of values the classifier looks at. Nil means the
// sensor never reported that metric.
type Snapshot struct {
	Temperature *float64
	Humidity    *float64
	AirQuality  *float64
}

type Room struct {
	ID             string `gorm:"primaryKey" json:"id"`
	UserID         string `gorm:"index" json:"user_id"`
	Name           string `json:"name"`
	SensorType     string `json:"sensor_type"`
	ConnectionType string `json:"connection_type"`
	IPAddress      string `json:"ip_address,omitempty"`
	MACAddress     string `json:"mac_address,omitempty"`

	Temperature *float64   `json:"temperature"`
	Humidity    *float64   `json:"humidity"`
	AirQuality  *float64   `json:"air_quality"`
	LastUpdated *time.Time `json:"last_updated"`
	CreatedAt   time.Time  `json:"created_at"`

	Status Status `gorm:"-" json:"status"`
}

func (r Room) Snapshot() Snapshot {
	return Snapshot{Temperature: r.Temperature, Humidity: r.Humidity, AirQuality: r.AirQuality}
}

func (r Room) Validate() error {
	if r.ID == "" || r.UserID == "" {
		return fmt.Errorf("%w: room without id or owner", ErrMalformedRow)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: room %s has no name", ErrMalformedRow, r.ID)
	}
	return nil
}

type Thresholds struct {
	RoomID               string  `gorm:"primaryKey" json:"room_id"`
	MinTemp              float64 `json:"min_temp"`
	MaxTemp              float64 `json:"max_temp"`
	MinHumidity          float64 `json:"min_humidity"`
	MaxHumidity          float64 `json:"max_humidity"`
	MaxAQI               float64 `gorm:"column:max_aqi" json:"max_aqi"`
	NotificationsEnabled bool    `json:"notifications_enabled"`
}

func DefaultThresholds(roomID string) Thresholds {
	return Thresholds{
		RoomID:               roomID,
		MinTemp:              18,
		MaxTemp:              26,
		MinHumidity:          30,
		MaxHumidity:          70,
		MaxAQI:               100,
		NotificationsEnabled: true,
	}
}

func (t Thresholds) Validate() error {
	if t.MinTemp >= t.MaxTemp {
		return fmt.Errorf("%w: min_temp %.1f must be below max_temp %.1f", ErrValidation, t.MinTemp, t.MaxTemp)
	}
	if t.MinHumidity >= t.MaxHumidity {
		return fmt.Errorf("%w: min_humidity %.1f must be below max_humidity %.1f", ErrValidation, t.MinHumidity, t.MaxHumidity)
	}
	if t.MaxAQI <= 0 {
		return fmt.Errorf("%w: max_aqi %.1f must be positive", ErrValidation, t.MaxAQI)
	}
	return nil
}

type Reading struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RoomID      string    `gorm:"index" json:"room_id"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	AirQuality  *float64  `json:"air_quality"`
	Timestamp   time.Time `gorm:"index" json:"timestamp"`
}

func (r Reading) Snapshot() Snapshot {
	t, h := r.Temperature, r.Humidity
	return Snapshot{Temperature: &t, Humidity: &h, AirQuality: r.AirQuality}
}

type Alert struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index" json:"user_id"`
	RoomID    string    `gorm:"index" json:"room_id"`
	RoomName  string    `json:"room_name"`
	Type      AlertType `gorm:"type:varchar(32);check:type IN ('temperature_high','temperature_low','humidity_high','humidity_low','air_quality_alert','room_added','room_deleted')" json:"type"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Threshold *float64  `json:"threshold"`
	Handled   bool      `gorm:"index" json:"handled"`
	DedupKey  string    `gorm:"index" json:"dedup_key,omitempty"`
	// OpenKey claims DedupKey for an alert stored under duplicate
	// suppression and is cleared once the alert is handled. The unique index
	// keeps concurrent writers from storing the same open alert twice.
	OpenKey   *string   `gorm:"uniqueIndex" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a Alert) Validate() error {
	if a.ID == 0 {
		return fmt.Errorf("%w: alert without id", ErrMalformedRow)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: alert %d has unknown type %q", ErrMalformedRow, a.ID, a.Type)
	}
	if a.CreatedAt.IsZero() {
		return fmt.Errorf("%w: alert %d has no created_at", ErrMalformedRow, a.ID)
	}
	return nil
}

// CandidateAlert is an alert proposed by threshold evaluation, not yet persisted.
type CandidateAlert struct {
	RoomID    string
	Type      AlertType
	Message   string
	Value     float64
	Threshold float64
}

// Key identifies the (room, metric, direction) a candidate was raised for.
func (c CandidateAlert) Key() string {
	return DedupKey(c.RoomID, c.Type)
}

func DedupKey(roomID string, alertType AlertType) string {
	switch alertType {
	case AlertTypeTemperatureHigh:
		return roomID + ":temperature:high"
	case AlertTypeTemperatureLow:
		return roomID + ":temperature:low"
	case AlertTypeHumidityHigh:
		return roomID + ":humidity:high"
	case AlertTypeHumidityLow:
		return roomID + ":humidity:low"
	case AlertTypeAirQuality:
		return roomID + ":air_quality:high"
	}
	return ""
}

type Profile struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex" json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type AlertFilter string

const (
	AlertFilterAll       AlertFilter = "all"
	AlertFilterUnhandled AlertFilter = "unhandled"
	AlertFilterHandled   AlertFilter = "handled"
)

func ParseAlertFilter(s string) (AlertFilter, error) {
	switch AlertFilter(s) {
	case "", AlertFilterAll:
		return AlertFilterAll, nil
	case AlertFilterUnhandled, AlertFilterHandled:
		return AlertFilter(s), nil
	}
	return "", fmt.Errorf("unknown alert filter %q", s)
}

func (f AlertFilter) Match(a Alert) bool {
	switch f {
	case AlertFilterUnhandled:
		return !a.Handled
	case AlertFilterHandled:
		return a.Handled
	}
	return true
}

type AlertStats struct {
	Total     int64            `json:"total"`
	Unhandled int64            `json:"unhandled"`
	Handled   int64            `json:"handled"`
	ByType    map[string]int64 `json:"by_type"`
	ByRoom    map[string]int64 `json:"by_room"`
	Today     int64            `json:"today"`
	Week      int64            `json:"week"`
}
