package models

// RoomUpdate is a partial room edit. Nil fields are left unchanged.
type RoomUpdate struct {
	Name           *string `json:"name,omitempty"`
	SensorType     *string `json:"sensor_type,omitempty"`
	ConnectionType *string `json:"connection_type,omitempty"`
	IPAddress      *string `json:"ip_address,omitempty"`
	MACAddress     *string `json:"mac_address,omitempty"`
}

type ProfileUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// RecordResult is what appending one reading produced: the stored row, the
// room with its refreshed current values and any alerts raised.
type RecordResult struct {
	Reading Reading `json:"reading"`
	Room    Room    `json:"room"`
	Alerts  []Alert `json:"alerts"`
}

type SyncStatus string

const (
	SyncStatusDone   SyncStatus = "done"
	SyncStatusFailed SyncStatus = "failed"
)

type SyncProgress struct {
	RoomID   string     `json:"room_id"`
	RoomName string     `json:"room_name"`
	Status   SyncStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
	Alerts   int        `json:"alerts"`
}
