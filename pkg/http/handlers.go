package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"liyu1981.xyz/roomwatch-service/pkg/models"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

type SignUpRequest struct {
	Email       string `json:"email" zog:"email"`
	Password    string `json:"password" zog:"password"`
	DisplayName string `json:"display_name" zog:"display_name"`
}

var signUpRequestSchema = z.Struct(z.Shape{
	"Email":       z.String().Trim().Email().Required(),
	"Password":    z.String().Min(6).Required(),
	"DisplayName": z.String().Trim(),
})

type AuthResponse struct {
	Token   string         `json:"token"`
	Profile models.Profile `json:"profile"`
}

func (rs *RestfulServer) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := signUpRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	profile, token, err := rs.Auth.SignUp(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{Token: token, Profile: profile})
}

type LoginRequest struct {
	Email    string `json:"email" zog:"email"`
	Password string `json:"password" zog:"password"`
}

var loginRequestSchema = z.Struct(z.Shape{
	"Email":    z.String().Trim().Required(),
	"Password": z.String().Required(),
})

func (rs *RestfulServer) Login(c *gin.Context) {
	var req LoginRequest
	if err := loginRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	profile, token, err := rs.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token, Profile: profile})
}

func (rs *RestfulServer) GetProfile(c *gin.Context) {
	profile, err := rs.Monitor.Profile.GetProfile(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Partial updates bind into pointer fields so an absent key is told apart
// from an empty one.
func (rs *RestfulServer) UpdateProfile(c *gin.Context) {
	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := rs.Monitor.Profile.UpdateProfile(c.Request.Context(), userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type RoomRequest struct {
	Name           string `json:"name" zog:"name"`
	SensorType     string `json:"sensor_type" zog:"sensor_type"`
	ConnectionType string `json:"connection_type" zog:"connection_type"`
	IPAddress      string `json:"ip_address" zog:"ip_address"`
	MACAddress     string `json:"mac_address" zog:"mac_address"`
}

var roomRequestSchema = z.Struct(z.Shape{
	"Name":           z.String().Trim().Required(),
	"SensorType":     z.String().OneOf([]string{models.SensorTypeDHT22, models.SensorTypeBME280}),
	"ConnectionType": z.String().OneOf([]string{models.ConnectionTypeWiFi, models.ConnectionTypeBLE}),
	"IPAddress":      z.String().Trim(),
	"MACAddress":     z.String().Trim(),
})

func (rs *RestfulServer) CreateRoom(c *gin.Context) {
	var req RoomRequest
	if err := roomRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	room, err := rs.Monitor.Room.CreateRoom(c.Request.Context(), userID(c), &models.Room{
		Name:           req.Name,
		SensorType:     req.SensorType,
		ConnectionType: req.ConnectionType,
		IPAddress:      req.IPAddress,
		MACAddress:     req.MACAddress,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (rs *RestfulServer) ListRooms(c *gin.Context) {
	rooms, err := rs.Monitor.Room.ListRooms(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (rs *RestfulServer) GetRoom(c *gin.Context) {
	room, err := rs.Monitor.Room.GetRoom(c.Request.Context(), userID(c), c.Param("room_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (rs *RestfulServer) UpdateRoom(c *gin.Context) {
	var req models.RoomUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := rs.Monitor.Room.UpdateRoom(c.Request.Context(), userID(c), c.Param("room_id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (rs *RestfulServer) DeleteRoom(c *gin.Context) {
	if err := rs.Monitor.Room.DeleteRoom(c.Request.Context(), userID(c), c.Param("room_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *RestfulServer) GetThresholds(c *gin.Context) {
	thresholds, err := rs.Monitor.Threshold.GetThresholds(c.Request.Context(), userID(c), c.Param("room_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, thresholds)
}

type ThresholdsRequest struct {
	MinTemp              float64 `json:"min_temp" zog:"min_temp"`
	MaxTemp              float64 `json:"max_temp" zog:"max_temp"`
	MinHumidity          float64 `json:"min_humidity" zog:"min_humidity"`
	MaxHumidity          float64 `json:"max_humidity" zog:"max_humidity"`
	MaxAQI               float64 `json:"max_aqi" zog:"max_aqi"`
	NotificationsEnabled bool    `json:"notifications_enabled" zog:"notifications_enabled"`
}

// Numeric fields are not marked required: zog treats a zero as missing and
// 0°C is a legitimate bound. Ordering is checked by the service.
var thresholdsRequestSchema = z.Struct(z.Shape{
	"MinTemp":              z.Float64().GTE(-60).LTE(100),
	"MaxTemp":              z.Float64().GTE(-60).LTE(100),
	"MinHumidity":          z.Float64().GTE(0).LTE(100),
	"MaxHumidity":          z.Float64().GTE(0).LTE(100),
	"MaxAQI":               z.Float64().GTE(0),
	"NotificationsEnabled": z.Bool(),
})

func (rs *RestfulServer) UpdateThresholds(c *gin.Context) {
	var req ThresholdsRequest
	if err := thresholdsRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	thresholds, err := rs.Monitor.Threshold.UpdateThresholds(c.Request.Context(), userID(c), c.Param("room_id"), &models.Thresholds{
		MinTemp:              req.MinTemp,
		MaxTemp:              req.MaxTemp,
		MinHumidity:          req.MinHumidity,
		MaxHumidity:          req.MaxHumidity,
		MaxAQI:               req.MaxAQI,
		NotificationsEnabled: req.NotificationsEnabled,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, thresholds)
}

type ReadingRequest struct {
	Timestamp   time.Time `json:"timestamp" zog:"timestamp"`
	Temperature float64   `json:"temperature" zog:"temperature"`
	Humidity    float64   `json:"humidity" zog:"humidity"`
	AirQuality  *float64  `json:"air_quality" zog:"air_quality"`
}

var readingRequestSchema = z.Struct(z.Shape{
	"Timestamp":   z.Time(),
	"Temperature": z.Float64().GTE(-60).LTE(100),
	"Humidity":    z.Float64().GTE(0).LTE(100),
	"AirQuality":  z.Ptr(z.Float64().GTE(0)),
})

func (rs *RestfulServer) PostReading(c *gin.Context) {
	var req ReadingRequest
	if err := readingRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	result, err := rs.Monitor.Reading.RecordReading(c.Request.Context(), userID(c), c.Param("room_id"), &models.Reading{
		Timestamp:   req.Timestamp,
		Temperature: req.Temperature,
		Humidity:    req.Humidity,
		AirQuality:  req.AirQuality,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (rs *RestfulServer) ListReadings(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		var err error
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
	}

	var since time.Time
	if v := c.Query("since"); v != "" {
		var err error
		if since, err = time.Parse(time.RFC3339, v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC3339 timestamp"})
			return
		}
	}

	readings, err := rs.Monitor.Reading.ListReadings(c.Request.Context(), userID(c), c.Param("room_id"), limit, since)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, readings)
}

func (rs *RestfulServer) SyncAll(c *gin.Context) {
	progress, err := rs.Monitor.Sync.SyncAll(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (rs *RestfulServer) ListAlerts(c *gin.Context) {
	filter, err := models.ParseAlertFilter(c.Query("filter"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alerts, err := rs.Monitor.Alert.ListAlerts(c.Request.Context(), userID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (rs *RestfulServer) AlertStats(c *gin.Context) {
	stats, err := rs.Monitor.Alert.AlertStats(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func alertID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("alert_id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alert_id must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}

type HandledRequest struct {
	Handled bool `json:"handled" zog:"handled"`
}

var handledRequestSchema = z.Struct(z.Shape{
	"Handled": z.Bool(),
})

func (rs *RestfulServer) SetAlertHandled(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}

	var req HandledRequest
	if err := handledRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	alert, err := rs.Monitor.Alert.SetHandled(c.Request.Context(), userID(c), id, req.Handled)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (rs *RestfulServer) DeleteAlert(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}

	if err := rs.Monitor.Alert.DeleteAlert(c.Request.Context(), userID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteHandledAlerts only runs with ?handled=true so a bare DELETE /alerts
// cannot be mistaken for "delete everything".
func (rs *RestfulServer) DeleteHandledAlerts(c *gin.Context) {
	if c.Query("handled") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only handled=true is supported"})
		return
	}

	n, err := rs.Monitor.Alert.DeleteAllHandled(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

type LimiterRequest struct {
	Rate  float64 `json:"rate"`
	Burst int     `json:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"rate":  z.Float64().Required(),
	"burst": z.Int().Required(),
})

func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	var req LimiterRequest
	if err := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	rs.SetLimiter(userID(c), req.Rate, req.Burst)

	c.Status(http.StatusOK)
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
