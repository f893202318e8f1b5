// Package sensor fetches current values from the device attached to a room.
package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"liyu1981.xyz/roomwatch-service/pkg/models"
)

var (
	ErrNotConnected = errors.New("device not connected")
	ErrNoAddress    = errors.New("room has no device address")
)

const FetchTimeout = 5 * time.Second

type Sample struct {
	Temperature float64  `json:"temperature"`
	Humidity    float64  `json:"humidity"`
	AirQuality  *float64 `json:"air_quality,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty"`
}

func (s Sample) Reading(roomID string, at time.Time) models.Reading {
	return models.Reading{
		RoomID:      roomID,
		Temperature: s.Temperature,
		Humidity:    s.Humidity,
		AirQuality:  s.AirQuality,
		Timestamp:   at,
	}
}

type Source interface {
	Fetch(ctx context.Context, room models.Room) (Sample, error)
}

// Parse keeps the fields the room's sensor model actually measures. DHT22
// boards only report temperature and humidity.
func Parse(raw Sample, sensorType string) Sample {
	switch sensorType {
	case models.SensorTypeDHT22:
		return Sample{Temperature: raw.Temperature, Humidity: raw.Humidity}
	default:
		return raw
	}
}

// WiFi polls the board's HTTP endpoint. BLE rooms are not reachable this
// way and fail with ErrNotConnected.
type WiFi struct {
	Client *http.Client
}

func NewWiFi() *WiFi {
	return &WiFi{Client: &http.Client{Timeout: FetchTimeout}}
}

func (w *WiFi) Fetch(ctx context.Context, room models.Room) (Sample, error) {
	if room.ConnectionType != models.ConnectionTypeWiFi {
		return Sample{}, fmt.Errorf("%w: %s room %s", ErrNotConnected, room.ConnectionType, room.ID)
	}
	if room.IPAddress == "" {
		return Sample{}, fmt.Errorf("%w: %s", ErrNoAddress, room.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+room.IPAddress+"/sensor-data", nil)
	if err != nil {
		return Sample{}, err
	}
	resp, err := w.Client.Do(req)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to reach sensor at %s: %w", room.IPAddress, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Sample{}, fmt.Errorf("sensor at %s answered %s", room.IPAddress, resp.Status)
	}

	var raw Sample
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Sample{}, fmt.Errorf("failed to decode sensor data from %s: %w", room.IPAddress, err)
	}
	return Parse(raw, room.SensorType), nil
}

// Simulated random-walks from each room's last values, for demos and for
// rooms without real hardware.
type Simulated struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulated(seed uint64) *Simulated {
	return &Simulated{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func (s *Simulated) Fetch(ctx context.Context, room models.Room) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	temperature, humidity := 22.0, 50.0
	if room.Temperature != nil {
		temperature = *room.Temperature
	}
	if room.Humidity != nil {
		humidity = *room.Humidity
	}

	sample := Sample{
		Temperature: round1(temperature + (s.rng.Float64()-0.5)*2),
		Humidity:    round1(math.Min(100, math.Max(0, humidity+(s.rng.Float64()-0.5)*6))),
	}
	if room.SensorType == models.SensorTypeBME280 {
		aqi := 50.0
		if room.AirQuality != nil {
			aqi = *room.AirQuality
		}
		aqi = math.Round(math.Max(0, aqi+(s.rng.Float64()-0.5)*20))
		sample.AirQuality = &aqi
	}
	return sample, nil
}
