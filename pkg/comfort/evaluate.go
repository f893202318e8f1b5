package comfort

import (
	"fmt"

	"liyu1981.xyz/roomwatch-service/pkg/models"
)

// Evaluate returns one candidate per threshold the reading crosses. It has no
// side effects; persisting and notifying is left to the caller.
func Evaluate(room models.Room, t models.Thresholds, r models.Reading) []models.CandidateAlert {
	if !t.NotificationsEnabled {
		return nil
	}

	var candidates []models.CandidateAlert
	add := func(alertType models.AlertType, message string, value, threshold float64) {
		candidates = append(candidates, models.CandidateAlert{
			RoomID:    room.ID,
			Type:      alertType,
			Message:   message,
			Value:     value,
			Threshold: threshold,
		})
	}

	if r.Temperature < t.MinTemp {
		add(models.AlertTypeTemperatureLow,
			fmt.Sprintf("Temperature too low in %s (%.1f°C)", room.Name, r.Temperature),
			r.Temperature, t.MinTemp)
	}
	if r.Temperature > t.MaxTemp {
		add(models.AlertTypeTemperatureHigh,
			fmt.Sprintf("Temperature too high in %s (%.1f°C)", room.Name, r.Temperature),
			r.Temperature, t.MaxTemp)
	}

	if r.Humidity < t.MinHumidity {
		add(models.AlertTypeHumidityLow,
			fmt.Sprintf("Humidity too low in %s (%.1f%%)", room.Name, r.Humidity),
			r.Humidity, t.MinHumidity)
	}
	if r.Humidity > t.MaxHumidity {
		add(models.AlertTypeHumidityHigh,
			fmt.Sprintf("Humidity too high in %s (%.1f%%)", room.Name, r.Humidity),
			r.Humidity, t.MaxHumidity)
	}

	if r.AirQuality != nil && *r.AirQuality > t.MaxAQI {
		add(models.AlertTypeAirQuality,
			fmt.Sprintf("Air quality poor in %s (AQI: %.0f)", room.Name, *r.AirQuality),
			*r.AirQuality, t.MaxAQI)
	}

	return candidates
}
