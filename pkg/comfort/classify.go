// Package comfort holds the pure rules that turn sensor values and a room's
// thresholds into a displayed status and into candidate alerts.
package comfort

import "liyu1981.xyz/roomwatch-service/pkg/models"

const (
	TemperatureWarningBand float64 = 2
	HumidityWarningBand    float64 = 5
)

func rangeStatus(value, min, max, band float64) models.Status {
	if value < min || value > max {
		return models.StatusCritical
	}
	if value < min+band || value > max-band {
		return models.StatusWarning
	}
	return models.StatusComfortable
}

// Classify derives a room's status from its latest values. Temperature and
// humidity are required; air quality only ever escalates to critical when it
// is above the room's max AQI.
func Classify(s models.Snapshot, t models.Thresholds) models.Status {
	if s.Temperature == nil || s.Humidity == nil {
		return models.StatusUnknown
	}

	statuses := []models.Status{
		rangeStatus(*s.Temperature, t.MinTemp, t.MaxTemp, TemperatureWarningBand),
		rangeStatus(*s.Humidity, t.MinHumidity, t.MaxHumidity, HumidityWarningBand),
	}
	if s.AirQuality != nil && *s.AirQuality > t.MaxAQI {
		statuses = append(statuses, models.StatusCritical)
	}

	overall := models.StatusComfortable
	for _, st := range statuses {
		switch st {
		case models.StatusCritical:
			return models.StatusCritical
		case models.StatusWarning:
			overall = models.StatusWarning
		}
	}
	return overall
}
