package comfort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

func snapshot(temperature, humidity float64) models.Snapshot {
	return models.Snapshot{Temperature: common.Ptr(temperature), Humidity: common.Ptr(humidity)}
}

func TestClassify(t *testing.T) {
	th := models.DefaultThresholds("room")

	assert.Equal(t, models.StatusCritical, Classify(snapshot(28.3, 35), th), "temperature above max")
	assert.Equal(t, models.StatusComfortable, Classify(snapshot(24, 50), th))
	assert.Equal(t, models.StatusWarning, Classify(snapshot(25.5, 50), th), "within 2 degrees of max_temp")
	assert.Equal(t, models.StatusWarning, Classify(snapshot(19.9, 50), th), "within 2 degrees of min_temp")
	assert.Equal(t, models.StatusWarning, Classify(snapshot(22, 66), th), "within 5 points of max_humidity")
	assert.Equal(t, models.StatusCritical, Classify(snapshot(22, 29), th), "humidity below min")
	assert.Equal(t, models.StatusCritical, Classify(snapshot(25.5, 75), th), "critical wins over warning")
}

func TestClassifyBoundaries(t *testing.T) {
	th := models.DefaultThresholds("room")

	// bounds themselves are inside the range
	assert.Equal(t, models.StatusWarning, Classify(snapshot(26, 50), th))
	assert.Equal(t, models.StatusWarning, Classify(snapshot(18, 50), th))
	// band edges are comfortable
	assert.Equal(t, models.StatusComfortable, Classify(snapshot(24, 65), th))
	assert.Equal(t, models.StatusComfortable, Classify(snapshot(20, 35), th))
}

func TestClassify_EdgeCases(t *testing.T) {
	th := models.DefaultThresholds("room")

	assert.Equal(t, models.StatusUnknown, Classify(models.Snapshot{}, th))
	assert.Equal(t, models.StatusUnknown, Classify(models.Snapshot{Temperature: common.Ptr(22.0)}, th))
	assert.Equal(t, models.StatusUnknown, Classify(models.Snapshot{Humidity: common.Ptr(50.0)}, th))

	s := snapshot(22, 50)
	s.AirQuality = common.Ptr(140.0)
	assert.Equal(t, models.StatusCritical, Classify(s, th), "air quality above max_aqi")

	s.AirQuality = common.Ptr(95.0)
	assert.Equal(t, models.StatusComfortable, Classify(s, th), "air quality has no warning band")
}

func TestEvaluate(t *testing.T) {
	room := models.Room{ID: "r1", Name: "Bedroom"}
	th := models.DefaultThresholds(room.ID)

	candidates := Evaluate(room, th, models.Reading{Temperature: 16.2, Humidity: 50})
	require.Len(t, candidates, 1)
	assert.Equal(t, models.AlertTypeTemperatureLow, candidates[0].Type)
	assert.Equal(t, 16.2, candidates[0].Value)
	assert.Equal(t, 18.0, candidates[0].Threshold)
	assert.Equal(t, "Temperature too low in Bedroom (16.2°C)", candidates[0].Message)
	assert.Equal(t, "r1:temperature:low", candidates[0].Key())

	assert.Empty(t, Evaluate(room, th, models.Reading{Temperature: 22, Humidity: 50}))
}

func TestEvaluateEveryDirection(t *testing.T) {
	room := models.Room{ID: "r1", Name: "Kitchen"}
	th := models.DefaultThresholds(room.ID)

	candidates := Evaluate(room, th, models.Reading{Temperature: 30.04, Humidity: 82.26, AirQuality: common.Ptr(151.6)})
	require.Len(t, candidates, 3)

	byType := map[models.AlertType]models.CandidateAlert{}
	for _, c := range candidates {
		byType[c.Type] = c
	}

	assert.Equal(t, "Temperature too high in Kitchen (30.0°C)", byType[models.AlertTypeTemperatureHigh].Message)
	assert.Equal(t, "Humidity too high in Kitchen (82.3%)", byType[models.AlertTypeHumidityHigh].Message)
	assert.Equal(t, "Air quality poor in Kitchen (AQI: 152)", byType[models.AlertTypeAirQuality].Message)
	assert.Equal(t, 100.0, byType[models.AlertTypeAirQuality].Threshold)

	candidates = Evaluate(room, th, models.Reading{Temperature: 22, Humidity: 12})
	require.Len(t, candidates, 1)
	assert.Equal(t, models.AlertTypeHumidityLow, candidates[0].Type)
	assert.Equal(t, "Humidity too low in Kitchen (12.0%)", candidates[0].Message)
}

func TestEvaluate_EdgeCases(t *testing.T) {
	room := models.Room{ID: "r1", Name: "Office"}

	{
		// notifications disabled short-circuits everything
		th := models.DefaultThresholds(room.ID)
		th.NotificationsEnabled = false
		assert.Empty(t, Evaluate(room, th, models.Reading{Temperature: -40, Humidity: 100, AirQuality: common.Ptr(500.0)}))
	}

	{
		// no air quality reported
		th := models.DefaultThresholds(room.ID)
		assert.Empty(t, Evaluate(room, th, models.Reading{Temperature: 22, Humidity: 50}))
	}

	{
		// values equal to the bounds do not cross them
		th := models.DefaultThresholds(room.ID)
		assert.Empty(t, Evaluate(room, th, models.Reading{Temperature: 26, Humidity: 30, AirQuality: common.Ptr(100.0)}))
	}
}
