package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds("room-1")

	assert.Equal(t, "room-1", th.RoomID)
	assert.Equal(t, 18.0, th.MinTemp)
	assert.Equal(t, 26.0, th.MaxTemp)
	assert.Equal(t, 30.0, th.MinHumidity)
	assert.Equal(t, 70.0, th.MaxHumidity)
	assert.Equal(t, 100.0, th.MaxAQI)
	assert.True(t, th.NotificationsEnabled)
	assert.NoError(t, th.Validate())
}

func TestThresholdsValidate_EdgeCases(t *testing.T) {
	th := DefaultThresholds("room-1")
	th.MinTemp = 30
	assert.ErrorContains(t, th.Validate(), "min_temp")

	th = DefaultThresholds("room-1")
	th.MaxHumidity = 10
	assert.ErrorContains(t, th.Validate(), "min_humidity")

	th = DefaultThresholds("room-1")
	th.MaxAQI = 0
	assert.ErrorContains(t, th.Validate(), "max_aqi")
}

func TestDedupKey(t *testing.T) {
	c := CandidateAlert{RoomID: "r1", Type: AlertTypeTemperatureLow}
	assert.Equal(t, "r1:temperature:low", c.Key())
	assert.Equal(t, "r1:air_quality:high", DedupKey("r1", AlertTypeAirQuality))
	assert.Equal(t, "", DedupKey("r1", AlertTypeRoomAdded))
}

func TestParseAlertFilter(t *testing.T) {
	f, err := ParseAlertFilter("")
	require.NoError(t, err)
	assert.Equal(t, AlertFilterAll, f)

	f, err = ParseAlertFilter("handled")
	require.NoError(t, err)
	assert.True(t, f.Match(Alert{Handled: true}))
	assert.False(t, f.Match(Alert{Handled: false}))

	_, err = ParseAlertFilter("archived")
	assert.Error(t, err)
}

func TestDecodeAlertChange(t *testing.T) {
	alert := Alert{ID: 7, Type: AlertTypeHumidityHigh, CreatedAt: time.Now()}

	ev, err := NewChangeEvent(TableAlerts, EventInsert, "u1", alert, nil)
	require.NoError(t, err)

	change, err := DecodeAlertChange(ev)
	require.NoError(t, err)
	assert.Equal(t, uint(7), change.ID())
	assert.Equal(t, AlertTypeHumidityHigh, change.New.Type)

	ev, err = NewChangeEvent(TableAlerts, EventDelete, "u1", nil, Alert{ID: 7})
	require.NoError(t, err)
	change, err = DecodeAlertChange(ev)
	require.NoError(t, err)
	assert.Equal(t, uint(7), change.ID())
	assert.Nil(t, change.New)
}

func TestDecodeAlertChange_EdgeCases(t *testing.T) {
	{
		// insert without a row
		_, err := DecodeAlertChange(ChangeEvent{Table: TableAlerts, Type: EventInsert})
		assert.True(t, errors.Is(err, ErrMalformedRow))
	}

	{
		// unknown alert type on the row
		ev, _ := NewChangeEvent(TableAlerts, EventUpdate, "u1", map[string]any{"id": 3, "type": "smoke", "created_at": time.Now()}, nil)
		_, err := DecodeAlertChange(ev)
		assert.True(t, errors.Is(err, ErrMalformedRow))
	}

	{
		// wrong table
		ev, _ := NewChangeEvent(TableRooms, EventInsert, "u1", Room{ID: "r"}, nil)
		_, err := DecodeAlertChange(ev)
		assert.True(t, errors.Is(err, ErrMalformedRow))
	}

	{
		// broken JSON
		_, err := DecodeAlertChange(ChangeEvent{Table: TableAlerts, Type: EventInsert, New: []byte("{")})
		assert.True(t, errors.Is(err, ErrMalformedRow))
	}

	{
		// delete with no id
		ev, _ := NewChangeEvent(TableAlerts, EventDelete, "u1", nil, Alert{})
		_, err := DecodeAlertChange(ev)
		assert.True(t, errors.Is(err, ErrMalformedRow))
	}
}
