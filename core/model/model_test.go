package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	cases := map[string]Priority{
		"high":    PriorityHigh,
		" HIGH ":  PriorityHigh,
		"low":     PriorityLow,
		"medium":  PriorityMedium,
		"":        PriorityMedium,
		"urgent!": PriorityMedium,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParsePriority(in), in)
	}
	assert.Greater(t, PriorityHigh.Weight(), PriorityMedium.Weight())
	assert.Greater(t, PriorityMedium.Weight(), PriorityLow.Weight())
}

func TestTimeOfDayParseAndFormat(t *testing.T) {
	tod, err := ParseTimeOfDay("9:05")
	require.NoError(t, err)
	assert.Equal(t, "09:05", tod.String())

	for _, bad := range []string{"", "25:00", "12:60", "noon", "12:5", "-1:00"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeOfDayAddWrapsMidnight(t *testing.T) {
	tod := NewTimeOfDay(23, 30)
	assert.Equal(t, "00:15", tod.Add(45*time.Minute).String())
	assert.Equal(t, "02:30", tod.Add(3*time.Hour).String())
}

func TestTimeOfDayNextAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC), NewTimeOfDay(8, 0).NextAfter(now))
	assert.Equal(t, time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC), NewTimeOfDay(23, 0).NextAfter(now))
	assert.Equal(t, now, NewTimeOfDay(22, 0).NextAfter(now.Add(20*time.Second)))
}

func TestTimeOfDayJSON(t *testing.T) {
	tod := NewTimeOfDay(13, 45)
	b, err := json.Marshal(tod)
	require.NoError(t, err)
	assert.Equal(t, `"13:45"`, string(b))

	var out TimeOfDay
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, tod, out)
	assert.Error(t, json.Unmarshal([]byte(`"later"`), &out))
}

func TestChargingPlanValidate(t *testing.T) {
	now := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	leave := NewTimeOfDay(13, 30)
	p := ChargingPlan{
		UserID:         "did:example:1",
		StartSoC:       20,
		MinSoC:         80,
		TargetSoC:      50,
		Priority:       PriorityHigh,
		ChargingOption: OptionFast,
		LeaveBy:        &leave,
		PickupTime:     NewTimeOfDay(13, 30),
		ReceivedAt:     now,
	}
	require.NoError(t, p.Validate())

	late := p
	late.PickupTime = NewTimeOfDay(13, 45)
	assert.Error(t, late.Validate())

	bad := p
	bad.MinSoC = 120
	assert.Error(t, bad.Validate())

	anon := p
	anon.UserID = ""
	assert.Error(t, anon.Validate())
}
