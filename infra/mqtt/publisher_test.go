package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/chargeflex/core/model"
)

func TestPlanPublisher_CommitAndRelease(t *testing.T) {
	mc := NewMockClient()
	p := NewPlanPublisher(mc, "site1")
	leave := model.NewTimeOfDay(15, 0)
	plan := model.ChargingPlan{
		UserID: "alice", StartSoC: 3, MinSoC: 70, TargetSoC: 48,
		Priority: model.PriorityHigh, ChargingOption: model.OptionFast,
		LeaveBy: &leave, PickupTime: model.NewTimeOfDay(13, 45),
		ReceivedAt: time.Date(2024, 6, 3, 13, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.OnPlanCommitted(context.Background(), plan))
	require.NoError(t, p.OnPlanReleased(context.Background(), "alice"))

	sent := mc.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "site1/plans/alice", sent[0].Topic)
	assert.True(t, sent[0].Retained)
	var got model.ChargingPlan
	require.NoError(t, json.Unmarshal(sent[0].Payload, &got))
	assert.Equal(t, "13:45", got.PickupTime.String())
	assert.Equal(t, model.OptionFast, got.ChargingOption)

	assert.Equal(t, "site1/plans/alice", sent[1].Topic)
	assert.True(t, sent[1].Retained)
	assert.Empty(t, sent[1].Payload)
}

func TestPlanPublisher_GridStateAndErrors(t *testing.T) {
	mc := NewMockClient()
	p := NewPlanPublisher(mc, "chargeflex")
	require.NoError(t, p.PublishGridState(true))
	sent := mc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "chargeflex/grid/state", sent[0].Topic)
	assert.JSONEq(t, `{"stressed":true}`, string(sent[0].Payload))

	mc.Fail = errors.New("broker down")
	assert.Error(t, p.OnPlanReleased(context.Background(), "bob"))
}
