package redisstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/chargeflex/core/model"
)

type fakeHash struct {
	mu   sync.Mutex
	data map[string]map[string]string
	err  error
}

func newFakeHash() *fakeHash { return &fakeHash{data: make(map[string]map[string]string)} }

func (f *fakeHash) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	h := f.data[key]
	if h == nil {
		h = make(map[string]string)
		f.data[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		var v string
		switch b := values[i+1].(type) {
		case []byte:
			v = string(b)
		case string:
			v = b
		}
		h[values[i].(string)] = v
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeHash) HDel(_ context.Context, key string, fields ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fl := range fields {
		delete(f.data[key], fl)
	}
	return redis.NewIntResult(int64(len(fields)), nil)
}

func (f *fakeHash) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewMapStringStringResult(nil, f.err)
	}
	out := make(map[string]string, len(f.data[key]))
	for k, v := range f.data[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func plan(user string, at time.Time) model.ChargingPlan {
	leave := model.NewTimeOfDay(18, 0)
	return model.ChargingPlan{
		UserID: user, StartSoC: 40, MinSoC: 80, TargetSoC: 80,
		Priority: model.PriorityLow, ChargingOption: model.OptionEco, PointsAwarded: 100,
		LeaveBy: &leave, PickupTime: model.NewTimeOfDay(12, 0), ReceivedAt: at,
	}
}

func TestStore_SaveLoadDelete(t *testing.T) {
	fh := newFakeHash()
	s := NewStore(fh, "", nil)
	ctx := context.Background()
	at := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.OnPlanCommitted(ctx, plan("alice", at)))
	require.NoError(t, s.Save(ctx, plan("bob", at.Add(time.Minute))))
	require.Contains(t, fh.data, defaultKey)

	plans, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	sort.Slice(plans, func(i, j int) bool { return plans[i].UserID < plans[j].UserID })
	assert.Equal(t, "alice", plans[0].UserID)
	assert.Equal(t, "12:00", plans[0].PickupTime.String())
	assert.True(t, plans[1].ReceivedAt.Equal(at.Add(time.Minute)))

	require.NoError(t, s.OnPlanReleased(ctx, "alice"))
	plans, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "bob", plans[0].UserID)
	assert.NoError(t, s.Close())
}

func TestStore_LoadSkipsCorrupt(t *testing.T) {
	fh := newFakeHash()
	fh.data["q"] = map[string]string{"x": "{not json"}
	s := NewStore(fh, "q", nil)
	require.NoError(t, s.Save(context.Background(), plan("carol", time.Now())))
	plans, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "carol", plans[0].UserID)
}

func TestStore_Errors(t *testing.T) {
	fh := newFakeHash()
	fh.err = errors.New("connection refused")
	s := NewStore(fh, "q", nil)
	assert.Error(t, s.Save(context.Background(), plan("dave", time.Now())))
	_, err := s.Load(context.Background())
	assert.ErrorContains(t, err, "connection refused")

	_, err = NewClient(Config{Addr: " "})
	assert.Error(t, err)
	assert.False(t, Config{}.Enabled())
}
