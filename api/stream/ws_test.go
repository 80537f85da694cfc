package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/chargeflex/api/charging"
	"github.com/kilianp07/chargeflex/core/events"
	"github.com/kilianp07/chargeflex/core/grid"
	"github.com/kilianp07/chargeflex/core/model"
	"github.com/kilianp07/chargeflex/core/negotiation"
	"github.com/kilianp07/chargeflex/core/policy"
	"github.com/kilianp07/chargeflex/core/queue"
	"github.com/kilianp07/chargeflex/internal/eventbus"
)

func TestStatusFeed(t *testing.T) {
	bus := eventbus.NewTyped[events.Event]()
	n, err := negotiation.NewNegotiator(grid.NewContext(false), queue.New(), policy.NewEngine(policy.Config{}), negotiation.Config{},
		negotiation.WithBus(bus))
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(n, bus, 0, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var st charging.Status
	require.NoError(t, conn.ReadJSON(&st))
	assert.Equal(t, charging.DefaultChargerCount, st.ChargerCount)
	assert.Empty(t, st.PriorityQueue)
	assert.False(t, st.IsGridStressed)

	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	n.SetGridStressed(true)
	require.NoError(t, conn.ReadJSON(&st))
	assert.True(t, st.IsGridStressed)

	_, err = n.Negotiate(context.Background(), "alice", model.IntentSignals{StartSoC: model.IntPtr(20), PriorityHint: "low"})
	require.NoError(t, err)
	for len(st.PriorityQueue) == 0 {
		require.NoError(t, conn.ReadJSON(&st))
	}
	assert.Equal(t, "alice", st.PriorityQueue[0].UserID)
	assert.Equal(t, 1, st.ChargersInUse)
}

func TestStatusFeed_ClosesWithBus(t *testing.T) {
	bus := eventbus.NewTyped[events.Event]()
	n, err := negotiation.NewNegotiator(grid.NewContext(false), queue.New(), policy.Engine{}, negotiation.Config{})
	require.NoError(t, err)
	srv := httptest.NewServer(NewHandler(n, bus, 2, nil))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var st charging.Status
	require.NoError(t, conn.ReadJSON(&st))
	assert.Equal(t, 2, st.ChargerCount)

	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	bus.Close()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
