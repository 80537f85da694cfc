package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kilianp07/chargeflex/core/model"
	coremqtt "github.com/kilianp07/chargeflex/core/mqtt"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// PlanPublisher mirrors committed plans to retained per-driver topics so that
// chargers and dashboards see the current plan on subscribe. A released plan
// clears its retained message.
type PlanPublisher struct {
	cli    Client
	prefix string
}

// NewPlanPublisher returns a publisher writing under prefix.
func NewPlanPublisher(cli Client, prefix string) *PlanPublisher {
	return &PlanPublisher{cli: cli, prefix: prefix}
}

// OnPlanCommitted publishes the plan as retained JSON.
func (p *PlanPublisher) OnPlanCommitted(_ context.Context, plan model.ChargingPlan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return p.cli.Publish(coremqtt.PlanTopic(p.prefix, plan.UserID), true, payload)
}

// OnPlanReleased clears the retained plan of userID.
func (p *PlanPublisher) OnPlanReleased(_ context.Context, userID string) error {
	return p.cli.Publish(coremqtt.PlanTopic(p.prefix, userID), true, nil)
}

// PublishGridState publishes the retained grid flag.
func (p *PlanPublisher) PublishGridState(stressed bool) error {
	payload, _ := json.Marshal(gridCommand{Stressed: &stressed})
	return p.cli.Publish(coremqtt.GridStateTopic(p.prefix), true, payload)
}

// Message is a publish recorded by MockClient.
type Message struct {
	Topic    string
	Retained bool
	Payload  []byte
}

// MockClient is an in-memory Client used in tests.
type MockClient struct {
	mu       sync.Mutex
	Messages []Message
	// Fail makes every Publish return the error.
	Fail     error
	handlers map[string]coremqtt.Handler
}

// NewMockClient creates a new MockClient.
func NewMockClient() *MockClient {
	return &MockClient{handlers: make(map[string]coremqtt.Handler)}
}

// Publish records the message or returns Fail.
func (m *MockClient) Publish(topic string, retained bool, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.Messages = append(m.Messages, Message{Topic: topic, Retained: retained, Payload: payload})
	return nil
}

// Subscribe records the handler.
func (m *MockClient) Subscribe(topic string, h coremqtt.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = h
	return nil
}

// Deliver simulates an incoming message on topic.
func (m *MockClient) Deliver(topic string, payload []byte) bool {
	m.mu.Lock()
	h, ok := m.handlers[topic]
	m.mu.Unlock()
	if ok {
		h(topic, payload)
	}
	return ok
}

// Sent returns a copy of the recorded messages.
func (m *MockClient) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.Messages...)
}

// Disconnect is a no-op.
func (m *MockClient) Disconnect() {}
