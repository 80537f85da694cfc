// Package mqtt defines the broker contract used to publish plans and receive
// operator grid commands.
package mqtt

import "fmt"

// Handler receives a message delivered on a subscribed topic.
type Handler func(topic string, payload []byte)

// Client publishes and subscribes on an MQTT broker.
type Client interface {
	// Publish sends payload to topic, retrying on transient failures.
	Publish(topic string, retained bool, payload []byte) error
	// Subscribe registers h for topic. Subscriptions survive reconnects.
	Subscribe(topic string, h Handler) error
	Disconnect()
}

// PlanTopic is the retained topic carrying the active plan of userID.
func PlanTopic(prefix, userID string) string {
	return fmt.Sprintf("%s/plans/%s", prefix, userID)
}

// GridCommandTopic carries operator grid commands.
func GridCommandTopic(prefix string) string {
	return prefix + "/grid/command"
}

// GridStateTopic is the retained topic mirroring the grid flag.
func GridStateTopic(prefix string) string {
	return prefix + "/grid/state"
}
