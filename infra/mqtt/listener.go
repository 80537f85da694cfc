package mqtt

import (
	"encoding/json"
	"strings"

	"github.com/kilianp07/chargeflex/core/logger"
	coremqtt "github.com/kilianp07/chargeflex/core/mqtt"
)

// GridSetter flips the shared grid flag.
type GridSetter interface {
	SetGridStressed(stressed bool) bool
}

type gridCommand struct {
	Stressed *bool `json:"stressed"`
}

// GridListener applies operator grid commands received on the command topic.
// Payloads are either {"stressed": bool} or the plain words "stress" and
// "stabilize".
type GridListener struct {
	cli    Client
	topic  string
	target GridSetter
	log    logger.Logger
}

// NewGridListener returns a listener for the prefix's command topic.
func NewGridListener(cli Client, prefix string, target GridSetter, log logger.Logger) *GridListener {
	return &GridListener{
		cli:    cli,
		topic:  coremqtt.GridCommandTopic(prefix),
		target: target,
		log:    logger.OrNop(log),
	}
}

// Start subscribes to the command topic.
func (l *GridListener) Start() error {
	return l.cli.Subscribe(l.topic, l.handle)
}

func (l *GridListener) handle(topic string, payload []byte) {
	stressed, ok := parseGridCommand(payload)
	if !ok {
		l.log.Warnf("ignoring grid command on %s: %q", topic, payload)
		return
	}
	prev := l.target.SetGridStressed(stressed)
	l.log.Infof("grid command on %s: stressed %v -> %v", topic, prev, stressed)
}

func parseGridCommand(payload []byte) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "stress", "stressed":
		return true, true
	case "stabilize", "stable", "normal":
		return false, true
	}
	var cmd gridCommand
	if err := json.Unmarshal(payload, &cmd); err != nil || cmd.Stressed == nil {
		return false, false
	}
	return *cmd.Stressed, true
}
