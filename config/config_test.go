package config

import (
	"os"
	"path/filepath"
	"testing"
)

//nolint:gocyclo
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `server:
  addr: ":9000"
grid:
  stressed: true
policy:
  eco_max_minutes: 120
negotiation:
  history_limit: 3
intent:
  type: "openai"
  conf:
    model: "gpt-4o"
credential:
  type: "http"
  conf:
    url: "http://vc.local"
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  username: "user"
  password: "pass"
  topic_prefix: "site1"
  use_tls: false
metrics:
  sinks:
    - type: "nop"
planlog:
  type: "sqlite"
  conf:
    path: "plans.db"
  token: "secret"
redis:
  addr: "localhost:6379"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CF_SERVER__CHARGER_COUNT", "6")
	t.Setenv("CF_LOG__LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"server.addr", cfg.Server.Addr, ":9000"},
		{"server.charger_count", cfg.Server.ChargerCount, 6},
		{"server.shutdown_timeout_seconds", cfg.Server.ShutdownTimeoutSeconds, 5},
		{"grid.stressed", cfg.Grid.Stressed, true},
		{"log.level", cfg.Log.Level, "debug"},
		{"policy.eco_max_minutes", cfg.Policy.EcoMaxMinutes, 120},
		{"policy.fast_max_minutes", cfg.Policy.FastMaxMinutes, 45},
		{"negotiation.history_limit", cfg.Negotiation.HistoryLimit, 3},
		{"negotiation.nudge_points", cfg.Negotiation.NudgePoints, 50},
		{"intent.type", cfg.Intent.Type, "openai"},
		{"intent.conf.model", cfg.Intent.Conf["model"], "gpt-4o"},
		{"credential.type", cfg.Credential.Type, "http"},
		{"credential.conf.url", cfg.Credential.Conf["url"], "http://vc.local"},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "cli"},
		{"username", cfg.MQTT.Username, "user"},
		{"password", cfg.MQTT.Password, "pass"},
		{"prefix", cfg.MQTT.Prefix(), "site1"},
		{"use_tls", cfg.MQTT.UseTLS, false},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"planlog.type", cfg.PlanLog.Type, "sqlite"},
		{"planlog.conf.path", cfg.PlanLog.Conf["path"], "plans.db"},
		{"planlog.token", cfg.PlanLog.Token, "secret"},
		{"redis.addr", cfg.Redis.Addr, "localhost:6379"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Server.Addr != ":8001" || cfg.Server.ChargerCount != 4 || cfg.Log.Level != "info" {
		t.Fatalf("defaults not applied: %+v", cfg.Server)
	}
	if cfg.Policy.EcoRatePerMinute != 0.3 {
		t.Fatalf("policy defaults not applied")
	}
}

func TestLoad_EnvSelectsBackend(t *testing.T) {
	t.Setenv("CF_PLANLOG__TYPE", "jsonl")
	t.Setenv("CF_PLANLOG__CONF__PATH", "/var/lib/chargeflex/plans.jsonl")
	t.Setenv("CF_INTENT__TYPE", "heuristic")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.PlanLog.Type != "jsonl" || cfg.PlanLog.Conf["path"] != "/var/lib/chargeflex/plans.jsonl" {
		t.Fatalf("planlog override not applied: %+v", cfg.PlanLog)
	}
	if cfg.Intent.Type != "heuristic" || cfg.Credential.Type != "" {
		t.Fatalf("unexpected backends: %+v %+v", cfg.Intent, cfg.Credential)
	}
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad.toml":    "x = 1",
		"level.yaml":  "log:\n  level: loud\n",
		"intent.yaml": "intent:\n  type: oracle\n",
		"cred.yaml":   "credential:\n  type: ledger\n",
		"plog.yaml":   "planlog:\n  type: tape\n",
		"neg.yaml":    "negotiation:\n  nudge_points: -1\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
