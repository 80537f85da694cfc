// Package redisstore mirrors the active-request queue into a Redis hash so
// that plans survive a restart.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kilianp07/chargeflex/core/logger"
	"github.com/kilianp07/chargeflex/core/model"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
	defaultKey          = "chargeflex:queue"
)

// Config configures the Redis connection.
type Config struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// Key is the hash holding one field per user id.
	Key string `json:"key"`
}

// Enabled reports whether Redis is configured.
func (c Config) Enabled() bool { return strings.TrimSpace(c.Addr) != "" }

// hashClient is the subset of *redis.Client the store uses.
type hashClient interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// Store keeps one JSON-encoded plan per user id.
type Store struct {
	client hashClient
	key    string
	log    logger.Logger
	closer func() error
}

// NewClient returns a configured go-redis client and validates the connection with PING.
func NewClient(cfg Config) (*redis.Client, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis: addr is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Open connects to Redis and returns a store on cfg.Key.
func Open(cfg Config, log logger.Logger) (*Store, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	s := NewStore(client, cfg.Key, log)
	s.closer = client.Close
	return s, nil
}

// NewStore returns a store writing to the hash key.
func NewStore(client hashClient, key string, log logger.Logger) *Store {
	if key == "" {
		key = defaultKey
	}
	return &Store{client: client, key: key, log: logger.OrNop(log), closer: func() error { return nil }}
}

// Save writes the plan of plan.UserID.
func (s *Store) Save(ctx context.Context, plan model.ChargingPlan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, plan.UserID, data).Err()
}

// Delete removes the plan of userID.
func (s *Store) Delete(ctx context.Context, userID string) error {
	return s.client.HDel(ctx, s.key, userID).Err()
}

// Load returns every stored plan. Undecodable entries are skipped.
func (s *Store) Load(ctx context.Context) ([]model.ChargingPlan, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load %s: %w", s.key, err)
	}
	plans := make([]model.ChargingPlan, 0, len(raw))
	for user, data := range raw {
		var p model.ChargingPlan
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			s.log.Warnf("skipping stored plan of %s: %v", user, err)
			continue
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// OnPlanCommitted mirrors a committed plan.
func (s *Store) OnPlanCommitted(ctx context.Context, plan model.ChargingPlan) error {
	return s.Save(ctx, plan)
}

// OnPlanReleased drops a released plan.
func (s *Store) OnPlanReleased(ctx context.Context, userID string) error {
	return s.Delete(ctx, userID)
}

// Close releases the connection when the store owns it.
func (s *Store) Close() error { return s.closer() }
