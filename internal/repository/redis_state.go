package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"FundPulse/internal/domain/models"
	domrepo "FundPulse/internal/domain/repository"
)

// RedisStateStore implements StateStore on Redis. Entities are stored as
// JSON under a common prefix; big.Int fields round-trip as JSON number
// literals without precision loss.
type RedisStateStore struct {
	client          *redis.Client
	prefix          string
	defaultRegistry string
}

// NewRedisStateStore creates the live entity store. defaultRegistry seeds
// the process state the first time the service runs against an empty
// database.
func NewRedisStateStore(client *redis.Client, prefix, defaultRegistry string) *RedisStateStore {
	if prefix == "" {
		prefix = "fundpulse"
	}
	return &RedisStateStore{client: client, prefix: prefix, defaultRegistry: defaultRegistry}
}

func (s *RedisStateStore) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (s *RedisStateStore) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStateStore) put(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStateStore) GetProcessState(ctx context.Context) (*models.ProcessState, error) {
	var st models.ProcessState
	ok, err := s.get(ctx, s.key("state"), &st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &models.ProcessState{Registry: s.defaultRegistry}, nil
	}
	return &st, nil
}

func (s *RedisStateStore) PutProcessState(ctx context.Context, st *models.ProcessState) error {
	return s.put(ctx, s.key("state"), st)
}

func (s *RedisStateStore) GetRegistry(ctx context.Context, id string) (*models.Registry, bool, error) {
	var r models.Registry
	ok, err := s.get(ctx, s.key("registry", id), &r)
	if err != nil || !ok {
		return nil, false, err
	}
	return &r, true, nil
}

func (s *RedisStateStore) GetVersion(ctx context.Context, id string) (*models.Version, bool, error) {
	var v models.Version
	ok, err := s.get(ctx, s.key("version", id), &v)
	if err != nil || !ok {
		return nil, false, err
	}
	return &v, true, nil
}

func (s *RedisStateStore) GetAsset(ctx context.Context, id string) (*models.Asset, bool, error) {
	var a models.Asset
	ok, err := s.get(ctx, s.key("asset", id), &a)
	if err != nil || !ok {
		return nil, false, err
	}
	return &a, true, nil
}

func (s *RedisStateStore) PutAsset(ctx context.Context, a *models.Asset) error {
	return s.put(ctx, s.key("asset", a.ID), a)
}

func (s *RedisStateStore) GetFund(ctx context.Context, id string) (*models.Fund, bool, error) {
	var f models.Fund
	ok, err := s.get(ctx, s.key("fund", id), &f)
	if err != nil || !ok {
		return nil, false, err
	}
	return &f, true, nil
}

func (s *RedisStateStore) PutFund(ctx context.Context, f *models.Fund) error {
	return s.put(ctx, s.key("fund", f.ID), f)
}

func (s *RedisStateStore) GetInvestment(ctx context.Context, id string) (*models.Investment, bool, error) {
	var inv models.Investment
	ok, err := s.get(ctx, s.key("investment", id), &inv)
	if err != nil || !ok {
		return nil, false, err
	}
	return &inv, true, nil
}

func (s *RedisStateStore) PutInvestment(ctx context.Context, inv *models.Investment) error {
	return s.put(ctx, s.key("investment", inv.ID), inv)
}

func (s *RedisStateStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStateStore) Close() error {
	return s.client.Close()
}

var _ domrepo.StateStore = (*RedisStateStore)(nil)
