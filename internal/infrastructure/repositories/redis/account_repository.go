package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/retry"

	"github.com/redis/go-redis/v9"
)

type RedisAccountRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisAccountRepository(client *redis.Client) ports.AccountRepository {
	return &RedisAccountRepository{
		client: client,
		prefix: "streamgate:account:",
	}
}

func (r *RedisAccountRepository) devicesKey(accountID domain.AccountID) string {
	return fmt.Sprintf("%s%s:devices", r.prefix, accountID)
}

func (r *RedisAccountRepository) ListDevices(ctx context.Context, accountID domain.AccountID) ([]domain.DeviceBinding, error) {
	data, err := r.client.Get(ctx, r.devicesKey(accountID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get devices from Redis: %w", err)
	}

	var devices []domain.DeviceBinding
	if err := json.Unmarshal([]byte(data), &devices); err != nil {
		return nil, fmt.Errorf("failed to unmarshal devices: %w", err)
	}

	return devices, nil
}

// BindDevice enforces the quota with optimistic concurrency: the devices key
// is watched, so a concurrent write to the same account aborts the transaction
// and the whole check-and-bind is retried against fresh state. Two racing
// binds can never both pass the limit check.
func (r *RedisAccountRepository) BindDevice(ctx context.Context, accountID domain.AccountID, binding domain.DeviceBinding, limit int) error {
	key := r.devicesKey(accountID)

	cfg := retry.Config{
		MaxAttempts:  5,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       true,
		RetryOn:      []error{redis.TxFailedErr},
	}

	return retry.Do(ctx, cfg, func() error {
		return r.client.Watch(ctx, func(tx *redis.Tx) error {
			devices, err := r.loadDevices(ctx, tx, key)
			if err != nil {
				return err
			}

			found := false
			for i := range devices {
				if devices[i].ID == binding.ID {
					devices[i].Touch(binding.Name, binding.LastUsedAt)
					found = true
					break
				}
			}

			if !found {
				if len(devices) >= limit {
					return domain.ErrDeviceLimitReached
				}
				if binding.Name == "" {
					binding.Name = "Unknown Device"
				}
				devices = append(devices, binding)
			}

			data, err := json.Marshal(devices)
			if err != nil {
				return fmt.Errorf("failed to marshal devices: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			})
			return err
		}, key)
	})
}

func (r *RedisAccountRepository) RemoveDevice(ctx context.Context, accountID domain.AccountID, deviceID domain.DeviceID) error {
	key := r.devicesKey(accountID)

	cfg := retry.Config{
		MaxAttempts:  5,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       true,
		RetryOn:      []error{redis.TxFailedErr},
	}

	return retry.Do(ctx, cfg, func() error {
		return r.client.Watch(ctx, func(tx *redis.Tx) error {
			devices, err := r.loadDevices(ctx, tx, key)
			if err != nil {
				return err
			}

			idx := -1
			for i := range devices {
				if devices[i].ID == deviceID {
					idx = i
					break
				}
			}
			if idx < 0 {
				return domain.ErrDeviceNotFound
			}

			devices = append(devices[:idx], devices[idx+1:]...)
			data, err := json.Marshal(devices)
			if err != nil {
				return fmt.Errorf("failed to marshal devices: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			})
			return err
		}, key)
	})
}

func (r *RedisAccountRepository) loadDevices(ctx context.Context, tx *redis.Tx, key string) ([]domain.DeviceBinding, error) {
	data, err := tx.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get devices from Redis: %w", err)
	}

	var devices []domain.DeviceBinding
	if err := json.Unmarshal([]byte(data), &devices); err != nil {
		return nil, fmt.Errorf("failed to unmarshal devices: %w", err)
	}
	return devices, nil
}
