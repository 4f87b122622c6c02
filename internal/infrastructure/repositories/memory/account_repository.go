package memory

import (
	"context"
	"sync"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
)

type MemoryAccountRepository struct {
	accounts map[domain.AccountID][]domain.DeviceBinding
	mu       sync.RWMutex
}

func NewMemoryAccountRepository() ports.AccountRepository {
	return &MemoryAccountRepository{
		accounts: make(map[domain.AccountID][]domain.DeviceBinding),
	}
}

func (r *MemoryAccountRepository) ListDevices(ctx context.Context, accountID domain.AccountID) ([]domain.DeviceBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]domain.DeviceBinding, len(r.accounts[accountID]))
	copy(devices, r.accounts[accountID])
	return devices, nil
}

// BindDevice checks the quota and records the binding under one lock, so two
// concurrent calls for the same account can never both slip past the limit.
func (r *MemoryAccountRepository) BindDevice(ctx context.Context, accountID domain.AccountID, binding domain.DeviceBinding, limit int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	devices := r.accounts[accountID]
	for i := range devices {
		if devices[i].ID == binding.ID {
			devices[i].Touch(binding.Name, binding.LastUsedAt)
			return nil
		}
	}

	if len(devices) >= limit {
		return domain.ErrDeviceLimitReached
	}

	if binding.Name == "" {
		binding.Name = "Unknown Device"
	}
	r.accounts[accountID] = append(devices, binding)
	return nil
}

func (r *MemoryAccountRepository) RemoveDevice(ctx context.Context, accountID domain.AccountID, deviceID domain.DeviceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	devices := r.accounts[accountID]
	for i := range devices {
		if devices[i].ID == deviceID {
			r.accounts[accountID] = append(devices[:i], devices[i+1:]...)
			return nil
		}
	}

	return domain.ErrDeviceNotFound
}
