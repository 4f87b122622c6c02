package services

import (
	"context"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
)

type deviceGuard struct {
	accounts ports.AccountRepository
	limit    int
	now      func() time.Time
}

// NewDeviceGuard creates the guard that enforces the per-account device quota.
// The quota check and the binding write are delegated to the repository as one
// atomic operation; the guard never does a separate read-then-write.
func NewDeviceGuard(accounts ports.AccountRepository, limit int) ports.DeviceGuard {
	return &deviceGuard{
		accounts: accounts,
		limit:    limit,
		now:      time.Now,
	}
}

func (g *deviceGuard) Authorize(ctx context.Context, accountID domain.AccountID, deviceID domain.DeviceID, deviceName string) error {
	binding := domain.DeviceBinding{
		ID:         deviceID,
		Name:       deviceName,
		LastUsedAt: g.now(),
	}

	return g.accounts.BindDevice(ctx, accountID, binding, g.limit)
}
