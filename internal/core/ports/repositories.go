package ports

import (
	"context"

	"streamgate/internal/core/domain"
)

// AccountRepository persists per-account device bindings. Implementations must
// make BindDevice atomic per account: the read of current bindings and the
// write of a new one happen as one logical transaction, so concurrent logins
// cannot slip past the device limit.
type AccountRepository interface {
	// ListDevices returns all bindings for an account, empty slice if none.
	ListDevices(ctx context.Context, accountID domain.AccountID) ([]domain.DeviceBinding, error)

	// BindDevice registers or refreshes a device binding. A device already
	// bound has its last-used time (and optionally name) refreshed. An unseen
	// device is added only while the account holds fewer than limit bindings;
	// otherwise domain.ErrDeviceLimitReached is returned.
	BindDevice(ctx context.Context, accountID domain.AccountID, binding domain.DeviceBinding, limit int) error

	// RemoveDevice drops a binding (user-initiated eviction from account
	// settings). Returns domain.ErrDeviceNotFound for unknown devices.
	RemoveDevice(ctx context.Context, accountID domain.AccountID, deviceID domain.DeviceID) error
}
