package domain

import "time"

type AccountID string
type DeviceID string

// DeviceBinding records one device an account has played from. The device id
// is a fingerprint hash computed client-side; the gateway treats it as opaque.
type DeviceBinding struct {
	ID         DeviceID  `json:"id"`
	Name       string    `json:"name"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Touch refreshes the binding's last-used time and optionally its name.
func (b *DeviceBinding) Touch(name string, now time.Time) {
	b.LastUsedAt = now
	if name != "" {
		b.Name = name
	}
}
