package domain

import "errors"

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrDeviceNotFound     = errors.New("device not found")
	ErrDeviceLimitReached = errors.New("device limit reached")
	ErrBindingConflict    = errors.New("concurrent device binding update")
	ErrTokenInvalid       = errors.New("invalid playback token")
	ErrGeoBlocked         = errors.New("content not available in this region")
)
