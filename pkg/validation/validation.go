package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// FingerprintRegex validates device fingerprint format (hex hash)
	FingerprintRegex = regexp.MustCompile(`^[a-fA-F0-9]{16,128}$`)

	// UsernameRegex validates username format
	UsernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateStreamURL validates that a stream URL is an absolute http(s) URL.
func ValidateStreamURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("stream URL is required")
	}
	if len(raw) > 4096 {
		return fmt.Errorf("stream URL is too long (max 4096 characters)")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid stream URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("stream URL must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("stream URL must include a host")
	}
	if u.User != nil {
		return fmt.Errorf("stream URL must not embed credentials")
	}
	return nil
}

// ValidateFingerprint validates a device fingerprint hash.
func ValidateFingerprint(fingerprint string) error {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return fmt.Errorf("device fingerprint is required")
	}
	if !FingerprintRegex.MatchString(fingerprint) {
		return fmt.Errorf("invalid device fingerprint format")
	}
	return nil
}

// ValidateDeviceName validates an optional human-readable device name.
func ValidateDeviceName(name string) error {
	if name == "" {
		return nil
	}
	if len(name) > 100 {
		return fmt.Errorf("device name is too long (max 100 characters)")
	}
	return nil
}

// ValidateUsername validates username
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}
	if len(username) > 50 {
		return fmt.Errorf("username is too long (max 50 characters)")
	}
	if !UsernameRegex.MatchString(username) {
		return fmt.Errorf("username contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}
