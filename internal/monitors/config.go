package monitors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/upwatch-dev/upwatch/internal/types"
)

// ErrConfig marks malformed monitor configuration. It is the only error
// surfaced synchronously to users; everything that happens during a scheduled
// probe is recorded as data instead.
var ErrConfig = errors.New("invalid monitor config")

func ParseHTTPConfig(raw []byte) (*types.HTTPConfig, error) {
	var cfg types.HTTPConfig

	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrConfig)
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrConfig, u.Scheme)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("%w: url has no host", ErrConfig)
	}

	switch cfg.IPVersion {
	case "", "ipv4", "ipv6":
	default:
		return nil, fmt.Errorf("%w: unsupported ip version %q", ErrConfig, cfg.IPVersion)
	}

	if cfg.Auth != nil {
		switch cfg.Auth.Type {
		case "basic", "bearer":
		default:
			return nil, fmt.Errorf("%w: unsupported auth type %q", ErrConfig, cfg.Auth.Type)
		}
	}

	return &cfg, nil
}

func ParseTCPConfig(raw []byte) (*types.TCPConfig, error) {
	var cfg types.TCPConfig

	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrConfig)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", ErrConfig, cfg.Port)
	}

	return &cfg, nil
}

// ValidateConfig checks a raw config payload against its monitor type.
// Used at create/update time so broken monitors are never scheduled.
func ValidateConfig(monitorType string, raw []byte) error {
	switch types.MonitorType(monitorType) {
	case types.MonitorTypeHTTP:
		_, err := ParseHTTPConfig(raw)
		return err
	case types.MonitorTypeTCP:
		_, err := ParseTCPConfig(raw)
		return err
	default:
		return fmt.Errorf("%w: unsupported monitor type %q", ErrConfig, monitorType)
	}
}

// ParseRules decodes the validation rule list stored on a monitor.
func ParseRules(raw []byte) ([]types.ValidationRule, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var rules []types.ValidationRule

	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	return rules, nil
}
