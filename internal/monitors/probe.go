package monitors

import (
	"context"

	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/types"
)

// Probe dispatches one check for the monitor's configured type.
func Probe(ctx context.Context, monitor *models.Monitor) (types.ProbeResult, error) {
	switch types.MonitorType(monitor.Type) {
	case types.MonitorTypeHTTP:
		cfg, err := ParseHTTPConfig(monitor.Config)
		if err != nil {
			return types.ProbeResult{}, err
		}
		return CheckHTTP(ctx, cfg)
	case types.MonitorTypeTCP:
		cfg, err := ParseTCPConfig(monitor.Config)
		if err != nil {
			return types.ProbeResult{}, err
		}
		return CheckTCP(ctx, cfg)
	default:
		return types.ProbeResult{}, ErrConfig
	}
}
