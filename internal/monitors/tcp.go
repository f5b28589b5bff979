package monitors

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/upwatch-dev/upwatch/internal/types"
)

// CheckTCP attempts one connection to host:port. Connected means up; the
// socket is closed immediately after.
func CheckTCP(ctx context.Context, config *types.TCPConfig) (types.ProbeResult, error) {
	timeout := time.Duration(config.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	start := time.Now()

	result := types.ProbeResult{
		Timestamp: start,
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	result.DurationMs = msSince(start)

	if err != nil {
		result.Status, result.ErrorType = classifyProbeError(err)
		result.ErrorMessage = err.Error()
		return result, nil
	}

	conn.Close()

	result.Status = types.CheckSuccess
	return result, nil
}
