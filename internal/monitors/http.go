package monitors

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/upwatch-dev/upwatch/internal/types"
)

const (
	defaultTimeout   = 30 * time.Second
	maxCapturedBody  = 64 * 1024
	maxHeaderValue   = 1024
	defaultUserAgent = "upwatch/1.0"
)

// CheckHTTP executes one HTTP probe. Transport-level failures and timeouts
// come back inside the ProbeResult; the error return is reserved for broken
// configuration.
func CheckHTTP(ctx context.Context, config *types.HTTPConfig) (types.ProbeResult, error) {
	timeout := time.Duration(config.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	method := config.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if config.Body != "" {
		body = strings.NewReader(config.Body)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, config.URL, body)
	if err != nil {
		return types.ProbeResult{}, ErrConfig
	}

	for key, value := range config.Headers {
		req.Header.Set(key, value)
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	if config.Auth != nil {
		switch config.Auth.Type {
		case "basic":
			req.SetBasicAuth(config.Auth.Username, config.Auth.Password)
		case "bearer":
			req.Header.Set("Authorization", "Bearer "+config.Auth.Token)
		}
	}

	timings := &types.ProbeTimings{}
	var dnsStart, connStart, tlsStart, ttfbAt time.Time
	start := time.Now()

	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) { dnsStart = time.Now() },
		DNSDone: func(httptrace.DNSDoneInfo) {
			timings.DNSMs = msSince(dnsStart)
		},
		ConnectStart: func(string, string) { connStart = time.Now() },
		ConnectDone: func(string, string, error) {
			timings.ConnectMs = msSince(connStart)
		},
		TLSHandshakeStart: func() { tlsStart = time.Now() },
		TLSHandshakeDone: func(tls.ConnectionState, error) {
			timings.TLSMs = msSince(tlsStart)
		},
		GotFirstResponseByte: func() {
			ttfbAt = time.Now()
			timings.TTFBMs = msSince(start)
		},
	}

	result := types.ProbeResult{
		Timestamp: start,
		Timings:   timings,
	}

	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	client := newHTTPClient(config, timeout)

	resp, err := client.Do(req)
	result.DurationMs = msSince(start)

	if err != nil {
		result.Status, result.ErrorType = classifyProbeError(err)
		result.ErrorMessage = err.Error()
		return result, nil
	}

	defer resp.Body.Close()

	captured, err := io.ReadAll(io.LimitReader(resp.Body, maxCapturedBody))
	if err != nil {
		result.DurationMs = msSince(start)
		result.Status, result.ErrorType = classifyProbeError(err)
		result.ErrorMessage = err.Error()
		return result, nil
	}

	// Drain the remainder so ResponseSize reflects the full payload.
	rest, _ := io.Copy(io.Discard, resp.Body)

	result.DurationMs = msSince(start)
	if !ttfbAt.IsZero() {
		timings.TransferMs = msSince(ttfbAt)
	}

	result.Status = types.CheckSuccess
	result.StatusCode = resp.StatusCode
	result.ResponseSize = int64(len(captured)) + rest
	result.Body = captured
	result.Headers = capHeaders(resp.Header)

	return result, nil
}

func newHTTPClient(config *types.HTTPConfig, timeout time.Duration) *http.Client {
	network := "tcp"
	switch config.IPVersion {
	case "ipv4":
		network = "tcp4"
	case "ipv6":
		network = "tcp6"
	}

	dialer := &net.Dialer{}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
		DisableKeepAlives: true,
	}

	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}

	if !config.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return client
}

func capHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))

	for key := range h {
		value := h.Get(key)
		if len(value) > maxHeaderValue {
			value = value[:maxHeaderValue]
		}
		headers[key] = value
	}

	return headers
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
