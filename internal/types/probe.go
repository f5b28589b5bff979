package types

import "time"

type CheckStatus string

const (
	CheckSuccess CheckStatus = "success"
	CheckFailure CheckStatus = "failure"
	CheckTimeout CheckStatus = "timeout"
)

type MonitorState string

const (
	StateUnknown MonitorState = "unknown"
	StateUp      MonitorState = "up"
	StateDown    MonitorState = "down"
)

type ErrorType string

const (
	ErrorTypeDNS        ErrorType = "dns"
	ErrorTypeConnection ErrorType = "connection"
	ErrorTypeTLS        ErrorType = "tls"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeOther      ErrorType = "other"
)

// ProbeTimings is the per-phase breakdown of an HTTP probe, in milliseconds.
type ProbeTimings struct {
	DNSMs      float64 `json:"dns_ms"`
	ConnectMs  float64 `json:"connect_ms"`
	TLSMs      float64 `json:"tls_ms"`
	TTFBMs     float64 `json:"ttfb_ms"`
	TransferMs float64 `json:"transfer_ms"`
}

// ProbeResult is the structured outcome of one probe execution. Expected
// failure modes (timeout, refused connection, non-2xx) are data here, not
// errors.
type ProbeResult struct {
	Status       CheckStatus
	Timestamp    time.Time
	DurationMs   float64
	StatusCode   int               // http only
	Timings      *ProbeTimings     // http only
	ResponseSize int64             // http only
	Headers      map[string]string // http only, size-capped
	Body         []byte            // http only, capped, for validation
	ErrorType    ErrorType
	ErrorMessage string
}

// OK reports whether the probe itself succeeded at the transport level.
func (r ProbeResult) OK() bool {
	return r.Status == CheckSuccess
}
