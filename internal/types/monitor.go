package types

type MonitorType string

const (
	MonitorTypeHTTP MonitorType = "http"
	MonitorTypeTCP  MonitorType = "tcp"
)

type MonitoringType string

const (
	MonitoringLocal  MonitoringType = "local"
	MonitoringGlobal MonitoringType = "global"
)

// DefaultRegion is used for monitors that do not configure explicit regions.
const DefaultRegion = "default"

type HTTPConfig struct {
	URL             string            `json:"url"`
	Method          string            `json:"method"`
	Headers         map[string]string `json:"headers,omitempty"`
	Body            string            `json:"body,omitempty"`
	Auth            *AuthConfig       `json:"auth,omitempty"`
	FollowRedirects bool              `json:"follow_redirects"`
	TimeoutMs       int               `json:"timeout_ms"`
	IPVersion       string            `json:"ip_version,omitempty"` // "", "ipv4" or "ipv6"
	UserAgent       string            `json:"user_agent,omitempty"`
}

type AuthConfig struct {
	Type     string `json:"type"` // "basic" or "bearer"
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
}

type TCPConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	TimeoutMs int    `json:"timeout_ms"`
}

// ValidationRule is one assertion against a probe result. Type selects which
// of the remaining fields apply.
type ValidationRule struct {
	Type   string `json:"type"` // status_code, header_equals, header_contains, body_contains, body_regex, response_time
	Min    int    `json:"min,omitempty"`
	Max    int    `json:"max,omitempty"`
	Header string `json:"header,omitempty"`
	Value  string `json:"value,omitempty"`
	MaxMs  int    `json:"max_ms,omitempty"`
}

type ValidationError struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}
