package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/upwatch-dev/upwatch/internal/types"
)

// Outcome is the combined result of evaluating every rule; failing rules are
// collected rather than short-circuited so incidents record a complete reason.
type Outcome struct {
	Passed bool
	Errors []types.ValidationError
}

// Apply evaluates user-defined validation rules against a probe result.
// A probe that already failed or timed out skips the rules and fails outright.
// With no explicit status_code rule, HTTP responses below 400 pass by default.
func Apply(result types.ProbeResult, rules []types.ValidationRule) Outcome {
	if !result.OK() {
		return Outcome{
			Passed: false,
			Errors: []types.ValidationError{{
				Rule:    "probe",
				Message: probeFailureMessage(result),
			}},
		}
	}

	outcome := Outcome{Passed: true}

	if result.StatusCode != 0 && !hasStatusRule(rules) && result.StatusCode >= 400 {
		outcome.Passed = false
		outcome.Errors = append(outcome.Errors, types.ValidationError{
			Rule:    "status_code",
			Message: fmt.Sprintf("unexpected status code %d", result.StatusCode),
		})
	}

	for _, rule := range rules {
		if err := evaluate(result, rule); err != nil {
			outcome.Passed = false
			outcome.Errors = append(outcome.Errors, types.ValidationError{
				Rule:    rule.Type,
				Message: err.Error(),
			})
		}
	}

	return outcome
}

func evaluate(result types.ProbeResult, rule types.ValidationRule) error {
	switch rule.Type {
	case "status_code":
		min, max := rule.Min, rule.Max
		if max == 0 {
			max = min
		}
		if result.StatusCode < min || result.StatusCode > max {
			return fmt.Errorf("status code %d not in [%d, %d]", result.StatusCode, min, max)
		}
	case "header_equals":
		value, ok := lookupHeader(result.Headers, rule.Header)
		if !ok || value != rule.Value {
			return fmt.Errorf("header %q is %q, expected %q", rule.Header, value, rule.Value)
		}
	case "header_contains":
		value, ok := lookupHeader(result.Headers, rule.Header)
		if !ok || !strings.Contains(value, rule.Value) {
			return fmt.Errorf("header %q does not contain %q", rule.Header, rule.Value)
		}
	case "body_contains":
		if !strings.Contains(string(result.Body), rule.Value) {
			return fmt.Errorf("body does not contain %q", rule.Value)
		}
	case "body_regex":
		re, err := regexp.Compile(rule.Value)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %v", rule.Value, err)
		}
		if !re.Match(result.Body) {
			return fmt.Errorf("body does not match %q", rule.Value)
		}
	case "response_time":
		if result.DurationMs > float64(rule.MaxMs) {
			return fmt.Errorf("response time %.0fms exceeds %dms", result.DurationMs, rule.MaxMs)
		}
	default:
		return fmt.Errorf("unknown rule type %q", rule.Type)
	}

	return nil
}

func hasStatusRule(rules []types.ValidationRule) bool {
	for _, rule := range rules {
		if rule.Type == "status_code" {
			return true
		}
	}
	return false
}

func lookupHeader(headers map[string]string, name string) (string, bool) {
	for key, value := range headers {
		if strings.EqualFold(key, name) {
			return value, true
		}
	}
	return "", false
}

func probeFailureMessage(result types.ProbeResult) string {
	if result.ErrorMessage != "" {
		return result.ErrorMessage
	}
	return fmt.Sprintf("probe %s", result.Status)
}
