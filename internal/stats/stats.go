package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/types"
	"gorm.io/gorm"
)

var intervals = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

type ResponseTimeStats struct {
	Avg *float64 `json:"avg"`
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
	P50 *float64 `json:"p50"`
	P95 *float64 `json:"p95"`
	P99 *float64 `json:"p99"`
}

type Bucket struct {
	Hour            time.Time `json:"hour"`
	AvgResponseTime float64   `json:"avg_response_time"`
	CheckCount      int64     `json:"check_count"`
	SuccessCount    int64     `json:"success_count"`
}

type Summary struct {
	TotalChecks      int64             `json:"totalChecks"`
	SuccessfulChecks int64             `json:"successfulChecks"`
	FailedChecks     int64             `json:"failedChecks"`
	TimeoutChecks    int64             `json:"timeoutChecks"`
	UptimePercentage *float64          `json:"uptimePercentage"`
	ResponseTime     ResponseTimeStats `json:"responseTime"`
	Distribution     []Bucket          `json:"distribution"`
}

// normalizeInterval resolves the default so "" and "24h" mean the same
// window everywhere, cache keys included.
func normalizeInterval(interval string) string {
	if interval == "" {
		return "24h"
	}
	return interval
}

// ParseInterval maps the query parameter onto a window duration.
func ParseInterval(interval string) (time.Duration, error) {
	window, ok := intervals[normalizeInterval(interval)]
	if !ok {
		return 0, fmt.Errorf("unsupported interval %q", interval)
	}

	return window, nil
}

// Compute aggregates the event window for one monitor, optionally scoped to
// a region. A window with zero checks yields a nil uptime, not 0 or 100.
func Compute(db *gorm.DB, monitorID uint, region string, window time.Duration) (*Summary, error) {
	since := time.Now().Add(-window)

	query := db.Model(&models.CheckEvent{}).
		Select("status, response_time_ms, checked_at").
		Where("monitor_id = ? AND checked_at > ?", monitorID, since).
		Order("checked_at ASC")

	if region != "" {
		query = query.Where("region = ?", region)
	}

	var events []models.CheckEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}

	summary := &Summary{Distribution: []Bucket{}}
	successTimes := make([]float64, 0, len(events))
	buckets := make(map[time.Time]*Bucket)

	for _, event := range events {
		summary.TotalChecks++

		switch types.CheckStatus(event.Status) {
		case types.CheckSuccess:
			summary.SuccessfulChecks++
			successTimes = append(successTimes, event.ResponseTimeMs)
		case types.CheckTimeout:
			summary.TimeoutChecks++
		default:
			summary.FailedChecks++
		}

		hour := event.CheckedAt.Truncate(time.Hour)
		bucket, ok := buckets[hour]
		if !ok {
			bucket = &Bucket{Hour: hour}
			buckets[hour] = bucket
		}
		bucket.CheckCount++
		if types.CheckStatus(event.Status) == types.CheckSuccess {
			bucket.SuccessCount++
			bucket.AvgResponseTime += event.ResponseTimeMs
		}
	}

	if summary.TotalChecks > 0 {
		pct := float64(summary.SuccessfulChecks) / float64(summary.TotalChecks) * 100
		summary.UptimePercentage = &pct
	}

	summary.ResponseTime = responseTimes(successTimes)

	hours := make([]time.Time, 0, len(buckets))
	for hour := range buckets {
		hours = append(hours, hour)
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Before(hours[j]) })

	for _, hour := range hours {
		bucket := buckets[hour]
		if bucket.SuccessCount > 0 {
			bucket.AvgResponseTime /= float64(bucket.SuccessCount)
		}
		summary.Distribution = append(summary.Distribution, *bucket)
	}

	return summary, nil
}

// responseTimes computes avg/min/max and nearest-rank percentiles over the
// successful-check response times.
func responseTimes(times []float64) ResponseTimeStats {
	if len(times) == 0 {
		return ResponseTimeStats{}
	}

	sort.Float64s(times)

	var sum float64
	for _, t := range times {
		sum += t
	}

	avg := sum / float64(len(times))
	min := times[0]
	max := times[len(times)-1]

	return ResponseTimeStats{
		Avg: &avg,
		Min: &min,
		Max: &max,
		P50: percentile(times, 0.50),
		P95: percentile(times, 0.95),
		P99: percentile(times, 0.99),
	}
}

// percentile is nearest-rank on a sorted slice: value at ceil(q*n)-1.
func percentile(sorted []float64, q float64) *float64 {
	if len(sorted) == 0 {
		return nil
	}

	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	value := sorted[idx]
	return &value
}
