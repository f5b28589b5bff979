package stats

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upwatch-dev/upwatch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "stats.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.CheckEvent{}))

	return gdb
}

func insertEvent(t *testing.T, gdb *gorm.DB, monitorID uint, region, status string, responseMs float64, at time.Time) {
	t.Helper()

	require.NoError(t, gdb.Create(&models.CheckEvent{
		MonitorID:      monitorID,
		OrgID:          1,
		Region:         region,
		Status:         status,
		ResponseTimeMs: responseMs,
		CheckedAt:      at,
	}).Error)
}

func TestParseInterval(t *testing.T) {
	window, err := ParseInterval("")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, window)

	window, err = ParseInterval("7d")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, window)

	_, err = ParseInterval("90d")
	assert.Error(t, err)
}

func TestComputeEmptyWindow(t *testing.T) {
	gdb := newTestDB(t)

	summary, err := Compute(gdb, 1, "", 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, int64(0), summary.TotalChecks)
	// No checks means no data, not 0% and not 100%.
	assert.Nil(t, summary.UptimePercentage)
	assert.Nil(t, summary.ResponseTime.Avg)
	assert.Nil(t, summary.ResponseTime.P95)
	assert.Empty(t, summary.Distribution)
}

func TestComputeCountsAndUptime(t *testing.T) {
	gdb := newTestDB(t)
	now := time.Now()

	for i := 0; i < 7; i++ {
		insertEvent(t, gdb, 1, "default", "success", 100, now.Add(-time.Duration(i)*time.Minute))
	}
	insertEvent(t, gdb, 1, "default", "failure", 0, now.Add(-8*time.Minute))
	insertEvent(t, gdb, 1, "default", "timeout", 0, now.Add(-9*time.Minute))
	insertEvent(t, gdb, 1, "default", "failure", 0, now.Add(-10*time.Minute))

	// Outside the window and for another monitor, both ignored.
	insertEvent(t, gdb, 1, "default", "failure", 0, now.Add(-25*time.Hour))
	insertEvent(t, gdb, 2, "default", "failure", 0, now)

	summary, err := Compute(gdb, 1, "", 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, int64(10), summary.TotalChecks)
	assert.Equal(t, int64(7), summary.SuccessfulChecks)
	assert.Equal(t, int64(2), summary.FailedChecks)
	assert.Equal(t, int64(1), summary.TimeoutChecks)
	require.NotNil(t, summary.UptimePercentage)
	assert.InDelta(t, 70.0, *summary.UptimePercentage, 0.01)
}

func TestComputeRegionFilter(t *testing.T) {
	gdb := newTestDB(t)
	now := time.Now()

	insertEvent(t, gdb, 1, "us-east", "success", 50, now)
	insertEvent(t, gdb, 1, "eu-west", "failure", 0, now)

	summary, err := Compute(gdb, 1, "us-east", 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.TotalChecks)
	require.NotNil(t, summary.UptimePercentage)
	assert.InDelta(t, 100.0, *summary.UptimePercentage, 0.01)
}

func TestComputeResponseTimeStats(t *testing.T) {
	gdb := newTestDB(t)
	now := time.Now()

	// 100 success events at 1..100ms; failures never count toward latency.
	for i := 1; i <= 100; i++ {
		insertEvent(t, gdb, 1, "default", "success", float64(i), now.Add(-time.Duration(i)*time.Second))
	}
	insertEvent(t, gdb, 1, "default", "failure", 9999, now)

	summary, err := Compute(gdb, 1, "", 24*time.Hour)
	require.NoError(t, err)

	rt := summary.ResponseTime
	require.NotNil(t, rt.Avg)
	assert.InDelta(t, 50.5, *rt.Avg, 0.01)
	assert.Equal(t, 1.0, *rt.Min)
	assert.Equal(t, 100.0, *rt.Max)
	assert.Equal(t, 50.0, *rt.P50)
	assert.Equal(t, 95.0, *rt.P95)
	assert.Equal(t, 99.0, *rt.P99)
}

func TestComputeHourlyDistribution(t *testing.T) {
	gdb := newTestDB(t)
	base := time.Now().Truncate(time.Hour).Add(-3 * time.Hour)

	insertEvent(t, gdb, 1, "default", "success", 100, base.Add(5*time.Minute))
	insertEvent(t, gdb, 1, "default", "success", 200, base.Add(10*time.Minute))
	insertEvent(t, gdb, 1, "default", "failure", 0, base.Add(15*time.Minute))
	insertEvent(t, gdb, 1, "default", "success", 300, base.Add(time.Hour))

	summary, err := Compute(gdb, 1, "", 24*time.Hour)
	require.NoError(t, err)

	require.Len(t, summary.Distribution, 2)

	first := summary.Distribution[0]
	assert.Equal(t, int64(3), first.CheckCount)
	assert.Equal(t, int64(2), first.SuccessCount)
	assert.InDelta(t, 150.0, first.AvgResponseTime, 0.01)

	second := summary.Distribution[1]
	assert.Equal(t, int64(1), second.CheckCount)
	assert.InDelta(t, 300.0, second.AvgResponseTime, 0.01)
	assert.True(t, first.Hour.Before(second.Hour))
}

func TestPercentileNearestRank(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}

	assert.Equal(t, 20.0, *percentile(sorted, 0.50))
	assert.Equal(t, 40.0, *percentile(sorted, 0.95))
	assert.Equal(t, 10.0, *percentile(sorted, 0.01))
	assert.Nil(t, percentile(nil, 0.50))

	single := []float64{7}
	assert.Equal(t, 7.0, *percentile(single, 0.99))
}
