package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "tracker.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, gdb.AutoMigrate(
		&models.Monitor{},
		&models.MonitorStatus{},
		&models.CheckEvent{},
		&models.Incident{},
		&models.AlertRule{},
		&models.AlertHistory{},
	))

	return gdb
}

func createMonitor(t *testing.T, gdb *gorm.DB, mutate func(*models.Monitor)) *models.Monitor {
	t.Helper()

	monitor := &models.Monitor{
		OrgID:             1,
		Name:              "api",
		Type:              "http",
		Enabled:           true,
		Interval:          60,
		MonitoringType:    "local",
		Config:            []byte(`{"url":"http://example.com/health"}`),
		FailureThreshold:  1,
		RecoveryThreshold: 1,
	}

	if mutate != nil {
		mutate(monitor)
	}

	require.NoError(t, gdb.Create(monitor).Error)
	require.NoError(t, SeedStatuses(gdb, monitor))

	return monitor
}

func successResult() types.ProbeResult {
	return types.ProbeResult{
		Status:     types.CheckSuccess,
		Timestamp:  time.Now(),
		StatusCode: 200,
		DurationMs: 42,
	}
}

func failureResult(errType types.ErrorType, message string) types.ProbeResult {
	return types.ProbeResult{
		Status:       types.CheckFailure,
		Timestamp:    time.Now(),
		ErrorType:    errType,
		ErrorMessage: message,
	}
}

type captureListener struct {
	events []types.StatusChangeEvent
}

func (c *captureListener) OnStatusChange(_ context.Context, event types.StatusChangeEvent) {
	c.events = append(c.events, event)
}

func loadStatusRow(t *testing.T, gdb *gorm.DB, monitorID uint, region string) models.MonitorStatus {
	t.Helper()

	var status models.MonitorStatus
	require.NoError(t, gdb.Where("monitor_id = ? AND region = ?", monitorID, region).First(&status).Error)
	return status
}

func TestRepeatedFailuresOpenSingleIncident(t *testing.T) {
	gdb := newTestDB(t)
	monitor := createMonitor(t, gdb, nil)

	trk := New(gdb, zap.NewNop())
	listener := &captureListener{}
	trk.Subscribe(listener)

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := trk.Apply(ctx, monitor.ID, "default", failureResult(types.ErrorTypeConnection, "connection refused"))
		require.NoError(t, err)
	}

	status := loadStatusRow(t, gdb, monitor.ID, "default")
	assert.Equal(t, string(types.StateDown), status.Status)
	assert.Equal(t, 3, status.ConsecutiveFailures)
	assert.Equal(t, 0, status.ConsecutiveSuccesses)

	var incidentList []models.Incident
	require.NoError(t, gdb.Where("monitor_id = ?", monitor.ID).Find(&incidentList).Error)
	require.Len(t, incidentList, 1)
	assert.Equal(t, models.IncidentActive, incidentList[0].Status)
	assert.Equal(t, 3, incidentList[0].FailureCount)
	assert.Nil(t, incidentList[0].EndTime)

	var eventCount int64
	require.NoError(t, gdb.Model(&models.CheckEvent{}).Where("monitor_id = ?", monitor.ID).Count(&eventCount).Error)
	assert.Equal(t, int64(3), eventCount)

	// Only the unknown->down transition fires a change event.
	require.Len(t, listener.events, 1)
	assert.Equal(t, types.StateUnknown, listener.events[0].From)
	assert.Equal(t, types.StateDown, listener.events[0].To)
}

func TestRecoveryClosesIncident(t *testing.T) {
	gdb := newTestDB(t)
	monitor := createMonitor(t, gdb, nil)

	trk := New(gdb, zap.NewNop())
	listener := &captureListener{}
	trk.Subscribe(listener)

	ctx := context.Background()

	require.NoError(t, trk.Apply(ctx, monitor.ID, "default", failureResult(types.ErrorTypeTimeout, "i/o timeout")))
	require.NoError(t, trk.Apply(ctx, monitor.ID, "default", successResult()))

	status := loadStatusRow(t, gdb, monitor.ID, "default")
	assert.Equal(t, string(types.StateUp), status.Status)
	assert.Equal(t, 0, status.ConsecutiveFailures)
	assert.Equal(t, 1, status.ConsecutiveSuccesses)

	var incident models.Incident
	require.NoError(t, gdb.Where("monitor_id = ?", monitor.ID).First(&incident).Error)
	assert.Equal(t, models.IncidentResolved, incident.Status)
	require.NotNil(t, incident.EndTime)
	require.NotNil(t, incident.ResolvedAt)

	require.Len(t, listener.events, 2)
	assert.Equal(t, types.StateDown, listener.events[1].From)
	assert.Equal(t, types.StateUp, listener.events[1].To)
}

func TestFailureThresholdDelaysTransition(t *testing.T) {
	gdb := newTestDB(t)
	monitor := createMonitor(t, gdb, func(m *models.Monitor) {
		m.FailureThreshold = 3
	})

	trk := New(gdb, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, trk.Apply(ctx, monitor.ID, "default", failureResult(types.ErrorTypeConnection, "refused")))
	}

	status := loadStatusRow(t, gdb, monitor.ID, "default")
	assert.Equal(t, string(types.StateUnknown), status.Status)
	assert.Equal(t, 2, status.ConsecutiveFailures)

	var incidentCount int64
	require.NoError(t, gdb.Model(&models.Incident{}).Where("monitor_id = ?", monitor.ID).Count(&incidentCount).Error)
	assert.Equal(t, int64(0), incidentCount)

	require.NoError(t, trk.Apply(ctx, monitor.ID, "default", failureResult(types.ErrorTypeConnection, "refused")))

	status = loadStatusRow(t, gdb, monitor.ID, "default")
	assert.Equal(t, string(types.StateDown), status.Status)

	require.NoError(t, gdb.Model(&models.Incident{}).Where("monitor_id = ?", monitor.ID).Count(&incidentCount).Error)
	assert.Equal(t, int64(1), incidentCount)
}

func TestRecoveryThresholdDelaysTransition(t *testing.T) {
	gdb := newTestDB(t)
	monitor := createMonitor(t, gdb, func(m *models.Monitor) {
		m.RecoveryThreshold = 2
	})

	trk := New(gdb, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, trk.Apply(ctx, monitor.ID, "default", failureResult(types.ErrorTypeDNS, "no such host")))

	require.NoError(t, trk.Apply(ctx, monitor.ID, "default", successResult()))
	status := loadStatusRow(t, gdb, monitor.ID, "default")
	assert.Equal(t, string(types.StateDown), status.Status)

	var incident models.Incident
	require.NoError(t, gdb.Where("monitor_id = ?", monitor.ID).First(&incident).Error)
	assert.Equal(t, models.IncidentActive, incident.Status)

	require.NoError(t, trk.Apply(ctx, monitor.ID, "default", successResult()))
	status = loadStatusRow(t, gdb, monitor.ID, "default")
	assert.Equal(t, string(types.StateUp), status.Status)
	assert.Equal(t, 2, status.ConsecutiveSuccesses)

	require.NoError(t, gdb.Where("monitor_id = ?", monitor.ID).First(&incident).Error)
	assert.Equal(t, models.IncidentResolved, incident.Status)
}

func TestValidationFailureCountsAsDown(t *testing.T) {
	gdb := newTestDB(t)
	monitor := createMonitor(t, gdb, func(m *models.Monitor) {
		m.ValidationRules = []byte(`[{"type":"body_contains","value":"\"healthy\":true"}]`)
	})

	trk := New(gdb, zap.NewNop())
	ctx := context.Background()

	result := successResult()
	result.Body = []byte(`{"healthy":false}`)

	require.NoError(t, trk.Apply(ctx, monitor.ID, "default", result))

	status := loadStatusRow(t, gdb, monitor.ID, "default")
	assert.Equal(t, string(types.StateDown), status.Status)
	assert.Equal(t, 1, status.ConsecutiveFailures)

	var event models.CheckEvent
	require.NoError(t, gdb.Where("monitor_id = ?", monitor.ID).First(&event).Error)
	assert.NotEmpty(t, event.ValidationErrors)
}

func TestStaleResultDiscarded(t *testing.T) {
	gdb := newTestDB(t)
	monitor := createMonitor(t, gdb, nil)

	trk := New(gdb, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, trk.Apply(ctx, monitor.ID, "default", successResult()))

	stale := failureResult(types.ErrorTypeConnection, "refused")
	stale.Timestamp = time.Now().Add(-time.Minute)
	require.NoError(t, trk.Apply(ctx, monitor.ID, "default", stale))

	status := loadStatusRow(t, gdb, monitor.ID, "default")
	assert.Equal(t, string(types.StateUp), status.Status)
	assert.Equal(t, 0, status.ConsecutiveFailures)

	var eventCount int64
	require.NoError(t, gdb.Model(&models.CheckEvent{}).Where("monitor_id = ?", monitor.ID).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)
}

func TestResultForDeletedMonitorDiscarded(t *testing.T) {
	gdb := newTestDB(t)

	trk := New(gdb, zap.NewNop())

	require.NoError(t, trk.Apply(context.Background(), 9999, "default", successResult()))

	var eventCount int64
	require.NoError(t, gdb.Model(&models.CheckEvent{}).Count(&eventCount).Error)
	assert.Equal(t, int64(0), eventCount)
}

func TestApplyAdvancesScheduleCursor(t *testing.T) {
	gdb := newTestDB(t)
	monitor := createMonitor(t, gdb, func(m *models.Monitor) {
		m.Interval = 120
	})

	trk := New(gdb, zap.NewNop())
	before := time.Now()

	require.NoError(t, trk.Apply(context.Background(), monitor.ID, "default", successResult()))

	status := loadStatusRow(t, gdb, monitor.ID, "default")
	require.NotNil(t, status.LastCheckedAt)
	assert.False(t, status.NextCheckAt.Before(before.Add(119*time.Second)))
}

func TestRegionsTrackedIndependently(t *testing.T) {
	gdb := newTestDB(t)
	monitor := createMonitor(t, gdb, func(m *models.Monitor) {
		m.MonitoringType = "global"
		m.Regions = []string{"us-east", "eu-west"}
	})

	trk := New(gdb, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, trk.Apply(ctx, monitor.ID, "us-east", failureResult(types.ErrorTypeConnection, "refused")))
	require.NoError(t, trk.Apply(ctx, monitor.ID, "eu-west", successResult()))

	assert.Equal(t, string(types.StateDown), loadStatusRow(t, gdb, monitor.ID, "us-east").Status)
	assert.Equal(t, string(types.StateUp), loadStatusRow(t, gdb, monitor.ID, "eu-west").Status)

	var incidentList []models.Incident
	require.NoError(t, gdb.Where("monitor_id = ?", monitor.ID).Find(&incidentList).Error)
	require.Len(t, incidentList, 1)
	assert.Equal(t, "us-east", incidentList[0].Region)
}

func TestSeedStatusesIsIdempotent(t *testing.T) {
	gdb := newTestDB(t)
	monitor := createMonitor(t, gdb, func(m *models.Monitor) {
		m.MonitoringType = "global"
		m.Regions = []string{"us-east", "eu-west"}
	})

	require.NoError(t, SeedStatuses(gdb, monitor))

	var count int64
	require.NoError(t, gdb.Model(&models.MonitorStatus{}).Where("monitor_id = ?", monitor.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestUptimeWindowRefreshed(t *testing.T) {
	gdb := newTestDB(t)
	monitor := createMonitor(t, gdb, nil)

	trk := New(gdb, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, trk.Apply(ctx, monitor.ID, "default", successResult()))
	require.NoError(t, trk.Apply(ctx, monitor.ID, "default", failureResult(types.ErrorTypeTimeout, "timeout")))

	status := loadStatusRow(t, gdb, monitor.ID, "default")
	require.NotNil(t, status.Uptime24h)
	assert.InDelta(t, 50.0, *status.Uptime24h, 0.01)
	require.NotNil(t, status.AvgResponseTime24h)
	assert.InDelta(t, 42.0, *status.AvgResponseTime24h, 0.01)
}

func TestAlertRuleLifecycle(t *testing.T) {
	gdb := newTestDB(t)
	monitor := createMonitor(t, gdb, nil)

	rule := models.AlertRule{
		MonitorID: monitor.ID,
		OrgID:     monitor.OrgID,
		Name:      "slow responses",
		Condition: models.AlertConditionResponseTimeAbove,
		Threshold: 100,
		Enabled:   true,
	}
	require.NoError(t, gdb.Create(&rule).Error)

	trk := New(gdb, zap.NewNop())
	ctx := context.Background()

	slow := successResult()
	slow.DurationMs = 250
	require.NoError(t, trk.Apply(ctx, monitor.ID, "default", slow))

	var history models.AlertHistory
	require.NoError(t, gdb.Where("rule_id = ?", rule.ID).First(&history).Error)
	assert.Equal(t, models.AlertTriggered, history.Status)

	fast := successResult()
	fast.DurationMs = 20
	require.NoError(t, trk.Apply(ctx, monitor.ID, "default", fast))

	require.NoError(t, gdb.Where("rule_id = ?", rule.ID).First(&history).Error)
	assert.Equal(t, models.AlertResolved, history.Status)
	require.NotNil(t, history.ResolvedAt)
}

func TestConcurrentFailuresKeepSingleOpenIncident(t *testing.T) {
	gdb := newTestDB(t)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	monitor := createMonitor(t, gdb, nil)

	trk := New(gdb, zap.NewNop())
	ctx := context.Background()

	const workers = 8

	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			// Build the result inside the goroutine so its timestamp is
			// current when the keyed section admits it.
			errs <- trk.Apply(ctx, monitor.ID, "default", failureResult(types.ErrorTypeConnection, "connection refused"))
		}()
	}
	for i := 0; i < workers; i++ {
		require.NoError(t, <-errs)
	}

	var open int64
	require.NoError(t, gdb.Model(&models.Incident{}).
		Where("monitor_id = ? AND region = ? AND end_time IS NULL", monitor.ID, "default").
		Count(&open).Error)
	assert.Equal(t, int64(1), open)

	var total int64
	require.NoError(t, gdb.Model(&models.Incident{}).
		Where("monitor_id = ? AND region = ?", monitor.ID, "default").
		Count(&total).Error)
	assert.Equal(t, int64(1), total)

	status := loadStatusRow(t, gdb, monitor.ID, "default")
	assert.Equal(t, string(types.StateDown), status.Status)
}

func TestRefreshWindowsPropagatesStoreErrors(t *testing.T) {
	gdb := newTestDB(t)
	monitor := createMonitor(t, gdb, nil)

	trk := New(gdb, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, trk.Apply(ctx, monitor.ID, "default", successResult()))

	status := loadStatusRow(t, gdb, monitor.ID, "default")
	require.NotNil(t, status.Uptime24h)

	require.NoError(t, gdb.Migrator().DropTable(&models.CheckEvent{}))

	err := refreshWindows(gdb, &status)
	require.Error(t, err)
}
