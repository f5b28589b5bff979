package scheduler

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/tracker"
	"github.com/upwatch-dev/upwatch/internal/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "scheduler.db")), &gorm.Config{
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

func newScheduler(gdb *gorm.DB) *Scheduler {
	trk := tracker.New(gdb, zap.NewNop())
	return New(gdb, zap.NewNop(), trk, Options{PollInterval: time.Hour, Workers: 4})
}

func createDueMonitor(t *testing.T, gdb *gorm.DB, config string, mutate func(*models.Monitor)) *models.Monitor {
	t.Helper()

	monitor := &models.Monitor{
		OrgID:             1,
		Name:              "api",
		Type:              "http",
		Enabled:           true,
		Interval:          60,
		MonitoringType:    "local",
		Config:            []byte(config),
		FailureThreshold:  1,
		RecoveryThreshold: 1,
	}

	if mutate != nil {
		mutate(monitor)
	}

	require.NoError(t, gdb.Create(monitor).Error)
	require.NoError(t, tracker.SeedStatuses(gdb, monitor))

	return monitor
}

func eventCount(t *testing.T, gdb *gorm.DB, monitorID uint) int64 {
	t.Helper()

	var count int64
	require.NoError(t, gdb.Model(&models.CheckEvent{}).Where("monitor_id = ?", monitorID).Count(&count).Error)
	return count
}

func TestTickExecutesDueMonitor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gdb := newTestDB(t)
	monitor := createDueMonitor(t, gdb, `{"url":"`+server.URL+`","timeout_ms":2000}`, nil)

	s := newScheduler(gdb)
	defer s.Stop()

	before := time.Now()
	s.tick()

	require.Eventually(t, func() bool {
		return eventCount(t, gdb, monitor.ID) == 1
	}, 5*time.Second, 20*time.Millisecond)

	var status models.MonitorStatus
	require.NoError(t, gdb.Where("monitor_id = ?", monitor.ID).First(&status).Error)
	assert.Equal(t, string(types.StateUp), status.Status)
	assert.True(t, status.NextCheckAt.After(before.Add(59*time.Second)))
}

func TestTickSkipsDisabledMonitor(t *testing.T) {
	gdb := newTestDB(t)
	monitor := createDueMonitor(t, gdb, `{"url":"http://127.0.0.1:1","timeout_ms":100}`, func(m *models.Monitor) {
		m.Enabled = false
	})

	s := newScheduler(gdb)
	defer s.Stop()

	s.tick()
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, int64(0), eventCount(t, gdb, monitor.ID))
}

func TestTickSkipsNotYetDueMonitor(t *testing.T) {
	gdb := newTestDB(t)
	monitor := createDueMonitor(t, gdb, `{"url":"http://127.0.0.1:1","timeout_ms":100}`, nil)

	future := time.Now().Add(time.Hour)
	require.NoError(t, gdb.Model(&models.MonitorStatus{}).
		Where("monitor_id = ?", monitor.ID).
		Update("next_check_at", future).Error)

	s := newScheduler(gdb)
	defer s.Stop()

	s.tick()
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, int64(0), eventCount(t, gdb, monitor.ID))
}

func TestTickRegionScoped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	gdb := newTestDB(t)
	monitor := createDueMonitor(t, gdb, `{"url":"`+server.URL+`","timeout_ms":2000}`, func(m *models.Monitor) {
		m.MonitoringType = "global"
		m.Regions = []string{"us-east", "eu-west"}
	})

	trk := tracker.New(gdb, zap.NewNop())
	s := New(gdb, zap.NewNop(), trk, Options{PollInterval: time.Hour, Workers: 4, Region: "us-east"})
	defer s.Stop()

	s.tick()

	require.Eventually(t, func() bool {
		return eventCount(t, gdb, monitor.ID) == 1
	}, 5*time.Second, 20*time.Millisecond)

	var events []models.CheckEvent
	require.NoError(t, gdb.Where("monitor_id = ?", monitor.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, "us-east", events[0].Region)
}

func TestBadConfigDefersNextCheck(t *testing.T) {
	gdb := newTestDB(t)
	// Bypasses handler validation on purpose to exercise the probe guard.
	monitor := createDueMonitor(t, gdb, `{"url":""}`, nil)

	s := newScheduler(gdb)
	defer s.Stop()

	before := time.Now()
	s.tick()

	require.Eventually(t, func() bool {
		var status models.MonitorStatus
		require.NoError(t, gdb.Where("monitor_id = ?", monitor.ID).First(&status).Error)
		return status.NextCheckAt.After(before)
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, int64(0), eventCount(t, gdb, monitor.ID))
}

func TestDownMonitorOpensIncidentEndToEnd(t *testing.T) {
	gdb := newTestDB(t)
	monitor := createDueMonitor(t, gdb, `{"url":"http://127.0.0.1:1","timeout_ms":500}`, nil)

	s := newScheduler(gdb)
	defer s.Stop()

	s.tick()

	require.Eventually(t, func() bool {
		var count int64
		require.NoError(t, gdb.Model(&models.Incident{}).Where("monitor_id = ?", monitor.ID).Count(&count).Error)
		return count == 1
	}, 5*time.Second, 20*time.Millisecond)

	var status models.MonitorStatus
	require.NoError(t, gdb.Where("monitor_id = ?", monitor.ID).First(&status).Error)
	assert.Equal(t, string(types.StateDown), status.Status)
}

func TestStatusReportsLoopHealth(t *testing.T) {
	gdb := newTestDB(t)

	s := newScheduler(gdb)

	health := s.Status()
	assert.Equal(t, true, health["running"])
	assert.Equal(t, 0, health["inflight_checks"])

	s.Stop()

	health = s.Status()
	assert.Equal(t, false, health["running"])
}
