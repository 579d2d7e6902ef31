package service

import (
	"fmt"
	"media-forge/app/config"
	"media-forge/app/logger"
	"media-forge/app/model"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newBacklinkTestService(t *testing.T) (*BacklinkService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Backlink{}, &model.OutreachTask{}, &model.BacklinkConfig{}))

	cfg := &config.BacklinksConfig{
		CacheMinutes:     10,
		MaintenanceCron:  "0 3 * * *",
		RecheckAfterDays: 7,
	}
	log := logger.New(config.LogConfig{Level: "error", Output: "stdout"})
	return NewBacklinkService(db, cfg, log), db
}

func TestDispatchDueOutreach(t *testing.T) {
	svc, db := newBacklinkTestService(t)

	now := time.Now()
	due := model.OutreachTask{
		TargetSite:  "example.com",
		Status:      model.OutreachStatusScheduled,
		ScheduledAt: now.Add(-time.Hour),
	}
	future := model.OutreachTask{
		TargetSite:  "future.com",
		Status:      model.OutreachStatusScheduled,
		ScheduledAt: now.Add(time.Hour),
	}
	closed := model.OutreachTask{
		TargetSite:  "closed.com",
		Status:      model.OutreachStatusClosed,
		ScheduledAt: now.Add(-time.Hour),
	}
	require.NoError(t, db.Create(&due).Error)
	require.NoError(t, db.Create(&future).Error)
	require.NoError(t, db.Create(&closed).Error)

	svc.dispatchDueOutreach()

	var got model.OutreachTask
	require.NoError(t, db.First(&got, due.ID).Error)
	assert.Equal(t, model.OutreachStatusSent, got.Status)
	require.NotNil(t, got.SentAt)

	// 未到期和已关闭的任务不受影响
	got = model.OutreachTask{}
	require.NoError(t, db.First(&got, future.ID).Error)
	assert.Equal(t, model.OutreachStatusScheduled, got.Status)
	got = model.OutreachTask{}
	require.NoError(t, db.First(&got, closed.ID).Error)
	assert.Equal(t, model.OutreachStatusClosed, got.Status)
}

func TestOutreachTaskIsDue(t *testing.T) {
	now := time.Now()

	task := model.OutreachTask{Status: model.OutreachStatusScheduled, ScheduledAt: now.Add(-time.Minute)}
	assert.True(t, task.IsDue(now))

	task.ScheduledAt = now.Add(time.Minute)
	assert.False(t, task.IsDue(now))

	task.Status = model.OutreachStatusSent
	task.ScheduledAt = now.Add(-time.Minute)
	assert.False(t, task.IsDue(now))
}

func TestMinDomainRate(t *testing.T) {
	svc, db := newBacklinkTestService(t)

	require.NoError(t, db.Create(&model.BacklinkConfig{
		Domain:        "example.com",
		MinDomainRate: 30,
	}).Error)

	assert.Equal(t, 30, svc.minDomainRate("example.com"))
	// 未配置的域名没有权重门槛
	assert.Equal(t, 0, svc.minDomainRate("unknown.com"))
}

func TestNormalizeBacklinkStatus(t *testing.T) {
	assert.Equal(t, model.BacklinkStatusLost, normalizeStatus("lost"))
	assert.Equal(t, model.BacklinkStatusBroken, normalizeStatus("broken"))
	assert.Equal(t, model.BacklinkStatusActive, normalizeStatus("active"))
	assert.Equal(t, model.BacklinkStatusActive, normalizeStatus(""))
	assert.Equal(t, model.BacklinkStatusActive, normalizeStatus("whatever"))
}

func TestBacklinkNeedsRecheck(t *testing.T) {
	link := model.Backlink{LastChecked: time.Now().Add(-8 * 24 * time.Hour)}
	assert.True(t, link.NeedsRecheck(7*24*time.Hour))

	link.LastChecked = time.Now().Add(-time.Hour)
	assert.False(t, link.NeedsRecheck(7*24*time.Hour))
}
