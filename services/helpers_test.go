package services

import (
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"worksync/models"
)

var dbSeq int64

// fixedNow is the moment every service under test believes it is.
var fixedNow = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:services_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func createWorker(t *testing.T, db *gorm.DB, email string, role models.Role) models.Worker {
	t.Helper()

	user := models.User{Email: email, PasswordHash: "x", FirstName: "Test"}
	require.NoError(t, db.Omit("Worker").Create(&user).Error)

	worker := models.Worker{UserID: user.ID, Role: role}
	require.NoError(t, db.Omit("User", "Team").Create(&worker).Error)
	worker.User = user
	return worker
}

func reloadWorker(t *testing.T, db *gorm.DB, id uint) models.Worker {
	t.Helper()

	var w models.Worker
	require.NoError(t, db.Preload("User").First(&w, id).Error)
	return w
}

func createTask(t *testing.T, db *gorm.DB, creator models.Worker, executor *models.Worker, status models.TaskStatus) models.Task {
	t.Helper()

	task := models.Task{
		Title:     "Prepare report",
		Deadline:  fixedNow.Add(48 * time.Hour),
		Status:    status,
		CreatorID: creator.ID,
	}
	if executor != nil {
		id := executor.ID
		task.ExecutorID = &id
	}
	require.NoError(t, db.Omit("Executor", "Creator", "Evaluation", "Comments").Create(&task).Error)
	return task
}

func uintPtr(v uint) *uint { return &v }
