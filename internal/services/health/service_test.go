package health

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, map[string]bool{"ok": true}, NewService().Status())
}

func TestReadyWithoutChecks(t *testing.T) {
	report := NewService().Ready(context.Background())
	assert.True(t, report.OK)
	assert.Empty(t, report.Checks)
}

func TestReadyReportsFailures(t *testing.T) {
	svc := NewService().
		Register("database", CheckerFunc(func(context.Context) error { return nil })).
		Register("redis", CheckerFunc(func(context.Context) error { return errors.New("connection refused") })).
		Register("ignored", nil)

	report := svc.Ready(context.Background())
	assert.False(t, report.OK)
	assert.Equal(t, map[string]string{
		"database": "ok",
		"redis":    "unhealthy: connection refused",
	}, report.Checks)
}

func TestDatabaseChecker(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	require.NoError(t, Database(db).Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.Error(t, Database(db).Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
