package postgres

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"multibot/internal/domain"
)

func TestStatsRepo_LogMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewStatsRepo(db)

	stat := &domain.MessageStat{
		TelegramID:   42,
		ProjectID:    "p-1",
		ResponseTime: 1.25,
		Theme:        "Доставка",
		IsTrial:      true,
	}

	mock.ExpectExec("INSERT INTO message_stats").
		WithArgs(int64(42), "p-1", false, 1.25, "Доставка", true, false).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, repo.LogMessage(stat))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepo_AverageResponseTime_NoData(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewStatsRepo(db)

	// AVG over zero rows comes back NULL, not an error
	mock.ExpectQuery("SELECT AVG").
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(nil))

	avg, err := repo.AverageResponseTime()

	assert.NoError(t, err)
	assert.Zero(t, avg)
}

func TestStatsRepo_ActiveUsersSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewStatsRepo(db)

	since := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery("SELECT COUNT\\(DISTINCT telegram_id\\) FROM message_stats").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.ActiveUsersSince(since)

	assert.NoError(t, err)
	assert.Equal(t, 7, count)
}
