package postgres

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepo_CreateUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewUserRepo(db)

	referrer := int64(100)
	mock.ExpectExec("INSERT INTO users").
		WithArgs(int64(42), &referrer).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, repo.CreateUser(42, &referrer))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetUser(t *testing.T) {
	tests := []struct {
		name     string
		rows     *sqlmock.Rows
		wantNil  bool
		wantPaid bool
	}{
		{
			name: "existing paid user",
			rows: sqlmock.NewRows([]string{"telegram_id", "start_date", "paid", "referrer_id"}).
				AddRow(int64(42), time.Now(), true, nil),
			wantPaid: true,
		},
		{
			name:    "missing user",
			rows:    sqlmock.NewRows([]string{"telegram_id", "start_date", "paid", "referrer_id"}),
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			assert.NoError(t, err)
			defer db.Close()

			repo := NewUserRepo(db)
			mock.ExpectQuery("SELECT telegram_id, start_date, paid, referrer_id FROM users").
				WithArgs(int64(42)).
				WillReturnRows(tt.rows)

			user, err := repo.GetUser(42)

			assert.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, user)
			} else {
				require.NotNil(t, user)
				assert.Equal(t, tt.wantPaid, user.Paid)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepo_SetPaid_MissingUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewUserRepo(db)
	mock.ExpectExec("UPDATE users SET paid").
		WithArgs(int64(42), true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Error(t, repo.SetPaid(42, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_SetPaid_RearmsTrialNotice(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewUserRepo(db)
	mock.ExpectExec("UPDATE users SET paid = \\$2, trial_notified = FALSE").
		WithArgs(int64(42), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SetPaid(42, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_SetTrialNotified(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewUserRepo(db)
	mock.ExpectExec("UPDATE users SET trial_notified").
		WithArgs(int64(42), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SetTrialNotified(42, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetUsersWithExpiredTrial(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewUserRepo(db)

	rows := sqlmock.NewRows([]string{"telegram_id", "start_date", "paid", "referrer_id"}).
		AddRow(int64(1), time.Now().AddDate(0, 0, -10), false, nil).
		AddRow(int64(2), time.Now().AddDate(0, 0, -8), false, int64(1))

	mock.ExpectQuery("SELECT telegram_id, start_date, paid, referrer_id").
		WithArgs(7).
		WillReturnRows(rows)

	users, err := repo.GetUsersWithExpiredTrial(7)

	assert.NoError(t, err)
	require.Len(t, users, 2)
	assert.EqualValues(t, 1, users[0].TelegramID)
	require.NotNil(t, users[1].ReferrerID)
	assert.EqualValues(t, 1, *users[1].ReferrerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
