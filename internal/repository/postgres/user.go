package postgres

import (
	"database/sql"
	"fmt"

	"multibot/internal/domain"
)

// UserRepo implements repository.UserRepository
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser inserts a user if not present; the trial starts at insert time
func (r *UserRepo) CreateUser(telegramID int64, referrerID *int64) error {
	query := `
		INSERT INTO users (telegram_id, start_date, paid, referrer_id)
		VALUES ($1, NOW(), FALSE, $2)
		ON CONFLICT (telegram_id) DO NOTHING
	`
	_, err := r.db.Exec(query, telegramID, referrerID)
	return err
}

// GetUser returns the user or nil if not found
func (r *UserRepo) GetUser(telegramID int64) (*domain.User, error) {
	var u domain.User
	var referrer sql.NullInt64
	query := `SELECT telegram_id, start_date, paid, referrer_id FROM users WHERE telegram_id = $1`
	err := r.db.QueryRow(query, telegramID).Scan(&u.TelegramID, &u.StartDate, &u.Paid, &referrer)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if referrer.Valid {
		u.ReferrerID = &referrer.Int64
	}
	return &u, nil
}

// SetReferrer records the referral relation, only if none is set yet
func (r *UserRepo) SetReferrer(telegramID, referrerID int64) error {
	query := `UPDATE users SET referrer_id = $2 WHERE telegram_id = $1 AND referrer_id IS NULL`
	_, err := r.db.Exec(query, telegramID, referrerID)
	return err
}

// SetPaid flips the paid flag. Any change of the paid state re-arms the
// trial-expiry notification.
func (r *UserRepo) SetPaid(telegramID int64, paid bool) error {
	res, err := r.db.Exec(`UPDATE users SET paid = $2, trial_notified = FALSE WHERE telegram_id = $1`, telegramID, paid)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %d not found", telegramID)
	}
	return nil
}

// SetTrialNotified marks whether the trial-expiry notice went out
func (r *UserRepo) SetTrialNotified(telegramID int64, notified bool) error {
	_, err := r.db.Exec(`UPDATE users SET trial_notified = $2 WHERE telegram_id = $1`, telegramID, notified)
	return err
}

// CountReferrals returns how many users name this one as their referrer
func (r *UserRepo) CountReferrals(referrerID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE referrer_id = $1`, referrerID).Scan(&count)
	return count, err
}

// GetUsersWithExpiredTrial returns unpaid users whose trial window has passed
func (r *UserRepo) GetUsersWithExpiredTrial(trialDays int) ([]domain.User, error) {
	query := `
		SELECT telegram_id, start_date, paid, referrer_id
		FROM users
		WHERE paid = FALSE
		  AND trial_notified = FALSE
		  AND start_date < NOW() - make_interval(days => $1)
	`
	rows, err := r.db.Query(query, trialDays)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanUsers(rows)
}

// GetUsersWithExpiredPaidMonth returns paid users whose latest confirmed
// payment is older than 30 days
func (r *UserRepo) GetUsersWithExpiredPaidMonth() ([]domain.User, error) {
	query := `
		SELECT u.telegram_id, u.start_date, u.paid, u.referrer_id
		FROM users u
		WHERE u.paid = TRUE AND NOT EXISTS (
			SELECT 1 FROM payments p
			WHERE p.telegram_id = u.telegram_id
				AND p.status = 'confirmed'
				AND p.paid_at > NOW() - INTERVAL '30 days'
		)
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanUsers(rows)
}

func scanUsers(rows *sql.Rows) ([]domain.User, error) {
	var users []domain.User
	for rows.Next() {
		var u domain.User
		var referrer sql.NullInt64
		if err := rows.Scan(&u.TelegramID, &u.StartDate, &u.Paid, &referrer); err != nil {
			return nil, err
		}
		if referrer.Valid {
			u.ReferrerID = &referrer.Int64
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
