package postgres

import (
	"database/sql"
	"time"

	"multibot/internal/domain"
)

// StatsRepo implements repository.StatsRepository
type StatsRepo struct {
	db *sql.DB
}

// NewStatsRepo creates a new stats repository
func NewStatsRepo(db *sql.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// LogMessage records one processed inbound message
func (r *StatsRepo) LogMessage(stat *domain.MessageStat) error {
	query := `
		INSERT INTO message_stats (telegram_id, project_id, is_command, response_time, theme, is_trial, is_paid, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, NOW())
	`
	_, err := r.db.Exec(query,
		stat.TelegramID, stat.ProjectID, stat.IsCommand, stat.ResponseTime,
		stat.Theme, stat.IsTrial, stat.IsPaid,
	)
	return err
}

// TotalUsers counts all registered users
func (r *StatsRepo) TotalUsers() (int, error) {
	return r.countRow(`SELECT COUNT(*) FROM users`)
}

// NewUsersSince counts users registered after the given time
func (r *StatsRepo) NewUsersSince(since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE start_date >= $1`, since).Scan(&count)
	return count, err
}

// ActiveUsersSince counts distinct message senders after the given time
func (r *StatsRepo) ActiveUsersSince(since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(DISTINCT telegram_id) FROM message_stats WHERE created_at >= $1`, since,
	).Scan(&count)
	return count, err
}

// TotalMessages counts all logged messages
func (r *StatsRepo) TotalMessages() (int, error) {
	return r.countRow(`SELECT COUNT(*) FROM message_stats`)
}

// AverageResponseTime returns the mean handler latency in seconds
func (r *StatsRepo) AverageResponseTime() (float64, error) {
	var avg sql.NullFloat64
	err := r.db.QueryRow(
		`SELECT AVG(response_time) FROM message_stats WHERE response_time > 0`,
	).Scan(&avg)
	return avg.Float64, err
}

// PaidUsers counts users with an active paid flag
func (r *StatsRepo) PaidUsers() (int, error) {
	return r.countRow(`SELECT COUNT(*) FROM users WHERE paid = TRUE`)
}

// ConfirmedRevenue sums all confirmed payments
func (r *StatsRepo) ConfirmedRevenue() (int, error) {
	var total sql.NullInt64
	err := r.db.QueryRow(`SELECT SUM(amount) FROM payments WHERE status = 'confirmed'`).Scan(&total)
	return int(total.Int64), err
}

func (r *StatsRepo) countRow(query string) (int, error) {
	var count int
	err := r.db.QueryRow(query).Scan(&count)
	return count, err
}
