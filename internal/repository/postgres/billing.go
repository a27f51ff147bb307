package postgres

import (
	"database/sql"

	"multibot/internal/domain"
)

// BillingRepo implements repository.BillingRepository
type BillingRepo struct {
	db *sql.DB
}

// NewBillingRepo creates a new billing repository
func NewBillingRepo(db *sql.DB) *BillingRepo {
	return &BillingRepo{db: db}
}

// AddPayment records a payment attempt
func (r *BillingRepo) AddPayment(telegramID int64, amount int, status string) error {
	query := `INSERT INTO payments (telegram_id, amount, status, paid_at) VALUES ($1, $2, $3, NOW())`
	_, err := r.db.Exec(query, telegramID, amount, status)
	return err
}

// ConfirmPayment marks the user's latest pending payment as confirmed
func (r *BillingRepo) ConfirmPayment(telegramID int64) error {
	query := `
		UPDATE payments SET status = 'confirmed'
		WHERE id = (
			SELECT id FROM payments
			WHERE telegram_id = $1 AND status = 'pending'
			ORDER BY paid_at DESC LIMIT 1
		)
	`
	_, err := r.db.Exec(query, telegramID)
	return err
}

// GetPayments returns all recorded payments
func (r *BillingRepo) GetPayments() ([]domain.Payment, error) {
	rows, err := r.db.Query(`SELECT id, telegram_id, amount, status, paid_at FROM payments ORDER BY paid_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.TelegramID, &p.Amount, &p.Status, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// AddFeedback stores a service review
func (r *BillingRepo) AddFeedback(telegramID int64, rating int, text string) error {
	query := `INSERT INTO feedbacks (telegram_id, rating, text, created_at) VALUES ($1, $2, $3, NOW())`
	_, err := r.db.Exec(query, telegramID, rating, text)
	return err
}

// GetFeedbacks returns all reviews, newest first
func (r *BillingRepo) GetFeedbacks() ([]domain.Feedback, error) {
	rows, err := r.db.Query(`SELECT id, telegram_id, rating, text, created_at FROM feedbacks ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feedbacks []domain.Feedback
	for rows.Next() {
		var f domain.Feedback
		if err := rows.Scan(&f.ID, &f.TelegramID, &f.Rating, &f.Text, &f.CreatedAt); err != nil {
			return nil, err
		}
		feedbacks = append(feedbacks, f)
	}
	return feedbacks, rows.Err()
}

// AddResponseRating stores an end-user rating of a project bot answer
func (r *BillingRepo) AddResponseRating(projectID string, telegramID int64, positive bool) error {
	query := `INSERT INTO response_ratings (project_id, telegram_id, positive, created_at) VALUES ($1, $2, $3, NOW())`
	_, err := r.db.Exec(query, projectID, telegramID, positive)
	return err
}
