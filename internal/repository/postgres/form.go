package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"multibot/internal/domain"
	"multibot/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// FormRepo implements repository.FormRepository
type FormRepo struct {
	db *sql.DB
}

// NewFormRepo creates a new form repository
func NewFormRepo(db *sql.DB) *FormRepo {
	return &FormRepo{db: db}
}

// CreateForm inserts the form with its fields in one transaction
func (r *FormRepo) CreateForm(projectID, name, purpose string, fields []domain.FormFieldDraft) (string, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	formID := uuid.NewString()
	_, err = tx.Exec(
		`INSERT INTO forms (id, project_id, name, purpose) VALUES ($1, $2, $3, $4)`,
		formID, projectID, name, purpose,
	)
	if err != nil {
		return "", err
	}

	for i, f := range fields {
		_, err = tx.Exec(
			`INSERT INTO form_fields (form_id, name, field_type, required, position) VALUES ($1, $2, $3, $4, $5)`,
			formID, f.Name, f.Type, false, i,
		)
		if err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return formID, nil
}

// GetProjectForm returns the project's form with fields, or nil
func (r *FormRepo) GetProjectForm(projectID string) (*domain.Form, error) {
	row := r.db.QueryRow(
		`SELECT id, project_id, name, purpose FROM forms WHERE project_id = $1`,
		projectID,
	)
	return r.scanFormWithFields(row)
}

// GetFormByID returns the form with fields, or nil
func (r *FormRepo) GetFormByID(id string) (*domain.Form, error) {
	row := r.db.QueryRow(
		`SELECT id, project_id, name, purpose FROM forms WHERE id = $1`,
		id,
	)
	return r.scanFormWithFields(row)
}

func (r *FormRepo) scanFormWithFields(row *sql.Row) (*domain.Form, error) {
	var f domain.Form
	var purpose sql.NullString
	err := row.Scan(&f.ID, &f.ProjectID, &f.Name, &purpose)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.Purpose = purpose.String

	rows, err := r.db.Query(
		`SELECT id, form_id, name, field_type, required, position FROM form_fields WHERE form_id = $1 ORDER BY position`,
		f.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var field domain.FormField
		if err := rows.Scan(&field.ID, &field.FormID, &field.Name, &field.Type, &field.Required, &field.Position); err != nil {
			return nil, err
		}
		f.Fields = append(f.Fields, field)
	}
	return &f, rows.Err()
}

// DeleteForm removes the form; fields and submissions cascade
func (r *FormRepo) DeleteForm(id string) error {
	_, err := r.db.Exec(`DELETE FROM forms WHERE id = $1`, id)
	return err
}

// SaveSubmission stores a filled form; a second submission for the same
// (form, user) is rejected with repository.ErrDuplicateSubmission
func (r *FormRepo) SaveSubmission(formID string, telegramID int64, data map[string]string) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	query := `
		INSERT INTO form_submissions (form_id, telegram_id, data, submitted_at)
		VALUES ($1, $2, $3, NOW())
	`
	_, err = r.db.Exec(query, formID, telegramID, payload)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return repository.ErrDuplicateSubmission
	}
	return err
}

// HasSubmission checks whether this user already submitted the form
func (r *FormRepo) HasSubmission(formID string, telegramID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM form_submissions WHERE form_id = $1 AND telegram_id = $2)`
	err := r.db.QueryRow(query, formID, telegramID).Scan(&exists)
	return exists, err
}

// GetSubmissions returns all submissions of a form
func (r *FormRepo) GetSubmissions(formID string) ([]domain.FormSubmission, error) {
	rows, err := r.db.Query(
		`SELECT id, form_id, telegram_id, data, submitted_at FROM form_submissions WHERE form_id = $1 ORDER BY submitted_at`,
		formID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.FormSubmission
	for rows.Next() {
		var s domain.FormSubmission
		var payload []byte
		if err := rows.Scan(&s.ID, &s.FormID, &s.TelegramID, &payload, &s.SubmittedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &s.Data); err != nil {
			return nil, fmt.Errorf("unmarshal submission %d: %w", s.ID, err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
