package postgres

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multibot/internal/domain"
	"multibot/internal/repository"
)

func TestFormRepo_CreateForm(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewFormRepo(db)

	fields := []domain.FormFieldDraft{
		{Name: "Имя", Type: domain.FieldText},
		{Name: "Телефон", Type: domain.FieldPhone},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO forms").
		WithArgs(sqlmock.AnyArg(), "p-1", "Заявка", "Запись").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO form_fields").
		WithArgs(sqlmock.AnyArg(), "Имя", domain.FieldText, false, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO form_fields").
		WithArgs(sqlmock.AnyArg(), "Телефон", domain.FieldPhone, false, 1).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	formID, err := repo.CreateForm("p-1", "Заявка", "Запись", fields)

	assert.NoError(t, err)
	assert.NotEmpty(t, formID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormRepo_GetProjectForm(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewFormRepo(db)

	mock.ExpectQuery("SELECT id, project_id, name, purpose FROM forms").
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "name", "purpose"}).
			AddRow("f-1", "p-1", "Заявка", "Запись"))
	mock.ExpectQuery("SELECT id, form_id, name, field_type, required, position FROM form_fields").
		WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "form_id", "name", "field_type", "required", "position"}).
			AddRow(int64(1), "f-1", "Имя", domain.FieldText, false, 0).
			AddRow(int64(2), "f-1", "Телефон", domain.FieldPhone, false, 1))

	form, err := repo.GetProjectForm("p-1")

	assert.NoError(t, err)
	require.NotNil(t, form)
	require.Len(t, form.Fields, 2)
	assert.Equal(t, "Телефон", form.Fields[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormRepo_GetProjectForm_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewFormRepo(db)

	mock.ExpectQuery("SELECT id, project_id, name, purpose FROM forms").
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "name", "purpose"}))

	form, err := repo.GetProjectForm("p-1")

	assert.NoError(t, err)
	assert.Nil(t, form)
}

func TestFormRepo_SaveSubmission_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewFormRepo(db)

	mock.ExpectExec("INSERT INTO form_submissions").
		WithArgs("f-1", int64(42), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	err = repo.SaveSubmission("f-1", 42, map[string]string{"Имя": "Анна"})

	assert.ErrorIs(t, err, repository.ErrDuplicateSubmission)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormRepo_GetSubmissions(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewFormRepo(db)

	mock.ExpectQuery("SELECT id, form_id, telegram_id, data, submitted_at FROM form_submissions").
		WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "form_id", "telegram_id", "data", "submitted_at"}).
			AddRow(int64(1), "f-1", int64(42), []byte(`{"Имя":"Анна"}`), time.Now()))

	subs, err := repo.GetSubmissions("f-1")

	assert.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Анна", subs[0].Data["Имя"])
}
