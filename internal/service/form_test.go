package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multibot/internal/domain"
	"multibot/internal/repository"
	"multibot/internal/testutil"
)

func TestFormService_AddDraftField(t *testing.T) {
	tests := []struct {
		name      string
		existing  []domain.FormFieldDraft
		fieldName string
		wantErr   error
	}{
		{
			name:      "first field",
			fieldName: "Имя",
		},
		{
			name:      "duplicate name",
			existing:  []domain.FormFieldDraft{{Name: "Имя", Type: domain.FieldText}},
			fieldName: "Имя",
			wantErr:   ErrDuplicateField,
		},
		{
			name:      "duplicate differs only in case",
			existing:  []domain.FormFieldDraft{{Name: "Телефон", Type: domain.FieldPhone}},
			fieldName: "телефон",
			wantErr:   ErrDuplicateField,
		},
		{
			name:      "duplicate with surrounding spaces",
			existing:  []domain.FormFieldDraft{{Name: "Email", Type: domain.FieldEmail}},
			fieldName: "  email  ",
			wantErr:   ErrDuplicateField,
		},
	}

	svc := NewFormService(new(testutil.MockFormRepository))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := &domain.FormDraft{Fields: tt.existing}

			err := svc.AddDraftField(draft, tt.fieldName, domain.FieldText)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Len(t, draft.Fields, len(tt.existing), "rejected field must not be added")
			} else {
				assert.NoError(t, err)
				assert.Len(t, draft.Fields, len(tt.existing)+1)
			}
		})
	}
}

func TestFormService_AddDraftField_EmptyName(t *testing.T) {
	svc := NewFormService(new(testutil.MockFormRepository))

	err := svc.AddDraftField(&domain.FormDraft{}, "   ", domain.FieldText)

	assert.Error(t, err)
}

func TestFormService_CreateForm_RequiresFields(t *testing.T) {
	svc := NewFormService(new(testutil.MockFormRepository))

	_, err := svc.CreateForm("p-1", "Заявка", "Запись", &domain.FormDraft{})

	assert.Error(t, err)
}

func TestFormService_Submit_MapsDuplicateError(t *testing.T) {
	repo := new(testutil.MockFormRepository)
	repo.On("SaveSubmission", "f-1", int64(42), map[string]string{"Имя": "Анна"}).
		Return(repository.ErrDuplicateSubmission)

	svc := NewFormService(repo)
	fill := &domain.FormFill{FormID: "f-1", Collected: map[string]string{"Имя": "Анна"}}

	err := svc.Submit(fill, 42)

	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	repo.AssertExpectations(t)
}

func TestFormService_AcceptValue(t *testing.T) {
	svc := NewFormService(new(testutil.MockFormRepository))

	tests := []struct {
		name      string
		fieldType string
		value     string
		wantErr   bool
	}{
		{"text accepts anything", domain.FieldText, "привет", false},
		{"number accepts digits", domain.FieldNumber, "42", false},
		{"number rejects words", domain.FieldNumber, "сорок два", true},
		{"phone accepts russian format", domain.FieldPhone, "+7 912 345-67-89", false},
		{"phone rejects short", domain.FieldPhone, "12345", true},
		{"email accepts address", domain.FieldEmail, "anna@example.com", false},
		{"email rejects plain text", domain.FieldEmail, "нет почты", true},
		{"date accepts dotted", domain.FieldDate, "12.05.2026", false},
		{"date rejects words", domain.FieldDate, "завтра", true},
		{"empty rejected", domain.FieldText, "  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fill := &domain.FormFill{}
			field := &domain.FormField{Name: "Поле", Type: tt.fieldType}

			err := svc.AcceptValue(fill, field, tt.value)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.value, fill.Collected["Поле"])
			}
		})
	}
}

func TestAutoFill_ExtractsKnownFormats(t *testing.T) {
	form := &domain.Form{
		ID: "f-1",
		Fields: []domain.FormField{
			{Name: "Имя", Type: domain.FieldText},
			{Name: "Телефон", Type: domain.FieldPhone},
			{Name: "Почта", Type: domain.FieldEmail},
		},
	}

	collected := AutoFill(form, "Запишите меня, мой номер +7 912 345-67-89, почта anna@example.com")

	assert.Equal(t, "+7 912 345-67-89", collected["Телефон"])
	assert.Equal(t, "anna@example.com", collected["Почта"])
	_, hasName := collected["Имя"]
	assert.False(t, hasName, "free text fields are never auto-filled")
}

func TestFormFill_NextFieldSkipsCollected(t *testing.T) {
	form := testutil.NewTestForm("f-1", "p-1", "Имя", "Телефон")
	fill := &domain.FormFill{
		FormID:    form.ID,
		Fields:    form.Fields,
		Collected: map[string]string{"Имя": "Анна"},
	}

	next := fill.NextField()

	require.NotNil(t, next)
	assert.Equal(t, "Телефон", next.Name)

	fill.Collected["Телефон"] = "+79123456789"
	assert.Nil(t, fill.NextField())
}
