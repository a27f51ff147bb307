package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"multibot/internal/domain"
	"multibot/internal/repository"
)

// FormService manages form schemas and customer submissions
type FormService struct {
	forms repository.FormRepository
}

// NewFormService creates a form service
func NewFormService(forms repository.FormRepository) *FormService {
	return &FormService{forms: forms}
}

// AddDraftField validates and appends a field to an in-progress form
// draft. Duplicate names are rejected case-insensitively.
func (s *FormService) AddDraftField(draft *domain.FormDraft, name, fieldType string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	if draft.HasField(name) {
		return ErrDuplicateField
	}
	draft.Fields = append(draft.Fields, domain.FormFieldDraft{Name: name, Type: fieldType})
	return nil
}

// CreateForm persists a completed draft as the project's form
func (s *FormService) CreateForm(projectID, name, purpose string, draft *domain.FormDraft) (string, error) {
	if len(draft.Fields) == 0 {
		return "", fmt.Errorf("form must have at least one field")
	}
	return s.forms.CreateForm(projectID, name, purpose, draft.Fields)
}

// GetProjectForm returns the project's form, or nil when none exists
func (s *FormService) GetProjectForm(projectID string) (*domain.Form, error) {
	return s.forms.GetProjectForm(projectID)
}

// DeleteForm removes the form with its fields and submissions
func (s *FormService) DeleteForm(formID string) error {
	return s.forms.DeleteForm(formID)
}

// StartFill begins a fill session for a customer, pre-populating values
// that can be extracted from their earlier message
func (s *FormService) StartFill(form *domain.Form, priorText string) (*domain.FormFill, error) {
	fill := &domain.FormFill{
		FormID:    form.ID,
		Fields:    form.Fields,
		Collected: AutoFill(form, priorText),
	}
	return fill, nil
}

// CanSubmit reports whether the customer has not yet sent this form
func (s *FormService) CanSubmit(formID string, telegramID int64) (bool, error) {
	has, err := s.forms.HasSubmission(formID, telegramID)
	if err != nil {
		return false, err
	}
	return !has, nil
}

// AcceptValue validates one answer against its field type and records it
// in the fill session
func (s *FormService) AcceptValue(fill *domain.FormFill, field *domain.FormField, value string) error {
	value = strings.TrimSpace(value)
	if err := validateFieldValue(field.Type, value); err != nil {
		return err
	}
	if fill.Collected == nil {
		fill.Collected = make(map[string]string)
	}
	fill.Collected[field.Name] = value
	return nil
}

// Submit stores the completed fill. A repeated submission maps to
// ErrAlreadySubmitted.
func (s *FormService) Submit(fill *domain.FormFill, telegramID int64) error {
	err := s.forms.SaveSubmission(fill.FormID, telegramID, fill.Collected)
	if errors.Is(err, repository.ErrDuplicateSubmission) {
		return ErrAlreadySubmitted
	}
	return err
}

// GetSubmissions lists everything customers have submitted to a form
func (s *FormService) GetSubmissions(formID string) ([]domain.FormSubmission, error) {
	return s.forms.GetSubmissions(formID)
}

var (
	phoneRe  = regexp.MustCompile(`(?:\+7|8|7)[\s\-]?\(?\d{3}\)?[\s\-]?\d{3}[\s\-]?\d{2}[\s\-]?\d{2}`)
	emailRe  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	numberRe = regexp.MustCompile(`^\d+([.,]\d+)?$`)
	dateRe   = regexp.MustCompile(`\d{1,2}[./\-]\d{1,2}(?:[./\-]\d{2,4})?`)
)

// AutoFill extracts values for form fields from free text the customer
// already wrote, so they are not asked again for what they already said
func AutoFill(form *domain.Form, text string) map[string]string {
	collected := make(map[string]string)
	if strings.TrimSpace(text) == "" {
		return collected
	}

	for _, field := range form.Fields {
		switch field.Type {
		case domain.FieldPhone:
			if m := phoneRe.FindString(text); m != "" {
				collected[field.Name] = strings.TrimSpace(m)
			}
		case domain.FieldEmail:
			if m := emailRe.FindString(text); m != "" {
				collected[field.Name] = m
			}
		case domain.FieldDate:
			if m := dateRe.FindString(text); m != "" {
				collected[field.Name] = m
			}
		}
	}
	return collected
}

func validateFieldValue(fieldType, value string) error {
	if value == "" {
		return fmt.Errorf("значение не может быть пустым")
	}

	switch fieldType {
	case domain.FieldNumber:
		if !numberRe.MatchString(value) {
			return fmt.Errorf("ожидается число")
		}
	case domain.FieldPhone:
		if phoneRe.FindString(value) == "" {
			return fmt.Errorf("ожидается номер телефона")
		}
	case domain.FieldEmail:
		if emailRe.FindString(value) == "" {
			return fmt.Errorf("ожидается электронная почта")
		}
	case domain.FieldDate:
		if dateRe.FindString(value) == "" {
			return fmt.Errorf("ожидается дата, например 12.05.2026")
		}
	}
	return nil
}
