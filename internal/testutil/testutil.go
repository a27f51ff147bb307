package testutil

import (
	"time"

	"go.uber.org/zap"

	"multibot/internal/domain"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestUser creates a test user whose trial started daysAgo days ago
func NewTestUser(telegramID int64, daysAgo int) *domain.User {
	return &domain.User{
		TelegramID: telegramID,
		StartDate:  time.Now().AddDate(0, 0, -daysAgo),
	}
}

// NewTestProject creates a test project with sensible defaults
func NewTestProject(id string, telegramID int64) *domain.Project {
	return &domain.Project{
		ID:             id,
		Name:           "Test Project",
		BusinessInfo:   "We sell coffee. Open 9-18 daily.",
		Token:          "12345:TEST-TOKEN-" + id,
		CollectionName: "project_" + id,
		TelegramID:     telegramID,
	}
}

// NewTestForm creates a test form with the given fields
func NewTestForm(id, projectID string, fieldNames ...string) *domain.Form {
	form := &domain.Form{
		ID:        id,
		ProjectID: projectID,
		Name:      "Заявка",
		Purpose:   "Запись на консультацию",
	}
	for i, name := range fieldNames {
		form.Fields = append(form.Fields, domain.FormField{
			ID:       int64(i + 1),
			FormID:   form.ID,
			Name:     name,
			Type:     domain.FieldText,
			Position: i,
		})
	}
	return form
}
