package domain

import "time"

// Field types selectable when building a form
const (
	FieldText   = "text"
	FieldNumber = "number"
	FieldPhone  = "phone"
	FieldDate   = "date"
	FieldEmail  = "email"
)

// Form is a project-scoped lead-capture schema
type Form struct {
	ID        string
	ProjectID string
	Name      string
	Purpose   string
	Fields    []FormField
}

// FormField is one ordered field of a form
type FormField struct {
	ID       int64
	FormID   string
	Name     string
	Type     string
	Required bool
	Position int
}

// FormSubmission is one client's filled form, at most one per (form, user)
type FormSubmission struct {
	ID          int64
	FormID      string
	TelegramID  int64
	Data        map[string]string
	SubmittedAt time.Time
}

// HasField reports whether the form already has a field with the given
// name, compared case-insensitively
func (f *Form) HasField(name string) bool {
	for _, field := range f.Fields {
		if equalFold(field.Name, name) {
			return true
		}
	}
	return false
}
