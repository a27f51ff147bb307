package domain

import "strings"

// ConvState names a step of a multi-step conversation flow
type ConvState string

// StateIdle means no flow is active; it is both the initial and the
// terminal state of every conversation
const StateIdle ConvState = ""

// Settings bot states
const (
	StateWaitingProjectName    ConvState = "waiting_project_name"
	StateWaitingToken          ConvState = "waiting_token"
	StateWaitingBusinessData   ConvState = "waiting_business_data"
	StateWaitingNewProjectName ConvState = "waiting_new_project_name"
	StateWaitingNewToken       ConvState = "waiting_new_token"
	StateWaitingAdditionalData ConvState = "waiting_additional_data"
	StateWaitingNewData        ConvState = "waiting_new_data"
	StateWaitingPaymentCheck   ConvState = "waiting_payment_check"
	StateWaitingPaymentConfirm ConvState = "waiting_payment_confirm"
	StateWaitingFieldName      ConvState = "waiting_field_name"
	StateWaitingFieldType      ConvState = "waiting_field_type"
	StateWaitingFormPurpose    ConvState = "waiting_form_purpose"
	StateWaitingFeedbackText   ConvState = "waiting_feedback_text"

	StateWaitingDesignName         ConvState = "waiting_design_name"
	StateWaitingDesignAvatar       ConvState = "waiting_design_avatar"
	StateWaitingDesignWelcomeText  ConvState = "waiting_design_welcome_text"
	StateWaitingDesignWelcomeImage ConvState = "waiting_design_welcome_image"
	StateWaitingDesignDescription  ConvState = "waiting_design_description"
)

// Project bot states
const (
	StateFillingForm ConvState = "filling_form"
)

// ConvData is the typed scratch data of a conversation. Each flow keeps its
// draft in its own field, so a handler reading the wrong draft is a compile
// error rather than a missing map key.
type ConvData struct {
	SelectedProjectID string

	ProjectDraft  *ProjectDraft
	FormDraft     *FormDraft
	DesignDraft   *Design
	FeedbackDraft *FeedbackDraft
	FormFill      *FormFill
}

// ProjectDraft accumulates the project creation flow
type ProjectDraft struct {
	Name  string
	Token string
}

// FormDraft accumulates form fields before the form is persisted
type FormDraft struct {
	PendingFieldName string
	Fields           []FormFieldDraft
}

// FormFieldDraft is one not-yet-persisted form field
type FormFieldDraft struct {
	Name string
	Type string
}

// HasField reports whether the draft already contains a field with the
// given name, compared case-insensitively
func (d *FormDraft) HasField(name string) bool {
	for _, f := range d.Fields {
		if equalFold(f.Name, name) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// FeedbackDraft holds a chosen rating while waiting for the review text
type FeedbackDraft struct {
	Rating int
}

// FormFill tracks a client filling a project form field by field
type FormFill struct {
	FormID    string
	Fields    []FormField
	Collected map[string]string
}

// NextField returns the first field without a collected value, or nil when
// the fill is complete
func (f *FormFill) NextField() *FormField {
	for i := range f.Fields {
		if _, ok := f.Collected[f.Fields[i].Name]; !ok {
			return &f.Fields[i]
		}
	}
	return nil
}
