package repository

import (
	"time"

	"multibot/internal/domain"
)

// UserRepository defines tenant bookkeeping operations
type UserRepository interface {
	CreateUser(telegramID int64, referrerID *int64) error
	GetUser(telegramID int64) (*domain.User, error)
	SetReferrer(telegramID, referrerID int64) error
	SetPaid(telegramID int64, paid bool) error
	SetTrialNotified(telegramID int64, notified bool) error
	CountReferrals(referrerID int64) (int, error)
	GetUsersWithExpiredTrial(trialDays int) ([]domain.User, error)
	GetUsersWithExpiredPaidMonth() ([]domain.User, error)
}

// ProjectRepository defines project data operations
type ProjectRepository interface {
	CreateProject(p *domain.Project) error
	GetProjectByID(id string) (*domain.Project, error)
	GetProjectByToken(token string) (*domain.Project, error)
	GetProjectsByUser(telegramID int64) ([]domain.Project, error)
	ProjectNameExists(telegramID int64, name string) (bool, error)
	RenameProject(id, name string) error
	UpdateToken(id, token string) error
	UpdateBusinessInfo(id, businessInfo string) error
	AppendBusinessInfo(id, extra string) error
	UpdateDesign(id string, design domain.Design) error
	DeleteProject(id string) error
	DeleteProjectsByUser(telegramID int64) error
}

// FormRepository defines form schema and submission operations
type FormRepository interface {
	CreateForm(projectID, name, purpose string, fields []domain.FormFieldDraft) (string, error)
	GetProjectForm(projectID string) (*domain.Form, error)
	GetFormByID(id string) (*domain.Form, error)
	DeleteForm(id string) error
	SaveSubmission(formID string, telegramID int64, data map[string]string) error
	HasSubmission(formID string, telegramID int64) (bool, error)
	GetSubmissions(formID string) ([]domain.FormSubmission, error)
}

// BillingRepository defines payment and feedback bookkeeping
type BillingRepository interface {
	AddPayment(telegramID int64, amount int, status string) error
	ConfirmPayment(telegramID int64) error
	GetPayments() ([]domain.Payment, error)
	AddFeedback(telegramID int64, rating int, text string) error
	GetFeedbacks() ([]domain.Feedback, error)
	AddResponseRating(projectID string, telegramID int64, positive bool) error
}

// StatsRepository defines message statistics used by the /stats endpoint
type StatsRepository interface {
	LogMessage(stat *domain.MessageStat) error
	TotalUsers() (int, error)
	NewUsersSince(since time.Time) (int, error)
	ActiveUsersSince(since time.Time) (int, error)
	TotalMessages() (int, error)
	AverageResponseTime() (float64, error)
	PaidUsers() (int, error)
	ConfirmedRevenue() (int, error)
}
