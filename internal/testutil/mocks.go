package testutil

import (
	"time"

	"github.com/stretchr/testify/mock"

	"multibot/internal/domain"
)

// MockUserRepository is a mock for UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(telegramID int64, referrerID *int64) error {
	args := m.Called(telegramID, referrerID)
	return args.Error(0)
}

func (m *MockUserRepository) GetUser(telegramID int64) (*domain.User, error) {
	args := m.Called(telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) SetReferrer(telegramID, referrerID int64) error {
	args := m.Called(telegramID, referrerID)
	return args.Error(0)
}

func (m *MockUserRepository) SetPaid(telegramID int64, paid bool) error {
	args := m.Called(telegramID, paid)
	return args.Error(0)
}

func (m *MockUserRepository) SetTrialNotified(telegramID int64, notified bool) error {
	args := m.Called(telegramID, notified)
	return args.Error(0)
}

func (m *MockUserRepository) CountReferrals(referrerID int64) (int, error) {
	args := m.Called(referrerID)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) GetUsersWithExpiredTrial(trialDays int) ([]domain.User, error) {
	args := m.Called(trialDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) GetUsersWithExpiredPaidMonth() ([]domain.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

// MockProjectRepository is a mock for ProjectRepository
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) CreateProject(p *domain.Project) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *MockProjectRepository) GetProjectByID(id string) (*domain.Project, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectRepository) GetProjectByToken(token string) (*domain.Project, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectRepository) GetProjectsByUser(telegramID int64) ([]domain.Project, error) {
	args := m.Called(telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Project), args.Error(1)
}

func (m *MockProjectRepository) ProjectNameExists(telegramID int64, name string) (bool, error) {
	args := m.Called(telegramID, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockProjectRepository) RenameProject(id, name string) error {
	args := m.Called(id, name)
	return args.Error(0)
}

func (m *MockProjectRepository) UpdateToken(id, token string) error {
	args := m.Called(id, token)
	return args.Error(0)
}

func (m *MockProjectRepository) UpdateBusinessInfo(id, businessInfo string) error {
	args := m.Called(id, businessInfo)
	return args.Error(0)
}

func (m *MockProjectRepository) AppendBusinessInfo(id, extra string) error {
	args := m.Called(id, extra)
	return args.Error(0)
}

func (m *MockProjectRepository) UpdateDesign(id string, design domain.Design) error {
	args := m.Called(id, design)
	return args.Error(0)
}

func (m *MockProjectRepository) DeleteProject(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockProjectRepository) DeleteProjectsByUser(telegramID int64) error {
	args := m.Called(telegramID)
	return args.Error(0)
}

// MockFormRepository is a mock for FormRepository
type MockFormRepository struct {
	mock.Mock
}

func (m *MockFormRepository) CreateForm(projectID, name, purpose string, fields []domain.FormFieldDraft) (string, error) {
	args := m.Called(projectID, name, purpose, fields)
	return args.String(0), args.Error(1)
}

func (m *MockFormRepository) GetProjectForm(projectID string) (*domain.Form, error) {
	args := m.Called(projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Form), args.Error(1)
}

func (m *MockFormRepository) GetFormByID(id string) (*domain.Form, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Form), args.Error(1)
}

func (m *MockFormRepository) DeleteForm(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockFormRepository) SaveSubmission(formID string, telegramID int64, data map[string]string) error {
	args := m.Called(formID, telegramID, data)
	return args.Error(0)
}

func (m *MockFormRepository) HasSubmission(formID string, telegramID int64) (bool, error) {
	args := m.Called(formID, telegramID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFormRepository) GetSubmissions(formID string) ([]domain.FormSubmission, error) {
	args := m.Called(formID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FormSubmission), args.Error(1)
}

// MockBillingRepository is a mock for BillingRepository
type MockBillingRepository struct {
	mock.Mock
}

func (m *MockBillingRepository) AddPayment(telegramID int64, amount int, status string) error {
	args := m.Called(telegramID, amount, status)
	return args.Error(0)
}

func (m *MockBillingRepository) ConfirmPayment(telegramID int64) error {
	args := m.Called(telegramID)
	return args.Error(0)
}

func (m *MockBillingRepository) GetPayments() ([]domain.Payment, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Payment), args.Error(1)
}

func (m *MockBillingRepository) AddFeedback(telegramID int64, rating int, text string) error {
	args := m.Called(telegramID, rating, text)
	return args.Error(0)
}

func (m *MockBillingRepository) GetFeedbacks() ([]domain.Feedback, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Feedback), args.Error(1)
}

func (m *MockBillingRepository) AddResponseRating(projectID string, telegramID int64, positive bool) error {
	args := m.Called(projectID, telegramID, positive)
	return args.Error(0)
}

// MockStatsRepository is a mock for StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) LogMessage(stat *domain.MessageStat) error {
	args := m.Called(stat)
	return args.Error(0)
}

func (m *MockStatsRepository) TotalUsers() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepository) NewUsersSince(since time.Time) (int, error) {
	args := m.Called(since)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepository) ActiveUsersSince(since time.Time) (int, error) {
	args := m.Called(since)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepository) TotalMessages() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepository) AverageResponseTime() (float64, error) {
	args := m.Called()
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockStatsRepository) PaidUsers() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepository) ConfirmedRevenue() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}
