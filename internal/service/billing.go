package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"multibot/internal/config"
	"multibot/internal/domain"
	"multibot/internal/repository"
)

// BillingService tracks trials, payments, referrals and feedback
type BillingService struct {
	users   repository.UserRepository
	billing repository.BillingRepository
	cfg     config.Billing
}

// NewBillingService creates a billing service
func NewBillingService(users repository.UserRepository, billing repository.BillingRepository, cfg config.Billing) *BillingService {
	return &BillingService{users: users, billing: billing, cfg: cfg}
}

// RegisterUser records a first contact with the settings bot. startParam
// is the /start payload; a "ref<id>" value credits the referrer.
func (s *BillingService) RegisterUser(telegramID int64, startParam string) (*domain.User, error) {
	user, err := s.users.GetUser(telegramID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	referrerID := parseReferral(startParam)
	if referrerID != nil && *referrerID == telegramID {
		referrerID = nil
	}

	if err := s.users.CreateUser(telegramID, referrerID); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.users.GetUser(telegramID)
}

// TrialExpired reports whether the user's access has run out
func (s *BillingService) TrialExpired(user *domain.User) bool {
	return user.TrialExpired(s.cfg.TrialDays, time.Now())
}

// TrialDaysLeft returns the whole days remaining in the trial, never
// negative
func (s *BillingService) TrialDaysLeft(user *domain.User) int {
	if user.Paid {
		return 0
	}
	end := user.StartDate.AddDate(0, 0, s.cfg.TrialDays)
	left := int(time.Until(end).Hours() / 24)
	if left < 0 {
		return 0
	}
	return left
}

// CanCreateProject checks the user's plan limit against their current
// project count
func (s *BillingService) CanCreateProject(user *domain.User, currentCount int) error {
	limit := s.cfg.TrialProjectLimit
	if user.Paid {
		limit = s.cfg.PaidProjectLimit
	}
	if currentCount >= limit {
		return ErrProjectLimitReached
	}
	return nil
}

// RecordPaymentClaim stores a pending payment awaiting admin confirmation
func (s *BillingService) RecordPaymentClaim(telegramID int64) error {
	return s.billing.AddPayment(telegramID, s.cfg.PaymentAmount, domain.PaymentPending)
}

// ConfirmPayment marks the latest pending payment confirmed and upgrades
// the user to the paid plan
func (s *BillingService) ConfirmPayment(telegramID int64) error {
	if err := s.billing.ConfirmPayment(telegramID); err != nil {
		return fmt.Errorf("confirm payment: %w", err)
	}
	return s.users.SetPaid(telegramID, true)
}

// PaymentDetails returns the amount and the card number to show the user
func (s *BillingService) PaymentDetails() (int, string) {
	return s.cfg.PaymentAmount, s.cfg.PaymentCard
}

// CountReferrals returns how many users came through this user's link
func (s *BillingService) CountReferrals(telegramID int64) (int, error) {
	return s.users.CountReferrals(telegramID)
}

// AddFeedback stores a service review
func (s *BillingService) AddFeedback(telegramID int64, rating int, text string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5")
	}
	return s.billing.AddFeedback(telegramID, rating, text)
}

// GetFeedbacks lists all reviews, newest first
func (s *BillingService) GetFeedbacks() ([]domain.Feedback, error) {
	return s.billing.GetFeedbacks()
}

// RateAnswer stores a customer's thumbs up or down on a bot answer
func (s *BillingService) RateAnswer(projectID string, telegramID int64, positive bool) error {
	return s.billing.AddResponseRating(projectID, telegramID, positive)
}

// GetUser loads a user record
func (s *BillingService) GetUser(telegramID int64) (*domain.User, error) {
	return s.users.GetUser(telegramID)
}

// parseReferral extracts the referrer's Telegram ID from a "ref<id>"
// start parameter
func parseReferral(startParam string) *int64 {
	startParam = strings.TrimSpace(startParam)
	if !strings.HasPrefix(startParam, "ref") {
		return nil
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(startParam, "ref"), 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}
