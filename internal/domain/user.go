package domain

import "time"

// User represents a settings-bot user (a tenant who owns projects)
type User struct {
	TelegramID int64
	StartDate  time.Time
	Paid       bool
	ReferrerID *int64
}

// TrialExpired reports whether the user's trial period has run out
func (u *User) TrialExpired(trialDays int, now time.Time) bool {
	if u.Paid {
		return false
	}
	return now.Sub(u.StartDate) >= time.Duration(trialDays)*24*time.Hour
}

// Payment represents one recorded payment
type Payment struct {
	ID         int64
	TelegramID int64
	Amount     int
	Status     string
	PaidAt     time.Time
}

// Payment statuses
const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
)

// Feedback is a service review left through the settings bot
type Feedback struct {
	ID         int64
	TelegramID int64
	Rating     int
	Text       string
	CreatedAt  time.Time
}

// ResponseRating is an end-user thumbs up/down on a project bot answer
type ResponseRating struct {
	ID         int64
	ProjectID  string
	TelegramID int64
	Positive   bool
	CreatedAt  time.Time
}

// MessageStat is one processed inbound message, kept for the /stats endpoint
type MessageStat struct {
	ID           int64
	TelegramID   int64
	ProjectID    string
	IsCommand    bool
	ResponseTime float64
	Theme        string
	IsTrial      bool
	IsPaid       bool
	CreatedAt    time.Time
}
