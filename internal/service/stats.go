package service

import (
	"fmt"
	"time"

	"multibot/internal/repository"
)

// PlatformStats is the aggregate reported by the stats endpoint
type PlatformStats struct {
	TotalUsers          int     `json:"total_users"`
	NewUsersToday       int     `json:"new_users_today"`
	NewUsersWeek        int     `json:"new_users_week"`
	ActiveUsersToday    int     `json:"active_users_today"`
	TotalMessages       int     `json:"total_messages"`
	AverageResponseTime float64 `json:"average_response_time"`
	PaidUsers           int     `json:"paid_users"`
	Conversion          float64 `json:"conversion"`
	Revenue             int     `json:"revenue"`
	ARPU                float64 `json:"arpu"`
}

// StatsService aggregates platform usage numbers
type StatsService struct {
	stats repository.StatsRepository
}

// NewStatsService creates a stats service
func NewStatsService(stats repository.StatsRepository) *StatsService {
	return &StatsService{stats: stats}
}

// Collect gathers the current platform statistics
func (s *StatsService) Collect() (*PlatformStats, error) {
	now := time.Now()
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	result := &PlatformStats{}
	var err error

	if result.TotalUsers, err = s.stats.TotalUsers(); err != nil {
		return nil, fmt.Errorf("total users: %w", err)
	}
	if result.NewUsersToday, err = s.stats.NewUsersSince(dayAgo); err != nil {
		return nil, fmt.Errorf("new users today: %w", err)
	}
	if result.NewUsersWeek, err = s.stats.NewUsersSince(weekAgo); err != nil {
		return nil, fmt.Errorf("new users week: %w", err)
	}
	if result.ActiveUsersToday, err = s.stats.ActiveUsersSince(dayAgo); err != nil {
		return nil, fmt.Errorf("active users: %w", err)
	}
	if result.TotalMessages, err = s.stats.TotalMessages(); err != nil {
		return nil, fmt.Errorf("total messages: %w", err)
	}
	if result.AverageResponseTime, err = s.stats.AverageResponseTime(); err != nil {
		return nil, fmt.Errorf("average response time: %w", err)
	}
	if result.PaidUsers, err = s.stats.PaidUsers(); err != nil {
		return nil, fmt.Errorf("paid users: %w", err)
	}
	if result.Revenue, err = s.stats.ConfirmedRevenue(); err != nil {
		return nil, fmt.Errorf("revenue: %w", err)
	}

	if result.TotalUsers > 0 {
		result.Conversion = float64(result.PaidUsers) / float64(result.TotalUsers)
		result.ARPU = float64(result.Revenue) / float64(result.TotalUsers)
	}
	return result, nil
}
