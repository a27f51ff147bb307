// Package scheduler runs the periodic billing sweeps: suspending
// expired trials and flagging paid subscriptions that ran out.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"multibot/internal/repository"
	"multibot/internal/service"
)

// notifier sends service messages to users through the settings bot
type notifier interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Scheduler sweeps expired subscriptions on a fixed interval
type Scheduler struct {
	users     repository.UserRepository
	projects  *service.ProjectService
	bot       notifier
	interval  time.Duration
	trialDays int
	logger    *zap.Logger

	// guards against a sweep starting while the previous one still runs
	running sync.Mutex
}

// New creates a scheduler
func New(
	users repository.UserRepository,
	projects *service.ProjectService,
	bot notifier,
	interval time.Duration,
	trialDays int,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		users:     users,
		projects:  projects,
		bot:       bot,
		interval:  interval,
		trialDays: trialDays,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled, sweeping every interval
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs both checks once. If the previous sweep is still running,
// this one is skipped instead of piling up.
func (s *Scheduler) Sweep(ctx context.Context) {
	if !s.running.TryLock() {
		s.logger.Warn("previous sweep still running, skipping")
		return
	}
	defer s.running.Unlock()

	s.sweepExpiredTrials(ctx)
	s.sweepExpiredPaid(ctx)
}

// sweepExpiredTrials suspends the bots of users whose trial ran out:
// webhooks are removed and runtimes evicted, while the projects and their
// knowledge stay untouched. Each user is notified once; the notified flag
// keeps handled users out of the next query.
func (s *Scheduler) sweepExpiredTrials(ctx context.Context) {
	users, err := s.users.GetUsersWithExpiredTrial(s.trialDays)
	if err != nil {
		s.logger.Error("expired trial query failed", zap.Error(err))
		return
	}

	for _, user := range users {
		suspended, err := s.projects.SuspendAllForUser(ctx, user.TelegramID)
		if err != nil {
			s.logger.Error("trial suspension failed",
				zap.Int64("user_id", user.TelegramID), zap.Error(err))
			continue
		}

		if err := s.users.SetTrialNotified(user.TelegramID, true); err != nil {
			s.logger.Error("trial flag update failed",
				zap.Int64("user_id", user.TelegramID), zap.Error(err))
			continue
		}

		if suspended == 0 {
			continue
		}

		s.notify(user.TelegramID,
			"⏰ Пробный период закончился, и ваши боты остановлены.\n\n"+
				"Оплатите подписку, чтобы продолжить — все данные сохранены.",
			trialExpiredMenu())

		s.logger.Info("trial expired, projects suspended",
			zap.Int64("user_id", user.TelegramID),
			zap.Int("projects", suspended))
	}
}

// sweepExpiredPaid downgrades users whose paid month ran out. Their bots
// keep working until the trial sweep picks them up on the next pass.
func (s *Scheduler) sweepExpiredPaid(ctx context.Context) {
	users, err := s.users.GetUsersWithExpiredPaidMonth()
	if err != nil {
		s.logger.Error("expired paid query failed", zap.Error(err))
		return
	}

	for _, user := range users {
		if err := s.users.SetPaid(user.TelegramID, false); err != nil {
			s.logger.Error("paid downgrade failed",
				zap.Int64("user_id", user.TelegramID), zap.Error(err))
			continue
		}

		s.notify(user.TelegramID,
			"⏰ Оплаченный месяц закончился.\n\n"+
				"Продлите подписку, иначе боты будут остановлены.",
			payButton())

		s.logger.Info("paid month expired", zap.Int64("user_id", user.TelegramID))
	}
}

func (s *Scheduler) notify(telegramID int64, text string, markup *tele.ReplyMarkup) {
	if _, err := s.bot.Send(&tele.Chat{ID: telegramID}, text, markup); err != nil {
		s.logger.Warn("user notification failed",
			zap.Int64("user_id", telegramID), zap.Error(err))
	}
}

func payButton() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(menu.Data("💳 Оплатить", "menu_pay")))
	return menu
}

func trialExpiredMenu() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(menu.Data("💳 Оплатить", "menu_pay")),
		menu.Row(menu.Data("🗑 Удалить проекты", "delete_all_ask")),
	)
	return menu
}
