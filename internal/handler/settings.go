// Package handler contains the Telegram-facing logic of both bots: the
// settings bot business owners talk to and the per-project bots their
// customers talk to.
package handler

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"multibot/internal/analytics"
	"multibot/internal/botkit"
	"multibot/internal/domain"
	"multibot/internal/service"
)

const errorReply = "Произошла ошибка. Попробуйте позже."

// SettingsHandler drives the settings bot conversations
type SettingsHandler struct {
	bot      *tele.Bot
	states   *botkit.StateStore
	billing  *service.BillingService
	projects *service.ProjectService
	forms    *service.FormService
	tracker  *analytics.Tracker
	logger   *zap.Logger
	adminID  int64
}

// NewSettingsHandler creates the settings bot handler
func NewSettingsHandler(
	bot *tele.Bot,
	states *botkit.StateStore,
	billing *service.BillingService,
	projects *service.ProjectService,
	forms *service.FormService,
	tracker *analytics.Tracker,
	logger *zap.Logger,
	adminID int64,
) *SettingsHandler {
	return &SettingsHandler{
		bot:      bot,
		states:   states,
		billing:  billing,
		projects: projects,
		forms:    forms,
		tracker:  tracker,
		logger:   logger,
		adminID:  adminID,
	}
}

// Register wires every settings bot route into the router
func (h *SettingsHandler) Register(r *botkit.Router) {
	r.Command("/start", h.handleStart)
	r.Command("/menu", h.handleMenu)
	r.Command("/help", h.handleHelp)

	r.Callback("back_main", h.handleMenu)
	r.Callback("menu_create", h.handleCreateProject)
	r.Callback("menu_projects", h.handleProjectList)
	r.Callback("menu_referral", h.handleReferral)
	r.Callback("menu_help", h.handleHelp)

	h.registerProjectFlow(r)
	h.registerFormBuilder(r)
	h.registerDesignFlow(r)
	h.registerBillingFlow(r)

	// plain text while idle: nudge back to the menu
	r.Fallback(func(c tele.Context) error {
		return c.Send("Выберите действие в меню 👇", mainMenu())
	})
}

func (h *SettingsHandler) handleStart(c tele.Context) error {
	userID := c.Sender().ID

	h.logger.Info("settings bot started",
		zap.Int64("user_id", userID),
		zap.String("username", c.Sender().Username),
	)

	user, err := h.billing.RegisterUser(userID, c.Message().Payload)
	if err != nil {
		h.logger.Error("user registration failed", zap.Error(err))
		return c.Send(errorReply)
	}

	h.tracker.Track(analytics.Event{
		Event:      "start",
		TelegramID: userID,
		Username:   c.Sender().Username,
	})

	greeting := "👋 Привет! Я помогу создать бота-помощника для вашего бизнеса.\n\n" +
		"Бот будет отвечать клиентам на вопросы о вашем деле: график, цены, услуги.\n\n"

	if !user.Paid {
		if h.billing.TrialExpired(user) {
			greeting += "⚠️ Ваш пробный период закончился. Оплатите подписку, чтобы продолжить."
		} else {
			greeting += fmt.Sprintf("🎁 Пробный период: осталось %d дн.", h.billing.TrialDaysLeft(user))
		}
	}

	return c.Send(greeting, mainMenu())
}

func (h *SettingsHandler) handleMenu(c tele.Context) error {
	h.states.Clear(c.Sender().ID)

	if c.Callback() != nil {
		c.Respond()
		return c.Edit("🏠 Главное меню\n\nВыберите действие:", mainMenu())
	}
	return c.Send("🏠 Главное меню\n\nВыберите действие:", mainMenu())
}

func (h *SettingsHandler) handleHelp(c tele.Context) error {
	text := "ℹ️ Как это работает:\n\n" +
		"1️⃣ Создайте бота у @BotFather и пришлите мне его токен\n" +
		"2️⃣ Расскажите о вашем бизнесе текстом или файлом (txt, docx, pdf)\n" +
		"3️⃣ Бот начнёт отвечать клиентам от вашего имени\n\n" +
		"В разделе «Мои проекты» можно настроить форму заявки, оформление и данные."

	if c.Callback() != nil {
		c.Respond()
		return c.Edit(text, backMenu())
	}
	return c.Send(text, backMenu())
}

func (h *SettingsHandler) handleReferral(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	count, err := h.billing.CountReferrals(userID)
	if err != nil {
		h.logger.Error("referral count failed", zap.Error(err))
		return c.Send(errorReply)
	}

	text := fmt.Sprintf("🤝 Приглашено друзей: %d\n\n", count)
	if h.bot.Me != nil {
		text += fmt.Sprintf("Ваша ссылка:\nhttps://t.me/%s?start=ref%d", h.bot.Me.Username, userID)
	}

	return c.Edit(text, backMenu())
}

// notifyAdmin sends a service message to the platform admin chat
func (h *SettingsHandler) notifyAdmin(text string, markup *tele.ReplyMarkup) {
	if h.adminID == 0 {
		return
	}
	chat := &tele.Chat{ID: h.adminID}
	var err error
	if markup != nil {
		_, err = h.bot.Send(chat, text, markup)
	} else {
		_, err = h.bot.Send(chat, text)
	}
	if err != nil {
		h.logger.Warn("admin notification failed", zap.Error(err))
	}
}

// callbackArg returns the payload after the button unique, e.g.
// "sel_project|p-1" -> "p-1"
func callbackArg(c tele.Context) string {
	data := botkit.CallbackData(c.Callback())
	if i := strings.Index(data, "|"); i >= 0 {
		return data[i+1:]
	}
	return ""
}

func mainMenu() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(menu.Data("➕ Создать проект", "menu_create")),
		menu.Row(menu.Data("📁 Мои проекты", "menu_projects")),
		menu.Row(menu.Data("💳 Оплата", "menu_pay"), menu.Data("⭐ Отзыв", "menu_feedback")),
		menu.Row(menu.Data("🤝 Пригласить друга", "menu_referral")),
		menu.Row(menu.Data("ℹ️ Помощь", "menu_help")),
	)
	return menu
}

func backMenu() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(menu.Data("🏠 В меню", "back_main")))
	return menu
}

func selectedProject(h *SettingsHandler, c tele.Context) (*domain.Project, error) {
	sess := h.states.Get(c.Sender().ID)
	if sess.Data.SelectedProjectID == "" {
		return nil, fmt.Errorf("no project selected")
	}
	project, err := h.projects.Get(sess.Data.SelectedProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, service.ErrProjectNotFound
	}
	return project, nil
}
