package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"multibot/internal/analytics"
	"multibot/internal/botkit"
	"multibot/internal/domain"
	"multibot/internal/service"
)

// AskHandler drives one project bot: answering customer questions and
// collecting form submissions. The project is reloaded per message so
// settings changes apply without restarting the runtime.
type AskHandler struct {
	projectID string
	states    *botkit.StateStore
	projects  *service.ProjectService
	answers   *service.AnswerService
	forms     *service.FormService
	billing   *service.BillingService
	tracker   *analytics.Tracker
	logger    *zap.Logger
}

// NewAskHandler creates the handler of one project bot
func NewAskHandler(
	projectID string,
	states *botkit.StateStore,
	projects *service.ProjectService,
	answers *service.AnswerService,
	forms *service.FormService,
	billing *service.BillingService,
	tracker *analytics.Tracker,
	logger *zap.Logger,
) *AskHandler {
	return &AskHandler{
		projectID: projectID,
		states:    states,
		projects:  projects,
		answers:   answers,
		forms:     forms,
		billing:   billing,
		tracker:   tracker,
		logger:    logger,
	}
}

// Register wires the project bot routes
func (h *AskHandler) Register(r *botkit.Router) {
	r.Command("/start", h.handleStart)

	r.Callback("form_start", h.handleFormStart)
	r.Callback("form_cancel", h.handleFormCancel)
	r.CallbackPrefix("rate_up|", h.handleRate(true))
	r.CallbackPrefix("rate_down|", h.handleRate(false))

	r.State(domain.StateFillingForm, h.stateFillingForm)
	r.Fallback(h.handleQuestion)
}

func (h *AskHandler) handleStart(c tele.Context) error {
	project, err := h.projects.Get(h.projectID)
	if err != nil || project == nil {
		h.logger.Error("project load failed", zap.String("project_id", h.projectID), zap.Error(err))
		return c.Send("Бот временно недоступен.")
	}

	welcome := project.Design.WelcomeText
	if welcome == "" {
		welcome = project.WelcomeMessage
	}
	if welcome == "" {
		name := project.Design.BotName
		if name == "" {
			name = project.Name
		}
		welcome = fmt.Sprintf("👋 Здравствуйте! Я помощник «%s». Задайте любой вопрос о нашей работе.", name)
	}

	h.answers.LogCommand(project, c.Sender().ID)

	if project.Design.WelcomeImage != "" {
		photo := &tele.Photo{File: tele.File{FileID: project.Design.WelcomeImage}, Caption: welcome}
		return c.Send(photo)
	}
	return c.Send(welcome)
}

// handleQuestion answers a free-form customer message
func (h *AskHandler) handleQuestion(c tele.Context) error {
	userID := c.Sender().ID
	question := strings.TrimSpace(c.Text())
	if question == "" {
		return c.Send("Напишите вопрос текстом, пожалуйста.")
	}

	project, err := h.projects.Get(h.projectID)
	if err != nil || project == nil {
		h.logger.Error("project load failed", zap.String("project_id", h.projectID), zap.Error(err))
		return c.Send("Бот временно недоступен.")
	}

	c.Notify(tele.Typing)

	answer, err := h.answers.Answer(context.Background(), project, userID, question)
	if err != nil {
		h.logger.Error("answer generation failed",
			zap.String("project_id", h.projectID), zap.Error(err))
		return c.Send("Не получилось ответить, попробуйте переформулировать вопрос.")
	}

	h.tracker.Track(analytics.Event{
		Event:      "question_asked",
		TelegramID: userID,
		ProjectID:  h.projectID,
	})

	markup := h.answerMarkup(userID, question)
	return c.Send(answer, markup)
}

// answerMarkup builds the rating row, plus a form offer when the project
// has a form the customer has not submitted yet
func (h *AskHandler) answerMarkup(userID int64, question string) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	rows := []tele.Row{
		menu.Row(
			menu.Data("👍", "rate_up", h.projectID),
			menu.Data("👎", "rate_down", h.projectID),
		),
	}

	if form := h.offerableForm(userID); form != nil {
		fill, err := h.forms.StartFill(form, question)
		if err == nil {
			h.states.Update(userID, func(d *domain.ConvData) {
				d.FormFill = fill
			})
			label := "📋 Оставить заявку"
			if form.Purpose != "" {
				label = "📋 " + form.Purpose
			}
			rows = append(rows, menu.Row(menu.Data(label, "form_start")))
		}
	}

	menu.Inline(rows...)
	return menu
}

func (h *AskHandler) offerableForm(userID int64) *domain.Form {
	form, err := h.forms.GetProjectForm(h.projectID)
	if err != nil || form == nil {
		return nil
	}
	ok, err := h.forms.CanSubmit(form.ID, userID)
	if err != nil || !ok {
		return nil
	}
	return form
}

func (h *AskHandler) handleFormStart(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	sess := h.states.Get(userID)
	fill := sess.Data.FormFill
	if fill == nil {
		return nil
	}

	if next := fill.NextField(); next != nil {
		h.states.SetState(userID, domain.StateFillingForm)
		return c.Send(fieldPrompt(next), cancelFormMenu())
	}

	// everything was extracted from the question already
	return h.completeFill(c, userID, fill)
}

func (h *AskHandler) stateFillingForm(c tele.Context) error {
	userID := c.Sender().ID

	sess := h.states.Get(userID)
	fill := sess.Data.FormFill
	if fill == nil {
		h.states.Clear(userID)
		return c.Send("Заполнение прервано. Задайте вопрос или начните заново.")
	}

	field := fill.NextField()
	if field == nil {
		return h.completeFill(c, userID, fill)
	}

	if err := h.forms.AcceptValue(fill, field, c.Text()); err != nil {
		return c.Send(fmt.Sprintf("❗ %s\n\n%s", err.Error(), fieldPrompt(field)), cancelFormMenu())
	}

	h.states.Update(userID, func(d *domain.ConvData) {
		d.FormFill = fill
	})

	if next := fill.NextField(); next != nil {
		return c.Send(fieldPrompt(next), cancelFormMenu())
	}
	return h.completeFill(c, userID, fill)
}

func (h *AskHandler) completeFill(c tele.Context, userID int64, fill *domain.FormFill) error {
	err := h.forms.Submit(fill, userID)
	h.states.Clear(userID)

	if errors.Is(err, service.ErrAlreadySubmitted) {
		return c.Send("Вы уже оставляли заявку, мы скоро свяжемся с вами.")
	}
	if err != nil {
		h.logger.Error("form submission failed",
			zap.String("project_id", h.projectID), zap.Error(err))
		return c.Send("Не удалось сохранить заявку, попробуйте позже.")
	}

	h.tracker.Track(analytics.Event{
		Event:      "form_submitted",
		TelegramID: userID,
		ProjectID:  h.projectID,
	})
	return c.Send("✅ Заявка принята! Мы свяжемся с вами в ближайшее время.")
}

func (h *AskHandler) handleFormCancel(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	h.states.Clear(userID)
	return c.Send("Хорошо, заявку отменили. Задавайте вопросы, если что-то ещё интересует.")
}

func (h *AskHandler) handleRate(positive bool) botkit.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Sender().ID

		if err := h.billing.RateAnswer(h.projectID, userID, positive); err != nil {
			h.logger.Warn("answer rating failed",
				zap.String("project_id", h.projectID), zap.Error(err))
		}

		h.tracker.Track(analytics.Event{
			Event:      "response_rated",
			TelegramID: userID,
			ProjectID:  h.projectID,
			Detail:     fmt.Sprintf("positive=%t", positive),
		})

		return c.Respond(&tele.CallbackResponse{Text: "Спасибо за оценку!"})
	}
}

func fieldPrompt(field *domain.FormField) string {
	switch field.Type {
	case domain.FieldPhone:
		return fmt.Sprintf("📞 Укажите поле «%s» — номер телефона:", field.Name)
	case domain.FieldEmail:
		return fmt.Sprintf("📧 Укажите поле «%s» — электронную почту:", field.Name)
	case domain.FieldDate:
		return fmt.Sprintf("📅 Укажите поле «%s» — дату, например 12.05.2026:", field.Name)
	case domain.FieldNumber:
		return fmt.Sprintf("🔢 Укажите поле «%s» — числом:", field.Name)
	default:
		return fmt.Sprintf("✍️ Укажите поле «%s»:", field.Name)
	}
}

func cancelFormMenu() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(menu.Data("Отмена", "form_cancel")))
	return menu
}
