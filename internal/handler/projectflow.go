package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"multibot/internal/analytics"
	"multibot/internal/botkit"
	"multibot/internal/domain"
	"multibot/internal/service"
)

var tokenRe = regexp.MustCompile(`^\d+:[A-Za-z0-9_\-]+$`)

func (h *SettingsHandler) registerProjectFlow(r *botkit.Router) {
	r.State(domain.StateWaitingProjectName, h.stateProjectName)
	r.State(domain.StateWaitingToken, h.stateToken)
	r.State(domain.StateWaitingBusinessData, h.stateBusinessData)
	r.State(domain.StateWaitingNewProjectName, h.stateNewProjectName)
	r.State(domain.StateWaitingNewToken, h.stateNewToken)
	r.State(domain.StateWaitingAdditionalData, h.stateAdditionalData)
	r.State(domain.StateWaitingNewData, h.stateNewData)

	r.CallbackPrefix("sel_project|", h.handleSelectProject)
	r.CallbackPrefix("prj_show|", h.handleShowData)
	r.CallbackPrefix("prj_rename|", h.handleRenameStart)
	r.CallbackPrefix("prj_token|", h.handleTokenStart)
	r.CallbackPrefix("prj_add_data|", h.handleAddDataStart)
	r.CallbackPrefix("prj_new_data|", h.handleNewDataStart)
	r.CallbackPrefix("prj_delete_yes|", h.handleDeleteConfirm)
	r.CallbackPrefix("prj_delete|", h.handleDeleteAsk)
}

// handleCreateProject starts the creation flow after the plan checks pass
func (h *SettingsHandler) handleCreateProject(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	user, err := h.billing.GetUser(userID)
	if err != nil || user == nil {
		h.logger.Error("user lookup failed", zap.Error(err))
		return c.Send(errorReply)
	}

	if h.billing.TrialExpired(user) {
		return c.Send("⚠️ Пробный период закончился. Оплатите подписку, чтобы создавать проекты.", payMenu())
	}

	existing, err := h.projects.List(userID)
	if err != nil {
		h.logger.Error("project list failed", zap.Error(err))
		return c.Send(errorReply)
	}
	if err := h.billing.CanCreateProject(user, len(existing)); err != nil {
		if user.Paid {
			return c.Send("⚠️ Достигнут лимит проектов на вашем тарифе.", backMenu())
		}
		return c.Send("⚠️ На пробном тарифе доступен один проект. Оплатите подписку, чтобы создать больше.", payMenu())
	}

	h.states.SetState(userID, domain.StateWaitingProjectName)
	h.states.Update(userID, func(d *domain.ConvData) {
		d.ProjectDraft = &domain.ProjectDraft{}
	})
	return c.Send("📝 Как назовём проект? Например: «Кофейня на Лесной».")
}

func (h *SettingsHandler) stateProjectName(c tele.Context) error {
	userID := c.Sender().ID
	name := strings.TrimSpace(c.Text())

	if name == "" {
		return c.Send("Название не может быть пустым. Попробуйте ещё раз.")
	}

	h.states.Update(userID, func(d *domain.ConvData) {
		if d.ProjectDraft == nil {
			d.ProjectDraft = &domain.ProjectDraft{}
		}
		d.ProjectDraft.Name = name
	})
	h.states.SetState(userID, domain.StateWaitingToken)

	return c.Send("🔑 Теперь пришлите токен бота.\n\n" +
		"Создайте бота у @BotFather командой /newbot и скопируйте токен сюда.")
}

func (h *SettingsHandler) stateToken(c tele.Context) error {
	userID := c.Sender().ID
	token := strings.TrimSpace(c.Text())

	if !tokenRe.MatchString(token) {
		return c.Send("Это не похоже на токен. Токен выглядит так: 123456789:AAF0abc...\nПопробуйте ещё раз.")
	}

	h.states.Update(userID, func(d *domain.ConvData) {
		if d.ProjectDraft == nil {
			d.ProjectDraft = &domain.ProjectDraft{}
		}
		d.ProjectDraft.Token = token
	})
	h.states.SetState(userID, domain.StateWaitingBusinessData)

	return c.Send("📚 Расскажите о вашем бизнесе: услуги, цены, адрес, график.\n\n" +
		"Можно текстом или файлом (txt, docx, pdf).")
}

func (h *SettingsHandler) stateBusinessData(c tele.Context) error {
	userID := c.Sender().ID

	text, err := h.incomingText(c)
	if err != nil {
		return c.Send(err.Error())
	}

	sess := h.states.Get(userID)
	draft := sess.Data.ProjectDraft
	if draft == nil || draft.Name == "" || draft.Token == "" {
		h.states.Clear(userID)
		return c.Send("Что-то пошло не так, начните заново.", mainMenu())
	}

	c.Send("⏳ Создаю проект, это займёт до минуты...")

	project, err := h.projects.Create(context.Background(), userID, draft.Name, draft.Token, text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProjectNameTaken):
			return c.Send("У вас уже есть проект с таким названием. Пришлите другое название.")
		case errors.Is(err, service.ErrTokenInUse):
			return c.Send("Этот токен уже используется другим проектом. Пришлите другой токен.")
		default:
			h.logger.Error("project creation failed", zap.Error(err))
			return c.Send(errorReply)
		}
	}

	h.states.Clear(userID)
	h.tracker.Track(analytics.Event{
		Event:      "project_created",
		TelegramID: userID,
		ProjectID:  project.ID,
		Detail:     project.Name,
	})

	return c.Send(fmt.Sprintf("✅ Проект «%s» создан!\n\n"+
		"Бот уже отвечает вашим клиентам. Напишите ему что-нибудь, чтобы проверить.", project.Name), mainMenu())
}

func (h *SettingsHandler) handleProjectList(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	projects, err := h.projects.List(userID)
	if err != nil {
		h.logger.Error("project list failed", zap.Error(err))
		return c.Send(errorReply)
	}
	if len(projects) == 0 {
		return c.Edit("У вас пока нет проектов. Создайте первый!", mainMenu())
	}

	menu := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(projects)+1)
	for _, p := range projects {
		rows = append(rows, menu.Row(menu.Data("🤖 "+p.Name, "sel_project", p.ID)))
	}
	rows = append(rows, menu.Row(menu.Data("🏠 В меню", "back_main")))
	menu.Inline(rows...)

	return c.Edit("📁 Ваши проекты:", menu)
}

func (h *SettingsHandler) handleSelectProject(c tele.Context) error {
	userID := c.Sender().ID
	projectID := callbackArg(c)
	c.Respond()

	project, err := h.projects.Get(projectID)
	if err != nil {
		h.logger.Error("project lookup failed", zap.Error(err))
		return c.Send(errorReply)
	}
	if project == nil || project.TelegramID != userID {
		return c.Send("Проект не найден.", mainMenu())
	}

	h.states.Update(userID, func(d *domain.ConvData) {
		d.SelectedProjectID = project.ID
	})

	return c.Edit(fmt.Sprintf("🤖 Проект «%s»\n\nЧто настроим?", project.Name), projectMenu(project.ID))
}

// handleShowData sends back the knowledge the bot answers from, trimmed to
// one Telegram message
func (h *SettingsHandler) handleShowData(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	project, err := h.projects.Get(callbackArg(c))
	if err != nil {
		h.logger.Error("project lookup failed", zap.Error(err))
		return c.Send(errorReply)
	}
	if project == nil || project.TelegramID != userID {
		return c.Send("Проект не найден.", mainMenu())
	}

	info := project.BusinessInfo
	if info == "" {
		info = "(данных пока нет)"
	}
	const maxShown = 3500
	if runes := []rune(info); len(runes) > maxShown {
		info = string(runes[:maxShown]) + "…"
	}

	return c.Send(fmt.Sprintf("📄 Данные проекта «%s»:\n\n%s", project.Name, info),
		projectMenu(project.ID))
}

func (h *SettingsHandler) handleRenameStart(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	h.selectProject(userID, callbackArg(c))
	h.states.SetState(userID, domain.StateWaitingNewProjectName)
	return c.Send("📝 Пришлите новое название проекта.")
}

func (h *SettingsHandler) stateNewProjectName(c tele.Context) error {
	userID := c.Sender().ID
	name := strings.TrimSpace(c.Text())
	if name == "" {
		return c.Send("Название не может быть пустым. Попробуйте ещё раз.")
	}

	project, err := selectedProject(h, c)
	if err != nil {
		h.states.Clear(userID)
		return c.Send("Проект не найден.", mainMenu())
	}

	if err := h.projects.Rename(project.ID, userID, name); err != nil {
		if errors.Is(err, service.ErrProjectNameTaken) {
			return c.Send("У вас уже есть проект с таким названием. Пришлите другое.")
		}
		h.logger.Error("rename failed", zap.Error(err))
		return c.Send(errorReply)
	}

	h.states.SetState(userID, domain.StateIdle)
	return c.Send(fmt.Sprintf("✅ Проект переименован в «%s».", name), projectMenu(project.ID))
}

func (h *SettingsHandler) handleTokenStart(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	h.selectProject(userID, callbackArg(c))
	h.states.SetState(userID, domain.StateWaitingNewToken)
	return c.Send("🔑 Пришлите новый токен бота.")
}

func (h *SettingsHandler) stateNewToken(c tele.Context) error {
	userID := c.Sender().ID
	token := strings.TrimSpace(c.Text())
	if !tokenRe.MatchString(token) {
		return c.Send("Это не похоже на токен. Попробуйте ещё раз.")
	}

	project, err := selectedProject(h, c)
	if err != nil {
		h.states.Clear(userID)
		return c.Send("Проект не найден.", mainMenu())
	}

	if err := h.projects.ChangeToken(context.Background(), project.ID, token); err != nil {
		if errors.Is(err, service.ErrTokenInUse) {
			return c.Send("Этот токен уже используется другим проектом. Пришлите другой.")
		}
		h.logger.Error("token change failed", zap.Error(err))
		return c.Send(errorReply)
	}

	h.states.SetState(userID, domain.StateIdle)
	return c.Send("✅ Токен обновлён, бот переехал.", projectMenu(project.ID))
}

func (h *SettingsHandler) handleAddDataStart(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	h.selectProject(userID, callbackArg(c))
	h.states.SetState(userID, domain.StateWaitingAdditionalData)
	return c.Send("📚 Пришлите дополнение к данным о бизнесе — текстом или файлом.")
}

func (h *SettingsHandler) stateAdditionalData(c tele.Context) error {
	return h.applyKnowledge(c, false)
}

func (h *SettingsHandler) handleNewDataStart(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	h.selectProject(userID, callbackArg(c))
	h.states.SetState(userID, domain.StateWaitingNewData)
	return c.Send("♻️ Пришлите новые данные о бизнесе — они заменят текущие.")
}

func (h *SettingsHandler) stateNewData(c tele.Context) error {
	return h.applyKnowledge(c, true)
}

func (h *SettingsHandler) applyKnowledge(c tele.Context, replace bool) error {
	userID := c.Sender().ID

	text, err := h.incomingText(c)
	if err != nil {
		return c.Send(err.Error())
	}

	project, err := selectedProject(h, c)
	if err != nil {
		h.states.Clear(userID)
		return c.Send("Проект не найден.", mainMenu())
	}

	c.Send("⏳ Обновляю данные...")

	if replace {
		err = h.projects.ReplaceKnowledge(context.Background(), project.ID, text)
	} else {
		err = h.projects.AppendKnowledge(context.Background(), project.ID, text)
	}
	if err != nil {
		h.logger.Error("knowledge update failed", zap.Error(err))
		return c.Send(errorReply)
	}

	h.states.SetState(userID, domain.StateIdle)
	return c.Send("✅ Данные обновлены.", projectMenu(project.ID))
}

func (h *SettingsHandler) handleDeleteAsk(c tele.Context) error {
	c.Respond()
	projectID := callbackArg(c)

	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(menu.Data("🗑 Да, удалить", "prj_delete_yes", projectID)),
		menu.Row(menu.Data("Отмена", "sel_project", projectID)),
	)
	return c.Edit("Удалить проект вместе с ботом и всеми данными?", menu)
}

func (h *SettingsHandler) handleDeleteConfirm(c tele.Context) error {
	userID := c.Sender().ID
	projectID := callbackArg(c)
	c.Respond()

	project, err := h.projects.Get(projectID)
	if err != nil || project == nil || project.TelegramID != userID {
		return c.Send("Проект не найден.", mainMenu())
	}

	if err := h.projects.Delete(context.Background(), projectID); err != nil {
		h.logger.Error("project deletion failed", zap.Error(err))
		return c.Send(errorReply)
	}

	h.states.Clear(userID)
	h.tracker.Track(analytics.Event{
		Event:      "project_deleted",
		TelegramID: userID,
		ProjectID:  projectID,
	})
	return c.Edit("🗑 Проект удалён.", mainMenu())
}

// selectProject remembers which project the following flow applies to
func (h *SettingsHandler) selectProject(userID int64, projectID string) {
	if projectID == "" {
		return
	}
	h.states.Update(userID, func(d *domain.ConvData) {
		d.SelectedProjectID = projectID
	})
}

// incomingText returns the message text, or the text extracted from an
// attached document. The returned error text is user-facing.
func (h *SettingsHandler) incomingText(c tele.Context) (string, error) {
	if doc := c.Message().Document; doc != nil {
		rc, err := h.bot.File(&doc.File)
		if err != nil {
			h.logger.Error("document download failed", zap.Error(err))
			return "", fmt.Errorf("Не удалось скачать файл. Попробуйте ещё раз.")
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("Не удалось прочитать файл. Попробуйте ещё раз.")
		}

		text, err := parseDocument(doc.FileName, data)
		if err != nil {
			return "", err
		}
		return text, nil
	}

	text := strings.TrimSpace(c.Text())
	if text == "" {
		return "", fmt.Errorf("Пришлите текст или файл (txt, docx, pdf).")
	}
	return text, nil
}

func projectMenu(projectID string) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(menu.Data("📄 Показать данные", "prj_show", projectID)),
		menu.Row(menu.Data("✏️ Переименовать", "prj_rename", projectID),
			menu.Data("🔑 Сменить токен", "prj_token", projectID)),
		menu.Row(menu.Data("➕ Дополнить данные", "prj_add_data", projectID),
			menu.Data("♻️ Заменить данные", "prj_new_data", projectID)),
		menu.Row(menu.Data("📋 Форма заявки", "prj_form", projectID),
			menu.Data("🎨 Оформление", "prj_design", projectID)),
		menu.Row(menu.Data("🗑 Удалить", "prj_delete", projectID)),
		menu.Row(menu.Data("🏠 В меню", "back_main")),
	)
	return menu
}
