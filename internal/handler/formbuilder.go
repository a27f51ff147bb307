package handler

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"multibot/internal/botkit"
	"multibot/internal/domain"
	"multibot/internal/service"
)

var fieldTypeTitles = map[string]string{
	domain.FieldText:   "Текст",
	domain.FieldNumber: "Число",
	domain.FieldPhone:  "Телефон",
	domain.FieldDate:   "Дата",
	domain.FieldEmail:  "Почта",
}

func (h *SettingsHandler) registerFormBuilder(r *botkit.Router) {
	r.State(domain.StateWaitingFieldName, h.stateFieldName)
	r.State(domain.StateWaitingFormPurpose, h.stateFormPurpose)
	r.State(domain.StateWaitingFieldType, func(c tele.Context) error {
		return c.Send("Выберите тип поля кнопкой выше 👆")
	})

	r.CallbackPrefix("prj_form|", h.handleFormMenu)
	r.CallbackPrefix("form_delete|", h.handleFormDelete)
	r.CallbackPrefix("field_type|", h.handleFieldType)
	r.CallbackPrefix("del_field|", h.handleDeleteDraftField)
	r.Callback("form_add_field", h.handleAddField)
	r.Callback("form_done", h.handleFormDone)
	r.Callback("form_cancel_build", h.handleFormCancel)
}

// handleFormMenu shows the existing form or starts building one
func (h *SettingsHandler) handleFormMenu(c tele.Context) error {
	userID := c.Sender().ID
	projectID := callbackArg(c)
	c.Respond()

	h.selectProject(userID, projectID)

	form, err := h.forms.GetProjectForm(projectID)
	if err != nil {
		h.logger.Error("form lookup failed", zap.Error(err))
		return c.Send(errorReply)
	}

	if form != nil {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("📋 Форма «%s»\n", form.Name))
		if form.Purpose != "" {
			sb.WriteString(fmt.Sprintf("Назначение: %s\n", form.Purpose))
		}
		sb.WriteString("\nПоля:\n")
		for i, f := range form.Fields {
			sb.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, f.Name, fieldTypeTitles[f.Type]))
		}

		menu := &tele.ReplyMarkup{}
		menu.Inline(
			menu.Row(menu.Data("🗑 Удалить форму", "form_delete", form.ID)),
			menu.Row(menu.Data("◀️ К проекту", "sel_project", projectID)),
		)
		return c.Edit(sb.String(), menu)
	}

	h.states.Update(userID, func(d *domain.ConvData) {
		d.FormDraft = &domain.FormDraft{}
	})

	return c.Edit("📋 Формы пока нет. Соберём её из полей: имя, телефон, дата и так далее.\n\n"+
		"Бот предложит клиенту заполнить форму после ответа на вопрос.", formBuildMenu(nil))
}

func (h *SettingsHandler) handleAddField(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	h.states.SetState(userID, domain.StateWaitingFieldName)
	return c.Send("Как назвать поле? Например: «Имя», «Телефон», «Дата визита».")
}

func (h *SettingsHandler) stateFieldName(c tele.Context) error {
	userID := c.Sender().ID
	name := strings.TrimSpace(c.Text())
	if name == "" {
		return c.Send("Название поля не может быть пустым. Попробуйте ещё раз.")
	}

	sess := h.states.Get(userID)
	draft := sess.Data.FormDraft
	if draft == nil {
		h.states.Clear(userID)
		return c.Send("Сборка формы прервана, начните заново.", mainMenu())
	}
	if draft.HasField(name) {
		return c.Send(fmt.Sprintf("Поле «%s» уже есть в форме. Пришлите другое название.", name))
	}

	h.states.Update(userID, func(d *domain.ConvData) {
		d.FormDraft.PendingFieldName = name
	})
	h.states.SetState(userID, domain.StateWaitingFieldType)

	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(menu.Data("Текст", "field_type", domain.FieldText),
			menu.Data("Число", "field_type", domain.FieldNumber)),
		menu.Row(menu.Data("Телефон", "field_type", domain.FieldPhone),
			menu.Data("Дата", "field_type", domain.FieldDate)),
		menu.Row(menu.Data("Почта", "field_type", domain.FieldEmail)),
	)
	return c.Send(fmt.Sprintf("Какого типа поле «%s»?", name), menu)
}

func (h *SettingsHandler) handleFieldType(c tele.Context) error {
	userID := c.Sender().ID
	fieldType := callbackArg(c)
	c.Respond()

	if _, ok := fieldTypeTitles[fieldType]; !ok {
		return nil
	}

	sess := h.states.Get(userID)
	draft := sess.Data.FormDraft
	if draft == nil || draft.PendingFieldName == "" {
		return nil
	}

	if err := h.forms.AddDraftField(draft, draft.PendingFieldName, fieldType); err != nil {
		if errors.Is(err, service.ErrDuplicateField) {
			h.states.SetState(userID, domain.StateWaitingFieldName)
			return c.Send("Такое поле уже есть. Пришлите другое название.")
		}
		return c.Send(errorReply)
	}

	h.states.Update(userID, func(d *domain.ConvData) {
		d.FormDraft = draft
		d.FormDraft.PendingFieldName = ""
	})
	h.states.SetState(userID, domain.StateIdle)

	return c.Send(fieldListText(draft), formBuildMenu(draft))
}

func (h *SettingsHandler) handleDeleteDraftField(c tele.Context) error {
	userID := c.Sender().ID
	name := callbackArg(c)
	c.Respond()

	sess := h.states.Get(userID)
	draft := sess.Data.FormDraft
	if draft == nil {
		return nil
	}

	kept := draft.Fields[:0]
	for _, f := range draft.Fields {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
		}
	}
	draft.Fields = kept

	h.states.Update(userID, func(d *domain.ConvData) {
		d.FormDraft = draft
	})
	return c.Edit(fieldListText(draft), formBuildMenu(draft))
}

func (h *SettingsHandler) handleFormDone(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	sess := h.states.Get(userID)
	if sess.Data.FormDraft == nil || len(sess.Data.FormDraft.Fields) == 0 {
		return c.Send("Добавьте хотя бы одно поле.")
	}

	h.states.SetState(userID, domain.StateWaitingFormPurpose)
	return c.Send("Для чего эта форма? Например: «Запись на маникюр».\n\n" +
		"Бот будет предлагать её, когда клиент спросит о чём-то похожем.")
}

func (h *SettingsHandler) stateFormPurpose(c tele.Context) error {
	userID := c.Sender().ID
	purpose := strings.TrimSpace(c.Text())
	if purpose == "" {
		return c.Send("Опишите назначение формы парой слов.")
	}

	sess := h.states.Get(userID)
	draft := sess.Data.FormDraft
	if draft == nil || sess.Data.SelectedProjectID == "" {
		h.states.Clear(userID)
		return c.Send("Сборка формы прервана, начните заново.", mainMenu())
	}

	if _, err := h.forms.CreateForm(sess.Data.SelectedProjectID, "Заявка", purpose, draft); err != nil {
		h.logger.Error("form creation failed", zap.Error(err))
		return c.Send(errorReply)
	}

	projectID := sess.Data.SelectedProjectID
	h.states.Clear(userID)
	h.states.Update(userID, func(d *domain.ConvData) {
		d.SelectedProjectID = projectID
	})

	return c.Send("✅ Форма сохранена. Бот начнёт предлагать её клиентам.", projectMenu(projectID))
}

func (h *SettingsHandler) handleFormCancel(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	sess := h.states.Get(userID)
	projectID := sess.Data.SelectedProjectID

	h.states.Clear(userID)
	if projectID != "" {
		h.states.Update(userID, func(d *domain.ConvData) {
			d.SelectedProjectID = projectID
		})
		return c.Edit("Сборка формы отменена.", projectMenu(projectID))
	}
	return c.Edit("Сборка формы отменена.", mainMenu())
}

func (h *SettingsHandler) handleFormDelete(c tele.Context) error {
	userID := c.Sender().ID
	formID := callbackArg(c)
	c.Respond()

	if err := h.forms.DeleteForm(formID); err != nil {
		h.logger.Error("form deletion failed", zap.Error(err))
		return c.Send(errorReply)
	}

	sess := h.states.Get(userID)
	if sess.Data.SelectedProjectID != "" {
		return c.Edit("🗑 Форма удалена.", projectMenu(sess.Data.SelectedProjectID))
	}
	return c.Edit("🗑 Форма удалена.", mainMenu())
}

func fieldListText(draft *domain.FormDraft) string {
	if len(draft.Fields) == 0 {
		return "Полей пока нет. Добавьте первое."
	}
	var sb strings.Builder
	sb.WriteString("Поля формы:\n")
	for i, f := range draft.Fields {
		sb.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, f.Name, fieldTypeTitles[f.Type]))
	}
	return sb.String()
}

func formBuildMenu(draft *domain.FormDraft) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	rows := []tele.Row{
		menu.Row(menu.Data("➕ Добавить поле", "form_add_field")),
	}
	if draft != nil {
		for _, f := range draft.Fields {
			rows = append(rows, menu.Row(menu.Data("🗑 "+f.Name, "del_field", f.Name)))
		}
		if len(draft.Fields) > 0 {
			rows = append(rows, menu.Row(menu.Data("✅ Готово", "form_done")))
		}
	}
	rows = append(rows, menu.Row(menu.Data("Отмена", "form_cancel_build")))
	menu.Inline(rows...)
	return menu
}
