package handler

import (
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"multibot/internal/botkit"
	"multibot/internal/domain"
)

// designSteps orders the presentation flow; "skip" moves to the next one
var designSteps = []domain.ConvState{
	domain.StateWaitingDesignName,
	domain.StateWaitingDesignAvatar,
	domain.StateWaitingDesignWelcomeText,
	domain.StateWaitingDesignWelcomeImage,
	domain.StateWaitingDesignDescription,
}

var designPrompts = map[domain.ConvState]string{
	domain.StateWaitingDesignName:         "🎨 Как боту представляться клиентам? Пришлите имя.",
	domain.StateWaitingDesignAvatar:       "🖼 Пришлите фото для аватара бота.",
	domain.StateWaitingDesignWelcomeText:  "💬 Пришлите приветствие — его увидит клиент при первом запуске.",
	domain.StateWaitingDesignWelcomeImage: "🖼 Пришлите картинку к приветствию.",
	domain.StateWaitingDesignDescription:  "📝 Пришлите короткое описание бизнеса для карточки бота.",
}

func (h *SettingsHandler) registerDesignFlow(r *botkit.Router) {
	r.CallbackPrefix("prj_design|", h.handleDesignStart)
	r.Callback("design_skip", h.handleDesignSkip)

	r.State(domain.StateWaitingDesignName, h.stateDesignName)
	r.State(domain.StateWaitingDesignAvatar, h.stateDesignAvatar)
	r.State(domain.StateWaitingDesignWelcomeText, h.stateDesignWelcomeText)
	r.State(domain.StateWaitingDesignWelcomeImage, h.stateDesignWelcomeImage)
	r.State(domain.StateWaitingDesignDescription, h.stateDesignDescription)
}

func (h *SettingsHandler) handleDesignStart(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	h.selectProject(userID, callbackArg(c))
	h.states.Update(userID, func(d *domain.ConvData) {
		d.DesignDraft = &domain.Design{}
	})
	h.states.SetState(userID, designSteps[0])

	return c.Send(designPrompts[designSteps[0]], skipMenu())
}

func (h *SettingsHandler) handleDesignSkip(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	state := h.states.State(userID)
	return h.advanceDesign(c, userID, state)
}

func (h *SettingsHandler) stateDesignName(c tele.Context) error {
	userID := c.Sender().ID
	name := strings.TrimSpace(c.Text())
	if name == "" {
		return c.Send("Имя не может быть пустым. Пришлите имя или нажмите «Пропустить».", skipMenu())
	}

	h.states.Update(userID, func(d *domain.ConvData) {
		d.DesignDraft.BotName = name
	})
	return h.advanceDesign(c, userID, domain.StateWaitingDesignName)
}

func (h *SettingsHandler) stateDesignAvatar(c tele.Context) error {
	userID := c.Sender().ID

	photo := c.Message().Photo
	if photo == nil {
		return c.Send("Нужно именно фото. Пришлите картинку или нажмите «Пропустить».", skipMenu())
	}

	h.states.Update(userID, func(d *domain.ConvData) {
		d.DesignDraft.AvatarFileID = photo.FileID
	})
	return h.advanceDesign(c, userID, domain.StateWaitingDesignAvatar)
}

func (h *SettingsHandler) stateDesignWelcomeText(c tele.Context) error {
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())
	if text == "" {
		return c.Send("Приветствие не может быть пустым. Пришлите текст или нажмите «Пропустить».", skipMenu())
	}

	h.states.Update(userID, func(d *domain.ConvData) {
		d.DesignDraft.WelcomeText = text
	})
	return h.advanceDesign(c, userID, domain.StateWaitingDesignWelcomeText)
}

func (h *SettingsHandler) stateDesignWelcomeImage(c tele.Context) error {
	userID := c.Sender().ID

	photo := c.Message().Photo
	if photo == nil {
		return c.Send("Нужно именно фото. Пришлите картинку или нажмите «Пропустить».", skipMenu())
	}

	h.states.Update(userID, func(d *domain.ConvData) {
		d.DesignDraft.WelcomeImage = photo.FileID
	})
	return h.advanceDesign(c, userID, domain.StateWaitingDesignWelcomeImage)
}

func (h *SettingsHandler) stateDesignDescription(c tele.Context) error {
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())
	if text != "" {
		h.states.Update(userID, func(d *domain.ConvData) {
			d.DesignDraft.Description = text
		})
	}
	return h.advanceDesign(c, userID, domain.StateWaitingDesignDescription)
}

// advanceDesign moves to the next step, or saves the draft after the last
func (h *SettingsHandler) advanceDesign(c tele.Context, userID int64, current domain.ConvState) error {
	next := nextDesignStep(current)
	if next != domain.StateIdle {
		h.states.SetState(userID, next)
		return c.Send(designPrompts[next], skipMenu())
	}

	sess := h.states.Get(userID)
	projectID := sess.Data.SelectedProjectID
	draft := sess.Data.DesignDraft
	if projectID == "" || draft == nil {
		h.states.Clear(userID)
		return c.Send("Настройка прервана, начните заново.", mainMenu())
	}

	if err := h.projects.UpdateDesign(projectID, *draft); err != nil {
		h.logger.Error("design update failed", zap.Error(err))
		return c.Send(errorReply)
	}

	h.states.Clear(userID)
	h.states.Update(userID, func(d *domain.ConvData) {
		d.SelectedProjectID = projectID
	})
	return c.Send("✅ Оформление сохранено.", projectMenu(projectID))
}

func nextDesignStep(current domain.ConvState) domain.ConvState {
	for i, step := range designSteps {
		if step == current && i+1 < len(designSteps) {
			return designSteps[i+1]
		}
	}
	return domain.StateIdle
}

func skipMenu() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(menu.Data("⏭ Пропустить", "design_skip")))
	return menu
}
