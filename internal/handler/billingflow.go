package handler

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"multibot/internal/analytics"
	"multibot/internal/botkit"
	"multibot/internal/domain"
)

func (h *SettingsHandler) registerBillingFlow(r *botkit.Router) {
	r.Callback("menu_pay", h.handlePayStart)
	r.Callback("menu_feedback", h.handleFeedbackStart)

	r.CallbackPrefix("pay_confirm|", h.handlePayConfirm)
	r.CallbackPrefix("pay_reject|", h.handlePayReject)
	r.CallbackPrefix("fb_rate|", h.handleFeedbackRate)

	r.Callback("delete_all_ask", h.handleDeleteAllAsk)
	r.Callback("delete_all_confirm", h.handleDeleteAllConfirm)

	r.State(domain.StateWaitingPaymentCheck, h.statePaymentCheck)
	r.State(domain.StateWaitingFeedbackText, h.stateFeedbackText)
}

func (h *SettingsHandler) handlePayStart(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	amount, card := h.billing.PaymentDetails()
	h.states.SetState(userID, domain.StateWaitingPaymentCheck)

	return c.Send(fmt.Sprintf("💳 Подписка на месяц: %d ₽\n\n"+
		"Переведите на карту:\n%s\n\n"+
		"После оплаты пришлите сюда чек — фото или файл.", amount, card))
}

// statePaymentCheck forwards the receipt to the admin for manual review
func (h *SettingsHandler) statePaymentCheck(c tele.Context) error {
	userID := c.Sender().ID
	msg := c.Message()

	if msg.Photo == nil && msg.Document == nil {
		return c.Send("Пришлите чек фотографией или файлом.")
	}

	if err := h.billing.RecordPaymentClaim(userID); err != nil {
		h.logger.Error("payment claim failed", zap.Error(err))
		return c.Send(errorReply)
	}

	if h.adminID != 0 {
		if _, err := h.bot.Forward(&tele.Chat{ID: h.adminID}, msg); err != nil {
			h.logger.Warn("receipt forwarding failed", zap.Error(err))
		}

		menu := &tele.ReplyMarkup{}
		uid := strconv.FormatInt(userID, 10)
		menu.Inline(menu.Row(
			menu.Data("✅ Подтвердить", "pay_confirm", uid),
			menu.Data("❌ Отклонить", "pay_reject", uid),
		))
		h.notifyAdmin(fmt.Sprintf("💳 Оплата от пользователя %d (@%s)", userID, c.Sender().Username), menu)
	}

	h.states.Clear(userID)
	h.tracker.Track(analytics.Event{Event: "payment_claimed", TelegramID: userID})

	return c.Send("✅ Чек получен! Проверим и подтвердим в течение пары часов.", mainMenu())
}

// handlePayConfirm is pressed by the admin under a forwarded receipt
func (h *SettingsHandler) handlePayConfirm(c tele.Context) error {
	if c.Sender().ID != h.adminID {
		return c.Respond()
	}
	c.Respond()

	payerID, err := strconv.ParseInt(callbackArg(c), 10, 64)
	if err != nil {
		return c.Send("Не удалось разобрать ID пользователя.")
	}

	if err := h.billing.ConfirmPayment(payerID); err != nil {
		h.logger.Error("payment confirmation failed", zap.Error(err))
		return c.Send(errorReply)
	}

	// suspended bots come back once the payment lands
	if err := h.projects.ResumeAllForUser(context.Background(), payerID); err != nil {
		h.logger.Error("project resumption failed",
			zap.Int64("user_id", payerID), zap.Error(err))
	}

	h.tracker.Track(analytics.Event{Event: "payment_confirmed", TelegramID: payerID})

	if _, err := h.bot.Send(&tele.Chat{ID: payerID},
		"🎉 Оплата подтверждена! Подписка активна на месяц."); err != nil {
		h.logger.Warn("payer notification failed", zap.Error(err))
	}
	return c.Edit(fmt.Sprintf("✅ Оплата пользователя %d подтверждена.", payerID))
}

func (h *SettingsHandler) handlePayReject(c tele.Context) error {
	if c.Sender().ID != h.adminID {
		return c.Respond()
	}
	c.Respond()

	payerID, err := strconv.ParseInt(callbackArg(c), 10, 64)
	if err != nil {
		return c.Send("Не удалось разобрать ID пользователя.")
	}

	if _, err := h.bot.Send(&tele.Chat{ID: payerID},
		"❌ Не удалось подтвердить оплату. Проверьте чек и попробуйте ещё раз."); err != nil {
		h.logger.Warn("payer notification failed", zap.Error(err))
	}
	return c.Edit(fmt.Sprintf("❌ Оплата пользователя %d отклонена.", payerID))
}

// handleDeleteAllAsk is reached from the trial-expiry notice; dropping
// every project is the owner's explicit choice, never the scheduler's
func (h *SettingsHandler) handleDeleteAllAsk(c tele.Context) error {
	c.Respond()

	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(menu.Data("🗑 Да, удалить всё", "delete_all_confirm")),
		menu.Row(menu.Data("◀️ Отмена", "back_main")),
	)
	return c.Send("⚠️ Удалить все проекты вместе с данными и заявками? Это действие необратимо.", menu)
}

func (h *SettingsHandler) handleDeleteAllConfirm(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	if err := h.projects.DeleteAllForUser(context.Background(), userID); err != nil {
		h.logger.Error("bulk project deletion failed",
			zap.Int64("user_id", userID), zap.Error(err))
		return c.Send(errorReply)
	}

	return c.Send("🗑 Все проекты удалены.", mainMenu())
}

func (h *SettingsHandler) handleFeedbackStart(c tele.Context) error {
	c.Respond()

	menu := &tele.ReplyMarkup{}
	row := tele.Row{}
	for i := 1; i <= 5; i++ {
		row = append(row, menu.Data(fmt.Sprintf("%d⭐", i), "fb_rate", strconv.Itoa(i)))
	}
	menu.Inline(menu.Row(row...))

	return c.Edit("⭐ Оцените сервис от 1 до 5:", menu)
}

func (h *SettingsHandler) handleFeedbackRate(c tele.Context) error {
	userID := c.Sender().ID
	c.Respond()

	rating, err := strconv.Atoi(callbackArg(c))
	if err != nil || rating < 1 || rating > 5 {
		return nil
	}

	h.states.Update(userID, func(d *domain.ConvData) {
		d.FeedbackDraft = &domain.FeedbackDraft{Rating: rating}
	})
	h.states.SetState(userID, domain.StateWaitingFeedbackText)

	return c.Send("Спасибо! Теперь напишите пару слов — что понравилось, что улучшить?")
}

func (h *SettingsHandler) stateFeedbackText(c tele.Context) error {
	userID := c.Sender().ID
	text := c.Text()

	sess := h.states.Get(userID)
	if sess.Data.FeedbackDraft == nil {
		h.states.Clear(userID)
		return c.Send("Что-то пошло не так, начните заново.", mainMenu())
	}

	if err := h.billing.AddFeedback(userID, sess.Data.FeedbackDraft.Rating, text); err != nil {
		h.logger.Error("feedback save failed", zap.Error(err))
		return c.Send(errorReply)
	}

	h.states.Clear(userID)
	h.tracker.Track(analytics.Event{
		Event:      "feedback",
		TelegramID: userID,
		Detail:     fmt.Sprintf("rating=%d", sess.Data.FeedbackDraft.Rating),
	})

	return c.Send("💛 Спасибо за отзыв!", mainMenu())
}
