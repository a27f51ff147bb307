package handler

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"multibot/internal/fileparse"
)

// parseDocument extracts text from an uploaded file, translating parse
// failures into user-facing messages
func parseDocument(filename string, data []byte) (string, error) {
	text, err := fileparse.Parse(filename, data)
	if err != nil {
		if errors.Is(err, fileparse.ErrUnsupportedFormat) {
			return "", fmt.Errorf("Такой формат не поддерживается. Пришлите txt, docx или pdf.")
		}
		return "", fmt.Errorf("Не удалось разобрать файл. Попробуйте другой.")
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("В файле не нашлось текста.")
	}
	return text, nil
}

func payMenu() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(menu.Data("💳 Оплатить", "menu_pay")),
		menu.Row(menu.Data("🏠 В меню", "back_main")),
	)
	return menu
}
