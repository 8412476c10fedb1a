// Package keyboard builds reply keyboards for canned answers.
package keyboard

import tele "gopkg.in/telebot.v4"

// ForceReply returns a markup that asks the client to open a reply.
func ForceReply() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{ForceReply: true}
}

// RemoveKeyboard returns a markup that hides any reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ReplyButtons builds a resized reply keyboard from rows of labels.
// Empty labels and empty rows are skipped.
func ReplyButtons(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	keyboard := make([]tele.Row, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tele.Btn, 0, len(row))
		for _, label := range row {
			if label == "" {
				continue
			}
			buttons = append(buttons, markup.Text(label))
		}
		if len(buttons) > 0 {
			keyboard = append(keyboard, markup.Row(buttons...))
		}
	}
	markup.Reply(keyboard...)
	return markup
}

// OneTime is ReplyButtons with a keyboard the client hides after one press.
func OneTime(rows ...[]string) *tele.ReplyMarkup {
	markup := ReplyButtons(rows...)
	markup.OneTimeKeyboard = true
	return markup
}

// Row puts all labels on a single row.
func Row(labels ...string) [][]string {
	return [][]string{labels}
}
