package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/umbcsclub/eventbot/internal/domain"
)

const (
	actionConfirm = "confirm"
	actionCancel  = "cancel"
)

var buttonLabels = map[domain.Flow][2]string{
	domain.FlowCreate: {"Confirm Event ✅", "Discard Event 🗑️"},
	domain.FlowUpdate: {"Confirm Event Changes ✅", "Discard Event Changes 🗑️"},
	domain.FlowDelete: {"Confirm Event Deletion ✅", "Cancel Event Deletion ❌"},
}

// confirmKeyboard is the two-button gate attached to a preview
func confirmKeyboard(flow domain.Flow, workflowID string) tgbotapi.InlineKeyboardMarkup {
	labels := buttonLabels[flow]
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(labels[0], callbackData(actionConfirm, workflowID)),
			tgbotapi.NewInlineKeyboardButtonData(labels[1], callbackData(actionCancel, workflowID)),
		),
	)
}

func callbackData(action, workflowID string) string {
	return action + ":" + workflowID
}

// parseCallback splits "action:workflowID".
func parseCallback(data string) (string, string, bool) {
	action, id, ok := strings.Cut(data, ":")
	if !ok || id == "" {
		return "", "", false
	}
	if action != actionConfirm && action != actionCancel {
		return "", "", false
	}
	return action, id, true
}
