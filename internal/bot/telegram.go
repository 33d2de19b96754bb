package bot

import (
	"fsubmedia/internal/gate"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// memberSource answers gate membership queries through the Bot API.
type memberSource struct {
	api *tgbotapi.BotAPI
}

var _ gate.StatusSource = memberSource{}

func (m memberSource) MemberStatus(req gate.Requirement, userID int64) (string, error) {
	cfg := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID:             req.ChatID,
			SuperGroupUsername: req.Username,
			UserID:             userID,
		},
	}
	member, err := m.api.GetChatMember(cfg)
	if err != nil {
		return "", err
	}
	return member.Status, nil
}
