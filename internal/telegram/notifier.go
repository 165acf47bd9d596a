package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/camuig/whale-dashboard/internal/config"
	"github.com/camuig/whale-dashboard/internal/logger"
)

// sender is the part of the bot API the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	bot     sender
	chatID  int64
	enabled bool
	logger  *logger.Logger
}

func NewNotifier(cfg *config.Config, log *logger.Logger) *Notifier {
	if !cfg.Telegram.Enabled && !cfg.Digest.Enabled {
		return &Notifier{enabled: false, logger: log}
	}

	_ = tgbotapi.SetLogger(log)

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("failed to create telegram bot", "error", err)
		return &Notifier{enabled: false, logger: log}
	}

	log.Info("telegram bot connected", "username", bot.Self.UserName)

	return &Notifier{
		bot:     bot,
		chatID:  cfg.Telegram.ChatID,
		enabled: true,
		logger:  log,
	}
}

func (n *Notifier) Enabled() bool {
	return n.enabled
}

// NotifyDigest sends a prebuilt digest as plain text. Asset names may contain
// markdown control characters, so no parse mode is set.
func (n *Notifier) NotifyDigest(text string) error {
	return n.send(text, "")
}

func (n *Notifier) NotifyStatus(message string) {
	_ = n.send(message, tgbotapi.ModeMarkdown)
}

func (n *Notifier) NotifyError(context string, err error) {
	_ = n.send(fmt.Sprintf("⚠️ *Error* [%s]\n%v", context, err), tgbotapi.ModeMarkdown)
}

func (n *Notifier) send(text, parseMode string) error {
	if !n.enabled {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = parseMode

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("send telegram message", "error", err)
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
