package telegram

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/whale-dashboard/internal/config"
	"github.com/camuig/whale-dashboard/internal/logger"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestDisabledNotifierIsSilent(t *testing.T) {
	n := NewNotifier(config.Default(), logger.Nop())
	assert.False(t, n.Enabled())
	require.NoError(t, n.NotifyDigest("hello"))
	n.NotifyStatus("ignored")
}

func TestNotifyDigestIsPlainText(t *testing.T) {
	bot := &fakeBot{}
	n := &Notifier{bot: bot, chatID: 42, enabled: true, logger: logger.Nop()}

	require.NoError(t, n.NotifyDigest("BTC_USD $1,000.00"))
	n.NotifyStatus("*up*")

	require.Len(t, bot.sent, 2)
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	assert.Equal(t, "BTC_USD $1,000.00", bot.sent[0].Text)
	assert.Empty(t, bot.sent[0].ParseMode)
	assert.Equal(t, tgbotapi.ModeMarkdown, bot.sent[1].ParseMode)
}

func TestSendFailureIsReturned(t *testing.T) {
	n := &Notifier{bot: &fakeBot{err: errors.New("forbidden")}, chatID: 1, enabled: true, logger: logger.Nop()}
	err := n.NotifyDigest("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")
}
