package discord

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-trading/internal/platform/logging"
	"github.com/riskibarqy/sports-trading/internal/usecase"
)

const maxMessageRunes = 2000

// messageAPI is the slice of *discordgo.Session the notifier uses.
type messageAPI interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

type Notifier struct {
	api       messageAPI
	channelID string
	logger    *logging.Logger
}

// New opens a bot session for REST calls only; no gateway connection is made.
func New(token, channelID string, logger *logging.Logger) (*Notifier, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, crerr.New("discord bot token is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, crerr.Wrap(err, "create discord session")
	}
	return newNotifier(session, channelID, logger), nil
}

func newNotifier(api messageAPI, channelID string, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Notifier{api: api, channelID: strings.TrimSpace(channelID), logger: logger}
}

func (n *Notifier) Channel() string {
	return n.channelID
}

func (n *Notifier) Send(ctx context.Context, text string) (string, error) {
	msg, err := n.api.ChannelMessageSend(n.channelID, truncate(text, maxMessageRunes), discordgo.WithContext(ctx))
	if err != nil {
		return "", crerr.Mark(crerr.Wrapf(err, "discord send channel=%s", n.channelID), usecase.ErrDependencyUnavailable)
	}
	n.logger.InfoContext(ctx, "discord message sent", "channel", n.channelID, "message_id", msg.ID)
	return msg.ID, nil
}

func (n *Notifier) Delete(ctx context.Context, chatID, messageID string) error {
	if chatID == "" {
		chatID = n.channelID
	}
	err := n.api.ChannelMessageDelete(chatID, messageID, discordgo.WithContext(ctx))
	if err == nil {
		return nil
	}
	if isUnknownMessage(err) {
		return crerr.Mark(crerr.Wrapf(err, "discord delete message=%s", messageID), usecase.ErrMessageNotFound)
	}
	return crerr.Wrapf(err, "discord delete message=%s", messageID)
}

func isUnknownMessage(err error) bool {
	var restErr *discordgo.RESTError
	if !crerr.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMessage {
		return true
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-1]) + "…"
}

// LogNotifier writes notifications to the log when no channel is configured.
// Messages it "sends" have no id, so nothing is scheduled for deletion.
type LogNotifier struct {
	logger *logging.Logger
}

func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Channel() string {
	return "log"
}

func (n *LogNotifier) Send(ctx context.Context, text string) (string, error) {
	n.logger.InfoContext(ctx, "notification", "text", text)
	return "", nil
}

func (n *LogNotifier) Delete(context.Context, string, string) error {
	return nil
}

var (
	_ usecase.Notifier = (*Notifier)(nil)
	_ usecase.Notifier = (*LogNotifier)(nil)
)
