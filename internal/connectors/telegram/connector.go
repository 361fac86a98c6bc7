// Package telegram relays Telegram private chats through the session
// orchestrator using long polling.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// maxMessageLength is Telegram's limit for a single text message.
const maxMessageLength = 4096

// Responder is what the connector needs from the session orchestrator.
type Responder interface {
	Respond(ctx context.Context, userID, text string) string
	Remember(ctx context.Context, userID, key, value string) error
	Memories(ctx context.Context, userID string) (map[string]string, error)
	Forget(ctx context.Context, userID string) error
	Usage() int64
}

// Messenger is the slice of *bot.Bot used to talk back to a chat.
type Messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

// MessageObserver is notified for every user message accepted.
type MessageObserver interface {
	MessageReceived(channel string)
}

// Connector represents the Telegram connector
type Connector struct {
	bot       *bot.Bot
	responder Responder
	commands  *CommandRegistry
	observer  MessageObserver
	provider  string
	log       logger.Logger
	polling   atomic.Bool
}

// Config holds configuration for the Telegram connector
type Config struct {
	BotToken string // Bot token from @BotFather
	Debug    bool   // Enable debug logging
	// Workers is how many updates are processed at once; different users
	// are served in parallel.
	Workers  int
	Logger   logger.Logger
	Observer MessageObserver
	// Provider names the model backend in the welcome text.
	Provider string
	// Options are appended to the bot options, mostly for tests.
	Options []bot.Option
}

// NewConnector creates a Telegram connector bound to responder.
func NewConnector(config Config, responder Responder) (*Connector, error) {
	if config.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if responder == nil {
		return nil, fmt.Errorf("responder is required")
	}
	if config.Workers <= 0 {
		config.Workers = 8
	}

	c := newConnector(responder, config.Logger, config.Observer)
	c.provider = config.Provider
	c.setupCommands()

	opts := []bot.Option{
		bot.WithDefaultHandler(c.handleUpdate),
		bot.WithWorkers(config.Workers),
		bot.WithErrorsHandler(func(err error) {
			c.log.Error("Telegram polling error", logger.ErrorField(err))
		}),
	}
	if config.Debug {
		opts = append(opts, bot.WithDebug())
	}
	opts = append(opts, config.Options...)

	b, err := bot.New(config.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	c.bot = b
	c.log.Info("Telegram bot initialized successfully")

	return c, nil
}

func newConnector(responder Responder, log logger.Logger, observer MessageObserver) *Connector {
	if log == nil {
		log = logger.NewNopLogger()
	}
	c := &Connector{
		responder: responder,
		observer:  observer,
		log:       log.WithFields(logger.StringField("component", "telegram")),
	}
	c.setupCommands()
	return c
}

// Start polls for updates until ctx is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	c.log.Info("Starting Telegram bot polling")
	c.polling.Store(true)
	defer c.polling.Store(false)
	c.bot.Start(ctx)
	c.log.Info("Telegram bot polling stopped")
	return nil
}

// Ready reports whether the connector is polling for updates.
func (c *Connector) Ready() error {
	if !c.polling.Load() {
		return fmt.Errorf("telegram connector is not polling")
	}
	return nil
}

// GetBotInfo returns information about the bot
func (c *Connector) GetBotInfo(ctx context.Context) (*models.User, error) {
	return c.bot.GetMe(ctx)
}

// handleUpdate processes all incoming Telegram updates
func (c *Connector) handleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	c.process(ctx, b, update)
}

func (c *Connector) process(ctx context.Context, m Messenger, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	if msg.From.IsBot {
		c.log.Debug("Skipping bot message", logger.StringField("username", msg.From.Username))
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	ctx, correlationID := logger.EnsureCorrelationID(ctx)
	log := c.log.WithFields(
		logger.UserIDField(userID),
		logger.CorrelationIDField(correlationID),
		logger.Int64Field("chat_id", msg.Chat.ID),
	)

	if c.commands.IsCommand(msg.Text) {
		log.Info("Processing command", logger.StringField("command", commandName(msg.Text)))
		reply, err := c.commands.Handle(ctx, userID, msg.Text)
		if err != nil {
			log.Error("Command failed", logger.ErrorField(err))
			reply = "An error occurred while processing your command."
		}
		c.send(ctx, m, log, msg.Chat.ID, reply)
		return
	}

	if c.observer != nil {
		c.observer.MessageReceived("telegram")
	}
	log.Debug("Processing message", logger.IntField("chars", len(msg.Text)))

	if _, err := m.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: msg.Chat.ID,
		Action: models.ChatActionTyping,
	}); err != nil {
		log.Warn("Failed to send typing action", logger.ErrorField(err))
	}

	reply := c.responder.Respond(ctx, userID, msg.Text)
	c.send(ctx, m, log, msg.Chat.ID, reply)
}

func (c *Connector) send(ctx context.Context, m Messenger, log logger.Logger, chatID int64, text string) {
	if text == "" {
		return
	}
	for _, chunk := range splitMessage(text, maxMessageLength) {
		if _, err := m.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   chunk,
		}); err != nil {
			log.Error("Error sending message to Telegram", logger.ErrorField(err))
			return
		}
	}
}

// splitMessage cuts text into pieces of at most limit runes, preferring
// to break on a newline.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
