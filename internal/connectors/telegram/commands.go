package telegram

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lewisedginton/memory_relay/internal/session_orchestrator"
)

// providerNames maps LLM_PROVIDER values to how the bot introduces itself.
var providerNames = map[string]string{
	"gemini": "Gemini",
	"openai": "OpenAI",
	"claude": "Claude",
}

// welcomeText answers /start and /help, naming the model provider when known.
func welcomeText(provider string) string {
	intro := "Hi! I'm a chat bot."
	if name, ok := providerNames[provider]; ok {
		intro = "Hi! I'm a chat bot powered by " + name + "."
	}
	return intro + "\n" + welcomeCommands
}

const welcomeCommands = "Send me a message and I'll reply.\n\n" +
	"Commands:\n" +
	"/start - welcome\n" +
	"/help - usage\n" +
	"/remember [key:] text - remember something about you\n" +
	"/memory - show what I remember\n" +
	"/forget - forget everything about you\n" +
	"/usage - messages answered since start"

// CommandHandler handles a specific Telegram bot command
type CommandHandler func(ctx context.Context, userID, args string) (string, error)

// CommandRegistry manages bot command handlers
type CommandRegistry struct {
	handlers map[string]CommandHandler
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		handlers: make(map[string]CommandHandler),
	}
}

// Register adds a command handler to the registry
func (r *CommandRegistry) Register(command string, handler CommandHandler) {
	r.handlers[command] = handler
}

// Handle dispatches text to its command handler.
func (r *CommandRegistry) Handle(ctx context.Context, userID, text string) (string, error) {
	command := commandName(text)
	handler, exists := r.handlers[command]
	if !exists {
		return "Unknown command: " + command, nil
	}

	var args string
	if parts := strings.SplitN(strings.TrimSpace(text), " ", 2); len(parts) == 2 {
		args = strings.TrimSpace(parts[1])
	}
	return handler(ctx, userID, args)
}

// IsCommand checks if a message is a command
func (r *CommandRegistry) IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// commandName returns "/cmd" from "/cmd@BotName args".
func commandName(text string) string {
	command := strings.Fields(text)[0]
	if i := strings.IndexByte(command, '@'); i > 0 {
		command = command[:i]
	}
	return strings.ToLower(command)
}

// setupCommands initializes the command registry with all available commands
func (c *Connector) setupCommands() {
	c.commands = NewCommandRegistry()
	text := welcomeText(c.provider)
	welcome := func(context.Context, string, string) (string, error) { return text, nil }
	c.commands.Register("/start", welcome)
	c.commands.Register("/help", welcome)
	c.commands.Register("/remember", c.handleRemember)
	c.commands.Register("/memory", c.handleMemory)
	c.commands.Register("/forget", c.handleForget)
	c.commands.Register("/usage", c.handleUsage)
}

func (c *Connector) handleRemember(ctx context.Context, userID, args string) (string, error) {
	if args == "" {
		return "Usage: /remember [key:] text", nil
	}
	key, value := splitFact(args)
	err := c.responder.Remember(ctx, userID, key, value)
	switch {
	case errors.Is(err, session_orchestrator.ErrFactsUnavailable):
		return "Saved facts are turned off; I only remember our recent conversation.", nil
	case errors.Is(err, session_orchestrator.ErrEmptyMessage):
		return "Usage: /remember [key:] text", nil
	case err != nil:
		return "", err
	}
	return "Got it, I'll remember that.", nil
}

// splitFact reads the optional "key: value" form. The key is a single word and
// the colon must be followed by whitespace or nothing, so URLs and times such
// as 10:30 are kept whole.
func splitFact(args string) (key, value string) {
	k, v, ok := strings.Cut(args, ":")
	if !ok || k == "" || strings.ContainsAny(k, " \t") {
		return "", args
	}
	if r, _ := utf8.DecodeRuneInString(v); v != "" && !unicode.IsSpace(r) {
		return "", args
	}
	return k, v
}

func (c *Connector) handleMemory(ctx context.Context, userID, _ string) (string, error) {
	facts, err := c.responder.Memories(ctx, userID)
	if errors.Is(err, session_orchestrator.ErrFactsUnavailable) {
		return "Saved facts are turned off; I only remember our recent conversation.", nil
	}
	if err != nil {
		return "", err
	}
	if len(facts) == 0 {
		return "I don't remember anything about you yet.", nil
	}

	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("Here's what I remember:")
	for _, k := range keys {
		fmt.Fprintf(&sb, "\n- %s: %s", k, facts[k])
	}
	return sb.String(), nil
}

func (c *Connector) handleForget(ctx context.Context, userID, _ string) (string, error) {
	if err := c.responder.Forget(ctx, userID); err != nil {
		return "", err
	}
	return "Done, I've forgotten everything about you.", nil
}

func (c *Connector) handleUsage(context.Context, string, string) (string, error) {
	return fmt.Sprintf("Messages answered since start: %d", c.responder.Usage()), nil
}
