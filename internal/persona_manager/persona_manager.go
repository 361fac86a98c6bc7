// Package persona_manager loads the assistant persona that opens every prompt.
package persona_manager //nolint:revive // var-naming

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lewisedginton/memory_relay/internal/storage_manager"
	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// DefaultFile is the persona file name inside the configured backend.
const DefaultFile = "persona.md"

// BuiltinPersona is used when no persona file has been provisioned.
const BuiltinPersona = "You are a friendly Sinhala Telegram assistant.\n" +
	"- Keep answers short and clear.\n" +
	"- If user asks for steps, provide numbered steps.\n" +
	"- Avoid unsafe or illegal advice.\n" +
	"- If you are unsure, say you are unsure and ask a brief follow-up question."

// Source reports where a persona came from.
type Source string

const (
	SourceFile    Source = "file"
	SourceBuiltin Source = "builtin"
)

// PersonaManager reads and writes the persona through a FileProvider.
type PersonaManager struct {
	provider storage_manager.FileProvider
	file     string
	log      logger.Logger
}

// New creates a PersonaManager. An empty file name means DefaultFile.
func New(provider storage_manager.FileProvider, file string, log logger.Logger) *PersonaManager {
	if provider == nil {
		panic("file provider cannot be nil")
	}
	if file == "" {
		file = DefaultFile
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &PersonaManager{provider: provider, file: file, log: log}
}

// Load returns the persona text. A missing or blank file yields
// BuiltinPersona; any other read failure is returned.
func (m *PersonaManager) Load(ctx context.Context) (string, Source, error) {
	data, err := m.provider.Read(ctx, m.file)
	if err != nil {
		if errors.Is(err, storage_manager.ErrNotFound) {
			m.log.Info("Persona file not found, using built-in persona", logger.StringField("file", m.file))
			return BuiltinPersona, SourceBuiltin, nil
		}
		return "", "", fmt.Errorf("failed to read persona: %w", err)
	}

	persona := strings.TrimSpace(string(data))
	if persona == "" {
		m.log.Warn("Persona file is empty, using built-in persona", logger.StringField("file", m.file))
		return BuiltinPersona, SourceBuiltin, nil
	}
	m.log.Info("Persona loaded", logger.StringField("file", m.file), logger.IntField("chars", len(persona)))
	return persona, SourceFile, nil
}

// Save replaces the persona file.
func (m *PersonaManager) Save(ctx context.Context, persona string) error {
	persona = strings.TrimSpace(persona)
	if persona == "" {
		return errors.New("persona cannot be empty")
	}
	if err := m.provider.Write(ctx, m.file, []byte(persona+"\n")); err != nil {
		return fmt.Errorf("failed to write persona: %w", err)
	}
	return nil
}
