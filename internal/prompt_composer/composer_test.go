package prompt_composer //nolint:revive // var-naming

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const persona = "You are a friendly assistant.\n- Keep answers short."

func TestCompose(t *testing.T) {
	tests := []struct {
		name    string
		persona string
		memory  Block
		text    string
		want    string
	}{
		{
			name:    "persona memory and text in order",
			persona: persona,
			memory:  Block{Heading: "Known facts about the user:", Lines: []string{"- note: likes tea"}},
			text:    "what do I like?",
			want: "You are a friendly assistant.\n- Keep answers short.\n\n" +
				"Known facts about the user:\n- note: likes tea\n\n" +
				"User: what do I like?",
		},
		{
			name:    "empty memory omitted",
			persona: persona,
			memory:  Block{Heading: "Known facts about the user:"},
			text:    "hi",
			want:    "You are a friendly assistant.\n- Keep answers short.\n\nUser: hi",
		},
		{
			name:    "blank lines only counts as empty",
			persona: persona,
			memory:  Block{Heading: "Recent conversation:", Lines: []string{"", "  "}},
			text:    "hi",
			want:    "You are a friendly assistant.\n- Keep answers short.\n\nUser: hi",
		},
		{
			name:   "no persona",
			memory: Block{Lines: []string{"User: earlier", "Assistant: reply"}},
			text:   "now",
			want:   "User: earlier\nAssistant: reply\n\nUser: now",
		},
		{
			name:    "blank memory lines skipped",
			persona: "P",
			memory:  Block{Heading: "H", Lines: []string{"a", "", "b"}},
			text:    "t",
			want:    "P\n\nH\na\nb\n\nUser: t",
		},
		{
			name: "text only",
			text: "hello",
			want: "User: hello",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compose(tt.persona, tt.memory, tt.text))
		})
	}
}

func TestCompose_Deterministic(t *testing.T) {
	m := Block{Heading: "Recent conversation:", Lines: []string{"User: a", "Assistant: b"}}
	first := Compose(persona, m, "c")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Compose(persona, m, "c"))
	}
}

func TestCompose_PersonaPrecedesMemoryPrecedesText(t *testing.T) {
	out := Compose("PERSONA", Block{Lines: []string{"MEMORY"}}, "TEXT")
	p, m, u := strings.Index(out, "PERSONA"), strings.Index(out, "MEMORY"), strings.Index(out, "User: TEXT")
	assert.True(t, p < m && m < u, out)
}
