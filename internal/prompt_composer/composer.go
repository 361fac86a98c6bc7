// Package prompt_composer assembles the text sent to the completion service.
package prompt_composer //nolint:revive // var-naming

import (
	"strings"
)

// Block is an optional titled section of context, e.g. remembered facts or
// recent turns. A Block with no non-blank lines is not rendered.
type Block struct {
	Heading string
	Lines   []string
}

// IsEmpty reports whether the block has nothing worth rendering.
func (b Block) IsEmpty() bool {
	for _, l := range b.Lines {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}

func (b Block) render() string {
	var sb strings.Builder
	if h := strings.TrimSpace(b.Heading); h != "" {
		sb.WriteString(h)
		sb.WriteByte('\n')
	}
	first := true
	for _, l := range b.Lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if !first {
			sb.WriteByte('\n')
		}
		sb.WriteString(l)
		first = false
	}
	return sb.String()
}

// UserPrefix introduces the new utterance.
const UserPrefix = "User: "

// Compose renders persona, then memory, then the user's text, separated by
// blank lines. Empty persona or memory sections are left out entirely.
func Compose(persona string, memory Block, userText string) string {
	sections := make([]string, 0, 3)
	if p := strings.TrimSpace(persona); p != "" {
		sections = append(sections, p)
	}
	if !memory.IsEmpty() {
		sections = append(sections, memory.render())
	}
	sections = append(sections, UserPrefix+userText)
	return strings.Join(sections, "\n\n")
}
