// Package prefixed_uuid mints and parses identifiers of the form "<prefix>-<uuid>".
package prefixed_uuid //nolint:revive // var-naming

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PrefixedUUID represents a UUID with a prefix string.
type PrefixedUUID struct {
	Prefix string
	UUID   uuid.UUID
}

// New creates a new PrefixedUUID with the given prefix and a random UUID.
func New(prefix string) PrefixedUUID {
	return PrefixedUUID{Prefix: prefix, UUID: uuid.New()}
}

// Parse accepts "prefix-uuid". The prefix may not contain '-'.
func Parse(s string) (PrefixedUUID, error) {
	prefix, rest, ok := strings.Cut(s, "-")
	if !ok || prefix == "" {
		return PrefixedUUID{}, fmt.Errorf("invalid prefixed UUID format: %q", s)
	}
	id, err := uuid.Parse(rest)
	if err != nil {
		return PrefixedUUID{}, fmt.Errorf("invalid UUID: %w", err)
	}
	return PrefixedUUID{Prefix: prefix, UUID: id}, nil
}

// ParseWithPrefix is Parse plus a check that the prefix equals want.
func ParseWithPrefix(s, want string) (PrefixedUUID, error) {
	p, err := Parse(s)
	if err != nil {
		return PrefixedUUID{}, err
	}
	if p.Prefix != want {
		return PrefixedUUID{}, fmt.Errorf("unexpected prefix %q, want %q", p.Prefix, want)
	}
	return p, nil
}

func (p PrefixedUUID) String() string {
	return p.Prefix + "-" + p.UUID.String()
}

// IsZero returns true if the PrefixedUUID is uninitialized (zero value).
func (p PrefixedUUID) IsZero() bool {
	return p.Prefix == "" && p.UUID == uuid.Nil
}
