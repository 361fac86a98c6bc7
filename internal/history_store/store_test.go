package history_store //nolint:revive // var-naming

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func texts(turns []Turn) []string {
	out := make([]string, len(turns))
	for i, tr := range turns {
		out[i] = tr.Text
	}
	return out
}

func TestRecent_OrderAndLimit(t *testing.T) {
	s := newStore(t, Config{})
	s.Append("u", RoleUser, "hi")
	s.Append("u", RoleAssistant, "hello")
	s.Append("u", RoleUser, "how are you")

	assert.Equal(t, []string{"hi", "hello", "how are you"}, texts(s.Recent("u", 0)))
	assert.Equal(t, []string{"hello", "how are you"}, texts(s.Recent("u", 2)))
	assert.Equal(t, []string{"hi", "hello", "how are you"}, texts(s.Recent("u", 50)), "fewer turns than limit is not an error")

	got := s.Recent("u", 1)
	require.Len(t, got, 1)
	assert.Equal(t, RoleUser, got[0].Role)
	assert.False(t, got[0].At.IsZero())
}

func TestRecent_UnknownUser(t *testing.T) {
	s := newStore(t, Config{})
	assert.Empty(t, s.Recent("ghost", 5))
	assert.Equal(t, 0, s.Users(), "reads do not create users")
}

func TestAppend_RetainsOnlyMaxTurns(t *testing.T) {
	s := newStore(t, Config{MaxTurns: 10})
	for i := 0; i < 25; i++ {
		s.Append("u", RoleUser, fmt.Sprintf("m%d", i))
	}

	got := texts(s.Recent("u", 0))
	require.Len(t, got, 10)
	assert.Equal(t, "m15", got[0])
	assert.Equal(t, "m24", got[9])
}

func TestRecent_ReturnsCopy(t *testing.T) {
	s := newStore(t, Config{})
	s.Append("u", RoleUser, "original")

	got := s.Recent("u", 0)
	got[0].Text = "mutated"

	assert.Equal(t, "original", s.Recent("u", 0)[0].Text)
}

func TestClear(t *testing.T) {
	s := newStore(t, Config{})
	s.Append("a", RoleUser, "x")
	s.Append("b", RoleUser, "y")

	s.Clear("a")
	s.Clear("never-seen")

	assert.Empty(t, s.Recent("a", 0))
	assert.Equal(t, []string{"y"}, texts(s.Recent("b", 0)))
}

func TestMaxUsers_EvictsLeastRecentlyActive(t *testing.T) {
	s := newStore(t, Config{MaxUsers: 2})
	s.Append("a", RoleUser, "1")
	s.Append("b", RoleUser, "2")
	s.Append("a", RoleUser, "3") // touch a
	s.Append("c", RoleUser, "4") // evicts b

	assert.Equal(t, 2, s.Users())
	assert.Empty(t, s.Recent("b", 0))
	assert.Equal(t, []string{"1", "3"}, texts(s.Recent("a", 0)))
}

func TestConcurrentAppends_NoLossNoDuplication(t *testing.T) {
	s := newStore(t, Config{MaxTurns: 1000})

	const writers, each = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				s.Append("shared", RoleUser, fmt.Sprintf("%d-%d", w, i))
				_ = s.Recent("shared", 5)
			}
		}()
	}
	wg.Wait()

	got := texts(s.Recent("shared", 0))
	require.Len(t, got, writers*each)
	seen := make(map[string]bool, len(got))
	for _, txt := range got {
		assert.False(t, seen[txt], "duplicate turn %s", txt)
		seen[txt] = true
	}
}

func TestConcurrentDistinctUsers(t *testing.T) {
	s := newStore(t, Config{})
	var wg sync.WaitGroup
	for u := 0; u < 50; u++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("user-%d", u)
			s.Append(id, RoleUser, "q")
			s.Append(id, RoleAssistant, "a")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Users())
	for u := 0; u < 50; u++ {
		assert.Len(t, s.Recent(fmt.Sprintf("user-%d", u), 0), 2)
	}
}

func TestAppendExchange(t *testing.T) {
	s := newStore(t, Config{MaxTurns: 3})
	s.AppendExchange("u", "q1", "a1")
	s.AppendExchange("u", "q2", "a2")

	got := s.Recent("u", 0)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a1", "q2", "a2"}, texts(got))
	assert.Equal(t, RoleUser, got[1].Role)
	assert.Equal(t, RoleAssistant, got[2].Role)
}

func TestAppendExchange_ConcurrentPairsStayAdjacent(t *testing.T) {
	s := newStore(t, Config{MaxTurns: 400})
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AppendExchange("u", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		}()
	}
	wg.Wait()

	got := s.Recent("u", 0)
	require.Len(t, got, 200)
	for i := 0; i < len(got); i += 2 {
		assert.Equal(t, RoleUser, got[i].Role)
		assert.Equal(t, "a"+got[i].Text[1:], got[i+1].Text)
	}
}
