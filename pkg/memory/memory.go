// Package memory implements the bounded conversation log shared by the
// assistant loop and its embedder.
//
// A [Conversation] is an ordered sequence of user/assistant turns with a
// capacity of 2×maxMessages, so a balanced window of user/assistant pairs is
// retained. Appending past the bound evicts the oldest turns in FIFO order;
// eviction happens synchronously inside Append and never blocks. Alongside
// the turn log the conversation carries a mutable key/value context sidecar
// and the session start timestamp.
//
// A single mutex guards all state: Append, Clear, and trimming are not
// designed to interleave, and the log may be inspected from an embedder
// goroutine while the assistant loop is writing.
package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single conversation entry. Immutable once appended.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats summarises the conversation on demand. It is recomputed on every
// call, never cached.
type Stats struct {
	TotalMessages     int           `json:"total_messages"`
	UserMessages      int           `json:"user_messages"`
	AssistantMessages int           `json:"assistant_messages"`
	StartTime         time.Time     `json:"start_time"`
	Duration          time.Duration `json:"duration"`
}

// defaultMaxMessages bounds the history window when the caller passes a
// non-positive value to New.
const defaultMaxMessages = 10

// Conversation is a bounded, ordered log of turns. Safe for concurrent use.
type Conversation struct {
	mu          sync.Mutex
	maxMessages int
	turns       []Turn
	start       time.Time
	context     map[string]any

	// now is injectable for deterministic tests.
	now func() time.Time
}

// New creates an empty Conversation retaining at most 2×maxMessages turns.
func New(maxMessages int) *Conversation {
	if maxMessages <= 0 {
		maxMessages = defaultMaxMessages
	}
	c := &Conversation{
		maxMessages: maxMessages,
		context:     make(map[string]any),
		now:         time.Now,
	}
	c.start = c.now()
	return c
}

// capacity is the hard bound on retained turns.
func (c *Conversation) capacity() int { return 2 * c.maxMessages }

// Append adds a turn stamped with the current time and trims the front of
// the log if the bound is exceeded. It never blocks beyond the mutex.
func (c *Conversation) Append(role Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, Turn{Role: role, Content: content, Timestamp: c.now()})

	if over := len(c.turns) - c.capacity(); over > 0 {
		c.turns = append(c.turns[:0:0], c.turns[over:]...)
	}
}

// Len returns the number of retained turns.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Recent returns the last min(n, len) turns in original order. A
// non-positive n means the full retention window.
func (c *Conversation) Recent(n int) []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 || n > len(c.turns) {
		n = len(c.turns)
	}
	out := make([]Turn, n)
	copy(out, c.turns[len(c.turns)-n:])
	return out
}

// All returns a copy of every retained turn in order.
func (c *Conversation) All() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Clear removes all turns and context and resets the start timestamp.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = nil
	c.context = make(map[string]any)
	c.start = c.now()
}

// StartTime returns the session start timestamp.
func (c *Conversation) StartTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start
}

// Stats computes the conversation statistics at call time.
func (c *Conversation) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		TotalMessages: len(c.turns),
		StartTime:     c.start,
		Duration:      c.now().Sub(c.start),
	}
	for _, t := range c.turns {
		switch t.Role {
		case RoleUser:
			s.UserMessages++
		case RoleAssistant:
			s.AssistantMessages++
		}
	}
	return s
}

// Search returns all turns whose content contains query, case-insensitively.
// A non-empty role restricts matches to that role.
func (c *Conversation) Search(query string, role Role) []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := strings.ToLower(query)
	var out []Turn
	for _, t := range c.turns {
		if role != "" && t.Role != role {
			continue
		}
		if strings.Contains(strings.ToLower(t.Content), q) {
			out = append(out, t)
		}
	}
	return out
}

// LastTurn returns the most recent turn for role, or false when none exists.
func (c *Conversation) LastTurn(role Role) (Turn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == role {
			return c.turns[i], true
		}
	}
	return Turn{}, false
}

// Summary renders a plain-text digest of the conversation: duration,
// message counts, and up to three recent substantial user inputs.
func (c *Conversation) Summary() string {
	c.mu.Lock()
	turns := make([]Turn, len(c.turns))
	copy(turns, c.turns)
	c.mu.Unlock()

	if len(turns) == 0 {
		return "No conversation to summarize."
	}

	stats := c.Stats()

	var topics []string
	recent := turns
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	for _, t := range recent {
		if t.Role == RoleUser && len(t.Content) > 20 {
			topic := t.Content
			if runes := []rune(topic); len(runes) > 50 {
				topic = string(runes[:50])
			}
			topics = append(topics, topic+"...")
		}
	}
	if len(topics) > 3 {
		topics = topics[:3]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Conversation summary:\n")
	fmt.Fprintf(&b, "- Duration: %.1f minutes\n", stats.Duration.Minutes())
	fmt.Fprintf(&b, "- Messages: %d total (%d user, %d assistant)\n",
		stats.TotalMessages, stats.UserMessages, stats.AssistantMessages)
	fmt.Fprintf(&b, "- Started: %s", stats.StartTime.Format(time.RFC3339))
	if len(topics) > 0 {
		fmt.Fprintf(&b, "\nRecent topics: %s", strings.Join(topics, ", "))
	}
	return b.String()
}

// SetContext stores a key/value pair in the context sidecar.
func (c *Conversation) SetContext(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.context[key] = value
}

// Context returns the value stored under key, or false when absent.
func (c *Conversation) Context(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.context[key]
	return v, ok
}

// RemoveContext deletes key from the context sidecar.
func (c *Conversation) RemoveContext(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.context, key)
}
