package memory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/afero"
)

// Snapshot is the portable export document of a conversation. Its JSON shape
// is the on-disk interchange format; consumers outside this module read it.
type Snapshot struct {
	StartTime time.Time      `json:"start_time"`
	Stats     Stats          `json:"stats"`
	Context   map[string]any `json:"context"`
	Messages  []Turn         `json:"messages"`
}

// Snapshot captures the full current state of the conversation.
func (c *Conversation) Snapshot() Snapshot {
	stats := c.Stats()

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		StartTime: c.start,
		Stats:     stats,
		Context:   make(map[string]any, len(c.context)),
		Messages:  make([]Turn, len(c.turns)),
	}
	for k, v := range c.context {
		snap.Context[k] = v
	}
	copy(snap.Messages, c.turns)
	return snap
}

// Restore replaces the conversation state with the snapshot's, applying the
// usual retention bound to the imported messages.
func (c *Conversation) Restore(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	turns := snap.Messages
	if over := len(turns) - c.capacity(); over > 0 {
		turns = turns[over:]
	}
	c.turns = append(c.turns[:0:0], turns...)

	c.context = make(map[string]any, len(snap.Context))
	for k, v := range snap.Context {
		c.context[k] = v
	}

	c.start = snap.StartTime
	if c.start.IsZero() {
		c.start = c.now()
	}
}

// Export serialises the conversation as indented JSON.
func (c *Conversation) Export() ([]byte, error) {
	data, err := json.MarshalIndent(c.Snapshot(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("memory: export conversation: %w", err)
	}
	return data, nil
}

// Import replaces the conversation state with a previously exported document.
func (c *Conversation) Import(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("memory: import conversation: %w", err)
	}
	c.Restore(snap)
	return nil
}

// SaveFile writes the export document to path on fs.
func (c *Conversation) SaveFile(fs afero.Fs, path string) error {
	data, err := c.Export()
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("memory: write %s: %w", path, err)
	}
	return nil
}

// LoadFile reads an export document from path on fs and restores it.
func (c *Conversation) LoadFile(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("memory: read %s: %w", path, err)
	}
	return c.Import(data)
}
