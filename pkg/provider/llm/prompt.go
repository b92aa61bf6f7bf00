package llm

import "fmt"

// DefaultMaxTokens caps reply length for spoken output. Long completions
// read badly aloud.
const DefaultMaxTokens = 150

// SystemPrompt renders the persona instructions for a voice reply. Shared by
// the backend implementations so every provider speaks with the same voice.
func SystemPrompt(c Context) string {
	name := c.AssistantName
	if name == "" {
		name = "Assistant"
	}

	prompt := fmt.Sprintf(
		"You are %s, a helpful voice assistant. "+
			"Your responses are spoken aloud, so keep them concise, "+
			"conversational, and free of markup or lists. "+
			"Prefer one or two sentences unless the user asks for detail.",
		name,
	)
	if !c.Time.IsZero() {
		prompt += fmt.Sprintf(" The current time is %s.", c.Time.Format("Monday, January 2 2006, 15:04"))
	}
	return prompt
}
