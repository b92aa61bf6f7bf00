package assistant

import "strings"

// Built-in command phrase sets. A user input matches a command when it
// contains one of the phrases, case-insensitively; commands are checked
// before the responder is consulted.
var (
	clearPhrases  = []string{"clear conversation", "forget everything", "start over"}
	exitPhrases   = []string{"stop listening", "goodbye", "exit", "quit"}
	statusPhrases = []string{"how are you", "how's it going"}
	helpPhrases   = []string{"help", "what can you do"}
)

// Canned responses spoken without consulting the responder.
const (
	clearResponse  = "I've cleared our conversation history. How can I help you?"
	exitResponse   = "Goodbye! Have a great day!"
	statusResponse = "I'm doing well, thank you for asking! How can I assist you today?"
	helpResponse   = "You can ask me questions, have a conversation, or say " +
		"'clear conversation' to start over. Say 'goodbye' when you're done."

	// ackResponse is spoken after a wake-word activation.
	ackResponse = "Yes, how can I help you?"

	// emptyResponse is spoken when a conversation recording produced no
	// recognizable speech.
	emptyResponse = "I didn't catch that. Please try again."

	// errorResponse is spoken when a conversation turn fails before a
	// reply could be produced, so the user is not left with dead silence
	// after being acknowledged.
	errorResponse = "I'm sorry, I encountered an error. Please try again."
)

// Fixed apologies for responder failure classes.
const (
	apologyRateLimited = "I'm sorry, I'm currently experiencing high demand. Please try again in a moment."
	apologyTimeout     = "I'm taking too long to respond. Please try again."
	apologyBackend     = "I'm experiencing some technical difficulties right now."
	apologyGeneric     = "I'm sorry, I couldn't process that request."
)

// command identifies a matched built-in command.
type command int

const (
	cmdNone command = iota
	cmdClear
	cmdExit
	cmdStatus
	cmdHelp
)

// matchCommand reports which built-in command, if any, the input contains.
// Matching is a case-insensitive substring check, the same rule used for
// wake-word detection.
func matchCommand(input string) command {
	lower := strings.ToLower(input)
	for _, p := range exitPhrases {
		if strings.Contains(lower, p) {
			return cmdExit
		}
	}
	for _, p := range clearPhrases {
		if strings.Contains(lower, p) {
			return cmdClear
		}
	}
	for _, p := range statusPhrases {
		if strings.Contains(lower, p) {
			return cmdStatus
		}
	}
	for _, p := range helpPhrases {
		if strings.Contains(lower, p) {
			return cmdHelp
		}
	}
	return cmdNone
}
