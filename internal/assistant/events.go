package assistant

// Events receives lifecycle notifications from the assistant loop. All
// methods are invoked synchronously from the loop goroutine and must not
// block indefinitely.
type Events interface {
	// WakeWordDetected fires when a finalized transcription contains the
	// wake word, after the acknowledgment has been spoken.
	WakeWordDetected()

	// SpeechRecognized fires for every non-empty conversation transcription
	// before the input is dispatched.
	SpeechRecognized(text string)

	// ResponseGenerated fires after a reply (including canned apologies)
	// has been produced.
	ResponseGenerated(text string)

	// Error fires for every transient failure the loop absorbs.
	Error(err error)
}

// EventFuncs adapts plain functions to the [Events] interface. Nil fields
// are no-ops, so embedders only wire the callbacks they care about.
type EventFuncs struct {
	OnWakeWordDetected  func()
	OnSpeechRecognized  func(text string)
	OnResponseGenerated func(text string)
	OnError             func(err error)
}

func (e EventFuncs) WakeWordDetected() {
	if e.OnWakeWordDetected != nil {
		e.OnWakeWordDetected()
	}
}

func (e EventFuncs) SpeechRecognized(text string) {
	if e.OnSpeechRecognized != nil {
		e.OnSpeechRecognized(text)
	}
}

func (e EventFuncs) ResponseGenerated(text string) {
	if e.OnResponseGenerated != nil {
		e.OnResponseGenerated(text)
	}
}

func (e EventFuncs) Error(err error) {
	if e.OnError != nil {
		e.OnError(err)
	}
}

// Compile-time interface check.
var _ Events = EventFuncs{}
