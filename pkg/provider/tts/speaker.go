package tts

import (
	"context"
	"fmt"

	"github.com/vocata-ai/vocata/pkg/audio"
)

// Compile-time assertion that PlayerSpeaker satisfies Speaker.
var _ Speaker = (*PlayerSpeaker)(nil)

// PlayerSpeaker combines a Synthesizer with an audio.Player: text is
// rendered to PCM and then played on the local output device.
type PlayerSpeaker struct {
	synth  Synthesizer
	player audio.Player
}

// NewPlayerSpeaker creates a Speaker that plays synthesized audio on player.
func NewPlayerSpeaker(synth Synthesizer, player audio.Player) *PlayerSpeaker {
	return &PlayerSpeaker{synth: synth, player: player}
}

// Speak implements [Speaker]. Empty text is a no-op.
func (s *PlayerSpeaker) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	samples, rate, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}
	if err := s.player.Play(ctx, samples, rate); err != nil {
		return fmt.Errorf("tts: play synthesized audio: %w", err)
	}
	return nil
}
