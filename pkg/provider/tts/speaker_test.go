package tts_test

import (
	"context"
	"errors"
	"testing"

	audiomock "github.com/vocata-ai/vocata/pkg/audio/mock"
	"github.com/vocata-ai/vocata/pkg/provider/tts"
	ttsmock "github.com/vocata-ai/vocata/pkg/provider/tts/mock"
)

func TestPlayerSpeaker(t *testing.T) {
	t.Parallel()

	synth := &ttsmock.Synthesizer{
		Samples:    []float32{0.1, 0.2, 0.3},
		SampleRate: 22050,
	}
	player := &audiomock.Player{}
	speaker := tts.NewPlayerSpeaker(synth, player)

	if err := speaker.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if len(player.Played) != 1 || len(player.Played[0]) != 3 {
		t.Errorf("player received %v, want one 3-sample buffer", player.Played)
	}
	if len(synth.Texts) != 1 || synth.Texts[0] != "hello" {
		t.Errorf("synthesizer received %v", synth.Texts)
	}
}

func TestPlayerSpeakerEmptyText(t *testing.T) {
	t.Parallel()

	synth := &ttsmock.Synthesizer{Samples: []float32{0.1}, SampleRate: 22050}
	player := &audiomock.Player{}
	speaker := tts.NewPlayerSpeaker(synth, player)

	if err := speaker.Speak(context.Background(), ""); err != nil {
		t.Fatalf("Speak(\"\"): %v", err)
	}
	if len(synth.Texts) != 0 || len(player.Played) != 0 {
		t.Error("empty text reached the synthesizer or player")
	}
}

func TestPlayerSpeakerSynthesisError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("server down")
	synth := &ttsmock.Synthesizer{Err: wantErr}
	player := &audiomock.Player{}
	speaker := tts.NewPlayerSpeaker(synth, player)

	err := speaker.Speak(context.Background(), "hello")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Speak error = %v, want %v", err, wantErr)
	}
	if len(player.Played) != 0 {
		t.Error("player received audio despite synthesis error")
	}
}
