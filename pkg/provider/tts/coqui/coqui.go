// Package coqui provides a tts.Synthesizer backed by a locally-running Coqui
// TTS server (ghcr.io/coqui-ai/tts-cpu). Synthesis is performed via GET
// /api/tts with URL query parameters; the server replies with a WAV file
// which is decoded to mono float32 PCM.
//
// Typical usage:
//
//	s, err := coqui.New("http://localhost:5002",
//	    coqui.WithLanguage("en"),
//	    coqui.WithTimeout(15*time.Second),
//	)
//	samples, rate, err := s.Synthesize(ctx, "Hello there.")
package coqui

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vocata-ai/vocata/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

const (
	defaultTimeout = 30 * time.Second
	apiTTSEndpoint = "/api/tts"
)

// Option is a functional option for configuring a Synthesizer.
type Option func(*Synthesizer)

// WithLanguage sets the language ID sent to the TTS server (e.g. "en").
// Single-language models ignore it.
func WithLanguage(lang string) Option {
	return func(s *Synthesizer) { s.language = lang }
}

// WithSpeaker sets the speaker ID for multi-speaker models.
func WithSpeaker(id string) Option {
	return func(s *Synthesizer) { s.speaker = id }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) { s.httpClient.Timeout = d }
}

// Synthesizer implements tts.Synthesizer against a Coqui TTS server.
// It is safe for concurrent use.
type Synthesizer struct {
	serverURL  string
	language   string
	speaker    string
	httpClient *http.Client
}

// New creates a Synthesizer targeting the TTS server at serverURL
// (e.g. "http://localhost:5002"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Synthesizer, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	s := &Synthesizer{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Synthesize implements [tts.Synthesizer]. It issues one GET /api/tts call
// and decodes the WAV response to mono float32 samples.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]float32, int, error) {
	if text == "" {
		return nil, 0, nil
	}

	params := url.Values{}
	params.Set("text", text)
	if s.speaker != "" {
		params.Set("speaker_id", s.speaker)
	}
	if s.language != "" {
		params.Set("language_id", s.language)
	}

	reqURL := s.serverURL + apiTTSEndpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, &tts.SynthesisError{Provider: "coqui", Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "audio/wav")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, &tts.SynthesisError{Provider: "coqui", Err: fmt.Errorf("GET %s: %w", apiTTSEndpoint, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, &tts.SynthesisError{Provider: "coqui", Err: fmt.Errorf("GET %s returned status %d", apiTTSEndpoint, resp.StatusCode)}
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &tts.SynthesisError{Provider: "coqui", Err: fmt.Errorf("read WAV response: %w", err)}
	}

	samples, rate, err := decodeWAV(wav)
	if err != nil {
		return nil, 0, &tts.SynthesisError{Provider: "coqui", Err: err}
	}
	return samples, rate, nil
}

// wavInfo holds the format metadata extracted from a RIFF/WAVE header.
type wavInfo struct {
	DataOffset int // byte offset of the first PCM sample
	DataSize   int // byte length of the data chunk
	SampleRate int
	Channels   int
}

// decodeWAV parses the RIFF/WAVE container and converts 16-bit PCM to mono
// float32 in [-1, 1]. Stereo input is downmixed by averaging channels.
func decodeWAV(wav []byte) ([]float32, int, error) {
	info, err := parseWAV(wav)
	if err != nil {
		return nil, 0, err
	}

	pcm := wav[info.DataOffset:]
	if info.DataSize > 0 && info.DataSize < len(pcm) {
		pcm = pcm[:info.DataSize]
	}

	ch := info.Channels
	if ch <= 0 {
		ch = 1
	}
	frames := len(pcm) / 2 / ch
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < ch; c++ {
			off := (i*ch + c) * 2
			v := int16(binary.LittleEndian.Uint16(pcm[off : off+2]))
			sum += float32(v) / 32768
		}
		samples[i] = sum / float32(ch)
	}
	return samples, info.SampleRate, nil
}

// parseWAV scans the RIFF/WAVE container in wav and returns the data offset
// and audio format from the "fmt " sub-chunk. Walking the chunks is more
// robust than hardcoding a fixed 44-byte offset because the fmt chunk size
// may vary.
func parseWAV(wav []byte) (wavInfo, error) {
	if len(wav) < 12 {
		return wavInfo{}, errors.New("WAV response too short to be a valid RIFF file")
	}
	if string(wav[0:4]) != "RIFF" {
		return wavInfo{}, errors.New("WAV response missing RIFF header")
	}
	if string(wav[8:12]) != "WAVE" {
		return wavInfo{}, errors.New("WAV response missing WAVE identifier")
	}

	var info wavInfo
	foundFmt := false

	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))

		switch chunkID {
		case "fmt ":
			if chunkSize >= 16 && offset+8+16 <= len(wav) {
				fmtData := wav[offset+8:]
				info.Channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
				info.SampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
				foundFmt = true
			}
		case "data":
			info.DataOffset = offset + 8
			info.DataSize = chunkSize
			if !foundFmt {
				// fmt chunk should appear before data; fall back to the
				// Coqui default format if it did not.
				info.SampleRate = 22050
				info.Channels = 1
			}
			return info, nil
		}

		// Chunks are word-aligned: pad by 1 if the size is odd.
		offset += 8 + chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}
	return wavInfo{}, errors.New("WAV response missing data chunk")
}
