package audio

import (
	"fmt"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// wavBitDepth is the sample width used for exported recordings.
const wavBitDepth = 16

// SaveWAV writes the utterance to path as a 16-bit mono WAV file. The afero
// filesystem lets tests write to memory instead of disk.
func SaveWAV(fs afero.Fs, path string, u Utterance) error {
	if u.Empty() {
		return fmt.Errorf("audio: refusing to save empty utterance")
	}

	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create %q: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, u.SampleRate, wavBitDepth, 1, 1)

	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: 1,
			SampleRate:  u.SampleRate,
		},
		Data:           make([]int, len(u.Samples)),
		SourceBitDepth: wavBitDepth,
	}
	for i, s := range u.Samples {
		buf.Data[i] = int(clampSample(s) * 32767)
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audio: encode %q: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio: finalise %q: %w", path, err)
	}
	return nil
}

func clampSample(s float32) float32 {
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}
