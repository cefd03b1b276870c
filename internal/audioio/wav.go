// Package audioio loads corpus audio files into mono waveforms and converts
// them between sample rates.
package audioio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const defaultBitDepth = 16

var (
	// ErrEmptyAudio indicates that a file decoded to zero samples.
	ErrEmptyAudio = errors.New("audio file contains no samples")
	// ErrInvalidSampleRate indicates a decoded sample rate of zero or less.
	ErrInvalidSampleRate = errors.New("invalid sample rate")
)

// Clip holds a decoded mono waveform and its native sample rate. Samples are
// normalized to [-1.0, 1.0].
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Seconds returns the clip duration at its native rate.
func (c *Clip) Seconds() float64 {
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// LoadWAV decodes a WAV file into a mono clip. Multi-channel audio is
// downmixed by averaging the channels of each frame.
func LoadWAV(path string) (*Clip, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file '%s': %w", path, err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := wav.NewDecoder(file)

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio file '%s': %w", path, err)
	}

	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrEmptyAudio, path)
	}

	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidSampleRate, path)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = defaultBitDepth
	}

	scale := float64(int64(1) << (bitDepth - 1))
	frames := len(buf.Data) / channels
	samples := make([]float64, frames)

	for frame := range frames {
		sum := 0.0
		for ch := range channels {
			sum += float64(buf.Data[frame*channels+ch])
		}

		samples[frame] = sum / float64(channels) / scale
	}

	return &Clip{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// WriteWAV stores a mono waveform as a 16-bit PCM WAV file. Samples outside
// [-1.0, 1.0] are clipped.
func WriteWAV(path string, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create audio file '%s': %w", path, err)
	}

	encoder := wav.NewEncoder(file, sampleRate, defaultBitDepth, 1, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		switch {
		case s > 1.0:
			data[i] = 32767
		case s < -1.0:
			data[i] = -32768
		default:
			data[i] = int(s * 32767.0)
		}
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: defaultBitDepth,
	}

	writeErr := encoder.Write(buf)

	closeErr := encoder.Close()
	if closeErr == nil {
		closeErr = file.Close()
	} else {
		_ = file.Close()
	}

	if writeErr != nil {
		return fmt.Errorf("failed to write audio file '%s': %w", path, writeErr)
	}

	if closeErr != nil {
		return fmt.Errorf("failed to finalize audio file '%s': %w", path, closeErr)
	}

	return nil
}
