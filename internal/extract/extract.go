// Package extract implements the per-sample filter and feature-extraction
// pipeline that runs inside one pool worker.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/book-expert/aligner-corpus/internal/audioio"
	"github.com/book-expert/aligner-corpus/internal/core"
	"github.com/book-expert/logger"
)

var (
	// ErrEmptyTranscript marks a sample whose transcript is blank after
	// trimming.
	ErrEmptyTranscript = errors.New("transcript is empty")
	// ErrSampleRateMismatch marks a sample whose native rate differs from
	// the rate assumed for the worker's partition.
	ErrSampleRateMismatch = errors.New("sample rate differs from partition rate")
	// ErrDurationOutOfBounds marks a sample outside the configured duration
	// bounds, at either the native or the canonical rate.
	ErrDurationOutOfBounds = errors.New("duration out of bounds")
	// ErrUnknownSymbolsDisallowed marks a sample whose transcript needed
	// permissive encoding without the caller having allowed unknown symbols.
	ErrUnknownSymbolsDisallowed = errors.New("transcript contains unknown symbols")
	// ErrBoundsInverted indicates min/max duration bounds in the wrong order.
	ErrBoundsInverted = errors.New("min duration exceeds max duration")
	// ErrNilCollaborator indicates a missing frontend, codec or resampler.
	ErrNilCollaborator = errors.New("frontend, codec and resampler are required")
)

// Params configures an extractor for one worker partition.
type Params struct {
	Transcripts map[string]string
	Frontend    core.TextFrontend
	Codec       core.Codec
	Resampler   core.Resampler
	MinSeconds  float64
	MaxSeconds  float64
	// ExpectedSampleRate fixes the partition rate up front. Zero means the
	// rate is probed from the partition's first readable file.
	ExpectedSampleRate  int
	PhoneInput          bool
	AllowUnknownSymbols bool
	Verbose             bool
	Log                 *logger.Logger
}

// Extractor runs the per-key pipeline sequentially over a worker's partition.
// Each worker owns its own instance together with its own frontend and codec.
type Extractor struct {
	params Params
}

// New creates an extractor after validating the partition parameters.
func New(params Params) (*Extractor, error) {
	if params.Frontend == nil || params.Codec == nil || params.Resampler == nil {
		return nil, ErrNilCollaborator
	}

	if params.MinSeconds > params.MaxSeconds {
		return nil, fmt.Errorf("%w: [%f, %f]", ErrBoundsInverted, params.MinSeconds, params.MaxSeconds)
	}

	return &Extractor{params: params}, nil
}

// Run processes every key in the partition and returns the surviving
// datapoints as one chunk. Per-sample failures are skipped; the returned
// error is reserved for partition-fatal conditions, currently only an
// unreadable first file when no expected rate is configured.
func (e *Extractor) Run(keys []string) ([]core.CachedDatapoint, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	assumedRate := e.params.ExpectedSampleRate
	if assumedRate == 0 {
		probe, err := audioio.LoadWAV(keys[0])
		if err != nil {
			return nil, fmt.Errorf("failed to probe partition sample rate from '%s': %w", keys[0], err)
		}

		assumedRate = probe.SampleRate
	}

	chunk := make([]core.CachedDatapoint, 0, len(keys))

	for _, key := range keys {
		datapoint, err := e.sample(key, assumedRate)
		if err != nil {
			if e.params.Verbose && e.params.Log != nil {
				e.params.Log.Warn("Excluding %s: %v", key, err)
			}

			continue
		}

		chunk = append(chunk, *datapoint)
	}

	return chunk, nil
}

// sample runs the full pipeline for one key. Any returned error means the
// sample is skipped.
func (e *Extractor) sample(key string, assumedRate int) (*core.CachedDatapoint, error) {
	transcript := e.params.Transcripts[key]
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptyTranscript
	}

	clip, err := audioio.LoadWAV(key)
	if err != nil {
		return nil, fmt.Errorf("load audio: %w", err)
	}

	if clip.SampleRate != assumedRate {
		return nil, fmt.Errorf("%w: got %d Hz, partition assumes %d Hz",
			ErrSampleRateMismatch, clip.SampleRate, assumedRate)
	}

	err = e.checkDuration(clip.Seconds())
	if err != nil {
		return nil, err
	}

	normWave, err := e.params.Resampler.Resample(clip.Samples, clip.SampleRate, core.CanonicalSampleRate)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	// Resampling can shift the effective duration at boundary cases.
	err = e.checkDuration(float64(len(normWave)) / float64(core.CanonicalSampleRate))
	if err != nil {
		return nil, err
	}

	tokens, err := e.encodeTranscript(transcript)
	if err != nil {
		return nil, err
	}

	// Speech codes come from the original waveform at its native rate.
	codes, err := e.params.Codec.Encode(clip.Samples, clip.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("encode speech: %w", err)
	}

	waveform := make([]float32, len(normWave))
	for i, s := range normWave {
		waveform[i] = float32(s)
	}

	return &core.CachedDatapoint{
		Tokens:      tokens,
		SpeechCodes: codes,
		Waveform:    waveform,
		SourcePath:  key,
	}, nil
}

func (e *Extractor) checkDuration(seconds float64) error {
	if seconds < e.params.MinSeconds || seconds > e.params.MaxSeconds {
		return fmt.Errorf("%w: %.2f seconds", ErrDurationOutOfBounds, seconds)
	}

	return nil
}

// encodeTranscript tries strict encoding first and falls back to permissive
// encoding on unknown symbols. A permissive result survives only when the
// caller has allowed unknown symbols; every other encoding failure skips the
// sample.
func (e *Extractor) encodeTranscript(transcript string) ([]int16, error) {
	tokens, err := e.params.Frontend.Encode(transcript, e.params.PhoneInput, true)
	if err == nil {
		return tokens, nil
	}

	if !errors.Is(err, core.ErrUnknownSymbol) {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}

	tokens, err = e.params.Frontend.Encode(transcript, e.params.PhoneInput, false)
	if err != nil {
		return nil, fmt.Errorf("encode transcript permissively: %w", err)
	}

	if !e.params.AllowUnknownSymbols {
		return nil, ErrUnknownSymbolsDisallowed
	}

	return tokens, nil
}
