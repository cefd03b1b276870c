package audioio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts mono waveforms between sample rates with a pure Go
// resampler. A Resampler holds no state and is safe to share.
type Resampler struct{}

// Resample converts wave from srcRate to dstRate. Equal rates return a copy
// of the input unchanged.
func (Resampler) Resample(wave []float64, srcRate, dstRate int) ([]float64, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidSampleRate, srcRate, dstRate)
	}

	if srcRate == dstRate {
		out := make([]float64, len(wave))
		copy(out, wave)

		return out, nil
	}

	config := &resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	}

	converter, err := resampling.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	out, err := converter.Process(wave)
	if err != nil {
		return nil, fmt.Errorf("failed to resample from %d Hz to %d Hz: %w", srcRate, dstRate, err)
	}

	// The converter buffers filter-delay samples internally; without the
	// flush the tail of the clip is lost and durations come up short.
	tail, err := converter.Flush()
	if err != nil {
		return nil, fmt.Errorf("failed to flush resampler: %w", err)
	}

	return append(out, tail...), nil
}
