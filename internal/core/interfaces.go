// Package core defines the data model and collaborator interfaces for the
// aligner corpus builder.
package core

import "errors"

// CanonicalSampleRate is the rate every stored waveform is resampled to.
const CanonicalSampleRate = 16000

var (
	// ErrUnknownSymbol indicates that a transcript contains a symbol that is
	// not part of the frontend's inventory.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrMalformedText indicates that a transcript could not be segmented
	// into encodable units at all.
	ErrMalformedText = errors.New("malformed text")
)

// TextFrontend converts a transcript into a sequence of token ids.
//
// In strict mode an out-of-inventory symbol fails with ErrUnknownSymbol; in
// permissive mode a placeholder id is substituted instead. When phoneInput is
// set the text is treated as an already-phonemized symbol string.
type TextFrontend interface {
	Encode(text string, phoneInput bool, strict bool) ([]int16, error)
}

// Codec converts waveforms to and from discrete speech codes.
type Codec interface {
	// Encode turns a waveform at the given sample rate into a code matrix
	// laid out as [time][codebook depth].
	Encode(wave []float64, sampleRate int) ([][]int16, error)
	// Decode turns a cached code matrix back into continuous feature frames.
	Decode(codes [][]int16) ([][]float32, error)
}

// Embedder computes a fixed-length speaker embedding from a waveform at the
// canonical sample rate.
type Embedder interface {
	Embed(wave []float64) ([]float32, error)
}

// Resampler converts a mono waveform between sample rates.
type Resampler interface {
	Resample(wave []float64, srcRate, dstRate int) ([]float64, error)
}

// FrontendFactory builds a fresh frontend instance. Every pool worker and
// every dataset view constructs its own instances through factories because
// the underlying models are not shareable across isolated execution contexts.
type FrontendFactory func() (TextFrontend, error)

// CodecFactory builds a fresh codec instance.
type CodecFactory func() (Codec, error)

// CachedDatapoint is the durable unit of the corpus. Tokens and SpeechCodes
// describe the same filtered, resampled instance of the source audio, and
// Waveform holds that audio at the canonical rate.
type CachedDatapoint struct {
	Tokens      []int16   `msgpack:"tokens"`
	SpeechCodes [][]int16 `msgpack:"speech_codes"`
	Waveform    []float32 `msgpack:"waveform"`
	SourcePath  string    `msgpack:"source_path"`
}

// Corpus is the complete ordered collection of datapoints plus the parallel
// speaker-embedding and source-path collections. All three share one index
// space: index i everywhere refers to the same source sample.
type Corpus struct {
	Datapoints  []CachedDatapoint
	Embeddings  [][]float32
	SourcePaths []string
}
