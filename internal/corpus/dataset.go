package corpus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/book-expert/aligner-corpus/internal/core"
)

var (
	// ErrIndexOutOfRange indicates an access outside the corpus.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrMisalignedCorpus indicates a corpus whose parallel collections
	// disagree in length.
	ErrMisalignedCorpus = errors.New("corpus collections are misaligned")
	// ErrNilCodecFactory indicates a dataset built without a codec factory.
	ErrNilCodecFactory = errors.New("codec factory cannot be nil")
)

// Item is one training tuple served by the dataset view. Lengths are derived
// from the stored sequences, not stored themselves.
type Item struct {
	Tokens           []int16
	TokenLength      int
	Speech           [][]float32
	SpeechLength     int
	SpeakerEmbedding []float32
}

// Dataset is the random-access view over a built corpus. The decoder that
// turns cached speech codes back into continuous features is constructed
// lazily on first access and cached for the life of the view: decoders
// belong to the process that performs the access, so they cannot be built at
// view-construction time on another host or process.
type Dataset struct {
	corpus       *core.Corpus
	codecFactory core.CodecFactory

	mu      sync.Mutex
	decoder core.Codec
}

// NewDataset wraps a corpus in an indexed view.
func NewDataset(c *core.Corpus, codecFactory core.CodecFactory) (*Dataset, error) {
	if codecFactory == nil {
		return nil, ErrNilCodecFactory
	}

	if len(c.Embeddings) != len(c.Datapoints) || len(c.SourcePaths) != len(c.Datapoints) {
		return nil, fmt.Errorf("%w: %d datapoints, %d embeddings, %d paths",
			ErrMisalignedCorpus, len(c.Datapoints), len(c.Embeddings), len(c.SourcePaths))
	}

	return &Dataset{corpus: c, codecFactory: codecFactory}, nil
}

// Len returns the number of datapoints in the view.
func (d *Dataset) Len() int {
	return len(d.corpus.Datapoints)
}

// Get returns the training tuple at index, decoding the cached speech codes
// into continuous features.
func (d *Dataset) Get(index int) (*Item, error) {
	if index < 0 || index >= len(d.corpus.Datapoints) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(d.corpus.Datapoints))
	}

	decoder, err := d.lazyDecoder()
	if err != nil {
		return nil, err
	}

	datapoint := d.corpus.Datapoints[index]

	speech, err := decoder.Decode(datapoint.SpeechCodes)
	if err != nil {
		return nil, fmt.Errorf("failed to decode speech codes for '%s': %w", datapoint.SourcePath, err)
	}

	return &Item{
		Tokens:           datapoint.Tokens,
		TokenLength:      len(datapoint.Tokens),
		Speech:           speech,
		SpeechLength:     len(datapoint.SpeechCodes),
		SpeakerEmbedding: d.corpus.Embeddings[index],
	}, nil
}

// lazyDecoder initializes the view's decoder on first use, guarded by a lock
// since training readers may share one view across goroutines.
func (d *Dataset) lazyDecoder() (core.Codec, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.decoder != nil {
		return d.decoder, nil
	}

	decoder, err := d.codecFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to construct decoder: %w", err)
	}

	d.decoder = decoder

	return decoder, nil
}
