// Package worker partitions the shuffled key list and runs the extraction
// pool that builds the corpus chunks.
package worker

import (
	"errors"
	"sync"

	"github.com/book-expert/aligner-corpus/internal/core"
	"github.com/book-expert/logger"
)

var (
	// ErrNilFactory indicates that the pool was built without an extractor
	// factory.
	ErrNilFactory = errors.New("extractor factory cannot be nil")
	// ErrAllWorkersFailed indicates a systemic failure: no worker produced a
	// chunk because every one of them failed before processing.
	ErrAllWorkersFailed = errors.New("all workers failed")
)

// Runner processes one key partition into a chunk of datapoints.
type Runner interface {
	Run(keys []string) ([]core.CachedDatapoint, error)
}

// RunnerFactory builds a fresh runner for one worker. Each runner owns its
// own frontend and codec instances, so no model state is shared between
// workers.
type RunnerFactory func() (Runner, error)

// Partition splits keys into count contiguous slices that cover the list
// exactly once with sizes differing by at most one. A count below one is
// treated as one.
func Partition(keys []string, count int) [][]string {
	if count < 1 {
		count = 1
	}

	parts := make([][]string, 0, count)

	for i := range count {
		parts = append(parts, keys[i*len(keys)/count:(i+1)*len(keys)/count])
	}

	return parts
}

// Pool coordinates the isolated extraction workers.
type Pool struct {
	factory RunnerFactory
	workers int
	log     *logger.Logger
}

// NewPool creates a pool of the given size.
func NewPool(factory RunnerFactory, workers int, log *logger.Logger) (*Pool, error) {
	if factory == nil {
		return nil, ErrNilFactory
	}

	if workers < 1 {
		workers = 1
	}

	return &Pool{factory: factory, workers: workers, log: log}, nil
}

// Run partitions keys across the pool, runs one worker per partition and
// blocks until every worker has finished. Each worker appends its local
// result list to the shared pool exactly once, on completion. A failed
// worker contributes no chunk; Run itself fails only when every worker
// failed.
func (p *Pool) Run(keys []string) ([][]core.CachedDatapoint, error) {
	partitions := Partition(keys, p.workers)

	var (
		mu        sync.Mutex
		waitGroup sync.WaitGroup
		chunks    [][]core.CachedDatapoint
		failures  []error
	)

	for workerID, partition := range partitions {
		waitGroup.Add(1)

		go func(workerID int, partition []string) {
			defer waitGroup.Done()

			chunk, err := p.runWorker(workerID, partition)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				failures = append(failures, err)

				return
			}

			chunks = append(chunks, chunk)
		}(workerID, partition)
	}

	waitGroup.Wait()

	if len(failures) == len(partitions) {
		return nil, errors.Join(ErrAllWorkersFailed, errors.Join(failures...))
	}

	return chunks, nil
}

// runWorker builds this worker's own runner and processes its partition.
func (p *Pool) runWorker(workerID int, partition []string) ([]core.CachedDatapoint, error) {
	runner, err := p.factory()
	if err != nil {
		p.log.Error("Worker %d failed to initialize: %v", workerID, err)

		return nil, err
	}

	chunk, err := runner.Run(partition)
	if err != nil {
		p.log.Error("Worker %d failed: %v", workerID, err)

		return nil, err
	}

	p.log.Info("Worker %d finished: retained %d of %d samples", workerID, len(chunk), len(partition))

	return chunk, nil
}
