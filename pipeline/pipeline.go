// Package pipeline runs the per-frame work of an error-budget study over
// a bounded-buffer producer / worker-pool pattern.
//
// A producer goroutine streams frames out of the array source into a
// bounded channel; a fixed pool of workers consumes them for fitting and
// reduction into per-worker accumulators; a final merge combines the
// partial accumulators with an order-independent operator. The modal
// basis is immutable and shared read-only by all workers, so no locking
// is needed around it. On the first fatal error the pipeline stops
// submitting new work, lets in-flight frames finish, discards their
// results, and reports the error together with how many frames had
// already succeeded.
package pipeline

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/teranos/GLAO/errors"
	"github.com/teranos/GLAO/logger"
	"github.com/teranos/GLAO/opd"
	"github.com/teranos/GLAO/stats"
)

// Policy decides what happens when a single frame fails with a per-frame
// error kind (underdetermined, ill-conditioned, empty frame).
type Policy string

const (
	// PolicyAbort stops the whole series on the first frame error.
	// This is the default: a degenerate fit is never silently replaced.
	PolicyAbort Policy = "abort"
	// PolicySkip drops the failing frame and records a gap.
	PolicySkip Policy = "skip"
)

// Config tunes the worker pool.
type Config struct {
	// Workers is the pool size. Zero means GOMAXPROCS.
	Workers int
	// Buffer is the frame channel capacity. Zero means 2×Workers.
	Buffer int
	// Policy selects the per-frame error policy. Empty means PolicyAbort.
	Policy Policy
	// KeepValues retains per-frame metrics so the series can report
	// percentiles.
	KeepValues bool
	// SpectrumModes enables modal-spectrum accumulation for that many
	// modes. Zero disables it.
	SpectrumModes int
}

// FrameResult is what a FrameFunc produces for one frame.
type FrameResult struct {
	Metric stats.Metric
	// Coefs carries modal coefficients when the study fits frames;
	// nil otherwise.
	Coefs []float64
	// Var is the frame's total variance, used for the residual spectrum.
	Var float64
}

// FrameFunc computes one frame's contribution. It must be safe for
// concurrent use; the pipeline calls it from every worker.
type FrameFunc func(idx int, m *opd.Map) (FrameResult, error)

// Result is the outcome of a pipeline run.
type Result struct {
	Series   stats.Series
	Spectrum *stats.SpectrumAccumulator // nil unless SpectrumModes > 0
	FramesOK int64
	Gaps     []int // frame indices skipped under PolicySkip, sorted
}

type frame struct {
	idx int
	m   *opd.Map
}

// Run drains the iterator through the worker pool. The context bounds
// the whole run; cancelling it (or hitting a caller deadline) aborts
// with the context's error.
func Run(ctx context.Context, it opd.FrameIter, fn FrameFunc, cfg Config) (*Result, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 2 * workers
	}
	policy := cfg.Policy
	if policy == "" {
		policy = PolicyAbort
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan frame, buffer)
	var (
		framesOK atomic.Int64
		firstErr error
		errOnce  sync.Once
		gapsMu   sync.Mutex
		gaps     []int
		wg       sync.WaitGroup
	)
	fatal := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	// Producer: the iterator is single-pass and not safe for concurrent
	// use, so one goroutine owns it.
	go func() {
		defer close(frames)
		for it.Next() {
			select {
			case frames <- frame{idx: it.Index(), m: it.Map()}:
			case <-runCtx.Done():
				return
			}
		}
		if err := it.Err(); err != nil {
			fatal(err)
		}
	}()

	accs := make([]*stats.Accumulator, workers)
	specs := make([]*stats.SpectrumAccumulator, workers)
	for w := 0; w < workers; w++ {
		accs[w] = stats.NewAccumulator(cfg.KeepValues)
		if cfg.SpectrumModes > 0 {
			specs[w] = stats.NewSpectrumAccumulator(cfg.SpectrumModes)
		}
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for f := range frames {
				select {
				case <-runCtx.Done():
					// Drain without processing once cancelled; results of
					// in-flight work are discarded with the run.
					continue
				default:
				}
				res, err := fn(f.idx, f.m)
				if err != nil {
					if policy == PolicySkip && errors.IsFrameError(err) {
						logger.Warnw("skipping frame", "frame", f.idx, "error", err)
						gapsMu.Lock()
						gaps = append(gaps, f.idx)
						gapsMu.Unlock()
						continue
					}
					fatal(errors.WrapFrame(err, f.idx))
					continue
				}
				accs[w].Add(res.Metric.RMS)
				if specs[w] != nil && res.Coefs != nil {
					if serr := specs[w].Add(res.Coefs, res.Var); serr != nil {
						fatal(errors.WrapFrame(serr, f.idx))
						continue
					}
				}
				framesOK.Add(1)
			}
		}(w)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, "pipeline cancelled")
	}
	if firstErr != nil {
		return nil, errors.Wrapf(firstErr, "after %d frames succeeded", framesOK.Load())
	}

	merged := accs[0]
	for _, acc := range accs[1:] {
		merged.Merge(acc)
	}
	series, err := merged.Series()
	if err != nil {
		return nil, err
	}

	result := &Result{Series: series, FramesOK: framesOK.Load()}
	if cfg.SpectrumModes > 0 {
		spec := specs[0]
		for _, s := range specs[1:] {
			if err := spec.Merge(s); err != nil {
				return nil, err
			}
		}
		result.Spectrum = spec
	}
	gapsMu.Lock()
	result.Gaps = append([]int(nil), gaps...)
	gapsMu.Unlock()
	sort.Ints(result.Gaps)
	return result, nil
}
