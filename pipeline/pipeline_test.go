package pipeline

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/GLAO/errors"
	"github.com/teranos/GLAO/opd"
	"github.com/teranos/GLAO/stats"
)

func constFrame(t *testing.T, value float64) *opd.Map {
	t.Helper()
	data := make([]float64, 16)
	mask := make([]bool, 16)
	for i := range data {
		data[i] = value
		mask[i] = true
	}
	m, err := opd.New(4, 4, data, mask)
	require.NoError(t, err)
	return m
}

func emptyFrame(t *testing.T) *opd.Map {
	t.Helper()
	m, err := opd.New(4, 4, make([]float64, 16), make([]bool, 16))
	require.NoError(t, err)
	return m
}

func reduceFunc(idx int, m *opd.Map) (FrameResult, error) {
	metric, err := stats.Reduce(m)
	if err != nil {
		return FrameResult{}, err
	}
	return FrameResult{Metric: metric}, nil
}

func seriesSource(t *testing.T, n int) *opd.MemSource {
	t.Helper()
	frames := make([]*opd.Map, n)
	for i := range frames {
		frames[i] = constFrame(t, float64(i+1))
	}
	return opd.NewMemSource(map[string][]*opd.Map{"opd": frames})
}

// The aggregate must not depend on how many workers processed the
// series.
func TestRunWorkerCountInvariance(t *testing.T) {
	src := seriesSource(t, 200)

	var want stats.Series
	for i, workers := range []int{1, 2, 8} {
		res, err := Run(context.Background(), src.Frames("opd"), reduceFunc,
			Config{Workers: workers, KeepValues: true})
		require.NoError(t, err)
		require.Equal(t, int64(200), res.FramesOK)
		if i == 0 {
			want = res.Series
			continue
		}
		assert.Equal(t, want.Count, res.Series.Count, "workers=%d", workers)
		assert.InEpsilon(t, want.Mean, res.Series.Mean, 1e-9, "workers=%d", workers)
		assert.InEpsilon(t, want.RMS, res.Series.RMS, 1e-9, "workers=%d", workers)
		assert.Equal(t, want.Min, res.Series.Min, "workers=%d", workers)
		assert.Equal(t, want.Max, res.Series.Max, "workers=%d", workers)
		require.NotNil(t, res.Series.P50)
		assert.InEpsilon(t, *want.P50, *res.Series.P50, 1e-9, "workers=%d", workers)
	}
}

// A series of identical frames must report the frame's own RMS with
// zero spread.
func TestRunIdenticalFrames(t *testing.T) {
	frames := make([]*opd.Map, 100)
	for i := range frames {
		frames[i] = constFrame(t, 2.5)
	}
	src := opd.NewMemSource(map[string][]*opd.Map{"opd": frames})

	res, err := Run(context.Background(), src.Frames("opd"), reduceFunc, Config{Workers: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.FramesOK)
	assert.InDelta(t, 2.5, res.Series.RMS, 1e-12)
	assert.InDelta(t, 2.5, res.Series.Min, 1e-12)
	assert.InDelta(t, 2.5, res.Series.Max, 1e-12)
}

func TestRunAbortOnFrameError(t *testing.T) {
	frames := []*opd.Map{
		constFrame(t, 1), constFrame(t, 2), emptyFrame(t), constFrame(t, 3),
	}
	src := opd.NewMemSource(map[string][]*opd.Map{"opd": frames})

	_, err := Run(context.Background(), src.Frames("opd"), reduceFunc, Config{Workers: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyFrame))
	assert.Contains(t, err.Error(), "frame 2")
}

func TestRunSkipPolicyRecordsGaps(t *testing.T) {
	frames := []*opd.Map{
		constFrame(t, 3), emptyFrame(t), constFrame(t, 4), emptyFrame(t), constFrame(t, 5),
	}
	src := opd.NewMemSource(map[string][]*opd.Map{"opd": frames})

	res, err := Run(context.Background(), src.Frames("opd"), reduceFunc,
		Config{Workers: 2, Policy: PolicySkip})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.FramesOK)
	assert.Equal(t, []int{1, 3}, res.Gaps)
	assert.InDelta(t, 4.0, res.Series.Mean, 1e-12)
}

// Skip only covers per-frame degeneracies; I/O failures always abort.
func TestRunSkipDoesNotCoverIOErrors(t *testing.T) {
	src := opd.NewMemSource(map[string][]*opd.Map{"opd": {constFrame(t, 1)}})
	failing := func(idx int, m *opd.Map) (FrameResult, error) {
		return FrameResult{}, errors.Wrap(errors.ErrArraySourceIO, "truncated archive")
	}

	_, err := Run(context.Background(), src.Frames("opd"), failing,
		Config{Workers: 1, Policy: PolicySkip})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrArraySourceIO))
}

func TestRunSpectrum(t *testing.T) {
	src := seriesSource(t, 10)
	fitLike := func(idx int, m *opd.Map) (FrameResult, error) {
		metric, err := stats.Reduce(m)
		if err != nil {
			return FrameResult{}, err
		}
		v := float64(idx + 1)
		return FrameResult{
			Metric: metric,
			Coefs:  []float64{v, 2 * v},
			Var:    5 * v * v,
		}, nil
	}

	res, err := Run(context.Background(), src.Frames("opd"), fitLike,
		Config{Workers: 3, SpectrumModes: 2})
	require.NoError(t, err)
	require.NotNil(t, res.Spectrum)
	assert.Equal(t, int64(10), res.Spectrum.Count())

	// mean c² per mode over v=1..10: Σv²/10 = 38.5
	ms := res.Spectrum.MeanSquares()
	assert.InDelta(t, 38.5, ms[0], 1e-9)
	assert.InDelta(t, 4*38.5, ms[1], 1e-9)
	// the two modes carry all the power, so the final residual vanishes
	resid := res.Spectrum.ResidualRSS()
	assert.InDelta(t, 0.0, resid[1], 1e-6)
	assert.InDelta(t, math.Sqrt(4*38.5), resid[0], 1e-9)
}

func TestRunCancelledContext(t *testing.T) {
	src := seriesSource(t, 50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, src.Frames("opd"), reduceFunc, Config{Workers: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunEmptySeries(t *testing.T) {
	src := opd.NewMemSource(map[string][]*opd.Map{"opd": {}})
	_, err := Run(context.Background(), src.Frames("opd"), reduceFunc, Config{Workers: 2})
	assert.True(t, errors.Is(err, errors.ErrEmptyFrame))
}
