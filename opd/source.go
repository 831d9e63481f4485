package opd

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"

	"github.com/sbinet/npyio"

	"github.com/teranos/GLAO/errors"
)

// Schema declares the expected shape and dtype of a named array. The
// source checks it against archive headers before any numeric work.
type Schema struct {
	Rows  int
	Cols  int
	DType string // numpy descr, e.g. "<f8"
}

// FrameIter is a lazy, single-pass iterator over the frames of a named
// array. The usual loop:
//
//	it := src.Frames("opd")
//	for it.Next() {
//	    m, idx := it.Map(), it.Index()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
type FrameIter interface {
	Next() bool
	Map() *Map
	Index() int
	Err() error
}

// Source yields named OPD arrays from an archive or an in-memory buffer.
// It performs no numeric transformation; frames come out exactly as
// stored, with NaN folded into the validity mask.
type Source interface {
	// Check verifies the named array against the declared schema. It must
	// fail with ErrSchemaMismatch before iteration starts, not mid-fit.
	Check(name string, want Schema) error
	Frames(name string) FrameIter
	Close() error
}

// NpzSource reads one frame per .npz file (a zip of .npy arrays, one
// time step per archive, as written by the CFD monitor). The locator is
// a directory or a glob pattern; matched files are processed in sorted
// order.
type NpzSource struct {
	files []string
}

// Open resolves an archive locator into an NpzSource. A directory locator
// matches every *.npz inside it.
func Open(locator string) (*NpzSource, error) {
	pattern := locator
	if fi, err := os.Stat(locator); err == nil && fi.IsDir() {
		pattern = filepath.Join(locator, "*.npz")
	}
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrArraySourceIO, "bad locator %q: %v", locator, err)
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(errors.ErrArraySourceIO, "no archives match %q", locator)
	}
	sort.Strings(files)
	return &NpzSource{files: files}, nil
}

// Len returns the number of archives (frames) behind this source.
func (s *NpzSource) Len() int { return len(s.files) }

// First returns the path of the first archive in sorted order.
func (s *NpzSource) First() string { return s.files[0] }

// Check reads the header of the named array in every archive and
// compares it against the declared schema. Headers are read without
// their payloads, so the pass stays cheap and the frame data itself
// stays lazy; a mid-series archive with a different grid fails here,
// before any numeric work.
func (s *NpzSource) Check(name string, want Schema) error {
	for _, path := range s.files {
		rows, cols, dtype, err := readHeader(path, name)
		if err != nil {
			return err
		}
		if rows != want.Rows || cols != want.Cols {
			return errors.Wrapf(errors.ErrSchemaMismatch,
				"%s: array %q is %dx%d, config declares %dx%d", path, name, rows, cols, want.Rows, want.Cols)
		}
		if want.DType != "" && dtype != want.DType {
			return errors.Wrapf(errors.ErrSchemaMismatch,
				"%s: array %q has dtype %q, config declares %q", path, name, dtype, want.DType)
		}
	}
	return nil
}

// Frames iterates the named array across all archives.
func (s *NpzSource) Frames(name string) FrameIter {
	return &npzIter{src: s, name: name, idx: -1}
}

// Close releases the source. NpzSource opens archives per frame, so there
// is nothing held open between iterations.
func (s *NpzSource) Close() error { return nil }

type npzIter struct {
	src  *NpzSource
	name string
	idx  int
	cur  *Map
	err  error
}

func (it *npzIter) Next() bool {
	if it.err != nil || it.idx+1 >= len(it.src.files) {
		return false
	}
	it.idx++
	it.cur, it.err = readFrame(it.src.files[it.idx], it.name)
	return it.err == nil
}

func (it *npzIter) Map() *Map { return it.cur }
func (it *npzIter) Index() int { return it.idx }
func (it *npzIter) Err() error { return it.err }

// readFrame extracts the named array from one npz archive as a Map.
func readFrame(path, name string) (*Map, error) {
	var m *Map
	err := withEntry(path, name, func(r *npyio.Reader) error {
		rows, cols, err := gridShape(r.Header.Descr.Shape)
		if err != nil {
			return errors.Wrapf(err, "%s: array %q", path, name)
		}
		var data []float64
		if err := r.Read(&data); err != nil {
			return errors.Wrapf(errors.ErrArraySourceIO, "%s: reading %q: %v", path, name, err)
		}
		m, err = FromNaN(rows, cols, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// readHeader extracts shape and dtype of the named array without reading
// its payload.
func readHeader(path, name string) (rows, cols int, dtype string, err error) {
	err = withEntry(path, name, func(r *npyio.Reader) error {
		var gerr error
		rows, cols, gerr = gridShape(r.Header.Descr.Shape)
		dtype = r.Header.Descr.Type
		return gerr
	})
	return rows, cols, dtype, err
}

// ReadScalar reads a 1-element companion array (e.g. "opd max") from an
// npz archive. The CFD writer stores per-frame extrema next to the map.
func ReadScalar(path, name string) (float64, error) {
	var v float64
	err := withEntry(path, name, func(r *npyio.Reader) error {
		var data []float64
		if err := r.Read(&data); err != nil {
			return errors.Wrapf(errors.ErrArraySourceIO, "%s: reading %q: %v", path, name, err)
		}
		if len(data) != 1 {
			return errors.Wrapf(errors.ErrSchemaMismatch, "%s: %q has %d elements, want 1", path, name, len(data))
		}
		v = data[0]
		return nil
	})
	return v, err
}

// withEntry opens the npz archive and hands the named .npy entry to fn.
func withEntry(path, name string, fn func(*npyio.Reader) error) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return errors.Wrapf(errors.ErrArraySourceIO, "opening %s: %v", path, err)
	}
	defer zr.Close()

	entry := name + ".npy"
	for _, f := range zr.File {
		if f.Name != entry && f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return errors.Wrapf(errors.ErrArraySourceIO, "%s: opening entry %q: %v", path, f.Name, err)
		}
		defer rc.Close()
		r, err := npyio.NewReader(rc)
		if err != nil {
			return errors.Wrapf(errors.ErrArraySourceIO, "%s: parsing entry %q: %v", path, f.Name, err)
		}
		return fn(r)
	}
	return errors.Wrapf(errors.ErrArraySourceIO, "%s: no array named %q", path, name)
}

// gridShape normalizes a npy shape into rows/cols. 1D arrays are treated
// as a single row; higher ranks are rejected.
func gridShape(shape []int) (int, int, error) {
	switch len(shape) {
	case 1:
		return 1, shape[0], nil
	case 2:
		return shape[0], shape[1], nil
	default:
		return 0, 0, errors.Wrapf(errors.ErrSchemaMismatch, "rank-%d array, want 1 or 2", len(shape))
	}
}

// MemSource serves frames from memory. Used by tests and by callers that
// synthesize maps.
type MemSource struct {
	Arrays map[string][]*Map
}

// NewMemSource builds an in-memory source from named frame sequences.
func NewMemSource(arrays map[string][]*Map) *MemSource {
	return &MemSource{Arrays: arrays}
}

func (s *MemSource) Check(name string, want Schema) error {
	frames, ok := s.Arrays[name]
	if !ok || len(frames) == 0 {
		return errors.Wrapf(errors.ErrArraySourceIO, "no array named %q", name)
	}
	for i, m := range frames {
		if m.Rows != want.Rows || m.Cols != want.Cols {
			return errors.Wrapf(errors.ErrSchemaMismatch,
				"array %q frame %d is %dx%d, config declares %dx%d", name, i, m.Rows, m.Cols, want.Rows, want.Cols)
		}
	}
	return nil
}

func (s *MemSource) Frames(name string) FrameIter {
	return &memIter{frames: s.Arrays[name], idx: -1, name: name}
}

func (s *MemSource) Close() error { return nil }

type memIter struct {
	frames []*Map
	name   string
	idx    int
	err    error
}

func (it *memIter) Next() bool {
	if it.frames == nil && it.err == nil {
		it.err = errors.Wrapf(errors.ErrArraySourceIO, "no array named %q", it.name)
		return false
	}
	if it.idx+1 >= len(it.frames) {
		return false
	}
	it.idx++
	return true
}

// Map returns a copy of the current frame. Frame funcs may mutate the
// map in place (ZeroMean does), and the backing frames must stay intact
// so the source can be iterated again.
func (it *memIter) Map() *Map { return it.frames[it.idx].Clone() }
func (it *memIter) Index() int { return it.idx }
func (it *memIter) Err() error { return it.err }
