// Package compress holds the compression widget's state between requests.
package compress

import (
	"context"
	"errors"
	"io"
	"sync"

	"squeeze/internal/image"
	"squeeze/internal/logging"
)

var (
	// ErrSuperseded is returned by a run whose result was discarded because a
	// newer file selection or parameter change started after it.
	ErrSuperseded = errors.New("superseded by a newer request")
	ErrNoSource   = errors.New("no image selected")
)

// SourceInfo describes the loaded source image without its bytes.
type SourceInfo struct {
	Name        string
	ContentType string
	Format      image.Format
	Size        int64
	Width       int
	Height      int
}

type Snapshot struct {
	Source        *SourceInfo
	Params        image.Params
	Derived       *image.Result
	DerivedParams image.Params
	Err           error
	Generation    uint64
	Busy          bool
}

// Session owns one widget's source image, parameters and derived image.
// Every file selection or parameter change starts a new generation; a run
// commits its result only while its generation is still the latest.
// selection counts file selections and clears; a read in flight keeps its
// file unless a newer selection or clear happened meanwhile.
type Session struct {
	mu            sync.Mutex
	proc          image.Processor
	maxSize       int64
	source        *image.Source
	info          *SourceInfo
	params        image.Params
	derived       *image.Result
	derivedParams image.Params
	err           error
	gen           uint64
	done          uint64
	selection     uint64
	reading       bool
}

func NewSession(proc image.Processor, maxSize int64) *Session {
	return &Session{proc: proc, maxSize: maxSize, params: image.DefaultParams()}
}

// SelectFile replaces the source with the contents of r and runs the pipeline.
// Any failure leaves the session without a source and without derived output.
// Parameter changes made while r is being read apply to the new source.
func (s *Session) SelectFile(ctx context.Context, r io.Reader, contentType, name string) error {
	s.mu.Lock()
	s.nextLocked()
	s.selection++
	sel := s.selection
	s.source, s.info = nil, nil
	s.reading = true
	s.mu.Unlock()

	src, err := image.ReadSource(r, contentType, name, s.maxSize)

	s.mu.Lock()
	if sel != s.selection {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.reading = false
	if err != nil {
		s.failLocked(err)
		s.mu.Unlock()
		return err
	}
	s.source = src
	s.info = &SourceInfo{
		Name:        src.Name,
		ContentType: src.ContentType,
		Format:      src.Format,
		Size:        src.Size(),
	}
	gen, params := s.gen, s.params
	s.mu.Unlock()

	return s.run(ctx, gen, src, params)
}

// SetParams updates the compression parameters and reruns the pipeline when a source is loaded.
func (s *Session) SetParams(ctx context.Context, p image.Params) error {
	s.mu.Lock()
	s.params = p
	gen := s.nextLocked()
	src := s.source
	if src == nil {
		if !s.reading {
			s.done = gen
		}
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.run(ctx, gen, src, p)
}

// Clear discards the source and any derived output.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := s.nextLocked()
	s.selection++
	s.reading = false
	s.source, s.info = nil, nil
	s.done = gen
}

// Fail records a selection that failed before its file could be read,
// discarding the previous source as a completed selection would.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLocked()
	s.selection++
	s.reading = false
	s.failLocked(err)
}

// Derived returns the latest committed result with the parameters that produced it.
func (s *Session) Derived() (*image.Result, image.Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.derived != nil {
		return s.derived, s.derivedParams, nil
	}
	if s.err != nil {
		return nil, image.Params{}, s.err
	}
	return nil, image.Params{}, ErrNoSource
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Params:        s.params,
		Derived:       s.derived,
		DerivedParams: s.derivedParams,
		Err:           s.err,
		Generation:    s.gen,
		Busy:          s.done != s.gen,
	}
	if s.info != nil {
		info := *s.info
		snap.Source = &info
	}
	return snap
}

// nextLocked starts a new generation and resets the derived output.
func (s *Session) nextLocked() uint64 {
	s.gen++
	s.derived = nil
	s.derivedParams = image.Params{}
	s.err = nil
	return s.gen
}

func (s *Session) run(ctx context.Context, gen uint64, src *image.Source, p image.Params) error {
	if err := ctx.Err(); err != nil {
		// Cancelled before work started: keep the source so a later change can retry.
		s.mu.Lock()
		if gen == s.gen {
			s.done = gen
			s.err = err
		}
		s.mu.Unlock()
		return err
	}

	res, err := s.proc.Process(src.Data, p)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		logging.Get(logging.Compress).Printf("discard stale run gen=%d latest=%d", gen, s.gen)
		return ErrSuperseded
	}
	s.done = gen
	if err != nil {
		s.source, s.info = nil, nil
		s.err = err
		return err
	}
	if s.info != nil {
		s.info.Width, s.info.Height = res.SourceWidth, res.SourceHeight
	}
	s.derived = res
	s.derivedParams = p
	return nil
}

func (s *Session) failLocked(err error) {
	s.done = s.gen
	s.source, s.info = nil, nil
	s.derived = nil
	s.err = err
}
