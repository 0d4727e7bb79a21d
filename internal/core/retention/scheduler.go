// Package retention periodically reclaims uploaded documents and derived audio once
// they are past their retention age, including files the registry no longer knows.
package retention

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

const (
	SweepAggressiveUploads = "aggressive_uploads"
	SweepRegistry          = "registry"
	SweepOrphanUploads     = "orphan_uploads"
	SweepOrphanAudio       = "orphan_audio"
)

// Registry is the part of the document registry the scheduler needs.
type Registry interface {
	ListExpired(cutoff time.Time) []string
	List() []domain.Document
	EvictIf(id string, expired func(domain.Document) bool) (domain.Document, bool)
	DetachAudio(path string) (string, bool)
}

// Recorder receives the outcome of every sweep.
type Recorder interface {
	RecordSweep(sweep string, removed, failed int, err error, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordSweep(string, int, int, error, time.Duration) {}

type Config struct {
	Interval time.Duration
	// UploadGrace is the age after which upload-area files not backing a ready
	// document are reclaimed. Zero disables the aggressive sweep.
	UploadGrace  time.Duration
	MaxAge       time.Duration
	ErrorBackoff time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:     time.Hour,
		UploadGrace:  time.Hour,
		MaxAge:       24 * time.Hour,
		ErrorBackoff: time.Minute,
	}
}

type SweepResult struct {
	Name    string
	Removed int
	Failed  int
	Err     error
}

type Report struct {
	StartedAt time.Time
	Sweeps    []SweepResult
}

func (r Report) Removed() int {
	n := 0
	for _, s := range r.Sweeps {
		n += s.Removed
	}
	return n
}

// Err joins sweep-level failures. Per-file failures are counted, not reported here.
func (r Report) Err() error {
	var errs []error
	for _, s := range r.Sweeps {
		if s.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, s.Err))
		}
	}
	return errors.Join(errs...)
}

func (r Report) Sweep(name string) SweepResult {
	for _, s := range r.Sweeps {
		if s.Name == name {
			return s
		}
	}
	return SweepResult{Name: name}
}

type Scheduler struct {
	cfg      Config
	registry Registry
	areas    Areas
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

type Option func(*Scheduler)

func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func NewScheduler(cfg Config, registry Registry, areas Areas, logger *slog.Logger, opts ...Option) *Scheduler {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = def.MaxAge
	}
	if cfg.UploadGrace < 0 {
		cfg.UploadGrace = 0
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = def.ErrorBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		cfg:      cfg,
		registry: registry,
		areas:    areas,
		logger:   logger,
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps immediately and then once per interval until ctx is cancelled. A cycle
// with sweep-level failures is retried after the error backoff instead.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("retention_started",
		"interval", s.cfg.Interval.String(),
		"upload_grace", s.cfg.UploadGrace.String(),
		"max_age", s.cfg.MaxAge.String(),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention_stopped")
			return nil
		case <-timer.C:
		}

		report := s.RunOnce(ctx)
		next := s.cfg.Interval
		if err := report.Err(); err != nil && ctx.Err() == nil {
			next = s.cfg.ErrorBackoff
			s.logger.Warn("retention_cycle_failed", "error", err, "retry_in", next.String())
		}
		timer.Reset(next)
	}
}

// RunOnce performs one cycle of all sweeps. Sweeps run concurrently and never
// affect each other; a panic inside one is reported as its error.
func (s *Scheduler) RunOnce(ctx context.Context) Report {
	now := s.now()
	sweeps := []struct {
		name string
		fn   func(context.Context, time.Time) (int, int, error)
	}{
		{SweepAggressiveUploads, s.sweepStaleUploads},
		{SweepRegistry, s.sweepRegistry},
		{SweepOrphanUploads, s.sweepOrphanUploads},
		{SweepOrphanAudio, s.sweepOrphanAudio},
	}

	report := Report{StartedAt: now, Sweeps: make([]SweepResult, len(sweeps))}
	var g errgroup.Group
	for i, sw := range sweeps {
		g.Go(func() error {
			started := time.Now()
			removed, failed, err := s.guard(ctx, sw.name, now, sw.fn)
			report.Sweeps[i] = SweepResult{Name: sw.name, Removed: removed, Failed: failed, Err: err}
			s.recorder.RecordSweep(sw.name, removed, failed, err, time.Since(started))
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("sweep_completed",
		"removed", report.Removed(),
		"duration_ms", time.Since(now).Milliseconds(),
	)
	return report
}

func (s *Scheduler) guard(ctx context.Context, name string, now time.Time, fn func(context.Context, time.Time) (int, int, error)) (removed, failed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panicked: %v", r)
		}
		if err != nil {
			s.logger.Error("sweep_failed", "sweep", name, "error", err)
		}
	}()
	return fn(ctx, now)
}

// sweepStaleUploads reclaims upload-area files older than the grace unless they
// back a ready document. A still-processing document owning such a file is evicted
// together with everything it owns. Temp files of abandoned writes are never owned.
func (s *Scheduler) sweepStaleUploads(ctx context.Context, now time.Time) (int, int, error) {
	if s.cfg.UploadGrace == 0 {
		return 0, 0, nil
	}
	files, err := s.areas.Uploads.List(ctx)
	if err != nil {
		return 0, 0, err
	}
	owners := sourceOwners(s.registry.List())

	removed, failed := 0, 0
	for _, f := range files {
		if ctx.Err() != nil {
			return removed, failed, ctx.Err()
		}
		if now.Sub(f.ModTime) <= s.cfg.UploadGrace {
			continue
		}

		owner, owned := owners[f.Path]
		if f.Pending || !owned {
			r, fl := s.removeFiles(ctx, SweepAggressiveUploads, []string{f.Path})
			removed, failed = removed+r, failed+fl
			continue
		}
		if owner.Status == domain.StatusReady {
			continue
		}

		evicted, ok := s.registry.EvictIf(owner.ID, func(d domain.Document) bool {
			return d.Status != domain.StatusReady && d.SourcePath == f.Path && d.UploadTime.Equal(owner.UploadTime)
		})
		if !ok {
			continue
		}
		s.logger.Info("document_evicted", "sweep", SweepAggressiveUploads, "document_id", evicted.ID, "error_reason", evicted.Error)
		r, fl := s.removeFiles(ctx, SweepAggressiveUploads, evicted.Paths())
		removed, failed = removed+r, failed+fl
	}
	return removed, failed, nil
}

// sweepRegistry evicts documents uploaded before now-maxAge and deletes their files.
func (s *Scheduler) sweepRegistry(ctx context.Context, now time.Time) (int, int, error) {
	cutoff := now.Add(-s.cfg.MaxAge)

	removed, failed := 0, 0
	for _, id := range s.registry.ListExpired(cutoff) {
		if ctx.Err() != nil {
			return removed, failed, ctx.Err()
		}
		evicted, ok := s.registry.EvictIf(id, func(d domain.Document) bool {
			return d.UploadTime.Before(cutoff)
		})
		if !ok {
			continue
		}
		s.logger.Info("document_evicted", "sweep", SweepRegistry, "document_id", evicted.ID, "upload_time", evicted.UploadTime)
		r, fl := s.removeFiles(ctx, SweepRegistry, evicted.Paths())
		removed, failed = removed+r, failed+fl
	}
	return removed, failed, nil
}

// sweepOrphanUploads deletes upload-area files no document owns once past maxAge.
func (s *Scheduler) sweepOrphanUploads(ctx context.Context, now time.Time) (int, int, error) {
	files, err := s.areas.Uploads.List(ctx)
	if err != nil {
		return 0, 0, err
	}
	owners := sourceOwners(s.registry.List())

	var stale []string
	for _, f := range files {
		if _, owned := owners[f.Path]; owned {
			continue
		}
		if now.Sub(f.ModTime) > s.cfg.MaxAge {
			stale = append(stale, f.Path)
		}
	}
	removed, failed := s.removeFiles(ctx, SweepOrphanUploads, stale)
	return removed, failed, nil
}

// sweepOrphanAudio deletes audio files past maxAge whether or not a document still
// references them; a surviving reference is detached first.
func (s *Scheduler) sweepOrphanAudio(ctx context.Context, now time.Time) (int, int, error) {
	files, err := s.areas.Audio.List(ctx)
	if err != nil {
		return 0, 0, err
	}

	removed, failed := 0, 0
	for _, f := range files {
		if ctx.Err() != nil {
			return removed, failed, ctx.Err()
		}
		if now.Sub(f.ModTime) <= s.cfg.MaxAge {
			continue
		}
		if f.Pending {
			s.logger.Info("partial_audio_reclaimed", "path", f.Path)
		} else if id, ok := s.registry.DetachAudio(f.Path); ok {
			s.logger.Info("audio_detached", "document_id", id, "path", f.Path)
		}
		r, fl := s.removeFiles(ctx, SweepOrphanAudio, []string{f.Path})
		removed, failed = removed+r, failed+fl
	}
	return removed, failed, nil
}

func (s *Scheduler) removeFiles(ctx context.Context, sweep string, paths []string) (int, int) {
	removed, failed := 0, 0
	for _, path := range paths {
		err := s.areas.Remove(ctx, path)
		switch {
		case err == nil:
			removed++
			s.logger.Debug("file_removed", "sweep", sweep, "path", path)
		case errors.Is(err, fs.ErrNotExist):
		default:
			failed++
			s.logger.Warn("file_remove_failed", "sweep", sweep, "path", path, "error", err)
		}
	}
	return removed, failed
}

func sourceOwners(docs []domain.Document) map[string]domain.Document {
	out := make(map[string]domain.Document, len(docs))
	for _, d := range docs {
		if d.SourcePath != "" {
			out[d.SourcePath] = d
		}
	}
	return out
}
