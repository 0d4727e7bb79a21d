package retention

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
	"github.com/tayaladitya/dyslexofly/internal/core/ports"
	"github.com/tayaladitya/dyslexofly/internal/core/registry"
	"github.com/tayaladitya/dyslexofly/internal/infrastructure/storage/localfs"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fixture struct {
	clock    *fakeClock
	registry *registry.Registry
	uploads  *localfs.Storage
	audio    *localfs.Storage
	sched    *Scheduler
	start    time.Time
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	start := time.Now().Truncate(time.Second)
	clock := &fakeClock{now: start}

	uploads, err := localfs.New(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	audio, err := localfs.New(filepath.Join(t.TempDir(), "audio"))
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	reg := registry.New(registry.WithClock(clock.Now))
	sched := NewScheduler(cfg, reg, Areas{Uploads: uploads, Audio: audio}, slog.New(slog.DiscardHandler), WithClock(clock.Now))
	return &fixture{clock: clock, registry: reg, uploads: uploads, audio: audio, sched: sched, start: start}
}

func writeFile(t *testing.T, area *localfs.Storage, name string, age time.Duration, ref time.Time) string {
	t.Helper()
	path, err := area.Save(context.Background(), name, strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	mtime := ref.Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

func TestRunOnceRemovesUnregisteredStaleUpload(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	path := writeFile(t, f.uploads, "report.pdf", 90*time.Minute, f.start)

	report := f.sched.RunOnce(context.Background())
	if err := report.Err(); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if exists(path) {
		t.Fatalf("expected report.pdf to be removed")
	}
	files, _ := f.uploads.List(context.Background())
	if len(files) != 0 {
		t.Fatalf("expected empty upload area, got %+v", files)
	}
	if got := report.Sweep(SweepAggressiveUploads).Removed + report.Sweep(SweepOrphanUploads).Removed; got != 1 {
		t.Fatalf("expected exactly one removal, got %d", got)
	}
}

func TestRunOnceKeepsFreshUploads(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	path := writeFile(t, f.uploads, "fresh.pdf", 30*time.Minute, f.start)

	f.sched.RunOnce(context.Background())
	if !exists(path) {
		t.Fatalf("fresh upload must survive")
	}
}

func TestReadyDocumentSurvivesUntilMaxAge(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	f.clock.Set(f.start.Add(-2 * time.Hour))
	src := writeFile(t, f.uploads, "notes.txt", 2*time.Hour, f.start)
	put := f.registry.Put("notes.txt", src)
	if _, err := f.registry.MarkReadyIf("notes.txt", put.UploadTime); err != nil {
		t.Fatalf("MarkReadyIf() error = %v", err)
	}
	mp3 := writeFile(t, f.audio, "notes.mp3", 0, f.start)
	if _, err := f.registry.AttachAudioIf("notes.txt", put.UploadTime, mp3); err != nil {
		t.Fatalf("AttachAudioIf() error = %v", err)
	}

	f.clock.Set(f.start)
	f.sched.RunOnce(ctx)
	if _, err := f.registry.Get("notes.txt"); err != nil {
		t.Fatalf("ready document must survive the grace sweep: %v", err)
	}
	if !exists(src) || !exists(mp3) {
		t.Fatalf("files of ready document must survive")
	}

	f.clock.Set(f.start.Add(23 * time.Hour))
	report := f.sched.RunOnce(ctx)
	if _, err := f.registry.Get("notes.txt"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected eviction after max age, got %v", err)
	}
	if exists(src) || exists(mp3) {
		t.Fatalf("expected source and audio removed")
	}
	if got := report.Removed(); got != 2 {
		t.Fatalf("expected 2 files removed in total, got %d", got)
	}
}

func TestStaleProcessingDocumentIsEvicted(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.clock.Set(f.start.Add(-90 * time.Minute))
	src := writeFile(t, f.uploads, "scan.pdf", 90*time.Minute, f.start)
	f.registry.Put("scan.pdf", src)
	_ = f.registry.MarkFailed("scan.pdf", "no text layer")

	f.clock.Set(f.start)
	report := f.sched.RunOnce(context.Background())
	if _, err := f.registry.Get("scan.pdf"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected stuck document evicted, got %v", err)
	}
	if exists(src) {
		t.Fatalf("expected source removed")
	}
	if report.Sweep(SweepAggressiveUploads).Removed != 1 {
		t.Fatalf("unexpected report: %+v", report.Sweeps)
	}
}

func TestZeroGraceDisablesAggressiveSweep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UploadGrace = 0
	f := newFixture(t, cfg)
	path := writeFile(t, f.uploads, "report.pdf", 90*time.Minute, f.start)

	f.sched.RunOnce(context.Background())
	if !exists(path) {
		t.Fatalf("file younger than max age must survive without the aggressive sweep")
	}

	f.clock.Set(f.start.Add(23 * time.Hour))
	f.sched.RunOnce(context.Background())
	if exists(path) {
		t.Fatalf("orphan upload older than max age must be removed")
	}
}

func TestOrphanAudioSweepDetachesReference(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	src := writeFile(t, f.uploads, "book.txt", 0, f.start)
	put := f.registry.Put("book.txt", src)
	_, _ = f.registry.MarkReadyIf("book.txt", put.UploadTime)
	old := writeFile(t, f.audio, "old.mp3", 25*time.Hour, f.start)
	fresh := writeFile(t, f.audio, "fresh.mp3", time.Hour, f.start)
	_, _ = f.registry.AttachAudioIf("book.txt", put.UploadTime, old)
	_, _ = f.registry.AttachAudioIf("book.txt", put.UploadTime, fresh)
	unlinked := writeFile(t, f.audio, "unlinked.mp3", 30*time.Hour, f.start)

	report := f.sched.RunOnce(context.Background())
	if exists(old) || exists(unlinked) || !exists(fresh) {
		t.Fatalf("unexpected audio area state")
	}
	doc, err := f.registry.Get("book.txt")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(doc.AudioArtifacts) != 1 || doc.AudioArtifacts[0].Path != fresh {
		t.Fatalf("expected only fresh artifact referenced, got %+v", doc.AudioArtifacts)
	}
	if report.Sweep(SweepOrphanAudio).Removed != 2 {
		t.Fatalf("unexpected orphan audio count: %+v", report.Sweep(SweepOrphanAudio))
	}
}

// writePartial leaves a temp file behind the way a crash mid-write would.
func writePartial(t *testing.T, area *localfs.Storage, name string, age time.Duration, ref time.Time) string {
	t.Helper()
	path := filepath.Join(area.Root(), name)
	if err := os.WriteFile(path, []byte("half"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	mtime := ref.Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}
	return path
}

func TestAbandonedPartialUploadIsReclaimed(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	stale := writePartial(t, f.uploads, ".partial-123456", 48*time.Hour, f.start)
	fresh := writePartial(t, f.uploads, ".partial-654321", 10*time.Minute, f.start)

	report := f.sched.RunOnce(context.Background())
	if err := report.Err(); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if exists(stale) {
		t.Fatalf("abandoned partial upload must be removed")
	}
	if !exists(fresh) {
		t.Fatalf("in-flight upload must survive")
	}
	if got := report.Sweep(SweepAggressiveUploads).Removed + report.Sweep(SweepOrphanUploads).Removed; got != 1 {
		t.Fatalf("expected one removal, got %d", got)
	}

	f.clock.Set(f.start.Add(2 * time.Hour))
	f.sched.RunOnce(context.Background())
	if exists(fresh) {
		t.Fatalf("partial upload older than the grace must be removed")
	}
}

func TestPartialUploadReclaimedAtMaxAgeWithoutGrace(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UploadGrace = 0
	f := newFixture(t, cfg)
	path := writePartial(t, f.uploads, ".partial-777", 48*time.Hour, f.start)

	report := f.sched.RunOnce(context.Background())
	if exists(path) {
		t.Fatalf("partial upload older than max age must be removed")
	}
	if report.Sweep(SweepOrphanUploads).Removed != 1 {
		t.Fatalf("unexpected report: %+v", report.Sweeps)
	}
}

func TestAbandonedPartialAudioIsReclaimed(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	stale := writePartial(t, f.audio, ".partial-900", 25*time.Hour, f.start)
	fresh := writePartial(t, f.audio, ".partial-901", 2*time.Hour, f.start)

	report := f.sched.RunOnce(context.Background())
	if exists(stale) || !exists(fresh) {
		t.Fatalf("unexpected audio area state: stale=%v fresh=%v", exists(stale), exists(fresh))
	}
	if report.Sweep(SweepOrphanAudio).Removed != 1 {
		t.Fatalf("unexpected orphan audio count: %+v", report.Sweep(SweepOrphanAudio))
	}
}

type brokenArea struct {
	ports.FileArea
	panics bool
}

func (b brokenArea) List(context.Context) ([]domain.FileEntry, error) {
	if b.panics {
		panic("disk on fire")
	}
	return nil, errors.New("permission denied")
}

func TestSweepFailuresAreIsolated(t *testing.T) {
	for _, panics := range []bool{false, true} {
		f := newFixture(t, DefaultConfig())
		f.sched.areas.Audio = brokenArea{FileArea: f.audio, panics: panics}
		path := writeFile(t, f.uploads, "report.pdf", 90*time.Minute, f.start)

		report := f.sched.RunOnce(context.Background())
		if report.Sweep(SweepOrphanAudio).Err == nil {
			t.Fatalf("panics=%v: expected orphan audio sweep error", panics)
		}
		if report.Sweep(SweepAggressiveUploads).Err != nil || report.Sweep(SweepRegistry).Err != nil {
			t.Fatalf("panics=%v: unrelated sweeps must succeed: %+v", panics, report.Sweeps)
		}
		if exists(path) {
			t.Fatalf("panics=%v: upload sweep must still run", panics)
		}
		if report.Err() == nil {
			t.Fatalf("panics=%v: expected joined report error", panics)
		}
	}
}

type recordingRecorder struct {
	mu     sync.Mutex
	sweeps map[string]int
}

func (r *recordingRecorder) RecordSweep(sweep string, removed, _ int, _ error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps[sweep] += removed + 1
}

func TestRunStopsOnCancelAndRecords(t *testing.T) {
	rec := &recordingRecorder{sweeps: map[string]int{}}
	f := newFixture(t, DefaultConfig())
	f.sched.recorder = rec

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.sched.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		rec.mu.Lock()
		n := len(rec.sweeps)
		rec.mu.Unlock()
		if n == 4 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("first cycle did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run() did not exit after cancel")
	}
}

func TestRemoveAllCountsAndSkipsMissing(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	a := writeFile(t, f.uploads, "a.txt", 0, f.start)
	b := writeFile(t, f.audio, "b.mp3", 0, f.start)

	areas := Areas{Uploads: f.uploads, Audio: f.audio}
	n, err := areas.RemoveAll(ctx, []string{a, b, f.uploads.PathFor("missing.txt")})
	if err != nil || n != 2 {
		t.Fatalf("RemoveAll() = %d, %v", n, err)
	}

	n, err = areas.RemoveAll(ctx, []string{"/elsewhere/file"})
	if n != 0 || !domain.IsKind(err, domain.ErrIOFailure) {
		t.Fatalf("expected IO failure for foreign path, got %d, %v", n, err)
	}
}
