package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/subtrans/internal/config"
	"github.com/dgallion1/subtrans/internal/language"
	"github.com/dgallion1/subtrans/internal/store"
	"github.com/dgallion1/subtrans/internal/translate"
)

const sampleSRT = "1\n00:00:01,000 --> 00:00:03,000\nIch gehe heute nach Hause,\n\n" +
	"2\n00:00:03,500 --> 00:00:05,000\nweil es regnet.\n\n" +
	"3\n00:00:06,000 --> 00:00:07,000\n[Musik] Ja.\n\n" +
	"4\n00:00:08,000\nkaputt\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// upperBackend translates by upper-casing.
type upperBackend struct {
	calls atomic.Int32
}

func (u *upperBackend) Name() string      { return "upper" }
func (u *upperBackend) MaxBatchSize() int { return 10 }

func (u *upperBackend) TranslateBatch(_ context.Context, texts []string, _, _ string) ([]string, error) {
	u.calls.Add(1)
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = strings.ToUpper(t)
	}
	return out, nil
}

func newTestRunner(t *testing.T, backend translate.Backend, glossaries GlossaryStore) *Runner {
	t.Helper()
	r := NewRunner(language.DefaultRegistry(), glossaries, translate.BackendConfig{}, 2, discardLogger())
	if backend != nil {
		r.newBackend = func(string) (translate.Backend, error) { return backend, nil }
	}
	return r
}

func TestRunner_Run(t *testing.T) {
	backend := &upperBackend{}
	r := newTestRunner(t, backend, nil)

	var phases []JobStatus
	out, err := r.Run(context.Background(), "job-1", []byte(sampleSRT), Options{
		SourceLang: "de",
		TargetLang: "en",
		PurgeCC:    true,
		Prewash:    true,
		Shift:      time.Second,
	}, Hooks{Phase: func(s JobStatus, _ string) { phases = append(phases, s) }})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(phases) != 5 || phases[0] != StatusParsing || phases[4] != StatusReflowing {
		t.Errorf("unexpected phases %v", phases)
	}
	if len(out.Issues) != 1 {
		t.Errorf("expected one parser issue for the broken entry, got %+v", out.Issues)
	}
	if len(out.Sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %+v", out.Sentences)
	}
	if len(out.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(out.Entries))
	}

	first := strings.Join(out.Entries[0].Lines, " ") + " " + strings.Join(out.Entries[1].Lines, " ")
	if first != "ICH GEHE HEUTE NACH HAUSE, WEIL ES REGNET." {
		t.Errorf("unexpected layout of the first sentence: %q", first)
	}
	if out.Entries[2].Lines[0] != "- JA." {
		t.Errorf("expected dialogue hyphen to be restored, got %q", out.Entries[2].Lines)
	}
	if out.Entries[0].Timecode.Start != 2*time.Second {
		t.Errorf("expected shifted start, got %v", out.Entries[0].Timecode.Start)
	}

	data, err := out.Export("srt")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(string(data), "1\n00:00:02,000 --> 00:00:04,000\n") {
		t.Errorf("unexpected export:\n%s", data)
	}
	if out.Report.Usage.TranslatedChars == 0 || len(out.Report.PurgeChanges) != 1 {
		t.Errorf("unexpected report %+v", out.Report)
	}
}

func TestRunner_Bilingual(t *testing.T) {
	r := newTestRunner(t, &upperBackend{}, nil)
	out, err := r.Run(context.Background(), "job-2", []byte(sampleSRT), Options{
		SourceLang: "de", TargetLang: "en", PurgeCC: true, Bilingual: true,
	}, Hooks{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := out.Entries[len(out.Entries)-1]
	if len(last.Lines) != 2 || last.Lines[0] != "- JA." || last.Lines[1] != "- Ja." {
		t.Errorf("expected translated line above the original, got %q", last.Lines)
	}
}

func TestRunner_GlossaryPersists(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "g.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	backend := &upperBackend{}
	r := newTestRunner(t, backend, db)
	opts := Options{SourceLang: "de", TargetLang: "en"}

	if _, err := r.Run(context.Background(), "a", []byte(sampleSRT), opts, Hooks{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	calls := backend.calls.Load()

	out, err := r.Run(context.Background(), "b", []byte(sampleSRT), opts, Hooks{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if backend.calls.Load() != calls {
		t.Errorf("expected no backend calls on the second run")
	}
	if out.Report.Usage.GlossaryHits != 2 || out.Report.Usage.TranslatedChars != 0 {
		t.Errorf("expected all sentences from the glossary, got %+v", out.Report.Usage)
	}

	totals, err := db.UsageTotals(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("usage totals: %v", err)
	}
	if len(totals) != 1 || totals[0].Runs != 2 {
		t.Errorf("expected two recorded runs, got %+v", totals)
	}
}

func TestRunner_Errors(t *testing.T) {
	r := newTestRunner(t, &upperBackend{}, nil)

	_, err := r.Run(context.Background(), "e1", []byte("\n\n"), Options{SourceLang: "de", TargetLang: "en"}, Hooks{})
	if !errors.Is(err, ErrNoEntries) {
		t.Errorf("expected ErrNoEntries, got %v", err)
	}

	_, err = r.Run(context.Background(), "e2", []byte(sampleSRT), Options{SourceLang: "de", TargetLang: "xx"}, Hooks{})
	if !errors.Is(err, language.ErrUnknownLanguage) {
		t.Errorf("expected ErrUnknownLanguage, got %v", err)
	}

	plain := NewRunner(language.DefaultRegistry(), nil, translate.BackendConfig{}, 1, discardLogger())
	_, err = plain.Run(context.Background(), "e3", []byte(sampleSRT), Options{SourceLang: "de", TargetLang: "en", Engine: "nope"}, Hooks{})
	if !errors.Is(err, translate.ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
}

// gateBackend blocks every call until release is closed.
type gateBackend struct {
	started chan struct{}
	release chan struct{}
}

func (g *gateBackend) Name() string      { return "gate" }
func (g *gateBackend) MaxBatchSize() int { return 1 }

func (g *gateBackend) TranslateBatch(_ context.Context, texts []string, _, _ string) ([]string, error) {
	g.started <- struct{}{}
	<-g.release
	return texts, nil
}

func waitFor(t *testing.T, job *Job, want JobStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if job.Snapshot().Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s: expected status %s, got %s", job.ID, want, job.Snapshot().Status)
}

func TestOrchestrator_ProcessesJobs(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 4, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, newTestRunner(t, &upperBackend{}, nil), discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("ok", "a.srt", []byte(sampleSRT), Options{SourceLang: "de", TargetLang: "en"})
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitFor(t, job, StatusCompleted)

	if o.GetJob("ok") == nil || job.Output() == nil {
		t.Fatal("expected completed job with output")
	}
	if job.FileData() != nil {
		t.Error("expected file data to be released")
	}
	snap := job.Snapshot()
	if snap.Progress.TotalSentences != 2 || snap.Progress.SentencesTranslated != 2 || snap.Progress.Issues != 1 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
}

func TestOrchestrator_FailedJob(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 4, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, newTestRunner(t, &upperBackend{}, nil), discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("bad", "a.srt", []byte("nothing here"), Options{SourceLang: "de", TargetLang: "en"})
	o.Submit(job)
	waitFor(t, job, StatusFailed)
	if len(job.Snapshot().Progress.Errors) != 1 {
		t.Errorf("expected the error to be recorded, got %+v", job.Snapshot().Progress)
	}
}

func TestOrchestrator_Cancel(t *testing.T) {
	gate := &gateBackend{started: make(chan struct{}, 10), release: make(chan struct{})}
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 4, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, newTestRunner(t, gate, nil), discardLogger())
	o.Start(context.Background())
	defer o.Stop()
	defer close(gate.release)

	job := NewJob("slow", "a.srt", []byte(sampleSRT), Options{SourceLang: "de", TargetLang: "en"})
	o.Submit(job)
	<-gate.started

	if !o.Cancel("slow") {
		t.Fatal("expected running job to be cancellable")
	}
	waitFor(t, job, StatusCancelled)

	if o.Cancel("slow") {
		t.Error("expected cancelled job to refuse a second cancel")
	}
	if o.Cancel("missing") {
		t.Error("expected unknown job to refuse cancel")
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, newTestRunner(t, &upperBackend{}, nil), discardLogger())

	if err := o.Submit(NewJob("1", "a.srt", nil, Options{})); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	err := o.Submit(NewJob("2", "b.srt", nil, Options{}))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if o.GetJob("2").Snapshot().Status != StatusFailed {
		t.Error("expected rejected job to be marked failed")
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}

// modelBackend reports the model it would call.
type modelBackend struct{ upperBackend }

func (m *modelBackend) Model() string { return "claude-test" }

func TestRunner_ReportsModel(t *testing.T) {
	opts := Options{SourceLang: "de", TargetLang: "en"}

	out, err := newTestRunner(t, &modelBackend{}, nil).Run(context.Background(), "m1", []byte(sampleSRT), opts, Hooks{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Report.Model != "claude-test" {
		t.Errorf("expected model in report, got %q", out.Report.Model)
	}

	out, err = newTestRunner(t, &upperBackend{}, nil).Run(context.Background(), "m2", []byte(sampleSRT), opts, Hooks{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Report.Model != "" {
		t.Errorf("expected no model for a plain backend, got %q", out.Report.Model)
	}
}

func TestOrchestrator_RecoversFromPanic(t *testing.T) {
	r := newTestRunner(t, &upperBackend{}, nil)
	var panicked atomic.Bool
	r.newBackend = func(string) (translate.Backend, error) {
		if panicked.CompareAndSwap(false, true) {
			panic("segment without source")
		}
		return &upperBackend{}, nil
	}
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 4, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, r, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	bad := NewJob("boom", "a.srt", []byte(sampleSRT), Options{SourceLang: "de", TargetLang: "en"})
	o.Submit(bad)
	waitFor(t, bad, StatusFailed)

	snap := bad.Snapshot()
	if len(snap.Progress.Errors) != 1 || !strings.Contains(snap.Progress.Errors[0], "segment without source") {
		t.Errorf("expected the panic to be recorded, got %v", snap.Progress.Errors)
	}
	if bad.FileData() != nil {
		t.Error("expected file data to be released")
	}

	next := NewJob("after", "b.srt", []byte(sampleSRT), Options{SourceLang: "de", TargetLang: "en"})
	o.Submit(next)
	waitFor(t, next, StatusCompleted)
}
