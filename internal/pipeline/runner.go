package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/subtrans/internal/cleanup"
	"github.com/dgallion1/subtrans/internal/language"
	"github.com/dgallion1/subtrans/internal/reflow"
	"github.com/dgallion1/subtrans/internal/report"
	"github.com/dgallion1/subtrans/internal/sentence"
	"github.com/dgallion1/subtrans/internal/srt"
	"github.com/dgallion1/subtrans/internal/store"
	"github.com/dgallion1/subtrans/internal/translate"
)

// ErrNoEntries is returned when the input holds no usable subtitle entries.
var ErrNoEntries = errors.New("no subtitle entries found")

// AutoDetect as SourceLang asks the runner to detect the source language.
const AutoDetect = "auto"

// Options select the stages and languages of one run.
type Options struct {
	SourceLang string        `json:"source_lang"`
	TargetLang string        `json:"target_lang"`
	Engine     string        `json:"engine"`
	DropFirst  int           `json:"drop_first,omitempty"`
	DropLast   int           `json:"drop_last,omitempty"`
	StripTags  bool          `json:"strip_tags"`
	PurgeCC    bool          `json:"purge_cc"`
	Prewash    bool          `json:"prewash"`
	Shift      time.Duration `json:"shift,omitempty"`
	Bilingual  bool          `json:"bilingual,omitempty"`
}

// Output is the result of a run.
type Output struct {
	SourceLang string
	TargetLang string
	// Entries are the final translated entries, ready to export.
	Entries    []srt.Entry
	Sentences  []sentence.Sentence
	Translated []sentence.Sentence
	Issues     []srt.Issue
	Warnings   []reflow.Warning
	Report     *report.Report
}

// Export renders the translated entries in one of the srt.Format* formats.
func (o *Output) Export(format string) ([]byte, error) {
	return srt.Export(o.Entries, format)
}

// Hooks receive progress while a run advances. Both are optional.
type Hooks struct {
	Phase    func(status JobStatus, phase string)
	Progress translate.Progress
}

// GlossaryStore persists glossaries and usage records.
type GlossaryStore interface {
	LoadGlossary(ctx context.Context, source, target string) (*translate.Glossary, error)
	SaveGlossary(ctx context.Context, g *translate.Glossary) error
	RecordUsage(ctx context.Context, u store.Usage) error
}

// Runner executes the full translation pipeline for one file.
type Runner struct {
	languages   *language.Registry
	glossaries  GlossaryStore
	newBackend  func(name string) (translate.Backend, error)
	maxInFlight int
	log         *slog.Logger
}

// NewRunner builds a runner. glossaries may be nil, in which case every run
// starts from an empty glossary.
func NewRunner(languages *language.Registry, glossaries GlossaryStore, backends translate.BackendConfig, maxInFlight int, log *slog.Logger) *Runner {
	backends.Log = log
	return &Runner{
		languages:  languages,
		glossaries: glossaries,
		newBackend: func(name string) (translate.Backend, error) {
			return translate.NewBackend(name, backends)
		},
		maxInFlight: maxInFlight,
		log:         log,
	}
}

// Run decodes, parses, cleans, segments, translates and reflows data.
func (r *Runner) Run(ctx context.Context, jobID string, data []byte, opts Options, hooks Hooks) (*Output, error) {
	log := r.log.With("job_id", jobID)
	phase := hooks.Phase
	if phase == nil {
		phase = func(JobStatus, string) {}
	}
	start := time.Now()

	// Phase 1: Parse
	phase(StatusParsing, "parsing")
	text, err := srt.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	entries, issues := srt.ParseString(text)
	for _, is := range issues {
		log.Warn("parser issue", "issue", is.String())
	}
	entries = srt.Trim(entries, opts.DropFirst, opts.DropLast)
	log.Info("parsed subtitles", "entries", len(entries), "issues", len(issues))

	// Phase 2: Clean
	phase(StatusCleaning, "cleaning")
	if opts.StripTags {
		entries = cleanup.StripTags(entries)
	}
	var purged, prewashed []cleanup.Change
	if opts.PurgeCC {
		entries, purged = cleanup.PurgeCC(entries, cleanup.DefaultPatterns(), nil)
	}
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	sourceCode, err := r.sourceLanguage(opts.SourceLang, entries)
	if err != nil {
		return nil, err
	}
	source, err := r.languages.Lookup(sourceCode)
	if err != nil {
		return nil, fmt.Errorf("source language: %w", err)
	}
	target, err := r.languages.Lookup(opts.TargetLang)
	if err != nil {
		return nil, fmt.Errorf("target language: %w", err)
	}
	log = log.With("source", source.Code, "target", target.Code)

	if opts.Prewash {
		entries, prewashed = cleanup.Prewash(entries, source, nil)
		log.Info("prewash complete", "changed", len(prewashed))
		if len(entries) == 0 {
			return nil, ErrNoEntries
		}
	}

	// Phase 3: Segment
	phase(StatusSegmenting, "segmenting")
	sentences := sentence.Segment(entries, source.Boundaries())
	log.Info("segmented", "sentences", len(sentences))

	// Phase 4: Translate
	phase(StatusTranslating, "translating")
	backend, err := r.newBackend(opts.Engine)
	if err != nil {
		return nil, err
	}
	if c, ok := backend.(interface{ Close() }); ok {
		defer c.Close()
	}
	var model string
	if m, ok := backend.(interface{ Model() string }); ok {
		model = m.Model()
		log = log.With("model", model)
	}
	g, err := r.loadGlossary(ctx, source.Code, target.Code)
	if err != nil {
		return nil, err
	}
	res, err := translate.NewOrchestrator(backend, r.maxInFlight, log).Translate(ctx, sentences, g, hooks.Progress)
	r.saveGlossary(ctx, log, g)
	if err != nil {
		return nil, err
	}
	r.recordUsage(ctx, log, store.Usage{
		JobID:            jobID,
		Engine:           backend.Name(),
		SourceLang:       source.Code,
		TargetLang:       target.Code,
		CharsToTranslate: res.CharsToTranslate,
		TranslatedChars:  res.TranslatedChars,
		GlossaryHits:     res.GlossaryHits,
		Duration:         res.Duration,
	})

	// Phase 5: Reflow
	phase(StatusReflowing, "reflowing")
	asm := reflow.NewAssembler(entries, target)
	for i, s := range res.Sentences {
		asm.Add(i, s)
	}
	translated := asm.Entries()
	if opts.Bilingual {
		translated = cleanup.Merge(translated, entries)
	}
	translated = nonEmpty(translated)
	if opts.Shift != 0 {
		translated = cleanup.Shift(translated, opts.Shift)
	}
	warnings := asm.Warnings()
	log.Info("reflow complete", "entries", len(translated), "warnings", len(warnings))

	sourceTexts := make([]string, len(sentences))
	for i, s := range sentences {
		sourceTexts[i] = s.Text
	}
	return &Output{
		SourceLang: source.Code,
		TargetLang: target.Code,
		Entries:    translated,
		Sentences:  sentences,
		Translated: res.Sentences,
		Issues:     issues,
		Warnings:   warnings,
		Report: &report.Report{
			SourceLang: source.Code,
			TargetLang: target.Code,
			Engine:     backend.Name(),
			Model:      model,
			Entries:    len(translated),
			Sentences:  sourceTexts,
			Usage: report.Usage{
				CharsToTranslate: res.CharsToTranslate,
				TranslatedChars:  res.TranslatedChars,
				GlossaryHits:     res.GlossaryHits,
				Duration:         time.Since(start),
			},
			Issues:         issues,
			PurgeChanges:   purged,
			PrewashChanges: prewashed,
			Warnings:       warnings,
		},
	}, nil
}

func (r *Runner) sourceLanguage(code string, entries []srt.Entry) (string, error) {
	if code != "" && !strings.EqualFold(code, AutoDetect) {
		return code, nil
	}
	var b strings.Builder
	for _, e := range entries {
		for _, l := range e.Lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
	}
	detected, ok := language.Detect(b.String())
	if !ok {
		return "", fmt.Errorf("source language: could not detect reliably")
	}
	return detected, nil
}

func (r *Runner) loadGlossary(ctx context.Context, source, target string) (*translate.Glossary, error) {
	if r.glossaries == nil {
		return translate.NewGlossary(source, target), nil
	}
	g, err := r.glossaries.LoadGlossary(ctx, source, target)
	if err != nil {
		return nil, fmt.Errorf("load glossary: %w", err)
	}
	return g, nil
}

// saveGlossary runs even after a failed translation so that completed
// batches are kept.
func (r *Runner) saveGlossary(ctx context.Context, log *slog.Logger, g *translate.Glossary) {
	if r.glossaries == nil {
		return
	}
	if err := r.glossaries.SaveGlossary(context.WithoutCancel(ctx), g); err != nil {
		log.Warn("glossary save failed", "error", err)
	}
}

func (r *Runner) recordUsage(ctx context.Context, log *slog.Logger, u store.Usage) {
	if r.glossaries == nil {
		return
	}
	if err := r.glossaries.RecordUsage(ctx, u); err != nil {
		log.Warn("usage record failed", "error", err)
	}
}

func nonEmpty(entries []srt.Entry) []srt.Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if len(e.Lines) > 0 {
			out = append(out, e)
		}
	}
	return out
}
