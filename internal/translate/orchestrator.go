package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/subtrans/internal/sentence"
)

// Progress is called with the number of sentences resolved so far.
type Progress func(done, total int)

// Result is the outcome of translating a document's sentences.
type Result struct {
	Sentences []sentence.Sentence `json:"-"`
	// CharsToTranslate counts all source characters, glossary hits included.
	CharsToTranslate int `json:"chars_to_translate"`
	// TranslatedChars counts only characters sent to the backend.
	TranslatedChars int           `json:"translated_chars"`
	GlossaryHits    int           `json:"glossary_hits"`
	Batches         int           `json:"batches"`
	Duration        time.Duration `json:"duration"`
}

// Orchestrator fans sentences out to a backend in batches.
type Orchestrator struct {
	backend     Backend
	maxInFlight int
	log         *slog.Logger
}

func NewOrchestrator(backend Backend, maxInFlight int, log *slog.Logger) *Orchestrator {
	if maxInFlight <= 0 {
		maxInFlight = 4
	}
	return &Orchestrator{backend: backend, maxInFlight: maxInFlight, log: log}
}

type batch struct {
	texts   []string
	indices [][]int // sentence indices per text
}

type batchResult struct {
	n     int
	texts []string
	err   error
}

// Translate resolves every sentence from the glossary or the backend and
// returns them in input order. Completed batches are written to the glossary
// as they arrive. Cancelling ctx stops dispatch of further batches and fails
// with ErrCancelled; batches already in flight are left to finish.
func (o *Orchestrator) Translate(ctx context.Context, sentences []sentence.Sentence, g *Glossary, progress Progress) (Result, error) {
	start := time.Now()
	source, target := g.Pair()
	res := Result{Sentences: make([]sentence.Sentence, len(sentences))}
	if progress == nil {
		progress = func(int, int) {}
	}

	// Glossary hits resolve immediately; identical texts share one request slot.
	var (
		pending []string
		slots   = make(map[string][]int)
		done    int
	)
	for i, s := range sentences {
		res.CharsToTranslate += utf8.RuneCountInString(s.Text)
		if strings.TrimSpace(s.Text) == "" {
			res.Sentences[i] = s
			done++
			continue
		}
		if tr, ok := g.Lookup(s.Text); ok {
			res.Sentences[i] = s.WithText(tr)
			res.GlossaryHits++
			done++
			continue
		}
		if _, seen := slots[s.Text]; !seen {
			pending = append(pending, s.Text)
		}
		slots[s.Text] = append(slots[s.Text], i)
	}
	progress(done, len(sentences))

	size := max(1, o.backend.MaxBatchSize())
	var batches []batch
	for i := 0; i < len(pending); i += size {
		b := batch{texts: pending[i:min(i+size, len(pending))]}
		for _, t := range b.texts {
			b.indices = append(b.indices, slots[t])
		}
		batches = append(batches, b)
	}
	res.Batches = len(batches)

	o.log.Info("translating",
		"backend", o.backend.Name(),
		"sentences", len(sentences),
		"glossary_hits", res.GlossaryHits,
		"batches", len(batches))

	if len(batches) > 0 {
		if err := o.run(ctx, batches, sentences, g, &res, done, progress); err != nil {
			return Result{}, err
		}
	}

	res.Duration = time.Since(start)
	o.log.Info("translation complete",
		"source", source,
		"target", target,
		"translated_chars", res.TranslatedChars,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, batches []batch, sentences []sentence.Sentence, g *Glossary, res *Result, done int, progress Progress) error {
	source, target := g.Pair()

	results := make(chan batchResult, len(batches))
	sem := make(chan struct{}, o.maxInFlight)
	dispatchCtx, stop := context.WithCancel(ctx)
	defer stop()

	// Calls outlive cancellation so in-flight batches finish cleanly.
	callCtx := context.WithoutCancel(ctx)

	go func() {
		for n, b := range batches {
			select {
			case sem <- struct{}{}:
			case <-dispatchCtx.Done():
				return
			}
			go func(n int, b batch) {
				defer func() { <-sem }()
				o.log.Debug("dispatch batch", "batch", n, "items", len(b.texts))
				texts, err := o.backend.TranslateBatch(callCtx, b.texts, source, target)
				results <- batchResult{n: n, texts: texts, err: err}
			}(n, b)
		}
	}()

	for range batches {
		var r batchResult
		select {
		case r = <-results:
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}

		if r.err != nil {
			return fmt.Errorf("batch %d: %w", r.n, r.err)
		}
		b := batches[r.n]
		if len(r.texts) != len(b.texts) {
			return fmt.Errorf("batch %d: %w: sent %d texts, got %d", r.n, ErrBatchMismatch, len(b.texts), len(r.texts))
		}

		for k, tr := range r.texts {
			g.Put(b.texts[k], tr)
			res.TranslatedChars += utf8.RuneCountInString(b.texts[k])
			for _, i := range b.indices[k] {
				res.Sentences[i] = sentences[i].WithText(tr)
				done++
			}
		}
		progress(done, len(sentences))

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
	}
	return nil
}
