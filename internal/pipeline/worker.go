package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/subtrans/internal/translate"
)

// Worker processes a single translation job.
type Worker struct {
	runner *Runner
	log    *slog.Logger
}

func NewWorker(runner *Runner, log *slog.Logger) *Worker {
	return &Worker{runner: runner, log: log}
}

// Process runs the full pipeline for a job and records the outcome on it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", "panic", r)
			job.SetFileData(nil)
			job.AddError(fmt.Sprintf("internal error: %v", r))
			job.SetStatus(StatusFailed, job.Snapshot().Phase)
		}
	}()
	if !job.bindCancel(cancel) {
		log.Info("job cancelled before start")
		job.SetStatus(StatusCancelled, "queued")
		return
	}

	out, err := w.runner.Run(jobCtx, job.ID, job.FileData(), job.Options, Hooks{
		Phase:    job.SetStatus,
		Progress: job.SetProgress,
	})
	job.SetFileData(nil)

	switch {
	case errors.Is(err, translate.ErrCancelled) || errors.Is(err, context.Canceled):
		log.Info("job cancelled")
		job.SetStatus(StatusCancelled, job.Snapshot().Phase)
	case err != nil:
		log.Error("job failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, job.Snapshot().Phase)
	default:
		job.SetOutput(out)
		job.SetStatus(StatusCompleted, "done")
		log.Info("job complete", "entries", len(out.Entries), "warnings", len(out.Warnings))
	}
}
