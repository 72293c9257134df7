// Package batch coordinates one "process all files" run: concurrent
// per-source extraction, a race-free join, then a single apply and save
// against the shift workbook.
package batch

import (
	"context"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"shiftledger/constants"
	"shiftledger/internal/config"
	"shiftledger/internal/extract"
	"shiftledger/internal/history"
	"shiftledger/internal/update"
	"shiftledger/internal/vision"
)

// Source is one uploaded file to process.
type Source struct {
	Path     string
	Category constants.Category
}

// SourceResult is the per-source outcome the operator sees.
type SourceResult struct {
	Source       Source
	Status       constants.SourceStatus
	Err          error
	Processed    map[string]float64
	Instructions int
}

// Report summarizes one run. A save failure leaves the applied updates in
// the engine's in-memory workbook; the operator can retry the save without
// redoing extraction.
type Report struct {
	RunID    string
	Sources  []SourceResult
	Batch    int
	ApplyErr error
	SaveErr  error
}

// Failed reports whether the run ended without a saved workbook.
func (r *Report) Failed() bool {
	return r.ApplyErr != nil || r.SaveErr != nil
}

// Runner wires the extractors, the vision client, the update engine, and
// the run history together.
type Runner struct {
	logger     *slog.Logger
	engine     *update.Engine
	recognizer vision.Recognizer
	store      *history.Store // optional
}

func NewRunner(logger *slog.Logger, engine *update.Engine, recognizer vision.Recognizer, store *history.Store) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, engine: engine, recognizer: recognizer, store: store}
}

// Run processes every source concurrently, joins on all of them (failures
// included), applies the accumulated instruction batch exactly once, then
// saves the workbook once.
func (r *Runner) Run(ctx context.Context, shift *config.Shift, workbookPath string, sources []Source) *Report {
	runID := uuid.New().String()
	start := time.Now()
	r.logger.Info("batch.run.start",
		"run_id", runID,
		"sources", len(sources),
		"shift_date", shift.Date.Format("2006-01-02"),
	)

	if r.store != nil {
		if err := r.store.BeginRun(history.Run{
			ID:           runID,
			StartedAt:    start,
			ShiftDate:    shift.Date.Format("2006-01-02"),
			GasPrice:     shift.GasPrice,
			WorkbookPath: workbookPath,
			Status:       constants.RunStatusRunning,
		}); err != nil {
			r.logger.Warn("batch.history.begin_failed", "run_id", runID, "error", err)
		}
	}

	report := &Report{
		RunID:   runID,
		Sources: make([]SourceResult, len(sources)),
	}
	for i, src := range sources {
		report.Sources[i] = SourceResult{Source: src, Status: constants.SourceUploaded}
	}

	// Extraction is embarrassingly parallel: no shared mutable state beyond
	// the pending batch, which only sees list appends under mu. The
	// WaitGroup is the join barrier; a failed source still counts as done.
	var (
		mu      sync.Mutex
		pending []update.Instruction
		wg      sync.WaitGroup
	)
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			mu.Lock()
			report.Sources[i].Status = constants.SourceProcessing
			mu.Unlock()
			res := r.processSource(ctx, shift, src)
			mu.Lock()
			pending = append(pending, res.updates...)
			report.Sources[i] = res.SourceResult
			mu.Unlock()
		}(i, src)
	}
	wg.Wait()

	report.Batch = len(pending)
	r.logger.Info("batch.join.done", "run_id", runID, "instructions", len(pending))

	if err := r.engine.Apply(pending); err != nil {
		report.ApplyErr = err
		r.logger.Error("batch.apply.failed", "run_id", runID, "error", err)
	} else if err := r.engine.Save(); err != nil {
		report.SaveErr = err
		r.logger.Error("batch.save.failed", "run_id", runID, "error", err)
	}

	r.record(report)
	r.logger.Info("batch.run.done",
		"run_id", runID,
		"failed", report.Failed(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return report
}

type sourceOutcome struct {
	SourceResult
	updates []update.Instruction
}

func (r *Runner) processSource(ctx context.Context, shift *config.Shift, src Source) sourceOutcome {
	log := r.logger.With("source", filepath.Base(src.Path), "category", string(src.Category))
	log.Info("batch.source.processing")

	res, err := r.extractSource(ctx, shift, src)
	if err != nil {
		log.Error("batch.source.failed", "error", err)
		return sourceOutcome{SourceResult: SourceResult{
			Source: src,
			Status: constants.SourceFailed,
			Err:    err,
		}}
	}

	log.Info("batch.source.done", "instructions", len(res.Updates))
	return sourceOutcome{
		SourceResult: SourceResult{
			Source:       src,
			Status:       constants.SourceDone,
			Processed:    res.Processed,
			Instructions: len(res.Updates),
		},
		updates: res.Updates,
	}
}

func (r *Runner) extractSource(ctx context.Context, shift *config.Shift, src Source) (extract.Result, error) {
	switch {
	case src.Category.IsTable():
		return extract.FromTable(src.Category, src.Path, shift)
	case src.Category.IsVision():
		img, err := os.ReadFile(src.Path)
		if err != nil {
			return extract.Result{}, err
		}
		raw, err := r.recognizer.Recognize(ctx, vision.Request{
			Category:  src.Category,
			ImageName: filepath.Base(src.Path),
			MIMEType:  imageMIME(src.Path),
			Image:     img,
		})
		if err != nil {
			return extract.Result{}, err
		}
		return extract.FromVision(src.Category, raw, shift)
	default:
		_, err := extract.FromVision(src.Category, nil, shift) // yields the unknown-category error
		return extract.Result{}, err
	}
}

func (r *Runner) record(report *Report) {
	if r.store == nil {
		return
	}
	for _, sr := range report.Sources {
		errMsg := ""
		if sr.Err != nil {
			errMsg = sr.Err.Error()
		}
		if err := r.store.RecordSource(history.SourceRecord{
			RunID:        report.RunID,
			Source:       sr.Source.Path,
			Category:     sr.Source.Category,
			Status:       sr.Status,
			Instructions: sr.Instructions,
			ErrorMessage: errMsg,
		}); err != nil {
			r.logger.Warn("batch.history.source_failed", "run_id", report.RunID, "error", err)
		}
	}

	status := constants.RunStatusApplied
	errMsg := ""
	if report.ApplyErr != nil {
		status = constants.RunStatusFailed
		errMsg = report.ApplyErr.Error()
	} else if report.SaveErr != nil {
		status = constants.RunStatusFailed
		errMsg = report.SaveErr.Error()
	}
	if err := r.store.FinishRun(report.RunID, status, report.Batch, errMsg); err != nil {
		r.logger.Warn("batch.history.finish_failed", "run_id", report.RunID, "error", err)
	}
}

func imageMIME(path string) string {
	ext := filepath.Ext(path)
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "image/png"
	}
}
