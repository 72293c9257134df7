package batch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"shiftledger/constants"
	"shiftledger/internal/config"
	"shiftledger/internal/history"
	"shiftledger/internal/update"
	"shiftledger/internal/vision"
)

// fakeRecognizer serves canned fields per category and fails on demand. It
// is called concurrently, so the maps are read-only after construction.
type fakeRecognizer struct {
	fields map[constants.Category]map[string]any
	fail   map[constants.Category]error
}

func (f *fakeRecognizer) Recognize(_ context.Context, req vision.Request) (map[string]any, error) {
	if err := f.fail[req.Category]; err != nil {
		return nil, err
	}
	return f.fields[req.Category], nil
}

func testShift(t *testing.T) *config.Shift {
	t.Helper()
	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.Local)
	shift, err := config.NewShift(date, date.Add(8*time.Hour), date.Add(32*time.Hour), 7.10)
	if err != nil {
		t.Fatal(err)
	}
	return shift
}

func newWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), constants.SheetPricing)
	path := filepath.Join(t.TempDir(), "shift.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func newImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not really a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func cellValue(t *testing.T, path, cell string) string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	v, err := f.GetCellValue(constants.SheetPricing, cell)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

// One run with five concurrent sources, one of which fails: the batch must
// be applied exactly once after all five complete, carrying only the four
// successful sources' instructions.
func TestRunJoinsAllSourcesBeforeApplying(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	wbPath := newWorkbook(t)
	engine := update.NewEngine(logger)
	if err := engine.Open(wbPath); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = engine.Close() }()

	dir := t.TempDir()
	sources := []Source{
		{Path: newImage(t, dir, "pos.png"), Category: constants.POS},
		{Path: newImage(t, dir, "market.png"), Category: constants.Supermarket},
		{Path: newImage(t, dir, "gt1.png"), Category: constants.Guotong1},
		{Path: newImage(t, dir, "broken.png"), Category: constants.Didijiayou},
		{Path: newImage(t, dir, "gt2.png"), Category: constants.Guotong2},
	}
	rec := &fakeRecognizer{
		fields: map[constants.Category]map[string]any{
			constants.POS:         {"结算总金额": "900.00"},
			constants.Supermarket: {"现金": "600元"},
			constants.Guotong1:    {"订单金额": "1000.00", "退款订单金额": "100.00"},
			constants.Guotong2:    {"订单金额": "450.00", "退款订单金额": "0.00"},
		},
		fail: map[constants.Category]error{
			constants.Didijiayou: errors.New("model unavailable"),
		},
	}

	store, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	runner := NewRunner(logger, engine, rec, store)
	report := runner.Run(context.Background(), testShift(t), wbPath, sources)

	if report.Failed() {
		t.Fatalf("run failed: apply=%v save=%v", report.ApplyErr, report.SaveErr)
	}
	if report.Batch != 4 {
		t.Fatalf("batch size = %d, want 4", report.Batch)
	}

	var done, failed int
	for _, sr := range report.Sources {
		switch sr.Status {
		case constants.SourceDone:
			done++
			if sr.Instructions != 1 {
				t.Fatalf("%s: instructions = %d, want 1", sr.Source.Category, sr.Instructions)
			}
		case constants.SourceFailed:
			failed++
			if sr.Source.Category != constants.Didijiayou {
				t.Fatalf("wrong source failed: %s", sr.Source.Category)
			}
			if sr.Err == nil {
				t.Fatal("failed source has no error")
			}
		default:
			t.Fatalf("unexpected status %q", sr.Status)
		}
	}
	if done != 4 || failed != 1 {
		t.Fatalf("done=%d failed=%d, want 4/1", done, failed)
	}

	// The saved workbook reflects the four successful sources.
	if got := cellValue(t, wbPath, "E80"); got != "300" {
		t.Fatalf("E80 = %q", got)
	}
	if got := cellValue(t, wbPath, "H71"); got != "200" {
		t.Fatalf("H71 = %q", got)
	}
	if got := cellValue(t, wbPath, "H92"); got != "300" {
		t.Fatalf("H92 = %q", got)
	}
	if got := cellValue(t, wbPath, "H93"); got != "150" {
		t.Fatalf("H93 = %q", got)
	}

	// The failed source's target stayed untouched.
	if got := cellValue(t, wbPath, "C88"); got != "" {
		t.Fatalf("C88 = %q, want empty", got)
	}

	// History recorded the run and all five sources.
	runs, err := store.RecentRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	if runs[0].ID != report.RunID || runs[0].Status != constants.RunStatusApplied {
		t.Fatalf("unexpected run record: %+v", runs[0])
	}
	if runs[0].Instructions != 4 {
		t.Fatalf("recorded instructions = %d", runs[0].Instructions)
	}
	recs, err := store.RunSources(report.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 5 {
		t.Fatalf("source records = %d, want 5", len(recs))
	}
}

func TestRunWithoutHistoryStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	wbPath := newWorkbook(t)
	engine := update.NewEngine(logger)
	if err := engine.Open(wbPath); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = engine.Close() }()

	dir := t.TempDir()
	rec := &fakeRecognizer{
		fields: map[constants.Category]map[string]any{
			constants.POS: {"结算总金额": "90"},
		},
	}
	runner := NewRunner(logger, engine, rec, nil)
	report := runner.Run(context.Background(), testShift(t), wbPath, []Source{
		{Path: newImage(t, dir, "pos.png"), Category: constants.POS},
	})
	if report.Failed() {
		t.Fatalf("run failed: apply=%v save=%v", report.ApplyErr, report.SaveErr)
	}
	if got := cellValue(t, wbPath, "E80"); got != "30" {
		t.Fatalf("E80 = %q", got)
	}
}

func TestRunRecordsApplyFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	wbPath := newWorkbook(t)
	engine := update.NewEngine(logger)
	if err := engine.Open(wbPath); err != nil {
		t.Fatal(err)
	}
	// Closing the engine before the run makes the apply step fail.
	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	store, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	rec := &fakeRecognizer{
		fields: map[constants.Category]map[string]any{
			constants.POS: {"结算总金额": "90"},
		},
	}
	runner := NewRunner(logger, engine, rec, store)
	report := runner.Run(context.Background(), testShift(t), wbPath, []Source{
		{Path: newImage(t, dir, "pos.png"), Category: constants.POS},
	})
	if !report.Failed() || report.ApplyErr == nil {
		t.Fatal("expected apply failure")
	}

	runs, err := store.RecentRuns(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != constants.RunStatusFailed {
		t.Fatalf("unexpected run record: %+v", runs)
	}
	if runs[0].ErrorMessage == "" {
		t.Fatal("failed run has no error message")
	}
}
