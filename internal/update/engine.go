package update

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"shiftledger/constants"
	"shiftledger/internal/common"
)

// CellKey addresses one cell for the accumulation allow-list.
type CellKey struct {
	Sheet  string
	Row    int
	Column string
}

// DefaultAccumulatingCells lists the cells that sum contributions from
// multiple sources within one batch instead of overwriting. Today that is
// only the shared handling-fee cell.
func DefaultAccumulatingCells() map[CellKey]struct{} {
	return map[CellKey]struct{}{
		{Sheet: constants.SheetPricing, Row: constants.HandlingFeeRow, Column: constants.HandlingFeeColumn}: {},
	}
}

// Engine owns the one open workbook handle for a session and applies
// instruction batches to it. All mutation and persistence goes through mu,
// which callers may share across engines bound to the same file.
type Engine struct {
	mu           *sync.Mutex
	logger       *slog.Logger
	accumulating map[CellKey]struct{}

	path string
	f    *excelize.File
}

// Option configures an Engine.
type Option func(*Engine)

// WithLock shares an external mutex, so several engines over the same
// workbook file serialize their writes.
func WithLock(mu *sync.Mutex) Option {
	return func(e *Engine) {
		if mu != nil {
			e.mu = mu
		}
	}
}

// WithAccumulatingCells replaces the accumulation allow-list.
func WithAccumulatingCells(cells map[CellKey]struct{}) Option {
	return func(e *Engine) { e.accumulating = cells }
}

// NewEngine builds an engine; the workbook is opened separately.
func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		mu:           &sync.Mutex{},
		logger:       logger,
		accumulating: DefaultAccumulatingCells(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Open loads the workbook at path, closing any previously open one. After a
// close forced by an external editor lock, a fresh Open restores full
// behavior; nothing row-related is cached between applies.
func (e *Engine) Open(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.f != nil {
		if err := e.f.Close(); err != nil {
			e.logger.Warn("engine.open.close_previous", "error", err)
		}
		e.f = nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return common.NewAppError("PERSISTENCE", fmt.Sprintf("open workbook %s", path), err)
	}
	e.f = f
	e.path = path
	e.logger.Info("engine.open.ok", "path", path, "sheets", len(f.GetSheetList()))
	return nil
}

// Close releases the workbook handle. Safe to call when already closed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.f == nil {
		return nil
	}
	err := e.f.Close()
	e.f = nil
	if err != nil {
		return common.NewAppError("PERSISTENCE", "close workbook", err)
	}
	e.logger.Info("engine.close.ok", "path", e.path)
	return nil
}

// Save persists the in-memory workbook to its bound path. A locked or
// unwritable file is fatal and surfaced to the operator; nothing is retried
// here and the pending in-memory state stays intact for a manual retry.
func (e *Engine) Save() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.f == nil {
		return common.ErrWorkbookClosed
	}
	start := time.Now()
	if err := e.f.SaveAs(e.path); err != nil {
		e.logger.Error("engine.save.failed", "path", e.path, "error", err)
		return common.NewAppError("PERSISTENCE", fmt.Sprintf("save workbook %s", e.path), err)
	}
	e.logger.Info("engine.save.ok", "path", e.path, "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// Apply validates the whole batch first, then executes every instruction
// against the in-memory workbook. Validation failure aborts before any
// write. Lookup misses (unknown pump id, absent day row) are warnings, not
// failures.
func (e *Engine) Apply(batch []Instruction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.f == nil {
		return common.ErrWorkbookClosed
	}

	sheets := make(map[string]struct{})
	for _, name := range e.f.GetSheetList() {
		sheets[name] = struct{}{}
	}
	for _, ins := range batch {
		if err := ins.Validate(); err != nil {
			return err
		}
		if _, ok := sheets[ins.TargetSheet()]; !ok {
			return common.NewAppError("VALIDATION",
				fmt.Sprintf("sheet %q not found in workbook", ins.TargetSheet()), common.ErrValidation)
		}
	}

	// Running sums for accumulating cells, scoped to this batch. The first
	// write to such a cell discards whatever the workbook held before.
	sums := make(map[CellKey]float64)

	for _, ins := range batch {
		var err error
		switch u := ins.(type) {
		case CellUpdate:
			err = e.applyCell(u, sums)
		case CategoricalUpdate:
			err = e.applyCategorical(u)
		case DateKeyedUpdate:
			err = e.applyDateKeyed(u)
		default:
			err = common.NewAppError("VALIDATION", fmt.Sprintf("unknown instruction type %T", ins), common.ErrValidation)
		}
		if err != nil {
			return err
		}
	}

	e.logger.Info("engine.apply.ok", "instructions", len(batch))
	return nil
}

func (e *Engine) applyCell(u CellUpdate, sums map[CellKey]float64) error {
	key := CellKey{Sheet: u.Sheet, Row: u.Row, Column: u.Column}
	value := u.Value
	if _, ok := e.accumulating[key]; ok {
		sums[key] += u.Value
		value = sums[key]
	}
	cell := u.Column + strconv.Itoa(u.Row)
	if err := e.f.SetCellValue(u.Sheet, cell, value); err != nil {
		return common.NewAppError("PERSISTENCE", fmt.Sprintf("set %s!%s", u.Sheet, cell), err)
	}
	return nil
}

func (e *Engine) applyCategorical(u CategoricalUpdate) error {
	rows, err := e.f.GetRows(u.Sheet)
	if err != nil {
		return common.NewAppError("PERSISTENCE", fmt.Sprintf("read rows of %s", u.Sheet), err)
	}
	rowNum, ok := findCategoricalRow(rows, u.Section, u.LookupKey, constants.PricingFirstDataRow)
	if !ok {
		e.logger.Warn("engine.apply.lookup_miss",
			"sheet", u.Sheet, "section", string(u.Section), "lookup_key", u.LookupKey)
		return nil
	}
	cell := u.Column + strconv.Itoa(rowNum)
	if err := e.f.SetCellValue(u.Sheet, cell, u.Value); err != nil {
		return common.NewAppError("PERSISTENCE", fmt.Sprintf("set %s!%s", u.Sheet, cell), err)
	}
	return nil
}

func (e *Engine) applyDateKeyed(u DateKeyedUpdate) error {
	rows, err := e.f.GetRows(u.Sheet)
	if err != nil {
		return common.NewAppError("PERSISTENCE", fmt.Sprintf("read rows of %s", u.Sheet), err)
	}
	rowNum, ok := findDayRow(rows, u.Day, constants.FuelDetailFirstDataRow)
	if !ok {
		e.logger.Warn("engine.apply.day_miss", "sheet", u.Sheet, "day", u.Day)
		return nil
	}
	for _, cv := range u.Columns {
		cell := cv.Column + strconv.Itoa(rowNum)
		if err := e.f.SetCellValue(u.Sheet, cell, cv.Value); err != nil {
			return common.NewAppError("PERSISTENCE", fmt.Sprintf("set %s!%s", u.Sheet, cell), err)
		}
	}
	return nil
}

// findCategoricalRow folds over rows carrying the current section marker
// downward (a marker in column A persists until the next one) and returns
// the 1-based row whose normalized column-B key equals the normalized
// lookup key within the wanted section.
func findCategoricalRow(rows [][]string, section Section, lookupKey string, firstRow int) (int, bool) {
	want := NormalizeLookupKey(lookupKey)
	current := ""
	for i, row := range rows {
		rowNum := i + 1
		if rowNum < firstRow {
			continue
		}
		if len(row) > 0 && strings.TrimSpace(row[0]) != "" {
			current = strings.TrimSpace(row[0])
		}
		if current != string(section) {
			continue
		}
		if len(row) < 2 || row[1] == "" {
			continue
		}
		if NormalizeLookupKey(row[1]) == want {
			return rowNum, true
		}
	}
	return 0, false
}

// findDayRow returns the 1-based row whose column-B cell holds the day
// number.
func findDayRow(rows [][]string, day int, firstRow int) (int, bool) {
	for i, row := range rows {
		rowNum := i + 1
		if rowNum < firstRow || len(row) < 2 {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			continue
		}
		if n == day {
			return rowNum, true
		}
	}
	return 0, false
}

// NormalizeLookupKey brings a pump identifier to its canonical form:
// trimmed, with a trailing 号 stripped. "3号" and "3" are the same pump;
// "03" is not.
func NormalizeLookupKey(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "号")
	return s
}
