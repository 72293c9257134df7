// Package update defines the instruction protocol describing where in the
// shift workbook each extracted fact must be written, and the engine that
// applies instruction batches to one open workbook.
package update

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"shiftledger/internal/common"
)

// Section is a row grouping on the pricing sheet, demarcated by a marker in
// column A that persists until the next marker. A=diesel, B=92-octane,
// C=95-octane.
type Section string

const (
	SectionA Section = "A"
	SectionB Section = "B"
	SectionC Section = "C"
)

func (s Section) valid() bool {
	return s == SectionA || s == SectionB || s == SectionC
}

// ColumnValue pairs a column label with the value to write there.
type ColumnValue struct {
	Column string
	Value  float64
}

// Instruction is one workbook mutation. The three variants form a closed
// set; each addresses its target differently.
type Instruction interface {
	// TargetSheet names the sheet the instruction writes to.
	TargetSheet() string
	// Validate checks the instruction shape, independent of any workbook.
	Validate() error
	isInstruction()
}

// CellUpdate writes a value at an absolute row/column address.
type CellUpdate struct {
	Sheet  string
	Row    int
	Column string
	Value  float64
}

func (u CellUpdate) TargetSheet() string { return u.Sheet }
func (u CellUpdate) isInstruction()      {}

func (u CellUpdate) Validate() error {
	if u.Sheet == "" {
		return common.NewAppError("VALIDATION", "cell update missing sheet", common.ErrValidation)
	}
	if u.Row < 1 {
		return common.NewAppError("VALIDATION", fmt.Sprintf("cell update row %d out of range", u.Row), common.ErrValidation)
	}
	if _, err := ColumnIndex(u.Column); err != nil {
		return err
	}
	return nil
}

// CategoricalUpdate writes a value into the row matched by a normalized
// lookup key within one section of the sheet.
type CategoricalUpdate struct {
	Sheet     string
	Section   Section
	LookupKey string
	Column    string
	Value     float64
}

func (u CategoricalUpdate) TargetSheet() string { return u.Sheet }
func (u CategoricalUpdate) isInstruction()      {}

func (u CategoricalUpdate) Validate() error {
	if u.Sheet == "" {
		return common.NewAppError("VALIDATION", "categorical update missing sheet", common.ErrValidation)
	}
	if !u.Section.valid() {
		return common.NewAppError("VALIDATION", fmt.Sprintf("unknown section %q", u.Section), common.ErrValidation)
	}
	if u.LookupKey == "" {
		return common.NewAppError("VALIDATION", "categorical update missing lookup key", common.ErrValidation)
	}
	if _, err := ColumnIndex(u.Column); err != nil {
		return err
	}
	return nil
}

// DateKeyedUpdate writes one or more columns into the row whose day-number
// cell equals Day. A missing day row is a logged no-op, not a failure.
type DateKeyedUpdate struct {
	Sheet   string
	Day     int
	Columns []ColumnValue
}

func (u DateKeyedUpdate) TargetSheet() string { return u.Sheet }
func (u DateKeyedUpdate) isInstruction()      {}

func (u DateKeyedUpdate) Validate() error {
	if u.Sheet == "" {
		return common.NewAppError("VALIDATION", "date-keyed update missing sheet", common.ErrValidation)
	}
	if u.Day < 1 || u.Day > 31 {
		return common.NewAppError("VALIDATION", fmt.Sprintf("day %d out of range", u.Day), common.ErrValidation)
	}
	if len(u.Columns) == 0 {
		return common.NewAppError("VALIDATION", "date-keyed update has no columns", common.ErrValidation)
	}
	for _, cv := range u.Columns {
		if _, err := ColumnIndex(cv.Column); err != nil {
			return err
		}
	}
	return nil
}

// ColumnIndex converts a column label to its zero-based index ("A"=0,
// "Z"=25, "AA"=26).
func ColumnIndex(label string) (int, error) {
	n, err := excelize.ColumnNameToNumber(label)
	if err != nil {
		return 0, common.NewAppError("VALIDATION", fmt.Sprintf("bad column label %q", label), common.ErrValidation)
	}
	return n - 1, nil
}

// ColumnLabel is the inverse of ColumnIndex.
func ColumnLabel(index int) (string, error) {
	name, err := excelize.ColumnNumberToName(index + 1)
	if err != nil {
		return "", common.NewAppError("VALIDATION", fmt.Sprintf("bad column index %d", index), common.ErrValidation)
	}
	return name, nil
}
