// Package tabular reads exported spreadsheet files into column-name-indexed
// rows. Each source category documents its own header-skip count and column
// layout; this package only does the mechanical part.
package tabular

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"shiftledger/internal/common"
)

// Row maps a column name to the cell's formatted string value. Absent or
// empty cells are empty strings.
type Row map[string]string

// ReadNamed opens the first sheet of the file at path, skips skip rows,
// treats the next row as the header, and returns the remaining rows keyed
// by the wanted column names. A wanted column missing from the header is a
// per-source error.
func ReadNamed(path string, skip int, want []string) ([]Row, error) {
	rows, err := sheetRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) <= skip {
		return nil, common.NewAppError("TABLE",
			fmt.Sprintf("%s: no header row after skipping %d rows", path, skip), common.ErrMissingField)
	}

	header := rows[skip]
	index := make(map[string]int, len(want))
	for _, name := range want {
		found := false
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				index[name] = i
				found = true
				break
			}
		}
		if !found {
			return nil, common.NewAppError("TABLE",
				fmt.Sprintf("%s: column %q not found in header", path, name), common.ErrMissingField)
		}
	}

	var out []Row
	for _, raw := range rows[skip+1:] {
		r := make(Row, len(want))
		empty := true
		for name, i := range index {
			v := ""
			if i < len(raw) {
				v = raw[i]
			}
			if strings.TrimSpace(v) != "" {
				empty = false
			}
			r[name] = v
		}
		if !empty {
			out = append(out, r)
		}
	}
	return out, nil
}

// ReadPositional is for exports without usable headers: skips skip rows and
// maps the 0-based column positions cols to names, one to one.
func ReadPositional(path string, skip int, cols []int, names []string) ([]Row, error) {
	if len(cols) != len(names) {
		return nil, common.NewAppError("TABLE", "cols and names length mismatch", common.ErrValidation)
	}
	rows, err := sheetRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) < skip {
		return nil, nil
	}

	var out []Row
	for _, raw := range rows[skip:] {
		r := make(Row, len(names))
		empty := true
		for j, i := range cols {
			v := ""
			if i < len(raw) {
				v = raw[i]
			}
			if strings.TrimSpace(v) != "" {
				empty = false
			}
			r[names[j]] = v
		}
		if !empty {
			out = append(out, r)
		}
	}
	return out, nil
}

func sheetRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, common.NewAppError("TABLE", fmt.Sprintf("open table %s", path), err)
	}
	defer func() {
		_ = f.Close()
	}()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, common.NewAppError("TABLE", fmt.Sprintf("read rows of %s", path), err)
	}
	return rows, nil
}
