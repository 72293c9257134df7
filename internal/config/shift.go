package config

import (
	"time"

	"shiftledger/internal/common"
)

// Shift carries the per-shift context every extractor reads: which calendar
// day's column gets written, the window that bounds voucher verification
// times, and the pump price used to derive volumes from voucher values.
// Constructed once per session; extractors borrow it and never mutate it.
type Shift struct {
	Date      time.Time // accounting date; Date.Day() selects the detail row
	WorkStart time.Time
	ShiftEnd  time.Time
	GasPrice  float64
}

// NewShift validates and builds a shift context.
func NewShift(date, workStart, shiftEnd time.Time, gasPrice float64) (*Shift, error) {
	if date.IsZero() {
		return nil, common.NewAppError("CONFIG_ERROR", "shift date is required", common.ErrConfig)
	}
	if workStart.IsZero() {
		return nil, common.NewAppError("CONFIG_ERROR", "work start time is required", common.ErrConfig)
	}
	if shiftEnd.IsZero() {
		return nil, common.NewAppError("CONFIG_ERROR", "shift end time is required", common.ErrConfig)
	}
	if gasPrice <= 0 {
		return nil, common.NewAppError("CONFIG_ERROR", "gas price must be positive", common.ErrConfig)
	}
	return &Shift{Date: date, WorkStart: workStart, ShiftEnd: shiftEnd, GasPrice: gasPrice}, nil
}
