// Package extract turns one recognized source (a vision-parsed receipt
// image or an exported table) into derived business figures and the
// workbook update instructions that persist them.
package extract

import (
	"fmt"

	"shiftledger/constants"
	"shiftledger/internal/common"
	"shiftledger/internal/config"
	"shiftledger/internal/update"
)

// RawFields is the field map a vision extraction returns: business term to
// raw scalar (number, or string with units and prose). Consumed exactly
// once per source.
type RawFields map[string]any

// Result is what one extraction produces: the derived figures (already
// three-way split and rounded) and the instructions that write them.
type Result struct {
	Processed map[string]float64
	Updates   []update.Instruction
}

// FromVision runs the extractor for a vision-recognized category. An
// unknown or non-vision category is rejected up front.
func FromVision(cat constants.Category, raw RawFields, shift *config.Shift) (Result, error) {
	switch cat {
	case constants.Huochebang:
		return extractHuochebang(raw, shift)
	case constants.Didijiayou:
		return extractDidijiayou(raw, shift)
	case constants.Guotong1:
		return extractGuotong(raw, 92)
	case constants.Guotong2:
		return extractGuotong(raw, 93)
	case constants.Tuanyou:
		return extractTuanyou(raw, shift)
	case constants.POS:
		return extractPOS(raw)
	case constants.Supermarket:
		return extractSupermarket(raw)
	default:
		return Result{}, common.NewAppError("EXTRACT",
			fmt.Sprintf("no vision extractor for category %q", cat), common.ErrUnknownCategory)
	}
}

// field returns the raw value for name, or a per-source-fatal error when
// the vision output did not include the field at all. A present-but-null
// field is fine; the numeric parser falls back to zero for it.
func field(raw RawFields, name string) (any, error) {
	v, ok := raw[name]
	if !ok {
		return nil, common.NewAppError("EXTRACT",
			fmt.Sprintf("field %q missing from extraction result", name), common.ErrMissingField)
	}
	return v, nil
}
