package constants

// Workbook sheet names. The shift workbook has a fixed, pre-existing schema;
// these are business identifiers, not ours to rename.
const (
	SheetPricing    = "调价前"      // per-shift pricing / settlement sheet
	SheetFuelDetail = "油品优惠明细 2" // one row per calendar day
)

// Fixed cells on SheetPricing written by extractors. Row/column positions
// are hard business constants from the workbook template.
const (
	HandlingFeeRow    = 81
	HandlingFeeColumn = "E"
)

// Header offsets: first data row for section scans on SheetPricing, and for
// date scans on SheetFuelDetail.
const (
	PricingFirstDataRow    = 3
	FuelDetailFirstDataRow = 2
)
