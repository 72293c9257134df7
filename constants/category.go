package constants

import (
	"strings"
)

// Category identifies one source kind a shift run knows how to process.
// The string values are the business labels the operator (and the vision
// prompt) use; they are stable and recorded in the run history.
type Category string

// Vision-recognized categories (screenshots / photographed receipts).
const (
	Huochebang  Category = "货车帮"
	Didijiayou  Category = "滴滴加油"
	Guotong1    Category = "国通1"
	Guotong2    Category = "国通2"
	Tuanyou     Category = "团油"
	POS         Category = "POS"
	Supermarket Category = "超市销售收入"
)

// Table-sourced categories (exported spreadsheets).
const (
	TimeStatistics  Category = "油品时间统计"
	FuelDiscounts   Category = "油品优惠"
	RefuelDetails   Category = "加油明细"
	Douyin          Category = "抖音"
	Tonglian        Category = "通联"
	RechargeDetails Category = "充值明细"
)

var visionCategories = []Category{
	Huochebang, Didijiayou, Guotong1, Guotong2, Tuanyou, POS, Supermarket,
}

var tableCategories = []Category{
	TimeStatistics, FuelDiscounts, RefuelDetails, Douyin, Tonglian, RechargeDetails,
}

// IsVision reports whether c is extracted from an image via the vision model.
func (c Category) IsVision() bool {
	for _, v := range visionCategories {
		if c == v {
			return true
		}
	}
	return false
}

// IsTable reports whether c is extracted from an exported table file.
func (c Category) IsTable() bool {
	for _, v := range tableCategories {
		if c == v {
			return true
		}
	}
	return false
}

// Known reports whether c is any category this build understands.
func (c Category) Known() bool {
	return c.IsVision() || c.IsTable()
}

// AllCategories returns every known category label, vision first.
func AllCategories() []string {
	out := make([]string, 0, len(visionCategories)+len(tableCategories))
	for _, c := range visionCategories {
		out = append(out, string(c))
	}
	for _, c := range tableCategories {
		out = append(out, string(c))
	}
	return out
}

// ParseCategory resolves an operator-supplied label to a known category.
func ParseCategory(input string) (Category, bool) {
	c := Category(strings.TrimSpace(input))
	if c.Known() {
		return c, true
	}
	return "", false
}
