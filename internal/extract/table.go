package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"shiftledger/constants"
	"shiftledger/internal/common"
	"shiftledger/internal/config"
	"shiftledger/internal/numeric"
	"shiftledger/internal/tabular"
	"shiftledger/internal/update"
)

// FromTable reads the table file at path and runs the extractor for a
// table-sourced category.
func FromTable(cat constants.Category, path string, shift *config.Shift) (Result, error) {
	switch cat {
	case constants.TimeStatistics:
		rows, err := tabular.ReadPositional(path, 2, []int{1, 2, 3}, []string{"机号", "油品", "加油升"})
		if err != nil {
			return Result{}, err
		}
		return extractTimeStatistics(rows)
	case constants.FuelDiscounts:
		rows, err := tabular.ReadNamed(path, 0, []string{"油品", "优惠"})
		if err != nil {
			return Result{}, err
		}
		return extractFuelDiscounts(rows, shift)
	case constants.RefuelDetails:
		rows, err := tabular.ReadNamed(path, 2, []string{"结算金额", "收款方式"})
		if err != nil {
			return Result{}, err
		}
		return extractRefuelDetails(rows)
	case constants.Douyin:
		rows, err := tabular.ReadNamed(path, 0, []string{"核销时间", "商品名称", "实际核销数量", "订单实收", "商家应得"})
		if err != nil {
			return Result{}, err
		}
		return extractDouyin(rows, shift)
	case constants.Tonglian:
		rows, err := tabular.ReadNamed(path, 1, []string{"原始金额", "收支方向"})
		if err != nil {
			return Result{}, err
		}
		return extractTonglian(rows)
	case constants.RechargeDetails:
		rows, err := tabular.ReadNamed(path, 2, []string{"充值金额", "充值赠送", "付款方式"})
		if err != nil {
			return Result{}, err
		}
		return extractRechargeDetails(rows)
	default:
		return Result{}, common.NewAppError("EXTRACT",
			fmt.Sprintf("no table extractor for category %q", cat), common.ErrUnknownCategory)
	}
}

// sectionForFuel maps a fuel-type label to the pricing sheet's section code.
var sectionForFuel = map[string]update.Section{
	"0#柴油":  update.SectionA,
	"92#汽油": update.SectionB,
	"95#汽油": update.SectionC,
}

// extractTimeStatistics emits one per-pump volume write per row, grouped
// into sections by fuel type. Rows with unparseable volumes or unknown fuel
// types are skipped.
func extractTimeStatistics(rows []tabular.Row) (Result, error) {
	var updates []update.Instruction
	for _, row := range rows {
		liters, ok := cellFloat(row["加油升"])
		if !ok {
			continue
		}
		section, ok := sectionForFuel[strings.TrimSpace(row["油品"])]
		if !ok {
			continue
		}
		updates = append(updates, update.CategoricalUpdate{
			Sheet:     constants.SheetPricing,
			Section:   section,
			LookupKey: row["机号"],
			Column:    "D",
			Value:     numeric.SplitThree(liters),
		})
	}
	return Result{Processed: map[string]float64{}, Updates: updates}, nil
}

// extractFuelDiscounts sums the discount column by fuel-type prefix:
// 92#/95# into the gasoline total, 0# into the diesel total.
func extractFuelDiscounts(rows []tabular.Row, shift *config.Shift) (Result, error) {
	var gasoline, diesel float64
	for _, row := range rows {
		product := strings.TrimSpace(row["油品"])
		discount, ok := cellFloat(row["优惠"])
		if !ok {
			discount = 0
		}
		switch {
		case strings.Contains(product, "92#") || strings.Contains(product, "95#"):
			gasoline += discount
		case strings.Contains(product, "0#"):
			diesel += discount
		}
	}

	p := map[string]float64{
		"gasoline_discount": numeric.SplitThree(gasoline),
		"diesel_discount":   numeric.SplitThree(diesel),
	}
	return Result{
		Processed: p,
		Updates: []update.Instruction{
			update.DateKeyedUpdate{
				Sheet: constants.SheetFuelDetail,
				Day:   shift.Date.Day(),
				Columns: []update.ColumnValue{
					{Column: "D", Value: p["diesel_discount"]},
					{Column: "G", Value: p["gasoline_discount"]},
				},
			},
		},
	}, nil
}

// extractRefuelDetails splits settlement amounts by payment method. The
// method column carries operator-entered suffixes, so a substring test is
// used rather than exact equality.
func extractRefuelDetails(rows []tabular.Row) (Result, error) {
	var customer, electric float64
	for _, row := range rows {
		amount, ok := cellFloat(row["结算金额"])
		if !ok {
			continue
		}
		method := row["收款方式"]
		switch {
		case strings.Contains(method, "充值卡"):
			customer += amount
		case strings.Contains(method, "电子卡"):
			electric += amount
		}
	}

	p := map[string]float64{
		"customer_discount": numeric.SplitThree(customer),
		"electric_discount": numeric.SplitThree(electric),
	}
	return Result{
		Processed: p,
		Updates: []update.Instruction{
			update.CellUpdate{Sheet: constants.SheetPricing, Row: 76, Column: "H", Value: p["customer_discount"]},
			update.CellUpdate{Sheet: constants.SheetPricing, Row: 78, Column: "H", Value: p["electric_discount"]},
		},
	}, nil
}

var voucherAmountRe = regexp.MustCompile(`(\d+)元`)

// douyinTimeLayouts covers the verification-time formats the export uses.
var douyinTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
}

// extractDouyin reconciles short-video platform vouchers verified during
// the shift window: face value from the product name, amounts received, and
// the merchant's share.
func extractDouyin(rows []tabular.Row, shift *config.Shift) (Result, error) {
	var voucherValue, received, merchantRevenue float64
	for _, row := range rows {
		ts, ok := parseDouyinTime(row["核销时间"])
		if !ok {
			continue
		}
		if ts.Before(shift.WorkStart) || ts.After(shift.ShiftEnd) {
			continue
		}

		face := voucherFaceValue(row["商品名称"])
		qty, ok := cellFloat(row["实际核销数量"])
		if !ok {
			qty = 0
		}
		voucherValue += face * qty

		if v, ok := cellFloat(row["订单实收"]); ok {
			received += v
		}
		if v, ok := cellFloat(row["商家应得"]); ok {
			merchantRevenue += v
		}
	}

	totalDiscount := voucherValue - received
	handlingFee := received - merchantRevenue
	gasQuantity := 0.0
	if shift.GasPrice > 0 {
		gasQuantity = voucherValue / shift.GasPrice
	}

	p := map[string]float64{
		"gas_quantity":     numeric.SplitThree(gasQuantity),
		"total_discount":   numeric.SplitThree(totalDiscount),
		"handling_fee":     numeric.SplitThree(handlingFee),
		"merchant_revenue": numeric.SplitThree(merchantRevenue),
	}
	return Result{
		Processed: p,
		Updates: []update.Instruction{
			feeCell(p["handling_fee"]),
			update.CellUpdate{Sheet: constants.SheetPricing, Row: 93, Column: "C", Value: p["merchant_revenue"]},
			update.DateKeyedUpdate{
				Sheet: constants.SheetFuelDetail,
				Day:   shift.Date.Day(),
				Columns: []update.ColumnValue{
					{Column: "AV", Value: p["gas_quantity"]},
					{Column: "AW", Value: p["total_discount"]},
				},
			},
		},
	}, nil
}

func parseDouyinTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range douyinTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func voucherFaceValue(productName string) float64 {
	m := voucherAmountRe.FindStringSubmatch(productName)
	if m == nil {
		return 0
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return f
}

// extractTonglian sums incoming settlement rows from the payment channel
// export.
func extractTonglian(rows []tabular.Row) (Result, error) {
	var income float64
	for _, row := range rows {
		if strings.TrimSpace(row["收支方向"]) != "收入" {
			continue
		}
		if v, ok := cellFloat(row["原始金额"]); ok {
			income += v
		}
	}

	p := map[string]float64{
		"income": numeric.SplitThree(income),
	}
	return Result{
		Processed: p,
		Updates: []update.Instruction{
			update.CellUpdate{Sheet: constants.SheetPricing, Row: 86, Column: "C", Value: p["income"]},
		},
	}, nil
}

// extractRechargeDetails splits prepaid-card recharges by payment method:
// online wallets vs cash. Blank amounts count as zero.
func extractRechargeDetails(rows []tabular.Row) (Result, error) {
	var online, cash float64
	for _, row := range rows {
		amount, ok := cellFloat(row["充值金额"])
		if !ok {
			amount = 0
		}
		bonus, ok := cellFloat(row["充值赠送"])
		if !ok {
			bonus = 0
		}
		method := row["付款方式"]
		switch {
		case strings.Contains(method, "微信") || strings.Contains(method, "支付宝"):
			online += amount + bonus
		case strings.Contains(method, "现金"):
			cash += amount + bonus
		}
	}

	p := map[string]float64{
		"online_recharge": numeric.SplitThree(online),
		"cash_recharge":   numeric.SplitThree(cash),
	}
	return Result{
		Processed: p,
		Updates: []update.Instruction{
			update.CellUpdate{Sheet: constants.SheetPricing, Row: 68, Column: "C", Value: p["online_recharge"]},
			update.CellUpdate{Sheet: constants.SheetPricing, Row: 73, Column: "C", Value: p["cash_recharge"]},
		},
	}, nil
}

// cellFloat parses a cell's string form into a float, reporting whether the
// cell held a usable number.
func cellFloat(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
