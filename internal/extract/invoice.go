package extract

import (
	"shiftledger/constants"
	"shiftledger/internal/config"
	"shiftledger/internal/numeric"
	"shiftledger/internal/update"
)

// feeCell targets the shared handling-fee cell that accumulates
// contributions from every aggregator within one batch.
func feeCell(value float64) update.CellUpdate {
	return update.CellUpdate{
		Sheet:  constants.SheetPricing,
		Row:    constants.HandlingFeeRow,
		Column: constants.HandlingFeeColumn,
		Value:  value,
	}
}

// extractHuochebang handles the truck-fleet fuel aggregator statement:
// diesel volume, two discount lines summed, handling fee, settlement.
func extractHuochebang(raw RawFields, shift *config.Shift) (Result, error) {
	var vals [5]any
	var err error
	for i, name := range []string{"柴油统计", "油站直降", "油站折扣", "服务费", "结算金额"} {
		if vals[i], err = field(raw, name); err != nil {
			return Result{}, err
		}
	}

	dieselStats := numeric.Parse(vals[0], "升", 0)
	dieselDiscount := numeric.Round2(numeric.Parse(vals[1], "元", 0) + numeric.Parse(vals[2], "元", 0))
	handlingFee := numeric.Parse(vals[3], "元", 0)
	settlement := numeric.Parse(vals[4], "元", 0)

	p := map[string]float64{
		"diesel_stats":      numeric.SplitThree(dieselStats),
		"diesel_discount":   numeric.SplitThree(dieselDiscount),
		"handling_fee":      numeric.SplitThree(handlingFee),
		"settlement_amount": numeric.SplitThree(settlement),
	}
	return Result{
		Processed: p,
		Updates: []update.Instruction{
			feeCell(p["handling_fee"]),
			update.CellUpdate{Sheet: constants.SheetPricing, Row: 90, Column: "C", Value: p["settlement_amount"]},
			update.DateKeyedUpdate{
				Sheet: constants.SheetFuelDetail,
				Day:   shift.Date.Day(),
				Columns: []update.ColumnValue{
					{Column: "X", Value: p["diesel_stats"]},
					{Column: "Y", Value: p["diesel_discount"]},
				},
			},
		},
	}, nil
}

// extractDidijiayou handles the ride-hailing fuel aggregator statement.
// Its handling fee is the prepaid/receivable gap.
func extractDidijiayou(raw RawFields, shift *config.Shift) (Result, error) {
	var vals [4]any
	var err error
	for i, name := range []string{"油品数量", "油品优惠合计", "油品预收金额", "油品应收金额"} {
		if vals[i], err = field(raw, name); err != nil {
			return Result{}, err
		}
	}

	gasStats := numeric.Parse(vals[0], "", 0)
	gasDiscount := numeric.Parse(vals[1], "", 0)
	prepaid := numeric.Parse(vals[2], "", 0)
	receivable := numeric.Parse(vals[3], "", 0)

	p := map[string]float64{
		"gas_stats":         numeric.SplitThree(gasStats),
		"gas_discount":      numeric.SplitThree(gasDiscount),
		"handling_fee":      numeric.SplitThree(prepaid - receivable),
		"settlement_amount": numeric.SplitThree(receivable),
	}
	return Result{
		Processed: p,
		Updates: []update.Instruction{
			feeCell(p["handling_fee"]),
			update.CellUpdate{Sheet: constants.SheetPricing, Row: 88, Column: "C", Value: p["settlement_amount"]},
			update.DateKeyedUpdate{
				Sheet: constants.SheetFuelDetail,
				Day:   shift.Date.Day(),
				Columns: []update.ColumnValue{
					{Column: "M", Value: p["gas_stats"]},
					{Column: "N", Value: p["gas_discount"]},
				},
			},
		},
	}, nil
}

// extractGuotong handles the two sibling card-platform statements; they
// differ only in the target row.
func extractGuotong(raw RawFields, row int) (Result, error) {
	order, err := field(raw, "订单金额")
	if err != nil {
		return Result{}, err
	}
	refund, err := field(raw, "退款订单金额")
	if err != nil {
		return Result{}, err
	}

	settlement := numeric.Parse(order, "", 0) - numeric.Parse(refund, "", 0)
	p := map[string]float64{
		"settlement_amount": numeric.SplitThree(settlement),
	}
	return Result{
		Processed: p,
		Updates: []update.Instruction{
			update.CellUpdate{Sheet: constants.SheetPricing, Row: row, Column: "H", Value: p["settlement_amount"]},
		},
	}, nil
}

// extractTuanyou handles the fleet-card aggregator. The discount is what
// remains of the gross refuel amount after settlement and channel fee.
func extractTuanyou(raw RawFields, shift *config.Shift) (Result, error) {
	var vals [4]any
	var err error
	for i, name := range []string{"加油升数汇总", "通道费汇总", "实际结算金额汇总", "加油金额汇总"} {
		if vals[i], err = field(raw, name); err != nil {
			return Result{}, err
		}
	}

	gasStats := numeric.Parse(vals[0], "升", 0)
	handlingFee := numeric.Parse(vals[1], "元", 0)
	settlement := numeric.Parse(vals[2], "元", 0)
	gasDiscount := numeric.Parse(vals[3], "元", 0) - settlement - handlingFee

	p := map[string]float64{
		"gas_stats":         numeric.SplitThree(gasStats),
		"gas_discount":      numeric.SplitThree(gasDiscount),
		"handling_fee":      numeric.SplitThree(handlingFee),
		"settlement_amount": numeric.SplitThree(settlement),
	}
	return Result{
		Processed: p,
		Updates: []update.Instruction{
			feeCell(p["handling_fee"]),
			update.CellUpdate{Sheet: constants.SheetPricing, Row: 89, Column: "C", Value: p["settlement_amount"]},
			update.DateKeyedUpdate{
				Sheet: constants.SheetFuelDetail,
				Day:   shift.Date.Day(),
				Columns: []update.ColumnValue{
					{Column: "T", Value: p["gas_stats"]},
					{Column: "U", Value: p["gas_discount"]},
				},
			},
		},
	}, nil
}

func extractPOS(raw RawFields) (Result, error) {
	total, err := field(raw, "结算总金额")
	if err != nil {
		return Result{}, err
	}
	p := map[string]float64{
		"settlement_amount": numeric.SplitThree(numeric.Parse(total, "", 0)),
	}
	return Result{
		Processed: p,
		Updates: []update.Instruction{
			update.CellUpdate{Sheet: constants.SheetPricing, Row: 80, Column: "E", Value: p["settlement_amount"]},
		},
	}, nil
}

func extractSupermarket(raw RawFields) (Result, error) {
	cash, err := field(raw, "现金")
	if err != nil {
		return Result{}, err
	}
	p := map[string]float64{
		"settlement_amount": numeric.SplitThree(numeric.Parse(cash, "", 0)),
	}
	return Result{
		Processed: p,
		Updates: []update.Instruction{
			update.CellUpdate{Sheet: constants.SheetPricing, Row: 71, Column: "H", Value: p["settlement_amount"]},
		},
	}, nil
}
