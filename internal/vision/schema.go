package vision

import (
	"fmt"

	"shiftledger/constants"
	"shiftledger/internal/common"
)

// categoryFields declares the raw field set each vision category must
// return. The model keeps original units and precision, so every value is a
// string (or null for fields it could not read).
var categoryFields = map[constants.Category][]string{
	constants.Huochebang:  {"柴油统计", "油站直降", "油站折扣", "服务费", "结算金额"},
	constants.Didijiayou:  {"油品数量", "油品优惠合计", "油品预收金额", "油品应收金额"},
	constants.Guotong1:    {"订单金额", "退款订单金额"},
	constants.Guotong2:    {"订单金额", "退款订单金额"},
	constants.Tuanyou:     {"加油升数汇总", "通道费汇总", "实际结算金额汇总", "加油金额汇总"},
	constants.POS:         {"结算总金额"},
	constants.Supermarket: {"现金"},
}

// BuildCategoryJSONSchema returns a JSON-Schema map for one category's
// extraction output. We send it to the model as the output contract and
// validate the response against it locally.
func BuildCategoryJSONSchema(cat constants.Category) (map[string]any, error) {
	fields, ok := categoryFields[cat]
	if !ok {
		return nil, common.NewAppError("VISION",
			fmt.Sprintf("no extraction schema for category %q", cat), common.ErrUnknownCategory)
	}

	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f] = map[string]any{"type": []string{"string", "number", "null"}}
	}
	required := make([]string, len(fields))
	copy(required, fields)

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}, nil
}
