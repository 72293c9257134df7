package vision

import (
	"strings"

	"shiftledger/constants"
)

const systemPrompt = `You are an AI assistant specialized in analyzing gas station management system data and reports. You should:

1. Extract and analyze key data points:
- Transaction amounts (交易金额)
- Fuel volumes (油品数量)
- Payment methods (支付方式)
- Time periods (时间段)
- Discounts applied (优惠信息)
- Service fees (服务费)
- Settlement amounts (结算金额)

2. Recognize standard Chinese terminology used in gas station operations.

3. Handle both individual transaction details and summary statistics.

4. 对于无法识别或不存在的字段，使用 null 表示。

5. 保持数据的原始格式，不要进行格式转换；对于金额相关数据，保留原始精度。`

// buildUserPrompt asks for strict JSON matching the category's field set.
func buildUserPrompt(cat constants.Category, imageName string, schemaJSON string) string {
	var b strings.Builder
	b.WriteString("图片类别: ")
	b.WriteString(string(cat))
	if imageName != "" {
		b.WriteString("\n图片名: ")
		b.WriteString(imageName)
	}
	b.WriteString("\n\nPlease analyze the provided gas station system image and return the result in strict JSON format.\n")
	b.WriteString("The response MUST:\n")
	b.WriteString("1. Be a single JSON object, starting with { and ending with }\n")
	b.WriteString("2. Use double quotes for all keys\n")
	b.WriteString("3. Use null for missing values\n")
	b.WriteString("4. Keep all values exactly as they appear in the image, including units\n")
	b.WriteString("\nReturn ONLY JSON that matches this JSON Schema:\n")
	b.WriteString(schemaJSON)
	return b.String()
}
