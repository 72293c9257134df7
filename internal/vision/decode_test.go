package vision

import (
	"errors"
	"testing"

	"shiftledger/constants"
	"shiftledger/internal/common"
)

func guotongSchema(t *testing.T) map[string]any {
	t.Helper()
	schema, err := BuildCategoryJSONSchema(constants.Guotong1)
	if err != nil {
		t.Fatal(err)
	}
	return schema
}

func TestDecodeResponsePlainJSON(t *testing.T) {
	m, err := decodeResponse(`{"订单金额": "1000.00", "退款订单金额": null}`, guotongSchema(t))
	if err != nil {
		t.Fatal(err)
	}
	if m["订单金额"] != "1000.00" {
		t.Fatalf("订单金额 = %v", m["订单金额"])
	}
	if v, ok := m["退款订单金额"]; !ok || v != nil {
		t.Fatalf("退款订单金额 = %v (present %v)", v, ok)
	}
}

func TestDecodeResponseStripsMarkdownFences(t *testing.T) {
	text := "```json\n{\"订单金额\": \"1000.00\", \"退款订单金额\": \"0\"}\n```"
	m, err := decodeResponse(text, guotongSchema(t))
	if err != nil {
		t.Fatal(err)
	}
	if m["退款订单金额"] != "0" {
		t.Fatalf("退款订单金额 = %v", m["退款订单金额"])
	}
}

func TestDecodeResponseRepairsSloppyJSON(t *testing.T) {
	// trailing comma and single quotes, both common in model output
	text := `{'订单金额': '1000.00', '退款订单金额': '100.00',}`
	m, err := decodeResponse(text, guotongSchema(t))
	if err != nil {
		t.Fatal(err)
	}
	if m["订单金额"] != "1000.00" {
		t.Fatalf("订单金额 = %v", m["订单金额"])
	}
}

func TestDecodeResponseNumbersAllowed(t *testing.T) {
	if _, err := decodeResponse(`{"订单金额": 1000, "退款订单金额": 100.5}`, guotongSchema(t)); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeResponseRejectsMissingRequiredField(t *testing.T) {
	if _, err := decodeResponse(`{"订单金额": "1000.00"}`, guotongSchema(t)); err == nil {
		t.Fatal("expected schema validation error")
	}
}

func TestDecodeResponseRejectsWrongType(t *testing.T) {
	if _, err := decodeResponse(`{"订单金额": true, "退款订单金额": "0"}`, guotongSchema(t)); err == nil {
		t.Fatal("expected schema validation error")
	}
}

func TestDecodeResponseRejectsEmpty(t *testing.T) {
	for _, text := range []string{"", "```json\n```", "{}"} {
		_, err := decodeResponse(text, guotongSchema(t))
		if err == nil {
			t.Fatalf("%q: expected error", text)
		}
		if !errors.Is(err, common.ErrValidation) {
			t.Fatalf("%q: error = %v, want validation", text, err)
		}
	}
}

func TestBuildCategoryJSONSchemaUnknownCategory(t *testing.T) {
	if _, err := BuildCategoryJSONSchema(constants.TimeStatistics); !errors.Is(err, common.ErrUnknownCategory) {
		t.Fatalf("error = %v", err)
	}
}

func TestSchemaCoversEveryVisionCategory(t *testing.T) {
	for _, name := range constants.AllCategories() {
		cat := constants.Category(name)
		if !cat.IsVision() {
			continue
		}
		schema, err := BuildCategoryJSONSchema(cat)
		if err != nil {
			t.Fatalf("%s: %v", cat, err)
		}
		props, ok := schema["properties"].(map[string]any)
		if !ok || len(props) == 0 {
			t.Fatalf("%s: empty properties", cat)
		}
	}
}
