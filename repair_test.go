package ledgerline

import (
	"encoding/json"
	"testing"
)

func TestRepairJSON(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"already valid", `{"a":1}`, `{"a":1}`},
		{"markdown fences", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"prose before document", `Here are the deltas: [{"a":1}]`, `[{"a":1}]`},
		{"truncated object", `{"a":1,"b":{"c":2`, `{"a":1,"b":{"c":2}}`},
		{"truncated array", `[{"a":1},{"b":2`, `[{"a":1},{"b":2}]`},
		{"truncated string", `{"a":"hel`, `{"a":"hel"}`},
		{"dangling comma", `[{"a":1},`, `[{"a":1}]`},
		{"dangling key", `{"a":1,"b":`, `{"a":1}`},
		{"bracket inside string", `{"a":"[not a bracket"`, `{"a":"[not a bracket"}`},
		{"escaped quote in string", `{"a":"say \"hi`, `{"a":"say \"hi"}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RepairJSON([]byte(tc.in))
			if err != nil {
				t.Fatalf("RepairJSON(%q) error: %v", tc.in, err)
			}
			if string(got) != tc.want {
				t.Errorf("RepairJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if !json.Valid(got) {
				t.Errorf("repaired output %q is not valid JSON", got)
			}
		})
	}
}

func TestRepairJSONRejects(t *testing.T) {
	testCases := []struct {
		name string
		in   string
	}{
		{"no document", "nothing json here"},
		{"mismatched closer", `[{"a":1]`},
		{"unbalanced closer", `{"a":1}}`},
		{"too deeply truncated", `[[[[[[[[[[1`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got, err := RepairJSON([]byte(tc.in)); err == nil {
				t.Errorf("RepairJSON(%q) = %q, want an error", tc.in, got)
			}
		})
	}
}
