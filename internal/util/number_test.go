package util

import (
	"encoding/json"
	"math"
	"testing"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{name: "nil", in: nil, want: 0},
		{name: "true", in: true, want: 1},
		{name: "false", in: false, want: 0},
		{name: "float", in: 5.5, want: 5.5},
		{name: "json number", in: json.Number("42"), want: 42},
		{name: "numeric string", in: " 7 ", want: 7},
		{name: "empty string", in: "", want: 0},
		{name: "hex string", in: "0x1A", want: 26},
		{name: "binary string", in: "0b101", want: 5},
		{name: "exponent", in: "1e3", want: 1000},
		{name: "empty array", in: []any{}, want: 0},
		{name: "single element array", in: []any{"3"}, want: 3},
		{name: "infinity", in: "-Infinity", want: math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToNumber(tt.in)
			if got != tt.want {
				t.Fatalf("ToNumber(%#v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestToNumber_NaN(t *testing.T) {
	inputs := []any{
		"abc",
		"12abc",
		"inf",
		"NaN",
		"1_000",
		"0x",
		map[string]any{"a": 1},
		[]any{1, 2},
		[]any{true},
	}

	for _, in := range inputs {
		if got := ToNumber(in); !math.IsNaN(got) {
			t.Errorf("ToNumber(%#v) = %v, want NaN", in, got)
		}
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(3) {
		t.Error("3 should be finite")
	}
	if IsFinite(math.NaN()) || IsFinite(math.Inf(1)) {
		t.Error("NaN and Inf should not be finite")
	}
}
