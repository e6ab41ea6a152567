package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexibleStringValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `"hello"`, "hello"},
		{"integer", `42`, "42"},
		{"float", `4.5`, "4.5"},
		{"boolean", `true`, "true"},
		{"null", `null`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlexibleStringValue(json.RawMessage(tt.raw)))
		})
	}
}

func TestFlexibleFloatValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"number", `0.85`, 0.85},
		{"quoted number", `"0.85"`, 0.85},
		{"quoted with comma separator", `"0,85"`, 0.85},
		{"integer", `1`, 1},
		{"null", `null`, 0},
		{"garbage", `"high"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FlexibleFloatValue(json.RawMessage(tt.raw)), 0.0001)
		})
	}
}
