package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling cases
// where LLMs return numbers or booleans instead of strings. Returns empty
// string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// FlexibleFloatValue converts a json.RawMessage to a float64, handling cases
// where LLMs return numbers quoted as strings ("0.85"). Returns 0 when the
// value cannot be interpreted as a number.
func FlexibleFloatValue(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return numVal
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		strVal = strings.TrimSpace(strings.ReplaceAll(strVal, ",", "."))
		if f, err := strconv.ParseFloat(strVal, 64); err == nil {
			return f
		}
	}

	return 0
}
