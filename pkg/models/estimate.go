// Package models holds the value objects shared by the estimate import pipeline.
package models

import "github.com/shopspring/decimal"

// RowType labels what a worksheet row represents.
type RowType string

const (
	RowTypeSection RowType = "SECTION"
	RowTypeItem    RowType = "ITEM"
	RowTypeSummary RowType = "SUMMARY"
	RowTypeIgnore  RowType = "IGNORE"
)

// ColumnRole is a semantic meaning assigned to a worksheet column.
type ColumnRole string

const (
	RoleSectionNumber ColumnRole = "section_number"
	RoleCode          ColumnRole = "code"
	RoleName          ColumnRole = "name"
	RoleUnit          ColumnRole = "unit"
	RoleQuantity      ColumnRole = "quantity"
	RoleUnitPrice     ColumnRole = "unit_price"
	RoleTotalPrice    ColumnRole = "total_price"
	RoleLaborCost     ColumnRole = "labor_cost"
	RoleMaterialCost  ColumnRole = "material_cost"
)

// KnownRoles lists every role the column mapper may assign, in a stable order.
var KnownRoles = []ColumnRole{
	RoleSectionNumber,
	RoleCode,
	RoleName,
	RoleUnit,
	RoleQuantity,
	RoleUnitPrice,
	RoleTotalPrice,
	RoleLaborCost,
	RoleMaterialCost,
}

// RoleAssignment binds a role to a concrete column letter.
type RoleAssignment struct {
	Column     string  `json:"column"`
	Confidence float64 `json:"confidence"`
}

// ColumnRoleMap maps semantic roles to worksheet columns. Partial maps are
// valid: a missing role means the sheet has no such column.
type ColumnRoleMap map[ColumnRole]RoleAssignment

// Column returns the column letter for a role and whether the role is mapped.
func (m ColumnRoleMap) Column(role ColumnRole) (string, bool) {
	a, ok := m[role]
	if !ok || a.Column == "" {
		return "", false
	}
	return a.Column, true
}

// HeaderCandidate is a worksheet row proposed as the column-header row by one
// or more detectors.
type HeaderCandidate struct {
	// Row is 1-indexed and within worksheet bounds.
	Row            int
	DetectorScores map[string]float64
	RawValues      map[string]string
	FilledColumns  int
}

// RawRow is a worksheet row's cell values plus its detected type.
type RawRow struct {
	Index int
	Cells map[string]string
	Type  RowType
}

// FirstNonEmptyCell returns the leftmost non-empty cell value of the row,
// scanning the given column order.
func (r RawRow) FirstNonEmptyCell(columns []string) string {
	for _, col := range columns {
		if v := r.Cells[col]; v != "" {
			return v
		}
	}
	return ""
}

// Classification sources.
const (
	SourceRegex           = "regex"
	SourceDictionary      = "dictionary"
	SourceAI              = "ai"
	SourceDefaultFallback = "default_fallback"
)

// ClassificationResult is an immutable record of a category decision.
type ClassificationResult struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// NormalizedItem is the pipeline's output record for one estimate line item.
type NormalizedItem struct {
	Code            string              `json:"code,omitempty"`
	Name            string              `json:"name"`
	Unit            string              `json:"unit,omitempty"`
	Quantity        decimal.NullDecimal `json:"quantity"`
	UnitPrice       decimal.NullDecimal `json:"unit_price"`
	TotalAmount     decimal.NullDecimal `json:"total_amount"`
	Category        string              `json:"category"`
	CategorySource  string              `json:"category_source"`
	Confidence      float64             `json:"confidence"`
	HasMathMismatch bool                `json:"has_math_mismatch"`
	Warnings        []string            `json:"warnings,omitempty"`
}

// PriceStrategy selects which of two stacked numbers in a price cell is
// authoritative.
type PriceStrategy string

const (
	PriceStrategyTop    PriceStrategy = "TOP"
	PriceStrategyBottom PriceStrategy = "BOTTOM"
	PriceStrategyMax    PriceStrategy = "MAX"
)
