// Package prompts builds the LLM prompts used by the AI-assisted pipeline
// stages. Keeping prompt text in one place makes it reviewable and testable
// apart from the services that send it.
package prompts

import (
	"fmt"
	"strings"
)

// ColumnHeader pairs a column letter with its header text.
type ColumnHeader struct {
	Column string
	Text   string
}

// BuildColumnMappingPrompt creates the prompt for column role mapping.
// It enumerates header text per column plus sample data rows, and asks for a
// JSON object mapping each role to a column letter with a confidence.
func BuildColumnMappingPrompt(headers []ColumnHeader, sampleRows []map[string]string) string {
	var b strings.Builder

	b.WriteString("# Estimate Spreadsheet Column Mapping\n\n")
	b.WriteString("The spreadsheet is a construction cost estimate export. ")
	b.WriteString("Assign each semantic role to the column that holds it.\n\n")

	b.WriteString("## Column headers\n\n")
	for _, h := range headers {
		if h.Text == "" {
			b.WriteString(fmt.Sprintf("- %s: (no header text)\n", h.Column))
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: %q\n", h.Column, h.Text))
	}

	if len(sampleRows) > 0 {
		b.WriteString("\n## Sample data rows\n\n")
		for i, row := range sampleRows {
			b.WriteString(fmt.Sprintf("Row %d:", i+1))
			for _, h := range headers {
				if v := row[h.Column]; v != "" {
					b.WriteString(fmt.Sprintf(" %s=%q", h.Column, v))
				}
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(`
## Roles

section_number, code, name, unit, quantity, unit_price, total_price, labor_cost, material_cost

Omit roles that have no matching column. Column headers may be in Russian
(наименование = name, ед.изм = unit, кол-во = quantity, цена = unit_price,
сумма/стоимость = total_price, обоснование/шифр = code).

## Response format

Return ONLY a JSON object:
{
  "roles": {
    "quantity": {"column": "D", "confidence": 0.95},
    "unit_price": {"column": "E", "confidence": 0.9}
  },
  "suggestions": "free-text notes, optional"
}`)

	return b.String()
}

// BuildStructureAnalysisPrompt creates the prompt that asks which columns are
// computed from other columns rather than source data.
func BuildStructureAnalysisPrompt(headers []ColumnHeader, sampleRows []map[string]string) string {
	var b strings.Builder

	b.WriteString("# Estimate Spreadsheet Structure Analysis\n\n")
	b.WriteString("Decide which columns are computed (formula-derived from other columns) ")
	b.WriteString("and which hold source data.\n\n")

	b.WriteString("## Column headers\n\n")
	for _, h := range headers {
		b.WriteString(fmt.Sprintf("- %s: %q\n", h.Column, h.Text))
	}

	if len(sampleRows) > 0 {
		b.WriteString("\n## Sample data rows\n\n")
		for i, row := range sampleRows {
			b.WriteString(fmt.Sprintf("Row %d:", i+1))
			for _, h := range headers {
				if v := row[h.Column]; v != "" {
					b.WriteString(fmt.Sprintf(" %s=%q", h.Column, v))
				}
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(`
## Response format

Return ONLY a JSON object:
{
  "computed_columns": [
    {
      "target_column": "F",
      "formula": "D * E",
      "description": "total = quantity times unit price"
    }
  ]
}

Use column letters in formulas. Return an empty array if nothing is computed.`)

	return b.String()
}

// RowSample is one row presented to the row-type classifier.
type RowSample struct {
	ID   int    // original row index
	Text string // first non-empty cell text
}

// BuildRowClassificationPrompt creates the batched row-type classification
// prompt. Every row of the sheet goes into one request.
func BuildRowClassificationPrompt(rows []RowSample) string {
	var b strings.Builder

	b.WriteString(`# Estimate Row Classification

Classify every row of a construction estimate spreadsheet by its first cell text.

## Types

- SECTION: a section heading that opens a group of line items, e.g. "Раздел 1. Земляные работы", "2. Фундаменты".
- ITEM: a priced line item of work or material, e.g. "Устройство бетонной подготовки", "Бетон М200".
- SUMMARY: a subtotal or total row, e.g. "Итого по разделу 1", "Всего по смете", "НДС 20%".
- IGNORE: titles, signatures, notes, empty filler, e.g. "Смета составлена...", "Проверил:".

Important: aggregate labels like "Материалы", "ФОТ", "Эксплуатация машин",
"Накладные расходы" occurring inside a section are SUMMARY or IGNORE, never
SECTION: they do not open a new section.

## Rows

`)
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("ID%d: %q\n", r.ID, r.Text))
	}

	b.WriteString(`
## Response format

Return ONLY a JSON object keyed by row ID:
{"ID3": "SECTION", "ID4": "ITEM", "ID12": "SUMMARY"}`)

	return b.String()
}

// ItemSample is one line item presented to the AI category classifier.
type ItemSample struct {
	ID   int
	Code string
	Name string
	Unit string
}

// BuildItemClassificationPrompt creates the batched category classification
// prompt for items the local strategies could not settle.
func BuildItemClassificationPrompt(items []ItemSample, categories []string) string {
	var b strings.Builder

	b.WriteString("# Estimate Item Category Classification\n\n")
	b.WriteString("Assign each line item one category from: ")
	b.WriteString(strings.Join(categories, ", "))
	b.WriteString(".\n\n## Items\n\n")

	for _, it := range items {
		b.WriteString(fmt.Sprintf("ID%d:", it.ID))
		if it.Code != "" {
			b.WriteString(fmt.Sprintf(" code=%q", it.Code))
		}
		b.WriteString(fmt.Sprintf(" name=%q", it.Name))
		if it.Unit != "" {
			b.WriteString(fmt.Sprintf(" unit=%q", it.Unit))
		}
		b.WriteString("\n")
	}

	b.WriteString(`
## Response format

Return ONLY a JSON object keyed by item ID:
{"ID7": {"category": "material", "confidence": 0.9}}`)

	return b.String()
}

// BuildPriceStrategyPrompt creates the prompt that decides which of two
// stacked numbers in a price cell is the authoritative current price.
func BuildPriceStrategyPrompt(samples []string, headers []string) string {
	var b strings.Builder

	b.WriteString(`# Price Cell Disambiguation

Some price cells of this estimate contain two numbers separated by a line
break, typically a historical base price and a current price. Decide which
number is the authoritative current price.

## Column headers

`)
	for _, h := range headers {
		b.WriteString(fmt.Sprintf("- %q\n", h))
	}

	b.WriteString("\n## Sample price cells\n\n")
	for _, s := range samples {
		b.WriteString(fmt.Sprintf("- %q\n", s))
	}

	b.WriteString(`
## Answer

Reply with exactly one word:
- TOP: the first number is authoritative
- BOTTOM: the second number is authoritative
- MAX: the larger of the two, regardless of position`)

	return b.String()
}
