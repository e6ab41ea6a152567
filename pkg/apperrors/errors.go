package apperrors

import "errors"

var (
	ErrEmptyWorksheet = errors.New("worksheet has no filled cells")
	ErrNoHeader       = errors.New("no header row detected")
	ErrSheetNotFound  = errors.New("sheet not found in workbook")
)
