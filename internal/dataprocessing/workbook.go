package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	apperrors "turnstilecli/internal/errors"
)

// ReadWorkbook decodes the first sheet of an .xlsx archive using the same
// column layout as the text files.
func (r *Reader) ReadWorkbook(ctx context.Context, path string) (*ReadResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &apperrors.FileError{Path: path, Err: apperrors.NewParsingError("open workbook", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &apperrors.FileError{Path: path, Err: fmt.Errorf("workbook has no sheets")}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &apperrors.FileError{Path: path, Err: fmt.Errorf("read sheet %q: %w", sheets[0], err)}
	}

	result := &ReadResult{Source: filepath.Base(path)}
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		r.collect(result, row, i+1)
	}

	r.logger.InfoContext(ctx, "workbook decoded",
		slog.String("source", result.Source),
		slog.String("sheet", sheets[0]),
		slog.Int("records", len(result.Records)),
		slog.Int("failures", len(result.Failures)))

	return result, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
