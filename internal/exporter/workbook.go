package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	apperrors "turnstilecli/internal/errors"
	"turnstilecli/pkg/contracts/domain"
)

// Sheet is one ranking written to the workbook
type Sheet struct {
	Name   string
	Title  string
	Series domain.Series
}

// maxSheetName is the Excel limit on sheet name length
const maxSheetName = 31

// WriteRankingsWorkbook writes every sheet to an .xlsx file at path. Each
// sheet holds a title row followed by Rank, one column per key label, and
// Value.
func WriteRankingsWorkbook(path string, sheets []Sheet, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, sheet := range sheets {
		name := sheetName(sheet.Name)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, sheet, bold); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).WithContext("path", path)
	}
	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError("save workbook", err).WithContext("path", path)
	}

	logger.Info("Rankings workbook written",
		slog.String("path", path),
		slog.Int("sheets", len(sheets)))
	return nil
}

func writeSheet(f *excelize.File, name string, sheet Sheet, headerStyle int) error {
	width := 1
	for _, e := range sheet.Series {
		if n := len(e.Key.Labels()); n > width {
			width = n
		}
	}

	if err := f.SetCellValue(name, "A1", sheet.Title); err != nil {
		return err
	}

	header := make([]interface{}, 0, width+2)
	header = append(header, "Rank")
	for i := 0; i < width; i++ {
		header = append(header, fmt.Sprintf("Key %d", i+1))
	}
	header = append(header, "Value")
	if err := f.SetSheetRow(name, "A2", &header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 2)
	if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, e := range sheet.Series {
		row := make([]interface{}, 0, width+2)
		row = append(row, i+1)
		labels := e.Key.Labels()
		for j := 0; j < width; j++ {
			if j < len(labels) {
				row = append(row, labels[j])
			} else {
				row = append(row, "")
			}
		}
		row = append(row, e.Value)

		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %q: %w", i+1, name, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(width + 1)
	return f.SetColWidth(name, "B", lastCol, 28)
}

func sheetName(name string) string {
	if len(name) > maxSheetName {
		return name[:maxSheetName]
	}
	return name
}
