// Package exporter writes ranking results to disk.
//
// CSVWriter writes one CSV per ranked series (and the daily rate table)
// with a UTF-8 BOM so spreadsheets detect the encoding.
// WriteRankingsWorkbook writes every ranking as one sheet of an .xlsx
// workbook. WriteJSON writes the load report.
package exporter
