// Package excel reads analysis datasets from Excel workbooks and CSV files
// into typed frames.
package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"clintab/adapters/coerce"
	"clintab/domain/frame"
	"clintab/ports"
)

// DataReader reads a subject-level dataset from an .xlsx or .csv file.
// Column kinds are inferred from the cell values unless overridden.
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	kinds    map[string]frame.Kind
	labels   map[string]string
}

var _ ports.DatasetReader = (*DataReader)(nil)

// Option adjusts reader behavior
type Option func(*DataReader)

// WithSheet selects the worksheet to read, default "Sheet1"
func WithSheet(name string) Option {
	return func(r *DataReader) { r.sheet = name }
}

// WithKind overrides the inferred kind of one column
func WithKind(column string, kind frame.Kind) Option {
	return func(r *DataReader) { r.kinds[column] = kind }
}

// WithLabel sets the display label of one column
func WithLabel(column, label string) Option {
	return func(r *DataReader) { r.labels[column] = label }
}

// NewDataReader creates a reader for an Excel or CSV dataset file
func NewDataReader(filePath string, opts ...Option) *DataReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	r := &DataReader{
		filePath: filePath,
		fileType: fileType,
		sheet:    "Sheet1",
		kinds:    make(map[string]frame.Kind),
		labels:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadFrame reads the file into a typed frame
func (r *DataReader) ReadFrame() (*frame.Frame, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("dataset file not found: %s", r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSV()
	case "xlsx":
		rows, err = r.readExcel()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("dataset must have a header row and at least one data row")
	}
	return r.buildFrame(rows[0], rows[1:])
}

func (r *DataReader) readExcel() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", r.sheet, err)
	}
	return rows, nil
}

func (r *DataReader) readCSV() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

// buildFrame coerces the raw grid into typed columns. Short rows (Excel
// drops trailing empty cells) are padded with missing values.
func (r *DataReader) buildFrame(header []string, records [][]string) (*frame.Frame, error) {
	cols := make([]*frame.Column, 0, len(header))
	for c, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty header", c+1)
		}
		raw := make([]string, len(records))
		for i, rec := range records {
			if c < len(rec) {
				raw[i] = rec[c]
			}
		}
		kind, ok := r.kinds[name]
		if !ok {
			kind = coerce.Infer(raw)
		}
		col, err := coerce.Column(name, r.labels[name], kind, raw)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return frame.New(cols...)
}
