package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/okian/castle/internal/domain/table"
)

// ErrEmpty is returned for a source without a header row.
var ErrEmpty = errors.New("source has no header row")

// ReadCSV reads a comma separated file into a raw table. Rows may be ragged.
func ReadCSV(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeCSV(f)
}

// DecodeCSV reads CSV records from r into a raw table.
func DecodeCSV(r io.Reader) (*table.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return table.New(header, rows), nil
}

// ReadWorkbook reads one sheet of a workbook into a raw table. The preferred
// sheet is used when it exists, otherwise the first sheet. The name of the
// sheet actually read is returned.
func ReadWorkbook(path, preferred string) (*table.Table, string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, "", ErrEmpty
	}
	sheet := sheets[0]
	for _, sh := range sheets {
		if sh == preferred {
			sheet = sh
			break
		}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, sheet, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, sheet, ErrEmpty
	}
	return table.New(rows[0], rows[1:]), sheet, nil
}
