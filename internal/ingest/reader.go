package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// table is a raw CSV file: trimmed headers plus string rows
type table struct {
	name    string
	headers []string
	rows    [][]string
}

// readCSV reads a comma or semicolon separated file. Malformed rows are
// skipped rather than failing the whole file.
func readCSV(path string) (*table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	reader := newReader(file, ',')
	headers, err := reader.Read()
	if err == nil && len(headers) == 1 && strings.Contains(headers[0], ";") {
		err = eris.New("single column header")
	}
	if err != nil {
		if _, serr := file.Seek(0, io.SeekStart); serr != nil {
			return nil, eris.Wrapf(serr, "rewind %s", path)
		}
		reader = newReader(file, ';')
		headers, err = reader.Read()
		if err != nil {
			return nil, eris.Wrapf(err, "read headers of %s", path)
		}
	}

	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	t := &table{name: filepath.Base(path), headers: headers}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if isBlankRow(record) {
			continue
		}
		t.rows = append(t.rows, record)
	}
	return t, nil
}

func newReader(r io.Reader, comma rune) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return reader
}

func isBlankRow(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// cell returns the trimmed value at idx, or "" when the row is short
func (t *table) cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// column returns the index of the first header accepted by match, or -1
func (t *table) column(match func(key string) bool) int {
	for i, h := range t.headers {
		if match(headerKey(h)) {
			return i
		}
	}
	return -1
}

// headerKey lowercases a header and folds separators to single spaces
func headerKey(h string) string {
	h = strings.ToLower(h)
	h = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(h)
	return strings.Join(strings.Fields(h), " ")
}
