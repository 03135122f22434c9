package importer

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Recognized CSV columns. officialName, branch and orgType must be present
// in the header; the rest are optional.
var (
	requiredColumns = []string{"officialName", "branch", "orgType"}
	allowedColumns  = []string{
		"officialName", "acronym", "branch", "orgType", "orgLevel",
		"parentId", "establishedDate", "dissolvedDate", "websiteUrl",
		"jurisdictionAreas",
	}
)

// row is one data record with its 1-based line number. The header row
// counts as line 1, so the first data row is line 2.
type row struct {
	line   int
	values map[string]string
}

func (r row) get(column string) string {
	return strings.TrimSpace(r.values[column])
}

func (r row) blank() bool {
	for _, v := range r.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parse reads the whole document up front so structural problems surface
// before any per-row processing. Blank rows are dropped, not counted.
func parse(input io.Reader) ([]row, error) {
	br := stripUTF8BOM(bufio.NewReader(input))
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty CSV input")
		}
		return nil, fmt.Errorf("unreadable CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var rows []row
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("malformed CSV at line %d: %w", line, err)
		}

		values := make(map[string]string, len(header))
		for i, column := range header {
			if i < len(record) {
				values[column] = record[i]
			}
		}
		r := row{line: line, values: values}
		if r.blank() {
			continue
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func checkHeader(header []string) error {
	present := make(map[string]bool, len(header))
	for _, column := range header {
		present[column] = true
	}
	for _, required := range requiredColumns {
		if !present[required] {
			return fmt.Errorf("missing required header column: %s", required)
		}
	}
	allowed := make(map[string]bool, len(allowedColumns))
	for _, column := range allowedColumns {
		allowed[column] = true
	}
	for _, column := range header {
		if !allowed[column] {
			return fmt.Errorf("unexpected header column: %s", column)
		}
	}
	return nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}
