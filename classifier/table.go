package classifier

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Table is a column-oriented score table: one column per theme, one row per
// scored script or subtitle batch. Missing cells are stored as NaN.
type Table struct {
	Columns []string
	Values  map[string][]float64
}

func NewTable() *Table {
	return &Table{Values: make(map[string][]float64)}
}

// Add appends a column. All columns must have the same number of rows.
func (t *Table) Add(name string, values []float64) error {
	if name == "" {
		return errors.New("column name is required")
	}
	if _, exists := t.Values[name]; exists {
		return errors.Errorf("duplicate column %q", name)
	}
	if len(t.Columns) > 0 && len(values) != t.Rows() {
		return errors.Errorf("column %q has %d rows, expected %d", name, len(values), t.Rows())
	}
	t.Columns = append(t.Columns, name)
	t.Values[name] = values
	return nil
}

func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Values[t.Columns[0]])
}

func (t *Table) Column(name string) ([]float64, bool) {
	values, ok := t.Values[name]
	return values, ok
}

// Sum adds up a column, skipping missing cells.
func (t *Table) Sum(name string) (float64, error) {
	values, ok := t.Values[name]
	if !ok {
		return 0, errors.Errorf("column %q not found in classifier output", name)
	}
	var total float64
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		total += v
	}
	return total, nil
}

// WriteCSV writes the table with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for row := 0; row < t.Rows(); row++ {
		record := make([]string, len(t.Columns))
		for i, name := range t.Columns {
			v := t.Values[name][row]
			if math.IsNaN(v) {
				continue
			}
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "write csv row %d", row)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// SaveCSV writes the table to path, creating parent directories. The file is
// written to a temporary name and renamed into place.
func (t *Table) SaveCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create save directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if err := t.WriteCSV(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "move csv into place")
}

// ReadCSV parses a table with a header row. Columns holding any non-numeric
// cell (episode names, raw script text) are left out; empty cells become NaN.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(records) == 0 {
		return nil, errors.New("csv has no header")
	}

	header := records[0]
	rows := records[1:]
	table := NewTable()

	for col, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			// pandas writes an unnamed index column
			continue
		}
		values := make([]float64, len(rows))
		numeric := true
		for i, record := range rows {
			if col >= len(record) || strings.TrimSpace(record[col]) == "" {
				values[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil {
				numeric = false
				break
			}
			values[i] = v
		}
		if !numeric {
			continue
		}
		if err := table.Add(name, values); err != nil {
			return nil, err
		}
	}

	return table, nil
}

// LoadCSV reads a table from path.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open saved results")
	}
	defer f.Close()
	return ReadCSV(f)
}
