// Package dataset stores pipeline artifacts (settings, parameter tables,
// waveform and strain arrays) in single-file SQLite databases.
package dataset

import (
	"database/sql"
	"encoding/binary"
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/dingo-gw/dingo/internal/table"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	name TEXT PRIMARY KEY,
	body TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tables (
	name    TEXT PRIMARY KEY,
	columns TEXT NOT NULL,
	body    BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS arrays (
	name TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	rows INTEGER NOT NULL,
	cols INTEGER NOT NULL,
	body BLOB NOT NULL
);
`

const (
	kindFloat   = "float"
	kindComplex = "complex"
)

// ErrNotFound is returned when a named entry does not exist in the file.
var ErrNotFound = errors.New("entry not found")

// File is a dataset file.
type File struct {
	db *sql.DB
}

// Open opens or creates a dataset file at path.
func Open(path string) (*File, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open dataset %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, errors.Wrapf(err, "unable to initialize dataset %s", path)
	}

	return &File{db: db}, nil
}

// Exists reports whether a dataset file exists at path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}

	return false, errors.Wrapf(err, "unable to stat %s", path)
}

// Close closes the file.
func (f *File) Close() error {
	return errors.Wrap(f.db.Close(), "unable to close dataset")
}

// PutSettings stores a named settings document as YAML.
func (f *File) PutSettings(name string, v any) error {
	body, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "unable to marshal settings %s", name)
	}
	_, err = f.db.Exec(
		`INSERT INTO settings (name, body) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET body = excluded.body`,
		name, string(body))

	return errors.Wrapf(err, "unable to store settings %s", name)
}

// Settings loads a named settings document into out.
func (f *File) Settings(name string, out any) error {
	var body string
	err := f.db.QueryRow(`SELECT body FROM settings WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(ErrNotFound, name)
	}
	if err != nil {
		return errors.Wrapf(err, "unable to load settings %s", name)
	}

	return errors.Wrapf(yaml.Unmarshal([]byte(body), out), "unable to decode settings %s", name)
}

// SettingsMap loads a named settings document as a generic map.
func (f *File) SettingsMap(name string) (map[string]any, error) {
	out := map[string]any{}
	if err := f.Settings(name, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// PutTable stores a parameter table.
func (f *File) PutTable(name string, tbl *table.Table) error {
	columns, err := yaml.Marshal(tbl.Columns)
	if err != nil {
		return errors.Wrapf(err, "unable to marshal columns of %s", name)
	}
	body := make([]byte, 0, 8*tbl.Len()*len(tbl.Columns))
	for _, row := range tbl.Rows {
		for _, v := range row {
			body = binary.LittleEndian.AppendUint64(body, math.Float64bits(v))
		}
	}
	_, err = f.db.Exec(
		`INSERT INTO tables (name, columns, body) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET columns = excluded.columns, body = excluded.body`,
		name, string(columns), body)

	return errors.Wrapf(err, "unable to store table %s", name)
}

// Table loads a parameter table.
func (f *File) Table(name string) (*table.Table, error) {
	var columnsYAML string
	var body []byte
	err := f.db.QueryRow(`SELECT columns, body FROM tables WHERE name = ?`, name).Scan(&columnsYAML, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load table %s", name)
	}
	var columns []string
	if err := yaml.Unmarshal([]byte(columnsYAML), &columns); err != nil {
		return nil, errors.Wrapf(err, "unable to decode columns of %s", name)
	}
	if len(columns) == 0 {
		return nil, errors.Errorf("table %s has no columns", name)
	}
	if len(body)%(8*len(columns)) != 0 {
		return nil, errors.Errorf("table %s payload is misaligned", name)
	}

	tbl := table.New(columns...)
	for off := 0; off < len(body); off += 8 * len(columns) {
		row := make([]float64, len(columns))
		for j := range row {
			bits := binary.LittleEndian.Uint64(body[off+8*j:])
			row[j] = math.Float64frombits(bits)
		}
		tbl.Rows = append(tbl.Rows, row)
	}

	return tbl, nil
}

func (f *File) putArray(name, kind string, rows, cols int, body []byte) error {
	_, err := f.db.Exec(
		`INSERT INTO arrays (name, kind, rows, cols, body) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		 kind = excluded.kind, rows = excluded.rows, cols = excluded.cols, body = excluded.body`,
		name, kind, rows, cols, body)

	return errors.Wrapf(err, "unable to store array %s", name)
}

func (f *File) getArray(name, kind string) (int, int, []byte, error) {
	var gotKind string
	var rows, cols int
	var body []byte
	err := f.db.QueryRow(`SELECT kind, rows, cols, body FROM arrays WHERE name = ?`, name).
		Scan(&gotKind, &rows, &cols, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, nil, errors.Wrap(ErrNotFound, name)
	}
	if err != nil {
		return 0, 0, nil, errors.Wrapf(err, "unable to load array %s", name)
	}
	if gotKind != kind {
		return 0, 0, nil, errors.Errorf("array %s is %s, expected %s", name, gotKind, kind)
	}

	return rows, cols, body, nil
}

// PutComplexMatrix stores a matrix of complex values.
func (f *File) PutComplexMatrix(name string, data [][]complex128) error {
	rows := len(data)
	cols := 0
	if rows > 0 {
		cols = len(data[0])
	}
	body := make([]byte, 0, 16*rows*cols)
	for i, row := range data {
		if len(row) != cols {
			return errors.Errorf("array %s row %d has %d values, expected %d", name, i, len(row), cols)
		}
		for _, v := range row {
			body = binary.LittleEndian.AppendUint64(body, math.Float64bits(real(v)))
			body = binary.LittleEndian.AppendUint64(body, math.Float64bits(imag(v)))
		}
	}

	return f.putArray(name, kindComplex, rows, cols, body)
}

// ComplexMatrix loads a matrix of complex values.
func (f *File) ComplexMatrix(name string) ([][]complex128, error) {
	rows, cols, body, err := f.getArray(name, kindComplex)
	if err != nil {
		return nil, err
	}
	if len(body) != 16*rows*cols {
		return nil, errors.Errorf("array %s payload is misaligned", name)
	}
	out := make([][]complex128, rows)
	off := 0
	for i := range out {
		row := make([]complex128, cols)
		for j := range row {
			re := math.Float64frombits(binary.LittleEndian.Uint64(body[off:]))
			im := math.Float64frombits(binary.LittleEndian.Uint64(body[off+8:]))
			row[j] = complex(re, im)
			off += 16
		}
		out[i] = row
	}

	return out, nil
}

// PutFloatMatrix stores a matrix of real values.
func (f *File) PutFloatMatrix(name string, data [][]float64) error {
	rows := len(data)
	cols := 0
	if rows > 0 {
		cols = len(data[0])
	}
	body := make([]byte, 0, 8*rows*cols)
	for i, row := range data {
		if len(row) != cols {
			return errors.Errorf("array %s row %d has %d values, expected %d", name, i, len(row), cols)
		}
		for _, v := range row {
			body = binary.LittleEndian.AppendUint64(body, math.Float64bits(v))
		}
	}

	return f.putArray(name, kindFloat, rows, cols, body)
}

// FloatMatrix loads a matrix of real values.
func (f *File) FloatMatrix(name string) ([][]float64, error) {
	rows, cols, body, err := f.getArray(name, kindFloat)
	if err != nil {
		return nil, err
	}
	if len(body) != 8*rows*cols {
		return nil, errors.Errorf("array %s payload is misaligned", name)
	}
	out := make([][]float64, rows)
	off := 0
	for i := range out {
		row := make([]float64, cols)
		for j := range row {
			row[j] = math.Float64frombits(binary.LittleEndian.Uint64(body[off:]))
			off += 8
		}
		out[i] = row
	}

	return out, nil
}
