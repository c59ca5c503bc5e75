package model

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// FieldReader is just a simple reader for whitespace-delimited numeric
// tables (coordinates, covariates, responses).
type FieldReader struct {
	Pos    int
	Fields []string
}

// NewFieldReader constructs a new field reader around the given data
func NewFieldReader(data string) *FieldReader {
	return &FieldReader{0, strings.Fields(data)}
}

// Read returns the next space-delimited field/token
func (fr *FieldReader) Read() (string, error) {
	if fr.Pos >= len(fr.Fields) {
		return "", io.EOF
	}
	p := fr.Pos
	fr.Pos++
	return fr.Fields[p], nil
}

// ReadFloat reads the next token as a float
func (fr *FieldReader) ReadFloat() (float64, error) {
	s, err := fr.Read()
	if err != nil {
		return 0, err
	}

	return strconv.ParseFloat(s, 64)
}

// ParseTable parses a rectangular table of floats: one row per line, columns
// whitespace-delimited. Blank lines and lines starting with '#' are skipped.
func ParseTable(data string) ([][]float64, error) {
	var rows [][]float64

	for lineNo, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 1 || strings.HasPrefix(line, "#") {
			continue
		}

		fr := NewFieldReader(line)
		var row []float64
		for {
			f, err := fr.ReadFloat()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, errors.Wrapf(err, "Could not parse line %d", lineNo+1)
			}
			row = append(row, f)
		}

		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, DimensionMismatch("columns on line "+strconv.Itoa(lineNo+1), len(rows[0]), len(row))
		}
		rows = append(rows, row)
	}

	if len(rows) < 1 {
		return nil, errors.Errorf("Table is empty")
	}

	return rows, nil
}

// ReadTableFile reads and parses a numeric table from a file.
func ReadTableFile(filename string) ([][]float64, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not READ table from %s", filename)
	}

	rows, err := ParseTable(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "Could not parse table %s", filename)
	}

	return rows, nil
}

// TableMatrix converts parsed rows into a dense matrix.
func TableMatrix(rows [][]float64) *mat.Dense {
	n, p := len(rows), len(rows[0])
	m := mat.NewDense(n, p, nil)
	for i, r := range rows {
		m.SetRow(i, r)
	}
	return m
}

// TableVector converts a single-column table into a flat vector.
func TableVector(rows [][]float64) ([]float64, error) {
	v := make([]float64, len(rows))
	for i, r := range rows {
		if len(r) != 1 {
			return nil, DimensionMismatch("response columns", 1, len(r))
		}
		v[i] = r[0]
	}
	return v, nil
}

// NewObservationSetFromFiles assembles an observation set from three table
// files: coordinates (N x d), covariates (N x p), and response (N x 1).
func NewObservationSetFromFiles(coordFile, covarFile, respFile string) (*ObservationSet, error) {
	coords, err := ReadTableFile(coordFile)
	if err != nil {
		return nil, err
	}

	covars, err := ReadTableFile(covarFile)
	if err != nil {
		return nil, err
	}

	respRows, err := ReadTableFile(respFile)
	if err != nil {
		return nil, err
	}
	resp, err := TableVector(respRows)
	if err != nil {
		return nil, errors.Wrapf(err, "Bad response table %s", respFile)
	}

	return NewObservationSet(coords, TableMatrix(covars), resp)
}
