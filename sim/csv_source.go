package sim

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/babetCode/IMU-gait-analysis/logging"
)

// CSVSource replays samples recorded in a CSV file. The header names the
// columns: T for time, W1, W2, W3 for angular rate, and either Z1, Z2, Z3 for
// a direct measurement or A1, A2, A3 for an accelerometer reading. Other
// columns are ignored. A row with empty measurement cells has no measurement.
type CSVSource struct {
	r      *csv.Reader
	c      io.Closer
	logger *zap.SugaredLogger

	t     int
	w     [3]int
	m     [3]int // measurement columns, -1 if absent
	accel bool
	row   int
}

// OpenCSVSource opens the file fn for replay; Close it when done.
func OpenCSVSource(fn string, logger *zap.SugaredLogger) (*CSVSource, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrap(err, "sim: can't open csv source")
	}
	s, err := NewCSVSource(f, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.c = f
	return s, nil
}

// NewCSVSource reads the header from r and returns a source for the rows that follow.
func NewCSVSource(r io.Reader, logger *zap.SugaredLogger) (*CSVSource, error) {
	s := &CSVSource{
		r:      csv.NewReader(bufio.NewReader(r)),
		logger: logging.OrNop(logger),
		t:      -1,
		w:      [3]int{-1, -1, -1},
		m:      [3]int{-1, -1, -1},
	}
	s.r.FieldsPerRecord = -1
	s.r.TrimLeadingSpace = true

	// Read header line
	rec, err := s.r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "sim: can't read csv header")
	}

	var z, a [3]int
	z, a = [3]int{-1, -1, -1}, [3]int{-1, -1, -1}
	for i, k := range rec {
		switch strings.TrimSpace(k) {
		case "T":
			s.t = i
		case "W1":
			s.w[0] = i
		case "W2":
			s.w[1] = i
		case "W3":
			s.w[2] = i
		case "Z1":
			z[0] = i
		case "Z2":
			z[1] = i
		case "Z3":
			z[2] = i
		case "A1":
			a[0] = i
		case "A2":
			a[1] = i
		case "A3":
			a[2] = i
		}
	}
	if s.t < 0 || s.w[0] < 0 || s.w[1] < 0 || s.w[2] < 0 {
		return nil, errors.Errorf("sim: csv header %v needs T, W1, W2 and W3", rec)
	}
	switch {
	case z[0] >= 0 && z[1] >= 0 && z[2] >= 0:
		s.m = z
	case a[0] >= 0 && a[1] >= 0 && a[2] >= 0:
		s.m, s.accel = a, true
	}
	return s, nil
}

// Next returns the next well-formed row. Malformed rows are logged and
// skipped; a failure of the underlying reader is returned.
func (s *CSVSource) Next() (Sample, error) {
	for {
		rec, err := s.r.Read()
		if err == io.EOF {
			return Sample{}, io.EOF
		}
		s.row++
		if err != nil {
			if !errors.As(err, new(*csv.ParseError)) {
				return Sample{}, errors.Wrap(err, "sim: reading csv")
			}
			s.logger.Warnw("csv error, skipping this row", "row", s.row, "error", err)
			continue
		}
		smp, err := s.parse(rec)
		if err != nil {
			s.logger.Warnw("csv contains bad data, skipping this row", "row", s.row, "error", err)
			continue
		}
		return smp, nil
	}
}

func (s *CSVSource) parse(rec []string) (smp Sample, err error) {
	field := func(i int) (float64, error) {
		if i >= len(rec) {
			return 0, errors.Errorf("missing column %d", i)
		}
		return strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	}

	if smp.T, err = field(s.t); err != nil {
		return smp, err
	}
	for i, c := range s.w {
		if smp.Omega[i], err = field(c); err != nil {
			return smp, err
		}
	}

	if s.m[0] < 0 || s.blank(rec, s.m) {
		return smp, nil
	}
	var v [3]float64
	for i, c := range s.m {
		if v[i], err = field(c); err != nil {
			return smp, err
		}
	}
	if !s.accel {
		smp.Z, smp.HasZ = v, true
		return smp, nil
	}
	var ok bool
	if smp.Z, ok = AccelMeasurement(v); !ok {
		s.logger.Debugw("accelerometer reading too small, no measurement", "row", s.row)
	}
	smp.HasZ = ok
	return smp, nil
}

func (s *CSVSource) blank(rec []string, cols [3]int) bool {
	for _, c := range cols {
		if c < len(rec) && strings.TrimSpace(rec[c]) != "" {
			return false
		}
	}
	return true
}

// Close closes the underlying file, if the source was opened with OpenCSVSource.
func (s *CSVSource) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}
