package sim

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/babetCode/IMU-gait-analysis/ekf"
)

// CSVHeader lists the columns written by CSVLogger.
var CSVHeader = []string{"Step", "T", "W", "X", "Y", "Z", "Roll", "Pitch", "Yaw", "Trace", "Updated"}

// CSVLogger writes one CSV row per snapshot; angles are in degrees.
type CSVLogger struct {
	w   io.Writer
	c   io.Closer
	fmt string
}

// NewCSVLogger writes the header to w and returns a logger for the rows.
func NewCSVLogger(w io.Writer) (*CSVLogger, error) {
	l := &CSVLogger{w: w}
	if _, err := fmt.Fprint(l.w, strings.Join(CSVHeader, ","), "\n"); err != nil {
		return nil, errors.Wrap(err, "sim: writing csv header")
	}
	s := strings.Repeat("%f,", len(CSVHeader)-3)
	l.fmt = strings.Join([]string{"%d,", s, "%g,%t\n"}, "")
	return l, nil
}

// CreateCSVLogger creates the file fn and logs to it; Close it when done.
func CreateCSVLogger(fn string) (*CSVLogger, error) {
	f, err := os.Create(fn)
	if err != nil {
		return nil, errors.Wrap(err, "sim: can't create csv log")
	}
	l, err := NewCSVLogger(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	l.c = f
	return l, nil
}

func (l *CSVLogger) Consume(s Snapshot) error {
	_, err := fmt.Fprintf(l.w, l.fmt, s.Step, s.T, s.Q.W, s.Q.X, s.Q.Y, s.Q.Z,
		s.Roll/ekf.Deg, s.Pitch/ekf.Deg, s.Yaw/ekf.Deg, s.Trace, s.Updated)
	return errors.Wrap(err, "sim: writing csv row")
}

// Close closes the file opened by CreateCSVLogger.
func (l *CSVLogger) Close() error {
	if l.c == nil {
		return nil
	}
	return l.c.Close()
}
