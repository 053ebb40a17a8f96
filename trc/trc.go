// Package trc writes marker trajectories in the tab separated TRC format
// read by OpenSim.
package trc

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// MarkerSet holds the trajectories of named markers sampled at a fixed rate.
// Frames[i][j] is the position of marker j in frame i, in Units.
type MarkerSet struct {
	Names  []string
	Rate   float64 // Frames per second
	Units  string  // "m", "cm" or "mm"
	Frames [][]r3.Vector
}

// unitScale converts Units to millimetres, the only units TRC files carry here.
func unitScale(units string) (float64, error) {
	switch units {
	case "m":
		return 1000, nil
	case "cm":
		return 10, nil
	case "mm":
		return 1, nil
	}
	return 0, errors.Errorf("trc: unknown units %q", units)
}

// Validate checks that ms can be written.
func (ms *MarkerSet) Validate() error {
	if !(ms.Rate > 0) || math.IsInf(ms.Rate, 0) {
		return errors.Errorf("trc: rate must be positive, got %v", ms.Rate)
	}
	if _, err := unitScale(ms.Units); err != nil {
		return err
	}
	for i, n := range ms.Names {
		if strings.TrimSpace(n) == "" {
			return errors.Errorf("trc: marker %d has no name", i)
		}
	}
	for i, f := range ms.Frames {
		if len(f) != len(ms.Names) {
			return errors.Errorf("trc: frame %d has %d markers, want %d", i, len(f), len(ms.Names))
		}
	}
	return nil
}

// Write writes ms to w as a TRC file; pathName is recorded in the header.
// Positions are converted to millimetres.
func Write(w io.Writer, pathName string, ms *MarkerSet) error {
	if err := ms.Validate(); err != nil {
		return err
	}
	scale, _ := unitScale(ms.Units)
	bw := bufio.NewWriter(w)

	// Header
	fmt.Fprintf(bw, "PathFileType\t4\t(X/Y/Z)\t%s\n", pathName)
	fmt.Fprint(bw, "DataRate\tCameraRate\tNumFrames\tNumMarkers\tUnits\n")
	fmt.Fprintf(bw, "%.1f\t%.1f\t%d\t%d\tmm\n", ms.Rate, ms.Rate, len(ms.Frames), len(ms.Names))

	// Marker names, each spanning its X, Y and Z columns
	fmt.Fprint(bw, "Frame#\tTime")
	for _, n := range ms.Names {
		fmt.Fprintf(bw, "\t%s\t\t", n)
	}
	fmt.Fprint(bw, "\n")
	fmt.Fprint(bw, "\t\t")
	for range ms.Names {
		fmt.Fprint(bw, "\tX\tY\tZ")
	}
	fmt.Fprint(bw, "\n")

	for i, f := range ms.Frames {
		fmt.Fprintf(bw, "%d\t%.5f", i+1, float64(i)/ms.Rate)
		for _, p := range f {
			p = p.Mul(scale)
			fmt.Fprintf(bw, "\t%.5f\t%.5f\t%.5f", p.X, p.Y, p.Z)
		}
		fmt.Fprint(bw, "\n")
	}
	return errors.Wrap(bw.Flush(), "trc: writing")
}

// ReadMarkerCSV reads trajectories from a CSV file whose header names three
// columns per marker, NAME_x, NAME_y and NAME_z, in that order.
// Empty cells are missing data and read as NaN.
func ReadMarkerCSV(r io.Reader, rate float64, units string) (*MarkerSet, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "trc: reading csv header")
	}
	if len(header) == 0 || len(header)%3 != 0 {
		return nil, errors.Errorf("trc: csv header has %d columns, want three per marker", len(header))
	}
	ms := &MarkerSet{Rate: rate, Units: units}
	for i := 0; i < len(header); i += 3 {
		name, err := markerName(header[i : i+3])
		if err != nil {
			return nil, err
		}
		ms.Names = append(ms.Names, name)
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "trc: reading csv line %d", line)
		}
		f := make([]r3.Vector, len(ms.Names))
		for j := range f {
			var v [3]float64
			for k := range v {
				if v[k], err = cell(rec[3*j+k]); err != nil {
					return nil, errors.Wrapf(err, "trc: csv line %d, column %d", line, 3*j+k+1)
				}
			}
			f[j] = r3.Vector{X: v[0], Y: v[1], Z: v[2]}
		}
		ms.Frames = append(ms.Frames, f)
	}
	return ms, ms.Validate()
}

func markerName(cols []string) (string, error) {
	var name string
	for k, axis := range []string{"_x", "_y", "_z"} {
		c := strings.TrimSpace(cols[k])
		if !strings.HasSuffix(strings.ToLower(c), axis) {
			return "", errors.Errorf("trc: csv column %q should end in %s", c, axis)
		}
		n := c[:len(c)-len(axis)]
		if k == 0 {
			name = n
		} else if n != name {
			return "", errors.Errorf("trc: csv columns %q and %q name different markers", cols[0], c)
		}
	}
	return name, nil
}

func cell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
