package trc

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLayout(t *testing.T) {
	ms := &MarkerSet{
		Names: []string{"LASI", "RASI"},
		Rate:  100,
		Units: "m",
		Frames: [][]r3.Vector{
			{{X: 0.1, Y: 0.2, Z: 0.3}, {X: -1, Y: 0, Z: 1.5}},
			{{X: 0.11, Y: 0.2, Z: 0.3}, {X: -1, Y: 0.001, Z: 1.5}},
		},
	}
	var b bytes.Buffer
	require.NoError(t, Write(&b, "walk.trc", ms))

	want := "PathFileType\t4\t(X/Y/Z)\twalk.trc\n" +
		"DataRate\tCameraRate\tNumFrames\tNumMarkers\tUnits\n" +
		"100.0\t100.0\t2\t2\tmm\n" +
		"Frame#\tTime\tLASI\t\t\tRASI\t\t\n" +
		"\t\t\tX\tY\tZ\tX\tY\tZ\n" +
		"1\t0.00000\t100.00000\t200.00000\t300.00000\t-1000.00000\t0.00000\t1500.00000\n" +
		"2\t0.01000\t110.00000\t200.00000\t300.00000\t-1000.00000\t1.00000\t1500.00000\n"
	assert.Equal(t, want, b.String())
}

func TestWriteKeepsMillimetres(t *testing.T) {
	ms := &MarkerSet{Names: []string{"HEEL"}, Rate: 60, Units: "mm", Frames: [][]r3.Vector{{{X: 1.5, Y: 2, Z: 3}}}}
	var b bytes.Buffer
	require.NoError(t, Write(&b, "x.trc", ms))
	lines := strings.Split(b.String(), "\n")
	assert.Equal(t, "60.0\t60.0\t1\t1\tmm", lines[2])
	assert.Equal(t, "1\t0.00000\t1.50000\t2.00000\t3.00000", lines[5])
}

func TestWriteRejects(t *testing.T) {
	ok := func() *MarkerSet {
		return &MarkerSet{Names: []string{"A"}, Rate: 100, Units: "m", Frames: [][]r3.Vector{{{}}}}
	}
	cases := map[string]func(*MarkerSet){
		"rate":  func(ms *MarkerSet) { ms.Rate = 0 },
		"nan":   func(ms *MarkerSet) { ms.Rate = math.NaN() },
		"units": func(ms *MarkerSet) { ms.Units = "in" },
		"name":  func(ms *MarkerSet) { ms.Names[0] = " " },
		"width": func(ms *MarkerSet) { ms.Frames = append(ms.Frames, []r3.Vector{{}, {}}) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			ms := ok()
			mutate(ms)
			assert.Error(t, Write(&bytes.Buffer{}, "x.trc", ms))
		})
	}
	assert.NoError(t, Write(&bytes.Buffer{}, "x.trc", ok()))
}

func TestReadMarkerCSV(t *testing.T) {
	data := "toe_x,toe_y,toe_z,Heel_X,Heel_Y,Heel_Z\n" +
		"1,2,3,4,5,6\n" +
		"1.5,2.5,3.5,,,\n"
	ms, err := ReadMarkerCSV(strings.NewReader(data), 120, "m")
	require.NoError(t, err)

	assert.Equal(t, []string{"toe", "Heel"}, ms.Names)
	assert.Equal(t, 120.0, ms.Rate)
	require.Len(t, ms.Frames, 2)
	assert.Equal(t, r3.Vector{X: 4, Y: 5, Z: 6}, ms.Frames[0][1])
	assert.Equal(t, r3.Vector{X: 1.5, Y: 2.5, Z: 3.5}, ms.Frames[1][0])
	assert.True(t, math.IsNaN(ms.Frames[1][1].X))
}

func TestReadMarkerCSVRejects(t *testing.T) {
	for _, data := range []string{
		"",
		"a_x,a_y\n1,2\n",
		"a_x,a_y,b_z\n1,2,3\n",
		"a_y,a_x,a_z\n1,2,3\n",
		"a_x,a_y,a_z\n1,two,3\n",
		"a_x,a_y,a_z\n1,2\n",
	} {
		_, err := ReadMarkerCSV(strings.NewReader(data), 100, "m")
		assert.Error(t, err, "%q", data)
	}
	_, err := ReadMarkerCSV(strings.NewReader("a_x,a_y,a_z\n1,2,3\n"), 100, "furlongs")
	assert.Error(t, err)
}
