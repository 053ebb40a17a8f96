package sim

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babetCode/IMU-gait-analysis/ekf"
)

func TestAccelMeasurement(t *testing.T) {
	z, ok := AccelMeasurement([3]float64{0, 0, 9.81})
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{0, 0, 2}, z[:], 1e-12)

	z, ok = AccelMeasurement([3]float64{3, 0, 4})
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{1.2, 0, 1.6}, z[:], 1e-12)

	_, ok = AccelMeasurement([3]float64{})
	assert.False(t, ok)
	_, ok = AccelMeasurement([3]float64{math.NaN(), 0, 1})
	assert.False(t, ok)
}

func TestCSVSourceAccel(t *testing.T) {
	data := `T,W1,W2,W3,A1,A2,A3,Note
0,0.1,0,0,0,0,9.81,x
0.01,bad,0,0,0,0,9.81,x
0.02,0.1,0.2,0.3,,,,x
0.03,0.1,0,0,0,0,0,x
`
	s, err := NewCSVSource(strings.NewReader(data), nil)
	require.NoError(t, err)

	smp, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, 0.0, smp.T)
	assert.Equal(t, [3]float64{0.1, 0, 0}, smp.Omega)
	assert.True(t, smp.HasZ)
	assert.InDeltaSlice(t, []float64{0, 0, 2}, smp.Z[:], 1e-12)

	// The malformed row is skipped.
	smp, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, 0.02, smp.T)
	assert.Equal(t, [3]float64{0.1, 0.2, 0.3}, smp.Omega)
	assert.False(t, smp.HasZ)

	smp, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, 0.03, smp.T)
	assert.False(t, smp.HasZ)

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, s.Close())
}

func TestCSVSourceDirectMeasurement(t *testing.T) {
	data := "W1,W2,W3,T,Z1,Z2,Z3\n0,0,0,1.5,0.99,0.01,0.02\n"
	s, err := NewCSVSource(strings.NewReader(data), nil)
	require.NoError(t, err)

	smp, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, Sample{T: 1.5, Z: ReferenceMeasurement, HasZ: true}, smp)
}

func TestCSVSourceGyroOnly(t *testing.T) {
	s, err := NewCSVSource(strings.NewReader("T,W1,W2,W3\n0,1,2,3\n"), nil)
	require.NoError(t, err)

	smp, err := s.Next()
	require.NoError(t, err)
	assert.False(t, smp.HasZ)
	assert.Equal(t, [3]float64{1, 2, 3}, smp.Omega)
}

// failingReader returns err on every read.
type failingReader struct {
	err error
}

func (r failingReader) Read([]byte) (int, error) {
	return 0, r.err
}

func TestCSVSourceReadError(t *testing.T) {
	diskGone := errors.New("disk gone")
	r := io.MultiReader(strings.NewReader("T,W1,W2,W3\n0,1,2,3\n"), failingReader{diskGone})
	s, err := NewCSVSource(r, nil)
	require.NoError(t, err)

	smp, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1, 2, 3}, smp.Omega)

	_, err = s.Next()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
	assert.ErrorIs(t, err, diskGone)
}

func TestCSVSourceSkipsBadQuoting(t *testing.T) {
	data := "T,W1,W2,W3\n0,1\"x,2,3\n0.5,1,2,3\n"
	s, err := NewCSVSource(strings.NewReader(data), nil)
	require.NoError(t, err)

	smp, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, 0.5, smp.T)
}

func TestCSVSourceBadHeader(t *testing.T) {
	_, err := NewCSVSource(strings.NewReader("T,W1,W2\n0,0,0\n"), nil)
	assert.Error(t, err)

	_, err = NewCSVSource(strings.NewReader(""), nil)
	assert.Error(t, err)

	_, err = OpenCSVSource("/nonexistent/file.csv", nil)
	assert.Error(t, err)
}

func TestSyntheticTruth(t *testing.T) {
	s, err := NewSyntheticSource(SyntheticConfig{
		DT:      1 / ekf.DefaultSampleRate,
		Samples: 144,
		Rate:    [3]float64{0.1, 0, 0},
	})
	require.NoError(t, err)

	n := 0
	for {
		smp, err := s.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.True(t, smp.HasZ)
		assert.InDelta(t, float64(n)/ekf.DefaultSampleRate, smp.T, 1e-12)

		// Noise-free measurements agree with the estimator's measurement model.
		z := ekf.ObservationModel(s.Truth())
		for k := range z {
			assert.InDelta(t, ekf.MeasurementScale*z[k], smp.Z[k], 1e-12)
		}
		n++
	}
	assert.Equal(t, 144, n)

	roll, pitch, yaw := s.Truth().RollPitchYaw()
	assert.InDelta(t, 0.1, roll, 1e-9)
	assert.InDelta(t, 0, pitch, 1e-9)
	assert.InDelta(t, 0, yaw, 1e-9)
}

func TestSyntheticDeterministic(t *testing.T) {
	c := SyntheticConfig{DT: 0.01, Samples: 50, Rate: [3]float64{0.3, -0.2, 0.1}, Noise: 0.01, UpdateEvery: 5, Seed: 42}
	a, err := NewSyntheticSource(c)
	require.NoError(t, err)
	b, err := NewSyntheticSource(c)
	require.NoError(t, err)

	updates := 0
	for i := 0; i < 50; i++ {
		sa, err := a.Next()
		require.NoError(t, err)
		sb, err := b.Next()
		require.NoError(t, err)
		assert.Equal(t, sa, sb)
		if sa.HasZ {
			updates++
		}
	}
	assert.Equal(t, 10, updates)
	assert.Equal(t, a.Truth(), b.Truth())
}

func TestSyntheticRejects(t *testing.T) {
	for _, c := range []SyntheticConfig{
		{DT: 0, Samples: 1},
		{DT: 0.01, Samples: -1},
		{DT: 0.01, Samples: 1, Noise: -1},
		{DT: 0.01, Samples: 1, UpdateEvery: -2},
		{DT: 0.01, Samples: 1, Initial: ekf.Quaternion{W: math.NaN()}},
	} {
		_, err := NewSyntheticSource(c)
		assert.Error(t, err, "%+v", c)
	}
}

func TestPlaceholderSource(t *testing.T) {
	inner, err := NewSyntheticSource(SyntheticConfig{DT: 0.01, Samples: 4, UpdateEvery: 2})
	require.NoError(t, err)
	s := NewPlaceholderSource(inner, ReferenceMeasurement)

	for i := 0; i < 4; i++ {
		smp, err := s.Next()
		require.NoError(t, err)
		assert.True(t, smp.HasZ)
		assert.Equal(t, ReferenceMeasurement, smp.Z)
	}
	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}
