package ekfweb

import (
	"github.com/babetCode/IMU-gait-analysis/ekf"
	"github.com/babetCode/IMU-gait-analysis/sim"
)

// Port is the default port of the ekfweb server.
const Port = 8000

// Path is where the ekfweb server accepts websocket connections.
const Path = "/ekfweb"

// OrientationData is the JSON message published for each estimator step.
type OrientationData struct {
	Step       int
	T          float64 // Sample time, s
	W, X, Y, Z float64 // Quaternion rotating body frame to reference frame
	Roll       float64 // °
	Pitch      float64 // °
	Yaw        float64 // °
	Trace      float64 // Trace of the covariance
	Updated    bool    // Whether a measurement was applied at this step
}

// NewOrientationData converts a snapshot for publication.
func NewOrientationData(s sim.Snapshot) *OrientationData {
	return &OrientationData{
		Step:    s.Step,
		T:       s.T,
		W:       s.Q.W,
		X:       s.Q.X,
		Y:       s.Q.Y,
		Z:       s.Q.Z,
		Roll:    s.Roll / ekf.Deg,
		Pitch:   s.Pitch / ekf.Deg,
		Yaw:     s.Yaw / ekf.Deg,
		Trace:   s.Trace,
		Updated: s.Updated,
	}
}
