package sim

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/babetCode/IMU-gait-analysis/ekf"
	"github.com/babetCode/IMU-gait-analysis/logging"
)

// ErrorPolicy says what a Runner does when a filter step or a consumer fails.
type ErrorPolicy int

const (
	// Skip logs a failed predict, update or consumer, keeps the last good
	// state and carries on with the next sample.
	Skip ErrorPolicy = iota
	// Abort stops the run and returns the error.
	Abort
)

func (p ErrorPolicy) String() string {
	switch p {
	case Skip:
		return "skip"
	case Abort:
		return "abort"
	}
	return "unknown"
}

// ParseErrorPolicy converts "skip" or "abort".
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch s {
	case "skip", "":
		return Skip, nil
	case "abort":
		return Abort, nil
	}
	return Skip, errors.Errorf("sim: unknown error policy %q", s)
}

// Snapshot is the estimator state after one sample.
type Snapshot struct {
	Step    int
	T       float64
	Q       ekf.Quaternion
	Roll    float64 // rad
	Pitch   float64 // rad
	Yaw     float64 // rad
	Trace   float64 // Trace of the covariance
	Updated bool    // Whether a measurement was applied
}

// Consumer receives every snapshot of a run, in order.
type Consumer interface {
	Consume(Snapshot) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(Snapshot) error

func (f ConsumerFunc) Consume(s Snapshot) error {
	return f(s)
}

// Stats counts what happened during a run.
type Stats struct {
	Samples         int
	Updates         int
	SkippedPredicts int
	SkippedUpdates  int
}

// Runner predicts with every sample from Source, updates with every sample
// that carries a measurement, and passes the result to each Consumer.
type Runner struct {
	Estimator *ekf.Estimator
	Source    Source
	Consumers []Consumer
	Policy    ErrorPolicy
	Logger    *zap.SugaredLogger
}

// Run processes samples until the source is exhausted, ctx is done or,
// under Abort, a step fails.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	var st Stats
	if r.Estimator == nil || r.Source == nil {
		return st, errors.New("sim: runner needs an estimator and a source")
	}
	log := logging.OrNop(r.Logger)

	for {
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		default:
		}

		smp, err := r.Source.Next()
		if err == io.EOF {
			log.Infow("source exhausted", "samples", st.Samples, "updates", st.Updates,
				"skipped_predicts", st.SkippedPredicts, "skipped_updates", st.SkippedUpdates)
			return st, nil
		}
		if err != nil {
			return st, errors.Wrap(err, "sim: reading source")
		}
		step := st.Samples
		st.Samples++

		if err := r.Estimator.Predict(smp.Omega); err != nil {
			if r.Policy == Abort {
				return st, errors.Wrapf(err, "sim: predict at t=%v", smp.T)
			}
			log.Warnw("predict failed, keeping last state", "t", smp.T, "error", err)
			st.SkippedPredicts++
		}

		updated := false
		if smp.HasZ {
			if err := r.Estimator.Update(smp.Z); err != nil {
				if r.Policy == Abort {
					return st, errors.Wrapf(err, "sim: update at t=%v", smp.T)
				}
				log.Warnw("update failed, keeping prediction", "t", smp.T, "error", err)
				st.SkippedUpdates++
			} else {
				st.Updates++
				updated = true
			}
		}

		snap := r.snapshot(step, smp.T, updated)
		for _, c := range r.Consumers {
			if err := c.Consume(snap); err != nil {
				if r.Policy == Abort {
					return st, errors.Wrapf(err, "sim: consumer at t=%v", smp.T)
				}
				log.Warnw("consumer failed", "t", smp.T, "error", err)
			}
		}
	}
}

func (r *Runner) snapshot(step int, t float64, updated bool) Snapshot {
	q := r.Estimator.Orientation()
	roll, pitch, yaw := q.RollPitchYaw()
	return Snapshot{
		Step:    step,
		T:       t,
		Q:       q,
		Roll:    roll,
		Pitch:   pitch,
		Yaw:     yaw,
		Trace:   r.Estimator.Trace(),
		Updated: updated,
	}
}
