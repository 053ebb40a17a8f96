/*
Command ekf_sim runs the orientation estimator over a recorded CSV file or a
synthetic rotation, and logs or publishes the estimate at every sample.
*/
package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/babetCode/IMU-gait-analysis/config"
	"github.com/babetCode/IMU-gait-analysis/ekf"
	"github.com/babetCode/IMU-gait-analysis/ekfweb"
	"github.com/babetCode/IMU-gait-analysis/logging"
	"github.com/babetCode/IMU-gait-analysis/sim"
)

const (
	flagConfig    = "config"
	flagInput     = "input"
	flagOutput    = "output"
	flagLogLevel  = "log-level"
	flagJoseph    = "joseph"
	flagWebsocket = "websocket"
	flagMQTT      = "mqtt-broker"
)

func main() {
	app := &cli.App{
		Name:  "ekf_sim",
		Usage: "estimate orientation from gyro and gravity measurements",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:    flagInput,
				Aliases: []string{"i"},
				Usage:   "replay samples from CSV `FILE` instead of the configured source",
			},
			&cli.StringFlag{
				Name:    flagOutput,
				Aliases: []string{"o"},
				Usage:   "write the estimate at every sample to CSV `FILE`",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:  flagJoseph,
				Usage: "use the Joseph form of the covariance update",
			},
			&cli.StringFlag{
				Name:  flagWebsocket,
				Usage: "publish to the ekfweb server at `HOST:PORT`",
			},
			&cli.StringFlag{
				Name:  flagMQTT,
				Usage: "publish to the MQTT broker at `URL`",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if fn := c.String(flagConfig); fn != "" {
		var err error
		if cfg, err = config.Load(fn); err != nil {
			return nil, err
		}
	}
	if fn := c.String(flagInput); fn != "" {
		cfg.Source.Kind, cfg.Source.Path = config.SourceCSV, fn
	}
	if fn := c.String(flagOutput); fn != "" {
		cfg.Publish.CSV = fn
	}
	if lvl := c.String(flagLogLevel); lvl != "" {
		cfg.Log.Level = lvl
	}
	if c.Bool(flagJoseph) {
		cfg.Joseph = true
	}
	if h := c.String(flagWebsocket); h != "" {
		cfg.Publish.Websocket = h
	}
	if b := c.String(flagMQTT); b != "" {
		cfg.Publish.MQTTBroker = b
	}
	return cfg, cfg.Validate()
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger("ekf_sim", cfg.Log.Level, cfg.Log.Output)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ec, err := cfg.EstimatorConfig()
	if err != nil {
		return err
	}
	est, err := ekf.NewWithConfig(ec)
	if err != nil {
		return err
	}
	policy, err := sim.ParseErrorPolicy(cfg.OnNumericalError)
	if err != nil {
		return err
	}

	src, closers, err := buildSource(cfg, logger)
	if err != nil {
		return err
	}
	consumers, more, err := buildConsumers(cfg, logger)
	closers = append(closers, more...)
	defer func() {
		for _, cl := range closers {
			if err := cl.Close(); err != nil {
				logger.Warnw("close failed", "error", err)
			}
		}
	}()
	if err != nil {
		return err
	}

	var te *sim.TrackingError
	if ts, ok := src.(truthSource); ok {
		te = sim.NewTrackingError(ts.Truth, 0.99)
		consumers = append(consumers, te)
	}

	logger.Infow("running estimator",
		"dt", ec.DT, "process_noise", ec.ProcessNoise, "measurement_noise", ec.MeasurementNoise,
		"covariance_form", ec.CovarianceForm, "source", cfg.Source.Kind, "policy", policy)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := sim.Runner{Estimator: est, Source: src, Consumers: consumers, Policy: policy, Logger: logger}
	st, err := r.Run(ctx)
	if err != nil {
		return err
	}

	q := est.Orientation()
	roll, pitch, yaw := q.RollPitchYaw()
	droll, dpitch, dyaw := est.AngleUncertainty()
	fmt.Printf("Samples: %d, updates: %d, skipped updates: %d\n", st.Samples, st.Updates, st.SkippedUpdates)
	fmt.Printf("Orientation: %+.6f %+.6f %+.6f %+.6f\n", q.W, q.X, q.Y, q.Z)
	fmt.Printf("Roll %+.2f±%.2f°, pitch %+.2f±%.2f°, yaw %+.2f±%.2f°\n",
		roll/ekf.Deg, droll/ekf.Deg, pitch/ekf.Deg, dpitch/ekf.Deg, yaw/ekf.Deg, dyaw/ekf.Deg)
	if te != nil {
		tr, tp, ty := te.Truth().RollPitchYaw()
		fmt.Printf("Truth: roll %+.2f°, pitch %+.2f°, yaw %+.2f°\n", tr/ekf.Deg, tp/ekf.Deg, ty/ekf.Deg)
		fmt.Printf("Tracking error: mean %.4f°, std %.4f°, max %.4f°\n",
			te.Mean/ekf.Deg, math.Sqrt(te.Variance)/ekf.Deg, te.Max/ekf.Deg)
	}
	return nil
}

type truthSource interface {
	Truth() ekf.Quaternion
}

func buildSource(cfg *config.Config, logger *zap.SugaredLogger) (sim.Source, []io.Closer, error) {
	var (
		src     sim.Source
		closers []io.Closer
	)
	switch cfg.Source.Kind {
	case config.SourceCSV:
		logger.Infow("loading data", "file", cfg.Source.Path)
		s, err := sim.OpenCSVSource(cfg.Source.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		src, closers = s, append(closers, s)
	case config.SourceSynthetic:
		s, err := sim.NewSyntheticSource(sim.SyntheticConfig{
			DT:          1 / cfg.SampleRate,
			Samples:     cfg.Source.Samples,
			Rate:        cfg.Source.Rate,
			Noise:       cfg.Source.Noise,
			UpdateEvery: cfg.UpdateEvery,
			Seed:        cfg.Source.Seed,
		})
		if err != nil {
			return nil, nil, err
		}
		src = s
	default:
		return nil, nil, errors.Errorf("no such source: %s", cfg.Source.Kind)
	}
	if z := cfg.Source.Placeholder; z != nil {
		logger.Infow("replacing measurements with a constant", "z", *z)
		if ts, ok := src.(truthSource); ok {
			return placeholderWithTruth{sim.NewPlaceholderSource(src, *z), ts}, closers, nil
		}
		src = sim.NewPlaceholderSource(src, *z)
	}
	return src, closers, nil
}

// placeholderWithTruth keeps the truth of a synthetic source visible through
// the placeholder wrapper.
type placeholderWithTruth struct {
	*sim.PlaceholderSource
	truthSource
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func buildConsumers(cfg *config.Config, logger *zap.SugaredLogger) ([]sim.Consumer, []io.Closer, error) {
	var (
		consumers []sim.Consumer
		closers   []io.Closer
	)
	if fn := cfg.Publish.CSV; fn != "" {
		l, err := sim.CreateCSVLogger(fn)
		if err != nil {
			return consumers, closers, err
		}
		consumers, closers = append(consumers, l), append(closers, l)
	}
	if h := cfg.Publish.Websocket; h != "" {
		p, err := ekfweb.NewPublisher(h, logger)
		if err != nil {
			return consumers, closers, err
		}
		consumers, closers = append(consumers, p), append(closers, p)
	}
	if b := cfg.Publish.MQTTBroker; b != "" {
		m, err := ekfweb.NewMQTTPublisher(b, cfg.Publish.MQTTTopic, logger)
		if err != nil {
			return consumers, closers, err
		}
		consumers = append(consumers, m)
		closers = append(closers, closerFunc(func() error { m.Close(); return nil }))
	}
	return consumers, closers, nil
}
