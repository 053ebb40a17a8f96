// Command csv2trc converts marker trajectories from CSV to an OpenSim TRC file.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/babetCode/IMU-gait-analysis/logging"
	"github.com/babetCode/IMU-gait-analysis/trc"
)

func main() {
	app := &cli.App{
		Name:      "csv2trc",
		Usage:     "convert marker trajectories from CSV to TRC",
		ArgsUsage: "INPUT.csv OUTPUT.trc",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:     "rate",
				Aliases:  []string{"r"},
				Usage:    "frame rate of the capture, Hz",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "units",
				Value: "m",
				Usage: "units of the input positions: m, cm or mm",
			},
		},
		Action: convert,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func convert(c *cli.Context) (err error) {
	if c.NArg() != 2 {
		return errors.New("usage: csv2trc --rate HZ INPUT.csv OUTPUT.trc")
	}
	in, out := c.Args().Get(0), c.Args().Get(1)

	logger, err := logging.NewLogger("csv2trc", "info")
	if err != nil {
		return err
	}
	defer logger.Sync()

	f, err := os.Open(in)
	if err != nil {
		return errors.Wrap(err, "csv2trc")
	}
	defer f.Close()
	ms, err := trc.ReadMarkerCSV(f, c.Float64("rate"), c.String("units"))
	if err != nil {
		return err
	}

	g, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "csv2trc")
	}
	defer func() {
		if cerr := g.Close(); err == nil {
			err = errors.Wrap(cerr, "csv2trc")
		}
	}()
	if err := trc.Write(g, filepath.Base(out), ms); err != nil {
		return err
	}
	logger.Infow("wrote trc file", "file", out, "frames", len(ms.Frames), "markers", len(ms.Names))
	return nil
}
