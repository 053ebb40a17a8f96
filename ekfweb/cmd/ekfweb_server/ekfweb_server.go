// Command ekfweb_server relays orientation estimates from publishers to
// websocket viewers.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/babetCode/IMU-gait-analysis/ekfweb"
	"github.com/babetCode/IMU-gait-analysis/logging"
)

func main() {
	app := &cli.App{
		Name:  "ekfweb_server",
		Usage: "relay orientation estimates to websocket viewers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: fmt.Sprintf(":%d", ekfweb.Port),
				Usage: "address to listen on",
			},
			&cli.StringFlag{
				Name:  "res",
				Usage: "serve static viewer files from `DIR` at /",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "debug, info, warn or error",
			},
		},
		Action: serve,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	logger, err := logging.NewLogger("ekfweb", c.String("log-level"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// get the room going
	r := ekfweb.NewRoom(logger)
	go r.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle(ekfweb.Path, r)
	if dir := c.String("res"); dir != "" {
		mux.Handle("/", http.FileServer(http.Dir(dir)))
	}
	srv := &http.Server{Addr: c.String("addr"), Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Infow("starting web server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "ekfweb: listen and serve")
	}
	return nil
}
