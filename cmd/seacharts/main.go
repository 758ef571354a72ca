// Command seacharts loads Norwegian depth data for a chart window and
// exports, renders or serves the result.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/beetlebugorg/seacharts/internal/config"
	"github.com/beetlebugorg/seacharts/internal/observability"
	"github.com/beetlebugorg/seacharts/internal/render"
	"github.com/beetlebugorg/seacharts/internal/server"
	"github.com/beetlebugorg/seacharts/pkg/enc"
)

const usage = `usage: seacharts <command> [flags]

commands:
  load      build the chart and print a layer summary
  export    write the chart features as GeoJSON (-o out.geojson)
  render    draw the chart as a PNG image (-o out.png)
  serve     serve the chart over HTTP (-addr :8080)
  regions   list supported regions
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "load":
		err = runLoad(args)
	case "export":
		err = runExport(args)
	case "render":
		err = runRender(args)
	case "serve":
		err = runServe(args)
	case "regions":
		for _, name := range enc.SupportedRegions() {
			fmt.Println(name)
		}
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "seacharts: %v\n", err)
		os.Exit(1)
	}
}

// session is the state shared by the chart-building commands.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	chart  *enc.ENC
}

func open(fs *flag.FlagSet, f *chartFlags, args []string) (*session, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := f.load(fs)
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	opts := cfg.Options()
	opts.Logger = logger
	opts.Metrics = observability.NewMetrics(prometheus.DefaultRegisterer)

	start := time.Now()
	chart, err := enc.New(opts)
	if err != nil {
		return nil, err
	}
	logger.Info("chart ready",
		"features", len(chart.Features()),
		"cached", chart.Cached(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return &session{cfg: cfg, logger: logger, chart: chart}, nil
}

func runLoad(args []string) error {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	var f chartFlags
	f.register(fs)
	s, err := open(fs, &f, args)
	if err != nil {
		return err
	}

	b := s.chart.Window()
	fmt.Printf("window   %.0f,%.0f - %.0f,%.0f\n", b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	fmt.Printf("regions  %v\n", s.chart.Regions())
	fmt.Printf("data     %s\n", s.chart.DataDir())
	for _, c := range s.chart.Collections() {
		fmt.Printf("%-8s %d features\n", c.Name(), c.Len())
	}
	return nil
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var f chartFlags
	f.register(fs)
	out := fs.String("o", "chart.geojson", "output file, - for stdout")
	s, err := open(fs, &f, args)
	if err != nil {
		return err
	}

	data, err := json.Marshal(enc.GeoJSON(s.chart.Features()))
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	if *out == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	s.logger.Info("exported", "path", *out, "bytes", len(data))
	return nil
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var f chartFlags
	f.register(fs)
	out := fs.String("o", "chart.png", "output PNG file")
	width := fs.Int("width", 1024, "image width in pixels")
	s, err := open(fs, &f, args)
	if err != nil {
		return err
	}

	if err := render.SavePNG(s.chart, *out, *width, render.DefaultScheme()); err != nil {
		return err
	}
	s.logger.Info("rendered", "path", *out, "width", *width)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var f chartFlags
	f.register(fs)
	addr := fs.String("addr", "", "listen address (default from config)")
	s, err := open(fs, &f, args)
	if err != nil {
		return err
	}
	if *addr != "" {
		s.cfg.Server.Addr = *addr
	}

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           server.New(s.chart, s.logger, prometheus.DefaultGatherer).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
