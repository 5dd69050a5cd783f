// Command cmon monitors (and logs) a network connection by probing a
// single host with ICMP echo requests at a fixed interval.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/uniquode/cmon-go/internal/cli"
	"github.com/uniquode/cmon-go/internal/config"
	"github.com/uniquode/cmon-go/internal/logging"
	"github.com/uniquode/cmon-go/internal/metrics"
	"github.com/uniquode/cmon-go/internal/probe"
	"github.com/uniquode/cmon-go/internal/scheduler"
	"github.com/uniquode/cmon-go/internal/sink"
	"github.com/uniquode/cmon-go/internal/status"
	"github.com/uniquode/cmon-go/internal/ui"
)

const version = "0.1.0"

func main() {
	opts, showVersion, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if showVersion {
		fmt.Fprintf(os.Stdout, "cmon version %s\n", version)
		return
	}
	os.Exit(run(opts))
}

func parseArgs(args []string) (config.Options, bool, error) {
	opts := config.Defaults()
	interval := cli.NewSeconds(opts.Interval)
	var verbosity cli.Counter
	var showVersion bool

	fs := flag.NewFlagSet("cmon", flag.ContinueOnError)
	fs.StringVar(&opts.Host, "H", opts.Host, "host name or ip to test against")
	fs.StringVar(&opts.Host, "host", opts.Host, "host name or ip to test against")
	fs.Var(&interval, "i", "interval between tests in seconds (default 1.0)")
	fs.Var(&interval, "interval", "interval between tests in seconds (default 1.0)")
	fs.IntVar(&opts.ErrorThreshold, "e", opts.ErrorThreshold, "number of errors (lost packets) before connection is considered dead")
	fs.IntVar(&opts.ErrorThreshold, "errors", opts.ErrorThreshold, "number of errors (lost packets) before connection is considered dead")
	fs.IntVar(&opts.MaxProbes, "t", 0, "maximum number of times to try (default not set = forever)")
	fs.IntVar(&opts.MaxProbes, "times", 0, "maximum number of times to try (default not set = forever)")
	fs.StringVar(&opts.LogFile, "l", "", "create or append log to a file")
	fs.StringVar(&opts.LogFile, "logfile", "", "create or append log to a file")
	fs.StringVar(&opts.CSVFile, "c", "", "create or append RTT data to CSV file")
	fs.StringVar(&opts.CSVFile, "csv", "", "create or append RTT data to CSV file")
	fs.Var(&verbosity, "v", "increase logging verbosity")
	fs.StringVar(&opts.MetricsListen, "metrics-listen", "", "serve Prometheus metrics on this address (e.g. :9100)")
	fs.BoolVar(&opts.UI, "ui", false, "show a live terminal status pane")
	fs.BoolVar(&showVersion, "V", false, "print version and exit")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: cmon [options]\n\nMonitor (and log) a network connection.\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, false, err
	}
	opts.Interval = interval.Duration()
	opts.Verbosity = verbosity.Count()
	if showVersion {
		return opts, true, nil
	}
	if err := opts.Validate(); err != nil {
		return opts, false, err
	}
	return opts, false, nil
}

func run(opts config.Options) int {
	logger, closeLog, err := logging.New(opts.LogFile, opts.Verbosity)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()

	csv := sink.NewCSVLog(opts.CSVFile)
	if err := csv.Open(); err != nil {
		logger.Error("terminated", zap.String("reason", "sink"), zap.Error(err))
		return 1
	}
	defer csv.Close()

	pinger := probe.NewICMPPinger()
	if err := pinger.Preflight(opts.Host); err != nil {
		logger.Error("terminated", zap.String("reason", "privilege"), zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sch := scheduler.New(scheduler.Options{
		Host:           opts.Host,
		Interval:       opts.Interval,
		Timeout:        opts.Timeout(),
		ErrorThreshold: opts.ErrorThreshold,
		MaxProbes:      opts.MaxProbes,
	}, pinger, logger)
	sch.AttachRecords(csv)

	store := status.NewStore(opts.Host)
	sch.AttachStatus(store)

	if opts.MetricsListen != "" {
		collector := metrics.NewCollector(opts.Host)
		sch.AttachMetrics(collector)
		go func() {
			err := metrics.Serve(runCtx, opts.MetricsListen, collector)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	if opts.UI {
		view := ui.New(opts, store)
		go func() {
			// Quitting the UI stops the monitor as well.
			defer cancel()
			_ = view.Run(runCtx)
		}()
	}

	startFields := []zap.Field{
		zap.String("host", opts.Host),
		zap.Duration("interval", opts.Interval),
		zap.Int("maxerr", opts.ErrorThreshold),
	}
	if opts.MaxProbes > 0 {
		startFields = append(startFields, zap.Int("times", opts.MaxProbes))
	}
	if csv.Enabled() {
		startFields = append(startFields, zap.String("csv", csv.Filename()))
	}
	startFields = append(startFields, zap.String("version", version))
	logger.Info("start", startFields...)

	started := time.Now()
	code := sch.Run(runCtx)
	logger.Info("elapsed", zap.Duration("elapsed", time.Since(started)))
	return code
}
