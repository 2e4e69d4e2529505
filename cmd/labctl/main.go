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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/timzifer/labdrivers/config"
	"github.com/timzifer/labdrivers/driver"
	"github.com/timzifer/labdrivers/internal/logging"
	"github.com/timzifer/labdrivers/internal/reload"
	"github.com/timzifer/labdrivers/readings"
	"github.com/timzifer/labdrivers/telemetry"
	"github.com/timzifer/labdrivers/visa"
)

func main() {
	cfgPath := flag.String("config", "", "Path to configuration file")
	resource := flag.String("resource", "", "Resource location for ad-hoc commands, e.g. tcp://10.0.0.5:5025")
	term := flag.String("term", "\n", "Write termination for ad-hoc commands")
	timeout := flag.Duration("timeout", 2*time.Second, "Per-call timeout for ad-hoc commands")
	check := flag.Bool("check", false, "Verify the connection with an identification query")
	dryRun := flag.Bool("dry-run", false, "Log commands instead of talking to hardware")
	idn := flag.Bool("idn", false, "Query the device identification and exit")
	query := flag.String("query", "", "Send a query and print the reply")
	write := flag.String("write", "", "Send a command without reading a reply")
	poll := flag.Bool("poll", false, "Run the configured readings until interrupted")
	flag.Parse()

	if *dryRun {
		visa.SelectFactory(visa.NewLoggerBackend)
	}

	if *poll {
		if *cfgPath == "" {
			log.Fatal().Msg("-poll requires -config")
		}
		if err := runPoll(*cfgPath, *dryRun); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Fatal().Err(err).Msg("poll stopped")
		}
		return
	}

	if *resource == "" {
		log.Fatal().Msg("either -poll or -resource is required")
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	dev, err := driver.New(driver.Config{
		Location:    *resource,
		Termination: *term,
		Timeout:     *timeout,
		Check:       *check,
	}, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct driver")
	}
	defer dev.Close()

	switch {
	case *idn:
		reply, err := dev.IDN()
		if err != nil {
			log.Fatal().Err(err).Msg("identification query failed")
		}
		fmt.Println(reply)
	case *query != "":
		reply, err := dev.Ask(*query, 0)
		if err != nil {
			log.Fatal().Err(err).Msg("query failed")
		}
		fmt.Println(reply)
	case *write != "":
		if err := dev.Write(*write, 0); err != nil {
			log.Fatal().Err(err).Msg("write failed")
		}
	default:
		log.Fatal().Msg("nothing to do: pass -idn, -query or -write")
	}
}

// reloadCheckInterval is how often the config file is polled for changes.
const reloadCheckInterval = 2 * time.Second

// errConfigChanged signals that the poll cycle should restart with a fresh
// configuration.
var errConfigChanged = errors.New("configuration changed")

func runPoll(cfgPath string, dryRun bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	for {
		err := runPollCycle(ctx, cfgPath, dryRun)
		if errors.Is(err, errConfigChanged) {
			continue
		}
		return err
	}
}

func runPollCycle(ctx context.Context, cfgPath string, dryRun bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, cleanup, err := logging.Setup(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer cleanup()
	log.Logger = logger

	// Dry runs keep the logger backend selected in main; attaching the
	// telemetry transport here would reconnect to real hardware.
	if cfg.Telemetry.Enabled && !dryRun {
		collector, err := telemetry.NewPrometheusCollector(nil)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		// Route every subsequently constructed driver through a transport
		// that reports its bus traffic.
		visa.SelectFactory(func(opts visa.Options) (visa.Backend, error) {
			opts.Collector = collector
			return visa.NewTransport(opts)
		})
	}

	instruments := make(map[string]readings.Instrument, len(cfg.Instruments))
	for _, instrumentCfg := range cfg.Instruments {
		dev, err := driver.New(driver.Config{
			Location:    instrumentCfg.Location,
			Termination: instrumentCfg.Termination,
			Timeout:     instrumentCfg.Timeout.Duration,
			Check:       instrumentCfg.Check,
		}, logger.With().Str("instrument", instrumentCfg.ID).Logger())
		if err != nil {
			return fmt.Errorf("instrument %s: %w", instrumentCfg.ID, err)
		}
		defer dev.Close()
		instruments[instrumentCfg.ID] = dev
	}

	poller, err := readings.NewPoller(cfg.Readings, instruments, cfg.CycleInterval(), logger)
	if err != nil {
		return err
	}

	watcher, err := reload.NewWatcher(cfgPath)
	if err != nil {
		return fmt.Errorf("watch configuration: %w", err)
	}

	cycleCtx, cancelCycle := context.WithCancel(ctx)
	defer cancelCycle()
	done := make(chan error, 1)
	go func() { done <- poller.Run(cycleCtx) }()

	ticker := time.NewTicker(reloadCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			changed, err := watcher.Check()
			if err != nil {
				logger.Warn().Err(err).Msg("configuration check failed")
				continue
			}
			if len(changed) > 0 {
				logger.Info().Strs("files", changed).Msg("configuration changed, reloading")
				cancelCycle()
				<-done
				return errConfigChanged
			}
		}
	}
}
