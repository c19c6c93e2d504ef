// Command servoregs serves the register activity of the FPGA servo over HTTP
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/knadh/koanf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	yml "gopkg.in/yaml.v2"

	"github.com/nasa-jpl/servolab/activity"
	"github.com/nasa-jpl/servolab/device"
	"github.com/nasa-jpl/servolab/generichttp"
	"github.com/nasa-jpl/servolab/generichttp/regdisplay"
	"github.com/nasa-jpl/servolab/metrics"
	"github.com/nasa-jpl/servolab/registers"
	"github.com/nasa-jpl/servolab/server/middleware/locker"
	"github.com/nasa-jpl/servolab/util"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "servoregs.yml"
)

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// BuildMux mounts the register routes under c.Endpoint, guarded by an operator
// lock, next to /metrics and /endpoints
func BuildMux(c Config, view *regdisplay.View, runner *activity.Runner, dev *device.Recording) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)

	httper := regdisplay.NewHTTPRegisters(view, runner, dev)
	lock := locker.New()
	locker.Inject(httper, lock)

	hndlS := generichttp.SubMuxSanitize(c.Endpoint)
	supergraph := map[string][]string{hndlS: httper.RT().Endpoints()}

	r := chi.NewRouter()
	r.Use(lock.Check)
	httper.RT().Bind(r)
	root.Mount(hndlS, r)

	root.Handle("/metrics", promhttp.Handler())
	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root
}

// mockDrift wanders the measured reference frequency so the mock device has
// telemetry that changes on its own
func mockDrift(ctx context.Context, m *device.Mock, addr uint32) {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	base := int64(10000000)
	for i := int64(0); ; i++ {
		select {
		case <-tick.C:
			m.Set(addr, base+i%7-3)
		case <-ctx.Done():
			return
		}
	}
}

func run(c Config) error {
	log := newLogger(c.LogLevel)
	cat := registers.Servo()
	tr, err := activity.NewTracker(cat, c.ActivityHolds())
	if err != nil {
		return err
	}
	view := regdisplay.NewView(cat)
	col, err := metrics.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	tr.SetMarkHandler(activity.MarkFanout{view, col})
	tr.SetValueHandler(activity.ValueFanout{view, col})
	runner := activity.NewRunner(tr, util.SecsToDuration(c.SweepPeriod), log.With().Str("component", "tracker").Logger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var dev *device.Recording
	if c.Mock {
		m := device.NewMock()
		dev = &device.Recording{Dev: m, Rec: runner}
		var addrs []uint32
		for _, d := range cat.Definitions() {
			if d.Visible {
				addrs = append(addrs, d.Address)
			}
		}
		poller := &device.Poller{
			Dev:   m,
			Rec:   runner,
			Addrs: addrs,
			Log:   log.With().Str("component", "poller").Logger(),
		}
		if c.PollRate > 0 {
			poller.Limiter = rate.NewLimiter(rate.Limit(c.PollRate), 1)
		}
		if d, err := cat.ByName("adc_ext_clk_freq"); err == nil {
			go mockDrift(ctx, m, d.Address)
		}
		go poller.Run(ctx, util.SecsToDuration(c.PollPeriod))
	} else {
		log.Warn().Msg("no device configured, register routes are read only")
	}
	go runner.Run(ctx)

	srv := &http.Server{Addr: c.Addr, Handler: BuildMux(c, view, runner, dev)}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()
	log.Info().Str("addr", c.Addr).Str("endpoint", c.Endpoint).Msg("now listening for requests")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	k := koanf.New(".")
	cfg := Config{}

	root := &cobra.Command{
		Use:   "servoregs",
		Short: "servoregs serves the register activity of the FPGA servo over HTTP",
		Long: `servoregs tracks reads, writes and value changes of the servo's registers
and exposes them over HTTP, with recent activity highlighted for a short time.

servoregs is amenable to configuration via its .yml file.  Without one, the
defaults printed by "servoregs conf" are used.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = loadConfig(k, ConfigFileName)
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&ConfigFileName, "config", "c", ConfigFileName, "path to the configuration file")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "run the server",
		RunE:  func(cmd *cobra.Command, args []string) error { return run(cfg) },
	})
	root.AddCommand(&cobra.Command{
		Use:   "mkconf",
		Short: "write the current configuration to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(ConfigFileName)
			if err != nil {
				return err
			}
			defer f.Close()
			return yml.NewEncoder(f).Encode(cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "conf",
		Short: "print the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return yml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "servoregs version %v\n", Version)
		},
	})
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
