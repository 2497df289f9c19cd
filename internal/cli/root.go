// Package cli implements the assettag command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jpmckearin/asset-tag/cache"
	"github.com/jpmckearin/asset-tag/config"
	"github.com/jpmckearin/asset-tag/label"
	"github.com/jpmckearin/asset-tag/logging"
	"github.com/jpmckearin/asset-tag/metrics"
	"github.com/jpmckearin/asset-tag/printer"
	"github.com/jpmckearin/asset-tag/service"
	"github.com/jpmckearin/asset-tag/templates"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags and config are loaded.
type app struct {
	v   *viper.Viper
	cfg *config.Config
	log *zap.Logger

	metrics *metrics.Metrics
	cache   *cache.Cache
}

// flag name → config key
var boundFlags = map[string]string{
	"log-level":   "log.level",
	"template":    "label.template",
	"assets-dir":  "label.assets_dir",
	"compress":    "label.compress",
	"strict-uuid": "label.strict_uuid",
	"parallel":    "label.parallel",
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}
	var cfgPath string

	cmd := &cobra.Command{
		Use:           "assettag",
		Short:         "Generate asset tag labels as PDF, PNG or print jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Flags(), cfgPath)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "config file (default ./assettag.yaml or ~/.config/assettag/assettag.yaml)")
	pf.String("log-level", "info", "log level: debug|info|warn|error")
	pf.String("template", "", "label template file (default built-in)")
	pf.String("assets-dir", ".", "directory that template font and image paths are relative to")
	pf.Bool("compress", false, "compress PDF content streams")
	pf.Bool("strict-uuid", false, "require asset ids to be UUIDs")
	pf.Int("parallel", 4, "labels rendered concurrently")

	cmd.AddCommand(
		saveCmd(a),
		pngCmd(a),
		printCmd(a),
		uploadCmd(a),
		qrCmd(a),
		templateCmd(a),
		serveCmd(a),
	)
	return cmd
}

func (a *app) init(flags *pflag.FlagSet, cfgPath string) error {
	for name, key := range boundFlags {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return err
		}
	}
	cfg, err := config.Load(a.v, cfgPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func (a *app) close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.log != nil {
		// stderr cannot always be synced
		_ = a.log.Sync()
	}
	return errors.Join(errs...)
}

func (a *app) composer() (*label.Composer, error) {
	name, src, err := templates.Load(a.cfg.Label.Template)
	if err != nil {
		return nil, err
	}
	return label.NewComposer(label.Options{
		Template:     src,
		TemplateName: name,
		AssetsDir:    a.cfg.Label.AssetsDir,
		Compress:     a.cfg.Label.Compress,
		StrictUUID:   a.cfg.Label.StrictUUID,
		Logger:       a.log,
	})
}

func (a *app) service(ctx context.Context) (*service.Service, error) {
	c, err := a.composer()
	if err != nil {
		return nil, err
	}
	opts := []service.Option{service.WithLogger(a.log)}
	if a.metrics != nil {
		opts = append(opts, service.WithMetrics(a.metrics))
	}
	if a.cfg.Cache.Enabled {
		rc, err := cache.Open(ctx, a.cfg.Cache, a.log)
		if err != nil {
			// 缓存只是优化，连不上时照常渲染
			a.log.Warn("cache disabled", zap.String("addr", a.cfg.Cache.Addr), zap.Error(err))
		} else {
			a.cache = rc
			opts = append(opts, service.WithCache(rc))
		}
	}
	return service.New(c, opts...), nil
}

func (a *app) printClient(cfg config.PrinterConfig) (printer.Client, error) {
	if cfg.Transport == "device" {
		return printer.NewDeviceClient(cfg.Device), nil
	}
	return printer.NewIPPClient(cfg.URI, printer.WithUser(cfg.User))
}

func (a *app) spooler(cfg config.PrinterConfig, opts ...printer.SpoolerOption) (*printer.Spooler, error) {
	client, err := a.printClient(cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]printer.SpoolerOption{
		printer.WithLogger(a.log),
		printer.WithTimeout(cfg.Timeout),
	}, opts...)
	if a.metrics != nil {
		m := a.metrics
		opts = append(opts, printer.WithResultHandler(func(_ printer.Job, err error) { m.PrintJob(err) }))
	}
	return printer.NewSpooler(client, opts...), nil
}
