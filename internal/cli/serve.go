package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jpmckearin/asset-tag/metrics"
	"github.com/jpmckearin/asset-tag/server"
	"github.com/jpmckearin/asset-tag/sink"
)

func serveCmd(a *app) *cobra.Command {
	var addr string
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve labels over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hcfg := a.cfg.HTTP
			if addr != "" {
				hcfg.Addr = addr
			}
			a.metrics = metrics.New()

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			sp, err := a.spooler(a.cfg.Printer)
			if err != nil {
				return err
			}
			app := server.New(hcfg, server.Deps{
				Service: svc,
				Print: &sink.Print{
					Spooler:     sp,
					Printer:     a.cfg.Printer.Name,
					ContentType: a.cfg.Printer.ContentType,
				},
				Metrics:     a.metrics,
				Logger:      a.log,
				RasterScale: a.cfg.Output.RasterScale,
			})

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("http server listening", zap.String("addr", hcfg.Addr))
				errCh <- app.Listen(hcfg.Addr)
			}()

			select {
			case err := <-errCh:
				sp.Wait()
				return err
			case <-cmd.Context().Done():
			}

			a.log.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err = app.ShutdownWithContext(ctx)
			sp.Wait()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	c.Flags().StringVar(&addr, "addr", "", "listen address (default http.addr)")
	return c
}
