package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jpmckearin/asset-tag/layout"
	"github.com/jpmckearin/asset-tag/printer"
	"github.com/jpmckearin/asset-tag/service"
	"github.com/jpmckearin/asset-tag/sink"
	"github.com/jpmckearin/asset-tag/templates"
)

// forEach delivers every id through the sinks built by mk, at most
// label.parallel at a time.
func (a *app) forEach(ctx context.Context, svc *service.Service, ids []string, mk func(id string) []sink.Sink) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Label.Parallel)
	for _, id := range ids {
		g.Go(func() error {
			if err := svc.Deliver(ctx, id, mk(id)...); err != nil {
				return err
			}
			a.log.Info("label delivered", zap.String("asset_id", strings.TrimSpace(id)))
			return nil
		})
	}
	return g.Wait()
}

// outputFor keeps path for a single id and adds the id to the file name
// when several labels are written in one run.
func outputFor(path, id string, count int) string {
	if count <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, strings.TrimSpace(id))
	return strings.TrimSuffix(path, ext) + "-" + safe + ext
}

func saveCmd(a *app) *cobra.Command {
	var out string
	c := &cobra.Command{
		Use:   "save <asset-id>...",
		Short: "Write the label PDF to a file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, ids []string) error {
			if out == "" {
				out = a.cfg.Output.PDFPath
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			return a.forEach(cmd.Context(), svc, ids, func(id string) []sink.Sink {
				return []sink.Sink{sink.File{Path: outputFor(out, id, len(ids))}}
			})
		},
	}
	c.Flags().StringVarP(&out, "out", "o", "", "output path (default output.pdf_path)")
	return c
}

func pngCmd(a *app) *cobra.Command {
	var out string
	var scale float64
	c := &cobra.Command{
		Use:   "png <asset-id>",
		Short: "Rasterize the label to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, ids []string) error {
			if out == "" {
				out = a.cfg.Output.PNGPath
			}
			if scale <= 0 {
				scale = a.cfg.Output.RasterScale
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			return svc.Deliver(cmd.Context(), ids[0], sink.Raster{Path: out, Scale: scale})
		},
	}
	c.Flags().StringVarP(&out, "out", "o", "", "output path (default output.png_path)")
	c.Flags().Float64Var(&scale, "scale", 0, "pixels per point (default output.raster_scale)")
	return c
}

func printCmd(a *app) *cobra.Command {
	var name string
	var wait bool
	c := &cobra.Command{
		Use:   "print <asset-id>...",
		Short: "Send labels to the label printer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, ids []string) error {
			pcfg := a.cfg.Printer
			if name != "" {
				pcfg.Name = name
			}
			if cmd.Flags().Changed("wait") {
				pcfg.Wait = wait
			}

			var failed atomic.Int32
			sp, err := a.spooler(pcfg, printer.WithErrorHandler(func(printer.Job, error) {
				failed.Add(1)
			}))
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			target := sink.Print{Spooler: sp, Printer: pcfg.Name, ContentType: pcfg.ContentType, Wait: pcfg.Wait}
			err = a.forEach(cmd.Context(), svc, ids, func(string) []sink.Sink {
				return []sink.Sink{target}
			})
			// queued jobs finish even when a later label failed
			sp.Wait()
			if err != nil {
				return err
			}
			if n := failed.Load(); n > 0 {
				return fmt.Errorf("%d print job(s) failed", n)
			}
			return nil
		},
	}
	c.Flags().StringVarP(&name, "printer", "p", "", "printer name (default printer.name)")
	c.Flags().BoolVar(&wait, "wait", false, "send each job synchronously and stop at the first printer error")
	return c
}

func uploadCmd(a *app) *cobra.Command {
	var bucket string
	c := &cobra.Command{
		Use:   "upload <asset-id>...",
		Short: "Upload label PDFs to S3-compatible storage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, ids []string) error {
			scfg := a.cfg.Storage
			if bucket != "" {
				scfg.Bucket = bucket
			}
			client, err := sink.NewS3Client(cmd.Context(), scfg)
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			target := sink.Object{Client: client, Bucket: scfg.Bucket, Prefix: scfg.Prefix, Logger: a.log}
			return a.forEach(cmd.Context(), svc, ids, func(string) []sink.Sink {
				return []sink.Sink{target}
			})
		},
	}
	c.Flags().StringVar(&bucket, "bucket", "", "bucket name (default storage.bucket)")
	return c
}

func qrCmd(a *app) *cobra.Command {
	var out string
	c := &cobra.Command{
		Use:   "qr <asset-id>",
		Short: "Print the QR code of an asset id as SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, ids []string) error {
			comp, err := a.composer()
			if err != nil {
				return err
			}
			svg, err := comp.QRCode(ids[0])
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(svg)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			return os.WriteFile(out, svg, 0o644)
		},
	}
	c.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	return c
}

func templateCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "template",
		Short: "Inspect label templates",
	}

	var debugOut string
	debug := &cobra.Command{
		Use:   "debug <asset-id>",
		Short: "Print the computed layout as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, ids []string) error {
			comp, err := a.composer()
			if err != nil {
				return err
			}
			res, err := comp.Layout(ids[0])
			if err != nil {
				return err
			}
			if debugOut != "" {
				return layout.WriteDebugJSON(res, debugOut)
			}
			return layout.EncodeDebugJSON(cmd.OutOrStdout(), res)
		},
	}
	debug.Flags().StringVarP(&debugOut, "out", "o", "", "write to file instead of stdout")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the built-in template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(templates.Default())
			return err
		},
	}

	c.AddCommand(debug, show)
	return c
}
