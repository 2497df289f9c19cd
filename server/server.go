// Package server exposes labels over HTTP.
package server

import (
	"bytes"
	"errors"
	"image/png"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/jpmckearin/asset-tag/config"
	"github.com/jpmckearin/asset-tag/label"
	"github.com/jpmckearin/asset-tag/metrics"
	"github.com/jpmckearin/asset-tag/qrsvg"
	"github.com/jpmckearin/asset-tag/service"
	"github.com/jpmckearin/asset-tag/sink"
)

// Deps are the collaborators of the HTTP handlers. Print and Metrics are
// optional; without Print the print route answers 503.
type Deps struct {
	Service     *service.Service
	Print       *sink.Print
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	RasterScale float64
}

type handlers struct {
	Deps
	log *zap.Logger
}

// New creates the fiber app with all routes mounted.
func New(cfg config.HTTPConfig, deps Deps) *fiber.App {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("server")
	if deps.RasterScale <= 0 {
		deps.RasterScale = sink.DefaultScale
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		UnescapePath:          true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			var fe *fiber.Error
			switch {
			case errors.As(err, &fe):
				code, msg = fe.Code, fe.Message
			case errors.Is(err, label.ErrEmptyAssetID),
				errors.Is(err, label.ErrInvalidAssetID),
				errors.Is(err, qrsvg.ErrEmptyContent),
				errors.Is(err, qrsvg.ErrContentTooLong):
				code, msg = fiber.StatusBadRequest, err.Error()
			}

			if code >= fiber.StatusInternalServerError {
				log.Error("request failed", zap.String("path", c.Path()), zap.Int("status", code), zap.Error(err))
			} else {
				log.Warn("request rejected", zap.String("path", c.Path()), zap.Int("status", code), zap.String("message", msg))
			}

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    code,
					"message": msg,
				},
			})
		},
	})
	app.Use(recover.New())

	h := &handlers{Deps: deps, log: log}
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	v1 := app.Group("/v1/labels")
	v1.Get("/:id/png", h.png)
	v1.Get("/:id/qr.svg", h.qr)
	v1.Post("/:id/print", h.print)
	v1.Get("/:id", h.pdf)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})
	return app
}

func (h *handlers) pdf(c *fiber.Ctx) error {
	data, err := h.Service.PDF(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	if c.QueryBool("download") {
		c.Attachment(c.Params("id") + ".pdf")
	}
	return c.Send(data)
}

func (h *handlers) png(c *fiber.Ctx) error {
	scale := h.RasterScale
	if s := c.Query("scale"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 || v > 16 {
			return fiber.NewError(fiber.StatusBadRequest, "scale must be in (0, 16]")
		}
		scale = v
	}
	page := c.QueryInt("page", 1)

	l, err := h.Service.Label(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	pages, err := l.Rasterize(scale)
	if err != nil {
		return err
	}
	if page < 1 || page > len(pages) {
		return fiber.NewError(fiber.StatusNotFound, "page "+strconv.Itoa(page)+" does not exist")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, pages[page-1]); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buf.Bytes())
}

func (h *handlers) qr(c *fiber.Ctx) error {
	svg, err := h.Service.QRCode(c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/svg+xml")
	return c.Send(svg)
}

func (h *handlers) print(c *fiber.Ctx) error {
	if h.Print == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "printing is not configured")
	}
	target := *h.Print
	if p := c.Query("printer"); p != "" {
		target.Printer = p
	}
	// the job must not depend on the request lifetime
	target.Wait = false

	if err := h.Service.Deliver(c.UserContext(), c.Params("id"), target); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":  "queued",
		"printer": target.Printer,
	})
}
