package http_handler

import (
	"context"
	"errors"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/config"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/domain"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/metrics"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/queue"
	"github.com/anthanhphan/go-channel-file-storage/pkg/netmon"
	sdklogger "github.com/anthanhphan/gosdk/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// multipartOverhead leaves room for part headers around a maximum-size file.
const multipartOverhead = 1 << 20

// DeleteQueue is the queued delete surface used by the HTTP layer.
type DeleteQueue interface {
	AddTask(ctx context.Context, rec domain.FileRecord, cb queue.Callbacks) (string, error)
	Tasks() []queue.TaskView
	Len() int
}

// NetworkStatus reports the latest connectivity sample.
type NetworkStatus interface {
	Status() netmon.Status
}

type Server struct {
	app     *fiber.App
	cfg     *config.Config
	files   port.FileService
	links   port.LinkService
	deletes DeleteQueue
	network NetworkStatus
}

func NewServer(cfg *config.Config, files port.FileService, links port.LinkService, deletes DeleteQueue, network NetworkStatus) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:             int(cfg.App.MaxFileSize) + multipartOverhead,
		StreamRequestBody:     true,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.RequestTimeout(),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &Server{
		app:     app,
		cfg:     cfg,
		files:   files,
		links:   links,
		deletes: deletes,
		network: network,
	}
	app.Use(s.observe)

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.app.Post("/files", s.handleUpload)
	s.app.Get("/files", s.handleList)
	s.app.Delete("/files", s.handleDelete)
	s.app.Get("/files/metadata", s.handleMetadata)
	s.app.Get("/files/download", s.handleDownload)
	s.app.Post("/files/delete-queue", s.handleEnqueueDelete)
	s.app.Get("/files/delete-queue", s.handleDeleteQueue)
	s.app.Post("/links", s.handleIssueLink)
	s.app.Get("/network", s.handleNetwork)
	s.app.Get("/healthz", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

// App exposes the fiber app for in-process tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Start() error {
	return s.app.Listen(s.cfg.Server.Addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// observe records request count and latency per matched route.
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	metrics.ObserveHTTP(c.Method(), c.Route().Path, status, time.Since(start))
	return err
}

func (s *Server) sendJSONError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// sendServiceError maps domain errors onto HTTP status codes.
func (s *Server) sendServiceError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		sdklogger.Errorw("Request failed", "method", c.Method(), "path", c.Path(), "status", status, "error", err.Error())
	}
	return s.sendJSONError(c, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, port.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, port.ErrExpired):
		return fiber.StatusGone
	case errors.Is(err, port.ErrTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, port.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, port.ErrConfig):
		return fiber.StatusInternalServerError
	case errors.Is(err, port.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, port.ErrUploadFailed), errors.Is(err, port.ErrDownloadFailed), errors.Is(err, port.ErrDeleteFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
