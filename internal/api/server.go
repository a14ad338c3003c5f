package api

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hireloop/slotd/internal/availability"
	"github.com/hireloop/slotd/internal/repo"
	"github.com/hireloop/slotd/internal/slots"
	"github.com/hireloop/slotd/internal/suggest"
	"github.com/hireloop/slotd/pkg/errors"
	"github.com/hireloop/slotd/pkg/logger"
)

type Server interface {
	Serve(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

func NewServer(
	cfg Config,
	log logger.Logger,
	client repo.Client,
	avail *availability.Engine,
	manager *slots.Manager,
	ranker *suggest.Ranker,
) Server {
	serveLog := log.With("api_http_server")

	fiberCfg := fiber.Config{
		ReadTimeout:             cfg.HTTP.ReadTimeout,
		WriteTimeout:            cfg.HTTP.WriteTimeout,
		IdleTimeout:             cfg.HTTP.IdleTimeout,
		DisableStartupMessage:   true,
		StreamRequestBody:       true,
		EnableTrustedProxyCheck: true,
		ProxyHeader:             cfg.Proxy.Header,
		TrustedProxies:          cfg.Proxy.Trusted,
		// Immutable: handler params and headers are persisted as tenant
		// and user ids, so they must outlive fasthttp's request buffers.
		Immutable: true,
		// Get routes register HEAD handlers too.
		RequestMethods: []string{
			fiber.MethodHead, fiber.MethodGet, fiber.MethodPost, fiber.MethodPut, fiber.MethodDelete,
		},
	}

	fiberCfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
		serveLog.Warn(errors.WrapFail(err, "handle http request"))
		return c.Status(http.StatusInternalServerError).Send(nil)
	}

	s := &server{
		repo:    client,
		avail:   avail,
		manager: manager,
		ranker:  ranker,
		http:    fiber.New(fiberCfg),
		addr:    cfg.HTTP.Addr,
		log:     serveLog,
	}

	s.setupRoutes()

	return s
}

type server struct {
	repo    repo.Client
	avail   *availability.Engine
	manager *slots.Manager
	ranker  *suggest.Ranker

	http *fiber.App
	addr string
	log  logger.Logger
}

func (s *server) Serve(ctx context.Context) error {
	errCh := make(chan error)
	go func() { errCh <- s.http.Listen(s.addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return errors.Error("serve context done")
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	var errs []error
	err := s.repo.Close(ctx)
	if err != nil {
		errs = append(errs, errors.WrapFail(err, "close repo"))
	}

	err = s.http.ShutdownWithContext(ctx)
	if err != nil {
		errs = append(errs, errors.WrapFail(err, "shutdown http server"))
	}

	return errors.Join(errs...)
}

func (s *server) setupRoutes() {
	s.http.Get("/availability", s.tenantWrapper(s.handleAvailability))
	s.http.Get("/suggestions", s.tenantWrapper(s.handleSuggestions))

	s.http.Post("/slots", s.tenantWrapper(s.handleCreateSlot))
	s.http.Post("/slots/generate", s.tenantWrapper(s.handleGenerateSlots))
	s.http.Get("/slots", s.tenantWrapper(s.handleListSlots))
	s.http.Get("/slots/:id", s.tenantWrapper(s.handleGetSlot))
	s.http.Post("/slots/:id/book", s.tenantWrapper(s.handleBookSlot))
	s.http.Post("/slots/:id/reschedule", s.tenantWrapper(s.handleRescheduleSlot))
	s.http.Post("/slots/:id/cancel", s.tenantWrapper(s.handleCancelSlot))

	s.http.Get("/users/:id/hours", s.tenantWrapper(s.handleGetHours))
	s.http.Put("/users/:id/hours", s.tenantWrapper(s.handleSetHours))

	s.http.Get("/users/:id/busy", s.tenantWrapper(s.handleListBusy))
	s.http.Post("/users/:id/busy", s.tenantWrapper(s.handleAddBusy))
	s.http.Delete("/users/:id/busy", s.tenantWrapper(s.handleDeleteBusy))

	s.http.Get("/rules", s.tenantWrapper(s.handleGetRules))
	s.http.Put("/rules", s.tenantWrapper(s.handleSetRules))
	s.http.Delete("/rules", s.tenantWrapper(s.handleDeleteRules))
}

type tenantHandler func(c *fiber.Ctx, tenantID string) error

func (s *server) tenantWrapper(h tenantHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := c.Get("X-Tenant-ID", "")
		if tenantID == "" {
			return s.sendError(c, http.StatusBadRequest, "missing required header \"X-Tenant-ID\"")
		}
		return h(c, tenantID)
	}
}

func (s *server) sendError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(map[string]string{"status": "ERROR", "message": msg})
}

// sendFault maps a domain fault to an HTTP status; anything unclassified
// bubbles to the 500 handler.
func (s *server) sendFault(c *fiber.Ctx, err error) error {
	kind := errors.KindOf(err)
	if kind == errors.KindUnknown {
		return err
	}

	status := http.StatusInternalServerError
	switch kind {
	case errors.KindValidation:
		status = http.StatusBadRequest
	case errors.KindNotFound:
		status = http.StatusNotFound
	case errors.KindConflict, errors.KindSlotTaken:
		status = http.StatusConflict
	case errors.KindRuleViolation:
		status = http.StatusUnprocessableEntity
	case errors.KindUpstream:
		status = http.StatusServiceUnavailable
	}

	body := map[string]any{
		"status":  "ERROR",
		"code":    kind.String(),
		"message": err.Error(),
	}

	var fault *errors.Fault
	if errors.As(err, &fault) {
		if fault.Overlap != nil {
			body["overlap"] = *fault.Overlap
		}
		if fault.Rule != "" {
			body["rule"] = fault.Rule
		}
	}

	return c.Status(status).JSON(body)
}
