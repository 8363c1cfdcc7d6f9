// Package http serves the match API over fiber.
package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"arena/internal/board"
	"arena/internal/core"
	"arena/internal/match"
	"arena/internal/service"
)

const rateLimitRate = 10 // req/sec

// Options configures the API.
type Options struct {
	// Profiles is the directory engine profiles are loaded from
	Profiles string
	// Match fills the fields a request leaves out
	Match match.Config
	// Dev loosens the rate limiter and drops the access log
	Dev bool
}

type HTTPHandler struct {
	svc  *service.Service
	opts Options
}

func NewHTTPHandler(svc *service.Service, opts Options) *HTTPHandler {
	return &HTTPHandler{svc: svc, opts: opts}
}

func NewFiberApp(svc *service.Service, opts Options) *fiber.App {
	h := NewHTTPHandler(svc, opts)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  10 * time.Second,
		// Long polls may hold a response for service.WaitTimeout
		WriteTimeout: service.WaitTimeout + 5*time.Second,
		IdleTimeout:  30 * time.Second,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	if !opts.Dev {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	api := app.Group("/api/v1")

	maxReq := rateLimitRate
	if opts.Dev {
		maxReq = rateLimitRate * 2
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	api.Use(contentTypeValidator)
	api.Use(validationMiddleware)

	api.Post("/matches", h.CreateMatch)
	api.Get("/matches", h.ListMatches)
	api.Get("/matches/:matchId", h.GetMatch)

	return app
}

// Health check endpoint
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"time":    time.Now().Unix(),
		"storage": h.svc.StorageHealth(),
	})
}

// CreateMatch queues a match between two engine profiles
func (h *HTTPHandler) CreateMatch(c *fiber.Ctx) error {
	validated, ok := c.Locals("validated").(bool)
	if !ok || !validated {
		return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "validation bypass detected",
			Code:  core.ErrInternalError,
		})
	}
	req, ok := c.Locals("validatedBody").(*core.CreateMatchRequest)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "validation data missing",
			Code:  core.ErrInternalError,
		})
	}

	if req.FEN != "" && !board.ValidFEN(req.FEN) {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error: "invalid FEN",
			Code:  core.ErrInvalidFEN,
		})
	}

	cfg := h.opts.Match
	cfg.FEN = req.FEN
	if req.MoveTime > 0 {
		cfg.MoveTime = time.Duration(req.MoveTime) * time.Millisecond
	}
	if req.Timeout > 0 {
		cfg.Timeout = time.Duration(req.Timeout) * time.Millisecond
	}
	if req.MaxPlies > 0 {
		cfg.MaxPlies = req.MaxPlies
	}

	profiles := []struct {
		name string
		dst  *string
	}{
		{req.White, &cfg.White},
		{req.Black, &cfg.Black},
		{req.Referee, &cfg.Referee},
	}
	for _, p := range profiles {
		if p.name == "" {
			continue
		}
		path, err := resolveProfile(h.opts.Profiles, p.name)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
				Error:   "unknown engine profile",
				Code:    core.ErrInvalidProfile,
				Details: fmt.Sprintf("%s: %v", p.name, err),
			})
		}
		*p.dst = path
	}

	id, err := h.svc.CreateMatch(cfg)
	switch {
	case errors.Is(err, service.ErrQueueFull), errors.Is(err, service.ErrShuttingDown):
		return c.Status(fiber.StatusServiceUnavailable).JSON(core.ErrorResponse{
			Error:   "match queue unavailable",
			Code:    core.ErrResourceLimit,
			Details: err.Error(),
		})
	case err != nil:
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid match",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}

	e, err := h.svc.GetMatch(id)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toResponse(e))
}

// ListMatches returns every match the server knows of
func (h *HTTPHandler) ListMatches(c *fiber.Ctx) error {
	entries := h.svc.ListMatches()
	resp := core.MatchListResponse{Matches: make([]core.MatchResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Matches = append(resp.Matches, toResponse(e))
	}
	return c.JSON(resp)
}

// GetMatch returns a match. With ?wait=true it long-polls until the match
// has a ply count other than ?plies or ends.
func (h *HTTPHandler) GetMatch(c *fiber.Ctx) error {
	matchID := c.Params("matchId")

	if !isValidUUID(matchID) {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid match ID format",
			Code:    core.ErrInvalidRequest,
			Details: "match ID must be a valid UUID",
		})
	}

	var (
		e   service.Entry
		err error
	)
	if c.QueryBool("wait") {
		e, err = h.svc.WaitForMove(c.UserContext(), matchID, c.QueryInt("plies"))
	} else {
		e, err = h.svc.GetMatch(matchID)
	}
	if errors.Is(err, service.ErrMatchNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(core.ErrorResponse{
			Error: "match not found",
			Code:  core.ErrMatchNotFound,
		})
	}
	if err != nil {
		return err
	}

	return c.JSON(toResponse(e))
}

func toResponse(e service.Entry) core.MatchResponse {
	resp := core.MatchResponse{
		MatchID:    e.ID,
		Status:     string(e.Status),
		White:      e.White,
		Black:      e.Black,
		InitialFEN: e.InitialFEN,
		State:      e.State.Code(),
		Result:     e.State.Score(),
		Reason:     e.Reason,
		Moves:      make([]string, 0, len(e.Moves)),
	}
	for _, m := range e.Moves {
		resp.Moves = append(resp.Moves, m.Move)
		if m.FEN != "" {
			resp.FEN = m.FEN
		}
	}
	if e.Err != nil {
		resp.Error = e.Err.Error()
	}
	if !e.Started.IsZero() {
		resp.StartedAt = &e.Started
	}
	if !e.Finished.IsZero() {
		resp.FinishedAt = &e.Finished
	}
	return resp
}
