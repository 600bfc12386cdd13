package http

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/dicri/evidence-service/internal/events"
	"github.com/dicri/evidence-service/internal/observability"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

// MiddlewareConfig bundles the global middleware settings.
type MiddlewareConfig struct {
	Timeout     time.Duration
	CORSOrigins string
	RateLimiter *RateLimiter
}

// RegisterMiddlewares attaches global middlewares. The request logger comes
// first so it observes the rendered status of every response.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, cfg MiddlewareConfig) {
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(recoverMiddleware(logger))
	if cfg.CORSOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + observability.RequestIDHeader,
			AllowCredentials: cfg.CORSOrigins != "*",
		}))
	}
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
	app.Use(clientIPMiddleware())
	if cfg.RateLimiter != nil {
		app.Use(cfg.RateLimiter.Handler())
	}
}

// NewErrorHandler renders errors as {"error": {code, message, details}}.
func NewErrorHandler(logger *zap.Logger, metrics *observability.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var domainErr *apperrors.DomainError
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &domainErr):
		case errors.As(err, &fiberErr):
			domainErr = apperrors.FromStatus(fiberErr.Code, fiberErr.Message)
		default:
			domainErr = apperrors.ToDomainError(err)
		}

		metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
		if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("path", c.Path()),
				zap.String("code", domainErr.Code),
				zap.Error(err))
		}

		body := fiber.Map{
			"code":    domainErr.Code,
			"message": domainErr.Message,
		}
		if len(domainErr.Details) > 0 {
			body["details"] = domainErr.Details
		}
		return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
	}
}

func recoverMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
			}
		}()
		return c.Next()
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// clientIPMiddleware makes the caller address available to audit entries.
func clientIPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(events.WithClientIP(c.UserContext(), c.IP()))
		return c.Next()
	}
}
