package middleware

import (
	"errors"
	"time"

	"career-roadmap/backend/metrics"
	"career-roadmap/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const requestIDKey = "requestid"

// RequestID tags every request with an X-Request-ID, reusing the caller's if present.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		ContextKey: requestIDKey,
	})
}

// LoggingMiddleware writes one structured line per request.
func LoggingMiddleware(log *utils.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := statusOf(c, err)
		fields := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start).String(),
			"ip", c.IP(),
		}
		if id, ok := c.Locals(requestIDKey).(string); ok && id != "" {
			fields = append(fields, "request_id", id)
		}
		if err != nil {
			fields = append(fields, "error", err.Error())
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= fiber.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
		return err
	}
}

// MetricsMiddleware records request count and latency by route pattern.
func MetricsMiddleware(m *metrics.Collector) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		m.ObserveHTTP(c.Method(), c.Route().Path, statusOf(c, err), time.Since(start))
		return err
	}
}

// ErrorHandler renders errors that reach fiber unhandled, such as unknown routes.
func ErrorHandler(log *utils.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(utils.ErrorResponse{Error: fe.Message})
		}
		var ae *utils.AppError
		if errors.As(err, &ae) {
			return utils.Error(c, err)
		}
		log.Error("unhandled error", "path", c.Path(), "error", err.Error())
		return utils.InternalServerError(c, "internal server error")
	}
}

// The error handler has not run yet when these middlewares see err.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return utils.HTTPStatus(err)
}
