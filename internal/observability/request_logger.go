package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-ID"

// RequestLogger logs one line per request and records request metrics. The
// route template is used as the metric path to keep label cardinality bounded.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDHeader, requestID)

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		path := c.Route().Path
		metrics.RecordRequest(path, c.Method(), status, latency)
		logger.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", c.Method()),
			zap.String("path", c.OriginalURL()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
		)
		return err
	}
}
