package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-service/internal/observability"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
// The request logger wraps the error handler so it observes the final status.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				err = writeError(c, logger, metrics, err)
			}
		}()
		return c.Next()
	}
}

// ErrorHandler renders errors that escape the middleware chain, such as
// unknown routes.
func ErrorHandler(logger *zap.Logger, metrics *observability.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return writeError(c, logger, metrics, err)
	}
}

func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, err error) error {
	var domainErr *apperrors.DomainError
	if fe, ok := err.(*fiber.Error); ok {
		domainErr = apperrors.NewDomainError(fiberErrorCode(fe.Code), fe.Message, fe.Code, nil)
	} else {
		domainErr = apperrors.ToDomainError(err)
	}
	metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)

	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	if domainErr.HTTPStatus >= 500 {
		logger.Error("request failed", zap.Error(domainErr))
	}
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
}

func fiberErrorCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return apperrors.CodeNotFound
	case fiber.StatusUnauthorized:
		return apperrors.CodeUnauthorized
	case fiber.StatusForbidden:
		return apperrors.CodeForbidden
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
		return apperrors.CodeValidation
	}
	if status >= 500 {
		return apperrors.CodeInternal
	}
	return "HTTP_ERROR"
}
