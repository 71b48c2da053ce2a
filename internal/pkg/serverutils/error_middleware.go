package serverutils

import (
	"errors"

	"ai-tutor-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error to the HTTP status it is surfaced with.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	kind, _ := apperror.KindOf(err)
	switch kind {
	case apperror.KindAuth:
		return fiber.StatusUnauthorized
	case apperror.KindValidation:
		return fiber.StatusBadRequest
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorBodyFor renders err for clients. Internal failures keep the step they
// happened at but not the low-level message.
func ErrorBodyFor(err error) ErrorBody {
	code := StatusFor(err)
	body := ErrorResponse(code, err.Error())

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		body.Error = appErr.Message
		if body.Error == "" {
			body.Error = string(appErr.Kind)
		}
		if appErr.Step != "" {
			body.Details = "Failed during " + appErr.Step
		}
	}
	if code == fiber.StatusInternalServerError && body.Details == nil {
		body.Details = "Internal server error"
	}
	return body
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		body := ErrorBodyFor(err)
		return ctx.Status(body.Code).JSON(body)
	}
}

// FiberErrorHandler renders errors raised before the middleware chain runs, such as
// an oversized body, with the same envelope.
func FiberErrorHandler(ctx *fiber.Ctx, err error) error {
	body := ErrorBodyFor(err)
	return ctx.Status(body.Code).JSON(body)
}
