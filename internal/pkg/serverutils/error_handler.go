package serverutils

import (
	"errors"

	"kb-agent/internal/repository/contract"

	"github.com/gofiber/fiber/v2"
)

// HTTPError lets service errors choose their own status code.
type HTTPError interface {
	error
	HTTPStatus() int
}

// ErrorHandlerMiddleware turns handler errors into the JSON error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, data := statusFor(err)
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error(), data))
	}
}

func statusFor(err error) (int, interface{}) {
	var validationErr *ValidationError
	var httpErr HTTPError
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest, validationErr.Fields
	case errors.Is(err, contract.ErrRunNotFound):
		return fiber.StatusNotFound, nil
	case errors.As(err, &httpErr):
		return httpErr.HTTPStatus(), nil
	case errors.As(err, &fiberErr):
		return fiberErr.Code, nil
	default:
		return fiber.StatusInternalServerError, nil
	}
}
