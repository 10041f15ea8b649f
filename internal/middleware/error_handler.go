package middleware

import (
	"beacon-backend/internal/pkg/ledgererr"
	"beacon-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the global error handler. Ledger errors keep their kind and
// code; everything else collapses to the standard error format.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if _, ok := err.(*ledgererr.Error); ok {
		return response.FromLedgerError(c, err)
	}

	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	return response.Error(c, message, code, nil)
}
