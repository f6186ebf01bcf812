package server

import (
	"errors"
	"strconv"

	"culturetech/internal/authz"
	"culturetech/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// authorize checks act for the caller of c. On denial it writes the 401/403
// response and returns errResponseWritten.
func (s *Server) authorize(c *fiber.Ctx, act authz.Action) (authz.Identity, error) {
	id := identityFrom(c)
	if err := s.rules.Authorize(id, act); err != nil {
		_ = models.RespondWithAppError(c, err)
		return id, errResponseWritten
	}
	return id, nil
}

// parsePostID extracts the :postId route parameter as a positive id. On
// failure it writes a 400 response and returns errResponseWritten.
func parsePostID(c *fiber.Ctx) (uint, error) {
	id, ok := parseUintParam(c.Params("postId"))
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid post ID", models.FieldError{
				Path:    "/postId",
				Message: "must be a positive integer",
			}))
		return 0, errResponseWritten
	}
	return id, nil
}

func parseUintParam(raw string) (uint, bool) {
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
