package server

import (
	"errors"
	"strings"
	"unicode"

	"creaza/internal/identity"
	"creaza/internal/middleware"
	"creaza/internal/models"
	"creaza/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// page applies offset and limit to an already fetched slice.
func page[T any](items []T, p Pagination) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	items = items[p.Offset:]
	if len(items) > p.Limit {
		items = items[:p.Limit]
	}
	return items
}

// parseID extracts a document id route parameter.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "pinId" -> "Invalid pin ID").
func (s *Server) parseID(c *fiber.Ctx, param string) (string, error) {
	id := strings.TrimSpace(c.Params(param))
	if id == "" || len(id) > 128 || strings.ContainsAny(id, "/ \t\n") {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return "", errResponseWritten
	}
	return id, nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "pinId" -> "pin ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		prefix := param[:len(param)-2]
		words := splitCamel(prefix)
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// parseBody decodes and validates a JSON request body into dest.
// On failure it writes a 400 response and returns errResponseWritten.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	if err := validation.Struct(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, err)
		return errResponseWritten
	}
	return nil
}

// respondError writes err with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	var authErr *identity.AuthError
	if errors.As(err, &authErr) {
		return c.Status(authStatus(authErr.Code)).JSON(models.ErrorResponse{
			Error: authErr.Message,
			Code:  string(authErr.Code),
		})
	}
	return models.RespondWithError(c, models.StatusOf(err), err)
}

func authStatus(code identity.Code) int {
	switch code {
	case identity.CodeInvalidCredentials, identity.CodeUserNotFound, identity.CodeInvalidToken:
		return fiber.StatusUnauthorized
	case identity.CodeInvalidEmail, identity.CodeWeakPassword:
		return fiber.StatusBadRequest
	case identity.CodeEmailInUse:
		return fiber.StatusConflict
	default:
		return fiber.StatusBadGateway
	}
}

// requireOwner writes a 403 unless the authenticated user is ownerID.
func requireOwner(c *fiber.Ctx, ownerID string) error {
	if middleware.UserID(c) != ownerID {
		_ = models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("You do not own this resource"))
		return errResponseWritten
	}
	return nil
}
