package middleware

import (
	"beacon-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const orgIDHeader = "X-Organization-Id"
const orgIDLocal = "org_id"

// RequireOrg parses the organization identifier every ledger row is scoped
// by. Identity/RBAC lives upstream; by the time a request reaches this API a
// trusted gateway has resolved the caller's organization into this header.
func RequireOrg() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(orgIDHeader)
		if raw == "" {
			return response.Unauthorized(c, "Missing organization header")
		}
		orgID, err := uuid.Parse(raw)
		if err != nil {
			return response.Error(c, "Invalid organization identifier", fiber.StatusBadRequest, nil)
		}
		c.Locals(orgIDLocal, orgID)
		return c.Next()
	}
}

// GetOrgID returns the scoped organization ID from Locals (uuid.Nil if unset).
func GetOrgID(c *fiber.Ctx) uuid.UUID {
	if id, ok := c.Locals(orgIDLocal).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
