package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/Plano3D/app/repository"
	"github.com/ManuelReschke/Plano3D/internal/pkg/billing"
)

// MembershipController serves the read-only membership catalog.
type MembershipController struct {
	memberships repository.MembershipRepository
}

func NewMembershipController(memberships repository.MembershipRepository) *MembershipController {
	return &MembershipController{memberships: memberships}
}

// HandleList returns every membership, cheapest first.
func (mc *MembershipController) HandleList(c *fiber.Ctx) error {
	list, err := mc.memberships.List(c.UserContext())
	if err != nil {
		fiberlog.Errorf("membership list failed: %v", err)
		return respondStatus(c, fiber.StatusInternalServerError, billing.CodePersistenceFailed, "Failed to load memberships")
	}
	return c.JSON(list)
}

// HandleGet returns one membership by id.
func (mc *MembershipController) HandleGet(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return respondStatus(c, fiber.StatusUnprocessableEntity, billing.CodeInvalidPayload, "id must be a positive integer")
	}

	m, err := mc.memberships.GetByID(c.UserContext(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondStatus(c, fiber.StatusNotFound, billing.CodeMembershipNotFound, "Membership not found")
		}
		fiberlog.Errorf("membership %d lookup failed: %v", id, err)
		return respondStatus(c, fiber.StatusInternalServerError, billing.CodePersistenceFailed, "Failed to load membership")
	}
	return c.JSON(m)
}
