package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/Plano3D/internal/pkg/billing"
	"github.com/ManuelReschke/Plano3D/internal/pkg/entitlements"
)

// EntitlementChecker answers whether a user currently has access.
type EntitlementChecker interface {
	Check(ctx context.Context, userID uint) (*entitlements.Result, error)
}

type EntitlementController struct {
	checker EntitlementChecker
}

func NewEntitlementController(checker EntitlementChecker) *EntitlementController {
	return &EntitlementController{checker: checker}
}

// HandleGetEntitlement answers GET /entitlement/:user_id.
func (ec *EntitlementController) HandleGetEntitlement(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("user_id")
	if err != nil || userID <= 0 {
		return respondStatus(c, fiber.StatusUnprocessableEntity, billing.CodeInvalidPayload, "user_id must be a positive integer")
	}

	res, err := ec.checker.Check(c.UserContext(), uint(userID))
	if err != nil {
		if errors.Is(err, entitlements.ErrInvalidUser) {
			return respondStatus(c, fiber.StatusUnprocessableEntity, billing.CodeInvalidPayload, err.Error())
		}
		fiberlog.Errorf("entitlement check for user=%d failed: %v", userID, err)
		return respondStatus(c, fiber.StatusInternalServerError, billing.CodePersistenceFailed, "Failed to load entitlement")
	}
	return c.JSON(res)
}
