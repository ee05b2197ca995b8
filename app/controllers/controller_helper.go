package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/Plano3D/internal/pkg/billing"
)

// respondError answers err as {error, message} with the status its kind maps to.
func respondError(c *fiber.Ctx, err error) error {
	status := billing.HTTPStatus(err)
	message := "internal error"
	if be, ok := billing.AsError(err); ok {
		message = be.Message
	}
	if status >= fiber.StatusInternalServerError {
		fiberlog.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{"error": billing.Code(err), "message": message})
}

func respondStatus(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// ClientIP determines the client address considering proxies. Cloudflare's
// header wins over X-Forwarded-For, which wins over the socket address.
func ClientIP(c *fiber.Ctx) string {
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}

	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		// the first entry is the original client
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}

	ipAddr := c.IP()
	// IPv4-mapped IPv6 (::ffff:192.168.1.1)
	if strings.HasPrefix(ipAddr, "::ffff:") && strings.Contains(ipAddr, ".") {
		return strings.TrimPrefix(ipAddr, "::ffff:")
	}
	return ipAddr
}
