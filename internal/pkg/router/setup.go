package router

import (
	"github.com/gofiber/fiber/v2"
)

// Router registers a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter installs the operational routes first so health and metrics
// stay outside the API rate limiter.
func InstallRouter(app *fiber.App, ops *OpsRouter, api *ApiRouter) {
	setup(app, ops, api)
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
