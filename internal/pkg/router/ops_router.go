package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/Plano3D/app/controllers"
)

// OpsRouter serves liveness and prometheus endpoints.
type OpsRouter struct {
	health         *controllers.HealthController
	metricsEnabled bool
}

func NewOpsRouter(health *controllers.HealthController, metricsEnabled bool) *OpsRouter {
	return &OpsRouter{health: health, metricsEnabled: metricsEnabled}
}

func (o *OpsRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", o.health.HandleHealth)
	if o.metricsEnabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}
}
