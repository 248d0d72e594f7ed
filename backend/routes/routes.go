package routes

import (
	"career-roadmap/backend/controllers"
	"career-roadmap/backend/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

type Handlers struct {
	Roadmaps *controllers.RoadmapController
	Health   *controllers.HealthController
	Metrics  *metrics.Collector
}

func SetupRoutes(app *fiber.App, h Handlers) {
	// System routes
	app.Get("/", h.Health.Ready)
	app.Get("/healthz", h.Health.Health)
	if h.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(h.Metrics.Handler()))
	}

	// Roadmap routes, mounted under /api as well as the bare prefix
	for _, prefix := range []string{"/api/roadmaps", "/roadmaps"} {
		roadmaps := app.Group(prefix)
		roadmaps.Post("/generate", h.Roadmaps.Generate)
		roadmaps.Get("/", h.Roadmaps.ListRoadmaps)
		roadmaps.Get("/:id", h.Roadmaps.GetRoadmap)
		roadmaps.Post("/:id/update", h.Roadmaps.UpdateProgress)
		roadmaps.Delete("/:id", h.Roadmaps.DeleteRoadmap)
	}
}
