package handler

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/musicgen/internal/config"
	"github.com/makeasinger/musicgen/internal/middleware"
	ws "github.com/makeasinger/musicgen/internal/websocket"
)

// Routes groups the handlers mounted by the server.
type Routes struct {
	// Authenticate guards every /api route.
	Authenticate fiber.Handler
	RateLimiter  *middleware.RateLimiter
	Limits       config.RateLimitConfig

	Auth  *AuthHandler
	Suno  *SunoHandler
	Tasks *TaskHandler
	// Jobs and Hub are optional; without them the job routes are not
	// mounted.
	Jobs *JobHandler
	Hub  *ws.Hub
}

// Mount registers the routes on app.
func (r *Routes) Mount(app *fiber.App) {
	if r.Auth != nil {
		app.Get("/auth/verify", r.Auth.Verify)
	}

	api := app.Group("/api", r.Authenticate)

	suno := api.Group("/suno")
	suno.Post("/:feature", r.limit(r.Limits.CreatePerMin, r.RateLimiter.CreateLimit), r.Suno.Create)
	suno.Get("/:feature/status", r.Suno.Status)

	if r.Tasks != nil {
		api.Get("/tasks/:taskId", r.Tasks.Get)
	}

	if r.Jobs != nil {
		jobs := api.Group("/jobs")
		jobs.Post("/:feature", r.limit(r.Limits.JobsPerHour, r.RateLimiter.JobsLimit), r.Jobs.Start)
		jobs.Get("/:jobId", r.Jobs.Status)
		jobs.Get("/:jobId/result", r.Jobs.Result)
		jobs.Post("/:jobId/cancel", r.Jobs.Cancel)
	}

	if r.Hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
			r.Hub.HandleConnection(c, c.Params("jobId"))
		}))
	}
}

func (r *Routes) limit(max int, build func(int) fiber.Handler) fiber.Handler {
	if r.RateLimiter == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return build(max)
}
