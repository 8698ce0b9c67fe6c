package Controllers

import "github.com/gofiber/fiber/v2"

const (
	ServiceName    = "ClientMax Pro API"
	ServiceVersion = "1.0.0"
)

type HealthController struct {
	KeepAliveEnabled bool
}

func NewHealthController(keepAlive bool) *HealthController {
	return &HealthController{KeepAliveEnabled: keepAlive}
}

func (c *HealthController) Root(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "healthy", "message": ServiceName + " is running"})
}

// Favicon answers 204 so browsers probing the API host don't trigger 401s.
func (c *HealthController) Favicon(ctx *fiber.Ctx) error {
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *HealthController) Health(ctx *fiber.Ctx) error {
	keepAlive := "disabled"
	if c.KeepAliveEnabled {
		keepAlive = "active"
	}
	return ctx.JSON(fiber.Map{
		"status":     "healthy",
		"service":    ServiceName,
		"version":    ServiceVersion,
		"keep_alive": keepAlive,
	})
}

func (c *HealthController) KeepAlive(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok", "message": "Service is awake"})
}
