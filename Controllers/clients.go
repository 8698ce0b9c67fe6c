package Controllers

import (
	"strconv"

	"ClientMax/Store"

	"github.com/gofiber/fiber/v2"
)

type ClientController struct {
	Clients *Store.ClientStore
}

func NewClientController(clients *Store.ClientStore) *ClientController {
	return &ClientController{Clients: clients}
}

func (c *ClientController) GetClients(ctx *fiber.Ctx) error {
	clients, err := c.Clients.List(ctx.UserContext())
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(clients)
}

// GetAtRiskClients lists warning and critical clients, worst first. ?limit= caps the result.
func (c *ClientController) GetAtRiskClients(ctx *fiber.Ctx) error {
	limit, _ := strconv.Atoi(ctx.Query("limit", "0"))
	clients, err := c.Clients.AtRisk(ctx.UserContext(), limit)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(clients)
}

func (c *ClientController) GetClient(ctx *fiber.Ctx) error {
	client, err := c.Clients.Get(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(client)
}
