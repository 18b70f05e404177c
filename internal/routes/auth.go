package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/rosca_bridge/internal/identity"
)

// RegisterAuthRoutes wires the wallet-linking endpoints. Extra handlers run
// before the callback, in order.
func RegisterAuthRoutes(r fiber.Router, h *identity.Handler, callbackGuards ...fiber.Handler) {
	r.Get("/auth-redirect/:chatId", h.Redirect)

	group := r.Group("/auth")
	callback := append(append([]fiber.Handler{}, callbackGuards...), h.Callback)
	group.Post("/callback", callback...)
	group.Get("/:chatId", h.Page)
}
