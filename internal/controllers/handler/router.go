package handler

import (
	"homesync/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

type Router struct {
	handler Handler
	app     *fiber.App
	conf    *config.Config
	logger  *zap.SugaredLogger
}

func NewRouter(handler Handler, app *fiber.App, conf *config.Config, logger *zap.SugaredLogger) *Router {
	return &Router{
		logger:  logger,
		app:     app,
		conf:    conf,
		handler: handler,
	}
}

func (r *Router) RegisterRouter() {
	r.app.Get("/health", r.handler.HealthCheck)

	r.app.Use(
		recover.New(recover.Config{
			EnableStackTrace: true,
		}),
		logger.New(),
	)

	r.app.Route("/homesync", func(router fiber.Router) {

		router.Use("/swagger/*", swagger.New(swagger.Config{
			DeepLinking: false,
			URL:         "/homesync/swagger/doc.json",
		}))

		api := router.Group("/api")

		v1 := api.Group("/v1")

		v1.Post("/houses", r.handler.CreateHouse)
		v1.Get("/houses", r.handler.GetHouses)
		v1.Get("/houses/:id", r.handler.GetHouseByID)
		v1.Patch("/houses/:id", r.handler.UpdateHouse)
		v1.Delete("/houses/:id", r.handler.DeleteHouse)

		v1.Post("/houses/:houseId/rooms", r.handler.CreateRoom)
		v1.Get("/houses/:houseId/rooms", r.handler.GetRoomsByHouse)
		v1.Patch("/rooms/:id", r.handler.UpdateRoom)
		v1.Delete("/rooms/:id", r.handler.DeleteRoom)
	})
}
