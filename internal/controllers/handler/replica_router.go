package handler

import (
	"homesync/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

type ReplicaRouter struct {
	handler ReplicaHandler
	app     *fiber.App
	conf    *config.Config
	logger  *zap.SugaredLogger
}

func NewReplicaRouter(handler ReplicaHandler, app *fiber.App, conf *config.Config, logger *zap.SugaredLogger) *ReplicaRouter {
	return &ReplicaRouter{
		logger:  logger,
		app:     app,
		conf:    conf,
		handler: handler,
	}
}

func (r *ReplicaRouter) RegisterRouter() {
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

		v1.Get("/houses", r.handler.ListHouses)
		v1.Get("/houses/:houseId/rooms", r.handler.ListRooms)
		v1.Get("/houses/:houseId/temperature", r.handler.GetHouseSummary)

		v1.Post("/rooms/:roomId/temperature", r.handler.RecordTemperature)
		v1.Get("/rooms/:roomId/temperature", r.handler.GetReadings)
	})
}
