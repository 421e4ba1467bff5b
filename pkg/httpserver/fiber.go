package httpserver

import (
	"strconv"
	"strings"
	"time"

	"homesync/pkg/config"
	"homesync/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func NewFiber(conf config.Config, m *metrics.Metrics) *fiber.App {
	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 1024 * 100,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				code := fiber.StatusInternalServerError
				return c.Status(code).JSON(fiber.Map{
					"status":  false,
					"message": err.Error(),
				})
			},
		},
	)

	app.Use(
		cors.New(cors.Config{
			AllowOrigins:  "*", // Разрешаем все источники по умолчанию
			ExposeHeaders: "Authorization",
		}),
		recover.New(),
		logger.New(),
	)

	// Prometheus middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		// Путь берём из роута, если доступен, иначе фактический
		path := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			path = r.Path
		}

		method := strings.ToUpper(c.Method())
		if r := c.Route(); r != nil && r.Method != "" {
			method = strings.ToUpper(r.Method)
		}

		status := c.Response().StatusCode()
		statusStr := strconv.Itoa(status)
		m.API.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
		m.API.HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(time.Since(start).Seconds())
		return err
	})

	return app
}
