package handler

import (
	"context"
	"strconv"
	"time"

	"homesync/internal/appers"
	"homesync/internal/application/common"
	"homesync/internal/application/entity"
	use_cases "homesync/internal/application/use-cases"
	"homesync/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ReplicaHandler - read-only API temperature-сервиса поверх локальной реплики
// плюс запись показаний температуры.
type ReplicaHandler interface {
	ListHouses(c *fiber.Ctx) error
	ListRooms(c *fiber.Ctx) error
	RecordTemperature(c *fiber.Ctx) error
	GetReadings(c *fiber.Ctx) error
	GetHouseSummary(c *fiber.Ctx) error
	HealthCheck(c *fiber.Ctx) error
}

type ReplicaHandlerImpl struct {
	usecase use_cases.ReplicaUseCaser
	logger  *zap.SugaredLogger
}

func NewReplicaHandler(usecase use_cases.ReplicaUseCaser, logger *zap.SugaredLogger) *ReplicaHandlerImpl {
	return &ReplicaHandlerImpl{
		usecase: usecase,
		logger:  logger,
	}
}

// HealthCheck godoc
// @Summary     Проверка состояния сервиса
// @Accept      json
// @Produce     json
// @Success     200   {object} entity.HealthCheckResponse "Все сервисы доступны"
// @Failure     503   {object} entity.HealthCheckResponse "Один или несколько сервисов недоступны"
// @tags        Health
// @Router      /health [get]
func (h *ReplicaHandlerImpl) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	dbHealthy, kafkaHealthy, _ := h.usecase.HealthCheck(ctx)

	health := fiber.Map{
		"status":  dbHealthy && kafkaHealthy,
		"message": "success",
		"version": common.Version,
		"checks": fiber.Map{
			"database": fiber.Map{
				"status": dbHealthy,
				"type":   "postgresql",
			},
			"kafka": fiber.Map{
				"status": kafkaHealthy,
				"type":   "kafka",
			},
		},
	}
	if !dbHealthy {
		health["checks"].(fiber.Map)["database"].(fiber.Map)["error"] = "Database connection failed"
		health["message"] = "Some services are unavailable"
	}
	if !kafkaHealthy {
		health["checks"].(fiber.Map)["kafka"].(fiber.Map)["error"] = "Kafka connection failed"
		health["message"] = "Some services are unavailable"
	}

	if !dbHealthy || !kafkaHealthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(health)
	}

	return c.Status(fiber.StatusOK).JSON(health)
}

// ListHouses godoc
// @Summary     Список домов из реплики
// @Description Возвращает eventually-consistent копию домов, синхронизированную через шину событий
// @Produce     json
// @Success     200   {array}  entity.HouseReplica
// @Failure     500
// @tags        Replica
// @Router      /v1/houses [get]
func (h *ReplicaHandlerImpl) ListHouses(c *fiber.Ctx) error {
	houses, err := h.usecase.ListHouses(c.Context())
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(houses)
}

// ListRooms godoc
// @Summary     Список комнат дома из реплики
// @Produce     json
// @Param       houseId  path     int  true  "ID дома"
// @Success     200      {array}  entity.RoomReplica
// @Failure     400
// @Failure     404
// @Failure     500
// @tags        Replica
// @Router      /v1/houses/{houseId}/rooms [get]
func (h *ReplicaHandlerImpl) ListRooms(c *fiber.Ctx) error {
	houseID, err := parseIDParam(c, "houseId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	rooms, err := h.usecase.ListRooms(c.Context(), houseID)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(rooms)
}

// RecordTemperature godoc
// @Summary     Запись показания температуры
// @Description Записывает показание для комнаты из локальной реплики. Значение - строка-decimal с двумя знаками после запятой.
// @Accept      json
// @Produce     json
// @Param       roomId  path     int                        true  "ID комнаты"
// @Param       body    body     entity.TemperatureReading  true  "Показание"
// @Success     201     {object} entity.TemperatureReadingResponse
// @Failure     400
// @Failure     404
// @Failure     500
// @tags        Temperature
// @Router      /v1/rooms/{roomId}/temperature [post]
func (h *ReplicaHandlerImpl) RecordTemperature(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "roomId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var reading entity.TemperatureReading
	if err := c.BodyParser(&reading); err != nil {
		h.logger.Errorf("error parsing body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	reading.RoomID = roomID

	if err := validator.Validate.Struct(&reading); err != nil {
		h.logger.Warnf("validation error: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(formatValidationErrors(err))
	}

	resp, err := h.usecase.RecordTemperature(c.Context(), reading)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetReadings godoc
// @Summary     Показания температуры комнаты
// @Produce     json
// @Param       roomId  path     int  true   "ID комнаты"
// @Param       limit   query    int  false  "Максимум показаний (по умолчанию 100)"
// @Success     200     {array}  entity.TemperatureReadingResponse
// @Failure     400
// @Failure     404
// @Failure     500
// @tags        Temperature
// @Router      /v1/rooms/{roomId}/temperature [get]
func (h *ReplicaHandlerImpl) GetReadings(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "roomId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "100"))

	readings, err := h.usecase.GetReadings(c.Context(), roomID, limit)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(readings)
}

// GetHouseSummary godoc
// @Summary     Средняя температура по комнатам дома
// @Produce     json
// @Param       houseId  path     int  true  "ID дома"
// @Success     200      {array}  entity.RoomTemperatureSummary
// @Failure     400
// @Failure     404
// @Failure     500
// @tags        Temperature
// @Router      /v1/houses/{houseId}/temperature [get]
func (h *ReplicaHandlerImpl) GetHouseSummary(c *fiber.Ctx) error {
	houseID, err := parseIDParam(c, "houseId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	summary, err := h.usecase.GetHouseSummary(c.Context(), houseID)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(summary)
}
