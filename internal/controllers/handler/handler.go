package handler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"homesync/internal/appers"
	"homesync/internal/application/common"
	"homesync/internal/application/entity"
	use_cases "homesync/internal/application/use-cases"
	"homesync/pkg/validator"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Handler interface {
	CreateHouse(c *fiber.Ctx) error
	GetHouses(c *fiber.Ctx) error
	GetHouseByID(c *fiber.Ctx) error
	UpdateHouse(c *fiber.Ctx) error
	DeleteHouse(c *fiber.Ctx) error

	CreateRoom(c *fiber.Ctx) error
	GetRoomsByHouse(c *fiber.Ctx) error
	UpdateRoom(c *fiber.Ctx) error
	DeleteRoom(c *fiber.Ctx) error

	HealthCheck(c *fiber.Ctx) error
}

type HandlerImpl struct {
	usecase use_cases.UseCaser
	logger  *zap.SugaredLogger
}

func NewHouseHandler(usecase use_cases.UseCaser, logger *zap.SugaredLogger) *HandlerImpl {
	return &HandlerImpl{
		usecase: usecase,
		logger:  logger,
	}
}

// formatValidationErrors форматирует ошибки валидации в понятный формат для клиента
func formatValidationErrors(err error) fiber.Map {
	var errors []string
	if validationErrors, ok := err.(playgroundvalidator.ValidationErrors); ok {
		for _, e := range validationErrors {
			field := e.Field()
			tag := e.Tag()
			var message string
			switch tag {
			case "required":
				message = fmt.Sprintf("поле '%s' обязательно для заполнения", field)
			case "min":
				message = fmt.Sprintf("поле '%s' должно содержать минимум %s символов", field, e.Param())
			case "max":
				message = fmt.Sprintf("поле '%s' должно содержать максимум %s символов", field, e.Param())
			case "rfc3339", "rfc3339_optional":
				message = fmt.Sprintf("поле '%s' должно быть в формате RFC3339 (например, 2026-01-20T15:00:00Z)", field)
			default:
				message = fmt.Sprintf("поле '%s' не прошло валидацию: %s", field, tag)
			}
			errors = append(errors, message)
		}
	} else {
		errors = append(errors, err.Error())
	}
	return fiber.Map{
		"error":   "validation failed",
		"details": errors,
	}
}

func parseIDParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("параметр '%s' должен быть положительным числом", name)
	}
	return id, nil
}

// HealthCheck godoc
// @Summary     Проверка состояния сервиса
// @Description Проверяет доступность базы данных PostgreSQL и Kafka. Возвращает детальную информацию о состоянии каждого компонента.
// @Accept      json
// @Produce     json
// @Success     200   {object} entity.HealthCheckResponse "Все сервисы доступны"
// @Failure     503   {object} entity.HealthCheckResponse "Один или несколько сервисов недоступны"
// @tags        Health
// @Router      /health [get]
func (h *HandlerImpl) HealthCheck(c *fiber.Ctx) error {
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

// CreateHouse godoc
// @Summary     Создание дома
// @Description Создает новый дом и записывает событие house_created в outbox в той же транзакции
// @Accept      json
// @Produce     json
// @Param       body  body     entity.House  true  "Данные дома"
// @Success     201   {object} entity.HouseResponse
// @Failure     400
// @Failure     500
// @tags        House
// @Router      /v1/houses [post]
func (h *HandlerImpl) CreateHouse(c *fiber.Ctx) error {
	var house entity.House
	if err := c.BodyParser(&house); err != nil {
		h.logger.Errorf("error parsing body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := validator.Validate.Struct(&house); err != nil {
		h.logger.Warnf("validation error: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(formatValidationErrors(err))
	}

	resp, err := h.usecase.CreateHouse(c.Context(), house)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetHouses godoc
// @Summary     Список домов
// @Produce     json
// @Success     200   {array}  entity.HouseResponse
// @Failure     500
// @tags        House
// @Router      /v1/houses [get]
func (h *HandlerImpl) GetHouses(c *fiber.Ctx) error {
	houses, err := h.usecase.GetHouses(c.Context())
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(houses)
}

// GetHouseByID godoc
// @Summary     Получение дома по ID
// @Produce     json
// @Param       id    path     int  true  "ID дома"
// @Success     200   {object} entity.HouseResponse
// @Failure     400
// @Failure     404
// @Failure     500
// @tags        House
// @Router      /v1/houses/{id} [get]
func (h *HandlerImpl) GetHouseByID(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	house, err := h.usecase.GetHouseByID(c.Context(), id)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(house)
}

// UpdateHouse godoc
// @Summary     Обновление дома
// @Description Обновляет дом и записывает событие house_updated в outbox в той же транзакции
// @Accept      json
// @Produce     json
// @Param       id    path     int           true  "ID дома"
// @Param       body  body     entity.House  true  "Данные дома"
// @Success     200   {object} entity.HouseResponse
// @Failure     400
// @Failure     404
// @Failure     500
// @tags        House
// @Router      /v1/houses/{id} [patch]
func (h *HandlerImpl) UpdateHouse(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var house entity.House
	if err := c.BodyParser(&house); err != nil {
		h.logger.Errorf("error parsing body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	house.ID = id

	if err := validator.Validate.Struct(&house); err != nil {
		h.logger.Warnf("validation error: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(formatValidationErrors(err))
	}

	resp, err := h.usecase.UpdateHouse(c.Context(), house)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// DeleteHouse godoc
// @Summary     Удаление дома
// @Description Удаляет дом вместе с комнатами и записывает событие house_deleted в outbox
// @Produce     json
// @Param       id    path     int  true  "ID дома"
// @Success     200
// @Failure     400
// @Failure     404
// @Failure     500
// @tags        House
// @Router      /v1/houses/{id} [delete]
func (h *HandlerImpl) DeleteHouse(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.usecase.DeleteHouse(c.Context(), id); err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"description": "ok"})
}

// CreateRoom godoc
// @Summary     Создание комнаты
// @Description Создает комнату в доме и записывает событие room_created в outbox в той же транзакции
// @Accept      json
// @Produce     json
// @Param       houseId  path     int          true  "ID дома"
// @Param       body     body     entity.Room  true  "Данные комнаты"
// @Success     201      {object} entity.RoomResponse
// @Failure     400
// @Failure     500
// @tags        Room
// @Router      /v1/houses/{houseId}/rooms [post]
func (h *HandlerImpl) CreateRoom(c *fiber.Ctx) error {
	houseID, err := parseIDParam(c, "houseId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var room entity.Room
	if err := c.BodyParser(&room); err != nil {
		h.logger.Errorf("error parsing body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	room.HouseID = houseID

	if err := validator.Validate.Struct(&room); err != nil {
		h.logger.Warnf("validation error: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(formatValidationErrors(err))
	}

	resp, err := h.usecase.CreateRoom(c.Context(), room)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetRoomsByHouse godoc
// @Summary     Список комнат дома
// @Produce     json
// @Param       houseId  path     int  true  "ID дома"
// @Success     200      {array}  entity.RoomResponse
// @Failure     400
// @Failure     404
// @Failure     500
// @tags        Room
// @Router      /v1/houses/{houseId}/rooms [get]
func (h *HandlerImpl) GetRoomsByHouse(c *fiber.Ctx) error {
	houseID, err := parseIDParam(c, "houseId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	rooms, err := h.usecase.GetRoomsByHouse(c.Context(), houseID)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(rooms)
}

// UpdateRoom godoc
// @Summary     Обновление комнаты
// @Accept      json
// @Produce     json
// @Param       id    path     int          true  "ID комнаты"
// @Param       body  body     entity.Room  true  "Данные комнаты"
// @Success     200   {object} entity.RoomResponse
// @Failure     400
// @Failure     404
// @Failure     500
// @tags        Room
// @Router      /v1/rooms/{id} [patch]
func (h *HandlerImpl) UpdateRoom(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var room entity.Room
	if err := c.BodyParser(&room); err != nil {
		h.logger.Errorf("error parsing body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	room.ID = id

	if err := validator.Validate.Struct(&room); err != nil {
		h.logger.Warnf("validation error: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(formatValidationErrors(err))
	}

	resp, err := h.usecase.UpdateRoom(c.Context(), room)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// DeleteRoom godoc
// @Summary     Удаление комнаты
// @Produce     json
// @Param       id    path     int  true  "ID комнаты"
// @Success     200
// @Failure     400
// @Failure     404
// @Failure     500
// @tags        Room
// @Router      /v1/rooms/{id} [delete]
func (h *HandlerImpl) DeleteRoom(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.usecase.DeleteRoom(c.Context(), id); err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"description": "ok"})
}
