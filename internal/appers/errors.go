package appers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

var (
	// ErrFormat для парсинга строки в pgtype.Numeric
	ErrFormat    = errors.New("invalid decimal format")
	ErrScale     = errors.New("too many fractional digits (max 2)")
	ErrPrecision = errors.New("too many integer digits for NUMERIC(18,2)")
)

// Ошибки конвейера синхронизации. Классификация важна для консьюмера:
// transient -> без ack, брокер доставит сообщение повторно;
// permanent -> dead-letter, повторять бессмысленно.
var (
	ErrMalformedEvent   = errors.New("malformed event payload")
	ErrUnknownEventType = errors.New("unknown event type")
	// ErrParentMissing - room-событие пришло раньше house_created
	ErrParentMissing = errors.New("parent house replica is missing")
)

// IsPermanent отделяет poison-сообщения от временных сбоев.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrMalformedEvent) || errors.Is(err, ErrUnknownEventType)
}

type ErrorResp struct {
	StatusCode int    `json:"statusCode,omitempty"`
	StatusDesc string `json:"statusDesc,omitempty"`
}

func (e ErrorResp) Error() string {
	return e.StatusDesc
}

var (
	ErrHouseNotFound = ErrorResp{
		http.StatusNotFound,
		"дом не найден",
	}
	ErrRoomNotFound = ErrorResp{
		http.StatusNotFound,
		"комната не найдена",
	}
	ErrRoomParentMissing = ErrorResp{
		http.StatusBadRequest,
		"дом для комнаты не существует",
	}
	ErrBadTemperature = ErrorResp{
		StatusCode: http.StatusBadRequest,
		StatusDesc: "не верный формат температуры, ожидается число с двумя знаками после запятой",
	}
)

func SanitizeError(c *fiber.Ctx, err error) error {
	var errResp ErrorResp

	if ok := errors.As(err, &errResp); ok {
		return c.Status(errResp.StatusCode).JSON(fiber.Map{
			"message": errResp.StatusDesc,
		})
	} else {
		return NewErr(c, http.StatusInternalServerError, err)
	}
}

func NewErr(ctx *fiber.Ctx, status int, err error) error {
	return ctx.Status(status).JSON(fiber.Map{
		"message": err.Error(),
	})
}
