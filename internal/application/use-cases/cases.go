package use_cases

import (
	"context"

	"homesync/internal/application/entity"
	"homesync/internal/application/service"
	"homesync/pkg/config"

	"go.uber.org/zap"
)

// UseCaser - фасад house-сервиса: авторитетный CRUD + диспетчер outbox.
type UseCaser interface {
	CreateHouse(ctx context.Context, house entity.House) (*entity.HouseResponse, error)
	GetHouses(ctx context.Context) ([]*entity.HouseResponse, error)
	GetHouseByID(ctx context.Context, id int64) (*entity.HouseResponse, error)
	UpdateHouse(ctx context.Context, house entity.House) (*entity.HouseResponse, error)
	DeleteHouse(ctx context.Context, id int64) error

	CreateRoom(ctx context.Context, room entity.Room) (*entity.RoomResponse, error)
	GetRoomsByHouse(ctx context.Context, houseID int64) ([]*entity.RoomResponse, error)
	UpdateRoom(ctx context.Context, room entity.Room) (*entity.RoomResponse, error)
	DeleteRoom(ctx context.Context, id int64) error

	RunRelay(ctx context.Context)
	PruneOutbox(ctx context.Context)

	HealthCheck(ctx context.Context) (dbHealthy bool, kafkaHealthy bool, err error)
}

type UseCase struct {
	service service.Service
	logger  *zap.SugaredLogger
	conf    *config.Config
}

func NewUseCase(service service.Service, logger *zap.SugaredLogger, conf *config.Config) *UseCase {
	return &UseCase{
		service: service,
		logger:  logger,
		conf:    conf,
	}
}

func (u *UseCase) HealthCheck(ctx context.Context) (dbHealthy bool, kafkaHealthy bool, err error) {
	return u.service.HealthCheck(ctx)
}

func (u *UseCase) CreateHouse(ctx context.Context, house entity.House) (*entity.HouseResponse, error) {
	u.logger.Debugf("[house: %q] CreateHouse started", house.Name)
	return u.service.CreateHouse(ctx, &house)
}

func (u *UseCase) GetHouses(ctx context.Context) ([]*entity.HouseResponse, error) {
	u.logger.Debug("GetHouses started")
	return u.service.GetHouses(ctx)
}

func (u *UseCase) GetHouseByID(ctx context.Context, id int64) (*entity.HouseResponse, error) {
	u.logger.Debugf("[house: %d] GetHouseByID started", id)
	return u.service.GetHouseByID(ctx, id)
}

func (u *UseCase) UpdateHouse(ctx context.Context, house entity.House) (*entity.HouseResponse, error) {
	u.logger.Debugf("[house: %d] UpdateHouse started", house.ID)
	return u.service.UpdateHouse(ctx, &house)
}

func (u *UseCase) DeleteHouse(ctx context.Context, id int64) error {
	u.logger.Debugf("[house: %d] DeleteHouse started", id)
	return u.service.DeleteHouse(ctx, id)
}

func (u *UseCase) CreateRoom(ctx context.Context, room entity.Room) (*entity.RoomResponse, error) {
	u.logger.Debugf("[room: %q, house: %d] CreateRoom started", room.Name, room.HouseID)
	return u.service.CreateRoom(ctx, &room)
}

func (u *UseCase) GetRoomsByHouse(ctx context.Context, houseID int64) ([]*entity.RoomResponse, error) {
	u.logger.Debugf("[house: %d] GetRoomsByHouse started", houseID)
	return u.service.GetRoomsByHouse(ctx, houseID)
}

func (u *UseCase) UpdateRoom(ctx context.Context, room entity.Room) (*entity.RoomResponse, error) {
	u.logger.Debugf("[room: %d] UpdateRoom started", room.ID)
	return u.service.UpdateRoom(ctx, &room)
}

func (u *UseCase) DeleteRoom(ctx context.Context, id int64) error {
	u.logger.Debugf("[room: %d] DeleteRoom started", id)
	return u.service.DeleteRoom(ctx, id)
}

func (u *UseCase) RunRelay(ctx context.Context) {
	u.logger.Debug("relay started")
	u.service.RelayRun(ctx)
}

func (u *UseCase) PruneOutbox(ctx context.Context) {
	days := u.conf.Cron.RetentionDays
	u.logger.Infof("PruneOutbox called with retentionDays=%d", days)
	u.service.PruneOutbox(ctx, &days)
}
