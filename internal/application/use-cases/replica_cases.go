package use_cases

import (
	"context"

	"homesync/internal/application/entity"
	"homesync/internal/application/service"

	"go.uber.org/zap"
)

// ReplicaUseCaser - фасад temperature-сервиса: применение событий шины
// и запросы поверх локальной реплики.
type ReplicaUseCaser interface {
	ApplyMessage(ctx context.Context, raw []byte) error

	ListHouses(ctx context.Context) ([]*entity.HouseReplica, error)
	ListRooms(ctx context.Context, houseID int64) ([]*entity.RoomReplica, error)
	RecordTemperature(ctx context.Context, in entity.TemperatureReading) (*entity.TemperatureReadingResponse, error)
	GetReadings(ctx context.Context, roomID int64, limit int) ([]*entity.TemperatureReadingResponse, error)
	GetHouseSummary(ctx context.Context, houseID int64) ([]*entity.RoomTemperatureSummary, error)

	HealthCheck(ctx context.Context) (dbHealthy bool, kafkaHealthy bool, err error)
}

type ReplicaUseCase struct {
	service service.ReplicaService
	logger  *zap.SugaredLogger
}

func NewReplicaUseCase(service service.ReplicaService, logger *zap.SugaredLogger) *ReplicaUseCase {
	return &ReplicaUseCase{
		service: service,
		logger:  logger,
	}
}

func (u *ReplicaUseCase) HealthCheck(ctx context.Context) (dbHealthy bool, kafkaHealthy bool, err error) {
	return u.service.HealthCheck(ctx)
}

func (u *ReplicaUseCase) ApplyMessage(ctx context.Context, raw []byte) error {
	return u.service.ApplyMessage(ctx, raw)
}

func (u *ReplicaUseCase) ListHouses(ctx context.Context) ([]*entity.HouseReplica, error) {
	u.logger.Debug("ListHouses started")
	return u.service.ListHouses(ctx)
}

func (u *ReplicaUseCase) ListRooms(ctx context.Context, houseID int64) ([]*entity.RoomReplica, error) {
	u.logger.Debugf("[house: %d] ListRooms started", houseID)
	return u.service.ListRooms(ctx, houseID)
}

func (u *ReplicaUseCase) RecordTemperature(ctx context.Context, in entity.TemperatureReading) (*entity.TemperatureReadingResponse, error) {
	u.logger.Debugf("[room: %d] RecordTemperature started", in.RoomID)
	return u.service.RecordTemperature(ctx, &in)
}

func (u *ReplicaUseCase) GetReadings(ctx context.Context, roomID int64, limit int) ([]*entity.TemperatureReadingResponse, error) {
	u.logger.Debugf("[room: %d] GetReadings started", roomID)
	return u.service.GetReadings(ctx, roomID, limit)
}

func (u *ReplicaUseCase) GetHouseSummary(ctx context.Context, houseID int64) ([]*entity.RoomTemperatureSummary, error) {
	u.logger.Debugf("[house: %d] GetHouseSummary started", houseID)
	return u.service.GetHouseSummary(ctx, houseID)
}
