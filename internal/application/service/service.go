package service

import (
	"context"
	"fmt"

	"homesync/internal/appers"
	"homesync/internal/application/entity"
	"homesync/internal/application/repo"
	"homesync/internal/transport/producer"
	"homesync/pkg/config"
	"homesync/pkg/metrics"

	"go.uber.org/zap"
)

// Service - write-сторона: авторитетный CRUD домов/комнат.
// Каждая мутация фиксируется атомарно вместе со своей outbox-строкой,
// публикация откладывается в relay, чтобы латентность записи
// не зависела от доступности шины.
type Service interface {
	CreateHouse(ctx context.Context, house *entity.House) (*entity.HouseResponse, error)
	GetHouses(ctx context.Context) ([]*entity.HouseResponse, error)
	GetHouseByID(ctx context.Context, id int64) (*entity.HouseResponse, error)
	UpdateHouse(ctx context.Context, house *entity.House) (*entity.HouseResponse, error)
	DeleteHouse(ctx context.Context, id int64) error

	CreateRoom(ctx context.Context, room *entity.Room) (*entity.RoomResponse, error)
	GetRoomsByHouse(ctx context.Context, houseID int64) ([]*entity.RoomResponse, error)
	UpdateRoom(ctx context.Context, room *entity.Room) (*entity.RoomResponse, error)
	DeleteRoom(ctx context.Context, id int64) error

	RelayRun(ctx context.Context)
	PruneOutbox(ctx context.Context, days *int)

	HealthCheck(ctx context.Context) (dbHealthy bool, kafkaHealthy bool, err error)
}

type ServiceImpl struct {
	repo          repo.Repo
	transactions  repo.Transactions
	kafkaProducer producer.Producer
	logger        *zap.SugaredLogger
	cfg           *config.RelayConfig
	m             *metrics.Metrics
}

func NewService(repo repo.Repo, transactions repo.Transactions, kafkaProducer producer.Producer, logger *zap.SugaredLogger, cfg *config.RelayConfig, m *metrics.Metrics) *ServiceImpl {
	return &ServiceImpl{
		repo:          repo,
		transactions:  transactions,
		kafkaProducer: kafkaProducer,
		logger:        logger,
		cfg:           cfg,
		m:             m,
	}
}

// HealthCheck проверяет доступность БД и Kafka
func (s *ServiceImpl) HealthCheck(ctx context.Context) (dbHealthy bool, kafkaHealthy bool, err error) {
	dbErr := s.repo.HealthCheck(ctx)
	dbHealthy = dbErr == nil

	kafkaErr := s.kafkaProducer.HealthCheck(ctx)
	kafkaHealthy = kafkaErr == nil

	// Возвращаем ошибку только если обе проверки провалились
	if !dbHealthy && !kafkaHealthy {
		return dbHealthy, kafkaHealthy, fmt.Errorf("database: %v, kafka: %v", dbErr, kafkaErr)
	}

	return dbHealthy, kafkaHealthy, nil
}

func (s *ServiceImpl) CreateHouse(ctx context.Context, house *entity.House) (*entity.HouseResponse, error) {
	s.logger.Debugf("[house: %q] CreateHouse started", house.Name)

	return s.transactions.CreateHouse(ctx, house)
}

func (s *ServiceImpl) GetHouses(ctx context.Context) ([]*entity.HouseResponse, error) {
	s.logger.Debug("GetHouses started")

	return s.repo.GetHouses(ctx)
}

func (s *ServiceImpl) GetHouseByID(ctx context.Context, id int64) (*entity.HouseResponse, error) {
	s.logger.Debugf("[house: %d] GetHouseByID started", id)

	return s.repo.GetHouseByID(ctx, id)
}

func (s *ServiceImpl) UpdateHouse(ctx context.Context, house *entity.House) (*entity.HouseResponse, error) {
	s.logger.Debugf("[house: %d] UpdateHouse started", house.ID)

	return s.transactions.UpdateHouse(ctx, house)
}

func (s *ServiceImpl) DeleteHouse(ctx context.Context, id int64) error {
	s.logger.Debugf("[house: %d] DeleteHouse started", id)

	return s.transactions.DeleteHouse(ctx, id)
}

func (s *ServiceImpl) CreateRoom(ctx context.Context, room *entity.Room) (*entity.RoomResponse, error) {
	s.logger.Debugf("[room: %q, house: %d] CreateRoom started", room.Name, room.HouseID)

	// валидация до записи: комната без существующего дома - ошибка запроса,
	// а не транзиентный сбой
	exists, err := s.repo.HouseExists(ctx, room.HouseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, appers.ErrRoomParentMissing
	}

	return s.transactions.CreateRoom(ctx, room)
}

func (s *ServiceImpl) GetRoomsByHouse(ctx context.Context, houseID int64) ([]*entity.RoomResponse, error) {
	s.logger.Debugf("[house: %d] GetRoomsByHouse started", houseID)

	return s.repo.GetRoomsByHouse(ctx, houseID)
}

func (s *ServiceImpl) UpdateRoom(ctx context.Context, room *entity.Room) (*entity.RoomResponse, error) {
	s.logger.Debugf("[room: %d] UpdateRoom started", room.ID)

	return s.transactions.UpdateRoom(ctx, room)
}

func (s *ServiceImpl) DeleteRoom(ctx context.Context, id int64) error {
	s.logger.Debugf("[room: %d] DeleteRoom started", id)

	return s.transactions.DeleteRoom(ctx, id)
}

func (s *ServiceImpl) PruneOutbox(ctx context.Context, days *int) {
	s.logger.Debugf("PruneOutbox started")

	_ = s.repo.PruneSentOutbox(ctx, days)
}
