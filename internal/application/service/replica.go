package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"homesync/internal/appers"
	"homesync/internal/application/common"
	"homesync/internal/application/entity"
	"homesync/internal/application/repo"
	"homesync/internal/transport/producer"
	"homesync/pkg/metrics"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// ReplicaService - read-сторона: применяет события шины к локальной реплике
// и обслуживает запросы temperature-API поверх неё.
type ReplicaService interface {
	ApplyMessage(ctx context.Context, raw []byte) error

	ListHouses(ctx context.Context) ([]*entity.HouseReplica, error)
	ListRooms(ctx context.Context, houseID int64) ([]*entity.RoomReplica, error)
	RecordTemperature(ctx context.Context, in *entity.TemperatureReading) (*entity.TemperatureReadingResponse, error)
	GetReadings(ctx context.Context, roomID int64, limit int) ([]*entity.TemperatureReadingResponse, error)
	GetHouseSummary(ctx context.Context, houseID int64) ([]*entity.RoomTemperatureSummary, error)

	HealthCheck(ctx context.Context) (dbHealthy bool, kafkaHealthy bool, err error)
}

// HouseFetcher - опциональный ресинк родителя из авторитетного сервиса.
// nil - ресинк выключен, событие без родителя уходит на redelivery.
type HouseFetcher interface {
	FetchHouse(ctx context.Context, houseID int64) (*entity.HouseResponse, bool, error)
}

// дом удалён у источника - room-событие устарело и отбрасывается
var errParentGone = errors.New("parent house gone at source")

type applyFn func(ctx context.Context, msg entity.Message) error

type ReplicaServiceImpl struct {
	repo          repo.ReplicaRepo
	fetcher       HouseFetcher
	kafkaProducer producer.Producer
	logger        *zap.SugaredLogger
	m             *metrics.Metrics

	handlers map[entity.OutboxEventType]applyFn
}

func NewReplicaService(repo repo.ReplicaRepo, fetcher HouseFetcher, kafkaProducer producer.Producer, logger *zap.SugaredLogger, m *metrics.Metrics) *ReplicaServiceImpl {
	s := &ReplicaServiceImpl{
		repo:          repo,
		fetcher:       fetcher,
		kafkaProducer: kafkaProducer,
		logger:        logger,
		m:             m,
	}

	s.handlers = map[entity.OutboxEventType]applyFn{
		entity.HouseCreated: s.applyHouseUpsert,
		entity.HouseUpdated: s.applyHouseUpsert,
		entity.HouseDeleted: s.applyHouseDelete,
		entity.RoomCreated:  s.applyRoomUpsert,
		entity.RoomUpdated:  s.applyRoomUpsert,
		entity.RoomDeleted:  s.applyRoomDelete,
	}

	return s
}

func (s *ReplicaServiceImpl) HealthCheck(ctx context.Context) (dbHealthy bool, kafkaHealthy bool, err error) {
	dbErr := s.repo.HealthCheck(ctx)
	dbHealthy = dbErr == nil

	kafkaErr := s.kafkaProducer.HealthCheck(ctx)
	kafkaHealthy = kafkaErr == nil

	if !dbHealthy && !kafkaHealthy {
		return dbHealthy, kafkaHealthy, fmt.Errorf("database: %v, kafka: %v", dbErr, kafkaErr)
	}

	return dbHealthy, kafkaHealthy, nil
}

// ApplyMessage применяет одно сообщение шины к реплике.
// Продвижение inbox и доменная запись идут в одной транзакции: упало - всё
// откатилось, брокер доставит повторно. Дубликат (CAS не прошёл) - no-op.
// Ошибки, для которых appers.IsPermanent == true, повторять бессмысленно.
func (s *ReplicaServiceImpl) ApplyMessage(ctx context.Context, raw []byte) error {
	var msg entity.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("%w: %v", appers.ErrMalformedEvent, err)
	}
	if msg.EventID <= 0 {
		return fmt.Errorf("%w: non-positive eventId %d", appers.ErrMalformedEvent, msg.EventID)
	}

	handler, ok := s.handlers[msg.EventType]
	if !ok {
		return fmt.Errorf("%w: %q", appers.ErrUnknownEventType, msg.EventType)
	}

	s.logger.Debugf("[event %d, %s] apply started", msg.EventID, msg.EventType)

	start := time.Now()
	stale := false
	err := s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		applied, err := s.repo.AdvanceInbox(ctx, msg.EntityKey.InboxKey(), msg.EventID)
		if err != nil {
			return err
		}
		if !applied {
			stale = true
			return nil
		}
		return handler(ctx, msg)
	})
	if s.m != nil {
		s.m.Replica.ApplyDuration.WithLabelValues(string(msg.EventType)).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return err
	}

	if stale {
		if s.m != nil {
			s.m.Replica.DuplicatesTotal.Inc()
		}
		s.logger.Debugf("[event %d, %s] duplicate or stale, discarded", msg.EventID, msg.EventType)
		return nil
	}

	if s.m != nil {
		s.m.Replica.AppliedTotal.WithLabelValues(string(msg.EventType)).Inc()
	}
	s.logger.Infof("[event %d, %s] applied", msg.EventID, msg.EventType)
	return nil
}

func (s *ReplicaServiceImpl) applyHouseUpsert(ctx context.Context, msg entity.Message) error {
	var house entity.HouseResponse
	if err := json.Unmarshal(msg.Payload, &house); err != nil {
		return fmt.Errorf("%w: house payload: %v", appers.ErrMalformedEvent, err)
	}

	return s.repo.UpsertHouse(ctx, &entity.HouseReplica{
		ID:          msg.EntityKey.HouseID,
		Name:        house.Name,
		Address:     house.Address,
		LastEventID: msg.EventID,
	})
}

func (s *ReplicaServiceImpl) applyHouseDelete(ctx context.Context, msg entity.Message) error {
	return s.repo.DeleteHouseCascade(ctx, msg.EntityKey.HouseID)
}

func (s *ReplicaServiceImpl) applyRoomUpsert(ctx context.Context, msg entity.Message) error {
	if msg.EntityKey.RoomID == nil {
		return fmt.Errorf("%w: room event without roomId", appers.ErrMalformedEvent)
	}

	var room entity.RoomResponse
	if err := json.Unmarshal(msg.Payload, &room); err != nil {
		return fmt.Errorf("%w: room payload: %v", appers.ErrMalformedEvent, err)
	}

	if err := s.ensureParent(ctx, msg.EntityKey.HouseID); err != nil {
		if errors.Is(err, errParentGone) {
			s.logger.Warnf("[event %d] house %d no longer exists at source, dropping stale room event", msg.EventID, msg.EntityKey.HouseID)
			return nil
		}
		return err
	}

	return s.repo.UpsertRoom(ctx, &entity.RoomReplica{
		ID:          *msg.EntityKey.RoomID,
		HouseID:     msg.EntityKey.HouseID,
		Name:        room.Name,
		Floor:       room.Floor,
		LastEventID: msg.EventID,
	})
}

func (s *ReplicaServiceImpl) applyRoomDelete(ctx context.Context, msg entity.Message) error {
	if msg.EntityKey.RoomID == nil {
		return fmt.Errorf("%w: room event without roomId", appers.ErrMalformedEvent)
	}
	return s.repo.DeleteRoom(ctx, *msg.EntityKey.RoomID)
}

// ensureParent проверяет наличие дома в реплике. Если дома нет и ресинк
// включён - дом дозагружается из источника и сохраняется с last_event_id = 0,
// чтобы любое будущее house-событие его перезаписало. Без ресинка возвращается
// транзиентная ErrParentMissing: брокер доставит room-событие повторно, когда
// house_created уже применится.
func (s *ReplicaServiceImpl) ensureParent(ctx context.Context, houseID int64) error {
	exists, err := s.repo.HouseExists(ctx, houseID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if s.m != nil {
		s.m.Replica.ParentMissingTotal.Inc()
	}

	if s.fetcher == nil {
		return fmt.Errorf("%w: house %d", appers.ErrParentMissing, houseID)
	}

	house, found, err := s.fetcher.FetchHouse(ctx, houseID)
	if err != nil {
		return fmt.Errorf("resync house %d: %w", houseID, err)
	}
	if !found {
		return errParentGone
	}

	return s.repo.UpsertHouse(ctx, &entity.HouseReplica{
		ID:          house.ID,
		Name:        house.Name,
		Address:     house.Address,
		LastEventID: 0,
	})
}

// ===== temperature API =====

func (s *ReplicaServiceImpl) ListHouses(ctx context.Context) ([]*entity.HouseReplica, error) {
	s.logger.Debug("ListHouses started")

	return s.repo.ListHouses(ctx)
}

func (s *ReplicaServiceImpl) ListRooms(ctx context.Context, houseID int64) ([]*entity.RoomReplica, error) {
	s.logger.Debugf("[house: %d] ListRooms started", houseID)

	exists, err := s.repo.HouseExists(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, appers.ErrHouseNotFound
	}

	return s.repo.ListRoomsByHouse(ctx, houseID)
}

func (s *ReplicaServiceImpl) RecordTemperature(ctx context.Context, in *entity.TemperatureReading) (*entity.TemperatureReadingResponse, error) {
	s.logger.Debugf("[room: %d] RecordTemperature started, value: %s", in.RoomID, in.Value)

	exists, err := s.repo.RoomExists(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, appers.ErrRoomNotFound
	}

	value, err := common.NumericFromString2Strict(in.Value)
	if err != nil || !value.Valid {
		s.logger.Debugf("[room: %d] bad temperature value %q: %v", in.RoomID, in.Value, err)
		return nil, appers.ErrBadTemperature
	}

	measuredAt := time.Now().UTC()
	if in.MeasuredAt != "" {
		t, err := time.Parse(time.RFC3339, in.MeasuredAt)
		if err != nil {
			return nil, fmt.Errorf("parse measuredAt: %w", err)
		}
		measuredAt = t.UTC()
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generate reading id: %w", err)
	}

	if err := s.repo.InsertReading(ctx, id, in.RoomID, value, measuredAt); err != nil {
		return nil, err
	}

	formatted, err := common.NumericToString(value)
	if err != nil {
		return nil, err
	}

	return &entity.TemperatureReadingResponse{
		ID:         id,
		RoomID:     in.RoomID,
		Value:      formatted,
		MeasuredAt: measuredAt,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func (s *ReplicaServiceImpl) GetReadings(ctx context.Context, roomID int64, limit int) ([]*entity.TemperatureReadingResponse, error) {
	s.logger.Debugf("[room: %d] GetReadings started, limit: %d", roomID, limit)

	exists, err := s.repo.RoomExists(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, appers.ErrRoomNotFound
	}

	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	return s.repo.ListReadingsByRoom(ctx, roomID, limit)
}

func (s *ReplicaServiceImpl) GetHouseSummary(ctx context.Context, houseID int64) ([]*entity.RoomTemperatureSummary, error) {
	s.logger.Debugf("[house: %d] GetHouseSummary started", houseID)

	exists, err := s.repo.HouseExists(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, appers.ErrHouseNotFound
	}

	return s.repo.HouseTemperatureSummary(ctx, houseID)
}
