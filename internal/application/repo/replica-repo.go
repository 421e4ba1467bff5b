package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homesync/internal/application/common"
	"homesync/internal/application/entity"
	"homesync/pkg/db"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

// ReplicaRepo - хранилище temperature-сервиса: денормализованная реплика
// домов/комнат, inbox обработанных событий и показания температуры.
type ReplicaRepo interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	AdvanceInbox(ctx context.Context, aggregateID string, eventID int64) (bool, error)
	UpsertHouse(ctx context.Context, h *entity.HouseReplica) error
	DeleteHouseCascade(ctx context.Context, houseID int64) error
	UpsertRoom(ctx context.Context, room *entity.RoomReplica) error
	DeleteRoom(ctx context.Context, roomID int64) error
	HouseExists(ctx context.Context, houseID int64) (bool, error)
	RoomExists(ctx context.Context, roomID int64) (bool, error)

	ListHouses(ctx context.Context) ([]*entity.HouseReplica, error)
	ListRoomsByHouse(ctx context.Context, houseID int64) ([]*entity.RoomReplica, error)
	InsertReading(ctx context.Context, id uuid.UUID, roomID int64, value pgtype.Numeric, measuredAt time.Time) error
	ListReadingsByRoom(ctx context.Context, roomID int64, limit int) ([]*entity.TemperatureReadingResponse, error)
	HouseTemperatureSummary(ctx context.Context, houseID int64) ([]*entity.RoomTemperatureSummary, error)

	HealthCheck(ctx context.Context) error
}

type ReplicaRepoImpl struct {
	db     db.DB
	logger *zap.SugaredLogger
}

func NewReplicaRepo(db db.DB, logger *zap.SugaredLogger) *ReplicaRepoImpl {
	return &ReplicaRepoImpl{db: db, logger: logger}
}

func (r *ReplicaRepoImpl) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithinTransaction(ctx, fn)
}

func (r *ReplicaRepoImpl) HealthCheck(ctx context.Context) error {
	var result int
	if err := r.db.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// AdvanceInbox - условный апдейт lastEventId (compare-and-set).
// false означает дубликат или устаревшее событие: запись не продвинулась.
// Внутри транзакции строка inbox остаётся заблокированной до коммита,
// что сериализует конкурентные применения по одному ключу.
func (r *ReplicaRepoImpl) AdvanceInbox(ctx context.Context, aggregateID string, eventID int64) (bool, error) {
	var applied int64
	err := r.db.QueryRow(ctx, advanceInboxSQL, aggregateID, eventID).Scan(&applied)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		r.logger.Debugf("[aggregate: %s] event %d is stale, inbox not advanced", aggregateID, eventID)
		return false, nil
	default:
		return false, fmt.Errorf("advance inbox: %w", err)
	}
}

func (r *ReplicaRepoImpl) UpsertHouse(ctx context.Context, h *entity.HouseReplica) error {
	_, err := r.db.Exec(ctx, upsertHouseReplica, h.ID, h.Name, h.Address, h.LastEventID)
	if err != nil {
		return fmt.Errorf("upsert house replica: %w", err)
	}
	return nil
}

// DeleteHouseCascade удаляет дом, его комнаты и их показания одним вызовом.
// Порядок важен: показания ссылаются на комнаты, комнаты на дом.
func (r *ReplicaRepoImpl) DeleteHouseCascade(ctx context.Context, houseID int64) error {
	if _, err := r.db.Exec(ctx, deleteReadingsByHouse, houseID); err != nil {
		return fmt.Errorf("delete readings by house: %w", err)
	}
	if _, err := r.db.Exec(ctx, deleteRoomReplicasByHouse, houseID); err != nil {
		return fmt.Errorf("delete room replicas by house: %w", err)
	}
	if _, err := r.db.Exec(ctx, deleteHouseReplica, houseID); err != nil {
		return fmt.Errorf("delete house replica: %w", err)
	}
	r.logger.Debugf("[house: %d] replica cascade delete done", houseID)
	return nil
}

func (r *ReplicaRepoImpl) UpsertRoom(ctx context.Context, room *entity.RoomReplica) error {
	_, err := r.db.Exec(ctx, upsertRoomReplica, room.ID, room.HouseID, room.Name, room.Floor, room.LastEventID)
	if err != nil {
		return fmt.Errorf("upsert room replica: %w", err)
	}
	return nil
}

func (r *ReplicaRepoImpl) DeleteRoom(ctx context.Context, roomID int64) error {
	if _, err := r.db.Exec(ctx, deleteReadingsByRoom, roomID); err != nil {
		return fmt.Errorf("delete readings by room: %w", err)
	}
	if _, err := r.db.Exec(ctx, deleteRoomReplica, roomID); err != nil {
		return fmt.Errorf("delete room replica: %w", err)
	}
	return nil
}

func (r *ReplicaRepoImpl) HouseExists(ctx context.Context, houseID int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, houseReplicaExists, houseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check house replica: %w", err)
	}
	return exists, nil
}

func (r *ReplicaRepoImpl) RoomExists(ctx context.Context, roomID int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, roomReplicaExists, roomID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check room replica: %w", err)
	}
	return exists, nil
}

func (r *ReplicaRepoImpl) ListHouses(ctx context.Context) ([]*entity.HouseReplica, error) {
	rows, err := r.db.Query(ctx, listHouseReplicas)
	if err != nil {
		return nil, fmt.Errorf("list house replicas: %w", err)
	}
	defer rows.Close()

	houses := make([]*entity.HouseReplica, 0)
	for rows.Next() {
		var h entity.HouseReplica
		if err := rows.Scan(&h.ID, &h.Name, &h.Address, &h.LastEventID, &h.LastSyncedAt); err != nil {
			return nil, fmt.Errorf("scan house replica: %w", err)
		}
		houses = append(houses, &h)
	}
	return houses, rows.Err()
}

func (r *ReplicaRepoImpl) ListRoomsByHouse(ctx context.Context, houseID int64) ([]*entity.RoomReplica, error) {
	rows, err := r.db.Query(ctx, listRoomReplicasByHouse, houseID)
	if err != nil {
		return nil, fmt.Errorf("list room replicas: %w", err)
	}
	defer rows.Close()

	rooms := make([]*entity.RoomReplica, 0)
	for rows.Next() {
		var room entity.RoomReplica
		if err := rows.Scan(&room.ID, &room.HouseID, &room.Name, &room.Floor, &room.LastEventID, &room.LastSyncedAt); err != nil {
			return nil, fmt.Errorf("scan room replica: %w", err)
		}
		rooms = append(rooms, &room)
	}
	return rooms, rows.Err()
}

func (r *ReplicaRepoImpl) InsertReading(ctx context.Context, id uuid.UUID, roomID int64, value pgtype.Numeric, measuredAt time.Time) error {
	_, err := r.db.Exec(ctx, insertReading, id, roomID, value, measuredAt)
	if err != nil {
		return fmt.Errorf("insert temperature reading: %w", err)
	}
	return nil
}

func (r *ReplicaRepoImpl) ListReadingsByRoom(ctx context.Context, roomID int64, limit int) ([]*entity.TemperatureReadingResponse, error) {
	rows, err := r.db.Query(ctx, listReadingsByRoom, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	defer rows.Close()

	readings := make([]*entity.TemperatureReadingResponse, 0)
	for rows.Next() {
		var t entity.TemperatureReadingResponse
		var value pgtype.Numeric
		if err := rows.Scan(&t.ID, &t.RoomID, &value, &t.MeasuredAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		s, err := common.NumericToString(value)
		if err != nil {
			return nil, fmt.Errorf("format reading value: %w", err)
		}
		t.Value = s
		readings = append(readings, &t)
	}
	return readings, rows.Err()
}

func (r *ReplicaRepoImpl) HouseTemperatureSummary(ctx context.Context, houseID int64) ([]*entity.RoomTemperatureSummary, error) {
	rows, err := r.db.Query(ctx, houseTemperatureSummary, houseID)
	if err != nil {
		return nil, fmt.Errorf("house temperature summary: %w", err)
	}
	defer rows.Close()

	summary := make([]*entity.RoomTemperatureSummary, 0)
	for rows.Next() {
		var s entity.RoomTemperatureSummary
		if err := rows.Scan(&s.RoomID, &s.RoomName, &s.AvgValue, &s.Readings); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summary = append(summary, &s)
	}
	return summary, rows.Err()
}
