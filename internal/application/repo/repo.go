package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"homesync/internal/appers"
	"homesync/internal/application/entity"
	"homesync/pkg/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	defaultRetentionDays = 30
)

type Repo interface {
	CreateHouse(ctx context.Context, h *entity.House) (*entity.HouseResponse, error)
	GetHouses(ctx context.Context) ([]*entity.HouseResponse, error)
	GetHouseByID(ctx context.Context, id int64) (*entity.HouseResponse, error)
	UpdateHouse(ctx context.Context, h *entity.House) (*entity.HouseResponse, error)
	DeleteHouse(ctx context.Context, id int64) error
	HouseExists(ctx context.Context, id int64) (bool, error)

	CreateRoom(ctx context.Context, r *entity.Room) (*entity.RoomResponse, error)
	GetRoomsByHouse(ctx context.Context, houseID int64) ([]*entity.RoomResponse, error)
	GetRoomByID(ctx context.Context, id int64) (*entity.RoomResponse, error)
	UpdateRoom(ctx context.Context, r *entity.Room) (*entity.RoomResponse, error)
	DeleteRoom(ctx context.Context, id int64) (int64, error)

	InsertOutbox(ctx context.Context, e *entity.OutboxEvent) error
	ReserveOutboxBatch(ctx context.Context, lease time.Duration, limit, maxAttempts int) ([]entity.OutboxEvent, error)
	MarkFailedWithBackoff(ctx context.Context, outboxID int64, nextAttemptAt time.Time, lastError string) error
	MarkGaveUp(ctx context.Context, outboxID int64, lastError string) error
	PruneSentOutbox(ctx context.Context, days *int) error

	HealthCheck(ctx context.Context) error
}

type RepoImpl struct {
	db     db.DB
	logger *zap.SugaredLogger
}

func NewRepo(db db.DB, logger *zap.SugaredLogger) *RepoImpl {
	return &RepoImpl{db: db, logger: logger}
}

func (r *RepoImpl) HealthCheck(ctx context.Context) error {
	// Проверяем доступность БД через простой запрос
	var result int
	err := r.db.QueryRow(ctx, "SELECT 1").Scan(&result)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func (r *RepoImpl) CreateHouse(ctx context.Context, h *entity.House) (*entity.HouseResponse, error) {
	r.logger.Debugf("[house: %q] start inserting into DB", h.Name)

	var resp entity.HouseResponse
	err := r.db.QueryRow(ctx, createHouse, h.Name, h.Address).
		Scan(&resp.ID, &resp.Name, &resp.Address, &resp.CreatedAt, &resp.UpdatedAt)
	if err != nil {
		r.logger.Errorf("[house: %q] error inserting into DB: %v", h.Name, err)
		return nil, fmt.Errorf("error inserting into DB: %w", err)
	}

	r.logger.Debugf("[house: %d] inserted into DB successfully", resp.ID)
	return &resp, nil
}

func (r *RepoImpl) GetHouses(ctx context.Context) ([]*entity.HouseResponse, error) {
	rows, err := r.db.Query(ctx, getHouses)
	if err != nil {
		r.logger.Errorf("error getting houses from DB: %v", err)
		return nil, fmt.Errorf("error getting from DB: %w", err)
	}
	defer rows.Close()

	houses := make([]*entity.HouseResponse, 0)
	for rows.Next() {
		var h entity.HouseResponse
		if err := rows.Scan(&h.ID, &h.Name, &h.Address, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error getting from DB: %w", err)
		}
		houses = append(houses, &h)
	}
	return houses, rows.Err()
}

func (r *RepoImpl) GetHouseByID(ctx context.Context, id int64) (*entity.HouseResponse, error) {
	var h entity.HouseResponse
	err := r.db.QueryRow(ctx, getHouseByID, id).
		Scan(&h.ID, &h.Name, &h.Address, &h.CreatedAt, &h.UpdatedAt)
	switch {
	case err == nil:
		return &h, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, appers.ErrHouseNotFound
	default:
		r.logger.Errorf("[house: %d] error getting from DB: %v", id, err)
		return nil, fmt.Errorf("error getting from DB: %w", err)
	}
}

func (r *RepoImpl) UpdateHouse(ctx context.Context, h *entity.House) (*entity.HouseResponse, error) {
	r.logger.Debugf("[house: %d] start updating in DB", h.ID)

	query, args := createHousePatchQuery(h)
	if query == "" {
		r.logger.Warnf("[house: %d] no fields to update", h.ID)
		return r.GetHouseByID(ctx, h.ID)
	}

	var resp entity.HouseResponse
	err := r.db.QueryRow(ctx, query, args...).
		Scan(&resp.ID, &resp.Name, &resp.Address, &resp.CreatedAt, &resp.UpdatedAt)
	switch {
	case err == nil:
		r.logger.Debugf("[house: %d] updated in DB successfully", h.ID)
		return &resp, nil
	case errors.Is(err, pgx.ErrNoRows):
		r.logger.Warnf("[house: %d] no rows updated", h.ID)
		return nil, appers.ErrHouseNotFound
	default:
		r.logger.Errorf("[house: %d] error updating in DB: %v", h.ID, err)
		return nil, fmt.Errorf("error updating in DB: %w", err)
	}
}

func (r *RepoImpl) DeleteHouse(ctx context.Context, id int64) error {
	r.logger.Debugf("[house: %d] start deleting from DB", id)

	// комнаты удаляются каскадом по FK
	result, err := r.db.Exec(ctx, deleteHouse, id)
	if err != nil {
		r.logger.Errorf("[house: %d] error deleting from DB: %v", id, err)
		return fmt.Errorf("error deleting from DB: %w", err)
	}
	if result.RowsAffected() == 0 {
		r.logger.Warnf("[house: %d] no rows deleted", id)
		return appers.ErrHouseNotFound
	}
	r.logger.Debugf("[house: %d] deleted from DB successfully", id)
	return nil
}

func (r *RepoImpl) HouseExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, houseExists, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking house existence: %w", err)
	}
	return exists, nil
}

func (r *RepoImpl) CreateRoom(ctx context.Context, room *entity.Room) (*entity.RoomResponse, error) {
	r.logger.Debugf("[room: %q, house: %d] start inserting into DB", room.Name, room.HouseID)

	var resp entity.RoomResponse
	err := r.db.QueryRow(ctx, createRoom, room.HouseID, room.Name, room.Floor).
		Scan(&resp.ID, &resp.HouseID, &resp.Name, &resp.Floor, &resp.CreatedAt, &resp.UpdatedAt)
	switch {
	case err == nil:
		r.logger.Debugf("[room: %d] inserted into DB successfully", resp.ID)
		return &resp, nil
	case isForeignKeyError(err):
		r.logger.Warnf("[room: %q] parent house %d does not exist", room.Name, room.HouseID)
		return nil, appers.ErrRoomParentMissing
	default:
		r.logger.Errorf("[room: %q] error inserting into DB: %v", room.Name, err)
		return nil, fmt.Errorf("error inserting into DB: %w", err)
	}
}

func (r *RepoImpl) GetRoomsByHouse(ctx context.Context, houseID int64) ([]*entity.RoomResponse, error) {
	rows, err := r.db.Query(ctx, getRoomsByHouse, houseID)
	if err != nil {
		r.logger.Errorf("[house: %d] error getting rooms from DB: %v", houseID, err)
		return nil, fmt.Errorf("error getting from DB: %w", err)
	}
	defer rows.Close()

	rooms := make([]*entity.RoomResponse, 0)
	for rows.Next() {
		var room entity.RoomResponse
		if err := rows.Scan(&room.ID, &room.HouseID, &room.Name, &room.Floor, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error getting from DB: %w", err)
		}
		rooms = append(rooms, &room)
	}
	return rooms, rows.Err()
}

func (r *RepoImpl) GetRoomByID(ctx context.Context, id int64) (*entity.RoomResponse, error) {
	var room entity.RoomResponse
	err := r.db.QueryRow(ctx, getRoomByID, id).
		Scan(&room.ID, &room.HouseID, &room.Name, &room.Floor, &room.CreatedAt, &room.UpdatedAt)
	switch {
	case err == nil:
		return &room, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, appers.ErrRoomNotFound
	default:
		r.logger.Errorf("[room: %d] error getting from DB: %v", id, err)
		return nil, fmt.Errorf("error getting from DB: %w", err)
	}
}

func (r *RepoImpl) UpdateRoom(ctx context.Context, room *entity.Room) (*entity.RoomResponse, error) {
	r.logger.Debugf("[room: %d] start updating in DB", room.ID)

	query, args := createRoomPatchQuery(room)
	if query == "" {
		r.logger.Warnf("[room: %d] no fields to update", room.ID)
		return r.GetRoomByID(ctx, room.ID)
	}

	var resp entity.RoomResponse
	err := r.db.QueryRow(ctx, query, args...).
		Scan(&resp.ID, &resp.HouseID, &resp.Name, &resp.Floor, &resp.CreatedAt, &resp.UpdatedAt)
	switch {
	case err == nil:
		r.logger.Debugf("[room: %d] updated in DB successfully", room.ID)
		return &resp, nil
	case errors.Is(err, pgx.ErrNoRows):
		r.logger.Warnf("[room: %d] no rows updated", room.ID)
		return nil, appers.ErrRoomNotFound
	default:
		r.logger.Errorf("[room: %d] error updating in DB: %v", room.ID, err)
		return nil, fmt.Errorf("error updating in DB: %w", err)
	}
}

func (r *RepoImpl) DeleteRoom(ctx context.Context, id int64) (int64, error) {
	r.logger.Debugf("[room: %d] start deleting from DB", id)

	var houseID int64
	err := r.db.QueryRow(ctx, deleteRoom, id).Scan(&houseID)
	switch {
	case err == nil:
		r.logger.Debugf("[room: %d] deleted from DB successfully", id)
		return houseID, nil
	case errors.Is(err, pgx.ErrNoRows):
		r.logger.Warnf("[room: %d] no rows deleted", id)
		return 0, appers.ErrRoomNotFound
	default:
		r.logger.Errorf("[room: %d] error deleting from DB: %v", id, err)
		return 0, fmt.Errorf("error deleting from DB: %w", err)
	}
}

func createHousePatchQuery(patch *entity.House) (string, []any) {
	set := make([]string, 0, 3)
	args := make([]any, 0, 3)
	i := 1

	add := func(field string, value any) {
		set = append(set, fmt.Sprintf("%s = $%d", field, i))
		args = append(args, value)
		i++
	}

	if patch.Name != "" {
		add("name", patch.Name)
	}
	if patch.Address != "" {
		add("address", patch.Address)
	}

	if len(set) == 0 {
		return "", nil
	}

	set = append(set, "updated_at = now()")

	sb := strings.Builder{}
	sb.WriteString("UPDATE houses SET ")
	sb.WriteString(strings.Join(set, ", "))
	sb.WriteString(" WHERE id = $")
	sb.WriteString(fmt.Sprint(i))
	sb.WriteString(" RETURNING id, name, address, created_at, updated_at")
	args = append(args, patch.ID)

	return sb.String(), args
}

func createRoomPatchQuery(patch *entity.Room) (string, []any) {
	set := make([]string, 0, 3)
	args := make([]any, 0, 3)
	i := 1

	add := func(field string, value any) {
		set = append(set, fmt.Sprintf("%s = $%d", field, i))
		args = append(args, value)
		i++
	}

	if patch.Name != "" {
		add("name", patch.Name)
	}
	if patch.Floor != 0 {
		add("floor", patch.Floor)
	}

	if len(set) == 0 {
		return "", nil
	}

	set = append(set, "updated_at = now()")

	sb := strings.Builder{}
	sb.WriteString("UPDATE rooms SET ")
	sb.WriteString(strings.Join(set, ", "))
	sb.WriteString(" WHERE id = $")
	sb.WriteString(fmt.Sprint(i))
	sb.WriteString(" RETURNING id, house_id, name, floor, created_at, updated_at")
	args = append(args, patch.ID)

	return sb.String(), args
}

// isForeignKeyError проверяет нарушение внешнего ключа (SQLSTATE 23503)
func isForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
