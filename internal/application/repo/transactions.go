package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"homesync/internal/application/entity"
	"homesync/pkg/config"

	"go.uber.org/zap"
)

// Transactions - атомарная запись доменной мутации вместе с её outbox-строкой:
// либо фиксируются обе, либо ни одной.
type Transactions interface {
	CreateHouse(ctx context.Context, in *entity.House) (*entity.HouseResponse, error)
	UpdateHouse(ctx context.Context, in *entity.House) (*entity.HouseResponse, error)
	DeleteHouse(ctx context.Context, id int64) error

	CreateRoom(ctx context.Context, in *entity.Room) (*entity.RoomResponse, error)
	UpdateRoom(ctx context.Context, in *entity.Room) (*entity.RoomResponse, error)
	DeleteRoom(ctx context.Context, id int64) error

	GetOperationsFromOutbox(ctx context.Context, c config.RelayConfig) ([]entity.OutboxEvent, error)
	MarkSent(ctx context.Context, outboxID int64) error
}

type TransactionsImpl struct {
	repo   *RepoImpl
	logger *zap.SugaredLogger
}

func NewTransactions(repo *RepoImpl, logger *zap.SugaredLogger) *TransactionsImpl {
	return &TransactionsImpl{repo: repo, logger: logger}
}

func (t *TransactionsImpl) CreateHouse(ctx context.Context, in *entity.House) (*entity.HouseResponse, error) {
	var resp *entity.HouseResponse

	err := t.repo.db.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		resp, err = t.repo.CreateHouse(ctx, in)
		if err != nil {
			t.logger.Errorf("[house: %q] insert house failed: %v", in.Name, err)
			return err
		}

		return t.insertOutbox(ctx, entity.HouseCreated, entity.AggregateHouse, resp.ID, nil, resp)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *TransactionsImpl) UpdateHouse(ctx context.Context, in *entity.House) (*entity.HouseResponse, error) {
	var resp *entity.HouseResponse

	err := t.repo.db.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		resp, err = t.repo.UpdateHouse(ctx, in)
		if err != nil {
			return err
		}

		return t.insertOutbox(ctx, entity.HouseUpdated, entity.AggregateHouse, resp.ID, nil, resp)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *TransactionsImpl) DeleteHouse(ctx context.Context, id int64) error {
	return t.repo.db.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := t.repo.DeleteHouse(ctx, id); err != nil {
			return err
		}

		// payload удаления - только ключ; каскад по комнатам делает консьюмер
		key := entity.EntityKey{HouseID: id}
		return t.insertOutbox(ctx, entity.HouseDeleted, entity.AggregateHouse, id, nil, key)
	})
}

func (t *TransactionsImpl) CreateRoom(ctx context.Context, in *entity.Room) (*entity.RoomResponse, error) {
	var resp *entity.RoomResponse

	err := t.repo.db.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		resp, err = t.repo.CreateRoom(ctx, in)
		if err != nil {
			t.logger.Errorf("[room: %q] insert room failed: %v", in.Name, err)
			return err
		}

		return t.insertOutbox(ctx, entity.RoomCreated, entity.AggregateRoom, resp.HouseID, &resp.ID, resp)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *TransactionsImpl) UpdateRoom(ctx context.Context, in *entity.Room) (*entity.RoomResponse, error) {
	var resp *entity.RoomResponse

	err := t.repo.db.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		resp, err = t.repo.UpdateRoom(ctx, in)
		if err != nil {
			return err
		}

		return t.insertOutbox(ctx, entity.RoomUpdated, entity.AggregateRoom, resp.HouseID, &resp.ID, resp)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *TransactionsImpl) DeleteRoom(ctx context.Context, id int64) error {
	return t.repo.db.WithinTransaction(ctx, func(ctx context.Context) error {
		houseID, err := t.repo.DeleteRoom(ctx, id)
		if err != nil {
			return err
		}

		roomID := id
		key := entity.EntityKey{HouseID: houseID, RoomID: &roomID}
		return t.insertOutbox(ctx, entity.RoomDeleted, entity.AggregateRoom, houseID, &roomID, key)
	})
}

// insertOutbox сериализует снапшот сущности на момент мутации и кладёт
// outbox-строку в ту же транзакцию, что и доменная запись.
func (t *TransactionsImpl) insertOutbox(ctx context.Context, eventType entity.OutboxEventType, aggType entity.OutboxAggregate, houseID int64, roomID *int64, snapshot any) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	evt := entity.OutboxEvent{
		AggregateID:   entity.HouseStream(houseID),
		AggregateType: aggType,
		EventType:     eventType,
		HouseID:       houseID,
		RoomID:        roomID,
		Payload:       payload,
		Status:        entity.OutboxNew,
	}

	if err := t.repo.InsertOutbox(ctx, &evt); err != nil {
		t.logger.Errorf("[aggregate: %s] insert outbox failed: %v", evt.AggregateID, err)
		return err
	}
	return nil
}

func (t *TransactionsImpl) GetOperationsFromOutbox(ctx context.Context, c config.RelayConfig) ([]entity.OutboxEvent, error) {
	var events []entity.OutboxEvent
	err := t.repo.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		events, err = t.repo.ReserveOutboxBatch(txCtx, c.Lease, c.BatchSize, c.MaxAttempts)
		return err
	})
	if err != nil {
		t.logger.Errorw("reserve outbox batch failed", "err", err)
		return nil, err
	}
	return events, nil
}

// MarkSent - идемпотентная отметка публикации. Guard по статусу в SQL:
// повторная отметка (или гонка двух воркеров) затрагивает 0 строк и не ошибка.
func (t *TransactionsImpl) MarkSent(ctx context.Context, outboxID int64) error {
	return t.repo.db.WithinTransaction(ctx, func(ctx context.Context) error {
		result, err := t.repo.db.Exec(ctx, markSentSQL, outboxID, entity.OutboxSent)
		if err != nil {
			return fmt.Errorf("outbox mark sent: %w", err)
		}
		if result.RowsAffected() == 0 {
			t.logger.Infof("[ID %d] outbox already marked sent", outboxID)
		}
		return nil
	})
}
