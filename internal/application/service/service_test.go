package service

import (
	"context"
	"errors"
	"testing"

	"homesync/internal/appers"
	"homesync/internal/application/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type creatingTransactions struct {
	*fakeTransactions
	createdRooms []entity.Room
}

func (f *creatingTransactions) CreateRoom(ctx context.Context, in *entity.Room) (*entity.RoomResponse, error) {
	f.createdRooms = append(f.createdRooms, *in)
	return &entity.RoomResponse{ID: 1, HouseID: in.HouseID, Name: in.Name, Floor: in.Floor}, nil
}

func TestCreateRoom_ParentMustExist(t *testing.T) {
	r := newFakeRepo()
	tx := &creatingTransactions{fakeTransactions: newFakeTransactions()}
	s := newRelayService(t, r, nil, newFakeProducer(), 3)
	s.transactions = tx

	_, err := s.CreateRoom(context.Background(), &entity.Room{HouseID: 42, Name: "Кухня"})

	// валидация до записи: ни доменной строки, ни outbox-события
	require.ErrorIs(t, err, appers.ErrRoomParentMissing)
	assert.Empty(t, tx.createdRooms)
}

func TestCreateRoom_ParentExists(t *testing.T) {
	r := newFakeRepo()
	r.houses[42] = true
	tx := &creatingTransactions{fakeTransactions: newFakeTransactions()}
	s := newRelayService(t, r, nil, newFakeProducer(), 3)
	s.transactions = tx

	resp, err := s.CreateRoom(context.Background(), &entity.Room{HouseID: 42, Name: "Кухня", Floor: 2})

	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.HouseID)
	require.Len(t, tx.createdRooms, 1)
	assert.Equal(t, "Кухня", tx.createdRooms[0].Name)
}

func TestHealthCheck(t *testing.T) {
	r := newFakeRepo()
	p := newFakeProducer()
	s := newRelayService(t, r, newFakeTransactions(), p, 3)

	db, kafka, err := s.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, db)
	assert.True(t, kafka)

	p.healthErr = errors.New("brokers unreachable")
	db, kafka, err = s.HealthCheck(context.Background())
	// одна живая зависимость - не ошибка, деградацию показывает флаг
	require.NoError(t, err)
	assert.True(t, db)
	assert.False(t, kafka)
}
