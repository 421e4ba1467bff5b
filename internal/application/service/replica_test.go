package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"homesync/internal/appers"
	"homesync/internal/application/entity"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memReplicaRepo - реплика в памяти с теми же CAS/guard-семантиками, что и SQL.
// WithinTransaction снимает снапшот и откатывает его при ошибке, чтобы тесты
// проверяли атомарность "inbox + доменная запись".
type memReplicaRepo struct {
	inbox    map[string]int64
	houses   map[int64]entity.HouseReplica
	rooms    map[int64]entity.RoomReplica
	readings map[int64][]entity.TemperatureReadingResponse
}

func newMemReplicaRepo() *memReplicaRepo {
	return &memReplicaRepo{
		inbox:    map[string]int64{},
		houses:   map[int64]entity.HouseReplica{},
		rooms:    map[int64]entity.RoomReplica{},
		readings: map[int64][]entity.TemperatureReadingResponse{},
	}
}

func (m *memReplicaRepo) snapshot() *memReplicaRepo {
	c := newMemReplicaRepo()
	for k, v := range m.inbox {
		c.inbox[k] = v
	}
	for k, v := range m.houses {
		c.houses[k] = v
	}
	for k, v := range m.rooms {
		c.rooms[k] = v
	}
	for k, v := range m.readings {
		c.readings[k] = append([]entity.TemperatureReadingResponse(nil), v...)
	}
	return c
}

func (m *memReplicaRepo) restore(s *memReplicaRepo) {
	m.inbox, m.houses, m.rooms, m.readings = s.inbox, s.houses, s.rooms, s.readings
}

func (m *memReplicaRepo) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	saved := m.snapshot()
	if err := fn(ctx); err != nil {
		m.restore(saved)
		return err
	}
	return nil
}

func (m *memReplicaRepo) AdvanceInbox(ctx context.Context, aggregateID string, eventID int64) (bool, error) {
	if cur, ok := m.inbox[aggregateID]; ok && cur >= eventID {
		return false, nil
	}
	m.inbox[aggregateID] = eventID
	return true, nil
}

func (m *memReplicaRepo) UpsertHouse(ctx context.Context, h *entity.HouseReplica) error {
	if cur, ok := m.houses[h.ID]; ok && cur.LastEventID >= h.LastEventID {
		return nil
	}
	m.houses[h.ID] = *h
	return nil
}

func (m *memReplicaRepo) DeleteHouseCascade(ctx context.Context, houseID int64) error {
	for id, room := range m.rooms {
		if room.HouseID == houseID {
			delete(m.readings, id)
			delete(m.rooms, id)
		}
	}
	delete(m.houses, houseID)
	return nil
}

func (m *memReplicaRepo) UpsertRoom(ctx context.Context, room *entity.RoomReplica) error {
	if cur, ok := m.rooms[room.ID]; ok && cur.LastEventID >= room.LastEventID {
		return nil
	}
	m.rooms[room.ID] = *room
	return nil
}

func (m *memReplicaRepo) DeleteRoom(ctx context.Context, roomID int64) error {
	delete(m.readings, roomID)
	delete(m.rooms, roomID)
	return nil
}

func (m *memReplicaRepo) HouseExists(ctx context.Context, houseID int64) (bool, error) {
	_, ok := m.houses[houseID]
	return ok, nil
}

func (m *memReplicaRepo) RoomExists(ctx context.Context, roomID int64) (bool, error) {
	_, ok := m.rooms[roomID]
	return ok, nil
}

func (m *memReplicaRepo) ListHouses(ctx context.Context) ([]*entity.HouseReplica, error) {
	out := make([]*entity.HouseReplica, 0, len(m.houses))
	for id := range m.houses {
		h := m.houses[id]
		out = append(out, &h)
	}
	return out, nil
}

func (m *memReplicaRepo) ListRoomsByHouse(ctx context.Context, houseID int64) ([]*entity.RoomReplica, error) {
	out := make([]*entity.RoomReplica, 0)
	for id := range m.rooms {
		if m.rooms[id].HouseID == houseID {
			r := m.rooms[id]
			out = append(out, &r)
		}
	}
	return out, nil
}

func (m *memReplicaRepo) InsertReading(ctx context.Context, id uuid.UUID, roomID int64, value pgtype.Numeric, measuredAt time.Time) error {
	m.readings[roomID] = append(m.readings[roomID], entity.TemperatureReadingResponse{
		ID: id, RoomID: roomID, MeasuredAt: measuredAt,
	})
	return nil
}

func (m *memReplicaRepo) ListReadingsByRoom(ctx context.Context, roomID int64, limit int) ([]*entity.TemperatureReadingResponse, error) {
	out := make([]*entity.TemperatureReadingResponse, 0)
	for i := range m.readings[roomID] {
		if len(out) == limit {
			break
		}
		r := m.readings[roomID][i]
		out = append(out, &r)
	}
	return out, nil
}

func (m *memReplicaRepo) HouseTemperatureSummary(ctx context.Context, houseID int64) ([]*entity.RoomTemperatureSummary, error) {
	out := make([]*entity.RoomTemperatureSummary, 0)
	for id := range m.rooms {
		if m.rooms[id].HouseID == houseID {
			out = append(out, &entity.RoomTemperatureSummary{
				RoomID:   id,
				RoomName: m.rooms[id].Name,
				Readings: int64(len(m.readings[id])),
			})
		}
	}
	return out, nil
}

func (m *memReplicaRepo) HealthCheck(ctx context.Context) error { return nil }

type fakeFetcher struct {
	house *entity.HouseResponse
	found bool
	err   error
	calls int
}

func (f *fakeFetcher) FetchHouse(ctx context.Context, houseID int64) (*entity.HouseResponse, bool, error) {
	f.calls++
	return f.house, f.found, f.err
}

func newReplicaService(repo *memReplicaRepo, fetcher HouseFetcher) *ReplicaServiceImpl {
	return NewReplicaService(repo, fetcher, newFakeProducer(), zap.NewNop().Sugar(), nil)
}

func rawMessage(t *testing.T, eventID int64, eventType entity.OutboxEventType, houseID int64, roomID *int64, payload any) []byte {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(entity.Message{
		EventID:   eventID,
		EventType: eventType,
		EntityKey: entity.EntityKey{HouseID: houseID, RoomID: roomID},
		Payload:   body,
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	return raw
}

func houseMsg(t *testing.T, eventID int64, eventType entity.OutboxEventType, houseID int64, name string) []byte {
	return rawMessage(t, eventID, eventType, houseID, nil, entity.HouseResponse{ID: houseID, Name: name})
}

func roomMsg(t *testing.T, eventID int64, eventType entity.OutboxEventType, houseID, roomID int64, name string) []byte {
	return rawMessage(t, eventID, eventType, houseID, &roomID, entity.RoomResponse{ID: roomID, HouseID: houseID, Name: name})
}

// ===== применение событий =====

func TestApplyMessage_CreateThenUpdate(t *testing.T) {
	repo := newMemReplicaRepo()
	s := newReplicaService(repo, nil)
	ctx := context.Background()

	require.NoError(t, s.ApplyMessage(ctx, houseMsg(t, 1, entity.HouseCreated, 10, "Villa")))
	require.NoError(t, s.ApplyMessage(ctx, houseMsg(t, 2, entity.HouseUpdated, 10, "Villa Renovated")))

	h, ok := repo.houses[10]
	require.True(t, ok)
	assert.Equal(t, "Villa Renovated", h.Name)
	assert.Equal(t, int64(2), h.LastEventID)
	assert.Equal(t, int64(2), repo.inbox["house-10"])
}

func TestApplyMessage_DuplicateIsNoop(t *testing.T) {
	repo := newMemReplicaRepo()
	s := newReplicaService(repo, nil)
	ctx := context.Background()

	create := houseMsg(t, 1, entity.HouseCreated, 10, "Villa")
	require.NoError(t, s.ApplyMessage(ctx, create))
	require.NoError(t, s.ApplyMessage(ctx, houseMsg(t, 2, entity.HouseUpdated, 10, "Villa Renovated")))

	// at-least-once: повторная доставка E1 не откатывает состояние
	require.NoError(t, s.ApplyMessage(ctx, create))

	assert.Equal(t, "Villa Renovated", repo.houses[10].Name)
	assert.Equal(t, int64(2), repo.inbox["house-10"])
}

func TestApplyMessage_OutOfOrderStaleDiscarded(t *testing.T) {
	repo := newMemReplicaRepo()
	s := newReplicaService(repo, nil)
	ctx := context.Background()

	// E2 приехало раньше E1
	require.NoError(t, s.ApplyMessage(ctx, houseMsg(t, 2, entity.HouseUpdated, 10, "Villa Renovated")))
	require.NoError(t, s.ApplyMessage(ctx, houseMsg(t, 1, entity.HouseCreated, 10, "Villa")))

	// устаревшее E1 отброшено, реплика не откатилась
	assert.Equal(t, "Villa Renovated", repo.houses[10].Name)
	assert.Equal(t, int64(2), repo.inbox["house-10"])
}

func TestApplyMessage_HouseDeleteCascades(t *testing.T) {
	repo := newMemReplicaRepo()
	s := newReplicaService(repo, nil)
	ctx := context.Background()

	require.NoError(t, s.ApplyMessage(ctx, houseMsg(t, 1, entity.HouseCreated, 10, "Villa")))
	require.NoError(t, s.ApplyMessage(ctx, roomMsg(t, 2, entity.RoomCreated, 10, 100, "Кухня")))
	repo.readings[100] = []entity.TemperatureReadingResponse{{RoomID: 100}}

	require.NoError(t, s.ApplyMessage(ctx, rawMessage(t, 3, entity.HouseDeleted, 10, nil, entity.EntityKey{HouseID: 10})))

	assert.Empty(t, repo.houses)
	assert.Empty(t, repo.rooms)
	assert.Empty(t, repo.readings)
	// inbox переживает удаление и работает как tombstone
	assert.Equal(t, int64(3), repo.inbox["house-10"])
}

func TestApplyMessage_TombstonePreventsResurrection(t *testing.T) {
	repo := newMemReplicaRepo()
	s := newReplicaService(repo, nil)
	ctx := context.Background()

	require.NoError(t, s.ApplyMessage(ctx, houseMsg(t, 1, entity.HouseCreated, 10, "Villa")))
	require.NoError(t, s.ApplyMessage(ctx, roomMsg(t, 2, entity.RoomCreated, 10, 100, "Кухня")))
	require.NoError(t, s.ApplyMessage(ctx, rawMessage(t, 3, entity.RoomDeleted, 10, ptrInt64(100), entity.EntityKey{HouseID: 10, RoomID: ptrInt64(100)})))

	// replay room_updated с event id между created и deleted
	require.NoError(t, s.ApplyMessage(ctx, roomMsg(t, 2, entity.RoomUpdated, 10, 100, "Кухня 2")))

	_, ok := repo.rooms[100]
	assert.False(t, ok, "удалённая комната не должна воскреснуть из устаревшего события")
}

func TestApplyMessage_RoomBeforeHouseIsTransient(t *testing.T) {
	repo := newMemReplicaRepo()
	s := newReplicaService(repo, nil)
	ctx := context.Background()

	err := s.ApplyMessage(ctx, roomMsg(t, 2, entity.RoomCreated, 10, 100, "Кухня"))

	require.ErrorIs(t, err, appers.ErrParentMissing)
	assert.False(t, appers.IsPermanent(err), "отсутствие родителя - транзиентный сбой, не dead-letter")
	// транзакция откатилась целиком: inbox не продвинулся, redelivery применит заново
	assert.Empty(t, repo.inbox)
	assert.Empty(t, repo.rooms)

	// родитель доехал - redelivery проходит
	require.NoError(t, s.ApplyMessage(ctx, houseMsg(t, 1, entity.HouseCreated, 10, "Villa")))
	require.NoError(t, s.ApplyMessage(ctx, roomMsg(t, 2, entity.RoomCreated, 10, 100, "Кухня")))
	assert.Equal(t, "Кухня", repo.rooms[100].Name)
}

func TestApplyMessage_ResyncFetchesParent(t *testing.T) {
	repo := newMemReplicaRepo()
	fetcher := &fakeFetcher{house: &entity.HouseResponse{ID: 10, Name: "Villa"}, found: true}
	s := newReplicaService(repo, fetcher)
	ctx := context.Background()

	require.NoError(t, s.ApplyMessage(ctx, roomMsg(t, 2, entity.RoomCreated, 10, 100, "Кухня")))

	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, "Кухня", repo.rooms[100].Name)
	// дом засеян с last_event_id = 0: будущее house_created его перезапишет
	h := repo.houses[10]
	assert.Equal(t, "Villa", h.Name)
	assert.Zero(t, h.LastEventID)

	require.NoError(t, s.ApplyMessage(ctx, houseMsg(t, 1, entity.HouseCreated, 10, "Villa Prima")))
	assert.Equal(t, "Villa Prima", repo.houses[10].Name)
}

func TestApplyMessage_ResyncParentGoneDropsEvent(t *testing.T) {
	repo := newMemReplicaRepo()
	fetcher := &fakeFetcher{found: false}
	s := newReplicaService(repo, fetcher)

	err := s.ApplyMessage(context.Background(), roomMsg(t, 2, entity.RoomCreated, 10, 100, "Кухня"))

	// источник ответил 404: событие устарело и отбрасывается с продвижением inbox
	require.NoError(t, err)
	assert.Empty(t, repo.rooms)
	assert.Equal(t, int64(2), repo.inbox["room-100"])
}

func TestApplyMessage_ResyncErrorIsTransient(t *testing.T) {
	repo := newMemReplicaRepo()
	fetcher := &fakeFetcher{err: errors.New("house service down")}
	s := newReplicaService(repo, fetcher)

	err := s.ApplyMessage(context.Background(), roomMsg(t, 2, entity.RoomCreated, 10, 100, "Кухня"))

	require.Error(t, err)
	assert.False(t, appers.IsPermanent(err))
	assert.Empty(t, repo.inbox)
}

func TestApplyMessage_MalformedIsPermanent(t *testing.T) {
	s := newReplicaService(newMemReplicaRepo(), nil)
	ctx := context.Background()

	err := s.ApplyMessage(ctx, []byte("{not json"))
	require.ErrorIs(t, err, appers.ErrMalformedEvent)
	assert.True(t, appers.IsPermanent(err))

	err = s.ApplyMessage(ctx, rawMessage(t, 5, "house_repainted", 10, nil, entity.EntityKey{HouseID: 10}))
	require.ErrorIs(t, err, appers.ErrUnknownEventType)
	assert.True(t, appers.IsPermanent(err))

	// room-событие без roomId - мусор, откатывается вместе с inbox
	repo := newMemReplicaRepo()
	s = newReplicaService(repo, nil)
	repo.houses[10] = entity.HouseReplica{ID: 10, Name: "Villa"}
	err = s.ApplyMessage(ctx, rawMessage(t, 6, entity.RoomCreated, 10, nil, entity.RoomResponse{}))
	require.ErrorIs(t, err, appers.ErrMalformedEvent)
	assert.Empty(t, repo.inbox)
}

// ===== temperature API =====

func TestRecordTemperature(t *testing.T) {
	repo := newMemReplicaRepo()
	repo.rooms[100] = entity.RoomReplica{ID: 100, HouseID: 10, Name: "Кухня"}
	s := newReplicaService(repo, nil)
	ctx := context.Background()

	resp, err := s.RecordTemperature(ctx, &entity.TemperatureReading{RoomID: 100, Value: "21.5"})
	require.NoError(t, err)
	assert.Equal(t, "21.50", resp.Value)
	assert.Len(t, repo.readings[100], 1)

	_, err = s.RecordTemperature(ctx, &entity.TemperatureReading{RoomID: 999, Value: "21.5"})
	require.ErrorIs(t, err, appers.ErrRoomNotFound)

	_, err = s.RecordTemperature(ctx, &entity.TemperatureReading{RoomID: 100, Value: "21.555"})
	require.ErrorIs(t, err, appers.ErrBadTemperature)

	_, err = s.RecordTemperature(ctx, &entity.TemperatureReading{RoomID: 100, Value: "  "})
	require.ErrorIs(t, err, appers.ErrBadTemperature)
}

func TestListRooms_UnknownHouse(t *testing.T) {
	s := newReplicaService(newMemReplicaRepo(), nil)

	_, err := s.ListRooms(context.Background(), 10)
	require.ErrorIs(t, err, appers.ErrHouseNotFound)
}

func ptrInt64(v int64) *int64 { return &v }
