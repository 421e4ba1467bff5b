package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"homesync/internal/application/entity"
	"homesync/internal/application/repo"
	"homesync/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ===== фейки =====

type failedMark struct {
	id        int64
	lastError string
}

type fakeRepo struct {
	repo.Repo

	mu     sync.Mutex
	houses map[int64]bool
	failed []failedMark
	gaveUp []failedMark
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{houses: map[int64]bool{}}
}

func (f *fakeRepo) HouseExists(ctx context.Context, id int64) (bool, error) {
	return f.houses[id], nil
}

func (f *fakeRepo) MarkFailedWithBackoff(ctx context.Context, outboxID int64, nextAttemptAt time.Time, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, failedMark{id: outboxID, lastError: lastError})
	return nil
}

func (f *fakeRepo) MarkGaveUp(ctx context.Context, outboxID int64, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gaveUp = append(f.gaveUp, failedMark{id: outboxID, lastError: lastError})
	return nil
}

func (f *fakeRepo) HealthCheck(ctx context.Context) error { return nil }

type fakeTransactions struct {
	repo.Transactions

	mu        sync.Mutex
	sent      []int64
	sentErrOn map[int64]error
}

func newFakeTransactions() *fakeTransactions {
	return &fakeTransactions{sentErrOn: map[int64]error{}}
}

func (f *fakeTransactions) MarkSent(ctx context.Context, outboxID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sentErrOn[outboxID]; err != nil {
		return err
	}
	f.sent = append(f.sent, outboxID)
	return nil
}

type published struct {
	key     string
	eventID int64
	body    []byte
}

type fakeProducer struct {
	mu        sync.Mutex
	published []published
	failOn    map[int64]error
	healthErr error
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{failOn: map[int64]error{}}
}

func (f *fakeProducer) ProduceMessage(ctx context.Context, key string, eventID int64, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[eventID]; err != nil {
		return err
	}
	f.published = append(f.published, published{key: key, eventID: eventID, body: message})
	return nil
}

func (f *fakeProducer) ProduceDeadLetter(ctx context.Context, key string, message []byte) error {
	return nil
}

func (f *fakeProducer) HealthCheck(ctx context.Context) error { return f.healthErr }

func newRelayService(t *testing.T, r *fakeRepo, tx *fakeTransactions, p *fakeProducer, maxAttempts int) *ServiceImpl {
	t.Helper()
	cfg := &config.RelayConfig{
		Workers:        1,
		BatchSize:      10,
		Lease:          time.Minute,
		PollPeriod:     10 * time.Millisecond,
		MaxAttempts:    maxAttempts,
		PublishTimeout: time.Second,
	}
	return NewService(r, tx, p, zap.NewNop().Sugar(), cfg, nil)
}

func outboxEvent(id int64, houseID int64, eventType entity.OutboxEventType, attempts int) entity.OutboxEvent {
	return entity.OutboxEvent{
		ID:            id,
		AggregateID:   entity.HouseStream(houseID),
		AggregateType: entity.AggregateHouse,
		EventType:     eventType,
		HouseID:       houseID,
		Payload:       json.RawMessage(`{"houseId":1,"name":"Villa"}`),
		Status:        entity.OutboxNew,
		Attempts:      attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

// ===== тесты =====

func TestGroupByAggregate(t *testing.T) {
	events := []entity.OutboxEvent{
		outboxEvent(1, 10, entity.HouseCreated, 0),
		outboxEvent(2, 20, entity.HouseCreated, 0),
		outboxEvent(3, 10, entity.HouseUpdated, 0),
		outboxEvent(4, 10, entity.HouseDeleted, 0),
	}

	groups := groupByAggregate(events)

	require.Len(t, groups, 2)
	// порядок первых вхождений между группами
	assert.Equal(t, entity.HouseStream(10), groups[0][0].AggregateID)
	assert.Equal(t, entity.HouseStream(20), groups[1][0].AggregateID)
	// порядок id внутри группы
	require.Len(t, groups[0], 3)
	assert.Equal(t, int64(1), groups[0][0].ID)
	assert.Equal(t, int64(3), groups[0][1].ID)
	assert.Equal(t, int64(4), groups[0][2].ID)
}

func TestProcessGroup_PublishesInOrder(t *testing.T) {
	r := newFakeRepo()
	tx := newFakeTransactions()
	p := newFakeProducer()
	s := newRelayService(t, r, tx, p, 5)

	group := []entity.OutboxEvent{
		outboxEvent(1, 10, entity.HouseCreated, 0),
		outboxEvent(2, 10, entity.HouseUpdated, 0),
		outboxEvent(3, 10, entity.HouseDeleted, 0),
	}

	s.ProcessGroup(context.Background(), 0, group)

	require.Len(t, p.published, 3)
	for i, want := range []int64{1, 2, 3} {
		assert.Equal(t, want, p.published[i].eventID)
		assert.Equal(t, entity.HouseStream(10), p.published[i].key)
	}
	assert.Equal(t, []int64{1, 2, 3}, tx.sent)
	assert.Empty(t, r.failed)
	assert.Empty(t, r.gaveUp)

	// сообщение самоописывающееся: проверяем конверт первого события
	var msg entity.Message
	require.NoError(t, json.Unmarshal(p.published[0].body, &msg))
	assert.Equal(t, int64(1), msg.EventID)
	assert.Equal(t, entity.HouseCreated, msg.EventType)
	assert.Equal(t, int64(10), msg.EntityKey.HouseID)
	assert.Nil(t, msg.EntityKey.RoomID)
}

func TestProcessGroup_FailureStopsGroup(t *testing.T) {
	r := newFakeRepo()
	tx := newFakeTransactions()
	p := newFakeProducer()
	p.failOn[2] = errors.New("broker unavailable")
	s := newRelayService(t, r, tx, p, 5)

	group := []entity.OutboxEvent{
		outboxEvent(1, 10, entity.HouseCreated, 0),
		outboxEvent(2, 10, entity.HouseUpdated, 0),
		outboxEvent(3, 10, entity.HouseDeleted, 0),
	}

	s.ProcessGroup(context.Background(), 0, group)

	// первое ушло, второе упало, третье не публиковалось:
	// позднее событие не должно обогнать упавшее
	require.Len(t, p.published, 1)
	assert.Equal(t, int64(1), p.published[0].eventID)

	require.Len(t, r.failed, 1)
	assert.Equal(t, int64(2), r.failed[0].id)
	assert.Contains(t, r.failed[0].lastError, "broker unavailable")

	assert.Equal(t, []int64{1}, tx.sent)
	assert.Empty(t, r.gaveUp)
}

func TestProcessGroup_RetryCeiling(t *testing.T) {
	r := newFakeRepo()
	tx := newFakeTransactions()
	p := newFakeProducer()
	p.failOn[7] = errors.New("still down")
	s := newRelayService(t, r, tx, p, 3)

	// attempts уже 2, maxAttempts 3: следующая неудача - последняя
	e := outboxEvent(7, 10, entity.HouseUpdated, 2)

	s.ProcessGroup(context.Background(), 0, []entity.OutboxEvent{e})

	require.Len(t, r.gaveUp, 1)
	assert.Equal(t, int64(7), r.gaveUp[0].id)
	assert.Contains(t, r.gaveUp[0].lastError, "still down")
	assert.Empty(t, r.failed)
	assert.Empty(t, tx.sent)
}

func TestProcessGroup_MarkSentFailureDoesNotGiveUp(t *testing.T) {
	r := newFakeRepo()
	tx := newFakeTransactions()
	tx.sentErrOn[1] = errors.New("db hiccup")
	p := newFakeProducer()
	s := newRelayService(t, r, tx, p, 5)

	group := []entity.OutboxEvent{
		outboxEvent(1, 10, entity.HouseCreated, 0),
		outboxEvent(2, 10, entity.HouseUpdated, 0),
	}

	s.ProcessGroup(context.Background(), 0, group)

	// сообщение ушло в шину, но отметка не записалась: строка останется
	// в outbox и будет опубликована повторно - дубликат отсечёт консьюмер.
	// В GAVE_UP строка не уходит, и остаток группы ждёт следующего цикла.
	require.Len(t, p.published, 1)
	assert.Empty(t, r.gaveUp)
	assert.Empty(t, r.failed)
	assert.Empty(t, tx.sent)
}
