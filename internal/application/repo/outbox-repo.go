package repo

import (
	"context"
	"fmt"
	"time"

	"homesync/internal/application/common"
	"homesync/internal/application/entity"
)

func (r *RepoImpl) InsertOutbox(ctx context.Context, e *entity.OutboxEvent) error {
	r.logger.Debugf("[aggregate: %s] InsertOutbox started, eventType: %s", e.AggregateID, e.EventType)
	err := r.db.QueryRow(ctx, insertOutboxQuery,
		e.AggregateID, e.AggregateType, e.EventType, e.HouseID, e.RoomID, []byte(e.Payload), string(e.Status),
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert outbox_event: %w", err)
	}

	return nil
}

func (r *RepoImpl) ReserveOutboxBatch(ctx context.Context, lease time.Duration, limit, maxAttempts int) ([]entity.OutboxEvent, error) {
	r.logger.Debugf("[lease: %s, limit: %d, maxAttempts: %d] ReserveOutboxBatch started", lease, limit, maxAttempts)

	rows, err := r.db.Query(ctx, reserveBatchSQL, common.PgInterval(lease), limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("reserve outbox batch: %w", err)
	}
	defer rows.Close()

	var res []entity.OutboxEvent
	for rows.Next() {
		var e entity.OutboxEvent
		var status string
		if err := rows.Scan(
			&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.HouseID, &e.RoomID,
			&e.Payload, &status, &e.Attempts, &e.NextAttemptAt, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reserved outbox: %w", err)
		}
		e.Status = entity.OutboxStatus(status)
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reserve rows err: %w", err)
	}

	return res, nil
}

func (r *RepoImpl) MarkFailedWithBackoff(ctx context.Context, outboxID int64, nextAttemptAt time.Time, lastError string) error {

	_, err := r.db.Exec(ctx, markFailedSQL, outboxID, entity.OutboxFailed, nextAttemptAt, lastError)
	if err != nil {
		return fmt.Errorf("outbox mark failed: %w", err)
	}

	return nil
}

func (r *RepoImpl) MarkGaveUp(ctx context.Context, outboxID int64, lastError string) error {

	_, err := r.db.Exec(ctx, markGaveUpSQL, outboxID, entity.OutboxGaveUp, lastError)
	if err != nil {
		return fmt.Errorf("outbox mark gave_up: %w", err)
	}

	return nil
}

func (r *RepoImpl) PruneSentOutbox(ctx context.Context, days *int) error {
	d := defaultRetentionDays
	if days != nil && *days > 0 {
		d = *days
	} else if days != nil && *days == 0 {
		r.logger.Warnf("retentionDays is 0, skipping prune to prevent deleting unconfirmed history")
		return nil
	}

	r.logger.Infof("start pruning sent outbox rows older than %d days", d)

	result, err := r.db.Exec(ctx, pruneSentOutbox, d)
	if err != nil {
		r.logger.Errorf("error pruning outbox: %v", err)
		return fmt.Errorf("error pruning outbox: %w", err)
	}
	rowsAffected := result.RowsAffected()
	if rowsAffected == 0 {
		r.logger.Infof("no outbox rows pruned (nothing older than %d days)", d)
		return nil
	}
	r.logger.Infof("pruned %d sent outbox rows (older than %d days)", rowsAffected, d)
	return nil
}
