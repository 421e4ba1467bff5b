package service

import (
	"context"
	"encoding/json"
	"time"

	"homesync/internal/application/common"
	"homesync/internal/application/entity"
	"homesync/internal/transport/producer"
)

// RelayRun - цикл диспетчера outbox. Каждый тик резервируется батч готовых
// строк, батч режется на группы по aggregate_id и группы раздаются воркерам.
// Группа целиком уходит одному воркеру и обрабатывается строго по порядку id,
// поэтому события одного дома никогда не публикуются вперемешку.
func (s *ServiceImpl) RelayRun(ctx context.Context) {
	s.logger.Infow("relay started", "workers", s.cfg.Workers, "batch", s.cfg.BatchSize, "lease", s.cfg.Lease.String())

	jobs := make(chan []entity.OutboxEvent, s.cfg.BatchSize*2)

	// стартуем воркеров
	for i := 0; i < s.cfg.Workers; i++ {
		go s.worker(ctx, i, jobs)
	}

	ticker := time.NewTicker(s.cfg.PollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("relay stopping")
			return
		case <-ticker.C:
			events, err := s.transactions.GetOperationsFromOutbox(ctx, *s.cfg)
			if err != nil {
				s.logger.Errorw("get operations from outbox failed", "err", err)
				continue
			}
			if s.m != nil {
				s.m.Outbox.RelayBatchSize.Observe(float64(len(events)))
			}

			groups := groupByAggregate(events)
			s.logger.Debugf("len jobs: %d, len events: %d, groups: %d", len(jobs), len(events), len(groups))
			for _, g := range groups {
				select {
				case jobs <- g:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// groupByAggregate собирает строки одного агрегата в одну группу,
// сохраняя порядок id внутри группы и порядок первых вхождений между группами.
func groupByAggregate(events []entity.OutboxEvent) [][]entity.OutboxEvent {
	idx := make(map[string]int, len(events))
	groups := make([][]entity.OutboxEvent, 0, len(events))
	for _, e := range events {
		i, ok := idx[e.AggregateID]
		if !ok {
			i = len(groups)
			idx[e.AggregateID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], e)
	}
	return groups
}

func (s *ServiceImpl) worker(ctx context.Context, id int, jobs <-chan []entity.OutboxEvent) {
	s.logger.Infow("worker started", "id", id)
	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("worker stopping", "id", id)
			return
		case g := <-jobs:
			s.ProcessGroup(ctx, id, g)
		}
	}
}

// ProcessGroup публикует события одного агрегата по порядку.
// Сбой останавливает группу: остаток ждёт следующего цикла, иначе позднее
// событие обогнало бы упавшее. (экспортируем для тестирования)
func (s *ServiceImpl) ProcessGroup(ctx context.Context, wid int, group []entity.OutboxEvent) {
	for i, e := range group {
		if !s.processOne(ctx, wid, e) {
			if skipped := len(group) - i - 1; skipped > 0 {
				s.logger.Warnf("[aggregate: %s] publish failed at event %d, skipping %d later events of the group", e.AggregateID, e.ID, skipped)
			}
			return
		}
	}
}

func (s *ServiceImpl) processOne(ctx context.Context, wid int, e entity.OutboxEvent) bool {
	s.logger.Debugf("[ID %d] relay-process started, workerID: %d", e.ID, wid)

	body, err := json.Marshal(e.ToMessage())
	if err != nil {
		// не сериализуется — не станет лучше и через час
		s.logger.Errorf("[ID %d] marshal message failed, err: %v", e.ID, err)
		_ = s.repo.MarkGaveUp(context.WithoutCancel(ctx), e.ID, err.Error())
		if s.m != nil {
			s.m.Outbox.RelayGaveUpTotal.WithLabelValues(string(e.EventType)).Inc()
		}
		return false
	}

	pubCtx, cancel := context.WithTimeout(ctx, s.publishTimeout())
	err = s.kafkaProducer.ProduceMessage(pubCtx, e.AggregateID, e.ID, body)
	cancel()
	if err != nil {
		s.logger.Errorf("[ID %d] kafka send failed, err: %v", e.ID, err)
		if s.m != nil {
			s.m.Outbox.RelayFailedTotal.WithLabelValues(producer.ClassifyRetry(err)).Inc()
		}
		// бухгалтерию пишем даже при отменённом контексте запроса
		_ = s.markOutboxFailedOrGaveUp(context.WithoutCancel(ctx), e, err, common.NextBackoffWithJitter(e.Attempts))
		return false
	}
	s.logger.Infof("[ID %d] sent to kafka", e.ID)

	if err := s.transactions.MarkSent(ctx, e.ID); err != nil {
		// сообщение уже ушло; строка останется зарезервированной и после lease
		// будет опубликована повторно — консьюмер отсечёт дубликат по inbox
		s.logger.Errorf("[ID %d] mark sent failed, will re-deliver: %v", e.ID, err)
		return false
	}

	if s.m != nil {
		s.m.Outbox.RelayPublishedTotal.WithLabelValues(string(e.EventType)).Inc()
	}
	s.logger.Debugf("[ID %d] relay-process completed", e.ID)
	return true
}

func (s *ServiceImpl) markOutboxFailedOrGaveUp(ctx context.Context, e entity.OutboxEvent, cause error, backoff time.Duration) error {
	if e.Attempts+1 >= s.cfg.MaxAttempts {
		s.logger.Errorf("[ID %d] retry ceiling reached (%d attempts), giving up", e.ID, e.Attempts+1)
		if s.m != nil {
			s.m.Outbox.RelayGaveUpTotal.WithLabelValues(string(e.EventType)).Inc()
		}
		return s.repo.MarkGaveUp(ctx, e.ID, cause.Error())
	}
	return s.repo.MarkFailedWithBackoff(ctx, e.ID, time.Now().UTC().Add(backoff), cause.Error())
}

func (s *ServiceImpl) publishTimeout() time.Duration {
	if s.cfg.PublishTimeout > 0 {
		return s.cfg.PublishTimeout
	}
	return 10 * time.Second
}
