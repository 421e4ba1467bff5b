package cron

import (
	"context"

	use_cases "homesync/internal/application/use-cases"

	"go.uber.org/zap"
)

// PruneOutboxJob - задача очистки отправленных outbox-записей.
// Удаляются только строки в статусе SENT старше retentionDays:
// неотправленная история не трогается никогда.
type PruneOutboxJob struct {
	usecase use_cases.UseCaser
	logger  *zap.SugaredLogger
}

func NewPruneOutboxJob(usecase use_cases.UseCaser, logger *zap.SugaredLogger) *PruneOutboxJob {
	return &PruneOutboxJob{
		usecase: usecase,
		logger:  logger,
	}
}

// Run выполняет очистку outbox
func (j *PruneOutboxJob) Run(ctx context.Context) {
	j.logger.Info("Запуск задачи очистки отправленных outbox-записей")

	defer func() {
		if r := recover(); r != nil {
			j.logger.Errorf("Паника при выполнении задачи очистки outbox: %v", r)
		}
	}()

	j.usecase.PruneOutbox(ctx)
	j.logger.Info("Задача очистки outbox завершена")
}
