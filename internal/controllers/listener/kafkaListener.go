package listener

import (
	"time"

	"homesync/internal/appers"
	use_cases "homesync/internal/application/use-cases"
	"homesync/internal/transport/producer"
	"homesync/pkg/metrics"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// KafkaBrokerConsumer применяет события шины к локальной реплике.
// Семантика ack: offset коммитится только после успешного применения либо
// после ухода сообщения в DLQ. Транзиентная ошибка оставляет offset на месте,
// и после пересоздания сессии брокер доставит сообщение повторно.
type KafkaBrokerConsumer struct {
	usecase use_cases.ReplicaUseCaser
	dlq     producer.Producer
	logger  *zap.SugaredLogger
	m       *metrics.Metrics
}

func NewKafkaBrokerConsumer(usecase use_cases.ReplicaUseCaser, dlq producer.Producer, logger *zap.SugaredLogger, m *metrics.Metrics) *KafkaBrokerConsumer {
	return &KafkaBrokerConsumer{
		logger:  logger,
		usecase: usecase,
		dlq:     dlq,
		m:       m,
	}
}

func (k *KafkaBrokerConsumer) Setup(session sarama.ConsumerGroupSession) error {
	k.logger.Info("Kafka setup success")
	if k.m != nil {
		k.m.Kafka.ConsumerRebalancesTotal.WithLabelValues("setup").Inc()
	}
	return nil
}

func (k *KafkaBrokerConsumer) Cleanup(session sarama.ConsumerGroupSession) error {
	k.logger.Info("Kafka cleanup success")
	if k.m != nil {
		k.m.Kafka.ConsumerRebalancesTotal.WithLabelValues("cleanup").Inc()
	}
	return nil
}

func (k *KafkaBrokerConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	topic := claim.Topic()
	ctx := session.Context()

	for msg := range claim.Messages() {
		if k.m != nil {
			k.m.Kafka.ConsumerInFlight.WithLabelValues(topic).Inc()
		}
		start := time.Now()
		k.logger.Debugf("Message topic:%q partition:%d offset:%d key:%s", msg.Topic, msg.Partition, msg.Offset, msg.Key)

		err := k.usecase.ApplyMessage(ctx, msg.Value)

		outcome := "applied"
		switch {
		case err == nil:
			session.MarkMessage(msg, "")

		case appers.IsPermanent(err):
			// poison-сообщение: ретраи бессмысленны, уводим в DLQ и коммитим
			k.logger.Errorf("poison message at partition:%d offset:%d, routing to dlq: %v", msg.Partition, msg.Offset, err)
			if dlqErr := k.dlq.ProduceDeadLetter(ctx, string(msg.Key), msg.Value); dlqErr != nil {
				// DLQ недоступен - offset не коммитим, сообщение не потеряется
				k.logger.Errorf("dlq produce failed: %v", dlqErr)
				k.observe(topic, "redelivered", start)
				return dlqErr
			}
			if k.m != nil {
				k.m.Replica.DeadLetterTotal.Inc()
			}
			outcome = "dead_letter"
			session.MarkMessage(msg, "")

		default:
			// транзиентный сбой: без ack, выходим из claim и ждём redelivery
			k.logger.Warnf("transient apply error at partition:%d offset:%d, will redeliver: %v", msg.Partition, msg.Offset, err)
			k.observe(topic, "redelivered", start)
			return err
		}

		k.observe(topic, outcome, start)
	}

	return nil
}

func (k *KafkaBrokerConsumer) observe(topic, outcome string, start time.Time) {
	if k.m == nil {
		return
	}
	k.m.Kafka.ConsumerMessagesTotal.WithLabelValues(topic, outcome).Inc()
	k.m.Kafka.ConsumerProcessDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	k.m.Kafka.ConsumerInFlight.WithLabelValues(topic).Dec()
}
