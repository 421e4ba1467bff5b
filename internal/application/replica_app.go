package application

import (
	"context"
	"fmt"

	"homesync/internal/application/common"
	"homesync/internal/application/repo"
	"homesync/internal/application/service"
	use_cases "homesync/internal/application/use-cases"
	"homesync/internal/controllers/handler"
	"homesync/internal/controllers/listener"
	"homesync/internal/transport/producer"
	"homesync/internal/transport/resync"
	"homesync/pkg/broker"
	"homesync/pkg/config"
	"homesync/pkg/db"
	"homesync/pkg/httpclient"
	"homesync/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ReplicaApp - temperature-сервис: консьюмер шины, локальная реплика
// домов/комнат и API показаний температуры.
type ReplicaApp struct {
	ctx        context.Context
	conf       *config.Config
	logger     *zap.SugaredLogger
	postgres   *db.Postgres
	httpServer *fiber.App
	kafka      *broker.KafkaBroker
}

func NewReplicaApp(
	ctx context.Context,
	conf *config.Config,
	logger *zap.SugaredLogger,
	postgres *db.Postgres,
	httpServer *fiber.App,
	kafkaBroker *broker.KafkaBroker,
	m *metrics.Metrics) *ReplicaApp {
	//Логируем версию приложения
	logger.Infof("Запуск Temperature Service версии: %s", common.Version)

	go func() {
		<-ctx.Done()
		logger.Info("закрытие consumer group")
		_ = kafkaBroker.ConsumerGroup.Close()
		logger.Info("закрытие consumer group: done")
	}()

	store := repo.NewReplicaRepo(postgres, logger)

	// Ресинк родителя включается адресом house-сервиса в конфиге
	var fetcher service.HouseFetcher
	if conf.Replica.ResyncBaseURL != "" {
		fetcher = resync.NewClient(httpclient.NewClient(conf.HTTPClient), conf.Replica, logger)
		logger.Infof("ресинк реплики включён, источник: %s", conf.Replica.ResyncBaseURL)
	}

	kafkaProducer := producerFor(kafkaBroker, logger, conf, m)
	srv := service.NewReplicaService(store, fetcher, kafkaProducer, logger, m)
	uc := use_cases.NewReplicaUseCase(srv, logger)
	h := handler.NewReplicaHandler(uc, logger)
	r := handler.NewReplicaRouter(h, httpServer, conf, logger)

	r.RegisterRouter()

	app := &ReplicaApp{
		ctx:        ctx,
		conf:       conf,
		logger:     logger,
		postgres:   postgres,
		httpServer: httpServer,
		kafka:      kafkaBroker,
	}

	go app.runConsumer(ctx, logger, uc, kafkaProducer, kafkaBroker, m)

	return app
}

func producerFor(kafkaBroker *broker.KafkaBroker, logger *zap.SugaredLogger, conf *config.Config, m *metrics.Metrics) producer.Producer {
	return producer.NewProducer(kafkaBroker, logger, conf.Broker.Kafka.MaxAttempts, m)
}

func (a *ReplicaApp) Run() error {
	return a.httpServer.Listen(fmt.Sprintf(":%s", a.conf.Server.Port))
}

func (a *ReplicaApp) Shutdown() error {
	return a.httpServer.Shutdown()
}

func (a *ReplicaApp) runConsumer(ctx context.Context, logger *zap.SugaredLogger, usecase use_cases.ReplicaUseCaser, dlq producer.Producer, kafkaBroker *broker.KafkaBroker, m *metrics.Metrics) {
	logger.Infof("🚀 Запуск consumer для топика: %s", kafkaBroker.ConsumerTopic)

	kafkaBrokerConsumer := listener.NewKafkaBrokerConsumer(usecase, dlq, logger, m)

	for {
		logger.Infof("🔄 Попытка подключения к consumer group...")
		err := kafkaBroker.ConsumerGroup.Consume(ctx, []string{kafkaBroker.ConsumerTopic}, kafkaBrokerConsumer)
		if err != nil {
			logger.Errorf("Ошибка consumer: %v", err)
		}
		if ctx.Err() != nil {
			logger.Info("Consumer остановлен по контексту")
			return
		}
	}
}
