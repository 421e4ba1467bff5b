package application

import (
	"context"
	"fmt"

	"homesync/internal/application/common"
	"homesync/internal/application/repo"
	"homesync/internal/application/service"
	use_cases "homesync/internal/application/use-cases"
	"homesync/internal/controllers/cron"
	"homesync/internal/controllers/handler"
	"homesync/pkg/broker"
	"homesync/pkg/config"
	"homesync/pkg/db"
	"homesync/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// App - house-сервис: авторитетный CRUD + relay, который выкачивает outbox
// в Kafka. Consumer-сторона живёт в ReplicaApp.
type App struct {
	ctx            context.Context
	conf           *config.Config
	logger         *zap.SugaredLogger
	postgres       *db.Postgres
	httpServer     *fiber.App
	kafka          *broker.KafkaBroker
	cronController *cron.Controller
}

func NewApp(
	ctx context.Context,
	conf *config.Config,
	logger *zap.SugaredLogger,
	postgres *db.Postgres,
	httpServer *fiber.App,
	kafkaBroker *broker.KafkaBroker,
	m *metrics.Metrics) *App {
	//Логируем версию приложения
	logger.Infof("Запуск House Service версии: %s", common.Version)

	store := repo.NewRepo(postgres, logger)
	tx := repo.NewTransactions(store, logger)
	kafkaProducer := producerFor(kafkaBroker, logger, conf, m)
	srv := service.NewService(store, tx, kafkaProducer, logger, &conf.Relay, m)
	uc := use_cases.NewUseCase(srv, logger, conf)
	h := handler.NewHouseHandler(uc, logger)
	r := handler.NewRouter(h, httpServer, conf, logger)

	// Инициализация cron контроллера
	cronController := cron.NewController(ctx, logger)
	if err := cronController.RegisterPruneOutboxJob(uc, conf.Cron); err != nil {
		logger.Fatalf("не удалось зарегистрировать cron задачу: %v", err)
	}
	cronController.Start()

	go uc.RunRelay(ctx)

	r.RegisterRouter()

	return &App{
		ctx:            ctx,
		conf:           conf,
		logger:         logger,
		postgres:       postgres,
		httpServer:     httpServer,
		kafka:          kafkaBroker,
		cronController: cronController,
	}
}

func (a *App) Run() error {
	return a.httpServer.Listen(fmt.Sprintf(":%s", a.conf.Server.Port))
}

func (a *App) Shutdown() error {
	// Останавливаем cron задачи
	if a.cronController != nil {
		a.cronController.Stop()
	}
	return a.httpServer.Shutdown()
}
