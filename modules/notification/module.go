package notification

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"meetbook/core/bus"
	"meetbook/core/config"
	"meetbook/core/logger"
	"meetbook/modules/notification/mailer"
	"meetbook/modules/notification/service"
)

// Module holds the workqueue handles so shutdown can drain them.
type Module struct {
	Client *asynq.Client
	server *asynq.Server
}

func Init(ctx context.Context, eventBus *bus.Bus, cfg *config.Config) (*Module, error) {
	redisOpt, err := asynqRedisOpt(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}

	client := asynq.NewClient(redisOpt)
	notifications := service.NewNotificationService(client, eventBus)
	worker := service.NewEmailWorker(mailer.New(cfg.SMTP), eventBus)

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
	})
	mux := asynq.NewServeMux()
	worker.Register(mux)
	if err := server.Start(mux); err != nil {
		return nil, fmt.Errorf("start email workqueue: %w", err)
	}

	consumer := bus.NewConsumer(eventBus, bus.ConsumerConfig{
		Stream:   bus.StreamBookings,
		Group:    "notifications:email",
		Subjects: []string{bus.SubjectBookingConfirmed, bus.SubjectBookingCanceled},
	}, notifications.HandleBookingEvent)
	if err := consumer.Start(ctx); err != nil {
		return nil, err
	}

	logger.Info("Notification:Init:Success")
	return &Module{Client: client, server: server}, nil
}

// Shutdown drains the workqueue and closes the enqueue side.
func (m *Module) Shutdown() {
	m.server.Shutdown()
	if err := m.Client.Close(); err != nil {
		logger.Warn("Notification:Shutdown:Client:Error", "error", err)
	}
}

func asynqRedisOpt(url string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}
	return asynq.RedisClientOpt{
		Addr:     opt.Addr,
		Username: opt.Username,
		Password: opt.Password,
		DB:       opt.DB,
	}, nil
}
